package loader

import (
	"fmt"
	"sort"

	"github.com/Carmen-Shannon/oxy-anim/common"
	"github.com/Carmen-Shannon/oxy-anim/engine/animation"
	"github.com/Carmen-Shannon/oxy-anim/engine/character"
	"github.com/Carmen-Shannon/oxy-anim/engine/clip"
	"github.com/Carmen-Shannon/oxy-anim/engine/ik"
	"github.com/Carmen-Shannon/oxy-anim/engine/skeleton"
	"github.com/go-gl/mathgl/mgl32"
)

// Rig is a loaded, validated rig: a shared skeleton and clip store plus the layer and IK
// declarations every character built from it starts with.
type Rig struct {
	Name     string
	Skeleton *skeleton.Skeleton
	Clips    *clip.Store
	Layers   []animation.LayerDef
	IK       map[string]IKChain
}

// IKChain is a named effector declaration with the solver it was authored for.
type IKChain struct {
	Name     string
	Solver   string
	Effector ik.Effector
}

// Request aims the chain at target using the first solver whose name matches the chain's.
//
// Parameters:
//   - target: the model-space target
//   - solvers: the candidate solvers
//
// Returns:
//   - character.IKRequest: the request
//   - bool: false if no solver matched
func (c IKChain) Request(target mgl32.Vec3, solvers ...ik.Solver) (character.IKRequest, bool) {
	for _, s := range solvers {
		if s != nil && s.Name() == c.Solver {
			e := c.Effector
			e.Target = target
			return character.IKRequest{Solver: s, Effector: e}, true
		}
	}
	return character.IKRequest{}, false
}

// NewCharacter creates a character sharing the rig's skeleton and clips, with the rig's layers.
//
// Parameters:
//   - options: further character options, applied after the rig's layers
//
// Returns:
//   - character.Character: the character
//   - error: an error if the character could not be built
func (r *Rig) NewCharacter(options ...character.CharacterBuilderOption) (character.Character, error) {
	opts := make([]character.CharacterBuilderOption, 0, len(options)+1)
	opts = append(opts, character.WithLayers(r.Layers...))
	opts = append(opts, options...)
	return character.NewCharacter(r.Skeleton, r.Clips, opts...)
}

func invalidf(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, skeleton.ErrInvalidData)...)
}

// buildRig converts a decoded document into a Rig. Bones are resolved in two passes (create
// and name, then link parents), sorted parents first, and given bind offsets; clips, layers
// and IK chains then resolve bone and clip names against the sorted skeleton.
func buildRig(doc *rigDocument) (*Rig, error) {
	skel, err := buildSkeleton(doc)
	if err != nil {
		return nil, fmt.Errorf("rig %q: %w", doc.Name, err)
	}

	rest := make([]skeleton.Transform, skel.BoneCount())
	skel.RestPose(rest)

	store, err := clip.NewStore()
	if err != nil {
		return nil, err
	}
	for i := range doc.Clips {
		c, err := buildClip(doc, &doc.Clips[i], skel, rest)
		if err != nil {
			return nil, fmt.Errorf("rig %q: %w", doc.Name, err)
		}
		if _, err := store.Add(c); err != nil {
			return nil, fmt.Errorf("rig %q: %w", doc.Name, err)
		}
	}

	r := &Rig{
		Name:     doc.Name,
		Skeleton: skel,
		Clips:    store,
		Layers:   make([]animation.LayerDef, 0, len(doc.Layers)),
		IK:       make(map[string]IKChain, len(doc.IK)),
	}
	for i := range doc.Layers {
		def, err := buildLayer(&doc.Layers[i], skel)
		if err != nil {
			return nil, fmt.Errorf("rig %q: %w", doc.Name, err)
		}
		// Resolve clip and state names now so a bad graph fails at load time.
		if _, err := animation.NewLayer(def, store); err != nil {
			return nil, fmt.Errorf("rig %q: %w", doc.Name, err)
		}
		r.Layers = append(r.Layers, def)
	}
	for i := range doc.IK {
		chain, err := buildIKChain(&doc.IK[i], skel)
		if err != nil {
			return nil, fmt.Errorf("rig %q: %w", doc.Name, err)
		}
		if _, dup := r.IK[chain.Name]; dup {
			return nil, fmt.Errorf("rig %q: %w", doc.Name, invalidf("duplicate ik chain %q", chain.Name))
		}
		r.IK[chain.Name] = chain
	}
	return r, nil
}

func buildSkeleton(doc *rigDocument) (*skeleton.Skeleton, error) {
	if len(doc.Bones) == 0 {
		return nil, invalidf("no bones")
	}

	// First pass: create bones and map names
	bones := make([]skeleton.Bone, len(doc.Bones))
	nameToIndex := make(map[string]int32, len(doc.Bones))
	for i := range doc.Bones {
		bd := &doc.Bones[i]
		name := bd.Name
		if name == "" {
			name = fmt.Sprintf("bone_%d", i)
		}
		if _, dup := nameToIndex[name]; dup {
			return nil, invalidf("duplicate bone %q", name)
		}
		nameToIndex[name] = int32(i)

		rest, err := bd.rest().resolve(skeleton.IdentityTransform())
		if err != nil {
			return nil, fmt.Errorf("bone %q: %w", name, err)
		}
		bones[i] = skeleton.Bone{Name: name, ParentIndex: -1, Rest: rest}
	}

	// Second pass: establish parent relationships
	for i := range doc.Bones {
		parent := doc.Bones[i].Parent
		if parent == "" {
			continue
		}
		p, ok := nameToIndex[parent]
		if !ok {
			return nil, invalidf("bone %q: unknown parent %q", bones[i].Name, parent)
		}
		bones[i].ParentIndex = p
	}

	sorted, _ := skeleton.TopologicalSort(bones)
	skel, err := skeleton.New(sorted)
	if err != nil {
		return nil, err
	}

	skeleton.DeriveBindOffsets(skel.Bones)
	for i := range doc.Bones {
		if off := doc.Bones[i].BindOffset; off != nil {
			skel.Bones[skel.BoneIndex(bones[i].Name)].BindOffset = mgl32.Mat4(*off)
		}
	}
	return skel, nil
}

func buildClip(doc *rigDocument, cd *clipDocument, skel *skeleton.Skeleton, rest []skeleton.Transform) (*clip.Clip, error) {
	tps := common.Coalesce(cd.TicksPerSecond, doc.TicksPerSecond)
	if len(cd.Samples) > 0 && len(cd.Channels) > 0 {
		return nil, invalidf("clip %q: samples and channels are exclusive", cd.Name)
	}
	if len(cd.Channels) > 0 {
		return buildChannelClip(cd, tps, skel, rest)
	}

	n := skel.BoneCount()
	c := &clip.Clip{
		Name:           cd.Name,
		DurationTicks:  cd.Duration,
		TicksPerSecond: tps,
		BoneCount:      n,
		SampleTimes:    make([]float32, 0, len(cd.Samples)),
		Keys:           make([]skeleton.Transform, 0, len(cd.Samples)*n),
	}
	for si := range cd.Samples {
		sd := &cd.Samples[si]
		for name := range sd.Bones {
			if skel.BoneIndex(name) < 0 {
				return nil, invalidf("clip %q sample %d: unknown bone %q", cd.Name, si, name)
			}
		}
		c.SampleTimes = append(c.SampleTimes, sd.Time)
		for b := 0; b < n; b++ {
			key := rest[b]
			if td, ok := sd.Bones[skel.Bones[b].Name]; ok {
				var err error
				if key, err = td.resolve(rest[b]); err != nil {
					return nil, fmt.Errorf("clip %q sample %d bone %q: %w", cd.Name, si, skel.Bones[b].Name, err)
				}
			}
			c.Keys = append(c.Keys, key)
		}
	}
	if c.DurationTicks == 0 && len(c.SampleTimes) > 0 {
		c.DurationTicks = c.SampleTimes[len(c.SampleTimes)-1]
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("clip %q: %w", cd.Name, err)
	}
	return c, nil
}

// buildChannelClip merges per-bone tracks into one time-ordered channel per bone, then
// resamples them.
func buildChannelClip(cd *clipDocument, tps float32, skel *skeleton.Skeleton, rest []skeleton.Transform) (*clip.Clip, error) {
	channelMap := make(map[int32]*clip.Channel)
	order := make([]int32, 0, len(cd.Channels))
	var maxTime float32

	for i := range cd.Channels {
		chd := &cd.Channels[i]
		bone := skel.BoneIndex(chd.Bone)
		if bone < 0 {
			return nil, invalidf("clip %q channel %d: unknown bone %q", cd.Name, i, chd.Bone)
		}
		ch, exists := channelMap[int32(bone)]
		if !exists {
			ch = &clip.Channel{BoneIndex: int32(bone)}
			channelMap[int32(bone)] = ch
			order = append(order, int32(bone))
		}

		for _, k := range chd.Position {
			ch.PositionKeys = append(ch.PositionKeys, clip.VectorKeyframe{Time: k.Time, Value: mgl32.Vec3(k.Value)})
			maxTime = max(maxTime, k.Time)
		}
		for _, k := range chd.Scale {
			ch.ScaleKeys = append(ch.ScaleKeys, clip.VectorKeyframe{Time: k.Time, Value: mgl32.Vec3(k.Value)})
			maxTime = max(maxTime, k.Time)
		}
		for j, k := range chd.Rotation {
			q, err := rotationOf(k.Value, k.AxisAngle)
			if err != nil {
				return nil, fmt.Errorf("clip %q channel %d rotation key %d: %w", cd.Name, i, j, err)
			}
			if q == nil {
				return nil, invalidf("clip %q channel %d rotation key %d: no value", cd.Name, i, j)
			}
			ch.RotationKeys = append(ch.RotationKeys, clip.QuaternionKeyframe{Time: k.Time, Value: *q})
			maxTime = max(maxTime, k.Time)
		}
	}

	// Keys may be authored in any order and split over several entries for one bone. Sorting
	// leaves duplicate times adjacent for FromChannels to reject.
	channels := make([]clip.Channel, 0, len(order))
	for _, b := range order {
		ch := channelMap[b]
		sort.SliceStable(ch.PositionKeys, func(i, j int) bool { return ch.PositionKeys[i].Time < ch.PositionKeys[j].Time })
		sort.SliceStable(ch.RotationKeys, func(i, j int) bool { return ch.RotationKeys[i].Time < ch.RotationKeys[j].Time })
		sort.SliceStable(ch.ScaleKeys, func(i, j int) bool { return ch.ScaleKeys[i].Time < ch.ScaleKeys[j].Time })
		channels = append(channels, *ch)
	}
	c, err := clip.FromChannels(cd.Name, common.Coalesce(cd.Duration, maxTime), tps, rest, channels)
	if err != nil {
		return nil, fmt.Errorf("clip %q: %w", cd.Name, err)
	}
	return c, nil
}

func buildLayer(ld *layerDocument, skel *skeleton.Skeleton) (animation.LayerDef, error) {
	def := animation.LayerDef{Name: ld.Name, States: make([]animation.StateDef, 0, len(ld.States))}
	for i := range ld.States {
		sd := &ld.States[i]
		behaviour, err := animation.ParseBehaviour(sd.Behaviour)
		if err != nil {
			return def, fmt.Errorf("layer %q state %q: %w", ld.Name, sd.Name, err)
		}
		mask, err := buildMask(sd, skel)
		if err != nil {
			return def, fmt.Errorf("layer %q state %q: %w", ld.Name, sd.Name, err)
		}

		state := animation.StateDef{
			Name:        sd.Name,
			Clip:        sd.Clip,
			Behaviour:   behaviour,
			Speed:       sd.Speed,
			Mask:        mask,
			Transitions: make([]animation.TransitionDef, 0, len(sd.Transitions)),
		}
		for j := range sd.Transitions {
			td, err := buildTransition(&sd.Transitions[j])
			if err != nil {
				return def, fmt.Errorf("layer %q state %q transition %d: %w", ld.Name, sd.Name, j, err)
			}
			state.Transitions = append(state.Transitions, td)
		}
		def.States = append(def.States, state)
	}
	return def, nil
}

// buildMask returns nil, selecting every bone, when the state names no bones.
func buildMask(sd *stateDocument, skel *skeleton.Skeleton) (*skeleton.BoneMask, error) {
	if len(sd.Mask) == 0 && len(sd.MaskSubtree) == 0 {
		return nil, nil
	}
	var m skeleton.BoneMask
	for _, name := range sd.Mask {
		i := skel.BoneIndex(name)
		if i < 0 {
			return nil, invalidf("mask: unknown bone %q", name)
		}
		m.Set(i)
	}
	for _, name := range sd.MaskSubtree {
		i := skel.BoneIndex(name)
		if i < 0 {
			return nil, invalidf("mask subtree: unknown bone %q", name)
		}
		m = m.Union(skel.Subtree(i))
	}
	return &m, nil
}

func buildTransition(td *transitionDocument) (animation.TransitionDef, error) {
	weight, err := animation.CurveByName(td.WeightCurve, animation.Linear)
	if err != nil {
		return animation.TransitionDef{}, err
	}
	timeScale, err := animation.CurveByName(td.TimeScaleCurve, animation.Constant(1))
	if err != nil {
		return animation.TransitionDef{}, err
	}

	def := animation.TransitionDef{
		To:             td.To,
		Duration:       td.Duration,
		WeightCurve:    weight,
		TimeScaleCurve: timeScale,
	}
	if len(td.When) > 0 {
		preds := make([]animation.ControllerPredicate, 0, len(td.When))
		for i := range td.When {
			p, err := buildCondition(&td.When[i])
			if err != nil {
				return animation.TransitionDef{}, err
			}
			preds = append(preds, p...)
		}
		def.When = animation.All(preds...)
	}
	if td.AfterNormalizedTime != nil {
		def.If = animation.AfterNormalizedTime(*td.AfterNormalizedTime)
	}
	return def, nil
}

func buildCondition(cd *conditionDocument) ([]animation.ControllerPredicate, error) {
	switch {
	case cd.Signal != "" && cd.Axis != "":
		return nil, invalidf("condition names both signal %q and axis %q", cd.Signal, cd.Axis)
	case cd.Signal != "":
		if cd.Negate {
			return []animation.ControllerPredicate{animation.Not(animation.QueryID(cd.Signal))}, nil
		}
		return []animation.ControllerPredicate{animation.Is(animation.QueryID(cd.Signal))}, nil
	case cd.Axis != "":
		var preds []animation.ControllerPredicate
		if cd.Above != nil {
			preds = append(preds, animation.AxisAbove(animation.QueryID(cd.Axis), *cd.Above))
		}
		if cd.Below != nil {
			preds = append(preds, animation.AxisBelow(animation.QueryID(cd.Axis), *cd.Below))
		}
		if len(preds) == 0 {
			return nil, invalidf("axis condition %q has no bound", cd.Axis)
		}
		return preds, nil
	default:
		return nil, invalidf("empty condition")
	}
}

func buildIKChain(id *ikDocument, skel *skeleton.Skeleton) (IKChain, error) {
	bone := skel.BoneIndex(id.Bone)
	if bone < 0 {
		return IKChain{}, invalidf("ik chain %q: unknown bone %q", id.Name, id.Bone)
	}
	solver := common.Coalesce(id.Solver, "fabrik")
	if solver != "fabrik" && solver != "ccd" {
		return IKChain{}, invalidf("ik chain %q: unknown solver %q", id.Name, id.Solver)
	}
	chain := IKChain{
		Name:   common.Coalesce(id.Name, id.Bone),
		Solver: solver,
		Effector: ik.Effector{
			ParentBone:  bone,
			ChainLength: common.Coalesce(id.Chain, 1),
			LocalOffset: mgl32.Vec3(id.Offset),
		},
	}
	for _, l := range id.Limits {
		chain.Effector.AngularLimits = append(chain.Effector.AngularLimits, ik.AngularLimit{
			Min: mgl32.Vec3(l.Min),
			Max: mgl32.Vec3(l.Max),
		})
	}
	return chain, nil
}

// resolve overlays the document's parts onto base.
func (td transformDocument) resolve(base skeleton.Transform) (skeleton.Transform, error) {
	t := base
	if td.Translation != nil {
		t.Translation = mgl32.Vec3(*td.Translation)
	}
	if td.Scale != nil {
		t.Scale = mgl32.Vec3(*td.Scale)
	}
	q, err := rotationOf(td.Rotation, td.AxisAngle)
	if err != nil {
		return t, err
	}
	if q != nil {
		t.Rotation = *q
	}
	return t, nil
}

// rotationOf decodes an x, y, z, w quaternion or an axis plus degrees. Both nil yields nil.
func rotationOf(xyzw, axisAngle *[4]float32) (*mgl32.Quat, error) {
	switch {
	case xyzw != nil && axisAngle != nil:
		return nil, invalidf("rotation and axis_angle are exclusive")
	case xyzw != nil:
		q := mgl32.Quat{W: xyzw[3], V: mgl32.Vec3{xyzw[0], xyzw[1], xyzw[2]}}
		if q.Len() < 1e-6 {
			return nil, invalidf("zero-length rotation")
		}
		q = q.Normalize()
		return &q, nil
	case axisAngle != nil:
		axis := mgl32.Vec3{axisAngle[0], axisAngle[1], axisAngle[2]}
		if axis.Len() < 1e-6 {
			return nil, invalidf("zero-length rotation axis")
		}
		q := mgl32.QuatRotate(mgl32.DegToRad(axisAngle[3]), axis.Normalize())
		return &q, nil
	}
	return nil, nil
}
