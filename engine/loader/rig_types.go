package loader

// rigDocument is the YAML form of a rig: a bone hierarchy, its clips, its layer graph and its
// named IK chains. Bones and clips refer to each other by name.
type rigDocument struct {
	Name           string          `yaml:"name"`
	TicksPerSecond float32         `yaml:"ticks_per_second"`
	Bones          []boneDocument  `yaml:"bones"`
	Clips          []clipDocument  `yaml:"clips"`
	Layers         []layerDocument `yaml:"layers"`
	IK             []ikDocument    `yaml:"ik"`
}

// transformDocument is a partial TRS transform. Missing parts fall back to a base transform.
// Rotation is a quaternion in x, y, z, w order; AxisAngle is axis x, y, z then degrees.
type transformDocument struct {
	Translation *[3]float32 `yaml:"translation"`
	Rotation    *[4]float32 `yaml:"rotation"`
	AxisAngle   *[4]float32 `yaml:"axis_angle"`
	Scale       *[3]float32 `yaml:"scale"`
}

type boneDocument struct {
	Name        string       `yaml:"name"`
	Parent      string       `yaml:"parent"`
	Translation *[3]float32  `yaml:"translation"`
	Rotation    *[4]float32  `yaml:"rotation"`
	AxisAngle   *[4]float32  `yaml:"axis_angle"`
	Scale       *[3]float32  `yaml:"scale"`
	BindOffset  *[16]float32 `yaml:"bind_offset"`
}

func (b boneDocument) rest() transformDocument {
	return transformDocument{Translation: b.Translation, Rotation: b.Rotation, AxisAngle: b.AxisAngle, Scale: b.Scale}
}

type clipDocument struct {
	Name           string            `yaml:"name"`
	Duration       float32           `yaml:"duration"`
	TicksPerSecond float32           `yaml:"ticks_per_second"`
	Samples        []sampleDocument  `yaml:"samples"`
	Channels       []channelDocument `yaml:"channels"`
}

// sampleDocument is one row of a clip's sample grid. Bones it omits hold their rest pose.
type sampleDocument struct {
	Time  float32                      `yaml:"time"`
	Bones map[string]transformDocument `yaml:"bones"`
}

type channelDocument struct {
	Bone     string           `yaml:"bone"`
	Position []vectorKeyDoc   `yaml:"position"`
	Rotation []rotationKeyDoc `yaml:"rotation"`
	Scale    []vectorKeyDoc   `yaml:"scale"`
}

type vectorKeyDoc struct {
	Time  float32    `yaml:"time"`
	Value [3]float32 `yaml:"value"`
}

type rotationKeyDoc struct {
	Time      float32     `yaml:"time"`
	Value     *[4]float32 `yaml:"value"`
	AxisAngle *[4]float32 `yaml:"axis_angle"`
}

type layerDocument struct {
	Name   string          `yaml:"name"`
	States []stateDocument `yaml:"states"`
}

type stateDocument struct {
	Name        string               `yaml:"name"`
	Clip        string               `yaml:"clip"`
	Behaviour   string               `yaml:"behaviour"`
	Speed       float32              `yaml:"speed"`
	Mask        []string             `yaml:"mask"`
	MaskSubtree []string             `yaml:"mask_subtree"`
	Transitions []transitionDocument `yaml:"transitions"`
}

type transitionDocument struct {
	To                  string              `yaml:"to"`
	Duration            float32             `yaml:"duration"`
	WeightCurve         string              `yaml:"weight_curve"`
	TimeScaleCurve      string              `yaml:"time_scale_curve"`
	When                []conditionDocument `yaml:"when"`
	AfterNormalizedTime *float32            `yaml:"after_normalized_time"`
}

// conditionDocument is one controller condition. Exactly one of Signal or Axis is set.
// A Signal condition holds when the signal is set, or unset with Negate. An Axis condition
// holds when the axis is above Above and below Below, whichever are given.
type conditionDocument struct {
	Signal string   `yaml:"signal"`
	Negate bool     `yaml:"negate"`
	Axis   string   `yaml:"axis"`
	Above  *float32 `yaml:"above"`
	Below  *float32 `yaml:"below"`
}

type ikDocument struct {
	Name   string     `yaml:"name"`
	Solver string     `yaml:"solver"`
	Bone   string     `yaml:"bone"`
	Chain  int        `yaml:"chain"`
	Offset [3]float32 `yaml:"offset"`
	Limits []struct {
		Min [3]float32 `yaml:"min"`
		Max [3]float32 `yaml:"max"`
	} `yaml:"limits"`
}
