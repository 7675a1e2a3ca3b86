package character

import (
	"github.com/Carmen-Shannon/oxy-anim/engine/animation"
	"github.com/google/uuid"
)

// CharacterBuilderOption is a functional option for configuring a Character during construction.
type CharacterBuilderOption func(*character)

// WithID is an option builder that sets the Character's identifier instead of a random one.
//
// Parameters:
//   - id: the identifier to use
//
// Returns:
//   - CharacterBuilderOption: a function that applies the ID option to a character
func WithID(id uuid.UUID) CharacterBuilderOption {
	return func(c *character) {
		c.id = id
	}
}

// WithName is an option builder that sets the Character's display name.
//
// Parameters:
//   - name: the display name
//
// Returns:
//   - CharacterBuilderOption: a function that applies the name option to a character
func WithName(name string) CharacterBuilderOption {
	return func(c *character) {
		c.name = name
	}
}

// WithLayers is an option builder that appends layer declarations, in blend order.
// Each declaration is built into a fresh Layer owned by this Character.
//
// Parameters:
//   - defs: the layer declarations
//
// Returns:
//   - CharacterBuilderOption: a function that applies the layers option to a character
func WithLayers(defs ...animation.LayerDef) CharacterBuilderOption {
	return func(c *character) {
		c.layerDefs = append(c.layerDefs, defs...)
	}
}

// WithController is an option builder that sets the initial controller.
//
// Parameters:
//   - ctrl: the controller transition predicates read
//
// Returns:
//   - CharacterBuilderOption: a function that applies the controller option to a character
func WithController(ctrl animation.Controller) CharacterBuilderOption {
	return func(c *character) {
		c.controller = ctrl
	}
}

// WithPersistentIK is an option builder that sets IK requests solved on every Tick.
//
// Parameters:
//   - reqs: the requests
//
// Returns:
//   - CharacterBuilderOption: a function that applies the IK option to a character
func WithPersistentIK(reqs ...IKRequest) CharacterBuilderOption {
	return func(c *character) {
		for _, r := range reqs {
			if r.Solver != nil {
				c.persistent = append(c.persistent, r)
			}
		}
	}
}
