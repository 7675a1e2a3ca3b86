package clip

import (
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-anim/engine/skeleton"
)

// Store is the shared, read-only clip library characters sample from. Clips are added while
// a rig is being assembled; afterwards any number of characters may read concurrently.
type Store struct {
	mu     sync.RWMutex
	clips  []*Clip
	byName map[string]int
}

// NewStore creates a Store pre-populated with clips.
//
// Parameters:
//   - clips: the clips to add, in id order
//
// Returns:
//   - *Store: the store
//   - error: the first validation error, if any
func NewStore(clips ...*Clip) (*Store, error) {
	s := &Store{byName: make(map[string]int)}
	for _, c := range clips {
		if _, err := s.Add(c); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Add validates c and appends it to the store.
//
// Parameters:
//   - c: the clip to add
//
// Returns:
//   - int: the id of the added clip
//   - error: ErrInvalidData if the clip is malformed or its name is already taken
func (s *Store) Add(c *Clip) (int, error) {
	if c == nil {
		return -1, fmt.Errorf("nil clip: %w", skeleton.ErrInvalidData)
	}
	if err := c.Validate(); err != nil {
		return -1, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if c.Name != "" {
		if _, ok := s.byName[c.Name]; ok {
			return -1, fmt.Errorf("clip %q: duplicate name: %w", c.Name, skeleton.ErrInvalidData)
		}
		s.byName[c.Name] = len(s.clips)
	}
	s.clips = append(s.clips, c)
	return len(s.clips) - 1, nil
}

// Clip returns the clip with the given id, or nil if out of range.
func (s *Store) Clip(id int) *Clip {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if id < 0 || id >= len(s.clips) {
		return nil
	}
	return s.clips[id]
}

// Index returns the id of the named clip.
func (s *Store) Index(name string) (int, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byName[name]
	return id, ok
}

// Len returns the number of clips in the store.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clips)
}

// Names returns every clip name in id order.
func (s *Store) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, len(s.clips))
	for i, c := range s.clips {
		names[i] = c.Name
	}
	return names
}

// Bind checks that every clip in the store matches the skeleton's bone count.
//
// Parameters:
//   - skel: the skeleton the clips will drive
//
// Returns:
//   - error: ErrInvalidData naming the first mismatching clip, or nil
func (s *Store) Bind(skel *skeleton.Skeleton) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for id, c := range s.clips {
		if c.BoneCount != skel.BoneCount() {
			return fmt.Errorf("clip %d (%s): %d bones, skeleton has %d: %w", id, c.Name, c.BoneCount, skel.BoneCount(), skeleton.ErrInvalidData)
		}
	}
	return nil
}
