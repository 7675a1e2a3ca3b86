package scene

import (
	"log"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-anim/engine/character"
	"github.com/Carmen-Shannon/oxy-anim/engine/profiler"
	"github.com/google/uuid"
)

// Scene manages a registry of Characters keyed by ID and ticks them together.
// Update fans each character's Tick out to a reusable worker pool; a character is only ever
// ticked by one worker per frame, so characters need no synchronization of their own.
// Thread-safe for concurrent access.
type Scene interface {
	// Name returns the scene's identifier.
	Name() string

	// SetName sets the scene's identifier.
	SetName(name string)

	// Active returns whether Update ticks characters.
	Active() bool

	// SetActive sets whether Update ticks characters. Inactive scenes skip Update entirely.
	SetActive(active bool)

	// Count returns the number of registered characters.
	Count() int

	// Add registers a character under its ID, replacing any character with the same ID.
	//
	// Parameters:
	//   - c: the character to add
	//
	// Returns:
	//   - uuid.UUID: the character's ID
	Add(c character.Character) uuid.UUID

	// Get returns the character with the given ID, or nil.
	//
	// Parameters:
	//   - id: the character ID
	//
	// Returns:
	//   - character.Character: the character or nil
	Get(id uuid.UUID) character.Character

	// Remove unregisters the character with the given ID.
	//
	// Parameters:
	//   - id: the character ID
	//
	// Returns:
	//   - bool: true if a character was removed
	Remove(id uuid.UUID) bool

	// Characters returns a snapshot of the registered characters in no particular order.
	//
	// Returns:
	//   - []character.Character: the characters
	Characters() []character.Character

	// Clear unregisters every character.
	Clear()

	// Update ticks every registered character by deltaTime seconds in parallel and returns once
	// all ticks have finished.
	//
	// Parameters:
	//   - deltaTime: elapsed time since the last frame in seconds
	Update(deltaTime float32)

	// Frame returns the number of completed Updates.
	Frame() uint64
}

// scene is the implementation of the Scene interface.
type scene struct {
	mu       *sync.RWMutex
	name     string
	active   bool
	registry map[uuid.UUID]character.Character
	frame    atomic.Uint64

	// tickList is reused each frame to hold the characters being ticked.
	tickList []character.Character

	profiler *profiler.Profiler
	metrics  *Metrics
	logger   *log.Logger

	// computePool manages a bounded set of reusable goroutines for character ticks.
	// Workers persist across frames, avoiding per-frame goroutine spawn/teardown overhead.
	computePool    worker.DynamicWorkerPool
	computeWorkers int
	queueSize      int
	idleTimeout    time.Duration
}

// Ensure scene implements Scene interface.
var _ Scene = &scene{}

// NewScene creates a new active Scene. The worker pool is created after options are applied,
// so WithComputeWorkers, WithQueueSize and WithIdleTimeout take effect.
//
// Parameters:
//   - name: the name of the scene
//   - options: functional options to further configure the scene
//
// Returns:
//   - Scene: the newly created scene
func NewScene(name string, options ...SceneBuilderOption) Scene {
	s := &scene{
		mu:             &sync.RWMutex{},
		name:           name,
		active:         true,
		registry:       make(map[uuid.UUID]character.Character),
		logger:         log.Default(),
		computeWorkers: max(runtime.NumCPU()-1, 1),
		queueSize:      256,
		idleTimeout:    1 * time.Second,
	}

	for _, option := range options {
		option(s)
	}
	s.metrics.setCharacters(len(s.registry))

	s.computePool = worker.NewDynamicWorkerPool(s.computeWorkers, s.queueSize, s.idleTimeout)
	s.logger.Printf("[Scene] %s: %d compute workers, queue %d", s.name, s.computeWorkers, s.queueSize)
	return s
}

func (s *scene) Name() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.name
}

func (s *scene) SetName(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.name = name
}

func (s *scene) Active() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

func (s *scene) SetActive(active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = active
}

func (s *scene) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.registry)
}

func (s *scene) Add(c character.Character) uuid.UUID {
	if c == nil {
		panic("scene: Add requires a non-nil Character")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.registry[c.ID()]; exists {
		s.logger.Printf("[Scene] %s: replacing character %s", s.name, c.ID())
	}
	s.registry[c.ID()] = c
	s.metrics.setCharacters(len(s.registry))
	return c.ID()
}

func (s *scene) Get(id uuid.UUID) character.Character {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.registry[id]
}

func (s *scene) Remove(id uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.registry[id]; !exists {
		return false
	}
	delete(s.registry, id)
	s.metrics.setCharacters(len(s.registry))
	return true
}

func (s *scene) Characters() []character.Character {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]character.Character, 0, len(s.registry))
	for _, c := range s.registry {
		out = append(out, c)
	}
	return out
}

func (s *scene) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.registry = make(map[uuid.UUID]character.Character)
	s.metrics.setCharacters(0)
}

func (s *scene) Update(deltaTime float32) {
	// The write lock keeps tickList exclusive and stops registry changes mid-frame.
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active {
		return
	}

	start := time.Now()
	s.tickList = s.tickList[:0]
	for _, c := range s.registry {
		s.tickList = append(s.tickList, c)
	}

	// Characters are split into at most queueSize contiguous batches so one frame never
	// overfills the task queue.
	// A WaitGroup provides per-frame barrier sync since pool.Wait() blocks until
	// workers idle-exit which is unsuitable for frame-rate workloads.
	var wg sync.WaitGroup
	n := len(s.tickList)
	batch := max((n+s.queueSize-1)/s.queueSize, 1)
	taskID := 0
	for lo := 0; lo < n; lo += batch {
		wg.Add(1)
		chunk := s.tickList[lo:min(lo+batch, n)]
		s.computePool.SubmitTask(worker.Task{
			ID: taskID,
			Do: func() (any, error) {
				defer wg.Done()
				for _, c := range chunk {
					c.Tick(deltaTime)
				}
				return nil, nil
			},
		})
		taskID++
	}
	wg.Wait()

	elapsed := time.Since(start)
	s.frame.Add(1)
	s.metrics.observeTick(elapsed, len(s.tickList))
	if s.profiler != nil {
		s.profiler.Tick(elapsed, len(s.tickList))
	}
}

func (s *scene) Frame() uint64 {
	return s.frame.Load()
}
