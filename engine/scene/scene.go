package scene

import (
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"

	"github.com/Carmen-Shannon/oxy-bake/common"
	"github.com/Carmen-Shannon/oxy-bake/engine/bakery"
	"github.com/Carmen-Shannon/oxy-bake/engine/playback"
	"github.com/Carmen-Shannon/oxy-bake/engine/renderer"
	"github.com/Carmen-Shannon/oxy-bake/engine/renderer/animator"
	"github.com/Carmen-Shannon/oxy-bake/engine/scheduler"
	"github.com/Carmen-Shannon/oxy-bake/engine/table"
	"github.com/google/uuid"
)

// DefaultGrain is the number of instances advanced per parallel task.
const DefaultGrain = 256

var (
	errNilSet       = errors.New("baked animation set is nil")
	errUnknownSet   = errors.New("unknown baked animation set")
	errNoInstances  = errors.New("instance count must be positive")
	errInvalidScale = errors.New("time scale must be finite")
)

// InstanceID is the stable handle of a spawned instance.
type InstanceID = table.RowID

// debugOverride pins an instance to a normalized time.
type debugOverride struct {
	Normalized float32
	Enabled    bool
}

// InstanceInfo is a read-only snapshot of one instance after the last Update.
type InstanceInfo struct {
	ID        InstanceID
	Set       uuid.UUID
	State     playback.State
	ClipName  string
	Frame     uint32
	Offset    uint32
	TimeScale float32
	Warnings  playback.Warning
}

// setEntry is a registered baked set and the animator holding its instances' offsets.
type setEntry struct {
	set      *bakery.BakedAnimationSet
	animator animator.Animator

	// slotRows maps an animator slot back to the instance occupying it.
	slotRows []InstanceID
}

// scene is the implementation of the Scene interface.
type scene struct {
	mu *sync.RWMutex

	name string

	rows       table.Table
	states     *table.Column[playback.State]
	setKeys    *table.Column[uuid.UUID]
	timeScales *table.Column[float32]
	debug      *table.Column[debugOverride]
	slots      *table.Column[uint32]
	frames     *table.Column[uint32]
	offsets    *table.Column[uint32]
	warnings   *table.Column[playback.Warning]

	sets     map[uuid.UUID]*setEntry
	setOrder []uuid.UUID

	r renderer.Renderer

	// sched runs the parallel advance and the per-set GPU sync jobs. Workers persist
	// across ticks, avoiding per-tick goroutine spawn/teardown overhead.
	sched          scheduler.Scheduler
	computeWorkers int
	grain          int

	timeScaleRange playback.TimeScaleRange
	seed           uint64
	globalScale    float32
	paused         bool
	verbose        bool

	ticks, advanced uint64
}

// Scene is the runtime world of baked-animation instances.
//
// Instances live in a structure-of-arrays table with their playback state, the id of the baked
// set they play, a time scale and an optional debug override. Update advances every instance in
// parallel, waits for all of them, then copies the resulting frame offsets into one Animator per
// baked set and, when a Renderer is attached, writes them to the GPU.
// Thread-safe for concurrent access; Update holds the scene exclusively.
type Scene interface {
	// Name returns the scene's identifier.
	Name() string

	// AddSet registers a baked set so instances can be spawned for it. Registering the same
	// set id twice is a no-op. With a Renderer attached the set's GPU buffers are created here.
	//
	// Parameters:
	//   - set: the baked set
	//
	// Returns:
	//   - error: error if set is nil or GPU initialization fails
	AddSet(set *bakery.BakedAnimationSet) error

	// Sets returns the registered set ids in registration order.
	Sets() []uuid.UUID

	// Set returns a registered set, or nil.
	//
	// Parameters:
	//   - id: the set id
	Set(id uuid.UUID) *bakery.BakedAnimationSet

	// Animator returns the animator of a registered set, or nil.
	//
	// Parameters:
	//   - id: the set id
	Animator(id uuid.UUID) animator.Animator

	// Spawn adds one instance playing clip of the set.
	//
	// Parameters:
	//   - set: the set id
	//   - clip: the directory index of the first clip
	//
	// Returns:
	//   - InstanceID: the new instance
	//   - error: error if the set is unknown or the animator is full
	Spawn(set uuid.UUID, clip uint32) (InstanceID, error)

	// SpawnMany adds n instances playing clip of the set. Time scales are drawn from the
	// configured range in ascending id order, so the same spawn sequence always gives the
	// same scales.
	//
	// Parameters:
	//   - set: the set id
	//   - clip: the directory index of the first clip
	//   - n: the number of instances
	//
	// Returns:
	//   - []InstanceID: the new instances
	//   - error: error if the set is unknown, n is not positive or the animator is full
	SpawnMany(set uuid.UUID, clip uint32, n int) ([]InstanceID, error)

	// Despawn removes an instance.
	//
	// Parameters:
	//   - id: the instance
	//
	// Returns:
	//   - bool: false if id is unknown
	Despawn(id InstanceID) bool

	// Play requests a clip switch for an instance, applied on the next Update.
	//
	// Parameters:
	//   - id: the instance
	//   - clip: the directory index of the clip
	//
	// Returns:
	//   - bool: false if id is unknown
	Play(id InstanceID, clip uint32) bool

	// PlayAll requests a clip switch for every instance.
	//
	// Parameters:
	//   - clip: the directory index of the clip
	PlayAll(clip uint32)

	// SetTimeScale sets the per-instance time scale.
	//
	// Parameters:
	//   - id: the instance
	//   - scale: the scale; negative plays backwards
	//
	// Returns:
	//   - error: error if id is unknown or scale is not finite
	SetTimeScale(id InstanceID, scale float32) error

	// SetDebugNormalizedTime pins an instance to normalized * duration, or releases the pin.
	//
	// Parameters:
	//   - id: the instance
	//   - normalized: the normalized time, clamped to [0, 1]
	//   - enabled: false releases the pin
	//
	// Returns:
	//   - bool: false if id is unknown
	SetDebugNormalizedTime(id InstanceID, normalized float32, enabled bool) bool

	// Instance returns a snapshot of one instance.
	//
	// Parameters:
	//   - id: the instance
	//
	// Returns:
	//   - InstanceInfo: the snapshot
	//   - bool: false if id is unknown
	Instance(id InstanceID) (InstanceInfo, bool)

	// Instances returns snapshots of up to limit instances in ascending id order.
	// A limit of 0 or less returns all of them.
	//
	// Parameters:
	//   - limit: the maximum number of snapshots
	Instances(limit int) []InstanceInfo

	// Len returns the number of live instances.
	Len() int

	// GlobalTimeScale returns the multiplier applied on top of every instance's time scale.
	GlobalTimeScale() float32

	// SetGlobalTimeScale sets the multiplier applied on top of every instance's time scale.
	//
	// Parameters:
	//   - scale: the multiplier
	SetGlobalTimeScale(scale float32)

	// Paused reports whether Update is advancing with a zero delta.
	Paused() bool

	// SetPaused pauses or resumes playback. Paused updates still resolve offsets.
	//
	// Parameters:
	//   - paused: true to pause
	SetPaused(paused bool)

	// Update advances every instance by dt, then copies their frame offsets into the animators
	// and syncs them to the GPU. Contract violations are corrected per instance and logged.
	//
	// Parameters:
	//   - dt: elapsed time since the last update in seconds
	//
	// Returns:
	//   - error: GPU sync errors, joined
	Update(dt float32) error

	// Stats returns the number of updates run and the total instances advanced.
	Stats() (ticks, advanced uint64)

	// Release frees all animators and their GPU resources. The scene is empty afterwards.
	Release()
}

// Ensure scene implements Scene interface.
var _ Scene = &scene{}

// NewScene creates an empty Scene.
//
// Parameters:
//   - name: the name of the scene
//   - options: functional options to further configure the scene
//
// Returns:
//   - Scene: the newly created scene
//   - error: error if the time scale range is invalid
func NewScene(name string, options ...SceneBuilderOption) (Scene, error) {
	s := &scene{
		mu:          &sync.RWMutex{},
		name:        name,
		rows:        table.NewTable(),
		sets:        make(map[uuid.UUID]*setEntry),
		grain:       DefaultGrain,
		seed:        playback.DefaultSeed,
		globalScale: 1,
	}

	for _, option := range options {
		option(s)
	}

	if err := s.timeScaleRange.Validate(); err != nil {
		return nil, fmt.Errorf("scene %s: %w", name, err)
	}

	// Initialize the scheduler after options so WithComputeWorkers can override the default.
	if s.sched == nil {
		var opts []scheduler.SchedulerBuilderOption
		if s.computeWorkers > 0 {
			opts = append(opts, scheduler.WithWorkers(s.computeWorkers))
		}
		s.sched = scheduler.NewScheduler(opts...)
	}

	s.states = mustColumn[playback.State](s.rows, "state")
	s.setKeys = mustColumn[uuid.UUID](s.rows, "set")
	s.timeScales = mustColumn[float32](s.rows, "time_scale")
	s.debug = mustColumn[debugOverride](s.rows, "debug")
	s.slots = mustColumn[uint32](s.rows, "slot")
	s.frames = mustColumn[uint32](s.rows, "frame")
	s.offsets = mustColumn[uint32](s.rows, "offset")
	s.warnings = mustColumn[playback.Warning](s.rows, "warnings")
	return s, nil
}

// mustColumn adds a column to a fresh table; names are fixed, so failure is a programming error.
func mustColumn[T any](t table.Table, name string) *table.Column[T] {
	c, err := table.AddColumn[T](t, name)
	if err != nil {
		panic(fmt.Sprintf("scene: %v", err))
	}
	return c
}

func (s *scene) Name() string {
	return s.name
}

func (s *scene) AddSet(set *bakery.BakedAnimationSet) error {
	if set == nil {
		return errNilSet
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sets[set.ID]; ok {
		return nil
	}

	anim, err := animator.NewAnimator(set)
	if err != nil {
		return err
	}
	if s.r != nil {
		if err := s.r.InitAnimator(anim); err != nil {
			anim.Release()
			return fmt.Errorf("init set %s: %w", set.ID, err)
		}
	}
	s.sets[set.ID] = &setEntry{set: set, animator: anim}
	s.setOrder = append(s.setOrder, set.ID)
	if s.verbose {
		log.Printf("[Scene] %s: registered set %s (%d clips, %d bones)", s.name, set.ID, len(set.Clips), set.BoneCount)
	}
	return nil
}

func (s *scene) Sets() []uuid.UUID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]uuid.UUID(nil), s.setOrder...)
}

func (s *scene) Set(id uuid.UUID) *bakery.BakedAnimationSet {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if e, ok := s.sets[id]; ok {
		return e.set
	}
	return nil
}

func (s *scene) Animator(id uuid.UUID) animator.Animator {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if e, ok := s.sets[id]; ok {
		return e.animator
	}
	return nil
}

func (s *scene) Spawn(set uuid.UUID, clip uint32) (InstanceID, error) {
	ids, err := s.SpawnMany(set, clip, 1)
	if err != nil {
		return 0, err
	}
	return ids[0], nil
}

func (s *scene) SpawnMany(set uuid.UUID, clip uint32, n int) ([]InstanceID, error) {
	if n <= 0 {
		return nil, errNoInstances
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.sets[set]
	if !ok {
		return nil, fmt.Errorf("spawn %s: %w", set, errUnknownSet)
	}

	ids := make([]InstanceID, 0, n)
	for range n {
		slot, err := e.animator.AddInstance()
		if err != nil {
			return ids, fmt.Errorf("spawn %s: %w", set, err)
		}
		id := s.rows.Insert()
		row, _ := s.rows.Row(id)
		s.states.Set(row, playback.NewState(clip))
		s.setKeys.Set(row, set)
		s.timeScales.Set(row, 1)
		s.slots.Set(row, slot)
		e.slotRows = append(e.slotRows, id)
		ids = append(ids, id)
	}

	if !s.timeScaleRange.IsZero() {
		if err := s.assignTimeScales(ids); err != nil {
			return ids, err
		}
	}
	return ids, nil
}

// assignTimeScales draws scales over every live id and stores those of the new ids.
// Ids grow monotonically, so earlier instances keep the draws they already received
// as long as none were despawned in between. Must be called with s.mu held.
func (s *scene) assignTimeScales(fresh []InstanceID) error {
	live := s.rows.IDs()
	ids := make([]uint64, len(live))
	for i, id := range live {
		ids[i] = uint64(id)
	}
	scales, err := playback.AssignTimeScales(ids, s.timeScaleRange, s.seed)
	if err != nil {
		return err
	}
	for _, id := range fresh {
		if row, ok := s.rows.Row(id); ok {
			s.timeScales.Set(row, scales[uint64(id)])
		}
	}
	return nil
}

func (s *scene) Despawn(id InstanceID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.rows.Row(id)
	if !ok {
		return false
	}
	e := s.sets[s.setKeys.Get(row)]
	slot := s.slots.Get(row)

	if last, swapped := e.animator.RemoveInstance(slot); swapped {
		moved := e.slotRows[last]
		e.slotRows[slot] = moved
		if movedRow, ok := s.rows.Row(moved); ok {
			s.slots.Set(movedRow, slot)
		}
		e.slotRows = e.slotRows[:last]
	} else if int(slot) < len(e.slotRows) {
		e.slotRows = e.slotRows[:slot]
	}

	s.rows.Remove(id)
	return true
}

func (s *scene) Play(id InstanceID, clip uint32) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows.Row(id)
	if !ok {
		return false
	}
	s.states.Slice()[row].Play(clip)
	return true
}

func (s *scene) PlayAll(clip uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	states := s.states.Slice()
	for i := range states {
		states[i].Play(clip)
	}
}

func (s *scene) SetTimeScale(id InstanceID, scale float32) error {
	if !common.IsFinite32(scale) {
		return errInvalidScale
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows.Row(id)
	if !ok {
		return fmt.Errorf("instance %d not found", id)
	}
	s.timeScales.Set(row, scale)
	return nil
}

func (s *scene) SetDebugNormalizedTime(id InstanceID, normalized float32, enabled bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows.Row(id)
	if !ok {
		return false
	}
	s.debug.Set(row, debugOverride{Normalized: normalized, Enabled: enabled})
	return true
}

// info builds the snapshot of a dense row. Must be called with s.mu held.
func (s *scene) info(row int) InstanceInfo {
	st := s.states.Get(row)
	set := s.setKeys.Get(row)
	var clipName string
	if e, ok := s.sets[set]; ok && int(st.CurrentClip) < len(e.set.Clips) {
		clipName = e.set.Clips[st.CurrentClip].Name
	}
	return InstanceInfo{
		ID:        s.rows.ID(row),
		Set:       set,
		State:     st,
		ClipName:  clipName,
		Frame:     s.frames.Get(row),
		Offset:    s.offsets.Get(row),
		TimeScale: s.timeScales.Get(row),
		Warnings:  s.warnings.Get(row),
	}
}

func (s *scene) Instance(id InstanceID) (InstanceInfo, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row, ok := s.rows.Row(id)
	if !ok {
		return InstanceInfo{}, false
	}
	return s.info(row), true
}

func (s *scene) Instances(limit int) []InstanceInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.rows.IDs()
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	out := make([]InstanceInfo, 0, len(ids))
	for _, id := range ids {
		row, _ := s.rows.Row(id)
		out = append(out, s.info(row))
	}
	return out
}

func (s *scene) Len() int {
	return s.rows.Len()
}

func (s *scene) GlobalTimeScale() float32 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.globalScale
}

func (s *scene) SetGlobalTimeScale(scale float32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.globalScale = scale
}

func (s *scene) Paused() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.paused
}

func (s *scene) SetPaused(paused bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paused = paused
}

// groupReport collects the corrections made inside one partition.
type groupReport struct {
	count int
	mask  playback.Warning
}

func (s *scene) Update(dt float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ticks++
	n := s.rows.Len()
	if n == 0 {
		return nil
	}
	if s.paused {
		dt = 0
	}

	states := s.states.Slice()
	setKeys := s.setKeys.Slice()
	scales := s.timeScales.Slice()
	debug := s.debug.Slice()
	frames := s.frames.Slice()
	offsets := s.offsets.Slice()
	warnings := s.warnings.Slice()
	global := s.globalScale

	// Phase 1: advance every instance. Each task writes only its own rows.
	s.sched.ParallelFor(n, s.grain, func(start, end int) {
		for i := start; i < end; i++ {
			e := s.sets[setKeys[i]]
			in := playback.Tick(dt).WithTimeScale(scales[i] * global)
			if d := debug[i]; d.Enabled {
				in = in.WithDebugNormalizedTime(d.Normalized)
			}
			res := playback.Advance(states[i], in, e.set.Clips, e.set.BoneCount)
			states[i] = res.State
			frames[i] = res.Frame
			offsets[i] = res.Offset
			warnings[i] = res.Warnings
		}
	})
	s.advanced += uint64(n)

	// Phase 2: after the barrier, copy offsets into each set's animator, one task per set.
	groups := table.Partition(s.setKeys)
	slots := s.slots.Slice()
	reports := make(map[uuid.UUID]groupReport, len(groups))
	var reportMu sync.Mutex
	copyErr := table.ForEachPartition(s.sched, groups, func(g table.Group[uuid.UUID]) error {
		e := s.sets[g.Key]
		idx := make([]uint32, len(g.Rows))
		offs := make([]uint32, len(g.Rows))
		var rep groupReport
		for i, row := range g.Rows {
			idx[i] = slots[row]
			offs[i] = offsets[row]
			if w := warnings[row]; w != 0 {
				rep.count++
				rep.mask |= w
			}
		}
		e.animator.SetFrameOffsets(idx, offs)
		if rep.count > 0 {
			reportMu.Lock()
			reports[g.Key] = rep
			reportMu.Unlock()
		}
		return nil
	})

	for _, g := range groups {
		if rep, ok := reports[g.Key]; ok {
			log.Printf("[Scene] %s: corrected %d instance(s) of set %s: %s", s.name, rep.count, g.Key, rep.mask)
		}
	}

	if s.r == nil {
		return copyErr
	}

	// Phase 3: sync each set's animator to the GPU. Sets are independent jobs.
	for _, g := range groups {
		a := s.sets[g.Key].animator
		key := g.Key.String()
		s.sched.Schedule(scheduler.Job{
			Name:   "sync " + key,
			Reads:  []string{"offsets/" + key},
			Writes: []string{"gpu/" + key},
			Run: func() error {
				_, err := s.r.SyncAnimator(a)
				return err
			},
		})
	}
	return errors.Join(copyErr, s.sched.Wait())
}

func (s *scene) Stats() (uint64, uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ticks, s.advanced
}

func (s *scene) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range s.setOrder {
		a := s.sets[id].animator
		if s.r != nil {
			s.r.ReleaseAnimator(a)
		} else {
			a.Release()
		}
	}
	for _, id := range s.rows.IDs() {
		s.rows.Remove(id)
	}
	s.sets = make(map[uuid.UUID]*setEntry)
	s.setOrder = nil
}
