package generator

import (
	"sort"
	"sync"
	"time"

	"github.com/o0olele/svonav/math32"
	"github.com/o0olele/svonav/svo"
)

// SchedulerConfig holds the scheduler's tunables, with the in-repo defaults
// spec.md §4.7 lists (source: NavSvoGeneratorConfig's tick fields, see
// SPEC_FULL.md §8).
type SchedulerConfig struct {
	MaxTasks           int           `yaml:"max_tasks"`
	MaxTasksBoosted    int           `yaml:"max_tasks_boosted"`
	MaxTrisPerTask     int           `yaml:"max_tris_per_task"`
	MaxTickTime        time.Duration `yaml:"max_tick_time"`
	MaxTickTimeBoosted time.Duration `yaml:"max_tick_time_boosted"`
	MaxPendingTicks    int           `yaml:"max_pending_ticks"`
}

// DefaultSchedulerConfig returns spec.md §4.7's defaults.
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		MaxTasks:           2,
		MaxTasksBoosted:    4,
		MaxTrisPerTask:     10000,
		MaxTickTime:        500 * time.Microsecond,
		MaxTickTimeBoosted: 5 * time.Millisecond,
		MaxPendingTicks:    5,
	}
}

// builder accumulates tile coords — and their gathered triangle counts —
// until a cap is hit, then runs as one launched unit of work (spec.md §4.7's
// "pending builder"/"running builder"). One builder may cover several tile
// coords, matching the Tile Generator's own "input: a list of tile coords"
// (spec.md §4.6).
type builder struct {
	tasks       []*Task
	triangles   int
	pendingTick int // ticks this builder has sat unlaunched

	done  chan struct{}
	tiles []*svo.Tile // filled by Run() once done closes
}

func (b *builder) coords() []math32.Vector3i {
	out := make([]math32.Vector3i, len(b.tasks))
	for i, t := range b.tasks {
		out[i] = t.Coord
	}
	return out
}

// run executes every task in the builder sequentially and signals done —
// called on a worker goroutine; it never touches the authoritative octree
// (spec.md §5: "workers own their own tile-generation scratch state").
func (b *builder) run() {
	b.tiles = make([]*svo.Tile, len(b.tasks))
	for i, t := range b.tasks {
		b.tiles[i] = t.Run()
	}
	close(b.done)
}

// Scheduler orchestrates tile generation over a bounded worker pool: it owns
// the pending coord set, the builder currently being filled, in-flight
// builders, and builders awaiting installation (spec.md §4.7, §5).
type Scheduler struct {
	cfg     SchedulerConfig
	octreeCfg svo.Config
	agent   AgentShape
	gatherer CollisionGatherer

	boost bool

	mu      sync.Mutex
	pending []math32.Vector3i // sorted far-to-near so pop-back is nearest
	seed    math32.Vector3

	pendingBuilder *builder
	running        []*builder
	completed      []*builder

	restrictToActive bool
	activeTiles      map[math32.Vector3i]bool

	// OnTileInstalled is called (if set) after each tile is installed into
	// the editable octree — internal/navlog wires this to log tile churn.
	OnTileInstalled func(coord math32.Vector3i)
	// OnWarning is not called by the scheduler itself; the one-shot
	// tile-pool-exhausted warning is raised through svo.EditableOctree's own
	// OnWarning hook during install.
	OnWarning func(msg string)
}

// NewScheduler creates a scheduler over octree config cfg, padding tiles for
// agent shape, using gatherer to fetch triangles/blockers per tile.
func NewScheduler(cfg svo.Config, agent AgentShape, gatherer CollisionGatherer, schedCfg SchedulerConfig) *Scheduler {
	return &Scheduler{
		cfg:         schedCfg,
		octreeCfg:   cfg,
		agent:       agent,
		gatherer:    gatherer,
		activeTiles: make(map[math32.Vector3i]bool),
	}
}

// SetBoost toggles boost mode (spec.md §4.7/§5: raised concurrency and
// per-tick time budget, used during loading screens).
func (s *Scheduler) SetBoost(boost bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.boost = boost
}

func (s *Scheduler) maxTasks() int {
	if s.boost {
		return s.cfg.MaxTasksBoosted
	}
	return s.cfg.MaxTasks
}

func (s *Scheduler) maxTickTime() time.Duration {
	if s.boost {
		return s.cfg.MaxTickTimeBoosted
	}
	return s.cfg.MaxTickTime
}

// RestrictToActiveTiles enables or disables the active-tile whitelist
// (spec.md §4.7): while enabled, AddDirtyTiles only accepts coords already
// present in the octree. Enabling captures the current tile coord set.
func (s *Scheduler) RestrictToActiveTiles(enabled bool, octree *svo.Octree) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.restrictToActive = enabled
	if !enabled {
		return
	}
	s.activeTiles = make(map[math32.Vector3i]bool)
	octree.ForEachTile(func(t *svo.Tile) bool {
		s.activeTiles[t.Coord] = true
		return true
	})
}

// AddDirtyTiles enqueues coords for (re)generation, skipping any already
// pending/running/completed and — if the whitelist is enabled — any coord
// not already present in the octree.
func (s *Scheduler) AddDirtyTiles(coords []math32.Vector3i, seed math32.Vector3) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seed = seed
	for _, c := range coords {
		if s.restrictToActive && !s.activeTiles[c] {
			continue
		}
		if s.coordGeneratingLocked(c) {
			continue
		}
		alreadyPending := false
		for _, p := range s.pending {
			if p.Equal(c) {
				alreadyPending = true
				break
			}
		}
		if alreadyPending {
			continue
		}
		s.pending = append(s.pending, c)
	}
	s.sortPendingLocked()
}

// CoordGenerating reports whether coord is already in the pending builder or
// any running/completed builder's task list (spec.md §4.7's "coord-generating
// predicate").
func (s *Scheduler) CoordGenerating(coord math32.Vector3i) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.coordGeneratingLocked(coord)
}

func (s *Scheduler) coordGeneratingLocked(coord math32.Vector3i) bool {
	if s.pendingBuilder != nil {
		for _, t := range s.pendingBuilder.tasks {
			if t.Coord.Equal(coord) {
				return true
			}
		}
	}
	for _, b := range append(append([]*builder{}, s.running...), s.completed...) {
		for _, t := range b.tasks {
			if t.Coord.Equal(coord) {
				return true
			}
		}
	}
	return false
}

// sortPendingLocked orders pending coords far-to-near from seed so the
// nearest-first consumer (Tick) can pop from the back cheaply.
func (s *Scheduler) sortPendingLocked() {
	sort.Slice(s.pending, func(i, j int) bool {
		di := s.coordCenter(s.pending[i]).DistanceSquared(s.seed)
		dj := s.coordCenter(s.pending[j]).DistanceSquared(s.seed)
		return di > dj
	})
}

func (s *Scheduler) coordCenter(coord math32.Vector3i) math32.Vector3 {
	res := s.octreeCfg.TileResolution()
	min := s.octreeCfg.Origin.Add(math32.Vector3{X: float32(coord.X) * res, Y: float32(coord.Y) * res, Z: float32(coord.Z) * res})
	return min.Add(math32.Vector3{X: res / 2, Y: res / 2, Z: res / 2})
}

// Tick runs one scheduler step (spec.md §4.7): reap finished builders,
// install completed tiles under octree's batch-edit discipline respecting
// the per-tick time budget, fill/launch the pending builder, and report
// whether all work is done.
func (s *Scheduler) Tick(editable *svo.EditableOctree) (generationComplete bool) {
	start := time.Now()
	budget := s.maxTickTime()

	s.reapRunning()
	s.installCompleted(editable, start, budget)
	launched := s.fillPending(start, budget)

	s.mu.Lock()
	allIdle := len(s.pending) == 0 && s.pendingBuilder == nil && len(s.running) == 0 && len(s.completed) == 0
	stuck := !launched && s.pendingBuilder != nil && len(s.pending) == 0
	s.mu.Unlock()

	if stuck {
		s.launchPendingBuilder()
	}

	return allIdle
}

// reapRunning moves any builder whose worker finished into completed.
func (s *Scheduler) reapRunning() {
	s.mu.Lock()
	defer s.mu.Unlock()
	remaining := s.running[:0]
	for _, b := range s.running {
		select {
		case <-b.done:
			s.completed = append(s.completed, b)
		default:
			remaining = append(remaining, b)
		}
	}
	s.running = remaining
}

// installCompleted installs tiles from completed builders into editable,
// inside one batch-edit transaction per builder, respecting the tick time
// budget — but always installing at least one tile from the first completed
// builder so the scheduler makes forward progress every tick (spec.md §4.7
// step 2).
func (s *Scheduler) installCompleted(editable *svo.EditableOctree, start time.Time, budget time.Duration) {
	s.mu.Lock()
	toInstall := s.completed
	s.completed = nil
	s.mu.Unlock()

	installedAny := false
	var remaining []*builder
	for _, b := range toInstall {
		editable.BeginBatch()
		for _, t := range b.tiles {
			if t == nil {
				continue
			}
			if installedAny && time.Since(start) > budget {
				// Budget exceeded after the mandatory first tile; defer the
				// rest of this builder (and any later ones) to next tick.
				remaining = append(remaining, &builder{tasks: nil, tiles: []*svo.Tile{t}})
				continue
			}
			editable.AssumeTile(t, false)
			if s.OnTileInstalled != nil {
				s.OnTileInstalled(t.Coord)
			}
			installedAny = true
		}
		editable.EndBatch()
	}
	if len(remaining) > 0 {
		s.mu.Lock()
		s.completed = append(remaining, s.completed...)
		s.mu.Unlock()
	}
}

// fillPending moves pending coords (nearest-first) into the pending builder,
// launching it when a cap trips, and reports whether a launch was attempted
// (launchPendingBuilderLocked keeps the builder pending while every task slot
// is busy, so an attempt does not always start a worker).
func (s *Scheduler) fillPending(start time.Time, budget time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	launched := false
	for len(s.pending) > 0 {
		if time.Since(start) > budget {
			break
		}
		next := s.pending[len(s.pending)-1]
		s.pending = s.pending[:len(s.pending)-1]

		if s.pendingBuilder == nil {
			s.pendingBuilder = &builder{done: make(chan struct{})}
		}
		task := NewTask(next, s.octreeCfg, s.agent, s.gatherer)
		s.pendingBuilder.tasks = append(s.pendingBuilder.tasks, task)
		s.pendingBuilder.triangles += estimateTriangleCount(task)

		if s.pendingBuilder.triangles >= s.cfg.MaxTrisPerTask || len(s.running) >= s.maxTasks() {
			s.launchPendingBuilderLocked()
			launched = true
			break
		}
	}

	if s.pendingBuilder != nil {
		s.pendingBuilder.pendingTick++
		if s.pendingBuilder.pendingTick >= s.cfg.MaxPendingTicks {
			s.launchPendingBuilderLocked()
			launched = true
		}
	}
	return launched
}

// estimateTriangleCount gathers the task's geometry eagerly so the soft cap
// can see its count before the (more expensive) voxelize/build runs.
func estimateTriangleCount(t *Task) int {
	tris, _ := t.Gatherer.Gather(t.gatherBounds())
	return len(tris)
}

func (s *Scheduler) launchPendingBuilder() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.launchPendingBuilderLocked()
}

func (s *Scheduler) launchPendingBuilderLocked() {
	if s.pendingBuilder == nil || len(s.pendingBuilder.tasks) == 0 {
		s.pendingBuilder = nil
		return
	}
	if len(s.running) >= s.maxTasks() {
		return // wait for a slot; stays the pending builder until next tick
	}
	b := s.pendingBuilder
	s.pendingBuilder = nil
	s.running = append(s.running, b)
	go b.run()
}

// CancelBuild clears pending coords, drops the pending builder, and blocks
// until every running worker finishes (no preemption), then discards their
// results (spec.md §5).
func (s *Scheduler) CancelBuild() {
	s.mu.Lock()
	s.pending = nil
	s.pendingBuilder = nil
	running := s.running
	s.running = nil
	s.completed = nil
	s.mu.Unlock()

	for _, b := range running {
		<-b.done
	}
}
