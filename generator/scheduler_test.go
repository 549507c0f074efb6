package generator

import (
	"testing"
	"time"

	"github.com/o0olele/svonav/geometry"
	"github.com/o0olele/svonav/math32"
	"github.com/o0olele/svonav/svo"
)

func schedulerTestConfig() svo.Config {
	return svo.Config{VoxelSize: 0.5, TileLayer: 2, TileCapacity: 64}
}

// runToCompletion ticks the scheduler until it reports done, with a guard
// against a stuck scheduler hanging the test suite.
func runToCompletion(t *testing.T, s *Scheduler, e *svo.EditableOctree) {
	t.Helper()
	deadline := time.Now().Add(30 * time.Second)
	for !s.Tick(e) {
		if time.Now().After(deadline) {
			t.Fatal("scheduler did not finish in time")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestSchedulerGeneratesTiles(t *testing.T) {
	cfg := schedulerTestConfig()
	geo := &StaticGeometry{}
	s := NewScheduler(cfg, AgentShape{}, geo, DefaultSchedulerConfig())
	o := svo.NewOctree(cfg)
	e := svo.NewEditableOctree(o)

	coords := []math32.Vector3i{{}, {X: 1}, {Y: 1}}
	s.AddDirtyTiles(coords, math32.Vector3{})
	runToCompletion(t, s, e)

	for _, c := range coords {
		tile := o.GetTileAtCoord(c)
		if tile == nil {
			t.Fatalf("tile %v not installed", c)
		}
		if tile.RootNode().State() != svo.StateOpen {
			t.Errorf("tile %v should be uniformly open", c)
		}
		if s.CoordGenerating(c) {
			t.Errorf("coord %v still reported generating after completion", c)
		}
	}

	// Adjacent tiles must have been linked during install.
	a := o.GetTileAtCoord(math32.Vector3i{})
	if got := a.RootNode().NeighborLink(svo.DirPosX); got.TileID() != svo.TileHash(math32.Vector3i{X: 1}) {
		t.Errorf("installed tiles not linked: +X = %v", got)
	}
}

func TestSchedulerSkipsDuplicateCoords(t *testing.T) {
	cfg := schedulerTestConfig()
	s := NewScheduler(cfg, AgentShape{}, &StaticGeometry{}, DefaultSchedulerConfig())
	o := svo.NewOctree(cfg)
	e := svo.NewEditableOctree(o)

	s.AddDirtyTiles([]math32.Vector3i{{}, {}}, math32.Vector3{})
	s.AddDirtyTiles([]math32.Vector3i{{}}, math32.Vector3{})
	runToCompletion(t, s, e)

	if o.GetTileAtCoord(math32.Vector3i{}) == nil {
		t.Fatal("tile missing")
	}
}

func TestSchedulerGeometryShowsUp(t *testing.T) {
	cfg := schedulerTestConfig()
	// A solid box filling the center of tile (0,0,0); tile spans [0,8).
	geo := &StaticGeometry{Blockers: []geometry.ConvexBlocker{
		boxBlocker(math32.Vector3{X: 3, Y: 3, Z: 3}, math32.Vector3{X: 5, Y: 5, Z: 5}),
	}}
	s := NewScheduler(cfg, AgentShape{}, geo, DefaultSchedulerConfig())
	o := svo.NewOctree(cfg)
	e := svo.NewEditableOctree(o)

	s.AddDirtyTiles([]math32.Vector3i{{}}, math32.Vector3{})
	runToCompletion(t, s, e)

	tile := o.GetTileAtCoord(math32.Vector3i{})
	if tile == nil {
		t.Fatal("tile missing")
	}
	if tile.RootNode().State() != svo.StatePartiallyBlocked {
		t.Fatalf("blocker must leave the tile partially blocked, got %v", tile.RootNode().State())
	}
	if o.LinkForLocation(math32.Vector3{X: 4, Y: 4, Z: 4}, false).IsValid() {
		t.Error("center of the blocker must not resolve to an open link")
	}
	if !o.LinkForLocation(math32.Vector3{X: 0.5, Y: 0.5, Z: 0.5}, false).IsValid() {
		t.Error("corner outside the blocker must resolve")
	}
}

func TestSchedulerBoostRaisesLimits(t *testing.T) {
	s := NewScheduler(schedulerTestConfig(), AgentShape{}, &StaticGeometry{}, DefaultSchedulerConfig())
	if s.maxTasks() != 2 || s.maxTickTime() != 500*time.Microsecond {
		t.Fatalf("defaults off: %d %v", s.maxTasks(), s.maxTickTime())
	}
	s.SetBoost(true)
	if s.maxTasks() != 4 || s.maxTickTime() != 5*time.Millisecond {
		t.Fatalf("boosted values off: %d %v", s.maxTasks(), s.maxTickTime())
	}
}

func TestCancelBuild(t *testing.T) {
	cfg := schedulerTestConfig()
	s := NewScheduler(cfg, AgentShape{}, &StaticGeometry{}, DefaultSchedulerConfig())
	o := svo.NewOctree(cfg)
	e := svo.NewEditableOctree(o)

	var coords []math32.Vector3i
	for x := int32(0); x < 8; x++ {
		coords = append(coords, math32.Vector3i{X: x})
	}
	s.AddDirtyTiles(coords, math32.Vector3{})
	s.Tick(e)
	s.CancelBuild()

	if !s.Tick(e) {
		t.Fatal("scheduler must be idle after cancel")
	}
}

func TestRestrictToActiveTiles(t *testing.T) {
	cfg := schedulerTestConfig()
	s := NewScheduler(cfg, AgentShape{}, &StaticGeometry{}, DefaultSchedulerConfig())
	o := svo.NewOctree(cfg)
	e := svo.NewEditableOctree(o)

	// Seed one tile, then whitelist the current set.
	s.AddDirtyTiles([]math32.Vector3i{{}}, math32.Vector3{})
	runToCompletion(t, s, e)
	s.RestrictToActiveTiles(true, o)

	s.AddDirtyTiles([]math32.Vector3i{{}, {X: 5}}, math32.Vector3{})
	runToCompletion(t, s, e)

	if o.GetTileAtCoord(math32.Vector3i{X: 5}) != nil {
		t.Fatal("whitelist must reject coords not already present")
	}
	if o.GetTileAtCoord(math32.Vector3i{}) == nil {
		t.Fatal("whitelisted coord must regenerate")
	}
}
