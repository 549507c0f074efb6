package generator

import (
	"github.com/o0olele/svonav/geometry"
	"github.com/o0olele/svonav/math32"
	"github.com/o0olele/svonav/svo"
)

// AgentShape is the cylindrical padding envelope a tile is generated for:
// XY dilation uses Radius, Z dilation uses HalfHeight (spec.md §4.6 step 2;
// the source's swap of these two is a documented Open Question this repo
// does not replicate — see Grid.Dilate).
type AgentShape struct {
	Radius     float32 `yaml:"radius" json:"radius"`
	HalfHeight float32 `yaml:"half_height" json:"half_height"`
}

// CollisionGatherer is the host-provided geometry source a tile task reads
// from, restricted to a tile's expanded gather bounds (spec.md §4.6, §1's
// "host is responsible for feeding geometry in"). Tests provide an in-memory
// implementation; a physics-engine-backed one is out of scope (spec.md §1).
type CollisionGatherer interface {
	// Gather returns every triangle and convex blocker whose bounds
	// intersect bounds — bounds is already padded by the agent envelope, so
	// the gatherer need not expand it itself.
	Gather(bounds geometry.AABB) ([]geometry.Triangle, []geometry.ConvexBlocker)
}

// Task holds everything needed to voxelize and build one tile, independent
// of the scheduler that launched it — a worker never touches the
// authoritative octree, only its own Grid/Tile scratch state (spec.md §5).
type Task struct {
	Coord   math32.Vector3i
	Cfg     svo.Config
	Agent   AgentShape
	Gatherer CollisionGatherer

	TriangleCount int // filled in after Gather, used by the scheduler's soft cap
	BlockedVoxels int // filled in after Run; per-tile occupancy diagnostic
}

// NewTask builds a task for coord. It gathers no geometry itself: the
// scheduler's estimateTriangleCount gathers over the expanded bounds for its
// triangle-count soft cap, and Run gathers again (filling TriangleCount)
// before the voxelize/build steps.
func NewTask(coord math32.Vector3i, cfg svo.Config, agent AgentShape, gatherer CollisionGatherer) *Task {
	return &Task{Coord: coord, Cfg: cfg, Agent: agent, Gatherer: gatherer}
}

// tileBounds returns the world-space AABB of the tile at Coord.
func (task *Task) tileBounds() geometry.AABB {
	res := task.Cfg.TileResolution()
	origin := task.Cfg.Origin.Add(math32.Vector3{
		X: float32(task.Coord.X) * res,
		Y: float32(task.Coord.Y) * res,
		Z: float32(task.Coord.Z) * res,
	})
	return geometry.AABB{Min: origin, Max: origin.Add(math32.Vector3{X: res, Y: res, Z: res})}
}

// gatherBounds returns the tile bounds padded by max(radius, halfHeight) in
// every direction. Radius and HalfHeight are world units (padVoxels divides
// them by the voxel size), so the pad is applied without further scaling.
func (task *Task) gatherBounds() geometry.AABB {
	pad := math32.Max(task.Agent.Radius, task.Agent.HalfHeight)
	return task.tileBounds().Expand(pad)
}

// padVoxels returns the XY and Z dilation radii in voxel units, rounded up.
func (task *Task) padVoxels() (xy, z int) {
	vs := task.Cfg.VoxelSize
	return math32.CeilToInt(task.Agent.Radius / vs), math32.CeilToInt(task.Agent.HalfHeight / vs)
}

// Run executes the full per-tile pipeline — voxelize, pad, build, collapse
// (spec.md §4.6 steps 1-4) — and returns the finished tile. Safe to call
// from a worker goroutine: it only touches task-owned scratch state.
func (task *Task) Run() *svo.Tile {
	triangles, blockers := task.Gatherer.Gather(task.gatherBounds())
	task.TriangleCount = len(triangles)

	leavesPerAxis := 1 << uint(task.Cfg.TileLayer)
	padXYVoxels, padZVoxels := task.padVoxels()
	padXYLeaves := (padXYVoxels + svo.LeafDim - 1) / svo.LeafDim
	padZLeaves := (padZVoxels + svo.LeafDim - 1) / svo.LeafDim
	padLeaves := padXYLeaves
	if padZLeaves > padLeaves {
		padLeaves = padZLeaves
	}
	gridLeavesPerAxis := math32.NextPowerOf2(leavesPerAxis + 2*padLeaves)
	gridDim := gridLeavesPerAxis * svo.LeafDim

	tileBounds := task.tileBounds()
	gridOrigin := tileBounds.Min.Sub(math32.Vector3{
		X: float32(padLeaves*svo.LeafDim) * task.Cfg.VoxelSize,
		Y: float32(padLeaves*svo.LeafDim) * task.Cfg.VoxelSize,
		Z: float32(padLeaves*svo.LeafDim) * task.Cfg.VoxelSize,
	})

	grid := NewGrid(gridDim, gridOrigin, task.Cfg.VoxelSize)
	grid.VoxelizeTriangles(triangles)
	grid.VoxelizeBlockers(blockers)
	grid.Dilate(padXYVoxels, padZVoxels)
	task.BlockedVoxels = grid.BlockedCount()

	return BuildTile(task.Coord, task.Cfg.TileLayer, grid, padLeaves, padLeaves)
}
