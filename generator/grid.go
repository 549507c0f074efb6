// Package generator builds SVO tiles from triangle/blocker geometry:
// voxelize, pad by agent dimensions, build nodes bottom-up while collapsing
// uniform subtrees, and schedule that work across a bounded worker pool
// (spec.md §4.6–§4.7).
package generator

import (
	"github.com/o0olele/svonav/math32"
)

// Grid is a per-tile bit grid of voxel occupancy, built during generation and
// discarded once its tile's nodes are constructed. Dim is a power of two so
// padding math stays exact (spec.md §4.6 step 1).
type Grid struct {
	Dim       int
	Origin    math32.Vector3
	VoxelSize float32

	bits math32.Bitset
}

// NewGrid allocates an empty (all-open) grid of dim^3 voxels starting at
// origin in world space.
func NewGrid(dim int, origin math32.Vector3, voxelSize float32) *Grid {
	return &Grid{Dim: dim, Origin: origin, VoxelSize: voxelSize, bits: math32.NewBitset(dim * dim * dim)}
}

func (g *Grid) index(x, y, z int) uint32 {
	return uint32(x) + uint32(y)*uint32(g.Dim) + uint32(z)*uint32(g.Dim)*uint32(g.Dim)
}

// InBounds reports whether (x,y,z) is a valid voxel coordinate in the grid.
func (g *Grid) InBounds(x, y, z int) bool {
	return x >= 0 && x < g.Dim && y >= 0 && y < g.Dim && z >= 0 && z < g.Dim
}

// Set marks voxel (x,y,z) as blocked.
func (g *Grid) Set(x, y, z int) {
	if !g.InBounds(x, y, z) {
		return
	}
	g.bits.Set(g.index(x, y, z))
}

// Blocked reports whether voxel (x,y,z) is blocked.
func (g *Grid) Blocked(x, y, z int) bool {
	if !g.InBounds(x, y, z) {
		return false
	}
	return g.bits.Test(g.index(x, y, z))
}

// BlockedCount returns the number of blocked voxels, reported per tile by
// the generator's telemetry.
func (g *Grid) BlockedCount() int {
	return g.bits.Count()
}

// VoxelMin returns the world-space min corner of voxel (x,y,z).
func (g *Grid) VoxelMin(x, y, z int) math32.Vector3 {
	return math32.Vector3{
		X: g.Origin.X + float32(x)*g.VoxelSize,
		Y: g.Origin.Y + float32(y)*g.VoxelSize,
		Z: g.Origin.Z + float32(z)*g.VoxelSize,
	}
}

// VoxelCenter returns the world-space center of voxel (x,y,z).
func (g *Grid) VoxelCenter(x, y, z int) math32.Vector3 {
	half := g.VoxelSize * 0.5
	min := g.VoxelMin(x, y, z)
	return math32.Vector3{X: min.X + half, Y: min.Y + half, Z: min.Z + half}
}

// axisIndex returns the grid index along axis a (0=X,1=Y,2=Z) that contains
// world coordinate val.
func (g *Grid) axisIndex(a int, val float32) int {
	origin := g.Origin.Get(a)
	return math32.FloorToInt((val - origin) / g.VoxelSize)
}

// axisWorld returns the world coordinate of the min edge of grid index idx
// along axis a.
func (g *Grid) axisWorld(a int, idx int) float32 {
	return g.Origin.Get(a) + float32(idx)*g.VoxelSize
}

func (g *Grid) clampIdx(idx int) int {
	return math32.Clamp(idx, 0, g.Dim-1)
}
