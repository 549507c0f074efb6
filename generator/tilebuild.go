package generator

import (
	"github.com/o0olele/svonav/math32"
	"github.com/o0olele/svonav/svo"
)

// BuildTile turns a padded, voxelized Grid into a tile of SVO nodes: leaves
// first (Morton order), then bottom-up through the non-leaf layers,
// collapsing any node whose 8 children share one uniform state (spec.md
// §4.6 steps 3-4). Every child of a node that ends up PartiallyBlocked is
// kept as its own Node, uniform leaves included; only the children of
// uniform parents are released. Neighbor links, search fan-out and raycast
// descent all rely on a subdivided node's children existing.
//
// padXY/padZ are the grid-leaf offsets of the tile's real content inside
// the (oversized, padding-expanded) grid — grid coordinate
// (padXY+lx, padXY+ly, padZ+lz) in leaf units is tile-local leaf (lx,ly,lz).
func BuildTile(coord math32.Vector3i, tileLayer int, grid *Grid, padXY, padZ int) *svo.Tile {
	t := svo.NewTile(coord, tileLayer)
	leavesPerAxis := 1 << uint(tileLayer)

	for lz := 0; lz < leavesPerAxis; lz++ {
		for ly := 0; ly < leavesPerAxis; ly++ {
			for lx := 0; lx < leavesPerAxis; lx++ {
				idx := uint32(svo.EncodeMorton(math32.Vector3i{X: int32(lx), Y: int32(ly), Z: int32(lz)}))
				n, _ := t.EnsureNode(0, idx)
				n.SetLeafMask(gatherLeafMask(grid, padXY+lx, padXY+ly, padZ+lz))
			}
		}
	}

	for layer := 1; layer <= tileLayer; layer++ {
		slotsPerAxis := 1 << uint(tileLayer-layer)
		total := slotsPerAxis * slotsPerAxis * slotsPerAxis
		for idx := uint32(0); idx < uint32(total); idx++ {
			buildNonLeafNode(t, layer, idx)
		}
	}

	t.LinkInternalNeighbors()
	t.TrimExcess()
	return t
}

// gatherLeafMask packs the 4x4x4 voxel block at leaf grid coordinate
// (lx,ly,lz) (in leaf units) into a 64-bit mask using the same voxel
// addressing Node.SetLeafMask expects.
func gatherLeafMask(grid *Grid, lx, ly, lz int) uint64 {
	var mask uint64
	for vz := 0; vz < svo.LeafDim; vz++ {
		for vy := 0; vy < svo.LeafDim; vy++ {
			for vx := 0; vx < svo.LeafDim; vx++ {
				if grid.Blocked(lx*svo.LeafDim+vx, ly*svo.LeafDim+vy, lz*svo.LeafDim+vz) {
					mask |= uint64(1) << svo.VoxelCoord(vx, vy, vz)
				}
			}
		}
	}
	return mask
}

// buildNonLeafNode allocates the node at (layer, idx) and folds its state
// from its 8 children, which are at layer-1 and already built (the caller
// walks layer 1 before layer 2, and so on). A uniform node releases its
// whole subtree; anything else keeps all 8 children.
func buildNonLeafNode(t *svo.Tile, layer int, idx uint32) {
	n, _ := t.EnsureNode(layer, idx)

	childLayer := layer - 1
	base := idx * 8

	var blockedCount, openCount int
	for k := uint32(0); k < 8; k++ {
		child := t.GetNode(childLayer, base+k, true)
		switch child.State() {
		case svo.StateBlocked:
			blockedCount++
		case svo.StateOpen:
			openCount++
		}
	}

	switch {
	case blockedCount == 8:
		n.SetState(svo.StateBlocked)
		releaseChildren(t, childLayer, base)
	case openCount == 8:
		n.SetState(svo.StateOpen)
		releaseChildren(t, childLayer, base)
	default:
		n.SetState(svo.StatePartiallyBlocked)
		n.SetChildBase(svo.MakeLink(n.Self().TileID(), uint8(childLayer), base, svo.NoVoxel, 0))
	}
}

// releaseChildren deactivates the 8 children at (layer, base..base+7),
// recursing into any that were themselves PartiallyBlocked — the memory
// reclaim half of spec.md §4.6 step 4's collapse.
func releaseChildren(t *svo.Tile, layer int, base uint32) {
	if layer < 0 {
		return
	}
	for k := uint32(0); k < 8; k++ {
		idx := base + k
		child := t.GetNode(layer, idx, true)
		if child == nil {
			continue
		}
		if child.HasChildren() {
			releaseChildren(t, layer-1, child.ChildLink(0).NodeIdx())
		}
		t.ReleaseNode(layer, idx)
	}
}
