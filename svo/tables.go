package svo

// Octant child indices follow the standard bit encoding: bit0 = +X half,
// bit1 = +Y half, bit2 = +Z half, so child i occupies the corner at
// (i&1, (i>>1)&1, (i>>2)&1) of the parent cube.

// axisOf returns the coordinate axis (0=X,1=Y,2=Z) a face direction moves
// along, and signOf returns +1/-1 for the outward/inward half.
func axisOf(d Direction) int {
	switch d {
	case DirPosX, DirNegX:
		return 0
	case DirPosY, DirNegY:
		return 1
	case DirPosZ, DirNegZ:
		return 2
	}
	return -1
}

func signOf(d Direction) int {
	switch d {
	case DirPosX, DirPosY, DirPosZ:
		return 1
	case DirNegX, DirNegY, DirNegZ:
		return -1
	}
	return 0
}

// childNeighbor resolves, for octant childIdx (0..7) stepping toward face
// direction d, whether the neighbor is a sibling under the same parent
// (crossesParent == false, neighborChild is the sibling index) or lives
// under the parent's own neighbor in direction d (crossesParent == true,
// neighborChild is the child index within that neighboring parent) — the
// classic Samet octree neighbor-finding recursion, computed directly from
// the octant bit encoding rather than a hand-written 8x6 table.
func childNeighbor(childIdx int, d Direction) (neighborChild int, crossesParent bool) {
	axis := axisOf(d)
	bit := (childIdx >> uint(axis)) & 1
	if signOf(d) > 0 {
		if bit == 0 {
			return childIdx | (1 << uint(axis)), false
		}
		return childIdx &^ (1 << uint(axis)), true
	}
	if bit == 1 {
		return childIdx &^ (1 << uint(axis)), false
	}
	return childIdx | (1 << uint(axis)), true
}

// leafDim is the per-axis resolution of a leaf's voxel grid (4x4x4 = 64).
const leafDim = 4

// voxelCoord packs a 2-bit-per-axis (0..3) voxel coordinate into the 0..63 index
// used by Node's leaf mask.
func voxelCoord(x, y, z int) uint32 {
	return uint32(x) + uint32(y)*leafDim + uint32(z)*leafDim*leafDim
}

// LeafDim is the per-axis resolution of a leaf's voxel grid (4).
const LeafDim = leafDim

// VoxelCoord is the exported form of voxelCoord, used by the generator
// package to address leaf-mask bits while building a tile from a voxel grid.
func VoxelCoord(x, y, z int) uint32 {
	return voxelCoord(x, y, z)
}

// faceVoxels lists the 16 leaf-voxel indices lying on the face of a leaf's
// 4x4x4 grid that faces direction d, in no particular order — used when
// neighbor expansion fans a partially-blocked leaf out into the voxels on
// the face it shares with the node being expanded.
var faceVoxels [6][16]uint32

func init() {
	for d := Direction(0); d < 6; d++ {
		axis := axisOf(d)
		coord := 0
		if signOf(d) > 0 {
			coord = leafDim - 1
		}
		n := 0
		for u := 0; u < leafDim; u++ {
			for v := 0; v < leafDim; v++ {
				var x, y, z int
				switch axis {
				case 0:
					x, y, z = coord, u, v
				case 1:
					x, y, z = u, coord, v
				case 2:
					x, y, z = u, v, coord
				}
				faceVoxels[d][n] = voxelCoord(x, y, z)
				n++
			}
		}
	}
}

// FaceVoxels returns the 16 voxel indices on a leaf's face toward d.
func FaceVoxels(d Direction) [16]uint32 {
	return faceVoxels[d]
}

// childrenTouchingFace returns, for a neighbor lying in direction d, the 4 of
// its 8 child octants on the half facing back against d (the low half for a
// positive d, the high half for a negative d) — i.e. the children that
// border the shared face. Neighbor enumeration uses it when that neighbor is
// itself subdivided, to fan out into it rather than treat it as one node.
func childrenTouchingFace(d Direction) [4]int {
	axis := axisOf(d)
	near := 1
	if signOf(d) > 0 {
		near = 0
	}
	var out [4]int
	n := 0
	for i := 0; i < 8; i++ {
		if (i>>uint(axis))&1 == near {
			out[n] = i
			n++
		}
	}
	return out
}

// ChildrenTouchingFace is the exported form of childrenTouchingFace, used by
// the search package's neighbor enumeration (spec.md §4.9).
func ChildrenTouchingFace(d Direction) [4]int {
	return childrenTouchingFace(d)
}
