package svo

// NodeLink is the 64-bit handle that names any addressable entity in the
// octree: a tile, a node within a tile at some layer, or a leaf voxel.
//
//	bits 63..32  TileID    (32)  hash of the tile coord; InvalidTileID = all ones
//	bits 31..29  LayerIdx  ( 3)  0 = leaf, up to MaxLayers-1 = tile
//	bits 28..11  NodeIdx   (18)  Morton-ordered index within the tile's layer
//	bits 10..4   VoxelIdx  ( 7)  0..63 inside a leaf, or NoVoxel
//	bits  3..0   UserData  ( 4)  reserved, masked out of identity comparison
type NodeLink uint64

const (
	tileIDBits   = 32
	layerBits    = 3
	nodeIdxBits  = 18
	voxelBits    = 7
	userDataBits = 4

	userDataShift = 0
	voxelShift    = userDataShift + userDataBits
	nodeIdxShift  = voxelShift + voxelBits
	layerShift    = nodeIdxShift + nodeIdxBits
	tileIDShift   = layerShift + layerBits

	userDataMask = (uint64(1) << userDataBits) - 1
	voxelMask    = (uint64(1) << voxelBits) - 1
	nodeIdxMask  = (uint64(1) << nodeIdxBits) - 1
	layerMask    = (uint64(1) << layerBits) - 1
	tileIDMask   = (uint64(1) << tileIDBits) - 1
)

// MaxLayers is the number of distinct LayerIdx values the 3-bit field can
// hold; the tile layer index must be strictly less than this.
const MaxLayers = 1 << layerBits

// NoVoxel marks a link that does not address a specific voxel inside a leaf.
const NoVoxel = uint32(voxelMask) // 127

// InvalidTileID marks a link with no tile (an unset/invalid link).
const InvalidTileID = uint32(tileIDMask) // ~0u

// InvalidLink is the zero-value-free sentinel for "no such node".
var InvalidLink = MakeLink(InvalidTileID, 0, 0, NoVoxel, 0)

// MakeLink packs the four addressing fields into a NodeLink. Fields are
// truncated to their bit width rather than validated — callers must
// pre-clamp, matching the teacher's debug-assert-only range checking.
func MakeLink(tileID uint32, layer uint8, nodeIdx uint32, voxelIdx uint32, userData uint8) NodeLink {
	return NodeLink(
		(uint64(tileID)&tileIDMask)<<tileIDShift |
			(uint64(layer)&layerMask)<<layerShift |
			(uint64(nodeIdx)&nodeIdxMask)<<nodeIdxShift |
			(uint64(voxelIdx)&voxelMask)<<voxelShift |
			(uint64(userData)&userDataMask)<<userDataShift,
	)
}

func (l NodeLink) TileID() uint32 {
	return uint32((uint64(l) >> tileIDShift) & tileIDMask)
}

func (l NodeLink) Layer() uint8 {
	return uint8((uint64(l) >> layerShift) & layerMask)
}

func (l NodeLink) NodeIdx() uint32 {
	return uint32((uint64(l) >> nodeIdxShift) & nodeIdxMask)
}

func (l NodeLink) VoxelIdx() uint32 {
	return uint32((uint64(l) >> voxelShift) & voxelMask)
}

func (l NodeLink) UserData() uint8 {
	return uint8((uint64(l) >> userDataShift) & userDataMask)
}

// WithUserData returns a copy of l with the UserData field replaced.
func (l NodeLink) WithUserData(userData uint8) NodeLink {
	cleared := uint64(l) &^ (userDataMask << userDataShift)
	return NodeLink(cleared | (uint64(userData)&userDataMask)<<userDataShift)
}

// WithVoxel returns a copy of l addressing a different voxel within the
// same leaf.
func (l NodeLink) WithVoxel(voxelIdx uint32) NodeLink {
	cleared := uint64(l) &^ (voxelMask << voxelShift)
	return NodeLink(cleared | (uint64(voxelIdx)&voxelMask)<<voxelShift)
}

// IsValid reports whether l addresses a real tile.
func (l NodeLink) IsValid() bool {
	return l.TileID() != InvalidTileID
}

// IsLeaf reports whether l addresses a layer-0 (leaf) node.
func (l NodeLink) IsLeaf() bool {
	return l.Layer() == 0
}

// HasVoxel reports whether l addresses a specific voxel inside a leaf.
func (l NodeLink) HasVoxel() bool {
	return l.VoxelIdx() != NoVoxel
}

// id returns the 64-bit identity value used for equality and hashing: the
// raw link with UserData forced to all ones, so two links compare equal iff
// their tile+layer+node+voxel match regardless of UserData.
func (l NodeLink) id() uint64 {
	return uint64(l) | userDataMask<<userDataShift
}

// Equal compares two links by identity (UserData ignored).
func (l NodeLink) Equal(other NodeLink) bool {
	return l.id() == other.id()
}

// Key returns a value suitable for use as a map key that respects link
// identity (UserData masked out), for hash tables keyed by link.
func (l NodeLink) Key() uint64 {
	return l.id()
}
