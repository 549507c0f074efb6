package svo

import (
	"github.com/o0olele/svonav/geometry"
	"github.com/o0olele/svonav/math32"
)

// Config holds the parameters that define an Octree's coordinate space.
type Config struct {
	Origin        math32.Vector3 `yaml:"origin" json:"origin"`
	VoxelSize     float32        `yaml:"voxel_size" json:"voxel_size"`
	TileLayer     int            `yaml:"tile_layer" json:"tile_layer"` // 1..5
	TileCapacity  int            `yaml:"tile_capacity" json:"tile_capacity"`
	FixedCapacity bool           `yaml:"fixed_capacity" json:"fixed_capacity"`
}

// LeafResolution is the world size of one leaf node (a 4x4x4 voxel block).
func (c Config) LeafResolution() float32 {
	return c.VoxelSize * 4
}

// LayerResolution is the world size of a node at layer l (0 = leaf).
func (c Config) LayerResolution(l int) float32 {
	res := c.LeafResolution()
	for i := 0; i < l; i++ {
		res *= 2
	}
	return res
}

// TileResolution is the world size of one tile.
func (c Config) TileResolution() float32 {
	return c.LayerResolution(c.TileLayer)
}

// Octree is the read-only query surface over a tile table. Tiles are only
// mutated through EditableOctree; once installed, queries never write.
type Octree struct {
	Config Config

	tiles map[uint32]*Tile
}

// NewOctree creates an empty octree with the given config.
func NewOctree(cfg Config) *Octree {
	return &Octree{Config: cfg, tiles: make(map[uint32]*Tile)}
}

// TileCoordAtLocation returns the tile-grid coordinate containing pos.
func (o *Octree) TileCoordAtLocation(pos math32.Vector3) math32.Vector3i {
	res := o.Config.TileResolution()
	rel := pos.Sub(o.Config.Origin)
	return math32.Vector3i{
		X: int32(math32.FloorToInt(rel.X / res)),
		Y: int32(math32.FloorToInt(rel.Y / res)),
		Z: int32(math32.FloorToInt(rel.Z / res)),
	}
}

// TileLinkAtCoord builds a tile-root link for coord without any lookup.
func (o *Octree) TileLinkAtCoord(coord math32.Vector3i) NodeLink {
	return MakeLink(TileHash(coord), uint8(o.Config.TileLayer), 0, NoVoxel, 0)
}

// TileLinkAtLocation builds a tile-root link for the tile containing pos.
func (o *Octree) TileLinkAtLocation(pos math32.Vector3) NodeLink {
	return o.TileLinkAtCoord(o.TileCoordAtLocation(pos))
}

// LinkForLocation descends from the tile containing pos, choosing at each
// layer the child whose bounds contain pos, until it reaches the
// highest-resolution open node or a leaf voxel. If the deepest node reached
// is blocked and allowBlocked is false, the result is InvalidLink.
func (o *Octree) LinkForLocation(pos math32.Vector3, allowBlocked bool) NodeLink {
	tile := o.GetTileAtCoord(o.TileCoordAtLocation(pos))
	if tile == nil {
		return InvalidLink
	}
	link := MakeLink(tile.ID, uint8(o.Config.TileLayer), 0, NoVoxel, 0)
	node := tile.GetNode(o.Config.TileLayer, 0, true)
	if node == nil {
		return InvalidLink
	}

	for node.HasChildren() {
		res := o.Config.LayerResolution(int(link.Layer()) - 1)
		bounds, _ := o.BoundsForLink(link)
		rel := pos.Sub(bounds.Min)
		cx := math32.Clamp(int(rel.X/res), 0, 1)
		cy := math32.Clamp(int(rel.Y/res), 0, 1)
		cz := math32.Clamp(int(rel.Z/res), 0, 1)
		child := cx | cy<<1 | cz<<2
		childLink := node.ChildLink(child)
		childNode := tile.GetNode(int(childLink.Layer()), childLink.NodeIdx(), true)
		if childNode == nil {
			// A subdivided node always has all 8 children allocated; a miss
			// here means the tile is corrupt. Stop descending rather than
			// dereference nothing.
			break
		}
		link, node = childLink, childNode
	}

	if !node.self.IsLeaf() {
		if node.State() == StateBlocked && !allowBlocked {
			return InvalidLink
		}
		return link
	}

	res := o.Config.VoxelSize
	bounds, _ := o.BoundsForLink(link)
	rel := pos.Sub(bounds.Min)
	vx := math32.Clamp(int(rel.X/res), 0, leafDim-1)
	vy := math32.Clamp(int(rel.Y/res), 0, leafDim-1)
	vz := math32.Clamp(int(rel.Z/res), 0, leafDim-1)
	voxel := voxelCoord(vx, vy, vz)
	if node.IsVoxelBlocked(voxel) && !allowBlocked {
		return InvalidLink
	}
	return link.WithVoxel(voxel)
}

// GetTile returns the tile with the given id, or nil.
func (o *Octree) GetTile(id uint32) *Tile {
	return o.tiles[id]
}

// GetTileAtCoord returns the tile at coord, or nil.
func (o *Octree) GetTileAtCoord(coord math32.Vector3i) *Tile {
	return o.tiles[TileHash(coord)]
}

// GetNodeFromLink returns the node link refers to (ignoring its voxel
// field), or nil if the tile, layer or node slot doesn't exist/isn't active.
func (o *Octree) GetNodeFromLink(link NodeLink) *Node {
	tile := o.GetTile(link.TileID())
	if tile == nil {
		return nil
	}
	n := tile.GetNode(int(link.Layer()), link.NodeIdx(), true)
	if n == nil || !n.self.Equal(link.WithVoxel(NoVoxel)) {
		return nil
	}
	return n
}

// BoundsForLink returns the world-space AABB of the node/voxel link refers
// to.
func (o *Octree) BoundsForLink(link NodeLink) (geometry.AABB, bool) {
	tile := o.GetTile(link.TileID())
	if tile == nil {
		return geometry.AABB{}, false
	}
	res := o.Config.LayerResolution(int(link.Layer()))
	origin := o.tileOrigin(tile.Coord)
	coord := nodeLocalCoord(link.NodeIdx(), o.Config.TileLayer-int(link.Layer()))
	min := origin.Add(math32.Vector3{X: float32(coord.X) * res, Y: float32(coord.Y) * res, Z: float32(coord.Z) * res})
	size := res
	if link.HasVoxel() {
		vres := o.Config.VoxelSize
		vc := voxelLocalCoord(link.VoxelIdx())
		min = min.Add(math32.Vector3{X: float32(vc.X) * vres, Y: float32(vc.Y) * vres, Z: float32(vc.Z) * vres})
		size = vres
	}
	return geometry.AABB{Min: min, Max: min.Add(math32.Vector3{X: size, Y: size, Z: size})}, true
}

// LocationForLink returns the world-space center of link's node/voxel.
func (o *Octree) LocationForLink(link NodeLink) (math32.Vector3, bool) {
	b, ok := o.BoundsForLink(link)
	if !ok {
		return math32.Vector3{}, false
	}
	return b.Min.Add(b.Max).Scale(0.5), true
}

func (o *Octree) tileOrigin(coord math32.Vector3i) math32.Vector3 {
	res := o.Config.TileResolution()
	return o.Config.Origin.Add(math32.Vector3{X: float32(coord.X) * res, Y: float32(coord.Y) * res, Z: float32(coord.Z) * res})
}

// nodeLocalCoord decodes a node's Morton NodeIdx at "depth" levels below the
// tile root into a coordinate in units of that layer's own resolution.
func nodeLocalCoord(nodeIdx uint32, depth int) math32.Vector3i {
	// Each layer step packs 3 more Morton bits (8-way split); decode the low
	// 3*depth bits of nodeIdx the same way EncodeMorton/DecodeMorton do.
	var x, y, z uint32
	for i := 0; i < depth; i++ {
		bit := (nodeIdx >> uint(3*i)) & 0x7
		x |= (bit & 1) << uint(i)
		y |= ((bit >> 1) & 1) << uint(i)
		z |= ((bit >> 2) & 1) << uint(i)
	}
	return math32.Vector3i{X: int32(x), Y: int32(y), Z: int32(z)}
}

func voxelLocalCoord(voxelIdx uint32) math32.Vector3i {
	return math32.Vector3i{
		X: int32(voxelIdx % leafDim),
		Y: int32((voxelIdx / leafDim) % leafDim),
		Z: int32(voxelIdx / (leafDim * leafDim)),
	}
}

// ForEachTile calls f for every installed tile in unspecified order,
// stopping early if f returns false.
func (o *Octree) ForEachTile(f func(*Tile) bool) {
	for _, t := range o.tiles {
		if !f(t) {
			return
		}
	}
}

// GetTilesInBounds calls f for every tile whose coord lies in box, stopping
// early if f returns false.
func (o *Octree) GetTilesInBounds(box geometry.AABB, f func(*Tile) bool) {
	res := o.Config.TileResolution()
	minC := o.TileCoordAtLocation(box.Min)
	maxC := o.TileCoordAtLocation(box.Max.Sub(math32.Vector3{X: res * 1e-4, Y: res * 1e-4, Z: res * 1e-4}))
	for x := minC.X; x <= maxC.X; x++ {
		for y := minC.Y; y <= maxC.Y; y++ {
			for z := minC.Z; z <= maxC.Z; z++ {
				t := o.GetTileAtCoord(math32.Vector3i{X: x, Y: y, Z: z})
				if t == nil {
					continue
				}
				if !f(t) {
					return
				}
			}
		}
	}
}
