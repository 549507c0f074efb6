package svo

import "github.com/o0olele/svonav/math32"

// NeighborEntry is one entity produced by neighbor enumeration: the face it
// was found on, its link (possibly voxel-level), and the node it belongs to.
type NeighborEntry struct {
	Face Direction
	Link NodeLink
	Node *Node
}

// NeighborIterator enumerates every entity adjacent to a node or voxel
// across all six faces, fanning out across resolution boundaries: a coarse
// neighbor that is itself subdivided toward us yields its (up to 4) children
// on that face rather than itself; a partially-blocked leaf neighbor yields
// the 16 voxels of its facing border rather than the leaf as a whole; and a
// voxel yields its in-leaf siblings plus, on leaf borders, the matching
// voxel (or coarser node) across the face. This is the cross-scale neighbor
// walk spec.md §4.1/§4.9 describe; the A* search core is its consumer.
// Editable relinking applies the childNeighbor octant rule directly, and
// raycast resolves nodes by position rather than through neighbor links.
type NeighborIterator struct {
	o    *Octree
	link NodeLink
	node *Node

	face    Direction
	pending []NeighborEntry
}

// NewNeighborIterator starts an iterator over the node or voxel named by
// link. The node must already exist in o.
func NewNeighborIterator(o *Octree, link NodeLink) *NeighborIterator {
	return &NeighborIterator{o: o, link: link, node: o.GetNodeFromLink(link)}
}

// Next returns the next adjacent entity, or ok=false once every face (and
// every fan-out it produced) has been consumed.
func (it *NeighborIterator) Next() (NeighborEntry, bool) {
	for {
		if len(it.pending) > 0 {
			e := it.pending[0]
			it.pending = it.pending[1:]
			return e, true
		}
		if it.face >= 6 || it.node == nil {
			return NeighborEntry{}, false
		}
		f := it.face
		it.face++

		if it.link.HasVoxel() {
			it.advanceVoxel(f)
			continue
		}
		it.advanceNode(f)
	}
}

// advanceNode queues the adjacent entities on face f of a node-level link.
func (it *NeighborIterator) advanceNode(f Direction) {
	base := it.node.NeighborLink(f)
	if !base.IsValid() {
		return
	}
	baseNode := it.o.GetNodeFromLink(base)
	if baseNode == nil {
		return
	}

	if baseNode.HasChildren() {
		// Fan out into the neighbor's children bordering the shared face —
		// they face back toward us, on the near side of the neighbor's cube.
		for _, c := range ChildrenTouchingFace(f) {
			cl := baseNode.ChildLink(c)
			cn := it.o.GetNodeFromLink(cl)
			if cn == nil {
				continue
			}
			it.emit(f, cl, cn)
		}
		return
	}
	it.emit(f, base, baseNode)
}

// emit queues one resolved neighbor, expanding a partially-blocked leaf into
// its 16 facing border voxels.
func (it *NeighborIterator) emit(f Direction, link NodeLink, node *Node) {
	if node.self.IsLeaf() && node.State() == StatePartiallyBlocked {
		for _, v := range FaceVoxels(f.Opposite()) {
			it.pending = append(it.pending, NeighborEntry{Face: f, Link: link.WithVoxel(v), Node: node})
		}
		return
	}
	it.pending = append(it.pending, NeighborEntry{Face: f, Link: link, Node: node})
}

// advanceVoxel queues the entity adjacent to a leaf voxel on face f: the
// sibling voxel inside the same leaf, or — when the step leaves the 4x4x4
// grid — the matching voxel of the bordering leaf (its coordinate wrapped to
// the entry face), or the bordering coarser node itself when the region
// there is uniform. A leaf's neighbor link never needs a downward fan-out:
// relinking always resolves it to either a same-layer leaf or a childless
// coarser node.
func (it *NeighborIterator) advanceVoxel(f Direction) {
	vc := voxelLocalCoord(it.link.VoxelIdx())
	nc := vc.Add(f.Delta())
	if nc.X >= 0 && nc.X < leafDim && nc.Y >= 0 && nc.Y < leafDim && nc.Z >= 0 && nc.Z < leafDim {
		v := voxelCoord(int(nc.X), int(nc.Y), int(nc.Z))
		it.pending = append(it.pending, NeighborEntry{Face: f, Link: it.link.WithVoxel(v), Node: it.node})
		return
	}

	base := it.node.NeighborLink(f)
	if !base.IsValid() {
		return
	}
	baseNode := it.o.GetNodeFromLink(base)
	if baseNode == nil {
		return
	}
	if !baseNode.self.IsLeaf() {
		it.pending = append(it.pending, NeighborEntry{Face: f, Link: base, Node: baseNode})
		return
	}

	wrapped := math32.Vector3i{
		X: wrapVoxelAxis(nc.X),
		Y: wrapVoxelAxis(nc.Y),
		Z: wrapVoxelAxis(nc.Z),
	}
	v := voxelCoord(int(wrapped.X), int(wrapped.Y), int(wrapped.Z))
	it.pending = append(it.pending, NeighborEntry{Face: f, Link: base.WithVoxel(v), Node: baseNode})
}

func wrapVoxelAxis(c int32) int32 {
	if c < 0 {
		return leafDim - 1
	}
	if c >= leafDim {
		return 0
	}
	return c
}

// Reset rewinds the iterator back to face 0 over the same node.
func (it *NeighborIterator) Reset() {
	it.face = 0
	it.pending = it.pending[:0]
}
