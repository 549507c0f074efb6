package svo

import (
	"fmt"

	"github.com/o0olele/svonav/math32"
)

// layerInfo tracks one layer's slice of a tile's node pool.
type layerInfo struct {
	start     int
	numActive int
	maxSlots  int
}

// Tile owns the densely packed node pool for one tile-grid cell, laid out
// layer by layer from the tile root (TileLayer) down to leaves (layer 0).
type Tile struct {
	Coord     math32.Vector3i
	ID        uint32
	TileLayer int

	layers []layerInfo
	pool   []Node
}

// NewTile allocates a tile at coord with numLayers layers (TileLayer+1,
// counting layer 0), sized so layer L has 8^(TileLayer-L) slots.
func NewTile(coord math32.Vector3i, tileLayer int) *Tile {
	t := &Tile{Coord: coord, ID: TileHash(coord), TileLayer: tileLayer}
	t.allocate(tileLayer)
	return t
}

func (t *Tile) allocate(tileLayer int) {
	t.TileLayer = tileLayer
	numLayers := tileLayer + 1
	t.layers = make([]layerInfo, numLayers)
	total := 0
	for l := 0; l < numLayers; l++ {
		slots := 1
		for e := 0; e < tileLayer-l; e++ {
			slots *= 8
		}
		t.layers[l] = layerInfo{start: total, maxSlots: slots}
		total += slots
	}
	t.pool = make([]Node, total)
}

// Release frees the pool, leaving the tile in a zero-node state.
func (t *Tile) Release() {
	t.pool = nil
	t.layers = nil
}

// TrimExcess drops trailing inactive slots per layer and shrinks the pool,
// shifting subsequent layer starts down to match. Active nodes are addressed
// by Morton-ordered index, not packed from the start of the layer, so this
// only trims the range above the highest active index — it cannot compact
// interior gaps without rewriting every link that names an index (self,
// parent, child and neighbor links all encode NodeIdx directly).
func (t *Tile) TrimExcess() {
	newPool := make([]Node, 0, len(t.pool))
	for l := range t.layers {
		li := &t.layers[l]
		highest := -1
		for i := 0; i < li.maxSlots; i++ {
			if t.pool[li.start+i].active {
				highest = i
			}
		}
		used := highest + 1
		start := li.start
		newStart := len(newPool)
		newPool = append(newPool, t.pool[start:start+used]...)
		li.start = newStart
		li.maxSlots = used
	}
	t.pool = newPool
}

// CopyFrom deep-clones other's pool and layer layout into t.
func (t *Tile) CopyFrom(other *Tile) {
	t.Coord = other.Coord
	t.ID = other.ID
	t.TileLayer = other.TileLayer
	t.layers = append([]layerInfo(nil), other.layers...)
	t.pool = append([]Node(nil), other.pool...)
}

// AssumeFrom moves other's storage into t, leaving other empty.
func (t *Tile) AssumeFrom(other *Tile) {
	t.Coord = other.Coord
	t.ID = other.ID
	t.TileLayer = other.TileLayer
	t.layers = other.layers
	t.pool = other.pool
	other.layers = nil
	other.pool = nil
}

// EnsureNode returns the node at (layer, idx), allocating (activating) it
// if it wasn't already, and whether it was newly created. A newly created
// node starts with every neighbor link invalid.
func (t *Tile) EnsureNode(layer int, idx uint32) (*Node, bool) {
	li := &t.layers[layer]
	n := &t.pool[li.start+int(idx)]
	created := !n.active
	if created {
		n.active = true
		n.self = MakeLink(t.ID, uint8(layer), idx, NoVoxel, 0)
		for d := range n.neighbor {
			n.neighbor[d] = InvalidLink
		}
		li.numActive++
	}
	return n, created
}

// GetNode returns the node at (layer, idx). If activeOnly is set, inactive
// slots return nil.
func (t *Tile) GetNode(layer int, idx uint32, activeOnly bool) *Node {
	if layer < 0 || layer >= len(t.layers) {
		return nil
	}
	li := &t.layers[layer]
	if int(idx) >= li.maxSlots {
		return nil
	}
	n := &t.pool[li.start+int(idx)]
	if activeOnly && !n.active {
		return nil
	}
	return n
}

// ReleaseNode deactivates the node at (layer, idx), reclaiming it the way a
// tile generator collapse releases a uniform subtree's children (spec.md
// §4.6 step 4). It does not recurse — callers walking a subtree release each
// node individually, bottom level first is not required since a deactivated
// parent is simply never traversed into again.
func (t *Tile) ReleaseNode(layer int, idx uint32) {
	n := t.GetNode(layer, idx, true)
	if n == nil {
		return
	}
	li := &t.layers[layer]
	li.numActive--
	n.Reset()
}

// NodesForLayer calls f for every active node in layer, stopping early if f
// returns false.
func (t *Tile) NodesForLayer(layer int, f func(idx uint32, n *Node) bool) {
	li := &t.layers[layer]
	for i := 0; i < li.maxSlots; i++ {
		n := &t.pool[li.start+i]
		if !n.active {
			continue
		}
		if !f(uint32(i), n) {
			return
		}
	}
}

// LinkInternalNeighbors fills every same-tile neighbor link, walking layers
// top-down so a child can always consult its parent's already-set links.
// Faces that cross the tile border stay invalid here — they depend on which
// neighboring tiles exist, so EditableOctree.FinalizeNodes resolves them at
// install time. The tile generator calls this once per built tile.
func (t *Tile) LinkInternalNeighbors() {
	for layer := t.TileLayer - 1; layer >= 0; layer-- {
		t.NodesForLayer(layer, func(idx uint32, n *Node) bool {
			sibling := int(idx & 7)
			parent := t.GetNode(layer+1, idx>>3, true)
			if parent == nil {
				return true
			}
			for f := Direction(0); f < 6; f++ {
				childIdx, crosses := childNeighbor(sibling, f)
				if !crosses {
					n.SetNeighborLink(f, parent.ChildLink(childIdx))
					continue
				}
				pn := parent.NeighborLink(f)
				if !pn.IsValid() || pn.TileID() != t.ID {
					n.SetNeighborLink(f, InvalidLink)
					continue
				}
				pnNode := t.GetNode(int(pn.Layer()), pn.NodeIdx(), true)
				switch {
				case pnNode == nil:
					n.SetNeighborLink(f, InvalidLink)
				case pnNode.HasChildren():
					n.SetNeighborLink(f, pnNode.ChildLink(childIdx))
				default:
					n.SetNeighborLink(f, pnNode.self)
				}
			}
			return true
		})
	}
}

// RootNode returns the tile-layer root node (layer == TileLayer).
func (t *Tile) RootNode() *Node {
	return t.GetNode(t.TileLayer, 0, false)
}

// Verify runs debug-only consistency checks, returning the first violation
// found (nil if none). Intended for tests, not the hot path.
func (t *Tile) Verify() error {
	for l := range t.layers {
		li := &t.layers[l]
		active := 0
		for i := 0; i < li.maxSlots; i++ {
			n := &t.pool[li.start+i]
			if !n.active {
				continue
			}
			active++
			if !n.self.IsValid() {
				return fmt.Errorf("tile %v layer %d idx %d: invalid self link", t.Coord, l, i)
			}
			if l < t.TileLayer {
				parent := t.GetNode(l+1, n.self.NodeIdx()>>3, false)
				if parent == nil || !parent.active {
					return fmt.Errorf("tile %v layer %d idx %d: missing parent", t.Coord, l, i)
				}
			}
		}
		if active != li.numActive {
			return fmt.Errorf("tile %v layer %d: active count %d, counted %d", t.Coord, l, li.numActive, active)
		}
	}
	return nil
}
