package svo

import (
	"sort"

	"github.com/o0olele/svonav/math32"
)

// dirtyEntry names a tile/layer/node whose neighbor links on some faces
// need relinking once the current batch closes.
type dirtyEntry struct {
	tileID   uint32
	layer    uint8
	nodeID   uint32
	faces    uint8 // bitmask over Direction 0..5
	preserve bool  // only refresh invalid neighbor slots
}

// EditableOctree wraps an Octree with batch-edit discipline: edits made
// between BeginBatch/EndBatch accumulate a dirty-neighbor set that is
// resolved once, when the outermost batch closes, rather than after every
// single tile install.
type EditableOctree struct {
	*Octree

	batchDepth int
	dirty      map[uint64]*dirtyEntry

	// OnWarning, when set, receives the one-shot tile-pool-exhausted
	// warning (spec.md §7: OutOfMemory surfaces as a single warning and the
	// tile is skipped).
	OnWarning func(msg string)
	warned    bool
}

// NewEditableOctree wraps an octree for editing.
func NewEditableOctree(o *Octree) *EditableOctree {
	return &EditableOctree{Octree: o, dirty: make(map[uint64]*dirtyEntry)}
}

// BeginBatch increments the batch ref-count; edits made while depth > 0
// defer neighbor relinking until the matching EndBatch brings it to zero.
func (e *EditableOctree) BeginBatch() {
	e.batchDepth++
}

// EndBatch decrements the batch ref-count, running FinalizeNodes once it
// reaches zero.
func (e *EditableOctree) EndBatch() {
	e.batchDepth--
	if e.batchDepth <= 0 {
		e.batchDepth = 0
		e.FinalizeNodes()
	}
}

// CopyTile deep-clones src and installs it at src.Coord, marking all six
// face-neighbor tiles dirty. If preserveLinks is set, finalize will only
// fill in invalid neighbor slots rather than overwrite every one.
func (e *EditableOctree) CopyTile(src *Tile, preserveLinks bool) {
	t := &Tile{}
	t.CopyFrom(src)
	e.installTile(t, preserveLinks)
}

// AssumeTile moves src's storage into the octree at src.Coord (src is left
// empty), marking all six face-neighbor tiles dirty.
func (e *EditableOctree) AssumeTile(src *Tile, preserveLinks bool) {
	t := &Tile{}
	t.AssumeFrom(src)
	e.installTile(t, preserveLinks)
}

func (e *EditableOctree) installTile(t *Tile, preserveLinks bool) {
	if _, replacing := e.tiles[t.ID]; !replacing &&
		e.Config.FixedCapacity && e.Config.TileCapacity > 0 && len(e.tiles) >= e.Config.TileCapacity {
		if !e.warned {
			e.warned = true
			if e.OnWarning != nil {
				e.OnWarning("tile pool exhausted; dropping new tiles")
			}
		}
		return
	}
	e.tiles[t.ID] = t
	e.markTileDirty(t, preserveLinks)
}

// RemoveTileAtCoord removes the tile at coord, marking its neighbors dirty
// and discarding any pending dirty entry that named it.
func (e *EditableOctree) RemoveTileAtCoord(coord math32.Vector3i) {
	e.removeTileByID(TileHash(coord), coord)
}

// RemoveTileLink removes the tile named by link.
func (e *EditableOctree) RemoveTileLink(link NodeLink) {
	t := e.tiles[link.TileID()]
	if t == nil {
		return
	}
	e.removeTileByID(link.TileID(), t.Coord)
}

func (e *EditableOctree) removeTileByID(id uint32, coord math32.Vector3i) {
	t := e.tiles[id]
	if t == nil {
		return
	}
	delete(e.tiles, id)
	for d := Direction(0); d < 6; d++ {
		neighborCoord := coord.Add(d.Delta())
		if nt := e.GetTileAtCoord(neighborCoord); nt != nil {
			e.markDirty(nt.ID, uint8(e.Config.TileLayer), 0, 1<<uint(opposite[d]), false)
		}
	}
	delete(e.dirty, dirtyKey(id, uint8(e.Config.TileLayer), 0))
	t.Release()
}

func (e *EditableOctree) markTileDirty(t *Tile, preserveLinks bool) {
	for d := Direction(0); d < 6; d++ {
		delta := d.Delta()
		nc := t.Coord.Add(delta)
		if nt := e.GetTileAtCoord(nc); nt != nil {
			e.markDirty(nt.ID, uint8(e.Config.TileLayer), 0, 1<<uint(opposite[d]), false)
		}
	}
	e.markDirty(t.ID, uint8(e.Config.TileLayer), 0, 0x3F, preserveLinks)
}

func (e *EditableOctree) markDirty(tileID uint32, layer uint8, nodeID uint32, faceMask uint8, preserve bool) {
	key := dirtyKey(tileID, layer, nodeID)
	d := e.dirty[key]
	if d == nil {
		d = &dirtyEntry{tileID: tileID, layer: layer, nodeID: nodeID, preserve: preserve}
		e.dirty[key] = d
	}
	d.faces |= faceMask
	d.preserve = d.preserve && preserve
}

func dirtyKey(tileID uint32, layer uint8, nodeID uint32) uint64 {
	return uint64(tileID)<<32 | uint64(layer)<<24 | uint64(nodeID)
}

// FinalizeNodes resolves every pending dirty-neighbor entry, processing
// layers from high (tile root) to low (leaves) so a child's relinking can
// always consult an already-correct parent neighbor.
func (e *EditableOctree) FinalizeNodes() {
	if len(e.dirty) == 0 {
		return
	}
	entries := make([]*dirtyEntry, 0, len(e.dirty))
	for _, d := range e.dirty {
		entries = append(entries, d)
	}
	e.dirty = make(map[uint64]*dirtyEntry)

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].layer > entries[j].layer
	})

	for _, d := range entries {
		t := e.tiles[d.tileID]
		if t == nil {
			continue
		}
		node := t.GetNode(int(d.layer), d.nodeID, true)
		if node == nil {
			continue
		}
		for f := Direction(0); f < 6; f++ {
			if d.faces&(1<<uint(f)) == 0 {
				continue
			}
			e.relinkFace(t, node, f, d.preserve)
		}
	}
}

// relinkFace sets node's neighbor link toward face f, and recurses into
// every child of node that also touches f. With preserve set, only invalid
// slots are refreshed (spec.md §4.5's preserve_links install mode).
func (e *EditableOctree) relinkFace(t *Tile, node *Node, f Direction, preserve bool) {
	if preserve && node.NeighborLink(f).IsValid() {
		e.relinkChildren(t, node, f, preserve)
		return
	}
	link := node.self
	if link.Layer() == uint8(t.TileLayer) {
		nc := t.Coord.Add(f.Delta())
		nt := e.GetTileAtCoord(nc)
		if nt == nil {
			node.SetNeighborLink(f, InvalidLink)
		} else {
			node.SetNeighborLink(f, e.TileLinkAtCoord(nc))
		}
	} else {
		sibling := int(link.NodeIdx() & 0x7)
		parentIdx := link.NodeIdx() >> 3
		parent := t.GetNode(int(link.Layer())+1, parentIdx, true)
		if parent == nil {
			node.SetNeighborLink(f, InvalidLink)
		} else {
			childIdx, crossesParent := childNeighbor(sibling, f)
			if !crossesParent {
				node.SetNeighborLink(f, parent.ChildLink(childIdx))
			} else {
				pn := parent.NeighborLink(f)
				pnNode := e.GetNodeFromLink(pn)
				if pnNode == nil {
					node.SetNeighborLink(f, InvalidLink)
				} else if pnNode.HasChildren() {
					node.SetNeighborLink(f, pnNode.ChildLink(childIdx))
				} else {
					node.SetNeighborLink(f, pnNode.self)
				}
			}
		}
	}

	e.relinkChildren(t, node, f, preserve)
}

// relinkChildren recurses relinkFace into the children of node lying on its
// f side — the ones whose own f face is the tile-border (or coarser-node)
// face being refreshed.
func (e *EditableOctree) relinkChildren(t *Tile, node *Node, f Direction, preserve bool) {
	if !node.HasChildren() {
		return
	}
	axis := axisOf(f)
	near := 0
	if signOf(f) > 0 {
		near = 1
	}
	for i := 0; i < 8; i++ {
		if (i>>uint(axis))&1 != near {
			continue
		}
		childLink := node.ChildLink(i)
		child := t.GetNode(int(childLink.Layer()), childLink.NodeIdx(), true)
		if child == nil {
			continue
		}
		e.relinkFace(t, child, f, preserve)
	}
}
