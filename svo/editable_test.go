package svo

import (
	"testing"

	"github.com/o0olele/svonav/math32"
)

func testConfig() Config {
	return Config{VoxelSize: 0.5, TileLayer: 1, TileCapacity: 64}
}

func TestInstallLinksTileRoots(t *testing.T) {
	o := NewOctree(testConfig())
	e := NewEditableOctree(o)

	e.BeginBatch()
	e.AssumeTile(buildOpenTile(math32.Vector3i{}, 1), false)
	e.AssumeTile(buildOpenTile(math32.Vector3i{X: 1}, 1), false)
	e.EndBatch()

	a := o.GetTileAtCoord(math32.Vector3i{})
	b := o.GetTileAtCoord(math32.Vector3i{X: 1})
	if a == nil || b == nil {
		t.Fatal("both tiles must be installed")
	}
	if got := a.RootNode().NeighborLink(DirPosX); got.TileID() != b.ID {
		t.Errorf("a +X neighbor = %v, want tile %d", got, b.ID)
	}
	if got := b.RootNode().NeighborLink(DirNegX); got.TileID() != a.ID {
		t.Errorf("b -X neighbor = %v, want tile %d", got, a.ID)
	}
	for _, d := range []Direction{DirPosY, DirPosZ, DirNegY, DirNegZ} {
		if a.RootNode().NeighborLink(d).IsValid() {
			t.Errorf("a %v neighbor must be invalid with no tile there", d)
		}
	}
}

func TestRemoveTileRelinksNeighbors(t *testing.T) {
	o := NewOctree(testConfig())
	e := NewEditableOctree(o)

	e.BeginBatch()
	e.AssumeTile(buildOpenTile(math32.Vector3i{}, 1), false)
	e.AssumeTile(buildOpenTile(math32.Vector3i{X: 1}, 1), false)
	e.EndBatch()

	e.BeginBatch()
	e.RemoveTileAtCoord(math32.Vector3i{X: 1})
	e.EndBatch()

	if o.GetTileAtCoord(math32.Vector3i{X: 1}) != nil {
		t.Fatal("tile must be gone")
	}
	a := o.GetTileAtCoord(math32.Vector3i{})
	if a.RootNode().NeighborLink(DirPosX).IsValid() {
		t.Fatal("surviving tile must drop its link to the removed tile")
	}
}

func TestBatchRefCountDefersFinalize(t *testing.T) {
	o := NewOctree(testConfig())
	e := NewEditableOctree(o)

	e.BeginBatch()
	e.BeginBatch()
	e.AssumeTile(buildOpenTile(math32.Vector3i{}, 1), false)
	e.AssumeTile(buildOpenTile(math32.Vector3i{X: 1}, 1), false)
	e.EndBatch()

	a := o.GetTileAtCoord(math32.Vector3i{})
	if a.RootNode().NeighborLink(DirPosX).IsValid() {
		t.Fatal("inner EndBatch must not finalize while the outer batch is open")
	}
	e.EndBatch()
	if !a.RootNode().NeighborLink(DirPosX).IsValid() {
		t.Fatal("outer EndBatch must finalize")
	}
}

func TestSubdividedBorderLinking(t *testing.T) {
	o := NewOctree(testConfig())
	e := NewEditableOctree(o)

	e.BeginBatch()
	e.AssumeTile(buildPartialTile(math32.Vector3i{}), false)
	e.AssumeTile(buildOpenTile(math32.Vector3i{X: 1}, 1), false)
	e.EndBatch()

	a := o.GetTileAtCoord(math32.Vector3i{})
	b := o.GetTileAtCoord(math32.Vector3i{X: 1})

	// a's +X border leaves (octants with the x bit set) must point at b's
	// uniform root, since b has no children to match their resolution.
	for _, i := range []uint32{1, 3, 5, 7} {
		leaf := a.GetNode(0, i, true)
		got := leaf.NeighborLink(DirPosX)
		if got.TileID() != b.ID || got.Layer() != 1 {
			t.Errorf("leaf %d +X = %v, want b's root", i, got)
		}
	}
	// b's root points back at a's root (one link per face, not per leaf).
	if got := b.RootNode().NeighborLink(DirNegX); got.TileID() != a.ID || got.Layer() != 1 {
		t.Errorf("b -X = %v, want a's root", got)
	}
}

// TestNeighborReciprocity checks spec.md §8 property 4 over an installed
// pair of tiles: every valid neighbor link either points back, or names an
// entity reachable from the node by walking parent links.
func TestNeighborReciprocity(t *testing.T) {
	o := NewOctree(testConfig())
	e := NewEditableOctree(o)

	e.BeginBatch()
	e.AssumeTile(buildPartialTile(math32.Vector3i{}), false)
	e.AssumeTile(buildPartialTile(math32.Vector3i{X: 1}), false)
	e.AssumeTile(buildOpenTile(math32.Vector3i{Y: 1}, 1), false)
	e.EndBatch()

	for _, tile := range o.tiles {
		for layer := 0; layer <= tile.TileLayer; layer++ {
			tile.NodesForLayer(layer, func(idx uint32, n *Node) bool {
				for f := Direction(0); f < 6; f++ {
					l := n.NeighborLink(f)
					if !l.IsValid() {
						continue
					}
					m := o.GetNodeFromLink(l)
					if m == nil {
						t.Errorf("node %v face %v: dangling link %v", n.self, f, l)
						continue
					}
					back := m.NeighborLink(f.Opposite())
					if back.IsValid() && back.Equal(n.self) {
						continue
					}
					if !isAncestorLink(o, n.self, l) {
						t.Errorf("node %v face %v -> %v: no back link and not an ancestor (back=%v)", n.self, f, l, back)
					}
				}
				return true
			})
		}
	}
}

// isAncestorLink walks parent links (and the tile adjacency for cross-tile
// faces) from child upward and reports whether target covers an ancestor
// position: a coarser node standing in for the finer side of a resolution
// boundary.
func isAncestorLink(o *Octree, child, target NodeLink) bool {
	// Same-tile ancestry: climb NodeIdx>>3 per layer.
	if child.TileID() == target.TileID() {
		idx := child.NodeIdx()
		for layer := child.Layer() + 1; layer < MaxLayers; layer++ {
			idx >>= 3
			if layer == target.Layer() && idx == target.NodeIdx() {
				return true
			}
		}
		return false
	}
	// Cross-tile: the target is coarser than the child; reciprocity then
	// holds at the target's own resolution, pointing at one of the child's
	// ancestors in the child's tile.
	back := o.GetNodeFromLink(target)
	if back == nil {
		return false
	}
	for f := Direction(0); f < 6; f++ {
		l := back.NeighborLink(f)
		if !l.IsValid() || l.TileID() != child.TileID() {
			continue
		}
		if l.Equal(child) || isAncestorLink(o, child, l) {
			return true
		}
	}
	return false
}

func TestFixedCapacityWarnsOnce(t *testing.T) {
	cfg := testConfig()
	cfg.TileCapacity = 1
	cfg.FixedCapacity = true
	o := NewOctree(cfg)
	e := NewEditableOctree(o)
	var warnings []string
	e.OnWarning = func(msg string) { warnings = append(warnings, msg) }

	e.BeginBatch()
	e.AssumeTile(buildOpenTile(math32.Vector3i{}, 1), false)
	e.AssumeTile(buildOpenTile(math32.Vector3i{X: 1}, 1), false)
	e.AssumeTile(buildOpenTile(math32.Vector3i{X: 2}, 1), false)
	e.EndBatch()

	if len(o.tiles) != 1 {
		t.Fatalf("fixed capacity 1 must keep exactly one tile, got %d", len(o.tiles))
	}
	if len(warnings) != 1 {
		t.Fatalf("overflow must warn exactly once, got %d", len(warnings))
	}
}
