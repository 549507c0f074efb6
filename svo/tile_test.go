package svo

import (
	"testing"

	"github.com/o0olele/svonav/math32"
)

// buildPartialTile hand-builds a tileLayer=1 tile whose root is
// PartiallyBlocked over 8 leaf children; leaf 0 has its first voxel blocked
// and the rest are fully open.
func buildPartialTile(coord math32.Vector3i) *Tile {
	t := NewTile(coord, 1)
	for i := uint32(0); i < 8; i++ {
		n, _ := t.EnsureNode(0, i)
		if i == 0 {
			n.SetLeafMask(1)
		}
	}
	root, _ := t.EnsureNode(1, 0)
	root.SetState(StatePartiallyBlocked)
	root.SetChildBase(MakeLink(t.ID, 0, 0, NoVoxel, 0))
	t.LinkInternalNeighbors()
	return t
}

// buildOpenTile hand-builds a tile whose root collapsed to uniform Open.
func buildOpenTile(coord math32.Vector3i, tileLayer int) *Tile {
	t := NewTile(coord, tileLayer)
	root, _ := t.EnsureNode(tileLayer, 0)
	root.SetState(StateOpen)
	return t
}

func TestTileLayerSizing(t *testing.T) {
	tile := NewTile(math32.Vector3i{}, 3)
	for l := 0; l <= 3; l++ {
		want := 1
		for e := 0; e < 3-l; e++ {
			want *= 8
		}
		li := tile.layers[l]
		if li.maxSlots != want {
			t.Errorf("layer %d maxSlots = %d, want %d", l, li.maxSlots, want)
		}
	}
}

func TestEnsureNodeAndCounts(t *testing.T) {
	tile := NewTile(math32.Vector3i{X: 1}, 2)
	n, created := tile.EnsureNode(0, 5)
	if !created || !n.IsActive() {
		t.Fatal("first EnsureNode must create an active node")
	}
	if n.Self().Layer() != 0 || n.Self().NodeIdx() != 5 || n.Self().TileID() != tile.ID {
		t.Fatalf("self link mismatch: %v", n.Self())
	}
	if _, created := tile.EnsureNode(0, 5); created {
		t.Fatal("second EnsureNode must not re-create")
	}
	if tile.layers[0].numActive != 1 {
		t.Fatalf("active count = %d, want 1", tile.layers[0].numActive)
	}
	if tile.GetNode(0, 6, true) != nil {
		t.Fatal("activeOnly lookup of inactive slot must be nil")
	}
	if tile.GetNode(0, 6, false) == nil {
		t.Fatal("non-activeOnly lookup of valid slot must not be nil")
	}
	if tile.GetNode(0, 99999, false) != nil {
		t.Fatal("out-of-range lookup must be nil")
	}

	tile.ReleaseNode(0, 5)
	if tile.layers[0].numActive != 0 || tile.GetNode(0, 5, true) != nil {
		t.Fatal("release must deactivate and decrement")
	}
}

func TestTrimExcess(t *testing.T) {
	tile := NewTile(math32.Vector3i{}, 2)
	tile.EnsureNode(2, 0)
	tile.EnsureNode(1, 3)
	tile.EnsureNode(0, 10)

	tile.TrimExcess()

	if got := tile.layers[0].maxSlots; got != 11 {
		t.Errorf("layer 0 trimmed to %d slots, want 11", got)
	}
	if got := tile.layers[1].maxSlots; got != 4 {
		t.Errorf("layer 1 trimmed to %d slots, want 4", got)
	}
	if tile.GetNode(0, 10, true) == nil || tile.GetNode(1, 3, true) == nil || tile.GetNode(2, 0, true) == nil {
		t.Fatal("active nodes must survive a trim at the same indices")
	}
	if len(tile.pool) != 11+4+1 {
		t.Fatalf("pool length %d after trim", len(tile.pool))
	}
}

func TestCopyAndAssume(t *testing.T) {
	src := buildPartialTile(math32.Vector3i{X: 2, Y: 1})

	var cp Tile
	cp.CopyFrom(src)
	if cp.ID != src.ID || !cp.Coord.Equal(src.Coord) {
		t.Fatal("copy must preserve identity")
	}
	cp.GetNode(0, 0, true).SetVoxelBlocked(1, true)
	if src.GetNode(0, 0, true).IsVoxelBlocked(1) {
		t.Fatal("copy must be deep — mutating the clone leaked into the source")
	}

	var mv Tile
	mv.AssumeFrom(src)
	if src.pool != nil || src.layers != nil {
		t.Fatal("assume must leave the source empty")
	}
	if mv.GetNode(1, 0, true) == nil {
		t.Fatal("assumed tile must own the nodes")
	}
}

func TestLeafStateDerivation(t *testing.T) {
	tile := NewTile(math32.Vector3i{}, 1)
	n, _ := tile.EnsureNode(0, 0)
	if n.State() != StateOpen {
		t.Fatal("empty mask must derive Open")
	}
	n.SetLeafMask(^uint64(0))
	if n.State() != StateBlocked {
		t.Fatal("full mask must derive Blocked")
	}
	n.SetLeafMask(2)
	if n.State() != StatePartiallyBlocked {
		t.Fatal("mixed mask must derive PartiallyBlocked")
	}
	if !n.IsVoxelBlocked(1) || n.IsVoxelBlocked(0) {
		t.Fatal("voxel bit accessors disagree with the mask")
	}
	n.SetVoxelBlocked(1, false)
	if n.State() != StateOpen {
		t.Fatal("clearing the only bit must derive Open again")
	}
}

func TestNonLeafChildren(t *testing.T) {
	tile := buildPartialTile(math32.Vector3i{})
	root := tile.RootNode()
	if root.State() != StatePartiallyBlocked || !root.HasChildren() {
		t.Fatal("root must be subdivided")
	}
	for i := 0; i < 8; i++ {
		cl := root.ChildLink(i)
		if cl.Layer() != 0 || cl.NodeIdx() != uint32(i) {
			t.Fatalf("child %d link = %v", i, cl)
		}
		if tile.GetNode(0, cl.NodeIdx(), true) == nil {
			t.Fatalf("child %d missing", i)
		}
	}
	root.SetState(StateOpen)
	if root.HasChildren() {
		t.Fatal("a uniform node must report no children")
	}
}

func TestInternalNeighborLinks(t *testing.T) {
	tile := buildPartialTile(math32.Vector3i{})
	// Leaf 0 sits at the tile's min corner: its +X neighbor is sibling 1,
	// its -X/-Y/-Z faces cross the tile border and must stay invalid.
	leaf := tile.GetNode(0, 0, true)
	if got := leaf.NeighborLink(DirPosX); got.NodeIdx() != 1 || got.Layer() != 0 {
		t.Errorf("+X neighbor = %v, want sibling 1", got)
	}
	if got := leaf.NeighborLink(DirPosY); got.NodeIdx() != 2 {
		t.Errorf("+Y neighbor = %v, want sibling 2", got)
	}
	if got := leaf.NeighborLink(DirPosZ); got.NodeIdx() != 4 {
		t.Errorf("+Z neighbor = %v, want sibling 4", got)
	}
	for _, d := range []Direction{DirNegX, DirNegY, DirNegZ} {
		if leaf.NeighborLink(d).IsValid() {
			t.Errorf("border face %v must stay invalid until install", d)
		}
	}
	// Sibling links must be reciprocal.
	one := tile.GetNode(0, 1, true)
	if got := one.NeighborLink(DirNegX); got.NodeIdx() != 0 {
		t.Errorf("sibling 1 -X neighbor = %v, want sibling 0", got)
	}
}

func TestTileVerify(t *testing.T) {
	tile := buildPartialTile(math32.Vector3i{X: 1, Y: 2, Z: 3})
	if err := tile.Verify(); err != nil {
		t.Fatalf("consistent tile failed verify: %v", err)
	}

	// Orphan a leaf: deactivate the root but keep the children.
	tile.RootNode().active = false
	if err := tile.Verify(); err == nil {
		t.Fatal("verify must flag children without a parent")
	}
}
