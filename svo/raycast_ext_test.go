package svo_test

import (
	"math/rand"
	"testing"

	"github.com/o0olele/svonav/generator"
	"github.com/o0olele/svonav/geometry"
	"github.com/o0olele/svonav/math32"
	"github.com/o0olele/svonav/svo"
)

func rayTestConfig() svo.Config {
	return svo.Config{VoxelSize: 0.5, TileLayer: 2, TileCapacity: 64}
}

func buildRayWorld(t *testing.T, blockers []geometry.ConvexBlocker, coords ...math32.Vector3i) *svo.Octree {
	t.Helper()
	cfg := rayTestConfig()
	o := svo.NewOctree(cfg)
	e := svo.NewEditableOctree(o)
	e.BeginBatch()
	for _, c := range coords {
		tile := generator.NewTask(c, cfg, generator.AgentShape{}, &generator.StaticGeometry{Blockers: blockers}).Run()
		e.AssumeTile(tile, false)
	}
	e.EndBatch()
	return o
}

func slabBlocker(zLo, zHi float32) []geometry.ConvexBlocker {
	return []geometry.ConvexBlocker{{Planes: []geometry.Plane{
		{Normal: math32.Vector3{X: 1}, Offset: 8},
		{Normal: math32.Vector3{X: -1}, Offset: 0},
		{Normal: math32.Vector3{Y: 1}, Offset: 8},
		{Normal: math32.Vector3{Y: -1}, Offset: 0},
		{Normal: math32.Vector3{Z: 1}, Offset: zHi},
		{Normal: math32.Vector3{Z: -1}, Offset: -zLo},
	}}}
}

func TestRaycastMissInOpenTile(t *testing.T) {
	o := buildRayWorld(t, nil, math32.Vector3i{})
	res := o.Raycast(math32.Vector3{X: 0.5, Y: 0.5, Z: 0.5}, math32.Vector3{X: 7.5, Y: 7.5, Z: 7.5})
	if res.Hit {
		t.Fatalf("open tile must not hit, got %+v", res)
	}
	if res.HitTime != 1 {
		t.Errorf("miss must report hit time 1, got %v", res.HitTime)
	}
}

func TestRaycastMissOutsideAllTiles(t *testing.T) {
	o := buildRayWorld(t, nil, math32.Vector3i{})
	res := o.Raycast(math32.Vector3{X: 20, Y: 20, Z: 20}, math32.Vector3{X: 30, Y: 20, Z: 20})
	if res.Hit {
		t.Fatal("ray entirely outside the octree must miss")
	}
}

func TestRaycastHitsSlab(t *testing.T) {
	o := buildRayWorld(t, slabBlocker(3.6, 4.4), math32.Vector3i{})
	start := math32.Vector3{X: 2, Y: 2, Z: 1}
	end := math32.Vector3{X: 2, Y: 2, Z: 7}
	res := o.Raycast(start, end)
	if !res.Hit {
		t.Fatal("slab must stop the ray")
	}
	// First blocked voxel layer starts at z=3.5 (the voxel whose center
	// 3.75 is inside the slab).
	if res.HitPoint.Z < 3.0 || res.HitPoint.Z > 4.0 {
		t.Errorf("hit point %v not at the slab's near surface", res.HitPoint)
	}
	if res.HitTime < 0.3 || res.HitTime > 0.55 {
		t.Errorf("hit time %v out of range", res.HitTime)
	}
}

func TestRaycastIdempotence(t *testing.T) {
	o := buildRayWorld(t, slabBlocker(3.6, 4.4), math32.Vector3i{})
	rng := rand.New(rand.NewSource(3))

	for i := 0; i < 200; i++ {
		a := math32.Vector3{X: rng.Float32() * 8, Y: rng.Float32() * 8, Z: rng.Float32() * 3}
		b := math32.Vector3{X: rng.Float32() * 8, Y: rng.Float32() * 8, Z: 5 + rng.Float32()*3}
		fwd := o.Raycast(a, b)
		rev := o.Raycast(b, a)
		if fwd.Hit != rev.Hit {
			t.Fatalf("raycast(%v,%v) hit=%v but reverse hit=%v", a, b, fwd.Hit, rev.Hit)
		}
		if fwd.Hit {
			// The two directions stop at opposite faces of the slab, so the
			// times sum to 1 minus the blocked span the ray crosses.
			sum := fwd.HitTime + rev.HitTime
			if sum > 1.01 || sum < 0.5 {
				t.Fatalf("hit times %v + %v implausible", fwd.HitTime, rev.HitTime)
			}
		}
	}
}

func TestRaycastCrossesTiles(t *testing.T) {
	o := buildRayWorld(t, nil, math32.Vector3i{}, math32.Vector3i{X: 1})
	res := o.Raycast(math32.Vector3{X: 1, Y: 4, Z: 4}, math32.Vector3{X: 15, Y: 4, Z: 4})
	if res.Hit {
		t.Fatalf("two open tiles must not hit, got %+v", res)
	}
}

func TestRaycastThinWallSumsToOne(t *testing.T) {
	// A one-voxel-thick wall: the forward and reverse hits bracket a 0.5
	// unit span on a 6 unit ray.
	o := buildRayWorld(t, slabBlocker(3.6, 3.9), math32.Vector3i{})
	a := math32.Vector3{X: 4, Y: 4, Z: 1}
	b := math32.Vector3{X: 4, Y: 4, Z: 7}
	fwd := o.Raycast(a, b)
	rev := o.Raycast(b, a)
	if !fwd.Hit || !rev.Hit {
		t.Fatal("thin wall must stop both directions")
	}
	sum := fwd.HitTime + rev.HitTime
	if math32.Abs(1-sum) > 0.5/6+0.05 {
		t.Fatalf("hit times %v + %v = %v, want ~1", fwd.HitTime, rev.HitTime, sum)
	}
}

func TestLinkLocationRoundTrip(t *testing.T) {
	o := buildRayWorld(t, slabBlocker(3.6, 4.4), math32.Vector3i{})
	rng := rand.New(rand.NewSource(11))
	for i := 0; i < 200; i++ {
		p := math32.Vector3{X: rng.Float32() * 8, Y: rng.Float32() * 8, Z: rng.Float32() * 8}
		link := o.LinkForLocation(p, true)
		if !link.IsValid() {
			t.Fatalf("in-tile point %v must resolve", p)
		}
		bounds, ok := o.BoundsForLink(link)
		if !ok {
			t.Fatalf("no bounds for %v", link)
		}
		if !bounds.Contains(p) {
			t.Fatalf("point %v outside resolved bounds %+v", p, bounds)
		}
		center, _ := o.LocationForLink(link)
		if o.LinkForLocation(center, true).Key() != link.Key() {
			t.Fatalf("center of %v resolves elsewhere", link)
		}
	}
}
