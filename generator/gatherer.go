package generator

import "github.com/o0olele/svonav/geometry"

// StaticGeometry is an in-memory CollisionGatherer over fixed triangle and
// blocker lists — the gatherer used by the build command and tests. A live
// game host would implement CollisionGatherer against its physics scene
// instead (spec.md §1: geometry gathering is the host's side of the fence).
type StaticGeometry struct {
	Triangles []geometry.Triangle
	Blockers  []geometry.ConvexBlocker
}

// Gather returns the triangles and blockers whose bounds intersect bounds.
func (g *StaticGeometry) Gather(bounds geometry.AABB) ([]geometry.Triangle, []geometry.ConvexBlocker) {
	var tris []geometry.Triangle
	for _, t := range g.Triangles {
		if t.Bounds().Intersects(bounds) {
			tris = append(tris, t)
		}
	}
	var blockers []geometry.ConvexBlocker
	for _, b := range g.Blockers {
		if b.IntersectsAABB(bounds) {
			blockers = append(blockers, b)
		}
	}
	return tris, blockers
}

// Bounds returns the union AABB of all geometry, used to derive the dirty
// tile region when rebuilding everything.
func (g *StaticGeometry) Bounds() geometry.AABB {
	var out geometry.AABB
	first := true
	for _, t := range g.Triangles {
		if first {
			out = t.Bounds()
			first = false
			continue
		}
		out = out.Union(t.Bounds())
	}
	for _, b := range g.Blockers {
		if first {
			out = b.Bounds()
			first = false
			continue
		}
		out = out.Union(b.Bounds())
	}
	return out
}
