package geometry

import "github.com/o0olele/svonav/math32"

// Plane is a half-space boundary: points p with p.Dot(Normal) <= Offset are
// on the interior side.
type Plane struct {
	Normal math32.Vector3 `json:"normal"`
	Offset float32        `json:"offset"`
}

// Distance returns the signed distance of point from the plane, positive on
// the exterior side.
func (p Plane) Distance(point math32.Vector3) float32 {
	return point.Dot(p.Normal) - p.Offset
}

// ConvexBlocker is a convex hull described as an intersection of half-spaces
// — the wire format the host sends for convex colliders (spec.md §6:
// "Convex blocker list: a sequence of planes defining a convex hull, host
// already flattens instance transforms").
type ConvexBlocker struct {
	Planes []Plane `json:"planes"`
}

// Bounds returns the extents of the points Normal*Offset, one per plane (the
// point of each plane closest to the origin). For an axis-aligned box this
// encloses the box; for slanted planes it is an approximation and need not
// contain the whole hull.
func (c ConvexBlocker) Bounds() AABB {
	if len(c.Planes) == 0 {
		return AABB{}
	}
	// Conservative bound: project along each plane's normal using it as a
	// half-space constraint. We approximate by sampling the box formed by
	// offsetting along each plane normal from the origin; callers needing a
	// tight bound should precompute it from the source polytope instead.
	min := math32.Vector3{X: math32.MaxFloat32, Y: math32.MaxFloat32, Z: math32.MaxFloat32}
	max := math32.Vector3{X: -math32.MaxFloat32, Y: -math32.MaxFloat32, Z: -math32.MaxFloat32}
	for _, p := range c.Planes {
		point := p.Normal.Scale(p.Offset)
		min = min.Min(point)
		max = max.Max(point)
	}
	return AABB{Min: min, Max: max}
}

// ContainsPoint reports whether point is on the interior side of every
// plane — i.e. inside the convex hull.
func (c ConvexBlocker) ContainsPoint(point math32.Vector3) bool {
	for _, p := range c.Planes {
		if p.Distance(point) > 0 {
			return false
		}
	}
	return true
}

// IntersectsAABB is a conservative (bounds-only) test; the voxelizer only
// needs per-voxel-center containment for blockers, so a precise box/hull
// test isn't required here.
func (c ConvexBlocker) IntersectsAABB(aabb AABB) bool {
	return c.Bounds().Intersects(aabb)
}
