package geometry

import "github.com/o0olele/svonav/math32"

// Triangle is one triangle of the host's collision mesh. Vertices carry no
// winding constraint — the voxelizer swizzles axes by the triangle's own
// dominant normal component, so winding order doesn't matter here.
type Triangle struct {
	A math32.Vector3 `json:"a"`
	B math32.Vector3 `json:"b"`
	C math32.Vector3 `json:"c"`
}

func (t Triangle) Bounds() AABB {
	min := t.A.Min(t.B).Min(t.C)
	max := t.A.Max(t.B).Max(t.C)
	return AABB{Min: min, Max: max}
}

// Normal returns the (unnormalized-safe) face normal.
func (t Triangle) Normal() math32.Vector3 {
	e1 := t.B.Sub(t.A)
	e2 := t.C.Sub(t.A)
	return e1.Cross(e2).Normalize()
}

// DominantAxis returns the index (0=X,1=Y,2=Z) of the normal's largest
// component, used by the voxelizer to pick the rasterization projection
// plane (spec.md §4.6 step 1: "swizzle axes so the longest normal component
// is the projection axis").
func (t Triangle) DominantAxis() int {
	n := t.Normal()
	ax, ay, az := math32.Abs(n.X), math32.Abs(n.Y), math32.Abs(n.Z)
	if ax >= ay && ax >= az {
		return 0
	}
	if ay >= ax && ay >= az {
		return 1
	}
	return 2
}

// IntersectsAABB reports whether the triangle overlaps aabb using the
// separating axis theorem (triangle normal, 3 box axes, 9 edge-cross axes).
func (t Triangle) IntersectsAABB(aabb AABB) bool {
	bounds := t.Bounds()
	if !bounds.Intersects(aabb) {
		return false
	}
	if aabb.Contains(t.A) && aabb.Contains(t.B) && aabb.Contains(t.C) {
		return true
	}

	center := aabb.Center()
	halfSize := aabb.Size().Scale(0.5)

	v0 := t.A.Sub(center)
	v1 := t.B.Sub(center)
	v2 := t.C.Sub(center)

	f0 := v1.Sub(v0)
	f1 := v2.Sub(v1)
	f2 := v0.Sub(v2)

	if normal := f0.Cross(f1); normal.Length() > 1e-10 {
		if !separatingAxis(normal, v0, v1, v2, halfSize) {
			return false
		}
	}

	axes := [3]math32.Vector3{
		{X: 1}, {Y: 1}, {Z: 1},
	}
	for _, axis := range axes {
		if !separatingAxis(axis, v0, v1, v2, halfSize) {
			return false
		}
	}

	crossAxes := [9]math32.Vector3{
		{X: 0, Y: -f0.Z, Z: f0.Y}, {X: 0, Y: -f1.Z, Z: f1.Y}, {X: 0, Y: -f2.Z, Z: f2.Y},
		{X: f0.Z, Y: 0, Z: -f0.X}, {X: f1.Z, Y: 0, Z: -f1.X}, {X: f2.Z, Y: 0, Z: -f2.X},
		{X: -f0.Y, Y: f0.X, Z: 0}, {X: -f1.Y, Y: f1.X, Z: 0}, {X: -f2.Y, Y: f2.X, Z: 0},
	}
	for _, axis := range crossAxes {
		if axis.Length() < 1e-10 {
			continue
		}
		if !separatingAxis(axis, v0, v1, v2, halfSize) {
			return false
		}
	}

	return true
}

func separatingAxis(axis, v0, v1, v2, halfSize math32.Vector3) bool {
	p0, p1, p2 := v0.Dot(axis), v1.Dot(axis), v2.Dot(axis)
	triMin := math32.Min(math32.Min(p0, p1), p2)
	triMax := math32.Max(math32.Max(p0, p1), p2)
	r := math32.Abs(halfSize.X*axis.X) + math32.Abs(halfSize.Y*axis.Y) + math32.Abs(halfSize.Z*axis.Z)
	return !(triMax < -r || triMin > r)
}
