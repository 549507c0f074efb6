package geometry

import "github.com/o0olele/svonav/math32"

// RayTriangle tests a ray against a triangle using the Möller–Trumbore
// algorithm, returning the hit parameter t (distance along dir) on success.
func RayTriangle(origin, dir math32.Vector3, tri Triangle) (bool, float32) {
	const eps = 1e-6
	e1 := tri.B.Sub(tri.A)
	e2 := tri.C.Sub(tri.A)
	pvec := dir.Cross(e2)
	det := e1.Dot(pvec)
	if det > -eps && det < eps {
		return false, 0
	}
	invDet := 1.0 / det
	tvec := origin.Sub(tri.A)
	u := tvec.Dot(pvec) * invDet
	if u < 0 || u > 1 {
		return false, 0
	}
	qvec := tvec.Cross(e1)
	v := dir.Dot(qvec) * invDet
	if v < 0 || u+v > 1 {
		return false, 0
	}
	t := e2.Dot(qvec) * invDet
	if t <= eps {
		return false, 0
	}
	return true, t
}

// RayAABB intersects a ray with aabb using the slab method, returning
// [tmin, tmax] along dir and whether the ray hits the box at all (forward
// of the origin).
func RayAABB(origin, dir math32.Vector3, aabb AABB) (tmin, tmax float32, hit bool) {
	const eps = 1e-6
	tmin = -math32.MaxFloat32
	tmax = math32.MaxFloat32

	axis := func(o, d, lo, hi float32) bool {
		if math32.Abs(d) < eps {
			return o >= lo && o <= hi
		}
		t1 := (lo - o) / d
		t2 := (hi - o) / d
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		if t1 > tmin {
			tmin = t1
		}
		if t2 < tmax {
			tmax = t2
		}
		return tmin <= tmax
	}

	if !axis(origin.X, dir.X, aabb.Min.X, aabb.Max.X) {
		return 0, 0, false
	}
	if !axis(origin.Y, dir.Y, aabb.Min.Y, aabb.Max.Y) {
		return 0, 0, false
	}
	if !axis(origin.Z, dir.Z, aabb.Min.Z, aabb.Max.Z) {
		return 0, 0, false
	}
	if tmax < 0 {
		return 0, 0, false
	}
	if tmin < 0 {
		tmin = 0
	}
	return tmin, tmax, true
}
