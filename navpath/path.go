// Package navpath post-processes the portal-point sequences produced by
// search.FindPath: collinear cleanup, line-of-sight string pulling, and
// Catmull-Rom smoothing (spec.md §4.11).
package navpath

import (
	"github.com/o0olele/svonav/math32"
	"github.com/o0olele/svonav/svo"
)

// collinearEps bounds how far two unit directions may differ per component
// and still count as the same direction.
const collinearEps = float32(1e-4)

// CleanCollinear drops every middle point whose incoming and outgoing
// directions match, leaving only the corners of the path (spec.md §4.11
// step 1).
func CleanCollinear(points []math32.Vector3) []math32.Vector3 {
	if len(points) <= 2 {
		return points
	}
	out := make([]math32.Vector3, 0, len(points))
	out = append(out, points[0])
	for i := 1; i < len(points)-1; i++ {
		in := points[i].Sub(out[len(out)-1]).Normalize()
		outDir := points[i+1].Sub(points[i]).Normalize()
		if in.ApproxEqual(outDir, collinearEps) {
			continue
		}
		out = append(out, points[i])
	}
	out = append(out, points[len(points)-1])
	return out
}

// PullString shortcuts the path by line of sight: from each point it keeps
// the farthest later point the octree raycast can reach unobstructed and
// removes everything between (spec.md §4.11 step 2; the walk mirrors the
// teacher's SmoothPath farthest-visible scan, with the octree raycast in
// place of its sampled occupancy probe).
func PullString(o *svo.Octree, points []math32.Vector3) []math32.Vector3 {
	if len(points) <= 2 {
		return points
	}
	out := []math32.Vector3{points[0]}
	current := 0
	for current < len(points)-1 {
		farthest := current
		for next := current + 1; next < len(points); next++ {
			if !o.Raycast(points[current], points[next]).Hit {
				farthest = next
			}
		}
		if farthest == current {
			farthest = current + 1
		}
		out = append(out, points[farthest])
		current = farthest
	}
	return out
}

// SmoothConfig tunes Catmull-Rom smoothing: Alpha in [0,1] selects the
// parameterization (0 uniform, 0.5 centripetal, 1 chordal) and Iterations
// is the number of interpolated points inserted per segment.
type SmoothConfig struct {
	Alpha      float32 `yaml:"alpha" json:"alpha"`
	Iterations int     `yaml:"iterations" json:"iterations"`
}

// DefaultSmoothConfig returns centripetal smoothing with 4 inserted points
// per segment.
func DefaultSmoothConfig() SmoothConfig {
	return SmoothConfig{Alpha: 0.5, Iterations: 4}
}

// SmoothCatmullRom inserts Catmull-Rom interpolated points between each
// consecutive pair of path points (spec.md §4.11 step 3). Endpoint tangents
// come from reflecting the first/last segment. An interpolated point is
// accepted only when it lies in an open node and both sub-segments to its
// neighboring original points pass a raycast; rejected points are simply
// dropped, falling back to the straighter original shape there.
func SmoothCatmullRom(o *svo.Octree, points []math32.Vector3, cfg SmoothConfig) []math32.Vector3 {
	if len(points) < 2 || cfg.Iterations <= 0 {
		return points
	}

	// Phantom endpoints: reflect the terminal segments so the spline has a
	// tangent at both ends.
	first := points[0].Add(points[0].Sub(points[1]))
	last := points[len(points)-1].Add(points[len(points)-1].Sub(points[len(points)-2]))

	out := make([]math32.Vector3, 0, len(points)*(cfg.Iterations+1))
	for i := 0; i < len(points)-1; i++ {
		p0 := first
		if i > 0 {
			p0 = points[i-1]
		}
		p1 := points[i]
		p2 := points[i+1]
		p3 := last
		if i+2 < len(points) {
			p3 = points[i+2]
		}

		out = append(out, p1)
		for k := 1; k <= cfg.Iterations; k++ {
			t := float32(k) / float32(cfg.Iterations+1)
			pt := catmullRom(p0, p1, p2, p3, cfg.Alpha, t)
			if !o.LinkForLocation(pt, false).IsValid() {
				continue
			}
			if o.Raycast(p1, pt).Hit || o.Raycast(pt, p2).Hit {
				continue
			}
			out = append(out, pt)
		}
	}
	out = append(out, points[len(points)-1])
	return out
}

// catmullRom evaluates the alpha-parameterized Catmull-Rom segment p1..p2 at
// fraction t using the Barry-Goldman pyramid, which handles all alpha values
// (uniform through chordal) without separate tangent math.
func catmullRom(p0, p1, p2, p3 math32.Vector3, alpha, t float32) math32.Vector3 {
	t0 := float32(0)
	t1 := t0 + knotInterval(p0, p1, alpha)
	t2 := t1 + knotInterval(p1, p2, alpha)
	t3 := t2 + knotInterval(p2, p3, alpha)

	u := t1 + t*(t2-t1)

	a1 := lerpKnot(p0, p1, t0, t1, u)
	a2 := lerpKnot(p1, p2, t1, t2, u)
	a3 := lerpKnot(p2, p3, t2, t3, u)
	b1 := lerpKnot(a1, a2, t0, t2, u)
	b2 := lerpKnot(a2, a3, t1, t3, u)
	return lerpKnot(b1, b2, t1, t2, u)
}

// knotInterval returns |p1-p0|^alpha, clamped away from zero so duplicate
// points can't divide the pyramid by zero.
func knotInterval(p0, p1 math32.Vector3, alpha float32) float32 {
	d := p1.Distance(p0)
	if d < 1e-6 {
		return 1e-6
	}
	return math32.Pow(d, alpha)
}

func lerpKnot(a, b math32.Vector3, ta, tb, u float32) math32.Vector3 {
	if tb-ta < 1e-12 {
		return a
	}
	w := (u - ta) / (tb - ta)
	return a.Mul(1 - w).Add(b.Mul(w))
}
