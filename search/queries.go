package search

import (
	"math/rand"

	"github.com/o0olele/svonav/math32"
	"github.com/o0olele/svonav/svo"
)

// PathResult is the outcome of FindPath: the link chain, the waypoint
// sequence (start position, portal centers, end position), total world-space
// length and accumulated traversal cost (spec.md §4.10).
type PathResult struct {
	Status Status
	Links  []svo.NodeLink
	Points []math32.Vector3
	Length float32
	Cost   float32
}

// pathQuery drives the core toward one specific goal link (spec.md §4.10's
// path query: terminate on visiting goal, Nearest tie-break, optional cost
// limit).
type pathQuery struct {
	goal      svo.NodeLink
	target    math32.Vector3
	costLimit float32
}

func (q *pathQuery) IsGoal(link svo.NodeLink) bool {
	return q.goal.IsValid() && link.Equal(q.goal)
}
func (q *pathQuery) HeuristicTarget() math32.Vector3            { return q.target }
func (q *pathQuery) TieBreaker() TieBreaker                     { return TieBreakNearest }
func (q *pathQuery) HeuristicScale(base float32) float32        { return base }
func (q *pathQuery) TraversalCost(base float32) float32         { return base }
func (q *pathQuery) CostLimit() float32                         { return q.costLimit }
func (q *pathQuery) OnNodeVisited(svo.NodeLink, float32, float32) bool { return true }
func (q *pathQuery) CanOpenNeighbor(svo.NodeLink, math32.Vector3) bool { return true }

// reachQuery drives the core outward from an origin with no goal: closest-
// reachable, random-reachable and bounded enumeration all share it (spec.md
// §4.10). A positive maxDistance rejects neighbors whose bounds lie wholly
// outside the sphere; rng, when set, randomizes the heuristic and traversal
// scales per call so the search fans out pseudo-randomly; visitor, when set,
// sees every visited open node and may stop the search.
type reachQuery struct {
	octree      *svo.Octree
	origin      math32.Vector3
	maxDistance float32
	rng         *rand.Rand
	visitor     func(link svo.NodeLink, pos math32.Vector3) bool
}

func (q *reachQuery) IsGoal(svo.NodeLink) bool            { return false }
func (q *reachQuery) HeuristicTarget() math32.Vector3     { return q.origin }
func (q *reachQuery) TieBreaker() TieBreaker              { return TieBreakNearest }
func (q *reachQuery) CostLimit() float32                  { return 0 }

func (q *reachQuery) HeuristicScale(base float32) float32 {
	if q.rng != nil {
		return q.rng.Float32() * base
	}
	return base
}

func (q *reachQuery) TraversalCost(base float32) float32 {
	if q.rng != nil {
		return q.rng.Float32() * base
	}
	return base
}

func (q *reachQuery) OnNodeVisited(link svo.NodeLink, g, h float32) bool {
	if q.visitor == nil {
		return true
	}
	if linkBlocked(q.octree, link) {
		return true // a blocked seed is traversed through, never reported
	}
	pos, ok := q.octree.LocationForLink(link)
	if !ok {
		return true
	}
	return q.visitor(link, pos)
}

func (q *reachQuery) CanOpenNeighbor(link svo.NodeLink, portal math32.Vector3) bool {
	if q.maxDistance <= 0 {
		return true
	}
	bounds, ok := q.octree.BoundsForLink(link)
	if !ok {
		return false
	}
	closest := math32.Vector3{
		X: math32.Clamp(q.origin.X, bounds.Min.X, bounds.Max.X),
		Y: math32.Clamp(q.origin.Y, bounds.Min.Y, bounds.Max.Y),
		Z: math32.Clamp(q.origin.Z, bounds.Min.Z, bounds.Max.Z),
	}
	return closest.Distance(q.origin) <= q.maxDistance
}

// locationStatus classifies why a position failed to resolve to an open
// link: no tile at all (UnknownLocation) or inside blocked space
// (InvalidParam), per spec.md §7's error table.
func locationStatus(o *svo.Octree, pos math32.Vector3) Status {
	if o.GetTileAtCoord(o.TileCoordAtLocation(pos)) == nil {
		return StatusFailure | StatusUnknownLocation
	}
	return StatusFailure | StatusInvalidParam
}

// FindPath searches for a path from startPos to endPos (spec.md §6). With
// allowPartial, a goal inside blocked or unreachable space still yields the
// best-effort path toward it, flagged PartialPath. costLimit <= 0 means
// unlimited.
func FindPath(o *svo.Octree, startPos, endPos math32.Vector3, costLimit float32, filter *Filter, allowPartial bool) *PathResult {
	out := &PathResult{}

	start := o.LinkForLocation(startPos, false)
	if !start.IsValid() {
		out.Status = locationStatus(o, startPos)
		return out
	}
	goal := o.LinkForLocation(endPos, allowPartial)
	if !goal.IsValid() {
		out.Status = locationStatus(o, endPos)
		return out
	}

	q := &pathQuery{goal: goal, target: endPos, costLimit: costLimit}
	if linkBlocked(o, goal) {
		// The goal names solid space; nothing can ever satisfy IsGoal, so
		// run as a pure best-effort search toward the target position.
		q.goal = svo.InvalidLink
	}

	res := Run(o, start, q, filter)
	out.Status = res.Status

	endLink := goal
	partial := false
	if !res.Reached {
		if !allowPartial || !res.BestLink.IsValid() {
			return out
		}
		endLink = res.BestLink
		partial = true
		out.Status |= StatusPartialPath
	}

	links := res.Path(endLink)
	out.Status |= res.Status // Path may have flagged CyclicalPath
	if len(links) == 0 {
		out.Status |= StatusFailure
		return out
	}

	out.Links = links
	out.Cost = res.CostOf(endLink)
	out.Points = append(out.Points, startPos)
	out.Points = append(out.Points, res.Portals(links)...)
	if partial {
		if pos, ok := o.LocationForLink(endLink); ok {
			out.Points = append(out.Points, pos)
		}
	} else {
		out.Points = append(out.Points, endPos)
	}
	for i := 1; i < len(out.Points); i++ {
		out.Length += out.Points[i].Distance(out.Points[i-1])
	}
	return out
}

// TestPath reports whether a complete path exists from startPos to endPos.
func TestPath(o *svo.Octree, startPos, endPos math32.Vector3, costLimit float32, filter *Filter) bool {
	return FindPath(o, startPos, endPos, costLimit, filter, false).Status.Has(StatusSuccess)
}

// CalcPathLengthAndCost runs a full path search and returns just its length,
// accumulated cost and status (spec.md §6).
func CalcPathLengthAndCost(o *svo.Octree, startPos, endPos math32.Vector3, filter *Filter) (length, cost float32, status Status) {
	r := FindPath(o, startPos, endPos, 0, filter, false)
	return r.Length, r.Cost, r.Status
}

// ClosestReachableNode searches outward from origin and returns the open
// node closest to it (by heuristic) within maxDistance (spec.md §4.10). The
// origin may lie inside blocked space; the search seeds there and expands
// into the open.
func ClosestReachableNode(o *svo.Octree, origin math32.Vector3, maxDistance float32, filter *Filter) (svo.NodeLink, Status) {
	start := o.LinkForLocation(origin, true)
	if !start.IsValid() {
		return svo.InvalidLink, StatusFailure | StatusUnknownLocation
	}
	q := &reachQuery{octree: o, origin: origin, maxDistance: maxDistance}
	res := Run(o, start, q, filter)
	if !res.BestLink.IsValid() {
		return svo.InvalidLink, res.Status
	}
	status := (res.Status &^ StatusFailure) | StatusSuccess
	return res.BestLink, status
}

// RandomReachablePointInRadius picks a random reachable open node within
// radius of origin, then a random point inside that node's bounds — the
// intended behavior spec.md §9 documents against the source's TODO (which
// only sampled the origin's own node). The search itself fans out
// pseudo-randomly per spec.md §4.10's random heuristic/cost scales.
func RandomReachablePointInRadius(o *svo.Octree, origin math32.Vector3, radius float32, filter *Filter, rng *rand.Rand) (math32.Vector3, svo.NodeLink, Status) {
	start := o.LinkForLocation(origin, true)
	if !start.IsValid() {
		return math32.Vector3{}, svo.InvalidLink, StatusFailure | StatusUnknownLocation
	}

	var visited []svo.NodeLink
	q := &reachQuery{
		octree:      o,
		origin:      origin,
		maxDistance: radius,
		rng:         rng,
		visitor: func(link svo.NodeLink, pos math32.Vector3) bool {
			visited = append(visited, link)
			return true
		},
	}
	res := Run(o, start, q, filter)
	if len(visited) == 0 {
		return math32.Vector3{}, svo.InvalidLink, res.Status
	}

	link := visited[rng.Intn(len(visited))]
	bounds, _ := o.BoundsForLink(link)
	size := bounds.Size()
	point := math32.Vector3{
		X: bounds.Min.X + rng.Float32()*size.X,
		Y: bounds.Min.Y + rng.Float32()*size.Y,
		Z: bounds.Min.Z + rng.Float32()*size.Z,
	}
	status := (res.Status &^ StatusFailure) | StatusSuccess
	return point, link, status
}

// ForEachReachableNode visits every open node reachable from origin within
// maxDistance, calling visitor with each node's link and center; visitor
// returning false stops the enumeration (spec.md §4.10's search-reachable).
func ForEachReachableNode(o *svo.Octree, origin math32.Vector3, maxDistance float32, visitor func(link svo.NodeLink, pos math32.Vector3) bool, filter *Filter) Status {
	start := o.LinkForLocation(origin, true)
	if !start.IsValid() {
		return StatusFailure | StatusUnknownLocation
	}
	q := &reachQuery{octree: o, origin: origin, maxDistance: maxDistance, visitor: visitor}
	res := Run(o, start, q, filter)
	return (res.Status &^ StatusFailure) | StatusSuccess
}

// ProjectPoint returns point unchanged when it already lies in open space;
// otherwise it returns the center of the nearest reachable open node within
// extent of point (spec.md §6's project_point).
func ProjectPoint(o *svo.Octree, point math32.Vector3, extent float32, filter *Filter) (math32.Vector3, svo.NodeLink, Status) {
	if link := o.LinkForLocation(point, false); link.IsValid() {
		return point, link, StatusSuccess
	}
	link, status := ClosestReachableNode(o, point, extent, filter)
	if !link.IsValid() {
		return math32.Vector3{}, svo.InvalidLink, status
	}
	pos, ok := o.LocationForLink(link)
	if !ok {
		return math32.Vector3{}, svo.InvalidLink, StatusFailure | StatusUnknownLocation
	}
	return pos, link, status
}
