package search

import (
	"container/heap"

	"github.com/o0olele/svonav/math32"
	"github.com/o0olele/svonav/svo"
)

// SearchQuery is the pluggable behavior the A* core is parameterized over
// (spec.md §9 Design Notes: "the A* core is parameterized over a query
// behavior... model as an interface with methods get_goal, cost_tie_breaker,
// heuristic_scale, traversal_cost, can_open_neighbor, on_node_visited,
// on_open_neighbor").
type SearchQuery interface {
	// IsGoal reports whether link satisfies this query's termination
	// condition (e.g. "is the path's target node" for path queries, always
	// false for enumeration queries that run until exhaustion).
	IsGoal(link svo.NodeLink) bool
	// HeuristicTarget is the position the Manhattan heuristic measures
	// distance to — the goal for path queries, the start for
	// closest/random-reachable (spec.md §4.10).
	HeuristicTarget() math32.Vector3
	// TieBreaker selects Nearest or Furthest (spec.md §4.9).
	TieBreaker() TieBreaker
	// HeuristicScale and TraversalCost let a query override the filter's
	// plain values — random-reachable returns uniformly random values from
	// both (spec.md §4.10).
	HeuristicScale(base float32) float32
	TraversalCost(base float32) float32
	// CostLimit caps cumulative g; neighbors exceeding it are rejected.
	// <= 0 means unlimited.
	CostLimit() float32
	// OnNodeVisited is called once per node taken off the open list (after
	// goal detection); returning false stops the search with whatever has
	// been found so far. Enumeration queries route their caller-provided
	// visitor through here.
	OnNodeVisited(link svo.NodeLink, g, h float32) bool
	// CanOpenNeighbor is called before a neighbor is scored and pushed;
	// returning false rejects it (e.g. the closest/random queries' distance
	// limit).
	CanOpenNeighbor(link svo.NodeLink, portal math32.Vector3) bool
}

// record is one pool entry: a scored, possibly-closed node plus back-link
// for path reconstruction.
type record struct {
	link      svo.NodeLink
	g, h, f   float32
	parent    svo.NodeLink
	hasParent bool
	portal    math32.Vector3
	closed    bool
	heapIndex int
}

type openHeap []*record

func (h openHeap) Len() int { return len(h) }
func (h openHeap) Less(i, j int) bool {
	if h[i].f != h[j].f {
		return h[i].f < h[j].f
	}
	// Tie-break between candidate parents for one link is applied in relax;
	// the heap order itself only needs a deterministic secondary key.
	return h[i].g < h[j].g
}
func (h openHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].heapIndex = i
	h[j].heapIndex = j
}
func (h *openHeap) Push(x interface{}) {
	r := x.(*record)
	r.heapIndex = len(*h)
	*h = append(*h, r)
}
func (h *openHeap) Pop() interface{} {
	old := *h
	n := len(old)
	r := old[n-1]
	old[n-1] = nil
	r.heapIndex = -1
	*h = old[:n-1]
	return r
}

// Result is the shared outcome of running the A* core: the best (lowest-h)
// open node seen, the final status, and enough of the closed pool to
// reconstruct a path back to start.
type Result struct {
	Status     Status
	BestLink   svo.NodeLink
	BestG      float32
	BestH      float32
	Reached    bool // IsGoal matched during the search
	VisitCount int

	pool map[uint64]*record
}

// Path reconstructs the link chain from start to link (inclusive), walking
// parent pointers recorded during the search. Returns nil (and flags
// CyclicalPath) if the chain loops or link was never scored.
func (r *Result) Path(link svo.NodeLink) []svo.NodeLink {
	rec, ok := r.pool[link.Key()]
	if !ok {
		return nil
	}
	var out []svo.NodeLink
	for {
		if len(out) > len(r.pool) {
			r.Status |= StatusCyclicalPath
			return nil
		}
		out = append(out, rec.link)
		if !rec.hasParent {
			break
		}
		rec = r.pool[rec.parent.Key()]
		if rec == nil {
			break
		}
	}
	// reverse into start->link order
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// Portals returns the portal location recorded for reaching each link on
// path (the center of the face crossed to get there; the first entry has no
// portal and is omitted — callers prepend the true start position).
func (r *Result) Portals(path []svo.NodeLink) []math32.Vector3 {
	out := make([]math32.Vector3, 0, len(path))
	for _, l := range path {
		if rec := r.pool[l.Key()]; rec != nil && rec.hasParent {
			out = append(out, rec.portal)
		}
	}
	return out
}

// CostOf returns the recorded g-cost of link, or 0 if it was never scored.
func (r *Result) CostOf(link svo.NodeLink) float32 {
	if rec := r.pool[link.Key()]; rec != nil {
		return rec.g
	}
	return 0
}

// Run executes the shared A* core over octree starting at start, driven by
// query and filter (spec.md §4.9). Termination: the open list empties, a
// node satisfies query.IsGoal, a visit hook declines to continue, or the
// node-visitation limit (4x MaxSearchNodes) is reached. The start link may
// name a blocked entity — the search can seed inside geometry and expand
// outward — but a blocked start never counts as the best node.
func Run(octree *svo.Octree, start svo.NodeLink, query SearchQuery, filter *Filter) *Result {
	res := &Result{pool: make(map[uint64]*record), BestLink: svo.InvalidLink, BestH: math32.MaxFloat32}

	if !start.IsValid() {
		res.Status = StatusInvalidParam | StatusFailure
		return res
	}
	startNode := octree.GetNodeFromLink(start)
	if startNode == nil {
		res.Status = StatusUnknownLocation | StatusFailure
		return res
	}

	maxNodes := filter.maxSearchNodes()
	visitLimit := 4 * maxNodes
	costLimit := query.CostLimit()

	startRec := &record{link: start, g: 0, h: heuristic(octree, start, query, filter)}
	startRec.f = startRec.g + startRec.h
	res.pool[start.Key()] = startRec

	oh := &openHeap{startRec}
	heap.Init(oh)

	for oh.Len() > 0 {
		if res.VisitCount >= visitLimit {
			res.Status |= StatusReachedNodeLimit
			break
		}
		cur := heap.Pop(oh).(*record)
		if cur.closed {
			continue
		}
		cur.closed = true
		res.VisitCount++

		blocked := linkBlocked(octree, cur.link)
		if !blocked && cur.h < res.BestH {
			res.BestH, res.BestLink, res.BestG = cur.h, cur.link, cur.g
		}

		if query.IsGoal(cur.link) {
			res.Reached = true
			res.BestLink, res.BestG, res.BestH = cur.link, cur.g, cur.h
			break
		}
		if !filter.visit(cur.link, cur.g, cur.h) || !query.OnNodeVisited(cur.link, cur.g, cur.h) {
			break
		}

		it := svo.NewNeighborIterator(octree, cur.link)
		for {
			entry, ok := it.Next()
			if !ok {
				break
			}
			// Blocked neighbors are never opened from open space, but a
			// blocked node may open them: a search seeded inside geometry
			// (closest-reachable, projection) tunnels outward until it
			// reaches the open.
			if entryBlocked(entry) && !blocked {
				continue
			}
			relax(octree, res, oh, cur, entry, query, filter, costLimit)
		}
	}

	if res.Reached {
		res.Status |= StatusSuccess
	} else {
		res.Status |= StatusFailure
	}
	return res
}

func entryBlocked(entry svo.NeighborEntry) bool {
	if entry.Node == nil {
		return false
	}
	if entry.Link.HasVoxel() {
		return entry.Node.IsVoxelBlocked(entry.Link.VoxelIdx())
	}
	return entry.Node.State() == svo.StateBlocked
}

func linkBlocked(octree *svo.Octree, link svo.NodeLink) bool {
	node := octree.GetNodeFromLink(link)
	if node == nil {
		return false
	}
	if link.HasVoxel() {
		return node.IsVoxelBlocked(link.VoxelIdx())
	}
	return node.State() == svo.StateBlocked
}

// relax scores one neighbor reached from cur, pushing/updating it on the
// open list if this path to it is better than any seen so far.
func relax(octree *svo.Octree, res *Result, oh *openHeap, cur *record, entry svo.NeighborEntry, query SearchQuery, filter *Filter, costLimit float32) {
	portal, ok := portalLocation(octree, cur.link, entry)
	if !ok || !filter.AllowsPoint(portal) {
		return
	}

	baseCost := query.TraversalCost(filter.baseTraversalCost())
	cost := baseCost * (1 - resolutionFraction(octree, entry.Link))
	g := cur.g + cost
	if costLimit > 0 && g > costLimit {
		return
	}

	key := entry.Link.Key()
	existing, seen := res.pool[key]
	if seen && existing.closed {
		return
	}

	h := heuristic(octree, entry.Link, query, filter)
	f := g + h

	if seen {
		better := g < existing.g
		if !better && f == existing.f {
			// Equal-f candidate parents: the tie-breaker decides whether to
			// keep the incumbent or switch (spec.md §4.9).
			if query.TieBreaker() == TieBreakFurthest {
				better = g > existing.g
			}
		}
		if !better {
			return
		}
		existing.g, existing.h, existing.f = g, h, f
		existing.parent, existing.hasParent = cur.link, true
		existing.portal = portal
		if existing.heapIndex >= 0 {
			heap.Fix(oh, existing.heapIndex)
		} else {
			heap.Push(oh, existing)
		}
		return
	}

	if len(res.pool) >= filter.maxSearchNodes() {
		res.Status |= StatusOutOfNodes
		return
	}
	if !query.CanOpenNeighbor(entry.Link, portal) {
		return
	}

	rec := &record{link: entry.Link, g: g, h: h, f: f, parent: cur.link, hasParent: true, portal: portal}
	res.pool[key] = rec
	heap.Push(oh, rec)
}

// heuristic computes filter.heuristic_scale * manhattan distance, in voxel
// units, between the node's closest point to the target and the target
// itself — spec.md §4.9's stable voxel-unit heuristic.
func heuristic(octree *svo.Octree, link svo.NodeLink, query SearchQuery, filter *Filter) float32 {
	bounds, ok := octree.BoundsForLink(link)
	if !ok {
		return math32.MaxFloat32
	}
	target := query.HeuristicTarget()
	closest := math32.Vector3{
		X: math32.Clamp(target.X, bounds.Min.X, bounds.Max.X),
		Y: math32.Clamp(target.Y, bounds.Min.Y, bounds.Max.Y),
		Z: math32.Clamp(target.Z, bounds.Min.Z, bounds.Max.Z),
	}
	a := voxelCoord(octree, closest)
	b := voxelCoord(octree, target)
	dist := float32(a.ManhattanDistance(b))
	return query.HeuristicScale(filter.heuristicScale()) * dist
}

func voxelCoord(octree *svo.Octree, pos math32.Vector3) math32.Vector3i {
	rel := pos.Sub(octree.Config.Origin)
	vs := octree.Config.VoxelSize
	return math32.Vector3i{
		X: int32(math32.FloorToInt(rel.X / vs)),
		Y: int32(math32.FloorToInt(rel.Y / vs)),
		Z: int32(math32.FloorToInt(rel.Z / vs)),
	}
}

// resolutionFraction returns resolution(link)/tile_resolution, used so
// traversal_cost charges roughly the same regardless of node size (spec.md
// §4.9).
func resolutionFraction(octree *svo.Octree, link svo.NodeLink) float32 {
	bounds, ok := octree.BoundsForLink(link)
	if !ok {
		return 0
	}
	res := bounds.Max.X - bounds.Min.X
	tileRes := octree.Config.TileResolution()
	if tileRes == 0 {
		return 0
	}
	return res / tileRes
}

// portalLocation is the center of the face shared between from and the
// neighbor entry, computed at the smaller of the two node resolutions
// (spec.md §4.9): the finer box's center for the two in-plane axes, snapped
// onto the shared plane along the face axis. The neighbor's box supplies
// the plane — its near face coincides with from's far face.
func portalLocation(octree *svo.Octree, from svo.NodeLink, entry svo.NeighborEntry) (math32.Vector3, bool) {
	fromBounds, ok1 := octree.BoundsForLink(from)
	toBounds, ok2 := octree.BoundsForLink(entry.Link)
	if !ok1 || !ok2 {
		return math32.Vector3{}, false
	}
	finer := toBounds
	if toBounds.Size().X > fromBounds.Size().X {
		finer = fromBounds
	}
	portal := finer.Center()

	var plane float32
	switch entry.Face {
	case svo.DirPosX:
		plane = toBounds.Min.X
	case svo.DirNegX:
		plane = toBounds.Max.X
	case svo.DirPosY:
		plane = toBounds.Min.Y
	case svo.DirNegY:
		plane = toBounds.Max.Y
	case svo.DirPosZ:
		plane = toBounds.Min.Z
	case svo.DirNegZ:
		plane = toBounds.Max.Z
	default:
		return portal, true
	}
	switch entry.Face {
	case svo.DirPosX, svo.DirNegX:
		portal.X = plane
	case svo.DirPosY, svo.DirNegY:
		portal.Y = plane
	case svo.DirPosZ, svo.DirNegZ:
		portal.Z = plane
	}
	return portal, true
}
