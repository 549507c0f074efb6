package search

import (
	"github.com/o0olele/svonav/geometry"
	"github.com/o0olele/svonav/math32"
	"github.com/o0olele/svonav/svo"
)

// TieBreaker selects which of two equal-f candidate parents a search keeps
// (spec.md §4.9).
type TieBreaker int

const (
	// TieBreakNearest keeps the smaller g (closer to start) — path queries
	// use this.
	TieBreakNearest TieBreaker = iota
	// TieBreakFurthest keeps the larger g.
	TieBreakFurthest
)

// Filter is the per-query tuning surface (spec.md §6's options table).
type Filter struct {
	MaxSearchNodes    int
	HeuristicScale    float32
	BaseTraversalCost float32
	BoundsConstraints []geometry.AABB
	// OnNodeVisited is an optional caller hook; returning false terminates
	// the search early (spec.md §5's cancellation mechanism).
	OnNodeVisited func(link svo.NodeLink, g, h float32) bool
}

// DefaultFilter returns spec.md §6's documented defaults.
func DefaultFilter() *Filter {
	return &Filter{
		MaxSearchNodes:    2048,
		HeuristicScale:    2.0,
		BaseTraversalCost: 1.0,
	}
}

// AllowsPoint reports whether p lies within the filter's inclusion bounds —
// vacuously true with no constraints, otherwise true if p is inside any one
// of them (spec.md §4.9's "constrained to any filter inclusion bounds").
func (f *Filter) AllowsPoint(p math32.Vector3) bool {
	if f == nil || len(f.BoundsConstraints) == 0 {
		return true
	}
	for _, b := range f.BoundsConstraints {
		if b.Contains(p) {
			return true
		}
	}
	return false
}

func (f *Filter) maxSearchNodes() int {
	if f == nil || f.MaxSearchNodes <= 0 {
		return DefaultFilter().MaxSearchNodes
	}
	return f.MaxSearchNodes
}

func (f *Filter) heuristicScale() float32 {
	if f == nil || f.HeuristicScale == 0 {
		return DefaultFilter().HeuristicScale
	}
	return f.HeuristicScale
}

func (f *Filter) baseTraversalCost() float32 {
	if f == nil || f.BaseTraversalCost == 0 {
		return DefaultFilter().BaseTraversalCost
	}
	return f.BaseTraversalCost
}

func (f *Filter) visit(link svo.NodeLink, g, h float32) bool {
	if f == nil || f.OnNodeVisited == nil {
		return true
	}
	return f.OnNodeVisited(link, g, h)
}
