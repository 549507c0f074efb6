// Package httpapi exposes the navigation query surface (spec.md §6) as JSON
// endpoints over gorilla/mux, with CORS for browser-based debug tooling.
package httpapi

import (
	"encoding/json"
	"math/rand"
	"net/http"
	"sync"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/o0olele/svonav/internal/navlog"
	"github.com/o0olele/svonav/math32"
	"github.com/o0olele/svonav/navpath"
	"github.com/o0olele/svonav/search"
	"github.com/o0olele/svonav/svo"
)

// Server serves navigation queries over a read-only octree. Queries run on
// whatever goroutine the HTTP server dispatches to, which is safe as long
// as no edit batch is in flight (spec.md §5) — the serve command loads a
// baked octree and never edits it.
type Server struct {
	octree    *svo.Octree
	smoothing navpath.SmoothConfig

	// projCache memoizes project_point responses; agents cluster around the
	// same unreachable spots, so repeated projections are common.
	projCache *math32.Cache[projectRequest, cachedProjection]

	mu  sync.Mutex
	rng *rand.Rand
}

// NewServer wraps octree for serving.
func NewServer(octree *svo.Octree, smoothing navpath.SmoothConfig, seed int64) *Server {
	return &Server{
		octree:    octree,
		smoothing: smoothing,
		projCache: math32.NewCache[projectRequest, cachedProjection](1024),
		rng:       rand.New(rand.NewSource(seed)),
	}
}

// Router builds the mux router with every query route registered.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/path", s.handlePath).Methods("POST")
	api.HandleFunc("/raycast", s.handleRaycast).Methods("POST")
	api.HandleFunc("/project", s.handleProject).Methods("POST")
	api.HandleFunc("/reachable/closest", s.handleClosest).Methods("POST")
	api.HandleFunc("/reachable/random", s.handleRandom).Methods("POST")
	api.HandleFunc("/reachable/nodes", s.handleReachableNodes).Methods("POST")
	return r
}

// Handler wraps the router with CORS, matching the teacher's demo-server
// middleware stack.
func (s *Server) Handler() http.Handler {
	return cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
	}).Handler(s.Router())
}

// filterParams holds the optional per-request filter overrides; toFilter
// applies them over search.DefaultFilter.
type filterParams struct {
	MaxSearchNodes    int     `json:"max_search_nodes,omitempty"`
	HeuristicScale    float32 `json:"heuristic_scale,omitempty"`
	BaseTraversalCost float32 `json:"base_traversal_cost,omitempty"`
}

func (p filterParams) toFilter() *search.Filter {
	f := search.DefaultFilter()
	if p.MaxSearchNodes > 0 {
		f.MaxSearchNodes = p.MaxSearchNodes
	}
	if p.HeuristicScale > 0 {
		f.HeuristicScale = p.HeuristicScale
	}
	if p.BaseTraversalCost > 0 {
		f.BaseTraversalCost = p.BaseTraversalCost
	}
	return f
}

// httpStatus maps a query status bitfield onto an HTTP status code: bad
// input is the caller's fault, an unknown location is a miss, and every
// partial-success flag still ships a 200 with the status in the body
// (SPEC_FULL.md §7).
func httpStatus(s search.Status) int {
	switch {
	case s.Has(search.StatusInvalidParam):
		return http.StatusBadRequest
	case s.Has(search.StatusUnknownLocation):
		return http.StatusNotFound
	default:
		return http.StatusOK
	}
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		navlog.Error("encode response", zap.Error(err))
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return false
	}
	return true
}

type pathRequest struct {
	Start        math32.Vector3 `json:"start"`
	End          math32.Vector3 `json:"end"`
	CostLimit    float32        `json:"cost_limit,omitempty"`
	AllowPartial bool           `json:"allow_partial,omitempty"`
	Smooth       bool           `json:"smooth,omitempty"`
	Filter       filterParams   `json:"filter,omitempty"`
}

type pathResponse struct {
	Status string           `json:"status"`
	Found  bool             `json:"found"`
	Points []math32.Vector3 `json:"points"`
	Length float32          `json:"length"`
	Cost   float32          `json:"cost"`
}

func (s *Server) handlePath(w http.ResponseWriter, r *http.Request) {
	var req pathRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	res := search.FindPath(s.octree, req.Start, req.End, req.CostLimit, req.Filter.toFilter(), req.AllowPartial)
	points := res.Points
	if req.Smooth && len(points) >= 2 {
		points = navpath.CleanCollinear(points)
		points = navpath.PullString(s.octree, points)
		points = navpath.SmoothCatmullRom(s.octree, points, s.smoothing)
	}
	writeJSON(w, httpStatus(res.Status), pathResponse{
		Status: res.Status.String(),
		Found:  res.Status.Has(search.StatusSuccess),
		Points: points,
		Length: res.Length,
		Cost:   res.Cost,
	})
}

type raycastRequest struct {
	Start math32.Vector3 `json:"start"`
	End   math32.Vector3 `json:"end"`
}

type raycastResponse struct {
	Hit      bool           `json:"hit"`
	HitPoint math32.Vector3 `json:"hit_point"`
	HitTime  float32        `json:"hit_time"`
	Link     uint64         `json:"link"`
}

func (s *Server) handleRaycast(w http.ResponseWriter, r *http.Request) {
	var req raycastRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	res := s.octree.Raycast(req.Start, req.End)
	writeJSON(w, http.StatusOK, raycastResponse{
		Hit:      res.Hit,
		HitPoint: res.HitPoint,
		HitTime:  res.HitTime,
		Link:     uint64(res.Link),
	})
}

type projectRequest struct {
	Point  math32.Vector3 `json:"point"`
	Extent float32        `json:"extent"`
	Filter filterParams   `json:"filter,omitempty"`
}

type projectResponse struct {
	Status string         `json:"status"`
	Point  math32.Vector3 `json:"point"`
	Link   uint64         `json:"link"`
}

type cachedProjection struct {
	code int
	resp projectResponse
}

func (s *Server) handleProject(w http.ResponseWriter, r *http.Request) {
	var req projectRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if hit, ok := s.projCache.Get(req); ok {
		writeJSON(w, hit.code, hit.resp)
		return
	}
	pos, link, status := search.ProjectPoint(s.octree, req.Point, req.Extent, req.Filter.toFilter())
	out := cachedProjection{
		code: httpStatus(status),
		resp: projectResponse{Status: status.String(), Point: pos, Link: uint64(link)},
	}
	s.projCache.Put(req, out)
	writeJSON(w, out.code, out.resp)
}

type reachableRequest struct {
	Origin      math32.Vector3 `json:"origin"`
	MaxDistance float32        `json:"max_distance"`
	Limit       int            `json:"limit,omitempty"`
	Filter      filterParams   `json:"filter,omitempty"`
}

type nodeResponse struct {
	Status   string         `json:"status"`
	Link     uint64         `json:"link"`
	Position math32.Vector3 `json:"position"`
}

func (s *Server) handleClosest(w http.ResponseWriter, r *http.Request) {
	var req reachableRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	link, status := search.ClosestReachableNode(s.octree, req.Origin, req.MaxDistance, req.Filter.toFilter())
	pos, _ := s.octree.LocationForLink(link)
	writeJSON(w, httpStatus(status), nodeResponse{Status: status.String(), Link: uint64(link), Position: pos})
}

func (s *Server) handleRandom(w http.ResponseWriter, r *http.Request) {
	var req reachableRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	s.mu.Lock()
	point, link, status := search.RandomReachablePointInRadius(s.octree, req.Origin, req.MaxDistance, req.Filter.toFilter(), s.rng)
	s.mu.Unlock()
	writeJSON(w, httpStatus(status), nodeResponse{Status: status.String(), Link: uint64(link), Position: point})
}

type reachableNodesResponse struct {
	Status string         `json:"status"`
	Nodes  []nodeResponse `json:"nodes"`
}

func (s *Server) handleReachableNodes(w http.ResponseWriter, r *http.Request) {
	var req reachableRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	limit := req.Limit
	if limit <= 0 {
		limit = 1024
	}
	var nodes []nodeResponse
	status := search.ForEachReachableNode(s.octree, req.Origin, req.MaxDistance, func(link svo.NodeLink, pos math32.Vector3) bool {
		nodes = append(nodes, nodeResponse{Link: uint64(link), Position: pos})
		return len(nodes) < limit
	}, req.Filter.toFilter())
	writeJSON(w, httpStatus(status), reachableNodesResponse{Status: status.String(), Nodes: nodes})
}
