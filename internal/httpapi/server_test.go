package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/o0olele/svonav/generator"
	"github.com/o0olele/svonav/math32"
	"github.com/o0olele/svonav/navpath"
	"github.com/o0olele/svonav/svo"
)

func testServer(t *testing.T) *Server {
	t.Helper()
	cfg := svo.Config{VoxelSize: 0.5, TileLayer: 2, TileCapacity: 16}
	o := svo.NewOctree(cfg)
	e := svo.NewEditableOctree(o)
	e.BeginBatch()
	tile := generator.NewTask(math32.Vector3i{}, cfg, generator.AgentShape{}, &generator.StaticGeometry{}).Run()
	e.AssumeTile(tile, false)
	e.EndBatch()
	return NewServer(o, navpath.DefaultSmoothConfig(), 1)
}

func postJSON(t *testing.T, h http.Handler, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest("POST", path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestPathEndpoint(t *testing.T) {
	s := testServer(t)
	rec := postJSON(t, s.Router(), "/api/path", pathRequest{
		Start: math32.Vector3{X: 1, Y: 1, Z: 1},
		End:   math32.Vector3{X: 7, Y: 7, Z: 7},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d body %s", rec.Code, rec.Body.String())
	}
	var resp pathResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if !resp.Found || len(resp.Points) < 2 {
		t.Fatalf("path not found: %+v", resp)
	}
}

func TestPathEndpointUnknownLocation(t *testing.T) {
	s := testServer(t)
	rec := postJSON(t, s.Router(), "/api/path", pathRequest{
		Start: math32.Vector3{X: 1, Y: 1, Z: 1},
		End:   math32.Vector3{X: 100, Y: 100, Z: 100},
	})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("code = %d, want 404 for a location outside all tiles", rec.Code)
	}
}

func TestPathEndpointRejectsBadJSON(t *testing.T) {
	s := testServer(t)
	req := httptest.NewRequest("POST", "/api/path", bytes.NewReader([]byte("{nope")))
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("code = %d, want 400", rec.Code)
	}
}

func TestRaycastEndpoint(t *testing.T) {
	s := testServer(t)
	rec := postJSON(t, s.Router(), "/api/raycast", raycastRequest{
		Start: math32.Vector3{X: 1, Y: 1, Z: 1},
		End:   math32.Vector3{X: 7, Y: 7, Z: 7},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d", rec.Code)
	}
	var resp raycastResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Hit {
		t.Fatalf("open tile raycast must miss: %+v", resp)
	}
}

func TestProjectEndpointCaches(t *testing.T) {
	s := testServer(t)
	req := projectRequest{Point: math32.Vector3{X: 2, Y: 2, Z: 2}, Extent: 1}
	first := postJSON(t, s.Router(), "/api/project", req)
	if first.Code != http.StatusOK {
		t.Fatalf("code = %d", first.Code)
	}
	second := postJSON(t, s.Router(), "/api/project", req)
	if !bytes.Equal(first.Body.Bytes(), second.Body.Bytes()) {
		t.Fatal("cached projection must serve the identical response")
	}
	if s.projCache.Len() != 1 {
		t.Fatalf("cache should hold the one projection, len=%d", s.projCache.Len())
	}
}

func TestReachableNodesEndpointHonorsLimit(t *testing.T) {
	s := testServer(t)
	rec := postJSON(t, s.Router(), "/api/reachable/nodes", reachableRequest{
		Origin:      math32.Vector3{X: 4, Y: 4, Z: 4},
		MaxDistance: 10,
		Limit:       1,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d", rec.Code)
	}
	var resp reachableNodesResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Nodes) != 1 {
		t.Fatalf("limit 1 must cap the node list, got %d", len(resp.Nodes))
	}
}

func TestRandomEndpoint(t *testing.T) {
	s := testServer(t)
	rec := postJSON(t, s.Router(), "/api/reachable/random", reachableRequest{
		Origin:      math32.Vector3{X: 4, Y: 4, Z: 4},
		MaxDistance: 3,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d body %s", rec.Code, rec.Body.String())
	}
	var resp nodeResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Link == uint64(svo.InvalidLink) {
		t.Fatalf("random point must name a node: %+v", resp)
	}
}
