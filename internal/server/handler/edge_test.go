package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/solwatch/arbedge/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type stubEdgeService struct {
	edges  map[string]domain.Edge
	reason string
	err    error
}

func (s *stubEdgeService) GetEdge(ctx context.Context, id string) (domain.Edge, error) {
	if s.err != nil {
		return domain.Edge{}, s.err
	}
	e, ok := s.edges[id]
	if !ok {
		return domain.Edge{}, fmt.Errorf("edge %s: %w", id, domain.ErrNotFound)
	}
	return e, nil
}

func (s *stubEdgeService) ListEdges(ctx context.Context, status domain.EdgeStatus) []domain.Edge {
	var out []domain.Edge
	for _, e := range s.edges {
		if status == "" || e.Status == status {
			out = append(out, e)
		}
	}
	return out
}

func (s *stubEdgeService) ApproveEdge(ctx context.Context, id string) error { return s.err }

func (s *stubEdgeService) RejectEdge(ctx context.Context, id, reason string) error {
	s.reason = reason
	return s.err
}

func (s *stubEdgeService) ExecuteEdge(ctx context.Context, id string) (domain.Trade, error) {
	if s.err != nil {
		return domain.Trade{}, s.err
	}
	return domain.Trade{ID: "t-1", EdgeID: id, ProfitLamports: 500, ExecutedAt: time.Now()}, nil
}

func edgeMux(svc *stubEdgeService) *http.ServeMux {
	h := NewEdgeHandler(svc, testLogger())
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/edges", h.List)
	mux.HandleFunc("GET /api/edges/{id}", h.Get)
	mux.HandleFunc("POST /api/edges/{id}/approve", h.Approve)
	mux.HandleFunc("POST /api/edges/{id}/reject", h.Reject)
	mux.HandleFunc("POST /api/edges/{id}/execute", h.Execute)
	return mux
}

func sampleEdge(id string, status domain.EdgeStatus) domain.Edge {
	now := time.Now()
	exp := now.Add(time.Minute)
	return domain.Edge{
		ID:        id,
		CreatedAt: now,
		ExpiresAt: &exp,
		Strategy:  "graduation_sniper",
		EdgeType:  domain.EdgeTypeGraduation,
		VenueType: domain.VenueTypeBondingCurve,
		Route: domain.RouteData{
			InputMint:  "SOL",
			OutputMint: "mint-x",
			Venues:     []domain.RouteHop{{Venue: "pumpfun", VenueType: domain.VenueTypeBondingCurve, PoolAddr: "pool"}},
		},
		EstimatedProfitLamports: 1_000_000,
		CapitalLamports:         100_000_000,
		Status:                  status,
	}
}

func TestEdgeGet(t *testing.T) {
	svc := &stubEdgeService{edges: map[string]domain.Edge{
		"e1": sampleEdge("e1", domain.EdgeStatusPendingApproval),
	}}
	mux := edgeMux(svc)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/edges/e1", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	var got edgeView
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.ID != "e1" || got.Status != "pending_approval" || got.Strategy != "graduation_sniper" {
		t.Fatalf("view = %+v", got)
	}
	if got.ExpiresAt == "" {
		t.Fatal("expires_at missing")
	}
}

func TestEdgeGetNotFound(t *testing.T) {
	mux := edgeMux(&stubEdgeService{edges: map[string]domain.Edge{}})

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/edges/missing", nil))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	var body errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body.Kind != domain.KindNotFound {
		t.Fatalf("kind = %s, want not_found", body.Kind)
	}
}

func TestEdgeListStatusFilter(t *testing.T) {
	svc := &stubEdgeService{edges: map[string]domain.Edge{
		"e1": sampleEdge("e1", domain.EdgeStatusPendingApproval),
		"e2": sampleEdge("e2", domain.EdgeStatusApproved),
	}}
	mux := edgeMux(svc)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/edges?status=approved", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body struct {
		Edges []edgeView `json:"edges"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(body.Edges) != 1 || body.Edges[0].ID != "e2" {
		t.Fatalf("edges = %+v", body.Edges)
	}

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/edges?status=bogus", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bogus status = %d, want 400", rec.Code)
	}
}

func TestEdgeReject(t *testing.T) {
	svc := &stubEdgeService{edges: map[string]domain.Edge{}}
	mux := edgeMux(svc)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/edges/e1/reject", strings.NewReader(`{"reason":"spread gone"}`))
	mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	if svc.reason != "spread gone" {
		t.Fatalf("reason = %q", svc.reason)
	}

	// Unknown fields are rejected before reaching the service.
	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/edges/e1/reject", strings.NewReader(`{"reason":"x","extra":1}`))
	mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unknown field status = %d, want 400", rec.Code)
	}
}

func TestEdgeExecute(t *testing.T) {
	svc := &stubEdgeService{edges: map[string]domain.Edge{}}
	mux := edgeMux(svc)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/edges/e1/execute", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	var trade tradeView
	if err := json.Unmarshal(rec.Body.Bytes(), &trade); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if trade.EdgeID != "e1" {
		t.Fatalf("trade = %+v", trade)
	}
}

func TestErrorStatusMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantKind   domain.ErrorKind
	}{
		{name: "validation", err: domain.ErrValidation, wantStatus: http.StatusBadRequest, wantKind: domain.KindValidation},
		{name: "not found", err: domain.ErrNotFound, wantStatus: http.StatusNotFound, wantKind: domain.KindNotFound},
		{name: "state conflict", err: domain.ErrStateConflict, wantStatus: http.StatusConflict, wantKind: domain.KindStateConflict},
		{name: "unavailable", err: domain.ErrEdgeUnavailable, wantStatus: http.StatusConflict, wantKind: domain.KindUnavailable},
		{name: "capital", err: domain.ErrCapitalExceeded, wantStatus: http.StatusServiceUnavailable, wantKind: domain.KindCapitalExceeded},
		{name: "paused", err: domain.ErrSwarmPaused, wantStatus: http.StatusServiceUnavailable, wantKind: domain.KindSwarmPaused},
		{name: "internal", err: fmt.Errorf("pool exploded"), wantStatus: http.StatusInternalServerError, wantKind: domain.KindInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &stubEdgeService{err: fmt.Errorf("wrapped: %w", tt.err)}
			mux := edgeMux(svc)

			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/edges/e1/approve", nil))
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			var body errorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if body.Kind != tt.wantKind {
				t.Fatalf("kind = %s, want %s", body.Kind, tt.wantKind)
			}
			if tt.wantStatus == http.StatusInternalServerError && strings.Contains(body.Error, "exploded") {
				t.Fatal("internal error message leaked to the client")
			}
		})
	}
}
