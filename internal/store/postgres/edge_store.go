package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/solwatch/arbedge/internal/domain"
)

// EdgeStore implements domain.EdgeStore using PostgreSQL. It is a
// write-through journal behind the lifecycle manager, not the live authority
// over edge state.
type EdgeStore struct {
	pool *pgxpool.Pool
}

var _ domain.EdgeStore = (*EdgeStore)(nil)

// NewEdgeStore creates a new EdgeStore backed by the given connection pool.
func NewEdgeStore(pool *pgxpool.Pool) *EdgeStore {
	return &EdgeStore{pool: pool}
}

const edgeSelectCols = `id, created_at, expires_at, strategy, edge_type, venue_type,
	route, estimated_profit_lamports, capital_lamports, risk_score, atomicity,
	simulated_profit_guaranteed, execution_mode, status, score,
	rejection_reason, failure_cause, claimed_by, trade_id`

// Upsert inserts the edge snapshot or replaces the existing row for its id.
func (s *EdgeStore) Upsert(ctx context.Context, edge domain.Edge) error {
	routeJSON, err := json.Marshal(edge.Route)
	if err != nil {
		return fmt.Errorf("postgres: marshal edge route: %w", err)
	}
	scoreJSON, err := json.Marshal(edge.Score)
	if err != nil {
		return fmt.Errorf("postgres: marshal edge score: %w", err)
	}

	const query = `
		INSERT INTO edges (
			id, created_at, expires_at, strategy, edge_type, venue_type,
			route, estimated_profit_lamports, capital_lamports, risk_score,
			atomicity, simulated_profit_guaranteed, execution_mode, status,
			score, rejection_reason, failure_cause, claimed_by, trade_id
		) VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, $8, $9, $10,
			$11, $12, $13, $14,
			$15, $16, $17, $18, $19
		) ON CONFLICT (id) DO UPDATE SET
			expires_at = EXCLUDED.expires_at,
			status = EXCLUDED.status,
			score = EXCLUDED.score,
			rejection_reason = EXCLUDED.rejection_reason,
			failure_cause = EXCLUDED.failure_cause,
			claimed_by = EXCLUDED.claimed_by,
			trade_id = EXCLUDED.trade_id,
			updated_at = NOW()`

	_, err = s.pool.Exec(ctx, query,
		edge.ID, edge.CreatedAt, edge.ExpiresAt, edge.Strategy,
		string(edge.EdgeType), string(edge.VenueType),
		routeJSON, edge.EstimatedProfitLamports, edge.CapitalLamports,
		edge.RiskScore, string(edge.Atomicity), edge.SimulatedProfitGuaranteed,
		string(edge.ExecutionMode), string(edge.Status),
		scoreJSON, edge.RejectionReason, edge.FailureCause,
		edge.ClaimedBy, edge.TradeID,
	)
	if err != nil {
		return fmt.Errorf("postgres: upsert edge %s: %w", edge.ID, err)
	}
	return nil
}

// GetByID returns the stored edge snapshot, or domain.ErrNotFound.
func (s *EdgeStore) GetByID(ctx context.Context, id string) (domain.Edge, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+edgeSelectCols+` FROM edges WHERE id = $1`, id)

	edge, err := scanEdgeRow(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Edge{}, fmt.Errorf("postgres: edge %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return domain.Edge{}, fmt.Errorf("postgres: get edge %s: %w", id, err)
	}
	return edge, nil
}

// ListByStatus returns stored edges in the given status, newest first.
func (s *EdgeStore) ListByStatus(ctx context.Context, status domain.EdgeStatus, opts domain.ListOpts) ([]domain.Edge, error) {
	query := `SELECT ` + edgeSelectCols + ` FROM edges WHERE status = $1`
	args := []any{string(status)}
	argIdx := 2

	if opts.Since != nil {
		query += fmt.Sprintf(" AND created_at >= $%d", argIdx)
		args = append(args, *opts.Since)
		argIdx++
	}
	if opts.Until != nil {
		query += fmt.Sprintf(" AND created_at <= $%d", argIdx)
		args = append(args, *opts.Until)
		argIdx++
	}

	query += " ORDER BY created_at DESC"

	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, opts.Limit)
		argIdx++
	}
	if opts.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIdx)
		args = append(args, opts.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list edges by status: %w", err)
	}
	defer rows.Close()

	edges, err := scanEdgeRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan edges by status: %w", err)
	}
	return edges, nil
}

// ListOpen returns every edge in a non-terminal status, oldest first, so a
// restarting engine can resweep them in admission order.
func (s *EdgeStore) ListOpen(ctx context.Context) ([]domain.Edge, error) {
	const query = `SELECT ` + edgeSelectCols + ` FROM edges
		WHERE status IN ('detected', 'pending_approval', 'approved', 'executing')
		ORDER BY created_at ASC`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("postgres: list open edges: %w", err)
	}
	defer rows.Close()

	edges, err := scanEdgeRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan open edges: %w", err)
	}
	return edges, nil
}

type edgeScanner interface {
	Scan(dest ...any) error
}

func scanEdgeRow(row edgeScanner) (domain.Edge, error) {
	var (
		e             domain.Edge
		edgeType      string
		venueType     string
		atomicity     string
		executionMode string
		status        string
		routeJSON     []byte
		scoreJSON     []byte
	)
	if err := row.Scan(
		&e.ID, &e.CreatedAt, &e.ExpiresAt, &e.Strategy, &edgeType, &venueType,
		&routeJSON, &e.EstimatedProfitLamports, &e.CapitalLamports,
		&e.RiskScore, &atomicity, &e.SimulatedProfitGuaranteed,
		&executionMode, &status, &scoreJSON,
		&e.RejectionReason, &e.FailureCause, &e.ClaimedBy, &e.TradeID,
	); err != nil {
		return domain.Edge{}, err
	}

	e.EdgeType = domain.EdgeType(edgeType)
	e.VenueType = domain.VenueType(venueType)
	e.Atomicity = domain.Atomicity(atomicity)
	e.ExecutionMode = domain.ExecutionMode(executionMode)
	e.Status = domain.EdgeStatus(status)

	if len(routeJSON) > 0 {
		if err := json.Unmarshal(routeJSON, &e.Route); err != nil {
			return domain.Edge{}, fmt.Errorf("unmarshal route: %w", err)
		}
	}
	if len(scoreJSON) > 0 {
		if err := json.Unmarshal(scoreJSON, &e.Score); err != nil {
			return domain.Edge{}, fmt.Errorf("unmarshal score: %w", err)
		}
	}
	return e, nil
}

func scanEdgeRows(rows pgx.Rows) ([]domain.Edge, error) {
	var edges []domain.Edge
	for rows.Next() {
		e, err := scanEdgeRow(rows)
		if err != nil {
			return nil, err
		}
		edges = append(edges, e)
	}
	return edges, rows.Err()
}
