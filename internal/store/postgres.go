package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/gridmarket/spot-engine/internal/model"
)

// Schema creates the tables used by PostgresStore. Capacities and prices
// are NUMERIC for exact decimal precision; seq keeps insertion order.
const Schema = `
CREATE TABLE IF NOT EXISTS scenarios (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	version    BIGINT NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS participants (
	scenario_id TEXT NOT NULL REFERENCES scenarios(id) ON DELETE CASCADE,
	id          TEXT NOT NULL,
	seq         BIGSERIAL,
	name        TEXT NOT NULL,
	role        TEXT NOT NULL,
	fuel        TEXT NOT NULL DEFAULT '',
	capacity    NUMERIC NOT NULL,
	price       NUMERIC NOT NULL,
	PRIMARY KEY (scenario_id, id)
);`

const uniqueViolation = "23505"

// PostgresStore implements Store using PostgreSQL as the source of truth.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL-backed store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Migrate applies Schema. It is idempotent.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) CreateScenario(ctx context.Context, sc *model.Scenario) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx,
			`INSERT INTO scenarios (id, name, version, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5)`,
			sc.ID, sc.Name, sc.Version, sc.CreatedAt, sc.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("create scenario %s: %w", sc.ID, err)
		}
		for _, p := range sc.Participants {
			if err := insertParticipant(ctx, tx, sc.ID, p); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *PostgresStore) GetScenario(ctx context.Context, id string) (*model.Scenario, error) {
	var sc model.Scenario
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, version, created_at, updated_at
		 FROM scenarios WHERE id = $1`, id).
		Scan(&sc.ID, &sc.Name, &sc.Version, &sc.CreatedAt, &sc.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrScenarioNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get scenario %s: %w", id, err)
	}

	rows, err := s.pool.Query(ctx,
		`SELECT scenario_id, id, name, role, fuel, capacity::TEXT, price::TEXT
		 FROM participants WHERE scenario_id = $1 ORDER BY seq`, id)
	if err != nil {
		return nil, fmt.Errorf("get participants %s: %w", id, err)
	}
	defer rows.Close()

	byScenario, err := scanParticipants(rows)
	if err != nil {
		return nil, err
	}
	sc.Participants = byScenario[id]
	if sc.Participants == nil {
		sc.Participants = []model.Participant{}
	}
	return &sc, nil
}

func (s *PostgresStore) ListScenarios(ctx context.Context) ([]model.Scenario, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, version, created_at, updated_at
		 FROM scenarios ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var scenarios []model.Scenario
	for rows.Next() {
		var sc model.Scenario
		if err := rows.Scan(&sc.ID, &sc.Name, &sc.Version, &sc.CreatedAt, &sc.UpdatedAt); err != nil {
			return nil, err
		}
		scenarios = append(scenarios, sc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	prows, err := s.pool.Query(ctx,
		`SELECT scenario_id, id, name, role, fuel, capacity::TEXT, price::TEXT
		 FROM participants ORDER BY scenario_id, seq`)
	if err != nil {
		return nil, err
	}
	defer prows.Close()

	byScenario, err := scanParticipants(prows)
	if err != nil {
		return nil, err
	}
	for i := range scenarios {
		scenarios[i].Participants = byScenario[scenarios[i].ID]
		if scenarios[i].Participants == nil {
			scenarios[i].Participants = []model.Participant{}
		}
	}
	return scenarios, nil
}

// mutate bumps the scenario version and runs fn in the same transaction.
// The version UPDATE row-locks the scenario, serializing writers.
func (s *PostgresStore) mutate(ctx context.Context, scenarioID string, fn func(tx pgx.Tx) error) (int64, error) {
	var version int64
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx,
			`UPDATE scenarios SET version = version + 1, updated_at = $2
			 WHERE id = $1 RETURNING version`,
			scenarioID, time.Now().UTC()).Scan(&version)
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("%w: %s", ErrScenarioNotFound, scenarioID)
		}
		if err != nil {
			return err
		}
		return fn(tx)
	})
	if err != nil {
		return 0, err
	}
	return version, nil
}

func (s *PostgresStore) AddParticipant(ctx context.Context, scenarioID string, p model.Participant) (int64, error) {
	return s.mutate(ctx, scenarioID, func(tx pgx.Tx) error {
		return insertParticipant(ctx, tx, scenarioID, p)
	})
}

func (s *PostgresStore) UpdateParticipant(ctx context.Context, scenarioID string, p model.Participant) (int64, error) {
	return s.mutate(ctx, scenarioID, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`UPDATE participants
			 SET name = $3, role = $4, fuel = $5, capacity = $6::NUMERIC, price = $7::NUMERIC
			 WHERE scenario_id = $1 AND id = $2`,
			scenarioID, p.ID, p.Name, string(p.Role), string(p.Fuel),
			p.Capacity.String(), p.Price.String(),
		)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("%w: %s", ErrParticipantNotFound, p.ID)
		}
		return nil
	})
}

func (s *PostgresStore) RemoveParticipant(ctx context.Context, scenarioID, participantID string) (int64, error) {
	return s.mutate(ctx, scenarioID, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`DELETE FROM participants WHERE scenario_id = $1 AND id = $2`,
			scenarioID, participantID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("%w: %s", ErrParticipantNotFound, participantID)
		}
		return nil
	})
}

func (s *PostgresStore) ReplaceParticipants(ctx context.Context, scenarioID string, ps []model.Participant) (int64, error) {
	return s.mutate(ctx, scenarioID, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM participants WHERE scenario_id = $1`, scenarioID); err != nil {
			return err
		}
		for _, p := range ps {
			if err := insertParticipant(ctx, tx, scenarioID, p); err != nil {
				return err
			}
		}
		return nil
	})
}

func insertParticipant(ctx context.Context, tx pgx.Tx, scenarioID string, p model.Participant) error {
	_, err := tx.Exec(ctx,
		`INSERT INTO participants (scenario_id, id, name, role, fuel, capacity, price)
		 VALUES ($1, $2, $3, $4, $5, $6::NUMERIC, $7::NUMERIC)`,
		scenarioID, p.ID, p.Name, string(p.Role), string(p.Fuel),
		p.Capacity.String(), p.Price.String(),
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s", ErrDuplicateParticipant, p.ID)
	}
	return err
}

// pgxRows is the subset of pgx.Rows used by scanParticipants.
type pgxRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

// scanParticipants reads participant rows grouped by scenario id,
// preserving row order within each scenario.
func scanParticipants(rows pgxRows) (map[string][]model.Participant, error) {
	out := make(map[string][]model.Participant)
	for rows.Next() {
		var scenarioID, role, fuel, capS, priceS string
		var p model.Participant
		if err := rows.Scan(&scenarioID, &p.ID, &p.Name, &role, &fuel, &capS, &priceS); err != nil {
			return nil, err
		}
		p.Role = model.Role(role)
		p.Fuel = model.Fuel(fuel)

		var err error
		if p.Capacity, err = decimal.NewFromString(capS); err != nil {
			return nil, fmt.Errorf("participant %s capacity: %w", p.ID, err)
		}
		if p.Price, err = decimal.NewFromString(priceS); err != nil {
			return nil, fmt.Errorf("participant %s price: %w", p.ID, err)
		}
		out[scenarioID] = append(out[scenarioID], p)
	}
	return out, rows.Err()
}
