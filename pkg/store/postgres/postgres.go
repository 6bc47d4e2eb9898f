// Package postgres provides a PostgreSQL backed pipeline store. Definitions
// are stored as JSONB documents keyed by pipeline id.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lensflow/lensflow/pkg/models"
	"github.com/lensflow/lensflow/pkg/store"
	"github.com/lensflow/lensflow/pkg/store/sqlbase"
	"github.com/lib/pq"
)

const uniqueViolation = "23505"

type Store struct {
	db *sql.DB
}

func NewStore(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.PingContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	err = sqlbase.NewMigrationManager(db, migrations()).Run()
	if err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Pipelines(ctx context.Context) ([]*models.PipelineDefinition, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT definition FROM pipelines ORDER BY id")
	if err != nil {
		return nil, store.NewStoreError("Pipelines", "", err)
	}
	defer rows.Close()

	var pipelines []*models.PipelineDefinition

	for rows.Next() {
		var raw []byte

		err = rows.Scan(&raw)
		if err != nil {
			return nil, store.NewStoreError("Pipelines", "", err)
		}

		var def models.PipelineDefinition

		err = json.Unmarshal(raw, &def)
		if err != nil {
			return nil, store.NewStoreError("Pipelines", "", err)
		}

		pipelines = append(pipelines, &def)
	}

	if err := rows.Err(); err != nil {
		return nil, store.NewStoreError("Pipelines", "", err)
	}

	return pipelines, nil
}

func (s *Store) SavePipeline(ctx context.Context, def *models.PipelineDefinition) error {
	raw, err := json.Marshal(def)
	if err != nil {
		return store.NewStoreError("SavePipeline", def.ID, err)
	}

	_, err = s.db.ExecContext(ctx,
		"INSERT INTO pipelines (id, name, definition) VALUES ($1, $2, $3)",
		def.ID, def.Name, raw,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return store.NewStoreError("SavePipeline", def.ID, store.ErrPipelineExists)
		}

		return store.NewStoreError("SavePipeline", def.ID, err)
	}

	return nil
}

func (s *Store) PipelineByID(ctx context.Context, id string) (*models.PipelineDefinition, error) {
	var raw []byte

	err := s.db.QueryRowContext(ctx, "SELECT definition FROM pipelines WHERE id = $1", id).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.NewStoreError("PipelineByID", id, store.ErrPipelineNotFound)
		}

		return nil, store.NewStoreError("PipelineByID", id, err)
	}

	var def models.PipelineDefinition

	err = json.Unmarshal(raw, &def)
	if err != nil {
		return nil, store.NewStoreError("PipelineByID", id, err)
	}

	return &def, nil
}

func (s *Store) HealthCheck(ctx context.Context) error {
	err := s.db.PingContext(ctx)
	if err != nil {
		return store.NewStoreError("HealthCheck", "", err)
	}

	return nil
}

func (s *Store) Close(_ context.Context) error {
	return s.db.Close()
}
