// Package file provides a JSON file based pipeline store, one file per
// pipeline under a root directory. Suited for development and single-node
// deployments.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/lensflow/lensflow/pkg/models"
	"github.com/lensflow/lensflow/pkg/store"
)

const (
	dirPerm  = 0o755
	filePerm = 0o600
)

type Store struct {
	root string
}

func NewStore(root string) (*Store, error) {
	err := os.MkdirAll(root, dirPerm)
	if err != nil {
		return nil, fmt.Errorf("failed to create pipeline store directory %s: %w", root, err)
	}

	return &Store{root: root}, nil
}

// Pipelines returns every stored definition, ordered by filename.
func (s *Store) Pipelines(_ context.Context) ([]*models.PipelineDefinition, error) {
	root := os.DirFS(s.root)

	files, err := fs.Glob(root, "*.json")
	if err != nil {
		return nil, store.NewStoreError("Pipelines", "", err)
	}

	pipelines := make([]*models.PipelineDefinition, 0, len(files))

	for _, file := range files {
		id := strings.TrimSuffix(file, ".json")

		def, err := s.read(id)
		if err != nil {
			return nil, err
		}

		pipelines = append(pipelines, def)
	}

	return pipelines, nil
}

// SavePipeline writes the definition to <id>.json. Saving an id that already
// exists fails with ErrPipelineExists.
func (s *Store) SavePipeline(_ context.Context, def *models.PipelineDefinition) error {
	path := s.path(def.ID)

	_, err := os.Stat(path)
	if err == nil {
		return store.NewStoreError("SavePipeline", def.ID, store.ErrPipelineExists)
	}

	if !errors.Is(err, fs.ErrNotExist) {
		return store.NewStoreError("SavePipeline", def.ID, err)
	}

	data, err := json.MarshalIndent(def, "", "  ")
	if err != nil {
		return store.NewStoreError("SavePipeline", def.ID, err)
	}

	err = os.WriteFile(path, data, filePerm)
	if err != nil {
		return store.NewStoreError("SavePipeline", def.ID, err)
	}

	return nil
}

func (s *Store) PipelineByID(_ context.Context, id string) (*models.PipelineDefinition, error) {
	return s.read(id)
}

func (s *Store) HealthCheck(_ context.Context) error {
	info, err := os.Stat(s.root)
	if err != nil {
		return store.NewStoreError("HealthCheck", "", err)
	}

	if !info.IsDir() {
		return store.NewStoreError("HealthCheck", "", fmt.Errorf("%s is not a directory", s.root))
	}

	return nil
}

func (s *Store) Close(_ context.Context) error {
	return nil
}

func (s *Store) read(id string) (*models.PipelineDefinition, error) {
	data, err := os.ReadFile(s.path(id))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, store.NewStoreError("PipelineByID", id, store.ErrPipelineNotFound)
		}

		return nil, store.NewStoreError("PipelineByID", id, err)
	}

	var def models.PipelineDefinition

	err = json.Unmarshal(data, &def)
	if err != nil {
		return nil, store.NewStoreError("PipelineByID", id, fmt.Errorf("failed to decode pipeline file: %w", err))
	}

	return &def, nil
}

func (s *Store) path(id string) string {
	return filepath.Join(s.root, id+".json")
}
