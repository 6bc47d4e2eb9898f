// Package cmd provides common initialization for the lensflow binaries.
package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/lensflow/lensflow/pkg/store"
	"github.com/lensflow/lensflow/pkg/store/file"
	"github.com/lensflow/lensflow/pkg/store/postgres"
)

// NewStore builds a pipeline store from the database URL scheme: postgres
// URLs select the PostgreSQL store, anything else is treated as a file store
// root directory.
func NewStore(ctx context.Context, databaseURL string) (store.PipelineStore, error) {
	scheme, _, found := strings.Cut(databaseURL, "://")

	if found && (scheme == "postgres" || scheme == "postgresql") {
		st, err := postgres.NewStore(ctx, databaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize postgres store: %w", err)
		}

		return st, nil
	}

	root := databaseURL
	if found {
		root = strings.TrimPrefix(databaseURL, scheme+"://")
	}

	st, err := file.NewStore(root)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize file store: %w", err)
	}

	return st, nil
}
