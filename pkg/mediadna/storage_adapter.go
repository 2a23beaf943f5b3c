//go:build !js && !wasm

package mediadna

import (
	"context"

	"github.com/himanishpuri/MediaDNA/pkg/mediadna/storage"
)

// ErrNotFound is returned for unknown media IDs.
var ErrNotFound = storage.ErrNotFound

// NewSQLiteStorage opens the gorm/SQLite backend at dbPath.
func NewSQLiteStorage(dbPath string) (Storage, error) {
	db, err := storage.NewDBClientWithPath(dbPath)
	if err != nil {
		return nil, err
	}
	return db, nil
}

// NewMongoStorage connects to the Mongo backend.
func NewMongoStorage(ctx context.Context, uri, database string) (Storage, error) {
	db, err := storage.NewMongoClient(ctx, uri, database)
	if err != nil {
		return nil, err
	}
	return db, nil
}
