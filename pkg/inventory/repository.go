package inventory

import (
	"errors"
	"os"

	"go.uber.org/zap"

	"snackstand/pkg/storage/jsonfile"
)

// Repository reads and rewrites the stock file wholesale on every access so
// the on-disk document always mirrors the latest state. It performs no
// locking of its own: every call is serialized by the shop service loop.
type Repository struct {
	path   string
	logger *zap.Logger
}

// NewRepository wires the file path so the service can stay storage-agnostic.
func NewRepository(path string, logger *zap.Logger) *Repository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Repository{path: path, logger: logger}
}

// Load returns the full stock map. A missing file means an empty stand; a
// corrupt one is reported as a recoverable anomaly and also treated as empty.
func (r *Repository) Load() (map[string]Item, error) {
	items := make(map[string]Item)
	if err := jsonfile.Load(r.path, &items); err != nil {
		switch {
		case errors.Is(err, os.ErrNotExist):
			return map[string]Item{}, nil
		case errors.Is(err, jsonfile.ErrCorrupt):
			r.logger.Warn("stock file unreadable, starting from an empty inventory",
				zap.String("path", r.path), zap.Error(err))
			return map[string]Item{}, nil
		default:
			return nil, err
		}
	}
	return items, nil
}

// Save overwrites the stock file with the supplied map.
func (r *Repository) Save(items map[string]Item) error {
	return jsonfile.Save(r.path, items)
}
