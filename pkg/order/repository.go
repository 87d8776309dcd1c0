package order

import (
	"errors"
	"os"

	"go.uber.org/zap"

	"snackstand/pkg/storage/jsonfile"
)

// Ledger persists the ordered sequence of orders as a single JSON array,
// rewritten wholesale after every mutation. Like the inventory repository it
// holds no lock; the shop service loop is the only caller.
type Ledger struct {
	path   string
	logger *zap.Logger
}

// NewLedger wires the file path for the order history.
func NewLedger(path string, logger *zap.Logger) *Ledger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ledger{path: path, logger: logger}
}

// Load returns every order in ledger sequence. Missing and corrupt files both
// yield an empty history; corruption is reported as a recoverable anomaly.
func (l *Ledger) Load() ([]Order, error) {
	var orders []Order
	if err := jsonfile.Load(l.path, &orders); err != nil {
		switch {
		case errors.Is(err, os.ErrNotExist):
			return []Order{}, nil
		case errors.Is(err, jsonfile.ErrCorrupt):
			l.logger.Warn("order ledger unreadable, starting from an empty history",
				zap.String("path", l.path), zap.Error(err))
			return []Order{}, nil
		default:
			return nil, err
		}
	}
	return orders, nil
}

// Save overwrites the ledger with the supplied sequence.
func (l *Ledger) Save(orders []Order) error {
	return jsonfile.Save(l.path, orders)
}
