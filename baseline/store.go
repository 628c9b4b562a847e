// Package baseline persists eval reports so later runs can be compared
// against a known-good reference. Stores keep reports by name; "default" is
// the conventional name for the main baseline.
package baseline

import (
	"context"
	"errors"

	"github.com/aic-holdings/bot-slack-core/evals"
)

// ErrNotFound is returned when no baseline exists under the given name.
var ErrNotFound = errors.New("baseline not found")

// ErrInvalidName is returned for empty or unusable baseline names.
var ErrInvalidName = errors.New("invalid baseline name")

// Store persists and retrieves named eval reports.
type Store interface {
	// Save stores a report under name, replacing any existing baseline.
	Save(ctx context.Context, name string, report *evals.Report) error

	// Load retrieves the report stored under name.
	Load(ctx context.Context, name string) (*evals.Report, error)

	// List returns the stored baseline names in sorted order.
	List(ctx context.Context) ([]string, error)

	// Delete removes the baseline under name. Deleting a missing baseline
	// is not an error.
	Delete(ctx context.Context, name string) error

	// Close releases any resources held by the store.
	Close() error
}

// DefaultName is the conventional name for the primary baseline.
const DefaultName = "default"
