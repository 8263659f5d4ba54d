package steering

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/beamlab/piezo-core/internal/axis"
	"github.com/beamlab/piezo-core/internal/infrastructure/database"
)

// ErrNoAssignment indicates no axis assignment has been persisted yet.
var ErrNoAssignment = errors.New("steering: no axis assignment stored")

// Assignment maps the two steering axes to controller serial numbers.
type Assignment struct {
	SerialX   axis.Serial `json:"serial_x"`
	SerialY   axis.Serial `json:"serial_y"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// AssignmentStore persists the axis-to-serial assignment across restarts.
type AssignmentStore interface {
	// Load returns the stored assignment, or ErrNoAssignment when none
	// has been saved.
	Load(ctx context.Context) (Assignment, error)

	// Save replaces the stored assignment.
	Save(ctx context.Context, a Assignment) error
}

// AssignmentRepository is the SQLite-backed AssignmentStore. The table
// holds at most one row; every save overwrites it.
type AssignmentRepository struct {
	db *database.DB
}

// NewAssignmentRepository creates an AssignmentRepository.
func NewAssignmentRepository(db *database.DB) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

// Load implements AssignmentStore.
func (r *AssignmentRepository) Load(ctx context.Context) (Assignment, error) {
	var (
		rawX, rawY string
		updatedAt  string
	)
	err := r.db.QueryRowContext(ctx,
		"SELECT serial_x, serial_y, updated_at FROM axis_assignment WHERE id = 1",
	).Scan(&rawX, &rawY, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Assignment{}, ErrNoAssignment
	}
	if err != nil {
		return Assignment{}, fmt.Errorf("loading axis assignment: %w", err)
	}

	serialX, err := axis.ParseSerial(rawX)
	if err != nil {
		return Assignment{}, fmt.Errorf("stored serial_x invalid: %w", err)
	}
	serialY, err := axis.ParseSerial(rawY)
	if err != nil {
		return Assignment{}, fmt.Errorf("stored serial_y invalid: %w", err)
	}

	a := Assignment{SerialX: serialX, SerialY: serialY}
	a.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt) //nolint:errcheck // Format is controlled
	return a, nil
}

// Save implements AssignmentStore.
func (r *AssignmentRepository) Save(ctx context.Context, a Assignment) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO axis_assignment (id, serial_x, serial_y, updated_at)
		VALUES (1, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			serial_x = excluded.serial_x,
			serial_y = excluded.serial_y,
			updated_at = excluded.updated_at
	`,
		a.SerialX.String(),
		a.SerialY.String(),
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("saving axis assignment: %w", err)
	}
	return nil
}
