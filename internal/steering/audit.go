package steering

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/beamlab/piezo-core/internal/infrastructure/database"
)

// Audit outcome values.
const (
	auditOutcomeAccepted = "accepted"
	auditOutcomeRejected = "rejected"
	auditOutcomeFailed   = "failed"
)

// defaultAuditLimit caps List results when no limit is given.
const defaultAuditLimit = 100

// AuditEntry is one recorded operator command and its outcome.
type AuditEntry struct {
	ID        string    `json:"id"`
	Axis      string    `json:"axis"`
	Command   string    `json:"command"`
	Value     *float64  `json:"value,omitempty"`
	Outcome   string    `json:"outcome"`
	Reason    string    `json:"reason,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Recorder accepts audit entries for persistence.
type Recorder interface {
	Record(ctx context.Context, entry AuditEntry) error
}

// AuditFilter narrows List results.
type AuditFilter struct {
	// Axis restricts results to one axis ("x" or "y"). Empty means both.
	Axis string
	// Outcome restricts results to one outcome. Empty means all.
	Outcome string
	// Limit caps the number of entries returned, newest first.
	// Zero means the default of 100.
	Limit int
}

// AuditRepository is the SQLite-backed command audit trail.
type AuditRepository struct {
	db *database.DB
}

// NewAuditRepository creates an AuditRepository.
func NewAuditRepository(db *database.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// Record implements Recorder. A short unique ID is generated when the
// entry carries none.
func (r *AuditRepository) Record(ctx context.Context, entry AuditEntry) error {
	if entry.ID == "" {
		entry.ID = "cmd-" + uuid.NewString()[:8]
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO command_audit (id, axis, command, value, outcome, reason, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		entry.ID,
		entry.Axis,
		entry.Command,
		nullableFloat(entry.Value),
		entry.Outcome,
		nullableString(entry.Reason),
		entry.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("recording audit entry: %w", err)
	}
	return nil
}

// List returns audit entries matching the filter, newest first.
func (r *AuditRepository) List(ctx context.Context, filter AuditFilter) ([]AuditEntry, error) {
	query := "SELECT id, axis, command, value, outcome, reason, created_at FROM command_audit"
	var (
		conditions []string
		args       []interface{}
	)
	if filter.Axis != "" {
		conditions = append(conditions, "axis = ?")
		args = append(args, filter.Axis)
	}
	if filter.Outcome != "" {
		conditions = append(conditions, "outcome = ?")
		args = append(args, filter.Outcome)
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultAuditLimit
	}
	query += " ORDER BY created_at DESC, id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := r.db.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying audit entries: %w", err)
	}
	defer rows.Close()

	var entries []AuditEntry
	for rows.Next() {
		var (
			entry     AuditEntry
			value     sql.NullFloat64
			reason    sql.NullString
			createdAt string
		)
		if err := rows.Scan(&entry.ID, &entry.Axis, &entry.Command, &value, &entry.Outcome, &reason, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning audit row: %w", err)
		}
		if value.Valid {
			entry.Value = &value.Float64
		}
		entry.Reason = reason.String
		entry.CreatedAt, _ = time.Parse(time.RFC3339, createdAt) //nolint:errcheck // Format is controlled
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating audit rows: %w", err)
	}
	return entries, nil
}

func nullableString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func nullableFloat(f *float64) interface{} {
	if f == nil {
		return nil
	}
	return *f
}
