package automation

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Repository defines the interface for automation persistence.
// It allows SQLite and in-memory implementations and keeps the registry
// testable without a database.
type Repository interface {
	GetByID(ctx context.Context, entityID string) (*Automation, error)
	List(ctx context.Context) ([]Automation, error)
	Create(ctx context.Context, a *Automation) error
	Update(ctx context.Context, a *Automation) error
	Delete(ctx context.Context, entityID string) error
	SetEnabled(ctx context.Context, entityID string, enabled bool) error
}

// automationColumns is the SELECT column list for automation queries.
const automationColumns = `entity_id, name, area_id, enabled, created_at, updated_at`

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// GetByID retrieves an automation by entity ID.
func (r *SQLiteRepository) GetByID(ctx context.Context, entityID string) (*Automation, error) {
	query := `SELECT ` + automationColumns + ` FROM automations WHERE entity_id = ?`

	a, err := scanAutomation(r.db.QueryRowContext(ctx, query, entityID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAutomationNotFound
		}
		return nil, fmt.Errorf("querying automation: %w", err)
	}

	labels, err := r.labelsFor(ctx, entityID)
	if err != nil {
		return nil, err
	}
	a.Labels = labels
	return a, nil
}

// List retrieves all automations ordered by entity ID.
func (r *SQLiteRepository) List(ctx context.Context) ([]Automation, error) {
	automations, err := r.queryAutomations(ctx)
	if err != nil {
		return nil, err
	}

	// Labels are read after the automation rows are closed; the pool has
	// a single connection.
	labels, err := r.allLabels(ctx)
	if err != nil {
		return nil, err
	}
	for i := range automations {
		automations[i].Labels = labels[automations[i].EntityID]
	}
	return automations, nil
}

func (r *SQLiteRepository) queryAutomations(ctx context.Context) ([]Automation, error) {
	query := `SELECT ` + automationColumns + ` FROM automations ORDER BY entity_id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying automations: %w", err)
	}
	defer rows.Close()

	var automations []Automation
	for rows.Next() {
		a, scanErr := scanAutomation(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scanning automation: %w", scanErr)
		}
		automations = append(automations, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating automations: %w", err)
	}
	return automations, nil
}

// Create inserts a new automation and its labels in one transaction.
func (r *SQLiteRepository) Create(ctx context.Context, a *Automation) error {
	now := time.Now().UTC()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	a.UpdatedAt = now

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // Rollback is no-op after commit

	_, err = tx.ExecContext(ctx, `
		INSERT INTO automations (entity_id, name, area_id, enabled, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		a.EntityID,
		a.Name,
		nullableString(a.AreaID),
		boolToInt(a.Enabled),
		a.CreatedAt.Format(time.RFC3339),
		a.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrAutomationExists
		}
		return fmt.Errorf("inserting automation: %w", err)
	}

	if err := replaceLabels(ctx, tx, a.EntityID, a.Labels); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing automation: %w", err)
	}
	return nil
}

// Update modifies name, area, enabled and labels of an existing automation.
func (r *SQLiteRepository) Update(ctx context.Context, a *Automation) error {
	a.UpdatedAt = time.Now().UTC()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // Rollback is no-op after commit

	result, err := tx.ExecContext(ctx, `
		UPDATE automations SET name = ?, area_id = ?, enabled = ?, updated_at = ?
		WHERE entity_id = ?`,
		a.Name,
		nullableString(a.AreaID),
		boolToInt(a.Enabled),
		a.UpdatedAt.Format(time.RFC3339),
		a.EntityID,
	)
	if err != nil {
		return fmt.Errorf("updating automation: %w", err)
	}
	if err := requireRow(result); err != nil {
		return err
	}

	if err := replaceLabels(ctx, tx, a.EntityID, a.Labels); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing automation: %w", err)
	}
	return nil
}

// Delete removes an automation. Labels cascade.
func (r *SQLiteRepository) Delete(ctx context.Context, entityID string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM automations WHERE entity_id = ?", entityID)
	if err != nil {
		return fmt.Errorf("deleting automation: %w", err)
	}
	return requireRow(result)
}

// SetEnabled records the enabled flag without touching other fields.
func (r *SQLiteRepository) SetEnabled(ctx context.Context, entityID string, enabled bool) error {
	result, err := r.db.ExecContext(ctx,
		"UPDATE automations SET enabled = ?, updated_at = ? WHERE entity_id = ?",
		boolToInt(enabled),
		time.Now().UTC().Format(time.RFC3339),
		entityID,
	)
	if err != nil {
		return fmt.Errorf("updating enabled: %w", err)
	}
	return requireRow(result)
}

func (r *SQLiteRepository) labelsFor(ctx context.Context, entityID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT label FROM automation_labels WHERE entity_id = ? ORDER BY label", entityID)
	if err != nil {
		return nil, fmt.Errorf("querying labels: %w", err)
	}
	defer rows.Close()

	var labels []string
	for rows.Next() {
		var l string
		if err := rows.Scan(&l); err != nil {
			return nil, fmt.Errorf("scanning label: %w", err)
		}
		labels = append(labels, l)
	}
	return labels, rows.Err()
}

func (r *SQLiteRepository) allLabels(ctx context.Context) (map[string][]string, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT entity_id, label FROM automation_labels ORDER BY entity_id, label")
	if err != nil {
		return nil, fmt.Errorf("querying labels: %w", err)
	}
	defer rows.Close()

	labels := make(map[string][]string)
	for rows.Next() {
		var id, l string
		if err := rows.Scan(&id, &l); err != nil {
			return nil, fmt.Errorf("scanning label: %w", err)
		}
		labels[id] = append(labels[id], l)
	}
	return labels, rows.Err()
}

func replaceLabels(ctx context.Context, tx *sql.Tx, entityID string, labels []string) error {
	if _, err := tx.ExecContext(ctx, "DELETE FROM automation_labels WHERE entity_id = ?", entityID); err != nil {
		return fmt.Errorf("clearing labels: %w", err)
	}
	for _, l := range labels {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO automation_labels (entity_id, label) VALUES (?, ?)", entityID, l); err != nil {
			return fmt.Errorf("inserting label %q: %w", l, err)
		}
	}
	return nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanAutomation(scanner rowScanner) (*Automation, error) {
	var (
		a                    Automation
		areaID               sql.NullString
		enabled              int
		createdAt, updatedAt string
	)
	if err := scanner.Scan(&a.EntityID, &a.Name, &areaID, &enabled, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	a.Enabled = enabled != 0
	if areaID.Valid {
		a.AreaID = &areaID.String
	}
	if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
		a.CreatedAt = t
	}
	if t, err := time.Parse(time.RFC3339, updatedAt); err == nil {
		a.UpdatedAt = t
	}
	return &a, nil
}

// ─── SQL Helpers ────────────────────────────────────────────────────────────

func requireRow(result sql.Result) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrAutomationNotFound
	}
	return nil
}

func nullableString(s *string) sql.NullString {
	if s == nil || *s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "primary key constraint")
}
