package store

import (
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a requested resource does not exist.
var ErrNotFound = errors.New("not found")

// DrawingKind tells how a file entered the history.
type DrawingKind string

const (
	DrawingSaved    DrawingKind = "saved"
	DrawingOpened   DrawingKind = "opened"
	DrawingExported DrawingKind = "exported"
)

// Drawing is one entry of the drawings history.
type Drawing struct {
	ID        string      `json:"id"`
	Path      string      `json:"path"`
	Kind      DrawingKind `json:"kind"`
	Format    string      `json:"format"`
	Width     int         `json:"width"`
	Height    int         `json:"height"`
	Segments  int         `json:"segments"`
	CreatedAt time.Time   `json:"created_at"`
}

// DrawingRepository provides CRUD operations for the drawings history.
type DrawingRepository struct {
	db *sql.DB
}

// Drawings returns the drawing repository for this store.
func (s *Store) Drawings() *DrawingRepository {
	return &DrawingRepository{db: s.db}
}

// Create inserts d, assigning a new ID when it has none.
func (r *DrawingRepository) Create(d *Drawing) error {
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	d.CreatedAt = time.Now()

	_, err := r.db.Exec(
		`INSERT INTO drawings (id, path, kind, format, width, height, segments, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.Path, string(d.Kind), d.Format, d.Width, d.Height, d.Segments, d.CreatedAt,
	)
	return err
}

// GetByID retrieves a drawing by its ID.
func (r *DrawingRepository) GetByID(id string) (*Drawing, error) {
	d := &Drawing{}
	var kind string

	err := r.db.QueryRow(
		`SELECT id, path, kind, format, width, height, segments, created_at
		 FROM drawings WHERE id = ?`,
		id,
	).Scan(&d.ID, &d.Path, &kind, &d.Format, &d.Width, &d.Height, &d.Segments, &d.CreatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	d.Kind = DrawingKind(kind)
	return d, nil
}

// List returns the most recent drawings first. A limit <= 0 returns all.
func (r *DrawingRepository) List(limit int) ([]*Drawing, error) {
	query := `SELECT id, path, kind, format, width, height, segments, created_at
		 FROM drawings ORDER BY created_at DESC, rowid DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	drawings := []*Drawing{}
	for rows.Next() {
		d := &Drawing{}
		var kind string
		if err := rows.Scan(&d.ID, &d.Path, &kind, &d.Format, &d.Width, &d.Height, &d.Segments, &d.CreatedAt); err != nil {
			return nil, err
		}
		d.Kind = DrawingKind(kind)
		drawings = append(drawings, d)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return drawings, nil
}

// Delete removes a drawing entry. The file on disk is left alone.
func (r *DrawingRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM drawings WHERE id = ?`, id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}
