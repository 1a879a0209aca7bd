package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/ayusman/airsketch/internal/stroke"
)

// Setting keys.
const (
	KeyBrushColor  = "brush.color"
	KeyBrushWidth  = "brush.width"
	KeyBrushCap    = "brush.cap"
	KeyCameraIndex = "camera.index"
)

// SettingsRepository stores key-value settings.
type SettingsRepository struct {
	db *sql.DB
}

// Settings returns the settings repository for this store.
func (s *Store) Settings() *SettingsRepository {
	return &SettingsRepository{db: s.db}
}

// Get returns the value for key, or ErrNotFound.
func (r *SettingsRepository) Get(key string) (string, error) {
	var value string
	err := r.db.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", err
	}
	return value, nil
}

// Set inserts or replaces the value for key.
func (r *SettingsRepository) Set(key, value string) error {
	_, err := r.db.Exec(
		`INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now(),
	)
	return err
}

// All returns every stored setting.
func (r *SettingsRepository) All() (map[string]string, error) {
	rows, err := r.db.Query(`SELECT key, value FROM settings ORDER BY key`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	settings := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, err
		}
		settings[key] = value
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return settings, nil
}

// Delete removes key. Deleting a missing key returns ErrNotFound.
func (r *SettingsRepository) Delete(key string) error {
	result, err := r.db.Exec(`DELETE FROM settings WHERE key = ?`, key)
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

// SaveBrush persists the brush in one transaction.
func (r *SettingsRepository) SaveBrush(b stroke.Brush) error {
	if err := b.Validate(); err != nil {
		return err
	}

	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(
		`INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := time.Now()
	values := [][2]string{
		{KeyBrushColor, stroke.HexColor(b.Color)},
		{KeyBrushWidth, strconv.Itoa(b.Width)},
		{KeyBrushCap, b.Cap.String()},
	}
	for _, kv := range values {
		if _, err := stmt.Exec(kv[0], kv[1], now); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// LoadBrush returns the persisted brush. It returns ErrNotFound when no brush
// was saved, and an error wrapping stroke.ErrInvalidBrush when the stored
// values no longer form a valid brush.
func (r *SettingsRepository) LoadBrush() (stroke.Brush, error) {
	colour, err := r.Get(KeyBrushColor)
	if err != nil {
		return stroke.Brush{}, err
	}
	width, err := r.Get(KeyBrushWidth)
	if err != nil {
		return stroke.Brush{}, err
	}
	capName, err := r.Get(KeyBrushCap)
	if err != nil {
		return stroke.Brush{}, err
	}

	var b stroke.Brush
	if b.Color, err = stroke.ParseHexColor(colour); err != nil {
		return stroke.Brush{}, err
	}
	if b.Width, err = strconv.Atoi(width); err != nil {
		return stroke.Brush{}, fmt.Errorf("%w: stored width %q", stroke.ErrInvalidBrush, width)
	}
	if b.Cap, err = stroke.ParseCap(capName); err != nil {
		return stroke.Brush{}, err
	}
	if err := b.Validate(); err != nil {
		return stroke.Brush{}, err
	}
	return b, nil
}

// SaveCameraIndex persists the selected camera.
func (r *SettingsRepository) SaveCameraIndex(index int) error {
	return r.Set(KeyCameraIndex, strconv.Itoa(index))
}

// LoadCameraIndex returns the persisted camera index, or ErrNotFound.
func (r *SettingsRepository) LoadCameraIndex() (int, error) {
	value, err := r.Get(KeyCameraIndex)
	if err != nil {
		return 0, err
	}
	index, err := strconv.Atoi(value)
	if err != nil || index < 0 {
		return 0, fmt.Errorf("invalid stored camera index %q", value)
	}
	return index, nil
}
