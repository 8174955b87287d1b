// Package arrangement persists the operator's UI arrangement: which panels
// are shown, their order and sizes. The document is opaque to the core and
// stored as JSON under a fixed key.
package arrangement

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// DefaultKey is the single arrangement slot used by the dashboard.
const DefaultKey = "dashboard"

var (
	// ErrNotFound is returned by Load when nothing has been saved yet.
	ErrNotFound = errors.New("arrangement: not found")

	// ErrInvalidDocument is returned by Save for a document that is not a
	// JSON object or array.
	ErrInvalidDocument = errors.New("arrangement: document must be a JSON object or array")
)

// Arrangement is a stored UI arrangement.
type Arrangement struct {
	Document  json.RawMessage `json:"document"`
	Revision  int64           `json:"revision"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Repository loads and saves the arrangement.
type Repository interface {
	Load(ctx context.Context) (*Arrangement, error)
	Save(ctx context.Context, doc json.RawMessage) (*Arrangement, error)
}

// SQLiteRepository implements Repository using the arrangement table.
type SQLiteRepository struct {
	db  *sql.DB
	key string
	now func() time.Time
}

// NewSQLiteRepository returns a repository for key. An empty key uses
// DefaultKey.
func NewSQLiteRepository(db *sql.DB, key string) *SQLiteRepository {
	if key == "" {
		key = DefaultKey
	}
	return &SQLiteRepository{db: db, key: key, now: time.Now}
}

// Load returns the saved arrangement or ErrNotFound.
func (r *SQLiteRepository) Load(ctx context.Context) (*Arrangement, error) {
	const query = `SELECT document, revision, updated_at FROM arrangement WHERE id = ?`
	var (
		doc       string
		a         Arrangement
		updatedAt string
	)
	err := r.db.QueryRowContext(ctx, query, r.key).Scan(&doc, &a.Revision, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading arrangement %s: %w", r.key, err)
	}
	a.Document = json.RawMessage(doc)
	if a.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
		return nil, fmt.Errorf("loading arrangement %s: parsing updated_at: %w", r.key, err)
	}
	return &a, nil
}

// Save replaces the stored document and bumps its revision.
func (r *SQLiteRepository) Save(ctx context.Context, doc json.RawMessage) (*Arrangement, error) {
	if err := validate(doc); err != nil {
		return nil, err
	}
	const query = `INSERT INTO arrangement (id, document, revision, updated_at)
		VALUES (?, ?, 1, ?)
		ON CONFLICT(id) DO UPDATE SET
			document = excluded.document,
			revision = arrangement.revision + 1,
			updated_at = excluded.updated_at
		RETURNING revision, updated_at`

	now := r.now().UTC().Format(time.RFC3339Nano)
	a := Arrangement{Document: doc}
	var updatedAt string
	if err := r.db.QueryRowContext(ctx, query, r.key, string(doc), now).Scan(&a.Revision, &updatedAt); err != nil {
		return nil, fmt.Errorf("saving arrangement %s: %w", r.key, err)
	}
	t, err := time.Parse(time.RFC3339Nano, updatedAt)
	if err != nil {
		return nil, fmt.Errorf("saving arrangement %s: parsing updated_at: %w", r.key, err)
	}
	a.UpdatedAt = t
	return &a, nil
}

func validate(doc json.RawMessage) error {
	if !json.Valid(doc) {
		return ErrInvalidDocument
	}
	for _, c := range doc {
		switch c {
		case ' ', '\t', '\n', '\r':
			continue
		case '{', '[':
			return nil
		default:
			return ErrInvalidDocument
		}
	}
	return ErrInvalidDocument
}
