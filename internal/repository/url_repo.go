package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"

	"github.com/darkodi/shortlink/internal/config"
	"github.com/darkodi/shortlink/internal/model"
	"github.com/darkodi/shortlink/internal/repository/migrations"
)

var (
	ErrNotFound      = errors.New("url not found")
	ErrDuplicateCode = errors.New("short code already exists")
)

const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

const sqliteSchema = `
	CREATE TABLE IF NOT EXISTS url_mappings (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		short_code TEXT UNIQUE NOT NULL,
		original_url TEXT NOT NULL,
		owner TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		expires_at DATETIME,
		click_count INTEGER NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_url_mappings_owner ON url_mappings(owner);
	CREATE INDEX IF NOT EXISTS idx_url_mappings_expires_at ON url_mappings(expires_at);
`

const mappingColumns = "id, short_code, original_url, owner, created_at, expires_at, click_count"

// URLRepository stores mappings in SQLite or PostgreSQL
type URLRepository struct {
	db     *sql.DB
	driver string
}

// NewURLRepository opens the configured database and makes sure the schema exists
func NewURLRepository(cfg *config.DatabaseConfig) (*URLRepository, error) {
	switch cfg.Driver {
	case DriverSQLite:
		return NewSQLiteRepository(cfg.Path)
	case DriverPostgres:
		return NewPostgresRepository(cfg)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Driver)
	}
}

// NewSQLiteRepository opens a SQLite database; ":memory:" works for tests
func NewSQLiteRepository(dbPath string) (*URLRepository, error) {
	db, err := sql.Open(DriverSQLite, dbPath)
	if err != nil {
		return nil, err
	}

	// SQLite serializes writers anyway, and an in-memory database only
	// exists on the connection that created it.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &URLRepository{db: db, driver: DriverSQLite}, nil
}

// NewPostgresRepository connects to PostgreSQL and applies migrations
func NewPostgresRepository(cfg *config.DatabaseConfig) (*URLRepository, error) {
	if err := migrations.Up(cfg.URL); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	db, err := sql.Open(DriverPostgres, cfg.URL)
	if err != nil {
		return nil, err
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &URLRepository{db: db, driver: DriverPostgres}, nil
}

// Close releases the database handle
func (r *URLRepository) Close() error {
	return r.db.Close()
}

// Ping checks the database connection
func (r *URLRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Save inserts a new mapping (ID == 0) or updates an existing one.
// Updating a mapping that no longer exists returns ErrNotFound.
func (r *URLRepository) Save(ctx context.Context, m *model.Mapping) error {
	if m.ID == 0 {
		return r.insert(ctx, m)
	}

	result, err := r.db.ExecContext(ctx, r.rebind(
		"UPDATE url_mappings SET original_url = ?, expires_at = ?, click_count = ? WHERE id = ?"),
		m.OriginalURL, nullTime(m.ExpiresAt), m.ClickCount, m.ID,
	)
	if err != nil {
		return fmt.Errorf("update mapping %d: %w", m.ID, err)
	}

	// the row was deleted since it was read
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update mapping %d: %w", m.ID, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *URLRepository) insert(ctx context.Context, m *model.Mapping) error {
	query := "INSERT INTO url_mappings (short_code, original_url, owner, created_at, expires_at, click_count) VALUES (?, ?, ?, ?, ?, ?)"
	args := []any{m.ShortCode, m.OriginalURL, m.Owner, m.CreatedAt.UTC(), nullTime(m.ExpiresAt), m.ClickCount}

	if r.driver == DriverPostgres {
		// lib/pq does not support LastInsertId
		err := r.db.QueryRowContext(ctx, r.rebind(query)+" RETURNING id", args...).Scan(&m.ID)
		if err != nil {
			return r.insertError(m.ShortCode, err)
		}
		return nil
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return r.insertError(m.ShortCode, err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	m.ID = id
	return nil
}

func (r *URLRepository) insertError(code string, err error) error {
	if isUniqueViolation(err) {
		return fmt.Errorf("insert %s: %w", code, ErrDuplicateCode)
	}
	return fmt.Errorf("insert %s: %w", code, err)
}

// FindByCode returns the mapping for a short code or ErrNotFound
func (r *URLRepository) FindByCode(ctx context.Context, shortCode string) (*model.Mapping, error) {
	row := r.db.QueryRowContext(ctx, r.rebind(
		"SELECT "+mappingColumns+" FROM url_mappings WHERE short_code = ?"),
		shortCode,
	)

	m, err := scanMapping(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", shortCode, err)
	}
	return m, nil
}

// ExistsByCode reports whether a short code is taken
func (r *URLRepository) ExistsByCode(ctx context.Context, shortCode string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, r.rebind(
		"SELECT EXISTS(SELECT 1 FROM url_mappings WHERE short_code = ?)"),
		shortCode,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("exists %s: %w", shortCode, err)
	}
	return exists, nil
}

// Delete removes a mapping by id; deleting a missing row is not an error
func (r *URLRepository) Delete(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, r.rebind("DELETE FROM url_mappings WHERE id = ?"), id)
	if err != nil {
		return fmt.Errorf("delete mapping %d: %w", id, err)
	}
	return nil
}

// FindByOwner lists an owner's mappings, newest first
func (r *URLRepository) FindByOwner(ctx context.Context, owner string) ([]*model.Mapping, error) {
	rows, err := r.db.QueryContext(ctx, r.rebind(
		"SELECT "+mappingColumns+" FROM url_mappings WHERE owner = ? ORDER BY created_at DESC, id DESC"),
		owner,
	)
	if err != nil {
		return nil, fmt.Errorf("find by owner: %w", err)
	}
	defer rows.Close()

	mappings := make([]*model.Mapping, 0)
	for rows.Next() {
		m, err := scanMapping(rows)
		if err != nil {
			return nil, fmt.Errorf("scan mapping: %w", err)
		}
		mappings = append(mappings, m)
	}
	return mappings, rows.Err()
}

// DeleteExpired removes every mapping whose expiry is before the given time
func (r *URLRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, r.rebind(
		"DELETE FROM url_mappings WHERE expires_at IS NOT NULL AND expires_at < ?"),
		before.UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("delete expired: %w", err)
	}
	return result.RowsAffected()
}

// ============================================================
// HELPERS
// ============================================================

type scanner interface {
	Scan(dest ...any) error
}

func scanMapping(s scanner) (*model.Mapping, error) {
	m := &model.Mapping{}
	var expiresAt sql.NullTime
	err := s.Scan(&m.ID, &m.ShortCode, &m.OriginalURL, &m.Owner, &m.CreatedAt, &expiresAt, &m.ClickCount)
	if err != nil {
		return nil, err
	}
	m.CreatedAt = m.CreatedAt.UTC()
	if expiresAt.Valid {
		t := expiresAt.Time.UTC()
		m.ExpiresAt = &t
	}
	return m, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

// rebind turns "?" placeholders into "$n" for PostgreSQL
func (r *URLRepository) rebind(query string) string {
	if r.driver != DriverPostgres {
		return query
	}

	var b strings.Builder
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505" // unique_violation
	}
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return false
}
