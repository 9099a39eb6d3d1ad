package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Store defines the interface for tempo data operations. Screen-time
// data goes through the whole-value GetValue/SetValue pair; the store
// never interprets the value it holds.
type Store interface {
	GetValue(ctx context.Context, key string) ([]byte, bool, error)
	SetValue(ctx context.Context, key string, value []byte) error
	DeleteValue(ctx context.Context, key string) error

	CreateUser(ctx context.Context, username, passwordHash string) (*User, error)
	UserByUsername(ctx context.Context, username string) (*User, error)
	UserByID(ctx context.Context, id string) (*User, error)

	AddBlockedDomain(ctx context.Context, domain string) error
	RemoveBlockedDomain(ctx context.Context, domain string) error
	BlockedDomains(ctx context.Context) ([]BlockedDomain, error)
	IsBlocked(ctx context.Context, domain string) (bool, error)

	GetStats(ctx context.Context) (*Stats, error)
	PurgeAll(ctx context.Context) error
	Close() error
}

// SQLiteStore implements Store backed by a SQLite database.
type SQLiteStore struct {
	db *sql.DB

	// Prepared statements
	getValue    *sql.Stmt
	setValue    *sql.Stmt
	deleteValue *sql.Stmt
	insertUser  *sql.Stmt
	userByName  *sql.Stmt
	userByID    *sql.Stmt
	insertBlock *sql.Stmt
	deleteBlock *sql.Stmt
	blockByName *sql.Stmt
	listBlocked *sql.Stmt
}

// NewSQLiteStore creates a new SQLiteStore from an already-opened and
// migrated database.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	s := &SQLiteStore{db: db}

	if err := s.prepareStatements(); err != nil {
		return nil, fmt.Errorf("prepare statements: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) prepareStatements() error {
	var err error

	s.getValue, err = s.db.Prepare(`SELECT value FROM kv WHERE key = ?`)
	if err != nil {
		return err
	}

	s.setValue, err = s.db.Prepare(`
		INSERT INTO kv (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP
	`)
	if err != nil {
		return err
	}

	s.deleteValue, err = s.db.Prepare(`DELETE FROM kv WHERE key = ?`)
	if err != nil {
		return err
	}

	s.insertUser, err = s.db.Prepare(`
		INSERT INTO users (id, username, password_hash) VALUES (?, ?, ?)
	`)
	if err != nil {
		return err
	}

	s.userByName, err = s.db.Prepare(`
		SELECT id, username, password_hash, created_at FROM users WHERE username = ?
	`)
	if err != nil {
		return err
	}

	s.userByID, err = s.db.Prepare(`
		SELECT id, username, password_hash, created_at FROM users WHERE id = ?
	`)
	if err != nil {
		return err
	}

	s.insertBlock, err = s.db.Prepare(`
		INSERT OR IGNORE INTO blocked_domains (domain) VALUES (?)
	`)
	if err != nil {
		return err
	}

	s.deleteBlock, err = s.db.Prepare(`DELETE FROM blocked_domains WHERE domain = ?`)
	if err != nil {
		return err
	}

	s.blockByName, err = s.db.Prepare(`
		SELECT COUNT(*) FROM blocked_domains WHERE domain = ?
	`)
	if err != nil {
		return err
	}

	s.listBlocked, err = s.db.Prepare(`
		SELECT domain, created_at FROM blocked_domains ORDER BY domain
	`)
	if err != nil {
		return err
	}

	return nil
}

// GetValue reads the whole value stored under key. The second return is
// false when the key is absent.
func (s *SQLiteStore) GetValue(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	err := s.getValue.QueryRowContext(ctx, key).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get value %q: %w", key, err)
	}
	return value, true, nil
}

// SetValue replaces the whole value stored under key.
func (s *SQLiteStore) SetValue(ctx context.Context, key string, value []byte) error {
	if _, err := s.setValue.ExecContext(ctx, key, value); err != nil {
		return fmt.Errorf("set value %q: %w", key, err)
	}
	return nil
}

// DeleteValue removes key and its value. Deleting an absent key is not
// an error.
func (s *SQLiteStore) DeleteValue(ctx context.Context, key string) error {
	if _, err := s.deleteValue.ExecContext(ctx, key); err != nil {
		return fmt.Errorf("delete value %q: %w", key, err)
	}
	return nil
}

// CreateUser inserts a new user with a generated ID. A duplicate
// username returns an error.
func (s *SQLiteStore) CreateUser(ctx context.Context, username, passwordHash string) (*User, error) {
	existing, err := s.UserByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("username %q already exists", username)
	}

	u := &User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now(),
	}

	if _, err := s.insertUser.ExecContext(ctx, u.ID, u.Username, u.PasswordHash); err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return u, nil
}

// UserByUsername returns the user with the given username, or nil when
// no such user exists.
func (s *SQLiteStore) UserByUsername(ctx context.Context, username string) (*User, error) {
	return s.scanUser(s.userByName.QueryRowContext(ctx, username))
}

// UserByID returns the user with the given ID, or nil when absent.
func (s *SQLiteStore) UserByID(ctx context.Context, id string) (*User, error) {
	return s.scanUser(s.userByID.QueryRowContext(ctx, id))
}

func (s *SQLiteStore) scanUser(row *sql.Row) (*User, error) {
	var u User
	var createdAt string
	err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan user: %w", err)
	}
	u.CreatedAt, _ = parseTimestamp(createdAt)
	return &u, nil
}

// AddBlockedDomain adds a domain to the blocklist. Re-adding is a no-op.
func (s *SQLiteStore) AddBlockedDomain(ctx context.Context, domain string) error {
	if domain == "" {
		return fmt.Errorf("empty domain")
	}
	if _, err := s.insertBlock.ExecContext(ctx, domain); err != nil {
		return fmt.Errorf("add blocked domain: %w", err)
	}
	return nil
}

// RemoveBlockedDomain removes a domain from the blocklist.
func (s *SQLiteStore) RemoveBlockedDomain(ctx context.Context, domain string) error {
	res, err := s.deleteBlock.ExecContext(ctx, domain)
	if err != nil {
		return fmt.Errorf("remove blocked domain: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("domain %q is not blocked", domain)
	}
	return nil
}

// BlockedDomains lists the blocklist in domain order.
func (s *SQLiteStore) BlockedDomains(ctx context.Context) ([]BlockedDomain, error) {
	rows, err := s.listBlocked.QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("list blocked domains: %w", err)
	}
	defer rows.Close()

	out := []BlockedDomain{}
	for rows.Next() {
		var b BlockedDomain
		var createdAt string
		if err := rows.Scan(&b.Domain, &createdAt); err != nil {
			return nil, fmt.Errorf("scan blocked domain: %w", err)
		}
		b.CreatedAt, _ = parseTimestamp(createdAt)
		out = append(out, b)
	}
	return out, rows.Err()
}

// IsBlocked reports whether domain is on the blocklist.
func (s *SQLiteStore) IsBlocked(ctx context.Context, domain string) (bool, error) {
	var count int
	if err := s.blockByName.QueryRowContext(ctx, domain).Scan(&count); err != nil {
		return false, fmt.Errorf("check blocked domain: %w", err)
	}
	return count > 0, nil
}

// GetStats returns row counts per table.
func (s *SQLiteStore) GetStats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}

	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM kv").Scan(&stats.Keys); err != nil {
		return nil, fmt.Errorf("count kv: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&stats.Users); err != nil {
		return nil, fmt.Errorf("count users: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM blocked_domains").Scan(&stats.BlockedDomains); err != nil {
		return nil, fmt.Errorf("count blocked domains: %w", err)
	}

	return stats, nil
}

// PurgeAll deletes all stored data.
func (s *SQLiteStore) PurgeAll(ctx context.Context) error {
	stmts := []string{
		"DELETE FROM kv",
		"DELETE FROM users",
		"DELETE FROM blocked_domains",
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("purge (%s): %w", stmt, err)
		}
	}
	return nil
}

// parseTimestamp tries several common SQLite timestamp formats.
func parseTimestamp(s string) (time.Time, error) {
	formats := []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02T15:04:05Z",
		"2006-01-02 15:04:05",
	}
	for _, f := range formats {
		if t, err := time.Parse(f, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse timestamp: %s", s)
}

// Close releases all prepared statements. The underlying *sql.DB is NOT
// closed — that is the caller's responsibility.
func (s *SQLiteStore) Close() error {
	stmts := []*sql.Stmt{
		s.getValue, s.setValue, s.deleteValue,
		s.insertUser, s.userByName, s.userByID,
		s.insertBlock, s.deleteBlock, s.blockByName, s.listBlocked,
	}
	for _, stmt := range stmts {
		if stmt != nil {
			stmt.Close()
		}
	}
	return nil
}
