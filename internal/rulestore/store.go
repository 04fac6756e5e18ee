package rulestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/homemade/remap/mapping"
)

var (
	ErrNotFound      = errors.New("rule set not found in store")
	ErrAlreadyExists = errors.New("rule set already exists in store")
)

// StoredRuleSet is one row of the rule_sets table.
type StoredRuleSet struct {
	Code      string    `db:"code"`
	Document  string    `db:"document"`
	Version   int       `db:"version"`
	UpdatedAt time.Time `db:"updated_at"`
}

type Store struct {
	db      *sqlx.DB
	queries *Queries
	logger  *slog.Logger
	now     func() time.Time
}

type StoreOption func(*Store)

func WithLogger(logger *slog.Logger) StoreOption {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) {
		s.now = now
	}
}

func New(db *sqlx.DB, opts ...StoreOption) (*Store, error) {
	queries, err := LoadQueries(db)
	if err != nil {
		return nil, err
	}
	s := &Store{db: db, queries: queries, logger: slog.Default(), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Migrate creates the schema when it does not exist yet.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.queries.Exec(ctx, "create-rule-sets-table"); err != nil {
		return fmt.Errorf("failed to create rule_sets table: %w", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, code string) (StoredRuleSet, error) {
	var row StoredRuleSet
	err := s.queries.Get(ctx, "get-rule-set", &row, code)
	if errors.Is(err, sql.ErrNoRows) {
		return row, fmt.Errorf("%w: '%s'", ErrNotFound, code)
	}
	if err != nil {
		return row, fmt.Errorf("failed to get rule set '%s': %w", code, err)
	}
	return row, nil
}

func (s *Store) List(ctx context.Context) ([]StoredRuleSet, error) {
	var rows []StoredRuleSet
	if err := s.queries.Select(ctx, "list-rule-sets", &rows); err != nil {
		return nil, fmt.Errorf("failed to list rule sets: %w", err)
	}
	return rows, nil
}

func (s *Store) Codes(ctx context.Context) ([]string, error) {
	var codes []string
	if err := s.queries.Select(ctx, "list-rule-set-codes", &codes); err != nil {
		return nil, fmt.Errorf("failed to list rule set codes: %w", err)
	}
	return codes, nil
}

// Create stores a new document and fails when the code is taken.
func (s *Store) Create(ctx context.Context, code string, document []byte) error {
	if _, err := s.Get(ctx, code); err == nil {
		return fmt.Errorf("%w: '%s'", ErrAlreadyExists, code)
	} else if !errors.Is(err, ErrNotFound) {
		return err
	}
	if _, err := s.queries.Exec(ctx, "insert-rule-set", code, string(document), s.now().UTC()); err != nil {
		return fmt.Errorf("failed to insert rule set '%s': %w", code, err)
	}
	return nil
}

// Save inserts or replaces the document for code, bumping its version.
func (s *Store) Save(ctx context.Context, code string, document []byte) error {
	if _, err := s.queries.Exec(ctx, "upsert-rule-set", code, string(document), s.now().UTC()); err != nil {
		return fmt.Errorf("failed to save rule set '%s': %w", code, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, code string) error {
	res, err := s.queries.Exec(ctx, "delete-rule-set", code)
	if err != nil {
		return fmt.Errorf("failed to delete rule set '%s': %w", code, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: '%s'", ErrNotFound, code)
	}
	return nil
}

// Load parses every stored document. Documents that no longer parse are
// logged and left out so one bad row cannot block a reload.
func (s *Store) Load(ctx context.Context) ([]mapping.RuleSetConfig, error) {
	rows, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	result := make([]mapping.RuleSetConfig, 0, len(rows))
	for _, row := range rows {
		cfg, err := mapping.ParseRuleSetJSON([]byte(row.Document))
		if err != nil {
			s.logger.Warn("skipping stored rule set", slog.String("code", row.Code), slog.String("error", err.Error()))
			continue
		}
		result = append(result, cfg)
	}
	return result, nil
}
