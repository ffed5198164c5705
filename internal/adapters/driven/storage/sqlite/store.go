package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/ontomap/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/ontomap/internal/core/domain"
	"github.com/custodia-labs/ontomap/internal/core/ports/driven"
)

// Store is a unified SQLite-based storage that provides access to
// all store interfaces through wrapper types.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates a new SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.ontomap/data/ontomap.db.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".ontomap", "data")
	}

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "ontomap.db")

	// WAL lets searches read while a crawl writes.
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// RuleStore returns a RuleStore interface backed by this store.
func (s *Store) RuleStore() driven.RuleStore {
	return &ruleStore{store: s}
}

// OntologyTermStore returns an OntologyTermStore interface backed by this store.
func (s *Store) OntologyTermStore() driven.OntologyTermStore {
	return &termStore{store: s}
}

// FrontierStore returns a FrontierStore interface backed by this store.
func (s *Store) FrontierStore() driven.FrontierStore {
	return &frontierStore{store: s}
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys embed.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// "001_initial.up.sql" -> 1
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}

		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
	}

	return nil
}

// ==================== Rule Store ====================

// ruleStore implements driven.RuleStore.
type ruleStore struct {
	store *Store
}

var _ driven.RuleStore = (*ruleStore)(nil)

const ruleColumns = `record_key, record_id, kind, attributes, status,
	mapped_term_url, mapped_term_label, mapped_by, updated_at`

// Save stores or updates a rule.
func (s *ruleStore) Save(ctx context.Context, rule domain.Rule) error {
	attrsJSON, err := json.Marshal(rule.Record.Attributes)
	if err != nil {
		return fmt.Errorf("marshalling attributes: %w", err)
	}
	if rule.UpdatedAt.IsZero() {
		rule.UpdatedAt = time.Now().UTC()
	}

	_, err = s.store.db.ExecContext(ctx, `
		INSERT INTO rules (`+ruleColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(record_key) DO UPDATE SET
			record_id = excluded.record_id,
			kind = excluded.kind,
			attributes = excluded.attributes,
			status = excluded.status,
			mapped_term_url = excluded.mapped_term_url,
			mapped_term_label = excluded.mapped_term_label,
			mapped_by = excluded.mapped_by,
			updated_at = excluded.updated_at
	`, rule.Key(), rule.Record.ID, string(rule.Record.Kind), string(attrsJSON), string(rule.Status),
		nullString(rule.MappedTermURL), nullString(rule.MappedTermLabel), nullString(string(rule.MappedBy)),
		rule.UpdatedAt)

	if err != nil {
		return fmt.Errorf("saving rule: %w", err)
	}
	return nil
}

// Get retrieves a rule by record key.
func (s *ruleStore) Get(ctx context.Context, key string) (*domain.Rule, error) {
	row := s.store.db.QueryRowContext(ctx, `SELECT `+ruleColumns+` FROM rules WHERE record_key = ?`, key)

	rule, err := scanRule(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return rule, nil
}

// ListMapped returns mapped rules of a kind ordered by key.
func (s *ruleStore) ListMapped(ctx context.Context, kind domain.EntityKind) ([]domain.Rule, error) {
	return s.list(ctx, kind, `status = ? AND mapped_term_url IS NOT NULL AND mapped_term_url != ''`,
		string(domain.RuleMapped))
}

// ListUnmapped returns unmapped rules of a kind ordered by key.
func (s *ruleStore) ListUnmapped(ctx context.Context, kind domain.EntityKind) ([]domain.Rule, error) {
	return s.list(ctx, kind, `NOT (status = ? AND mapped_term_url IS NOT NULL AND mapped_term_url != '')`,
		string(domain.RuleMapped))
}

func (s *ruleStore) list(ctx context.Context, kind domain.EntityKind, where string, args ...any) ([]domain.Rule, error) {
	query := `SELECT ` + ruleColumns + ` FROM rules WHERE ` + where
	if kind != "" {
		query += ` AND kind = ?`
		args = append(args, string(kind))
	}
	query += ` ORDER BY record_key`

	rows, err := s.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying rules: %w", err)
	}
	defer rows.Close()

	var rules []domain.Rule //nolint:prealloc // size unknown from query
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		rules = append(rules, *rule)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rules: %w", err)
	}

	return rules, nil
}

// scanner abstracts sql.Row and sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRule(row scanner) (*domain.Rule, error) {
	var rule domain.Rule
	var key, kind, attrsJSON, status string
	var termURL, termLabel, mappedBy sql.NullString
	var updatedAt sql.NullTime
	if err := row.Scan(&key, &rule.Record.ID, &kind, &attrsJSON, &status,
		&termURL, &termLabel, &mappedBy, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning rule: %w", err)
	}

	if err := json.Unmarshal([]byte(attrsJSON), &rule.Record.Attributes); err != nil {
		return nil, fmt.Errorf("unmarshaling attributes: %w", err)
	}

	rule.Record.Kind = domain.EntityKind(kind)
	rule.Status = domain.RuleStatus(status)
	rule.MappedTermURL = termURL.String
	rule.MappedTermLabel = termLabel.String
	rule.MappedBy = domain.MappingSource(mappedBy.String)
	if updatedAt.Valid {
		rule.UpdatedAt = updatedAt.Time
	}
	return &rule, nil
}

// ==================== Ontology Term Store ====================

// termStore implements driven.OntologyTermStore.
type termStore struct {
	store *Store
}

var _ driven.OntologyTermStore = (*termStore)(nil)

const termColumns = `url, type, id, label, synonyms, definition`

// SaveTerms inserts or replaces terms in one transaction.
func (s *termStore) SaveTerms(ctx context.Context, terms []domain.OntologyTerm) error {
	if len(terms) == 0 {
		return nil
	}

	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO ontology_terms (`+termColumns+`)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(url, type) DO UPDATE SET
			id = excluded.id,
			label = excluded.label,
			synonyms = excluded.synonyms,
			definition = excluded.definition
	`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for _, t := range terms {
		if t.ID == "" {
			t.ID = domain.TermID(t.Type, t.URL)
		}
		synonyms := t.Synonyms
		if synonyms == nil {
			synonyms = []string{}
		}
		synonymsJSON, err := json.Marshal(synonyms)
		if err != nil {
			return fmt.Errorf("marshalling synonyms: %w", err)
		}
		if _, err := stmt.ExecContext(ctx, t.URL, string(t.Type), t.ID, t.Label,
			string(synonymsJSON), nullString(t.Definition)); err != nil {
			return fmt.Errorf("saving term %s: %w", t.URL, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// Get retrieves a term by id.
func (s *termStore) Get(ctx context.Context, id string) (*domain.OntologyTerm, error) {
	row := s.store.db.QueryRowContext(ctx, `SELECT `+termColumns+` FROM ontology_terms WHERE id = ? LIMIT 1`, id)

	term, err := scanTerm(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return term, nil
}

// Exists reports whether a term with the key is stored.
func (s *termStore) Exists(ctx context.Context, key domain.TermKey) (bool, error) {
	var n int
	err := s.store.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM ontology_terms WHERE url = ? AND type = ?`, key.URL, string(key.Type)).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("checking term: %w", err)
	}
	return n > 0, nil
}

// List returns the terms of a type ordered by id.
func (s *termStore) List(ctx context.Context, t domain.TermType) ([]domain.OntologyTerm, error) {
	query := `SELECT ` + termColumns + ` FROM ontology_terms`
	var args []any
	if t != "" {
		query += ` WHERE type = ?`
		args = append(args, string(t))
	}
	query += ` ORDER BY id, url`

	rows, err := s.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying terms: %w", err)
	}
	defer rows.Close()

	var terms []domain.OntologyTerm //nolint:prealloc // size unknown from query
	for rows.Next() {
		term, err := scanTerm(rows)
		if err != nil {
			return nil, err
		}
		terms = append(terms, *term)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating terms: %w", err)
	}

	return terms, nil
}

// DeleteByType removes all terms of a type.
func (s *termStore) DeleteByType(ctx context.Context, t domain.TermType) (int, error) {
	res, err := s.store.db.ExecContext(ctx, `DELETE FROM ontology_terms WHERE type = ?`, string(t))
	if err != nil {
		return 0, fmt.Errorf("deleting terms: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting deleted terms: %w", err)
	}
	return int(n), nil
}

func scanTerm(row scanner) (*domain.OntologyTerm, error) {
	var term domain.OntologyTerm
	var typ, synonymsJSON string
	var definition sql.NullString
	if err := row.Scan(&term.URL, &typ, &term.ID, &term.Label, &synonymsJSON, &definition); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning term: %w", err)
	}

	if err := json.Unmarshal([]byte(synonymsJSON), &term.Synonyms); err != nil {
		return nil, fmt.Errorf("unmarshaling synonyms: %w", err)
	}
	if len(term.Synonyms) == 0 {
		term.Synonyms = nil
	}
	term.Type = domain.TermType(typ)
	term.Definition = definition.String
	return &term, nil
}

// ==================== Frontier Store ====================

// frontierStore implements driven.FrontierStore.
type frontierStore struct {
	store *Store
}

var _ driven.FrontierStore = (*frontierStore)(nil)

// Add inserts the entry if absent.
func (s *frontierStore) Add(ctx context.Context, entry domain.UnprocessedOntologyURL) (bool, error) {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	res, err := s.store.db.ExecContext(ctx, `
		INSERT INTO unprocessed_ontology_urls (url, type, attempts, last_error, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(url, type) DO NOTHING
	`, entry.URL, string(entry.Type), entry.Attempts, nullString(entry.LastError), entry.CreatedAt)
	if err != nil {
		return false, fmt.Errorf("adding frontier entry: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("counting inserted entries: %w", err)
	}
	return n > 0, nil
}

// Update stores the attempt counter and error message of an entry.
func (s *frontierStore) Update(ctx context.Context, entry domain.UnprocessedOntologyURL) error {
	res, err := s.store.db.ExecContext(ctx, `
		UPDATE unprocessed_ontology_urls SET attempts = ?, last_error = ?
		WHERE url = ? AND type = ?
	`, entry.Attempts, nullString(entry.LastError), entry.URL, string(entry.Type))
	if err != nil {
		return fmt.Errorf("updating frontier entry: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("counting updated entries: %w", err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Delete removes an entry.
func (s *frontierStore) Delete(ctx context.Context, url string, t domain.TermType) error {
	_, err := s.store.db.ExecContext(ctx,
		`DELETE FROM unprocessed_ontology_urls WHERE url = ? AND type = ?`, url, string(t))
	if err != nil {
		return fmt.Errorf("deleting frontier entry: %w", err)
	}
	return nil
}

// List returns every entry in insertion order.
func (s *frontierStore) List(ctx context.Context) ([]domain.UnprocessedOntologyURL, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT url, type, attempts, last_error, created_at
		FROM unprocessed_ontology_urls ORDER BY seq
	`)
	if err != nil {
		return nil, fmt.Errorf("querying frontier: %w", err)
	}
	defer rows.Close()

	var entries []domain.UnprocessedOntologyURL //nolint:prealloc // size unknown from query
	for rows.Next() {
		var e domain.UnprocessedOntologyURL
		var typ string
		var lastError sql.NullString
		var createdAt sql.NullTime
		if err := rows.Scan(&e.URL, &typ, &e.Attempts, &lastError, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning frontier entry: %w", err)
		}
		e.Type = domain.TermType(typ)
		e.LastError = lastError.String
		if createdAt.Valid {
			e.CreatedAt = createdAt.Time
		}
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating frontier: %w", err)
	}

	return entries, nil
}

// ResetAttempts zeroes every attempt counter, keeping the last error.
func (s *frontierStore) ResetAttempts(ctx context.Context) (int, error) {
	res, err := s.store.db.ExecContext(ctx,
		`UPDATE unprocessed_ontology_urls SET attempts = 0 WHERE attempts != 0`)
	if err != nil {
		return 0, fmt.Errorf("resetting attempts: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting reset entries: %w", err)
	}
	return int(n), nil
}

// ==================== Helpers ====================

// nullString converts an empty string to NULL.
func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
