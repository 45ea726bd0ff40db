// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package archive persists canonical papers with their enrichments and
// operator annotations in SQLite. Identity-key uniqueness is the sole
// deduplication mechanism: canonical fields are written once at first
// insertion and never overwritten.
package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/litwatch/pkg/types"
)

// ErrNotFound reports a write or lookup against an identity key the
// archive does not hold.
var ErrNotFound = errors.New("paper not found")

// Storage layouts. The timestamp layout is fixed-width UTC so string
// comparison orders chronologically.
const (
	dateLayout      = "2006-01-02"
	timestampLayout = "2006-01-02T15:04:05.000000000Z"
)

// Store manages the archive SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens or creates the archive database at path, creating the
// schema when missing. The connection enables WAL journaling, foreign
// keys, and a busy timeout so a reader alongside the single writer
// does not error out.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating archive directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS papers (
			identity_key TEXT PRIMARY KEY,
			source TEXT NOT NULL,
			title TEXT NOT NULL DEFAULT '',
			abstract TEXT NOT NULL DEFAULT '',
			authors TEXT NOT NULL DEFAULT '[]',
			journal TEXT NOT NULL DEFAULT '',
			published_at TEXT NOT NULL,
			date_estimated INTEGER NOT NULL DEFAULT 0,
			external_url TEXT NOT NULL DEFAULT '',
			first_seen_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS enrichments (
			identity_key TEXT PRIMARY KEY REFERENCES papers(identity_key),
			relevance_score INTEGER CHECK (relevance_score BETWEEN 1 AND 10),
			summary TEXT NOT NULL DEFAULT '',
			key_finding TEXT NOT NULL DEFAULT '',
			tags TEXT NOT NULL DEFAULT '[]',
			scored_at TEXT NOT NULL,
			scoring_status TEXT NOT NULL
				CHECK (scoring_status IN ('scored', 'failed-permanently')),
			failure_reason TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS annotations (
			identity_key TEXT PRIMARY KEY REFERENCES papers(identity_key),
			starred INTEGER NOT NULL DEFAULT 0,
			note TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE INDEX IF NOT EXISTS idx_papers_published ON papers(published_at DESC, first_seen_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_papers_source ON papers(source)`,
		`CREATE INDEX IF NOT EXISTS idx_enrichments_score ON enrichments(relevance_score DESC)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Exists reports whether the archive holds identityKey.
func (s *Store) Exists(ctx context.Context, identityKey string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM papers WHERE identity_key = ?`, identityKey,
	).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking paper: %w", err)
	}
	return true, nil
}

// InsertIfAbsent inserts the paper unless its identity key is already
// present, in one statement so concurrent inserters cannot race a
// check against the write. Returns true when the paper was inserted,
// false when the key already existed. Existing rows are never touched.
func (s *Store) InsertIfAbsent(ctx context.Context, p types.Paper) (bool, error) {
	if p.IdentityKey == "" {
		return false, fmt.Errorf("paper has no identity key")
	}

	authorsJSON, err := json.Marshal(p.Authors)
	if err != nil {
		return false, fmt.Errorf("encoding authors: %w", err)
	}

	firstSeen := p.FirstSeenAt
	if firstSeen.IsZero() {
		firstSeen = time.Now()
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO papers (identity_key, source, title, abstract, authors, journal,
			published_at, date_estimated, external_url, first_seen_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(identity_key) DO NOTHING`,
		p.IdentityKey, p.Source, p.Title, p.Abstract, string(authorsJSON), p.Journal,
		p.PublishedAt.UTC().Format(dateLayout), boolToInt(p.DateEstimated),
		p.ExternalURL, firstSeen.UTC().Format(timestampLayout),
	)
	if err != nil {
		return false, fmt.Errorf("inserting paper: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("reading insert result: %w", err)
	}
	return n > 0, nil
}

// ListUnscored returns papers still awaiting scoring, oldest arrival
// first so backlogs drain in order. Papers recorded failed-permanently
// have an enrichment row and are excluded. limit <= 0 returns all.
func (s *Store) ListUnscored(ctx context.Context, limit int) ([]types.Paper, error) {
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+paperColumns+`
		 FROM papers p
		 LEFT JOIN enrichments e ON e.identity_key = p.identity_key
		 WHERE e.identity_key IS NULL
		 ORDER BY p.first_seen_at ASC
		 LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing unscored papers: %w", err)
	}
	defer rows.Close()

	var papers []types.Paper
	for rows.Next() {
		p, err := scanPaper(rows)
		if err != nil {
			return nil, err
		}
		papers = append(papers, p)
	}
	return papers, rows.Err()
}

// WriteEnrichment attaches the scoring outcome to an existing paper,
// replacing any previous enrichment. Only terminal outcomes are
// stored; pending is the absence of a row. Returns ErrNotFound when
// the paper does not exist.
func (s *Store) WriteEnrichment(ctx context.Context, identityKey string, e types.Enrichment) error {
	switch e.Status {
	case types.ScoringScored:
		if e.RelevanceScore < 1 || e.RelevanceScore > 10 {
			return fmt.Errorf("relevance score %d out of range", e.RelevanceScore)
		}
	case types.ScoringFailed:
	default:
		return fmt.Errorf("cannot store enrichment with status %q", e.Status)
	}

	tagsJSON, err := json.Marshal(e.Tags)
	if err != nil {
		return fmt.Errorf("encoding tags: %w", err)
	}

	// Score column stays NULL on failed rows.
	var score any
	if e.Status == types.ScoringScored {
		score = e.RelevanceScore
	}

	scoredAt := e.ScoredAt
	if scoredAt.IsZero() {
		scoredAt = time.Now()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := paperExistsTx(ctx, tx, identityKey); err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO enrichments (identity_key, relevance_score, summary, key_finding,
			tags, scored_at, scoring_status, failure_reason)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(identity_key) DO UPDATE SET
			relevance_score=excluded.relevance_score, summary=excluded.summary,
			key_finding=excluded.key_finding, tags=excluded.tags,
			scored_at=excluded.scored_at, scoring_status=excluded.scoring_status,
			failure_reason=excluded.failure_reason`,
		identityKey, score, e.Summary, e.KeyFinding, string(tagsJSON),
		scoredAt.UTC().Format(timestampLayout), string(e.Status), e.FailureReason,
	)
	if err != nil {
		return fmt.Errorf("writing enrichment: %w", err)
	}

	return tx.Commit()
}

// DeleteEnrichment removes a paper's enrichment row, returning it to
// the pending state. This is the operator's re-queue path for papers
// recorded failed-permanently. Returns ErrNotFound when the paper does
// not exist; a paper with no enrichment is already pending and is left
// as is.
func (s *Store) DeleteEnrichment(ctx context.Context, identityKey string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := paperExistsTx(ctx, tx, identityKey); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM enrichments WHERE identity_key = ?`, identityKey); err != nil {
		return fmt.Errorf("deleting enrichment: %w", err)
	}

	return tx.Commit()
}

// UpsertAnnotation creates or replaces a paper's operator annotation.
// Returns ErrNotFound when the paper does not exist.
func (s *Store) UpsertAnnotation(ctx context.Context, identityKey string, a types.Annotation) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := paperExistsTx(ctx, tx, identityKey); err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO annotations (identity_key, starred, note)
		 VALUES (?, ?, ?)
		 ON CONFLICT(identity_key) DO UPDATE SET
			starred=excluded.starred, note=excluded.note`,
		identityKey, boolToInt(a.Starred), a.Note,
	)
	if err != nil {
		return fmt.Errorf("writing annotation: %w", err)
	}

	return tx.Commit()
}

// paperExistsTx verifies the paper inside the surrounding transaction.
func paperExistsTx(ctx context.Context, tx *sql.Tx, identityKey string) error {
	var one int
	err := tx.QueryRowContext(ctx,
		`SELECT 1 FROM papers WHERE identity_key = ?`, identityKey,
	).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s", ErrNotFound, identityKey)
	}
	if err != nil {
		return fmt.Errorf("checking paper: %w", err)
	}
	return nil
}

// paperColumns is the scan order shared by every paper SELECT.
const paperColumns = `p.identity_key, p.source, p.title, p.abstract, p.authors,
	p.journal, p.published_at, p.date_estimated, p.external_url, p.first_seen_at`

// rowScanner covers *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanPaper(row rowScanner) (types.Paper, error) {
	var p types.Paper
	var authorsJSON string
	var published, firstSeen string
	var dateEstimated int

	err := row.Scan(&p.IdentityKey, &p.Source, &p.Title, &p.Abstract, &authorsJSON,
		&p.Journal, &published, &dateEstimated, &p.ExternalURL, &firstSeen)
	if err != nil {
		return types.Paper{}, fmt.Errorf("scanning paper: %w", err)
	}

	if err := json.Unmarshal([]byte(authorsJSON), &p.Authors); err != nil {
		return types.Paper{}, fmt.Errorf("decoding authors for %s: %w", p.IdentityKey, err)
	}
	if p.PublishedAt, err = time.Parse(dateLayout, published); err != nil {
		return types.Paper{}, fmt.Errorf("decoding published_at for %s: %w", p.IdentityKey, err)
	}
	if p.FirstSeenAt, err = time.Parse(timestampLayout, firstSeen); err != nil {
		return types.Paper{}, fmt.Errorf("decoding first_seen_at for %s: %w", p.IdentityKey, err)
	}
	p.DateEstimated = dateEstimated != 0

	return p, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
