// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pdiddy/litwatch/pkg/types"
)

// Entry is one paper joined with whatever enrichment and annotation it
// has. Enrichment and Annotation are nil when the corresponding row is
// absent; a nil Enrichment means the paper is pending.
type Entry struct {
	Paper      types.Paper       `json:"paper" yaml:"paper"`
	Enrichment *types.Enrichment `json:"enrichment,omitempty" yaml:"enrichment,omitempty"`
	Annotation *types.Annotation `json:"annotation,omitempty" yaml:"annotation,omitempty"`
}

// QueryOptions filter and bound an archive listing. Zero values leave
// the corresponding filter off.
type QueryOptions struct {
	// MinScore drops entries scored below it. Pending and failed
	// papers have no score and are dropped by any value above zero.
	MinScore int
	// Sources keeps only papers first attributed to these sources.
	Sources []string
	// Starred keeps only starred papers.
	Starred bool
	// Tag keeps only entries whose enrichment carries the tag.
	Tag string
	// Limit bounds the listing; <= 0 returns all matches.
	Limit int
}

const entryColumns = paperColumns + `,
	e.relevance_score, e.summary, e.key_finding, e.tags, e.scored_at,
	e.scoring_status, e.failure_reason,
	a.starred, a.note`

const entryJoins = `
	 FROM papers p
	 LEFT JOIN enrichments e ON e.identity_key = p.identity_key
	 LEFT JOIN annotations a ON a.identity_key = p.identity_key`

// Get returns the full entry for one identity key, or ErrNotFound.
func (s *Store) Get(ctx context.Context, identityKey string) (Entry, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+entryColumns+entryJoins+`
		 WHERE p.identity_key = ?`, identityKey)

	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, fmt.Errorf("%w: %s", ErrNotFound, identityKey)
	}
	if err != nil {
		return Entry{}, err
	}
	return entry, nil
}

// Query lists entries newest first, by publication date then arrival
// time. Each call is a single statement, so the listing is a
// consistent snapshot even while ingestion or scoring is writing.
func (s *Store) Query(ctx context.Context, opts QueryOptions) ([]Entry, error) {
	var conds []string
	var args []any

	if opts.MinScore > 0 {
		conds = append(conds, "e.relevance_score >= ?")
		args = append(args, opts.MinScore)
	}
	if len(opts.Sources) > 0 {
		placeholders := strings.Repeat("?, ", len(opts.Sources))
		conds = append(conds, "p.source IN ("+placeholders[:len(placeholders)-2]+")")
		for _, src := range opts.Sources {
			args = append(args, src)
		}
	}
	if opts.Starred {
		conds = append(conds, "a.starred = 1")
	}
	if opts.Tag != "" {
		conds = append(conds, "EXISTS (SELECT 1 FROM json_each(e.tags) WHERE json_each.value = ?)")
		args = append(args, opts.Tag)
	}

	var query strings.Builder
	query.WriteString(`SELECT ` + entryColumns + entryJoins)
	if len(conds) > 0 {
		query.WriteString("\n\t WHERE " + strings.Join(conds, " AND "))
	}
	query.WriteString("\n\t ORDER BY p.published_at DESC, p.first_seen_at DESC")
	limit := opts.Limit
	if limit <= 0 {
		limit = -1
	}
	query.WriteString("\n\t LIMIT ?")
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("querying archive: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func scanEntry(row rowScanner) (Entry, error) {
	var e Entry
	var authorsJSON string
	var published, firstSeen string
	var dateEstimated int

	var score sql.NullInt64
	var summary, keyFinding, tagsJSON, scoredAt, status, failureReason sql.NullString
	var starred sql.NullInt64
	var note sql.NullString

	err := row.Scan(
		&e.Paper.IdentityKey, &e.Paper.Source, &e.Paper.Title, &e.Paper.Abstract,
		&authorsJSON, &e.Paper.Journal, &published, &dateEstimated,
		&e.Paper.ExternalURL, &firstSeen,
		&score, &summary, &keyFinding, &tagsJSON, &scoredAt, &status, &failureReason,
		&starred, &note,
	)
	if err != nil {
		return Entry{}, err
	}

	if err := json.Unmarshal([]byte(authorsJSON), &e.Paper.Authors); err != nil {
		return Entry{}, fmt.Errorf("decoding authors for %s: %w", e.Paper.IdentityKey, err)
	}
	if e.Paper.PublishedAt, err = time.Parse(dateLayout, published); err != nil {
		return Entry{}, fmt.Errorf("decoding published_at for %s: %w", e.Paper.IdentityKey, err)
	}
	if e.Paper.FirstSeenAt, err = time.Parse(timestampLayout, firstSeen); err != nil {
		return Entry{}, fmt.Errorf("decoding first_seen_at for %s: %w", e.Paper.IdentityKey, err)
	}
	e.Paper.DateEstimated = dateEstimated != 0

	if status.Valid {
		enrichment := types.Enrichment{
			RelevanceScore: int(score.Int64),
			Summary:        summary.String,
			KeyFinding:     keyFinding.String,
			Status:         types.ScoringStatus(status.String),
			FailureReason:  failureReason.String,
		}
		if tagsJSON.Valid {
			if err := json.Unmarshal([]byte(tagsJSON.String), &enrichment.Tags); err != nil {
				return Entry{}, fmt.Errorf("decoding tags for %s: %w", e.Paper.IdentityKey, err)
			}
		}
		if scoredAt.Valid {
			if enrichment.ScoredAt, err = time.Parse(timestampLayout, scoredAt.String); err != nil {
				return Entry{}, fmt.Errorf("decoding scored_at for %s: %w", e.Paper.IdentityKey, err)
			}
		}
		e.Enrichment = &enrichment
	}

	if starred.Valid || note.Valid {
		e.Annotation = &types.Annotation{
			Starred: starred.Int64 != 0,
			Note:    note.String,
		}
	}

	return e, nil
}

// Stats summarizes archive contents for the operator.
type Stats struct {
	Papers        int            `json:"papers" yaml:"papers"`
	Scored        int            `json:"scored" yaml:"scored"`
	Failed        int            `json:"failed" yaml:"failed"`
	Pending       int            `json:"pending" yaml:"pending"`
	HighRelevance int            `json:"high_relevance" yaml:"high_relevance"`
	Starred       int            `json:"starred" yaml:"starred"`
	BySource      map[string]int `json:"by_source" yaml:"by_source"`
}

// Stats counts papers by scoring state and source. minDisplayScore
// sets the high-relevance threshold.
func (s *Store) Stats(ctx context.Context, minDisplayScore int) (Stats, error) {
	stats := Stats{BySource: make(map[string]int)}

	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
			COUNT(CASE WHEN e.scoring_status = 'scored' THEN 1 END),
			COUNT(CASE WHEN e.scoring_status = 'failed-permanently' THEN 1 END),
			COUNT(CASE WHEN e.identity_key IS NULL THEN 1 END),
			COUNT(CASE WHEN e.relevance_score >= ? THEN 1 END)
		FROM papers p
		LEFT JOIN enrichments e ON e.identity_key = p.identity_key`,
		minDisplayScore,
	).Scan(&stats.Papers, &stats.Scored, &stats.Failed, &stats.Pending, &stats.HighRelevance)
	if err != nil {
		return Stats{}, fmt.Errorf("counting papers: %w", err)
	}

	err = s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM annotations WHERE starred = 1`,
	).Scan(&stats.Starred)
	if err != nil {
		return Stats{}, fmt.Errorf("counting starred papers: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT source, COUNT(*) FROM papers GROUP BY source`)
	if err != nil {
		return Stats{}, fmt.Errorf("counting papers by source: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var source string
		var n int
		if err := rows.Scan(&source, &n); err != nil {
			return Stats{}, fmt.Errorf("scanning source count: %w", err)
		}
		stats.BySource[source] = n
	}
	return stats, rows.Err()
}
