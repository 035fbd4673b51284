// Package vectorstore indexes news documents per symbol in badger and serves
// ranked retrieval over them.
package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/timshannon/badgerhold/v4"

	"github.com/dyike/CortexFolio/models"
)

var documentNamespace = uuid.MustParse("5b0c6f9e-0d5e-4f3a-9a57-3c1d2e4f8a10")

// searchScanLimit caps how many of the newest documents a search scores.
const searchScanLimit = 5000

// Index is the retrieval surface used by the analysis and chat pipelines.
type Index interface {
	AddDocuments(ctx context.Context, docs []models.Document, symbol string) ([]string, error)
	Search(ctx context.Context, query, symbol string, limit int) ([]models.SearchHit, error)
}

type record struct {
	ID          string
	Symbol      string `badgerhold:"index"`
	Title       string
	Content     string
	URL         string
	Source      string
	PublishedAt time.Time
	IndexedAt   time.Time
	Terms       []string
}

// Store is a badgerhold backed Index.
type Store struct {
	store     *badgerhold.Store
	now       func() time.Time
	log       zerolog.Logger
	scanLimit int
}

// Open opens (creating if needed) the index under dir. An empty dir keeps
// the index in memory.
func Open(dir string, log zerolog.Logger) (*Store, error) {
	options := badgerhold.DefaultOptions
	options.Logger = nil
	if dir == "" {
		options.InMemory = true
	} else {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create index dir: %w", err)
		}
		options.Dir = dir
		options.ValueDir = dir
	}

	store, err := badgerhold.Open(options)
	if err != nil {
		return nil, fmt.Errorf("open index: %w", err)
	}
	return &Store{
		store:     store,
		now:       time.Now,
		log:       log.With().Str("component", "vectorstore").Logger(),
		scanLimit: searchScanLimit,
	}, nil
}

func (s *Store) Close() error {
	if s.store != nil {
		return s.store.Close()
	}
	return nil
}

// AddDocuments upserts docs under symbol. A document's id is derived from
// its symbol and URL (or title when it has no URL), so re-indexing the same
// article replaces it.
func (s *Store) AddDocuments(ctx context.Context, docs []models.Document, symbol string) ([]string, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	ids := make([]string, 0, len(docs))
	now := s.now().UTC()

	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			return ids, err
		}
		key := doc.URL
		if key == "" {
			key = doc.Title + "\n" + doc.Content
		}
		id := uuid.NewSHA1(documentNamespace, []byte(symbol+"|"+key)).String()

		rec := &record{
			ID:          id,
			Symbol:      symbol,
			Title:       doc.Title,
			Content:     doc.Content,
			URL:         doc.URL,
			Source:      doc.Source,
			PublishedAt: doc.PublishedAt,
			IndexedAt:   now,
			Terms:       uniqueTerms(doc.Title + " " + doc.Content),
		}
		if err := s.store.Upsert(id, rec); err != nil {
			return ids, fmt.Errorf("index document %s: %w", id, err)
		}
		ids = append(ids, id)
	}

	s.log.Debug().Str("symbol", symbol).Int("documents", len(ids)).Msg("documents indexed")
	return ids, nil
}

// Search ranks documents under symbol (all symbols when empty) by the share
// of query terms they contain, title matches counting double. Ties go to the
// most recently published document. Up to limit hits are returned even when
// some score zero. Only the newest scanLimit documents in scope are scored;
// badgerhold still sorts the whole scope in memory, which suits a local index.
func (s *Store) Search(ctx context.Context, query, symbol string, limit int) ([]models.SearchHit, error) {
	if limit <= 0 {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var recs []record
	q := &badgerhold.Query{}
	if symbol = strings.ToUpper(strings.TrimSpace(symbol)); symbol != "" {
		q = badgerhold.Where("Symbol").Eq(symbol)
	}
	q = q.SortBy("PublishedAt").Reverse().Limit(s.scanLimit)
	if err := s.store.Find(&recs, q); err != nil && !errors.Is(err, badgerhold.ErrNotFound) {
		return nil, fmt.Errorf("search index: %w", err)
	}

	terms := uniqueTerms(query)
	hits := make([]models.SearchHit, 0, len(recs))
	for _, rec := range recs {
		hits = append(hits, models.SearchHit{
			ID:          rec.ID,
			Title:       rec.Title,
			Content:     rec.Content,
			URL:         rec.URL,
			Source:      rec.Source,
			PublishedAt: rec.PublishedAt,
			Score:       score(terms, rec),
		})
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].PublishedAt.After(hits[j].PublishedAt)
	})
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

// Count returns the number of documents stored under symbol.
func (s *Store) Count(symbol string) (uint64, error) {
	return s.store.Count(&record{}, badgerhold.Where("Symbol").Eq(strings.ToUpper(symbol)))
}

// score is in [0, 1].
func score(queryTerms []string, rec record) float64 {
	if len(queryTerms) == 0 {
		return 0
	}
	body := make(map[string]struct{}, len(rec.Terms))
	for _, t := range rec.Terms {
		body[t] = struct{}{}
	}
	title := make(map[string]struct{})
	for _, t := range uniqueTerms(rec.Title) {
		title[t] = struct{}{}
	}

	var got float64
	for _, t := range queryTerms {
		if _, ok := title[t]; ok {
			got += 2
		} else if _, ok := body[t]; ok {
			got++
		}
	}
	return got / float64(2*len(queryTerms))
}

var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "be": {}, "by": {},
	"for": {}, "from": {}, "in": {}, "is": {}, "it": {}, "of": {}, "on": {}, "or": {},
	"the": {}, "to": {}, "was": {}, "with": {}, "what": {}, "how": {}, "about": {},
}

func uniqueTerms(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '.'
	})
	seen := make(map[string]struct{}, len(fields))
	terms := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.Trim(f, ".")
		if len(f) < 2 {
			continue
		}
		if _, stop := stopWords[f]; stop {
			continue
		}
		if _, dup := seen[f]; dup {
			continue
		}
		seen[f] = struct{}{}
		terms = append(terms, f)
	}
	return terms
}
