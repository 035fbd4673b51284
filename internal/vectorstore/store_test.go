package vectorstore

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dyike/CortexFolio/models"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir(), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleDocs() []models.Document {
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	return []models.Document{
		{Title: "Apple earnings beat estimates", Content: "iPhone revenue grew strongly.", URL: "https://ex.com/1", Source: "Wire", PublishedAt: base},
		{Title: "Supply chain update", Content: "Apple suppliers report delays in Asia.", URL: "https://ex.com/2", Source: "Wire", PublishedAt: base.Add(time.Hour)},
		{Title: "Weather report", Content: "Sunny skies expected.", URL: "https://ex.com/3", Source: "Local", PublishedAt: base.Add(2 * time.Hour)},
	}
}

func TestAddDocumentsIsIdempotentPerURL(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	ids, err := s.AddDocuments(ctx, sampleDocs(), "aapl")
	require.NoError(t, err)
	require.Len(t, ids, 3)

	again, err := s.AddDocuments(ctx, sampleDocs(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, ids, again)

	n, err := s.Count("AAPL")
	require.NoError(t, err)
	assert.Equal(t, uint64(3), n)
}

func TestSearchRanksByTermOverlap(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	_, err := s.AddDocuments(ctx, sampleDocs(), "AAPL")
	require.NoError(t, err)

	hits, err := s.Search(ctx, "Apple earnings", "AAPL", 10)
	require.NoError(t, err)
	require.Len(t, hits, 3)
	assert.Equal(t, "Apple earnings beat estimates", hits[0].Title)
	assert.Equal(t, "Supply chain update", hits[1].Title)
	assert.Equal(t, 0.0, hits[2].Score)
	for _, h := range hits {
		assert.GreaterOrEqual(t, h.Score, 0.0)
		assert.LessOrEqual(t, h.Score, 1.0)
	}
}

func TestSearchScopesBySymbol(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	_, err := s.AddDocuments(ctx, sampleDocs()[:1], "AAPL")
	require.NoError(t, err)
	_, err = s.AddDocuments(ctx, []models.Document{{Title: "Microsoft cloud growth", URL: "https://ex.com/m"}}, "MSFT")
	require.NoError(t, err)

	hits, err := s.Search(ctx, "growth", "MSFT", 5)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "Microsoft cloud growth", hits[0].Title)

	all, err := s.Search(ctx, "growth", "", 5)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	limited, err := s.Search(ctx, "growth", "", 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestSearchScoresOnlyNewestDocuments(t *testing.T) {
	s := openTestStore(t)
	s.scanLimit = 2
	ctx := context.Background()
	_, err := s.AddDocuments(ctx, sampleDocs(), "AAPL")
	require.NoError(t, err)

	hits, err := s.Search(ctx, "earnings", "AAPL", 10)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	for _, h := range hits {
		assert.NotEqual(t, "Apple earnings beat estimates", h.Title)
		assert.Equal(t, 0.0, h.Score)
	}
	assert.Equal(t, "Weather report", hits[0].Title)
}

func TestSearchEmptyIndex(t *testing.T) {
	s := openTestStore(t)
	hits, err := s.Search(context.Background(), "anything", "TSLA", 5)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestUniqueTerms(t *testing.T) {
	assert.Equal(t, []string{"brk.b", "stock", "news"}, uniqueTerms("The BRK.B stock, news... stock"))
}
