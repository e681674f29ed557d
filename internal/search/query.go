package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"
)

// Hit is a single matching track.
type Hit struct {
	TrackID    string  `json:"track_id"`
	Score      float64 `json:"score"`
	Title      string  `json:"title"`
	ArtistName string  `json:"artist_name,omitempty"`
	AlbumName  string  `json:"album_name,omitempty"`
	DurationMs int64   `json:"duration_ms,omitempty"`
}

// Result is a ranked search response.
type Result struct {
	Query  string `json:"query"`
	Total  uint64 `json:"total"`
	TookMs int64  `json:"took_ms"`
	Hits   []Hit  `json:"hits"`
}

// Search runs a ranked query over cached tracks. Title matches score
// highest, then artist, then album; a fuzzy clause tolerates one typo and a
// prefix clause supports search-as-you-type.
func (ix *Index) Search(ctx context.Context, queryStr string, limit int) (*Result, error) {
	if limit <= 0 {
		limit = 20
	}

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	req := bleve.NewSearchRequestOptions(buildTrackQuery(queryStr), limit, 0, false)
	req.Fields = []string{"title", "artist_name", "album_name", "duration_ms"}

	res, err := ix.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("execute search: %w", err)
	}

	out := &Result{
		Query:  queryStr,
		Total:  res.Total,
		TookMs: res.Took.Milliseconds(),
		Hits:   make([]Hit, 0, len(res.Hits)),
	}
	for _, hit := range res.Hits {
		h := Hit{TrackID: hit.ID, Score: hit.Score}
		if v, ok := hit.Fields["title"].(string); ok {
			h.Title = v
		}
		if v, ok := hit.Fields["artist_name"].(string); ok {
			h.ArtistName = v
		}
		if v, ok := hit.Fields["album_name"].(string); ok {
			h.AlbumName = v
		}
		if v, ok := hit.Fields["duration_ms"].(float64); ok {
			h.DurationMs = int64(v)
		}
		out.Hits = append(out.Hits, h)
	}
	return out, nil
}

func buildTrackQuery(queryStr string) query.Query {
	if queryStr == "" {
		return bleve.NewMatchAllQuery()
	}

	titleMatch := bleve.NewMatchQuery(queryStr)
	titleMatch.SetField("title")
	titleMatch.SetBoost(3.0)

	artistMatch := bleve.NewMatchQuery(queryStr)
	artistMatch.SetField("artist_name")
	artistMatch.SetBoost(2.0)

	albumMatch := bleve.NewMatchQuery(queryStr)
	albumMatch.SetField("album_name")
	albumMatch.SetBoost(1.5)

	clauses := []query.Query{titleMatch, artistMatch, albumMatch}

	// Typo tolerance on the title.
	fuzzy := bleve.NewFuzzyQuery(queryStr)
	fuzzy.SetField("title")
	fuzzy.SetFuzziness(1)
	fuzzy.SetBoost(0.8)
	clauses = append(clauses, fuzzy)

	// Prefix clause for search-as-you-type once two characters are in.
	if len(queryStr) >= 2 {
		prefix := bleve.NewPrefixQuery(strings.ToLower(queryStr))
		prefix.SetField("title")
		prefix.SetBoost(0.5)
		clauses = append(clauses, prefix)
	}

	return bleve.NewDisjunctionQuery(clauses...)
}
