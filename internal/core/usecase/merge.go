package usecase

import (
	"sort"
	"strings"

	"github.com/harborline/catalog-assistant/internal/core/domain"
)

// mergeResults fuses strategy batches by record ID. The first sighting of an
// ID is kept; a later sighting with a higher similarity overwrites the stored
// similarity and match type, so keyword's fixed tier beats a lower vector
// score for the same product.
func mergeResults(batches ...[]domain.SearchResult) []domain.SearchResult {
	index := make(map[string]int)
	var out []domain.SearchResult

	for _, batch := range batches {
		for _, candidate := range batch {
			pos, seen := index[candidate.ID]
			if !seen {
				index[candidate.ID] = len(out)
				out = append(out, candidate)
				continue
			}
			if candidate.Similarity > out[pos].Similarity {
				out[pos].Similarity = candidate.Similarity
				out[pos].MatchType = candidate.MatchType
			}
		}
	}
	return out
}

// appendMissing adds extras whose ID is not already present. Supplemental
// passes are additive only.
func appendMissing(existing, extras []domain.SearchResult) []domain.SearchResult {
	if len(extras) == 0 {
		return existing
	}
	present := make(map[string]struct{}, len(existing))
	for _, r := range existing {
		present[r.ID] = struct{}{}
	}
	for _, extra := range extras {
		if _, ok := present[extra.ID]; ok {
			continue
		}
		present[extra.ID] = struct{}{}
		existing = append(existing, extra)
	}
	return existing
}

// sortAndTrim orders by similarity descending with a deterministic
// code/ID tie-break, then truncates to limit.
func sortAndTrim(results []domain.SearchResult, limit int) []domain.SearchResult {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Similarity != results[j].Similarity {
			return results[i].Similarity > results[j].Similarity
		}
		ci := strings.ToLower(results[i].ProductCode)
		cj := strings.ToLower(results[j].ProductCode)
		if ci != cj {
			return ci < cj
		}
		return results[i].ID < results[j].ID
	})
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results
}

func annotate(records []domain.ProductRecord, similarity float64, matchType domain.MatchType) []domain.SearchResult {
	out := make([]domain.SearchResult, 0, len(records))
	for _, rec := range records {
		out = append(out, domain.SearchResult{
			ProductRecord: rec,
			Similarity:    similarity,
			MatchType:     matchType,
		})
	}
	return out
}
