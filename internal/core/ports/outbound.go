package ports

import (
	"context"

	"github.com/harborline/catalog-assistant/internal/core/domain"
)

// ProductStore reads the externally-owned product catalog.
type ProductStore interface {
	// MatchCodes runs a case-insensitive contains match of each code against
	// product_code and name.
	MatchCodes(ctx context.Context, codes []string, limit int) ([]domain.ProductRecord, error)
	// MatchTerms runs a case-insensitive contains match of each term against
	// name, category, description and applications.
	MatchTerms(ctx context.Context, terms []string, limit int) ([]domain.ProductRecord, error)
	// MatchVector calls the store's similarity-search function with a query
	// embedding and returns records annotated with the store's native score.
	MatchVector(ctx context.Context, embedding []float32, limit int) ([]domain.SearchResult, error)
	// FetchByCodes resolves exact product codes (multi-value IN filter).
	FetchByCodes(ctx context.Context, codes []string) ([]domain.ProductRecord, error)
	// ListRecords returns up to limit catalog records for client-side scans.
	ListRecords(ctx context.Context, limit int) ([]domain.ProductRecord, error)
	// CatalogStats aggregates catalog size, categories and sample codes,
	// optionally narrowed to one category.
	CatalogStats(ctx context.Context, category string) (domain.CatalogStats, error)
}

// Embedder turns free text into a fixed-length vector.
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// CompletionStreamer talks to the hosted chat-completion endpoint.
type CompletionStreamer interface {
	// StreamCompletion sends system instructions, history and the current
	// query, invoking onChunk for each incremental text fragment in
	// generation order.
	StreamCompletion(ctx context.Context, req CompletionRequest, onChunk func(string) error) error
	// Rewrite runs a fast, non-streaming completion used by the query
	// preprocessor.
	Rewrite(ctx context.Context, system, prompt string) (string, error)
}

// CompletionRequest carries everything the completion endpoint needs. The
// infrastructure layer owns the system persona and message assembly.
type CompletionRequest struct {
	Context string
	History []domain.ConversationTurn
	Query   string
}
