package ports

import (
	"context"

	"github.com/harborline/catalog-assistant/internal/core/domain"
)

// ProductSearcher is the inbound contract for the hybrid search engine.
type ProductSearcher interface {
	SearchProducts(ctx context.Context, query string, history []domain.ConversationTurn, matchCount int) ([]domain.SearchResult, error)
}

// ChatService orchestrates one streamed chat answer.
type ChatService interface {
	Stream(ctx context.Context, req ChatRequest, emitter ChatEmitter) error
}

// ChatRequest is the client payload for one chat turn.
type ChatRequest struct {
	Query   string
	History []domain.ConversationTurn
}

// ChatEmitter receives stream events in generation order.
type ChatEmitter interface {
	Status(stage string, detail string) error
	Chunk(text string) error
	Done(fullText string, datasheets []domain.DatasheetReference) error
}

// StatsProvider serves the cached catalog overview.
type StatsProvider interface {
	Stats(ctx context.Context, category string) (domain.CatalogStats, error)
}
