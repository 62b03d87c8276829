package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/harborline/catalog-assistant/internal/core/domain"
	"github.com/harborline/catalog-assistant/internal/core/ports"
)

const truncationMarker = "\n\n*[response cut short]*"

var errMissingQuery = errors.New("query is required")

type ChatConfig struct {
	// Deadline is the global hard bound on one chat request, independent of
	// the per-step timeouts inside search and preprocessing.
	Deadline   time.Duration
	MatchCount int
}

func (c ChatConfig) normalize() ChatConfig {
	out := c
	if out.Deadline <= 0 {
		out.Deadline = 60 * time.Second
	}
	if out.MatchCount <= 0 {
		out.MatchCount = 10
	}
	return out
}

// Chat sequences one request: preprocess, hybrid search per phrase, context
// assembly, streamed completion, citation filtering. Search never fails the
// request; the completion call is the only hard dependency.
type Chat struct {
	pre       *Preprocessor
	searcher  ports.ProductSearcher
	builder   *ContextBuilder
	stats     ports.StatsProvider
	completer ports.CompletionStreamer
	cfg       ChatConfig
	log       *slog.Logger
}

func NewChat(
	pre *Preprocessor,
	searcher ports.ProductSearcher,
	builder *ContextBuilder,
	stats ports.StatsProvider,
	completer ports.CompletionStreamer,
	cfg ChatConfig,
	log *slog.Logger,
) *Chat {
	return &Chat{
		pre:       pre,
		searcher:  searcher,
		builder:   builder,
		stats:     stats,
		completer: completer,
		cfg:       cfg.normalize(),
		log:       log,
	}
}

func (c *Chat) Stream(ctx context.Context, req ports.ChatRequest, emitter ports.ChatEmitter) error {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return domain.WrapError(domain.ErrInvalidInput, "chat", errMissingQuery)
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Deadline)
	defer cancel()

	if err := emitter.Status("searching", ""); err != nil {
		return err
	}

	results, err := c.retrieve(ctx, query, req.History)
	if err != nil {
		// Search degrades, it never fails: err here means the stream died.
		return err
	}

	if err := emitter.Status("thinking", ""); err != nil {
		return err
	}

	stats, statsErr := c.stats.Stats(ctx, "")
	if statsErr != nil {
		c.log.Warn("catalog stats unavailable for overview", "error", statsErr)
		stats = domain.CatalogStats{}
	}

	contextBlock := c.builder.BuildContext(query, results, stats)
	candidates := c.builder.DatasheetRefs(results)

	var answer strings.Builder
	streamErr := c.completer.StreamCompletion(ctx, ports.CompletionRequest{
		Context: contextBlock,
		History: req.History,
		Query:   query,
	}, func(chunk string) error {
		answer.WriteString(chunk)
		return emitter.Chunk(chunk)
	})

	if streamErr != nil {
		if answer.Len() == 0 {
			// Nothing streamed: there is no fallback answer to give.
			return domain.WrapError(domain.ErrUpstream, "chat completion", streamErr)
		}
		// Partial text is still useful to a salesperson; mark the cut and
		// finish the stream normally.
		c.log.Warn("completion stream truncated", "error", streamErr)
		answer.WriteString(truncationMarker)
		if err := emitter.Chunk(truncationMarker); err != nil {
			return err
		}
	}

	text := answer.String()
	return emitter.Done(text, FilterDatasheetsByCitations(text, candidates))
}

// retrieve decomposes a long enquiry into independent phrases (expanding a
// single short one instead), searches each, and fuses the batches under the
// usual merge policy.
func (c *Chat) retrieve(ctx context.Context, query string, history []domain.ConversationTurn) ([]domain.SearchResult, error) {
	phrases := c.pre.DecomposeEnquiry(ctx, query)
	if len(phrases) == 1 {
		phrases[0] = c.pre.ExpandQuery(ctx, phrases[0], history)
	}

	var batches [][]domain.SearchResult
	for _, phrase := range phrases {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		results, err := c.searcher.SearchProducts(ctx, phrase, history, c.cfg.MatchCount)
		if err != nil {
			c.log.Warn("search phrase degraded", "phrase", phrase, "error", err)
			continue
		}
		batches = append(batches, results)
	}

	merged := mergeResults(batches...)
	limit := c.cfg.MatchCount
	if len(phrases) > 1 {
		// Multi-requirement enquiries need room for each requirement's hits.
		limit = c.cfg.MatchCount * len(phrases)
	}
	if limit > 30 {
		limit = 30
	}
	return sortAndTrim(merged, limit), nil
}
