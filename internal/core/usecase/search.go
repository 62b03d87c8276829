package usecase

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/harborline/catalog-assistant/internal/core/domain"
	"github.com/harborline/catalog-assistant/internal/core/ports"
)

// Weights are the similarity tiers assigned by each strategy. The original
// ordering was tuned empirically, so the tiers are configuration rather than
// constants.
type Weights struct {
	Keyword  float64
	Fuzzy    float64
	Spec     float64
	Category float64
	Feature  float64
	History  float64
}

func DefaultWeights() Weights {
	return Weights{
		Keyword:  2.0,
		Fuzzy:    1.5,
		Spec:     1.9,
		Category: 1.85,
		Feature:  1.8,
		History:  1.75,
	}
}

type SearchConfig struct {
	Weights         Weights
	BaseMatchCount  int
	StrategyTimeout time.Duration
	EmbedTimeout    time.Duration
	SpecScanLimit   int
}

func (c SearchConfig) normalize() SearchConfig {
	out := c
	if out.Weights == (Weights{}) {
		out.Weights = DefaultWeights()
	}
	if out.BaseMatchCount <= 0 {
		out.BaseMatchCount = 10
	}
	if out.StrategyTimeout <= 0 {
		out.StrategyTimeout = 4 * time.Second
	}
	if out.EmbedTimeout <= 0 {
		out.EmbedTimeout = 15 * time.Second
	}
	if out.SpecScanLimit <= 0 {
		out.SpecScanLimit = 200
	}
	return out
}

// SearchObserver records strategy outcomes for metrics. Implementations must
// be safe for concurrent use.
type SearchObserver interface {
	StrategyOutcome(strategy string, ok bool)
	SearchCompleted(resultCount int, duration time.Duration)
}

type noopObserver struct{}

func (noopObserver) StrategyOutcome(string, bool)       {}
func (noopObserver) SearchCompleted(int, time.Duration) {}

// HybridSearch fans out the keyword, fuzzy and vector strategies
// concurrently, merges by record ID, then applies the additive supplemental
// passes. Its contract is to always return a ranked list, possibly empty:
// individual strategy failures are logged and degrade to zero contribution.
type HybridSearch struct {
	store    ports.ProductStore
	embedder ports.Embedder
	cfg      SearchConfig
	log      *slog.Logger
	obs      SearchObserver
}

func NewHybridSearch(store ports.ProductStore, embedder ports.Embedder, cfg SearchConfig, log *slog.Logger, obs SearchObserver) *HybridSearch {
	if obs == nil {
		obs = noopObserver{}
	}
	return &HybridSearch{
		store:    store,
		embedder: embedder,
		cfg:      cfg.normalize(),
		log:      log,
		obs:      obs,
	}
}

func (s *HybridSearch) SearchProducts(ctx context.Context, query string, history []domain.ConversationTurn, matchCount int) ([]domain.SearchResult, error) {
	start := time.Now()
	if matchCount <= 0 {
		matchCount = s.cfg.BaseMatchCount
	}
	lower := strings.ToLower(query)

	var keywordHits, fuzzyHits, vectorHits []domain.SearchResult

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		keywordHits = s.keywordStrategy(gctx, query, matchCount)
		return nil
	})
	g.Go(func() error {
		fuzzyHits = s.fuzzyStrategy(gctx, query, matchCount)
		return nil
	})
	g.Go(func() error {
		vectorHits = s.vectorStrategy(gctx, query, matchCount)
		return nil
	})
	_ = g.Wait()

	merged := mergeResults(keywordHits, fuzzyHits, vectorHits)
	limit := matchCount
	merged = sortAndTrim(merged, limit)

	if token, ok := specToken(lower); ok {
		if limit < 15 {
			limit = 15
		}
		merged = appendMissing(merged, s.specFilterPass(ctx, token))
		merged = sortAndTrim(merged, limit)
	}

	if terms, ok := categoryTerms(lower); ok {
		if limit < 25 {
			limit = 25
		}
		merged = appendMissing(merged, s.broadenPass(ctx, "category", terms, limit, s.cfg.Weights.Category, domain.MatchCategory))
		merged = sortAndTrim(merged, limit)
	}

	if terms, ok := featureTerms(lower); ok {
		if limit < 30 {
			limit = 30
		}
		merged = appendMissing(merged, s.broadenPass(ctx, "feature", terms, limit, s.cfg.Weights.Feature, domain.MatchFeatureFilter))
		merged = sortAndTrim(merged, limit)
	}

	merged = appendMissing(merged, s.historyCarryOver(ctx, history, merged))
	merged = sortAndTrim(merged, limit)

	s.obs.SearchCompleted(len(merged), time.Since(start))
	return merged, nil
}

// keywordStrategy resolves every product-code-shaped token in the query, not
// just the first: multi-code comparison questions must retrieve all of them.
func (s *HybridSearch) keywordStrategy(ctx context.Context, query string, limit int) []domain.SearchResult {
	codes := ExtractProductCodes(query)
	if len(codes) == 0 {
		s.obs.StrategyOutcome("keyword", true)
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.StrategyTimeout)
	defer cancel()

	records, err := s.store.MatchCodes(ctx, codes, limit)
	if err != nil {
		s.log.Warn("keyword strategy degraded", "error", err, "codes", codes)
		s.obs.StrategyOutcome("keyword", false)
		return nil
	}
	s.obs.StrategyOutcome("keyword", true)
	return annotate(records, s.cfg.Weights.Keyword, domain.MatchKeyword)
}

func (s *HybridSearch) fuzzyStrategy(ctx context.Context, query string, limit int) []domain.SearchResult {
	terms := fuzzyTerms(query)
	if len(terms) == 0 {
		s.obs.StrategyOutcome("fuzzy", true)
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.StrategyTimeout)
	defer cancel()

	records, err := s.store.MatchTerms(ctx, terms, limit)
	if err != nil {
		s.log.Warn("fuzzy strategy degraded", "error", err)
		s.obs.StrategyOutcome("fuzzy", false)
		return nil
	}
	s.obs.StrategyOutcome("fuzzy", true)
	return annotate(records, s.cfg.Weights.Fuzzy, domain.MatchFuzzy)
}

func (s *HybridSearch) vectorStrategy(ctx context.Context, query string, limit int) []domain.SearchResult {
	embedCtx, cancelEmbed := context.WithTimeout(ctx, s.cfg.EmbedTimeout)
	defer cancelEmbed()

	embedding, err := s.embedder.EmbedQuery(embedCtx, query)
	if err != nil {
		s.log.Warn("vector strategy degraded at embedding", "error", err)
		s.obs.StrategyOutcome("vector", false)
		return nil
	}

	searchCtx, cancelSearch := context.WithTimeout(ctx, s.cfg.StrategyTimeout)
	defer cancelSearch()

	results, err := s.store.MatchVector(searchCtx, embedding, limit)
	if err != nil {
		s.log.Warn("vector strategy degraded at store", "error", err)
		s.obs.StrategyOutcome("vector", false)
		return nil
	}
	s.obs.StrategyOutcome("vector", true)
	for i := range results {
		results[i].MatchType = domain.MatchVector
	}
	return results
}

// specFilterPass scans a bounded slice of the catalog for a literal spec
// token across the flattened specification, description and applications
// text.
func (s *HybridSearch) specFilterPass(ctx context.Context, token string) []domain.SearchResult {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.StrategyTimeout)
	defer cancel()

	records, err := s.store.ListRecords(ctx, s.cfg.SpecScanLimit)
	if err != nil {
		s.log.Warn("spec filter pass degraded", "error", err, "token", token)
		return nil
	}

	var hits []domain.ProductRecord
	for _, rec := range records {
		if recordMentions(rec, token) {
			hits = append(hits, rec)
		}
	}
	return annotate(hits, s.cfg.Weights.Spec, domain.MatchSpecFilter)
}

func (s *HybridSearch) broadenPass(ctx context.Context, name string, terms []string, limit int, similarity float64, matchType domain.MatchType) []domain.SearchResult {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.StrategyTimeout)
	defer cancel()

	records, err := s.store.MatchTerms(ctx, terms, limit)
	if err != nil {
		s.log.Warn("broaden pass degraded", "pass", name, "error", err)
		return nil
	}
	return annotate(records, similarity, matchType)
}

// historyCarryOver fetches products mentioned in prior turns so follow-up
// questions keep the discussed record in context even when the new wording
// would not retrieve it.
func (s *HybridSearch) historyCarryOver(ctx context.Context, history []domain.ConversationTurn, current []domain.SearchResult) []domain.SearchResult {
	if len(history) == 0 {
		return nil
	}

	present := make(map[string]struct{}, len(current))
	for _, r := range current {
		present[strings.ToLower(r.ProductCode)] = struct{}{}
	}

	var missing []string
	for _, turn := range history {
		for _, code := range ExtractProductCodes(turn.Content) {
			if _, ok := present[code]; ok {
				continue
			}
			present[code] = struct{}{}
			missing = append(missing, code)
		}
	}
	if len(missing) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.StrategyTimeout)
	defer cancel()

	records, err := s.store.FetchByCodes(ctx, missing)
	if err != nil {
		s.log.Warn("history carry-over degraded", "error", err, "codes", missing)
		return nil
	}
	return annotate(records, s.cfg.Weights.History, domain.MatchHistory)
}

func recordMentions(rec domain.ProductRecord, token string) bool {
	if strings.Contains(strings.ToLower(rec.Description), token) {
		return true
	}
	if strings.Contains(strings.ToLower(rec.Applications), token) {
		return true
	}
	if len(rec.Specifications) == 0 {
		return false
	}
	raw, err := json.Marshal(rec.Specifications)
	if err != nil {
		return false
	}
	return strings.Contains(strings.ToLower(string(raw)), token)
}
