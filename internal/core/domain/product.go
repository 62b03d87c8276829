package domain

import "time"

// MatchType names the retrieval strategy that produced a search result.
type MatchType string

const (
	MatchKeyword       MatchType = "keyword"
	MatchFuzzy         MatchType = "fuzzy"
	MatchVector        MatchType = "vector"
	MatchSpecFilter    MatchType = "spec-filter"
	MatchCategory      MatchType = "category"
	MatchFeatureFilter MatchType = "feature-filter"
	MatchHistory       MatchType = "history-carryover"
)

// ProductRecord is one catalog entry. Records are owned and mutated by the
// external store; this service only reads them.
type ProductRecord struct {
	ID                string         `json:"id"`
	ProductCode       string         `json:"product_code"`
	Name              string         `json:"name"`
	Category          string         `json:"category"`
	Specifications    map[string]any `json:"specifications,omitempty"`
	Description       string         `json:"description,omitempty"`
	Applications      string         `json:"applications,omitempty"`
	DatasheetFilename string         `json:"datasheet_filename,omitempty"`
}

// Datasheet returns the stored filename, defaulting to "<code>.pdf".
func (p ProductRecord) Datasheet() string {
	if p.DatasheetFilename != "" {
		return p.DatasheetFilename
	}
	return p.ProductCode + ".pdf"
}

// SearchResult annotates a ProductRecord with a ranking score. Similarity is
// used purely for ordering and tie-breaks, not as a probability. Identity is
// by ID, never by product code alone.
type SearchResult struct {
	ProductRecord
	Similarity float64   `json:"similarity"`
	MatchType  MatchType `json:"match_type"`
}

// DatasheetReference is a display-ready projection of a ProductRecord,
// built fresh per request and never persisted.
type DatasheetReference struct {
	ProductCode string `json:"product_code"`
	Filename    string `json:"filename"`
	DisplayName string `json:"display_name"`
	URL         string `json:"url"`
}

// ConversationTurn is one prior message, supplied by the client on every
// request. The server never stores conversation state.
type ConversationTurn struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp,omitempty"`
}

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// CatalogStats is an aggregate snapshot of the catalog, used for the
// knowledge-base overview and the stats endpoint.
type CatalogStats struct {
	TotalProducts int       `json:"total_products"`
	Categories    []string  `json:"categories"`
	SampleCodes   []string  `json:"sample_codes"`
	FetchedAt     time.Time `json:"fetched_at"`
}
