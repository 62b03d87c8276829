package usecase

import (
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/harborline/catalog-assistant/internal/core/domain"
)

const noResultsPlaceholder = "No matching products were found in the catalog for this enquiry."

// ContextBuilder renders the final result set into the text block handed to
// the completion model, and derives the candidate datasheet list from it.
type ContextBuilder struct {
	datasheetBaseURL string
}

func NewContextBuilder(datasheetBaseURL string) *ContextBuilder {
	return &ContextBuilder{datasheetBaseURL: strings.TrimRight(datasheetBaseURL, "/")}
}

// BuildContext renders one fixed-format block per product, blank-line
// separated. The knowledge-base overview is appended only when the result
// set is sparse or the query is a meta/overview question: it gives the model
// something concrete to answer with instead of hallucinating.
func (b *ContextBuilder) BuildContext(query string, results []domain.SearchResult, stats domain.CatalogStats) string {
	var sb strings.Builder

	if len(results) == 0 {
		sb.WriteString(noResultsPlaceholder)
	} else {
		for i, res := range results {
			if i > 0 {
				sb.WriteString("\n\n")
			}
			b.writeProductBlock(&sb, res)
		}
	}

	if stats.TotalProducts > 0 && (len(results) < 3 || isMetaQuery(strings.ToLower(query))) {
		sb.WriteString("\n\n")
		sb.WriteString(overviewBlock(stats))
	}

	return sb.String()
}

func (b *ContextBuilder) writeProductBlock(sb *strings.Builder, res domain.SearchResult) {
	fmt.Fprintf(sb, "Product code: %s\n", res.ProductCode)
	fmt.Fprintf(sb, "Name: %s\n", res.Name)
	if res.Category != "" {
		fmt.Fprintf(sb, "Category: %s\n", res.Category)
	}
	for _, line := range flattenSpecs(res.Specifications) {
		sb.WriteString(line)
		sb.WriteByte('\n')
	}
	if res.Applications != "" {
		fmt.Fprintf(sb, "Applications: %s\n", res.Applications)
	}
	if res.Description != "" {
		fmt.Fprintf(sb, "Description: %s\n", res.Description)
	}
	fmt.Fprintf(sb, "Datasheet: %s", b.DatasheetURL(res.ProductRecord))
}

// flattenSpecs renders every specification field as "key: value", with
// nested objects JSON-encoded, in stable key order.
func flattenSpecs(specs map[string]any) []string {
	if len(specs) == 0 {
		return nil
	}
	keys := make([]string, 0, len(specs))
	for k := range specs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		switch v := specs[k].(type) {
		case string:
			lines = append(lines, fmt.Sprintf("%s: %s", k, v))
		case map[string]any:
			raw, err := json.Marshal(v)
			if err != nil {
				continue
			}
			lines = append(lines, fmt.Sprintf("%s: %s", k, raw))
		default:
			lines = append(lines, fmt.Sprintf("%s: %v", k, v))
		}
	}
	return lines
}

func overviewBlock(stats domain.CatalogStats) string {
	var sb strings.Builder
	sb.WriteString("Knowledge base overview:\n")
	fmt.Fprintf(&sb, "Total products: %d\n", stats.TotalProducts)
	if len(stats.Categories) > 0 {
		fmt.Fprintf(&sb, "Categories: %s\n", strings.Join(stats.Categories, ", "))
	}
	if len(stats.SampleCodes) > 0 {
		fmt.Fprintf(&sb, "Sample product codes: %s", strings.Join(stats.SampleCodes, ", "))
	}
	return strings.TrimRight(sb.String(), "\n")
}

// DatasheetURL joins the storage base with the URL-encoded datasheet
// filename.
func (b *ContextBuilder) DatasheetURL(p domain.ProductRecord) string {
	return b.datasheetBaseURL + "/" + url.PathEscape(p.Datasheet())
}

// DatasheetRefs projects the result set into display-ready datasheet
// references, one per product.
func (b *ContextBuilder) DatasheetRefs(results []domain.SearchResult) []domain.DatasheetReference {
	refs := make([]domain.DatasheetReference, 0, len(results))
	for _, res := range results {
		refs = append(refs, domain.DatasheetReference{
			ProductCode: res.ProductCode,
			Filename:    res.Datasheet(),
			DisplayName: fmt.Sprintf("%s — %s", res.ProductCode, res.Name),
			URL:         b.DatasheetURL(res.ProductRecord),
		})
	}
	return refs
}
