package usecase

import (
	"regexp"
	"strings"

	"github.com/harborline/catalog-assistant/internal/core/domain"
)

var boldSpanPattern = regexp.MustCompile(`\*\*([^*]+)\*\*`)

// minPrefixOverlap is the shortest code allowed to match as a prefix of a
// longer cited variant. Below this, prefix matching false-positives on short
// codes.
const minPrefixOverlap = 4

// FilterDatasheetsByCitations keeps only the candidate datasheets whose
// product was actually cited in the generated answer, so the visible list is
// a strict subset of what the model talked about. A candidate matches when
// its code equals a cited code, or when one is a prefix of the other and the
// shorter side is at least minPrefixOverlap characters (a base code matches
// a cited suffix variant).
func FilterDatasheetsByCitations(responseText string, candidates []domain.DatasheetReference) []domain.DatasheetReference {
	if len(candidates) == 0 {
		return nil
	}
	cited := citedCodes(responseText)
	if len(cited) == 0 {
		return nil
	}

	kept := make([]domain.DatasheetReference, 0, len(candidates))
	for _, candidate := range candidates {
		code := strings.ToLower(candidate.ProductCode)
		for mention := range cited {
			if codesMatch(code, mention) {
				kept = append(kept, candidate)
				break
			}
		}
	}
	return kept
}

// citedCodes collects every product-code-shaped token in the response,
// whether inside bold markup or bare, lowercased.
func citedCodes(text string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, span := range boldSpanPattern.FindAllStringSubmatch(text, -1) {
		for _, code := range citedCodePattern.FindAllString(span[1], -1) {
			out[strings.ToLower(code)] = struct{}{}
		}
	}
	for _, code := range citedCodePattern.FindAllString(text, -1) {
		out[strings.ToLower(code)] = struct{}{}
	}
	return out
}

func codesMatch(a, b string) bool {
	if a == b {
		return true
	}
	shorter, longer := a, b
	if len(shorter) > len(longer) {
		shorter, longer = longer, shorter
	}
	if len(shorter) < minPrefixOverlap {
		return false
	}
	return strings.HasPrefix(longer, shorter)
}
