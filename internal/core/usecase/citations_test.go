package usecase

import (
	"testing"

	"github.com/harborline/catalog-assistant/internal/core/domain"
)

func datasheet(code string) domain.DatasheetReference {
	return domain.DatasheetReference{ProductCode: code, Filename: code + ".pdf"}
}

func TestFilterDatasheetsKeepsOnlyCitedProducts(t *testing.T) {
	candidates := []domain.DatasheetReference{datasheet("JB02HR"), datasheet("JB17")}
	kept := FilterDatasheetsByCitations("The **JB02HR** is ideal for engine rooms.", candidates)

	if len(kept) != 1 {
		t.Fatalf("expected exactly one datasheet, got %d", len(kept))
	}
	if kept[0].ProductCode != "JB02HR" {
		t.Fatalf("expected JB02HR, got %s", kept[0].ProductCode)
	}
}

func TestFilterDatasheetsBareMention(t *testing.T) {
	candidates := []domain.DatasheetReference{datasheet("LJ10"), datasheet("FX01")}
	kept := FilterDatasheetsByCitations("I would recommend the LJ10 for crew transfer work.", candidates)

	if len(kept) != 1 || kept[0].ProductCode != "LJ10" {
		t.Fatalf("bare mentions must count as citations, got %+v", kept)
	}
}

func TestFilterDatasheetsPrefixVariant(t *testing.T) {
	candidates := []domain.DatasheetReference{datasheet("JB02HR")}
	kept := FilterDatasheetsByCitations("The **JB02HR-MK2** supersedes the older model.", candidates)

	if len(kept) != 1 {
		t.Fatalf("base code must match its cited suffix variant, got %+v", kept)
	}
}

func TestFilterDatasheetsShortPrefixRejected(t *testing.T) {
	// Shorter side under 4 characters: prefix matching is off.
	candidates := []domain.DatasheetReference{datasheet("JB2")}
	kept := FilterDatasheetsByCitations("Consider the **JB27HR** cabinet.", candidates)

	if len(kept) != 0 {
		t.Fatalf("short codes must not prefix-match, got %+v", kept)
	}
}

func TestFilterDatasheetsSubsetProperty(t *testing.T) {
	candidates := []domain.DatasheetReference{datasheet("JB02HR"), datasheet("LJ10"), datasheet("FX01")}
	kept := FilterDatasheetsByCitations("Both the **JB02HR** and the LJ10 would suit.", candidates)

	allowed := map[string]bool{}
	for _, c := range candidates {
		allowed[c.ProductCode] = true
	}
	for _, k := range kept {
		if !allowed[k.ProductCode] {
			t.Fatalf("filtered list must be a subset of candidates, got %s", k.ProductCode)
		}
	}
	if len(kept) != 2 {
		t.Fatalf("expected the two cited products, got %d", len(kept))
	}
}

func TestFilterDatasheetsNoCitations(t *testing.T) {
	candidates := []domain.DatasheetReference{datasheet("JB02HR")}
	kept := FilterDatasheetsByCitations("I do not have that information in the catalog.", candidates)
	if len(kept) != 0 {
		t.Fatalf("no cited codes means no datasheets, got %+v", kept)
	}
}
