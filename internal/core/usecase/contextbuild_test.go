package usecase

import (
	"strings"
	"testing"

	"github.com/harborline/catalog-assistant/internal/core/domain"
)

func TestBuildContextRendersProductBlock(t *testing.T) {
	b := NewContextBuilder("https://cdn.example.com/datasheets/")
	results := []domain.SearchResult{{
		ProductRecord: domain.ProductRecord{
			ID:          "1",
			ProductCode: "JB02HR",
			Name:        "Fire Hose Cabinet",
			Category:    "Fire Hose Cabinets",
			Specifications: map[string]any{
				"material":   "GRP",
				"dimensions": map[string]any{"height_mm": 900.0, "width_mm": 600.0},
			},
			Description:  "Single door hose cabinet.",
			Applications: "Engine rooms, deck storage.",
		},
		Similarity: 2.0,
		MatchType:  domain.MatchKeyword,
	}}

	out := b.BuildContext("JB02HR", results, domain.CatalogStats{})

	for _, want := range []string{
		"Product code: JB02HR",
		"Name: Fire Hose Cabinet",
		"Category: Fire Hose Cabinets",
		"material: GRP",
		`dimensions: {"height_mm":900,"width_mm":600}`,
		"Applications: Engine rooms, deck storage.",
		"Description: Single door hose cabinet.",
		"Datasheet: https://cdn.example.com/datasheets/JB02HR.pdf",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("context missing %q:\n%s", want, out)
		}
	}
}

func TestBuildContextEmptyResultsPlaceholder(t *testing.T) {
	b := NewContextBuilder("https://cdn.example.com")
	out := b.BuildContext("obscure widget", nil, domain.CatalogStats{})
	if !strings.Contains(out, noResultsPlaceholder) {
		t.Fatalf("empty results must carry the explicit placeholder:\n%s", out)
	}
}

func TestBuildContextOverviewOnSparseResults(t *testing.T) {
	b := NewContextBuilder("https://cdn.example.com")
	stats := domain.CatalogStats{
		TotalProducts: 120,
		Categories:    []string{"Lifejackets", "Extinguishers"},
		SampleCodes:   []string{"LJ10", "FX01"},
	}

	out := b.BuildContext("anything in grp", nil, stats)
	if !strings.Contains(out, "Knowledge base overview") {
		t.Fatalf("sparse results must include the overview:\n%s", out)
	}
	if !strings.Contains(out, "Total products: 120") {
		t.Fatalf("overview missing totals:\n%s", out)
	}
}

func TestBuildContextOverviewOnMetaQuery(t *testing.T) {
	b := NewContextBuilder("https://cdn.example.com")
	results := []domain.SearchResult{
		{ProductRecord: domain.ProductRecord{ID: "1", ProductCode: "A1", Name: "a"}},
		{ProductRecord: domain.ProductRecord{ID: "2", ProductCode: "B1", Name: "b"}},
		{ProductRecord: domain.ProductRecord{ID: "3", ProductCode: "C1", Name: "c"}},
	}
	stats := domain.CatalogStats{TotalProducts: 120}

	out := b.BuildContext("what categories do you cover", results, stats)
	if !strings.Contains(out, "Knowledge base overview") {
		t.Fatalf("meta query must include the overview even with results:\n%s", out)
	}

	out = b.BuildContext("jb cabinets", results, stats)
	if strings.Contains(out, "Knowledge base overview") {
		t.Fatalf("three results and no meta question: overview not expected:\n%s", out)
	}
}

func TestDatasheetURLEscapesFilename(t *testing.T) {
	b := NewContextBuilder("https://cdn.example.com/sheets")
	p := domain.ProductRecord{ProductCode: "WD1.5", DatasheetFilename: "WD 1.5 rev B.pdf"}
	got := b.DatasheetURL(p)
	want := "https://cdn.example.com/sheets/WD%201.5%20rev%20B.pdf"
	if got != want {
		t.Fatalf("DatasheetURL() = %q, want %q", got, want)
	}
}

func TestDatasheetRefsDefaultsFilename(t *testing.T) {
	b := NewContextBuilder("https://cdn.example.com")
	refs := b.DatasheetRefs([]domain.SearchResult{{
		ProductRecord: domain.ProductRecord{ID: "1", ProductCode: "JB02HR", Name: "Fire Hose Cabinet"},
	}})
	if len(refs) != 1 {
		t.Fatalf("expected one reference, got %d", len(refs))
	}
	if refs[0].Filename != "JB02HR.pdf" {
		t.Fatalf("missing datasheet filename must default to code.pdf, got %q", refs[0].Filename)
	}
	if refs[0].DisplayName != "JB02HR — Fire Hose Cabinet" {
		t.Fatalf("unexpected display name %q", refs[0].DisplayName)
	}
}
