package usecase

import (
	"reflect"
	"testing"
)

func TestExtractProductCodes(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  []string
	}{
		{"single code", "tell me about JB02HR", []string{"jb02hr"}},
		{"multiple codes ordered", "compare JB02HR with LJ10 please", []string{"jb02hr", "lj10"}},
		{"dotted code", "is the WD1.5 still available", []string{"wd1.5"}},
		{"duplicates collapse", "JB02HR or jb02hr", []string{"jb02hr"}},
		{"no codes", "what lifejackets do you stock", nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ExtractProductCodes(tc.input)
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("ExtractProductCodes(%q) = %v, want %v", tc.input, got, tc.want)
			}
		})
	}
}

func TestFuzzyTermsAppliesSynonyms(t *testing.T) {
	terms := fuzzyTerms("do you sell a life jacket and a fire extinguisher")
	want := map[string]bool{"lifejacket": false, "extinguisher": false, "sell": false}
	for _, term := range terms {
		if _, ok := want[term]; ok {
			want[term] = true
		}
	}
	for term, seen := range want {
		if !seen {
			t.Fatalf("expected term %q in %v", term, terms)
		}
	}
}

func TestFuzzyTermsDropsStopAndShortWords(t *testing.T) {
	terms := fuzzyTerms("what is the BA set for")
	for _, term := range terms {
		if term == "what" || term == "the" || term == "for" || term == "is" || term == "ba" {
			t.Fatalf("term %q should have been dropped, got %v", term, terms)
		}
	}
}

func TestSpecToken(t *testing.T) {
	cases := []struct {
		query string
		want  string
		ok    bool
	}{
		{"anything rated ip66 please", "ip66", true},
		{"rated IP 66", "ip66", true},
		{"a stainless steel cabinet", "stainless steel", true},
		{"grp enclosure", "grp", true},
		{"a red lifejacket", "", false},
	}
	for _, tc := range cases {
		got, ok := specToken(tc.query)
		if ok != tc.ok || got != tc.want {
			t.Fatalf("specToken(%q) = %q,%v want %q,%v", tc.query, got, ok, tc.want, tc.ok)
		}
	}
}

func TestCategoryTermsTriggers(t *testing.T) {
	if _, ok := categoryTerms("what fire hose cabinets do you have"); !ok {
		t.Fatalf("fire hose query must trigger the category table")
	}
	if _, ok := categoryTerms("show me your liferafts"); !ok {
		t.Fatalf("liferaft query must trigger the category table")
	}
	if _, ok := categoryTerms("hello there"); ok {
		t.Fatalf("greeting must not trigger the category table")
	}
}

func TestFeatureTermsTriggers(t *testing.T) {
	if _, ok := featureTerms("which cabinets have a window"); !ok {
		t.Fatalf("window query must trigger the feature table")
	}
	if _, ok := featureTerms("is it arctic rated"); !ok {
		t.Fatalf("arctic query must trigger the feature table")
	}
	if _, ok := featureTerms("tell me about lifejackets"); ok {
		t.Fatalf("category browsing must not trigger the feature table")
	}
}

func TestIsMetaQuery(t *testing.T) {
	if !isMetaQuery("what categories do you cover") {
		t.Fatalf("categories question is a meta query")
	}
	if !isMetaQuery("give me a list of products") {
		t.Fatalf("list-of question is a meta query")
	}
	if isMetaQuery("tell me about the jb02hr") {
		t.Fatalf("product question is not a meta query")
	}
}
