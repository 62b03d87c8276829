package usecase

import (
	"regexp"
	"sort"
	"strings"
)

// productCodePattern matches catalog identifiers: two to three letters,
// digits with an optional dot section, optional trailing letters.
var productCodePattern = regexp.MustCompile(`(?i)\b[a-z]{2,3}\d+(?:\.\d+)?[a-z]*\b`)

// citedCodePattern additionally accepts hyphenated variant suffixes
// (e.g. jb02hr-mk2) as they appear in generated answers.
var citedCodePattern = regexp.MustCompile(`(?i)\b[a-z]{2,3}\d+(?:\.\d+)?[a-z]*(?:-[a-z0-9]+)*\b`)

var ipRatingPattern = regexp.MustCompile(`(?i)\bip\s?\d{2}\b`)

// synonymTable maps sales vocabulary onto catalog vocabulary. Applied to the
// lowercased query before word splitting, longest phrases first.
var synonymTable = []struct {
	phrase      string
	replacement string
}{
	{"self contained breathing apparatus", "ba"},
	{"breathing apparatus", "ba"},
	{"fire extinguisher", "extinguisher"},
	{"self contained", "ba"},
	{"life jacket", "lifejacket"},
	{"fire hose", "hose"},
	{"hosepipe", "hose"},
	{"emergency", "sos"},
	{"scba", "ba"},
}

var stopWords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "you": {}, "your": {}, "our": {},
	"are": {}, "can": {}, "does": {}, "with": {}, "what": {}, "which": {},
	"have": {}, "has": {}, "need": {}, "needs": {}, "want": {}, "about": {},
	"that": {}, "this": {}, "from": {}, "will": {}, "would": {}, "could": {},
	"there": {}, "please": {}, "looking": {}, "any": {}, "all": {}, "how": {},
	"much": {}, "many": {}, "some": {}, "get": {}, "got": {}, "tell": {},
	"show": {}, "give": {}, "available": {},
}

// categoryPattern broadens the search to a whole product range when the
// query is recognisably browsing a category.
type categoryPattern struct {
	trigger *regexp.Regexp
	terms   []string
}

var categoryPatterns = []categoryPattern{
	{regexp.MustCompile(`life\s?jacket|lifejacket|pfd`), []string{"lifejacket", "life jacket"}},
	{regexp.MustCompile(`fire\s?hose|hose\s?(reel|cabinet|pipe)|hosepipe`), []string{"hose"}},
	{regexp.MustCompile(`extinguisher`), []string{"extinguisher"}},
	{regexp.MustCompile(`breathing\s?apparatus|scba|\bba\s?set`), []string{"breathing apparatus", "ba set"}},
	{regexp.MustCompile(`lifebuoy|life\s?buoy|life\s?ring`), []string{"lifebuoy"}},
	{regexp.MustCompile(`immersion\s?suit|survival\s?suit`), []string{"immersion suit"}},
	{regexp.MustCompile(`wash\s?down|washdown`), []string{"wash down"}},
	{regexp.MustCompile(`first\s?aid|medical`), []string{"first aid"}},
	{regexp.MustCompile(`electrical|\bppe\b`), []string{"electrical", "ppe"}},
	{regexp.MustCompile(`general\s?purpose`), []string{"general purpose"}},
	{regexp.MustCompile(`stretcher`), []string{"stretcher"}},
	{regexp.MustCompile(`\bsos\b|rescue`), []string{"sos", "rescue"}},
	{regexp.MustCompile(`descent|escape\s?device`), []string{"descent"}},
	{regexp.MustCompile(`fire\s?blanket|\bev\b`), []string{"fire blanket", "ev"}},
	{regexp.MustCompile(`liferaft|life\s?raft`), []string{"liferaft"}},
	{regexp.MustCompile(`\bfoam\b`), []string{"foam"}},
}

// featurePattern broadens the search when the user asks about a cross-cutting
// attribute rather than a product category.
var featurePatterns = []categoryPattern{
	{regexp.MustCompile(`colou?rs?\b`), []string{"colour", "red", "orange", "yellow"}},
	{regexp.MustCompile(`heater|heated|heating`), []string{"heater"}},
	{regexp.MustCompile(`insulat`), []string{"insulat"}},
	{regexp.MustCompile(`\block(s|ing|able)?\b`), []string{"lock"}},
	{regexp.MustCompile(`optional\s?extras?|accessor`), []string{"optional"}},
	{regexp.MustCompile(`mount(ing|ed)?|bracket`), []string{"mount", "bracket"}},
	{regexp.MustCompile(`window`), []string{"window"}},
	{regexp.MustCompile(`shelv|shelf`), []string{"shelf", "shelv"}},
	{regexp.MustCompile(`arctic|cold\s?rat`), []string{"arctic"}},
	{regexp.MustCompile(`door|seal(s|ed|ing)?\b`), []string{"door", "seal"}},
}

var materialTokens = []string{
	"stainless steel",
	"galvanised",
	"galvanized",
	"aluminium",
	"aluminum",
	"grp",
}

var metaQueryMarkers = []string{
	"category",
	"categories",
	"list of",
	"what classes",
	"overview",
	"what products",
	"product range",
	"knowledge base",
}

// ExtractProductCodes returns every distinct product-code-shaped token in
// order of first appearance, lowercased.
func ExtractProductCodes(text string) []string {
	matches := productCodePattern.FindAllString(text, -1)
	if len(matches) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(matches))
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		code := strings.ToLower(m)
		if _, ok := seen[code]; ok {
			continue
		}
		seen[code] = struct{}{}
		out = append(out, code)
	}
	return out
}

// fuzzyTerms normalizes the query for the fuzzy/synonym strategy: synonym
// substitution on the lowercased text, then word split dropping short and
// stop words. Returned terms are deduplicated, order preserved.
func fuzzyTerms(query string) []string {
	lower := strings.ToLower(query)
	seen := make(map[string]struct{})
	var terms []string
	add := func(term string) {
		if term == "" {
			return
		}
		if _, dup := seen[term]; dup {
			return
		}
		seen[term] = struct{}{}
		terms = append(terms, term)
	}

	// A fired synonym replacement is kept as a term even when it is shorter
	// than the word-split cutoff (e.g. "ba").
	for _, s := range synonymTable {
		if strings.Contains(lower, s.phrase) {
			lower = strings.ReplaceAll(lower, s.phrase, s.replacement)
			add(s.replacement)
		}
	}

	fields := strings.FieldsFunc(lower, func(r rune) bool {
		return !(r >= 'a' && r <= 'z') && !(r >= '0' && r <= '9')
	})
	for _, f := range fields {
		if len(f) <= 2 {
			continue
		}
		if _, stop := stopWords[f]; stop {
			continue
		}
		add(f)
	}
	return terms
}

// specToken detects a recognizable spec value in the lowercased query: an IP
// rating or a known material keyword.
func specToken(lowerQuery string) (string, bool) {
	if m := ipRatingPattern.FindString(lowerQuery); m != "" {
		return strings.ReplaceAll(strings.ToLower(m), " ", ""), true
	}
	for _, token := range materialTokens {
		if strings.Contains(lowerQuery, token) {
			return token, true
		}
	}
	return "", false
}

func categoryTerms(lowerQuery string) ([]string, bool) {
	return matchPatternTable(categoryPatterns, lowerQuery)
}

func featureTerms(lowerQuery string) ([]string, bool) {
	return matchPatternTable(featurePatterns, lowerQuery)
}

func matchPatternTable(table []categoryPattern, lowerQuery string) ([]string, bool) {
	var terms []string
	for _, p := range table {
		if p.trigger.MatchString(lowerQuery) {
			terms = append(terms, p.terms...)
		}
	}
	if len(terms) == 0 {
		return nil, false
	}
	sort.Strings(terms)
	return terms, true
}

// isMetaQuery reports whether the query asks about the knowledge base itself
// rather than a specific product.
func isMetaQuery(lowerQuery string) bool {
	for _, marker := range metaQueryMarkers {
		if strings.Contains(lowerQuery, marker) {
			return true
		}
	}
	return false
}
