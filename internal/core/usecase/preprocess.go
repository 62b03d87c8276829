package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/harborline/catalog-assistant/internal/core/domain"
	"github.com/harborline/catalog-assistant/internal/core/ports"
)

const (
	decomposeMinLength  = 150
	decomposeMaxPhrases = 4
	expandHistoryTurns  = 3
)

const expandSystem = `You rewrite terse sales enquiries about marine and fire safety equipment into fuller descriptive search phrases. Reply with a single line containing only the rewritten phrase.`

// bulletPrefix strips list markers and numbering from model output without
// eating a phrase's own leading digits ("9L foam extinguishers").
var bulletPrefix = regexp.MustCompile(`^\s*(?:[-*•]+|\d+[.)])\s*`)

const decomposeSystem = `You split a customer enquiry about marine and fire safety equipment into independent search phrases. Reply with 2 to 4 short descriptive phrases, one per line, one per distinct product category or requirement. No numbering, no commentary.`

type PreprocessConfig struct {
	ExpandTimeout    time.Duration
	DecomposeTimeout time.Duration
}

func (c PreprocessConfig) normalize() PreprocessConfig {
	out := c
	if out.ExpandTimeout <= 0 {
		out.ExpandTimeout = 8 * time.Second
	}
	if out.DecomposeTimeout <= 0 {
		out.DecomposeTimeout = 10 * time.Second
	}
	return out
}

// Preprocessor decides whether a query needs expansion into a fuller phrase
// or decomposition into several independent searches. Both calls are
// best-effort relevance aids: on any failure the original query stands.
type Preprocessor struct {
	rewriter ports.CompletionStreamer
	cfg      PreprocessConfig
	log      *slog.Logger
}

func NewPreprocessor(rewriter ports.CompletionStreamer, cfg PreprocessConfig, log *slog.Logger) *Preprocessor {
	return &Preprocessor{rewriter: rewriter, cfg: cfg.normalize(), log: log}
}

// ExpandQuery returns the query unchanged when it is already precise: an
// explicit product code, a filename-like separator, or a meta/overview
// question. Otherwise it asks the fast model for a fuller search phrase,
// seeded with recent conversation.
func (p *Preprocessor) ExpandQuery(ctx context.Context, query string, history []domain.ConversationTurn) string {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return query
	}
	lower := strings.ToLower(trimmed)

	if productCodePattern.MatchString(trimmed) {
		return query
	}
	if strings.ContainsAny(trimmed, "_-") {
		return query
	}
	if isMetaQuery(lower) {
		return query
	}
	if len(trimmed) < 4 && !strings.Contains(trimmed, " ") {
		return query
	}

	ctx, cancel := context.WithTimeout(ctx, p.cfg.ExpandTimeout)
	defer cancel()

	expanded, err := p.rewriter.Rewrite(ctx, expandSystem, expandPrompt(trimmed, history))
	if err != nil {
		p.log.Warn("query expansion skipped", "error", err)
		return query
	}
	expanded = firstLine(expanded)
	if expanded == "" {
		return query
	}
	return expanded
}

// DecomposeEnquiry fans a long, multi-requirement enquiry out into up to four
// independent search phrases. Queries under the length threshold are returned
// as a single-element list unchanged.
func (p *Preprocessor) DecomposeEnquiry(ctx context.Context, query string) []string {
	if len(query) < decomposeMinLength {
		return []string{query}
	}

	ctx, cancel := context.WithTimeout(ctx, p.cfg.DecomposeTimeout)
	defer cancel()

	raw, err := p.rewriter.Rewrite(ctx, decomposeSystem, query)
	if err != nil {
		p.log.Warn("enquiry decomposition skipped", "error", err)
		return []string{query}
	}

	var phrases []string
	for _, line := range strings.Split(raw, "\n") {
		phrase := strings.TrimSpace(bulletPrefix.ReplaceAllString(line, ""))
		if len(phrase) <= 5 {
			continue
		}
		phrases = append(phrases, phrase)
		if len(phrases) == decomposeMaxPhrases {
			break
		}
	}
	if len(phrases) == 0 {
		return []string{query}
	}
	return phrases
}

func expandPrompt(query string, history []domain.ConversationTurn) string {
	var b strings.Builder
	recent := history
	if len(recent) > expandHistoryTurns {
		recent = recent[len(recent)-expandHistoryTurns:]
	}
	if len(recent) > 0 {
		b.WriteString("Recent conversation:\n")
		for _, turn := range recent {
			fmt.Fprintf(&b, "%s: %s\n", turn.Role, turn.Content)
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "Enquiry: %s", query)
	return b.String()
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		s = s[:idx]
	}
	return strings.TrimSpace(strings.Trim(s, `"`))
}
