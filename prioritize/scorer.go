package prioritize

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/poiesic/scout/ai"
	"github.com/poiesic/scout/core"
)

// Scorer assigns a priority and keep decision to every URL of a batch.
// Implementations return exactly one ScoredURL per input, in input order.
type Scorer interface {
	Score(ctx context.Context, req core.SearchRequest, batch []core.CandidateURL) ([]core.ScoredURL, error)
}

// LLMScorer scores batches with a relevance classifier.
type LLMScorer struct {
	classifier ai.RelevanceClassifier
}

var _ Scorer = (*LLMScorer)(nil)

// NewLLMScorer wraps a relevance classifier.
func NewLLMScorer(classifier ai.RelevanceClassifier) *LLMScorer {
	return &LLMScorer{classifier: classifier}
}

// Score implements Scorer.
func (s *LLMScorer) Score(ctx context.Context, req core.SearchRequest, batch []core.CandidateURL) ([]core.ScoredURL, error) {
	items := make([]ai.RelevanceItem, len(batch))
	for i, c := range batch {
		items[i] = ai.RelevanceItem{Index: i, URL: c.URL, Title: c.Title, Snippet: c.Snippet}
	}
	judgements, err := s.classifier.ClassifyRelevance(ctx, describe(req), items)
	if err != nil {
		return nil, err
	}

	byIndex := make(map[int]ai.Judgement, len(judgements))
	for _, j := range judgements {
		byIndex[j.Index] = j
	}
	out := make([]core.ScoredURL, len(batch))
	for i, c := range batch {
		j, ok := byIndex[i]
		if !ok {
			return nil, fmt.Errorf("%w: no judgement for item %d", core.ErrProviderMalformedResponse, i)
		}
		out[i] = core.ScoredURL{
			CandidateURL: c,
			Priority:     j.Score,
			Keep:         j.Keep,
			Method:       core.ScoreMethodLLM,
			Reason:       j.Reason,
		}
	}
	return out, nil
}

// describe renders the request as the classifier's query.
func describe(req core.SearchRequest) string {
	var b strings.Builder
	if req.Term != "" {
		b.WriteString(req.Term)
		b.WriteString(" events")
	} else {
		b.WriteString("professional events")
	}
	if len(req.Industry) > 0 {
		b.WriteString(" for ")
		b.WriteString(strings.Join(req.Industry, ", "))
	}
	if req.Country != "" {
		b.WriteString(" in ")
		b.WriteString(req.Country)
	}
	if !req.From.IsZero() {
		b.WriteString(" between ")
		b.WriteString(req.From.Format("2006-01-02"))
		b.WriteString(" and ")
		b.WriteString(req.To.Format("2006-01-02"))
	}
	return b.String()
}

// LexicalScorer scores with keyword and domain heuristics. It never fails.
type LexicalScorer struct {
	keepThreshold float64
}

var _ Scorer = (*LexicalScorer)(nil)

// NewLexicalScorer creates a lexical scorer keeping URLs at or above keepThreshold.
func NewLexicalScorer(keepThreshold float64) *LexicalScorer {
	return &LexicalScorer{keepThreshold: keepThreshold}
}

var programWords = map[string]bool{
	"program": true, "programm": true, "programme": true, "agenda": true, "speakers": true,
	"referenten": true, "schedule": true, "sessions": true, "tickets": true, "register": true,
	"anmeldung": true, "registration": true,
}

// Score implements Scorer.
func (s *LexicalScorer) Score(_ context.Context, req core.SearchRequest, batch []core.CandidateURL) ([]core.ScoredURL, error) {
	terms := core.Tokens(req.Term)
	if len(terms) == 0 {
		terms = core.Tokens(strings.Join(req.Industry, " "))
	}
	year := ""
	if !req.From.IsZero() {
		year = strconv.Itoa(req.From.Year())
	}
	places := placeTokens(req)
	tlds := make(map[string]bool)
	for _, code := range req.Countries() {
		tlds[core.TLDForCountry(code)] = true
	}

	out := make([]core.ScoredURL, len(batch))
	for i, c := range batch {
		tokens := core.Tokens(c.URL + " " + c.Title + " " + c.Snippet)
		set := make(map[string]bool, len(tokens))
		for _, t := range tokens {
			set[t] = true
		}
		text := strings.Join(tokens, " ")

		var score float64
		var reasons []string
		if len(terms) > 0 {
			hits := 0
			for _, t := range terms {
				if strings.Contains(text, t) {
					hits++
				}
			}
			if hits > 0 {
				score += 0.5 * float64(hits) / float64(len(terms))
				reasons = append(reasons, "term")
			}
		}
		for t := range set {
			if core.IsEventTypeSynonym(t) || programWords[t] {
				score += 0.2
				reasons = append(reasons, "event")
				break
			}
		}
		if tlds[core.TopLevelDomain(core.Host(c.URL))] || anyIn(places, set) {
			score += 0.15
			reasons = append(reasons, "location")
		}
		if year != "" && set[year] {
			score += 0.15
			reasons = append(reasons, "year")
		}

		out[i] = core.ScoredURL{
			CandidateURL: c,
			Priority:     score,
			Keep:         score >= s.keepThreshold,
			Method:       core.ScoreMethodLexical,
			Reason:       strings.Join(reasons, ","),
		}
	}
	return out, nil
}

func placeTokens(req core.SearchRequest) []string {
	var out []string
	for _, code := range req.Countries() {
		info := core.Countries[code]
		for _, name := range append(append([]string(nil), info.Names...), info.Cities...) {
			if toks := core.Tokens(name); len(toks) == 1 {
				out = append(out, toks[0])
			}
		}
	}
	return out
}

func anyIn(words []string, set map[string]bool) bool {
	for _, w := range words {
		if set[w] {
			return true
		}
	}
	return false
}
