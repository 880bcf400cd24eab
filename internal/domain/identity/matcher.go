package identity

import (
	"sort"
	"strings"
)

// ResultKind is the outcome of a name resolution attempt. None of the
// outcomes is an error: the caller decides what unmatched and ambiguous mean.
type ResultKind string

const (
	KindMatched   ResultKind = "matched"
	KindUnmatched ResultKind = "unmatched"
	KindAmbiguous ResultKind = "ambiguous"
)

type Result struct {
	Kind     ResultKind
	PlayerID string
}

// Candidate is one known player considered for a scraped (name, club) pair.
type Candidate struct {
	PlayerID string
	Name     string
	Club     string
	Legacy   bool
}

// Similarity scores two normalized names in [0, 1].
type Similarity func(a, b string) float64

// Matcher resolves scraped names against known players. Normalization and
// similarity are injectable so alternative matching strategies can swap in.
type Matcher struct {
	threshold  float64
	similarity Similarity
}

const DefaultThreshold = 0.85

func NewMatcher(threshold float64) *Matcher {
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultThreshold
	}
	return &Matcher{
		threshold:  threshold,
		similarity: DefaultSimilarity,
	}
}

// WithSimilarity replaces the scoring strategy.
func (m *Matcher) WithSimilarity(fn Similarity) *Matcher {
	if fn != nil {
		m.similarity = fn
	}
	return m
}

// Match resolves a scraped (name, club) pair against the candidate set.
// Candidates from another club are never returned.
func (m *Matcher) Match(name, club string, candidates []Candidate) Result {
	query := Normalize(name)
	queryClub := Normalize(club)
	if query == "" {
		return Result{Kind: KindUnmatched}
	}

	scoped := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		if Normalize(c.Club) == queryClub {
			scoped = append(scoped, c)
		}
	}

	// Pass 1: direct normalized equality.
	if result, done := pickBest(scoped, func(c Candidate) bool {
		return Normalize(c.Name) == query
	}); done {
		return result
	}

	// Pass 2: initial expansion, e.g. "J. de Vries" against "Jan de Vries".
	if result, done := pickBest(scoped, func(c Candidate) bool {
		return initialsExpand(query, Normalize(c.Name))
	}); done {
		return result
	}

	// Pass 3: similarity at or above threshold, best score wins.
	bestScore := 0.0
	var best []Candidate
	for _, c := range scoped {
		score := m.similarity(query, Normalize(c.Name))
		if score < m.threshold {
			continue
		}
		switch {
		case score > bestScore+similarityEpsilon:
			bestScore = score
			best = []Candidate{c}
		case score >= bestScore-similarityEpsilon:
			best = append(best, c)
		}
	}
	return resolveTies(best)
}

const similarityEpsilon = 1e-9

func pickBest(candidates []Candidate, accept func(Candidate) bool) (Result, bool) {
	matched := make([]Candidate, 0, 1)
	for _, c := range candidates {
		if accept(c) {
			matched = append(matched, c)
		}
	}
	if len(matched) == 0 {
		return Result{}, false
	}
	return resolveTies(matched), true
}

// resolveTies prefers an established (non-legacy) entry; if the tie survives
// that, the pair is ambiguous and the caller logs and moves on.
func resolveTies(matched []Candidate) Result {
	switch len(matched) {
	case 0:
		return Result{Kind: KindUnmatched}
	case 1:
		return Result{Kind: KindMatched, PlayerID: matched[0].PlayerID}
	}

	established := make([]Candidate, 0, len(matched))
	for _, c := range matched {
		if !c.Legacy {
			established = append(established, c)
		}
	}
	if len(established) == 1 {
		return Result{Kind: KindMatched, PlayerID: established[0].PlayerID}
	}
	return Result{Kind: KindAmbiguous}
}

// Normalize lowercases, strips punctuation and collapses whitespace.
func Normalize(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteByte(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// initialsExpand reports whether the query is an initial-abbreviated form of
// the candidate (or the reverse): first token reduced to its initial, all
// remaining tokens equal.
func initialsExpand(query, candidate string) bool {
	return expandsTo(query, candidate) || expandsTo(candidate, query)
}

func expandsTo(short, full string) bool {
	shortTokens := strings.Fields(short)
	fullTokens := strings.Fields(full)
	if len(shortTokens) < 2 || len(shortTokens) != len(fullTokens) {
		return false
	}
	if len(shortTokens[0]) != 1 || !strings.HasPrefix(fullTokens[0], shortTokens[0]) {
		return false
	}
	for i := 1; i < len(shortTokens); i++ {
		if shortTokens[i] != fullTokens[i] {
			return false
		}
	}
	return true
}

// DefaultSimilarity is the better of token-set Jaccard overlap and a
// Levenshtein ratio over the joined names.
func DefaultSimilarity(a, b string) float64 {
	jaccard := tokenSetJaccard(a, b)
	ratio := levenshteinRatio(a, b)
	if jaccard > ratio {
		return jaccard
	}
	return ratio
}

func tokenSetJaccard(a, b string) float64 {
	setA := tokenSet(a)
	setB := tokenSet(b)
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}

	intersection := 0
	for token := range setA {
		if _, ok := setB[token]; ok {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	return float64(intersection) / float64(union)
}

func tokenSet(s string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, token := range strings.Fields(s) {
		out[token] = struct{}{}
	}
	return out
}

func levenshteinRatio(a, b string) float64 {
	if a == b {
		return 1
	}
	longest := len(a)
	if len(b) > longest {
		longest = len(b)
	}
	if longest == 0 {
		return 1
	}
	return 1 - float64(levenshtein(a, b))/float64(longest)
}

func levenshtein(a, b string) int {
	ra := []rune(a)
	rb := []rune(b)
	prev := make([]int, len(rb)+1)
	current := make([]int, len(rb)+1)

	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		current[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			current[j] = minInt(current[j-1]+1, prev[j]+1, prev[j-1]+cost)
		}
		prev, current = current, prev
	}
	return prev[len(rb)]
}

func minInt(values ...int) int {
	out := values[0]
	for _, v := range values[1:] {
		if v < out {
			out = v
		}
	}
	return out
}

// SortCandidates orders candidates deterministically for stable logs.
func SortCandidates(candidates []Candidate) {
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Club != candidates[j].Club {
			return candidates[i].Club < candidates[j].Club
		}
		return candidates[i].Name < candidates[j].Name
	})
}
