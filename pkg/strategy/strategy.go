// Package strategy implements the Adaptive Strategy: classifying an
// incoming code-generation query into a complexity level, selecting the
// (candidate count, temperature tuple) for that level, and learning from
// recorded outcomes to adjust moderate/complex strategies over time.
package strategy

import (
	"crypto/md5"
	"encoding/hex"
	"regexp"
	"strings"
	"sync"
	"time"
)

// Complexity is one of the five classification tiers.
type Complexity string

const (
	Trivial  Complexity = "trivial"
	Simple   Complexity = "simple"
	Moderate Complexity = "moderate"
	Complex  Complexity = "complex"
	Critical Complexity = "critical"
)

// timePerCandidate estimates single-model wall time per candidate, used
// only to produce the config's EstimatedTimeSeconds hint.
const timePerCandidate = 24.0

// table is one (n, temperatures) entry.
type table struct {
	n     int
	temps []float64
}

func defaultStrategies() map[Complexity]table {
	return map[Complexity]table{
		Trivial:  {1, []float64{0.2}},
		Simple:   {1, []float64{0.3}},
		Moderate: {2, []float64{0.2, 0.6}},
		Complex:  {3, []float64{0.2, 0.5, 0.8}},
		Critical: {3, []float64{0.1, 0.4, 0.7}},
	}
}

var (
	criticalKeywords = regexp.MustCompile(`(?i)\b(auth|encrypt|decrypt|jwt|token|security|password|hash|credential|oauth|ssl|tls|certificate|race\s*condition|mutex|lock|semaphore|deadlock|crypto|secret|sanitiz|injection|xss)\b`)
	complexKeywords  = regexp.MustCompile(`(?i)\b(middleware|parser|design\s*pattern|api|database|orm|websocket|microservice|pipeline|scheduler|queue|cache\s*system|state\s*machine|compiler|interpreter|protocol|distributed|algorithm|tree|graph\s*traversal|dynamic\s*programming)\b`)
	trivialKeywords  = regexp.MustCompile(`(?i)\b(hello\s*world|fizzbuzz|print|add\s*two\s*numbers|sum\s*of|swap\s*two|reverse\s*string|palindrome|even\s*or\s*odd|factorial\s*simple|fibonacci\s*simple|count\s*vowels|celsius\s*to|fahrenheit\s*to)\b`)
	simpleKeywords   = regexp.MustCompile(`(?i)\b(sort|filter|map|reduce|validate\s*email|read\s*file|write\s*file|format|convert|parse\s*json|calculate|counter|iterate|list\s*comprehension)\b`)
)

// isSecurityCode reports whether a domain code is in the band that forces
// Critical regardless of keyword match.
func isSecurityCode(code int) bool { return code >= 500 && code < 600 }

// Config is the strategy decision for one request.
type Config struct {
	N                    int
	Temperatures         []float64
	Complexity           Complexity
	Reasoning            string
	Confidence           float64
	EstimatedTimeSeconds float64
}

// Outcome is one recorded pipeline run, used to drive learning.
type Outcome struct {
	Timestamp  time.Time
	QueryHash  string
	Complexity Complexity
	N          int
	Temperatures []float64
	BestScore  float64
	AllPassed  bool
	TotalTime  time.Duration
	DomainCode *int
}

// Stats summarizes recorded history plus the current strategy table.
type Stats struct {
	TotalOutcomes          int
	ComplexityDistribution map[Complexity]int
	AvgScores              map[Complexity]float64
	CurrentStrategies      map[Complexity]Config
}

const maxHistory = 200

// Strategy classifies queries and holds mutable learned strategy state.
type Strategy struct {
	mu         sync.Mutex
	strategies map[Complexity]table
	history    []Outcome
	persist    func([]Outcome) error
}

// New builds a Strategy with the default table and no persistence. Callers
// that want the outcome history written to disk call SetPersist afterward.
func New() *Strategy {
	return &Strategy{strategies: defaultStrategies()}
}

// SetPersist installs a callback invoked with the full history after every
// recorded outcome (e.g. writing it to a JSON file).
func (s *Strategy) SetPersist(fn func([]Outcome) error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.persist = fn
}

// LoadHistory seeds the in-memory history (e.g. from a previously
// persisted JSON file), replaying no learning — only observations.
func (s *Strategy) LoadHistory(outcomes []Outcome) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = outcomes
	if len(s.history) > maxHistory {
		s.history = s.history[len(s.history)-maxHistory:]
	}
}

// ClassifyComplexity classifies a query into a complexity tier. A
// domainCode in [500, 600) forces Critical ahead of any keyword match.
func ClassifyComplexity(query string, domainCode *int) Complexity {
	if domainCode != nil && isSecurityCode(*domainCode) {
		return Critical
	}
	switch {
	case criticalKeywords.MatchString(query):
		return Critical
	case complexKeywords.MatchString(query):
		return Complex
	case trivialKeywords.MatchString(query):
		return Trivial
	case simpleKeywords.MatchString(query):
		return Simple
	}
	words := len(strings.Fields(query))
	switch {
	case words <= 8:
		return Simple
	case words <= 20:
		return Moderate
	default:
		return Complex
	}
}

// GetStrategy returns the strategy decision for a query.
func (s *Strategy) GetStrategy(query string, domainCode *int) Config {
	complexity := ClassifyComplexity(query, domainCode)

	s.mu.Lock()
	t := s.strategies[complexity]
	s.mu.Unlock()

	reasoning := "classified as " + string(complexity)
	if domainCode != nil && isSecurityCode(*domainCode) {
		reasoning += " (domain code indicates security)"
	}

	return Config{
		N:                    t.n,
		Temperatures:         append([]float64(nil), t.temps...),
		Complexity:           complexity,
		Reasoning:            reasoning,
		Confidence:           confidence(complexity, query),
		EstimatedTimeSeconds: float64(t.n) * timePerCandidate,
	}
}

func confidence(c Complexity, query string) float64 {
	switch {
	case c == Critical && criticalKeywords.MatchString(query):
		return 0.95
	case c == Trivial && trivialKeywords.MatchString(query):
		return 0.95
	case c == Complex && complexKeywords.MatchString(query):
		return 0.85
	case c == Simple && simpleKeywords.MatchString(query):
		return 0.80
	default:
		return 0.60
	}
}

// RecordOutcome appends a learning observation, caps history at 200
// entries, runs the learning step for its complexity, and persists if a
// callback is installed.
func (s *Strategy) RecordOutcome(query string, config Config, bestScore float64, allPassed bool, totalTime time.Duration, domainCode *int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sum := md5.Sum([]byte(query))
	outcome := Outcome{
		Timestamp:    time.Now(),
		QueryHash:    hex.EncodeToString(sum[:])[:12],
		Complexity:   config.Complexity,
		N:            config.N,
		Temperatures: config.Temperatures,
		BestScore:    bestScore,
		AllPassed:    allPassed,
		TotalTime:    totalTime,
		DomainCode:   domainCode,
	}
	s.history = append(s.history, outcome)
	if len(s.history) > maxHistory {
		s.history = s.history[len(s.history)-maxHistory:]
	}

	s.learn(config.Complexity)

	if s.persist != nil {
		_ = s.persist(append([]Outcome(nil), s.history...))
	}
}

// learn adjusts the strategy table for complexity once at least five
// outcomes exist for it, using the last ten. Must be called with mu held.
// Trivial and Critical are never adjusted.
func (s *Strategy) learn(complexity Complexity) {
	if complexity == Trivial || complexity == Critical {
		return
	}

	var matching []Outcome
	for _, o := range s.history {
		if o.Complexity == complexity {
			matching = append(matching, o)
		}
	}
	if len(matching) < 5 {
		return
	}

	recent := matching
	if len(recent) > 10 {
		recent = recent[len(recent)-10:]
	}

	var scoreSum float64
	var passCount int
	for _, o := range recent {
		scoreSum += o.BestScore
		if o.AllPassed {
			passCount++
		}
	}
	avgScore := scoreSum / float64(len(recent))
	passRate := float64(passCount) / float64(len(recent))

	current := s.strategies[complexity]
	defaults := defaultStrategies()

	switch {
	case avgScore > 0.9 && passRate > 0.9 && current.n > 1:
		newN := current.n - 1
		if newN < 1 {
			newN = 1
		}
		s.strategies[complexity] = table{n: newN, temps: current.temps[:newN]}
	case (avgScore < 0.7 || passRate < 0.7) && current.n < 3:
		newN := current.n + 1
		if newN > 3 {
			newN = 3
		}
		complexTemps := defaults[Complex].temps
		end := newN
		if end > len(complexTemps) {
			end = len(complexTemps)
		}
		s.strategies[complexity] = table{n: newN, temps: append([]float64(nil), complexTemps[:end]...)}
	}
}

// GetStats returns aggregate statistics over recorded history plus the
// current strategy table for every complexity tier.
func (s *Strategy) GetStats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := Stats{
		ComplexityDistribution: map[Complexity]int{},
		AvgScores:              map[Complexity]float64{},
		CurrentStrategies:      map[Complexity]Config{},
	}

	scoreSums := map[Complexity]float64{}
	for _, o := range s.history {
		stats.ComplexityDistribution[o.Complexity]++
		scoreSums[o.Complexity] += o.BestScore
	}
	for c, n := range stats.ComplexityDistribution {
		stats.AvgScores[c] = scoreSums[c] / float64(n)
	}
	stats.TotalOutcomes = len(s.history)

	for c, t := range s.strategies {
		stats.CurrentStrategies[c] = Config{N: t.n, Temperatures: append([]float64(nil), t.temps...), Complexity: c}
	}
	return stats
}
