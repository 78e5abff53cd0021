package routing

import (
	"regexp"
	"strings"
	"sync"

	"pointer-relay/internal/config"
)

// Matcher tests URLs against routing rules. Regex patterns are compiled
// once and cached; a pattern that fails to compile is cached as
// never-matching so one bad rule cannot break routing.
type Matcher struct {
	mu      sync.RWMutex
	regexes map[string]*regexp.Regexp // pattern → compiled (nil = invalid)
}

// NewMatcher creates a Matcher with an empty compile cache.
func NewMatcher() *Matcher {
	return &Matcher{
		regexes: make(map[string]*regexp.Regexp),
	}
}

// Match returns the first enabled rule whose pattern matches url, in
// list order, or nil if none match. Rules after the first match are
// never evaluated.
func (m *Matcher) Match(url string, rules []config.Rule) *config.Rule {
	for i := range rules {
		rule := &rules[i]
		if !rule.Enabled {
			continue
		}
		if m.matches(url, rule) {
			return rule
		}
	}
	return nil
}

func (m *Matcher) matches(url string, rule *config.Rule) bool {
	switch rule.PatternType {
	case config.PatternPort:
		// The pattern is raw text, not a parsed port number. ":80"
		// matching inside paths or query strings is accepted imprecision.
		return strings.Contains(url, ":"+rule.Pattern)

	case config.PatternContains:
		return strings.Contains(url, rule.Pattern)

	case config.PatternRegex:
		re := m.compiled(rule.Pattern)
		if re == nil {
			return false
		}
		return re.MatchString(url)

	default:
		return false
	}
}

// compiled returns the cached regexp for pattern, compiling it on first
// use. Returns nil for patterns that do not compile.
func (m *Matcher) compiled(pattern string) *regexp.Regexp {
	m.mu.RLock()
	re, ok := m.regexes[pattern]
	m.mu.RUnlock()
	if ok {
		return re
	}

	re, err := regexp.Compile(pattern)
	if err != nil {
		re = nil
	}

	m.mu.Lock()
	m.regexes[pattern] = re
	m.mu.Unlock()

	return re
}
