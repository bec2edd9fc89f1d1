package redact

import (
	"path"
	"regexp"
	"sort"
	"strings"
)

// Rule is a named secret shape.
type Rule struct {
	Name    string
	Pattern *regexp.Regexp
}

// DefaultRules are regex heuristics for secrets commonly committed to
// TypeScript and JavaScript repositories.
var DefaultRules = []Rule{
	{"private-key", regexp.MustCompile(`-----BEGIN\s+(?:RSA\s+|EC\s+|OPENSSH\s+)?PRIVATE KEY-----[\s\S]*?-----END\s+(?:RSA\s+|EC\s+|OPENSSH\s+)?PRIVATE KEY-----`)},
	{"jwt", regexp.MustCompile(`eyJ[A-Za-z0-9_-]{10,}\.eyJ[A-Za-z0-9_-]{10,}\.[A-Za-z0-9_-]{10,}`)},
	{"aws-access-key-id", regexp.MustCompile(`\b(?:AKIA|ASIA)[0-9A-Z]{16}\b`)},
	{"github-token", regexp.MustCompile(`\bgh[pousr]_[A-Za-z0-9_]{36,}`)},
	{"slack-token", regexp.MustCompile(`\bxox[bporas]-[A-Za-z0-9-]{10,}`)},
	{"anthropic-key", regexp.MustCompile(`\bsk-ant-[A-Za-z0-9_-]{20,}`)},
	{"openai-key", regexp.MustCompile(`\bsk-(?:proj-)?[A-Za-z0-9_-]{20,}`)},
	{"huggingface-token", regexp.MustCompile(`\bhf_[A-Za-z0-9]{30,}`)},
	{"connection-string", regexp.MustCompile(`\b[a-z][a-z0-9+.-]*://[^\s:/@'"]+:[^\s@'"]+@[^\s'"]+`)},
	{"bearer", regexp.MustCompile(`(?i)\bBearer\s+[A-Za-z0-9._~+/-]{20,}=*`)},
	{"assignment", regexp.MustCompile(`(?i)\b(?:api[_-]?key|api[_-]?secret|secret|token|password|passwd|credential)s?["']?\s*[:=]\s*["'][^"'\s]{8,}["']`)},
}

// Stats reports what a Redact call removed.
type Stats struct {
	// ByRule counts replacements per rule name.
	ByRule map[string]int
	// WholeFile is set when a path policy replaced the entire content.
	WholeFile bool
}

// Total returns the number of replacements.
func (s Stats) Total() int {
	n := 0
	for _, c := range s.ByRule {
		n += c
	}
	return n
}

// Rules returns the names of rules that fired, sorted.
func (s Stats) Rules() []string {
	names := make([]string, 0, len(s.ByRule))
	for name := range s.ByRule {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Redactor scrubs file content before it leaves the machine. It is safe for
// concurrent use.
type Redactor struct {
	rules []Rule
	paths []string
}

// New returns a Redactor using DefaultRules. Files whose slash-separated
// relative path matches one of pathPatterns are withheld entirely.
func New(pathPatterns []string) *Redactor {
	return &Redactor{rules: DefaultRules, paths: pathPatterns}
}

// WithRules returns a copy of r using rules instead of the defaults.
func (r *Redactor) WithRules(rules []Rule) *Redactor {
	return &Redactor{rules: rules, paths: r.paths}
}

// Redact returns content with every rule match replaced by a
// "[REDACTED:<rule>]" marker.
func (r *Redactor) Redact(relPath, content string) (string, Stats) {
	stats := Stats{ByRule: map[string]int{}}
	if MatchPath(relPath, r.paths) {
		stats.WholeFile = true
		return "[REDACTED] (file content withheld by path policy)\n", stats
	}
	for _, rule := range r.rules {
		marker := "[REDACTED:" + rule.Name + "]"
		content = rule.Pattern.ReplaceAllStringFunc(content, func(string) string {
			stats.ByRule[rule.Name]++
			return marker
		})
	}
	return content, stats
}

// MatchPath reports whether a slash-separated path matches any pattern.
// Patterns use path.Match syntax plus two conveniences: a leading "**/"
// matches in any directory and a trailing "/**" matches everything below a
// directory.
func MatchPath(p string, patterns []string) bool {
	for _, pattern := range patterns {
		if pattern == "" {
			continue
		}
		if ok, err := path.Match(pattern, p); err == nil && ok {
			return true
		}
		if dir, found := strings.CutSuffix(pattern, "/**"); found {
			if strings.HasPrefix(p, dir+"/") {
				return true
			}
		}
		if rest, found := strings.CutPrefix(pattern, "**/"); found {
			if ok, err := path.Match(rest, path.Base(p)); err == nil && ok {
				return true
			}
			if ok, err := path.Match(rest, p); err == nil && ok {
				return true
			}
		}
	}
	return false
}
