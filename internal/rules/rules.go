// Package rules loads the keyword rule file and matches comment text
// against it. The rule set hot-reloads when the file changes.
package rules

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"
)

// Rule pairs a keyword list with the reply to post when any keyword
// appears in a comment.
type Rule struct {
	Keywords []string `yaml:"keywords"`
	Reply    string   `yaml:"reply"`
}

// ruleFile is the YAML document shape.
type ruleFile struct {
	Rules []Rule `yaml:"rules"`
}

// compiledRule holds a rule with its keywords pre-normalized for
// matching.
type compiledRule struct {
	keywords []string
	reply    string
}

// Set is a hot-reloadable rule set. Match is safe to call concurrently
// with Reload.
type Set struct {
	path string

	mu    sync.RWMutex
	rules []compiledRule
}

// canonical normalizes text for matching: NFKC so visually equivalent
// characters compare equal, then Unicode case folding. Plain
// strings.ToLower would miss folds like İ or ß.
func canonical(s string) string {
	return cases.Fold().String(norm.NFKC.String(s))
}

// Load reads and compiles the rule file at path.
func Load(path string) (*Set, error) {
	s := &Set{path: path}

	if err := s.Reload(); err != nil {
		return nil, err
	}

	return s, nil
}

// Reload re-reads the rule file, replacing the active rules only when
// the new file parses and validates. A broken edit keeps the previous
// rules in force.
func (s *Set) Reload() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("reading rule file: %w", err)
	}

	var file ruleFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parsing rule file: %w", err)
	}

	compiled := make([]compiledRule, 0, len(file.Rules))

	for i, r := range file.Rules {
		if len(r.Keywords) == 0 {
			return fmt.Errorf("rule %d has no keywords", i+1)
		}

		if strings.TrimSpace(r.Reply) == "" {
			return fmt.Errorf("rule %d has an empty reply", i+1)
		}

		cr := compiledRule{reply: r.Reply}

		for _, kw := range r.Keywords {
			kw = strings.TrimSpace(kw)
			if kw == "" {
				continue
			}

			cr.keywords = append(cr.keywords, canonical(kw))
		}

		if len(cr.keywords) == 0 {
			return fmt.Errorf("rule %d has only blank keywords", i+1)
		}

		compiled = append(compiled, cr)
	}

	s.mu.Lock()
	s.rules = compiled
	s.mu.Unlock()

	return nil
}

// Match returns the reply for the first rule whose keyword appears in
// the text, in file order. The second return is false when no rule
// matches.
func (s *Set) Match(text string) (string, bool) {
	folded := canonical(text)

	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, r := range s.rules {
		for _, kw := range r.keywords {
			if strings.Contains(folded, kw) {
				return r.reply, true
			}
		}
	}

	return "", false
}

// Len returns the number of active rules.
func (s *Set) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.rules)
}
