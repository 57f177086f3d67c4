package resolver

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
)

// Rule maps raw export names matching a pattern straight to a canonical
// item name, bypassing fuzzy matching. Rules exist for the labels the
// POS mangles in ways no similarity score recovers ("SRD/WH 800g").
type Rule struct {
	Pattern   *regexp.Regexp
	Canonical string
}

// ParseRules reads a rules file: one rule per line in the form
//
//	pattern => Canonical Name
//
// Patterns are case-insensitive regular expressions matched against the
// normalized raw name. Blank lines and #-comments are skipped.
func ParseRules(r io.Reader) ([]Rule, error) {
	var rules []Rule

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		pattern, canonical, ok := strings.Cut(line, "=>")
		if !ok {
			return nil, fmt.Errorf("line %d: want \"pattern => Canonical Name\", got %q", lineNo, line)
		}
		pattern = strings.TrimSpace(pattern)
		canonical = strings.TrimSpace(canonical)
		if pattern == "" || canonical == "" {
			return nil, fmt.Errorf("line %d: empty pattern or canonical name", lineNo)
		}

		re, err := regexp.Compile("(?i)" + pattern)
		if err != nil {
			return nil, fmt.Errorf("line %d: bad pattern %q: %w", lineNo, pattern, err)
		}
		rules = append(rules, Rule{Pattern: re, Canonical: canonical})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return rules, nil
}

// LoadRules parses the rules file at path. A missing path yields no
// rules rather than an error so the feature stays optional.
func LoadRules(path string) ([]Rule, error) {
	if path == "" {
		return nil, nil
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()
	return ParseRules(f)
}
