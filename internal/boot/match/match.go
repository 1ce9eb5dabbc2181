// Package match has the typed filename matchers the boot sequence uses to find
// artifacts in a directory. Matchers are evaluated in priority order and the
// first one with a hit wins.
package match

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
)

// Matcher finds entries relative to a base directory.
type Matcher interface {
	// Match returns the matching paths (joined with dir), sorted.
	Match(dir string) ([]string, error)
	String() string
}

// Exact matches a single relative path if it exists.
func Exact(name string) Matcher { return exact(name) }

type exact string

func (e exact) Match(dir string) ([]string, error) {
	p := filepath.Join(dir, string(e))
	_, err := os.Stat(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("could not stat %q: %w", p, err)
	}
	return []string{p}, nil
}

func (e exact) String() string { return "exact:" + string(e) }

// Glob matches a shell pattern relative to the directory, it can have path separators.
func Glob(pattern string) Matcher { return glob(pattern) }

type glob string

func (g glob) Match(dir string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, string(g)))
	if err != nil {
		return nil, fmt.Errorf("invalid glob %q: %w", string(g), err)
	}
	sort.Strings(matches)
	return matches, nil
}

func (g glob) String() string { return "glob:" + string(g) }

// Regex matches the names of the directory direct entries.
func Regex(expr string) Matcher {
	return &regex{re: regexp.MustCompile(expr)}
}

type regex struct {
	re *regexp.Regexp
}

func (r *regex) Match(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("could not read dir %q: %w", dir, err)
	}

	var matches []string
	for _, e := range entries {
		if r.re.MatchString(e.Name()) {
			matches = append(matches, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(matches)
	return matches, nil
}

func (r *regex) String() string { return "regex:" + r.re.String() }

// Filter drops candidates from a matcher result.
type Filter func(path string) bool

// First evaluates the matchers in order and returns the first path that passes
// all the filters, with the matcher that found it. An empty path means no hit.
func First(dir string, matchers []Matcher, filters ...Filter) (string, Matcher, error) {
	for _, m := range matchers {
		matches, err := m.Match(dir)
		if err != nil {
			return "", nil, err
		}

	next:
		for _, p := range matches {
			for _, f := range filters {
				if !f(p) {
					continue next
				}
			}
			return p, m, nil
		}
	}

	return "", nil, nil
}

// RegularFile filters out everything that is not a regular file.
func RegularFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
