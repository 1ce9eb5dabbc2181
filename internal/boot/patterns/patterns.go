// Package patterns loads the lower-cased pattern lists operators feed to the boot
// sequence (client-only hints, force lists, allowlists and disabled namespaces).
package patterns

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/slok/gsx/internal/log"
	"github.com/slok/gsx/internal/utils/retry"
)

// Source is where a pattern list comes from. All the set sources are merged.
type Source struct {
	// Inline is a comma separated list.
	Inline string
	// URL is a remote newline or comma separated list, `#` starts a comment.
	URL string
	// File is a list file, relative paths are resolved from the working directory.
	File string
}

// IsZero returns true when no source has been set.
func (s Source) IsZero() bool {
	return s.Inline == "" && s.URL == "" && s.File == ""
}

// List is a normalized pattern list.
type List []string

// MatchAny returns the first pattern contained in name (case insensitive).
func (l List) MatchAny(name string) (string, bool) {
	name = strings.ToLower(name)
	for _, p := range l {
		if strings.Contains(name, p) {
			return p, true
		}
	}
	return "", false
}

// Has returns true if the list has exactly the value (case insensitive).
func (l List) Has(value string) bool {
	value = strings.ToLower(value)
	for _, p := range l {
		if p == value {
			return true
		}
	}
	return false
}

// LoaderConfig is the configuration of the pattern loader.
type LoaderConfig struct {
	HTTPClient *http.Client
	// FetchTimeout bounds every remote fetch attempt.
	FetchTimeout  time.Duration
	FetchAttempts int
	// BaseDir resolves relative list files.
	BaseDir string
	Logger  log.Logger
}

func (c *LoaderConfig) defaults() error {
	if c.HTTPClient == nil {
		c.HTTPClient = http.DefaultClient
	}

	if c.FetchTimeout == 0 {
		c.FetchTimeout = 10 * time.Second
	}

	if c.FetchAttempts == 0 {
		c.FetchAttempts = 3
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "boot.patterns.Loader"})

	return nil
}

// Loader loads pattern lists from their sources.
type Loader struct {
	httpCli       *http.Client
	fetchTimeout  time.Duration
	fetchAttempts int
	baseDir       string
	logger        log.Logger
}

// NewLoader returns a new pattern list loader.
func NewLoader(cfg LoaderConfig) (*Loader, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &Loader{
		httpCli:       cfg.HTTPClient,
		fetchTimeout:  cfg.FetchTimeout,
		fetchAttempts: cfg.FetchAttempts,
		baseDir:       cfg.BaseDir,
		logger:        cfg.Logger,
	}, nil
}

// Load merges all the sources into a single de-duplicated list. Sources that
// can't be read are logged and skipped so a broken list never blocks a boot.
func (l *Loader) Load(ctx context.Context, src Source) List {
	var all []string

	all = append(all, Parse(src.Inline)...)

	if src.File != "" {
		p := src.File
		if !filepath.IsAbs(p) && l.baseDir != "" {
			p = filepath.Join(l.baseDir, p)
		}
		data, err := os.ReadFile(p)
		switch {
		case errors.Is(err, os.ErrNotExist):
			l.logger.Debugf("Pattern file %q missing, ignoring", p)
		case err != nil:
			l.logger.Warningf("Could not read pattern file %q: %s", p, err)
		default:
			all = append(all, Parse(string(data))...)
		}
	}

	if src.URL != "" {
		remote, err := l.fetch(ctx, src.URL)
		if err != nil {
			l.logger.Warningf("Could not fetch pattern list %q, ignoring: %s", src.URL, err)
		} else {
			all = append(all, remote...)
		}
	}

	return dedup(all)
}

func (l *Loader) fetch(ctx context.Context, url string) ([]string, error) {
	var list []string
	err := retry.Do(ctx, retry.Config{Attempts: l.fetchAttempts, Logger: l.logger}, func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, l.fetchTimeout)
		defer cancel()

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		resp, err := l.httpCli.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("unexpected status code %d", resp.StatusCode)
		}

		data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if err != nil {
			return err
		}
		list = Parse(string(data))
		return nil
	})
	if err != nil {
		return nil, err
	}

	return list, nil
}

// Parse parses a newline or comma separated list, ignoring `#` comments and
// empty entries. Entries are lower-cased.
func Parse(s string) []string {
	var res []string
	sc := bufio.NewScanner(strings.NewReader(s))
	for sc.Scan() {
		line := sc.Text()
		if i := strings.Index(line, "#"); i >= 0 {
			line = line[:i]
		}
		for _, f := range strings.Split(line, ",") {
			f = strings.ToLower(strings.TrimSpace(f))
			if f != "" {
				res = append(res, f)
			}
		}
	}
	return res
}

func dedup(in []string) List {
	seen := map[string]struct{}{}
	res := List{}
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		res = append(res, s)
	}
	return res
}
