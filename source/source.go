// Package source fetches raw address tokens from the places listed in the
// configuration: HTTP JSON feeds, text lists, SPF records and log shippers.
package source

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/ChristianF88/cidrfold/config"
	"github.com/ChristianF88/cidrfold/dedup"
	"github.com/ChristianF88/cidrfold/iputils"
)

// Fetcher retrieves the raw tokens of one source.
type Fetcher interface {
	Name() string
	Fetch(ctx context.Context) ([]string, error)
}

// Report is the outcome of fetching one source.
type Report struct {
	Name     string
	Count    int // IPv4 tokens returned by the source
	Added    int // tokens that were new to the set
	IPv6     int // tokens dropped because they contain ':'
	Err      error
	Duration time.Duration
}

// Options carries the global settings fetchers need.
type Options struct {
	Timeout    time.Duration
	MaxLookups int
}

// New builds the fetcher for a resolved source.
func New(src *config.SourceConfig, opts Options) (Fetcher, error) {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = config.DefaultTimeout
	}

	switch src.Format {
	case config.FormatHub, config.FormatPrefixes, config.FormatZPA:
		if src.URL == "" {
			return nil, fmt.Errorf("source %s: no url", src.Name)
		}
		return NewHTTPFetcher(src.Name, src.URL, src.Format, timeout), nil
	case config.FormatLines:
		if src.Path != "" {
			return NewFileFetcher(src.Name, src.Path), nil
		}
		if src.URL == "" {
			return nil, fmt.Errorf("source %s: no url or path", src.Name)
		}
		return NewHTTPFetcher(src.Name, src.URL, src.Format, timeout), nil
	case config.FormatSPF:
		return NewSPFFetcher(src.Name, src.SPF, src.Nameserver, opts.MaxLookups, timeout), nil
	case config.FormatLumberjack:
		return NewLumberjackFetcher(src.Name, src.Listen, src.Window), nil
	}
	return nil, fmt.Errorf("source %s: unsupported format %q", src.Name, src.Format)
}

// FromConfig builds a fetcher for every source.
func FromConfig(sources []*config.SourceConfig, opts Options) ([]Fetcher, error) {
	fetchers := make([]Fetcher, 0, len(sources))
	for _, src := range sources {
		f, err := New(src, opts)
		if err != nil {
			return nil, err
		}
		fetchers = append(fetchers, f)
	}
	return fetchers, nil
}

// Collect runs the fetchers with at most concurrency in flight and adds every
// IPv4 token they return to set. A failing source is logged and reported; it
// never stops the others. Reports are returned in fetcher order.
func Collect(ctx context.Context, fetchers []Fetcher, set *dedup.Set, concurrency int) []Report {
	reports := make([]Report, len(fetchers))
	if concurrency <= 0 {
		concurrency = 1
	}

	var g errgroup.Group
	g.SetLimit(concurrency)

	for i, f := range fetchers {
		i, f := i, f
		g.Go(func() error {
			reports[i] = collectOne(ctx, f, set)
			return nil
		})
	}
	_ = g.Wait()

	return reports
}

func collectOne(ctx context.Context, f Fetcher, set *dedup.Set) Report {
	report := Report{Name: f.Name()}
	start := time.Now()

	log.Info("Fetching source", "source", report.Name)
	tokens, err := f.Fetch(ctx)
	report.Duration = time.Since(start)
	if err != nil {
		report.Err = err
		log.Error("Source failed", "source", report.Name, "error", err)
	}

	for _, token := range tokens {
		if iputils.IsIPv6Token(token) {
			report.IPv6++
			log.Debug("Dropping IPv6 token", "source", report.Name, "token", token)
			continue
		}
		report.Count++
		if set.Add(token) {
			report.Added++
		}
	}

	if err == nil {
		log.Info("Found IP ranges", "source", report.Name, "count", report.Count, "ipv6", report.IPv6, "took", report.Duration.Round(time.Millisecond))
	}
	return report
}
