package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"

	"github.com/ChristianF88/cidrfold/config"
	"github.com/ChristianF88/cidrfold/dedup"
	"github.com/ChristianF88/cidrfold/output"
	"github.com/ChristianF88/cidrfold/pipeline"
	"github.com/ChristianF88/cidrfold/source"
	"github.com/ChristianF88/cidrfold/version"
)

// checkCoverage is replaced in tests to force a mismatch.
var checkCoverage = pipeline.Verify

// RunOptions are the fetch settings that do not live in the config file.
type RunOptions struct {
	Compact bool
	Verify  bool
	Out     io.Writer
}

// MergeOptions configures Merge.
type MergeOptions struct {
	Output string // empty writes to Out
	Header bool
	Verify bool
	In     io.Reader
	Out    io.Writer
}

// Fetch downloads every source that applies to domain, consolidates the
// tokens and writes the list to cfg.Global.Output.
func Fetch(ctx context.Context, cfg *config.Config, domain string, opts RunOptions) (*pipeline.Result, error) {
	start := time.Now()
	g := cfg.Global
	if opts.Out == nil {
		opts.Out = os.Stdout
	}

	sources := cfg.SourcesFor(domain)
	if domain != "" {
		log.Info("Using domain", "domain", domain, "sources", len(sources))
	}
	fetchers, err := source.FromConfig(sources, source.Options{Timeout: g.Timeout, MaxLookups: g.MaxLookups})
	if err != nil {
		return nil, fmt.Errorf("failed to build sources: %w", err)
	}

	// Read the previous list first; it may be the file we are about to replace.
	var previous []string
	if g.Previous != "" {
		previous, err = output.ReadList(g.Previous)
		if err != nil {
			return nil, fmt.Errorf("failed to read previous list: %w", err)
		}
	}

	set := dedup.NewSet(1024)
	reports := source.Collect(ctx, fetchers, set, g.Concurrency)

	failed := 0
	for _, r := range reports {
		if r.Err != nil {
			failed++
		}
	}
	if failed > 0 && set.Len() == 0 {
		return nil, fmt.Errorf("nothing collected and %d of %d sources failed, not writing %s", failed, len(reports), g.Output)
	}

	result := pipeline.RunSet(set)
	logMalformed(result)

	report := output.NewReport("fetch", version.Version, start)
	report.Domain = domain
	ipv6 := 0
	for _, r := range reports {
		sr := output.SourceResult{
			Name:       r.Name,
			Tokens:     r.Count,
			New:        r.Added,
			IPv6:       r.IPv6,
			DurationMS: r.Duration.Milliseconds(),
		}
		if r.Err != nil {
			sr.Error = r.Err.Error()
			report.AddError("source", fmt.Sprintf("%s: %v", r.Name, r.Err), 1)
		}
		ipv6 += r.IPv6
		report.Sources = append(report.Sources, sr)
	}
	fillReport(report, result, g.Output)
	report.Totals.IPv6Skipped += ipv6

	if opts.Verify {
		if err := verify(set.Tokens(), result, report); err != nil {
			return nil, err
		}
	}

	if err := output.WriteFile(g.Output, result.Ranges, g.Header); err != nil {
		return nil, err
	}

	if g.PlotPath != "" {
		if err := output.PlotHeatmap(result.Ranges, g.PlotPath); err != nil {
			return nil, err
		}
	}

	if g.Previous != "" {
		diff := output.Compare(previous, result.Lines())
		report.Diff = &diff
		if diff.Empty() {
			log.Info("No changes since previous list", "previous", g.Previous)
		} else {
			log.Info("Changes since previous list", "added", len(diff.Added), "removed", len(diff.Removed))
		}
	}

	if g.ReportPath != "" {
		report.UpdateDuration(start)
		if err := writeReport(report, g.ReportPath, opts.Compact); err != nil {
			return nil, err
		}
	}

	printSummary(opts.Out, result, g.Output)
	return result, nil
}

// Merge consolidates the tokens of local files, or of In when no file is
// given. Nothing is fetched.
func Merge(files []string, opts MergeOptions) error {
	if opts.In == nil {
		opts.In = os.Stdin
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}

	var tokens []string
	if len(files) == 0 {
		read, err := source.ParseLines(opts.In)
		if err != nil {
			return fmt.Errorf("failed to read stdin: %w", err)
		}
		tokens = read
	}
	for _, name := range files {
		read, err := readTokens(name)
		if err != nil {
			return err
		}
		tokens = append(tokens, read...)
	}

	result := pipeline.Run(tokens)
	logMalformed(result)

	if opts.Verify {
		if err := verify(tokens, result, nil); err != nil {
			return err
		}
	}

	if opts.Output == "" {
		return output.WriteLines(opts.Out, result.Ranges)
	}
	if err := output.WriteFile(opts.Output, result.Ranges, opts.Header); err != nil {
		return err
	}
	printSummary(opts.Out, result, opts.Output)
	return nil
}

func readTokens(name string) ([]string, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", name, err)
	}
	defer f.Close()

	tokens, err := source.ParseLines(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}
	return tokens, nil
}

func logMalformed(result *pipeline.Result) {
	for _, m := range result.Malformed {
		log.Warn("Error parsing address", "token", m.Token, "reason", m.Reason)
	}
}

// verify checks the list against the collected tokens. A mismatch is an error.
func verify(tokens []string, result *pipeline.Result, report *output.Report) error {
	cov, err := checkCoverage(tokens, result.Ranges)
	if err != nil {
		return fmt.Errorf("coverage check failed: %w", err)
	}
	if report != nil {
		report.SetVerified(cov.Equal)
	}
	if !cov.Equal {
		for _, r := range cov.Missing {
			log.Error("Range missing from consolidated list", "range", r.String())
		}
		for _, r := range cov.Extra {
			log.Error("Range not in any source", "range", r.String())
		}
		return fmt.Errorf("coverage mismatch: %d prefixes missing, %d extra", len(cov.Missing), len(cov.Extra))
	}
	log.Info("Coverage verified", "ranges", len(result.Ranges))
	return nil
}

func fillReport(report *output.Report, result *pipeline.Result, path string) {
	report.Totals = output.Totals{
		Collected:   result.Collected,
		Unique:      result.Unique,
		Valid:       result.Valid(),
		Malformed:   len(result.Malformed),
		IPv6Skipped: result.IPv6Skipped,
	}
	report.SetStats(result.Stats)
	report.Output = output.Output{
		Path:      path,
		Ranges:    len(result.Ranges),
		Addresses: result.Addresses(),
	}
	if n := len(result.Malformed); n > 0 {
		report.AddWarning("malformed", "tokens that are not IPv4 addresses or CIDR blocks were skipped", n)
	}
	if n := result.Stats.Fallbacks; n > 0 {
		report.AddWarning("summarization", "overlapping ranges that do not form a single block were kept apart", n)
	}
}

func writeReport(report *output.Report, path string, compact bool) error {
	var (
		data []byte
		err  error
	)
	if compact {
		data, err = report.ToCompactJSON()
	} else {
		data, err = report.ToJSON()
	}
	if err != nil {
		return fmt.Errorf("failed to generate JSON report: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	log.Info("Report saved", "path", path)
	return nil
}

func printSummary(w io.Writer, result *pipeline.Result, path string) {
	fmt.Fprintf(w, "Total IP ranges collected: %s\n", humanize.Comma(int64(result.Collected)))
	fmt.Fprintf(w, "Unique IP ranges: %s\n", humanize.Comma(int64(result.Unique)))
	if n := len(result.Malformed); n > 0 {
		fmt.Fprintf(w, "Skipped malformed entries: %s\n", humanize.Comma(int64(n)))
	}
	fmt.Fprintf(w, "Consolidated networks: %s (%s addresses)\n",
		humanize.Comma(int64(len(result.Ranges))), humanize.Comma(int64(result.Addresses())))
	fmt.Fprintf(w, "Results saved to: %s\n", path)
}
