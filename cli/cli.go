package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	cli "github.com/urfave/cli/v2"

	"github.com/ChristianF88/cidrfold/config"
	"github.com/ChristianF88/cidrfold/tui"
	"github.com/ChristianF88/cidrfold/version"
)

// newSelector picks the domain chooser; tests replace it.
var newSelector = tui.ForTerminal

// parseDate attempts to parse the build date
func parseDate(d string) time.Time {
	t, err := time.Parse(time.RFC3339, d)
	if err != nil {
		return time.Now()
	}
	return t
}

// Shared flag definitions to eliminate duplication
var (
	// Configuration flags
	configFlag = &cli.StringFlag{
		Name:    "config",
		Usage:   "Path to the source catalogue (TOML, or YAML for .yaml/.yml)",
		Value:   "sources.toml",
		EnvVars: []string{"CIDRFOLD_CONFIG"},
	}
	domainFlag = &cli.StringFlag{
		Name:    "domain",
		Usage:   "Zscaler cloud domain (e.g., zscaler.net). If not specified, you will be asked to pick one.",
		EnvVars: []string{"CIDRFOLD_DOMAIN"},
	}
	timeoutFlag = &cli.DurationFlag{
		Name:    "timeout",
		Usage:   "Timeout for every download and DNS query",
		EnvVars: []string{"CIDRFOLD_TIMEOUT"},
	}
	concurrencyFlag = &cli.IntFlag{
		Name:    "concurrency",
		Usage:   "Number of sources fetched in parallel",
		EnvVars: []string{"CIDRFOLD_CONCURRENCY"},
	}

	// Output flags
	outputFlag = &cli.StringFlag{
		Name:    "output",
		Aliases: []string{"o"},
		Usage:   "Output file name (default: " + config.DefaultOutput + ")",
		EnvVars: []string{"CIDRFOLD_OUTPUT"},
	}
	headerFlag = &cli.BoolFlag{
		Name:  "header",
		Usage: "Start the output file with a generated-at comment",
	}
	plotPathFlag = &cli.StringFlag{
		Name:  "plotPath",
		Usage: "Path where to save the coverage heatmap (e.g., '/path/to/heatmap.html'). If not provided, no plot will be generated.",
	}
	reportFlag = &cli.StringFlag{
		Name:  "report",
		Usage: "Path where to save the JSON run report",
	}
	compactFlag = &cli.BoolFlag{
		Name:  "compact",
		Usage: "Write the report as compact JSON (no pretty printing)",
		Value: false,
	}
	previousFlag = &cli.StringFlag{
		Name:  "previous",
		Usage: "Previously generated list to compare the new one against",
	}
	verifyFlag = &cli.BoolFlag{
		Name:  "verify",
		Usage: "Check that the consolidated list covers exactly the collected addresses",
	}
	logLevelFlag = &cli.StringFlag{
		Name:    "logLevel",
		Usage:   "Log level (debug, info, warn, error)",
		Value:   "info",
		EnvVars: []string{"CIDRFOLD_LOG_LEVEL"},
	}
)

var fetchFlags = []cli.Flag{
	// Configuration
	configFlag,
	domainFlag,
	timeoutFlag,
	concurrencyFlag,
	// Output flags
	outputFlag,
	headerFlag,
	plotPathFlag,
	reportFlag,
	compactFlag,
	previousFlag,
	verifyFlag,
	logLevelFlag,
}

func setupLogging(level string) error {
	if level == "" {
		return nil
	}
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	log.SetLevel(lvl)
	return nil
}

func validatePlotPath(plotPath string) error {
	if plotPath != "" {
		plotDir := filepath.Dir(plotPath)
		if plotDir == "." {
			plotDir, _ = os.Getwd()
		}
		if _, err := os.Stat(plotDir); os.IsNotExist(err) {
			return fmt.Errorf("plot directory does not exist: %s", plotDir)
		}
	}
	return nil
}

// applyFlags lets command line flags override the [global] section.
func applyFlags(c *cli.Context, cfg *config.Config) {
	g := cfg.Global
	if c.IsSet("output") {
		g.Output = c.String("output")
	}
	if c.IsSet("header") {
		g.Header = c.Bool("header")
	}
	if c.IsSet("plotPath") {
		g.PlotPath = c.String("plotPath")
	}
	if c.IsSet("report") {
		g.ReportPath = c.String("report")
	}
	if c.IsSet("previous") {
		g.Previous = c.String("previous")
	}
	if c.IsSet("timeout") {
		g.Timeout = c.Duration("timeout")
	}
	if c.IsSet("concurrency") {
		g.Concurrency = c.Int("concurrency")
	}
	if c.IsSet("logLevel") || g.LogLevel == "" {
		g.LogLevel = c.String("logLevel")
	}
}

// resolveDomain picks the domain from the flag (or its environment variable),
// then the config file, then asks the user. A catalogue without
// domain-scoped sources needs no domain.
func resolveDomain(c *cli.Context, cfg *config.Config) (string, error) {
	known := cfg.Domains()

	domain := c.String("domain")
	if domain == "" {
		domain = cfg.Global.Domain
	}
	if domain == "" {
		if len(known) == 0 {
			return "", nil
		}
		chosen, err := newSelector().Select("Select Zscaler domain", known)
		if err != nil {
			if errors.Is(err, tui.ErrCanceled) {
				return "", fmt.Errorf("no domain selected")
			}
			return "", err
		}
		return chosen, nil
	}

	found := false
	for _, d := range known {
		if d == domain {
			found = true
			break
		}
	}
	if !found && len(known) > 0 {
		log.Warn("Domain not listed by any source", "domain", domain, "known", known)
	}
	return domain, nil
}

// handleFetchCommand loads the catalogue, resolves the domain and runs the
// whole download and consolidation.
func handleFetchCommand(c *cli.Context) error {
	cfg, err := config.LoadConfig(c.String("config"))
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applyFlags(c, cfg)

	if err := setupLogging(cfg.Global.LogLevel); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if err := validatePlotPath(cfg.Global.PlotPath); err != nil {
		return err
	}

	domain, err := resolveDomain(c, cfg)
	if err != nil {
		return err
	}

	_, err = Fetch(c.Context, cfg, domain, RunOptions{
		Compact: c.Bool("compact"),
		Verify:  c.Bool("verify"),
		Out:     c.App.Writer,
	})
	return err
}

// handleMergeCommand consolidates local lists without touching the network.
func handleMergeCommand(c *cli.Context) error {
	if err := setupLogging(c.String("logLevel")); err != nil {
		return err
	}
	return Merge(c.Args().Slice(), MergeOptions{
		Output: c.String("output"),
		Header: c.Bool("header"),
		Verify: c.Bool("verify"),
		In:     c.App.Reader,
		Out:    c.App.Writer,
	})
}

// handleDomainsCommand prints the domains the catalogue knows about.
func handleDomainsCommand(c *cli.Context) error {
	cfg, err := config.LoadConfig(c.String("config"))
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	for _, d := range cfg.Domains() {
		fmt.Fprintln(c.App.Writer, d)
	}
	return nil
}

var App = &cli.App{
	Name:     "cidrfold",
	Usage:    "Download IPv4 range lists and consolidate them into a minimal CIDR list",
	Version:  version.Version,
	Compiled: parseDate(version.Date),
	Flags:    fetchFlags,
	Action:   handleFetchCommand,
	Commands: []*cli.Command{
		{
			Name:   "fetch",
			Usage:  "Download every source for a domain and write the consolidated list (default)",
			Flags:  fetchFlags,
			Action: handleFetchCommand,
		},
		{
			Name:      "merge",
			Usage:     "Consolidate local lists (or stdin) without downloading anything",
			ArgsUsage: "[file ...]",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:    "output",
					Aliases: []string{"o"},
					Usage:   "Output file name (default: stdout)",
				},
				headerFlag,
				verifyFlag,
				logLevelFlag,
			},
			Action: handleMergeCommand,
		},
		{
			Name:  "domains",
			Usage: "List the domains known to the source catalogue",
			Flags: []cli.Flag{
				configFlag,
			},
			Action: handleDomainsCommand,
		},
	},
}
