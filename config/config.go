package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DefaultOutput      = "zpa_bc_subnet_consolidate.txt"
	DefaultTimeout     = 30 * time.Second
	DefaultConcurrency = 4
	DefaultMaxLookups  = 10
	DefaultWindow      = 10 * time.Second

	DigiCertSource      = "DigiCert"
	DefaultDigiCertPath = "digicert-subnets.txt"
)

// Format names how a source encodes its address list.
type Format string

const (
	FormatHub        Format = "hub"        // {"hubPrefixes": [...]}
	FormatPrefixes   Format = "prefixes"   // {"prefixes": [...]}
	FormatZPA        Format = "zpa"        // {"content": [{"IPs": [...]}]}
	FormatLines      Format = "lines"      // one token per line
	FormatSPF        Format = "spf"        // ip4: mechanisms of a TXT record
	FormatLumberjack Format = "lumberjack" // tokens pushed by a log shipper
)

var knownFormats = map[Format]bool{
	FormatHub: true, FormatPrefixes: true, FormatZPA: true,
	FormatLines: true, FormatSPF: true, FormatLumberjack: true,
}

// Well-known source names and the format they publish.
var wellKnownFormats = map[string]Format{
	"ZscalerHubIPAddresses":      FormatHub,
	"CloudEnforcementNodeRanges": FormatPrefixes,
	"ZPAAllowList":               FormatZPA,
}

// builtinSources are added to every catalogue unless it configures a source
// of the same name or switches it off with `Name = false`.
func builtinSources() map[string]*SourceConfig {
	return map[string]*SourceConfig{
		DigiCertSource: {Name: DigiCertSource, Format: FormatLines, Path: DefaultDigiCertPath},
	}
}

// Keys that turn a source table into an explicit source rather than a
// domain -> URL map.
var sourceKeys = []string{"format", "url", "path", "domains", "spf", "listen", "window"}

type GlobalConfig struct {
	Output      string        `toml:"output"`
	Domain      string        `toml:"domain"`
	Timeout     time.Duration `toml:"timeout"`
	Concurrency int           `toml:"concurrency"`
	MaxLookups  int           `toml:"maxLookups"`
	Header      bool          `toml:"header"`
	PlotPath    string        `toml:"plotPath"`
	ReportPath  string        `toml:"reportPath"`
	Previous    string        `toml:"previous"`
	LogLevel    string        `toml:"logLevel"`
}

// SourceConfig describes one place raw tokens come from.
//
// Exactly one location is used depending on Format: URL for the JSON formats
// and remote line lists, Path for local line lists, SPF for DNS lookups
// (against Nameserver when set) and Listen for the lumberjack receiver.
//
// A source with DomainURLs or AllowedDomains only applies to the domains it
// names. Anything else applies to every domain.
type SourceConfig struct {
	Name           string
	Format         Format
	URL            string
	Path           string
	SPF            string
	Nameserver     string
	Listen         string
	Window         time.Duration
	DomainURLs     map[string]string
	AllowedDomains []string
}

type Config struct {
	Global  *GlobalConfig
	Sources map[string]*SourceConfig
}

// LoadConfig reads a TOML or YAML source catalogue. Files ending in .yaml or
// .yml are decoded as YAML, everything else as TOML.
func LoadConfig(configPath string) (*Config, error) {
	configData, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var rawConfig map[string]any
	switch strings.ToLower(filepath.Ext(configPath)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(configData, &rawConfig); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	default:
		if _, err := toml.Decode(string(configData), &rawConfig); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	return fromMap(rawConfig)
}

func fromMap(rawConfig map[string]any) (*Config, error) {
	config := &Config{Sources: make(map[string]*SourceConfig)}
	builtins := builtinSources()
	disabled := make(map[string]bool)

	for key, value := range rawConfig {
		if key == "global" {
			if value == nil {
				continue
			}
			globalMap, ok := value.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("global section must be a table")
			}
			global, err := parseGlobalConfig(globalMap)
			if err != nil {
				return nil, fmt.Errorf("parsing global config: %w", err)
			}
			config.Global = global
			continue
		}

		if on, ok := value.(bool); ok {
			if _, builtin := builtins[key]; !builtin {
				return nil, fmt.Errorf("parsing source %q: only built-in sources can be switched on or off", key)
			}
			disabled[key] = !on
			continue
		}

		source, err := parseSourceConfig(key, value)
		if err != nil {
			return nil, fmt.Errorf("parsing source %q: %w", key, err)
		}
		config.Sources[key] = source
	}

	for name, src := range builtins {
		if _, ok := config.Sources[name]; !ok && !disabled[name] {
			config.Sources[name] = src
		}
	}

	if config.Global == nil {
		config.Global = defaultGlobalConfig()
	}
	return config, nil
}

func defaultGlobalConfig() *GlobalConfig {
	return &GlobalConfig{
		Output:      DefaultOutput,
		Timeout:     DefaultTimeout,
		Concurrency: DefaultConcurrency,
		MaxLookups:  DefaultMaxLookups,
	}
}

func parseGlobalConfig(m map[string]any) (*GlobalConfig, error) {
	config := defaultGlobalConfig()
	if v, ok := m["output"].(string); ok && v != "" {
		config.Output = v
	}
	if v, ok := m["domain"].(string); ok {
		config.Domain = v
	}
	if v, ok := m["timeout"]; ok {
		d, err := toDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid timeout: %w", err)
		}
		config.Timeout = d
	}
	if v, ok := m["concurrency"]; ok {
		n, ok := toInt(v)
		if !ok {
			return nil, fmt.Errorf("concurrency must be an integer, got %v", v)
		}
		config.Concurrency = n
	}
	if v, ok := m["maxLookups"]; ok {
		n, ok := toInt(v)
		if !ok {
			return nil, fmt.Errorf("maxLookups must be an integer, got %v", v)
		}
		config.MaxLookups = n
	}
	if v, ok := m["header"].(bool); ok {
		config.Header = v
	}
	if v, ok := m["plotPath"].(string); ok {
		config.PlotPath = v
	}
	if v, ok := m["reportPath"].(string); ok {
		config.ReportPath = v
	}
	if v, ok := m["previous"].(string); ok {
		config.Previous = v
	}
	if v, ok := m["logLevel"].(string); ok {
		config.LogLevel = v
	}
	return config, nil
}

func parseSourceConfig(name string, value any) (*SourceConfig, error) {
	config := &SourceConfig{Name: name}

	switch v := value.(type) {
	case string:
		config.URL = v
	case map[string]any:
		if isExplicitSource(v) {
			if err := parseExplicitSource(config, v); err != nil {
				return nil, err
			}
		} else {
			urls, err := toStringMap(v)
			if err != nil {
				return nil, err
			}
			config.DomainURLs = urls
		}
	default:
		return nil, fmt.Errorf("expected a URL or a table, got %T", value)
	}

	if config.Format == "" {
		config.Format = inferFormat(config)
	}
	return config, nil
}

func isExplicitSource(m map[string]any) bool {
	for _, k := range sourceKeys {
		if _, ok := m[k]; ok {
			return true
		}
	}
	return false
}

func parseExplicitSource(config *SourceConfig, m map[string]any) error {
	if v, ok := m["format"].(string); ok {
		config.Format = Format(strings.ToLower(v))
	}
	if v, ok := m["url"].(string); ok {
		config.URL = v
	}
	if v, ok := m["path"].(string); ok {
		config.Path = v
	}
	if v, ok := m["spf"].(string); ok {
		config.SPF = v
	}
	if v, ok := m["nameserver"].(string); ok {
		config.Nameserver = v
	}
	if v, ok := m["listen"].(string); ok {
		config.Listen = v
	}
	if v, ok := m["window"]; ok {
		d, err := toDuration(v)
		if err != nil {
			return fmt.Errorf("invalid window: %w", err)
		}
		config.Window = d
	}
	switch v := m["domains"].(type) {
	case nil:
	case map[string]any:
		urls, err := toStringMap(v)
		if err != nil {
			return fmt.Errorf("domains: %w", err)
		}
		config.DomainURLs = urls
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok {
				config.AllowedDomains = append(config.AllowedDomains, s)
			}
		}
	default:
		return fmt.Errorf("domains must be a table or a list, got %T", v)
	}
	return nil
}

func inferFormat(config *SourceConfig) Format {
	if f, ok := wellKnownFormats[config.Name]; ok {
		return f
	}
	switch {
	case config.SPF != "":
		return FormatSPF
	case config.Listen != "":
		return FormatLumberjack
	}
	return FormatLines
}

// Domains returns the sorted union of domains named by domain-scoped sources.
func (c *Config) Domains() []string {
	seen := make(map[string]bool)
	for _, s := range c.Sources {
		for d := range s.DomainURLs {
			seen[d] = true
		}
		for _, d := range s.AllowedDomains {
			seen[d] = true
		}
	}
	domains := make([]string, 0, len(seen))
	for d := range seen {
		domains = append(domains, d)
	}
	sort.Strings(domains)
	return domains
}

// SourcesFor returns the sources that apply to domain, sorted by name. For
// domain-scoped sources the returned copy carries the URL for that domain.
func (c *Config) SourcesFor(domain string) []*SourceConfig {
	var out []*SourceConfig
	for _, name := range c.sourceNames() {
		s := c.Sources[name]
		switch {
		case s.DomainURLs != nil:
			url, ok := s.DomainURLs[domain]
			if !ok {
				continue
			}
			resolved := *s
			resolved.URL = url
			resolved.DomainURLs = nil
			out = append(out, &resolved)
		case len(s.AllowedDomains) > 0:
			if !contains(s.AllowedDomains, domain) {
				continue
			}
			out = append(out, s)
		default:
			out = append(out, s)
		}
	}
	return out
}

func (c *Config) sourceNames() []string {
	names := make([]string, 0, len(c.Sources))
	for name := range c.Sources {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Validate checks the global settings and every source for a usable location.
func (c *Config) Validate() error {
	if c.Global == nil {
		return fmt.Errorf("global configuration section is missing")
	}
	if c.Global.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", c.Global.Timeout)
	}
	if c.Global.Concurrency <= 0 {
		return fmt.Errorf("concurrency must be positive, got %d", c.Global.Concurrency)
	}
	if c.Global.MaxLookups <= 0 {
		return fmt.Errorf("maxLookups must be positive, got %d", c.Global.MaxLookups)
	}
	if len(c.Sources) == 0 {
		return fmt.Errorf("no sources configured")
	}

	for _, name := range c.sourceNames() {
		if err := c.Sources[name].Validate(); err != nil {
			return fmt.Errorf("source %q: %w", name, err)
		}
	}
	return nil
}

// Validate checks that the source has a known format and a location that
// matches it.
func (s *SourceConfig) Validate() error {
	if !knownFormats[s.Format] {
		return fmt.Errorf("unknown format %q", s.Format)
	}
	if s.Window < 0 {
		return fmt.Errorf("window must not be negative, got %s", s.Window)
	}

	switch s.Format {
	case FormatHub, FormatPrefixes, FormatZPA:
		if s.URL == "" && len(s.DomainURLs) == 0 {
			return fmt.Errorf("format %s requires url or domains", s.Format)
		}
	case FormatLines:
		if s.URL == "" && s.Path == "" && len(s.DomainURLs) == 0 {
			return fmt.Errorf("format %s requires url, path or domains", s.Format)
		}
	case FormatSPF:
		if s.SPF == "" {
			return fmt.Errorf("format %s requires spf", s.Format)
		}
	case FormatLumberjack:
		if s.Listen == "" {
			return fmt.Errorf("format %s requires listen", s.Format)
		}
	}
	for domain, url := range s.DomainURLs {
		if url == "" {
			return fmt.Errorf("empty url for domain %q", domain)
		}
	}
	return nil
}

// LoadDotEnv loads environment variables from the given .env files (or ./.env
// when none are given). Missing files are not an error; variables that are
// already set are left untouched.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("loading %s: %w", p, err)
		}
	}
	return nil
}

func toDuration(v any) (time.Duration, error) {
	switch d := v.(type) {
	case string:
		return time.ParseDuration(d)
	case int, int64, float64:
		n, ok := toInt(d)
		if !ok {
			return 0, fmt.Errorf("duration in seconds must be a whole number, got %v", v)
		}
		return time.Duration(n) * time.Second, nil
	}
	return 0, fmt.Errorf("unsupported duration value %v", v)
}

// toInt accepts the integer types produced by the TOML and YAML decoders.
func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		if n != float64(int(n)) {
			return 0, false
		}
		return int(n), true
	}
	return 0, false
}

func toStringMap(m map[string]any) (map[string]string, error) {
	out := make(map[string]string, len(m))
	for k, v := range m {
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("value for %q must be a string, got %T", k, v)
		}
		out[k] = s
	}
	return out, nil
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
