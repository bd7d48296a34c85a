package output

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/ChristianF88/cidrfold/cidr"
)

// Report is the JSON summary of one run.
type Report struct {
	Metadata      Metadata       `json:"metadata"`
	Domain        string         `json:"domain,omitempty"`
	Sources       []SourceResult `json:"sources"`
	Totals        Totals         `json:"totals"`
	Consolidation Consolidation  `json:"consolidation"`
	Output        Output         `json:"output"`
	Diff          *Diff          `json:"diff,omitempty"`
	Verified      *bool          `json:"verified,omitempty"`
	Warnings      []Warning      `json:"warnings"`
	Errors        []Error        `json:"errors"`

	// Mutex for thread-safe warning/error appending
	mu sync.Mutex `json:"-"`
}

// Metadata contains information about the run
type Metadata struct {
	GeneratedAt time.Time `json:"generated_at"`
	Command     string    `json:"command"`
	Version     string    `json:"version"`
	DurationMS  int64     `json:"duration_ms"`
}

// SourceResult is what one source contributed
type SourceResult struct {
	Name       string `json:"name"`
	Tokens     int    `json:"tokens"`
	New        int    `json:"new"`
	IPv6       int    `json:"ipv6_skipped,omitempty"`
	DurationMS int64  `json:"duration_ms"`
	Error      string `json:"error,omitempty"`
}

// Totals counts tokens across all sources
type Totals struct {
	Collected   int `json:"collected"`
	Unique      int `json:"unique"`
	Valid       int `json:"valid"`
	Malformed   int `json:"malformed"`
	IPv6Skipped int `json:"ipv6_skipped"`
}

// Consolidation mirrors cidr.Stats
type Consolidation struct {
	Input      int `json:"input"`
	Output     int `json:"output"`
	Contained  int `json:"contained"`
	Replaced   int `json:"replaced"`
	Summarized int `json:"summarized"`
	Fallbacks  int `json:"fallbacks"`
}

// Output describes the written list
type Output struct {
	Path      string `json:"path,omitempty"`
	Ranges    int    `json:"ranges"`
	Addresses uint64 `json:"addresses"`
}

// Warning represents a warning message
type Warning struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Count   int    `json:"count,omitempty"`
}

// Error represents an error message
type Error struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Count   int    `json:"count,omitempty"`
}

// NewReport creates a new Report with default metadata
func NewReport(command, version string, startTime time.Time) *Report {
	return &Report{
		Metadata: Metadata{
			GeneratedAt: time.Now().UTC(),
			Command:     command,
			Version:     version,
			DurationMS:  time.Since(startTime).Milliseconds(),
		},
		Sources:  []SourceResult{},
		Warnings: []Warning{},
		Errors:   []Error{},
	}
}

// SetStats copies the consolidation counters into the report.
func (r *Report) SetStats(s cidr.Stats) {
	r.Consolidation = Consolidation{
		Input:      s.Input,
		Output:     s.Output,
		Contained:  s.Contained,
		Replaced:   s.Replaced,
		Summarized: s.Summarized,
		Fallbacks:  s.Fallbacks,
	}
}

// SetVerified records the outcome of the coverage check.
func (r *Report) SetVerified(ok bool) {
	r.Verified = &ok
}

// ToJSON converts the report to pretty-printed JSON
func (r *Report) ToJSON() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

// ToCompactJSON converts the report to compact JSON
func (r *Report) ToCompactJSON() ([]byte, error) {
	return json.Marshal(r)
}

// AddWarning adds a warning to the report (thread-safe)
func (r *Report) AddWarning(warningType, message string, count int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Warnings = append(r.Warnings, Warning{
		Type:    warningType,
		Message: message,
		Count:   count,
	})
}

// AddError adds an error to the report (thread-safe)
func (r *Report) AddError(errorType, message string, count int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Errors = append(r.Errors, Error{
		Type:    errorType,
		Message: message,
		Count:   count,
	})
}

// UpdateDuration updates the duration in metadata
func (r *Report) UpdateDuration(startTime time.Time) {
	r.Metadata.DurationMS = time.Since(startTime).Milliseconds()
}
