package testutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// sampleTokens is a mix of what real range lists contain: hosts, blocks,
// non-canonical blocks, comments, IPv6 and garbage.
var sampleTokens = []string{
	"# generated list",
	"165.225.0.0/17",
	"165.225.16.0/20",
	"136.226.0.0/16",
	"136.226.12.5/24",
	"8.8.8.8",
	"2a03:eec0::/32",
	"104.129.192.0/20",
	"104.129.200.0/21",
	"not-an-ip",
	"147.161.128.0/17",
	"",
}

// GenerateRangeFile creates a temporary list with numLines lines cycled from
// a fixed sample. Returns the file path; the file lives in t.TempDir().
func GenerateRangeFile(t *testing.T, numLines int) string {
	t.Helper()

	var content strings.Builder
	for i := 0; i < numLines; i++ {
		content.WriteString(sampleTokens[i%len(sampleTokens)])
		content.WriteString("\n")
	}
	return WriteFile(t, "ranges_*.txt", content.String())
}

// WriteFile writes content to a new file in t.TempDir() named after pattern
// and returns its path.
func WriteFile(t *testing.T, pattern, content string) string {
	t.Helper()

	tmpFile, err := os.CreateTemp(t.TempDir(), pattern)
	if err != nil {
		t.Fatalf("Failed to create temp file: %v", err)
	}
	defer tmpFile.Close()

	if _, err := tmpFile.WriteString(content); err != nil {
		t.Fatalf("Failed to write to temp file: %v", err)
	}
	return tmpFile.Name()
}

// TempFilePath returns a path inside t.TempDir() that does not exist yet.
func TempFilePath(t *testing.T, name string) string {
	t.Helper()
	return filepath.Join(t.TempDir(), name)
}
