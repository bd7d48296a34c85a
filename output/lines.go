package output

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/ChristianF88/cidrfold/cidr"
)

// FormatLines renders one "a.b.c.d/n" line per range, in the given order.
func FormatLines(ranges []cidr.AddressRange) []string {
	return cidr.Strings(ranges)
}

// WriteLines writes every range on its own line, each terminated by '\n'.
func WriteLines(w io.Writer, ranges []cidr.AddressRange) error {
	bw := bufio.NewWriter(w)
	for _, r := range ranges {
		if _, err := bw.WriteString(r.String()); err != nil {
			return err
		}
		if err := bw.WriteByte('\n'); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// WriteFile writes ranges to filename, replacing any existing file. With
// header set, a comment line carrying the modification time comes first.
func WriteFile(filename string, ranges []cidr.AddressRange, header bool) error {
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("creating output file %s: %w", filename, err)
	}
	defer file.Close()

	if header {
		modificationTime := time.Now().Format("2006-01-02 15:04:05")
		if _, err := fmt.Fprintf(file, "# This file was generated automatically. Last modification %s\n", modificationTime); err != nil {
			return fmt.Errorf("writing output file %s: %w", filename, err)
		}
	}
	if err := WriteLines(file, ranges); err != nil {
		return fmt.Errorf("writing output file %s: %w", filename, err)
	}
	return file.Close()
}

// ReadList reads a list previously written by WriteFile. Comment lines are
// skipped; lines that do not parse are logged and skipped.
func ReadList(filename string) ([]string, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("opening list %s: %w", filename, err)
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		r, err := cidr.Parse(line)
		if err != nil {
			log.Warn("Skipping invalid line", "file", filename, "line", line)
			continue
		}
		lines = append(lines, r.String())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading list %s: %w", filename, err)
	}
	return lines, nil
}

// Diff lists the blocks that appear only in the current or only in the
// previous list.
type Diff struct {
	Added   []string `json:"added"`
	Removed []string `json:"removed"`
}

// Empty reports whether both lists hold the same blocks.
func (d Diff) Empty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0
}

// Compare computes the difference between two lists of blocks. Both sides of
// the result are sorted.
func Compare(previous, current []string) Diff {
	prev := make(map[string]bool, len(previous))
	for _, p := range previous {
		prev[p] = true
	}
	cur := make(map[string]bool, len(current))
	for _, c := range current {
		cur[c] = true
	}

	d := Diff{Added: []string{}, Removed: []string{}}
	for c := range cur {
		if !prev[c] {
			d.Added = append(d.Added, c)
		}
	}
	for p := range prev {
		if !cur[p] {
			d.Removed = append(d.Removed, p)
		}
	}
	sort.Strings(d.Added)
	sort.Strings(d.Removed)
	return d
}
