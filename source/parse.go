package source

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/ChristianF88/cidrfold/config"
)

type hubDocument struct {
	HubPrefixes []string `json:"hubPrefixes"`
}

type prefixesDocument struct {
	Prefixes []string `json:"prefixes"`
}

type zpaDocument struct {
	Content []struct {
		IPs []string `json:"IPs"`
	} `json:"content"`
}

// Parse extracts the raw tokens from a source body in the given format.
// Missing keys yield an empty list, as the feeds omit them when empty.
func Parse(format config.Format, r io.Reader) ([]string, error) {
	switch format {
	case config.FormatHub:
		var doc hubDocument
		if err := decodeJSON(r, &doc); err != nil {
			return nil, err
		}
		return doc.HubPrefixes, nil
	case config.FormatPrefixes:
		var doc prefixesDocument
		if err := decodeJSON(r, &doc); err != nil {
			return nil, err
		}
		return doc.Prefixes, nil
	case config.FormatZPA:
		var doc zpaDocument
		if err := decodeJSON(r, &doc); err != nil {
			return nil, err
		}
		var tokens []string
		for _, item := range doc.Content {
			tokens = append(tokens, item.IPs...)
		}
		return tokens, nil
	case config.FormatLines:
		return ParseLines(r)
	}
	return nil, fmt.Errorf("format %q has no body parser", format)
}

func decodeJSON(r io.Reader, v any) error {
	if err := json.NewDecoder(r).Decode(v); err != nil {
		return fmt.Errorf("failed to decode JSON: %w", err)
	}
	return nil
}

// ParseLines reads one token per line. Blank lines and lines starting with '#'
// are skipped; anything after the first whitespace on a line is ignored.
func ParseLines(r io.Reader) ([]string, error) {
	var tokens []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if i := strings.IndexAny(line, " \t"); i >= 0 {
			line = line[:i]
		}
		tokens = append(tokens, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading lines: %w", err)
	}
	return tokens, nil
}
