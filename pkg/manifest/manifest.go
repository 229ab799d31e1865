// Package manifest reads lists of title ids for batch ingestion.
//
// Three formats are accepted, chosen by file extension:
//
//	.txt   one id per line, blank lines and # comments ignored
//	.yaml  a sequence of {id, note} mappings or bare id strings
//	.csv   a header row with an id column, other columns ignored
//
// Malformed entries are skipped and returned alongside the ids so callers
// can log them; ids are de-duplicated preserving first occurrence.
package manifest

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/soundprediction/mediagraph/pkg/utils"
)

// ErrUnsupportedFormat is returned for unknown file extensions.
var ErrUnsupportedFormat = errors.New("unsupported manifest format")

var idPattern = regexp.MustCompile(`^tt\d{7,10}$`)

// Entry is one manifest item.
type Entry struct {
	ID   string `yaml:"id" csv:"id"`
	Note string `yaml:"note" csv:"note"`
}

// Manifest is the parsed content of one file.
type Manifest struct {
	Path    string
	Entries []Entry
	// Skipped describes entries that could not be read.
	Skipped []error
}

// IDs returns the entry ids in order.
func (m *Manifest) IDs() []string {
	ids := make([]string, len(m.Entries))
	for i, e := range m.Entries {
		ids[i] = e.ID
	}
	return ids
}

// Load reads the manifest at path.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var (
		entries []Entry
		skipped []error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt", ".list", "":
		entries, skipped = parseText(string(data))
	case ".yaml", ".yml":
		entries, skipped, err = parseYAML(string(data))
	case ".csv":
		var rows []*Entry
		rows, skipped, err = utils.UnmarshalCSV[Entry](string(data), ',')
		for _, r := range rows {
			entries = append(entries, *r)
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse manifest %s: %w", path, err)
	}

	m := &Manifest{Path: path, Skipped: skipped}
	m.Entries, m.Skipped = normalize(entries, m.Skipped)
	return m, nil
}

func parseText(data string) ([]Entry, []error) {
	var entries []Entry
	scanner := bufio.NewScanner(strings.NewReader(data))
	for scanner.Scan() {
		line := scanner.Text()
		var note string
		if i := strings.Index(line, "#"); i >= 0 {
			note = strings.TrimSpace(line[i+1:])
			line = line[:i]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		entries = append(entries, Entry{ID: line, Note: note})
	}
	if err := scanner.Err(); err != nil {
		return entries, []error{err}
	}
	return entries, nil
}

// parseYAML accepts both mapping items and bare strings.
func parseYAML(data string) ([]Entry, []error, error) {
	rows, skipped, err := utils.UnmarshalYAML[yamlEntry](data)
	if err != nil {
		return nil, skipped, err
	}
	entries := make([]Entry, 0, len(rows))
	for _, r := range rows {
		entries = append(entries, Entry(*r))
	}
	return entries, skipped, nil
}

// normalize trims ids, drops invalid and repeated ones.
func normalize(entries []Entry, skipped []error) ([]Entry, []error) {
	seen := make(map[string]struct{}, len(entries))
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		e.ID = strings.TrimSpace(e.ID)
		if !idPattern.MatchString(e.ID) {
			skipped = append(skipped, fmt.Errorf("invalid title id %q", e.ID))
			continue
		}
		if _, dup := seen[e.ID]; dup {
			continue
		}
		seen[e.ID] = struct{}{}
		out = append(out, e)
	}
	return out, skipped
}
