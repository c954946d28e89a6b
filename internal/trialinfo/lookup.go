// Package trialinfo answers participant questions from a static trial record.
package trialinfo

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"unicode"

	"gopkg.in/yaml.v3"
)

//go:embed trial.yaml
var defaultTrialYAML []byte

// Section is one topic of the trial record.
type Section struct {
	ID       string   `yaml:"id" json:"id"`
	Title    string   `yaml:"title" json:"title"`
	Keywords []string `yaml:"keywords" json:"-"`
	Content  string   `yaml:"content" json:"content"`
}

// Document is the full static record.
type Document struct {
	LastUpdated     string         `yaml:"last_updated"`
	Source          string         `yaml:"source"`
	DefaultSections []string       `yaml:"default_sections"`
	Record          map[string]any `yaml:"record"`
	Sections        []Section      `yaml:"sections"`
}

// Result is returned to the agent by lookup_info.
type Result struct {
	Sections    []Section      `json:"sections"`
	LastUpdated string         `json:"last_updated"`
	Source      string         `json:"source"`
	Matched     bool           `json:"matched"`
	Raw         map[string]any `json:"raw,omitempty"`
}

// Load reads a trial record from path, or the embedded default when path is empty.
func Load(path string) (*Document, error) {
	data := defaultTrialYAML
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read trial info: %w", err)
		}
		data = b
	}
	return Parse(data)
}

// Parse decodes a YAML trial record.
func Parse(data []byte) (*Document, error) {
	var d Document
	if err := yaml.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("parse trial info: %w", err)
	}
	if len(d.Sections) == 0 {
		return nil, fmt.Errorf("trial info has no sections")
	}
	if len(d.DefaultSections) == 0 {
		d.DefaultSections = []string{"overview", "status"}
	}
	for i := range d.Sections {
		for j, k := range d.Sections[i].Keywords {
			d.Sections[i].Keywords[j] = strings.ToLower(k)
		}
	}
	return &d, nil
}

var rawMarkers = []string{"raw", "full record", "complete record", "all details", "json"}

// wantsRaw reports whether the question names a raw-record marker as whole
// words, so "withdraw" does not count as "raw".
func wantsRaw(q string) bool {
	words := strings.FieldsFunc(q, func(r rune) bool { return !unicode.IsLetter(r) && !unicode.IsDigit(r) })
	padded := " " + strings.Join(words, " ") + " "
	for _, m := range rawMarkers {
		if strings.Contains(padded, " "+m+" ") {
			return true
		}
	}
	return false
}

// Lookup scans sections in order and returns every section with a keyword
// contained in the question. With no match it returns the default sections.
func (d *Document) Lookup(question string) Result {
	q := strings.ToLower(question)
	res := Result{LastUpdated: d.LastUpdated, Source: d.Source}
	for _, s := range d.Sections {
		for _, k := range s.Keywords {
			if k != "" && strings.Contains(q, k) {
				res.Sections = append(res.Sections, s)
				break
			}
		}
	}
	if len(res.Sections) > 0 {
		res.Matched = true
	} else {
		for _, id := range d.DefaultSections {
			if s, ok := d.Section(id); ok {
				res.Sections = append(res.Sections, s)
			}
		}
	}
	if wantsRaw(q) {
		res.Raw = d.rawRecord()
	}
	return res
}

// Section returns the section with the given id.
func (d *Document) Section(id string) (Section, bool) {
	for _, s := range d.Sections {
		if s.ID == id {
			return s, true
		}
	}
	return Section{}, false
}

// rawRecord returns the structured record normalized to JSON-compatible types.
func (d *Document) rawRecord() map[string]any {
	b, err := json.Marshal(d.Record)
	if err != nil {
		return d.Record
	}
	var out map[string]any
	if err := json.Unmarshal(b, &out); err != nil {
		return d.Record
	}
	return out
}
