// Package script holds the clinical conversation script given to the
// realtime agent.
package script

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed script.yaml
var defaultScriptYAML []byte

// Script is what the agent is told to do and how it sounds.
type Script struct {
	Voice        string `yaml:"voice"`
	Greeting     string `yaml:"greeting"`
	Instructions string `yaml:"instructions"`
}

// Load reads a script from path, or the embedded default when path is empty.
func Load(path string) (Script, error) {
	data := defaultScriptYAML
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Script{}, fmt.Errorf("read script: %w", err)
		}
		data = b
	}
	return Parse(data)
}

// Parse decodes a YAML script. Instructions are required; voice falls back
// to the default script's voice.
func Parse(data []byte) (Script, error) {
	var s Script
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Script{}, fmt.Errorf("parse script: %w", err)
	}
	s.Instructions = strings.TrimSpace(s.Instructions)
	if s.Instructions == "" {
		return Script{}, errors.New("parse script: instructions required")
	}
	if s.Voice == "" {
		s.Voice = "marin"
	}
	return s, nil
}
