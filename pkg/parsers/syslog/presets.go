package syslog

import (
	_ "embed"
	"fmt"
	"regexp"

	"gopkg.in/yaml.v3"
)

//go:embed presets.yaml
var presetsYAML []byte

// presetFile is the on-disk shape of the format presets.
type presetFile struct {
	Formats []presetFormat `yaml:"formats"`
}

type presetFormat struct {
	Name        string `yaml:"name"`
	Pattern     string `yaml:"pattern"`
	Layout      string `yaml:"layout"`
	YearMissing bool   `yaml:"year_missing"`
}

// lineFormat is one compiled line format.
type lineFormat struct {
	name        string
	pattern     *regexp.Regexp
	layout      string
	yearMissing bool
}

// loadPresets parses and compiles the embedded format presets.
func loadPresets() ([]lineFormat, error) {
	var file presetFile

	err := yaml.Unmarshal(presetsYAML, &file)
	if err != nil {
		return nil, fmt.Errorf("unmarshal syslog presets: %w", err)
	}

	formats := make([]lineFormat, 0, len(file.Formats))

	for _, preset := range file.Formats {
		pattern, err := regexp.Compile(preset.Pattern)
		if err != nil {
			return nil, fmt.Errorf("compile syslog preset %q: %w", preset.Name, err)
		}

		formats = append(formats, lineFormat{
			name:        preset.Name,
			pattern:     pattern,
			layout:      preset.Layout,
			yearMissing: preset.YearMissing,
		})
	}

	return formats, nil
}
