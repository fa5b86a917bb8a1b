package text

import (
	"fmt"
	"log"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Preset is one saved message with its preview scroll settings.
type Preset struct {
	Text      string  `yaml:"text"`
	SpeedPXPS float64 `yaml:"speed_pxps"`
	Direction string  `yaml:"direction"` // "left" or "right"
}

type presetsFile struct {
	Presets []Preset `yaml:"presets"`
}

// LoadPresets reads a YAML presets file. Each entry is normalized on load;
// entries that fail validation or the length limit are skipped with a log
// line rather than failing the whole file.
func LoadPresets(path string, maxGraphemes int) ([]Preset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read presets file: %w", err)
	}

	var f presetsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse presets file: %w", err)
	}

	out := make([]Preset, 0, len(f.Presets))
	for i, p := range f.Presets {
		p.Text = Normalize(p.Text)
		if p.Text == "" {
			log.Printf("presets: entry %d is empty, skipping", i)
			continue
		}
		if bad := Validate(p.Text); len(bad) > 0 {
			log.Printf("presets: entry %d %q has invalid characters (%v), skipping", i, p.Text, bad)
			continue
		}
		if err := CheckLength(p.Text, maxGraphemes); err != nil {
			log.Printf("presets: entry %d: %v, skipping", i, err)
			continue
		}
		if p.Direction != "left" && p.Direction != "right" {
			p.Direction = "right"
		}
		out = append(out, p)
	}
	return out, nil
}

// Suggest returns up to n presets whose text starts with the case-folded
// prefix. An empty prefix matches everything.
func Suggest(prefix string, presets []Preset, n int) []Preset {
	prefix = Normalize(prefix)
	var out []Preset
	for _, p := range presets {
		if strings.HasPrefix(p.Text, prefix) {
			out = append(out, p)
			if len(out) == n {
				break
			}
		}
	}
	return out
}
