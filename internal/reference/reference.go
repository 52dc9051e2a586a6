// Package reference holds the demographic lookup tables used to validate
// upload labels. Tables are loaded once at startup and never mutated.
package reference

import (
	_ "embed"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// DefaultGender is used when an upload omits the gender parameter.
const DefaultGender = "do_not_wish_to_say"

//go:embed tables.yaml
var embeddedTables []byte

// Tables is a read-only set of label vocabularies.
type Tables struct {
	ages    map[string]string
	genders map[string]string
	accents map[string]map[string]string
}

type tablesFile struct {
	Ages    map[string]string            `yaml:"ages"`
	Genders map[string]string            `yaml:"genders"`
	Accents map[string]map[string]string `yaml:"accents"`
}

// Default returns the tables compiled into the binary.
func Default() (*Tables, error) {
	return Parse(embeddedTables)
}

// Load reads tables from path, or the embedded tables when path is empty.
func Load(path string) (*Tables, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read reference tables: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML tables. The gender table must contain DefaultGender.
func Parse(data []byte) (*Tables, error) {
	var f tablesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse reference tables: %w", err)
	}
	if f.Ages == nil {
		f.Ages = map[string]string{}
	}
	if _, ok := f.Ages[""]; !ok {
		f.Ages[""] = ""
	}
	if _, ok := f.Genders[DefaultGender]; !ok {
		return nil, fmt.Errorf("parse reference tables: genders must include %q", DefaultGender)
	}
	if f.Accents == nil {
		f.Accents = map[string]map[string]string{}
	}
	return &Tables{ages: f.Ages, genders: f.Genders, accents: f.Accents}, nil
}

// IsAge reports whether code is a known age bracket. The empty code means unspecified.
func (t *Tables) IsAge(code string) bool {
	_, ok := t.ages[code]
	return ok
}

// IsGender reports whether code is a known gender.
func (t *Tables) IsGender(code string) bool {
	_, ok := t.genders[code]
	return ok
}

// IsLanguage reports whether language has an accent table.
func (t *Tables) IsLanguage(language string) bool {
	_, ok := t.accents[language]
	return ok
}

// IsAccent reports whether accent belongs to language.
func (t *Tables) IsAccent(language, accent string) bool {
	_, ok := t.accents[language][accent]
	return ok
}

// Ages returns the sorted non-empty age codes.
func (t *Tables) Ages() []string {
	out := make([]string, 0, len(t.ages))
	for k := range t.ages {
		if k != "" {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

// Genders returns the sorted gender codes.
func (t *Tables) Genders() []string {
	return sortedKeys(t.genders)
}

// Languages returns the sorted languages with accent tables.
func (t *Tables) Languages() []string {
	out := make([]string, 0, len(t.accents))
	for k := range t.accents {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Accents returns the sorted accent codes for language, or nil if unknown.
func (t *Tables) Accents(language string) []string {
	accents, ok := t.accents[language]
	if !ok {
		return nil
	}
	return sortedKeys(accents)
}

func sortedKeys(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
