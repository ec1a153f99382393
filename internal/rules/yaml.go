package rules

import (
	_ "embed"
	"fmt"
	"io"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// DecodeYAML reads rule tables from a YAML document.
func DecodeYAML(r io.Reader) (Tables, error) {
	var t Tables

	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	if err := dec.Decode(&t); err != nil && err != io.EOF {
		return Tables{}, fmt.Errorf("decoding rules: %w", err)
	}

	return t, nil
}

// LoadFile reads and indexes a YAML rule file.
func LoadFile(path string) (*Set, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening rules file: %w", err)
	}
	defer f.Close()

	t, err := DecodeYAML(f)
	if err != nil {
		return nil, err
	}

	return NewSet(t)
}

// DefaultTables returns the rule tables shipped with the binary.
func DefaultTables() (Tables, error) {
	var t Tables
	if err := yaml.Unmarshal(defaultsYAML, &t); err != nil {
		return Tables{}, fmt.Errorf("decoding default rules: %w", err)
	}

	return t, nil
}

// Defaults indexes DefaultTables.
func Defaults() (*Set, error) {
	t, err := DefaultTables()
	if err != nil {
		return nil, err
	}

	return NewSet(t)
}

// Merge overlays other on t. Keyed rows in other replace matching rows in t;
// bracket tables and tolling rules are replaced as a whole per key.
func (t Tables) Merge(other Tables) Tables {
	t.TransactionCodes = slices.Concat(t.TransactionCodes, other.TransactionCodes)
	t.IncomeForms = slices.Concat(t.IncomeForms, other.IncomeForms)
	t.StandardDeductions = slices.Concat(t.StandardDeductions, other.StandardDeductions)

	replacedTolling := make(map[TollingCategory]bool)
	for _, r := range other.Tolling {
		replacedTolling[r.Category] = true
	}

	t.Tolling = slices.DeleteFunc(slices.Clone(t.Tolling), func(r TollingRule) bool {
		return replacedTolling[r.Category]
	})
	t.Tolling = append(t.Tolling, other.Tolling...)

	replacedBrackets := make(map[yearStatus]bool)
	for _, b := range other.TaxBrackets {
		replacedBrackets[yearStatus{b.Year, b.FilingStatus}] = true
	}

	t.TaxBrackets = slices.DeleteFunc(slices.Clone(t.TaxBrackets), func(b TaxBracket) bool {
		return replacedBrackets[yearStatus{b.Year, b.FilingStatus}]
	})
	t.TaxBrackets = append(t.TaxBrackets, other.TaxBrackets...)

	type sizedKey struct {
		standardKey
		size int
	}

	replacedStandards := make(map[sizedKey]bool)
	for _, c := range other.CollectionStandards {
		replacedStandards[sizedKey{keyOf(c), c.HouseholdSize}] = true
	}

	t.CollectionStandards = slices.DeleteFunc(slices.Clone(t.CollectionStandards), func(c CollectionStandard) bool {
		return replacedStandards[sizedKey{keyOf(c), c.HouseholdSize}]
	})
	t.CollectionStandards = append(t.CollectionStandards, other.CollectionStandards...)

	return t
}

// OverlayFile reads a YAML rule file and merges it over DefaultTables.
func OverlayFile(path string) (*Set, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening rules file: %w", err)
	}
	defer f.Close()

	override, err := DecodeYAML(f)
	if err != nil {
		return nil, err
	}

	base, err := DefaultTables()
	if err != nil {
		return nil, err
	}

	return NewSet(base.Merge(override))
}
