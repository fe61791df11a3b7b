package core

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// MissingFieldPolicy decides what derivation does with a row whose barcode
// or style_color inputs are empty.
type MissingFieldPolicy string

const (
	MissingFieldsFail MissingFieldPolicy = "fail"
	MissingFieldsSkip MissingFieldPolicy = "skip"
)

// Rules holds the business constants of the pipeline. The defaults reproduce
// the weekly count proposal as the stores know it; a YAML file can override
// any subset.
type Rules struct {
	InStoreWarehouse string             `yaml:"in_store_warehouse"`
	ExcludedBrands   []string           `yaml:"excluded_brands"`
	SamplePercent    int                `yaml:"sample_percent"`
	CursorMode       CursorMode         `yaml:"cursor_mode"`
	MissingFields    MissingFieldPolicy `yaml:"missing_fields"`
	SizePrefix       string             `yaml:"size_prefix"`
	UnassignedStore  string             `yaml:"unassigned_store"`
	PickList         bool               `yaml:"pick_list"`
	DateFormat       string             `yaml:"date_format"` // Go time layout used in file names
}

// DefaultRules returns the rules used when no rules file is configured.
func DefaultRules() Rules {
	return Rules{
		InStoreWarehouse: "XRS",
		ExcludedBrands:   []string{"CALZANETTO"},
		SamplePercent:    25,
		CursorMode:       CursorAfter,
		MissingFields:    MissingFieldsFail,
		SizePrefix:       "Talla",
		UnassignedStore:  "SIN TIENDA",
		DateFormat:       "02-01-2006",
	}
}

// LoadRules reads a YAML rules file on top of DefaultRules. An empty path
// returns the defaults.
func LoadRules(path string) (Rules, error) {
	rules := DefaultRules()
	if path == "" {
		return rules, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return rules, fmt.Errorf("read rules file: %w", err)
	}
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return rules, fmt.Errorf("parse rules file %s: %w", path, err)
	}
	if err := rules.Validate(); err != nil {
		return rules, fmt.Errorf("rules file %s: %w", path, err)
	}
	return rules, nil
}

// Validate checks the rules for values the pipeline cannot work with.
func (r Rules) Validate() error {
	var errs []string

	if r.SamplePercent < 1 || r.SamplePercent > 100 {
		errs = append(errs, fmt.Sprintf("sample_percent must be between 1 and 100, got %d", r.SamplePercent))
	}
	if !r.CursorMode.Valid() {
		errs = append(errs, fmt.Sprintf("cursor_mode must be %q or %q, got %q", CursorAfter, CursorExact, r.CursorMode))
	}
	if r.MissingFields != MissingFieldsFail && r.MissingFields != MissingFieldsSkip {
		errs = append(errs, fmt.Sprintf("missing_fields must be %q or %q, got %q", MissingFieldsFail, MissingFieldsSkip, r.MissingFields))
	}
	if strings.TrimSpace(r.UnassignedStore) == "" {
		errs = append(errs, "unassigned_store is required")
	}
	if r.DateFormat == "" {
		errs = append(errs, "date_format is required")
	}

	if len(errs) > 0 {
		return errors.New("invalid rules:\n  - " + strings.Join(errs, "\n  - "))
	}
	return nil
}

// IsExcludedBrand reports whether brand is on the exclusion list.
// Matching is exact, like the store filter.
func (r Rules) IsExcludedBrand(brand string) bool {
	for _, b := range r.ExcludedBrands {
		if b == brand {
			return true
		}
	}
	return false
}
