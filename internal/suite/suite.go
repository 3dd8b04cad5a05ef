// Package suite loads verification plans from YAML or CUE files and runs
// them.
//
// A suite names one or more checks. Each check verifies one reference file
// against a list of candidate sources:
//
//	name: nightly
//	description: cross-check all sources
//	checks:
//	  - file: vectors/boys_small.txt
//	    sources: [reference, series, double]
//	    target_digits: 12
//	    extra_m: 2
//	  - kind: eri
//	    file: vectors/eri_small.txt
//	    sources: [double]
//	    target_digits: 10
//
// A check's kind is "boys" (the default) for test vector files or "eri"
// for primitive integral files.
//
// File paths are relative to the suite file.
package suite

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"

	"github.com/roach88/boysref/internal/eri"
	"github.com/roach88/boysref/internal/source"
	"github.com/roach88/boysref/internal/verify"
)

// Suite is a named list of checks.
type Suite struct {
	// Name identifies the suite in reports and history.
	Name string `yaml:"name" json:"name"`

	// Description explains what the suite covers.
	Description string `yaml:"description" json:"description"`

	// Checks run in order.
	Checks []Check `yaml:"checks" json:"checks"`

	// Path is the file the suite was loaded from.
	Path string `yaml:"-" json:"-"`
}

// Check verifies one reference file against a set of sources.
type Check struct {
	Kind         string   `yaml:"kind,omitempty" json:"kind,omitempty"`
	File         string   `yaml:"file" json:"file"`
	Sources      []string `yaml:"sources" json:"sources"`
	TargetDigits int      `yaml:"target_digits,omitempty" json:"target_digits,omitempty"`
	ExtraM       int      `yaml:"extra_m,omitempty" json:"extra_m,omitempty"`

	// Candidates is the results file backing the "file" source.
	Candidates string `yaml:"candidates,omitempty" json:"candidates,omitempty"`
}

// Load reads a suite from path. Files ending in .cue are evaluated with
// CUE; everything else is parsed as YAML. Unknown fields are rejected in
// both formats. Relative file paths are resolved against the suite's
// directory.
func Load(path string) (*Suite, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read suite file: %w", err)
	}

	var s *Suite
	if strings.EqualFold(filepath.Ext(path), ".cue") {
		s, err = decodeCUE(data, path)
	} else {
		s, err = decodeYAML(data)
	}
	if err != nil {
		return nil, err
	}
	s.Path = path

	base := filepath.Dir(path)
	for i := range s.Checks {
		c := &s.Checks[i]
		c.File = resolve(base, c.File)
		c.Candidates = resolve(base, c.Candidates)
	}

	if err := validate(s); err != nil {
		return nil, fmt.Errorf("invalid suite: %w", err)
	}
	return s, nil
}

func decodeYAML(data []byte) (*Suite, error) {
	var s Suite
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&s); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return &s, nil
}

// schemaCUE constrains the types of a CUE suite. Required fields and
// source names are checked by validate so both formats report them the
// same way.
const schemaCUE = `
name?:        string
description?: string
checks?: [...{
	kind?:          "boys" | "eri"
	file?:          string
	sources?:       [...string]
	target_digits?: int & >=0
	extra_m?:       int & >=0
	candidates?:    string
}]
`

var (
	suiteFields = []string{"name", "description", "checks"}
	checkFields = []string{"kind", "file", "sources", "target_digits", "extra_m", "candidates"}
)

func decodeCUE(data []byte, path string) (*Suite, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(data, cue.Filename(path))
	if err := v.Err(); err != nil {
		return nil, fmt.Errorf("failed to compile CUE: %w", err)
	}

	if err := checkFieldNames(v, "", suiteFields); err != nil {
		return nil, err
	}
	if checks := v.LookupPath(cue.ParsePath("checks")); checks.Exists() {
		iter, err := checks.List()
		if err != nil {
			return nil, fmt.Errorf("checks: %w", err)
		}
		for i := 0; iter.Next(); i++ {
			if err := checkFieldNames(iter.Value(), fmt.Sprintf("checks[%d].", i), checkFields); err != nil {
				return nil, err
			}
		}
	}

	schema := ctx.CompileString(schemaCUE)
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("suite schema: %w", err)
	}
	v = schema.Unify(v)
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, fmt.Errorf("failed to validate CUE: %w", err)
	}

	var s Suite
	if err := v.Decode(&s); err != nil {
		return nil, fmt.Errorf("failed to decode CUE: %w", err)
	}
	return &s, nil
}

// checkFieldNames rejects regular fields of v not listed in known.
func checkFieldNames(v cue.Value, prefix string, known []string) error {
	iter, err := v.Fields()
	if err != nil {
		return fmt.Errorf("%s: %w", strings.TrimSuffix(prefix, "."), err)
	}
	for iter.Next() {
		label := iter.Selector().String()
		if !contains(known, label) {
			return fmt.Errorf("unknown field %s%s", prefix, label)
		}
	}
	return nil
}

func validate(s *Suite) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Checks) == 0 {
		return fmt.Errorf("checks list is required and must be non-empty")
	}

	for i, c := range s.Checks {
		if c.File == "" {
			return fmt.Errorf("checks[%d]: file is required", i)
		}
		if _, err := os.Stat(c.File); os.IsNotExist(err) {
			return fmt.Errorf("checks[%d]: reference file not found: %s", i, c.File)
		}
		if len(c.Sources) == 0 {
			return fmt.Errorf("checks[%d]: sources list is required and must be non-empty", i)
		}
		valid, isValid := source.Names(), source.IsValidName
		switch c.Kind {
		case "", verify.KindBoys:
		case verify.KindERI:
			valid = eri.SourceNames()
			isValid = func(name string) bool { return contains(valid, name) }
			if c.ExtraM != 0 {
				return fmt.Errorf("checks[%d]: extra_m does not apply to kind %q", i, c.Kind)
			}
		default:
			return fmt.Errorf("checks[%d]: unknown kind %q (valid: [%s %s])", i, c.Kind, verify.KindBoys, verify.KindERI)
		}
		for j, name := range c.Sources {
			if !isValid(name) {
				return fmt.Errorf("checks[%d].sources[%d]: unknown source %q (valid: %v)", i, j, name, valid)
			}
			if name == source.NameFile && c.Candidates == "" {
				return fmt.Errorf("checks[%d].sources[%d]: source %q requires candidates", i, j, name)
			}
		}
		if c.TargetDigits < 0 {
			return fmt.Errorf("checks[%d]: target_digits must be non-negative", i)
		}
		if c.ExtraM < 0 {
			return fmt.Errorf("checks[%d]: extra_m must be non-negative", i)
		}
		if c.Candidates != "" {
			if _, err := os.Stat(c.Candidates); os.IsNotExist(err) {
				return fmt.Errorf("checks[%d]: candidates file not found: %s", i, c.Candidates)
			}
		}
	}
	return nil
}

func resolve(base, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
