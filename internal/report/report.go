// Package report serializes the outcome of a search as a YAML document.
package report

import (
	"fmt"
	"io"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/phpmtseed/phpmtseed/internal/constraint"
	"github.com/phpmtseed/phpmtseed/internal/search"
	"github.com/phpmtseed/phpmtseed/internal/shard"
)

// Report is the machine-readable record of one run.
type Report struct {
	Tool        string                  `yaml:"tool"`
	Version     string                  `yaml:"version"`
	StartedAt   time.Time               `yaml:"started_at"`
	Backend     string                  `yaml:"backend"`
	Host        string                  `yaml:"host,omitempty"`
	Constraints []constraint.Constraint `yaml:"constraints"`
	Lanes       uint32                  `yaml:"lanes"`
	Shards      string                  `yaml:"shards"`
	Elapsed     string                  `yaml:"elapsed"`
	Seeds       []Seed                  `yaml:"seeds"`
	Overflow    *Overflow               `yaml:"overflow,omitempty"`
	Error       string                  `yaml:"error,omitempty"`
}

// Seed is a recovered seed in both notations.
type Seed struct {
	Hex     string `yaml:"hex"`
	Decimal uint32 `yaml:"decimal"`
}

// Overflow records the shard that exceeded the result buffer.
type Overflow struct {
	Shard    uint32 `yaml:"shard"`
	Total    uint32 `yaml:"total"`
	Captured int    `yaml:"captured"`
}

// Meta carries run facts the search itself does not know.
type Meta struct {
	Version   string
	StartedAt time.Time
	Backend   string
	Host      string
}

// Build assembles a report from a finished run. runErr is the error Run
// returned, if any.
func Build(meta Meta, set constraint.Set, run search.Report, runErr error) Report {
	r := Report{
		Tool:        "php-mt-seed",
		Version:     meta.Version,
		StartedAt:   meta.StartedAt.UTC().Truncate(time.Second),
		Backend:     meta.Backend,
		Host:        meta.Host,
		Constraints: append([]constraint.Constraint(nil), set...),
		Lanes:       run.Lanes,
		Shards:      fmt.Sprintf("%d/%d", run.Shards, shard.Count),
		Elapsed:     run.Elapsed.Round(time.Millisecond).String(),
		Seeds:       make([]Seed, 0, len(run.Seeds)),
	}
	for _, s := range run.Seeds {
		r.Seeds = append(r.Seeds, Seed{Hex: fmt.Sprintf("%#x", s), Decimal: s})
	}
	if oe := run.Overflow; oe != nil {
		r.Overflow = &Overflow{Shard: oe.Shard, Total: oe.Total, Captured: oe.Captured}
	}
	if runErr != nil {
		r.Error = runErr.Error()
	}
	return r
}

// Write encodes r to w.
func Write(w io.Writer, r Report) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}
	return enc.Close()
}
