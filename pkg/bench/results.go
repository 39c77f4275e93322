// Copyright © 2018 One Concern

package bench

import (
	"io/ioutil"
	"os"
	"sort"

	"github.com/oneconcern/stablebench/pkg/errors"
	"github.com/oneconcern/stablebench/pkg/meter"

	"github.com/blang/semver/v4"
	"gopkg.in/yaml.v2"
)

// ResultsVersion is the version of the results file format
const ResultsVersion = "1.0.0"

var (
	// ErrNoResults is returned when loading a results file which does not exist
	ErrNoResults = errors.New("no results file")

	// ErrIncompatibleResults is returned when a results file has an unsupported version
	ErrIncompatibleResults = errors.New("incompatible results file")
)

// Entry is the persisted result of a benchmark
type Entry struct {
	Total  meter.Measurement            `yaml:"total"`
	Scopes map[string]meter.Measurement `yaml:"scopes,omitempty"`
}

// Results of a run
type Results struct {
	Version string           `yaml:"version"`
	Counter string           `yaml:"counter"`
	Benches map[string]Entry `yaml:"benches"`
}

// NewResults builds an empty set of results for a counter
func NewResults(counter string) Results {
	return Results{
		Version: ResultsVersion,
		Counter: counter,
		Benches: make(map[string]Entry),
	}
}

// Add the measurement of a benchmark
func (r Results) Add(id string, m meter.Measurement) {
	scopes := m.Scopes
	m.Scopes = nil
	r.Benches[id] = Entry{Total: m, Scopes: scopes}
}

// IDs of the benchmarks, sorted
func (r Results) IDs() []string {
	ids := make([]string, 0, len(r.Benches))
	for id := range r.Benches {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Merge other results into these. Entries of other take precedence.
func (r Results) Merge(other Results) {
	for id, e := range other.Benches {
		r.Benches[id] = e
	}
}

// LoadResults reads a results file
func LoadResults(pth string) (Results, error) {
	buf, err := ioutil.ReadFile(pth)
	if err != nil {
		if os.IsNotExist(err) {
			return Results{}, ErrNoResults.Wrap(err)
		}
		return Results{}, err
	}

	var r Results
	if err := yaml.Unmarshal(buf, &r); err != nil {
		return Results{}, ErrIncompatibleResults.Wrap(err)
	}
	if err := checkVersion(r.Version); err != nil {
		return Results{}, err
	}
	if r.Benches == nil {
		r.Benches = make(map[string]Entry)
	}
	return r, nil
}

func checkVersion(v string) error {
	current := semver.MustParse(ResultsVersion)
	got, err := semver.Parse(v)
	if err != nil {
		return ErrIncompatibleResults.Wrap(err)
	}
	if got.Major != current.Major {
		return ErrIncompatibleResults.Wrapf("version %s, expected %d.x", got, current.Major)
	}
	return nil
}

// Save results to a file
func (r Results) Save(pth string) error {
	buf, err := yaml.Marshal(r)
	if err != nil {
		return err
	}
	return ioutil.WriteFile(pth, buf, 0600)
}
