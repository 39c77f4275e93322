// Copyright © 2018 One Concern

package bench

import (
	"fmt"
	"io"

	"github.com/oneconcern/stablebench/pkg/meter"

	"github.com/docker/go-units"
	"github.com/fatih/color"
	"github.com/gosuri/uitable"
)

// Status of a benchmark compared with its baseline
type Status string

// Comparison statuses
const (
	StatusNew       Status = "new"
	StatusImproved  Status = "improved"
	StatusRegressed Status = "regressed"
	StatusUnchanged Status = "unchanged"
)

// Comparison of a benchmark with its baseline
type Comparison struct {
	ID       string
	Current  meter.Measurement
	Baseline *meter.Measurement

	// Change of instructions, in percent of the baseline
	Change float64
	Status Status
}

// Compare results with a baseline. Changes within noise percent are reported as unchanged.
// Baselines collected with another counter are ignored.
func Compare(current, baseline Results, noise float64) []Comparison {
	sameCounter := baseline.Counter == current.Counter
	cmps := make([]Comparison, 0, len(current.Benches))

	for _, id := range current.IDs() {
		cmp := Comparison{ID: id, Current: current.Benches[id].Total, Status: StatusNew}
		if base, ok := baseline.Benches[id]; ok && sameCounter {
			b := base.Total
			cmp.Baseline = &b
			cmp.Change = change(b.Instructions, cmp.Current.Instructions)
			switch {
			case cmp.Change > noise:
				cmp.Status = StatusRegressed
			case cmp.Change < -noise:
				cmp.Status = StatusImproved
			default:
				cmp.Status = StatusUnchanged
			}
		}
		cmps = append(cmps, cmp)
	}
	return cmps
}

func change(before, after uint64) float64 {
	if before == 0 {
		if after == 0 {
			return 0
		}
		return 100
	}
	return (float64(after) - float64(before)) / float64(before) * 100
}

// Summary counts comparisons by status
func Summary(cmps []Comparison) map[Status]int {
	s := make(map[Status]int, 4)
	for _, c := range cmps {
		s[c.Status]++
	}
	return s
}

// HumanCount renders a count of instructions with a metric suffix, e.g. 1.234B
func HumanCount(n uint64) string {
	return units.CustomSize("%.4g%s", float64(n), 1000.0, []string{"", "K", "M", "B", "T"})
}

// Report renders comparisons as a table
func Report(w io.Writer, cmps []Comparison) error {
	table := uitable.New()
	table.MaxColWidth = 80
	table.AddRow("BENCHMARK", "INSTRUCTIONS", "CHANGE", "HEAP", "STABLE MEMORY", "STATUS")

	for _, c := range cmps {
		delta := "-"
		if c.Baseline != nil {
			delta = fmt.Sprintf("%+.2f%%", c.Change)
		}
		table.AddRow(
			c.ID,
			HumanCount(c.Current.Instructions),
			delta,
			units.BytesSize(float64(c.Current.HeapIncrease)),
			units.BytesSize(float64(c.Current.StoreIncrease)),
			colorize(c.Status),
		)
	}

	if _, err := fmt.Fprintln(w, table); err != nil {
		return err
	}

	s := Summary(cmps)
	_, err := fmt.Fprintf(w, "\n%d benchmarks: %d regressed, %d improved, %d unchanged, %d new\n",
		len(cmps), s[StatusRegressed], s[StatusImproved], s[StatusUnchanged], s[StatusNew])
	return err
}

func colorize(s Status) string {
	switch s {
	case StatusRegressed:
		return color.RedString(string(s))
	case StatusImproved:
		return color.GreenString(string(s))
	case StatusNew:
		return color.YellowString(string(s))
	default:
		return color.HiBlackString(string(s))
	}
}
