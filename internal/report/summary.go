// Package report renders sweep results for the terminal and for files:
// KPI summaries, measurement plots and a KPI comparison chart.
package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"sort"
	"strings"
	"text/tabwriter"

	"gonum.org/v1/gonum/stat"

	"github.com/san-kum/ctrlsweep/internal/scenario"
	"github.com/san-kum/ctrlsweep/internal/storage"
)

// Row is one KPI record with its scenario label and numeric indicators.
type Row struct {
	Scenario string
	KPI      map[string]float64
}

// KPIStat summarises one indicator across records.
type KPIStat struct {
	Name string
	N    int
	Mean float64
	Std  float64
	Min  float64
	Max  float64
}

// Rows decodes KPI records. A bare numeric kpi is reported under "kpi";
// null indicators, and a null kpi, contribute no values.
func Rows(records []storage.KPIRecord) ([]Row, error) {
	rows := make([]Row, 0, len(records))
	for i, r := range records {
		kpi, err := decodeKPI(r.KPI)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		rows = append(rows, Row{Scenario: ScenarioLabel(r.ScenarioParams), KPI: kpi})
	}
	return rows, nil
}

// ScenarioLabel names a record's scenario the way the measurement files
// are named: "{price}+{period}", or the raw string for named runs.
func ScenarioLabel(raw json.RawMessage) string {
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	var p map[string]json.RawMessage
	if json.Unmarshal(raw, &p) == nil {
		return literal(p["electricity_price"]) + "+" + literal(p["time_period"])
	}
	return string(bytes.TrimSpace(raw))
}

func literal(raw json.RawMessage) string {
	var v scenario.Value
	if len(raw) == 0 || json.Unmarshal(raw, &v) != nil {
		return string(raw)
	}
	return v.String()
}

func decodeKPI(raw json.RawMessage) (map[string]float64, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return map[string]float64{}, nil
	}
	var single float64
	if json.Unmarshal(raw, &single) == nil {
		return map[string]float64{"kpi": single}, nil
	}
	var m map[string]*float64
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("kpi: %w", err)
	}
	out := make(map[string]float64, len(m))
	for k, v := range m {
		if v != nil {
			out[k] = *v
		}
	}
	return out, nil
}

// Summarize computes mean, standard deviation and range of every
// indicator, in name order.
func Summarize(rows []Row) []KPIStat {
	values := make(map[string][]float64)
	for _, r := range rows {
		for k, v := range r.KPI {
			values[k] = append(values[k], v)
		}
	}

	names := make([]string, 0, len(values))
	for k := range values {
		names = append(names, k)
	}
	sort.Strings(names)

	stats := make([]KPIStat, 0, len(names))
	for _, name := range names {
		xs := values[name]
		s := KPIStat{Name: name, N: len(xs), Mean: xs[0], Min: xs[0], Max: xs[0]}
		if len(xs) > 1 {
			s.Mean, s.Std = stat.MeanStdDev(xs, nil)
		}
		for _, x := range xs {
			s.Min = math.Min(s.Min, x)
			s.Max = math.Max(s.Max, x)
		}
		stats = append(stats, s)
	}
	return stats
}

// WriteSummary prints the per-indicator statistics followed by one line
// per record.
func WriteSummary(w io.Writer, rows []Row) error {
	stats := Summarize(rows)

	fmt.Fprintln(w, HeaderStyle.Render(fmt.Sprintf("%d KPI records", len(rows))))
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "KPI\tN\tMEAN\tSTD\tMIN\tMAX")
	for _, s := range stats {
		fmt.Fprintf(tw, "%s\t%d\t%.4g\t%.4g\t%.4g\t%.4g\n", s.Name, s.N, s.Mean, s.Std, s.Min, s.Max)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintln(w)

	names := make([]string, 0, len(stats))
	for _, s := range stats {
		names = append(names, s.Name)
	}

	tw = tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SCENARIO\t"+strings.ToUpper(strings.Join(names, "\t")))
	for _, r := range rows {
		cells := make([]string, 0, len(names)+1)
		cells = append(cells, r.Scenario)
		for _, n := range names {
			if v, ok := r.KPI[n]; ok {
				cells = append(cells, fmt.Sprintf("%.4g", v))
			} else {
				cells = append(cells, "-")
			}
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	return tw.Flush()
}
