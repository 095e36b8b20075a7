package report

import (
	"bytes"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/ctrlsweep/internal/ctrltest"
	"github.com/san-kum/ctrlsweep/internal/storage"
)

func records(t *testing.T, raw string) []storage.KPIRecord {
	t.Helper()
	var out []storage.KPIRecord
	require.NoError(t, json.Unmarshal([]byte(raw), &out))
	return out
}

func TestScenarioLabel(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{`"user_defined"`, "user_defined"},
		{`{"time_period": 1, "electricity_price": 10.0}`, "10.0+1"},
		{`{"time_period": "peak_heat_day", "electricity_price": "dynamic"}`, "dynamic+peak_heat_day"},
		{`42`, "42"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ScenarioLabel(json.RawMessage(tt.raw)), tt.raw)
	}
}

func TestRows(t *testing.T) {
	rows, err := Rows(records(t, `[
		{"scenario_params": "a", "kpi": 1.0},
		{"scenario_params": "b", "kpi": {"ener_tot": 2, "idis_tot": null}}
	]`))
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, map[string]float64{"kpi": 1}, rows[0].KPI)
	assert.Equal(t, map[string]float64{"ener_tot": 2}, rows[1].KPI)
}

func TestRowsNullKPI(t *testing.T) {
	rows, err := Rows(records(t, `[
		{"scenario_params": "a", "kpi": 2.0},
		{"scenario_params": "b", "kpi": null},
		{"scenario_params": "c", "kpi": 4.0}
	]`))
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Empty(t, rows[1].KPI)

	stats := Summarize(rows)
	require.Len(t, stats, 1)
	assert.Equal(t, 2, stats[0].N)
	assert.InDelta(t, 3.0, stats[0].Mean, 1e-12)
	assert.Equal(t, 2.0, stats[0].Min)
}

func TestRowsRejectsNonNumericKPI(t *testing.T) {
	_, err := Rows(records(t, `[{"scenario_params": "a", "kpi": "high"}]`))
	assert.Error(t, err)
}

func TestSummarize(t *testing.T) {
	rows := []Row{
		{Scenario: "10+1", KPI: map[string]float64{"cost_tot": 1, "ener_tot": 4}},
		{Scenario: "20+1", KPI: map[string]float64{"cost_tot": 3}},
	}

	stats := Summarize(rows)
	require.Len(t, stats, 2)

	assert.Equal(t, "cost_tot", stats[0].Name)
	assert.Equal(t, 2, stats[0].N)
	assert.InDelta(t, 2.0, stats[0].Mean, 1e-12)
	assert.InDelta(t, math.Sqrt2, stats[0].Std, 1e-12)
	assert.Equal(t, 1.0, stats[0].Min)
	assert.Equal(t, 3.0, stats[0].Max)

	assert.Equal(t, KPIStat{Name: "ener_tot", N: 1, Mean: 4, Min: 4, Max: 4}, stats[1])
}

func TestWriteSummary(t *testing.T) {
	rows := []Row{
		{Scenario: "10+1", KPI: map[string]float64{"ener_tot": 4}},
		{Scenario: "user_defined", KPI: map[string]float64{"cost_tot": 0.5}},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteSummary(&buf, rows))

	out := buf.String()
	assert.Contains(t, out, "2 KPI records")
	assert.Contains(t, out, "ener_tot")
	assert.Contains(t, out, "user_defined")

	var line string
	for _, l := range strings.Split(out, "\n") {
		if strings.HasPrefix(l, "10+1") {
			line = l
		}
	}
	require.NotEmpty(t, line)
	assert.Equal(t, []string{"10+1", "-", "4"}, strings.Fields(line))
}

func measurements() *ctrltest.Table {
	table := ctrltest.NewTable("time", "reaTZon_y", "reaPHea_y")
	for i := 0; i < 24; i++ {
		_ = table.Append(float64(i)*3600, 293.15+float64(i%6), float64(100*i))
	}
	return table
}

func TestPlotColumn(t *testing.T) {
	graph, err := PlotColumn(measurements(), "reaTZon_y", 8, 40)
	require.NoError(t, err)
	assert.Contains(t, graph, "reaTZon_y (degC)")
	assert.Contains(t, graph, "25.00")

	_, err = PlotColumn(measurements(), "missing", 8, 40)
	assert.ErrorIs(t, err, ctrltest.ErrUnknownColumn)

	_, err = PlotColumn(ctrltest.NewTable("time", "a"), "a", 8, 40)
	assert.Error(t, err)
}

func TestSavePNG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "df_res_10+1.png")
	require.NoError(t, SavePNG(measurements(), "10+1", path, "reaTZon_y", "reaPHea_y"))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Positive(t, info.Size())

	assert.Error(t, SavePNG(measurements(), "10+1", path, "missing"))
}

func TestWriteChart(t *testing.T) {
	rows := []Row{
		{Scenario: "10+1", KPI: map[string]float64{"ener_tot": 4, "cost_tot": 1}},
		{Scenario: "20+1", KPI: map[string]float64{"ener_tot": 3}},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteChart(&buf, "bestest_air", rows))

	html := buf.String()
	assert.Contains(t, html, "<html")
	assert.Contains(t, html, "ener_tot")
	assert.Contains(t, html, "20+1")

	assert.Error(t, WriteChart(&buf, "empty", nil))
}
