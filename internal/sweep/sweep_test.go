package sweep_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/ctrlsweep/internal/config"
	"github.com/san-kum/ctrlsweep/internal/ctrltest"
	"github.com/san-kum/ctrlsweep/internal/experiment"
	"github.com/san-kum/ctrlsweep/internal/scenario"
	"github.com/san-kum/ctrlsweep/internal/storage"
	"github.com/san-kum/ctrlsweep/internal/sweep"
)

// fakeTester records every request and answers with a one-row table and
// a KPI derived from the call count.
type fakeTester struct {
	requests []ctrltest.Request
	failOn   int
}

func (f *fakeTester) ControlTest(_ context.Context, req ctrltest.Request) (*ctrltest.Outcome, error) {
	f.requests = append(f.requests, req)
	if f.failOn > 0 && len(f.requests) == f.failOn {
		return nil, errors.New("simulation diverged")
	}
	table := ctrltest.NewTable("time", "reaTZon_y")
	_ = table.Append(req.StartTime, 293.15)
	return &ctrltest.Outcome{
		KPI:          ctrltest.KPI{"ener_tot": float64(len(f.requests))},
		Measurements: table,
		Forecasts:    ctrltest.NewTable("time"),
		CustomKPI:    ctrltest.KPI{"ignored": 1},
	}, nil
}

func ints(vs ...int) []scenario.Value {
	out := make([]scenario.Value, 0, len(vs))
	for _, v := range vs {
		out = append(out, scenario.Int(v))
	}
	return out
}

func csvFiles(dir string) []string {
	matches, err := filepath.Glob(filepath.Join(dir, "df_res_*.csv"))
	Expect(err).NotTo(HaveOccurred())
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		names = append(names, filepath.Base(m))
	}
	return names
}

var _ = Describe("Driver", func() {
	var (
		ctx    context.Context
		dir    string
		tester *fakeTester
		store  *storage.Store
		out    *bytes.Buffer
		driver *sweep.Driver
	)

	BeforeEach(func() {
		ctx = context.Background()
		dir = filepath.Join(GinkgoT().TempDir(), storage.DefaultDirName)
		tester = &fakeTester{}
		store = storage.New(dir)
		out = &bytes.Buffer{}
		driver = sweep.New(tester, store, out)
	})

	Describe("RunAll", func() {
		It("runs every pair in price-major order", func() {
			names, err := driver.RunAll(ctx, ints(10, 20), ints(1, 2), &config.TestCase{})
			Expect(err).NotTo(HaveOccurred())
			Expect(names).To(Equal([]string{"10+1", "10+2", "20+1", "20+2"}))

			Expect(tester.requests).To(HaveLen(4))
			got := make([]string, 0, 4)
			for _, req := range tester.requests {
				Expect(req.Scenario).NotTo(BeNil())
				got = append(got, req.Scenario.Name())
			}
			Expect(got).To(Equal(names))
		})

		It("runs each scenario as one baseline step over a day", func() {
			_, err := driver.RunAll(ctx, ints(10), ints(1), &config.TestCase{})
			Expect(err).NotTo(HaveOccurred())

			req := tester.requests[0]
			Expect(req.Controller).To(Equal("baseline"))
			Expect(req.StartTime).To(BeZero())
			Expect(req.WarmupPeriod).To(BeZero())
			Expect(req.Length).To(Equal(float64(ctrltest.Day)))
			Expect(req.Step).To(Equal(req.Length))
			Expect(req.Scenario.TimePeriod.String()).To(Equal("1"))
			Expect(req.Scenario.ElectricityPrice.String()).To(Equal("10"))
		})

		It("prints one progress line per scenario", func() {
			_, err := driver.RunAll(ctx, ints(10), ints(1, 2), &config.TestCase{})
			Expect(err).NotTo(HaveOccurred())

			Expect(out.String()).To(ContainSubstring("Finished testing {time_period: 1, electricity_price: 10}"))
			Expect(out.String()).To(ContainSubstring("Finished testing {time_period: 2, electricity_price: 10}"))
		})

		It("writes nothing when the save flags are absent", func() {
			_, err := driver.RunAll(ctx, ints(10), ints(1), &config.TestCase{})
			Expect(err).NotTo(HaveOccurred())
			Expect(dir).NotTo(BeADirectory())
		})

		It("saves KPIs and measurements when asked", func() {
			tc := &config.TestCase{SaveKPIResults: config.Bool(true), SaveMeasurements: config.Bool(true)}
			_, err := driver.RunAll(ctx, ints(10, 20), ints(1), tc)
			Expect(err).NotTo(HaveOccurred())

			records, err := store.LoadKPIs()
			Expect(err).NotTo(HaveOccurred())
			Expect(records).To(HaveLen(2))
			Expect(string(records[0].ScenarioParams)).To(MatchJSON(`{"time_period": 1, "electricity_price": 10}`))
			Expect(string(records[1].KPI)).To(MatchJSON(`{"ener_tot": 2}`))

			Expect(csvFiles(dir)).To(ConsistOf("df_res_10+1.csv", "df_res_20+1.csv"))
		})

		It("saves only measurements when KPI saving is off", func() {
			tc := &config.TestCase{SaveKPIResults: config.Bool(false), SaveMeasurements: config.Bool(true)}
			_, err := driver.RunAll(ctx, ints(10), ints(1), tc)
			Expect(err).NotTo(HaveOccurred())

			Expect(store.KPIPath()).NotTo(BeAnExistingFile())
			Expect(csvFiles(dir)).To(ConsistOf("df_res_10+1.csv"))
		})

		It("duplicates KPI records when the same sweep runs twice", func() {
			tc := &config.TestCase{SaveKPIResults: config.Bool(true)}
			for i := 0; i < 2; i++ {
				_, err := driver.RunAll(ctx, ints(10, 20), ints(1), tc)
				Expect(err).NotTo(HaveOccurred())
			}

			records, err := store.LoadKPIs()
			Expect(err).NotTo(HaveOccurred())
			Expect(records).To(HaveLen(4))
			Expect(string(records[2].ScenarioParams)).To(MatchJSON(string(records[0].ScenarioParams)))
		})

		It("names scenarios by canonical number text, keeping floats apart from integers", func() {
			path := filepath.Join(GinkgoT().TempDir(), "config.json")
			raw := `{"x": {"electricity_price": [10.0, 0.25, 1.50, 1e3], "time_period": [1]}}`
			Expect(os.WriteFile(path, []byte(raw), 0644)).To(Succeed())
			g, err := config.Load(path)
			Expect(err).NotTo(HaveOccurred())

			names, err := driver.Dispatch(ctx, g, "x")
			Expect(err).NotTo(HaveOccurred())
			Expect(names).To(Equal([]string{"10.0+1", "0.25+1", "1.5+1", "1000.0+1"}))
		})

		It("returns no names for an empty price list", func() {
			names, err := driver.RunAll(ctx, nil, ints(1, 2), &config.TestCase{})
			Expect(err).NotTo(HaveOccurred())
			Expect(names).To(BeEmpty())
			Expect(tester.requests).To(BeEmpty())
		})

		It("stops at the first failing scenario", func() {
			tester.failOn = 2
			tc := &config.TestCase{SaveKPIResults: config.Bool(true)}

			_, err := driver.RunAll(ctx, ints(10, 20), ints(1), tc)
			Expect(err).To(MatchError(ContainSubstring("simulation diverged")))

			var se *sweep.ScenarioError
			Expect(errors.As(err, &se)).To(BeTrue())
			Expect(se.Scenario).To(Equal("20+1"))
			Expect(tester.requests).To(HaveLen(2))

			records, err := store.LoadKPIs()
			Expect(err).NotTo(HaveOccurred())
			Expect(records).To(HaveLen(1))
		})
	})

	Describe("Dispatch", func() {
		It("reports a missing test case without touching disk", func() {
			g := config.Global{"bestest_air": &config.TestCase{SaveKPIResults: config.Bool(true)}}

			_, err := driver.Dispatch(ctx, g, "nonexistent")

			var nf *config.NotFoundError
			Expect(errors.As(err, &nf)).To(BeTrue())
			Expect(err.Error()).To(Equal("Test case 'nonexistent' not found in config."))
			Expect(tester.requests).To(BeEmpty())
			Expect(dir).NotTo(BeADirectory())
		})

		It("runs the user-defined week once", func() {
			g := config.Global{"bestest_hydronic": &config.TestCase{RunUserDefinedTest: true, ElectricityPrice: ints(10)}}

			names, err := driver.Dispatch(ctx, g, "bestest_hydronic")
			Expect(err).NotTo(HaveOccurred())
			Expect(names).To(Equal([]string{"user_defined"}))

			Expect(tester.requests).To(HaveLen(1))
			req := tester.requests[0]
			Expect(req.Scenario).To(BeNil())
			Expect(req.StartTime).To(Equal(float64(15 * ctrltest.Day)))
			Expect(req.WarmupPeriod).To(Equal(float64(ctrltest.Day)))
			Expect(req.Length).To(Equal(float64(7 * ctrltest.Day)))
			Expect(req.Step).To(Equal(req.Length))
		})

		It("saves the user-defined KPI by default but not its measurements", func() {
			g := config.Global{"bestest_hydronic": &config.TestCase{RunUserDefinedTest: true}}

			_, err := driver.Dispatch(ctx, g, "bestest_hydronic")
			Expect(err).NotTo(HaveOccurred())

			records, err := store.LoadKPIs()
			Expect(err).NotTo(HaveOccurred())
			Expect(records).To(HaveLen(1))
			Expect(string(records[0].ScenarioParams)).To(MatchJSON(`"user_defined"`))
			Expect(string(records[0].KPI)).To(MatchJSON(`{"ener_tot": 1}`))
			Expect(csvFiles(dir)).To(BeEmpty())
		})

		It("writes user-defined measurements when asked", func() {
			g := config.Global{"bestest_hydronic": &config.TestCase{
				RunUserDefinedTest: true,
				SaveKPIResults:     config.Bool(false),
				SaveMeasurements:   config.Bool(true),
			}}

			_, err := driver.Dispatch(ctx, g, "bestest_hydronic")
			Expect(err).NotTo(HaveOccurred())
			Expect(store.KPIPath()).NotTo(BeAnExistingFile())
			Expect(csvFiles(dir)).To(ConsistOf("df_res_user_defined.csv"))
		})

		It("uses the configured controller unless overridden", func() {
			g := config.Global{"singlezone_commercial": &config.TestCase{
				Controller:       "pid",
				ElectricityPrice: ints(10),
				TimePeriod:       ints(1),
			}}

			_, err := driver.Dispatch(ctx, g, "singlezone_commercial")
			Expect(err).NotTo(HaveOccurred())
			Expect(tester.requests[0].Controller).To(Equal("pid"))

			driver.Controller = "none"
			_, err = driver.Dispatch(ctx, g, "singlezone_commercial")
			Expect(err).NotTo(HaveOccurred())
			Expect(tester.requests[1].Controller).To(Equal("none"))
		})
	})

	Describe("with the local engine", func() {
		It("sweeps a test case end to end", func() {
			driver = sweep.New(experiment.NewLocal("bestest_air"), store, out)
			g := config.Global{"bestest_air": &config.TestCase{
				SaveKPIResults:   config.Bool(true),
				SaveMeasurements: config.Bool(true),
				ElectricityPrice: []scenario.Value{scenario.Number(0.1), scenario.String("dynamic")},
				TimePeriod:       []scenario.Value{scenario.String("peak_heat_day")},
			}}

			names, err := driver.Dispatch(ctx, g, "bestest_air")
			Expect(err).NotTo(HaveOccurred())
			Expect(names).To(Equal([]string{"0.1+peak_heat_day", "dynamic+peak_heat_day"}))

			table, err := store.LoadMeasurements("0.1+peak_heat_day")
			Expect(err).NotTo(HaveOccurred())
			Expect(table.IndexName).To(Equal("time"))
			Expect(table.Columns).To(ContainElement("reaTZon_y"))
			Expect(table.Len()).To(BeNumerically(">", 0))

			records, err := store.LoadKPIs()
			Expect(err).NotTo(HaveOccurred())
			Expect(records).To(HaveLen(2))
		})
	})
})
