package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/san-kum/ctrlsweep/internal/boptest"
	"github.com/san-kum/ctrlsweep/internal/config"
	"github.com/san-kum/ctrlsweep/internal/ctrltest"
	"github.com/san-kum/ctrlsweep/internal/experiment"
	"github.com/san-kum/ctrlsweep/internal/report"
	"github.com/san-kum/ctrlsweep/internal/server"
	"github.com/san-kum/ctrlsweep/internal/storage"
	"github.com/san-kum/ctrlsweep/internal/sweep"
)

const (
	backendLocal   = "local"
	backendBoptest = "boptest"
)

type options struct {
	configFile string
	resultDir  string
	backend    string
	url        string
	controller string
	integrator string
	verbose    bool

	force  bool
	html   string
	column string
	png    string
	height int
	width  int
	addr   string

	stdout io.Writer
	stderr io.Writer
	logger *log.Logger
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run executes the command line and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	o := &options{stdout: stdout, stderr: stderr}

	root := newRootCmd(o)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	if err := root.ExecuteContext(ctx); err != nil {
		var nf *config.NotFoundError
		if errors.As(err, &nf) {
			fmt.Fprintln(stdout, nf.Error())
			return 1
		}
		fmt.Fprintln(stderr, report.StatusFailed.Render("Error:"), err)
		return 1
	}
	return 0
}

func newRootCmd(o *options) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "ctrlsweep [test_case]",
		Short: "baseline control testing over electricity price and time period scenarios",
		Long: "Runs a building test case over every configured (electricity price, time period)\n" +
			"scenario, or over its user-defined week, and saves KPIs and measurements.",
		Args:          cobra.MaximumNArgs(1),
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			out := io.Discard
			if o.verbose {
				out = o.stderr
			}
			o.logger = log.New(out, "", log.LstdFlags)
		},
		RunE: o.runSweep,
	}

	rootCmd.PersistentFlags().StringVar(&o.configFile, "config", config.DefaultFile, "configuration file")
	rootCmd.PersistentFlags().StringVar(&o.resultDir, "result-dir", "",
		"result directory (default: result next to the executable; with go run that is a temporary build directory, so set this flag)")
	rootCmd.PersistentFlags().BoolVarP(&o.verbose, "verbose", "v", false, "log diagnostics to stderr")
	rootCmd.Flags().StringVar(&o.backend, "backend", "", "control test backend: local or boptest (default local)")
	rootCmd.Flags().StringVar(&o.url, "url", boptest.DefaultURL, "BOPTEST server URL")
	rootCmd.Flags().StringVar(&o.controller, "controller", "", "controller (default baseline)")
	rootCmd.Flags().StringVar(&o.integrator, "integrator", "", "local engine integrator: rk4 or euler (default rk4)")

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "write a sample configuration file",
		Args:  cobra.NoArgs,
		RunE:  o.initConfig,
	}
	initCmd.Flags().BoolVar(&o.force, "force", false, "overwrite an existing file")

	casesCmd := &cobra.Command{
		Use:   "cases",
		Short: "list local test cases and controllers",
		Args:  cobra.NoArgs,
		RunE:  o.listCases,
	}

	resultsCmd := &cobra.Command{
		Use:   "results",
		Short: "summarize saved KPI results",
		Args:  cobra.NoArgs,
		RunE:  o.showResults,
	}
	resultsCmd.Flags().StringVar(&o.html, "html", "", "also write an HTML chart to this file")

	plotCmd := &cobra.Command{
		Use:   "plot [scenario]",
		Short: "plot saved measurements of a scenario",
		Args:  cobra.ExactArgs(1),
		RunE:  o.plotScenario,
	}
	plotCmd.Flags().StringVar(&o.column, "column", "reaTZon_y", "measurement column")
	plotCmd.Flags().StringVar(&o.png, "png", "", "also write an image of the column to this file")
	plotCmd.Flags().IntVar(&o.height, "height", 10, "plot height")
	plotCmd.Flags().IntVar(&o.width, "width", 80, "plot width")

	serveCmd := &cobra.Command{
		Use:   "serve [test_case]",
		Short: "serve a local test case over the BOPTEST REST API",
		Args:  cobra.MaximumNArgs(1),
		RunE:  o.serve,
	}
	serveCmd.Flags().StringVar(&o.addr, "addr", "127.0.0.1:5000", "listen address")

	rootCmd.AddCommand(initCmd, casesCmd, resultsCmd, plotCmd, serveCmd)
	return rootCmd
}

func (o *options) store() (*storage.Store, error) {
	dir := o.resultDir
	if dir == "" {
		d, err := storage.DefaultDir()
		if err != nil {
			return nil, err
		}
		dir = d
	}
	return storage.New(dir), nil
}

func (o *options) runSweep(cmd *cobra.Command, args []string) error {
	name := config.DefaultTestCase
	if len(args) > 0 {
		name = args[0]
	}

	global, err := config.Load(o.configFile)
	if err != nil {
		return err
	}
	tc, err := global.Lookup(name)
	if err != nil {
		return err
	}

	tester, err := o.tester(name, tc)
	if err != nil {
		return err
	}
	st, err := o.store()
	if err != nil {
		return err
	}

	driver := sweep.New(tester, st, o.stdout)
	driver.Logger = o.logger
	driver.Controller = o.controller

	names, err := driver.Dispatch(cmd.Context(), global, name)
	if err != nil {
		return err
	}
	o.logger.Printf("%s: %d scenario(s) finished, results in %s", name, len(names), st.Dir())
	return nil
}

// tester picks the control-test backend and, for the local engine, its
// integrator. Flags win over the test case's configuration.
func (o *options) tester(name string, tc *config.TestCase) (ctrltest.Tester, error) {
	backend := firstNonEmpty(o.backend, tc.Backend)

	switch backend {
	case "", backendLocal:
		l := experiment.NewLocal(name)
		if integ := firstNonEmpty(o.integrator, tc.Integrator); integ != "" {
			l.Integrator = integ
		}
		return l, nil
	case backendBoptest:
		c := boptest.NewClient(nil, o.url)
		c.Logger = o.logger
		return c, nil
	}
	return nil, fmt.Errorf("unknown backend %q", backend)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func (o *options) initConfig(cmd *cobra.Command, args []string) error {
	if _, err := os.Stat(o.configFile); err == nil && !o.force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", o.configFile)
	}
	if err := config.Save(o.configFile, config.Sample()); err != nil {
		return err
	}
	fmt.Fprintf(o.stdout, "wrote %s\n", o.configFile)
	return nil
}

func (o *options) listCases(cmd *cobra.Command, args []string) error {
	r := experiment.NewRegistry()

	fmt.Fprintln(o.stdout, report.Title.Render("test cases"))
	w := tabwriter.NewWriter(o.stdout, 0, 0, 2, ' ', 0)
	for _, name := range r.ListTestCases() {
		zone, err := r.GetTestCase(name)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "  %s\t%.0f m2\t%.0f W\tprice %.2f\n", name, zone.FloorArea, zone.HeaterCapacity, zone.DefaultPrice)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Fprintln(o.stdout, report.Title.Render("controllers"))
	for _, name := range r.ListControllers() {
		fmt.Fprintf(o.stdout, "  %s\n", name)
	}
	return nil
}

func (o *options) showResults(cmd *cobra.Command, args []string) error {
	st, err := o.store()
	if err != nil {
		return err
	}
	records, err := st.LoadKPIs()
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Fprintf(o.stdout, "no KPI results in %s\n", st.Dir())
		return nil
	}

	rows, err := report.Rows(records)
	if err != nil {
		return err
	}
	if err := report.WriteSummary(o.stdout, rows); err != nil {
		return err
	}

	if o.html == "" {
		return nil
	}
	f, err := os.Create(o.html)
	if err != nil {
		return err
	}
	if err := report.WriteChart(f, filepath.Base(st.Dir()), rows); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Fprintln(o.stdout, report.Saved(o.html))
	return nil
}

func (o *options) plotScenario(cmd *cobra.Command, args []string) error {
	st, err := o.store()
	if err != nil {
		return err
	}
	name := args[0]
	table, err := st.LoadMeasurements(name)
	if err != nil {
		return err
	}

	fmt.Fprintf(o.stdout, "scenario: %s\n", name)
	fmt.Fprintf(o.stdout, "samples: %d\n\n", table.Len())

	graph, err := report.PlotColumn(table, o.column, o.height, o.width)
	if err != nil {
		return err
	}
	fmt.Fprintln(o.stdout, graph)

	if o.png == "" {
		return nil
	}
	if err := report.SavePNG(table, name, o.png, o.column); err != nil {
		return err
	}
	fmt.Fprintln(o.stdout, report.Saved(o.png))
	return nil
}

func (o *options) serve(cmd *cobra.Command, args []string) error {
	name := config.DefaultTestCase
	if len(args) > 0 {
		name = args[0]
	}

	ctx := cmd.Context()
	srv, err := server.New(ctx, name, o.logger)
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              o.addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.ListenAndServe()
	}()
	fmt.Fprintf(o.stdout, "serving %s on http://%s\n", name, o.addr)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
