// Package boptest runs control tests against a BOPTEST test-case server
// over its REST API.
package boptest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/san-kum/ctrlsweep/internal/ctrltest"
	"github.com/san-kum/ctrlsweep/internal/scenario"
)

const DefaultURL = "http://127.0.0.1:5000"

// ErrUnsupportedController is returned for controllers other than the
// test case's embedded baseline.
var ErrUnsupportedController = errors.New("boptest: unsupported controller")

// StatusError is a non-2xx response from the server.
type StatusError struct {
	Method string
	Path   string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.Code, e.Body)
}

// Client implements ctrltest.Tester for a running test case.
type Client struct {
	HTTPClient *http.Client
	BaseURL    string
	// ForecastInterval is the forecast sampling interval in seconds.
	ForecastInterval float64
	Logger           *log.Logger
}

var _ ctrltest.Tester = (*Client)(nil)

func NewClient(httpClient *http.Client, baseURL string) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 5 * time.Minute}
	}
	if baseURL == "" {
		baseURL = DefaultURL
	}
	return &Client{
		HTTPClient:       httpClient,
		BaseURL:          strings.TrimRight(baseURL, "/"),
		ForecastInterval: 3600,
		Logger:           log.New(io.Discard, "", 0),
	}
}

func (c *Client) ControlTest(ctx context.Context, req ctrltest.Request) (*ctrltest.Outcome, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if req.Controller != ctrltest.DefaultController {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedController, req.Controller)
	}

	name, err := c.Name(ctx)
	if err != nil {
		return nil, err
	}
	c.Logger.Printf("boptest: running %s on %s", req.Controller, name)

	start := req.StartTime
	if req.Scenario != nil {
		t, err := c.SetScenario(ctx, *req.Scenario)
		if err != nil {
			return nil, err
		}
		if t > 0 {
			start = t
		}
	} else {
		if err := c.Initialize(ctx, req.StartTime, req.WarmupPeriod); err != nil {
			return nil, err
		}
	}

	if err := c.SetStep(ctx, req.Step); err != nil {
		return nil, err
	}

	forecasts, err := c.Forecast(ctx, req.Length)
	if err != nil {
		c.Logger.Printf("boptest: forecast unavailable: %v", err)
		forecasts = nil
	}

	var final float64
	for i := 0; i < req.Steps(); i++ {
		y, err := c.Advance(ctx, nil)
		if err != nil {
			return nil, fmt.Errorf("advance %d: %w", i+1, err)
		}
		if t, ok := y["time"]; ok {
			final = t
		}
	}
	if final == 0 {
		final = start + req.Length
	}

	kpi, err := c.KPI(ctx)
	if err != nil {
		return nil, err
	}

	points, err := c.MeasurementNames(ctx)
	if err != nil {
		return nil, err
	}
	measurements, err := c.Results(ctx, points, start, final)
	if err != nil {
		return nil, err
	}

	return &ctrltest.Outcome{
		KPI:          kpi,
		Measurements: measurements,
		Forecasts:    forecasts,
		CustomKPI:    ctrltest.KPI{},
	}, nil
}

func (c *Client) Name(ctx context.Context) (string, error) {
	var out struct {
		Name string `json:"name"`
	}
	if err := c.do(ctx, http.MethodGet, "/name", nil, &out); err != nil {
		return "", err
	}
	return out.Name, nil
}

func (c *Client) Initialize(ctx context.Context, start, warmup float64) error {
	body := map[string]float64{"start_time": start, "warmup_period": warmup}
	return c.do(ctx, http.MethodPut, "/initialize", body, nil)
}

// SetScenario initializes the test case to a predefined scenario and
// returns the simulation time it starts at. Unset fields are left out of
// the request.
func (c *Client) SetScenario(ctx context.Context, p scenario.Params) (float64, error) {
	body := make(map[string]scenario.Value, 2)
	if !p.TimePeriod.IsZero() {
		body["time_period"] = p.TimePeriod
	}
	if !p.ElectricityPrice.IsZero() {
		body["electricity_price"] = p.ElectricityPrice
	}

	var out struct {
		TimePeriod map[string]float64 `json:"time_period"`
	}
	if err := c.do(ctx, http.MethodPut, "/scenario", body, &out); err != nil {
		return 0, err
	}
	return out.TimePeriod["time"], nil
}

func (c *Client) SetStep(ctx context.Context, step float64) error {
	return c.do(ctx, http.MethodPut, "/step", map[string]float64{"step": step}, nil)
}

// Advance moves the simulation one control step with the given signal
// overrides and returns the measurements at the end of the step.
func (c *Client) Advance(ctx context.Context, overrides map[string]float64) (map[string]float64, error) {
	if overrides == nil {
		overrides = map[string]float64{}
	}
	var y map[string]float64
	if err := c.do(ctx, http.MethodPost, "/advance", overrides, &y); err != nil {
		return nil, err
	}
	return y, nil
}

// KPI returns the core indicators. Indicators the server cannot compute
// yet are reported as null and left out.
func (c *Client) KPI(ctx context.Context) (ctrltest.KPI, error) {
	var raw map[string]*float64
	if err := c.do(ctx, http.MethodGet, "/kpi", nil, &raw); err != nil {
		return nil, err
	}
	kpi := make(ctrltest.KPI, len(raw))
	for k, v := range raw {
		if v != nil {
			kpi[k] = *v
		}
	}
	return kpi, nil
}

// MeasurementNames lists the measurement points in name order.
func (c *Client) MeasurementNames(ctx context.Context) ([]string, error) {
	var raw map[string]json.RawMessage
	if err := c.do(ctx, http.MethodGet, "/measurements", nil, &raw); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(raw))
	for name := range raw {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Results fetches the trajectories of points between start and final as
// a table indexed by time.
func (c *Client) Results(ctx context.Context, points []string, start, final float64) (*ctrltest.Table, error) {
	body := map[string]any{
		"point_names": points,
		"start_time":  start,
		"final_time":  final,
	}
	var raw map[string][]float64
	if err := c.do(ctx, http.MethodPut, "/results", body, &raw); err != nil {
		return nil, err
	}
	return seriesTable(raw, points)
}

// Forecast fetches every forecast point over horizon seconds.
func (c *Client) Forecast(ctx context.Context, horizon float64) (*ctrltest.Table, error) {
	var raw map[string]json.RawMessage
	if err := c.do(ctx, http.MethodGet, "/forecast_points", nil, &raw); err != nil {
		return nil, err
	}
	points := make([]string, 0, len(raw))
	for name := range raw {
		points = append(points, name)
	}
	sort.Strings(points)

	body := map[string]any{
		"point_names": points,
		"horizon":     horizon,
		"interval":    c.ForecastInterval,
	}
	var series map[string][]float64
	if err := c.do(ctx, http.MethodPut, "/forecast", body, &series); err != nil {
		return nil, err
	}
	return seriesTable(series, points)
}

func seriesTable(series map[string][]float64, points []string) (*ctrltest.Table, error) {
	index, ok := series["time"]
	if !ok {
		return nil, fmt.Errorf("boptest: result has no time column")
	}

	columns := make([]string, 0, len(points))
	for _, p := range points {
		if p == "time" {
			continue
		}
		if len(series[p]) != len(index) {
			return nil, fmt.Errorf("boptest: point %s has %d samples, want %d", p, len(series[p]), len(index))
		}
		columns = append(columns, p)
	}

	t := ctrltest.NewTable("time", columns...)
	for i, ts := range index {
		row := make([]float64, len(columns))
		for j, p := range columns {
			row[j] = series[p][i]
		}
		if err := t.Append(ts, row...); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// envelope is the response wrapper of newer servers.
type envelope struct {
	Status  *int            `json:"status"`
	Message string          `json:"message"`
	Payload json.RawMessage `json:"payload"`
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode %s request: %w", path, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading %s response: %w", path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Method: method, Path: path, Code: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}

	payload := json.RawMessage(data)
	var env envelope
	if json.Unmarshal(data, &env) == nil && env.Status != nil && env.Payload != nil {
		payload = env.Payload
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}
