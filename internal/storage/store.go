// Package storage keeps sweep results on disk: one cumulative KPI file
// and one measurement CSV per scenario.
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/san-kum/ctrlsweep/internal/ctrltest"
)

const (
	DefaultDirName = "result"
	KPIFile        = "kpi_results.json"
)

type Store struct {
	dir string
	mu  sync.Mutex
}

func New(dir string) *Store {
	return &Store{dir: dir}
}

// DefaultDir is the result directory next to the running executable.
func DefaultDir() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", err
	}
	return filepath.Join(filepath.Dir(exe), DefaultDirName), nil
}

func (s *Store) Dir() string { return s.dir }

func (s *Store) Init() error {
	return os.MkdirAll(s.dir, 0755)
}

// KPIRecord is one entry of the KPI file. Both fields are kept as raw
// JSON so records written by other tools survive a rewrite unchanged.
type KPIRecord struct {
	ScenarioParams json.RawMessage `json:"scenario_params"`
	KPI            json.RawMessage `json:"kpi"`
}

func (s *Store) KPIPath() string {
	return filepath.Join(s.dir, KPIFile)
}

// AppendKPI adds one {scenario_params, kpi} record to the KPI file. The
// whole array is rewritten through a temporary file and renamed into place.
// Records are never deduplicated.
func (s *Store) AppendKPI(scenarioParams, kpi any) error {
	params, err := json.Marshal(scenarioParams)
	if err != nil {
		return fmt.Errorf("encode scenario params: %w", err)
	}
	values, err := json.Marshal(kpi)
	if err != nil {
		return fmt.Errorf("encode kpi: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.Init(); err != nil {
		return err
	}

	records, err := s.readKPIs()
	if err != nil {
		return err
	}
	records = append(records, KPIRecord{ScenarioParams: params, KPI: values})

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return err
	}
	return writeFileAtomic(s.KPIPath(), append(data, '\n'))
}

// LoadKPIs returns every record of the KPI file, or none if it does not
// exist yet.
func (s *Store) LoadKPIs() ([]KPIRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readKPIs()
}

func (s *Store) readKPIs() ([]KPIRecord, error) {
	data, err := os.ReadFile(s.KPIPath())
	if errors.Is(err, os.ErrNotExist) {
		return []KPIRecord{}, nil
	}
	if err != nil {
		return nil, err
	}

	var records []KPIRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parse %s: %w", s.KPIPath(), err)
	}
	if records == nil {
		records = []KPIRecord{}
	}
	return records, nil
}

func (s *Store) MeasurementsPath(name string) string {
	return filepath.Join(s.dir, "df_res_"+name+".csv")
}

// WriteMeasurements writes the table to df_res_{name}.csv, replacing any
// previous file for the same scenario.
func (s *Store) WriteMeasurements(table *ctrltest.Table, name string) error {
	if table == nil {
		return fmt.Errorf("storage: no measurements for %s", name)
	}
	if err := s.Init(); err != nil {
		return err
	}

	f, err := os.Create(s.MeasurementsPath(name))
	if err != nil {
		return err
	}
	if err := table.WriteCSV(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func (s *Store) LoadMeasurements(name string) (*ctrltest.Table, error) {
	f, err := os.Open(s.MeasurementsPath(name))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	t, err := ctrltest.ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.MeasurementsPath(name), err)
	}
	return t, nil
}

func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(0644); err != nil {
		tmp.Close()
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
