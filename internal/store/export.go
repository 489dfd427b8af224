package store

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/san-kum/dynstream/internal/playback"
)

// Trace is what a renderer showed: one interpolated sample per render tick
// plus the producer's summary.
type Trace struct {
	Model   string             `json:"model"`
	Session string             `json:"session"`
	Quality float64            `json:"quality"`
	Speed   float64            `json:"speed"`
	Times   []float64          `json:"times"`
	Values  [][]float64        `json:"values"`
	Summary map[string]float64 `json:"summary"`
	Stalls  int                `json:"stalls"`
}

func (t *Trace) Add(s playback.Sample) {
	t.Times = append(t.Times, s.Time)
	t.Values = append(t.Values, append([]float64(nil), s.Values...))
}

func (t *Trace) Len() int { return len(t.Times) }

// Export writes the trace as CSV, JSON or an SVG path depending on the
// file extension.
func Export(path string, t *Trace) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return ExportCSV(path, t)
	case ".json":
		return ExportJSON(path, t)
	case ".svg":
		return ExportSVG(path, t)
	default:
		return fmt.Errorf("unsupported export format: %s", filepath.Ext(path))
	}
}

func ExportJSON(path string, t *Trace) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return WriteJSON(file, t)
}

func WriteJSON(w io.Writer, t *Trace) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(t)
}

func ExportCSV(path string, t *Trace) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return WriteCSV(file, t)
}

// WriteCSV writes a header of time,v0,v1,... and one row per sample.
func WriteCSV(out io.Writer, t *Trace) error {
	w := csv.NewWriter(out)

	width := 0
	if len(t.Values) > 0 {
		width = len(t.Values[0])
	}
	header := []string{"time"}
	for i := 0; i < width; i++ {
		header = append(header, fmt.Sprintf("v%d", i))
	}
	if err := w.Write(header); err != nil {
		return err
	}

	for i := range t.Times {
		row := []string{strconv.FormatFloat(t.Times[i], 'f', 6, 64)}
		for _, val := range t.Values[i] {
			row = append(row, strconv.FormatFloat(val, 'f', 6, 64))
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

// ReadCSV parses what WriteCSV wrote.
func ReadCSV(in io.Reader) ([]float64, [][]float64, error) {
	r := csv.NewReader(in)
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return nil, nil, err
	}
	if len(records) < 2 {
		return []float64{}, [][]float64{}, nil
	}

	times := make([]float64, 0, len(records)-1)
	values := make([][]float64, 0, len(records)-1)
	for i, record := range records[1:] {
		if len(record) == 0 {
			continue
		}
		t, err := strconv.ParseFloat(record[0], 64)
		if err != nil {
			return nil, nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		row := make([]float64, 0, len(record)-1)
		for _, field := range record[1:] {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, nil, fmt.Errorf("row %d: %w", i+1, err)
			}
			row = append(row, v)
		}
		times = append(times, t)
		values = append(values, row)
	}
	return times, values, nil
}
