package sheet

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/Takayuki-Minagawa/FloorModeAnime/internal/floor/displacement"
	"github.com/xuri/excelize/v2"
)

const (
	SheetNodes   = "nodes"
	SheetLines   = "lines"
	SheetFreq    = "freq_hz"
	SheetModes   = "modes"
	SheetSummary = "summary"

	DefaultSteps = 24
	MaxSteps     = 1000
)

// Import reads a workbook with the sheets nodes (id, x, y, z), lines
// (id, node_i, node_j), freq_hz (mode, hz) and modes (mode, node_id, uz)
// and returns the equivalent dataset document text. The first row of each
// sheet is a header. Cell text is passed through untouched so the
// normalizer does all numeric coercion. A missing sheet leaves its key out.
func Import(r io.Reader) (string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return "", fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	doc := map[string]any{"meta": map[string]any{"source": "xlsx"}}

	if rows, ok, err := sheetRows(f, SheetNodes); err != nil {
		return "", err
	} else if ok {
		nodes := make([]any, 0, len(rows))
		for _, row := range rows {
			node := map[string]any{"id": cell(row, 0)}
			for i, key := range []string{"x", "y", "z"} {
				if v := cell(row, i+1); v != "" {
					node[key] = v
				}
			}
			nodes = append(nodes, node)
		}
		doc["nodes"] = nodes
	}

	if rows, ok, err := sheetRows(f, SheetLines); err != nil {
		return "", err
	} else if ok {
		lines := make([]any, 0, len(rows))
		for _, row := range rows {
			lines = append(lines, map[string]any{
				"id":     cell(row, 0),
				"node_i": cell(row, 1),
				"node_j": cell(row, 2),
			})
		}
		doc["lines"] = lines
	}

	if rows, ok, err := sheetRows(f, SheetFreq); err != nil {
		return "", err
	} else if ok {
		freqs := make(map[string]any, len(rows))
		for _, row := range rows {
			freqs[cell(row, 0)] = cell(row, 1)
		}
		doc["freq_hz"] = freqs
	}

	if rows, ok, err := sheetRows(f, SheetModes); err != nil {
		return "", err
	} else if ok {
		modes := map[string]any{}
		for _, row := range rows {
			mode := cell(row, 0)
			shape, _ := modes[mode].(map[string]any)
			if shape == nil {
				shape = map[string]any{}
				modes[mode] = shape
			}
			shape[cell(row, 1)] = cell(row, 2)
		}
		doc["modes"] = modes
	}

	b, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("encode dataset: %w", err)
	}
	return string(b), nil
}

// sheetRows returns the data rows of a sheet, skipping the header and
// blank rows. ok is false when the workbook has no such sheet.
func sheetRows(f *excelize.File, name string) ([][]string, bool, error) {
	idx, err := f.GetSheetIndex(name)
	if err != nil {
		return nil, false, fmt.Errorf("sheet %s: %w", name, err)
	}
	if idx < 0 {
		return nil, false, nil
	}
	rows, err := f.GetRows(name)
	if err != nil {
		return nil, false, fmt.Errorf("read sheet %s: %w", name, err)
	}
	out := make([][]string, 0, len(rows))
	for i, row := range rows {
		if i == 0 || blank(row) {
			continue
		}
		out = append(out, row)
	}
	return out, true, nil
}

func cell(row []string, i int) string {
	if i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// Export writes one period of mode m, sampled at steps+1 instants, as a
// workbook: a summary sheet and a mode_<m> sheet with time_s followed by
// one z_<id> column per node.
func Export(w io.Writer, eng *displacement.Engine, m int, scale float64, steps int) error {
	if steps <= 0 {
		steps = DefaultSteps
	}
	if steps > MaxSteps {
		steps = MaxSteps
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetSummary); err != nil {
		return fmt.Errorf("summary sheet: %w", err)
	}
	summary := [][]any{
		{"mode", m},
		{"freq_hz", eng.Frequency(m)},
		{"period_s", eng.Period(m)},
		{"scale", scale},
		{"l_floor", eng.LFloor()},
		{"a_ref", eng.ARef()},
		{"u_max", eng.UMax(m)},
	}
	for i, r := range summary {
		if err := f.SetSheetRow(SheetSummary, fmt.Sprintf("A%d", i+1), &r); err != nil {
			return fmt.Errorf("summary row: %w", err)
		}
	}

	name := fmt.Sprintf("mode_%d", m)
	if _, err := f.NewSheet(name); err != nil {
		return fmt.Errorf("mode sheet: %w", err)
	}
	ids := eng.NodeIDs()
	head := make([]any, 0, len(ids)+1)
	head = append(head, "time_s")
	for _, id := range ids {
		head = append(head, fmt.Sprintf("z_%d", id))
	}
	if err := f.SetSheetRow(name, "A1", &head); err != nil {
		return fmt.Errorf("header row: %w", err)
	}

	period := eng.Period(m)
	samples := steps + 1
	if period == 0 {
		samples = 1
	}
	for i := 0; i < samples; i++ {
		t := period * float64(i) / float64(steps)
		rec := make([]any, 0, len(ids)+1)
		rec = append(rec, t)
		for _, id := range ids {
			rec = append(rec, eng.DisplacedElevation(id, m, t, scale))
		}
		if err := f.SetSheetRow(name, fmt.Sprintf("A%d", i+2), &rec); err != nil {
			return fmt.Errorf("data row %d: %w", i, err)
		}
	}
	return f.Write(w)
}
