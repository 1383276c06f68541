package sheet_test

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/Takayuki-Minagawa/FloorModeAnime/internal/floor"
	"github.com/Takayuki-Minagawa/FloorModeAnime/internal/floor/displacement"
	"github.com/Takayuki-Minagawa/FloorModeAnime/internal/floor/floortest"
	"github.com/Takayuki-Minagawa/FloorModeAnime/internal/floor/sheet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

// workbook builds an xlsx file holding the given sheets. The first sheet
// replaces the default one.
func workbook(t *testing.T, sheets map[string][][]any, order ...string) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, name := range order {
		if i == 0 {
			require.NoError(t, f.SetSheetName("Sheet1", name))
		} else {
			_, err := f.NewSheet(name)
			require.NoError(t, err)
		}
		for r, row := range sheets[name] {
			require.NoError(t, f.SetSheetRow(name, "A"+strconv.Itoa(r+1), &row))
		}
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func rectangleWorkbook(t *testing.T) []byte {
	return workbook(t, map[string][][]any{
		sheet.SheetNodes: {
			{"id", "x", "y", "z"},
			{1, 0, 0, 0},
			{2, 6, 0, 0},
			{},
			{3, 6, 4, 0},
			{4, 0, 4, 0},
		},
		sheet.SheetLines: {
			{"id", "node_i", "node_j"},
			{1, 1, 2},
			{2, 2, 3},
			{3, 3, 4},
			{4, 4, 1},
		},
		sheet.SheetFreq: {
			{"mode", "hz"},
			{1, 5.2},
			{2, 8},
		},
		sheet.SheetModes: {
			{"mode", "node_id", "uz"},
			{1, 2, 0.4},
			{1, 3, 1},
			{1, 4, 0.5},
			{2, 1, -0.5},
			{2, 2, 0.5},
			{2, 3, -0.25},
		},
	}, sheet.SheetNodes, sheet.SheetLines, sheet.SheetFreq, sheet.SheetModes)
}

func TestImport(t *testing.T) {
	t.Run("Should convert a workbook into the same dataset as the JSON document", func(t *testing.T) {
		text, err := sheet.Import(bytes.NewReader(rectangleWorkbook(t)))
		require.NoError(t, err)

		got := floortest.Load(t, text)
		want := floortest.Load(t, floortest.Rectangle)
		assert.Equal(t, want.Nodes, got.Nodes)
		assert.Equal(t, want.Lines, got.Lines)
		assert.Equal(t, want.Frequencies, got.Frequencies)
		assert.Equal(t, want.ModeShapes, got.ModeShapes)
		assert.Equal(t, "xlsx", got.Meta["source"])
	})

	t.Run("Should leave out sheets the workbook lacks", func(t *testing.T) {
		data := workbook(t, map[string][][]any{
			sheet.SheetNodes: {{"id", "x", "y", "z"}, {1, 0, 0}},
		}, sheet.SheetNodes)
		text, err := sheet.Import(bytes.NewReader(data))
		require.NoError(t, err)

		ds := floortest.Load(t, text)
		assert.Equal(t, map[int]floor.Node{1: {ID: 1}}, ds.Nodes)
		assert.Nil(t, ds.Lines)
		assert.Nil(t, ds.Frequencies)
		assert.Nil(t, ds.ModeShapes)
	})

	t.Run("Should reject bytes that are not a workbook", func(t *testing.T) {
		_, err := sheet.Import(bytes.NewReader([]byte("not a zip")))
		assert.Error(t, err)
	})
}

func TestExport(t *testing.T) {
	eng := displacement.New(floortest.Load(t, floortest.Rectangle))

	t.Run("Should tabulate one period of the mode", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, sheet.Export(&buf, eng, 1, 1, 4))

		f, err := excelize.OpenReader(&buf)
		require.NoError(t, err)
		defer f.Close()

		assert.Equal(t, []string{sheet.SheetSummary, "mode_1"}, f.GetSheetList())
		mode, err := f.GetCellValue(sheet.SheetSummary, "B1")
		require.NoError(t, err)
		assert.Equal(t, "1", mode)
		label, err := f.GetCellValue(sheet.SheetSummary, "A2")
		require.NoError(t, err)
		assert.Equal(t, "freq_hz", label)

		rows, err := f.GetRows("mode_1")
		require.NoError(t, err)
		require.Len(t, rows, 6)
		assert.Equal(t, []string{"time_s", "z_1", "z_2", "z_3", "z_4"}, rows[0])

		// row 2 is the quarter period, where node 3 peaks at A_ref
		z3, err := strconv.ParseFloat(rows[2][3], 64)
		require.NoError(t, err)
		assert.InDelta(t, 0.6, z3, 1e-6)
		last, err := strconv.ParseFloat(rows[5][0], 64)
		require.NoError(t, err)
		assert.InDelta(t, 1/5.2, last, 1e-9)
	})

	t.Run("Should clamp the step count", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, sheet.Export(&buf, eng, 2, 1, sheet.MaxSteps+500))
		f, err := excelize.OpenReader(&buf)
		require.NoError(t, err)
		defer f.Close()
		rows, err := f.GetRows("mode_2")
		require.NoError(t, err)
		assert.Len(t, rows, sheet.MaxSteps+2)
	})

	t.Run("Should write a single sample when the mode has no frequency", func(t *testing.T) {
		noFreq := displacement.New(floortest.Load(t, `{"nodes":[{"id":1},{"id":2,"x":1}],"modes":{"3":{"1":1}}}`))
		var buf bytes.Buffer
		require.NoError(t, sheet.Export(&buf, noFreq, 3, 1, 0))
		f, err := excelize.OpenReader(&buf)
		require.NoError(t, err)
		defer f.Close()
		rows, err := f.GetRows("mode_3")
		require.NoError(t, err)
		assert.Len(t, rows, 2)
	})
}

func TestHandler(t *testing.T) {
	h := &sheet.Handler{}

	t.Run("Should import an uploaded workbook", func(t *testing.T) {
		var body bytes.Buffer
		mw := multipart.NewWriter(&body)
		part, err := mw.CreateFormFile("file", "floor.xlsx")
		require.NoError(t, err)
		_, err = part.Write(rectangleWorkbook(t))
		require.NoError(t, err)
		require.NoError(t, mw.Close())

		req := httptest.NewRequest(http.MethodPost, "/api/floor/import/xlsx", &body)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		rec := httptest.NewRecorder()
		h.Import(rec, req)

		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var res struct {
			Report struct {
				Errors []any `json:"errors"`
			} `json:"report"`
			Dataset map[string]any `json:"dataset"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
		assert.Empty(t, res.Report.Errors)
		assert.Len(t, res.Dataset["nodes"], 4)
	})

	t.Run("Should require a file", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/floor/import/xlsx", nil)
		rec := httptest.NewRecorder()
		h.Import(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("Should export a workbook attachment", func(t *testing.T) {
		body := `{"dataset":` + floortest.Rectangle + `,"mode":2,"steps":8}`
		req := httptest.NewRequest(http.MethodPost, "/api/floor/export/xlsx", bytes.NewBufferString(body))
		rec := httptest.NewRecorder()
		h.Export(rec, req)

		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Contains(t, rec.Header().Get("Content-Disposition"), "floor-displacement.xlsx")
		f, err := excelize.OpenReader(rec.Body)
		require.NoError(t, err)
		defer f.Close()
		assert.Contains(t, f.GetSheetList(), "mode_2")
	})

	t.Run("Should refuse undefined modes and invalid datasets", func(t *testing.T) {
		body := `{"dataset":` + floortest.Rectangle + `,"mode":5}`
		req := httptest.NewRequest(http.MethodPost, "/api/floor/export/xlsx", bytes.NewBufferString(body))
		rec := httptest.NewRecorder()
		h.Export(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		body = `{"dataset":{"nodes":[],"lines":[],"freq_hz":{},"modes":{}}}`
		req = httptest.NewRequest(http.MethodPost, "/api/floor/export/xlsx", bytes.NewBufferString(body))
		rec = httptest.NewRecorder()
		h.Export(rec, req)
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})
}
