package sheet

import (
	"bytes"
	"encoding/json"
	"net/http"
	"slices"

	"github.com/Takayuki-Minagawa/FloorModeAnime/internal/floor"
	"github.com/Takayuki-Minagawa/FloorModeAnime/internal/floor/displacement"
	"github.com/Takayuki-Minagawa/FloorModeAnime/internal/floor/normalize"
	"github.com/Takayuki-Minagawa/FloorModeAnime/internal/floor/validate"
	"github.com/Takayuki-Minagawa/FloorModeAnime/internal/respond"
	"go.uber.org/zap"
)

type Handler struct {
	Log     *zap.Logger
	MaxBody int64
}

type ImportResult struct {
	Dataset *floor.Dataset  `json:"dataset"`
	Report  validate.Report `json:"report"`
}

type ExportInput struct {
	Dataset json.RawMessage `json:"dataset"`
	Mode    *int            `json:"mode"`
	Scale   float64         `json:"scale"`
	Steps   int             `json:"steps"`
}

func (h *Handler) maxBody() int64 {
	if h.MaxBody <= 0 {
		return respond.DefaultMaxBody
	}
	return h.MaxBody
}

// Import converts an uploaded workbook (form field "file") into a dataset
// and reports on it.
func (h *Handler) Import(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBody())
	file, _, err := r.FormFile("file")
	if err != nil {
		respond.Error(w, http.StatusBadRequest, "File required")
		return
	}
	defer file.Close()

	text, err := Import(file)
	if err != nil {
		respond.Error(w, http.StatusBadRequest, "Invalid file")
		return
	}
	ds, err := normalize.Normalize(text)
	if err != nil {
		respond.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	report := validate.Validate(ds)
	if h.Log != nil {
		h.Log.Info("workbook imported",
			zap.Int("nodes", len(ds.Nodes)),
			zap.Int("errors", len(report.Errors)))
	}
	respond.JSON(w, http.StatusOK, ImportResult{Dataset: ds, Report: report})
}

// Export answers with a workbook tabulating one period of a mode.
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	var in ExportInput
	if err := respond.Decode(w, r, h.maxBody(), &in); err != nil {
		respond.Error(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	ds, err := normalize.Normalize(string(in.Dataset))
	if err != nil {
		respond.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	report := validate.Validate(ds)
	if report.HasErrors() {
		respond.JSON(w, http.StatusUnprocessableEntity, report)
		return
	}
	eng := displacement.New(ds)
	modes := eng.Modes()
	if len(modes) == 0 {
		respond.Error(w, http.StatusUnprocessableEntity, "dataset defines no modes")
		return
	}
	mode := modes[0]
	if in.Mode != nil {
		mode = *in.Mode
	}
	if !slices.Contains(modes, mode) {
		respond.Error(w, http.StatusBadRequest, "mode is not defined by the dataset")
		return
	}
	if in.Scale == 0 {
		in.Scale = 1
	}

	var buf bytes.Buffer
	if err := Export(&buf, eng, mode, in.Scale, in.Steps); err != nil {
		if h.Log != nil {
			h.Log.Error("workbook export failed", zap.Error(err))
		}
		http.Error(w, "Export error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", "attachment; filename=\"floor-displacement.xlsx\"")
	w.Write(buf.Bytes())
}
