package displacement

import (
	"encoding/json"
	"net/http"
	"slices"

	"github.com/Takayuki-Minagawa/FloorModeAnime/internal/floor/normalize"
	"github.com/Takayuki-Minagawa/FloorModeAnime/internal/floor/validate"
	"github.com/Takayuki-Minagawa/FloorModeAnime/internal/respond"
	"go.uber.org/zap"
)

type Input struct {
	Dataset json.RawMessage `json:"dataset"`
	Mode    *int            `json:"mode"`
	TimeS   float64         `json:"time_s"`
	Scale   *float64        `json:"scale"`
}

type Result struct {
	Mode     int              `json:"mode"`
	FreqHz   float64          `json:"freq_hz"`
	TimeS    float64          `json:"time_s"`
	Scale    float64          `json:"scale"`
	LFloor   float64          `json:"l_floor"`
	ARef     float64          `json:"a_ref"`
	UMax     float64          `json:"u_max"`
	Nodes    []NodePosition   `json:"nodes"`
	Warnings []validate.Issue `json:"warnings"`
}

type Handler struct {
	Log     *zap.Logger
	MaxBody int64
}

// Calc evaluates one frame of a mode for a posted dataset.
func (h *Handler) Calc(w http.ResponseWriter, r *http.Request) {
	var in Input
	if err := respond.Decode(w, r, h.MaxBody, &in); err != nil {
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
	eng := New(ds)
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
	scale := 1.0
	if in.Scale != nil {
		scale = *in.Scale
	}
	if h.Log != nil {
		h.Log.Debug("displacement frame", zap.Int("mode", mode), zap.Float64("time_s", in.TimeS))
	}
	respond.JSON(w, http.StatusOK, Result{
		Mode:     mode,
		FreqHz:   eng.Frequency(mode),
		TimeS:    in.TimeS,
		Scale:    scale,
		LFloor:   eng.LFloor(),
		ARef:     eng.ARef(),
		UMax:     eng.UMax(mode),
		Nodes:    eng.Frame(mode, in.TimeS, scale),
		Warnings: report.Warnings,
	})
}
