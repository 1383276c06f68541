package validate

import (
	"net/http"

	"github.com/Takayuki-Minagawa/FloorModeAnime/internal/floor/normalize"
	"github.com/Takayuki-Minagawa/FloorModeAnime/internal/respond"
	"go.uber.org/zap"
)

type Handler struct {
	Log     *zap.Logger
	MaxBody int64
}

type Response struct {
	Valid  bool   `json:"valid"`
	Nodes  int    `json:"nodes"`
	Lines  int    `json:"lines"`
	Modes  []int  `json:"modes"`
	Report Report `json:"report"`
}

// Validate normalizes the posted text and returns the full report. A
// dataset with fatal entries still answers 200: the report is the result.
func (h *Handler) Validate(w http.ResponseWriter, r *http.Request) {
	log := h.Log
	if log == nil {
		log = zap.NewNop()
	}
	text, err := respond.ReadText(w, r, h.MaxBody)
	if err != nil {
		respond.BodyError(w, err)
		return
	}
	ds, err := normalize.Normalize(text)
	if err != nil {
		respond.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	report := Validate(ds)
	log.Info("dataset validated",
		zap.Int("errors", len(report.Errors)),
		zap.Int("warnings", len(report.Warnings)))
	respond.JSON(w, http.StatusOK, Response{
		Valid:  !report.HasErrors(),
		Nodes:  len(ds.Nodes),
		Lines:  len(ds.Lines),
		Modes:  ds.ModeNumbers(),
		Report: report,
	})
}
