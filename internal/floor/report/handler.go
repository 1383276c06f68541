package report

import (
	"bytes"
	"net/http"

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

// Generate answers with a PDF report for the posted dataset text. Optional
// query parameters title and author label the document.
func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
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
	in := Input{
		Title:   r.URL.Query().Get("title"),
		Author:  r.URL.Query().Get("author"),
		Dataset: ds,
		Report:  validate.Validate(ds),
	}
	if !in.Report.HasErrors() {
		in.Engine = displacement.New(ds)
	}

	var buf bytes.Buffer
	if err := Write(&buf, in); err != nil {
		if h.Log != nil {
			h.Log.Error("report generation failed", zap.Error(err))
		}
		http.Error(w, "Report generation error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", "attachment; filename=\"floor-report.pdf\"")
	w.Write(buf.Bytes())
}
