package normalize

import (
	"net/http"

	"github.com/Takayuki-Minagawa/FloorModeAnime/internal/respond"
	"go.uber.org/zap"
)

type Handler struct {
	Log     *zap.Logger
	MaxBody int64
}

// Normalize answers with the canonical form of the posted dataset text.
func (h *Handler) Normalize(w http.ResponseWriter, r *http.Request) {
	text, err := respond.ReadText(w, r, h.MaxBody)
	if err != nil {
		respond.BodyError(w, err)
		return
	}
	ds, err := Normalize(text)
	if err != nil {
		h.logger().Debug("rejected unparsable dataset", zap.Error(err))
		respond.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	respond.JSON(w, http.StatusOK, ds)
}

func (h *Handler) logger() *zap.Logger {
	if h.Log == nil {
		return zap.NewNop()
	}
	return h.Log
}
