package library

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/Takayuki-Minagawa/FloorModeAnime/internal/auth"
	"github.com/Takayuki-Minagawa/FloorModeAnime/internal/floor/normalize"
	"github.com/Takayuki-Minagawa/FloorModeAnime/internal/floor/playback"
	"github.com/Takayuki-Minagawa/FloorModeAnime/internal/floor/validate"
	"github.com/Takayuki-Minagawa/FloorModeAnime/internal/repo"
	"github.com/Takayuki-Minagawa/FloorModeAnime/internal/respond"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

const maxNameLen = 200

// Handler serves the signed-in user's saved datasets.
type Handler struct {
	Repo     repo.Datasets
	Sessions *playback.Handler
	Log      *zap.Logger
	MaxBody  int64
}

type SaveResult struct {
	ID     int             `json:"id"`
	Valid  bool            `json:"valid"`
	Report validate.Report `json:"report"`
}

func (h *Handler) Register(r *mux.Router) {
	r.HandleFunc("/datasets", h.Save).Methods("POST")
	r.HandleFunc("/datasets", h.List).Methods("GET")
	r.HandleFunc("/datasets/{id:[0-9]+}", h.Get).Methods("GET")
	r.HandleFunc("/datasets/{id:[0-9]+}", h.Delete).Methods("DELETE")
	r.HandleFunc("/datasets/{id:[0-9]+}/session", h.OpenSession).Methods("POST")
}

func (h *Handler) logger() *zap.Logger {
	if h.Log == nil {
		return zap.NewNop()
	}
	return h.Log
}

// Save stores the posted dataset text under ?name=. Unparsable text is
// refused; datasets with validation errors are kept but marked invalid.
func (h *Handler) Save(w http.ResponseWriter, r *http.Request) {
	u, ok := auth.UserFrom(r.Context())
	if !ok {
		respond.Error(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	name := strings.TrimSpace(r.URL.Query().Get("name"))
	if name == "" {
		name = "untitled"
	}
	if len(name) > maxNameLen {
		respond.Error(w, http.StatusBadRequest, "Name too long")
		return
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
	report := validate.Validate(ds)
	id, err := h.Repo.SaveDataset(r.Context(), u.ID, name, text, !report.HasErrors())
	if err != nil {
		h.logger().Error("save dataset failed", zap.Int("user_id", u.ID), zap.Error(err))
		respond.Error(w, http.StatusInternalServerError, "DB error")
		return
	}
	h.logger().Info("dataset saved", zap.Int("user_id", u.ID), zap.Int("dataset", id))
	respond.JSON(w, http.StatusCreated, SaveResult{ID: id, Valid: !report.HasErrors(), Report: report})
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	u, ok := auth.UserFrom(r.Context())
	if !ok {
		respond.Error(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	list, err := h.Repo.ListDatasets(r.Context(), u.ID)
	if err != nil {
		h.logger().Error("list datasets failed", zap.Int("user_id", u.ID), zap.Error(err))
		respond.Error(w, http.StatusInternalServerError, "DB error")
		return
	}
	respond.JSON(w, http.StatusOK, list)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	d, ok := h.load(w, r)
	if !ok {
		return
	}
	respond.JSON(w, http.StatusOK, d)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	u, id, ok := h.target(w, r)
	if !ok {
		return
	}
	err := h.Repo.DeleteDataset(r.Context(), u.ID, id)
	if errors.Is(err, repo.ErrNotFound) {
		respond.Error(w, http.StatusNotFound, "Dataset not found")
		return
	}
	if err != nil {
		h.logger().Error("delete dataset failed", zap.Int("dataset", id), zap.Error(err))
		respond.Error(w, http.StatusInternalServerError, "DB error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// OpenSession starts a playback session from a saved dataset.
func (h *Handler) OpenSession(w http.ResponseWriter, r *http.Request) {
	d, ok := h.load(w, r)
	if !ok {
		return
	}
	ds, err := normalize.Normalize(d.Payload)
	if err != nil {
		respond.Error(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	report := validate.Validate(ds)
	if report.HasErrors() {
		respond.JSON(w, http.StatusUnprocessableEntity, report)
		return
	}
	h.Sessions.Created(w, ds, report)
}

func (h *Handler) target(w http.ResponseWriter, r *http.Request) (auth.User, int, bool) {
	u, ok := auth.UserFrom(r.Context())
	if !ok {
		respond.Error(w, http.StatusUnauthorized, "Unauthorized")
		return auth.User{}, 0, false
	}
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		respond.Error(w, http.StatusBadRequest, "Invalid id")
		return auth.User{}, 0, false
	}
	return u, id, true
}

func (h *Handler) load(w http.ResponseWriter, r *http.Request) (repo.StoredDataset, bool) {
	u, id, ok := h.target(w, r)
	if !ok {
		return repo.StoredDataset{}, false
	}
	d, err := h.Repo.GetDataset(r.Context(), u.ID, id)
	if errors.Is(err, repo.ErrNotFound) {
		respond.Error(w, http.StatusNotFound, "Dataset not found")
		return repo.StoredDataset{}, false
	}
	if err != nil {
		h.logger().Error("load dataset failed", zap.Int("dataset", id), zap.Error(err))
		respond.Error(w, http.StatusInternalServerError, "DB error")
		return repo.StoredDataset{}, false
	}
	return d, true
}
