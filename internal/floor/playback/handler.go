package playback

import (
	"errors"
	"net/http"
	"slices"

	"github.com/Takayuki-Minagawa/FloorModeAnime/internal/floor"
	"github.com/Takayuki-Minagawa/FloorModeAnime/internal/floor/displacement"
	"github.com/Takayuki-Minagawa/FloorModeAnime/internal/floor/normalize"
	"github.com/Takayuki-Minagawa/FloorModeAnime/internal/floor/validate"
	"github.com/Takayuki-Minagawa/FloorModeAnime/internal/respond"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

type Handler struct {
	Store   *Store
	Log     *zap.Logger
	MaxBody int64
}

type OpenResult struct {
	ID       string           `json:"id"`
	Modes    []int            `json:"modes"`
	State    State            `json:"state"`
	Warnings []validate.Issue `json:"warnings"`
}

type FrameResult struct {
	State  State                       `json:"state"`
	FreqHz float64                     `json:"freq_hz"`
	Nodes  []displacement.NodePosition `json:"nodes"`
}

type modeRequest struct {
	Mode int `json:"mode"`
}

type valueRequest struct {
	Value float64 `json:"value"`
}

type tickRequest struct {
	DT float64 `json:"dt"`
}

// Register mounts the session routes on r.
func (h *Handler) Register(r *mux.Router) {
	r.HandleFunc("", h.Open).Methods("POST")
	r.HandleFunc("/{id}", h.Get).Methods("GET")
	r.HandleFunc("/{id}", h.Close).Methods("DELETE")
	r.HandleFunc("/{id}/dataset", h.Reload).Methods("PUT")
	r.HandleFunc("/{id}/mode", h.SetMode).Methods("POST")
	r.HandleFunc("/{id}/play", h.Play).Methods("POST")
	r.HandleFunc("/{id}/stop", h.Stop).Methods("POST")
	r.HandleFunc("/{id}/scale", h.SetScale).Methods("POST")
	r.HandleFunc("/{id}/speed", h.SetSpeed).Methods("POST")
	r.HandleFunc("/{id}/tick", h.Tick).Methods("POST")
	r.HandleFunc("/{id}/frame", h.Frame).Methods("GET")
}

func (h *Handler) logger() *zap.Logger {
	if h.Log == nil {
		return zap.NewNop()
	}
	return h.Log
}

// loadDataset reads, normalizes and validates the request body. It writes
// the error response itself and returns nil when the dataset is unusable.
func (h *Handler) loadDataset(w http.ResponseWriter, r *http.Request) (*floor.Dataset, validate.Report) {
	text, err := respond.ReadText(w, r, h.MaxBody)
	if err != nil {
		respond.BodyError(w, err)
		return nil, validate.Report{}
	}
	ds, err := normalize.Normalize(text)
	if err != nil {
		respond.Error(w, http.StatusBadRequest, err.Error())
		return nil, validate.Report{}
	}
	report := validate.Validate(ds)
	if report.HasErrors() {
		respond.JSON(w, http.StatusUnprocessableEntity, report)
		return nil, report
	}
	return ds, report
}

func (h *Handler) Open(w http.ResponseWriter, r *http.Request) {
	ds, report := h.loadDataset(w, r)
	if ds == nil {
		return
	}
	h.Created(w, ds, report)
}

// Created opens a session for an already validated dataset and writes the
// 201 response.
func (h *Handler) Created(w http.ResponseWriter, ds *floor.Dataset, report validate.Report) {
	res := OpenResult{Warnings: report.Warnings}
	res.ID = h.Store.Open(ds, func(c *Controller) {
		res.Modes = c.Engine().Modes()
		res.State = c.State()
	})
	respond.JSON(w, http.StatusCreated, res)
}

func (h *Handler) Reload(w http.ResponseWriter, r *http.Request) {
	ds, _ := h.loadDataset(w, r)
	if ds == nil {
		return
	}
	id := mux.Vars(r)["id"]
	if err := h.Store.Reload(id, ds); err != nil {
		h.fail(w, err)
		return
	}
	h.state(w, r)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	h.state(w, r)
}

func (h *Handler) Close(w http.ResponseWriter, r *http.Request) {
	if !h.Store.Close(mux.Vars(r)["id"]) {
		h.fail(w, ErrSessionNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) SetMode(w http.ResponseWriter, r *http.Request) {
	var req modeRequest
	if err := respond.Decode(w, r, h.MaxBody, &req); err != nil {
		respond.Error(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	h.apply(w, r, func(c *Controller) error {
		if !slices.Contains(c.Engine().Modes(), req.Mode) {
			return errUnknownMode
		}
		c.SetMode(req.Mode)
		return nil
	})
}

func (h *Handler) Play(w http.ResponseWriter, r *http.Request) {
	h.apply(w, r, func(c *Controller) error { c.Play(); return nil })
}

func (h *Handler) Stop(w http.ResponseWriter, r *http.Request) {
	h.apply(w, r, func(c *Controller) error { c.Stop(); return nil })
}

func (h *Handler) SetScale(w http.ResponseWriter, r *http.Request) {
	var req valueRequest
	if err := respond.Decode(w, r, h.MaxBody, &req); err != nil {
		respond.Error(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	h.apply(w, r, func(c *Controller) error { c.SetScale(req.Value); return nil })
}

func (h *Handler) SetSpeed(w http.ResponseWriter, r *http.Request) {
	var req valueRequest
	if err := respond.Decode(w, r, h.MaxBody, &req); err != nil {
		respond.Error(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	h.apply(w, r, func(c *Controller) error { c.SetSpeed(req.Value); return nil })
}

func (h *Handler) Tick(w http.ResponseWriter, r *http.Request) {
	var req tickRequest
	if err := respond.Decode(w, r, h.MaxBody, &req); err != nil {
		respond.Error(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if req.DT < 0 {
		respond.Error(w, http.StatusBadRequest, "dt must not be negative")
		return
	}
	h.apply(w, r, func(c *Controller) error { c.Update(req.DT); return nil })
}

func (h *Handler) Frame(w http.ResponseWriter, r *http.Request) {
	var res FrameResult
	err := h.Store.Do(mux.Vars(r)["id"], func(c *Controller) error {
		res = FrameResult{State: c.State(), FreqHz: c.CurrentFreqHz(), Nodes: c.Frame()}
		return nil
	})
	if err != nil {
		h.fail(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, res)
}

var errUnknownMode = errors.New("mode is not defined by the dataset")

// apply runs op against the session and answers with the resulting state.
func (h *Handler) apply(w http.ResponseWriter, r *http.Request, op func(*Controller) error) {
	id := mux.Vars(r)["id"]
	var st State
	err := h.Store.Do(id, func(c *Controller) error {
		if err := op(c); err != nil {
			return err
		}
		st = c.State()
		return nil
	})
	if err != nil {
		h.fail(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, st)
}

func (h *Handler) state(w http.ResponseWriter, r *http.Request) {
	h.apply(w, r, func(*Controller) error { return nil })
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrSessionNotFound):
		respond.Error(w, http.StatusNotFound, err.Error())
	case errors.Is(err, errUnknownMode):
		respond.Error(w, http.StatusBadRequest, err.Error())
	default:
		h.logger().Error("playback request failed", zap.Error(err))
		respond.Error(w, http.StatusInternalServerError, "internal error")
	}
}
