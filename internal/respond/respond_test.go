package respond_test

import (
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Takayuki-Minagawa/FloorModeAnime/internal/respond"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadText(t *testing.T) {
	t.Run("Should read bodies within the limit", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("hello"))
		text, err := respond.ReadText(httptest.NewRecorder(), req, 5)
		require.NoError(t, err)
		assert.Equal(t, "hello", text)
	})

	t.Run("Should report bodies over the limit", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("hello!"))
		_, err := respond.ReadText(httptest.NewRecorder(), req, 5)
		assert.ErrorIs(t, err, respond.ErrBodyTooLarge)
	})
}

func TestError(t *testing.T) {
	t.Run("Should write a JSON error body", func(t *testing.T) {
		rec := httptest.NewRecorder()
		respond.Error(rec, http.StatusTeapot, "short and stout")
		assert.Equal(t, http.StatusTeapot, rec.Code)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		assert.JSONEq(t, `{"error":"short and stout"}`, rec.Body.String())
	})
}

func TestJSON(t *testing.T) {
	t.Run("Should write the status and encoded body", func(t *testing.T) {
		rec := httptest.NewRecorder()
		respond.JSON(rec, http.StatusCreated, map[string]int{"n": 1})
		assert.Equal(t, http.StatusCreated, rec.Code)
		assert.JSONEq(t, `{"n":1}`, rec.Body.String())
	})

	t.Run("Should answer 500 when the value cannot be encoded", func(t *testing.T) {
		rec := httptest.NewRecorder()
		respond.JSON(rec, http.StatusOK, map[string]float64{"z": math.Inf(1)})
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.NotContains(t, rec.Header().Get("Content-Type"), "application/json")
	})
}

func TestBodyError(t *testing.T) {
	t.Run("Should answer 413 for an oversized body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("hello!"))
		rec := httptest.NewRecorder()
		_, err := respond.ReadText(rec, req, 5)
		respond.BodyError(rec, err)
		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	})

	t.Run("Should answer 400 for any other read failure", func(t *testing.T) {
		rec := httptest.NewRecorder()
		respond.BodyError(rec, errors.New("connection reset"))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
