package normalize_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Takayuki-Minagawa/FloorModeAnime/internal/floor/floortest"
	"github.com/Takayuki-Minagawa/FloorModeAnime/internal/floor/normalize"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandler(t *testing.T) {
	h := &normalize.Handler{}

	t.Run("Should answer with the canonical document", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/floor/normalize", strings.NewReader(floortest.Rectangle))
		rec := httptest.NewRecorder()
		h.Normalize(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		var doc map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
		assert.Len(t, doc["nodes"], 4)
		meta, ok := doc["meta"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "SI", meta["unitSystem"])
	})

	t.Run("Should reject unparsable text", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/floor/normalize", strings.NewReader("nope"))
		rec := httptest.NewRecorder()
		h.Normalize(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
