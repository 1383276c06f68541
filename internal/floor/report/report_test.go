package report_test

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Takayuki-Minagawa/FloorModeAnime/internal/floor/displacement"
	"github.com/Takayuki-Minagawa/FloorModeAnime/internal/floor/floortest"
	"github.com/Takayuki-Minagawa/FloorModeAnime/internal/floor/report"
	"github.com/Takayuki-Minagawa/FloorModeAnime/internal/floor/validate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrite(t *testing.T) {
	t.Run("Should render a PDF for a valid dataset", func(t *testing.T) {
		ds := floortest.Load(t, floortest.Rectangle)
		var buf bytes.Buffer
		err := report.Write(&buf, report.Input{
			Author:  "Müller",
			Dataset: ds,
			Report:  validate.Validate(ds),
			Engine:  displacement.New(ds),
			Now:     time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		})
		require.NoError(t, err)
		assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF")))
	})

	t.Run("Should render the issues of an invalid dataset without an engine", func(t *testing.T) {
		ds := floortest.Load(t, `{"nodes":[{"id":1},{"id":1}],"lines":[{"id":1,"node_i":1,"node_j":1}],"freq_hz":{"1":"NaN"},"modes":{}}`)
		r := validate.Validate(ds)
		require.True(t, r.HasErrors())

		var buf bytes.Buffer
		require.NoError(t, report.Write(&buf, report.Input{Title: "Broken floor", Dataset: ds, Report: r}))
		assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF")))
	})
}

func TestHandler(t *testing.T) {
	h := &report.Handler{}

	t.Run("Should answer with a PDF attachment", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/floor/report/pdf?title=Lab+floor&author=QA", strings.NewReader(floortest.Rectangle))
		rec := httptest.NewRecorder()
		h.Generate(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
		assert.Contains(t, rec.Header().Get("Content-Disposition"), "floor-report.pdf")
		assert.True(t, strings.HasPrefix(rec.Body.String(), "%PDF"))
	})

	t.Run("Should reject unparsable text", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/floor/report/pdf", strings.NewReader("{"))
		rec := httptest.NewRecorder()
		h.Generate(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
