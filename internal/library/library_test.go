package library_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/Takayuki-Minagawa/FloorModeAnime/internal/auth"
	"github.com/Takayuki-Minagawa/FloorModeAnime/internal/floor/floortest"
	"github.com/Takayuki-Minagawa/FloorModeAnime/internal/floor/playback"
	"github.com/Takayuki-Minagawa/FloorModeAnime/internal/library"
	"github.com/Takayuki-Minagawa/FloorModeAnime/internal/repo"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memDatasets struct {
	rows []repo.StoredDataset
}

func (m *memDatasets) SaveDataset(_ context.Context, userID int, name, payload string, valid bool) (int, error) {
	id := len(m.rows) + 1
	m.rows = append(m.rows, repo.StoredDataset{
		ID: id, UserID: userID, Name: name, Payload: payload, Valid: valid, CreatedAt: time.Now(),
	})
	return id, nil
}

func (m *memDatasets) ListDatasets(_ context.Context, userID int) ([]repo.StoredDataset, error) {
	out := []repo.StoredDataset{}
	for _, d := range m.rows {
		if d.UserID == userID && d.ID != 0 {
			d.Payload = ""
			out = append(out, d)
		}
	}
	return out, nil
}

func (m *memDatasets) GetDataset(_ context.Context, userID, id int) (repo.StoredDataset, error) {
	for _, d := range m.rows {
		if d.ID == id && d.UserID == userID {
			return d, nil
		}
	}
	return repo.StoredDataset{}, repo.ErrNotFound
}

func (m *memDatasets) DeleteDataset(_ context.Context, userID, id int) error {
	for i, d := range m.rows {
		if d.ID == id && d.UserID == userID {
			m.rows[i].ID = 0
			return nil
		}
	}
	return repo.ErrNotFound
}

type fixture struct {
	router http.Handler
	store  *playback.Store
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	store, err := playback.NewStore(4, nil)
	require.NoError(t, err)
	h := &library.Handler{
		Repo:     &memDatasets{},
		Sessions: &playback.Handler{Store: store},
	}
	r := mux.NewRouter()
	h.Register(r)
	return fixture{router: r, store: store}
}

func (f fixture) do(t *testing.T, userID int, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if userID != 0 {
		req = req.WithContext(auth.WithUser(req.Context(), auth.User{ID: userID, Login: "u" + strconv.Itoa(userID)}))
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func TestLibrary(t *testing.T) {
	t.Run("Should require a signed-in user", func(t *testing.T) {
		f := newFixture(t)
		rec := f.do(t, 0, http.MethodGet, "/datasets", "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("Should save, list, fetch and delete datasets per user", func(t *testing.T) {
		f := newFixture(t)
		rec := f.do(t, 1, http.MethodPost, "/datasets?name=lab", floortest.Rectangle)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		var saved library.SaveResult
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &saved))
		assert.Equal(t, 1, saved.ID)
		assert.True(t, saved.Valid)

		rec = f.do(t, 1, http.MethodGet, "/datasets", "")
		require.Equal(t, http.StatusOK, rec.Code)
		var list []repo.StoredDataset
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
		require.Len(t, list, 1)
		assert.Equal(t, "lab", list[0].Name)
		assert.Empty(t, list[0].Payload)

		rec = f.do(t, 2, http.MethodGet, "/datasets/1", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)

		rec = f.do(t, 1, http.MethodGet, "/datasets/1", "")
		require.Equal(t, http.StatusOK, rec.Code)
		var got repo.StoredDataset
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Equal(t, floortest.Rectangle, got.Payload)

		rec = f.do(t, 1, http.MethodDelete, "/datasets/1", "")
		assert.Equal(t, http.StatusNoContent, rec.Code)
		rec = f.do(t, 1, http.MethodDelete, "/datasets/1", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("Should keep invalid datasets but refuse unparsable text", func(t *testing.T) {
		f := newFixture(t)
		rec := f.do(t, 1, http.MethodPost, "/datasets", `{"nodes":[]}`)
		require.Equal(t, http.StatusCreated, rec.Code)
		var saved library.SaveResult
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &saved))
		assert.False(t, saved.Valid)
		assert.NotEmpty(t, saved.Report.Errors)

		rec = f.do(t, 1, http.MethodPost, "/datasets", `{"nodes":[`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		rec = f.do(t, 1, http.MethodPost, "/datasets?name="+strings.Repeat("n", 201), floortest.Rectangle)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("Should open playback sessions from valid datasets only", func(t *testing.T) {
		f := newFixture(t)
		f.do(t, 1, http.MethodPost, "/datasets?name=ok", floortest.Rectangle)
		f.do(t, 1, http.MethodPost, "/datasets?name=bad", `{"nodes":[]}`)

		rec := f.do(t, 1, http.MethodPost, "/datasets/1/session", "")
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		var res playback.OpenResult
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
		assert.Equal(t, []int{1, 2}, res.Modes)
		assert.Equal(t, 1, f.store.Len())

		rec = f.do(t, 1, http.MethodPost, "/datasets/2/session", "")
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})
}
