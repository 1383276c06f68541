package respond

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
)

// DefaultMaxBody bounds request bodies when a handler is not configured.
const DefaultMaxBody = 8 << 20 // 8MB

var ErrBodyTooLarge = errors.New("request body too large")

type errorBody struct {
	Error string `json:"error"`
}

// JSON encodes v before touching w, so a value that cannot be encoded
// answers 500 instead of an empty body under the requested status.
func JSON(w http.ResponseWriter, status int, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		http.Error(w, "response encoding error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(buf.Bytes())
}

func Error(w http.ResponseWriter, status int, msg string) {
	JSON(w, status, errorBody{Error: msg})
}

// ReadText reads the whole request body as text, capped at limit bytes
// (DefaultMaxBody when limit <= 0).
func ReadText(w http.ResponseWriter, r *http.Request, limit int64) (string, error) {
	if limit <= 0 {
		limit = DefaultMaxBody
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	b, err := io.ReadAll(r.Body)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return "", ErrBodyTooLarge
		}
		return "", err
	}
	return string(b), nil
}

// BodyError answers a ReadText failure: 413 when the body was over the
// limit, 400 for any other read error.
func BodyError(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrBodyTooLarge) {
		Error(w, http.StatusRequestEntityTooLarge, err.Error())
		return
	}
	Error(w, http.StatusBadRequest, "could not read request body")
}

// Decode reads a JSON request body into v, capped like ReadText.
func Decode(w http.ResponseWriter, r *http.Request, limit int64, v any) error {
	if limit <= 0 {
		limit = DefaultMaxBody
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	return json.NewDecoder(r.Body).Decode(v)
}
