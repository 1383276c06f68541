// Package floortest holds dataset fixtures shared by tests.
package floortest

import (
	"testing"

	"github.com/Takayuki-Minagawa/FloorModeAnime/internal/floor"
	"github.com/Takayuki-Minagawa/FloorModeAnime/internal/floor/normalize"
	"github.com/stretchr/testify/require"
)

// Rectangle is a 6 m x 4 m four-node floor with two modes.
const Rectangle = `{
  "meta": {"title": "rectangle", "unit_system": "SI"},
  "nodes": [
    {"id": 1, "x": 0, "y": 0, "z": 0},
    {"id": 2, "x": 6, "y": 0, "z": 0},
    {"id": 3, "x": 6, "y": 4, "z": 0},
    {"id": 4, "x": 0, "y": 4, "z": 0}
  ],
  "lines": [
    {"id": 1, "node_i": 1, "node_j": 2},
    {"id": 2, "node_i": 2, "node_j": 3},
    {"id": 3, "node_i": 3, "node_j": 4},
    {"id": 4, "node_i": 4, "node_j": 1}
  ],
  "freq_hz": {"1": 5.2, "2": 8.0},
  "modes": {
    "1": {"1": 0.0, "2": 0.4, "3": 1.0, "4": 0.5},
    "2": {"1": -0.5, "2": 0.5, "3": -0.25}
  }
}`

// Load normalizes text and fails the test on a parse error.
func Load(t testing.TB, text string) *floor.Dataset {
	t.Helper()
	ds, err := normalize.Normalize(text)
	require.NoError(t, err)
	return ds
}
