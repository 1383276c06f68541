package normalize

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/Takayuki-Minagawa/FloorModeAnime/internal/floor"
	"github.com/iancoleman/strcase"
)

// ParseError reports input text that is not a well-formed JSON document.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse floor dataset: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Normalize parses raw text into a canonical floor dataset. Defaults are
// applied (meta, missing coordinates, zero amplitudes) but nothing is
// validated: ranges, duplicates and references are left to the validator.
func Normalize(text string) (*floor.Dataset, error) {
	var tree any
	if err := json.Unmarshal([]byte(text), &tree); err != nil {
		return nil, &ParseError{Err: err}
	}
	root, _ := RewriteKeys(tree).(map[string]any)

	ds := &floor.Dataset{Meta: map[string]any{}}
	if meta, ok := root["meta"].(map[string]any); ok {
		ds.Meta = meta
	}
	if raw, ok := root["nodes"].([]any); ok {
		ds.Nodes, ds.NodeSeen = buildNodes(raw)
	}
	if raw, ok := root["lines"].([]any); ok {
		ds.Lines = buildLines(raw)
	}
	if raw, ok := root["freqHz"].(map[string]any); ok {
		ds.Frequencies = buildFrequencies(raw)
	}
	if raw, ok := root["modes"].(map[string]any); ok {
		ds.ModeShapes, ds.InvalidNodeKeys = buildModeShapes(raw, ds.Nodes)
	}
	return ds, nil
}

// RewriteKeys converts every object key, at any depth, from
// separator-delimited form (node_i, freq-hz) to lowerCamel (nodeI, freqHz).
// Numeric keys such as mode numbers and node ids are kept verbatim.
func RewriteKeys(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, child := range t {
			out[canonicalKey(k)] = RewriteKeys(child)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, child := range t {
			out[i] = RewriteKeys(child)
		}
		return out
	default:
		return v
	}
}

func canonicalKey(k string) string {
	if _, err := strconv.ParseFloat(strings.TrimSpace(k), 64); err == nil {
		return k
	}
	return strcase.ToLowerCamel(k)
}

func buildNodes(raw []any) (map[int]floor.Node, map[int][]int) {
	nodes := make(map[int]floor.Node, len(raw))
	seen := make(map[int][]int, len(raw))
	for i, item := range raw {
		obj, _ := item.(map[string]any)
		n := floor.Node{
			ID: toID(obj["id"]),
			X:  toCoord(obj, "x"),
			Y:  toCoord(obj, "y"),
			Z:  toCoord(obj, "z"),
		}
		nodes[n.ID] = n
		seen[n.ID] = append(seen[n.ID], i)
	}
	return nodes, seen
}

func buildLines(raw []any) []floor.Line {
	lines := make([]floor.Line, 0, len(raw))
	for _, item := range raw {
		obj, _ := item.(map[string]any)
		lines = append(lines, floor.Line{
			ID:    toID(obj["id"]),
			NodeI: toID(obj["nodeI"]),
			NodeJ: toID(obj["nodeJ"]),
		})
	}
	return lines
}

func buildFrequencies(raw map[string]any) map[int]float64 {
	freqs := make(map[int]float64, len(raw))
	for key, value := range raw {
		mode, ok := keyToID(key)
		if !ok {
			continue
		}
		freqs[mode] = ToNumber(value)
	}
	return freqs
}

func buildModeShapes(raw map[string]any, nodes map[int]floor.Node) (map[int]map[int]float64, map[int][]string) {
	shapes := make(map[int]map[int]float64, len(raw))
	var invalid map[int][]string
	for key, value := range raw {
		mode, ok := keyToID(key)
		if !ok {
			continue
		}
		shape := make(map[int]float64, len(nodes))
		for id := range nodes {
			shape[id] = 0.0
		}
		amplitudes, _ := value.(map[string]any)
		for nodeKey, uz := range amplitudes {
			id, ok := keyToID(nodeKey)
			if !ok {
				if invalid == nil {
					invalid = map[int][]string{}
				}
				invalid[mode] = append(invalid[mode], nodeKey)
				continue
			}
			shape[id] = ToNumber(uz)
		}
		sort.Strings(invalid[mode])
		shapes[mode] = shape
	}
	return shapes, invalid
}

func toCoord(obj map[string]any, key string) float64 {
	v, ok := obj[key]
	if !ok || v == nil {
		return 0
	}
	return ToNumber(v)
}

// ToNumber coerces a decoded JSON value to a float. Strings are parsed
// (including "NaN" and "Infinity"), booleans map to 1/0, null to 0 and
// anything unparsable to NaN.
func ToNumber(v any) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case nil:
		return 0
	case bool:
		if t {
			return 1
		}
		return 0
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return 0
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			// ParseFloat reports range errors alongside a usable ±Inf.
			if numErr, ok := err.(*strconv.NumError); ok && numErr.Err == strconv.ErrRange {
				return f
			}
			return math.NaN()
		}
		return f
	default:
		return math.NaN()
	}
}

// toID maps a value that is not an integer to 0, which validation then
// reports as an invalid or undefined id.
func toID(v any) int {
	f := ToNumber(v)
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0
	}
	return int(f)
}

func keyToID(key string) (int, bool) {
	if strings.TrimSpace(key) == "" {
		return 0, false
	}
	f := ToNumber(key)
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false
	}
	return int(f), true
}
