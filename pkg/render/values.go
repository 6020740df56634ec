package render

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// lookup walks nested maps following path.
func lookup(m map[string]any, path ...string) (any, bool) {
	var cur any = m
	for _, key := range path {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = obj[key]
		if !ok || cur == nil {
			return nil, false
		}
	}
	return cur, true
}

func asMap(v any) (map[string]any, bool) {
	m, ok := v.(map[string]any)
	return m, ok && m != nil
}

func asNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, !math.IsNaN(n)
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(n), "%"), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func numberOr(m map[string]any, def float64, path ...string) float64 {
	if v, ok := lookup(m, path...); ok {
		if n, ok := asNumber(v); ok {
			return n
		}
	}
	return def
}

// text formats a scalar for display. Whole numbers lose their decimals.
func text(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case bool:
		if t {
			return "Sim"
		}
		return "Não"
	case float64:
		if t == math.Trunc(t) && math.Abs(t) < 1e15 {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', 2, 64)
	case []any:
		return strings.Join(listItems(t), ", ")
	default:
		return fmt.Sprint(t)
	}
}

// listItems renders each element of a list; maps contribute their "nome" or
// "titulo" when present.
func listItems(list []any) []string {
	out := make([]string, 0, len(list))
	for _, item := range list {
		if m, ok := asMap(item); ok {
			for _, key := range []string{"nome", "titulo", "name", "title"} {
				if s := text(m[key]); s != "" {
					out = append(out, s)
					break
				}
			}
			continue
		}
		if s := text(item); s != "" {
			out = append(out, s)
		}
	}
	return out
}
