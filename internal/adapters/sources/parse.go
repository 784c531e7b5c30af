package sources

import (
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/okian/modelfusion/internal/domain/model"
)

var (
	// "$1.25/1M input tokens", "$0.03/1K tokens"
	pricingPattern = regexp.MustCompile(`(?i)\$(\d+\.?\d*)/(\d+[KM]?)\s*(\w+\s*)?tokens?`)
	// "GPQA Diamond: 89.4%, SWE Bench: 74.9%"
	highlightPattern = regexp.MustCompile(`([A-Za-z0-9\s\-']+):\s*(\d+\.?\d*)%?`)
)

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// parsePricing extracts per-1K-token costs from free text. Prices quoted
// per million tokens are divided by 1000.
func parsePricing(text string) map[string]any {
	out := map[string]any{}
	for _, m := range pricingPattern.FindAllStringSubmatch(text, -1) {
		cost, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			continue
		}
		if strings.Contains(strings.ToUpper(m[2]), "M") {
			cost /= 1000
		}
		kind := strings.ToLower(strings.TrimSpace(m[3]))
		switch {
		case kind == "" || strings.Contains(kind, "input"):
			out["input_cost_per_1k"] = cost
		case strings.Contains(kind, "output"):
			out["output_cost_per_1k"] = cost
		}
	}
	return out
}

// parseHighlights extracts "Name: 89.4%" pairs. Values above 1 are taken as
// percentages and scaled into [0,1].
func parseHighlights(text string) map[string]any {
	out := map[string]any{}
	for _, m := range highlightPattern.FindAllStringSubmatch(text, -1) {
		name := benchmarkKey(m[1])
		if name == "" {
			continue
		}
		v, err := strconv.ParseFloat(m[2], 64)
		if err != nil {
			continue
		}
		if v > 1 {
			v /= 100
		}
		out[name] = v
	}
	return out
}

// benchmarkKey folds a benchmark name to the form used by category weights:
// lower case with runs of other characters collapsed to "_".
func benchmarkKey(name string) string {
	var b strings.Builder
	pendingSep := false
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			pendingSep = false
			b.WriteRune(r)
			continue
		}
		pendingSep = true
	}
	return b.String()
}

func parseDate(v any) time.Time {
	s, ok := v.(string)
	if !ok {
		return time.Time{}
	}
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

func parseScore(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(n), "%"), 64)
		return f, err == nil
	}
	return 0, false
}

// observations turns a benchmark map into scores. A value is either a bare
// number or {score, date}; fallback dates undated values.
func observations(src model.SourceKind, benchmarks map[string]any, fallback time.Time, into map[string]model.Observation) {
	for name, raw := range benchmarks {
		key := benchmarkKey(name)
		if key == "" {
			continue
		}
		observed := fallback
		value := raw
		if obj, ok := raw.(map[string]any); ok {
			value = obj["score"]
			if d := parseDate(obj["date"]); !d.IsZero() {
				observed = d
			}
		}
		score, ok := parseScore(value)
		if !ok {
			continue
		}
		into[key] = model.Observation{Name: key, Value: score, ObservedAt: observed, Source: src}
	}
}
