package matching

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/okian/modelfusion/internal/domain/model"
)

// Defaults for identities seen only in benchmark scrapes.
const (
	DefaultContextWindow = 4096
	DefaultCostInPer1K   = 0.01
	DefaultCostOutPer1K  = 0.02
	DefaultLatencyMS     = 2000.0
	UnknownProvider      = "unknown"
)

var providerPrefixes = []struct {
	provider string
	prefixes []string
}{
	{"openai", []string{"gpt", "openai"}},
	{"anthropic", []string{"claude", "anthropic"}},
	{"google", []string{"gemini", "google"}},
	{"meta", []string{"llama", "meta"}},
}

// analyticsPrefixes are vendor namespaces the analytics API puts in front of names.
var analyticsPrefixes = []string{"openai/", "anthropic/", "google/", "meta/"}

// NormalizeName lower-cases, drops known vendor prefixes and strips every
// non-alphanumeric rune: "OpenAI/GPT-4o mini" -> "gpt4omini".
func NormalizeName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, p := range analyticsPrefixes {
		name = strings.TrimPrefix(name, p)
	}
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// InferProvider guesses the vendor from an identity prefix.
func InferProvider(key string) (string, bool) {
	lower := strings.ToLower(strings.TrimSpace(key))
	for _, p := range providerPrefixes {
		for _, prefix := range p.prefixes {
			if strings.HasPrefix(lower, prefix) {
				return p.provider, true
			}
		}
	}
	return "", false
}

// SyntheticID derives a model id from a benchmark identity.
func SyntheticID(key string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(key)), " ", "-")
}

// StaticFromRecord lifts a catalog record into the typed snapshot. Fields
// that are not part of the snapshot are kept in Extra.
func StaticFromRecord(rec model.Record) model.StaticSnapshot {
	f := rec.Fields
	s := model.StaticSnapshot{
		ID:            firstNonEmpty(stringField(f, "id"), rec.Key),
		Provider:      stringField(f, "provider"),
		DisplayName:   stringField(f, "display_name"),
		ContextWindow: int(numberField(f, "context_window", DefaultContextWindow)),
		CostInPer1K:   numberField(f, "cost_in_per_1k", DefaultCostInPer1K),
		CostOutPer1K:  numberField(f, "cost_out_per_1k", DefaultCostOutPer1K),
		AvgLatencyMS:  numberField(f, "avg_latency_ms", DefaultLatencyMS),
		OpenSource:    boolField(f, "open_source"),
		APIAlias:      stringField(f, "api_alias"),
	}
	if s.DisplayName == "" {
		s.DisplayName = s.ID
	}

	extra := model.Fields{}
	for k, v := range f {
		switch k {
		case "id", "provider", "display_name", "context_window", "cost_in_per_1k",
			"cost_out_per_1k", "avg_latency_ms", "open_source", "api_alias":
			continue
		}
		extra[k] = v
	}
	if len(extra) > 0 {
		s.Extra = extra
	}
	return s
}

// SynthesizeStatic builds a catalog view for a benchmark-only identity.
func SynthesizeStatic(key string, rec model.Record) model.StaticSnapshot {
	f := rec.Fields
	provider, ok := InferProvider(key)
	if !ok {
		provider = firstNonEmpty(stringField(f, "provider"), UnknownProvider)
	}

	id := SyntheticID(key)
	s := model.StaticSnapshot{
		ID:            id,
		Provider:      provider,
		DisplayName:   firstNonEmpty(stringField(f, "display_name"), key),
		ContextWindow: int(numberField(f, "context_window", DefaultContextWindow)),
		CostInPer1K:   DefaultCostInPer1K,
		CostOutPer1K:  DefaultCostOutPer1K,
		AvgLatencyMS:  numberField(f, "avg_latency_ms", DefaultLatencyMS),
		APIAlias:      firstNonEmpty(stringField(f, "api_name"), id),
	}
	if pricing, ok := f["pricing_parsed"].(map[string]any); ok {
		s.CostInPer1K = numberField(pricing, "input_cost_per_1k", DefaultCostInPer1K)
		s.CostOutPer1K = numberField(pricing, "output_cost_per_1k", DefaultCostOutPer1K)
	}
	return s
}

func stringField(f map[string]any, key string) string {
	switch v := f[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return ""
}

func numberField(f map[string]any, key string, def float64) float64 {
	switch v := f[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case string:
		if n, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(v), ",", ""), 64); err == nil {
			return n
		}
	}
	return def
}

func boolField(f map[string]any, key string) bool {
	switch v := f[key].(type) {
	case bool:
		return v
	case string:
		b, _ := strconv.ParseBool(v)
		return b
	}
	return false
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
