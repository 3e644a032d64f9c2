package generation

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/phrazzld/scry-bulkgen/internal/domain"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/items.schema.json
var itemsSchema []byte

// ParseMode records which parsing stage produced the items.
type ParseMode string

// Parse stages, in the order they are tried
const (
	ParseModeStrict   ParseMode = "strict"
	ParseModeRepaired ParseMode = "repaired"
	ParseModeRegex    ParseMode = "regex"
	ParseModeFailed   ParseMode = "failed"
)

// GateConfig tunes item validation.
type GateConfig struct {
	MinTextLength    int
	MinValidFraction float64
}

// GateResult is the verdict on one provider response.
type GateResult struct {
	ValidItems []domain.CandidateItem
	Escalate   bool
	Reason     string
	ParseMode  ParseMode
	Rejected   int
}

// QualityGate parses provider responses into candidate items and decides
// whether the tier's output is good enough.
type QualityGate struct {
	cfg    GateConfig
	schema *jsonschema.Schema
}

// NewQualityGate compiles the embedded item schema and returns a gate.
func NewQualityGate(cfg GateConfig) (*QualityGate, error) {
	if cfg.MinTextLength < 0 || cfg.MinValidFraction < 0 || cfg.MinValidFraction > 1 {
		return nil, fmt.Errorf("%w: min_text_length=%d min_valid_fraction=%v",
			ErrInvalidConfig, cfg.MinTextLength, cfg.MinValidFraction)
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("items.schema.json", bytes.NewReader(itemsSchema)); err != nil {
		return nil, fmt.Errorf("add item schema: %w", err)
	}
	schema, err := compiler.Compile("items.schema.json")
	if err != nil {
		return nil, fmt.Errorf("compile item schema: %w", err)
	}

	return &QualityGate{cfg: cfg, schema: schema}, nil
}

// Evaluate parses raw and validates the items against requested.
func (g *QualityGate) Evaluate(raw string, requested int) GateResult {
	texts, mode := g.parse(raw)
	if mode == ParseModeFailed {
		return GateResult{Escalate: true, Reason: "unparseable response", ParseMode: mode}
	}

	result := GateResult{ParseMode: mode}
	seen := make(map[string]struct{}, len(texts))
	for _, text := range texts {
		text = strings.TrimSpace(text)
		if utf8.RuneCountInString(text) < g.cfg.MinTextLength {
			result.Rejected++
			continue
		}
		key := domain.NormalizeText(text)
		if _, dup := seen[key]; dup {
			result.Rejected++
			continue
		}
		seen[key] = struct{}{}

		if requested > 0 && len(result.ValidItems) == requested {
			break
		}
		result.ValidItems = append(result.ValidItems, domain.CandidateItem{
			SequenceID: len(result.ValidItems) + 1,
			Text:       text,
		})
	}

	valid := len(result.ValidItems)
	switch {
	case valid == 0:
		result.Escalate = true
		result.Reason = "no valid items"
	case float64(valid) < g.cfg.MinValidFraction*float64(requested):
		result.Escalate = true
		result.Reason = fmt.Sprintf("only %d of %d requested items valid", valid, requested)
	}

	return result
}

func (g *QualityGate) parse(raw string) ([]string, ParseMode) {
	body := stripCodeFence(raw)
	if strings.TrimSpace(body) == "" {
		return nil, ParseModeFailed
	}

	if texts, err := g.decode(body); err == nil {
		return texts, ParseModeStrict
	}

	if repaired, ok := repairJSON(body); ok {
		if texts, err := g.decode(repaired); err == nil {
			return texts, ParseModeRepaired
		}
	}

	if texts := extractTextFields(body); len(texts) > 0 {
		return texts, ParseModeRegex
	}

	return nil, ParseModeFailed
}

// decode unmarshals body, checks it against the item schema and returns the
// item texts.
func (g *QualityGate) decode(body string) ([]string, error) {
	var v any
	if err := json.Unmarshal([]byte(body), &v); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParse, err)
	}
	if err := g.schema.Validate(v); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParse, err)
	}

	list, ok := v.([]any)
	if !ok {
		if obj, isObj := v.(map[string]any); isObj {
			list, _ = obj["items"].([]any)
		}
	}

	texts := make([]string, 0, len(list))
	for _, entry := range list {
		switch e := entry.(type) {
		case string:
			texts = append(texts, e)
		case map[string]any:
			if text, ok := e["text"].(string); ok {
				texts = append(texts, text)
			}
		}
	}
	return texts, nil
}

var codeFencePattern = regexp.MustCompile("(?s)^\\s*```[a-zA-Z]*\\s*\n?(.*?)\\s*```\\s*$")

func stripCodeFence(raw string) string {
	if m := codeFencePattern.FindStringSubmatch(raw); m != nil {
		return m[1]
	}
	return raw
}

var (
	trailingCommaPattern = regexp.MustCompile(`,\s*([\]}])`)
	missingCommaPattern  = regexp.MustCompile(`}\s*{`)
	singleQuotedKey      = regexp.MustCompile(`'([A-Za-z_][A-Za-z0-9_]*)'\s*:`)
	smartQuotes          = strings.NewReplacer("“", `"`, "”", `"`, "‘", "'", "’", "'")
)

// repairJSON cuts the outermost array out of body and fixes common delimiter
// mistakes. It reports false when body holds no bracketed array.
func repairJSON(body string) (string, bool) {
	start := strings.Index(body, "[")
	end := strings.LastIndex(body, "]")
	if start < 0 || end <= start {
		return "", false
	}

	s := body[start : end+1]
	s = smartQuotes.Replace(s)
	s = singleQuotedKey.ReplaceAllString(s, `"$1":`)
	s = missingCommaPattern.ReplaceAllString(s, "},{")
	s = trailingCommaPattern.ReplaceAllString(s, "$1")
	return s, true
}

var textFieldPattern = regexp.MustCompile(`"text"\s*:\s*"((?:[^"\\]|\\.)*)"`)

// extractTextFields pulls "text" values out of otherwise broken JSON.
func extractTextFields(body string) []string {
	matches := textFieldPattern.FindAllStringSubmatch(smartQuotes.Replace(body), -1)
	texts := make([]string, 0, len(matches))
	for _, m := range matches {
		text, err := strconv.Unquote(`"` + m[1] + `"`)
		if err != nil {
			text = m[1]
		}
		texts = append(texts, text)
	}
	return texts
}
