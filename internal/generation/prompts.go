package generation

import (
	"bytes"
	"embed"
	"fmt"
	"os"
	"text/template"

	"github.com/phrazzld/scry-bulkgen/internal/domain"
)

//go:embed templates/prompt.tmpl
var templateFS embed.FS

// PromptData is the input to the prompt templates.
type PromptData struct {
	Unit      string
	Count     int
	Tier      string
	Class     string
	MinLength int
}

// PromptBuilder renders the system and user prompts for a batch. The
// template set must define "system" and "user".
type PromptBuilder struct {
	tmpl      *template.Template
	minLength int
}

// NewPromptBuilder parses the template at path, or the embedded default
// when path is empty.
func NewPromptBuilder(path string, minLength int) (*PromptBuilder, error) {
	var (
		tmpl *template.Template
		err  error
	)
	if path == "" {
		tmpl, err = template.ParseFS(templateFS, "templates/prompt.tmpl")
	} else {
		var content []byte
		content, err = os.ReadFile(path)
		if err == nil {
			tmpl, err = template.New("prompt").Parse(string(content))
		}
	}
	if err != nil {
		return nil, fmt.Errorf("%w: prompt template: %w", ErrInvalidConfig, err)
	}

	for _, name := range []string{"system", "user"} {
		if tmpl.Lookup(name) == nil {
			return nil, fmt.Errorf("%w: prompt template missing %q block", ErrInvalidConfig, name)
		}
	}

	return &PromptBuilder{tmpl: tmpl, minLength: minLength}, nil
}

// Build renders a provider request for count items of unit at tier.
func (b *PromptBuilder) Build(unit string, class domain.UnitClass, tier domain.Tier, count int) (Request, error) {
	data := PromptData{
		Unit:      unit,
		Count:     count,
		Tier:      tier.String(),
		Class:     class.String(),
		MinLength: b.minLength,
	}

	system, err := b.render("system", data)
	if err != nil {
		return Request{}, err
	}
	user, err := b.render("user", data)
	if err != nil {
		return Request{}, err
	}

	return Request{SystemPrompt: system, UserPrompt: user, Tier: tier}, nil
}

func (b *PromptBuilder) render(name string, data PromptData) (string, error) {
	var buf bytes.Buffer
	if err := b.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render %s prompt: %w", name, err)
	}
	return buf.String(), nil
}
