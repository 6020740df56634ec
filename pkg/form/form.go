package form

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/helmcode/arqv30-client/pkg/model"
)

// MinFieldLength is the minimum trimmed length of each required field.
const MinFieldLength = 3

// Known field names accepted by the analysis endpoint.
const (
	FieldSegmento    = "segmento"
	FieldProduto     = "produto"
	FieldPublicoAlvo = "publico_alvo"
	FieldObjetivos   = "objetivos_estrategicos"
	FieldContexto    = "contexto_adicional"
	FieldQuery       = "query"
	FieldPreco       = "preco"
)

// Required lists the required fields in the order their problems are reported.
var Required = []string{FieldSegmento, FieldProduto}

// ValidationError reports every problem found in a form snapshot.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid form: " + strings.Join(e.Problems, "; ")
}

// Validate checks the snapshot and returns a *ValidationError listing all
// problems, or nil when the form can be submitted.
func Validate(f model.Form) error {
	var problems []string
	for _, name := range Required {
		value := strings.TrimSpace(f[name])
		switch {
		case value == "":
			problems = append(problems, fmt.Sprintf("%s is required", name))
		case utf8.RuneCountInString(value) < MinFieldLength:
			problems = append(problems, fmt.Sprintf("%s must be at least %d characters", name, MinFieldLength))
		}
	}
	if len(problems) == 0 {
		return nil
	}
	return &ValidationError{Problems: problems}
}

// ParseFields turns key=value pairs into a form, rejecting malformed entries.
// Later pairs override earlier ones.
func ParseFields(pairs []string) (model.Form, error) {
	out := make(model.Form, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid field %q (expected key=value)", pair)
		}
		out[key] = strings.TrimSpace(value)
	}
	return out, nil
}

// Merge overlays the updates onto base and returns a new form. Empty values
// remove the field.
func Merge(base, updates model.Form) model.Form {
	out := base.Clone()
	for k, v := range updates {
		if v == "" {
			delete(out, k)
			continue
		}
		out[k] = v
	}
	return out
}
