package form

import (
	"errors"
	"reflect"
	"testing"

	"github.com/helmcode/arqv30-client/pkg/model"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		form model.Form
		want []string
	}{
		{
			name: "empty form",
			form: model.Form{},
			want: []string{"segmento is required", "produto is required"},
		},
		{
			name: "missing both with other fields",
			form: model.Form{FieldPublicoAlvo: "PMEs", FieldQuery: "mercado"},
			want: []string{"segmento is required", "produto is required"},
		},
		{
			name: "whitespace only",
			form: model.Form{FieldSegmento: "   ", FieldProduto: "Curso online"},
			want: []string{"segmento is required"},
		},
		{
			name: "too short",
			form: model.Form{FieldSegmento: "TI", FieldProduto: "ab"},
			want: []string{"segmento must be at least 3 characters", "produto must be at least 3 characters"},
		},
		{
			name: "multibyte runes count once",
			form: model.Form{FieldSegmento: "ção", FieldProduto: "Consultoria"},
			want: nil,
		},
		{
			name: "valid",
			form: model.Form{FieldSegmento: "Educação", FieldProduto: "Curso online"},
			want: nil,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.form)
			if tt.want == nil {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("Validate() = %v, want *ValidationError", err)
			}
			if !reflect.DeepEqual(verr.Problems, tt.want) {
				t.Fatalf("problems = %q, want %q", verr.Problems, tt.want)
			}
		})
	}
}

func TestParseFields(t *testing.T) {
	got, err := ParseFields([]string{"segmento=Educação", " produto = Curso ", "query=a=b", "segmento=Saúde"})
	if err != nil {
		t.Fatalf("ParseFields: %v", err)
	}
	want := model.Form{"segmento": "Saúde", "produto": "Curso", "query": "a=b"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ParseFields = %v, want %v", got, want)
	}

	for _, bad := range []string{"segmento", "=value"} {
		if _, err := ParseFields([]string{bad}); err == nil {
			t.Fatalf("ParseFields(%q) expected error", bad)
		}
	}
}

func TestMerge(t *testing.T) {
	base := model.Form{"segmento": "Educação", "produto": "Curso"}
	got := Merge(base, model.Form{"produto": "", "publico_alvo": "Professores"})

	want := model.Form{"segmento": "Educação", "publico_alvo": "Professores"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Merge = %v, want %v", got, want)
	}
	if base["produto"] != "Curso" {
		t.Fatalf("Merge mutated base: %v", base)
	}
}
