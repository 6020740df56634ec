package render

import (
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/helmcode/arqv30-client/pkg/model"
)

func decodeResponse(t *testing.T, raw string) *model.AnalysisResponse {
	t.Helper()
	var resp model.AnalysisResponse
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		t.Fatalf("decode fixture: %v", err)
	}
	return &resp
}

const fullFixture = `{
  "success": true,
  "analysis_result": {
    "projeto_dados": {"segmento": "Educação", "produto": "Curso online", "preco": 997},
    "pesquisa_web": {"total_buscas": 12, "total_resultados": 340, "fontes": ["g1.globo.com", {"nome": "Exame"}]},
    "drivers_mentais_customizados": [{"nome": "Urgência"}, {"nome": "Prova social"}],
    "avatars": {"nome_persona": "Maria", "idade": "35-45", "dores_viscerais": ["Falta de tempo", "<script>"]},
    "extra": {"nested": [1, 2.5, true, null]}
  },
  "quality_metrics": {"quality_score": 92.5, "completeness": 88},
  "processing_info": {"sources_count": 27, "components_generated": 9, "processing_time": 184.2}
}`

func TestBuildRendersAvatarName(t *testing.T) {
	report, err := Build("session_1_abc", decodeResponse(t, fullFixture))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if !strings.Contains(report.PreviewHTML, "Maria") {
		t.Fatalf("preview does not contain persona name:\n%s", report.PreviewHTML)
	}
	if strings.Contains(report.PreviewHTML, "<script>") {
		t.Fatalf("preview is not escaped:\n%s", report.PreviewHTML)
	}

	avatar, ok := report.Section(SectionAvatar)
	if !ok {
		t.Fatalf("avatar section missing")
	}
	if avatar.Fields[0] != (Field{Label: "Persona", Value: "Maria"}) {
		t.Fatalf("unexpected avatar fields: %+v", avatar.Fields)
	}
}

func TestProjectAudienceShownOnce(t *testing.T) {
	tests := []struct {
		name    string
		project string
		want    string
	}{
		{name: "both keys", project: `{"publico_alvo": "Professores", "publico": "Educadores"}`, want: "Professores"},
		{name: "legacy key", project: `{"publico": "Educadores"}`, want: "Educadores"},
		{name: "empty preferred key", project: `{"publico_alvo": " ", "publico": "Educadores"}`, want: "Educadores"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := `{"success": true, "analysis_result": {"projeto_dados": ` + tt.project + `}}`
			report, err := Build("session_1_abc", decodeResponse(t, raw))
			if err != nil {
				t.Fatalf("Build: %v", err)
			}
			project, ok := report.Section(SectionProject)
			if !ok {
				t.Fatalf("project section missing")
			}
			var got []string
			for _, f := range project.Fields {
				if f.Label == "Público-alvo" {
					got = append(got, f.Value)
				}
			}
			if len(got) != 1 || got[0] != tt.want {
				t.Fatalf("audience fields = %v, want [%s]", got, tt.want)
			}
		})
	}
}

func TestBuildSectionsAreOptional(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{name: "all sections", raw: fullFixture, want: []string{SectionProject, SectionResearch, SectionMentalDriver, SectionAvatar}},
		{name: "only avatar", raw: `{"success":true,"analysis_result":{"avatars":{"nome_persona":"João"}}}`, want: []string{SectionAvatar}},
		{name: "drivers as object", raw: `{"success":true,"analysis_result":{"drivers_mentais_customizados":{"drivers":[{"nome":"Escassez"}]}}}`, want: []string{SectionMentalDriver}},
		{name: "null section skipped", raw: `{"success":true,"analysis_result":{"projeto_dados":null,"pesquisa_web":"texto"}}`, want: nil},
		{name: "no result", raw: `{"success":true}`, want: nil},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			report, err := Build("session_1_abc", decodeResponse(t, tt.raw))
			if err != nil {
				t.Fatalf("Build: %v", err)
			}
			var got []string
			for _, s := range report.Sections {
				got = append(got, s.Key)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("sections = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBuildCardsUseDefaults(t *testing.T) {
	report, err := Build("session_1_abc", decodeResponse(t, `{"success":true,"analysis_result":{}}`))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	want := map[string]string{
		"quality_score":        "0.0%",
		"completeness":         "0%",
		"sources_count":        "0",
		"components_generated": "0",
		"processing_time":      "N/A",
	}
	for _, c := range report.Cards {
		if want[c.Key] != c.Value {
			t.Fatalf("card %s = %q, want %q", c.Key, c.Value, want[c.Key])
		}
	}

	full, err := Build("session_1_abc", decodeResponse(t, fullFixture))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if full.Cards[0].Value != "92.5%" || full.Cards[2].Value != "27" || full.Cards[4].Value != "184.2s" {
		t.Fatalf("unexpected cards: %+v", full.Cards)
	}
}

func TestJSONArtifactRoundTrips(t *testing.T) {
	resp := decodeResponse(t, fullFixture)
	report, err := Build("session_1_abc", resp)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	var jsonArtifact *Artifact
	for i := range report.Artifacts {
		if report.Artifacts[i].Name == "arqv30_analysis_session_1_abc.json" {
			jsonArtifact = &report.Artifacts[i]
		}
	}
	if jsonArtifact == nil {
		t.Fatalf("json artifact missing: %+v", report.Artifacts)
	}

	var parsed map[string]any
	if err := json.Unmarshal(jsonArtifact.Data, &parsed); err != nil {
		t.Fatalf("parse artifact: %v", err)
	}
	if !reflect.DeepEqual(parsed, resp.AnalysisResult) {
		t.Fatalf("artifact does not match analysis_result\n got: %v\nwant: %v", parsed, resp.AnalysisResult)
	}
}

func TestHTMLArtifact(t *testing.T) {
	withReport := decodeResponse(t, `{"success":true,"html_report":"<html>backend</html>","analysis_result":{}}`)
	report, err := Build("session_1_abc", withReport)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	html := report.Artifacts[0]
	if html.Name != "arqv30_report_session_1_abc.html" || string(html.Data) != "<html>backend</html>" {
		t.Fatalf("unexpected html artifact: %s %q", html.Name, html.Data)
	}

	generated, err := Build("session_1_abc", decodeResponse(t, fullFixture))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	doc := string(generated.Artifacts[0].Data)
	if !strings.HasPrefix(doc, "<!DOCTYPE html>") || !strings.Contains(doc, "Maria") || !strings.Contains(doc, "session_1_abc") {
		t.Fatalf("unexpected generated document:\n%s", doc)
	}
}

func TestFileNamesAreSanitized(t *testing.T) {
	if got := JSONFileName("../etc/passwd"); got != "arqv30_analysis____etc_passwd.json" {
		t.Fatalf("JSONFileName = %q", got)
	}
	if got := HTMLFileName(""); got != "arqv30_report_unknown.html" {
		t.Fatalf("HTMLFileName = %q", got)
	}
}

func TestBuildNil(t *testing.T) {
	if _, err := Build("s", nil); !errors.Is(err, ErrNilResponse) {
		t.Fatalf("Build(nil) = %v, want ErrNilResponse", err)
	}
}
