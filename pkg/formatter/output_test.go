package formatter

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/fatih/color"
	"gopkg.in/yaml.v3"

	"github.com/helmcode/arqv30-client/pkg/model"
	"github.com/helmcode/arqv30-client/pkg/render"
)

func init() {
	color.NoColor = true
}

func sampleReport(t *testing.T) *render.Report {
	t.Helper()
	resp := &model.AnalysisResponse{
		Success: true,
		AnalysisResult: map[string]any{
			"avatars":       map[string]any{"nome_persona": "Maria", "dores_viscerais": []any{"Falta de tempo"}},
			"projeto_dados": map[string]any{"segmento": "Educação", "produto": "Curso"},
		},
		QualityMetrics: map[string]any{"quality_score": 92.5},
	}
	report, err := render.Build("session_1_abc", resp)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return report
}

func TestDisplayReportHuman(t *testing.T) {
	var buf bytes.Buffer
	if err := DisplayReport(&buf, sampleReport(t), []string{"/tmp/arqv30_report_session_1_abc.html"}, FormatHuman); err != nil {
		t.Fatalf("DisplayReport: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"session_1_abc", "92.5%", "Maria", "Falta de tempo", "arqv30_report_session_1_abc.html"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
}

func TestDisplayReportMachineFormats(t *testing.T) {
	report := sampleReport(t)

	var jsonBuf bytes.Buffer
	if err := DisplayReport(&jsonBuf, report, nil, FormatJSON); err != nil {
		t.Fatalf("json: %v", err)
	}
	var decoded reportOutput
	if err := json.Unmarshal(jsonBuf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if decoded.SessionID != "session_1_abc" || len(decoded.Artifacts) != 2 || decoded.Saved != nil {
		t.Fatalf("unexpected JSON output: %+v", decoded)
	}

	var yamlBuf bytes.Buffer
	if err := DisplayReport(&yamlBuf, report, []string{"s3://bucket/a.json"}, FormatYAML); err != nil {
		t.Fatalf("yaml: %v", err)
	}
	var fromYAML reportOutput
	if err := yaml.Unmarshal(yamlBuf.Bytes(), &fromYAML); err != nil {
		t.Fatalf("output is not YAML: %v", err)
	}
	if len(fromYAML.Saved) != 1 || len(fromYAML.Sections) != len(report.Sections) {
		t.Fatalf("unexpected YAML output: %+v", fromYAML)
	}
}

func TestFormatProgressClamps(t *testing.T) {
	detail := "buscando fontes"
	tests := []struct {
		name string
		in   model.Progress
		want string
		bar  string
	}{
		{name: "over 100", in: model.Progress{Percentage: 150, CurrentMessage: "Finalizando"}, want: "[100%] Finalizando", bar: "[" + strings.Repeat("█", 10) + "]"},
		{name: "negative", in: model.Progress{Percentage: -10, CurrentMessage: "Iniciando"}, want: "[  0%] Iniciando", bar: "[" + strings.Repeat("░", 10) + "]"},
		{name: "with detail", in: model.Progress{Percentage: 50, CurrentMessage: "Pesquisa", DetailedMessage: &detail}, want: "[ 50%] Pesquisa (buscando fontes)", bar: "[" + strings.Repeat("█", 5) + strings.Repeat("░", 5) + "]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatProgress(tt.in); got != tt.want {
				t.Fatalf("FormatProgress = %q, want %q", got, tt.want)
			}
			if got := ProgressBar(tt.in, 10); got != tt.bar {
				t.Fatalf("ProgressBar = %q, want %q", got, tt.bar)
			}
		})
	}
}

func TestDisplayProgressJSONIsClamped(t *testing.T) {
	var buf bytes.Buffer
	if err := DisplayProgress(&buf, "session_1_abc", model.Progress{Percentage: 180, IsComplete: true}, FormatJSON); err != nil {
		t.Fatalf("DisplayProgress: %v", err)
	}
	var out struct {
		SessionID string         `json:"session_id"`
		Progress  model.Progress `json:"progress"`
	}
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Progress.Percentage != 100 || out.SessionID != "session_1_abc" {
		t.Fatalf("unexpected output: %+v", out)
	}
}

func TestDisplaySessions(t *testing.T) {
	var empty bytes.Buffer
	if err := DisplaySessions(&empty, nil, FormatJSON); err != nil {
		t.Fatalf("DisplaySessions: %v", err)
	}
	if strings.TrimSpace(empty.String()) != "[]" {
		t.Fatalf("empty list rendered as %q", empty.String())
	}

	var buf bytes.Buffer
	sessions := []model.SessionSummary{{SessionID: "session_1_abc", Segmento: "Educação", Status: "completed", EtapasSalvas: 7}}
	if err := DisplaySessions(&buf, sessions, FormatHuman); err != nil {
		t.Fatalf("DisplaySessions: %v", err)
	}
	if !strings.Contains(buf.String(), "session_1_abc") || !strings.Contains(buf.String(), "7 etapas") {
		t.Fatalf("unexpected output:\n%s", buf.String())
	}
}

func TestDisplayPrepitchHuman(t *testing.T) {
	var buf bytes.Buffer
	resp := &model.PrepitchResponse{Success: true, Prepitch: map[string]any{
		"abertura": "Maria, imagine sua rotina daqui a seis meses.",
		"etapas":   []any{map[string]any{"nome": "Quebra"}, "Vulnerabilidade"},
		"duracao":  12.0,
	}}
	if err := DisplayPrepitch(&buf, resp, FormatHuman); err != nil {
		t.Fatalf("DisplayPrepitch: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"abertura", "Maria, imagine", "Quebra", "Vulnerabilidade", "duracao: 12"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
}

func TestWrapText(t *testing.T) {
	got := wrapText("one two three four", 10, "  ")
	want := "  one two\n  three\n  four"
	if got != want {
		t.Fatalf("wrapText = %q, want %q", got, want)
	}
}

func TestValidFormat(t *testing.T) {
	for _, f := range []string{"human", "json", "yaml"} {
		if !ValidFormat(f) {
			t.Fatalf("%s should be valid", f)
		}
	}
	if ValidFormat("xml") {
		t.Fatalf("xml should be invalid")
	}
}
