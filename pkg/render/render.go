// Package render turns an analysis response into a view model and the
// downloadable HTML/JSON artifacts. Nothing here touches the network.
package render

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/helmcode/arqv30-client/pkg/model"
)

// Card is a single quality indicator.
type Card struct {
	Key   string  `json:"key" yaml:"key"`
	Label string  `json:"label" yaml:"label"`
	Value string  `json:"value" yaml:"value"`
	Score float64 `json:"score" yaml:"score"`
}

// Field is a labelled value inside a section.
type Field struct {
	Label string `json:"label" yaml:"label"`
	Value string `json:"value" yaml:"value"`
}

// List is a titled list of items inside a section.
type List struct {
	Title string   `json:"title" yaml:"title"`
	Items []string `json:"items" yaml:"items"`
}

// Section is one optional block of the summary.
type Section struct {
	Key    string  `json:"key" yaml:"key"`
	Title  string  `json:"title" yaml:"title"`
	Fields []Field `json:"fields,omitempty" yaml:"fields,omitempty"`
	Lists  []List  `json:"lists,omitempty" yaml:"lists,omitempty"`
}

// Artifact is a downloadable file produced from the result.
type Artifact struct {
	Name        string `json:"name" yaml:"name"`
	ContentType string `json:"content_type" yaml:"content_type"`
	Data        []byte `json:"-" yaml:"-"`
}

// Report is the view model of a finished analysis.
type Report struct {
	SessionID   string     `json:"session_id" yaml:"session_id"`
	Cards       []Card     `json:"cards" yaml:"cards"`
	Sections    []Section  `json:"sections" yaml:"sections"`
	PreviewHTML string     `json:"-" yaml:"-"`
	Artifacts   []Artifact `json:"artifacts" yaml:"artifacts"`
}

// Section returns the section with the given key.
func (r *Report) Section(key string) (Section, bool) {
	for _, s := range r.Sections {
		if s.Key == key {
			return s, true
		}
	}
	return Section{}, false
}

// Section keys, in display order.
const (
	SectionProject      = "projeto_dados"
	SectionResearch     = "pesquisa_web"
	SectionMentalDriver = "drivers_mentais_customizados"
	SectionAvatar       = "avatars"
)

// ErrNilResponse is returned by Build when there is nothing to render.
var ErrNilResponse = errors.New("render: nil analysis response")

// Build renders resp for sessionID.
func Build(sessionID string, resp *model.AnalysisResponse) (*Report, error) {
	if resp == nil {
		return nil, ErrNilResponse
	}

	r := &Report{
		SessionID: sessionID,
		Cards:     buildCards(resp),
		Sections:  buildSections(resp.AnalysisResult),
	}

	preview, err := renderPreview(r)
	if err != nil {
		return nil, err
	}
	r.PreviewHTML = preview

	htmlDoc := resp.HTMLReport
	if strings.TrimSpace(htmlDoc) == "" {
		htmlDoc, err = renderDocument(r)
		if err != nil {
			return nil, err
		}
	}

	var jsonDoc bytes.Buffer
	enc := json.NewEncoder(&jsonDoc)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(resp.AnalysisResult); err != nil {
		return nil, fmt.Errorf("encode analysis result: %w", err)
	}

	r.Artifacts = []Artifact{
		{Name: HTMLFileName(sessionID), ContentType: "text/html; charset=utf-8", Data: []byte(htmlDoc)},
		{Name: JSONFileName(sessionID), ContentType: "application/json", Data: jsonDoc.Bytes()},
	}
	return r, nil
}

// HTMLFileName is the name of the HTML report artifact.
func HTMLFileName(sessionID string) string {
	return "arqv30_report_" + fileSafe(sessionID) + ".html"
}

// JSONFileName is the name of the JSON analysis artifact.
func JSONFileName(sessionID string) string {
	return "arqv30_analysis_" + fileSafe(sessionID) + ".json"
}

func fileSafe(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "unknown"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			return r
		default:
			return '_'
		}
	}, s)
}

func buildCards(resp *model.AnalysisResponse) []Card {
	quality := numberOr(resp.QualityMetrics, 0, "quality_score")
	completeness := numberOr(resp.QualityMetrics, 0, "completeness")
	sources := numberOr(resp.ProcessingInfo, 0, "sources_count")
	components := numberOr(resp.ProcessingInfo, 0, "components_generated")

	elapsed := "N/A"
	if v, ok := lookup(resp.ProcessingInfo, "processing_time"); ok {
		if n, isNum := v.(float64); isNum {
			elapsed = fmt.Sprintf("%.1fs", n)
		} else if s := text(v); s != "" {
			elapsed = s
		}
	}

	return []Card{
		{Key: "quality_score", Label: "Qualidade da Análise", Value: fmt.Sprintf("%.1f%%", quality), Score: quality},
		{Key: "completeness", Label: "Completude", Value: fmt.Sprintf("%.0f%%", completeness), Score: completeness},
		{Key: "sources_count", Label: "Fontes Analisadas", Value: fmt.Sprintf("%.0f", sources), Score: sources},
		{Key: "components_generated", Label: "Componentes Gerados", Value: fmt.Sprintf("%.0f", components), Score: components},
		{Key: "processing_time", Label: "Tempo de Processamento", Value: elapsed},
	}
}

func buildSections(result map[string]any) []Section {
	var out []Section
	for _, build := range []func(map[string]any) (Section, bool){
		projectSection,
		researchSection,
		mentalDriversSection,
		avatarSection,
	} {
		if s, ok := build(result); ok {
			out = append(out, s)
		}
	}
	return out
}

// fields collects the labelled values present in m, in order. A key may
// list alternatives separated by "|"; the first non-empty one is shown.
func fields(m map[string]any, layout [][2]string) []Field {
	var out []Field
	for _, kv := range layout {
		for _, key := range strings.Split(kv[0], "|") {
			if s := text(m[key]); s != "" {
				out = append(out, Field{Label: kv[1], Value: s})
				break
			}
		}
	}
	return out
}

func lists(m map[string]any, layout [][2]string) []List {
	var out []List
	for _, kv := range layout {
		raw, ok := m[kv[0]].([]any)
		if !ok {
			continue
		}
		if items := listItems(raw); len(items) > 0 {
			out = append(out, List{Title: kv[1], Items: items})
		}
	}
	return out
}

func projectSection(result map[string]any) (Section, bool) {
	m, ok := asMap(result[SectionProject])
	if !ok {
		return Section{}, false
	}
	return Section{
		Key:   SectionProject,
		Title: "Dados do Projeto",
		Fields: fields(m, [][2]string{
			{"segmento", "Segmento"},
			{"produto", "Produto/Serviço"},
			{"publico_alvo|publico", "Público-alvo"},
			{"preco", "Preço"},
			{"objetivos", "Objetivos"},
		}),
	}, true
}

func researchSection(result map[string]any) (Section, bool) {
	m, ok := asMap(result[SectionResearch])
	if !ok {
		return Section{}, false
	}
	s := Section{
		Key:   SectionResearch,
		Title: "Resumo da Pesquisa",
		Fields: fields(m, [][2]string{
			{"query", "Consulta"},
			{"total_buscas", "Buscas Realizadas"},
			{"total_resultados", "Resultados Encontrados"},
			{"resumo", "Resumo"},
		}),
		Lists: lists(m, [][2]string{{"fontes", "Fontes"}}),
	}
	return s, true
}

func mentalDriversSection(result map[string]any) (Section, bool) {
	raw, ok := result[SectionMentalDriver]
	if !ok || raw == nil {
		return Section{}, false
	}
	var drivers []any
	switch v := raw.(type) {
	case []any:
		drivers = v
	case map[string]any:
		drivers, _ = v["drivers"].([]any)
	default:
		return Section{}, false
	}
	names := listItems(drivers)
	s := Section{
		Key:    SectionMentalDriver,
		Title:  "Drivers Mentais",
		Fields: []Field{{Label: "Total de Drivers", Value: fmt.Sprintf("%d", len(drivers))}},
	}
	if len(names) > 0 {
		s.Lists = []List{{Title: "Drivers", Items: names}}
	}
	return s, true
}

func avatarSection(result map[string]any) (Section, bool) {
	m, ok := asMap(result[SectionAvatar])
	if !ok {
		return Section{}, false
	}
	return Section{
		Key:   SectionAvatar,
		Title: "Avatar",
		Fields: fields(m, [][2]string{
			{"nome_persona", "Persona"},
			{"idade", "Idade"},
			{"profissao", "Profissão"},
			{"renda", "Renda"},
			{"localizacao", "Localização"},
		}),
		Lists: lists(m, [][2]string{
			{"dores_viscerais", "Dores Viscerais"},
			{"desejos_secretos", "Desejos Secretos"},
			{"objecoes_reais", "Objeções"},
		}),
	}, true
}
