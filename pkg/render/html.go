package render

import (
	"bytes"
	"fmt"
	"html/template"
)

var previewTmpl = template.Must(template.New("preview").Parse(`<div class="analysis-preview" data-session="{{.SessionID}}">
<div class="quality-cards">
{{- range .Cards}}
<div class="quality-card" data-key="{{.Key}}"><span class="label">{{.Label}}</span><span class="value">{{.Value}}</span></div>
{{- end}}
</div>
{{- range .Sections}}
<section class="summary-section" data-key="{{.Key}}">
<h3>{{.Title}}</h3>
{{- range .Fields}}
<p><strong>{{.Label}}:</strong> {{.Value}}</p>
{{- end}}
{{- range .Lists}}
<h4>{{.Title}}</h4>
<ul>
{{- range .Items}}
<li>{{.}}</li>
{{- end}}
</ul>
{{- end}}
</section>
{{- end}}
</div>
`))

var documentTmpl = template.Must(template.New("document").Parse(`<!DOCTYPE html>
<html lang="pt-BR">
<head>
<meta charset="UTF-8">
<title>Relatório ARQV30 - {{.SessionID}}</title>
<style>
body { font-family: Arial, sans-serif; margin: 20px; }
.quality-cards { display: flex; gap: 12px; flex-wrap: wrap; }
.quality-card { border: 1px solid #ddd; padding: 10px; }
.summary-section { margin: 20px 0; padding: 15px; border: 1px solid #ddd; }
</style>
</head>
<body>
<h1>Relatório Estratégico ARQV30</h1>
<p>Sessão: {{.SessionID}}</p>
{{.Preview}}
</body>
</html>
`))

func renderPreview(r *Report) (string, error) {
	var buf bytes.Buffer
	if err := previewTmpl.Execute(&buf, r); err != nil {
		return "", fmt.Errorf("render preview: %w", err)
	}
	return buf.String(), nil
}

func renderDocument(r *Report) (string, error) {
	var buf bytes.Buffer
	data := struct {
		SessionID string
		Preview   template.HTML
	}{
		SessionID: r.SessionID,
		// The preview was produced by html/template and is already escaped.
		Preview: template.HTML(r.PreviewHTML),
	}
	if err := documentTmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render document: %w", err)
	}
	return buf.String(), nil
}
