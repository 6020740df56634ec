package formatter

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"sort"
	"strings"

	"github.com/fatih/color"
	"gopkg.in/yaml.v3"

	"github.com/helmcode/arqv30-client/pkg/model"
	"github.com/helmcode/arqv30-client/pkg/render"
)

// Output formats accepted by the -o flag.
const (
	FormatHuman = "human"
	FormatJSON  = "json"
	FormatYAML  = "yaml"
)

// ValidFormat reports whether format is one of the supported output formats.
func ValidFormat(format string) bool {
	switch format {
	case FormatHuman, FormatJSON, FormatYAML:
		return true
	}
	return false
}

type reportOutput struct {
	SessionID string            `json:"session_id" yaml:"session_id"`
	Cards     []render.Card     `json:"cards" yaml:"cards"`
	Sections  []render.Section  `json:"sections" yaml:"sections"`
	Artifacts []render.Artifact `json:"artifacts" yaml:"artifacts"`
	Saved     []string          `json:"saved,omitempty" yaml:"saved,omitempty"`
}

// DisplayReport formats a finished analysis. saved lists where the
// artifacts were written, if anywhere.
func DisplayReport(w io.Writer, report *render.Report, saved []string, format string) error {
	switch format {
	case FormatJSON, FormatYAML:
		return Encode(w, reportOutput{
			SessionID: report.SessionID,
			Cards:     report.Cards,
			Sections:  report.Sections,
			Artifacts: report.Artifacts,
			Saved:     saved,
		}, format)
	}

	cyan := color.New(color.FgCyan, color.Bold)
	white := color.New(color.FgWhite, color.Bold)

	fmt.Fprintln(w)
	cyan.Fprintln(w, "📊 ANALYSIS SUMMARY")
	fmt.Fprintf(w, "   Session: %s\n\n", report.SessionID)
	for _, c := range report.Cards {
		fmt.Fprintf(w, "   %-24s %s\n", c.Label+":", scoreColor(c).Sprint(c.Value))
	}
	fmt.Fprintln(w)

	for _, s := range report.Sections {
		white.Fprintf(w, "%s %s\n", sectionIcon(s.Key), strings.ToUpper(s.Title))
		for _, f := range s.Fields {
			fmt.Fprintf(w, "   %s: %s\n", f.Label, f.Value)
		}
		for _, l := range s.Lists {
			fmt.Fprintf(w, "   %s:\n", l.Title)
			for i, item := range l.Items {
				fmt.Fprintf(w, "%s\n", wrapText(fmt.Sprintf("%d. %s", i+1, item), 80, "      "))
			}
		}
		fmt.Fprintln(w)
	}

	if len(saved) > 0 {
		color.New(color.FgGreen, color.Bold).Fprintln(w, "💾 SAVED ARTIFACTS:")
		for _, loc := range saved {
			fmt.Fprintf(w, "   %s\n", color.GreenString(loc))
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintln(w, strings.Repeat("─", 80))
	fmt.Fprintf(w, "💡 %s\n", color.HiBlackString("Run with -o json or -o yaml for machine-readable output"))
	return nil
}

// FormatProgress renders a single progress line with the percentage
// clamped into [0, 100].
func FormatProgress(p model.Progress) string {
	pct := p.Percent()
	line := fmt.Sprintf("[%3.0f%%] %s", pct, p.CurrentMessage)
	if d := p.Detail(); d != "" {
		line += " (" + d + ")"
	}
	return line
}

// ProgressBar draws a fixed-width bar for the clamped percentage.
func ProgressBar(p model.Progress, width int) string {
	if width <= 0 {
		width = 30
	}
	filled := int(math.Round(p.Percent() / 100 * float64(width)))
	return "[" + strings.Repeat("█", filled) + strings.Repeat("░", width-filled) + "]"
}

// DisplayProgress formats one progress record.
func DisplayProgress(w io.Writer, sessionID string, p model.Progress, format string) error {
	switch format {
	case FormatJSON, FormatYAML:
		clamped := p
		clamped.Percentage = p.Percent()
		return Encode(w, struct {
			SessionID string         `json:"session_id" yaml:"session_id"`
			Progress  model.Progress `json:"progress" yaml:"progress"`
		}{sessionID, clamped}, format)
	}
	fmt.Fprintf(w, "%s %s\n", ProgressBar(p, 30), FormatProgress(p))
	if p.IsComplete {
		color.New(color.FgGreen).Fprintln(w, "✓ Analysis complete")
	}
	return nil
}

// DisplaySessions formats the backend's session list.
func DisplaySessions(w io.Writer, sessions []model.SessionSummary, format string) error {
	switch format {
	case FormatJSON, FormatYAML:
		if sessions == nil {
			sessions = []model.SessionSummary{}
		}
		return Encode(w, sessions, format)
	}
	if len(sessions) == 0 {
		fmt.Fprintln(w, color.HiBlackString("No saved sessions"))
		return nil
	}
	color.New(color.FgCyan, color.Bold).Fprintf(w, "🗂  SESSIONS (%d)\n", len(sessions))
	for _, s := range sessions {
		fmt.Fprintf(w, "   %s %s\n", statusColor(s.Status).Sprint(statusIcon(s.Status)), s.SessionID)
		fmt.Fprintf(w, "      %s / %s, %d etapas, %s\n", orDash(s.Segmento), orDash(s.Produto), s.EtapasSalvas, orDash(s.StartedAt))
	}
	return nil
}

// DisplayStatus formats the status of one backend session.
func DisplayStatus(w io.Writer, st *model.SessionStatus, format string) error {
	switch format {
	case FormatJSON, FormatYAML:
		return Encode(w, st, format)
	}
	statusColor(st.Status).Fprintf(w, "%s %s: %s\n", statusIcon(st.Status), st.SessionID, strings.ToUpper(orDash(st.Status)))
	if st.Segmento != "" || st.Produto != "" {
		fmt.Fprintf(w, "   Segmento: %s\n   Produto: %s\n", orDash(st.Segmento), orDash(st.Produto))
	}
	fmt.Fprintf(w, "   Ativa: %s  Salva: %s  Etapas salvas: %d\n", yesNo(st.Active), yesNo(st.Saved), st.EtapasSalvas)
	if st.StartedAt != "" {
		fmt.Fprintf(w, "   Início: %s\n", st.StartedAt)
	}
	if st.CompletedAt != "" {
		fmt.Fprintf(w, "   Conclusão: %s\n", st.CompletedAt)
	}
	if st.Error != "" {
		fmt.Fprintf(w, "   Erro: %s\n", color.RedString(st.Error))
	}
	return nil
}

// DisplayPrepitch formats a generated pre-pitch.
func DisplayPrepitch(w io.Writer, resp *model.PrepitchResponse, format string) error {
	switch format {
	case FormatJSON, FormatYAML:
		return Encode(w, resp.Prepitch, format)
	}
	color.New(color.FgMagenta, color.Bold).Fprintln(w, "🎯 PRE-PITCH INVISÍVEL")
	writeTree(w, resp.Prepitch, "   ")
	return nil
}

func writeTree(w io.Writer, m map[string]any, indent string) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		label := strings.ReplaceAll(k, "_", " ")
		switch v := m[k].(type) {
		case map[string]any:
			fmt.Fprintf(w, "%s%s:\n", indent, color.CyanString(label))
			writeTree(w, v, indent+"   ")
		case []any:
			fmt.Fprintf(w, "%s%s:\n", indent, color.CyanString(label))
			for _, item := range v {
				if sub, ok := item.(map[string]any); ok {
					writeTree(w, sub, indent+"   ")
					continue
				}
				fmt.Fprintf(w, "%s   • %v\n", indent, item)
			}
		case string:
			fmt.Fprintf(w, "%s%s:\n%s\n", indent, color.CyanString(label), wrapText(v, 80, indent+"   "))
		default:
			fmt.Fprintf(w, "%s%s: %v\n", indent, color.CyanString(label), v)
		}
	}
}

// Encode writes v as JSON or YAML.
func Encode(w io.Writer, v any, format string) error {
	if format == FormatYAML {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	}
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func scoreColor(c render.Card) *color.Color {
	if c.Key != "quality_score" && c.Key != "completeness" {
		return color.New(color.FgWhite)
	}
	switch {
	case c.Score >= 80:
		return color.New(color.FgGreen, color.Bold)
	case c.Score >= 50:
		return color.New(color.FgYellow)
	default:
		return color.New(color.FgRed)
	}
}

func sectionIcon(key string) string {
	switch key {
	case render.SectionProject:
		return "📋"
	case render.SectionResearch:
		return "🔎"
	case render.SectionMentalDriver:
		return "🧠"
	case render.SectionAvatar:
		return "👤"
	default:
		return "•"
	}
}

func statusColor(status string) *color.Color {
	switch strings.ToLower(status) {
	case "completed", "concluida", "concluído", "complete":
		return color.New(color.FgGreen)
	case "running", "active", "em_andamento", "processing":
		return color.New(color.FgCyan)
	case "failed", "error", "erro":
		return color.New(color.FgRed)
	case "paused", "pausada":
		return color.New(color.FgYellow)
	default:
		return color.New(color.FgWhite)
	}
}

func statusIcon(status string) string {
	switch strings.ToLower(status) {
	case "completed", "concluida", "concluído", "complete":
		return "🟢"
	case "running", "active", "em_andamento", "processing":
		return "🔵"
	case "failed", "error", "erro":
		return "🔴"
	case "paused", "pausada":
		return "🟡"
	default:
		return "⚪"
	}
}

func yesNo(b bool) string {
	if b {
		return "sim"
	}
	return "não"
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

func wrapText(text string, width int, indent string) string {
	var result strings.Builder
	lines := strings.Split(text, "\n")

	for _, line := range lines {
		words := strings.Fields(line)
		if len(words) == 0 {
			result.WriteString("\n")
			continue
		}

		currentLine := indent
		for _, word := range words {
			if len(currentLine)+len(word)+1 > width {
				result.WriteString(currentLine + "\n")
				currentLine = indent + word
			} else if currentLine == indent {
				currentLine += word
			} else {
				currentLine += " " + word
			}
		}

		if currentLine != indent {
			result.WriteString(currentLine + "\n")
		}
	}

	return strings.TrimSuffix(result.String(), "\n")
}
