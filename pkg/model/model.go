package model

// Form is a flat snapshot of the analysis form fields.
type Form map[string]string

// Clone returns a copy of the form that can be mutated independently.
func (f Form) Clone() Form {
	out := make(Form, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

// Progress is the status payload returned by the progress endpoint.
type Progress struct {
	Percentage      float64 `json:"percentage" yaml:"percentage"`
	CurrentMessage  string  `json:"current_message" yaml:"current_message"`
	DetailedMessage *string `json:"detailed_message" yaml:"detailed_message,omitempty"`
	IsComplete      bool    `json:"is_complete" yaml:"is_complete"`
}

// Percent returns the percentage clamped into [0, 100].
func (p Progress) Percent() float64 {
	switch {
	case p.Percentage != p.Percentage: // NaN
		return 0
	case p.Percentage < 0:
		return 0
	case p.Percentage > 100:
		return 100
	default:
		return p.Percentage
	}
}

// Detail returns the detailed message or an empty string.
func (p Progress) Detail() string {
	if p.DetailedMessage == nil {
		return ""
	}
	return *p.DetailedMessage
}

// AnalysisResponse is the body returned by the unified analysis endpoint.
type AnalysisResponse struct {
	Success        bool           `json:"success"`
	AnalysisResult map[string]any `json:"analysis_result,omitempty"`
	HTMLReport     string         `json:"html_report,omitempty"`
	Error          string         `json:"error,omitempty"`
	ProcessingInfo map[string]any `json:"processing_info,omitempty"`
	QualityMetrics map[string]any `json:"quality_metrics,omitempty"`
}

// PrepitchRequest is the body sent to the invisible pre-pitch generator.
type PrepitchRequest struct {
	AvatarData     map[string]any `json:"avatar_data"`
	PitchStructure string         `json:"pitch_structure"`
	TargetEmotion  string         `json:"target_emotion"`
}

// PrepitchResponse is the body returned by the pre-pitch generator.
type PrepitchResponse struct {
	Success  bool           `json:"success"`
	Prepitch map[string]any `json:"prepitch,omitempty" yaml:"prepitch,omitempty"`
	Error    string         `json:"error,omitempty" yaml:"error,omitempty"`
}

// SessionSummary is one entry of the backend's saved session list.
type SessionSummary struct {
	SessionID    string `json:"session_id" yaml:"session_id"`
	Segmento     string `json:"segmento" yaml:"segmento"`
	Produto      string `json:"produto" yaml:"produto"`
	StartedAt    string `json:"started_at" yaml:"started_at"`
	EtapasSalvas int    `json:"etapas_salvas" yaml:"etapas_salvas"`
	Status       string `json:"status" yaml:"status"`
}

// SessionStatus describes a single backend session.
type SessionStatus struct {
	SessionID    string `json:"session_id" yaml:"session_id"`
	Status       string `json:"status" yaml:"status"`
	Active       bool   `json:"active" yaml:"active"`
	Saved        bool   `json:"saved" yaml:"saved"`
	EtapasSalvas int    `json:"etapas_salvas" yaml:"etapas_salvas"`
	StartedAt    string `json:"started_at,omitempty" yaml:"started_at,omitempty"`
	CompletedAt  string `json:"completed_at,omitempty" yaml:"completed_at,omitempty"`
	Error        string `json:"error,omitempty" yaml:"error,omitempty"`
	Segmento     string `json:"segmento,omitempty" yaml:"segmento,omitempty"`
	Produto      string `json:"produto,omitempty" yaml:"produto,omitempty"`
}

// SessionResults holds the components the backend saved for a session,
// keyed by component name.
type SessionResults struct {
	SessionID       string         `json:"session_id" yaml:"session_id"`
	Results         map[string]any `json:"results" yaml:"results"`
	ComponentsCount int            `json:"components_count" yaml:"components_count"`
}
