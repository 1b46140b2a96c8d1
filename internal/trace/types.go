package trace

import (
	"time"

	"github.com/danielpatrickdp/adaptive-context/internal/arm"
	"github.com/danielpatrickdp/adaptive-context/internal/reference"
)

// #region selection-context
// SelectionContext is per-turn metadata kept for future contextual policies.
type SelectionContext struct {
	SessionKey    string    `json:"session_key,omitempty"`
	Channel       string    `json:"channel,omitempty"`
	Provider      string    `json:"provider,omitempty"`
	Model         string    `json:"model,omitempty"`
	PromptLength  int       `json:"prompt_length"`
	FeatureVector []float64 `json:"feature_vector,omitempty"`
}

// #endregion selection-context

// #region run-trace
// ArmOutcome records what happened to one candidate arm. Referenced is only
// meaningful when Included is true.
type ArmOutcome struct {
	ArmID      arm.ID `json:"arm_id"`
	Included   bool   `json:"included"`
	Referenced bool   `json:"referenced"`
	TokenCost  int    `json:"token_cost"`
}

// Usage is the provider-reported token usage for a turn.
type Usage struct {
	Input      int `json:"input"`
	Output     int `json:"output"`
	CacheRead  int `json:"cache_read,omitempty"`
	CacheWrite int `json:"cache_write,omitempty"`
	Total      int `json:"total,omitempty"`
}

// TotalTokens returns Total when reported, otherwise Input + Output.
func (u *Usage) TotalTokens() int {
	if u == nil {
		return 0
	}
	if u.Total > 0 {
		return u.Total
	}
	return u.Input + u.Output
}

// RunTrace is the immutable record of one completed or aborted turn.
type RunTrace struct {
	TraceID           string           `json:"trace_id"`
	RunID             string           `json:"run_id"`
	SessionID         string           `json:"session_id"`
	SessionKey        string           `json:"session_key,omitempty"`
	Timestamp         time.Time        `json:"timestamp"`
	Provider          string           `json:"provider,omitempty"`
	Model             string           `json:"model,omitempty"`
	Channel           string           `json:"channel,omitempty"`
	IsBaseline        bool             `json:"is_baseline"`
	Context           SelectionContext `json:"context"`
	Arms              []ArmOutcome     `json:"arms"`
	Usage             *Usage           `json:"usage,omitempty"`
	DurationMs        int64            `json:"duration_ms,omitempty"`
	SystemPromptChars int              `json:"system_prompt_chars"`
	Aborted           bool             `json:"aborted"`
	Error             string           `json:"error,omitempty"`
}

// #endregion run-trace

// #region prompt-report
// PromptReport is the host's account of the assembled system prompt. Char
// counts are what each component actually spent, not raw source sizes.
type PromptReport struct {
	SystemPromptChars int
	Tools             []ToolEntry
	Skills            []SkillEntry
	Files             []FileEntry
	Memory            []MemoryEntry
	Sections          []SectionEntry
}

// ToolEntry is one tool exposed to the model.
type ToolEntry struct {
	Name string
	// Category is optional; empty categories are inferred from the name.
	Category     string
	SchemaChars  int
	SummaryChars int
}

// SkillEntry is one skill block loaded into the prompt.
type SkillEntry struct {
	Name       string
	BlockChars int
}

// FileEntry is one workspace file injected into the prompt.
type FileEntry struct {
	Name          string
	Path          string
	RawChars      int
	InjectedChars int
	Missing       bool
}

// MemoryEntry is one retrieved memory chunk.
type MemoryEntry struct {
	ID      string
	Source  string
	Snippet string
	Chars   int
}

// SectionEntry is one structural prompt section.
type SectionEntry struct {
	Name  string
	Chars int
}

// #endregion prompt-report

// #region capture-params
// CaptureParams bundles everything known about a finished turn.
type CaptureParams struct {
	RunID      string
	SessionID  string
	SessionKey string
	Provider   string
	Model      string
	Channel    string
	IsBaseline bool
	// Context defaults to one derived from the fields above when zero.
	Context SelectionContext
	Report  PromptReport
	// Excluded lists arms the selector left out of the prompt.
	Excluded       []arm.Arm
	AssistantTexts []string
	ToolMetas      []reference.ToolMeta
	Usage          *Usage
	DurationMs     int64
	Aborted        bool
	Error          string
	// Now overrides the trace timestamp; zero means time.Now().
	Now time.Time
}

// #endregion capture-params

// #region summary
// Summary aggregates the trace log for status reporting.
type Summary struct {
	TraceCount          int       `json:"trace_count"`
	ArmCount            int       `json:"arm_count"`
	InputTokens         int64     `json:"input_tokens"`
	OutputTokens        int64     `json:"output_tokens"`
	TotalTokens         int64     `json:"total_tokens"`
	FirstTimestamp      time.Time `json:"first_timestamp"`
	LastTimestamp       time.Time `json:"last_timestamp"`
	BaselineRuns        int       `json:"baseline_runs"`
	SelectedRuns        int       `json:"selected_runs"`
	BaselineAvgTokens   float64   `json:"baseline_avg_tokens"`
	SelectedAvgTokens   float64   `json:"selected_avg_tokens"`
	TokenSavingsPercent float64   `json:"token_savings_percent"`
}

// #endregion summary
