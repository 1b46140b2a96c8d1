package trace

import (
	"time"

	"github.com/google/uuid"

	"github.com/danielpatrickdp/adaptive-context/internal/arm"
	"github.com/danielpatrickdp/adaptive-context/internal/reference"
)

// #region extract-arms
// ExtractArms derives the turn's candidate arms from the prompt report. Missing
// files are skipped and duplicate ids keep their first occurrence.
func ExtractArms(report PromptReport) []arm.Arm {
	var arms []arm.Arm
	seen := make(map[arm.ID]struct{})
	add := func(a arm.Arm) {
		if _, ok := seen[a.ID]; ok {
			return
		}
		seen[a.ID] = struct{}{}
		arms = append(arms, a)
	}

	for _, t := range report.Tools {
		if t.Name == "" {
			continue
		}
		add(arm.ToolArm(t.Name, t.Category, t.SchemaChars))
	}
	for _, s := range report.Skills {
		if s.Name == "" {
			continue
		}
		add(arm.SkillArm(s.Name, s.BlockChars))
	}
	for _, f := range report.Files {
		if f.Missing {
			continue
		}
		p := f.Path
		if p == "" {
			p = f.Name
		}
		if p == "" {
			continue
		}
		add(arm.FileArm(p, f.InjectedChars))
	}
	for _, m := range report.Memory {
		if m.ID == "" {
			continue
		}
		add(arm.MemoryArm(m.Source, m.ID, m.Snippet, m.Chars))
	}
	for _, s := range report.Sections {
		if s.Name == "" {
			continue
		}
		add(arm.SectionArm(s.Name, s.Chars))
	}
	return arms
}

// #endregion extract-arms

// #region capturer
// Capturer turns finished turns into RunTraces.
type Capturer struct {
	detector *reference.Detector
	newID    func() string
}

// NewCapturer creates a capturer. A nil detector uses the default thresholds.
func NewCapturer(detector *reference.Detector) *Capturer {
	if detector == nil {
		detector = reference.NewDetector(reference.DefaultConfig())
	}
	return &Capturer{detector: detector, newID: uuid.NewString}
}

var defaultCapturer = NewCapturer(nil)

// CaptureRunTrace captures with the default detector.
func CaptureRunTrace(params CaptureParams) RunTrace {
	return defaultCapturer.Capture(params)
}

// Capture builds a RunTrace. Every extracted arm is marked included; arms in
// params.Excluded are recorded as not included and never referenced.
func (c *Capturer) Capture(params CaptureParams) RunTrace {
	now := params.Now
	if now.IsZero() {
		now = time.Now()
	}

	extracted := ExtractArms(params.Report)
	outcomes := make([]ArmOutcome, 0, len(extracted)+len(params.Excluded))
	seen := make(map[arm.ID]struct{}, len(extracted))
	for _, a := range extracted {
		seen[a.ID] = struct{}{}
		outcomes = append(outcomes, ArmOutcome{
			ArmID:      a.ID,
			Included:   true,
			Referenced: c.detector.Detect(a.ID, a.Type, a.Label, params.AssistantTexts, params.ToolMetas),
			TokenCost:  a.TokenCost,
		})
	}
	for _, a := range params.Excluded {
		if _, ok := seen[a.ID]; ok {
			continue
		}
		seen[a.ID] = struct{}{}
		outcomes = append(outcomes, ArmOutcome{ArmID: a.ID, TokenCost: a.TokenCost})
	}

	selCtx := params.Context
	if selCtx.SessionKey == "" && selCtx.Channel == "" && selCtx.Provider == "" && selCtx.Model == "" && selCtx.PromptLength == 0 {
		selCtx = SelectionContext{
			SessionKey:   params.SessionKey,
			Channel:      params.Channel,
			Provider:     params.Provider,
			Model:        params.Model,
			PromptLength: params.Report.SystemPromptChars,
		}
	}

	return RunTrace{
		TraceID:           c.newID(),
		RunID:             params.RunID,
		SessionID:         params.SessionID,
		SessionKey:        params.SessionKey,
		Timestamp:         now.UTC(),
		Provider:          params.Provider,
		Model:             params.Model,
		Channel:           params.Channel,
		IsBaseline:        params.IsBaseline,
		Context:           selCtx,
		Arms:              outcomes,
		Usage:             params.Usage,
		DurationMs:        params.DurationMs,
		SystemPromptChars: params.Report.SystemPromptChars,
		Aborted:           params.Aborted,
		Error:             params.Error,
	}
}

// #endregion capturer

// #region capture-and-store
// Appender persists traces. *Log implements it.
type Appender interface {
	Append(tr RunTrace) error
}

// CaptureAndStore captures a trace and appends it. The trace is returned even
// when the append fails so callers can still log what was lost.
func (c *Capturer) CaptureAndStore(log Appender, params CaptureParams) (RunTrace, error) {
	tr := c.Capture(params)
	if err := log.Append(tr); err != nil {
		return tr, err
	}
	return tr, nil
}

// #endregion capture-and-store
