package trace

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielpatrickdp/adaptive-context/internal/arm"
	"github.com/danielpatrickdp/adaptive-context/internal/reference"
)

func sampleReport() PromptReport {
	return PromptReport{
		SystemPromptChars: 12000,
		Tools: []ToolEntry{
			{Name: "bash", SchemaChars: 401},
			{Name: "read_file", Category: "fs", SchemaChars: 200},
		},
		Skills: []SkillEntry{{Name: "github", BlockChars: 800}},
		Files: []FileEntry{
			{Name: "AGENTS.md", Path: "docs/AGENTS.md", RawChars: 9000, InjectedChars: 4000},
			{Name: "MISSING.md", Missing: true},
		},
		Memory:   []MemoryEntry{{ID: "m1", Snippet: "prefers green tea", Chars: 17}},
		Sections: []SectionEntry{{Name: "safety", Chars: 120}},
	}
}

func TestExtractArms(t *testing.T) {
	arms := ExtractArms(sampleReport())

	var ids []arm.ID
	for _, a := range arms {
		ids = append(ids, a.ID)
	}
	assert.Equal(t, []arm.ID{
		"tool:exec:bash",
		"tool:fs:read_file",
		"skill:skill:github",
		"file:workspace:docs/AGENTS.md",
		"memory:memory:m1",
		"section:prompt:safety",
	}, ids)

	// Costs follow each component's own accounting.
	assert.Equal(t, 101, arms[0].TokenCost)
	assert.Equal(t, 200, arms[2].TokenCost)
	assert.Equal(t, 1000, arms[3].TokenCost, "injected chars, not raw chars")
	assert.Equal(t, "AGENTS.md", arms[3].Label)
}

func TestExtractArmsDedupesAndSkipsBlank(t *testing.T) {
	arms := ExtractArms(PromptReport{
		Tools: []ToolEntry{{Name: "bash", SchemaChars: 40}, {Name: "bash", SchemaChars: 80}, {Name: ""}},
		Files: []FileEntry{{Name: "", Path: ""}},
	})
	require.Len(t, arms, 1)
	assert.Equal(t, 10, arms[0].TokenCost, "first occurrence wins")
}

func TestCaptureRunTraceMarksReferences(t *testing.T) {
	ts := time.Date(2026, 7, 1, 8, 0, 0, 0, time.FixedZone("X", 3600))
	tr := CaptureRunTrace(CaptureParams{
		RunID:          "run-1",
		SessionID:      "sess-1",
		SessionKey:     "agent:main",
		Provider:       "anthropic",
		Model:          "sonnet",
		Channel:        "cli",
		Report:         sampleReport(),
		AssistantTexts: []string{"Following AGENTS.md, I opened the PR with GitHub."},
		ToolMetas:      []reference.ToolMeta{{ToolName: "bash", Meta: "git push"}},
		Usage:          &Usage{Input: 900, Output: 100},
		Now:            ts,
	})

	assert.NotEmpty(t, tr.TraceID)
	assert.Equal(t, ts.UTC(), tr.Timestamp)
	assert.Equal(t, 12000, tr.SystemPromptChars)
	assert.Equal(t, SelectionContext{
		SessionKey: "agent:main", Channel: "cli", Provider: "anthropic", Model: "sonnet", PromptLength: 12000,
	}, tr.Context)

	got := map[arm.ID]ArmOutcome{}
	for _, o := range tr.Arms {
		assert.True(t, o.Included)
		got[o.ArmID] = o
	}
	assert.True(t, got["tool:exec:bash"].Referenced)
	assert.False(t, got["tool:fs:read_file"].Referenced)
	assert.True(t, got["skill:skill:github"].Referenced)
	assert.True(t, got["file:workspace:docs/AGENTS.md"].Referenced)
	assert.False(t, got["memory:memory:m1"].Referenced)
	assert.True(t, got["section:prompt:safety"].Referenced)
}

func TestCaptureRecordsExcludedArms(t *testing.T) {
	excluded := arm.ToolArm("web_search", "", 300)
	tr := CaptureRunTrace(CaptureParams{
		Report:         PromptReport{Tools: []ToolEntry{{Name: "bash", SchemaChars: 40}}},
		Excluded:       []arm.Arm{excluded, arm.ToolArm("bash", "", 40)},
		AssistantTexts: []string{"web_search would help"},
		ToolMetas:      []reference.ToolMeta{{ToolName: "web_search"}},
	})

	require.Len(t, tr.Arms, 2)
	assert.Equal(t, ArmOutcome{ArmID: "tool:web:web_search", Included: false, Referenced: false, TokenCost: 75}, tr.Arms[1])
}

func TestCaptureKeepsExplicitContext(t *testing.T) {
	ctx := SelectionContext{SessionKey: "k", PromptLength: 5, FeatureVector: []float64{0.1, 0.2}}
	tr := CaptureRunTrace(CaptureParams{SessionKey: "other", Context: ctx})
	assert.Equal(t, ctx, tr.Context)
}

func TestCaptureUniqueIDs(t *testing.T) {
	a := CaptureRunTrace(CaptureParams{})
	b := CaptureRunTrace(CaptureParams{})
	assert.NotEqual(t, a.TraceID, b.TraceID)
}

type memAppender struct {
	traces []RunTrace
	err    error
}

func (m *memAppender) Append(tr RunTrace) error {
	if m.err != nil {
		return m.err
	}
	m.traces = append(m.traces, tr)
	return nil
}

func TestCaptureAndStore(t *testing.T) {
	app := &memAppender{}
	c := NewCapturer(reference.NewDetector(reference.DefaultConfig()))

	tr, err := c.CaptureAndStore(app, CaptureParams{RunID: "r1"})
	require.NoError(t, err)
	require.Len(t, app.traces, 1)
	assert.Equal(t, tr.TraceID, app.traces[0].TraceID)

	app.err = assert.AnError
	tr, err = c.CaptureAndStore(app, CaptureParams{RunID: "r2"})
	require.ErrorIs(t, err, assert.AnError)
	assert.Equal(t, "r2", tr.RunID)
}

func TestUsageTotalTokens(t *testing.T) {
	var nilUsage *Usage
	assert.Equal(t, 0, nilUsage.TotalTokens())
	assert.Equal(t, 30, (&Usage{Input: 10, Output: 20}).TotalTokens())
	assert.Equal(t, 99, (&Usage{Input: 10, Output: 20, Total: 99}).TotalTokens())
}
