package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielpatrickdp/adaptive-context/internal/learning"
	"github.com/danielpatrickdp/adaptive-context/internal/reference"
	"github.com/danielpatrickdp/adaptive-context/internal/report"
	"github.com/danielpatrickdp/adaptive-context/internal/trace"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	configPath = ""
	statusJSON = false
	posteriorsLimit, posteriorsJSON = 20, false
	replaySince, replayLimit, replayFixture, replayDryRun = "", 0, "", false
	exportLast, exportOut = 20, ""

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func setupEnv(t *testing.T) {
	t.Helper()
	t.Setenv("CTXLEARN_STORAGE_PATH", filepath.Join(t.TempDir(), "ctx.db"))
	t.Setenv("CTXLEARN_LEARNING_PHASE", "active")
	t.Setenv("CTXLEARN_LOG_LEVEL", "error")
}

// seedTurn records one active-phase turn where bash is referenced and
// read_file is not.
func seedTurn(t *testing.T) {
	t.Helper()
	b, err := openBackend()
	require.NoError(t, err)
	defer b.Close()

	tr := b.learner().Observe(context.Background(), trace.CaptureParams{
		RunID:      "run-1",
		SessionKey: "agent:main",
		Report: trace.PromptReport{
			Tools: []trace.ToolEntry{
				{Name: "bash", SchemaChars: 400},
				{Name: "read_file", SchemaChars: 200},
			},
		},
		ToolMetas: []reference.ToolMeta{{ToolName: "bash"}},
		Usage:     &trace.Usage{Input: 1000, Output: 200},
	})
	require.NotNil(t, tr)
}

func TestLocalBackendSkipsOracleClient(t *testing.T) {
	setupEnv(t)
	t.Setenv("CTXLEARN_ORACLE_ADDR", "127.0.0.1:50551")

	local, err := openLocalBackend()
	require.NoError(t, err)
	assert.Nil(t, local.oracle)
	assert.NotNil(t, local.store)
	local.Close()

	full, err := openBackend()
	require.NoError(t, err)
	defer full.Close()
	assert.NotNil(t, full.oracle)
}

func TestPosteriorsJSON(t *testing.T) {
	setupEnv(t)
	seedTurn(t)

	out, err := runCLI(t, "posteriors", "--json")
	require.NoError(t, err)

	var views []report.PosteriorView
	require.NoError(t, json.Unmarshal([]byte(out), &views))
	require.Len(t, views, 2)
	assert.Equal(t, "tool:exec:bash", string(views[0].ArmID))
	assert.Equal(t, 4.0, views[0].Alpha)
}

func TestPosteriorsTableEmpty(t *testing.T) {
	setupEnv(t)
	out, err := runCLI(t, "posteriors")
	require.NoError(t, err)
	assert.Contains(t, out, "no posteriors recorded")
}

func TestRewardAndReset(t *testing.T) {
	setupEnv(t)
	seedTurn(t)

	out, err := runCLI(t, "reward", "bash", "0")
	require.NoError(t, err)
	assert.Contains(t, out, "tool:exec:bash: alpha=4.00 beta=2.00 pulls=2")

	_, err = runCLI(t, "reward", "bash", "yes")
	assert.ErrorContains(t, err, "reward must be 0 or 1")

	out, err = runCLI(t, "reset", "tool:exec:bash")
	require.NoError(t, err)
	assert.Contains(t, out, "Reset 1 posterior(s) (tool:exec:bash)")

	out, err = runCLI(t, "reset")
	require.NoError(t, err)
	assert.Contains(t, out, "Reset 2 posterior(s) (all arms)")
}

func TestStatusText(t *testing.T) {
	setupEnv(t)
	seedTurn(t)

	out, err := runCLI(t, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Learner:     context (phase active, oracle local fallback)")
	assert.Contains(t, out, "Traces:      1 (baseline 0, selected 1), 2 distinct arms")
	assert.Contains(t, out, "tool:exec:bash")
	assert.Contains(t, out, "Status: ")
}

func TestStatusJSON(t *testing.T) {
	setupEnv(t)
	seedTurn(t)

	out, err := runCLI(t, "status", "--json")
	require.NoError(t, err)

	var st report.Status
	require.NoError(t, json.Unmarshal([]byte(out), &st))
	assert.Equal(t, 2, st.PosteriorCount)
	assert.Equal(t, 1, st.Traces.TraceCount)
	assert.Equal(t, int64(1200), st.Traces.TotalTokens)
}

func TestReplayDryRunLeavesStoreUntouched(t *testing.T) {
	setupEnv(t)
	seedTurn(t)

	out, err := runCLI(t, "replay", "--dry-run")
	require.NoError(t, err)
	assert.Contains(t, out, "Summary: 1 total, 1 applied, 0 gated, 0 failed (0 updated, 2 created)")

	out, err = runCLI(t, "posteriors", "--json")
	require.NoError(t, err)
	var views []report.PosteriorView
	require.NoError(t, json.Unmarshal([]byte(out), &views))
	assert.Equal(t, 1, views[0].Pulls)
}

func TestReplayNoTraces(t *testing.T) {
	setupEnv(t)
	out, err := runCLI(t, "replay", "--since", "24h")
	require.NoError(t, err)
	assert.Contains(t, out, "no traces found")
}

func TestReplayFixture(t *testing.T) {
	out, err := runCLI(t, "replay", "--fixture", filepath.Join("..", "replay", "testdata", "session.json"))
	require.NoError(t, err)
	assert.Contains(t, out, "0 diverge")
}

func TestReplayExportThenFixture(t *testing.T) {
	setupEnv(t)
	seedTurn(t)

	path := filepath.Join(t.TempDir(), "fixture.json")
	out, err := runCLI(t, "replay", "export", "--out", path)
	require.NoError(t, err)
	assert.Contains(t, out, "(1 traces, 2 posteriors)")

	out, err = runCLI(t, "replay", "--fixture", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Summary: 3 checks, 3 match, 0 diverge")
}

func TestUnreachableStorage(t *testing.T) {
	t.Setenv("CTXLEARN_STORAGE_PATH", filepath.Join(t.TempDir(), "missing", "dir", "ctx.db"))
	t.Setenv("CTXLEARN_LOG_LEVEL", "error")

	_, err := runCLI(t, "status")
	require.Error(t, err)
	assert.ErrorIs(t, err, learning.ErrBackendUnreachable)
	assert.Contains(t, err.Error(), "gateway or backend not reachable")
}

func TestInvalidConfig(t *testing.T) {
	t.Setenv("CTXLEARN_LEARNING_PHASE", "eager")
	_, err := runCLI(t, "status")
	assert.ErrorContains(t, err, "config validation failed")
}

func TestParseSince(t *testing.T) {
	now := time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC)

	got, err := parseSince("", now)
	require.NoError(t, err)
	assert.True(t, got.IsZero())

	got, err = parseSince("2h", now)
	require.NoError(t, err)
	assert.Equal(t, now.Add(-2*time.Hour), got)

	got, err = parseSince("2026-05-01T08:00:00Z", now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC), got)

	got, err = parseSince("2026-05-01", now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC), got)

	_, err = parseSince("yesterday", now)
	assert.Error(t, err)
}

func TestParseReward(t *testing.T) {
	r, err := parseReward("1")
	require.NoError(t, err)
	assert.Equal(t, 1.0, r)

	r, err = parseReward("0")
	require.NoError(t, err)
	assert.Equal(t, 0.0, r)

	_, err = parseReward("0.5")
	assert.Error(t, err)
}

func TestFirstNonEmpty(t *testing.T) {
	assert.Equal(t, "b", firstNonEmpty("", "b", "c"))
	assert.Equal(t, "", firstNonEmpty("", ""))
}

func TestVersion(t *testing.T) {
	out, err := runCLI(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "ctxlearn version dev")
}
