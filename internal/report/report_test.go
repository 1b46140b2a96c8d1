package report

import (
	"testing"

	"github.com/danielpatrickdp/adaptive-context/internal/arm"
	"github.com/danielpatrickdp/adaptive-context/internal/posterior"
	"github.com/danielpatrickdp/adaptive-context/internal/trace"
)

func samplePosteriors() map[arm.ID]posterior.Posterior {
	return map[arm.ID]posterior.Posterior{
		"tool:exec:bash":           {ArmID: "tool:exec:bash", Alpha: 30, Beta: 2, Pulls: 28},
		"file:workspace:AGENTS.md": {ArmID: "file:workspace:AGENTS.md", Alpha: 2, Beta: 6, Pulls: 6},
		"skill:skill:github":       {ArmID: "skill:skill:github", Alpha: 4, Beta: 1, Pulls: 1},
	}
}

func findCheck(t *testing.T, st Status, name string) Check {
	t.Helper()
	for _, c := range st.Checks {
		if c.Name == name {
			return c
		}
	}
	t.Fatalf("check %s not found", name)
	return Check{}
}

func TestPosteriorsSortedAndLimited(t *testing.T) {
	views := Posteriors(samplePosteriors(), 2)
	if len(views) != 2 {
		t.Fatalf("expected 2 views, got %d", len(views))
	}
	if views[0].ArmID != "tool:exec:bash" || views[1].ArmID != "skill:skill:github" {
		t.Fatalf("unexpected order: %s, %s", views[0].ArmID, views[1].ArmID)
	}
	if views[0].Confidence != posterior.ConfidenceHigh {
		t.Fatalf("expected high confidence, got %s", views[0].Confidence)
	}
	if all := Posteriors(samplePosteriors(), 0); len(all) != 3 {
		t.Fatalf("expected all 3 views, got %d", len(all))
	}
}

func TestBuildHealthy(t *testing.T) {
	summary := trace.Summary{TraceCount: 40, ArmCount: 3, BaselineRuns: 5, SelectedRuns: 35, TokenSavingsPercent: 22.5}
	st := Build(samplePosteriors(), summary, Options{Learner: "context", Phase: "active", BaselineRate: 0.2, MinTracesForCoverage: 20})

	if !st.Healthy {
		t.Fatalf("expected healthy, got reason %q", st.Reason)
	}
	if st.PosteriorCount != 3 {
		t.Fatalf("expected 3 posteriors, got %d", st.PosteriorCount)
	}
	if st.RecommendedBaselineRate != 0.2 {
		t.Fatalf("expected recommended 0.2, got %v", st.RecommendedBaselineRate)
	}
	if st.Confidence[posterior.ConfidenceHigh] != 1 || st.Confidence[posterior.ConfidenceMedium] != 1 || st.Confidence[posterior.ConfidenceLow] != 1 {
		t.Fatalf("unexpected confidence buckets %v", st.Confidence)
	}
	if c := findCheck(t, st, "baseline_coverage"); c.Value != 0.125 {
		t.Fatalf("expected coverage 0.125, got %v", c.Value)
	}
}

func TestBuildFlagsMissingBaseline(t *testing.T) {
	summary := trace.Summary{TraceCount: 25, SelectedRuns: 25}
	st := Build(samplePosteriors(), summary, Options{BaselineRate: 0.01, MinTracesForCoverage: 20})

	if st.Healthy {
		t.Fatal("expected unhealthy report")
	}
	if findCheck(t, st, "baseline_rate").Pass {
		t.Fatal("baseline_rate should fail")
	}
	if findCheck(t, st, "baseline_coverage").Pass {
		t.Fatal("baseline_coverage should fail")
	}
	if st.Reason != "2 checks failed: baseline rate 0.01 below half of recommended 0.20" {
		t.Fatalf("unexpected reason %q", st.Reason)
	}
}

func TestBuildNegativeSavingsIsInformational(t *testing.T) {
	summary := trace.Summary{TraceCount: 4, BaselineRuns: 2, SelectedRuns: 2, TokenSavingsPercent: -12}
	st := Build(nil, summary, DefaultOptions())

	if !st.Healthy {
		t.Fatalf("negative savings must not fail the report: %q", st.Reason)
	}
	if findCheck(t, st, "token_savings").Pass {
		t.Fatal("token_savings check should be marked as not passing")
	}
}
