package gate

import (
	"fmt"

	"github.com/danielpatrickdp/adaptive-context/internal/trace"
)

// #region gate
// Gate decides whether a trace carries a usable reward signal.
type Gate struct {
	config GateConfig
}

// NewGate creates a gate with the given configuration.
func NewGate(config GateConfig) *Gate {
	return &Gate{config: config}
}

// Config returns the gate configuration.
func (g *Gate) Config() GateConfig {
	return g.config
}

// Evaluate runs every veto check in order. The first veto becomes the reason.
func (g *Gate) Evaluate(tr trace.RunTrace) GateDecision {
	var vetoes []VetoSignal

	// 1. Passive phase only observes
	if g.config.Phase != PhaseActive {
		vetoes = append(vetoes, VetoSignal{
			Type:   VetoPassivePhase,
			Reason: fmt.Sprintf("phase is %q", g.config.Phase),
		})
	}

	// 2. Incomplete turn
	if tr.Aborted {
		vetoes = append(vetoes, VetoSignal{
			Type:   VetoAborted,
			Reason: "run was aborted",
		})
	}

	// 3. Errored turn
	if tr.Error != "" {
		vetoes = append(vetoes, VetoSignal{
			Type:   VetoRunError,
			Reason: fmt.Sprintf("run failed: %s", tr.Error),
		})
	}

	// 4. Baseline holdout, when configured to stay out of training
	if tr.IsBaseline && !g.config.UpdateOnBaseline {
		vetoes = append(vetoes, VetoSignal{
			Type:   VetoBaseline,
			Reason: "baseline runs do not update posteriors",
		})
	}

	if len(vetoes) > 0 {
		return GateDecision{
			Action:      "skip",
			Reason:      fmt.Sprintf("veto: %s", vetoes[0].Reason),
			Vetoed:      true,
			VetoSignals: vetoes,
		}
	}

	return GateDecision{
		Action: "apply",
		Reason: fmt.Sprintf("passed gate: %d arms", len(tr.Arms)),
	}
}

// #endregion gate
