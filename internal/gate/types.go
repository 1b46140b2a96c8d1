package gate

import "fmt"

// #region phase
// Phase is the learning phase. Passive observes only; active updates
// posteriors and lets the selector exclude arms.
type Phase string

const (
	PhasePassive Phase = "passive"
	PhaseActive  Phase = "active"
)

// ParsePhase accepts "passive" or "active".
func ParsePhase(s string) (Phase, error) {
	switch Phase(s) {
	case PhasePassive, PhaseActive:
		return Phase(s), nil
	}
	return "", fmt.Errorf("unknown phase %q", s)
}

// #endregion phase

// #region veto-type
// VetoType enumerates the reasons a trace is kept out of posterior updates.
type VetoType string

const (
	VetoPassivePhase VetoType = "passive_phase"
	VetoAborted      VetoType = "aborted"
	VetoRunError     VetoType = "run_error"
	VetoBaseline     VetoType = "baseline"
)

// #endregion veto-type

// #region veto-signal
// VetoSignal represents a detected veto condition.
type VetoSignal struct {
	Type   VetoType
	Reason string
}

// #endregion veto-signal

// #region gate-config
// GateConfig controls which traces may update posteriors.
type GateConfig struct {
	Phase Phase
	// UpdateOnBaseline lets baseline runs feed posteriors.
	UpdateOnBaseline bool
}

// DefaultGateConfig starts in the passive observation window.
func DefaultGateConfig() GateConfig {
	return GateConfig{
		Phase:            PhasePassive,
		UpdateOnBaseline: true,
	}
}

// #endregion gate-config

// #region gate-decision
// GateDecision is the output of the gate evaluation.
type GateDecision struct {
	Action      string // "apply" | "skip"
	Reason      string
	Vetoed      bool
	VetoSignals []VetoSignal // in check order; non-empty if vetoed
}

// #endregion gate-decision
