// Package oracle is the gRPC contract for an external decision oracle. Messages
// travel as google.protobuf.Struct so no generated stubs are needed; the JSON
// field names below are the wire contract.
package oracle

import (
	"errors"

	"github.com/danielpatrickdp/adaptive-context/internal/arm"
	"github.com/danielpatrickdp/adaptive-context/internal/trace"
)

// #region service-names
const (
	ServiceName   = "adaptivecontext.v1.DecisionOracle"
	SelectMethod  = "/" + ServiceName + "/Select"
	ObserveMethod = "/" + ServiceName + "/Observe"
)

// ErrInvalidRequest marks handler errors caused by bad input.
var ErrInvalidRequest = errors.New("invalid oracle request")

// #endregion service-names

// #region select
// Candidate is one arm offered for selection.
type Candidate struct {
	ID        string         `json:"id"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	TokenCost int            `json:"token_cost"`
}

// SelectRequest asks the oracle to partition candidates. TokenBudget 0 is
// unlimited; K 0 means no cap on the number selected.
type SelectRequest struct {
	Learner     string                 `json:"learner"`
	Candidates  []Candidate            `json:"candidates"`
	Context     trace.SelectionContext `json:"context"`
	K           int                    `json:"k"`
	TokenBudget int                    `json:"token_budget"`
}

// SelectResponse is the oracle's partition.
type SelectResponse struct {
	SelectedArms []string           `json:"selected_arms"`
	ExcludedArms []string           `json:"excluded_arms"`
	IsBaseline   bool               `json:"is_baseline"`
	Scores       map[string]float64 `json:"scores,omitempty"`
	TokenBudget  int                `json:"token_budget"`
	UsedTokens   int                `json:"used_tokens"`
}

// CandidatesFromArms converts arms to wire candidates.
func CandidatesFromArms(arms []arm.Arm) []Candidate {
	out := make([]Candidate, 0, len(arms))
	for _, a := range arms {
		out = append(out, Candidate{
			ID: string(a.ID),
			Metadata: map[string]any{
				"type":     string(a.Type),
				"category": a.Category,
				"label":    a.Label,
			},
			TokenCost: a.TokenCost,
		})
	}
	return out
}

// #endregion select

// #region observe
// Outcome is what happened to an arm in a finished run.
type Outcome struct {
	Included   bool `json:"included"`
	Referenced bool `json:"referenced"`
}

// ObserveRequest reports one arm's reward.
type ObserveRequest struct {
	Learner string                 `json:"learner"`
	ArmID   string                 `json:"arm_id"`
	Outcome Outcome                `json:"outcome"`
	Reward  float64                `json:"reward"`
	Context trace.SelectionContext `json:"context"`
}

// ObserveResponse is the oracle's posterior after the observation.
type ObserveResponse struct {
	ArmID string  `json:"arm_id"`
	Alpha float64 `json:"alpha"`
	Beta  float64 `json:"beta"`
	Mean  float64 `json:"mean"`
	Pulls int     `json:"pulls"`
}

// #endregion observe
