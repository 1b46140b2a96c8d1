package selector

import (
	"context"
	"time"

	"github.com/danielpatrickdp/adaptive-context/internal/arm"
	"github.com/danielpatrickdp/adaptive-context/internal/oracle"
)

// #region oracle
// Oracle is the remote decision service. *oracle.Client implements it.
type Oracle interface {
	Select(ctx context.Context, req oracle.SelectRequest) (oracle.SelectResponse, error)
}

// #endregion oracle

// #region config
// Config controls budgeted selection.
type Config struct {
	Learner string
	// TokenBudget 0 is unlimited.
	TokenBudget int
	// K caps how many arms the oracle may select. 0 means no cap.
	K int
	// ExplorationFloor force-includes arms with fewer than MinPulls pulls.
	ExplorationFloor bool
	MinPulls         int
	// Timeout bounds the oracle call.
	Timeout time.Duration
}

// DefaultConfig returns an unlimited budget with a 2s oracle timeout.
func DefaultConfig() Config {
	return Config{
		Learner:  "context",
		MinPulls: 5,
		Timeout:  2 * time.Second,
	}
}

// #endregion config

// #region result
// Result partitions the candidates.
type Result struct {
	SelectedArms     []arm.ID
	ExcludedArms     []arm.ID
	IsBaseline       bool
	TotalTokenBudget int
	UsedTokens       int
	Scores           map[arm.ID]float64
	// Path is the decision path: oracle, fallback or baseline.
	Path string
	// Forced lists arms moved in by the exploration floor.
	Forced []arm.ID
}

// Included reports whether id was selected.
func (r Result) Included(id arm.ID) bool {
	for _, s := range r.SelectedArms {
		if s == id {
			return true
		}
	}
	return false
}

// #endregion result
