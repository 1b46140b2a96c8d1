package posterior

import (
	"errors"
	"time"

	"github.com/danielpatrickdp/adaptive-context/internal/arm"
)

// #region posterior
// Posterior is the Beta(Alpha, Beta) belief that an arm is useful when included.
type Posterior struct {
	ArmID       arm.ID    `json:"arm_id"`
	Alpha       float64   `json:"alpha"`
	Beta        float64   `json:"beta"`
	Pulls       int       `json:"pulls"`
	LastUpdated time.Time `json:"last_updated"`
}

// Mean is alpha / (alpha + beta).
func (p Posterior) Mean() float64 {
	if p.Alpha+p.Beta == 0 {
		return 0.5
	}
	return p.Alpha / (p.Alpha + p.Beta)
}

// Uniform returns the Beta(1,1) reset state for id.
func Uniform(id arm.ID, now time.Time) Posterior {
	return Posterior{ArmID: id, Alpha: 1, Beta: 1, Pulls: 0, LastUpdated: now}
}

// #endregion posterior

// #region store
// Store is durable posterior storage keyed by arm id. Save and SaveBatch are the
// only mutators besides Reset. A single writer per process is assumed.
type Store interface {
	// Load returns every stored posterior.
	Load() (map[arm.ID]Posterior, error)
	// Get returns ErrNotFound when id has no posterior.
	Get(id arm.ID) (Posterior, error)
	// Save upserts one posterior.
	Save(p Posterior) error
	// SaveBatch upserts all posteriors atomically.
	SaveBatch(ps []Posterior) error
	// Reset sets one arm, or every arm when id is empty, back to Beta(1,1) with
	// zero pulls and returns how many arms were reset.
	Reset(id arm.ID) (int, error)
	Close() error
}

// ErrNotFound is returned by Get for unknown arms.
var ErrNotFound = errors.New("posterior not found")

// #endregion store

// #region stats
// Confidence buckets an arm by how many observations back its mean.
type Confidence string

const (
	ConfidenceLow    Confidence = "low"
	ConfidenceMedium Confidence = "medium"
	ConfidenceHigh   Confidence = "high"
)

// Pull thresholds for the confidence buckets.
const (
	HighConfidencePulls   = 20
	MediumConfidencePulls = 5
)

// Stats summarizes one posterior for display.
type Stats struct {
	Mean       float64    `json:"mean"`
	Pulls      int        `json:"pulls"`
	Confidence Confidence `json:"confidence"`
}

// #endregion stats
