package learning

import (
	"fmt"

	"github.com/danielpatrickdp/adaptive-context/internal/logging"
	"github.com/danielpatrickdp/adaptive-context/internal/metrics"
	"go.uber.org/zap"
)

// RunBestEffort calls fn and swallows any error or panic it produces. The
// failure is logged at debug and counted under op; ok is false and the zero
// value is returned. Nothing behind this boundary may fail a turn.
func RunBestEffort[T any](logger *zap.Logger, m *metrics.Metrics, op string, fn func() (T, error)) (result T, ok bool) {
	logger = logging.OrNop(logger)
	defer func() {
		if r := recover(); r != nil {
			var zero T
			result, ok = zero, false
			logger.Debug("best-effort operation panicked",
				zap.String("op", op),
				zap.Error(fmt.Errorf("panic: %v", r)),
			)
			m.BestEffortFailure(op)
		}
	}()

	v, err := fn()
	if err != nil {
		logger.Debug("best-effort operation failed",
			zap.String("op", op),
			zap.Error(err),
		)
		m.BestEffortFailure(op)
		var zero T
		return zero, false
	}
	return v, true
}
