// internal/app/features/digests/sweep.go
package digests

import (
	"errors"
	"net/http"

	"github.com/dalemusser/groupdigest/internal/app/system/sweep"
	"github.com/dalemusser/groupdigest/internal/app/system/timeouts"
	"go.uber.org/zap"
)

// ServeSweep handles POST /digests/sweep. It runs one sweep synchronously
// at the current time and returns the run summary. 409 means the day's
// sweep slot is already taken.
func (h *Handler) ServeSweep(w http.ResponseWriter, r *http.Request) {
	if h.Sweeper == nil {
		writeError(w, http.StatusServiceUnavailable, "sweep is disabled")
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Sweep(), h.Log, "manual digest sweep")
	defer cancel()

	sum, err := h.Sweeper.Run(ctx, h.Now())
	if errors.Is(err, sweep.ErrLocked) {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	if err != nil {
		h.Log.Error("manual digest sweep failed", zap.String("run_id", sum.RunID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "sweep failed")
		return
	}
	writeJSON(w, http.StatusOK, sum)
}
