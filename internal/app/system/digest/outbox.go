package digest

import (
	"github.com/dalemusser/groupdigest/internal/domain/models"
)

// Outbox builds the outbox record for r. The record's CreatedAt and
// Watermark are both the planning time.
func (r Result) Outbox(m models.Membership, runID string) models.Digest {
	return models.Digest{
		RunID:        runID,
		MembershipID: m.ID,
		GroupID:      m.GroupID,
		UserID:       m.UserID,
		Cadence:      r.Cadence,
		Categories:   r.Categorized.DigestCategories(),
		Watermark:    r.NewWatermark,
		Status:       models.DigestStatusPending,
		CreatedAt:    r.NewWatermark,
	}
}
