// internal/app/features/digests/preview.go
package digests

import (
	"errors"
	"net/http"
	"time"

	groupstore "github.com/dalemusser/groupdigest/internal/app/store/groups"
	membershipstore "github.com/dalemusser/groupdigest/internal/app/store/memberships"
	"github.com/dalemusser/groupdigest/internal/app/system/digest"
	"github.com/dalemusser/groupdigest/internal/app/system/schedule"
	"github.com/dalemusser/groupdigest/internal/app/system/timeouts"
	"github.com/dalemusser/groupdigest/internal/app/system/visibility"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type previewCategory struct {
	Category string   `json:"category"`
	Count    int      `json:"count"`
	AuditIDs []string `json:"audit_ids"`
}

type previewResponse struct {
	MembershipID     string            `json:"membership_id"`
	GroupID          string            `json:"group_id"`
	Now              time.Time         `json:"now"`
	Cadence          string            `json:"cadence"`
	CadenceLabel     string            `json:"cadence_label,omitempty"`
	Inherited        bool              `json:"inherited"`
	LastNotification *time.Time        `json:"last_notification,omitempty"`
	Scheduled        bool              `json:"scheduled"`
	NextEligibleDay  *time.Time        `json:"next_eligible_day,omitempty"`
	VisibleSubgroups []string          `json:"visible_subgroups"`
	ManagedSubgroups []string          `json:"managed_subgroups"`
	Categories       []previewCategory `json:"categories,omitempty"`
	Total            int               `json:"total"`
	Watermark        *time.Time        `json:"watermark,omitempty"`
}

func hexes(ids []primitive.ObjectID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.Hex()
	}
	return out
}

// ServePreview handles GET /digests/preview/{membershipID}?now=RFC3339.
// It plans the membership's digest as a sweep at now would, without
// committing anything. now defaults to the current time.
func (h *Handler) ServePreview(w http.ResponseWriter, r *http.Request) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "membershipID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid membership id")
		return
	}

	now := h.Now().UTC()
	if raw := r.URL.Query().Get("now"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "now must be an RFC3339 timestamp")
			return
		}
		now = t.UTC()
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "digest preview")
	defer cancel()

	m, err := h.Memberships.GetByID(ctx, id)
	if errors.Is(err, membershipstore.ErrNotFound) {
		writeError(w, http.StatusNotFound, "membership not found")
		return
	}
	if err != nil {
		h.Log.Error("preview: load membership", zap.String("membership_id", id.Hex()), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load membership")
		return
	}

	g, err := h.Groups.GetByID(ctx, m.GroupID)
	if errors.Is(err, groupstore.ErrNotFound) {
		writeError(w, http.StatusNotFound, "group not found")
		return
	}
	if err != nil {
		h.Log.Error("preview: load group", zap.String("group_id", m.GroupID.Hex()), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load group")
		return
	}

	subs, err := h.SubgroupMemberships.ListByMembership(ctx, m.ID)
	if err != nil {
		h.Log.Error("preview: load subgroup memberships", zap.String("membership_id", id.Hex()), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load subgroup memberships")
		return
	}
	sets := visibility.Resolve(g, subs)

	cadence := digest.EffectiveCadence(m, g)
	resp := previewResponse{
		MembershipID:     m.ID.Hex(),
		GroupID:          g.ID.Hex(),
		Now:              now,
		Cadence:          cadence.String(),
		CadenceLabel:     cadence.Label(),
		Inherited:        !m.NotificationSchedule.IsSet(),
		LastNotification: m.LastNotification,
		Scheduled:        schedule.IsScheduledNow(cadence, now, m.LastNotification),
		VisibleSubgroups: hexes(sets.VisibleSubgroups()),
		ManagedSubgroups: hexes(sets.ManagedSubgroups()),
	}
	if next, ok := schedule.NextEligibleDay(cadence, now); ok {
		resp.NextEligibleDay = &next
	}
	if !resp.Scheduled {
		writeJSON(w, http.StatusOK, resp)
		return
	}

	audits, err := h.Audits.ListCandidates(ctx, g.ID, m.LastNotification, now)
	if err != nil {
		h.Log.Error("preview: load audits", zap.String("group_id", g.ID.Hex()), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load audits")
		return
	}

	res, ok := h.Planner.Plan(digest.Input{
		Membership: m,
		Group:      g,
		Audits:     audits,
		Sets:       &sets,
	}, now)
	if ok {
		for _, c := range res.Categorized.Categories() {
			ids := res.Categorized.IDs(c)
			resp.Categories = append(resp.Categories, previewCategory{
				Category: c,
				Count:    len(ids),
				AuditIDs: hexes(ids),
			})
		}
		resp.Total = res.Categorized.Count()
		wm := res.NewWatermark
		resp.Watermark = &wm
	}
	writeJSON(w, http.StatusOK, resp)
}
