// Package eligibility filters audit events down to the ones a membership
// should be told about in its next digest.
package eligibility

import (
	"time"

	"github.com/dalemusser/groupdigest/internal/app/system/visibility"
	"github.com/dalemusser/groupdigest/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// IsEligible reports whether audit qualifies for m's next digest.
//
// All of the following must hold:
//   - the audit's subgroup still exists
//   - the audit is not manager-only, or m is a manager
//   - the audit was created at or before now
//   - the audit was created strictly after m's watermark, if any
//   - m can view the audit's subgroup
func IsEligible(m models.Membership, sets visibility.Sets, audit models.AuditEvent, now time.Time) bool {
	if audit.DeletedSubgroup {
		return false
	}
	if audit.OnlyManagers && !m.Manager {
		return false
	}
	if audit.CreatedAt.After(now) {
		return false
	}
	if m.LastNotification != nil && !audit.CreatedAt.After(*m.LastNotification) {
		return false
	}
	return sets.CanView(audit.SubgroupID)
}

// Categorized groups eligible audit ids by category. Categories keep the
// order of their first eligible audit; ids keep input order. A category
// is only present when it has at least one id.
type Categorized struct {
	order []string
	ids   map[string][]primitive.ObjectID
}

// CategorizeEligible filters audits with IsEligible and groups the
// survivors by category.
func CategorizeEligible(m models.Membership, sets visibility.Sets, audits []models.AuditEvent, now time.Time) Categorized {
	c := Categorized{ids: make(map[string][]primitive.ObjectID)}
	for _, a := range audits {
		if !IsEligible(m, sets, a, now) {
			continue
		}
		if _, seen := c.ids[a.Category]; !seen {
			c.order = append(c.order, a.Category)
		}
		c.ids[a.Category] = append(c.ids[a.Category], a.ID)
	}
	return c
}

// Empty reports whether no audit was eligible.
func (c Categorized) Empty() bool { return len(c.order) == 0 }

// Len returns the number of categories.
func (c Categorized) Len() int { return len(c.order) }

// Count returns the total number of eligible audit ids.
func (c Categorized) Count() int {
	n := 0
	for _, ids := range c.ids {
		n += len(ids)
	}
	return n
}

// Categories returns the category keys in first-seen order.
func (c Categorized) Categories() []string {
	return append([]string(nil), c.order...)
}

// IDs returns the audit ids for category, or nil when absent.
func (c Categorized) IDs(category string) []primitive.ObjectID {
	return append([]primitive.ObjectID(nil), c.ids[category]...)
}

// Map returns a copy as a plain category -> ids map.
func (c Categorized) Map() map[string][]primitive.ObjectID {
	out := make(map[string][]primitive.ObjectID, len(c.ids))
	for k, v := range c.ids {
		out[k] = append([]primitive.ObjectID(nil), v...)
	}
	return out
}

// DigestCategories converts c to the outbox representation.
func (c Categorized) DigestCategories() []models.DigestCategory {
	out := make([]models.DigestCategory, 0, len(c.order))
	for _, cat := range c.order {
		out = append(out, models.DigestCategory{Category: cat, AuditIDs: c.IDs(cat)})
	}
	return out
}
