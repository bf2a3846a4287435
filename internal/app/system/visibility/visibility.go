// Package visibility resolves which subgroups a membership may see and
// which it manages.
//
// A membership sees a subgroup when the group marks it globally visible or
// when the membership has its own subgroup membership record for it. The
// managed set only comes from subgroup membership records flagged manager.
package visibility

import (
	"slices"
	"strings"

	"github.com/dalemusser/groupdigest/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Sets holds the resolved subgroup sets for one membership.
// The zero value sees no subgroups and manages none.
type Sets struct {
	visible map[primitive.ObjectID]struct{}
	managed map[primitive.ObjectID]struct{}
}

// Resolve computes the visible and managed subgroup sets from the group's
// globally visible subgroups and the membership's subgroup records.
func Resolve(group models.Group, subs []models.SubgroupMembership) Sets {
	s := Sets{
		visible: make(map[primitive.ObjectID]struct{}, len(group.VisibleSubgroupIDs)+len(subs)),
		managed: make(map[primitive.ObjectID]struct{}),
	}
	for _, id := range group.VisibleSubgroupIDs {
		s.visible[id] = struct{}{}
	}
	for _, sm := range subs {
		s.visible[sm.SubgroupID] = struct{}{}
		if sm.Manager {
			s.managed[sm.SubgroupID] = struct{}{}
		}
	}
	return s
}

// CanView reports whether content scoped to subgroupID is visible.
// Content not scoped to any subgroup (nil) is always visible.
func (s Sets) CanView(subgroupID *primitive.ObjectID) bool {
	if subgroupID == nil {
		return true
	}
	_, ok := s.visible[*subgroupID]
	return ok
}

// Manages reports whether the membership manages subgroupID.
func (s Sets) Manages(subgroupID primitive.ObjectID) bool {
	_, ok := s.managed[subgroupID]
	return ok
}

// VisibleSubgroups returns the visible subgroup ids in hex order.
func (s Sets) VisibleSubgroups() []primitive.ObjectID {
	return sortedIDs(s.visible)
}

// ManagedSubgroups returns the managed subgroup ids in hex order.
func (s Sets) ManagedSubgroups() []primitive.ObjectID {
	return sortedIDs(s.managed)
}

func sortedIDs(set map[primitive.ObjectID]struct{}) []primitive.ObjectID {
	ids := make([]primitive.ObjectID, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	slices.SortFunc(ids, func(a, b primitive.ObjectID) int {
		return strings.Compare(a.Hex(), b.Hex())
	})
	return ids
}
