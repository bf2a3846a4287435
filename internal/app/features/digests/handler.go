// internal/app/features/digests/handler.go
package digests

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/dalemusser/groupdigest/internal/app/system/digest"
	"github.com/dalemusser/groupdigest/internal/app/system/sweep"
	"github.com/dalemusser/groupdigest/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type membershipGetter interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (models.Membership, error)
}

type groupGetter interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (models.Group, error)
}

type subgroupLister interface {
	ListByMembership(ctx context.Context, membershipID primitive.ObjectID) ([]models.SubgroupMembership, error)
}

type auditLister interface {
	ListCandidates(ctx context.Context, groupID primitive.ObjectID, since *time.Time, until time.Time) ([]models.AuditEvent, error)
}

// Sweeper runs one digest sweep.
type Sweeper interface {
	Run(ctx context.Context, now time.Time) (sweep.Summary, error)
}

// Handler serves the digest preview and manual sweep endpoints.
type Handler struct {
	Memberships         membershipGetter
	Groups              groupGetter
	SubgroupMemberships subgroupLister
	Audits              auditLister
	Sweeper             Sweeper
	Planner             *digest.Planner
	Now                 func() time.Time
	Log                 *zap.Logger
}

// NewHandler wires the handler to its stores. The stores are accepted as
// the narrow interfaces above so tests can substitute them.
func NewHandler(
	memberships membershipGetter,
	groups groupGetter,
	subs subgroupLister,
	audits auditLister,
	sweeper Sweeper,
	opts digest.Options,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		Memberships:         memberships,
		Groups:              groups,
		SubgroupMemberships: subs,
		Audits:              audits,
		Sweeper:             sweeper,
		Planner:             digest.NewPlanner(opts),
		Now:                 time.Now,
		Log:                 logger,
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
