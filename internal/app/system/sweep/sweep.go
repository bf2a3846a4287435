// Package sweep runs the digest planner across every active membership on
// a scheduler tick and commits the resulting digests.
//
// Memberships are scanned in pages. For each page the runner loads the
// groups, drops memberships that are not due, loads subgroup links and
// candidate audits for the rest, and plans/commits them on a bounded pool
// of workers. Memberships are independent; a failure on one is logged and
// counted without stopping the others.
//
// A membership is swept at most once per slot (UTC day): one already
// notified earlier in the slot is skipped even when its cadence says it
// is due. That keeps Daily, which has no minimum gap, to one digest a day
// when the sweep ticks more often than daily or re-runs after a failure.
package sweep

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/dalemusser/groupdigest/internal/app/system/digest"
	"github.com/dalemusser/groupdigest/internal/app/system/schedule"
	"github.com/dalemusser/groupdigest/internal/app/system/visibility"
	"github.com/dalemusser/groupdigest/internal/domain/models"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ErrLocked is returned by Run when another sweep holds the lock for the
// current slot.
var ErrLocked = errors.New("another sweep already ran or is running for this slot")

// ErrStaleWatermark is what a Committer returns when the membership was
// already notified at or after the digest's watermark.
var ErrStaleWatermark = errors.New("stale watermark")

// MembershipSource pages through active memberships in id order.
type MembershipSource interface {
	ListActivePage(ctx context.Context, after primitive.ObjectID, limit int64) ([]models.Membership, error)
}

// GroupSource loads groups by id.
type GroupSource interface {
	GetMany(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.Group, error)
}

// SubgroupMembershipSource loads subgroup links for several memberships.
type SubgroupMembershipSource interface {
	ListByMemberships(ctx context.Context, membershipIDs []primitive.ObjectID) (map[primitive.ObjectID][]models.SubgroupMembership, error)
}

// AuditSource loads a group's candidate audits in (since, until].
type AuditSource interface {
	ListCandidates(ctx context.Context, groupID primitive.ObjectID, since *time.Time, until time.Time) ([]models.AuditEvent, error)
}

// Committer persists a digest and advances the membership's watermark as
// one unit.
type Committer interface {
	Commit(ctx context.Context, m models.Membership, d models.Digest) error
}

// Locker guards a sweep slot across replicas.
type Locker interface {
	Acquire(ctx context.Context, slot string) (release func(context.Context) error, acquired bool, err error)
}

// Sources bundles the read side of a sweep.
type Sources struct {
	Memberships         MembershipSource
	Groups              GroupSource
	SubgroupMemberships SubgroupMembershipSource
	Audits              AuditSource
}

// Config tunes a Runner.
type Config struct {
	Workers  int   // concurrent plan/commit workers (default 8)
	PageSize int64 // memberships per page (default 500)

	// LookbackMargin widens the candidate audit window below the oldest
	// watermark in a page, so audits written late are still considered.
	LookbackMargin time.Duration

	Planner digest.Options
}

// Summary reports one sweep run.
type Summary struct {
	RunID      string    `json:"run_id"`
	Now        time.Time `json:"now"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Scanned    int64     `json:"scanned"`
	Due        int64     `json:"due"`
	Committed  int64     `json:"committed"`
	Empty      int64     `json:"empty"`
	Stale      int64     `json:"stale"`
	Failed     int64     `json:"failed"`
	Orphaned   int64     `json:"orphaned"`

	// AlreadyNotified counts memberships that were due but had been
	// notified earlier in the same slot.
	AlreadyNotified int64 `json:"already_notified"`
}

// Runner executes sweeps. It is safe to call Run from several goroutines,
// though a Locker is the intended way to keep runs from overlapping.
type Runner struct {
	src     Sources
	commit  Committer
	lock    Locker
	planner *digest.Planner
	cfg     Config
	log     *zap.Logger
}

// New builds a Runner. lock may be nil to disable slot locking.
func New(src Sources, commit Committer, lock Locker, cfg Config, logger *zap.Logger) *Runner {
	if cfg.Workers <= 0 {
		cfg.Workers = 8
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = 500
	}
	return &Runner{
		src:     src,
		commit:  commit,
		lock:    lock,
		planner: digest.NewPlanner(cfg.Planner),
		cfg:     cfg,
		log:     logger,
	}
}

// SlotFor returns the lock slot for a sweep at now: one slot per UTC day.
func SlotFor(now time.Time) string {
	return now.UTC().Format("2006-01-02")
}

// run-scoped state shared by the workers of one Run.
type runState struct {
	runID  string
	now    time.Time
	cache  *visibility.Cache
	groups map[primitive.ObjectID]models.Group

	scanned, due, committed, empty, stale, failed, orphaned atomic.Int64

	alreadyNotified atomic.Int64
}

// Run sweeps all active memberships at now. It returns ErrLocked when the
// slot is already taken, and the context error if ctx is cancelled.
func (r *Runner) Run(ctx context.Context, now time.Time) (sum Summary, err error) {
	st := &runState{
		runID:  uuid.NewString(),
		now:    now.UTC(),
		cache:  visibility.NewCache(),
		groups: make(map[primitive.ObjectID]models.Group),
	}
	started := time.Now().UTC()

	if r.lock != nil {
		release, ok, lerr := r.lock.Acquire(ctx, SlotFor(now))
		if lerr != nil {
			return Summary{}, lerr
		}
		if !ok {
			r.log.Info("digest sweep skipped: slot locked", zap.String("slot", SlotFor(now)))
			return Summary{}, ErrLocked
		}
		defer func() {
			// Keep the slot after a completed run; free it after a failed one
			// so the next tick can retry. The retry only reaches memberships
			// not notified earlier in the slot.
			if err == nil && st.failed.Load() == 0 {
				return
			}
			if rerr := release(context.Background()); rerr != nil {
				r.log.Warn("failed to release sweep lock", zap.Error(rerr))
			}
		}()
	}

	r.log.Info("digest sweep started", zap.String("run_id", st.runID), zap.Time("now", st.now))

	err = r.scan(ctx, st)
	sum = Summary{
		RunID:      st.runID,
		Now:        st.now,
		StartedAt:  started,
		FinishedAt: time.Now().UTC(),
		Scanned:    st.scanned.Load(),
		Due:        st.due.Load(),
		Committed:  st.committed.Load(),
		Empty:      st.empty.Load(),
		Stale:      st.stale.Load(),
		Failed:     st.failed.Load(),
		Orphaned:   st.orphaned.Load(),

		AlreadyNotified: st.alreadyNotified.Load(),
	}
	if err != nil {
		r.log.Error("digest sweep aborted", zap.String("run_id", st.runID), zap.Error(err))
		return sum, err
	}

	r.log.Info("digest sweep finished",
		zap.String("run_id", sum.RunID),
		zap.Int64("scanned", sum.Scanned),
		zap.Int64("due", sum.Due),
		zap.Int64("committed", sum.Committed),
		zap.Int64("empty", sum.Empty),
		zap.Int64("stale", sum.Stale),
		zap.Int64("failed", sum.Failed),
		zap.Int64("orphaned", sum.Orphaned),
		zap.Int64("already_notified", sum.AlreadyNotified),
		zap.Duration("took", sum.FinishedAt.Sub(sum.StartedAt)))
	return sum, nil
}

func (r *Runner) scan(ctx context.Context, st *runState) error {
	after := primitive.NilObjectID
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		page, err := r.src.Memberships.ListActivePage(ctx, after, r.cfg.PageSize)
		if err != nil {
			return err
		}
		if len(page) == 0 {
			return nil
		}
		st.scanned.Add(int64(len(page)))
		after = page[len(page)-1].ID

		if err := r.processPage(ctx, st, page); err != nil {
			return err
		}
	}
}

func (r *Runner) processPage(ctx context.Context, st *runState, page []models.Membership) error {
	if err := r.loadGroups(ctx, st, page); err != nil {
		return err
	}

	due := make([]models.Membership, 0, len(page))
	for _, m := range page {
		g, ok := st.groups[m.GroupID]
		if !ok {
			st.orphaned.Add(1)
			r.log.Warn("membership references missing group",
				zap.String("membership_id", m.ID.Hex()),
				zap.String("group_id", m.GroupID.Hex()))
			continue
		}
		if !schedule.IsScheduledNow(digest.EffectiveCadence(m, g), st.now, m.LastNotification) {
			continue
		}
		if notifiedInSlot(m, st.now) {
			st.alreadyNotified.Add(1)
			continue
		}
		due = append(due, m)
	}
	if len(due) == 0 {
		return nil
	}
	st.due.Add(int64(len(due)))

	ids := make([]primitive.ObjectID, len(due))
	for i, m := range due {
		ids[i] = m.ID
	}
	subs, err := r.src.SubgroupMemberships.ListByMemberships(ctx, ids)
	if err != nil {
		return err
	}
	audits, err := r.loadAudits(ctx, st, due)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Workers)
	for _, m := range due {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			r.planAndCommit(gctx, st, m, subs[m.ID], audits[m.GroupID])
			return nil
		})
	}
	return g.Wait()
}

// notifiedInSlot reports whether m's watermark falls in now's slot.
func notifiedInSlot(m models.Membership, now time.Time) bool {
	return m.LastNotification != nil && SlotFor(*m.LastNotification) == SlotFor(now)
}

func (r *Runner) loadGroups(ctx context.Context, st *runState, page []models.Membership) error {
	var missing []primitive.ObjectID
	seen := map[primitive.ObjectID]bool{}
	for _, m := range page {
		if _, ok := st.groups[m.GroupID]; ok || seen[m.GroupID] {
			continue
		}
		seen[m.GroupID] = true
		missing = append(missing, m.GroupID)
	}
	if len(missing) == 0 {
		return nil
	}
	loaded, err := r.src.Groups.GetMany(ctx, missing)
	if err != nil {
		return err
	}
	for id, g := range loaded {
		st.groups[id] = g
	}
	return nil
}

// loadAudits loads one candidate window per group: from the oldest
// watermark among the due memberships of that group, minus the lookback
// margin, up to now. A never-notified membership widens the window to all
// of the group's audits.
func (r *Runner) loadAudits(ctx context.Context, st *runState, due []models.Membership) (map[primitive.ObjectID][]models.AuditEvent, error) {
	type window struct {
		since *time.Time
		open  bool
	}
	windows := map[primitive.ObjectID]*window{}
	var order []primitive.ObjectID
	for _, m := range due {
		w, ok := windows[m.GroupID]
		if !ok {
			w = &window{}
			windows[m.GroupID] = w
			order = append(order, m.GroupID)
		}
		if w.open {
			continue
		}
		if m.LastNotification == nil {
			w.open, w.since = true, nil
			continue
		}
		if w.since == nil || m.LastNotification.Before(*w.since) {
			t := *m.LastNotification
			w.since = &t
		}
	}

	out := make(map[primitive.ObjectID][]models.AuditEvent, len(windows))
	for _, gid := range order {
		w := windows[gid]
		var since *time.Time
		if !w.open && w.since != nil {
			t := w.since.Add(-r.cfg.LookbackMargin)
			since = &t
		}
		audits, err := r.src.Audits.ListCandidates(ctx, gid, since, st.now)
		if err != nil {
			return nil, err
		}
		out[gid] = audits
	}
	return out, nil
}

func (r *Runner) planAndCommit(ctx context.Context, st *runState, m models.Membership, subs []models.SubgroupMembership, audits []models.AuditEvent) {
	g := st.groups[m.GroupID]
	sets := st.cache.Get(m.ID, func() visibility.Sets {
		return visibility.Resolve(g, subs)
	})

	res, ok := r.planner.Plan(digest.Input{
		Membership: m,
		Group:      g,
		Audits:     audits,
		Sets:       &sets,
	}, st.now)
	if !ok {
		st.empty.Add(1)
		return
	}

	d := res.Outbox(m, st.runID)
	if err := r.commit.Commit(ctx, m, d); err != nil {
		if errors.Is(err, ErrStaleWatermark) {
			st.stale.Add(1)
			r.log.Info("digest skipped: membership already notified",
				zap.String("membership_id", m.ID.Hex()),
				zap.String("run_id", st.runID))
			return
		}
		st.failed.Add(1)
		r.log.Error("digest commit failed",
			zap.String("membership_id", m.ID.Hex()),
			zap.String("run_id", st.runID),
			zap.Error(err))
		return
	}
	st.committed.Add(1)
}
