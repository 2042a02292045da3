package progress

import (
	"context"
	"errors"
	"net/mail"
	"time"

	pkgerrors "github.com/pkg/errors"

	"github.com/wordwise/backend/core"
	"github.com/wordwise/backend/core/account"
)

var (
	ErrNotStudent = errors.New("progress levels are only tracked for students")

	// NowFunc is mocked in tests.
	NowFunc = func() time.Time { return time.Now().UTC() }
)

// level change sources
const (
	SourceProgress  = "progress"
	SourcePlacement = "placement"
)

type (
	Repository interface {
		// GetOrCreate returns the progress of userID, creating a zeroed record if none exists.
		GetOrCreate(ctx context.Context, userID string) (Progress, error)
		// Increment atomically folds d into the progress of userID (creating it if needed) and returns the new record.
		Increment(ctx context.Context, userID string, d Delta, at time.Time) (Progress, error)
	}

	// Cache keeps recent progress snapshots. Misses are reported with ok == false.
	Cache interface {
		Get(ctx context.Context, userID string) (p Progress, ok bool, err error)
		Set(ctx context.Context, p Progress) error
	}

	// AccountStore is the subset of account.Repository the level machine needs.
	AccountStore interface {
		GetAccount(ctx context.Context, filter account.GetFilter) (account.Account, error)
		ListSummaries(ctx context.Context, role account.Role, ids []string) ([]account.Summary, error)
		ListStudentIDs(ctx context.Context) ([]string, error)
		SetStudentLevel(ctx context.Context, id string, level account.Level, evaluated bool) error
		PromoteStudentLevel(ctx context.Context, id string, from, to account.Level) (bool, error)
	}

	Service struct {
		repo     Repository
		accounts AccountStore
		cache    Cache
		email    core.EmailService
		events   core.EventPublisher
		log      core.Logger
	}

	Option func(svc *Service)
)

func WithCache(c Cache) Option               { return func(svc *Service) { svc.cache = c } }
func WithEmail(e core.EmailService) Option    { return func(svc *Service) { svc.email = e } }
func WithEvents(p core.EventPublisher) Option { return func(svc *Service) { svc.events = p } }

func NewService(repo Repository, accounts AccountStore, log core.Logger, opts ...Option) *Service {
	svc := &Service{repo: repo, accounts: accounts, log: log}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

func (svc *Service) RecordWordWriting(ctx context.Context, userID string, r WordPracticeResult) (Progress, error) {
	return svc.Record(ctx, userID, r.Delta())
}

func (svc *Service) RecordSentenceWriting(ctx context.Context, userID string, r SentencePracticeResult) (Progress, error) {
	return svc.Record(ctx, userID, r.Delta())
}

func (svc *Service) RecordWordReading(ctx context.Context, userID string, r WordReadingResult) (Progress, error) {
	return svc.Record(ctx, userID, r.Delta())
}

func (svc *Service) RecordSentenceReading(ctx context.Context, userID string, r SentenceReadingResult) (Progress, error) {
	return svc.Record(ctx, userID, r.Delta())
}

// Record folds one game result into the progress of userID, then re-evaluates the student's level.
// Level evaluation failures are logged and do not fail the write.
func (svc *Service) Record(ctx context.Context, userID string, d Delta) (Progress, error) {
	if !d.Category.Valid() {
		return Progress{}, pkgerrors.Errorf("unknown progress category %q", d.Category)
	}
	p, err := svc.repo.Increment(ctx, userID, d.Clamp(), NowFunc())
	if err != nil {
		return Progress{}, pkgerrors.Wrap(err, "incrementing progress")
	}
	svc.cacheSet(ctx, p)
	svc.EvaluateLevel(ctx, userID, p)
	return p, nil
}

// GetProgress returns the progress of userID with its current level, creating a zeroed record on first access.
func (svc *Service) GetProgress(ctx context.Context, userID string) (Snapshot, error) {
	acc, err := svc.accounts.GetAccount(ctx, account.GetFilter{ID: userID})
	if err != nil {
		return Snapshot{}, err
	}
	return svc.snapshot(ctx, acc)
}

// GetStudentProgress is GetProgress restricted to students.
func (svc *Service) GetStudentProgress(ctx context.Context, studentID string) (Snapshot, error) {
	acc, err := svc.accounts.GetAccount(ctx, account.GetFilter{ID: studentID})
	if err != nil {
		return Snapshot{}, err
	}
	if acc.Role() != account.RoleStudent {
		return Snapshot{}, ErrNotStudent
	}
	return svc.snapshot(ctx, acc)
}

func (svc *Service) snapshot(ctx context.Context, acc account.Account) (Snapshot, error) {
	p, err := svc.load(ctx, acc.Base().ID)
	if err != nil {
		return Snapshot{}, err
	}
	snap := Snapshot{Progress: p}
	if stdt, ok := acc.(*account.Student); ok {
		snap.UserLevel = stdt.Level
	}
	return snap, nil
}

func (svc *Service) load(ctx context.Context, userID string) (Progress, error) {
	if svc.cache != nil {
		p, ok, err := svc.cache.Get(ctx, userID)
		if err != nil {
			svc.log.Warn("reading progress cache", err, map[string]interface{}{"user_id": userID})
		} else if ok {
			return p, nil
		}
	}
	p, err := svc.repo.GetOrCreate(ctx, userID)
	if err != nil {
		return Progress{}, pkgerrors.Wrap(err, "loading progress")
	}
	svc.cacheSet(ctx, p)
	return p, nil
}

func (svc *Service) cacheSet(ctx context.Context, p Progress) {
	if svc.cache == nil {
		return
	}
	if err := svc.cache.Set(ctx, p); err != nil {
		svc.log.Warn("writing progress cache", err, map[string]interface{}{"user_id": p.UserID})
	}
}

// EvaluateLevel promotes the student userID by at most one level according to p.
// Missing accounts and teachers are ignored. It reports the resulting level and whether it changed.
func (svc *Service) EvaluateLevel(ctx context.Context, userID string, p Progress) (account.Level, bool) {
	acc, err := svc.accounts.GetAccount(ctx, account.GetFilter{ID: userID, Role: account.RoleStudent})
	if err != nil {
		if pkgerrors.Cause(err) != account.ErrNotFound {
			svc.log.Error("evaluating level", err, map[string]interface{}{"user_id": userID})
		}
		return "", false
	}
	stdt, ok := acc.(*account.Student)
	if !ok {
		return "", false
	}

	next := NextLevel(stdt.Level, p)
	if next.Rank() <= stdt.Level.Rank() {
		return stdt.Level, false
	}
	promoted, err := svc.accounts.PromoteStudentLevel(ctx, userID, stdt.Level, next)
	if err != nil {
		svc.log.Error("promoting level", err, acc)
		return stdt.Level, false
	}
	if !promoted { // level changed concurrently
		return stdt.Level, false
	}
	svc.onLevelChanged(ctx, stdt, stdt.Level, next, SourceProgress)
	return next, true
}

// ApplyPlacement sets the level of the student from a placement assessment score and marks it as evaluated.
// It is authoritative: later progress-driven evaluations only move upward from it.
func (svc *Service) ApplyPlacement(ctx context.Context, acc account.Account, score float64) (account.Level, error) {
	stdt, ok := acc.(*account.Student)
	if !ok {
		return "", ErrNotStudent
	}
	level := PlacementLevel(score)
	if err := svc.accounts.SetStudentLevel(ctx, stdt.ID, level, true); err != nil {
		return "", pkgerrors.Wrap(err, "setting placement level")
	}
	if level != stdt.Level {
		svc.onLevelChanged(ctx, stdt, stdt.Level, level, SourcePlacement)
	}
	return level, nil
}

// SweepLevels re-evaluates every student and returns the number of promotions.
func (svc *Service) SweepLevels(ctx context.Context) (int, error) {
	ids, err := svc.accounts.ListStudentIDs(ctx)
	if err != nil {
		return 0, pkgerrors.Wrap(err, "listing students")
	}
	var promoted int
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return promoted, err
		}
		p, err := svc.repo.GetOrCreate(ctx, id)
		if err != nil {
			svc.log.Error("sweeping level", err, map[string]interface{}{"user_id": id})
			continue
		}
		if _, changed := svc.EvaluateLevel(ctx, id, p); changed {
			promoted++
		}
	}
	return promoted, nil
}

// ConnectedStudents returns the progress of every student following or followed by teacher, in name order.
func (svc *Service) ConnectedStudents(ctx context.Context, teacher account.Account) ([]StudentProgress, error) {
	if teacher.Role() != account.RoleTeacher {
		return nil, account.ErrWrongRole
	}
	idt := teacher.Base()
	ids := append([]string{}, idt.Followers...)
	for _, id := range idt.Following {
		if !core.ContainsString(ids, id) {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return []StudentProgress{}, nil
	}

	sums, err := svc.accounts.ListSummaries(ctx, account.RoleStudent, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "listing students")
	}
	rows := make([]StudentProgress, 0, len(sums))
	for _, sum := range sums {
		snap, err := svc.GetStudentProgress(ctx, sum.ID)
		if err != nil {
			if pkgerrors.Cause(err) == account.ErrNotFound {
				continue
			}
			return nil, err
		}
		rows = append(rows, StudentProgress{Student: sum, Level: snap.UserLevel, Progress: snap.Progress})
	}
	return rows, nil
}

func (svc *Service) onLevelChanged(ctx context.Context, stdt *account.Student, from, to account.Level, source string) {
	svc.log.Info("level changed", stdt, map[string]interface{}{"from": from, "to": to, "source": source})

	if svc.events != nil {
		evt := core.NewEvent(core.EventLevelChanged, stdt.ID, map[string]interface{}{
			"from":   from,
			"to":     to,
			"source": source,
		})
		if err := svc.events.Publish(ctx, evt); err != nil {
			svc.log.Error("publishing "+core.EventLevelChanged+" event", err, stdt)
		}
	}

	if svc.email != nil && to.Rank() > from.Rank() {
		svc.email.SendMessages(&core.EmailMessage{
			To:           []mail.Address{{Name: stdt.Name(), Address: stdt.Email}},
			Subject:      "You reached a new level",
			TemplateName: "level_up",
			TemplateData: map[string]string{"Name": stdt.FirstName, "Level": string(to)},
		})
	}
}
