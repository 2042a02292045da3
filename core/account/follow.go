package account

import (
	"context"
	"net/mail"

	"github.com/pkg/errors"

	"github.com/wordwise/backend/core"
)

// FollowManager creates and removes follow edges between students and teachers.
// Notifications and events are best-effort: their failures are logged, never returned.
type FollowManager struct {
	repo   Repository
	email  core.EmailService
	events core.EventPublisher
	log    core.Logger
}

func NewFollowManager(repo Repository, email core.EmailService, events core.EventPublisher, log core.Logger) *FollowManager {
	return &FollowManager{repo: repo, email: email, events: events, log: log}
}

// Follow makes actor follow the opposite-role account targetID. Following twice is a no-op.
func (fm *FollowManager) Follow(ctx context.Context, actor Account, targetID string) error {
	target, err := fm.repo.GetAccount(ctx, GetFilter{ID: targetID, Role: actor.Role().Opposite()})
	if err != nil {
		return err
	}

	created, err := fm.repo.AddFollowEdge(ctx, Edge{
		FollowerID:   actor.Base().ID,
		FollowerRole: actor.Role(),
		FolloweeID:   target.Base().ID,
		FolloweeRole: target.Role(),
	})
	if err != nil {
		return errors.Wrap(err, "adding follow edge")
	}
	if !created {
		return nil
	}

	fm.notifyNewFollower(actor, target)
	fm.publish(ctx, core.EventAccountFollowed, actor, target)
	return nil
}

// Unfollow removes the edge actor -> targetID. Removing a missing edge is a no-op.
func (fm *FollowManager) Unfollow(ctx context.Context, actor Account, targetID string) error {
	target, err := fm.repo.GetAccount(ctx, GetFilter{ID: targetID, Role: actor.Role().Opposite()})
	if err != nil {
		return err
	}

	removed, err := fm.repo.RemoveFollowEdge(ctx, actor.Base().ID, target.Base().ID)
	if err != nil {
		return errors.Wrap(err, "removing follow edge")
	}
	if removed {
		fm.publish(ctx, core.EventAccountUnfollowed, actor, target)
	}
	return nil
}

// SearchByEmail looks up an account of the given role by exact (case-insensitive) email.
func (fm *FollowManager) SearchByEmail(ctx context.Context, email string, role Role) (Account, error) {
	if !role.Valid() {
		return nil, core.NewFieldError("type", roleText)
	}
	return fm.repo.GetAccount(ctx, GetFilter{Email: core.CleanString(email, true /* lower */), Role: role})
}

func (fm *FollowManager) ListFollowing(ctx context.Context, acc Account) ([]Summary, error) {
	return fm.listSummaries(ctx, acc.Role().Opposite(), acc.Base().Following)
}

func (fm *FollowManager) ListFollowers(ctx context.Context, acc Account) ([]Summary, error) {
	return fm.listSummaries(ctx, acc.Role().Opposite(), acc.Base().Followers)
}

func (fm *FollowManager) listSummaries(ctx context.Context, role Role, ids []string) ([]Summary, error) {
	if len(ids) == 0 {
		return []Summary{}, nil
	}
	sums, err := fm.repo.ListSummaries(ctx, role, ids)
	if err != nil {
		return nil, errors.Wrap(err, "listing summaries")
	}
	return sums, nil
}

func (fm *FollowManager) notifyNewFollower(follower, target Account) {
	if fm.email == nil {
		return
	}
	tgt, flw := target.Base(), follower.Base()
	fm.email.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: tgt.Name(), Address: tgt.Email}},
		Subject:      "You have a new follower",
		TemplateName: "new_follower",
		TemplateData: map[string]string{
			"Name":          tgt.FirstName,
			"FollowerName":  flw.Name(),
			"FollowerEmail": flw.Email,
		},
	})
}

func (fm *FollowManager) publish(ctx context.Context, typ string, actor, target Account) {
	if fm.events == nil {
		return
	}
	evt := core.NewEvent(typ, actor.Base().ID, map[string]interface{}{
		"actor_role":  actor.Role(),
		"target_id":   target.Base().ID,
		"target_role": target.Role(),
	})
	if err := fm.events.Publish(ctx, evt); err != nil && fm.log != nil {
		fm.log.Error("publishing "+typ+" event", err, actor)
	}
}
