package account

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/wordwise/backend/core"
)

var (
	// errors
	ErrNotFound    = errors.New("account not found")
	ErrEmailExists = errors.New("an account with this email already exists")
	ErrWrongRole   = errors.New("operation not allowed for this role")

	// NowFunc is mocked in tests.
	NowFunc = func() time.Time { return time.Now().UTC() }
)

type (
	// Edge is a single follow relationship: Follower follows Followee.
	// Follower.Following and Followee.Followers are both derived from it.
	Edge struct {
		FollowerID   string
		FollowerRole Role
		FolloweeID   string
		FolloweeRole Role
	}

	Repository interface {
		// CheckEmailUniqueness returns ErrEmailExists if email is used by an account of any role
		// other than the excluded ones.
		CheckEmailUniqueness(ctx context.Context, email string, excludedIDs ...string) error
		CreateAccount(ctx context.Context, acc Account) (Account, error)
		// GetAccount returns the account with Followers, Following (and UnknownWords for students) populated.
		GetAccount(ctx context.Context, filter GetFilter) (Account, error)
		// UpdateAccount saves identity fields (names, email, password hash, last login).
		UpdateAccount(ctx context.Context, acc Account) (Account, error)
		// ListSummaries returns the summaries of the accounts of the given role among ids, sorted by name.
		ListSummaries(ctx context.Context, role Role, ids []string) ([]Summary, error)
		ListStudentIDs(ctx context.Context) ([]string, error)

		// AddFollowEdge stores the edge if it does not exist yet and reports whether it was created.
		AddFollowEdge(ctx context.Context, edge Edge) (bool, error)
		// RemoveFollowEdge deletes the edge if it exists and reports whether it was removed.
		RemoveFollowEdge(ctx context.Context, followerID, followeeID string) (bool, error)

		// SetStudentLevel unconditionally sets the level and the evaluated flag.
		SetStudentLevel(ctx context.Context, id string, level Level, evaluated bool) error
		// PromoteStudentLevel sets the level to `to` only if it currently is `from`.
		PromoteStudentLevel(ctx context.Context, id string, from, to Level) (bool, error)
		SetEvaluated(ctx context.Context, id string) error
		AddUnknownWord(ctx context.Context, id string, word UnknownWord) error
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) checkUniqueness(ctx context.Context, email string, excludedIDs ...string) error {
	if err := svc.repo.CheckEmailUniqueness(ctx, email, excludedIDs...); err != nil {
		if err == ErrEmailExists {
			return core.NewValidationError(err, core.FieldError{Field: "email", Error: err.Error()})
		}
		return err
	}
	return nil
}

func (svc *Service) Register(ctx context.Context, na NewAccount) (Account, error) {
	na.Clean()
	if !na.Role.Valid() {
		return nil, core.NewFieldError("role", roleText)
	}
	if err := svc.checkUniqueness(ctx, na.Email); err != nil {
		return nil, err
	}

	now := NowFunc()
	acc := New(na.Role)
	idt := acc.Base()
	idt.ID = uuid.NewString()
	idt.Email = na.Email
	idt.FirstName = na.FirstName
	idt.LastName = na.LastName
	idt.CreatedAt = now
	idt.UpdatedAt = now
	if err := idt.SetPassword(na.Password); err != nil {
		return nil, err
	}
	return svc.repo.CreateAccount(ctx, acc)
}

func (svc *Service) Get(ctx context.Context, filter GetFilter) (Account, error) {
	filter.Email = core.CleanString(filter.Email, true /* lower */)
	return svc.repo.GetAccount(ctx, filter)
}

func (svc *Service) GetByID(ctx context.Context, id string) (Account, error) {
	return svc.repo.GetAccount(ctx, GetFilter{ID: id})
}

func (svc *Service) GetByEmail(ctx context.Context, email string) (Account, error) {
	return svc.Get(ctx, GetFilter{Email: email})
}

// GetStudent returns ErrWrongRole if id belongs to a teacher.
func (svc *Service) GetStudent(ctx context.Context, id string) (*Student, error) {
	acc, err := svc.repo.GetAccount(ctx, GetFilter{ID: id})
	if err != nil {
		return nil, err
	}
	stdt, ok := acc.(*Student)
	if !ok {
		return nil, ErrWrongRole
	}
	return stdt, nil
}

func (svc *Service) ListStudentIDs(ctx context.Context) ([]string, error) {
	return svc.repo.ListStudentIDs(ctx)
}

func (svc *Service) SetLastLogin(ctx context.Context, acc Account) (Account, error) {
	acc.Base().LastLogin = NowFunc()
	return svc.repo.UpdateAccount(ctx, acc)
}

func (svc *Service) SetPassword(ctx context.Context, acc Account, pwd string) (Account, error) {
	idt := acc.Base()
	if err := idt.SetPassword(pwd); err != nil {
		return nil, err
	}
	idt.UpdatedAt = NowFunc()
	return svc.repo.UpdateAccount(ctx, acc)
}

func (svc *Service) AddUnknownWord(ctx context.Context, acc Account, word UnknownWord) error {
	if acc.Role() != RoleStudent {
		return ErrWrongRole
	}
	word.Word = core.CleanString(word.Word)
	word.Definition = core.CleanString(word.Definition)
	return svc.repo.AddUnknownWord(ctx, acc.Base().ID, word)
}

// SkipEvaluation marks the placement flow as done without touching the level.
func (svc *Service) SkipEvaluation(ctx context.Context, acc Account) error {
	if acc.Role() != RoleStudent {
		return ErrWrongRole
	}
	return svc.repo.SetEvaluated(ctx, acc.Base().ID)
}
