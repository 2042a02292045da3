package account

import (
	"encoding/json"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/wordwise/backend/core"
)

// Role tags which collection an account belongs to.
type Role string

const (
	RoleStudent Role = "user"
	RoleTeacher Role = "teacher"
)

var Roles = []Role{RoleStudent, RoleTeacher}

func (r Role) Valid() bool {
	return r == RoleStudent || r == RoleTeacher
}

// Opposite returns the role whose ids appear in Followers/Following of an account of role r.
func (r Role) Opposite() Role {
	if r == RoleTeacher {
		return RoleStudent
	}
	return RoleTeacher
}

// Level is the coarse proficiency tier of a student.
type Level string

const (
	LevelBeginner     Level = "beginner"
	LevelIntermediate Level = "intermediate"
	LevelAdvanced     Level = "advanced"
)

var levelRanks = map[Level]int{
	LevelBeginner:     1,
	LevelIntermediate: 2,
	LevelAdvanced:     3,
}

func (l Level) Valid() bool { return levelRanks[l] > 0 }

// Rank orders levels: beginner < intermediate < advanced. Unknown levels rank 0.
func (l Level) Rank() int { return levelRanks[l] }

// Identity holds what students and teachers have in common.
type Identity struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	FirstName    string    `json:"firstName"`
	LastName     string    `json:"lastName"`
	PasswordHash []byte    `json:"-"`
	Followers    []string  `json:"Followers"` // ids of opposite-role accounts following this one
	Following    []string  `json:"Following"` // ids of opposite-role accounts this one follows
	CreatedAt    time.Time `json:"createdAt"` // UTC
	UpdatedAt    time.Time `json:"updatedAt"` // UTC
	LastLogin    time.Time `json:"lastLogin"` // UTC
}

func (idt *Identity) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	idt.PasswordHash = hash
	return nil
}

func (idt *Identity) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(idt.PasswordHash, []byte(pwd))
}

func (idt *Identity) Name() string {
	return core.CleanString(idt.FirstName + " " + idt.LastName)
}

func (idt *Identity) HasFollower(id string) bool { return core.ContainsString(idt.Followers, id) }
func (idt *Identity) IsFollowing(id string) bool { return core.ContainsString(idt.Following, id) }

func (idt *Identity) Summary() Summary {
	return Summary{ID: idt.ID, FirstName: idt.FirstName, LastName: idt.LastName, Email: idt.Email}
}

// Account is either a *Student or a *Teacher.
type Account interface {
	Base() *Identity
	Role() Role
	HasFollower(id string) bool
	IsFollowing(id string) bool
}

type UnknownWord struct {
	Word       string `json:"word" validate:"required,notblank"`
	Definition string `json:"definition"`
}

type Student struct {
	Identity
	Level        Level         `json:"userLevel"`
	Evaluated    bool          `json:"evaluate"` // placement flow completed or skipped
	UnknownWords []UnknownWord `json:"unknownWords"`
}

func (s *Student) Base() *Identity { return &s.Identity }
func (s *Student) Role() Role      { return RoleStudent }

func (s Student) MarshalJSON() ([]byte, error) {
	type student Student
	return json.Marshal(struct {
		student
		Role Role `json:"role"`
	}{student(s), RoleStudent})
}

type Teacher struct {
	Identity
}

func (t *Teacher) Base() *Identity { return &t.Identity }
func (t *Teacher) Role() Role      { return RoleTeacher }

func (t Teacher) MarshalJSON() ([]byte, error) {
	type teacher Teacher
	return json.Marshal(struct {
		teacher
		Role Role `json:"role"`
	}{teacher(t), RoleTeacher})
}

// New returns an empty account of the given role.
func New(role Role) Account {
	if role == RoleTeacher {
		return &Teacher{}
	}
	return &Student{Level: LevelBeginner}
}

// Summary is the public card of an account shown in follower lists.
type Summary struct {
	ID        string `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
}

// NewAccount contains information needed to register a new Account.
type NewAccount struct {
	Email           string `json:"email" validate:"required,email"`
	FirstName       string `json:"firstName" validate:"required,notblank"`
	LastName        string `json:"lastName" validate:"required,notblank"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"passwordConfirm" validate:"required,eqfield=Password"`
	Role            Role   `json:"role" validate:"required,accountrole"`
}

func (na *NewAccount) Clean() {
	na.Email = core.CleanString(na.Email, true /* lower */)
	na.FirstName = core.CleanString(na.FirstName)
	na.LastName = core.CleanString(na.LastName)
	na.Role = Role(core.CleanString(string(na.Role), true /* lower */))
}

// GetFilter selects a single account. ID takes precedence over Email; an empty Role matches both.
type GetFilter struct {
	ID    string
	Email string
	Role  Role
}
