package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/wordwise/backend/core/account"
)

// CreateAccount stores an account of the given role straight through repo.
// pwd may be empty when the test never logs in.
func CreateAccount(
	t *testing.T,
	repo account.Repository,
	role account.Role,
	firstName, lastName, email, pwd string,
	createdAt ...time.Time,
) account.Account {
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	acc := account.New(role)
	idt := acc.Base()
	idt.ID = uuid.NewString()
	idt.Email = email
	idt.FirstName = firstName
	idt.LastName = lastName
	idt.CreatedAt = tstamp
	idt.UpdatedAt = tstamp
	if pwd != "" {
		if err := idt.SetPassword(pwd); err != nil {
			t.Fatalf("CreateAccount() failed: %v", err)
		}
	}
	acc, err := repo.CreateAccount(context.Background(), acc)
	if err != nil {
		t.Fatalf("CreateAccount() failed: %v", err)
	}
	return acc
}

func CreateStudent(t *testing.T, repo account.Repository, firstName, lastName, email, pwd string) *account.Student {
	return CreateAccount(t, repo, account.RoleStudent, firstName, lastName, email, pwd).(*account.Student)
}

func CreateTeacher(t *testing.T, repo account.Repository, firstName, lastName, email, pwd string) *account.Teacher {
	return CreateAccount(t, repo, account.RoleTeacher, firstName, lastName, email, pwd).(*account.Teacher)
}

// Reload fetches the current state of acc, derived fields included.
func Reload(t *testing.T, repo account.Repository, acc account.Account) account.Account {
	fresh, err := repo.GetAccount(context.Background(), account.GetFilter{ID: acc.Base().ID})
	if err != nil {
		t.Fatalf("Reload() failed: %v", err)
	}
	return fresh
}
