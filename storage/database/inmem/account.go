package inmemdb

import (
	"context"
	"sort"

	"github.com/wordwise/backend/core"
	"github.com/wordwise/backend/core/account"
)

type accountRepository struct {
	db *DB
}

func NewAccountRepository(db *DB) account.Repository {
	return &accountRepository{db: db}
}

// hydrate returns a copy of stored with its derived fields populated. Caller holds the lock.
func (repo *accountRepository) hydrate(stored account.Account) account.Account {
	var acc account.Account
	switch a := stored.(type) {
	case *account.Student:
		c := *a
		c.UnknownWords = append([]account.UnknownWord{}, repo.db.words[a.ID]...)
		acc = &c
	case *account.Teacher:
		c := *a
		acc = &c
	}

	idt := acc.Base()
	idt.Followers, idt.Following = []string{}, []string{}
	for _, e := range repo.db.edges {
		if e.FolloweeID == idt.ID {
			idt.Followers = append(idt.Followers, e.FollowerID)
		}
		if e.FollowerID == idt.ID {
			idt.Following = append(idt.Following, e.FolloweeID)
		}
	}
	return acc
}

func (repo *accountRepository) CheckEmailUniqueness(_ context.Context, email string, excludedIDs ...string) error {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for id, acc := range repo.db.accounts {
		if acc.Base().Email == email && !core.ContainsString(excludedIDs, id) {
			return account.ErrEmailExists
		}
	}
	return nil
}

func (repo *accountRepository) CreateAccount(_ context.Context, acc account.Account) (account.Account, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	idt := acc.Base()
	for _, other := range repo.db.accounts {
		if other.Base().Email == idt.Email {
			return nil, account.ErrEmailExists
		}
	}
	stored := repo.strip(acc)
	repo.db.accounts[idt.ID] = stored
	return repo.hydrate(stored), nil
}

// strip copies acc without its derived fields.
func (repo *accountRepository) strip(acc account.Account) account.Account {
	switch a := acc.(type) {
	case *account.Student:
		c := *a
		c.Followers, c.Following, c.UnknownWords = nil, nil, nil
		return &c
	case *account.Teacher:
		c := *a
		c.Followers, c.Following = nil, nil
		return &c
	}
	return acc
}

func (repo *accountRepository) find(filter account.GetFilter) (account.Account, bool) {
	if filter.ID != "" {
		acc, ok := repo.db.accounts[filter.ID]
		if !ok || (filter.Role != "" && acc.Role() != filter.Role) {
			return nil, false
		}
		return acc, true
	}
	if filter.Email == "" {
		return nil, false
	}
	for _, acc := range repo.db.accounts {
		if acc.Base().Email == filter.Email && (filter.Role == "" || acc.Role() == filter.Role) {
			return acc, true
		}
	}
	return nil, false
}

func (repo *accountRepository) GetAccount(_ context.Context, filter account.GetFilter) (account.Account, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if acc, ok := repo.find(filter); ok {
		return repo.hydrate(acc), nil
	}
	return nil, account.ErrNotFound
}

func (repo *accountRepository) UpdateAccount(_ context.Context, acc account.Account) (account.Account, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	idt := acc.Base()
	orig, ok := repo.db.accounts[idt.ID]
	if !ok {
		return nil, account.ErrNotFound
	}
	for id, other := range repo.db.accounts {
		if id != idt.ID && other.Base().Email == idt.Email {
			return nil, account.ErrEmailExists
		}
	}

	// only identity fields are saved here
	origIdt := orig.Base()
	origIdt.Email = idt.Email
	origIdt.FirstName = idt.FirstName
	origIdt.LastName = idt.LastName
	origIdt.LastLogin = idt.LastLogin
	if idt.PasswordHash != nil {
		origIdt.PasswordHash = idt.PasswordHash
	}
	origIdt.UpdatedAt = account.NowFunc()
	return repo.hydrate(orig), nil
}

func (repo *accountRepository) ListSummaries(_ context.Context, role account.Role, ids []string) ([]account.Summary, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	sums := make([]account.Summary, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		acc, ok := repo.db.accounts[id]
		if !ok || seen[id] || acc.Role() != role {
			continue
		}
		seen[id] = true
		sums = append(sums, acc.Base().Summary())
	}
	sort.SliceStable(sums, func(i, j int) bool {
		if sums[i].LastName != sums[j].LastName {
			return sums[i].LastName < sums[j].LastName
		}
		return sums[i].FirstName < sums[j].FirstName
	})
	return sums, nil
}

func (repo *accountRepository) ListStudentIDs(_ context.Context) ([]string, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	ids := make([]string, 0, len(repo.db.accounts))
	for id, acc := range repo.db.accounts {
		if acc.Role() == account.RoleStudent {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (repo *accountRepository) AddFollowEdge(_ context.Context, edge account.Edge) (bool, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	follower, ok := repo.db.accounts[edge.FollowerID]
	if !ok || follower.Role() != edge.FollowerRole {
		return false, account.ErrNotFound
	}
	followee, ok := repo.db.accounts[edge.FolloweeID]
	if !ok || followee.Role() != edge.FolloweeRole {
		return false, account.ErrNotFound
	}
	if edge.FollowerRole == edge.FolloweeRole {
		return false, account.ErrWrongRole
	}
	for _, e := range repo.db.edges {
		if e.FollowerID == edge.FollowerID && e.FolloweeID == edge.FolloweeID {
			return false, nil
		}
	}
	repo.db.edges = append(repo.db.edges, edge)
	return true, nil
}

func (repo *accountRepository) RemoveFollowEdge(_ context.Context, followerID, followeeID string) (bool, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for i, e := range repo.db.edges {
		if e.FollowerID == followerID && e.FolloweeID == followeeID {
			repo.db.edges = append(repo.db.edges[:i:i], repo.db.edges[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (repo *accountRepository) student(id string) (*account.Student, error) {
	acc, ok := repo.db.accounts[id]
	if !ok {
		return nil, account.ErrNotFound
	}
	stdt, ok := acc.(*account.Student)
	if !ok {
		return nil, account.ErrNotFound
	}
	return stdt, nil
}

func (repo *accountRepository) SetStudentLevel(_ context.Context, id string, level account.Level, evaluated bool) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	stdt, err := repo.student(id)
	if err != nil {
		return err
	}
	stdt.Level = level
	stdt.Evaluated = stdt.Evaluated || evaluated
	stdt.UpdatedAt = account.NowFunc()
	return nil
}

func (repo *accountRepository) PromoteStudentLevel(_ context.Context, id string, from, to account.Level) (bool, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	stdt, err := repo.student(id)
	if err != nil {
		return false, err
	}
	if stdt.Level != from {
		return false, nil
	}
	stdt.Level = to
	stdt.UpdatedAt = account.NowFunc()
	return true, nil
}

func (repo *accountRepository) SetEvaluated(_ context.Context, id string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	stdt, err := repo.student(id)
	if err != nil {
		return err
	}
	stdt.Evaluated = true
	stdt.UpdatedAt = account.NowFunc()
	return nil
}

func (repo *accountRepository) AddUnknownWord(_ context.Context, id string, word account.UnknownWord) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, err := repo.student(id); err != nil {
		return err
	}
	repo.db.words[id] = append(repo.db.words[id], word)
	return nil
}
