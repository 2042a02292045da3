package inmemdb

import (
	"context"
	"time"

	"github.com/wordwise/backend/core/account"
	"github.com/wordwise/backend/core/progress"
)

type progressRepository struct {
	db *DB
}

func NewProgressRepository(db *DB) progress.Repository {
	return &progressRepository{db: db}
}

// getOrCreate returns the stored record of userID. Caller holds the write lock.
func (repo *progressRepository) getOrCreate(userID string, at time.Time) (*progress.Progress, error) {
	if p, ok := repo.db.progress[userID]; ok {
		return p, nil
	}
	if _, ok := repo.db.accounts[userID]; !ok {
		return nil, account.ErrNotFound
	}
	p := progress.New(userID)
	p.LastUpdated = at
	repo.db.progress[userID] = &p
	return &p, nil
}

func (repo *progressRepository) GetOrCreate(_ context.Context, userID string) (progress.Progress, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	p, err := repo.getOrCreate(userID, progress.NowFunc())
	if err != nil {
		return progress.Progress{}, err
	}
	return *p, nil
}

func (repo *progressRepository) Increment(_ context.Context, userID string, d progress.Delta, at time.Time) (progress.Progress, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	p, err := repo.getOrCreate(userID, at)
	if err != nil {
		return progress.Progress{}, err
	}
	p.Apply(d, at)
	return *p, nil
}
