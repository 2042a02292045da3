package inmemdb

import (
	"sync"

	"github.com/wordwise/backend/core/account"
	"github.com/wordwise/backend/core/progress"
)

type (
	// DB is a process-local store. A single lock guards all tables so that
	// cross-table checks (edges, progress owners) see a consistent state.
	DB struct {
		mutex    sync.RWMutex
		accounts map[string]account.Account
		edges    []account.Edge
		words    map[string][]account.UnknownWord
		progress map[string]*progress.Progress
	}
)

func Open() *DB {
	return &DB{
		accounts: make(map[string]account.Account),
		words:    make(map[string][]account.UnknownWord),
		progress: make(map[string]*progress.Progress),
	}
}
