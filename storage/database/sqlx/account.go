package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/wordwise/backend/core"
	"github.com/wordwise/backend/core/account"
)

const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"

	accountColumns = `id, role, email, first_name, last_name, password_hash, user_level, evaluate,
		created_at, updated_at, last_login`
)

type accountRow struct {
	ID           string         `db:"id"`
	Role         string         `db:"role"`
	Email        string         `db:"email"`
	FirstName    string         `db:"first_name"`
	LastName     string         `db:"last_name"`
	PasswordHash []byte         `db:"password_hash"`
	UserLevel    sql.NullString `db:"user_level"`
	Evaluate     bool           `db:"evaluate"`
	CreatedAt    time.Time      `db:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at"`
	LastLogin    sql.NullTime   `db:"last_login"`
}

func (row accountRow) toAccount() account.Account {
	acc := account.New(account.Role(row.Role))
	idt := acc.Base()
	idt.ID = row.ID
	idt.Email = row.Email
	idt.FirstName = row.FirstName
	idt.LastName = row.LastName
	idt.PasswordHash = row.PasswordHash
	idt.CreatedAt = row.CreatedAt.UTC()
	idt.UpdatedAt = row.UpdatedAt.UTC()
	if row.LastLogin.Valid {
		idt.LastLogin = row.LastLogin.Time.UTC()
	}
	if stdt, ok := acc.(*account.Student); ok {
		if row.UserLevel.Valid {
			stdt.Level = account.Level(row.UserLevel.String)
		}
		stdt.Evaluated = row.Evaluate
	}
	return acc
}

func isPQError(err error, code string) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == code
	}
	return false
}

func validUUID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

type accountRepository struct {
	db core.DB
}

func NewAccountRepository(db core.DB) account.Repository {
	return &accountRepository{db: db}
}

func (repo *accountRepository) CheckEmailUniqueness(ctx context.Context, email string, excludedIDs ...string) error {
	var ids []string
	if err := repo.db.SelectContext(ctx, &ids, `SELECT id FROM accounts WHERE email = $1`, email); err != nil {
		return errors.Wrap(err, "checking email uniqueness")
	}
	for _, id := range ids {
		if !core.ContainsString(excludedIDs, id) {
			return account.ErrEmailExists
		}
	}
	return nil
}

func (repo *accountRepository) CreateAccount(ctx context.Context, acc account.Account) (account.Account, error) {
	idt := acc.Base()
	var level sql.NullString
	var evaluated bool
	if stdt, ok := acc.(*account.Student); ok {
		level = sql.NullString{String: string(stdt.Level), Valid: true}
		evaluated = stdt.Evaluated
	}

	_, err := repo.db.ExecContext(ctx, `
		INSERT INTO accounts (id, role, email, first_name, last_name, password_hash, user_level, evaluate, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		idt.ID, acc.Role(), idt.Email, idt.FirstName, idt.LastName, idt.PasswordHash, level, evaluated,
		idt.CreatedAt, idt.UpdatedAt,
	)
	if err != nil {
		if isPQError(err, pqUniqueViolation) {
			return nil, account.ErrEmailExists
		}
		return nil, errors.Wrap(err, "inserting account")
	}
	return repo.GetAccount(ctx, account.GetFilter{ID: idt.ID})
}

func (repo *accountRepository) GetAccount(ctx context.Context, filter account.GetFilter) (account.Account, error) {
	var (
		where string
		args  []interface{}
	)
	switch {
	case filter.ID != "":
		if !validUUID(filter.ID) {
			return nil, account.ErrNotFound
		}
		where, args = "id = $1", []interface{}{filter.ID}
	case filter.Email != "":
		where, args = "email = $1", []interface{}{filter.Email}
	default:
		return nil, account.ErrNotFound
	}
	if filter.Role != "" {
		where += " AND role = $2"
		args = append(args, filter.Role)
	}

	var row accountRow
	if err := repo.db.GetContext(ctx, &row, "SELECT "+accountColumns+" FROM accounts WHERE "+where, args...); err != nil {
		if errors.Cause(err) == sql.ErrNoRows {
			return nil, account.ErrNotFound
		}
		return nil, errors.Wrap(err, "selecting account")
	}

	acc := row.toAccount()
	if err := repo.hydrate(ctx, acc); err != nil {
		return nil, err
	}
	return acc, nil
}

func (repo *accountRepository) hydrate(ctx context.Context, acc account.Account) error {
	idt := acc.Base()
	idt.Followers, idt.Following = []string{}, []string{}
	if err := repo.db.SelectContext(ctx, &idt.Followers,
		`SELECT follower_id FROM follows WHERE followee_id = $1 ORDER BY created_at, follower_id`, idt.ID); err != nil {
		return errors.Wrap(err, "selecting followers")
	}
	if err := repo.db.SelectContext(ctx, &idt.Following,
		`SELECT followee_id FROM follows WHERE follower_id = $1 ORDER BY created_at, followee_id`, idt.ID); err != nil {
		return errors.Wrap(err, "selecting following")
	}

	if stdt, ok := acc.(*account.Student); ok {
		stdt.UnknownWords = []account.UnknownWord{}
		if err := repo.db.SelectContext(ctx, &stdt.UnknownWords,
			`SELECT word, definition FROM unknown_words WHERE account_id = $1 ORDER BY id`, idt.ID); err != nil {
			return errors.Wrap(err, "selecting unknown words")
		}
	}
	return nil
}

func (repo *accountRepository) UpdateAccount(ctx context.Context, acc account.Account) (account.Account, error) {
	idt := acc.Base()
	var lastLogin sql.NullTime
	if !idt.LastLogin.IsZero() {
		lastLogin = sql.NullTime{Time: idt.LastLogin, Valid: true}
	}
	var pwdHash interface{} // NULL keeps the stored hash
	if len(idt.PasswordHash) > 0 {
		pwdHash = idt.PasswordHash
	}

	res, err := repo.db.ExecContext(ctx, `
		UPDATE accounts SET
			email = $2, first_name = $3, last_name = $4,
			password_hash = COALESCE($5, password_hash),
			last_login = $6, updated_at = $7
		WHERE id = $1`,
		idt.ID, idt.Email, idt.FirstName, idt.LastName, pwdHash, lastLogin, account.NowFunc(),
	)
	if err != nil {
		if isPQError(err, pqUniqueViolation) {
			return nil, account.ErrEmailExists
		}
		return nil, errors.Wrap(err, "updating account")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, account.ErrNotFound
	}
	return repo.GetAccount(ctx, account.GetFilter{ID: idt.ID})
}

func (repo *accountRepository) ListSummaries(ctx context.Context, role account.Role, ids []string) ([]account.Summary, error) {
	valid := make([]string, 0, len(ids))
	for _, id := range ids {
		if validUUID(id) {
			valid = append(valid, id)
		}
	}
	sums := make([]account.Summary, 0, len(valid))
	if len(valid) == 0 {
		return sums, nil
	}

	q, args, err := sqlx.In(`
		SELECT id, first_name, last_name, email FROM accounts
		WHERE role = ? AND id IN (?)
		ORDER BY last_name, first_name, id`, role, valid)
	if err != nil {
		return nil, errors.Wrap(err, "building summaries query")
	}
	rows := []struct {
		ID        string `db:"id"`
		FirstName string `db:"first_name"`
		LastName  string `db:"last_name"`
		Email     string `db:"email"`
	}{}
	if err = repo.db.SelectContext(ctx, &rows, repo.db.Rebind(q), args...); err != nil {
		return nil, errors.Wrap(err, "selecting summaries")
	}
	for _, r := range rows {
		sums = append(sums, account.Summary{ID: r.ID, FirstName: r.FirstName, LastName: r.LastName, Email: r.Email})
	}
	return sums, nil
}

func (repo *accountRepository) ListStudentIDs(ctx context.Context) ([]string, error) {
	ids := []string{}
	if err := repo.db.SelectContext(ctx, &ids,
		`SELECT id FROM accounts WHERE role = $1 ORDER BY id`, account.RoleStudent); err != nil {
		return nil, errors.Wrap(err, "selecting student ids")
	}
	return ids, nil
}

func (repo *accountRepository) AddFollowEdge(ctx context.Context, edge account.Edge) (bool, error) {
	if !validUUID(edge.FollowerID) || !validUUID(edge.FolloweeID) {
		return false, account.ErrNotFound
	}
	res, err := repo.db.ExecContext(ctx, `
		INSERT INTO follows (follower_id, follower_role, followee_id, followee_role)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (follower_id, followee_id) DO NOTHING`,
		edge.FollowerID, edge.FollowerRole, edge.FolloweeID, edge.FolloweeRole,
	)
	if err != nil {
		if isPQError(err, pqForeignKeyViolation) {
			return false, account.ErrNotFound
		}
		return false, errors.Wrap(err, "inserting follow edge")
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

func (repo *accountRepository) RemoveFollowEdge(ctx context.Context, followerID, followeeID string) (bool, error) {
	if !validUUID(followerID) || !validUUID(followeeID) {
		return false, nil
	}
	res, err := repo.db.ExecContext(ctx,
		`DELETE FROM follows WHERE follower_id = $1 AND followee_id = $2`, followerID, followeeID)
	if err != nil {
		return false, errors.Wrap(err, "deleting follow edge")
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

// updateStudent runs "UPDATE accounts SET <set> WHERE <id = $1 AND role = 'user'><cond>" and returns the affected rows.
func (repo *accountRepository) updateStudent(ctx context.Context, set, cond string, args ...interface{}) (int64, error) {
	if !validUUID(args[0].(string)) {
		return 0, account.ErrNotFound
	}
	res, err := repo.db.ExecContext(ctx,
		"UPDATE accounts SET "+set+", updated_at = NOW() WHERE id = $1 AND role = 'user'"+cond, args...)
	if err != nil {
		return 0, errors.Wrap(err, "updating student")
	}
	return res.RowsAffected()
}

func (repo *accountRepository) SetStudentLevel(ctx context.Context, id string, level account.Level, evaluated bool) error {
	n, err := repo.updateStudent(ctx, "user_level = $2, evaluate = evaluate OR $3", "", id, level, evaluated)
	if err != nil {
		return err
	}
	if n == 0 {
		return account.ErrNotFound
	}
	return nil
}

func (repo *accountRepository) PromoteStudentLevel(ctx context.Context, id string, from, to account.Level) (bool, error) {
	n, err := repo.updateStudent(ctx, "user_level = $2", " AND user_level = $3", id, to, from)
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (repo *accountRepository) SetEvaluated(ctx context.Context, id string) error {
	n, err := repo.updateStudent(ctx, "evaluate = TRUE", "", id)
	if err != nil {
		return err
	}
	if n == 0 {
		return account.ErrNotFound
	}
	return nil
}

func (repo *accountRepository) AddUnknownWord(ctx context.Context, id string, word account.UnknownWord) error {
	if !validUUID(id) {
		return account.ErrNotFound
	}
	res, err := repo.db.ExecContext(ctx, `
		INSERT INTO unknown_words (account_id, word, definition)
		SELECT id, $2, $3 FROM accounts WHERE id = $1 AND role = 'user'`,
		id, word.Word, word.Definition,
	)
	if err != nil {
		return errors.Wrap(err, "inserting unknown word")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return account.ErrNotFound
	}
	return nil
}
