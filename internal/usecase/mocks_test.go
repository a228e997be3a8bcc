package usecase

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"media-suite-accounts/internal/domain"
	"media-suite-accounts/internal/domain/model"
	"media-suite-accounts/internal/domain/ports/repository"
)

func newTestLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

// mockTxManager serializes whole transaction bodies behind one mutex, which
// is how the tests emulate serializable isolation: two racing WithTx calls
// never interleave.
type mockTxManager struct {
	mu sync.Mutex
}

var _ repository.TransactionManager = (*mockTxManager)(nil)

func (m *mockTxManager) WithTx(ctx context.Context, _ pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn(ctx, repository.NoTX)
}

// flakyTxManager aborts the next n transactions with SQLSTATE 40001 before
// delegating, the way Postgres aborts the losing side of two serializable
// transactions. The abort happens before the body runs, matching a rolled
// back transaction whose effects never became visible.
type flakyTxManager struct {
	inner    repository.TransactionManager
	failures int32
}

var _ repository.TransactionManager = (*flakyTxManager)(nil)

func (m *flakyTxManager) failNext(n int32) { atomic.StoreInt32(&m.failures, n) }

func (m *flakyTxManager) WithTx(ctx context.Context, opt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	if atomic.AddInt32(&m.failures, -1) >= 0 {
		return &pgconn.PgError{Code: "40001", Message: "could not serialize access due to concurrent update"}
	}
	return m.inner.WithTx(ctx, opt, fn)
}

// --- activation codes ---

type memCodeRepo struct {
	mu    sync.Mutex
	codes map[string]*model.ActivationCode // keyed by code string
}

var _ repository.ActivationCodeRepository = (*memCodeRepo)(nil)

func newMemCodeRepo() *memCodeRepo {
	return &memCodeRepo{codes: make(map[string]*model.ActivationCode)}
}

func cloneCode(c *model.ActivationCode) *model.ActivationCode {
	cp := *c
	return &cp
}

func (r *memCodeRepo) Save(_ context.Context, _ repository.Tx, code *model.ActivationCode) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.codes[code.Code] = cloneCode(code)
	return nil
}

func (r *memCodeRepo) FindByCode(_ context.Context, _ repository.Tx, code string) (*model.ActivationCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.codes[code]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cloneCode(c), nil
}

func (r *memCodeRepo) CodeExists(_ context.Context, _ repository.Tx, code string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.codes[code]
	return ok, nil
}

func (r *memCodeRepo) FindUnused(_ context.Context, _ repository.Tx, t model.CodeType, limit int) ([]*model.ActivationCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.ActivationCode
	for _, c := range r.codes {
		if c.Type == t && c.Status == model.CodeStatusUnused {
			out = append(out, cloneCode(c))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memCodeRepo) CountUnused(_ context.Context, _ repository.Tx, t model.CodeType) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.codes {
		if c.Type == t && c.Status == model.CodeStatusUnused {
			n++
		}
	}
	return n, nil
}

func (r *memCodeRepo) List(_ context.Context, _ repository.Tx, filter repository.ActivationCodeFilter, offset, limit int) ([]*model.ActivationCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.ActivationCode
	for _, c := range r.codes {
		if filter.Type != nil && c.Type != *filter.Type {
			continue
		}
		if filter.Status != nil && c.Status != *filter.Status {
			continue
		}
		out = append(out, cloneCode(c))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// --- users ---

type memUserRepo struct {
	mu    sync.Mutex
	byID  map[string]*model.User
	names map[string]string // username -> id
}

var _ repository.UserRepository = (*memUserRepo)(nil)

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{byID: make(map[string]*model.User), names: make(map[string]string)}
}

func cloneUser(u *model.User) *model.User {
	cp := *u
	return &cp
}

func (r *memUserRepo) Insert(_ context.Context, _ repository.Tx, u *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, taken := r.names[u.Username]; taken {
		return domain.ErrConflict
	}
	r.byID[u.ID] = cloneUser(u)
	r.names[u.Username] = u.ID
	return nil
}

func (r *memUserRepo) Update(_ context.Context, _ repository.Tx, u *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[u.ID]; !ok {
		return domain.ErrNotFound
	}
	r.byID[u.ID] = cloneUser(u)
	return nil
}

func (r *memUserRepo) FindByID(_ context.Context, _ repository.Tx, id string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cloneUser(u), nil
}

func (r *memUserRepo) FindByUsername(_ context.Context, _ repository.Tx, username string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.names[username]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cloneUser(r.byID[id]), nil
}

func (r *memUserRepo) UsernameExists(_ context.Context, _ repository.Tx, username string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.names[username]
	return ok, nil
}

// --- sessions ---

// memSessionRepo mirrors the partial unique index: inserting a second active
// session for a user fails with domain.ErrConflict.
type memSessionRepo struct {
	mu      sync.Mutex
	byID    map[string]*model.Session
	byToken map[string]string // token -> id
}

var _ repository.SessionRepository = (*memSessionRepo)(nil)

func newMemSessionRepo() *memSessionRepo {
	return &memSessionRepo{byID: make(map[string]*model.Session), byToken: make(map[string]string)}
}

func cloneSession(s *model.Session) *model.Session {
	cp := *s
	return &cp
}

func (r *memSessionRepo) Insert(_ context.Context, _ repository.Tx, s *model.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.byToken[s.Token]; dup {
		return domain.ErrConflict
	}
	if s.IsActive {
		for _, existing := range r.byID {
			if existing.UserID == s.UserID && existing.IsActive {
				return domain.ErrConflict
			}
		}
	}
	r.byID[s.ID] = cloneSession(s)
	r.byToken[s.Token] = s.ID
	return nil
}

func (r *memSessionRepo) FindActiveByUser(_ context.Context, _ repository.Tx, userID string) (*model.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.byID {
		if s.UserID == userID && s.IsActive {
			return cloneSession(s), nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *memSessionRepo) FindByToken(_ context.Context, _ repository.Tx, token string) (*model.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.byToken[token]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cloneSession(r.byID[id]), nil
}

func (r *memSessionRepo) DeactivateByToken(_ context.Context, _ repository.Tx, token string, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.byToken[token]
	if !ok {
		return false, nil
	}
	s := r.byID[id]
	if !s.IsActive {
		return false, nil
	}
	s.IsActive = false
	s.LastAccessedAt = at
	return true, nil
}

func (r *memSessionRepo) DeactivateAllForUser(_ context.Context, _ repository.Tx, userID, exceptToken string, at time.Time) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var tokens []string
	for _, s := range r.byID {
		if s.UserID != userID || !s.IsActive {
			continue
		}
		if exceptToken != "" && s.Token == exceptToken {
			continue
		}
		s.IsActive = false
		s.LastAccessedAt = at
		tokens = append(tokens, s.Token)
	}
	return tokens, nil
}

func (r *memSessionRepo) Delete(_ context.Context, _ repository.Tx, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.byID[sessionID]; ok {
		delete(r.byToken, s.Token)
		delete(r.byID, sessionID)
	}
	return nil
}

func (r *memSessionRepo) TouchLastAccessed(_ context.Context, _ repository.Tx, sessionID string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.byID[sessionID]
	if !ok {
		return domain.ErrNotFound
	}
	s.LastAccessedAt = at
	return nil
}

func (r *memSessionRepo) ExtendExpiry(_ context.Context, _ repository.Tx, sessionID string, until time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.byID[sessionID]
	if !ok {
		return domain.ErrNotFound
	}
	s.ExpiresAt = until
	return nil
}

func (r *memSessionRepo) DeleteExpired(_ context.Context, _ repository.Tx, now time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for id, s := range r.byID {
		if s.IsExpired(now) {
			delete(r.byToken, s.Token)
			delete(r.byID, id)
			n++
		}
	}
	return n, nil
}

func (r *memSessionRepo) DeleteInactiveBefore(_ context.Context, _ repository.Tx, threshold time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for id, s := range r.byID {
		if !s.IsActive && s.CreatedAt.Before(threshold) {
			delete(r.byToken, s.Token)
			delete(r.byID, id)
			n++
		}
	}
	return n, nil
}

func (r *memSessionRepo) activeCount(userID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, s := range r.byID {
		if s.UserID == userID && s.IsActive {
			n++
		}
	}
	return n
}

// --- token store ---

type memTokenStore struct {
	mu      sync.Mutex
	records map[string]*repository.TokenRecord
}

var _ repository.TokenStore = (*memTokenStore)(nil)

func newMemTokenStore() *memTokenStore {
	return &memTokenStore{records: make(map[string]*repository.TokenRecord)}
}

func (s *memTokenStore) Save(_ context.Context, rec *repository.TokenRecord, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *rec
	s.records[rec.Token] = &cp
	return nil
}

func (s *memTokenStore) Find(_ context.Context, token string) (*repository.TokenRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[token]
	if !ok {
		return nil, domain.ErrTokenNotFound
	}
	if time.Now().After(rec.ExpiresAt) {
		delete(s.records, token)
		return nil, domain.ErrTokenExpired
	}
	cp := *rec
	cp.Token = token
	return &cp, nil
}

func (s *memTokenStore) Delete(_ context.Context, tokens ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range tokens {
		delete(s.records, t)
	}
	return nil
}

func (s *memTokenStore) size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// --- password hashing ---

// plainHasher keeps unit tests fast; bcrypt is covered in infra/security.
type plainHasher struct{}

func (plainHasher) Hash(plain string) (string, error) { return "hashed:" + plain, nil }
func (plainHasher) Verify(plain, hash string) bool    { return hash == "hashed:"+plain }
