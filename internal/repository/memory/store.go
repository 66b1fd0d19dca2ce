// Package memory is an in-process implementation of the repository
// interfaces. It keeps the semantics of the Postgres store that callers rely
// on (unique keys, atomic replace, transactions that roll back on error) and
// is used by tests and local runs without a database.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/dom/vidshare-backend/internal/domain"
	"github.com/dom/vidshare-backend/internal/repository"
)

type Store struct {
	mu   sync.Mutex
	data *state
}

type state struct {
	users         map[uint]domain.User
	refreshTokens map[uint]domain.RefreshToken
	resetRequests []domain.ResetPasswordRequest
	subscriptions []domain.Subscription
	events        []domain.AuthEvent
	lastID        uint
}

func NewStore() *Store {
	return &Store{
		data: &state{
			users:         make(map[uint]domain.User),
			refreshTokens: make(map[uint]domain.RefreshToken),
		},
	}
}

func (s *state) nextID() uint {
	s.lastID++
	return s.lastID
}

func (s *state) clone() *state {
	c := &state{
		users:         make(map[uint]domain.User, len(s.users)),
		refreshTokens: make(map[uint]domain.RefreshToken, len(s.refreshTokens)),
		resetRequests: append([]domain.ResetPasswordRequest(nil), s.resetRequests...),
		subscriptions: append([]domain.Subscription(nil), s.subscriptions...),
		events:        append([]domain.AuthEvent(nil), s.events...),
		lastID:        s.lastID,
	}
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.refreshTokens {
		c.refreshTokens[k] = v
	}
	return c
}

// scope serializes access to the store. Repositories created inside a
// transaction share the already held lock.
type scope struct {
	store *Store
	inTx  bool
}

func (sc *scope) run(fn func(st *state) error) error {
	if sc.inTx {
		return fn(sc.store.data)
	}
	sc.store.mu.Lock()
	defer sc.store.mu.Unlock()
	return fn(sc.store.data)
}

// Repositories returns repositories backed by the store.
func (s *Store) Repositories() *repository.Repositories {
	return newRepositories(&scope{store: s})
}

func newRepositories(sc *scope) *repository.Repositories {
	return &repository.Repositories{
		User:          &userRepository{sc: sc},
		RefreshToken:  &refreshTokenRepository{sc: sc},
		ResetPassword: &resetPasswordRepository{sc: sc},
		Subscription:  &subscriptionRepository{sc: sc},
		AuthEvent:     &authEventRepository{sc: sc},
		Tx:            &transactor{sc: sc},
	}
}

type transactor struct {
	sc *scope
}

func (t *transactor) WithinTransaction(ctx context.Context, fn func(ctx context.Context, repos *repository.Repositories) error) error {
	if t.sc.inTx {
		return fn(ctx, newRepositories(t.sc))
	}

	store := t.sc.store
	store.mu.Lock()
	defer store.mu.Unlock()

	snapshot := store.data.clone()
	if err := fn(ctx, newRepositories(&scope{store: store, inTx: true})); err != nil {
		store.data = snapshot
		return err
	}
	return nil
}

func stamp(t *time.Time) {
	if t.IsZero() {
		*t = time.Now()
	}
}

// AuthEvents returns the recorded events of userID, oldest first.
func (s *Store) AuthEvents(userID uint) []domain.AuthEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	var events []domain.AuthEvent
	for _, e := range s.data.events {
		if e.UserID != nil && *e.UserID == userID {
			events = append(events, e)
		}
	}
	return events
}

// DropRefreshToken forgets the stored refresh token of userID.
func (s *Store) DropRefreshToken(userID uint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data.refreshTokens, userID)
}
