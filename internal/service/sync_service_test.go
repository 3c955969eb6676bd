package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"github.com/spec-kit/user-sync-service/internal/domain"
	"github.com/spec-kit/user-sync-service/internal/events"
	apperrors "github.com/spec-kit/user-sync-service/pkg/util/errorutil"
)

type fakeUserRepo struct {
	createFn func(context.Context, *domain.User) error
	upsertFn func(context.Context, *domain.User) error
	deleteFn func(context.Context, string) (bool, error)
	getFn    func(context.Context, string) (*domain.User, error)
}

func (f *fakeUserRepo) Create(ctx context.Context, user *domain.User) error {
	if f.createFn != nil {
		return f.createFn(ctx, user)
	}
	return errors.New("createFn not provided")
}

func (f *fakeUserRepo) Upsert(ctx context.Context, user *domain.User) error {
	if f.upsertFn != nil {
		return f.upsertFn(ctx, user)
	}
	return errors.New("upsertFn not provided")
}

func (f *fakeUserRepo) Delete(ctx context.Context, externalID string) (bool, error) {
	if f.deleteFn != nil {
		return f.deleteFn(ctx, externalID)
	}
	return false, errors.New("deleteFn not provided")
}

func (f *fakeUserRepo) GetByExternalID(ctx context.Context, externalID string) (*domain.User, error) {
	if f.getFn != nil {
		return f.getFn(ctx, externalID)
	}
	return nil, errors.New("getFn not provided")
}

// memoryUserRepo models the store's per-key overwrite semantics for the
// idempotence and ordering tests.
type memoryUserRepo struct {
	mu    sync.Mutex
	users map[string]domain.User
}

func newMemoryUserRepo() *memoryUserRepo {
	return &memoryUserRepo{users: make(map[string]domain.User)}
}

func (m *memoryUserRepo) Create(ctx context.Context, user *domain.User) error {
	return m.Upsert(ctx, user)
}

func (m *memoryUserRepo) Upsert(_ context.Context, user *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[user.ExternalID] = *user
	return nil
}

func (m *memoryUserRepo) Delete(_ context.Context, externalID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, existed := m.users[externalID]
	delete(m.users, externalID)
	return existed, nil
}

func (m *memoryUserRepo) GetByExternalID(_ context.Context, externalID string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[externalID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &user, nil
}

type capturingDispatcher struct {
	published []events.Event
}

func (c *capturingDispatcher) Publish(_ context.Context, event events.Event) error {
	c.published = append(c.published, event)
	return nil
}

func (c *capturingDispatcher) Subscribe(events.EventType, events.EventHandler) {}

func createdEvent(id string) domain.UserEvent {
	return domain.UserEvent{
		Kind:       domain.EventKindCreated,
		ExternalID: id,
		Name:       "Ada Lovelace",
		Email:      "ada@example.com",
		Username:   "adalovelace",
		AvatarURL:  "https://img.example.com/ada.png",
	}
}

func TestApply_CreatedTwiceLeavesOneRecord(t *testing.T) {
	repo := newMemoryUserRepo()
	svc := NewSyncService(repo, &capturingDispatcher{}, zap.NewNop())

	first := createdEvent("u1")
	if _, err := svc.Apply(context.Background(), first); err != nil {
		t.Fatalf("first apply: %v", err)
	}

	second := createdEvent("u1")
	second.Email = "ada.new@example.com"
	if _, err := svc.Apply(context.Background(), second); err != nil {
		t.Fatalf("second apply: %v", err)
	}

	if len(repo.users) != 1 {
		t.Fatalf("expected one record, got %d", len(repo.users))
	}
	user, err := repo.GetByExternalID(context.Background(), "u1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	// Redelivered creates overwrite; the later delivery wins.
	if user.Email != "ada.new@example.com" {
		t.Fatalf("expected second delivery to win, got email %q", user.Email)
	}
}

func TestApply_UpdatedBeforeCreated(t *testing.T) {
	repo := newMemoryUserRepo()
	svc := NewSyncService(repo, &capturingDispatcher{}, zap.NewNop())

	update := createdEvent("u1")
	update.Kind = domain.EventKindUpdated
	result, err := svc.Apply(context.Background(), update)
	if err != nil {
		t.Fatalf("apply update before create: %v", err)
	}
	if result.Outcome != OutcomeUpdated {
		t.Fatalf("expected outcome updated, got %q", result.Outcome)
	}

	user, err := repo.GetByExternalID(context.Background(), "u1")
	if err != nil {
		t.Fatalf("expected record after out-of-order update: %v", err)
	}
	if user.Name != "Ada Lovelace" {
		t.Fatalf("expected updated fields persisted, got name %q", user.Name)
	}
}

func TestApply_DeleteIsIdempotent(t *testing.T) {
	repo := newMemoryUserRepo()
	svc := NewSyncService(repo, &capturingDispatcher{}, zap.NewNop())

	if _, err := svc.Apply(context.Background(), createdEvent("u1")); err != nil {
		t.Fatalf("create: %v", err)
	}

	deleted := domain.UserEvent{Kind: domain.EventKindDeleted, ExternalID: "u1"}
	for i := 0; i < 2; i++ {
		result, err := svc.Apply(context.Background(), deleted)
		if err != nil {
			t.Fatalf("delete attempt %d: %v", i+1, err)
		}
		if result.Outcome != OutcomeDeleted {
			t.Fatalf("delete attempt %d: expected outcome deleted, got %q", i+1, result.Outcome)
		}
	}
	if _, err := repo.GetByExternalID(context.Background(), "u1"); !errors.Is(err, pgx.ErrNoRows) {
		t.Fatalf("expected no record after delete, got %v", err)
	}

	// Deleting a key that never existed is also fine.
	if _, err := svc.Apply(context.Background(), domain.UserEvent{Kind: domain.EventKindDeleted, ExternalID: "ghost"}); err != nil {
		t.Fatalf("delete of absent key: %v", err)
	}
}

func TestApply_UnhandledIsANoOp(t *testing.T) {
	repo := &fakeUserRepo{} // any store call would error
	dispatcher := &capturingDispatcher{}
	svc := NewSyncService(repo, dispatcher, zap.NewNop())

	result, err := svc.Apply(context.Background(), domain.UserEvent{Kind: domain.EventKindUnhandled})
	if err != nil {
		t.Fatalf("unhandled event must succeed: %v", err)
	}
	if result.Outcome != OutcomeSkipped {
		t.Fatalf("expected outcome skipped, got %q", result.Outcome)
	}
	if len(dispatcher.published) != 0 {
		t.Fatalf("expected no events published, got %d", len(dispatcher.published))
	}
}

func TestApply_UniqueViolationSurfacesAsConflict(t *testing.T) {
	repo := &fakeUserRepo{
		createFn: func(context.Context, *domain.User) error {
			return &pgconn.PgError{Code: "23505", ConstraintName: "users_username_key"}
		},
	}
	svc := NewSyncService(repo, &capturingDispatcher{}, zap.NewNop())

	_, err := svc.Apply(context.Background(), createdEvent("u1"))
	domainErr := apperrors.ToDomainError(err)
	if domainErr == nil || domainErr.Code != "CONFLICT" {
		t.Fatalf("expected CONFLICT, got %v", err)
	}
}

func TestApply_StoreFailureIsRetriable(t *testing.T) {
	repo := &fakeUserRepo{
		upsertFn: func(context.Context, *domain.User) error {
			return errors.New("connection refused")
		},
	}
	svc := NewSyncService(repo, &capturingDispatcher{}, zap.NewNop())

	event := createdEvent("u1")
	event.Kind = domain.EventKindUpdated
	_, err := svc.Apply(context.Background(), event)
	domainErr := apperrors.ToDomainError(err)
	if domainErr == nil || domainErr.Code != "STORE_UNAVAILABLE" {
		t.Fatalf("expected STORE_UNAVAILABLE, got %v", err)
	}
	if domainErr.HTTPStatus < 500 {
		t.Fatalf("store failures must map to a 5xx status, got %d", domainErr.HTTPStatus)
	}
}

func TestApply_PublishesLifecycleEvents(t *testing.T) {
	repo := newMemoryUserRepo()
	dispatcher := &capturingDispatcher{}
	svc := NewSyncService(repo, dispatcher, zap.NewNop())

	if _, err := svc.Apply(context.Background(), createdEvent("u1")); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.Apply(context.Background(), domain.UserEvent{Kind: domain.EventKindDeleted, ExternalID: "u1"}); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if len(dispatcher.published) != 2 {
		t.Fatalf("expected 2 events, got %d", len(dispatcher.published))
	}
	if dispatcher.published[0].Type != events.EventUserSynced {
		t.Fatalf("expected user_synced first, got %q", dispatcher.published[0].Type)
	}
	if dispatcher.published[1].Type != events.EventUserRemoved {
		t.Fatalf("expected user_removed second, got %q", dispatcher.published[1].Type)
	}
	if dispatcher.published[0].ExternalID != "u1" || dispatcher.published[1].ExternalID != "u1" {
		t.Fatalf("events must carry the external id")
	}
}
