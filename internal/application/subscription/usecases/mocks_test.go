package usecases

import (
	"context"
	"sync"

	apppool "github.com/cipherboy/candlepin/internal/application/pool"
	"github.com/cipherboy/candlepin/internal/domain/owner"
	"github.com/cipherboy/candlepin/internal/domain/pool"
	"github.com/cipherboy/candlepin/internal/domain/product"
	"github.com/cipherboy/candlepin/internal/domain/shared/events"
	"github.com/cipherboy/candlepin/internal/domain/subscription"
)

type mockSubscriptionRepository struct {
	CreateFunc       func(ctx context.Context, sub *subscription.Subscription) error
	GetByIDFunc      func(ctx context.Context, id uint) (*subscription.Subscription, error)
	ListByOwnerFunc  func(ctx context.Context, ownerKey string) ([]*subscription.Subscription, error)
	ListByStatusFunc func(ctx context.Context, statuses ...subscription.Status) ([]*subscription.Subscription, error)
	UpdateFunc       func(ctx context.Context, sub *subscription.Subscription) error
	DeleteFunc       func(ctx context.Context, id uint) error

	nextID uint
}

func (m *mockSubscriptionRepository) Create(ctx context.Context, sub *subscription.Subscription) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, sub)
	}
	m.nextID++
	return sub.SetID(m.nextID)
}

func (m *mockSubscriptionRepository) GetByID(ctx context.Context, id uint) (*subscription.Subscription, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, nil
}

func (m *mockSubscriptionRepository) ListByOwner(ctx context.Context, ownerKey string) ([]*subscription.Subscription, error) {
	if m.ListByOwnerFunc != nil {
		return m.ListByOwnerFunc(ctx, ownerKey)
	}
	return nil, nil
}

func (m *mockSubscriptionRepository) ListByStatus(ctx context.Context, statuses ...subscription.Status) ([]*subscription.Subscription, error) {
	if m.ListByStatusFunc != nil {
		return m.ListByStatusFunc(ctx, statuses...)
	}
	return nil, nil
}

func (m *mockSubscriptionRepository) Update(ctx context.Context, sub *subscription.Subscription) error {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, sub)
	}
	return nil
}

func (m *mockSubscriptionRepository) Delete(ctx context.Context, id uint) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id)
	}
	return nil
}

type mockOwnerDirectory struct {
	owners map[string]*owner.Owner
}

func newMockOwnerDirectory(keys ...string) *mockOwnerDirectory {
	m := &mockOwnerDirectory{owners: map[string]*owner.Owner{}}
	for _, k := range keys {
		o, _ := owner.NewOwner(k, "")
		m.owners[k] = o
	}
	return m
}

func (m *mockOwnerDirectory) GetByKey(_ context.Context, key string) (*owner.Owner, error) {
	return m.owners[key], nil
}

func (m *mockOwnerDirectory) ListKeys(context.Context) ([]string, error) {
	keys := make([]string, 0, len(m.owners))
	for k := range m.owners {
		keys = append(keys, k)
	}
	return keys, nil
}

type mockCatalog struct {
	products map[string]*product.Product
}

func newMockCatalog(ids ...string) *mockCatalog {
	m := &mockCatalog{products: map[string]*product.Product{}}
	for _, id := range ids {
		p, _ := product.NewProduct(id, id, nil, nil)
		m.products[id] = p
	}
	return m
}

func (m *mockCatalog) GetByID(_ context.Context, id string) (*product.Product, error) {
	return m.products[id], nil
}

type mockReconciler struct {
	OnSubscriptionCreatedFunc func(ctx context.Context, sub *subscription.Subscription, generateCert bool) ([]*pool.Pool, error)
	OnSubscriptionUpdatedFunc func(ctx context.Context, sub *subscription.Subscription) ([]apppool.Reconciliation, error)
	OnSubscriptionDeletedFunc func(ctx context.Context, id uint, finalize func(ctx context.Context) error) ([]apppool.Reconciliation, error)

	mu        sync.Mutex
	committed [][]apppool.Reconciliation
}

func (m *mockReconciler) OnSubscriptionCreated(ctx context.Context, sub *subscription.Subscription, generateCert bool) ([]*pool.Pool, error) {
	if m.OnSubscriptionCreatedFunc != nil {
		return m.OnSubscriptionCreatedFunc(ctx, sub, generateCert)
	}
	return nil, nil
}

func (m *mockReconciler) OnSubscriptionUpdated(ctx context.Context, sub *subscription.Subscription) ([]apppool.Reconciliation, error) {
	if m.OnSubscriptionUpdatedFunc != nil {
		return m.OnSubscriptionUpdatedFunc(ctx, sub)
	}
	return nil, nil
}

func (m *mockReconciler) OnSubscriptionDeleted(ctx context.Context, id uint, finalize func(ctx context.Context) error) ([]apppool.Reconciliation, error) {
	if m.OnSubscriptionDeletedFunc != nil {
		return m.OnSubscriptionDeletedFunc(ctx, id, finalize)
	}
	if finalize != nil {
		if err := finalize(ctx); err != nil {
			return nil, err
		}
	}
	return nil, nil
}

func (m *mockReconciler) AfterCommit(_ context.Context, recs []apppool.Reconciliation) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.committed = append(m.committed, recs)
}

func (m *mockReconciler) afterCommitCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.committed)
}

type mockPublisher struct {
	mu     sync.Mutex
	events []events.DomainEvent
}

func (m *mockPublisher) Publish(e events.DomainEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, e)
	return nil
}

func (m *mockPublisher) PublishAll(evts []events.DomainEvent) error {
	for _, e := range evts {
		_ = m.Publish(e)
	}
	return nil
}

func (m *mockPublisher) types() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.events))
	for _, e := range m.events {
		out = append(out, e.GetEventType())
	}
	return out
}

type mockStatusMetrics struct {
	changes map[string]int
}

func (m *mockStatusMetrics) IncrementStatusChange(status string) {
	if m.changes == nil {
		m.changes = map[string]int{}
	}
	m.changes[status]++
}
