package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pricehawk/pricehawk/internal/models"
)

func decF(v float64) decimal.Decimal { return decimal.NewFromFloat(v) }

// fakeProductStore is an in-memory ProductStore for service tests.
type fakeProductStore struct {
	mu       sync.Mutex
	products map[string]*models.Product
	history  map[string][]models.PricePoint

	// casLost forces CompareAndSwapPrice to report a lost race.
	casLost  bool
	failWith error
}

func newFakeProductStore() *fakeProductStore {
	return &fakeProductStore{
		products: make(map[string]*models.Product),
		history:  make(map[string][]models.PricePoint),
	}
}

func (f *fakeProductStore) add(p *models.Product) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *p
	f.products[p.ID] = &cp
}

func (f *fakeProductStore) GetByID(_ context.Context, id string) (*models.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return nil, f.failWith
	}
	p, ok := f.products[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (f *fakeProductStore) GetByURL(_ context.Context, url string) (*models.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.products {
		if p.URL == url {
			cp := *p
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeProductStore) Insert(_ context.Context, p *models.Product) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *p
	f.products[p.ID] = &cp
	return nil
}

func (f *fakeProductStore) AppendPricePoints(_ context.Context, productID string, points []models.PricePoint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.history[productID] = append(f.history[productID], points...)
	sort.Slice(f.history[productID], func(i, j int) bool {
		return f.history[productID][i].Timestamp.Before(f.history[productID][j].Timestamp)
	})
	return nil
}

func (f *fakeProductStore) CompareAndSwapPrice(_ context.Context, id string, expected, newPrice decimal.Decimal, inStock bool, checkedAt time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.casLost {
		return false, nil
	}
	p, ok := f.products[id]
	if !ok || !p.CurrentPrice.Equal(expected) {
		return false, nil
	}
	p.CurrentPrice = newPrice
	p.InStock = inStock
	p.LastChecked = checkedAt
	return true, nil
}

func (f *fakeProductStore) Refresh(_ context.Context, id string, inStock bool, checkedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.products[id]
	if !ok {
		return fmt.Errorf("product %s not found", id)
	}
	p.InStock = inStock
	p.LastChecked = checkedAt
	return nil
}

func (f *fakeProductStore) Touch(_ context.Context, id string, checkedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.products[id]
	if !ok {
		return fmt.Errorf("product %s not found", id)
	}
	p.LastChecked = checkedAt
	return nil
}

func (f *fakeProductStore) GetPriceHistory(_ context.Context, productID string, since *time.Time) ([]models.PricePoint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.PricePoint
	for _, point := range f.history[productID] {
		if since != nil && point.Timestamp.Before(*since) {
			continue
		}
		out = append(out, point)
	}
	return out, nil
}

func (f *fakeProductStore) ListStale(_ context.Context, cutoff time.Time, limit int) ([]models.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Product
	for _, p := range f.products {
		if p.LastChecked.Before(cutoff) {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeProductStore) ListIDsWithHistoryAtLeast(_ context.Context, minPoints int) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var ids []string
	for id, points := range f.history {
		if len(points) >= minPoints {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (f *fakeProductStore) Count(_ context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.products)), nil
}

// fakeSubscriptionStore is an in-memory SubscriptionStore.
type fakeSubscriptionStore struct {
	mu   sync.Mutex
	subs map[string]*models.Subscription
}

func newFakeSubscriptionStore() *fakeSubscriptionStore {
	return &fakeSubscriptionStore{subs: make(map[string]*models.Subscription)}
}

func subKey(userID, productID string) string { return userID + "|" + productID }

func (f *fakeSubscriptionStore) add(s *models.Subscription) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *s
	if cp.ID == "" {
		cp.ID = uuid.NewString()
	}
	f.subs[subKey(s.UserID, s.ProductID)] = &cp
}

func (f *fakeSubscriptionStore) Get(_ context.Context, userID, productID string) (*models.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.subs[subKey(userID, productID)]
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (f *fakeSubscriptionStore) Insert(_ context.Context, s *models.Subscription) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *s
	f.subs[subKey(s.UserID, s.ProductID)] = &cp
	return nil
}

func (f *fakeSubscriptionStore) UpdatePreferences(_ context.Context, userID, productID string, prefs models.TrackingPreferences) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.subs[subKey(userID, productID)]
	if !ok {
		return 0, nil
	}
	if prefs.TargetPrice != nil {
		cp := *prefs.TargetPrice
		s.TargetPrice = &cp
	}
	if prefs.NotifyOnPriceDrop != nil {
		s.NotifyOnPriceDrop = *prefs.NotifyOnPriceDrop
	}
	if prefs.NotifyOnAvailability != nil {
		s.NotifyOnAvailability = *prefs.NotifyOnAvailability
	}
	return 1, nil
}

func (f *fakeSubscriptionStore) Delete(_ context.Context, userID, productID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := subKey(userID, productID)
	if _, ok := f.subs[key]; !ok {
		return 0, nil
	}
	delete(f.subs, key)
	return 1, nil
}

func (f *fakeSubscriptionStore) ListTrackedProducts(_ context.Context, userID string) ([]models.TrackedProduct, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.TrackedProduct
	for _, s := range f.subs {
		if s.UserID == userID {
			out = append(out, models.TrackedProduct{
				ProductID:            s.ProductID,
				TargetPrice:          s.TargetPrice,
				NotifyOnPriceDrop:    s.NotifyOnPriceDrop,
				NotifyOnAvailability: s.NotifyOnAvailability,
				TrackingSince:        s.CreatedAt,
			})
		}
	}
	return out, nil
}

func (f *fakeSubscriptionStore) ListPriceDropTargets(_ context.Context, productID string, newPrice decimal.Decimal) ([]models.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Subscription
	for _, s := range f.subs {
		if s.ProductID != productID || !s.NotifyOnPriceDrop {
			continue
		}
		if s.TargetPrice != nil && s.TargetPrice.LessThan(newPrice) {
			continue
		}
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

func (f *fakeSubscriptionStore) ListAvailabilityWatchers(_ context.Context, productID string) ([]models.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Subscription
	for _, s := range f.subs {
		if s.ProductID == productID && s.NotifyOnAvailability {
			out = append(out, *s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

// fakeNotificationStore is an in-memory NotificationStore.
type fakeNotificationStore struct {
	mu            sync.Mutex
	notifications []models.Notification
	insertErr     error
}

func newFakeNotificationStore() *fakeNotificationStore {
	return &fakeNotificationStore{}
}

func (f *fakeNotificationStore) Insert(_ context.Context, n *models.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertErr != nil {
		return f.insertErr
	}
	f.notifications = append(f.notifications, *n)
	return nil
}

func (f *fakeNotificationStore) List(_ context.Context, userID string, limit int, unreadOnly bool) ([]models.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Notification
	for i := len(f.notifications) - 1; i >= 0; i-- {
		n := f.notifications[i]
		if n.UserID != userID {
			continue
		}
		if unreadOnly && n.Read {
			continue
		}
		out = append(out, n)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakeNotificationStore) MarkRead(_ context.Context, id, userID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.notifications {
		if f.notifications[i].ID == id && f.notifications[i].UserID == userID {
			f.notifications[i].Read = true
			return 1, nil
		}
	}
	return 0, nil
}

func (f *fakeNotificationStore) MarkAllRead(_ context.Context, userID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var updated int64
	for i := range f.notifications {
		if f.notifications[i].UserID == userID && !f.notifications[i].Read {
			f.notifications[i].Read = true
			updated++
		}
	}
	return updated, nil
}

func (f *fakeNotificationStore) Delete(_ context.Context, id, userID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.notifications {
		if f.notifications[i].ID == id && f.notifications[i].UserID == userID {
			f.notifications = append(f.notifications[:i], f.notifications[i+1:]...)
			return 1, nil
		}
	}
	return 0, nil
}

func (f *fakeNotificationStore) DeleteAll(_ context.Context, userID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var kept []models.Notification
	var deleted int64
	for _, n := range f.notifications {
		if n.UserID == userID {
			deleted++
			continue
		}
		kept = append(kept, n)
	}
	f.notifications = kept
	return deleted, nil
}

func (f *fakeNotificationStore) CountUnread(_ context.Context, userID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var count int64
	for _, n := range f.notifications {
		if n.UserID == userID && !n.Read {
			count++
		}
	}
	return count, nil
}

func (f *fakeNotificationStore) Count(_ context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.notifications)), nil
}

func (f *fakeNotificationStore) DeleteOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var kept []models.Notification
	var deleted int64
	for _, n := range f.notifications {
		if n.CreatedAt.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, n)
	}
	f.notifications = kept
	return deleted, nil
}

// fakeForecastStore is an in-memory ForecastStore.
type fakeForecastStore struct {
	mu          sync.Mutex
	payloads    map[string][]byte
	generatedAt map[string]time.Time
}

func newFakeForecastStore() *fakeForecastStore {
	return &fakeForecastStore{
		payloads:    make(map[string][]byte),
		generatedAt: make(map[string]time.Time),
	}
}

func (f *fakeForecastStore) Upsert(_ context.Context, productID, _, _ string, payload []byte, generatedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.payloads[productID] = payload
	f.generatedAt[productID] = generatedAt
	return nil
}

func (f *fakeForecastStore) DeleteOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var deleted int64
	for id, at := range f.generatedAt {
		if at.Before(cutoff) {
			delete(f.payloads, id)
			delete(f.generatedAt, id)
			deleted++
		}
	}
	return deleted, nil
}

func (f *fakeForecastStore) Count(_ context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.payloads)), nil
}
