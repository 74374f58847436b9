// Package apptest provides in-memory implementations of the service ports for tests.
package apptest

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/viralforge/mesh/services/hospitality/M60-restaurant-ordering-service/internal/domain"
	"github.com/viralforge/mesh/services/hospitality/M60-restaurant-ordering-service/internal/ports"
)

// Store backs every repository port with maps guarded by one mutex.
type Store struct {
	mu            sync.Mutex
	restaurants   map[uuid.UUID]domain.Restaurant
	staff         map[uuid.UUID]domain.Staff
	tables        map[uuid.UUID]domain.Table
	categories    map[uuid.UUID]domain.MenuCategory
	items         map[uuid.UUID]domain.MenuItem
	templates     map[uuid.UUID]domain.ModifierTemplate
	itemModifiers map[[2]uuid.UUID]domain.MenuItemModifier
	orders        map[uuid.UUID]domain.Order
	counters      map[uuid.UUID]int64
	Audit         []domain.AuditEntry
	Outbox        []ports.OutboxEvent
	idempotency   map[string]ports.IdempotencyRecord
}

func NewStore() *Store {
	return &Store{
		restaurants:   map[uuid.UUID]domain.Restaurant{},
		staff:         map[uuid.UUID]domain.Staff{},
		tables:        map[uuid.UUID]domain.Table{},
		categories:    map[uuid.UUID]domain.MenuCategory{},
		items:         map[uuid.UUID]domain.MenuItem{},
		templates:     map[uuid.UUID]domain.ModifierTemplate{},
		itemModifiers: map[[2]uuid.UUID]domain.MenuItemModifier{},
		orders:        map[uuid.UUID]domain.Order{},
		counters:      map[uuid.UUID]int64{},
		idempotency:   map[string]ports.IdempotencyRecord{},
	}
}

// OutboxTypes lists the event types enqueued so far, in order.
func (s *Store) OutboxTypes() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.Outbox))
	for _, e := range s.Outbox {
		out = append(out, e.EventType)
	}
	return out
}

// AuditActions lists the audit actions recorded so far, in order.
func (s *Store) AuditActions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.Audit))
	for _, e := range s.Audit {
		out = append(out, e.Action)
	}
	return out
}

func paginate[T any](in []T, page ports.Page) []T {
	if page.Offset >= len(in) {
		return []T{}
	}
	in = in[page.Offset:]
	if page.Limit > 0 && page.Limit < len(in) {
		in = in[:page.Limit]
	}
	return in
}

type Restaurants struct{ *Store }

func (r Restaurants) Create(_ context.Context, restaurant domain.Restaurant, owner *domain.Staff) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.restaurants {
		if existing.Slug == restaurant.Slug {
			return domain.ErrConflict
		}
	}
	if owner != nil {
		for _, st := range r.staff {
			if st.Email == owner.Email {
				return domain.ErrConflict
			}
		}
		r.staff[owner.ID] = *owner
	}
	r.restaurants[restaurant.ID] = restaurant
	return nil
}

func (r Restaurants) GetByID(_ context.Context, id uuid.UUID) (domain.Restaurant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.restaurants[id]
	if !ok {
		return domain.Restaurant{}, domain.ErrNotFound
	}
	return v, nil
}

func (r Restaurants) List(_ context.Context, filter ports.RestaurantFilter) ([]domain.Restaurant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	allowed := map[uuid.UUID]bool{}
	for _, id := range filter.RestaurantIDs {
		allowed[id] = true
	}
	out := []domain.Restaurant{}
	for _, v := range r.restaurants {
		if len(allowed) > 0 && !allowed[v.ID] {
			continue
		}
		if v.ArchivedAt != nil && !filter.IncludeArchived {
			continue
		}
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return paginate(out, filter.Page), nil
}

func (r Restaurants) Update(_ context.Context, restaurant domain.Restaurant) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.restaurants[restaurant.ID]; !ok {
		return domain.ErrNotFound
	}
	r.restaurants[restaurant.ID] = restaurant
	return nil
}

func (r Restaurants) Archive(_ context.Context, id uuid.UUID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.restaurants[id]
	if !ok {
		return domain.ErrNotFound
	}
	v.ArchivedAt = &at
	v.OrderingEnabled = false
	r.restaurants[id] = v
	return nil
}

type Staff struct{ *Store }

func (r Staff) Create(_ context.Context, staff domain.Staff) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, st := range r.staff {
		if st.Email == staff.Email {
			return domain.ErrConflict
		}
	}
	r.staff[staff.ID] = staff
	return nil
}

func (r Staff) GetByID(_ context.Context, id uuid.UUID) (domain.Staff, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.staff[id]
	if !ok {
		return domain.Staff{}, domain.ErrNotFound
	}
	return v, nil
}

func (r Staff) GetByEmail(_ context.Context, email string) (domain.Staff, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, st := range r.staff {
		if st.Email == email {
			return st, nil
		}
	}
	return domain.Staff{}, domain.ErrNotFound
}

func (r Staff) ListByRestaurant(_ context.Context, restaurantID uuid.UUID, page ports.Page) ([]domain.Staff, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []domain.Staff{}
	for _, st := range r.staff {
		if st.BelongsTo(restaurantID) {
			out = append(out, st)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return paginate(out, page), nil
}

func (r Staff) Update(_ context.Context, staff domain.Staff) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.staff[staff.ID]; !ok {
		return domain.ErrNotFound
	}
	r.staff[staff.ID] = staff
	return nil
}

func (r Staff) UpdatePassword(_ context.Context, id uuid.UUID, hash string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.staff[id]
	if !ok {
		return domain.ErrNotFound
	}
	st.PasswordHash = hash
	st.UpdatedAt = at
	r.staff[id] = st
	return nil
}

func (r Staff) TouchLogin(_ context.Context, id uuid.UUID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.staff[id]
	if !ok {
		return domain.ErrNotFound
	}
	st.LastLoginAt = &at
	r.staff[id] = st
	return nil
}

type Tables struct{ *Store }

func (r Tables) Create(_ context.Context, table domain.Table) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.tables {
		if t.Code == table.Code {
			return domain.ErrConflict
		}
	}
	r.tables[table.ID] = table
	return nil
}

func (r Tables) GetByID(_ context.Context, restaurantID, id uuid.UUID) (domain.Table, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tables[id]
	if !ok || t.RestaurantID != restaurantID {
		return domain.Table{}, domain.ErrNotFound
	}
	return t, nil
}

func (r Tables) GetByCode(_ context.Context, code string) (domain.Table, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.tables {
		if t.Code == code && t.ArchivedAt == nil {
			return t, nil
		}
	}
	return domain.Table{}, domain.ErrNotFound
}

func (r Tables) ListByRestaurant(_ context.Context, restaurantID uuid.UUID, includeArchived bool) ([]domain.Table, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []domain.Table{}
	for _, t := range r.tables {
		if t.RestaurantID != restaurantID || (t.ArchivedAt != nil && !includeArchived) {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Label < out[j].Label })
	return out, nil
}

func (r Tables) Update(_ context.Context, table domain.Table) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tables[table.ID]; !ok {
		return domain.ErrNotFound
	}
	r.tables[table.ID] = table
	return nil
}

func (r Tables) UpdateCode(_ context.Context, restaurantID, id uuid.UUID, code string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.tables {
		if t.Code == code && t.ID != id {
			return domain.ErrConflict
		}
	}
	t, ok := r.tables[id]
	if !ok || t.RestaurantID != restaurantID {
		return domain.ErrNotFound
	}
	t.Code = code
	t.CodeRotatedAt = at
	t.UpdatedAt = at
	r.tables[id] = t
	return nil
}

func (r Tables) Archive(_ context.Context, restaurantID, id uuid.UUID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tables[id]
	if !ok || t.RestaurantID != restaurantID {
		return domain.ErrNotFound
	}
	t.ArchivedAt = &at
	t.IsActive = false
	r.tables[id] = t
	return nil
}

type Categories struct{ *Store }

func (r Categories) Create(_ context.Context, c domain.MenuCategory) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.categories[c.ID] = c
	return nil
}

func (r Categories) GetByID(_ context.Context, restaurantID, id uuid.UUID) (domain.MenuCategory, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.categories[id]
	if !ok || c.RestaurantID != restaurantID {
		return domain.MenuCategory{}, domain.ErrNotFound
	}
	return c, nil
}

func (r Categories) List(_ context.Context, restaurantID uuid.UUID) ([]domain.MenuCategory, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []domain.MenuCategory{}
	for _, c := range r.categories {
		if c.RestaurantID == restaurantID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SortOrder < out[j].SortOrder })
	return out, nil
}

func (r Categories) Update(_ context.Context, c domain.MenuCategory) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.categories[c.ID]; !ok {
		return domain.ErrNotFound
	}
	r.categories[c.ID] = c
	return nil
}

func (r Categories) Delete(_ context.Context, restaurantID, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.categories[id]
	if !ok || c.RestaurantID != restaurantID {
		return domain.ErrNotFound
	}
	delete(r.categories, id)
	return nil
}

func (r Categories) Reorder(_ context.Context, restaurantID uuid.UUID, ids []uuid.UUID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, id := range ids {
		c, ok := r.categories[id]
		if !ok || c.RestaurantID != restaurantID {
			return domain.ErrNotFound
		}
		c.SortOrder = i
		c.UpdatedAt = at
		r.categories[id] = c
	}
	return nil
}

type MenuItems struct{ *Store }

func (r MenuItems) Create(_ context.Context, item domain.MenuItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[item.ID] = item
	return nil
}

func (r MenuItems) GetByID(_ context.Context, restaurantID, id uuid.UUID) (domain.MenuItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	it, ok := r.items[id]
	if !ok || it.RestaurantID != restaurantID {
		return domain.MenuItem{}, domain.ErrNotFound
	}
	return it, nil
}

func (r MenuItems) GetMany(_ context.Context, restaurantID uuid.UUID, ids []uuid.UUID) ([]domain.MenuItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []domain.MenuItem{}
	for _, id := range ids {
		if it, ok := r.items[id]; ok && it.RestaurantID == restaurantID {
			out = append(out, it)
		}
	}
	return out, nil
}

func (r MenuItems) List(_ context.Context, restaurantID uuid.UUID, filter ports.MenuItemFilter) ([]domain.MenuItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []domain.MenuItem{}
	for _, it := range r.items {
		if it.RestaurantID != restaurantID {
			continue
		}
		if filter.CategoryID != nil && it.CategoryID != *filter.CategoryID {
			continue
		}
		if it.ArchivedAt != nil && !filter.IncludeArchived {
			continue
		}
		if filter.AvailableOnly && !it.IsAvailable {
			continue
		}
		out = append(out, it)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SortOrder < out[j].SortOrder })
	return out, nil
}

func (r MenuItems) Update(_ context.Context, item domain.MenuItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[item.ID]; !ok {
		return domain.ErrNotFound
	}
	r.items[item.ID] = item
	return nil
}

func (r MenuItems) SetAvailability(_ context.Context, restaurantID, id uuid.UUID, available bool, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	it, ok := r.items[id]
	if !ok || it.RestaurantID != restaurantID {
		return domain.ErrNotFound
	}
	it.IsAvailable = available
	it.UpdatedAt = at
	r.items[id] = it
	return nil
}

func (r MenuItems) Archive(_ context.Context, restaurantID, id uuid.UUID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	it, ok := r.items[id]
	if !ok || it.RestaurantID != restaurantID {
		return domain.ErrNotFound
	}
	it.ArchivedAt = &at
	it.IsAvailable = false
	r.items[id] = it
	return nil
}

func (r MenuItems) Delete(_ context.Context, restaurantID, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	it, ok := r.items[id]
	if !ok || it.RestaurantID != restaurantID {
		return domain.ErrNotFound
	}
	delete(r.items, id)
	for k := range r.itemModifiers {
		if k[0] == id {
			delete(r.itemModifiers, k)
		}
	}
	return nil
}

func (r MenuItems) CountActiveByCategory(_ context.Context, restaurantID, categoryID uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, it := range r.items {
		if it.RestaurantID == restaurantID && it.CategoryID == categoryID && it.ArchivedAt == nil {
			n++
		}
	}
	return n, nil
}

type Templates struct{ *Store }

func (r Templates) Create(_ context.Context, t domain.ModifierTemplate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.templates[t.ID] = t
	return nil
}

func (r Templates) GetByID(_ context.Context, restaurantID, id uuid.UUID) (domain.ModifierTemplate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.templates[id]
	if !ok || t.RestaurantID != restaurantID {
		return domain.ModifierTemplate{}, domain.ErrNotFound
	}
	return t, nil
}

func (r Templates) GetMany(_ context.Context, restaurantID uuid.UUID, ids []uuid.UUID) ([]domain.ModifierTemplate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []domain.ModifierTemplate{}
	for _, id := range ids {
		if t, ok := r.templates[id]; ok && t.RestaurantID == restaurantID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (r Templates) List(_ context.Context, restaurantID uuid.UUID) ([]domain.ModifierTemplate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []domain.ModifierTemplate{}
	for _, t := range r.templates {
		if t.RestaurantID == restaurantID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r Templates) Update(_ context.Context, t domain.ModifierTemplate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.templates[t.ID]; !ok {
		return domain.ErrNotFound
	}
	r.templates[t.ID] = t
	return nil
}

func (r Templates) Delete(_ context.Context, restaurantID, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.templates[id]
	if !ok || t.RestaurantID != restaurantID {
		return domain.ErrNotFound
	}
	delete(r.templates, id)
	return nil
}

type ItemModifiers struct{ *Store }

func (r ItemModifiers) ListByItems(_ context.Context, itemIDs []uuid.UUID) ([]domain.MenuItemModifier, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	wanted := map[uuid.UUID]bool{}
	for _, id := range itemIDs {
		wanted[id] = true
	}
	out := []domain.MenuItemModifier{}
	for k, m := range r.itemModifiers {
		if wanted[k[0]] {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SortOrder < out[j].SortOrder })
	return out, nil
}

func (r ItemModifiers) Get(_ context.Context, itemID, templateID uuid.UUID) (domain.MenuItemModifier, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.itemModifiers[[2]uuid.UUID{itemID, templateID}]
	if !ok {
		return domain.MenuItemModifier{}, domain.ErrNotFound
	}
	return m, nil
}

func (r ItemModifiers) Upsert(_ context.Context, m domain.MenuItemModifier) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := [2]uuid.UUID{m.MenuItemID, m.TemplateID}
	if existing, ok := r.itemModifiers[key]; ok {
		m.ID = existing.ID
		m.CreatedAt = existing.CreatedAt
	}
	r.itemModifiers[key] = m
	return nil
}

func (r ItemModifiers) Delete(_ context.Context, itemID, templateID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := [2]uuid.UUID{itemID, templateID}
	if _, ok := r.itemModifiers[key]; !ok {
		return domain.ErrNotFound
	}
	delete(r.itemModifiers, key)
	return nil
}

func (r ItemModifiers) CountByTemplate(_ context.Context, templateID uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for k := range r.itemModifiers {
		if k[1] == templateID {
			n++
		}
	}
	return n, nil
}

type Orders struct{ *Store }

func (r Orders) CreateWithOutboxTx(_ context.Context, order domain.Order, event ports.OutboxEvent) (domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counters[order.RestaurantID]++
	order.OrderNumber = r.counters[order.RestaurantID]
	r.orders[order.ID] = order
	r.Outbox = append(r.Outbox, event)
	return order, nil
}

func (r Orders) GetByID(_ context.Context, restaurantID, id uuid.UUID) (domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok || o.RestaurantID != restaurantID {
		return domain.Order{}, domain.ErrNotFound
	}
	return o, nil
}

func (r Orders) List(_ context.Context, filter ports.OrderFilter) ([]domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	statuses := map[domain.OrderStatus]bool{}
	for _, st := range filter.Statuses {
		statuses[st] = true
	}
	out := []domain.Order{}
	for _, o := range r.orders {
		if o.RestaurantID != filter.RestaurantID {
			continue
		}
		if filter.TableID != nil && o.TableID != *filter.TableID {
			continue
		}
		if len(statuses) > 0 && !statuses[o.Status] {
			continue
		}
		if filter.ActiveOnly && !o.Status.IsActive() {
			continue
		}
		if o.ArchivedAt != nil && !filter.IncludeArchived {
			continue
		}
		if filter.PlacedAfter != nil && o.PlacedAt.Before(*filter.PlacedAfter) {
			continue
		}
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OrderNumber > out[j].OrderNumber })
	return paginate(out, filter.Page), nil
}

func (r Orders) UpdateStatusWithOutboxTx(_ context.Context, restaurantID, id uuid.UUID, from, to domain.OrderStatus, at time.Time, event ports.OutboxEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok || o.RestaurantID != restaurantID {
		return domain.ErrNotFound
	}
	if o.Status != from {
		return domain.ErrConflict
	}
	o.Status = to
	o.UpdatedAt = at
	r.orders[id] = o
	r.Outbox = append(r.Outbox, event)
	return nil
}

func (r Orders) Archive(_ context.Context, restaurantID, id uuid.UUID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok || o.RestaurantID != restaurantID {
		return domain.ErrNotFound
	}
	o.ArchivedAt = &at
	r.orders[id] = o
	return nil
}

func (r Orders) Delete(_ context.Context, restaurantID, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok || o.RestaurantID != restaurantID {
		return domain.ErrNotFound
	}
	delete(r.orders, id)
	return nil
}

func (r Orders) CountActiveByTable(_ context.Context, restaurantID, tableID uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, o := range r.orders {
		if o.RestaurantID == restaurantID && o.TableID == tableID && o.Status.IsActive() {
			n++
		}
	}
	return n, nil
}

func (r Orders) ExistsForMenuItem(_ context.Context, menuItemID uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, o := range r.orders {
		for _, it := range o.Items {
			if it.MenuItemID == menuItemID {
				return true, nil
			}
		}
	}
	return false, nil
}

func (r Orders) ArchiveTerminalBefore(_ context.Context, cutoff, at time.Time, limit int) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, o := range r.orders {
		if int(n) >= limit {
			break
		}
		if o.ArchivedAt == nil && o.Status.IsTerminal() && o.UpdatedAt.Before(cutoff) {
			o.ArchivedAt = &at
			r.orders[id] = o
			n++
		}
	}
	return n, nil
}

type Audit struct{ *Store }

func (r Audit) Insert(_ context.Context, entry domain.AuditEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Store.Audit = append(r.Store.Audit, entry)
	return nil
}

func (r Audit) List(_ context.Context, filter ports.AuditFilter) ([]domain.AuditEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []domain.AuditEntry{}
	for i := len(r.Store.Audit) - 1; i >= 0; i-- {
		e := r.Store.Audit[i]
		if filter.RestaurantID != nil && (e.RestaurantID == nil || *e.RestaurantID != *filter.RestaurantID) {
			continue
		}
		if filter.EntityType != "" && e.EntityType != filter.EntityType {
			continue
		}
		if filter.EntityID != "" && e.EntityID != filter.EntityID {
			continue
		}
		if filter.ActorID != nil && (e.ActorID == nil || *e.ActorID != *filter.ActorID) {
			continue
		}
		out = append(out, e)
	}
	return paginate(out, filter.Page), nil
}

type Idempotency struct{ *Store }

func (r Idempotency) Get(_ context.Context, key string) (*ports.IdempotencyRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.idempotency[key]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (r Idempotency) Reserve(_ context.Context, key, requestHash string, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rec, ok := r.idempotency[key]; ok && rec.Status == ports.IdempotencyPending {
		return domain.ErrConflict
	}
	r.idempotency[key] = ports.IdempotencyRecord{
		Key:         key,
		RequestHash: requestHash,
		Status:      ports.IdempotencyPending,
		ExpiresAt:   expiresAt,
	}
	return nil
}

func (r Idempotency) Complete(_ context.Context, key string, code int, body []byte, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.idempotency[key]
	if !ok {
		return domain.ErrNotFound
	}
	rec.Status = ports.IdempotencyCompleted
	rec.ResponseCode = code
	rec.ResponseBody = append(json.RawMessage(nil), body...)
	rec.UpdatedAt = at
	r.idempotency[key] = rec
	return nil
}

func (r Idempotency) Release(_ context.Context, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rec, ok := r.idempotency[key]; ok && rec.Status == ports.IdempotencyPending {
		delete(r.idempotency, key)
	}
	return nil
}

func (r Idempotency) PurgeExpired(_ context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for k, rec := range r.idempotency {
		if !rec.ExpiresAt.After(now) {
			delete(r.idempotency, k)
			n++
		}
	}
	return n, nil
}
