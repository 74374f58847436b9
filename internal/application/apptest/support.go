package apptest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/viralforge/mesh/services/hospitality/M60-restaurant-ordering-service/internal/application"
	"github.com/viralforge/mesh/services/hospitality/M60-restaurant-ordering-service/internal/domain"
	"github.com/viralforge/mesh/services/hospitality/M60-restaurant-ordering-service/internal/ports"
)

// Hasher prefixes the password instead of hashing it.
type Hasher struct{}

func (Hasher) Hash(password string) (string, error) { return "hashed:" + password, nil }

func (Hasher) Compare(hash, password string) error {
	if hash != "hashed:"+password {
		return errors.New("mismatch")
	}
	return nil
}

// Signer issues opaque tokens and remembers their claims.
type Signer struct {
	mu     sync.Mutex
	seq    int
	claims map[string]ports.AuthClaims
}

func NewSigner() *Signer {
	return &Signer{claims: map[string]ports.AuthClaims{}}
}

func (s *Signer) Sign(claims ports.AuthClaims) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	token := fmt.Sprintf("tok-%d", s.seq)
	claims.KeyID = "test"
	s.claims[token] = claims
	return token, nil
}

func (s *Signer) ParseAndValidate(token string) (ports.AuthClaims, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.claims[token]
	if !ok {
		return ports.AuthClaims{}, errors.New("unknown token")
	}
	return c, nil
}

// Codes hands out queued codes first, then a counter-based sequence.
type Codes struct {
	mu     sync.Mutex
	queue  []string
	seq    int
	Always string
}

func (c *Codes) Queue(codes ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.queue = append(c.queue, codes...)
}

func (c *Codes) Generate(length int) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Always != "" {
		return c.Always, nil
	}
	if len(c.queue) > 0 {
		code := c.queue[0]
		c.queue = c.queue[1:]
		return code, nil
	}
	c.seq++
	alphabet := domain.TableCodeAlphabet
	code := []byte(strings.Repeat("A", length))
	n := c.seq
	for i := length - 1; i >= 0 && n > 0; i-- {
		code[i] = alphabet[n%len(alphabet)]
		n /= len(alphabet)
	}
	return string(code), nil
}

// QR returns the encoded content as the image bytes.
type QR struct{}

func (QR) EncodePNG(content string, size int) ([]byte, error) {
	return []byte(fmt.Sprintf("png:%d:%s", size, content)), nil
}

// Lockouts keeps counters in memory. Err forces Get and RecordFailure to fail.
type Lockouts struct {
	mu    sync.Mutex
	state map[string]ports.LockoutState
	Err   error
}

func NewLockouts() *Lockouts { return &Lockouts{state: map[string]ports.LockoutState{}} }

func (l *Lockouts) Get(_ context.Context, key string) (ports.LockoutState, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.Err != nil {
		return ports.LockoutState{}, l.Err
	}
	return l.state[key], nil
}

func (l *Lockouts) RecordFailure(_ context.Context, key string, now time.Time, threshold int, window time.Duration) (ports.LockoutState, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.Err != nil {
		return ports.LockoutState{}, l.Err
	}
	st := l.state[key]
	st.FailedCount++
	if st.FailedCount >= threshold {
		until := now.Add(window)
		st.LockedUntil = &until
	}
	l.state[key] = st
	return st, nil
}

func (l *Lockouts) Clear(_ context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.state, key)
	return nil
}

// Dedup holds fingerprints until released. Err forces every Claim to fail.
type Dedup struct {
	mu   sync.Mutex
	held map[string]bool
	Err  error
}

func NewDedup() *Dedup { return &Dedup{held: map[string]bool{}} }

func (d *Dedup) Claim(_ context.Context, fingerprint string, _ time.Duration) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.Err != nil {
		return false, d.Err
	}
	if d.held[fingerprint] {
		return false, nil
	}
	d.held[fingerprint] = true
	return true, nil
}

func (d *Dedup) Release(_ context.Context, fingerprint string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.held, fingerprint)
	return nil
}

// Expire drops every held fingerprint, as if the window elapsed.
func (d *Dedup) Expire() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.held = map[string]bool{}
}

type MenuCache struct {
	mu      sync.Mutex
	entries map[uuid.UUID][]byte
	Sets    int
}

func NewMenuCache() *MenuCache { return &MenuCache{entries: map[uuid.UUID][]byte{}} }

func (m *MenuCache) Get(_ context.Context, restaurantID uuid.UUID) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.entries[restaurantID]
	return v, ok, nil
}

func (m *MenuCache) Set(_ context.Context, restaurantID uuid.UUID, payload []byte, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[restaurantID] = payload
	m.Sets++
	return nil
}

func (m *MenuCache) Invalidate(_ context.Context, restaurantID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, restaurantID)
	return nil
}

func (m *MenuCache) Cached(restaurantID uuid.UUID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.entries[restaurantID]
	return ok
}

// Metrics counts calls per recorder method.
type Metrics struct {
	mu          sync.Mutex
	Placed      int
	Suppressed  int
	Transitions map[string]int
}

func (m *Metrics) OrderPlaced(string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Placed++
}

func (m *Metrics) DuplicateOrderSuppressed(string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Suppressed++
}

func (m *Metrics) OrderTransitioned(to string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Transitions == nil {
		m.Transitions = map[string]int{}
	}
	m.Transitions[to]++
}

// Harness wires a Service over in-memory ports with a pinned clock.
type Harness struct {
	Service   *application.Service
	Store     *Store
	Signer    *Signer
	Codes     *Codes
	Lockouts  *Lockouts
	Dedup     *Dedup
	MenuCache *MenuCache
	Metrics   *Metrics
	Now       time.Time
}

func NewHarness(cfg application.Config) *Harness {
	h := &Harness{
		Store:     NewStore(),
		Signer:    NewSigner(),
		Codes:     &Codes{},
		Lockouts:  NewLockouts(),
		Dedup:     NewDedup(),
		MenuCache: NewMenuCache(),
		Metrics:   &Metrics{},
		Now:       time.Date(2026, 3, 14, 18, 30, 0, 0, time.UTC),
	}
	if cfg.PublicBaseURL == "" {
		cfg.PublicBaseURL = "https://order.example.test"
	}
	h.Service = application.NewService(application.Dependencies{
		Config:        cfg,
		Restaurants:   Restaurants{h.Store},
		Staff:         Staff{h.Store},
		Tables:        Tables{h.Store},
		Categories:    Categories{h.Store},
		MenuItems:     MenuItems{h.Store},
		Templates:     Templates{h.Store},
		ItemModifiers: ItemModifiers{h.Store},
		Orders:        Orders{h.Store},
		Audit:         Audit{h.Store},
		Idempotency:   Idempotency{h.Store},
		Lockouts:      h.Lockouts,
		Dedup:         h.Dedup,
		MenuCache:     h.MenuCache,
		Hasher:        Hasher{},
		TokenSigner:   h.Signer,
		Codes:         h.Codes,
		QR:            QR{},
		Metrics:       h.Metrics,
		Now:           func() time.Time { return h.Now },
	})
	return h
}

// Advance moves the pinned clock forward.
func (h *Harness) Advance(d time.Duration) { h.Now = h.Now.Add(d) }

// Fixture is a seeded restaurant with one table, one category and a drink item
// carrying a required SINGLE size group.
type Fixture struct {
	Restaurant application.RestaurantView
	Owner      application.Principal
	Table      application.TableView
	Category   application.CategoryView
	Burger     application.MenuItemView
	Drink      application.MenuItemView
	Size       application.ModifierTemplateView
	Customer   application.Principal
}

const OwnerPassword = "owner-pass-123"

// Seed creates a fully configured restaurant through the public service API.
func (h *Harness) Seed(ctx context.Context, slug string) (Fixture, error) {
	var f Fixture
	admin := application.SystemPrincipal()
	open := true
	restaurant, err := h.Service.CreateRestaurant(ctx, admin, application.CreateRestaurantRequest{
		Name:            "Bistro " + slug,
		Slug:            slug,
		Timezone:        "Europe/Berlin",
		Currency:        "EUR",
		OrderingEnabled: &open,
		Owner: &application.CreateOwnerRequest{
			Email:    "owner@" + slug + ".test",
			Name:     "Owner " + slug,
			Password: OwnerPassword,
		},
	})
	if err != nil {
		return f, fmt.Errorf("create restaurant: %w", err)
	}
	f.Restaurant = restaurant
	owner, err := Staff{h.Store}.GetByEmail(ctx, "owner@"+slug+".test")
	if err != nil {
		return f, fmt.Errorf("load owner: %w", err)
	}
	f.Owner = PrincipalFor(owner)

	if f.Table, err = h.Service.CreateTable(ctx, f.Owner, restaurant.ID, application.CreateTableRequest{Label: "T1", Seats: 4}); err != nil {
		return f, fmt.Errorf("create table: %w", err)
	}
	if f.Category, err = h.Service.CreateCategory(ctx, f.Owner, restaurant.ID, application.CreateCategoryRequest{Name: "Mains"}); err != nil {
		return f, fmt.Errorf("create category: %w", err)
	}
	if f.Burger, err = h.Service.CreateMenuItem(ctx, f.Owner, restaurant.ID, application.CreateMenuItemRequest{
		CategoryID: f.Category.ID.String(),
		Name:       "Burger",
		PriceCents: 1250,
	}); err != nil {
		return f, fmt.Errorf("create burger: %w", err)
	}
	if f.Drink, err = h.Service.CreateMenuItem(ctx, f.Owner, restaurant.ID, application.CreateMenuItemRequest{
		CategoryID: f.Category.ID.String(),
		Name:       "Lemonade",
		PriceCents: 400,
		SortOrder:  1,
	}); err != nil {
		return f, fmt.Errorf("create drink: %w", err)
	}
	if f.Size, err = h.Service.CreateModifierTemplate(ctx, f.Owner, restaurant.ID, application.ModifierTemplateRequest{
		Name:          "Size",
		SelectionType: "SINGLE",
		Required:      true,
		Options: []application.ModifierOptionInput{
			{Name: "Small", IsDefault: true},
			{Name: "Large", PriceDeltaCents: 150, SortOrder: 1},
		},
	}); err != nil {
		return f, fmt.Errorf("create template: %w", err)
	}
	if _, err = h.Service.AttachModifier(ctx, f.Owner, restaurant.ID, f.Drink.ID, f.Size.ID, application.AttachModifierRequest{}); err != nil {
		return f, fmt.Errorf("attach modifier: %w", err)
	}
	if f.Customer, err = h.CustomerFor(ctx, f.Table.Code); err != nil {
		return f, err
	}
	return f, nil
}

// CustomerFor starts a table session and resolves its token into a principal.
func (h *Harness) CustomerFor(ctx context.Context, code string) (application.Principal, error) {
	session, err := h.Service.StartTableSession(ctx, code)
	if err != nil {
		return application.Principal{}, fmt.Errorf("start table session: %w", err)
	}
	return h.Service.ValidateToken(ctx, session.Token)
}

// AddStaff stores a staff member directly and returns its principal.
func (h *Harness) AddStaff(ctx context.Context, restaurantID uuid.UUID, role domain.Role, email string) (application.Principal, error) {
	rid := restaurantID
	st := domain.Staff{
		ID:           uuid.New(),
		RestaurantID: &rid,
		Email:        email,
		Name:         string(role),
		PasswordHash: "hashed:staff-pass-123",
		Role:         role,
		IsActive:     true,
		CreatedAt:    h.Now,
		UpdatedAt:    h.Now,
	}
	if err := (Staff{h.Store}).Create(ctx, st); err != nil {
		return application.Principal{}, err
	}
	return PrincipalFor(st), nil
}

func PrincipalFor(st domain.Staff) application.Principal {
	return application.Principal{
		SubjectID:    st.ID,
		Kind:         ports.TokenKindStaff,
		Role:         st.Role,
		Email:        st.Email,
		RestaurantID: st.RestaurantID,
	}
}
