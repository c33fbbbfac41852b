package service

import (
	"context"
	"errors"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/DanielPopoola/parking-reservation/internal/core/domain"
	"github.com/DanielPopoola/parking-reservation/internal/core/ports"
	"github.com/google/uuid"
)

// MockBookingRepository is an in-memory BookingRepository. WithTx serializes transactions
// and discards writes made by a failed one, which is enough to model row locking.
type MockBookingRepository struct {
	mu   sync.RWMutex
	txMu sync.Mutex

	bookings map[int64]*domain.Booking
	spots    map[int64]*domain.Spot
	promos   map[string]*domain.Promo
	audit    []*domain.AuditEntry
	nextID   int64

	CreateBookingFn    func(ctx context.Context, b *domain.Booking) error
	UpdateBookingFn    func(ctx context.Context, b *domain.Booking) error
	FindStalePendingFn func(ctx context.Context, createdBefore time.Time, limit int) ([]*domain.Booking, error)
	FindNoticeDueFn    func(ctx context.Context, now time.Time, reminderLead, overstayEvery time.Duration, limit int) ([]*domain.Booking, error)
	MarkNoticeSentFn   func(ctx context.Context, id int64, kind domain.NoticeKind, at time.Time) error
	AppendAuditFn      func(ctx context.Context, e *domain.AuditEntry) error
	WithTxFn           func(ctx context.Context, fn func(repo ports.BookingRepository) error) error
}

func NewMockBookingRepository() *MockBookingRepository {
	return &MockBookingRepository{
		bookings: make(map[int64]*domain.Booking),
		spots:    make(map[int64]*domain.Spot),
		promos:   make(map[string]*domain.Promo),
	}
}

// AddSpot seeds a spot.
func (m *MockBookingRepository) AddSpot(s *domain.Spot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	m.spots[s.ID] = &cp
}

// AddPromo seeds a promo code.
func (m *MockBookingRepository) AddPromo(p *domain.Promo) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	m.promos[p.Code] = &cp
}

// Put stores b as is, assigning an id when it has none.
func (m *MockBookingRepository) Put(b *domain.Booking) *domain.Booking {
	m.mu.Lock()
	defer m.mu.Unlock()
	if b.ID == 0 {
		m.nextID++
		b.ID = m.nextID
	} else if b.ID > m.nextID {
		m.nextID = b.ID
	}
	cp := *b
	m.bookings[b.ID] = &cp
	return b
}

// Booking returns a copy of the stored booking.
func (m *MockBookingRepository) Booking(id int64) *domain.Booking {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.bookings[id]
	if !ok {
		return nil
	}
	cp := *b
	return &cp
}

// Promo returns a copy of the stored promo.
func (m *MockBookingRepository) Promo(code string) *domain.Promo {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.promos[code]
	if !ok {
		return nil
	}
	cp := *p
	return &cp
}

// AuditActions lists the actions recorded for a booking, oldest first.
func (m *MockBookingRepository) AuditActions(bookingID int64) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var actions []string
	for _, e := range m.audit {
		if e.BookingID == bookingID {
			actions = append(actions, e.Action)
		}
	}
	return actions
}

func (m *MockBookingRepository) BookingCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.bookings)
}

func (m *MockBookingRepository) CreateBooking(ctx context.Context, b *domain.Booking) error {
	if m.CreateBookingFn != nil {
		return m.CreateBookingFn(ctx, b)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.bookings {
		if existing.SpotID == b.SpotID &&
			slices.Contains(domain.OccupyingStatuses, existing.Status) &&
			existing.StartTime.Before(b.EndTime) && existing.EndTime.After(b.StartTime) {
			return domain.NewSpotUnavailableError()
		}
	}
	m.nextID++
	b.ID = m.nextID
	cp := *b
	m.bookings[b.ID] = &cp
	return nil
}

func (m *MockBookingRepository) FindByID(ctx context.Context, id int64) (*domain.Booking, error) {
	if b := m.Booking(id); b != nil {
		return b, nil
	}
	return nil, domain.NewBookingNotFoundError(strconv.FormatInt(id, 10))
}

func (m *MockBookingRepository) FindByIDForUpdate(ctx context.Context, id int64) (*domain.Booking, error) {
	return m.FindByID(ctx, id)
}

func (m *MockBookingRepository) FindByPublicToken(ctx context.Context, token uuid.UUID) (*domain.Booking, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, b := range m.bookings {
		if b.PublicToken == token {
			cp := *b
			return &cp, nil
		}
	}
	return nil, domain.NewBookingNotFoundError(token.String())
}

func (m *MockBookingRepository) UpdateBooking(ctx context.Context, b *domain.Booking) error {
	if m.UpdateBookingFn != nil {
		return m.UpdateBookingFn(ctx, b)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.bookings[b.ID]; !ok {
		return domain.NewBookingNotFoundError(strconv.FormatInt(b.ID, 10))
	}
	cp := *b
	m.bookings[b.ID] = &cp
	return nil
}

func (m *MockBookingRepository) FindSpotBookings(ctx context.Context, spotID int64, start, end, now time.Time) ([]*domain.Booking, error) {
	return m.filter(func(b *domain.Booking) bool {
		return b.SpotID == spotID && b.Occupies(start, end, now)
	}), nil
}

func (m *MockBookingRepository) FindFloorBookings(ctx context.Context, floor int, start, end, now time.Time) ([]*domain.Booking, error) {
	m.mu.RLock()
	onFloor := make(map[int64]bool)
	for _, s := range m.spots {
		if s.Floor == floor {
			onFloor[s.ID] = true
		}
	}
	m.mu.RUnlock()

	return m.filter(func(b *domain.Booking) bool {
		return onFloor[b.SpotID] && b.Occupies(start, end, now)
	}), nil
}

func (m *MockBookingRepository) FindStalePending(ctx context.Context, createdBefore time.Time, limit int) ([]*domain.Booking, error) {
	if m.FindStalePendingFn != nil {
		return m.FindStalePendingFn(ctx, createdBefore, limit)
	}
	return limitBookings(m.filter(func(b *domain.Booking) bool {
		return b.Status == domain.StatusPending && b.CreatedAt.Before(createdBefore)
	}), limit), nil
}

func (m *MockBookingRepository) FindNoticeDue(ctx context.Context, now time.Time, reminderLead, overstayEvery time.Duration, limit int) ([]*domain.Booking, error) {
	if m.FindNoticeDueFn != nil {
		return m.FindNoticeDueFn(ctx, now, reminderLead, overstayEvery, limit)
	}
	due := m.filter(func(b *domain.Booking) bool {
		_, ok := domain.DueNotice(b, now, reminderLead, overstayEvery)
		return ok
	})
	slices.SortStableFunc(due, func(a, b *domain.Booking) int { return a.EndTime.Compare(b.EndTime) })
	return limitBookings(due, limit), nil
}

func (m *MockBookingRepository) MarkNoticeSent(ctx context.Context, id int64, kind domain.NoticeKind, at time.Time) error {
	if m.MarkNoticeSentFn != nil {
		return m.MarkNoticeSentFn(ctx, id, kind, at)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok {
		return domain.NewBookingNotFoundError(strconv.FormatInt(id, 10))
	}
	b.MarkNoticeSent(kind, at)
	return nil
}

func (m *MockBookingRepository) FindSpot(ctx context.Context, id int64) (*domain.Spot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.spots[id]
	if !ok {
		return nil, domain.NewSpotNotFoundError(id)
	}
	cp := *s
	return &cp, nil
}

func (m *MockBookingRepository) FindSpotForUpdate(ctx context.Context, id int64) (*domain.Spot, error) {
	return m.FindSpot(ctx, id)
}

func (m *MockBookingRepository) FindSpotsByFloor(ctx context.Context, floor int) ([]*domain.Spot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var spots []*domain.Spot
	for _, s := range m.spots {
		if s.Floor == floor {
			cp := *s
			spots = append(spots, &cp)
		}
	}
	slices.SortFunc(spots, func(a, b *domain.Spot) int { return int(a.ID - b.ID) })
	return spots, nil
}

func (m *MockBookingRepository) FindPromoForUpdate(ctx context.Context, code string) (*domain.Promo, error) {
	if p := m.Promo(code); p != nil {
		return p, nil
	}
	return nil, domain.NewPromoNotFoundError(code)
}

func (m *MockBookingRepository) IncrementPromoUse(ctx context.Context, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.promos[code]
	if !ok || p.CurrentUses >= p.UsageLimit {
		return domain.NewPromoNotFoundError(code)
	}
	p.CurrentUses++
	return nil
}

func (m *MockBookingRepository) AppendAudit(ctx context.Context, e *domain.AuditEntry) error {
	if m.AppendAuditFn != nil {
		return m.AppendAuditFn(ctx, e)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	e.ID = int64(len(m.audit) + 1)
	cp := *e
	m.audit = append(m.audit, &cp)
	return nil
}

func (m *MockBookingRepository) FindAudit(ctx context.Context, bookingID int64) ([]*domain.AuditEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var entries []*domain.AuditEntry
	for _, e := range m.audit {
		if e.BookingID == bookingID {
			cp := *e
			entries = append(entries, &cp)
		}
	}
	return entries, nil
}

func (m *MockBookingRepository) WithTx(ctx context.Context, fn func(repo ports.BookingRepository) error) error {
	if m.WithTxFn != nil {
		return m.WithTxFn(ctx, fn)
	}
	m.txMu.Lock()
	defer m.txMu.Unlock()

	snapshot := m.snapshot()
	if err := fn(m); err != nil {
		m.restore(snapshot)
		return err
	}
	return nil
}

type mockState struct {
	bookings map[int64]domain.Booking
	promos   map[string]domain.Promo
	audit    int
	nextID   int64
}

func (m *MockBookingRepository) snapshot() mockState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s := mockState{
		bookings: make(map[int64]domain.Booking, len(m.bookings)),
		promos:   make(map[string]domain.Promo, len(m.promos)),
		audit:    len(m.audit),
		nextID:   m.nextID,
	}
	for id, b := range m.bookings {
		s.bookings[id] = *b
	}
	for code, p := range m.promos {
		s.promos[code] = *p
	}
	return s
}

func (m *MockBookingRepository) restore(s mockState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bookings = make(map[int64]*domain.Booking, len(s.bookings))
	for id, b := range s.bookings {
		m.bookings[id] = &b
	}
	m.promos = make(map[string]*domain.Promo, len(s.promos))
	for code, p := range s.promos {
		m.promos[code] = &p
	}
	m.audit = m.audit[:s.audit]
	m.nextID = s.nextID
}

func (m *MockBookingRepository) filter(keep func(*domain.Booking) bool) []*domain.Booking {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.Booking
	for _, b := range m.bookings {
		if keep(b) {
			cp := *b
			out = append(out, &cp)
		}
	}
	slices.SortFunc(out, func(a, b *domain.Booking) int { return int(a.ID - b.ID) })
	return out
}

func limitBookings(bs []*domain.Booking, limit int) []*domain.Booking {
	if limit > 0 && len(bs) > limit {
		return bs[:limit]
	}
	return bs
}

// MockGateway answers enquiries from EnquireFn and counts calls.
type MockGateway struct {
	mu        sync.Mutex
	calls     int
	Delay     time.Duration
	EnquireFn func(ctx context.Context, orderID, transactionRef string) (*domain.PaymentResult, error)
}

func (m *MockGateway) Enquire(ctx context.Context, orderID, transactionRef string) (*domain.PaymentResult, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.Delay > 0 {
		time.Sleep(m.Delay)
	}
	if m.EnquireFn != nil {
		return m.EnquireFn(ctx, orderID, transactionRef)
	}
	return nil, errors.New("mock gateway: no enquiry response configured")
}

func (m *MockGateway) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// MockNotifier records every notification it is handed.
type MockNotifier struct {
	mu       sync.Mutex
	sent     []domain.Notification
	NotifyFn func(ctx context.Context, n domain.Notification) error
}

func (m *MockNotifier) Notify(ctx context.Context, n domain.Notification) error {
	if m.NotifyFn != nil {
		if err := m.NotifyFn(ctx, n); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, n)
	return nil
}

func (m *MockNotifier) Sent() []domain.Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.sent)
}

// Kinds lists the kinds sent so far, in order.
func (m *MockNotifier) Kinds() []domain.NoticeKind {
	m.mu.Lock()
	defer m.mu.Unlock()
	kinds := make([]domain.NoticeKind, 0, len(m.sent))
	for _, n := range m.sent {
		kinds = append(kinds, n.Kind)
	}
	return kinds
}

// FixedClock is a Clock that only moves when told to.
type FixedClock struct {
	mu sync.Mutex
	t  time.Time
}

func NewFixedClock(t time.Time) *FixedClock {
	return &FixedClock{t: t}
}

func (c *FixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *FixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func (c *FixedClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t
}

// MockSettingsStore serves a fixed settings map.
type MockSettingsStore struct {
	Settings map[string]string
	Err      error
}

func (m *MockSettingsStore) LoadSettings(ctx context.Context) (map[string]string, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Settings, nil
}

// MockSweepLease grants the lease unless Held is set.
type MockSweepLease struct {
	mu       sync.Mutex
	Held     bool
	Err      error
	acquired int
	released int
}

func (m *MockSweepLease) Acquire(ctx context.Context, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return false, m.Err
	}
	if m.Held {
		return false, nil
	}
	m.acquired++
	return true, nil
}

func (m *MockSweepLease) Release(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.released++
	return nil
}

func (m *MockSweepLease) Counts() (acquired, released int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.acquired, m.released
}

var (
	_ ports.BookingRepository = (*MockBookingRepository)(nil)
	_ ports.GatewayPort       = (*MockGateway)(nil)
	_ ports.Notifier          = (*MockNotifier)(nil)
	_ ports.Clock             = (*FixedClock)(nil)
	_ ports.SettingsStore     = (*MockSettingsStore)(nil)
	_ ports.SweepLease        = (*MockSweepLease)(nil)
)
