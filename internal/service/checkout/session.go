package checkout

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/Domenick1991/skycheckout/internal/domain"
)

// Session is the state of one checkout. Booking is nil while the session is a
// draft and is dropped again whenever a priced selection is edited.
type Session struct {
	ID           string                    `json:"id"`
	IdentityID   string                    `json:"identity_id,omitempty"`
	Device       string                    `json:"device,omitempty"`
	Flight       domain.Flight             `json:"flight"`
	Occupied     []string                  `json:"occupied"`
	SelectedSeat string                    `json:"selected_seat,omitempty"`
	Baggage      []domain.BaggageSelection `json:"baggage"`
	FarePlanID   string                    `json:"fare_plan_id"`
	Passenger    domain.PassengerDetails   `json:"passenger"`
	Emergency    domain.EmergencyContact   `json:"emergency_contact"`
	Booking      *domain.Booking           `json:"booking,omitempty"`
	Persisted    bool                      `json:"persisted"`
	CreatedAt    time.Time                 `json:"created_at"`
	UpdatedAt    time.Time                 `json:"updated_at"`
}

func (s *Session) Status() domain.BookingStatus {
	if s.Booking == nil {
		return domain.BookingStatusDraft
	}
	return s.Booking.Status
}

// SessionStore keeps sessions between requests. Load returns
// domain.ErrSessionNotFound for unknown or expired ids.
type SessionStore interface {
	Save(ctx context.Context, session *Session) error
	Load(ctx context.Context, id string) (*Session, error)
	Delete(ctx context.Context, id string) error
	AcquirePaymentLock(ctx context.Context, sessionID string, ttl time.Duration) (bool, error)
	ReleasePaymentLock(ctx context.Context, sessionID string) error
}

type memoryEntry struct {
	data      []byte
	expiresAt time.Time
}

// MemorySessionStore is a single-process SessionStore. Sessions are stored
// encoded so callers never share state with the store.
type MemorySessionStore struct {
	ttl time.Duration
	now func() time.Time

	mu       sync.Mutex
	sessions map[string]memoryEntry
	locks    map[string]time.Time
}

func NewMemorySessionStore(ttl time.Duration) *MemorySessionStore {
	return &MemorySessionStore{
		ttl:      ttl,
		now:      time.Now,
		sessions: make(map[string]memoryEntry),
		locks:    make(map[string]time.Time),
	}
}

func (m *MemorySessionStore) Save(ctx context.Context, session *Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	entry := memoryEntry{data: data}
	if m.ttl > 0 {
		entry.expiresAt = m.now().Add(m.ttl)
	}
	m.sessions[session.ID] = entry
	return nil
}

func (m *MemorySessionStore) Load(ctx context.Context, id string) (*Session, error) {
	m.mu.Lock()
	entry, ok := m.sessions[id]
	if ok && !entry.expiresAt.IsZero() && m.now().After(entry.expiresAt) {
		delete(m.sessions, id)
		ok = false
	}
	m.mu.Unlock()
	if !ok {
		return nil, domain.ErrSessionNotFound
	}

	var session Session
	if err := json.Unmarshal(entry.data, &session); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &session, nil
}

func (m *MemorySessionStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

func (m *MemorySessionStore) AcquirePaymentLock(ctx context.Context, sessionID string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if until, ok := m.locks[sessionID]; ok && m.now().Before(until) {
		return false, nil
	}
	m.locks[sessionID] = m.now().Add(ttl)
	return true, nil
}

func (m *MemorySessionStore) ReleasePaymentLock(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.locks, sessionID)
	return nil
}

var _ SessionStore = (*MemorySessionStore)(nil)
