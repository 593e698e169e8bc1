package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"loyaltytracker/internal/events"
	"loyaltytracker/internal/models"
	"loyaltytracker/internal/repository"
)

var testNow = time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)

// recorder collects published events
type recorder struct {
	mu     sync.Mutex
	events []events.Event
}

func record(bus *events.Bus, types ...events.Type) *recorder {
	r := &recorder{}
	bus.Subscribe(func(ev events.Event) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.events = append(r.events, ev)
	}, types...)
	return r
}

func (r *recorder) all() []events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]events.Event{}, r.events...)
}

func (r *recorder) ofType(t events.Type) []events.Event {
	var out []events.Event
	for _, ev := range r.all() {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

type testStore struct {
	slots *repository.MemorySlotRepository
	bus   *events.Bus
	data  *DataService
}

func newTestStore(quota int) *testStore {
	slots := repository.NewMemorySlotRepository(quota)
	bus := events.NewBus()
	return &testStore{slots: slots, bus: bus, data: NewDataService(slots, bus)}
}

// newTestLoyalty builds a loyalty service over fresh memory storage with a
// fixed clock and sequential ids
func newTestLoyalty(t *testing.T) (*LoyaltyService, *testStore) {
	t.Helper()
	st := newTestStore(0)
	st.data.now = func() time.Time { return testNow }
	svc := newLoyaltyOn(st)
	t.Cleanup(svc.Close)
	return svc, st
}

func newLoyaltyOn(st *testStore) *LoyaltyService {
	svc := NewLoyaltyService(context.Background(), st.data, st.bus)
	svc.now = func() time.Time { return testNow }
	var mu sync.Mutex
	n := 0
	svc.newID = func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("id-%d", n)
	}
	return svc
}

func mustAddCustomer(t *testing.T, svc *LoyaltyService, name, phone string) models.Customer {
	t.Helper()
	c, err := svc.AddCustomer(context.Background(), models.Customer{Name: name, Phone: phone})
	if err != nil {
		t.Fatalf("AddCustomer(%s): %v", name, err)
	}
	return *c
}

func addVisits(t *testing.T, svc *LoyaltyService, customerID string, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		if _, err := svc.AddVisit(context.Background(), models.Visit{CustomerID: customerID}); err != nil {
			t.Fatalf("AddVisit: %v", err)
		}
	}
}
