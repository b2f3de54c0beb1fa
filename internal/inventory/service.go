package inventory

import (
	"sync"

	"github.com/google/uuid"
	"github.com/openchami/rack-manager/internal/storage"
	"github.com/openchami/rack-manager/pkg/racks"
	"github.com/rs/zerolog/log"
)

// EventRecorder receives one event per successful mutation.
type EventRecorder interface {
	LogEvent(eventType string, eventData map[string]interface{})
}

type nopRecorder struct{}

func (nopRecorder) LogEvent(string, map[string]interface{}) {}

// Event types recorded by the service.
const (
	EventRackCreated      = "rack.created"
	EventRackUpdated      = "rack.updated"
	EventRackDeleted      = "rack.deleted"
	EventEquipmentAdded   = "equipment.added"
	EventEquipmentUpdated = "equipment.updated"
	EventEquipmentDeleted = "equipment.deleted"
	EventPortsReset       = "equipment.ports_reset"
	EventPortUpdated      = "switch_port.updated"
	EventVMAdded          = "virtual_machine.added"
	EventVMUpdated        = "virtual_machine.updated"
	EventVMDeleted        = "virtual_machine.deleted"
)

// Service applies inventory operations on top of a Storage. Every
// read-validate-write sequence touching a rack runs under that rack's lock,
// so concurrent placements are checked against a current snapshot.
type Service struct {
	storage   storage.Storage
	allocator *racks.Allocator
	events    EventRecorder

	mu    sync.Mutex
	locks map[uuid.UUID]*rackLock
}

type ServiceOption func(*Service)

// WithAllocator replaces the default bounds and overlap allocator.
func WithAllocator(a *racks.Allocator) ServiceOption {
	return func(s *Service) {
		s.allocator = a
	}
}

// WithEventRecorder sends mutation events to r.
func WithEventRecorder(r EventRecorder) ServiceOption {
	return func(s *Service) {
		if r != nil {
			s.events = r
		}
	}
}

func NewService(store storage.Storage, options ...ServiceOption) *Service {
	s := &Service{
		storage:   store,
		allocator: racks.NewAllocator(),
		events:    nopRecorder{},
		locks:     make(map[uuid.UUID]*rackLock),
	}
	for _, option := range options {
		option(s)
	}
	return s
}

// rackLock is held in Service.locks only while some caller holds or waits
// for it.
type rackLock struct {
	mu   sync.Mutex
	refs int
}

// lockRack serializes writers of one rack and returns the unlock function.
func (s *Service) lockRack(rackID uuid.UUID) func() {
	s.mu.Lock()
	l, ok := s.locks[rackID]
	if !ok {
		l = &rackLock{}
		s.locks[rackID] = l
	}
	l.refs++
	s.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		s.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, rackID)
		}
		s.mu.Unlock()
	}
}

func (s *Service) record(eventType string, data map[string]interface{}) {
	log.Debug().Str("event", eventType).Interface("data", data).Msg("inventory mutation")
	s.events.LogEvent(eventType, data)
}
