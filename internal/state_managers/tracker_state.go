package state_managers

import (
	"sync"

	"github.com/benmeehan/bus-tracker/internal/constants"
	"github.com/google/uuid"
	cmap "github.com/orcaman/concurrent-map/v2"
)

// ObservableString is a string value that notifies subscribers when it changes.
// Subscribers run synchronously on the goroutine calling Set and must not block.
type ObservableString struct {
	mu          sync.RWMutex
	value       string
	subscribers cmap.ConcurrentMap[string, func(string)]
}

// NewObservableString creates an ObservableString holding initial.
func NewObservableString(initial string) *ObservableString {
	return &ObservableString{
		value:       initial,
		subscribers: cmap.New[func(string)](),
	}
}

// Get returns the current value.
func (o *ObservableString) Get() string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.value
}

// Set stores value and notifies subscribers if it differs from the current one.
func (o *ObservableString) Set(value string) {
	o.mu.Lock()
	if o.value == value {
		o.mu.Unlock()
		return
	}
	o.value = value
	o.mu.Unlock()

	for _, fn := range o.subscribers.Items() {
		fn(value)
	}
}

// Subscribe registers fn for change notifications and returns a function that removes it.
func (o *ObservableString) Subscribe(fn func(string)) (unsubscribe func()) {
	id := uuid.NewString()
	o.subscribers.Set(id, fn)
	return func() { o.subscribers.Remove(id) }
}

// Subscribers returns the number of registered subscribers.
func (o *ObservableString) Subscribers() int {
	return o.subscribers.Count()
}

// TrackerState holds the two strings the view layer displays.
// Only the tracker service writes them.
type TrackerState struct {
	Location *ObservableString
	Status   *ObservableString
}

// Snapshot is a point-in-time copy of TrackerState.
type Snapshot struct {
	Location string `json:"location"`
	Status   string `json:"status"`
}

// NewTrackerState returns the state shown before tracking has ever started.
func NewTrackerState() *TrackerState {
	return &TrackerState{
		Location: NewObservableString(constants.LocationWaiting),
		Status:   NewObservableString(constants.StatusTrackingOff),
	}
}

// Snapshot copies the current values.
func (s *TrackerState) Snapshot() Snapshot {
	return Snapshot{
		Location: s.Location.Get(),
		Status:   s.Status.Get(),
	}
}

// OnChange subscribes fn to both strings; fn receives a fresh snapshot on every change.
func (s *TrackerState) OnChange(fn func(Snapshot)) (unsubscribe func()) {
	notify := func(string) { fn(s.Snapshot()) }
	unsubLocation := s.Location.Subscribe(notify)
	unsubStatus := s.Status.Subscribe(notify)
	return func() {
		unsubLocation()
		unsubStatus()
	}
}
