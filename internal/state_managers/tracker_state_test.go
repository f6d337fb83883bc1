package state_managers

import (
	"testing"

	"github.com/benmeehan/bus-tracker/internal/constants"
	"github.com/stretchr/testify/assert"
)

func TestObservableString_NotifiesOnChange(t *testing.T) {
	o := NewObservableString("a")
	var got []string
	unsubscribe := o.Subscribe(func(v string) { got = append(got, v) })

	o.Set("b")
	o.Set("b")
	o.Set("c")

	assert.Equal(t, []string{"b", "c"}, got)
	assert.Equal(t, "c", o.Get())

	unsubscribe()
	o.Set("d")
	assert.Equal(t, []string{"b", "c"}, got)
	assert.Zero(t, o.Subscribers())
}

func TestTrackerState_InitialValues(t *testing.T) {
	s := NewTrackerState()

	assert.Equal(t, Snapshot{Location: constants.LocationWaiting, Status: constants.StatusTrackingOff}, s.Snapshot())
}

func TestTrackerState_OnChange(t *testing.T) {
	s := NewTrackerState()
	var snapshots []Snapshot
	unsubscribe := s.OnChange(func(snap Snapshot) { snapshots = append(snapshots, snap) })

	s.Status.Set(constants.StatusTrackingOn)
	s.Location.Set("Location: 1.000000, 2.000000")

	assert.Equal(t, []Snapshot{
		{Location: constants.LocationWaiting, Status: constants.StatusTrackingOn},
		{Location: "Location: 1.000000, 2.000000", Status: constants.StatusTrackingOn},
	}, snapshots)

	unsubscribe()
	assert.Zero(t, s.Location.Subscribers())
	assert.Zero(t, s.Status.Subscribers())
}
