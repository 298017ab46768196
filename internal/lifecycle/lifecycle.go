// Package lifecycle defines the item state machine: which events are legal
// from which status, and which fields each transition sets or clears. It is
// pure; persistence and concurrency control live in the service and
// repository layers, which write the validated result with a conditional
// update so racing transitions cannot interleave.
package lifecycle

import (
	"fmt"
	"time"

	"qr-lost-found/internal/model"
)

// Event is a requested transition on an item.
type Event string

const (
	EventReportFound    Event = "finderReportsFound"
	EventConfirmDropOff Event = "confirmDropOff"
	EventFalseAlarm     Event = "ownerFalseAlarm"
	EventConfirmPickup  Event = "ownerConfirmsPickup"
	EventDeadlinePassed Event = "deadlinePassed"
	EventDisputeDropOff Event = "ownerDisputesDropoff"
	EventReset          Event = "ownerResets"
)

// PickupWindow is how long the owner has to collect a dropped-off item
// before it auto-expires.
const PickupWindow = 7 * 24 * time.Hour

// Payload carries event-specific data. Only confirmDropOff requires one:
// the partner location the finder selected.
type Payload struct {
	Location *model.Location
}

// ComputeDeadline returns the pickup deadline for a drop-off at the given
// time. Shared by the drop-off transition and the expiry sweep so both work
// from one constant.
func ComputeDeadline(from time.Time) time.Time {
	return from.Add(PickupWindow)
}

// Apply validates the event against the item's current status and returns an
// updated copy with the transition's field changes applied. The stored item
// is untouched; callers persist the result conditionally on the old status.
//
// Reporting found and dropping off are deliberately separate transitions:
// the location is chosen interactively after the report, and a finder may
// abandon the flow in between. An item can sit in reportedFound forever;
// only droppedOff carries a deadline.
func Apply(item model.Item, ev Event, p Payload, now time.Time) (model.Item, error) {
	now = now.UTC()

	switch {
	case item.Status == model.StatusActive && ev == EventReportFound:
		item.Status = model.StatusReportedFound
		item.ReportedFoundAt = &now

	case item.Status == model.StatusReportedFound && ev == EventConfirmDropOff:
		if p.Location == nil {
			return model.Item{}, model.ErrMissingLocation
		}
		deadline := ComputeDeadline(now)
		item.Status = model.StatusDroppedOff
		item.DroppedOffAt = &now
		item.ExpiresAt = &deadline
		item.Location = p.Location

	case item.Status == model.StatusReportedFound && ev == EventFalseAlarm:
		item.Status = model.StatusActive
		item.ReportedFoundAt = nil

	case item.Status == model.StatusDroppedOff && ev == EventConfirmPickup:
		item.Status = model.StatusPickedUp
		item.PickedUpAt = &now
		item.ExpiresAt = nil
		item.Location = nil

	case item.Status == model.StatusDroppedOff && ev == EventDeadlinePassed:
		if item.ExpiresAt == nil || now.Before(*item.ExpiresAt) {
			return model.Item{}, fmt.Errorf("%w: pickup deadline has not passed", model.ErrInvalidTransition)
		}
		// Deadline and location stay on the record for audit display.
		item.Status = model.StatusExpired

	case item.Status == model.StatusDroppedOff && ev == EventDisputeDropOff:
		item.Status = model.StatusActive
		item.ReportedFoundAt = nil
		item.DroppedOffAt = nil
		item.ExpiresAt = nil
		item.Location = nil

	case item.Status == model.StatusPickedUp && ev == EventReset:
		item.Status = model.StatusActive
		item.ReportedFoundAt = nil
		item.DroppedOffAt = nil
		item.PickedUpAt = nil

	case item.Status == model.StatusExpired && ev == EventReset:
		// Expiry fields are retained as an audit trail of the failed pickup.
		item.Status = model.StatusActive

	default:
		return model.Item{}, fmt.Errorf("%w: no edge from %q for event %q", model.ErrInvalidTransition, item.Status, ev)
	}

	item.UpdatedAt = now
	return item, nil
}

// ResetEvent maps an item's current status to the owner-initiated transition
// that returns it to active, or reports that none exists.
func ResetEvent(status model.ItemStatus) (Event, bool) {
	switch status {
	case model.StatusReportedFound:
		return EventFalseAlarm, true
	case model.StatusDroppedOff:
		return EventDisputeDropOff, true
	case model.StatusPickedUp, model.StatusExpired:
		return EventReset, true
	default:
		return "", false
	}
}

// Countdown is the display decomposition of the time left in a pickup
// window. It is cosmetic; expiry itself is enforced server-side.
type Countdown struct {
	Days    int `json:"days"`
	Hours   int `json:"hours"`
	Minutes int `json:"minutes"`
}

// Remaining decomposes the time between now and the deadline. The second
// return value is false once the deadline has passed.
func Remaining(deadline time.Time, now time.Time) (Countdown, bool) {
	left := deadline.Sub(now)
	if left <= 0 {
		return Countdown{}, false
	}

	return Countdown{
		Days:    int(left / (24 * time.Hour)),
		Hours:   int((left % (24 * time.Hour)) / time.Hour),
		Minutes: int((left % time.Hour) / time.Minute),
	}, true
}
