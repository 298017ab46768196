package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"qr-lost-found/internal/event"
	"qr-lost-found/internal/lifecycle"
	"qr-lost-found/internal/metrics"
	"qr-lost-found/internal/model"
	"qr-lost-found/internal/qrcode"
)

// ItemStore is the persistence the item lifecycle needs. UpdateStatus must
// be conditional on the expected pre-transition status so concurrent
// transitions against one item cannot both succeed.
type ItemStore interface {
	Create(ctx context.Context, item model.Item) error
	FindByQRCode(ctx context.Context, qrCode string) (model.Item, error)
	ListByOwner(ctx context.Context, userID string) ([]model.Item, error)
	ListExpired(ctx context.Context, now time.Time) ([]model.Item, error)
	UpdateStatus(ctx context.Context, qrCode string, expected model.ItemStatus, item model.Item) error
	Delete(ctx context.Context, qrCode string, userID string) error
}

// LocationStore resolves drop-off locations from the partner catalog.
type LocationStore interface {
	FindByID(ctx context.Context, id int64) (model.Location, error)
}

// Events that may only be applied by the item's owner. Finder events
// (report-found, drop-off) are anonymous; deadlinePassed is internal to the
// expiry sweep.
var ownerEvents = map[lifecycle.Event]bool{
	lifecycle.EventFalseAlarm:     true,
	lifecycle.EventConfirmPickup:  true,
	lifecycle.EventDisputeDropOff: true,
	lifecycle.EventReset:          true,
}

type ItemService struct {
	items     ItemStore
	locations LocationStore
	bus       event.Bus
	metrics   metrics.Recorder
	now       func() time.Time
}

func NewItemService(items ItemStore, locations LocationStore, bus event.Bus, recorder metrics.Recorder) *ItemService {
	return &ItemService{
		items:     items,
		locations: locations,
		bus:       bus,
		metrics:   recorder,
		now:       time.Now,
	}
}

// Register links a freshly scanned QR code to the authenticated owner.
func (s *ItemService) Register(ctx context.Context, owner model.AuthUser, rawCode string, name string, ownerName string) (model.Item, error) {
	code, ok := qrcode.Extract(rawCode)
	if !ok {
		return model.Item{}, model.ErrInvalidQRCode
	}
	if name == "" {
		return model.Item{}, fmt.Errorf("%w: item name is required", model.ErrInvalidInput)
	}

	now := s.now().UTC()
	item := model.Item{
		QRCode:       code,
		UserID:       owner.ID,
		Name:         name,
		OwnerName:    ownerName,
		OwnerEmail:   owner.Email,
		Status:       model.StatusActive,
		RegisteredAt: now,
		UpdatedAt:    now,
	}

	if err := s.items.Create(ctx, item); err != nil {
		return model.Item{}, err
	}

	s.publish(event.TypeItemRegistered, item)
	return item, nil
}

// ApplyTransition runs one lifecycle event against an item: read the current
// record, validate the edge, and persist the result conditioned on the status
// the validation saw. Auto-expiry and manual changes share this path. A lost
// race surfaces as ErrInvalidTransition; callers reconcile by re-reading.
func (s *ItemService) ApplyTransition(ctx context.Context, qrCode string, ev lifecycle.Event, payload lifecycle.Payload, actorID string) (model.Item, error) {
	item, err := s.items.FindByQRCode(ctx, qrCode)
	if err != nil {
		return model.Item{}, err
	}

	if ownerEvents[ev] {
		if actorID == "" {
			return model.Item{}, model.ErrUnauthorized
		}
		if actorID != item.UserID {
			return model.Item{}, model.ErrForbidden
		}
	}

	updated, err := lifecycle.Apply(item, ev, payload, s.now())
	if err != nil {
		return model.Item{}, err
	}

	if err := s.items.UpdateStatus(ctx, qrCode, item.Status, updated); err != nil {
		if errors.Is(err, model.ErrInvalidTransition) {
			s.metrics.RecordTransitionConflict()
		}
		return model.Item{}, err
	}

	s.metrics.RecordTransition(string(ev))
	s.publish(eventTypeFor(ev), updated)

	slog.Info("item transition applied",
		"qr_code", updated.QRCode, "event", string(ev),
		"from", string(item.Status), "to", string(updated.Status))

	return updated, nil
}

// ReportFound marks a scanned item as found by an anonymous finder.
func (s *ItemService) ReportFound(ctx context.Context, qrCode string) (model.PublicItem, error) {
	updated, err := s.ApplyTransition(ctx, qrCode, lifecycle.EventReportFound, lifecycle.Payload{}, "")
	if err != nil {
		return model.PublicItem{}, err
	}
	return updated.PublicView(), nil
}

// ConfirmDropOff records that the finder left the item at a partner
// location. The location is resolved from the catalog and denormalized onto
// the item so the record stays displayable on its own.
func (s *ItemService) ConfirmDropOff(ctx context.Context, qrCode string, locationID int64) (model.PublicItem, error) {
	if locationID == 0 {
		return model.PublicItem{}, model.ErrMissingLocation
	}

	location, err := s.locations.FindByID(ctx, locationID)
	if err != nil {
		return model.PublicItem{}, err
	}

	updated, err := s.ApplyTransition(ctx, qrCode, lifecycle.EventConfirmDropOff, lifecycle.Payload{Location: &location}, "")
	if err != nil {
		return model.PublicItem{}, err
	}
	return updated.PublicView(), nil
}

// ConfirmPickup is the owner collecting their item from the drop-off site.
func (s *ItemService) ConfirmPickup(ctx context.Context, qrCode string, actorID string) (model.Item, error) {
	return s.ApplyTransition(ctx, qrCode, lifecycle.EventConfirmPickup, lifecycle.Payload{}, actorID)
}

// ResetToActive returns an item to active from whichever non-active status
// it is in (false report, disputed drop-off, or post-pickup/expiry appeal).
func (s *ItemService) ResetToActive(ctx context.Context, qrCode string, actorID string) (model.Item, error) {
	item, err := s.items.FindByQRCode(ctx, qrCode)
	if err != nil {
		return model.Item{}, err
	}

	ev, ok := lifecycle.ResetEvent(item.Status)
	if !ok {
		return model.Item{}, fmt.Errorf("%w: item is already active", model.ErrInvalidTransition)
	}

	return s.ApplyTransition(ctx, qrCode, ev, lifecycle.Payload{}, actorID)
}

// GetPublicView resolves a scanned code to the finder-facing projection.
func (s *ItemService) GetPublicView(ctx context.Context, rawCode string) (model.PublicItem, error) {
	code, ok := qrcode.Extract(rawCode)
	if !ok {
		return model.PublicItem{}, model.ErrInvalidQRCode
	}

	item, err := s.items.FindByQRCode(ctx, code)
	if err != nil {
		return model.PublicItem{}, err
	}
	return item.PublicView(), nil
}

func (s *ItemService) ListOwnerItems(ctx context.Context, userID string) ([]model.Item, error) {
	return s.items.ListByOwner(ctx, userID)
}

// Unlink permanently removes an item. Only the owner may unlink; repeating
// the same delete is a no-op success.
func (s *ItemService) Unlink(ctx context.Context, qrCode string, actorID string) error {
	item, err := s.items.FindByQRCode(ctx, qrCode)
	if errors.Is(err, model.ErrItemNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	if item.UserID != actorID {
		return model.ErrForbidden
	}

	if err := s.items.Delete(ctx, qrCode, actorID); err != nil {
		if errors.Is(err, model.ErrItemNotFound) {
			return nil
		}
		return err
	}

	s.publish(event.TypeItemUnlinked, item)
	return nil
}

// ExpireOverdue applies deadlinePassed to every dropped-off item whose
// pickup window has closed. Called by the expiry sweep. Losing a race to a
// concurrent pickup (or to another sweep instance) is not an error: the
// conditional write makes the transition fire at most once per item.
func (s *ItemService) ExpireOverdue(ctx context.Context) (int, error) {
	now := s.now().UTC()
	overdue, err := s.items.ListExpired(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("list overdue items: %w", err)
	}

	expired := 0
	for _, item := range overdue {
		if _, err := s.ApplyTransition(ctx, item.QRCode, lifecycle.EventDeadlinePassed, lifecycle.Payload{}, ""); err != nil {
			if errors.Is(err, model.ErrInvalidTransition) || errors.Is(err, model.ErrItemNotFound) {
				continue
			}
			return expired, fmt.Errorf("expire item %s: %w", item.QRCode, err)
		}
		expired++
	}

	s.metrics.RecordSweep(expired)
	return expired, nil
}

func (s *ItemService) publish(t event.Type, item model.Item) {
	if s.bus == nil {
		return
	}

	// Broadcast the public projection only; websocket subscribers are not
	// authenticated per-item.
	s.bus.Publish(event.Event{
		ID:        uuid.NewString(),
		Type:      t,
		Payload:   item.PublicView(),
		Timestamp: s.now().UTC().Format(time.RFC3339Nano),
	})
}

func eventTypeFor(ev lifecycle.Event) event.Type {
	switch ev {
	case lifecycle.EventReportFound:
		return event.TypeItemReportedFound
	case lifecycle.EventConfirmDropOff:
		return event.TypeItemDroppedOff
	case lifecycle.EventConfirmPickup:
		return event.TypeItemPickedUp
	case lifecycle.EventDeadlinePassed:
		return event.TypeItemExpired
	default:
		return event.TypeItemReset
	}
}
