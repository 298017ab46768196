package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"qr-lost-found/internal/event"
	"qr-lost-found/internal/lifecycle"
	"qr-lost-found/internal/metrics"
	"qr-lost-found/internal/model"
)

const testQR = "QR-12345678-1234-1234-1234-123456789abc"

var testNow = time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)

type mockItemStore struct {
	mock.Mock
}

func (m *mockItemStore) Create(ctx context.Context, item model.Item) error {
	args := m.Called(ctx, item)
	return args.Error(0)
}

func (m *mockItemStore) FindByQRCode(ctx context.Context, qrCode string) (model.Item, error) {
	args := m.Called(ctx, qrCode)
	return args.Get(0).(model.Item), args.Error(1)
}

func (m *mockItemStore) ListByOwner(ctx context.Context, userID string) ([]model.Item, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]model.Item), args.Error(1)
}

func (m *mockItemStore) ListExpired(ctx context.Context, now time.Time) ([]model.Item, error) {
	args := m.Called(ctx, now)
	return args.Get(0).([]model.Item), args.Error(1)
}

func (m *mockItemStore) UpdateStatus(ctx context.Context, qrCode string, expected model.ItemStatus, item model.Item) error {
	args := m.Called(ctx, qrCode, expected, item)
	return args.Error(0)
}

func (m *mockItemStore) Delete(ctx context.Context, qrCode string, userID string) error {
	args := m.Called(ctx, qrCode, userID)
	return args.Error(0)
}

type mockLocationStore struct {
	mock.Mock
}

func (m *mockLocationStore) FindByID(ctx context.Context, id int64) (model.Location, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(model.Location), args.Error(1)
}

func newTestService(items *mockItemStore, locations *mockLocationStore) *ItemService {
	svc := NewItemService(items, locations, event.NewBus(), metrics.Nop{})
	svc.now = func() time.Time { return testNow }
	return svc
}

func storedItem(status model.ItemStatus) model.Item {
	item := model.Item{
		QRCode:       testQR,
		UserID:       "owner-1",
		Name:         "Backpack",
		OwnerName:    "Alex",
		OwnerEmail:   "alex@example.com",
		Status:       status,
		RegisteredAt: testNow.Add(-48 * time.Hour),
		UpdatedAt:    testNow.Add(-48 * time.Hour),
	}

	switch status {
	case model.StatusReportedFound:
		reported := testNow.Add(-2 * time.Hour)
		item.ReportedFoundAt = &reported
	case model.StatusDroppedOff, model.StatusExpired:
		reported := testNow.Add(-2 * time.Hour)
		dropped := testNow.Add(-time.Hour)
		deadline := dropped.Add(7 * 24 * time.Hour)
		item.ReportedFoundAt = &reported
		item.DroppedOffAt = &dropped
		item.ExpiresAt = &deadline
		item.Location = &model.Location{ID: 1, Name: "Central Library", Address: "123 Main Street", Phone: "555-0101"}
	}
	return item
}

func TestItemService_Register(t *testing.T) {
	owner := model.AuthUser{ID: "owner-1", Email: "alex@example.com", Name: "Alex"}

	t.Run("fresh item starts active with only registered_at set", func(t *testing.T) {
		items := new(mockItemStore)
		svc := newTestService(items, new(mockLocationStore))

		var created model.Item
		items.On("Create", mock.Anything, mock.AnythingOfType("model.Item")).
			Run(func(args mock.Arguments) { created = args.Get(1).(model.Item) }).
			Return(nil)

		item, err := svc.Register(context.Background(), owner, testQR, "Backpack", "Alex")
		require.NoError(t, err)

		assert.Equal(t, model.StatusActive, item.Status)
		assert.Equal(t, testNow, item.RegisteredAt)
		assert.Nil(t, item.ReportedFoundAt)
		assert.Nil(t, item.DroppedOffAt)
		assert.Nil(t, item.PickedUpAt)
		assert.Nil(t, item.ExpiresAt)
		assert.Nil(t, item.Location)
		assert.Equal(t, "alex@example.com", created.OwnerEmail)
		items.AssertExpectations(t)
	})

	t.Run("normalizes a scanned URL to the bare code", func(t *testing.T) {
		items := new(mockItemStore)
		svc := newTestService(items, new(mockLocationStore))
		items.On("Create", mock.Anything, mock.AnythingOfType("model.Item")).Return(nil)

		item, err := svc.Register(context.Background(), owner, "https://example.com/found?qr="+testQR, "Backpack", "")
		require.NoError(t, err)
		assert.Equal(t, testQR, item.QRCode)
	})

	t.Run("rejects input without an identifier", func(t *testing.T) {
		svc := newTestService(new(mockItemStore), new(mockLocationStore))

		_, err := svc.Register(context.Background(), owner, "not-a-code", "Backpack", "")
		assert.ErrorIs(t, err, model.ErrInvalidQRCode)
	})

	t.Run("surfaces duplicate registration", func(t *testing.T) {
		items := new(mockItemStore)
		svc := newTestService(items, new(mockLocationStore))
		items.On("Create", mock.Anything, mock.AnythingOfType("model.Item")).Return(model.ErrItemAlreadyRegistered)

		_, err := svc.Register(context.Background(), owner, testQR, "Backpack", "")
		assert.ErrorIs(t, err, model.ErrItemAlreadyRegistered)
	})
}

func TestItemService_ReportThenDropOff(t *testing.T) {
	items := new(mockItemStore)
	locations := new(mockLocationStore)
	svc := newTestService(items, locations)

	location := model.Location{ID: 2, Name: "City Police Station", Address: "456 Oak Avenue", Phone: "555-0102"}

	// Report found from active.
	items.On("FindByQRCode", mock.Anything, testQR).Return(storedItem(model.StatusActive), nil).Once()
	var reported model.Item
	items.On("UpdateStatus", mock.Anything, testQR, model.StatusActive, mock.AnythingOfType("model.Item")).
		Run(func(args mock.Arguments) { reported = args.Get(3).(model.Item) }).
		Return(nil).Once()

	view, err := svc.ReportFound(context.Background(), testQR)
	require.NoError(t, err)
	assert.Equal(t, model.StatusReportedFound, view.Status)
	require.NotNil(t, reported.ReportedFoundAt)

	// Drop off at the selected location.
	locations.On("FindByID", mock.Anything, int64(2)).Return(location, nil).Once()
	items.On("FindByQRCode", mock.Anything, testQR).Return(reported, nil).Once()
	var dropped model.Item
	items.On("UpdateStatus", mock.Anything, testQR, model.StatusReportedFound, mock.AnythingOfType("model.Item")).
		Run(func(args mock.Arguments) { dropped = args.Get(3).(model.Item) }).
		Return(nil).Once()

	view, err = svc.ConfirmDropOff(context.Background(), testQR, 2)
	require.NoError(t, err)

	assert.Equal(t, model.StatusDroppedOff, view.Status)
	require.NotNil(t, dropped.DroppedOffAt)
	require.NotNil(t, dropped.ExpiresAt)
	assert.Equal(t, dropped.DroppedOffAt.Add(7*24*time.Hour), *dropped.ExpiresAt)
	require.NotNil(t, dropped.Location)
	assert.Equal(t, location, *dropped.Location)

	items.AssertExpectations(t)
	locations.AssertExpectations(t)
}

func TestItemService_ConfirmDropOff_Validation(t *testing.T) {
	t.Run("missing location id", func(t *testing.T) {
		svc := newTestService(new(mockItemStore), new(mockLocationStore))
		_, err := svc.ConfirmDropOff(context.Background(), testQR, 0)
		assert.ErrorIs(t, err, model.ErrMissingLocation)
	})

	t.Run("unknown location", func(t *testing.T) {
		locations := new(mockLocationStore)
		locations.On("FindByID", mock.Anything, int64(99)).Return(model.Location{}, model.ErrLocationNotFound)
		svc := newTestService(new(mockItemStore), locations)

		_, err := svc.ConfirmDropOff(context.Background(), testQR, 99)
		assert.ErrorIs(t, err, model.ErrLocationNotFound)
	})
}

func TestItemService_OwnerGuards(t *testing.T) {
	t.Run("pickup by non-owner is forbidden", func(t *testing.T) {
		items := new(mockItemStore)
		items.On("FindByQRCode", mock.Anything, testQR).Return(storedItem(model.StatusDroppedOff), nil)
		svc := newTestService(items, new(mockLocationStore))

		_, err := svc.ConfirmPickup(context.Background(), testQR, "someone-else")
		assert.ErrorIs(t, err, model.ErrForbidden)
		items.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("pickup without a session is unauthorized", func(t *testing.T) {
		items := new(mockItemStore)
		items.On("FindByQRCode", mock.Anything, testQR).Return(storedItem(model.StatusDroppedOff), nil)
		svc := newTestService(items, new(mockLocationStore))

		_, err := svc.ConfirmPickup(context.Background(), testQR, "")
		assert.ErrorIs(t, err, model.ErrUnauthorized)
	})
}

func TestItemService_TransitionConflict(t *testing.T) {
	// A deadlinePassed racing a pickup: the conditional write rejects the
	// loser and the caller sees ErrInvalidTransition, never a merged record.
	items := new(mockItemStore)
	items.On("FindByQRCode", mock.Anything, testQR).Return(storedItem(model.StatusDroppedOff), nil)
	items.On("UpdateStatus", mock.Anything, testQR, model.StatusDroppedOff, mock.AnythingOfType("model.Item")).
		Return(model.ErrInvalidTransition)
	svc := newTestService(items, new(mockLocationStore))

	_, err := svc.ConfirmPickup(context.Background(), testQR, "owner-1")
	assert.ErrorIs(t, err, model.ErrInvalidTransition)
}

func TestItemService_ResetToActive(t *testing.T) {
	t.Run("disputed drop-off clears the lifecycle fields", func(t *testing.T) {
		items := new(mockItemStore)
		items.On("FindByQRCode", mock.Anything, testQR).Return(storedItem(model.StatusDroppedOff), nil)
		var written model.Item
		items.On("UpdateStatus", mock.Anything, testQR, model.StatusDroppedOff, mock.AnythingOfType("model.Item")).
			Run(func(args mock.Arguments) { written = args.Get(3).(model.Item) }).
			Return(nil)
		svc := newTestService(items, new(mockLocationStore))

		item, err := svc.ResetToActive(context.Background(), testQR, "owner-1")
		require.NoError(t, err)
		assert.Equal(t, model.StatusActive, item.Status)
		assert.Nil(t, written.DroppedOffAt)
		assert.Nil(t, written.ExpiresAt)
		assert.Nil(t, written.Location)
	})

	t.Run("already active", func(t *testing.T) {
		items := new(mockItemStore)
		items.On("FindByQRCode", mock.Anything, testQR).Return(storedItem(model.StatusActive), nil)
		svc := newTestService(items, new(mockLocationStore))

		_, err := svc.ResetToActive(context.Background(), testQR, "owner-1")
		assert.ErrorIs(t, err, model.ErrInvalidTransition)
	})
}

func TestItemService_ExpireOverdue(t *testing.T) {
	t.Run("expires overdue items exactly once", func(t *testing.T) {
		overdue := storedItem(model.StatusDroppedOff)
		past := testNow.Add(-10 * time.Second)
		overdue.ExpiresAt = &past

		items := new(mockItemStore)
		items.On("ListExpired", mock.Anything, testNow).Return([]model.Item{overdue}, nil).Once()
		items.On("FindByQRCode", mock.Anything, testQR).Return(overdue, nil).Once()
		items.On("UpdateStatus", mock.Anything, testQR, model.StatusDroppedOff, mock.AnythingOfType("model.Item")).
			Return(nil).Once()
		svc := newTestService(items, new(mockLocationStore))

		expired, err := svc.ExpireOverdue(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, expired)

		// Next sweep: the item is no longer droppedOff and is not listed.
		items.On("ListExpired", mock.Anything, testNow).Return([]model.Item{}, nil).Once()
		expired, err = svc.ExpireOverdue(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 0, expired)

		items.AssertExpectations(t)
	})

	t.Run("losing the race to a pickup is skipped, not fatal", func(t *testing.T) {
		overdue := storedItem(model.StatusDroppedOff)
		past := testNow.Add(-time.Minute)
		overdue.ExpiresAt = &past

		items := new(mockItemStore)
		items.On("ListExpired", mock.Anything, testNow).Return([]model.Item{overdue}, nil)
		items.On("FindByQRCode", mock.Anything, testQR).Return(overdue, nil)
		items.On("UpdateStatus", mock.Anything, testQR, model.StatusDroppedOff, mock.AnythingOfType("model.Item")).
			Return(model.ErrInvalidTransition)
		svc := newTestService(items, new(mockLocationStore))

		expired, err := svc.ExpireOverdue(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 0, expired)
	})

	t.Run("deadlinePassed against an already expired item fails closed", func(t *testing.T) {
		items := new(mockItemStore)
		items.On("FindByQRCode", mock.Anything, testQR).Return(storedItem(model.StatusExpired), nil)
		svc := newTestService(items, new(mockLocationStore))

		_, err := svc.ApplyTransition(context.Background(), testQR, lifecycle.EventDeadlinePassed, lifecycle.Payload{}, "")
		assert.ErrorIs(t, err, model.ErrInvalidTransition)
		items.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestItemService_GetPublicView(t *testing.T) {
	t.Run("active item shows owner name but never contact", func(t *testing.T) {
		items := new(mockItemStore)
		items.On("FindByQRCode", mock.Anything, testQR).Return(storedItem(model.StatusActive), nil)
		svc := newTestService(items, new(mockLocationStore))

		view, err := svc.GetPublicView(context.Background(), testQR)
		require.NoError(t, err)
		assert.Equal(t, "Alex", view.OwnerName)
	})

	t.Run("owner name is hidden once reported", func(t *testing.T) {
		items := new(mockItemStore)
		items.On("FindByQRCode", mock.Anything, testQR).Return(storedItem(model.StatusDroppedOff), nil)
		svc := newTestService(items, new(mockLocationStore))

		view, err := svc.GetPublicView(context.Background(), testQR)
		require.NoError(t, err)
		assert.Empty(t, view.OwnerName)
		assert.NotNil(t, view.Location, "finder still sees where to drop off")
	})

	t.Run("invalid input is rejected not coerced", func(t *testing.T) {
		svc := newTestService(new(mockItemStore), new(mockLocationStore))
		_, err := svc.GetPublicView(context.Background(), "garbage")
		assert.ErrorIs(t, err, model.ErrInvalidQRCode)
	})

	t.Run("unknown code", func(t *testing.T) {
		items := new(mockItemStore)
		items.On("FindByQRCode", mock.Anything, testQR).Return(model.Item{}, model.ErrItemNotFound)
		svc := newTestService(items, new(mockLocationStore))

		_, err := svc.GetPublicView(context.Background(), testQR)
		assert.ErrorIs(t, err, model.ErrItemNotFound)
	})
}

func TestItemService_Unlink(t *testing.T) {
	t.Run("owner unlinks their item", func(t *testing.T) {
		items := new(mockItemStore)
		items.On("FindByQRCode", mock.Anything, testQR).Return(storedItem(model.StatusActive), nil)
		items.On("Delete", mock.Anything, testQR, "owner-1").Return(nil)
		svc := newTestService(items, new(mockLocationStore))

		err := svc.Unlink(context.Background(), testQR, "owner-1")
		assert.NoError(t, err)
		items.AssertExpectations(t)
	})

	t.Run("non-owner is forbidden", func(t *testing.T) {
		items := new(mockItemStore)
		items.On("FindByQRCode", mock.Anything, testQR).Return(storedItem(model.StatusActive), nil)
		svc := newTestService(items, new(mockLocationStore))

		err := svc.Unlink(context.Background(), testQR, "someone-else")
		assert.ErrorIs(t, err, model.ErrForbidden)
		items.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("repeating the delete is a no-op success", func(t *testing.T) {
		items := new(mockItemStore)
		items.On("FindByQRCode", mock.Anything, testQR).Return(model.Item{}, model.ErrItemNotFound)
		svc := newTestService(items, new(mockLocationStore))

		err := svc.Unlink(context.Background(), testQR, "owner-1")
		assert.NoError(t, err)
	})
}
