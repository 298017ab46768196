package model

import "time"

type ItemStatus string

const (
	StatusActive        ItemStatus = "active"
	StatusReportedFound ItemStatus = "reportedFound"
	StatusDroppedOff    ItemStatus = "droppedOff"
	StatusPickedUp      ItemStatus = "pickedUp"
	StatusExpired       ItemStatus = "expired"
)

// Item is the central entity: a physical object registered under a QR code.
// The QR code string is the primary key; it is printed on the physical tag
// and never changes after registration.
type Item struct {
	QRCode          string     `json:"qr_code"`
	UserID          string     `json:"user_id"`
	Name            string     `json:"name"`
	OwnerName       string     `json:"owner_name,omitempty"`
	OwnerEmail      string     `json:"owner_email,omitempty"`
	Status          ItemStatus `json:"status"`
	Location        *Location  `json:"location,omitempty"`
	RegisteredAt    time.Time  `json:"registered_at"`
	ReportedFoundAt *time.Time `json:"reported_found_at,omitempty"`
	DroppedOffAt    *time.Time `json:"dropped_off_at,omitempty"`
	PickedUpAt      *time.Time `json:"picked_up_at,omitempty"`
	ExpiresAt       *time.Time `json:"expires_at,omitempty"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// PublicItem is the projection shown to an anonymous finder. It never carries
// the owner's contact details; contact-sharing is always routed through the
// drop-off location, never peer-to-peer.
type PublicItem struct {
	QRCode          string     `json:"qr_code"`
	Name            string     `json:"name"`
	OwnerName       string     `json:"owner_name,omitempty"`
	Status          ItemStatus `json:"status"`
	Location        *Location  `json:"location,omitempty"`
	ReportedFoundAt *time.Time `json:"reported_found_at,omitempty"`
	DroppedOffAt    *time.Time `json:"dropped_off_at,omitempty"`
	ExpiresAt       *time.Time `json:"expires_at,omitempty"`
}

// PublicView strips owner identity from an item. The display name is shown
// only while the item is still active (pre-report); the email never is.
func (i Item) PublicView() PublicItem {
	view := PublicItem{
		QRCode:          i.QRCode,
		Name:            i.Name,
		Status:          i.Status,
		Location:        i.Location,
		ReportedFoundAt: i.ReportedFoundAt,
		DroppedOffAt:    i.DroppedOffAt,
		ExpiresAt:       i.ExpiresAt,
	}
	if i.Status == StatusActive && i.OwnerName != "" {
		view.OwnerName = i.OwnerName
	}
	return view
}
