package model

// Location is a partner drop-off site (library, security office, ...).
// Items reference locations weakly: the id plus denormalized display fields
// are copied onto the item at drop-off time, so the item record stays
// renderable even if the catalog entry changes later.
type Location struct {
	ID      int64    `json:"id"`
	Name    string   `json:"name"`
	Address string   `json:"address"`
	Phone   string   `json:"phone"`
	Lat     *float64 `json:"lat,omitempty"`
	Lng     *float64 `json:"lng,omitempty"`
}
