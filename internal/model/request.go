package model

type SignupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type RegisterItemRequest struct {
	QRCode    string `json:"qr_code"`
	Name      string `json:"name"`
	OwnerName string `json:"owner_name"`
}

type DropOffRequest struct {
	LocationID int64 `json:"location_id"`
}
