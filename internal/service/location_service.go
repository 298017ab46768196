package service

import (
	"context"

	"qr-lost-found/internal/model"
)

// LocationCatalog lists the partner drop-off catalog for the finder flow.
// Resolving a single location happens inside ItemService during drop-off.
type LocationCatalog interface {
	List(ctx context.Context) ([]model.Location, error)
}

type LocationService struct {
	locations LocationCatalog
}

func NewLocationService(locations LocationCatalog) *LocationService {
	return &LocationService{locations: locations}
}

func (s *LocationService) List(ctx context.Context) ([]model.Location, error) {
	return s.locations.List(ctx)
}
