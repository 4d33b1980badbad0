package lookup

import (
	"context"
	"errors"
	"fmt"
)

// ErrUnknownKind is returned when a lookup list name is not recognised.
var ErrUnknownKind = errors.New("unknown lookup kind")

// Lister serves the three lookup lists. Service and CachedService implement it.
type Lister interface {
	Patients(ctx context.Context) ([]Item, error)
	Doctors(ctx context.Context) ([]Item, error)
	Medicines(ctx context.Context) ([]Item, error)
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Patients(ctx context.Context) ([]Item, error) {
	return s.repo.ListPatients(ctx)
}

func (s *Service) Doctors(ctx context.Context) ([]Item, error) {
	return s.repo.ListDoctors(ctx)
}

func (s *Service) Medicines(ctx context.Context) ([]Item, error) {
	return s.repo.ListMedicines(ctx)
}

// List dispatches to the list named by kind.
func List(ctx context.Context, l Lister, kind Kind) ([]Item, error) {
	switch kind {
	case KindPatients:
		return l.Patients(ctx)
	case KindDoctors:
		return l.Doctors(ctx)
	case KindMedicines:
		return l.Medicines(ctx)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
}
