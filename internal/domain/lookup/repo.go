package lookup

import "context"

// Repository reads the master data tables. List methods return every record,
// active or not, ordered by name then id.
type Repository interface {
	ListPatients(ctx context.Context) ([]Item, error)
	ListDoctors(ctx context.Context) ([]Item, error)
	ListMedicines(ctx context.Context) ([]Item, error)

	PatientExists(ctx context.Context, id int64) (bool, error)
	DoctorExists(ctx context.Context, id int64) (bool, error)
	// CountMedicines returns how many of the given ids exist.
	CountMedicines(ctx context.Context, ids []int64) (int, error)
}
