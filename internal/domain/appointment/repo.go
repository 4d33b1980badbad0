package appointment

import (
	"context"

	"github.com/medapp/medapp/pkg/pagination"
)

// Repository persists appointments and their prescription details. Write
// methods join the transaction carried by ctx, if any.
type Repository interface {
	List(ctx context.Context, f ListFilter, page pagination.Params) ([]ListItem, int, error)
	// GetView returns ErrNotFound when id does not resolve.
	GetView(ctx context.Context, id int64) (*View, error)
	// Lock takes a row lock on the appointment for the rest of the
	// transaction, returning ErrNotFound when it does not exist.
	Lock(ctx context.Context, id int64) error
	Create(ctx context.Context, a *Appointment) (int64, error)
	Update(ctx context.Context, a *Appointment) error
	InsertDetails(ctx context.Context, details []PrescriptionDetail) error
	DeleteDetails(ctx context.Context, appointmentID int64) error
	// Delete reports whether a row was removed.
	Delete(ctx context.Context, id int64) (bool, error)
}

// ReferenceChecker resolves the master data an appointment points at.
type ReferenceChecker interface {
	PatientExists(ctx context.Context, id int64) (bool, error)
	DoctorExists(ctx context.Context, id int64) (bool, error)
	CountMedicines(ctx context.Context, ids []int64) (int, error)
}

// TxRunner runs fn inside one database transaction. WithReadTx gives fn a
// single consistent snapshot for reads.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	WithReadTx(ctx context.Context, fn func(ctx context.Context) error) error
}
