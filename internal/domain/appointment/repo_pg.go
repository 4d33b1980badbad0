package appointment

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/medapp/medapp/internal/platform/db"
	"github.com/medapp/medapp/pkg/dateonly"
	"github.com/medapp/medapp/pkg/pagination"
)

type repoPG struct{ pool db.Querier }

func NewRepoPG(pool db.Querier) Repository { return &repoPG{pool: pool} }

func (r *repoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

const listFrom = `
	FROM appointment a
	JOIN patient p ON p.id = a.patient_id
	JOIN doctor d ON d.id = a.doctor_id
	WHERE 1=1`

// likePattern escapes LIKE metacharacters so search text matches literally.
func likePattern(s string) string {
	s = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
	return "%" + s + "%"
}

func (r *repoPG) List(ctx context.Context, f ListFilter, page pagination.Params) ([]ListItem, int, error) {
	where := ""
	var args []interface{}
	idx := 1

	if f.Search != nil && *f.Search != "" {
		where += fmt.Sprintf(` AND (p.full_name ILIKE $%d ESCAPE '\' OR d.full_name ILIKE $%d ESCAPE '\')`, idx, idx)
		args = append(args, likePattern(*f.Search))
		idx++
	}
	if f.DoctorID != nil {
		where += fmt.Sprintf(` AND a.doctor_id = $%d`, idx)
		args = append(args, *f.DoctorID)
		idx++
	}
	if f.VisitType != nil {
		where += fmt.Sprintf(` AND a.visit_type = $%d`, idx)
		args = append(args, int(*f.VisitType))
		idx++
	}
	if f.DateFrom != nil {
		where += fmt.Sprintf(` AND a.appointment_date >= $%d`, idx)
		args = append(args, f.DateFrom.Time)
		idx++
	}
	if f.DateTo != nil {
		where += fmt.Sprintf(` AND a.appointment_date <= $%d`, idx)
		args = append(args, f.DateTo.Time)
		idx++
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*)`+listFrom+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count appointments: %w", err)
	}

	query := `SELECT a.id, p.full_name, d.full_name, a.appointment_date, a.visit_type, a.diagnosis` +
		listFrom + where +
		fmt.Sprintf(` ORDER BY a.appointment_date DESC, a.id ASC LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, page.Limit(), page.Offset())

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list appointments: %w", err)
	}
	defer rows.Close()

	items := []ListItem{}
	for rows.Next() {
		var it ListItem
		var date time.Time
		var vt int32
		if err := rows.Scan(&it.ID, &it.PatientName, &it.DoctorName, &date, &vt, &it.Diagnosis); err != nil {
			return nil, 0, fmt.Errorf("scan appointment: %w", err)
		}
		it.AppointmentDate = dateonly.FromTime(date)
		it.VisitType = VisitType(vt)
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate appointments: %w", err)
	}
	return items, total, nil
}

func (r *repoPG) GetView(ctx context.Context, id int64) (*View, error) {
	var v View
	var date time.Time
	var vt int32
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT a.id, a.patient_id, p.full_name, a.doctor_id, d.full_name,
			a.appointment_date, a.visit_type, a.notes, a.diagnosis
		FROM appointment a
		JOIN patient p ON p.id = a.patient_id
		JOIN doctor d ON d.id = a.doctor_id
		WHERE a.id = $1`, id).
		Scan(&v.ID, &v.PatientID, &v.PatientName, &v.DoctorID, &v.DoctorName, &date, &vt, &v.Notes, &v.Diagnosis)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get appointment %d: %w", id, err)
	}
	v.AppointmentDate = dateonly.FromTime(date)
	v.VisitType = VisitType(vt)

	rows, err := r.conn(ctx).Query(ctx, `
		SELECT pd.id, pd.medicine_id, m.name, pd.dosage, pd.start_date, pd.end_date, pd.notes
		FROM prescription_detail pd
		JOIN medicine m ON m.id = pd.medicine_id
		WHERE pd.appointment_id = $1
		ORDER BY pd.id`, id)
	if err != nil {
		return nil, fmt.Errorf("get details of appointment %d: %w", id, err)
	}
	defer rows.Close()

	v.Details = []DetailView{}
	for rows.Next() {
		var d DetailView
		var start time.Time
		var end *time.Time
		if err := rows.Scan(&d.ID, &d.MedicineID, &d.MedicineName, &d.Dosage, &start, &end, &d.Notes); err != nil {
			return nil, fmt.Errorf("scan prescription detail: %w", err)
		}
		d.StartDate = dateonly.FromTime(start)
		d.EndDate = dateonly.Ptr(end)
		v.Details = append(v.Details, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate prescription details: %w", err)
	}
	return &v, nil
}

func (r *repoPG) Lock(ctx context.Context, id int64) error {
	var got int64
	err := r.conn(ctx).QueryRow(ctx, `SELECT id FROM appointment WHERE id = $1 FOR UPDATE`, id).Scan(&got)
	if err != nil {
		if db.IsNoRows(err) {
			return ErrNotFound
		}
		return fmt.Errorf("lock appointment %d: %w", id, err)
	}
	return nil
}

// writeErr maps a foreign key race (a reference deleted after validation)
// to a validation error.
func writeErr(op string, err error) error {
	if db.IsForeignKeyViolation(err) {
		return fmt.Errorf("%w: %s: %v", ErrInvalid, op, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func (r *repoPG) Create(ctx context.Context, a *Appointment) (int64, error) {
	var id int64
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO appointment (patient_id, doctor_id, appointment_date, visit_type, notes, diagnosis)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`,
		a.PatientID, a.DoctorID, a.AppointmentDate.Time, int(a.VisitType), a.Notes, a.Diagnosis).Scan(&id)
	if err != nil {
		return 0, writeErr("insert appointment", err)
	}
	a.ID = id
	return id, nil
}

func (r *repoPG) Update(ctx context.Context, a *Appointment) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE appointment SET patient_id = $2, doctor_id = $3, appointment_date = $4,
			visit_type = $5, notes = $6, diagnosis = $7
		WHERE id = $1`,
		a.ID, a.PatientID, a.DoctorID, a.AppointmentDate.Time, int(a.VisitType), a.Notes, a.Diagnosis)
	if err != nil {
		return writeErr("update appointment", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) InsertDetails(ctx context.Context, details []PrescriptionDetail) error {
	for i := range details {
		d := &details[i]
		err := r.conn(ctx).QueryRow(ctx, `
			INSERT INTO prescription_detail (appointment_id, medicine_id, dosage, start_date, end_date, notes)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id`,
			d.AppointmentID, d.MedicineID, d.Dosage, d.StartDate.Time, dateonly.TimePtr(d.EndDate), d.Notes).Scan(&d.ID)
		if err != nil {
			return writeErr("insert prescription detail", err)
		}
	}
	return nil
}

func (r *repoPG) DeleteDetails(ctx context.Context, appointmentID int64) error {
	if _, err := r.conn(ctx).Exec(ctx, `DELETE FROM prescription_detail WHERE appointment_id = $1`, appointmentID); err != nil {
		return fmt.Errorf("delete details of appointment %d: %w", appointmentID, err)
	}
	return nil
}

func (r *repoPG) Delete(ctx context.Context, id int64) (bool, error) {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM appointment WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("delete appointment %d: %w", id, err)
	}
	return tag.RowsAffected() > 0, nil
}
