package appointment

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/medapp/medapp/internal/platform/notification"
	"github.com/medapp/medapp/internal/platform/report"
	"github.com/medapp/medapp/pkg/pagination"
)

// memStore is an in-memory Repository, ReferenceChecker and TxRunner.
// WithTx restores a snapshot when fn fails.
type memStore struct {
	patients  map[int64]string
	doctors   map[int64]string
	medicines map[int64]string

	appts      map[int64]Appointment
	details    map[int64]PrescriptionDetail
	nextAppt   int64
	nextDetail int64

	failInsertDetails error
	failList          error

	// readTx is set while WithReadTx runs; viewsOutsideReadTx counts
	// GetView calls made without one.
	readTx             bool
	viewsOutsideReadTx int
}

func newMemStore() *memStore {
	return &memStore{
		patients:  map[int64]string{1: "John Doe", 2: "Jane Smith"},
		doctors:   map[int64]string{1: "Dr. Smith", 2: "Dr. Brown"},
		medicines: map[int64]string{1: "Paracetamol", 2: "Metformin", 3: "Amoxicillin"},
		appts:     map[int64]Appointment{},
		details:   map[int64]PrescriptionDetail{},
	}
}

func (m *memStore) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	appts := make(map[int64]Appointment, len(m.appts))
	for k, v := range m.appts {
		appts[k] = v
	}
	details := make(map[int64]PrescriptionDetail, len(m.details))
	for k, v := range m.details {
		details[k] = v
	}
	nextAppt, nextDetail := m.nextAppt, m.nextDetail

	if err := fn(ctx); err != nil {
		m.appts, m.details = appts, details
		m.nextAppt, m.nextDetail = nextAppt, nextDetail
		return err
	}
	return nil
}

func (m *memStore) WithReadTx(ctx context.Context, fn func(ctx context.Context) error) error {
	m.readTx = true
	defer func() { m.readTx = false }()
	return fn(ctx)
}

func (m *memStore) PatientExists(ctx context.Context, id int64) (bool, error) {
	_, ok := m.patients[id]
	return ok, nil
}

func (m *memStore) DoctorExists(ctx context.Context, id int64) (bool, error) {
	_, ok := m.doctors[id]
	return ok, nil
}

func (m *memStore) CountMedicines(ctx context.Context, ids []int64) (int, error) {
	n := 0
	for _, id := range ids {
		if _, ok := m.medicines[id]; ok {
			n++
		}
	}
	return n, nil
}

func (m *memStore) List(ctx context.Context, f ListFilter, page pagination.Params) ([]ListItem, int, error) {
	if m.failList != nil {
		return nil, 0, m.failList
	}
	var all []ListItem
	for _, a := range m.appts {
		pn, dn := m.patients[a.PatientID], m.doctors[a.DoctorID]
		if f.Search != nil {
			q := strings.ToLower(*f.Search)
			if !strings.Contains(strings.ToLower(pn), q) && !strings.Contains(strings.ToLower(dn), q) {
				continue
			}
		}
		if f.DoctorID != nil && a.DoctorID != *f.DoctorID {
			continue
		}
		if f.VisitType != nil && a.VisitType != *f.VisitType {
			continue
		}
		if f.DateFrom != nil && a.AppointmentDate.Before(*f.DateFrom) {
			continue
		}
		if f.DateTo != nil && a.AppointmentDate.After(*f.DateTo) {
			continue
		}
		all = append(all, ListItem{
			ID: a.ID, PatientName: pn, DoctorName: dn,
			AppointmentDate: a.AppointmentDate, VisitType: a.VisitType, Diagnosis: a.Diagnosis,
		})
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].AppointmentDate.Equal(all[j].AppointmentDate) {
			return all[i].AppointmentDate.After(all[j].AppointmentDate)
		}
		return all[i].ID < all[j].ID
	})

	total := len(all)
	start := min(page.Offset(), total)
	end := min(start+page.Limit(), total)
	return all[start:end], total, nil
}

func (m *memStore) GetView(ctx context.Context, id int64) (*View, error) {
	if !m.readTx {
		m.viewsOutsideReadTx++
	}
	a, ok := m.appts[id]
	if !ok {
		return nil, ErrNotFound
	}
	v := &View{
		ID: a.ID, PatientID: a.PatientID, PatientName: m.patients[a.PatientID],
		DoctorID: a.DoctorID, DoctorName: m.doctors[a.DoctorID],
		AppointmentDate: a.AppointmentDate, VisitType: a.VisitType,
		Notes: a.Notes, Diagnosis: a.Diagnosis, Details: []DetailView{},
	}
	for _, d := range m.details {
		if d.AppointmentID != id {
			continue
		}
		v.Details = append(v.Details, DetailView{
			ID: d.ID, MedicineID: d.MedicineID, MedicineName: m.medicines[d.MedicineID],
			Dosage: d.Dosage, StartDate: d.StartDate, EndDate: d.EndDate, Notes: d.Notes,
		})
	}
	sort.Slice(v.Details, func(i, j int) bool { return v.Details[i].ID < v.Details[j].ID })
	return v, nil
}

func (m *memStore) Lock(ctx context.Context, id int64) error {
	if _, ok := m.appts[id]; !ok {
		return ErrNotFound
	}
	return nil
}

func (m *memStore) Create(ctx context.Context, a *Appointment) (int64, error) {
	m.nextAppt++
	a.ID = m.nextAppt
	m.appts[a.ID] = *a
	return a.ID, nil
}

func (m *memStore) Update(ctx context.Context, a *Appointment) error {
	if _, ok := m.appts[a.ID]; !ok {
		return ErrNotFound
	}
	m.appts[a.ID] = *a
	return nil
}

func (m *memStore) InsertDetails(ctx context.Context, details []PrescriptionDetail) error {
	for i := range details {
		if m.failInsertDetails != nil {
			return m.failInsertDetails
		}
		m.nextDetail++
		details[i].ID = m.nextDetail
		m.details[details[i].ID] = details[i]
	}
	return nil
}

func (m *memStore) DeleteDetails(ctx context.Context, appointmentID int64) error {
	for id, d := range m.details {
		if d.AppointmentID == appointmentID {
			delete(m.details, id)
		}
	}
	return nil
}

func (m *memStore) Delete(ctx context.Context, id int64) (bool, error) {
	if _, ok := m.appts[id]; !ok {
		return false, nil
	}
	delete(m.appts, id)
	_ = m.DeleteDetails(ctx, id)
	return true, nil
}

type stubRenderer struct {
	got *report.Prescription
	out []byte
	err error
}

func (r *stubRenderer) Render(p report.Prescription) ([]byte, error) {
	r.got = &p
	if r.err != nil {
		return nil, r.err
	}
	return r.out, nil
}

type stubMailer struct {
	sent []notification.Message
	err  error
}

func (s *stubMailer) Send(ctx context.Context, msg notification.Message) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, msg)
	return nil
}

var errStore = errors.New("store unavailable")
