package appointment

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/medapp/medapp/pkg/dateonly"
)

// VisitType classifies an appointment. The store keeps the integer value.
type VisitType int

const (
	VisitNew      VisitType = 1
	VisitFollowUp VisitType = 2
)

var visitTypeNames = map[VisitType]string{
	VisitNew:      "NewVisit",
	VisitFollowUp: "FollowUp",
}

func (v VisitType) Valid() bool {
	_, ok := visitTypeNames[v]
	return ok
}

func (v VisitType) String() string {
	if name, ok := visitTypeNames[v]; ok {
		return name
	}
	return strconv.Itoa(int(v))
}

// Label is the human-readable form printed on reports.
func (v VisitType) Label() string {
	switch v {
	case VisitNew:
		return "New Visit"
	case VisitFollowUp:
		return "Follow-up"
	}
	return v.String()
}

// ParseVisitType accepts the integer value or the member name.
func ParseVisitType(s string) (VisitType, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		v := VisitType(n)
		if !v.Valid() {
			return 0, fmt.Errorf("%w: unknown visit type %d", ErrInvalid, n)
		}
		return v, nil
	}
	for v, name := range visitTypeNames {
		if strings.EqualFold(name, s) {
			return v, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown visit type %q", ErrInvalid, s)
}

// UnmarshalJSON accepts a number or a member name. Range checks are left
// to Payload.Validate so they surface as validation errors.
func (v *VisitType) UnmarshalJSON(b []byte) error {
	var n int
	if err := json.Unmarshal(b, &n); err == nil {
		*v = VisitType(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("visitType must be a number or name")
	}
	parsed, err := ParseVisitType(s)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// Appointment is the stored appointment row.
type Appointment struct {
	ID              int64
	PatientID       int64
	DoctorID        int64
	AppointmentDate dateonly.Date
	VisitType       VisitType
	Notes           *string
	Diagnosis       *string
}

// PrescriptionDetail is one stored prescription line.
type PrescriptionDetail struct {
	ID            int64
	AppointmentID int64
	MedicineID    int64
	Dosage        string
	StartDate     dateonly.Date
	EndDate       *dateonly.Date
	Notes         *string
}

// DetailPayload is one prescription line as sent by clients. ID is accepted
// for round-tripping views but ignored: details are always re-created.
type DetailPayload struct {
	ID         int64          `json:"id,omitempty"`
	MedicineID int64          `json:"medicineId"`
	Dosage     string         `json:"dosage"`
	StartDate  dateonly.Date  `json:"startDate"`
	EndDate    *dateonly.Date `json:"endDate,omitempty"`
	Notes      *string        `json:"notes,omitempty"`
}

// Payload is the create and update request body.
type Payload struct {
	ID              int64           `json:"id,omitempty"`
	PatientID       int64           `json:"patientId"`
	DoctorID        int64           `json:"doctorId"`
	AppointmentDate dateonly.Date   `json:"appointmentDate"`
	VisitType       VisitType       `json:"visitType"`
	Notes           *string         `json:"notes,omitempty"`
	Diagnosis       *string         `json:"diagnosis,omitempty"`
	Details         []DetailPayload `json:"details"`
}

// Validate performs the checks that need no store access.
func (p *Payload) Validate() error {
	if p.AppointmentDate.IsZero() {
		return fmt.Errorf("%w: appointmentDate is required", ErrInvalid)
	}
	if !p.VisitType.Valid() {
		return fmt.Errorf("%w: unknown visit type %d", ErrInvalid, int(p.VisitType))
	}
	for i, d := range p.Details {
		if d.MedicineID <= 0 {
			return fmt.Errorf("%w: details[%d]: medicineId is required", ErrInvalid, i)
		}
		if strings.TrimSpace(d.Dosage) == "" {
			return fmt.Errorf("%w: details[%d]: dosage is required", ErrInvalid, i)
		}
		if d.StartDate.IsZero() {
			return fmt.Errorf("%w: details[%d]: startDate is required", ErrInvalid, i)
		}
		if d.EndDate != nil && !d.EndDate.IsZero() && d.EndDate.Before(d.StartDate) {
			return fmt.Errorf("%w: details[%d]: endDate %s precedes startDate %s", ErrInvalid, i, d.EndDate, d.StartDate)
		}
	}
	return nil
}

// MedicineIDs returns the distinct medicine ids referenced by the details,
// in first-seen order.
func (p *Payload) MedicineIDs() []int64 {
	seen := make(map[int64]bool, len(p.Details))
	ids := make([]int64, 0, len(p.Details))
	for _, d := range p.Details {
		if !seen[d.MedicineID] {
			seen[d.MedicineID] = true
			ids = append(ids, d.MedicineID)
		}
	}
	return ids
}

func (p *Payload) appointment(id int64) *Appointment {
	return &Appointment{
		ID:              id,
		PatientID:       p.PatientID,
		DoctorID:        p.DoctorID,
		AppointmentDate: p.AppointmentDate,
		VisitType:       p.VisitType,
		Notes:           p.Notes,
		Diagnosis:       p.Diagnosis,
	}
}

func (p *Payload) details(appointmentID int64) []PrescriptionDetail {
	out := make([]PrescriptionDetail, len(p.Details))
	for i, d := range p.Details {
		end := d.EndDate
		if end != nil && end.IsZero() {
			end = nil
		}
		out[i] = PrescriptionDetail{
			AppointmentID: appointmentID,
			MedicineID:    d.MedicineID,
			Dosage:        strings.TrimSpace(d.Dosage),
			StartDate:     d.StartDate,
			EndDate:       end,
			Notes:         d.Notes,
		}
	}
	return out
}

// DetailView is a prescription line with its medicine name resolved.
type DetailView struct {
	ID           int64          `json:"id"`
	MedicineID   int64          `json:"medicineId"`
	MedicineName string         `json:"medicineName"`
	Dosage       string         `json:"dosage"`
	StartDate    dateonly.Date  `json:"startDate"`
	EndDate      *dateonly.Date `json:"endDate"`
	Notes        *string        `json:"notes"`
}

// View is the fully hydrated appointment returned by Get.
type View struct {
	ID              int64         `json:"id"`
	PatientID       int64         `json:"patientId"`
	PatientName     string        `json:"patientName"`
	DoctorID        int64         `json:"doctorId"`
	DoctorName      string        `json:"doctorName"`
	AppointmentDate dateonly.Date `json:"appointmentDate"`
	VisitType       VisitType     `json:"visitType"`
	Notes           *string       `json:"notes"`
	Diagnosis       *string       `json:"diagnosis"`
	Details         []DetailView  `json:"details"`
}

// ListItem is the summary row returned by List.
type ListItem struct {
	ID              int64         `json:"id"`
	PatientName     string        `json:"patientName"`
	DoctorName      string        `json:"doctorName"`
	AppointmentDate dateonly.Date `json:"appointmentDate"`
	VisitType       VisitType     `json:"visitType"`
	Diagnosis       *string       `json:"diagnosis"`
}

// ListFilter narrows List. Nil fields do not restrict; the date range is
// inclusive on both ends.
type ListFilter struct {
	Search    *string
	DoctorID  *int64
	VisitType *VisitType
	DateFrom  *dateonly.Date
	DateTo    *dateonly.Date
	Page      int
	PageSize  int
}
