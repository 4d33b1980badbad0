package appointment

import (
	"context"
	"errors"
	"fmt"
	"net/mail"

	"github.com/rs/zerolog"

	"github.com/medapp/medapp/internal/platform/notification"
	"github.com/medapp/medapp/internal/platform/report"
	"github.com/medapp/medapp/pkg/pagination"
)

const (
	reportSubject = "Prescription Report"
	reportBody    = "Please find the attached prescription report."
)

// Renderer turns a prescription into document bytes.
type Renderer interface {
	Render(p report.Prescription) ([]byte, error)
}

// ReportFilename is the attachment and download name for an appointment's report.
func ReportFilename(id int64) string {
	return fmt.Sprintf("Prescription_%d.pdf", id)
}

type Service struct {
	repo     Repository
	refs     ReferenceChecker
	tx       TxRunner
	renderer Renderer
	mailer   notification.Dispatcher
	logger   zerolog.Logger
}

func NewService(repo Repository, refs ReferenceChecker, tx TxRunner, renderer Renderer, mailer notification.Dispatcher, logger zerolog.Logger) *Service {
	return &Service{repo: repo, refs: refs, tx: tx, renderer: renderer, mailer: mailer, logger: logger}
}

// List returns one page of appointment summaries matching f.
func (s *Service) List(ctx context.Context, f ListFilter) (*pagination.Page[ListItem], error) {
	page := pagination.Params{Page: f.Page, PageSize: f.PageSize}
	if err := page.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	items, total, err := s.repo.List(ctx, f, page)
	if err != nil {
		return nil, err
	}
	return pagination.NewPage(items, total, page), nil
}

// Get returns the hydrated appointment or ErrNotFound.
func (s *Service) Get(ctx context.Context, id int64) (*View, error) {
	var v *View
	err := s.tx.WithReadTx(ctx, func(ctx context.Context) error {
		var err error
		v, err = s.repo.GetView(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return v, nil
}

// checkReferences validates, in order, the patient, the doctor and the
// distinct medicines. The first failure wins.
func (s *Service) checkReferences(ctx context.Context, p *Payload) error {
	ok, err := s.refs.PatientExists(ctx, p.PatientID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownPatient, p.PatientID)
	}

	ok, err = s.refs.DoctorExists(ctx, p.DoctorID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownDoctor, p.DoctorID)
	}

	ids := p.MedicineIDs()
	if len(ids) == 0 {
		return nil
	}
	n, err := s.refs.CountMedicines(ctx, ids)
	if err != nil {
		return err
	}
	if n != len(ids) {
		return fmt.Errorf("%w: %d of %d referenced medicines do not exist", ErrUnknownMedicine, len(ids)-n, len(ids))
	}
	return nil
}

// Create validates p and stores the appointment with its details atomically.
func (s *Service) Create(ctx context.Context, p Payload) (int64, error) {
	if err := p.Validate(); err != nil {
		return 0, err
	}

	var id int64
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		if err := s.checkReferences(ctx, &p); err != nil {
			return err
		}
		newID, err := s.repo.Create(ctx, p.appointment(0))
		if err != nil {
			return err
		}
		if err := s.repo.InsertDetails(ctx, p.details(newID)); err != nil {
			return err
		}
		id = newID
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.logger.Info().Int64("appointment_id", id).Int("details", len(p.Details)).Msg("appointment created")
	return id, nil
}

// Update overwrites the appointment's fields and replaces all of its details.
func (s *Service) Update(ctx context.Context, id int64, p Payload) error {
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		if err := s.repo.Lock(ctx, id); err != nil {
			return err
		}
		if err := p.Validate(); err != nil {
			return err
		}
		if err := s.checkReferences(ctx, &p); err != nil {
			return err
		}
		if err := s.repo.Update(ctx, p.appointment(id)); err != nil {
			return err
		}
		if err := s.repo.DeleteDetails(ctx, id); err != nil {
			return err
		}
		return s.repo.InsertDetails(ctx, p.details(id))
	})
	if err != nil {
		return err
	}

	s.logger.Info().Int64("appointment_id", id).Int("details", len(p.Details)).Msg("appointment updated")
	return nil
}

// Delete removes the appointment and its details. Absent ids are a no-op.
func (s *Service) Delete(ctx context.Context, id int64) error {
	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return err
	}
	if deleted {
		s.logger.Info().Int64("appointment_id", id).Msg("appointment deleted")
	}
	return nil
}

func prescriptionOf(v *View) report.Prescription {
	p := report.Prescription{
		AppointmentID: v.ID,
		Patient:       v.PatientName,
		Doctor:        v.DoctorName,
		Date:          v.AppointmentDate,
		VisitType:     v.VisitType.Label(),
		Notes:         deref(v.Notes),
		Diagnosis:     deref(v.Diagnosis),
		Lines:         make([]report.Line, len(v.Details)),
	}
	for i, d := range v.Details {
		p.Lines[i] = report.Line{
			Medicine: d.MedicineName,
			Dosage:   d.Dosage,
			Start:    d.StartDate,
			End:      d.EndDate,
			Notes:    deref(d.Notes),
		}
	}
	return p
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// BuildReport renders the prescription report for an existing appointment.
func (s *Service) BuildReport(ctx context.Context, id int64) ([]byte, error) {
	v, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.renderer.Render(prescriptionOf(v))
}

// SendReportByEmail renders the report and mails it to the given address.
func (s *Service) SendReportByEmail(ctx context.Context, id int64, to string) error {
	pdf, err := s.BuildReport(ctx, id)
	if err != nil {
		return err
	}

	addr, err := mail.ParseAddress(to)
	if err != nil {
		return fmt.Errorf("%w: invalid recipient address %q", ErrInvalid, to)
	}

	err = s.mailer.Send(ctx, notification.Message{
		To:      addr.Address,
		Subject: reportSubject,
		Body:    reportBody,
		Attachment: &notification.Attachment{
			Filename:    ReportFilename(id),
			ContentType: "application/pdf",
			Data:        pdf,
		},
	})
	if err != nil {
		s.logger.Error().Err(err).Int64("appointment_id", id).Str("to", addr.Address).Msg("report email failed")
		return err
	}

	s.logger.Info().Int64("appointment_id", id).Str("to", addr.Address).Msg("report emailed")
	return nil
}

// IsDispatchError reports whether err came from the mail provider.
func IsDispatchError(err error) bool {
	return errors.Is(err, notification.ErrConnect) ||
		errors.Is(err, notification.ErrAuth) ||
		errors.Is(err, notification.ErrRejected)
}
