package pharmacy

import (
	"context"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/ehr/patientflow/internal/platform/apperr"
)

// Backend is the part of the hospital backend the pharmacy screen uses.
type Backend interface {
	ListMedicines(ctx context.Context) ([]*Medicine, error)
	AddMedicine(ctx context.Context, m *Medicine) (*Medicine, error)
	PendingPrescriptions(ctx context.Context) ([]*Prescription, error)
	FulfillPrescription(ctx context.Context, f *Fulfillment) error
	DischargePatient(ctx context.Context, d *Discharge) error
	DeletePrescription(ctx context.Context, id string) error
}

type Service struct {
	backend Backend
	logger  zerolog.Logger
}

func NewService(b Backend, logger zerolog.Logger) *Service {
	return &Service{backend: b, logger: logger}
}

func (s *Service) Medicines(ctx context.Context) ([]*Medicine, error) {
	meds, err := s.backend.ListMedicines(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(meds, func(i, j int) bool {
		return strings.ToLower(meds[i].Name) < strings.ToLower(meds[j].Name)
	})
	return meds, nil
}

func (s *Service) AddMedicine(ctx context.Context, m *Medicine) (*Medicine, error) {
	m.Name = strings.TrimSpace(m.Name)
	m.Form = strings.TrimSpace(m.Form)
	m.Strength = strings.TrimSpace(m.Strength)
	if m.Name == "" {
		return nil, apperr.Validation("medicine name is required")
	}
	out, err := s.backend.AddMedicine(ctx, m)
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("medicine", out.Name).Msg("medicine added")
	return out, nil
}

// Prescriptions lists the pending queue, oldest first. A non-empty query
// keeps prescriptions whose patient name or department contains it.
func (s *Service) Prescriptions(ctx context.Context, query string) ([]*Prescription, error) {
	all, err := s.backend.PendingPrescriptions(ctx)
	if err != nil {
		return nil, err
	}
	q := strings.ToLower(strings.TrimSpace(query))
	out := make([]*Prescription, 0, len(all))
	for _, p := range all {
		if q == "" ||
			strings.Contains(strings.ToLower(p.Patient.Name), q) ||
			strings.Contains(strings.ToLower(p.Department), q) {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Service) Prescription(ctx context.Context, id string) (*Prescription, error) {
	all, err := s.backend.PendingPrescriptions(ctx)
	if err != nil {
		return nil, err
	}
	for _, p := range all {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, apperr.NotFound("prescription", id)
}

// Availability maps a prescribed medicine name to whether it is in stock.
type Availability map[string]bool

// selection resolves availability against the prescription's medicines.
// Names that are not on the prescription are rejected.
func selection(p *Prescription, avail Availability) ([]FulfilledMedicine, error) {
	if len(avail) == 0 {
		return nil, apperr.Validation("select the availability of at least one medicine")
	}
	onScript := make(map[string]bool, len(p.Medications))
	for _, m := range p.Medications {
		onScript[m.Name] = true
	}
	ve := apperr.Validation("medicine selection is invalid")
	for name := range avail {
		if !onScript[name] {
			ve.Add(name, "not on this prescription")
		}
	}
	if ve.HasProblems() {
		return nil, ve
	}

	out := make([]FulfilledMedicine, 0, len(avail))
	for _, m := range p.Medications {
		if a, ok := avail[m.Name]; ok {
			out = append(out, FulfilledMedicine{Name: m.Name, Available: a})
		}
	}
	return out, nil
}

// Fulfill records which prescribed medicines were dispensed.
func (s *Service) Fulfill(ctx context.Context, id string, avail Availability) (*Fulfillment, error) {
	p, err := s.Prescription(ctx, id)
	if err != nil {
		return nil, err
	}
	meds, err := selection(p, avail)
	if err != nil {
		return nil, err
	}
	f := &Fulfillment{PrescriptionID: p.ID, Medicines: meds}
	if err := s.backend.FulfillPrescription(ctx, f); err != nil {
		return nil, err
	}
	s.logger.Info().Str("prescription_id", p.ID).Int("medicines", len(meds)).Msg("prescription fulfilled")
	return f, nil
}

// Discharge releases the patient. Medicines marked unavailable are sent so
// the patient can be told to buy them elsewhere.
func (s *Service) Discharge(ctx context.Context, id string, avail Availability) (*Discharge, error) {
	p, err := s.Prescription(ctx, id)
	if err != nil {
		return nil, err
	}
	meds, err := selection(p, avail)
	if err != nil {
		return nil, err
	}
	d := &Discharge{
		PatientID:       p.Patient.ID,
		PatientName:     p.Patient.Name,
		PhoneNumber:     p.Patient.Phone,
		UnavailableMeds: []string{},
	}
	for _, m := range meds {
		if !m.Available {
			d.UnavailableMeds = append(d.UnavailableMeds, m.Name)
		}
	}
	if err := s.backend.DischargePatient(ctx, d); err != nil {
		return nil, err
	}
	s.logger.Info().
		Str("prescription_id", p.ID).
		Int("unavailable", len(d.UnavailableMeds)).
		Msg("patient discharged from pharmacy")
	return d, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if id == "" {
		return apperr.Validation("prescription id is required")
	}
	if err := s.backend.DeletePrescription(ctx, id); err != nil {
		return err
	}
	s.logger.Info().Str("prescription_id", id).Msg("prescription deleted")
	return nil
}
