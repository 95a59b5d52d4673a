package intake

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/ehr/patientflow/internal/platform/apperr"
)

// Backend is the part of the hospital backend used at reception and triage.
type Backend interface {
	SearchPatient(ctx context.Context, query string) (*Patient, error)
	RegisterPatient(ctx context.Context, reg *Registration) (*Patient, error)
	CreateConsultation(ctx context.Context, c *Consultation) error
}

const notRegisteredMessage = "Patient not found. Please register."

type Service struct {
	backend Backend
	logger  zerolog.Logger
}

func NewService(b Backend, logger zerolog.Logger) *Service {
	return &Service{backend: b, logger: logger}
}

// Search finds a patient by id number or name. A miss asks the caller to
// register the patient.
func (s *Service) Search(ctx context.Context, query string) (*Patient, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, apperr.Validation("enter an id number or name to search")
	}
	p, err := s.backend.SearchPatient(ctx, query)
	if apperr.KindOf(err) == apperr.KindNotFound {
		return nil, &apperr.NotFoundError{Resource: "patient", ID: query, Message: notRegisteredMessage}
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) Register(ctx context.Context, reg *Registration) (*Patient, error) {
	reg.Name = strings.TrimSpace(reg.Name)
	reg.Phone = strings.TrimSpace(reg.Phone)
	reg.IDNumber = strings.TrimSpace(reg.IDNumber)

	ve := apperr.Validation("patient registration is incomplete")
	if reg.Name == "" {
		ve.Add("name", "required")
	}
	if reg.Phone == "" {
		ve.Add("phone", "required")
	}
	if reg.Age < 0 {
		ve.Add("age", "must not be negative")
	}
	if ve.HasProblems() {
		return nil, ve
	}

	p, err := s.backend.RegisterPatient(ctx, reg)
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("patient_id", p.ID).Msg("patient registered")
	return p, nil
}

// Consult records the triage consultation and refers the patient on.
func (s *Service) Consult(ctx context.Context, c *Consultation) error {
	c.PatientID = strings.TrimSpace(c.PatientID)
	c.Complaints = strings.TrimSpace(c.Complaints)
	c.ReferredDepartment = strings.TrimSpace(c.ReferredDepartment)

	ve := apperr.Validation("consultation is incomplete")
	if c.PatientID == "" {
		ve.Add("patientId", "required")
	}
	if c.Complaints == "" {
		ve.Add("complaints", "required")
	}
	if c.ReferredDepartment == "" {
		ve.Add("referredDepartment", "required")
	}
	if ve.HasProblems() {
		return ve
	}

	if err := s.backend.CreateConsultation(ctx, c); err != nil {
		return err
	}
	s.logger.Info().
		Str("patient_id", c.PatientID).
		Str("department", c.ReferredDepartment).
		Msg("patient referred to department")
	return nil
}
