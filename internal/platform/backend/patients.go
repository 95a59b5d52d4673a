package backend

import (
	"context"
	"net/http"

	"github.com/ehr/patientflow/internal/domain/intake"
	"github.com/ehr/patientflow/internal/platform/apperr"
)

// SearchPatient looks a patient up by id number or name.
func (c *Client) SearchPatient(ctx context.Context, query string) (*intake.Patient, error) {
	var dto *patientDTO
	err := c.do(ctx, call{
		op:       "search patient",
		method:   http.MethodGet,
		path:     "/api/patients/search/{query}",
		params:   map[string]string{"query": query},
		result:   &dto,
		resource: "patient",
		id:       query,
	})
	if err != nil {
		return nil, err
	}
	if dto == nil || dto.ID == "" {
		return nil, apperr.NotFound("patient", query)
	}
	return dto.toDomain(), nil
}

// RegisterPatient creates a patient record at reception.
func (c *Client) RegisterPatient(ctx context.Context, reg *intake.Registration) (*intake.Patient, error) {
	var dto patientDTO
	err := c.do(ctx, call{
		op:     "register patient",
		method: http.MethodPost,
		path:   "/api/patients/register",
		body:   reg,
		result: &dto,
	})
	if err != nil {
		return nil, err
	}
	p := dto.toDomain()
	if p.Name == "" {
		p.Name, p.Age, p.IDNumber, p.Phone = reg.Name, reg.Age, reg.IDNumber, reg.Phone
	}
	return p, nil
}

// CreateConsultation refers a triaged patient to a department.
func (c *Client) CreateConsultation(ctx context.Context, cons *intake.Consultation) error {
	return c.do(ctx, call{
		op:       "create consultation",
		method:   http.MethodPost,
		path:     "/api/consultations/create",
		body:     cons,
		resource: "patient",
		id:       cons.PatientID,
	})
}
