package backend

import (
	"context"
	"net/http"

	"github.com/ehr/patientflow/internal/domain/department"
	"github.com/ehr/patientflow/internal/domain/labtemplate"
	"github.com/ehr/patientflow/internal/domain/visit"
	"github.com/ehr/patientflow/internal/platform/apperr"
)

// ListDepartmentVisits returns every visit of a department, complete ones
// included.
func (c *Client) ListDepartmentVisits(ctx context.Context, dept string) ([]*visit.Visit, error) {
	var dtos []visitDTO
	err := c.do(ctx, call{
		op:       "list department visits",
		method:   http.MethodGet,
		path:     "/api/departments/{name}/list",
		params:   map[string]string{"name": dept},
		result:   &dtos,
		resource: "department",
		id:       dept,
	})
	if err != nil {
		return nil, err
	}

	visits := make([]*visit.Visit, 0, len(dtos))
	for i := range dtos {
		v, err := dtos[i].toDomain()
		if err != nil {
			return nil, &apperr.BackendError{Op: "list department visits", Err: err}
		}
		visits = append(visits, v)
	}
	return visits, nil
}

// UpdateVisitStatus stores a new status on the visit.
func (c *Client) UpdateVisitStatus(ctx context.Context, visitID string, status visit.Status) error {
	return c.do(ctx, call{
		op:       "update visit status",
		method:   http.MethodPut,
		path:     "/api/departments/{id}/status",
		params:   map[string]string{"id": visitID},
		body:     map[string]string{"status": status.String()},
		resource: "visit",
		id:       visitID,
	})
}

// LabResults fetches the structured results recorded for a patient in a
// department.
func (c *Client) LabResults(ctx context.Context, patientID, dept string) (labtemplate.StructuredResult, error) {
	var raw map[string]map[string]interface{}
	err := c.do(ctx, call{
		op:       "get lab results",
		method:   http.MethodGet,
		path:     "/api/laboratory-referrals/results/{patientId}",
		params:   map[string]string{"patientId": patientID},
		query:    map[string]string{"department": dept},
		result:   &raw,
		resource: "lab results",
		id:       patientID,
	})
	if err != nil {
		return nil, err
	}
	res := structuredResult(raw)
	if res == nil {
		res = labtemplate.StructuredResult{}
	}
	return res, nil
}

// CreateLabReferral sends a visit to the laboratory.
func (c *Client) CreateLabReferral(ctx context.Context, ref *department.LabReferral) error {
	return c.do(ctx, call{
		op:       "create lab referral",
		method:   http.MethodPost,
		path:     "/api/laboratory-referrals/referrals",
		body:     ref,
		resource: "patient",
		id:       ref.PatientID,
	})
}

// CreateAdmission reserves a bed for the patient.
func (c *Client) CreateAdmission(ctx context.Context, adm *department.Admission) error {
	return c.do(ctx, call{
		op:       "create admission",
		method:   http.MethodPost,
		path:     "/api/admissions",
		body:     adm,
		resource: "bed",
		id:       adm.BedID,
	})
}

// CloseAdmission releases the bed of an admitted patient who is being
// prescribed out.
func (c *Client) CloseAdmission(ctx context.Context, patientID string) error {
	return c.do(ctx, call{
		op:       "close admission",
		method:   http.MethodPut,
		path:     "/api/admissions/{patientId}/discharge",
		params:   map[string]string{"patientId": patientID},
		resource: "admission",
		id:       patientID,
	})
}

// DischargeFromWard releases the patient's bed and returns the visit to
// the department.
func (c *Client) DischargeFromWard(ctx context.Context, patientID string) error {
	return c.do(ctx, call{
		op:       "ward discharge",
		method:   http.MethodPut,
		path:     "/api/discharge/{patientId}",
		params:   map[string]string{"patientId": patientID},
		resource: "admission",
		id:       patientID,
	})
}

// CreatePrescription sends a prescription to the pharmacy queue.
func (c *Client) CreatePrescription(ctx context.Context, p *department.Prescription) error {
	return c.do(ctx, call{
		op:       "create prescription",
		method:   http.MethodPost,
		path:     "/api/prescriptions/create",
		body:     p,
		resource: "patient",
		id:       p.PatientID,
	})
}

// ListWards returns every ward.
func (c *Client) ListWards(ctx context.Context) ([]visit.Ward, error) {
	var dtos []wardDTO
	if err := c.do(ctx, call{op: "list wards", method: http.MethodGet, path: "/api/wards", result: &dtos}); err != nil {
		return nil, err
	}
	wards := make([]visit.Ward, 0, len(dtos))
	for _, d := range dtos {
		wards = append(wards, visit.Ward{ID: d.ID, Name: d.Name})
	}
	return wards, nil
}

// ListBeds returns the beds of a ward in backend order.
func (c *Client) ListBeds(ctx context.Context, wardID string) ([]visit.Bed, error) {
	var dtos []bedDTO
	err := c.do(ctx, call{
		op:       "list beds",
		method:   http.MethodGet,
		path:     "/api/wards/{id}/beds",
		params:   map[string]string{"id": wardID},
		result:   &dtos,
		resource: "ward",
		id:       wardID,
	})
	if err != nil {
		return nil, err
	}
	beds := make([]visit.Bed, 0, len(dtos))
	for i := range dtos {
		beds = append(beds, dtos[i].toDomain(wardID))
	}
	return beds, nil
}
