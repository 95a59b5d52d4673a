package backend

import (
	"context"
	"net/http"

	"github.com/ehr/patientflow/internal/domain/pharmacy"
)

// ListMedicines returns the pharmacy catalogue.
func (c *Client) ListMedicines(ctx context.Context) ([]*pharmacy.Medicine, error) {
	var dtos []medicineDTO
	if err := c.do(ctx, call{op: "list medicines", method: http.MethodGet, path: "/api/pharmacy/medicines", result: &dtos}); err != nil {
		return nil, err
	}
	meds := make([]*pharmacy.Medicine, 0, len(dtos))
	for i := range dtos {
		meds = append(meds, dtos[i].toDomain())
	}
	return meds, nil
}

// AddMedicine adds a medicine to the catalogue.
func (c *Client) AddMedicine(ctx context.Context, m *pharmacy.Medicine) (*pharmacy.Medicine, error) {
	var dto medicineDTO
	err := c.do(ctx, call{
		op:     "add medicine",
		method: http.MethodPost,
		path:   "/api/pharmacy/medicines",
		body:   map[string]string{"name": m.Name, "form": m.Form, "strength": m.Strength},
		result: &dto,
	})
	if err != nil {
		return nil, err
	}
	out := dto.toDomain()
	if out.Name == "" {
		out = &pharmacy.Medicine{ID: dto.ID, Name: m.Name, Form: m.Form, Strength: m.Strength}
	}
	return out, nil
}

// PendingPrescriptions lists prescriptions waiting at the pharmacy.
func (c *Client) PendingPrescriptions(ctx context.Context) ([]*pharmacy.Prescription, error) {
	var dtos []prescriptionDTO
	if err := c.do(ctx, call{op: "list pending prescriptions", method: http.MethodGet, path: "/api/pharmacy/pending", result: &dtos}); err != nil {
		return nil, err
	}
	out := make([]*pharmacy.Prescription, 0, len(dtos))
	for i := range dtos {
		out = append(out, dtos[i].toDomain())
	}
	return out, nil
}

// FulfillPrescription records which medicines were dispensed.
func (c *Client) FulfillPrescription(ctx context.Context, f *pharmacy.Fulfillment) error {
	return c.do(ctx, call{
		op:       "fulfill prescription",
		method:   http.MethodPost,
		path:     "/api/pharmacy/fulfill",
		body:     f,
		resource: "prescription",
		id:       f.PrescriptionID,
	})
}

// DischargePatient releases the patient from the pharmacy.
func (c *Client) DischargePatient(ctx context.Context, d *pharmacy.Discharge) error {
	return c.do(ctx, call{
		op:       "pharmacy discharge",
		method:   http.MethodPost,
		path:     "/api/pharmacy/discharge",
		body:     d,
		resource: "patient",
		id:       d.PatientID,
	})
}

// DeletePrescription removes a prescription from the pharmacy queue.
func (c *Client) DeletePrescription(ctx context.Context, id string) error {
	return c.do(ctx, call{
		op:       "delete prescription",
		method:   http.MethodDelete,
		path:     "/api/pharmacy/prescriptions/{id}",
		params:   map[string]string{"id": id},
		resource: "prescription",
		id:       id,
	})
}
