package backend

import (
	"context"
	"net/http"

	"github.com/ehr/patientflow/internal/domain/laboratory"
	"github.com/ehr/patientflow/internal/platform/apperr"
)

// PendingReferrals lists referrals the laboratory has not closed yet.
func (c *Client) PendingReferrals(ctx context.Context) ([]*laboratory.Referral, error) {
	var dtos []referralDTO
	err := c.do(ctx, call{
		op:     "list pending referrals",
		method: http.MethodGet,
		path:   "/api/laboratory-referrals/pending",
		result: &dtos,
	})
	if err != nil {
		return nil, err
	}

	refs := make([]*laboratory.Referral, 0, len(dtos))
	for i := range dtos {
		r, err := dtos[i].toDomain()
		if err != nil {
			return nil, &apperr.BackendError{Op: "list pending referrals", Err: err}
		}
		refs = append(refs, r)
	}
	return refs, nil
}

// RecordLabPayment marks the patient's referral in department as paid.
func (c *Client) RecordLabPayment(ctx context.Context, patientID, dept string) error {
	return c.do(ctx, call{
		op:       "record lab payment",
		method:   http.MethodPost,
		path:     "/api/laboratory-referrals/payments",
		body:     map[string]string{"patientId": patientID, "department": dept},
		resource: "referral",
		id:       patientID,
	})
}

// SubmitLabResults posts structured results for a referral.
func (c *Client) SubmitLabResults(ctx context.Context, sub *laboratory.Submission) error {
	return c.do(ctx, call{
		op:       "submit lab results",
		method:   http.MethodPost,
		path:     "/api/laboratory-referrals/results",
		body:     sub,
		resource: "referral",
		id:       sub.PatientID,
	})
}

// DeleteLabReferral removes a referral from the laboratory queue.
func (c *Client) DeleteLabReferral(ctx context.Context, id string) error {
	return c.do(ctx, call{
		op:       "delete lab referral",
		method:   http.MethodDelete,
		path:     "/api/laboratory-referrals/{id}",
		params:   map[string]string{"id": id},
		resource: "referral",
		id:       id,
	})
}
