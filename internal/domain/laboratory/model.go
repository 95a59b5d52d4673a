package laboratory

import (
	"fmt"
	"strings"
	"time"

	"github.com/ehr/patientflow/internal/domain/labtemplate"
)

// PaymentStatus is the payment state of a lab referral. It is independent
// of the visit status.
type PaymentStatus int

const (
	PaymentPending PaymentStatus = iota + 1
	PaymentPaid
)

func (p PaymentStatus) String() string {
	switch p {
	case PaymentPending:
		return "pending"
	case PaymentPaid:
		return "paid"
	default:
		return fmt.Sprintf("PaymentStatus(%d)", int(p))
	}
}

// ParsePaymentStatus maps the backend value onto a PaymentStatus. A missing
// value means payment has not been recorded yet.
func ParsePaymentStatus(s string) (PaymentStatus, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "pending":
		return PaymentPending, nil
	case "paid":
		return PaymentPaid, nil
	default:
		return 0, fmt.Errorf("unknown payment status %q", s)
	}
}

func (p PaymentStatus) MarshalText() ([]byte, error) {
	if p != PaymentPending && p != PaymentPaid {
		return nil, fmt.Errorf("marshal payment status: invalid value %d", int(p))
	}
	return []byte(p.String()), nil
}

// Referral is a pending lab request for one patient and department.
type Referral struct {
	ID             string        `json:"id"`
	PatientID      string        `json:"patientId"`
	PatientName    string        `json:"patientName"`
	IDNumber       string        `json:"idNumber,omitempty"`
	Department     string        `json:"department"`
	TestsRequested []string      `json:"testsRequested"`
	PaymentStatus  PaymentStatus `json:"paymentStatus"`
	ReferralTime   time.Time     `json:"referralTime"`
}

// Gate is the result entry gate for the referral.
func (r *Referral) Gate() labtemplate.Gate {
	return labtemplate.GateFor(r.PaymentStatus == PaymentPaid)
}

// Submission is the structured result posted to the backend.
type Submission struct {
	PatientID  string                       `json:"patientId"`
	Department string                       `json:"department"`
	Results    labtemplate.StructuredResult `json:"results"`
}
