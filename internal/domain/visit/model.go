package visit

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ehr/patientflow/internal/domain/labtemplate"
)

// Status is the lifecycle position of a visit.
type Status int

const (
	StatusPending Status = iota + 1
	StatusWaitingLabResults
	StatusLabResultsReady
	StatusAdmitted
	StatusComplete
)

// Statuses lists every status in rank order.
var Statuses = []Status{
	StatusPending,
	StatusWaitingLabResults,
	StatusLabResultsReady,
	StatusAdmitted,
	StatusComplete,
}

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusWaitingLabResults:
		return "waiting_lab_results"
	case StatusLabResultsReady:
		return "lab_results_ready"
	case StatusAdmitted:
		return "admitted"
	case StatusComplete:
		return "complete"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// ParseStatus maps the backend's status string onto a Status.
func ParseStatus(s string) (Status, error) {
	for _, st := range Statuses {
		if st.String() == s {
			return st, nil
		}
	}
	return 0, fmt.Errorf("unknown visit status %q", s)
}

func (s Status) Valid() bool {
	return s >= StatusPending && s <= StatusComplete
}

// Rank orders statuses along the nominal flow.
func (s Status) Rank() int { return int(s) }

func (s Status) IsTerminal() bool { return s == StatusComplete }

func (s Status) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("marshal visit status: invalid value %d", int(s))
	}
	return []byte(s.String()), nil
}

func (s *Status) UnmarshalText(b []byte) error {
	st, err := ParseStatus(string(b))
	if err != nil {
		return err
	}
	*s = st
	return nil
}

// WardAssignment records the bed an admitted patient occupies.
type WardAssignment struct {
	WardID string `json:"wardId"`
	BedID  string `json:"bedId"`
}

// LabReferral records the tests a visit was referred for.
type LabReferral struct {
	Tests []string `json:"tests"`
}

// Visit is one patient's active episode in a department.
type Visit struct {
	ID             string                       `json:"id"`
	PatientID      string                       `json:"patientId"`
	PatientName    string                       `json:"patientName"`
	IDNumber       string                       `json:"idNumber,omitempty"`
	Department     string                       `json:"department"`
	Status         Status                       `json:"status"`
	LabResults     labtemplate.StructuredResult `json:"labResults,omitempty"`
	WardAssignment *WardAssignment              `json:"wardAssignment,omitempty"`
	LabReferral    *LabReferral                 `json:"labReferral,omitempty"`
}

// Ward is an admission ward.
type Ward struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Bed is a bed within a ward.
type Bed struct {
	ID         string `json:"id"`
	WardID     string `json:"wardId,omitempty"`
	Number     string `json:"bedNumber"`
	IsOccupied bool   `json:"isOccupied"`
}

// Medication is one line of a prescription.
type Medication struct {
	MedicineID string `json:"medicineId,omitempty"`
	Name       string `json:"name"`
	Form       string `json:"form,omitempty"`
	Strength   string `json:"strength,omitempty"`
	Quantity   int    `json:"quantity,omitempty"`
}

// StatusChange is one accepted transition of a visit.
type StatusChange struct {
	ID         uuid.UUID `json:"id"`
	VisitID    string    `json:"visitId"`
	PatientID  string    `json:"patientId,omitempty"`
	FromStatus Status    `json:"fromStatus"`
	ToStatus   Status    `json:"toStatus"`
	Action     Action    `json:"action"`
	ChangedBy  string    `json:"changedBy"`
	ChangedAt  time.Time `json:"changedAt"`
}
