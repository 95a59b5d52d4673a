package backend

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/ehr/patientflow/internal/domain/intake"
	"github.com/ehr/patientflow/internal/domain/laboratory"
	"github.com/ehr/patientflow/internal/domain/labtemplate"
	"github.com/ehr/patientflow/internal/domain/pharmacy"
	"github.com/ehr/patientflow/internal/domain/visit"
)

// flexString accepts a JSON string or number.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("expected string or number, got %s", data)
	}
	*f = flexString(n.String())
	return nil
}

// flexInt accepts a JSON number or a numeric string. A blank string is 0.
type flexInt int

func (f *flexInt) UnmarshalJSON(data []byte) error {
	var s flexString
	if err := s.UnmarshalJSON(data); err != nil {
		return err
	}
	if s == "" {
		*f = 0
		return nil
	}
	n, err := strconv.ParseFloat(string(s), 64)
	if err != nil {
		return fmt.Errorf("expected integer, got %q", string(s))
	}
	*f = flexInt(n)
	return nil
}

// parseTime reads the backend's ISO timestamps; anything else is zero.
func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

type userDTO struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Role       string `json:"role"`
	Department string `json:"department"`
}

type authResponse struct {
	Token string  `json:"token"`
	User  userDTO `json:"user"`
}

type patientDTO struct {
	ID       string     `json:"_id"`
	Name     string     `json:"name"`
	Age      flexInt    `json:"age"`
	IDNumber flexString `json:"idNumber"`
	Phone    flexString `json:"phone"`
}

func (d *patientDTO) toDomain() *intake.Patient {
	return &intake.Patient{
		ID:       d.ID,
		Name:     d.Name,
		Age:      int(d.Age),
		IDNumber: string(d.IDNumber),
		Phone:    string(d.Phone),
	}
}

type visitDTO struct {
	ID         string                            `json:"_id"`
	PatientID  string                            `json:"patientId"`
	Name       string                            `json:"name"`
	IDNumber   flexString                        `json:"idNumber"`
	Department string                            `json:"department"`
	Status     string                            `json:"status"`
	LabResults map[string]map[string]interface{} `json:"labResults"`
	WardID     string                            `json:"wardId"`
	BedID      string                            `json:"bedId"`
}

func (d *visitDTO) toDomain() (*visit.Visit, error) {
	status, err := visit.ParseStatus(d.Status)
	if err != nil {
		return nil, fmt.Errorf("visit %s: %w", d.ID, err)
	}
	v := &visit.Visit{
		ID:          d.ID,
		PatientID:   d.PatientID,
		PatientName: d.Name,
		IDNumber:    string(d.IDNumber),
		Department:  d.Department,
		Status:      status,
	}
	if res := structuredResult(d.LabResults); len(res) > 0 && status.Rank() >= visit.StatusLabResultsReady.Rank() {
		v.LabResults = res
	}
	if status != visit.StatusComplete && d.WardID != "" {
		v.WardAssignment = &visit.WardAssignment{WardID: d.WardID, BedID: d.BedID}
	}
	return v, nil
}

// structuredResult converts decoded result JSON, where values may be
// numbers or booleans, into strings.
func structuredResult(raw map[string]map[string]interface{}) labtemplate.StructuredResult {
	if len(raw) == 0 {
		return nil
	}
	out := make(labtemplate.StructuredResult, len(raw))
	for test, fields := range raw {
		m := make(map[string]string, len(fields))
		for field, value := range fields {
			switch v := value.(type) {
			case nil:
				m[field] = ""
			case string:
				m[field] = v
			default:
				m[field] = fmt.Sprint(v)
			}
		}
		out[test] = m
	}
	return out
}

type wardDTO struct {
	ID   string `json:"_id"`
	Name string `json:"name"`
}

type bedDTO struct {
	ID         string     `json:"_id"`
	Ward       string     `json:"ward"`
	Number     flexString `json:"bedNumber"`
	IsOccupied bool       `json:"isOccupied"`
}

func (d *bedDTO) toDomain(wardID string) visit.Bed {
	b := visit.Bed{ID: d.ID, WardID: d.Ward, Number: string(d.Number), IsOccupied: d.IsOccupied}
	if b.WardID == "" {
		b.WardID = wardID
	}
	return b
}

type referralDTO struct {
	ID             string                     `json:"_id"`
	PatientID      string                     `json:"patientId"`
	Name           string                     `json:"name"`
	PatientName    string                     `json:"patientName"`
	IDNumber       flexString                 `json:"idNumber"`
	Department     string                     `json:"department"`
	TestsRequested labtemplate.RequestedTests `json:"testsRequested"`
	PaymentStatus  string                     `json:"paymentStatus"`
	ReferralTime   string                     `json:"referralTime"`
}

func (d *referralDTO) toDomain() (*laboratory.Referral, error) {
	ps, err := laboratory.ParsePaymentStatus(d.PaymentStatus)
	if err != nil {
		return nil, fmt.Errorf("referral %s: %w", d.ID, err)
	}
	name := d.PatientName
	if name == "" {
		name = d.Name
	}
	tests := []string(d.TestsRequested)
	if tests == nil {
		tests = []string{}
	}
	return &laboratory.Referral{
		ID:             d.ID,
		PatientID:      d.PatientID,
		PatientName:    name,
		IDNumber:       string(d.IDNumber),
		Department:     d.Department,
		TestsRequested: tests,
		PaymentStatus:  ps,
		ReferralTime:   parseTime(d.ReferralTime),
	}, nil
}

type medicineDTO struct {
	ID       string     `json:"_id"`
	Name     string     `json:"name"`
	Form     string     `json:"form"`
	Strength flexString `json:"strength"`
}

func (d *medicineDTO) toDomain() *pharmacy.Medicine {
	return &pharmacy.Medicine{ID: d.ID, Name: d.Name, Form: d.Form, Strength: string(d.Strength)}
}

// prescribedPatient is the prescription's patientId, which the backend
// sends either populated or as a bare id.
type prescribedPatient struct {
	ID          string     `json:"_id"`
	Name        string     `json:"name"`
	PhoneNumber flexString `json:"phoneNumber"`
}

func (p *prescribedPatient) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		return json.Unmarshal(data, &p.ID)
	}
	type plain prescribedPatient
	return json.Unmarshal(data, (*plain)(p))
}

type prescribedMedicineDTO struct {
	Name     string     `json:"name"`
	Form     string     `json:"form"`
	Strength flexString `json:"strength"`
	Quantity flexInt    `json:"quantity"`
}

type prescriptionDTO struct {
	ID           string                  `json:"_id"`
	Patient      prescribedPatient       `json:"patientId"`
	Department   string                  `json:"department"`
	PrescribedBy string                  `json:"prescribedBy"`
	Medications  []prescribedMedicineDTO `json:"medications"`
	CreatedAt    string                  `json:"createdAt"`
}

func (d *prescriptionDTO) toDomain() *pharmacy.Prescription {
	p := &pharmacy.Prescription{
		ID: d.ID,
		Patient: pharmacy.PrescriptionPatient{
			ID:    d.Patient.ID,
			Name:  d.Patient.Name,
			Phone: string(d.Patient.PhoneNumber),
		},
		Department:   d.Department,
		PrescribedBy: d.PrescribedBy,
		Medications:  make([]pharmacy.PrescribedMedicine, 0, len(d.Medications)),
		CreatedAt:    parseTime(d.CreatedAt),
	}
	for _, m := range d.Medications {
		p.Medications = append(p.Medications, pharmacy.PrescribedMedicine{
			Name:     m.Name,
			Form:     m.Form,
			Strength: string(m.Strength),
			Quantity: int(m.Quantity),
		})
	}
	return p
}
