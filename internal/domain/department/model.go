package department

import "github.com/ehr/patientflow/internal/domain/visit"

// LabReferral asks the laboratory to run tests for a visit.
type LabReferral struct {
	PatientID      string   `json:"patientId"`
	Department     string   `json:"department"`
	TestsRequested []string `json:"testsRequested"`
}

// Admission places a patient in a ward bed.
type Admission struct {
	PatientID  string `json:"patientId"`
	WardID     string `json:"wardId"`
	BedID      string `json:"bedId"`
	Department string `json:"department"`
	AdmittedBy string `json:"admittedBy"`
}

// Prescription sends a visit's medication list to the pharmacy.
type Prescription struct {
	PatientID    string             `json:"patientId"`
	Department   string             `json:"department"`
	PrescribedBy string             `json:"prescribedBy"`
	Medications  []visit.Medication `json:"medications"`
}
