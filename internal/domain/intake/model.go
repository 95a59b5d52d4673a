package intake

// Patient is a registered patient as returned by the hospital backend.
type Patient struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Age      int    `json:"age,omitempty"`
	IDNumber string `json:"idNumber,omitempty"`
	Phone    string `json:"phone,omitempty"`
}

// Registration is a reception check-in of a new patient.
type Registration struct {
	Name     string `json:"name"`
	Age      int    `json:"age,omitempty"`
	IDNumber string `json:"idNumber,omitempty"`
	Phone    string `json:"phone"`
}

// Consultation refers a patient from triage to a department.
type Consultation struct {
	PatientID          string `json:"patientId"`
	Complaints         string `json:"complaints"`
	ReferredDepartment string `json:"referredDepartment"`
}
