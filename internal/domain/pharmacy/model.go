package pharmacy

import "time"

// Medicine is an entry of the pharmacy catalogue.
type Medicine struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Form     string `json:"form,omitempty"`
	Strength string `json:"strength,omitempty"`
}

// PrescriptionPatient is the patient summary embedded in a prescription.
type PrescriptionPatient struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Phone string `json:"phoneNumber,omitempty"`
}

// PrescribedMedicine is one medicine line of a prescription.
type PrescribedMedicine struct {
	Name     string `json:"name"`
	Form     string `json:"form,omitempty"`
	Strength string `json:"strength,omitempty"`
	Quantity int    `json:"quantity,omitempty"`
}

// Prescription is a department prescription waiting at the pharmacy.
type Prescription struct {
	ID           string               `json:"id"`
	Patient      PrescriptionPatient  `json:"patient"`
	Department   string               `json:"department"`
	PrescribedBy string               `json:"prescribedBy,omitempty"`
	Medications  []PrescribedMedicine `json:"medications"`
	CreatedAt    time.Time            `json:"createdAt"`
}

// FulfilledMedicine records whether one medicine was dispensed.
type FulfilledMedicine struct {
	Name      string `json:"name"`
	Available bool   `json:"available"`
}

// Fulfillment marks a prescription as handled by the pharmacy.
type Fulfillment struct {
	PrescriptionID string              `json:"prescriptionId"`
	Medicines      []FulfilledMedicine `json:"fulfilledMeds"`
}

// Discharge releases the patient and lists medicines to buy elsewhere.
type Discharge struct {
	PatientID       string   `json:"patientId"`
	PatientName     string   `json:"patientName"`
	PhoneNumber     string   `json:"phoneNumber,omitempty"`
	UnavailableMeds []string `json:"unavailableMeds"`
}
