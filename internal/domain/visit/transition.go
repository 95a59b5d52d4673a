package visit

import (
	"fmt"
	"strings"

	"github.com/ehr/patientflow/internal/domain/labtemplate"
	"github.com/ehr/patientflow/internal/platform/apperr"
)

// Action names the user operation that drives a transition.
type Action string

const (
	ActionReferToLab        Action = "refer_to_lab"
	ActionRecordLabResults  Action = "record_lab_results"
	ActionAdmit             Action = "admit"
	ActionDischargeFromWard Action = "discharge_from_ward"
	ActionPrescribe         Action = "prescribe"
	ActionComplete          Action = "complete"
)

func (a Action) describe() string {
	return strings.ReplaceAll(string(a), "_", " ")
}

// transitions lists the statuses reachable from each status. Complete is
// terminal.
var transitions = map[Status][]Status{
	StatusPending:           {StatusWaitingLabResults, StatusAdmitted, StatusComplete},
	StatusWaitingLabResults: {StatusLabResultsReady, StatusAdmitted, StatusComplete},
	StatusLabResultsReady:   {StatusAdmitted, StatusComplete},
	StatusAdmitted:          {StatusWaitingLabResults, StatusLabResultsReady, StatusComplete},
	StatusComplete:          {},
}

// InvalidTransitionError is returned when an action is not legal from the
// visit's current status. It is a validation failure, never fatal.
type InvalidTransitionError struct {
	From   Status
	To     Status
	Action Action
}

func (e *InvalidTransitionError) Error() string {
	if e.Action != "" {
		return fmt.Sprintf("cannot %s a visit that is %s", e.Action.describe(), e.From)
	}
	return fmt.Sprintf("invalid transition from %s to %s", e.From, e.To)
}

func (e *InvalidTransitionError) Kind() apperr.Kind { return apperr.KindValidation }

// ValidateTransition checks from -> to against the transition table.
func ValidateTransition(from, to Status) error {
	allowed, ok := transitions[from]
	if !ok {
		return &InvalidTransitionError{From: from, To: to}
	}
	for _, s := range allowed {
		if s == to {
			return nil
		}
	}
	return &InvalidTransitionError{From: from, To: to}
}

// Allowed returns the statuses reachable from s.
func Allowed(s Status) []Status {
	out := make([]Status, len(transitions[s]))
	copy(out, transitions[s])
	return out
}

func (v *Visit) check(action Action, to Status) error {
	if err := ValidateTransition(v.Status, to); err != nil {
		return &InvalidTransitionError{From: v.Status, To: to, Action: action}
	}
	return nil
}

// ReferToLab sends the visit to the laboratory for tests. Every test must
// have a template and none may repeat. Earlier results are dropped. An
// admitted patient keeps the ward assignment while waiting for results.
func (v *Visit) ReferToLab(tests []string, reg *labtemplate.Registry) error {
	if err := v.check(ActionReferToLab, StatusWaitingLabResults); err != nil {
		return err
	}
	tests = labtemplate.NormalizeRequestedTests(tests)
	if len(tests) == 0 {
		return apperr.Validation("select at least one lab test")
	}
	ve := apperr.Validation("lab referral is invalid")
	for _, name := range labtemplate.Duplicates(tests) {
		ve.Add(name, "requested more than once")
	}
	for _, name := range tests {
		if !reg.Has(name) {
			ve.Add(name, "unknown test")
		}
	}
	if ve.HasProblems() {
		return ve
	}

	v.Status = StatusWaitingLabResults
	v.LabReferral = &LabReferral{Tests: tests}
	v.LabResults = nil
	return nil
}

// RecordLabResults attaches submitted results and marks them ready for the
// department.
func (v *Visit) RecordLabResults(result labtemplate.StructuredResult) error {
	if v.Status != StatusWaitingLabResults {
		return &InvalidTransitionError{From: v.Status, To: StatusLabResultsReady, Action: ActionRecordLabResults}
	}
	if len(result) == 0 {
		return apperr.Validation("lab results are empty")
	}
	v.Status = StatusLabResultsReady
	v.LabResults = result
	return nil
}

// AttachLabResults sets results fetched from the backend. Results only
// exist once the visit reached lab_results_ready or later.
func (v *Visit) AttachLabResults(result labtemplate.StructuredResult) error {
	if v.Status.Rank() < StatusLabResultsReady.Rank() {
		return apperr.Validation("visit is %s, lab results are not available yet", v.Status)
	}
	v.LabResults = result
	return nil
}

// Admit places the patient in bed. The bed must belong to the ward and be
// free, unless it is the bed the patient already holds.
func (v *Visit) Admit(wardID string, bed Bed) error {
	if v.Status == StatusAdmitted {
		return &InvalidTransitionError{From: v.Status, To: StatusAdmitted, Action: ActionAdmit}
	}
	if err := v.check(ActionAdmit, StatusAdmitted); err != nil {
		return err
	}
	if wardID == "" || bed.ID == "" {
		return apperr.Validation("select a ward and a bed")
	}
	if bed.WardID != "" && bed.WardID != wardID {
		return apperr.Validation("bed %s does not belong to the selected ward", bed.Number)
	}
	held := v.WardAssignment != nil && v.WardAssignment.WardID == wardID && v.WardAssignment.BedID == bed.ID
	if bed.IsOccupied && !held {
		return apperr.Validation("bed %s is occupied", bed.Number)
	}

	v.Status = StatusAdmitted
	v.WardAssignment = &WardAssignment{WardID: wardID, BedID: bed.ID}
	return nil
}

// HoldsBed reports whether the patient still occupies a bed. A patient
// referred to the laboratory from the ward keeps it until discharged.
func (v *Visit) HoldsBed() bool {
	return v.Status == StatusAdmitted || v.WardAssignment != nil
}

// DischargeFromWard releases the bed. An admitted visit returns to the
// department queue as lab_results_ready; a visit that went back to the
// laboratory from the ward keeps its status.
func (v *Visit) DischargeFromWard() error {
	if v.Status == StatusComplete || !v.HoldsBed() {
		return &InvalidTransitionError{From: v.Status, To: StatusLabResultsReady, Action: ActionDischargeFromWard}
	}
	if v.Status == StatusAdmitted {
		v.Status = StatusLabResultsReady
	}
	v.WardAssignment = nil
	return nil
}

// Prescribe closes the visit with a prescription. It reports whether the
// patient was admitted, in which case the admission must be discharged too.
func (v *Visit) Prescribe(meds []Medication) (wasAdmitted bool, err error) {
	if err := v.check(ActionPrescribe, StatusComplete); err != nil {
		return false, err
	}
	if len(meds) == 0 {
		return false, apperr.Validation("add at least one medicine")
	}
	ve := apperr.Validation("prescription is invalid")
	for i, m := range meds {
		if strings.TrimSpace(m.Name) == "" {
			ve.Add(fmt.Sprintf("medications[%d].name", i), "required")
		}
		if m.Quantity < 0 {
			ve.Add(fmt.Sprintf("medications[%d].quantity", i), "must not be negative")
		}
	}
	if ve.HasProblems() {
		return false, ve
	}

	wasAdmitted = v.HoldsBed()
	v.Status = StatusComplete
	v.WardAssignment = nil
	return wasAdmitted, nil
}

// Complete closes a visit after its lab results were reviewed, without a
// prescription.
func (v *Visit) Complete() error {
	if v.Status != StatusLabResultsReady {
		return &InvalidTransitionError{From: v.Status, To: StatusComplete, Action: ActionComplete}
	}
	v.Status = StatusComplete
	return nil
}
