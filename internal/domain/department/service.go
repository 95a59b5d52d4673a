package department

import (
	"context"
	"sort"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/ehr/patientflow/internal/domain/labtemplate"
	"github.com/ehr/patientflow/internal/domain/visit"
	"github.com/ehr/patientflow/internal/platform/apperr"
	"github.com/ehr/patientflow/internal/platform/session"
)

// Backend is the part of the hospital backend the department screen uses.
type Backend interface {
	ListDepartmentVisits(ctx context.Context, dept string) ([]*visit.Visit, error)
	UpdateVisitStatus(ctx context.Context, visitID string, status visit.Status) error
	LabResults(ctx context.Context, patientID, dept string) (labtemplate.StructuredResult, error)
	CreateLabReferral(ctx context.Context, ref *LabReferral) error
	CreateAdmission(ctx context.Context, adm *Admission) error
	CloseAdmission(ctx context.Context, patientID string) error
	DischargeFromWard(ctx context.Context, patientID string) error
	CreatePrescription(ctx context.Context, p *Prescription) error
	ListWards(ctx context.Context) ([]visit.Ward, error)
	ListBeds(ctx context.Context, wardID string) ([]visit.Bed, error)
}

type Service struct {
	backend  Backend
	history  *visit.HistoryService
	registry *labtemplate.Registry
	logger   zerolog.Logger
}

func NewService(b Backend, history *visit.HistoryService, reg *labtemplate.Registry, logger zerolog.Logger) *Service {
	return &Service{backend: b, history: history, registry: reg, logger: logger}
}

// ListFilter narrows the department queue.
type ListFilter struct {
	// Query matches the patient name or id number, case-insensitively.
	Query string
	// LabReady keeps only visits whose lab results came back.
	LabReady bool
}

// ListVisits returns the department's active visits. Complete visits are
// dropped and visits without a department are attributed to dept.
func (s *Service) ListVisits(ctx context.Context, dept string, f ListFilter) ([]*visit.Visit, error) {
	all, err := s.backend.ListDepartmentVisits(ctx, dept)
	if err != nil {
		return nil, err
	}

	q := strings.ToLower(strings.TrimSpace(f.Query))
	out := make([]*visit.Visit, 0, len(all))
	for _, v := range all {
		if v.Status.IsTerminal() {
			continue
		}
		if f.LabReady && v.Status != visit.StatusLabResultsReady {
			continue
		}
		if q != "" && !matches(v, q) {
			continue
		}
		if v.Department == "" {
			v.Department = dept
		}
		out = append(out, v)
	}
	return out, nil
}

func matches(v *visit.Visit, q string) bool {
	return strings.Contains(strings.ToLower(v.PatientName), q) ||
		strings.Contains(strings.ToLower(v.IDNumber), q)
}

// find re-reads the visit from the backend.
func (s *Service) find(ctx context.Context, dept, id string) (*visit.Visit, error) {
	all, err := s.backend.ListDepartmentVisits(ctx, dept)
	if err != nil {
		return nil, err
	}
	for _, v := range all {
		if v.ID == id {
			if v.Department == "" {
				v.Department = dept
			}
			return v, nil
		}
	}
	return nil, apperr.NotFound("visit", id)
}

// Visit returns one visit with its lab results attached when the visit has
// reached lab_results_ready. Missing results are shown as empty.
func (s *Service) Visit(ctx context.Context, dept, id string) (*visit.Visit, error) {
	v, err := s.find(ctx, dept, id)
	if err != nil {
		return nil, err
	}
	if v.Status.Rank() < visit.StatusLabResultsReady.Rank() || len(v.LabResults) > 0 {
		return v, nil
	}

	res, err := s.backend.LabResults(ctx, v.PatientID, v.Department)
	switch {
	case apperr.KindOf(err) == apperr.KindNotFound:
		res = labtemplate.StructuredResult{}
	case err != nil:
		return nil, err
	}
	if err := v.AttachLabResults(res); err != nil {
		return nil, err
	}
	return v, nil
}

// ReferToLab sends the visit to the laboratory for tests.
func (s *Service) ReferToLab(ctx context.Context, dept, id string, tests []string) (*visit.Visit, error) {
	v, err := s.find(ctx, dept, id)
	if err != nil {
		return nil, err
	}
	from := v.Status
	if err := v.ReferToLab(tests, s.registry); err != nil {
		return nil, err
	}

	ref := &LabReferral{PatientID: v.PatientID, Department: dept, TestsRequested: v.LabReferral.Tests}
	if err := s.backend.CreateLabReferral(ctx, ref); err != nil {
		return nil, err
	}
	if err := s.commit(ctx, v, from, visit.ActionReferToLab, "Lab referral"); err != nil {
		return nil, err
	}
	return v, nil
}

// Admit places the patient in a ward bed. The bed is re-read from the
// backend and must be free.
func (s *Service) Admit(ctx context.Context, dept, id, wardID, bedID string) (*visit.Visit, error) {
	if wardID == "" || bedID == "" {
		return nil, apperr.Validation("select a ward and a bed")
	}
	v, err := s.find(ctx, dept, id)
	if err != nil {
		return nil, err
	}
	beds, err := s.backend.ListBeds(ctx, wardID)
	if err != nil {
		return nil, err
	}
	bed, ok := findBed(beds, bedID)
	if !ok {
		return nil, apperr.NotFound("bed", bedID)
	}

	from := v.Status
	if err := v.Admit(wardID, bed); err != nil {
		return nil, err
	}
	adm := &Admission{
		PatientID:  v.PatientID,
		WardID:     wardID,
		BedID:      bedID,
		Department: dept,
		AdmittedBy: actor(ctx),
	}
	if err := s.backend.CreateAdmission(ctx, adm); err != nil {
		return nil, err
	}
	if err := s.commit(ctx, v, from, visit.ActionAdmit, "Admission"); err != nil {
		return nil, err
	}
	return v, nil
}

func findBed(beds []visit.Bed, id string) (visit.Bed, bool) {
	for _, b := range beds {
		if b.ID == id {
			return b, true
		}
	}
	return visit.Bed{}, false
}

// DischargeFromWard releases the patient's bed. An admitted visit goes back
// to the department queue as lab_results_ready.
func (s *Service) DischargeFromWard(ctx context.Context, dept, id string) (*visit.Visit, error) {
	v, err := s.find(ctx, dept, id)
	if err != nil {
		return nil, err
	}
	from := v.Status
	if err := v.DischargeFromWard(); err != nil {
		return nil, err
	}
	if err := s.backend.DischargeFromWard(ctx, v.PatientID); err != nil {
		return nil, err
	}
	if v.Status == from {
		s.logger.Info().Str("visit_id", v.ID).Str("status", v.Status.String()).Msg("bed released without status change")
		return v, nil
	}
	if err := s.commit(ctx, v, from, visit.ActionDischargeFromWard, "Ward discharge"); err != nil {
		return nil, err
	}
	return v, nil
}

// Prescribe sends the prescription to the pharmacy and closes the visit.
// An admitted patient's admission is closed as well.
func (s *Service) Prescribe(ctx context.Context, dept, id string, meds []visit.Medication) (*visit.Visit, error) {
	v, err := s.find(ctx, dept, id)
	if err != nil {
		return nil, err
	}
	from := v.Status
	wasAdmitted, err := v.Prescribe(meds)
	if err != nil {
		return nil, err
	}

	p := &Prescription{
		PatientID:    v.PatientID,
		Department:   dept,
		PrescribedBy: actor(ctx),
		Medications:  meds,
	}
	if err := s.backend.CreatePrescription(ctx, p); err != nil {
		return nil, err
	}
	if wasAdmitted {
		if err := s.backend.CloseAdmission(ctx, v.PatientID); err != nil {
			return nil, apperr.Partial("Prescription", err)
		}
	}
	if err := s.commit(ctx, v, from, visit.ActionPrescribe, "Prescription"); err != nil {
		return nil, err
	}
	return v, nil
}

// Complete closes a visit whose lab results were reviewed.
func (s *Service) Complete(ctx context.Context, dept, id string) (*visit.Visit, error) {
	v, err := s.find(ctx, dept, id)
	if err != nil {
		return nil, err
	}
	from := v.Status
	if err := v.Complete(); err != nil {
		return nil, err
	}
	if err := s.commit(ctx, v, from, visit.ActionComplete, ""); err != nil {
		return nil, err
	}
	return v, nil
}

// commit stores the new status on the backend and records the change.
// saved names the write that already went through, if any; a failed status
// update after it is reported as partial. A failure to write history does
// not undo the accepted transition.
func (s *Service) commit(ctx context.Context, v *visit.Visit, from visit.Status, action visit.Action, saved string) error {
	if err := s.backend.UpdateVisitStatus(ctx, v.ID, v.Status); err != nil {
		if saved != "" {
			s.logger.Error().Err(err).Str("visit_id", v.ID).Str("saved", saved).Msg("status update failed after write")
			return apperr.Partial(saved, err)
		}
		return err
	}
	if err := s.history.RecordStatusChange(ctx, v, from, action, actor(ctx)); err != nil {
		s.logger.Error().Err(err).Str("visit_id", v.ID).Msg("failed to record status change")
	}
	return nil
}

// Wards lists every ward.
func (s *Service) Wards(ctx context.Context) ([]visit.Ward, error) {
	return s.backend.ListWards(ctx)
}

// Beds lists the beds of a ward ordered by bed number.
func (s *Service) Beds(ctx context.Context, wardID string) ([]visit.Bed, error) {
	beds, err := s.backend.ListBeds(ctx, wardID)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(beds, func(i, j int) bool {
		return bedLess(beds[i].Number, beds[j].Number)
	})
	return beds, nil
}

// bedLess orders numeric bed numbers numerically and anything else
// lexically after them.
func bedLess(a, b string) bool {
	na, errA := strconv.Atoi(a)
	nb, errB := strconv.Atoi(b)
	switch {
	case errA == nil && errB == nil:
		return na < nb
	case errA == nil:
		return true
	case errB == nil:
		return false
	default:
		return a < b
	}
}

// LabTests lists the names of the tests a visit may be referred for.
func (s *Service) LabTests(q string) []string {
	return s.registry.Search(q)
}

func actor(ctx context.Context) string {
	if sess, ok := session.FromContext(ctx); ok {
		return sess.Actor()
	}
	return "unknown"
}
