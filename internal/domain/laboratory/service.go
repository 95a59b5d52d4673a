package laboratory

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/ehr/patientflow/internal/domain/labtemplate"
	"github.com/ehr/patientflow/internal/domain/visit"
	"github.com/ehr/patientflow/internal/platform/apperr"
	"github.com/ehr/patientflow/internal/platform/session"
)

// Backend is the part of the hospital backend the laboratory screen uses.
type Backend interface {
	PendingReferrals(ctx context.Context) ([]*Referral, error)
	RecordLabPayment(ctx context.Context, patientID, dept string) error
	SubmitLabResults(ctx context.Context, sub *Submission) error
	DeleteLabReferral(ctx context.Context, id string) error
	LabResults(ctx context.Context, patientID, dept string) (labtemplate.StructuredResult, error)
	ListDepartmentVisits(ctx context.Context, dept string) ([]*visit.Visit, error)
	UpdateVisitStatus(ctx context.Context, visitID string, status visit.Status) error
}

type Service struct {
	backend  Backend
	registry *labtemplate.Registry
	history  *visit.HistoryService
	logger   zerolog.Logger
}

func NewService(b Backend, reg *labtemplate.Registry, history *visit.HistoryService, logger zerolog.Logger) *Service {
	return &Service{backend: b, registry: reg, history: history, logger: logger}
}

// Referrals lists the laboratory queue.
func (s *Service) Referrals(ctx context.Context) ([]*Referral, error) {
	return s.backend.PendingReferrals(ctx)
}

// Referral finds one pending referral.
func (s *Service) Referral(ctx context.Context, id string) (*Referral, error) {
	refs, err := s.backend.PendingReferrals(ctx)
	if err != nil {
		return nil, err
	}
	for _, r := range refs {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, apperr.NotFound("referral", id)
}

// EntryForm is the result entry screen for a referral. Sections are only
// present once the gate is open; unknown tests are always reported.
type EntryForm struct {
	Referral *Referral            `json:"referral"`
	Gate     labtemplate.Gate     `json:"gate"`
	Form     labtemplate.FormView `json:"form"`
}

func (s *Service) Form(ctx context.Context, id string) (*EntryForm, error) {
	ref, err := s.Referral(ctx, id)
	if err != nil {
		return nil, err
	}
	form := s.registry.BuildForm(ref.TestsRequested)
	view := form.View()
	gate := ref.Gate()
	if !gate.Open() {
		view.Sections = []labtemplate.SectionView{}
	}
	return &EntryForm{Referral: ref, Gate: gate, Form: view}, nil
}

// ConfirmPayment records payment for the referral and opens its gate. A
// referral that is already paid is returned unchanged.
func (s *Service) ConfirmPayment(ctx context.Context, id string) (*Referral, error) {
	ref, err := s.Referral(ctx, id)
	if err != nil {
		return nil, err
	}
	if ref.Gate().Open() {
		return ref, nil
	}
	if err := s.backend.RecordLabPayment(ctx, ref.PatientID, ref.Department); err != nil {
		return nil, err
	}
	ref.PaymentStatus = PaymentPaid
	s.logger.Info().Str("referral_id", ref.ID).Str("department", ref.Department).Msg("lab payment confirmed")
	return ref, nil
}

// SubmitResultsByID loads the referral and submits entries for it.
func (s *Service) SubmitResultsByID(ctx context.Context, id string, entries labtemplate.ResultEntry) (*Submission, error) {
	ref, err := s.Referral(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.SubmitResults(ctx, ref, entries)
}

// SubmitResults validates entries against the referral's templates and
// posts the structured result. Nothing is sent while the referral is
// unpaid or any field is missing or invalid.
func (s *Service) SubmitResults(ctx context.Context, ref *Referral, entries labtemplate.ResultEntry) (*Submission, error) {
	if !ref.Gate().Open() {
		return nil, apperr.Validation("payment has not been confirmed for this referral")
	}
	form := s.registry.BuildForm(ref.TestsRequested)
	result, err := form.Result(entries)
	if err != nil {
		return nil, err
	}

	v, err := s.waitingVisit(ctx, ref)
	if err != nil {
		return nil, err
	}
	var from visit.Status
	if v != nil {
		from = v.Status
		if err := v.RecordLabResults(result); err != nil {
			return nil, err
		}
	}

	sub := &Submission{PatientID: ref.PatientID, Department: ref.Department, Results: result}
	if err := s.backend.SubmitLabResults(ctx, sub); err != nil {
		return nil, err
	}
	s.logger.Info().
		Str("referral_id", ref.ID).
		Strs("tests", result.Tests()).
		Msg("lab results submitted")

	if v != nil {
		if err := s.backend.UpdateVisitStatus(ctx, v.ID, v.Status); err != nil {
			s.logger.Error().Err(err).Str("visit_id", v.ID).Msg("status update failed after results were saved")
			return nil, apperr.Partial("Lab results", err)
		}
		if err := s.history.RecordStatusChange(ctx, v, from, visit.ActionRecordLabResults, actor(ctx)); err != nil {
			s.logger.Error().Err(err).Str("visit_id", v.ID).Msg("failed to record status change")
		}
	}
	return sub, nil
}

// waitingVisit finds the department visit waiting for this referral's
// results. A referral without one is still accepted; the backend owns the
// visit.
func (s *Service) waitingVisit(ctx context.Context, ref *Referral) (*visit.Visit, error) {
	visits, err := s.backend.ListDepartmentVisits(ctx, ref.Department)
	if apperr.KindOf(err) == apperr.KindNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	for _, v := range visits {
		if v.PatientID == ref.PatientID && v.Status == visit.StatusWaitingLabResults {
			return v, nil
		}
	}
	s.logger.Warn().Str("referral_id", ref.ID).Msg("no visit waiting for lab results")
	return nil, nil
}

// Delete removes a referral from the queue.
func (s *Service) Delete(ctx context.Context, id string) error {
	if id == "" {
		return apperr.Validation("referral id is required")
	}
	if err := s.backend.DeleteLabReferral(ctx, id); err != nil {
		return err
	}
	s.logger.Info().Str("referral_id", id).Msg("lab referral deleted")
	return nil
}

// Templates returns the catalogue of test templates.
func (s *Service) Templates() []labtemplate.TemplateView {
	tpls := s.registry.Templates()
	out := make([]labtemplate.TemplateView, 0, len(tpls))
	for _, t := range tpls {
		out = append(out, t.View())
	}
	return out
}

// Template resolves one template by name.
func (s *Service) Template(name string) (labtemplate.TemplateView, error) {
	t, err := s.registry.Resolve(name)
	if err != nil {
		return labtemplate.TemplateView{}, err
	}
	return t.View(), nil
}

func actor(ctx context.Context) string {
	if sess, ok := session.FromContext(ctx); ok {
		return sess.Actor()
	}
	return "unknown"
}
