package backend

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/ehr/patientflow/internal/domain/department"
	"github.com/ehr/patientflow/internal/domain/laboratory"
	"github.com/ehr/patientflow/internal/domain/labtemplate"
	"github.com/ehr/patientflow/internal/domain/pharmacy"
	"github.com/ehr/patientflow/internal/domain/visit"
	"github.com/ehr/patientflow/internal/platform/apperr"
	"github.com/ehr/patientflow/internal/platform/session"
)

type staticAuth struct{}

func (staticAuth) Authenticate(context.Context, string, string) (*session.UpstreamLogin, error) {
	return &session.UpstreamLogin{Token: "upstream-abc", User: session.User{Name: "Dr K", Role: "department", Department: "Surgery"}}, nil
}

// sessionContext returns a context carrying a session whose upstream token
// is "upstream-abc".
func sessionContext(t *testing.T) context.Context {
	t.Helper()
	store := session.NewMemoryRevocationStore(time.Hour)
	t.Cleanup(func() { store.Close() })
	m := session.NewManager(session.Config{SigningKey: []byte("k")}, staticAuth{}, store)
	res, err := m.Login(context.Background(), "k@hosp.test", "pw")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	return session.WithSession(context.Background(), res.Session)
}

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(Config{BaseURL: srv.URL + "/", Timeout: 2 * time.Second}, zerolog.Nop())
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	io.WriteString(w, body)
}

func TestAuthenticate(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/auth" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("Authorization") != "" {
			t.Error("login must not carry a bearer token")
		}
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		if body["email"] != "a@hosp.test" || body["password"] != "pw" {
			writeJSON(w, http.StatusBadRequest, `{"message":"Invalid credentials"}`)
			return
		}
		writeJSON(w, http.StatusOK, `{"token":"t1","user":{"name":"Amina","email":"a@hosp.test","role":"laboratory"}}`)
	})

	login, err := c.Authenticate(context.Background(), "a@hosp.test", "pw")
	if err != nil {
		t.Fatalf("Authenticate() error: %v", err)
	}
	if login.Token != "t1" || login.User.Role != "laboratory" || login.User.Name != "Amina" {
		t.Errorf("unexpected login %+v", login)
	}

	_, err = c.Authenticate(context.Background(), "a@hosp.test", "wrong")
	if apperr.KindOf(err) != apperr.KindUnauthorized {
		t.Errorf("expected unauthorized for bad credentials, got %v", err)
	}
}

func TestClient_ForwardsUpstreamToken(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer upstream-abc" {
			t.Errorf("Authorization = %q", got)
		}
		writeJSON(w, http.StatusOK, `[]`)
	})
	if _, err := c.ListWards(sessionContext(t)); err != nil {
		t.Fatalf("ListWards() error: %v", err)
	}
}

func TestClient_ErrorClassification(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		kind   apperr.Kind
	}{
		{"not found", http.StatusNotFound, `{"message":"no such ward"}`, apperr.KindNotFound},
		{"unauthorized", http.StatusUnauthorized, `{}`, apperr.KindUnauthorized},
		{"forbidden", http.StatusForbidden, `{}`, apperr.KindUnauthorized},
		{"server error", http.StatusInternalServerError, `{"message":"db down"}`, apperr.KindBackend},
		{"conflict", http.StatusConflict, `not json`, apperr.KindBackend},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, tt.status, tt.body)
			})
			_, err := c.ListBeds(context.Background(), "w1")
			if got := apperr.KindOf(err); got != tt.kind {
				t.Errorf("kind = %v, want %v (%v)", got, tt.kind, err)
			}
		})
	}
}

func TestClient_BackendErrorCarriesStatusAndMessage(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusInternalServerError, `{"message":"db down"}`)
	})
	err := c.DeleteLabReferral(context.Background(), "r1")
	var be *apperr.BackendError
	if !errors.As(err, &be) {
		t.Fatalf("expected BackendError, got %v", err)
	}
	if be.Status != http.StatusInternalServerError || be.Err == nil || be.Err.Error() != "db down" {
		t.Errorf("unexpected backend error %+v", be)
	}
}

func TestClient_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	c := New(Config{BaseURL: srv.URL, Timeout: time.Second}, zerolog.Nop())

	err := c.UpdateVisitStatus(context.Background(), "v1", visit.StatusAdmitted)
	var be *apperr.BackendError
	if !errors.As(err, &be) || be.Status != 0 {
		t.Fatalf("expected transport BackendError, got %v", err)
	}
}

func TestListDepartmentVisits(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/departments/Internal Medicine/list" {
			t.Errorf("path = %q", r.URL.Path)
		}
		writeJSON(w, http.StatusOK, `[
			{"_id":"v1","patientId":"p1","name":"Jane","idNumber":12345,"department":"Internal Medicine","status":"pending"},
			{"_id":"v2","patientId":"p2","name":"John","status":"lab_results_ready","labResults":{"Blood Sugar":{"FBS":5.4,"RBS":"7.1"}}},
			{"_id":"v3","patientId":"p3","name":"Ann","status":"admitted","wardId":"w1","bedId":"b2"},
			{"_id":"v4","patientId":"p4","name":"Grace","status":"waiting_lab_results","wardId":"w1","bedId":"b3"},
			{"_id":"v5","patientId":"p5","name":"Paul","status":"complete","wardId":"w1","bedId":"b4"}
		]`)
	})

	visits, err := c.ListDepartmentVisits(context.Background(), "Internal Medicine")
	if err != nil {
		t.Fatalf("ListDepartmentVisits() error: %v", err)
	}
	if len(visits) != 5 {
		t.Fatalf("expected 5 visits, got %d", len(visits))
	}
	if visits[0].IDNumber != "12345" || visits[0].PatientName != "Jane" || visits[0].Status != visit.StatusPending {
		t.Errorf("unexpected first visit %+v", visits[0])
	}
	if visits[1].LabResults["Blood Sugar"]["FBS"] != "5.4" {
		t.Errorf("expected numeric result stringified, got %v", visits[1].LabResults)
	}
	if wa := visits[2].WardAssignment; wa == nil || wa.BedID != "b2" {
		t.Errorf("expected ward assignment, got %+v", wa)
	}
	if wa := visits[3].WardAssignment; wa == nil || wa.BedID != "b3" {
		t.Errorf("expected bed kept while back at the laboratory, got %+v", wa)
	}
	if visits[4].WardAssignment != nil {
		t.Errorf("complete visit must not hold a bed, got %+v", visits[4].WardAssignment)
	}
}

func TestListDepartmentVisits_UnknownStatus(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `[{"_id":"v1","status":"discharged"}]`)
	})
	_, err := c.ListDepartmentVisits(context.Background(), "surgery")
	if apperr.KindOf(err) != apperr.KindBackend {
		t.Errorf("expected backend error, got %v", err)
	}
}

func TestLabResults(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/laboratory-referrals/results/p1" || r.URL.Query().Get("department") != "surgery" {
			t.Errorf("unexpected request %s", r.URL.String())
		}
		writeJSON(w, http.StatusOK, `{"HIV Test":{"Result":"Negative"}}`)
	})
	res, err := c.LabResults(context.Background(), "p1", "surgery")
	if err != nil {
		t.Fatalf("LabResults() error: %v", err)
	}
	if res["HIV Test"]["Result"] != "Negative" {
		t.Errorf("unexpected results %v", res)
	}
}

func TestPendingReferrals(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `[
			{"_id":"r1","patientId":"p1","name":"Jane","department":"surgery","testsRequested":"Malaria Test, HIV Test,","paymentStatus":"paid","referralTime":"2025-03-01T08:30:00.000Z"},
			{"_id":"r2","patientId":"p2","patientName":"John","department":"surgery","testsRequested":["TFT"]}
		]`)
	})
	refs, err := c.PendingReferrals(context.Background())
	if err != nil {
		t.Fatalf("PendingReferrals() error: %v", err)
	}
	if len(refs) != 2 {
		t.Fatalf("expected 2 referrals, got %d", len(refs))
	}
	r1 := refs[0]
	if len(r1.TestsRequested) != 2 || r1.TestsRequested[1] != "HIV Test" {
		t.Errorf("tests = %v", r1.TestsRequested)
	}
	if r1.PaymentStatus != laboratory.PaymentPaid || r1.ReferralTime.IsZero() || r1.PatientName != "Jane" {
		t.Errorf("unexpected referral %+v", r1)
	}
	if refs[1].PaymentStatus != laboratory.PaymentPending || refs[1].Gate() != labtemplate.GateLocked {
		t.Errorf("missing payment status should be pending, got %v", refs[1].PaymentStatus)
	}
}

func TestPendingPrescriptions(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `[
			{"_id":"rx1","patientId":{"_id":"p1","name":"Jane","phoneNumber":"0712"},"department":"surgery","medications":[{"name":"Amoxicillin","quantity":"10"}]},
			{"_id":"rx2","patientId":"p2","department":"general","medications":[]}
		]`)
	})
	rxs, err := c.PendingPrescriptions(context.Background())
	if err != nil {
		t.Fatalf("PendingPrescriptions() error: %v", err)
	}
	if rxs[0].Patient.Name != "Jane" || rxs[0].Patient.Phone != "0712" || rxs[0].Medications[0].Quantity != 10 {
		t.Errorf("unexpected prescription %+v", rxs[0])
	}
	if rxs[1].Patient.ID != "p2" {
		t.Errorf("expected bare patient id, got %+v", rxs[1].Patient)
	}
}

func TestSearchPatient(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/patients/search/123" {
			writeJSON(w, http.StatusOK, `{"_id":"p1","name":"Jane","age":"34","idNumber":"123","phone":"0712"}`)
			return
		}
		writeJSON(w, http.StatusOK, `null`)
	})
	p, err := c.SearchPatient(context.Background(), "123")
	if err != nil {
		t.Fatalf("SearchPatient() error: %v", err)
	}
	if p.ID != "p1" || p.Age != 34 {
		t.Errorf("unexpected patient %+v", p)
	}
	if _, err := c.SearchPatient(context.Background(), "999"); apperr.KindOf(err) != apperr.KindNotFound {
		t.Errorf("expected not found for empty answer, got %v", err)
	}
}

func TestRequestBodies(t *testing.T) {
	var got map[string]interface{}
	var path string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		path = r.Method + " " + r.URL.Path
		got = nil
		json.NewDecoder(r.Body).Decode(&got)
		writeJSON(w, http.StatusOK, `{}`)
	})
	ctx := context.Background()

	c.CreateAdmission(ctx, &department.Admission{PatientID: "p1", WardID: "w1", BedID: "b1", Department: "surgery", AdmittedBy: "Dr K"})
	if path != "POST /api/admissions" || got["bedId"] != "b1" || got["admittedBy"] != "Dr K" {
		t.Errorf("admission: %s %v", path, got)
	}

	c.CreateLabReferral(ctx, &department.LabReferral{PatientID: "p1", Department: "surgery", TestsRequested: []string{"TFT"}})
	if path != "POST /api/laboratory-referrals/referrals" || got["testsRequested"].([]interface{})[0] != "TFT" {
		t.Errorf("referral: %s %v", path, got)
	}

	c.UpdateVisitStatus(ctx, "v1", visit.StatusWaitingLabResults)
	if path != "PUT /api/departments/v1/status" || got["status"] != "waiting_lab_results" {
		t.Errorf("status: %s %v", path, got)
	}

	c.FulfillPrescription(ctx, &pharmacy.Fulfillment{PrescriptionID: "rx1", Medicines: []pharmacy.FulfilledMedicine{{Name: "A", Available: true}}})
	if path != "POST /api/pharmacy/fulfill" || got["prescriptionId"] != "rx1" || got["fulfilledMeds"] == nil {
		t.Errorf("fulfill: %s %v", path, got)
	}

	c.SubmitLabResults(ctx, &laboratory.Submission{PatientID: "p1", Department: "surgery", Results: labtemplate.StructuredResult{"TFT": {"TSH": "2"}}})
	if path != "POST /api/laboratory-referrals/results" || got["results"] == nil {
		t.Errorf("results: %s %v", path, got)
	}

	c.CloseAdmission(ctx, "p1")
	if path != "PUT /api/admissions/p1/discharge" {
		t.Errorf("close admission: %s", path)
	}
	c.DischargeFromWard(ctx, "p1")
	if path != "PUT /api/discharge/p1" {
		t.Errorf("ward discharge: %s", path)
	}
}
