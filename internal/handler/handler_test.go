package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Shivanand-hulikatti/medicamp/internal/auth"
	"github.com/Shivanand-hulikatti/medicamp/internal/config"
	"github.com/Shivanand-hulikatti/medicamp/internal/database"
	"github.com/Shivanand-hulikatti/medicamp/internal/handler"
	"github.com/Shivanand-hulikatti/medicamp/internal/model"
	"github.com/Shivanand-hulikatti/medicamp/internal/notify"
	"github.com/Shivanand-hulikatti/medicamp/internal/payment"
	"github.com/Shivanand-hulikatti/medicamp/internal/repository/gormstore"
	"github.com/Shivanand-hulikatti/medicamp/internal/service"
)

type stubGateway struct {
	mu       sync.Mutex
	sessions map[string]payment.SessionStatus
}

func (g *stubGateway) CreateSession(_ context.Context, req payment.SessionRequest) (payment.Session, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	id := fmt.Sprintf("sess_%d", len(g.sessions)+1)
	g.sessions[id] = payment.SessionStatus{Reference: id, AmountMinor: req.AmountMinor, Metadata: req.Metadata}
	return payment.Session{ID: id, URL: "https://pay.example/" + id}, nil
}

func (g *stubGateway) RetrieveSession(_ context.Context, id string) (payment.SessionStatus, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.sessions[id], nil
}

func (g *stubGateway) pay(id, txnID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	st := g.sessions[id]
	st.Paid = true
	st.TransactionID = txnID
	g.sessions[id] = st
}

type testServer struct {
	srv     *httptest.Server
	signer  *auth.JWTVerifier
	gateway *stubGateway
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "api.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	db = db.Session(&gorm.Session{Logger: logger.Default.LogMode(logger.Silent)})
	if err := gormstore.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	store := service.Store{
		Camps:         gormstore.NewCampRepository(db),
		Registrations: gormstore.NewRegistrationRepository(db),
		Settlements:   gormstore.NewSettlementRepository(db),
		Feedback:      gormstore.NewFeedbackRepository(db),
		Organizers:    gormstore.NewOrganizerRepository(db),
		Users:         gormstore.NewUserRepository(db),
	}
	policy := service.Policy{
		Confirmation:    config.PolicyDirect,
		Currency:        "USD",
		SuccessURL:      "https://app.example/success",
		CancelURL:       "https://app.example/cancel",
		UpstreamTimeout: time.Second,
	}
	gw := &stubGateway{sessions: map[string]payment.SessionStatus{}}

	camps := service.NewCampService(store.Camps)
	svc := handler.Services{
		Camps:         camps,
		Registrations: service.NewRegistrationService(camps, store.Registrations),
		Payments:      service.NewPaymentService(camps, store, gw, notify.Log{}, policy),
		Feedback:      service.NewFeedbackService(store.Registrations, store.Feedback),
		Organizers:    service.NewOrganizerService(store.Organizers),
		Participants:  service.NewParticipantService(store.Users),
	}

	signer := auth.NewJWTVerifier("test-secret", "medicamp-test")
	resolver := auth.NewResolver(signer, store.Organizers, time.Second)

	srv := httptest.NewServer(handler.NewRouter(svc, resolver, "http://app.example"))
	t.Cleanup(srv.Close)
	return &testServer{srv: srv, signer: signer, gateway: gw}
}

func (s *testServer) token(t *testing.T, email, role string) string {
	t.Helper()
	tok, err := s.signer.Sign(auth.Identity{UID: email, Email: email, Name: "Test " + role, Role: role},
		jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return tok
}

// do sends a request and decodes a JSON response into out when non-nil.
func (s *testServer) do(t *testing.T, method, path, token string, body any, out any) *http.Response {
	t.Helper()
	var rdr *bytes.Reader
	switch b := body.(type) {
	case nil:
		rdr = bytes.NewReader(nil)
	case string:
		rdr = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		rdr = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, s.srv.URL+path, rdr)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := s.srv.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	if out != nil && resp.Header.Get("Content-Type") == "application/json" {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s %s: %v", method, path, err)
		}
	}
	return resp
}

func wantStatus(t *testing.T, resp *http.Response, want int) {
	t.Helper()
	if resp.StatusCode != want {
		t.Fatalf("%s %s: status = %d, want %d", resp.Request.Method, resp.Request.URL.Path, resp.StatusCode, want)
	}
}

func campPayload(organizerEmail string) map[string]any {
	return map[string]any{
		"campName":               "Dental Check Day",
		"image":                  "https://img.example/dental.png",
		"campFees":               25,
		"dateTime":               time.Now().Add(48 * time.Hour).UTC().Format(time.RFC3339),
		"location":               "Village Clinic",
		"healthcareProfessional": "Dr. Rao",
		"description":            "Free cleaning and consultation",
		"organizerEmail":         organizerEmail,
	}
}

func TestHealthCheck(t *testing.T) {
	s := newTestServer(t)
	var body map[string]string
	resp := s.do(t, http.MethodGet, "/health", "", nil, &body)
	wantStatus(t, resp, http.StatusOK)
	if body["status"] != "ok" {
		t.Errorf("health body = %v", body)
	}
}

func TestPublicAndProtectedRoutes(t *testing.T) {
	s := newTestServer(t)

	wantStatus(t, s.do(t, http.MethodGet, "/camps", "", nil, nil), http.StatusOK)
	wantStatus(t, s.do(t, http.MethodGet, "/camps/top", "", nil, nil), http.StatusOK)
	wantStatus(t, s.do(t, http.MethodGet, "/feedback/approved", "", nil, nil), http.StatusOK)

	var errBody model.ErrorResponse
	resp := s.do(t, http.MethodGet, "/camps/mine", "", nil, &errBody)
	wantStatus(t, resp, http.StatusUnauthorized)
	if errBody.Error == "" {
		t.Error("expected an error message")
	}
	wantStatus(t, s.do(t, http.MethodGet, "/payments/history", "not-a-jwt", nil, nil), http.StatusUnauthorized)
	wantStatus(t, s.do(t, http.MethodPost, "/camps", "", campPayload("org@example.com"), nil), http.StatusUnauthorized)
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(t)
	resp := s.do(t, http.MethodOptions, "/registrations", "", nil, nil)
	wantStatus(t, resp, http.StatusNoContent)
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "http://app.example" {
		t.Errorf("Access-Control-Allow-Origin = %q", got)
	}
}

func TestCampEndpoints(t *testing.T) {
	s := newTestServer(t)
	org := s.token(t, "org@example.com", "organizer")
	pat := s.token(t, "pat@example.com", "participant")

	wantStatus(t, s.do(t, http.MethodPost, "/camps", pat, campPayload("pat@example.com"), nil), http.StatusForbidden)
	wantStatus(t, s.do(t, http.MethodPost, "/camps", org, campPayload("someone@example.com"), nil), http.StatusForbidden)

	incomplete := campPayload("org@example.com")
	delete(incomplete, "location")
	var errBody model.ErrorResponse
	wantStatus(t, s.do(t, http.MethodPost, "/camps", org, incomplete, &errBody), http.StatusBadRequest)
	if !strings.Contains(errBody.Error, "location") {
		t.Errorf("validation message %q does not name the field", errBody.Error)
	}

	var camp model.Camp
	wantStatus(t, s.do(t, http.MethodPost, "/camps", org, campPayload("org@example.com"), &camp), http.StatusCreated)
	if camp.ID == "" || camp.ParticipantCount != 0 {
		t.Fatalf("created camp = %+v", camp)
	}

	var mine []model.Camp
	wantStatus(t, s.do(t, http.MethodGet, "/camps/mine", org, nil, &mine), http.StatusOK)
	if len(mine) != 1 || mine[0].ID != camp.ID {
		t.Errorf("mine = %+v", mine)
	}

	var updated model.Camp
	wantStatus(t, s.do(t, http.MethodPut, "/camps/"+camp.ID, org, map[string]any{"location": "Town Hall"}, &updated), http.StatusOK)
	if updated.Location != "Town Hall" || updated.Name != camp.Name {
		t.Errorf("updated camp = %+v", updated)
	}

	var got model.Camp
	wantStatus(t, s.do(t, http.MethodGet, "/camps/"+camp.ID, pat, nil, &got), http.StatusOK)
	if got.Location != "Town Hall" {
		t.Errorf("get camp = %+v", got)
	}
	wantStatus(t, s.do(t, http.MethodGet, "/camps/missing", pat, nil, nil), http.StatusNotFound)

	wantStatus(t, s.do(t, http.MethodDelete, "/camps/"+camp.ID, s.token(t, "rival@example.com", "organizer"), nil, nil), http.StatusForbidden)
	wantStatus(t, s.do(t, http.MethodDelete, "/camps/"+camp.ID, org, nil, nil), http.StatusNoContent)
	wantStatus(t, s.do(t, http.MethodGet, "/camps/"+camp.ID, pat, nil, nil), http.StatusNotFound)
}

func TestRejectsUnknownFields(t *testing.T) {
	s := newTestServer(t)
	org := s.token(t, "org@example.com", "organizer")
	body := campPayload("org@example.com")
	body["participantCount"] = 99
	var errBody model.ErrorResponse
	wantStatus(t, s.do(t, http.MethodPost, "/camps", org, body, &errBody), http.StatusBadRequest)
	if !strings.HasPrefix(errBody.Error, "invalid request body") {
		t.Errorf("error = %q", errBody.Error)
	}
	wantStatus(t, s.do(t, http.MethodPost, "/camps", org, "{not json", nil), http.StatusBadRequest)
}

func TestRegistrationAndPaymentFlow(t *testing.T) {
	s := newTestServer(t)
	org := s.token(t, "org@example.com", "organizer")
	pat := s.token(t, "pat@example.com", "participant")

	var camp model.Camp
	wantStatus(t, s.do(t, http.MethodPost, "/camps", org, campPayload("org@example.com"), &camp), http.StatusCreated)

	regBody := map[string]any{
		"campId":           camp.ID,
		"participantName":  "Pat",
		"participantEmail": "Pat@Example.com",
		"age":              40,
		"phone":            "555-0100",
		"gender":           "male",
		"emergencyContact": "555-0199",
	}
	var reg model.Registration
	wantStatus(t, s.do(t, http.MethodPost, "/registrations", pat, regBody, &reg), http.StatusCreated)
	if reg.CampFee != 25 || reg.OrganizerEmail != "org@example.com" || reg.PaymentStatus != model.PaymentPending {
		t.Fatalf("registration = %+v", reg)
	}
	wantStatus(t, s.do(t, http.MethodPost, "/registrations", pat, regBody, nil), http.StatusConflict)

	regBody["participantEmail"] = "other@example.com"
	wantStatus(t, s.do(t, http.MethodPost, "/registrations", pat, regBody, nil), http.StatusForbidden)

	var c model.Camp
	s.do(t, http.MethodGet, "/camps/"+camp.ID, pat, nil, &c)
	if c.ParticipantCount != 1 {
		t.Errorf("participantCount = %d, want 1", c.ParticipantCount)
	}

	// No pass before payment.
	wantStatus(t, s.do(t, http.MethodGet, "/registrations/"+reg.ID+"/pass.png", pat, nil, nil), http.StatusConflict)

	var sess model.CheckoutSession
	wantStatus(t, s.do(t, http.MethodPost, "/payments/checkout-session", pat, map[string]string{"campId": camp.ID}, &sess), http.StatusOK)
	if sess.SessionID == "" || sess.URL == "" {
		t.Fatalf("session = %+v", sess)
	}

	confirm := map[string]string{"sessionId": sess.SessionID, "campId": camp.ID}
	wantStatus(t, s.do(t, http.MethodPost, "/payments/confirm", pat, confirm, nil), http.StatusBadRequest)

	s.gateway.pay(sess.SessionID, "txn_100")
	var paid model.Registration
	wantStatus(t, s.do(t, http.MethodPost, "/payments/confirm", pat, confirm, &paid), http.StatusOK)
	if paid.PaymentStatus != model.PaymentPaid || paid.ConfirmationStatus != model.ConfirmationConfirmed || paid.TransactionID != "txn_100" {
		t.Fatalf("paid registration = %+v", paid)
	}
	wantStatus(t, s.do(t, http.MethodPost, "/payments/confirm", pat, confirm, nil), http.StatusOK)

	var hist model.PaymentHistory
	wantStatus(t, s.do(t, http.MethodGet, "/payments/history?page=1&limit=5", pat, nil, &hist), http.StatusOK)
	if hist.Total != 1 || len(hist.Payments) != 1 || hist.Payments[0].TransactionID != "txn_100" {
		t.Errorf("history = %+v", hist)
	}
	wantStatus(t, s.do(t, http.MethodGet, "/payments/history?page=x", pat, nil, nil), http.StatusBadRequest)

	resp := s.do(t, http.MethodGet, "/registrations/"+reg.ID+"/pass.png", pat, nil, nil)
	wantStatus(t, resp, http.StatusOK)
	if ct := resp.Header.Get("Content-Type"); ct != "image/png" {
		t.Errorf("pass Content-Type = %q", ct)
	}

	// Paid registrations cannot be withdrawn by the participant or,
	// once confirmed, by the organizer.
	wantStatus(t, s.do(t, http.MethodDelete, "/registrations/"+reg.ID, pat, nil, nil), http.StatusConflict)
	wantStatus(t, s.do(t, http.MethodDelete, "/registrations/"+reg.ID, org, nil, nil), http.StatusConflict)

	var orgView []model.Registration
	wantStatus(t, s.do(t, http.MethodGet, "/registrations/organizer?email=org@example.com", org, nil, &orgView), http.StatusOK)
	if len(orgView) != 1 {
		t.Errorf("organizer view = %+v", orgView)
	}
	wantStatus(t, s.do(t, http.MethodGet, "/registrations/organizer?email=rival@example.com", org, nil, nil), http.StatusForbidden)

	var patView []model.Registration
	wantStatus(t, s.do(t, http.MethodGet, "/registrations/participant?email=pat@example.com", pat, nil, &patView), http.StatusOK)
	if len(patView) != 1 || !patView[0].IsSettled() {
		t.Errorf("participant view = %+v", patView)
	}
}

func TestParticipantCancelsUnpaidRegistration(t *testing.T) {
	s := newTestServer(t)
	org := s.token(t, "org@example.com", "organizer")
	pat := s.token(t, "pat@example.com", "participant")

	var camp model.Camp
	s.do(t, http.MethodPost, "/camps", org, campPayload("org@example.com"), &camp)
	var reg model.Registration
	wantStatus(t, s.do(t, http.MethodPost, "/registrations", pat, map[string]any{
		"campId": camp.ID, "participantName": "Pat", "participantEmail": "pat@example.com", "age": 30,
	}, &reg), http.StatusCreated)

	other := s.token(t, "mallory@example.com", "participant")
	wantStatus(t, s.do(t, http.MethodDelete, "/registrations/"+reg.ID, other, nil, nil), http.StatusForbidden)
	wantStatus(t, s.do(t, http.MethodDelete, "/registrations/"+reg.ID, pat, nil, nil), http.StatusOK)
	wantStatus(t, s.do(t, http.MethodDelete, "/registrations/"+reg.ID, pat, nil, nil), http.StatusNotFound)

	var c model.Camp
	s.do(t, http.MethodGet, "/camps/"+camp.ID, pat, nil, &c)
	if c.ParticipantCount != 0 {
		t.Errorf("participantCount = %d, want 0", c.ParticipantCount)
	}
}

func TestFeedbackAndOrganizerProfileEndpoints(t *testing.T) {
	s := newTestServer(t)
	org := s.token(t, "org@example.com", "organizer")
	pat := s.token(t, "pat@example.com", "participant")

	var camp model.Camp
	s.do(t, http.MethodPost, "/camps", org, campPayload("org@example.com"), &camp)
	fb := map[string]any{"campId": camp.ID, "rating": 5, "feedback": "Very helpful"}
	wantStatus(t, s.do(t, http.MethodPost, "/feedback", pat, fb, nil), http.StatusNotFound)

	s.do(t, http.MethodPost, "/registrations", pat, map[string]any{
		"campId": camp.ID, "participantName": "Pat", "participantEmail": "pat@example.com", "age": 30,
	}, nil)
	var created model.Feedback
	wantStatus(t, s.do(t, http.MethodPost, "/feedback", pat, fb, &created), http.StatusCreated)
	wantStatus(t, s.do(t, http.MethodPost, "/feedback", pat, fb, nil), http.StatusConflict)

	var pending []model.Feedback
	wantStatus(t, s.do(t, http.MethodGet, "/feedback/pending", org, nil, &pending), http.StatusOK)
	if len(pending) != 1 {
		t.Fatalf("pending = %+v", pending)
	}
	wantStatus(t, s.do(t, http.MethodPatch, "/feedback/"+created.ID+"/approve", pat, nil, nil), http.StatusForbidden)
	wantStatus(t, s.do(t, http.MethodPatch, "/feedback/"+created.ID+"/approve", org, nil, nil), http.StatusOK)

	var approved []model.Feedback
	wantStatus(t, s.do(t, http.MethodGet, "/feedback/approved", "", nil, &approved), http.StatusOK)
	if len(approved) != 1 || approved[0].Comment != "Very helpful" {
		t.Errorf("approved = %+v", approved)
	}

	var profile model.Organizer
	wantStatus(t, s.do(t, http.MethodPut, "/organizers/me", org, map[string]any{"name": "Dr. Ana", "telegramChatId": 77}, &profile), http.StatusOK)
	if profile.Email != "org@example.com" || profile.TelegramChatID != 77 {
		t.Errorf("profile = %+v", profile)
	}
	wantStatus(t, s.do(t, http.MethodGet, "/organizers/me", pat, nil, nil), http.StatusForbidden)

	// A stored profile grants the organizer role even without a role claim.
	unclaimed := s.token(t, "org@example.com", "")
	wantStatus(t, s.do(t, http.MethodGet, "/camps/mine", unclaimed, nil, nil), http.StatusOK)
}

func TestParticipantProfileEndpoints(t *testing.T) {
	s := newTestServer(t)
	pat := s.token(t, "Pat@Example.com", "participant")
	org := s.token(t, "org@example.com", "organizer")

	wantStatus(t, s.do(t, http.MethodGet, "/users/me", "", nil, nil), http.StatusUnauthorized)

	var fresh model.User
	wantStatus(t, s.do(t, http.MethodGet, "/users/me", pat, nil, &fresh), http.StatusOK)
	if fresh.Email != "pat@example.com" || fresh.ID != "" {
		t.Errorf("unsaved profile = %+v", fresh)
	}

	var saved model.User
	wantStatus(t, s.do(t, http.MethodPut, "/users/me", pat, map[string]any{"name": "Pat Doe", "phone": "+62 812 5555"}, &saved), http.StatusOK)
	if saved.ID == "" || saved.Email != "pat@example.com" || saved.Name != "Pat Doe" {
		t.Errorf("saved profile = %+v", saved)
	}

	// The email is taken from the token, never from the body.
	wantStatus(t, s.do(t, http.MethodPut, "/users/me", pat, map[string]any{"name": "X", "email": "other@example.com"}, nil), http.StatusBadRequest)
	wantStatus(t, s.do(t, http.MethodPut, "/users/me", pat, map[string]any{"name": " "}, nil), http.StatusBadRequest)

	var got model.User
	wantStatus(t, s.do(t, http.MethodGet, "/users/me", pat, nil, &got), http.StatusOK)
	if got.ID != saved.ID || got.Phone != "+62 812 5555" {
		t.Errorf("profile = %+v", got)
	}

	wantStatus(t, s.do(t, http.MethodGet, "/users/me", org, nil, nil), http.StatusForbidden)
}
