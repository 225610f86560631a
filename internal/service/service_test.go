package service_test

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Shivanand-hulikatti/medicamp/internal/apperr"
	"github.com/Shivanand-hulikatti/medicamp/internal/auth"
	"github.com/Shivanand-hulikatti/medicamp/internal/config"
	"github.com/Shivanand-hulikatti/medicamp/internal/database"
	"github.com/Shivanand-hulikatti/medicamp/internal/model"
	"github.com/Shivanand-hulikatti/medicamp/internal/payment"
	"github.com/Shivanand-hulikatti/medicamp/internal/repository/gormstore"
	"github.com/Shivanand-hulikatti/medicamp/internal/service"
)

// ─── Fakes ────────────────────────────────────────────────────────────────────

type fakeGateway struct {
	mu          sync.Mutex
	sessions    map[string]payment.SessionStatus
	created     []payment.SessionRequest
	retrieveErr error
	retrieves   int
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{sessions: map[string]payment.SessionStatus{}}
}

func (g *fakeGateway) CreateSession(_ context.Context, req payment.SessionRequest) (payment.Session, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.created = append(g.created, req)
	id := fmt.Sprintf("sess_%d", len(g.created))
	g.sessions[id] = payment.SessionStatus{Reference: id, AmountMinor: req.AmountMinor, Metadata: req.Metadata}
	return payment.Session{ID: id, URL: "https://pay.example/" + id}, nil
}

func (g *fakeGateway) RetrieveSession(_ context.Context, id string) (payment.SessionStatus, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.retrieves++
	if g.retrieveErr != nil {
		return payment.SessionStatus{}, g.retrieveErr
	}
	return g.sessions[id], nil
}

// pay marks a session as paid by the customer.
func (g *fakeGateway) pay(id, txnID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	st := g.sessions[id]
	st.Paid = true
	st.TransactionID = txnID
	g.sessions[id] = st
}

// alter rewrites what the gateway reports for a session.
func (g *fakeGateway) alter(id string, fn func(*payment.SessionStatus)) {
	g.mu.Lock()
	defer g.mu.Unlock()
	st := g.sessions[id]
	fn(&st)
	g.sessions[id] = st
}

func (g *fakeGateway) lastRequest() payment.SessionRequest {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.created[len(g.created)-1]
}

type fakeNotifier struct {
	mu    sync.Mutex
	calls int
	chats []int64
}

func (n *fakeNotifier) Notify(_ context.Context, chatID int64, _ string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls++
	n.chats = append(n.chats, chatID)
	return nil
}

func (n *fakeNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.calls
}

// failingCounter wraps a CampStore whose counter updates fail.
type failingCounter struct {
	service.CampStore
}

func (failingCounter) AdjustParticipantCount(context.Context, string, int) error {
	return errors.New("disk I/O error")
}

// ─── Harness ──────────────────────────────────────────────────────────────────

type harness struct {
	store    service.Store
	camps    *service.CampService
	regs     *service.RegistrationService
	payments *service.PaymentService
	feedback *service.FeedbackService
	profiles *service.OrganizerService
	users    *service.ParticipantService
	gateway  *fakeGateway
	notifier *fakeNotifier
}

var (
	organizer      = auth.Principal{UID: "o1", Email: "org@example.com", Name: "Dr. Ana", Role: auth.RoleOrganizer}
	otherOrganizer = auth.Principal{UID: "o2", Email: "rival@example.com", Name: "Dr. Ben", Role: auth.RoleOrganizer}
	participant    = auth.Principal{UID: "p1", Email: "pat@example.com", Name: "Pat", Role: auth.RoleParticipant}
)

func testPolicy() service.Policy {
	return service.Policy{
		Confirmation:    config.PolicyDirect,
		Currency:        "USD",
		SuccessURL:      "https://app.example/success",
		CancelURL:       "https://app.example/cancel",
		FallbackTxnID:   false,
		UpstreamTimeout: time.Second,
	}
}

func openStore(t *testing.T) service.Store {
	t.Helper()
	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "medicamp.db"))
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
	return service.Store{
		Camps:         gormstore.NewCampRepository(db),
		Registrations: gormstore.NewRegistrationRepository(db),
		Settlements:   gormstore.NewSettlementRepository(db),
		Feedback:      gormstore.NewFeedbackRepository(db),
		Organizers:    gormstore.NewOrganizerRepository(db),
		Users:         gormstore.NewUserRepository(db),
	}
}

func newHarness(t *testing.T, policy service.Policy) *harness {
	t.Helper()
	return newHarnessWithStore(t, openStore(t), policy)
}

func newHarnessWithStore(t *testing.T, store service.Store, policy service.Policy) *harness {
	t.Helper()
	h := &harness{
		store:    store,
		gateway:  newFakeGateway(),
		notifier: &fakeNotifier{},
	}
	h.camps = service.NewCampService(store.Camps)
	h.regs = service.NewRegistrationService(h.camps, store.Registrations)
	h.payments = service.NewPaymentService(h.camps, store, h.gateway, h.notifier, policy)
	h.feedback = service.NewFeedbackService(store.Registrations, store.Feedback)
	h.profiles = service.NewOrganizerService(store.Organizers)
	h.users = service.NewParticipantService(store.Users)
	return h
}

func fee(v float64) *float64 { return &v }

func (h *harness) createCamp(t *testing.T, owner auth.Principal, campFee float64) *model.Camp {
	t.Helper()
	c, err := h.camps.Create(context.Background(), owner, model.CreateCampRequest{
		Name:                   "Free Eye Screening",
		Image:                  "https://img.example/eye.png",
		Fee:                    fee(campFee),
		ScheduledAt:            time.Now().Add(72 * time.Hour),
		Location:               "Community Hall",
		HealthcareProfessional: "Dr. Ana",
		Description:            "Vision checks for all ages",
		OrganizerEmail:         owner.Email,
	})
	if err != nil {
		t.Fatalf("create camp: %v", err)
	}
	return c
}

func (h *harness) register(t *testing.T, p auth.Principal, campID string) *model.Registration {
	t.Helper()
	reg, err := h.regs.Create(context.Background(), p, registerRequest(p, campID))
	if err != nil {
		t.Fatalf("register %s: %v", p.Email, err)
	}
	return reg
}

func registerRequest(p auth.Principal, campID string) model.RegisterRequest {
	return model.RegisterRequest{
		CampID:           campID,
		ParticipantName:  p.DisplayName(),
		ParticipantEmail: p.Email,
		Age:              34,
		Phone:            "+62 812 0000 0000",
		Gender:           "female",
		EmergencyContact: "+62 812 1111 1111",
	}
}

// checkoutAndPay opens a session for p and marks it paid with txnID.
func (h *harness) checkoutAndPay(t *testing.T, p auth.Principal, campID, txnID string) string {
	t.Helper()
	sess, err := h.payments.Checkout(context.Background(), p, model.CheckoutRequest{CampID: campID})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	h.gateway.pay(sess.SessionID, txnID)
	return sess.SessionID
}

func (h *harness) participantCount(t *testing.T, campID string) int {
	t.Helper()
	c, err := h.camps.Get(context.Background(), campID)
	if err != nil {
		t.Fatalf("get camp: %v", err)
	}
	return c.ParticipantCount
}

func wantKind(t *testing.T, err error, kind apperr.Kind) {
	t.Helper()
	if !apperr.IsKind(err, kind) {
		t.Fatalf("expected %s error, got %v (kind %s)", kind, err, apperr.KindOf(err))
	}
}

func participantN(i int) auth.Principal {
	return auth.Principal{
		UID:   fmt.Sprintf("p%d", i),
		Email: fmt.Sprintf("person%d@example.com", i),
		Name:  fmt.Sprintf("Person %d", i),
		Role:  auth.RoleParticipant,
	}
}
