package service_test

import (
	"bytes"
	"context"
	"sync"
	"testing"

	"github.com/Shivanand-hulikatti/medicamp/internal/apperr"
	"github.com/Shivanand-hulikatti/medicamp/internal/auth"
	"github.com/Shivanand-hulikatti/medicamp/internal/config"
	"github.com/Shivanand-hulikatti/medicamp/internal/model"
)

func TestCreateRegistrationSnapshotsCamp(t *testing.T) {
	h := newHarness(t, testPolicy())
	camp := h.createCamp(t, organizer, 50)

	reg := h.register(t, participant, camp.ID)
	if reg.PaymentStatus != model.PaymentPending || reg.ConfirmationStatus != model.ConfirmationPending {
		t.Errorf("new registration state = %s/%s", reg.PaymentStatus, reg.ConfirmationStatus)
	}
	if reg.CampName != camp.Name || reg.CampFee != 50 || reg.OrganizerEmail != organizer.Email {
		t.Errorf("camp snapshot not copied: %+v", reg)
	}
	if reg.TransactionID != "" {
		t.Errorf("pending registration has transaction id %q", reg.TransactionID)
	}
	if got := h.participantCount(t, camp.ID); got != 1 {
		t.Errorf("participantCount = %d, want 1", got)
	}

	// The snapshot survives a later fee change.
	newFee := 80.0
	if _, err := h.camps.Update(context.Background(), organizer, camp.ID, model.UpdateCampRequest{Fee: &newFee}); err != nil {
		t.Fatalf("update camp: %v", err)
	}
	got, err := h.regs.Get(context.Background(), participant, reg.ID)
	if err != nil {
		t.Fatalf("get registration: %v", err)
	}
	if got.CampFee != 50 {
		t.Errorf("snapshot fee changed to %v", got.CampFee)
	}
}

func TestSelfRegistrationIsCaseInsensitive(t *testing.T) {
	h := newHarness(t, testPolicy())
	camp := h.createCamp(t, organizer, 0)
	ctx := context.Background()

	caller := auth.Principal{UID: "a", Email: auth.NormalizeEmail("A@X.com"), Role: auth.RoleParticipant}
	for _, email := range []string{"A@X.com", "a@x.com", " a@X.COM "} {
		req := registerRequest(caller, camp.ID)
		req.ParticipantEmail = email
		_, err := h.regs.Create(ctx, caller, req)
		if err != nil && !apperr.IsKind(err, apperr.KindConflict) {
			t.Errorf("%q: expected success or duplicate, got %v", email, err)
		}
	}
	if got := h.participantCount(t, camp.ID); got != 1 {
		t.Errorf("participantCount = %d, want 1 after case variants", got)
	}

	for _, email := range []string{"b@x.com", "A@Y.com"} {
		req := registerRequest(caller, camp.ID)
		req.ParticipantEmail = email
		_, err := h.regs.Create(ctx, caller, req)
		wantKind(t, err, apperr.KindAuthorization)
	}

	_, err := h.regs.Create(ctx, organizer, registerRequest(organizer, camp.ID))
	wantKind(t, err, apperr.KindAuthorization)
}

func TestCreateRegistrationErrors(t *testing.T) {
	h := newHarness(t, testPolicy())
	ctx := context.Background()

	_, err := h.regs.Create(ctx, participant, registerRequest(participant, "missing-camp"))
	wantKind(t, err, apperr.KindNotFound)

	req := registerRequest(participant, "")
	_, err = h.regs.Create(ctx, participant, req)
	wantKind(t, err, apperr.KindValidation)

	camp := h.createCamp(t, organizer, 10)
	h.register(t, participant, camp.ID)
	_, err = h.regs.Create(ctx, participant, registerRequest(participant, camp.ID))
	wantKind(t, err, apperr.KindConflict)
	if got := h.participantCount(t, camp.ID); got != 1 {
		t.Errorf("duplicate registration moved the counter to %d", got)
	}
}

func TestCreateRegistrationUndoesInsertWhenCounterFails(t *testing.T) {
	store := openStore(t)
	seed := newHarnessWithStore(t, store, testPolicy())
	camp := seed.createCamp(t, organizer, 10)

	broken := store
	broken.Camps = failingCounter{store.Camps}
	h := newHarnessWithStore(t, broken, testPolicy())

	_, err := h.regs.Create(context.Background(), participant, registerRequest(participant, camp.ID))
	wantKind(t, err, apperr.KindPersistence)

	n, err := store.Registrations.CountByCamp(context.Background(), camp.ID)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 0 {
		t.Errorf("registration left behind after counter failure: %d", n)
	}
}

func TestCancelBeforePayment(t *testing.T) {
	h := newHarness(t, testPolicy())
	camp := h.createCamp(t, organizer, 50)
	reg := h.register(t, participant, camp.ID)

	if err := h.regs.Cancel(context.Background(), participant, reg.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	_, err := h.regs.Get(context.Background(), participant, reg.ID)
	wantKind(t, err, apperr.KindNotFound)
	if got := h.participantCount(t, camp.ID); got != 0 {
		t.Errorf("participantCount = %d, want 0", got)
	}

	// Cancelling again reports the registration as gone.
	err = h.regs.Cancel(context.Background(), participant, reg.ID)
	wantKind(t, err, apperr.KindNotFound)
	if got := h.participantCount(t, camp.ID); got != 0 {
		t.Errorf("participantCount went to %d", got)
	}
}

func TestParticipantCannotCancelPaidRegistration(t *testing.T) {
	h := newHarness(t, testPolicy())
	ctx := context.Background()
	camp := h.createCamp(t, organizer, 50)
	reg := h.register(t, participant, camp.ID)
	sess := h.checkoutAndPay(t, participant, camp.ID, "tx_paid")
	if _, err := h.payments.Confirm(ctx, participant, model.ConfirmPaymentRequest{SessionID: sess, CampID: camp.ID}); err != nil {
		t.Fatalf("confirm: %v", err)
	}

	err := h.regs.Cancel(ctx, participant, reg.ID)
	wantKind(t, err, apperr.KindConflict)

	got, err := h.regs.Get(ctx, participant, reg.ID)
	if err != nil {
		t.Fatalf("registration disappeared: %v", err)
	}
	if !got.IsSettled() || got.TransactionID != "tx_paid" {
		t.Errorf("state changed by rejected cancel: %+v", got)
	}
	if n := h.participantCount(t, camp.ID); n != 1 {
		t.Errorf("participantCount = %d, want 1", n)
	}
}

func TestCancelRequiresOwnership(t *testing.T) {
	h := newHarness(t, testPolicy())
	camp := h.createCamp(t, organizer, 0)
	reg := h.register(t, participant, camp.ID)

	err := h.regs.Cancel(context.Background(), participantN(9), reg.ID)
	wantKind(t, err, apperr.KindAuthorization)
	if n := h.participantCount(t, camp.ID); n != 1 {
		t.Errorf("participantCount = %d, want 1", n)
	}
}

func TestOrganizerCancellation(t *testing.T) {
	h := newHarness(t, testPolicy())
	ctx := context.Background()
	camp := h.createCamp(t, organizer, 25)

	pending := h.register(t, participantN(1), camp.ID)
	if err := h.regs.Cancel(ctx, organizer, pending.ID); err != nil {
		t.Fatalf("organizer cancel pending: %v", err)
	}
	if n := h.participantCount(t, camp.ID); n != 0 {
		t.Errorf("participantCount = %d after organizer cancel, want 0", n)
	}

	p := participantN(2)
	settled := h.register(t, p, camp.ID)
	sess := h.checkoutAndPay(t, p, camp.ID, "tx_settled")
	if _, err := h.payments.Confirm(ctx, p, model.ConfirmPaymentRequest{SessionID: sess, CampID: camp.ID}); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	err := h.regs.Cancel(ctx, organizer, settled.ID)
	wantKind(t, err, apperr.KindConflict)
	if n := h.participantCount(t, camp.ID); n != 1 {
		t.Errorf("participantCount = %d, want 1", n)
	}
}

func TestOrganizerIsolation(t *testing.T) {
	h := newHarness(t, testPolicy())
	ctx := context.Background()
	camp := h.createCamp(t, organizer, 40)
	reg := h.register(t, participant, camp.ID)

	name := "Hijacked"
	_, err := h.camps.Update(ctx, otherOrganizer, camp.ID, model.UpdateCampRequest{Name: &name})
	wantKind(t, err, apperr.KindAuthorization)

	err = h.camps.Delete(ctx, otherOrganizer, camp.ID)
	wantKind(t, err, apperr.KindAuthorization)

	_, err = h.regs.ListForOrganizer(ctx, otherOrganizer, organizer.Email)
	wantKind(t, err, apperr.KindAuthorization)

	err = h.regs.Cancel(ctx, otherOrganizer, reg.ID)
	wantKind(t, err, apperr.KindAuthorization)

	_, err = h.regs.Confirm(ctx, otherOrganizer, reg.ID)
	wantKind(t, err, apperr.KindAuthorization)

	// Their own view is empty; the owner sees the registration.
	mine, err := h.regs.ListForOrganizer(ctx, otherOrganizer, otherOrganizer.Email)
	if err != nil || len(mine) != 0 {
		t.Errorf("other organizer sees %d registrations (err %v)", len(mine), err)
	}
	owned, err := h.regs.ListForOrganizer(ctx, organizer, "ORG@example.com")
	if err != nil || len(owned) != 1 {
		t.Errorf("owner sees %d registrations (err %v)", len(owned), err)
	}

	c, err := h.camps.Get(ctx, camp.ID)
	if err != nil {
		t.Fatalf("get camp: %v", err)
	}
	if c.Name == name {
		t.Error("camp was renamed by another organizer")
	}
}

func TestParticipantViews(t *testing.T) {
	h := newHarness(t, testPolicy())
	ctx := context.Background()
	camp := h.createCamp(t, organizer, 0)
	h.register(t, participant, camp.ID)
	h.register(t, participantN(1), camp.ID)

	regs, err := h.regs.ListForParticipant(ctx, participant, "PAT@example.com")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(regs) != 1 || regs[0].ParticipantEmail != participant.Email {
		t.Errorf("participant view = %+v", regs)
	}

	_, err = h.regs.ListForParticipant(ctx, participant, participantN(1).Email)
	wantKind(t, err, apperr.KindAuthorization)

	_, err = h.regs.ListForOrganizer(ctx, participant, participant.Email)
	wantKind(t, err, apperr.KindAuthorization)
}

func TestParticipantCountUnderConcurrency(t *testing.T) {
	h := newHarness(t, testPolicy())
	ctx := context.Background()
	camp := h.createCamp(t, organizer, 0)

	const initial, cancelled, late = 20, 8, 5

	regs := make([]*model.Registration, initial)
	var wg sync.WaitGroup
	errs := make(chan error, initial+cancelled+late)
	for i := 0; i < initial; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			reg, err := h.regs.Create(ctx, participantN(i), registerRequest(participantN(i), camp.ID))
			if err != nil {
				errs <- err
				return
			}
			regs[i] = reg
		}(i)
	}
	wg.Wait()
	for i, reg := range regs {
		if reg == nil {
			t.Fatalf("registration %d failed: %v", i, <-errs)
		}
	}

	// Cancellations race with new registrations on the same camp.
	for i := 0; i < cancelled; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if err := h.regs.Cancel(ctx, participantN(i), regs[i].ID); err != nil {
				errs <- err
			}
		}(i)
	}
	for i := initial; i < initial+late; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := h.regs.Create(ctx, participantN(i), registerRequest(participantN(i), camp.ID)); err != nil {
				errs <- err
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent operation failed: %v", err)
	}

	want := initial - cancelled + late
	if got := h.participantCount(t, camp.ID); got != want {
		t.Errorf("participantCount = %d, want %d", got, want)
	}
	n, err := h.store.Registrations.CountByCamp(ctx, camp.ID)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if int(n) != want {
		t.Errorf("registrations = %d, want %d", n, want)
	}
}

func TestManualConfirmationPolicy(t *testing.T) {
	policy := testPolicy()
	policy.Confirmation = config.PolicyManual
	h := newHarness(t, policy)
	ctx := context.Background()
	camp := h.createCamp(t, organizer, 15)
	reg := h.register(t, participant, camp.ID)

	_, err := h.regs.Confirm(ctx, organizer, reg.ID)
	wantKind(t, err, apperr.KindConflict)

	sess := h.checkoutAndPay(t, participant, camp.ID, "tx_manual")
	paid, err := h.payments.Confirm(ctx, participant, model.ConfirmPaymentRequest{SessionID: sess, CampID: camp.ID})
	if err != nil {
		t.Fatalf("confirm payment: %v", err)
	}
	if paid.PaymentStatus != model.PaymentPaid || paid.ConfirmationStatus != model.ConfirmationPending {
		t.Fatalf("manual policy state = %s/%s, want Paid/Pending", paid.PaymentStatus, paid.ConfirmationStatus)
	}

	_, err = h.regs.Pass(ctx, participant, reg.ID)
	wantKind(t, err, apperr.KindConflict)

	confirmed, err := h.regs.Confirm(ctx, organizer, reg.ID)
	if err != nil {
		t.Fatalf("organizer confirm: %v", err)
	}
	if !confirmed.IsSettled() {
		t.Fatalf("registration not settled after organizer confirm: %+v", confirmed)
	}
	again, err := h.regs.Confirm(ctx, organizer, reg.ID)
	if err != nil || !again.IsSettled() {
		t.Errorf("repeated confirm: %v", err)
	}

	png, err := h.regs.Pass(ctx, participant, reg.ID)
	if err != nil {
		t.Fatalf("pass: %v", err)
	}
	if !bytes.HasPrefix(png, []byte("\x89PNG")) {
		t.Error("pass is not a PNG")
	}

	_, err = h.regs.Pass(ctx, participantN(3), reg.ID)
	wantKind(t, err, apperr.KindAuthorization)
}

func TestOrganizerCancelsPaidUnconfirmed(t *testing.T) {
	policy := testPolicy()
	policy.Confirmation = config.PolicyManual
	h := newHarness(t, policy)
	ctx := context.Background()
	camp := h.createCamp(t, organizer, 15)
	reg := h.register(t, participant, camp.ID)
	sess := h.checkoutAndPay(t, participant, camp.ID, "tx_refund")
	if _, err := h.payments.Confirm(ctx, participant, model.ConfirmPaymentRequest{SessionID: sess, CampID: camp.ID}); err != nil {
		t.Fatalf("confirm payment: %v", err)
	}

	if err := h.regs.Cancel(ctx, organizer, reg.ID); err != nil {
		t.Fatalf("organizer cancel of paid-unconfirmed: %v", err)
	}
	if n := h.participantCount(t, camp.ID); n != 0 {
		t.Errorf("participantCount = %d, want 0", n)
	}
	// The settlement stays in the audit log.
	hist, err := h.payments.History(ctx, participant, 1, 5)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if hist.Total != 1 {
		t.Errorf("settlements = %d, want 1", hist.Total)
	}
}
