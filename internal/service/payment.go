package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/Shivanand-hulikatti/medicamp/internal/apperr"
	"github.com/Shivanand-hulikatti/medicamp/internal/auth"
	"github.com/Shivanand-hulikatti/medicamp/internal/model"
	"github.com/Shivanand-hulikatti/medicamp/internal/notify"
	"github.com/Shivanand-hulikatti/medicamp/internal/payment"
	"github.com/Shivanand-hulikatti/medicamp/internal/repository"
)

const (
	defaultHistoryLimit = 5
	maxHistoryLimit     = 50
)

// PaymentService reconciles gateway checkouts with the registration ledger.
// The server never trusts a client-reported payment: every confirmation is
// re-verified with the gateway before the ledger changes.
type PaymentService struct {
	camps       *CampService
	regs        RegistrationStore
	settlements SettlementStore
	organizers  OrganizerStore
	gateway     payment.Gateway
	notifier    notify.Notifier
	policy      Policy
}

// NewPaymentService constructs a PaymentService. notifier may be nil.
func NewPaymentService(
	camps *CampService,
	store Store,
	gateway payment.Gateway,
	notifier notify.Notifier,
	policy Policy,
) *PaymentService {
	return &PaymentService{
		camps:       camps,
		regs:        store.Registrations,
		settlements: store.Settlements,
		organizers:  store.Organizers,
		gateway:     gateway,
		notifier:    notifier,
		policy:      policy,
	}
}

// Checkout opens a gateway session for the camp fee. Nothing is written
// locally; the ledger only changes on Confirm.
func (s *PaymentService) Checkout(ctx context.Context, p auth.Principal, req model.CheckoutRequest) (*model.CheckoutSession, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	camp, err := s.camps.Get(ctx, req.CampID)
	if err != nil {
		return nil, err
	}

	reg, err := s.regs.FindByCampAndParticipant(ctx, camp.ID, p.Email)
	switch {
	case isNotFound(err):
		return nil, apperr.NotFound("register for the camp before paying")
	case err != nil:
		return nil, storeErr("find registration", err)
	case reg.IsPaid():
		return nil, apperr.Conflict("registration is already paid")
	}

	// The registration snapshot is what the participant agreed to pay.
	amount, err := payment.MinorUnits(reg.CampFee, s.policy.Currency)
	if err != nil {
		return nil, apperr.Validation("camp fee cannot be charged: %v", err)
	}

	upCtx, cancel := s.policy.upstreamContext(ctx)
	defer cancel()
	sess, err := s.gateway.CreateSession(upCtx, payment.SessionRequest{
		AmountMinor:   amount,
		Currency:      s.policy.Currency,
		SuccessURL:    s.policy.SuccessURL,
		CancelURL:     s.policy.CancelURL,
		Description:   camp.Name,
		CustomerEmail: p.Email,
		Metadata: map[string]string{
			payment.MetaCampID: camp.ID,
			payment.MetaEmail:  p.Email,
		},
	})
	if err != nil {
		log.Printf("[payment] create session for camp %s: %v", camp.ID, err)
		return nil, apperr.Upstream("payment gateway unavailable, try again later", err)
	}
	log.Printf("[payment] session %s opened for %s camp %s amount=%d %s", sess.ID, p.Email, camp.ID, amount, s.policy.Currency)
	return &model.CheckoutSession{URL: sess.URL, SessionID: sess.ID}, nil
}

// Confirm verifies a checkout session with the gateway and settles the
// caller's registration for the camp. The registration is moved to Paid
// before the settlement is appended, so a participant cancel racing the
// confirmation either wins outright or finds the row already Paid. Repeating
// a confirmation for an already settled registration succeeds without
// writing anything.
func (s *PaymentService) Confirm(ctx context.Context, p auth.Principal, req model.ConfirmPaymentRequest) (*model.Registration, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	paid, err := s.verify(ctx, p, req)
	if err != nil {
		return nil, err
	}

	reg, err := s.regs.FindByCampAndParticipant(ctx, req.CampID, p.Email)
	if err != nil {
		if isNotFound(err) {
			return nil, apperr.NotFound("registration not found")
		}
		return nil, storeErr("find registration", err)
	}

	fee, err := payment.MinorUnits(reg.CampFee, s.policy.Currency)
	if err != nil {
		return nil, apperr.Validation("camp fee cannot be charged: %v", err)
	}
	if paid.amountMinor != fee {
		log.Printf("[payment] session %s captured %d, registration %s owes %d", req.SessionID, paid.amountMinor, reg.ID, fee)
		return nil, apperr.PaymentData("paid amount does not match the camp fee")
	}

	existing, err := s.settlements.FindPaidByRegistration(ctx, reg.ID)
	switch {
	case err == nil:
		if existing.TransactionID != paid.txnID {
			log.Printf("[payment] registration %s already settled by %s, ignoring %s", reg.ID, existing.TransactionID, paid.txnID)
		}
		return s.reconcile(ctx, reg, existing.TransactionID)
	case !isNotFound(err):
		return nil, storeErr("find settlement", err)
	}

	moved := false
	if !reg.IsPaid() {
		moved, err = s.regs.MarkPaid(ctx, reg.ID, paid.txnID, s.policy.confirmOnPayment())
		if err != nil {
			return nil, storeErr("mark registration paid", err)
		}
	}
	// Re-read: a cancel may have removed the row, or a concurrent
	// confirmation may have marked it with its own transaction id.
	if reg, err = s.regs.GetByID(ctx, reg.ID); err != nil {
		if isNotFound(err) {
			return nil, apperr.NotFound("registration not found")
		}
		return nil, storeErr("get registration", err)
	}
	if !reg.IsPaid() {
		return nil, apperr.Conflict("registration changed during payment confirmation, try again")
	}

	txnID := reg.TransactionID
	if txnID != paid.txnID {
		log.Printf("[payment] registration %s was marked with %s, recording that instead of %s", reg.ID, txnID, paid.txnID)
	}
	settlement := &model.Settlement{
		RegistrationID:   reg.ID,
		CampID:           reg.CampID,
		CampName:         reg.CampName,
		ParticipantEmail: reg.ParticipantEmail,
		Amount:           reg.CampFee,
		TransactionID:    txnID,
		Status:           model.SettlementPaid,
	}
	if err := s.settlements.Append(ctx, settlement); err != nil {
		if !errors.Is(err, repository.ErrDuplicate) {
			// The registration stays Paid; a retry appends with its transaction id.
			return nil, storeErr("append settlement", err)
		}
		_, ferr := s.settlements.FindPaidByRegistration(ctx, reg.ID)
		switch {
		case isNotFound(ferr):
			// The transaction id already settles another registration.
			if _, rerr := s.regs.ReleasePaid(ctx, reg.ID, txnID); rerr != nil {
				log.Printf("[payment] release registration %s: %v", reg.ID, rerr)
			}
			return nil, apperr.PaymentData("transaction %s is already recorded for another registration", txnID)
		case ferr != nil:
			return nil, storeErr("find settlement", ferr)
		}
	} else {
		log.Printf("[payment] settlement %s recorded for registration %s txn=%s", settlement.ID, reg.ID, txnID)
	}

	if moved {
		s.notifyOrganizer(ctx, reg)
	}
	return reg, nil
}

// verifiedPayment is what the gateway vouches for about a session.
type verifiedPayment struct {
	txnID       string
	amountMinor int64
}

// verify asks the gateway about the session and checks that it was opened
// for this camp and participant.
func (s *PaymentService) verify(ctx context.Context, p auth.Principal, req model.ConfirmPaymentRequest) (verifiedPayment, error) {
	upCtx, cancel := s.policy.upstreamContext(ctx)
	defer cancel()
	status, err := s.gateway.RetrieveSession(upCtx, req.SessionID)
	if err != nil {
		log.Printf("[payment] retrieve session %s: %v", req.SessionID, err)
		return verifiedPayment{}, apperr.Upstream("payment gateway unavailable, try again later", err)
	}
	if !status.Paid {
		return verifiedPayment{}, apperr.PaymentNotVerified("payment has not been completed")
	}

	campID, email := status.Metadata[payment.MetaCampID], status.Metadata[payment.MetaEmail]
	if campID == "" || email == "" {
		log.Printf("[payment] session %s carries no registration binding", req.SessionID)
		return verifiedPayment{}, apperr.PaymentData("payment session is not bound to a camp registration")
	}
	if campID != req.CampID {
		return verifiedPayment{}, apperr.PaymentData("payment session is for a different camp")
	}
	if !p.Owns(email) {
		return verifiedPayment{}, apperr.PaymentData("payment session belongs to another participant")
	}

	txnID := status.TransactionID
	if txnID == "" && s.policy.FallbackTxnID {
		ref := status.Reference
		if ref == "" {
			ref = req.SessionID
		}
		txnID = "session:" + ref
		log.Printf("[payment] session %s has no transaction id, using %s", req.SessionID, txnID)
	}
	if txnID == "" {
		return verifiedPayment{}, apperr.PaymentData("payment gateway returned no transaction id")
	}
	return verifiedPayment{txnID: txnID, amountMinor: status.AmountMinor}, nil
}

// reconcile brings the registration in line with a recorded settlement. It is
// safe to call repeatedly.
func (s *PaymentService) reconcile(ctx context.Context, reg *model.Registration, txnID string) (*model.Registration, error) {
	if !reg.IsPaid() {
		if _, err := s.regs.MarkPaid(ctx, reg.ID, txnID, s.policy.confirmOnPayment()); err != nil {
			return nil, storeErr("mark registration paid", err)
		}
	}
	updated, err := s.regs.GetByID(ctx, reg.ID)
	if err != nil {
		if isNotFound(err) {
			return nil, apperr.NotFound("registration not found")
		}
		return nil, storeErr("get registration", err)
	}
	return updated, nil
}

func (s *PaymentService) notifyOrganizer(ctx context.Context, reg *model.Registration) {
	if s.notifier == nil || s.organizers == nil {
		return
	}
	org, err := s.organizers.GetByEmail(ctx, reg.OrganizerEmail)
	if err != nil {
		if !isNotFound(err) {
			log.Printf("[notify] lookup organizer %s: %v", reg.OrganizerEmail, err)
		}
		return
	}
	if org.TelegramChatID == 0 {
		return
	}
	text := fmt.Sprintf("%s paid %.2f for %s (registration %s, %s)",
		reg.ParticipantName, reg.CampFee, reg.CampName, reg.ID, reg.ConfirmationStatus)

	upCtx, cancel := s.policy.upstreamContext(ctx)
	defer cancel()
	if err := s.notifier.Notify(upCtx, org.TelegramChatID, text); err != nil {
		log.Printf("[notify] organizer %s: %v", org.Email, err)
	}
}

// History returns one page of the caller's settlements, newest first.
func (s *PaymentService) History(ctx context.Context, p auth.Principal, page, limit int) (*model.PaymentHistory, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	items, total, err := s.settlements.ListByParticipant(ctx, p.Email, limit, (page-1)*limit)
	if err != nil {
		return nil, storeErr("list payment history", err)
	}
	return &model.PaymentHistory{Payments: nonNil(items), Total: total}, nil
}
