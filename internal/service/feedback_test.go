package service_test

import (
	"context"
	"testing"

	"github.com/Shivanand-hulikatti/medicamp/internal/apperr"
	"github.com/Shivanand-hulikatti/medicamp/internal/model"
)

func TestFeedbackLifecycle(t *testing.T) {
	h := newHarness(t, testPolicy())
	ctx := context.Background()
	camp := h.createCamp(t, organizer, 0)
	reg := h.register(t, participant, camp.ID)

	req := model.FeedbackRequest{CampID: camp.ID, Rating: 5, Comment: "Very well organised"}
	f, err := h.feedback.Submit(ctx, participant, req)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if f.Approved || f.OrganizerEmail != organizer.Email || f.CampName != camp.Name {
		t.Errorf("feedback = %+v", f)
	}

	_, err = h.feedback.Submit(ctx, participant, req)
	wantKind(t, err, apperr.KindConflict)

	got, err := h.regs.Get(ctx, participant, reg.ID)
	if err != nil {
		t.Fatalf("get registration: %v", err)
	}
	if !got.FeedbackGiven {
		t.Error("registration not marked feedbackGiven")
	}

	pending, err := h.feedback.Manage(ctx, organizer, true)
	if err != nil || len(pending) != 1 {
		t.Fatalf("pending = %d, err %v", len(pending), err)
	}
	if public, _ := h.feedback.Approved(ctx); len(public) != 0 {
		t.Errorf("unapproved feedback is public: %d", len(public))
	}

	wantKind(t, h.feedback.Approve(ctx, otherOrganizer, f.ID), apperr.KindAuthorization)
	wantKind(t, h.feedback.Approve(ctx, participant, f.ID), apperr.KindAuthorization)
	if err := h.feedback.Approve(ctx, organizer, f.ID); err != nil {
		t.Fatalf("approve: %v", err)
	}

	public, err := h.feedback.Approved(ctx)
	if err != nil || len(public) != 1 {
		t.Errorf("approved = %d, err %v", len(public), err)
	}
	pending, _ = h.feedback.Manage(ctx, organizer, false)
	if len(pending) != 1 || !pending[0].Approved {
		t.Errorf("manage view = %+v", pending)
	}

	wantKind(t, h.feedback.Delete(ctx, otherOrganizer, f.ID), apperr.KindAuthorization)
	if err := h.feedback.Delete(ctx, participant, f.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	wantKind(t, h.feedback.Delete(ctx, organizer, f.ID), apperr.KindNotFound)
}

func TestFeedbackRequiresRegistration(t *testing.T) {
	h := newHarness(t, testPolicy())
	ctx := context.Background()
	camp := h.createCamp(t, organizer, 0)

	_, err := h.feedback.Submit(ctx, participant, model.FeedbackRequest{CampID: camp.ID, Rating: 4, Comment: "ok"})
	wantKind(t, err, apperr.KindNotFound)

	h.register(t, participant, camp.ID)
	_, err = h.feedback.Submit(ctx, participant, model.FeedbackRequest{CampID: camp.ID, Rating: 9, Comment: "ok"})
	wantKind(t, err, apperr.KindValidation)

	_, err = h.feedback.Submit(ctx, organizer, model.FeedbackRequest{CampID: camp.ID, Rating: 4, Comment: "ok"})
	wantKind(t, err, apperr.KindAuthorization)

	mine, err := h.feedback.Mine(ctx, participant)
	if err != nil || len(mine) != 0 {
		t.Errorf("mine = %d, err %v", len(mine), err)
	}
}
