package service

import (
	"context"
	"fmt"
	"log"

	qrcode "github.com/skip2/go-qrcode"

	"github.com/Shivanand-hulikatti/medicamp/internal/apperr"
	"github.com/Shivanand-hulikatti/medicamp/internal/auth"
	"github.com/Shivanand-hulikatti/medicamp/internal/model"
)

const passSize = 256

// PassContent is the text encoded in a registration's entry pass. Check-in
// staff scan it and look the registration up by id.
func PassContent(reg *model.Registration) string {
	return fmt.Sprintf("medicamp:pass:%s:%s:%s", reg.ID, reg.CampID, reg.TransactionID)
}

// Pass renders the entry pass of a paid and confirmed registration as a PNG
// QR code. Only the registered participant can fetch it.
func (s *RegistrationService) Pass(ctx context.Context, p auth.Principal, id string) ([]byte, error) {
	reg, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.Owns(reg.ParticipantEmail) {
		return nil, apperr.Forbidden("registration belongs to someone else")
	}
	if !reg.IsSettled() {
		return nil, apperr.Conflict("entry pass is issued once the registration is paid and confirmed")
	}

	png, err := qrcode.Encode(PassContent(reg), qrcode.Medium, passSize)
	if err != nil {
		log.Printf("[ledger] encode pass for %s: %v", reg.ID, err)
		return nil, &apperr.Error{Kind: apperr.KindUnknown, Msg: "failed to render entry pass", Err: err}
	}
	return png, nil
}
