// Package model defines the core domain types for the medical-camp
// registration system.
package model

import "time"

// PaymentStatus is the payment half of a registration's lifecycle.
type PaymentStatus string

const (
	PaymentPending PaymentStatus = "Pending"
	PaymentPaid    PaymentStatus = "Paid"
)

// ConfirmationStatus is the organizer/system acknowledgement half.
type ConfirmationStatus string

const (
	ConfirmationPending   ConfirmationStatus = "Pending"
	ConfirmationConfirmed ConfirmationStatus = "Confirmed"
)

// SettlementStatus is the outcome recorded in the settlement log.
type SettlementStatus string

const (
	SettlementPaid   SettlementStatus = "Paid"
	SettlementFailed SettlementStatus = "Failed"
)

// Camp represents a published medical camp.
type Camp struct {
	ID                     string    `json:"id" gorm:"primaryKey;size:36" bson:"_id"`
	Name                   string    `json:"campName" gorm:"not null" bson:"campName"`
	Image                  string    `json:"image" bson:"image"`
	Fee                    float64   `json:"campFees" bson:"campFees"`
	ScheduledAt            time.Time `json:"dateTime" bson:"dateTime"`
	Location               string    `json:"location" bson:"location"`
	HealthcareProfessional string    `json:"healthcareProfessional" bson:"healthcareProfessional"`
	Description            string    `json:"description" bson:"description"`
	OrganizerEmail         string    `json:"organizerEmail" gorm:"index;not null" bson:"organizerEmail"`
	ParticipantCount       int       `json:"participantCount" gorm:"not null" bson:"participantCount"`
	CreatedAt              time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt              time.Time `json:"updatedAt" bson:"updatedAt"`
}

// Registration is one participant's enrollment in one camp. Camp fields are
// snapshotted at creation time.
type Registration struct {
	ID                     string  `json:"id" gorm:"primaryKey;size:36" bson:"_id"`
	CampID                 string  `json:"campId" gorm:"not null;uniqueIndex:idx_reg_camp_participant" bson:"campId"`
	CampName               string  `json:"campName" bson:"campName"`
	CampFee                float64 `json:"campFees" bson:"campFees"`
	Location               string  `json:"location" bson:"location"`
	HealthcareProfessional string  `json:"healthcareProfessional" bson:"healthcareProfessional"`

	ParticipantName  string `json:"participantName" bson:"participantName"`
	ParticipantEmail string `json:"participantEmail" gorm:"not null;uniqueIndex:idx_reg_camp_participant;index" bson:"participantEmail"`
	Age              int    `json:"age" bson:"age"`
	Phone            string `json:"phone" bson:"phone"`
	Gender           string `json:"gender" bson:"gender"`
	EmergencyContact string `json:"emergencyContact" bson:"emergencyContact"`

	OrganizerEmail string `json:"organizerEmail" gorm:"index;not null" bson:"organizerEmail"`

	PaymentStatus      PaymentStatus      `json:"paymentStatus" gorm:"not null" bson:"paymentStatus"`
	ConfirmationStatus ConfirmationStatus `json:"confirmationStatus" gorm:"not null" bson:"confirmationStatus"`
	TransactionID      string             `json:"transactionId,omitempty" bson:"transactionId,omitempty"`
	FeedbackGiven      bool               `json:"feedbackGiven" bson:"feedbackGiven"`
	CreatedAt          time.Time          `json:"createdAt" bson:"createdAt"`
}

// IsPaid reports whether the payment has been captured.
func (r *Registration) IsPaid() bool {
	return r.PaymentStatus == PaymentPaid
}

// IsSettled reports whether the registration reached its terminal success
// state (Paid and Confirmed).
func (r *Registration) IsSettled() bool {
	return r.PaymentStatus == PaymentPaid && r.ConfirmationStatus == ConfirmationConfirmed
}

// Settlement is an immutable audit record of one completed payment.
type Settlement struct {
	ID               string           `json:"id" gorm:"primaryKey;size:36" bson:"_id"`
	RegistrationID   string           `json:"participantRegistrationId" gorm:"not null;index" bson:"registrationId"`
	CampID           string           `json:"campId" bson:"campId"`
	CampName         string           `json:"campName" bson:"campName"`
	ParticipantEmail string           `json:"participantEmail" gorm:"index" bson:"participantEmail"`
	Amount           float64          `json:"amount" bson:"amount"`
	TransactionID    string           `json:"transactionId" gorm:"not null;uniqueIndex" bson:"transactionId"`
	Status           SettlementStatus `json:"status" gorm:"not null" bson:"status"`
	CreatedAt        time.Time        `json:"timestamp" bson:"createdAt"`
}

// Feedback is a participant's rating and comment for a camp.
type Feedback struct {
	ID               string    `json:"id" gorm:"primaryKey;size:36" bson:"_id"`
	CampID           string    `json:"campId" gorm:"not null;uniqueIndex:idx_feedback_camp_participant" bson:"campId"`
	CampName         string    `json:"campName" bson:"campName"`
	OrganizerEmail   string    `json:"organizerEmail" gorm:"index" bson:"organizerEmail"`
	ParticipantName  string    `json:"participantName" bson:"participantName"`
	ParticipantEmail string    `json:"participantEmail" gorm:"not null;uniqueIndex:idx_feedback_camp_participant" bson:"participantEmail"`
	Rating           int       `json:"rating" bson:"rating"`
	Comment          string    `json:"feedback" bson:"feedback"`
	Approved         bool      `json:"approved" bson:"approved"`
	CreatedAt        time.Time `json:"createdAt" bson:"createdAt"`
}

// TableName keeps the gorm table name aligned with the SQL schema.
func (Feedback) TableName() string { return "feedback" }

// Organizer is an organizer's profile. Presence in this directory grants the
// organizer role.
type Organizer struct {
	ID             string    `json:"id" gorm:"primaryKey;size:36" bson:"_id"`
	Name           string    `json:"name" bson:"name"`
	Email          string    `json:"email" gorm:"not null;uniqueIndex" bson:"email"`
	Image          string    `json:"image" bson:"image"`
	TelegramChatID int64     `json:"telegramChatId,omitempty" bson:"telegramChatId,omitempty"`
	UpdatedAt      time.Time `json:"updatedAt" bson:"updatedAt"`
}

// User is a participant's saved profile, keyed by the verified email.
type User struct {
	ID        string    `json:"id" gorm:"primaryKey;size:36" bson:"_id"`
	Name      string    `json:"name" bson:"name"`
	Email     string    `json:"email" gorm:"not null;uniqueIndex" bson:"email"`
	Image     string    `json:"image" bson:"image"`
	Phone     string    `json:"phone" bson:"phone"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updatedAt"`
}

// CreateCampRequest is the payload for publishing a camp.
type CreateCampRequest struct {
	Name                   string    `json:"campName" validate:"required"`
	Image                  string    `json:"image" validate:"required"`
	Fee                    *float64  `json:"campFees" validate:"required,gte=0"`
	ScheduledAt            time.Time `json:"dateTime" validate:"required"`
	Location               string    `json:"location" validate:"required"`
	HealthcareProfessional string    `json:"healthcareProfessional" validate:"required"`
	Description            string    `json:"description" validate:"required"`
	OrganizerEmail         string    `json:"organizerEmail" validate:"required,email"`
}

// UpdateCampRequest carries the editable camp fields; nil means unchanged.
// The organizer and the participant count are never client-editable.
type UpdateCampRequest struct {
	Name                   *string    `json:"campName" validate:"omitempty,min=1"`
	Image                  *string    `json:"image"`
	Fee                    *float64   `json:"campFees" validate:"omitempty,gte=0"`
	ScheduledAt            *time.Time `json:"dateTime"`
	Location               *string    `json:"location" validate:"omitempty,min=1"`
	HealthcareProfessional *string    `json:"healthcareProfessional" validate:"omitempty,min=1"`
	Description            *string    `json:"description"`
}

// RegisterRequest is the payload a participant submits to enroll in a camp.
// Camp snapshot fields sent by older clients are ignored; the server copies
// them from the persisted camp.
type RegisterRequest struct {
	CampID           string `json:"campId" validate:"required"`
	ParticipantName  string `json:"participantName" validate:"required"`
	ParticipantEmail string `json:"participantEmail" validate:"required,email"`
	Age              int    `json:"age" validate:"gte=0,lte=150"`
	Phone            string `json:"phone"`
	Gender           string `json:"gender"`
	EmergencyContact string `json:"emergencyContact"`

	CampName               string  `json:"campName"`
	CampFee                float64 `json:"campFees"`
	Location               string  `json:"location"`
	HealthcareProfessional string  `json:"healthcareProfessional"`
}

// CheckoutRequest asks for a gateway checkout session for a camp.
type CheckoutRequest struct {
	CampID string `json:"campId" validate:"required"`
}

// ConfirmPaymentRequest carries the gateway session reference returned to
// the client after checkout.
type ConfirmPaymentRequest struct {
	SessionID string `json:"sessionId" validate:"required"`
	CampID    string `json:"campId" validate:"required"`
}

// FeedbackRequest is a participant's rating for a camp.
type FeedbackRequest struct {
	CampID  string `json:"campId" validate:"required"`
	Rating  int    `json:"rating" validate:"required,min=1,max=5"`
	Comment string `json:"feedback" validate:"required"`
}

// UpdateOrganizerRequest edits an organizer's own profile.
type UpdateOrganizerRequest struct {
	Name           string `json:"name" validate:"required"`
	Image          string `json:"image"`
	TelegramChatID int64  `json:"telegramChatId"`
}

// UpdateUserRequest edits a participant's own profile. The email always comes
// from the caller's identity.
type UpdateUserRequest struct {
	Name  string `json:"name" validate:"required"`
	Image string `json:"image"`
	Phone string `json:"phone"`
}

// ─── Responses ────────────────────────────────────────────────────────────────

// CheckoutSession is returned after a gateway session has been opened.
type CheckoutSession struct {
	URL       string `json:"url"`
	SessionID string `json:"sessionId"`
}

// PaymentHistory is one page of the caller's settlements.
type PaymentHistory struct {
	Payments []Settlement `json:"payments"`
	Total    int64        `json:"total"`
}

// ErrorResponse is a standard JSON error envelope.
type ErrorResponse struct {
	Error string `json:"error"`
}
