// Package repository implements the PostgreSQL store with pgx directly
// (no ORM). The gormstore and mongostore subpackages implement the same
// repositories on other backends.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Shivanand-hulikatti/medicamp/internal/model"
)

const (
	pgForeignKeyViolation = "23503"
	pgUniqueViolation     = "23505"
)

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// ─── Camps ────────────────────────────────────────────────────────────────────

const campColumns = `id, name, image, fee, scheduled_at, location, healthcare_professional,
	description, organizer_email, participant_count, created_at, updated_at`

// CampRepository handles persistence for camps.
type CampRepository struct {
	db *pgxpool.Pool
}

// NewCampRepository constructs a CampRepository.
func NewCampRepository(db *pgxpool.Pool) *CampRepository {
	return &CampRepository{db: db}
}

func scanCamp(row pgx.Row) (*model.Camp, error) {
	var c model.Camp
	err := row.Scan(&c.ID, &c.Name, &c.Image, &c.Fee, &c.ScheduledAt, &c.Location,
		&c.HealthcareProfessional, &c.Description, &c.OrganizerEmail, &c.ParticipantCount,
		&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func collectCamps(rows pgx.Rows) ([]model.Camp, error) {
	defer rows.Close()
	var camps []model.Camp
	for rows.Next() {
		c, err := scanCamp(rows)
		if err != nil {
			return nil, fmt.Errorf("scan camp: %w", err)
		}
		camps = append(camps, *c)
	}
	return camps, rows.Err()
}

// Create inserts a new camp, assigning an id when empty.
func (r *CampRepository) Create(ctx context.Context, c *model.Camp) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	c.CreatedAt, c.UpdatedAt = now, now

	_, err := r.db.Exec(ctx,
		`INSERT INTO camps (`+campColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		c.ID, c.Name, c.Image, c.Fee, c.ScheduledAt, c.Location, c.HealthcareProfessional,
		c.Description, c.OrganizerEmail, c.ParticipantCount, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert camp: %w", err)
	}
	return nil
}

// GetByID returns a single camp or ErrNotFound.
func (r *CampRepository) GetByID(ctx context.Context, id string) (*model.Camp, error) {
	c, err := scanCamp(r.db.QueryRow(ctx, `SELECT `+campColumns+` FROM camps WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get camp: %w", err)
	}
	return c, nil
}

// List returns all camps, most popular first.
func (r *CampRepository) List(ctx context.Context) ([]model.Camp, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+campColumns+` FROM camps ORDER BY participant_count DESC, created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list camps: %w", err)
	}
	return collectCamps(rows)
}

// ListTop returns at most n camps ordered by participant count descending.
func (r *CampRepository) ListTop(ctx context.Context, n int) ([]model.Camp, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+campColumns+` FROM camps ORDER BY participant_count DESC LIMIT $1`, n)
	if err != nil {
		return nil, fmt.Errorf("list top camps: %w", err)
	}
	return collectCamps(rows)
}

// ListByOrganizer returns the camps owned by one organizer.
func (r *CampRepository) ListByOrganizer(ctx context.Context, email string) ([]model.Camp, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+campColumns+` FROM camps WHERE organizer_email = $1 ORDER BY created_at DESC`, email)
	if err != nil {
		return nil, fmt.Errorf("list organizer camps: %w", err)
	}
	return collectCamps(rows)
}

// Update writes the editable fields. participant_count and organizer_email
// are deliberately left out so an edit can never clobber a concurrent
// counter adjustment.
func (r *CampRepository) Update(ctx context.Context, c *model.Camp) error {
	c.UpdatedAt = time.Now().UTC()
	tag, err := r.db.Exec(ctx,
		`UPDATE camps SET name = $2, image = $3, fee = $4, scheduled_at = $5, location = $6,
		        healthcare_professional = $7, description = $8, updated_at = $9
		 WHERE id = $1`,
		c.ID, c.Name, c.Image, c.Fee, c.ScheduledAt, c.Location, c.HealthcareProfessional,
		c.Description, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update camp: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a camp. Returns ErrInUse while registrations reference it.
func (r *CampRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM camps WHERE id = $1`, id)
	if err != nil {
		if pgCode(err) == pgForeignKeyViolation {
			return ErrInUse
		}
		return fmt.Errorf("delete camp: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// AdjustParticipantCount applies delta in a single UPDATE so concurrent
// adjustments never lose an update. The result is floored at zero.
func (r *CampRepository) AdjustParticipantCount(ctx context.Context, id string, delta int) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE camps
		 SET participant_count = GREATEST(0, participant_count + $2)
		 WHERE id = $1`,
		id, delta,
	)
	if err != nil {
		return fmt.Errorf("adjust participant_count: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// RecountParticipants repairs drifted counters and returns how many camps
// were corrected.
func (r *CampRepository) RecountParticipants(ctx context.Context) (int64, error) {
	tag, err := r.db.Exec(ctx, RecountSQL)
	if err != nil {
		return 0, fmt.Errorf("recount participants: %w", err)
	}
	return tag.RowsAffected(), nil
}

// ─── Registrations ────────────────────────────────────────────────────────────

const registrationColumns = `id, camp_id, camp_name, camp_fee, location, healthcare_professional,
	participant_name, participant_email, age, phone, gender, emergency_contact, organizer_email,
	payment_status, confirmation_status, transaction_id, feedback_given, created_at`

// RegistrationRepository handles persistence for registrations.
type RegistrationRepository struct {
	db *pgxpool.Pool
}

// NewRegistrationRepository constructs a RegistrationRepository.
func NewRegistrationRepository(db *pgxpool.Pool) *RegistrationRepository {
	return &RegistrationRepository{db: db}
}

func scanRegistration(row pgx.Row) (*model.Registration, error) {
	var reg model.Registration
	err := row.Scan(&reg.ID, &reg.CampID, &reg.CampName, &reg.CampFee, &reg.Location,
		&reg.HealthcareProfessional, &reg.ParticipantName, &reg.ParticipantEmail, &reg.Age,
		&reg.Phone, &reg.Gender, &reg.EmergencyContact, &reg.OrganizerEmail, &reg.PaymentStatus,
		&reg.ConfirmationStatus, &reg.TransactionID, &reg.FeedbackGiven, &reg.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &reg, nil
}

func collectRegistrations(rows pgx.Rows) ([]model.Registration, error) {
	defer rows.Close()
	var regs []model.Registration
	for rows.Next() {
		reg, err := scanRegistration(rows)
		if err != nil {
			return nil, fmt.Errorf("scan registration: %w", err)
		}
		regs = append(regs, *reg)
	}
	return regs, rows.Err()
}

// Create inserts a Pending registration. The (camp_id, participant_email)
// unique constraint turns a second enrollment into ErrAlreadyRegistered, and
// a camp deleted in the meantime into ErrNotFound.
func (r *RegistrationRepository) Create(ctx context.Context, reg *model.Registration) error {
	if reg.ID == "" {
		reg.ID = uuid.New().String()
	}
	reg.CreatedAt = time.Now().UTC()

	tag, err := r.db.Exec(ctx,
		`INSERT INTO registrations (`+registrationColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		 ON CONFLICT (camp_id, participant_email) DO NOTHING`,
		reg.ID, reg.CampID, reg.CampName, reg.CampFee, reg.Location, reg.HealthcareProfessional,
		reg.ParticipantName, reg.ParticipantEmail, reg.Age, reg.Phone, reg.Gender,
		reg.EmergencyContact, reg.OrganizerEmail, reg.PaymentStatus, reg.ConfirmationStatus,
		reg.TransactionID, reg.FeedbackGiven, reg.CreatedAt,
	)
	if err != nil {
		if pgCode(err) == pgForeignKeyViolation {
			return ErrNotFound
		}
		return fmt.Errorf("insert registration: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAlreadyRegistered
	}
	return nil
}

// GetByID returns a single registration or ErrNotFound.
func (r *RegistrationRepository) GetByID(ctx context.Context, id string) (*model.Registration, error) {
	reg, err := scanRegistration(r.db.QueryRow(ctx,
		`SELECT `+registrationColumns+` FROM registrations WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get registration: %w", err)
	}
	return reg, nil
}

// FindByCampAndParticipant returns the participant's registration for a camp.
func (r *RegistrationRepository) FindByCampAndParticipant(ctx context.Context, campID, email string) (*model.Registration, error) {
	reg, err := scanRegistration(r.db.QueryRow(ctx,
		`SELECT `+registrationColumns+` FROM registrations
		 WHERE camp_id = $1 AND participant_email = $2`, campID, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find registration: %w", err)
	}
	return reg, nil
}

// ListByParticipant returns a participant's registrations, newest first.
func (r *RegistrationRepository) ListByParticipant(ctx context.Context, email string) ([]model.Registration, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+registrationColumns+` FROM registrations
		 WHERE participant_email = $1 ORDER BY created_at DESC`, email)
	if err != nil {
		return nil, fmt.Errorf("list participant registrations: %w", err)
	}
	return collectRegistrations(rows)
}

// ListByOrganizer returns registrations for all camps of one organizer.
func (r *RegistrationRepository) ListByOrganizer(ctx context.Context, email string) ([]model.Registration, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+registrationColumns+` FROM registrations
		 WHERE organizer_email = $1 ORDER BY created_at DESC`, email)
	if err != nil {
		return nil, fmt.Errorf("list organizer registrations: %w", err)
	}
	return collectRegistrations(rows)
}

// CountByCamp counts the registrations referencing a camp.
func (r *RegistrationRepository) CountByCamp(ctx context.Context, campID string) (int64, error) {
	var n int64
	if err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM registrations WHERE camp_id = $1`, campID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count registrations: %w", err)
	}
	return n, nil
}

// MarkPaid moves a Pending registration to Paid, and to Confirmed as well
// when confirm is set. It reports false when the registration was not
// Pending (already paid, or gone).
func (r *RegistrationRepository) MarkPaid(ctx context.Context, id, transactionID string, confirm bool) (bool, error) {
	confirmation := model.ConfirmationPending
	if confirm {
		confirmation = model.ConfirmationConfirmed
	}
	tag, err := r.db.Exec(ctx,
		`UPDATE registrations
		 SET payment_status = $2, confirmation_status = $3, transaction_id = $4
		 WHERE id = $1 AND payment_status = $5`,
		id, model.PaymentPaid, confirmation, transactionID, model.PaymentPending,
	)
	if err != nil {
		return false, fmt.Errorf("mark registration paid: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// ReleasePaid undoes MarkPaid for a registration whose transaction id could
// not be recorded in the settlement log. Only a Paid row still carrying
// transactionID is reset.
func (r *RegistrationRepository) ReleasePaid(ctx context.Context, id, transactionID string) (bool, error) {
	tag, err := r.db.Exec(ctx,
		`UPDATE registrations
		 SET payment_status = $2, confirmation_status = $3, transaction_id = ''
		 WHERE id = $1 AND payment_status = $4 AND transaction_id = $5`,
		id, model.PaymentPending, model.ConfirmationPending, model.PaymentPaid, transactionID,
	)
	if err != nil {
		return false, fmt.Errorf("release paid registration: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// MarkConfirmed confirms a Paid, unconfirmed registration.
func (r *RegistrationRepository) MarkConfirmed(ctx context.Context, id string) (bool, error) {
	tag, err := r.db.Exec(ctx,
		`UPDATE registrations SET confirmation_status = $2
		 WHERE id = $1 AND payment_status = $3 AND confirmation_status = $4`,
		id, model.ConfirmationConfirmed, model.PaymentPaid, model.ConfirmationPending,
	)
	if err != nil {
		return false, fmt.Errorf("confirm registration: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// MarkFeedbackGiven flags the participant's registration for a camp.
func (r *RegistrationRepository) MarkFeedbackGiven(ctx context.Context, campID, email string) error {
	_, err := r.db.Exec(ctx,
		`UPDATE registrations SET feedback_given = TRUE
		 WHERE camp_id = $1 AND participant_email = $2`, campID, email)
	if err != nil {
		return fmt.Errorf("mark feedback given: %w", err)
	}
	return nil
}

// DeleteUnpaid deletes the registration only while its payment is Pending.
func (r *RegistrationRepository) DeleteUnpaid(ctx context.Context, id string) (bool, error) {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM registrations WHERE id = $1 AND payment_status = $2`, id, model.PaymentPending)
	if err != nil {
		return false, fmt.Errorf("delete unpaid registration: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// DeleteUnlessSettled deletes the registration unless it is both Paid and
// Confirmed.
func (r *RegistrationRepository) DeleteUnlessSettled(ctx context.Context, id string) (bool, error) {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM registrations
		 WHERE id = $1 AND NOT (payment_status = $2 AND confirmation_status = $3)`,
		id, model.PaymentPaid, model.ConfirmationConfirmed)
	if err != nil {
		return false, fmt.Errorf("delete registration: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}
