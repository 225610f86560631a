// Package mongostore implements the repositories on MongoDB. Uniqueness
// guards are unique (and partial unique) indexes; counter changes use a
// single pipeline update so they stay atomic per document.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Shivanand-hulikatti/medicamp/internal/model"
	"github.com/Shivanand-hulikatti/medicamp/internal/repository"
)

const (
	campsColl         = "camps"
	registrationsColl = "registrations"
	settlementsColl   = "settlements"
	feedbackColl      = "feedback"
	organizersColl    = "organizers"
	usersColl         = "users"
)

// Migrate creates the indexes every repository relies on.
func Migrate(ctx context.Context, db *mongo.Database) error {
	asc := func(keys ...string) bson.D {
		d := bson.D{}
		for _, k := range keys {
			d = append(d, bson.E{Key: k, Value: 1})
		}
		return d
	}
	unique := options.Index().SetUnique(true)

	indexes := map[string][]mongo.IndexModel{
		campsColl: {
			{Keys: asc("organizerEmail")},
			{Keys: bson.D{{Key: "participantCount", Value: -1}}},
		},
		registrationsColl: {
			{Keys: asc("campId", "participantEmail"), Options: unique},
			{Keys: asc("participantEmail")},
			{Keys: asc("organizerEmail")},
		},
		settlementsColl: {
			{Keys: asc("transactionId"), Options: unique},
			{
				Keys: asc("registrationId"),
				Options: options.Index().
					SetUnique(true).
					SetName("one_paid_per_registration").
					SetPartialFilterExpression(bson.M{"status": model.SettlementPaid}),
			},
			{Keys: bson.D{{Key: "participantEmail", Value: 1}, {Key: "createdAt", Value: -1}}},
		},
		feedbackColl: {
			{Keys: asc("campId", "participantEmail"), Options: unique},
			{Keys: asc("organizerEmail")},
		},
		organizersColl: {
			{Keys: asc("email"), Options: unique},
		},
		usersColl: {
			{Keys: asc("email"), Options: unique},
		},
	}
	for coll, models := range indexes {
		if _, err := db.Collection(coll).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("create %s indexes: %w", coll, err)
		}
	}
	return nil
}

func notFound(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return repository.ErrNotFound
	}
	return err
}

func findAll[T any](ctx context.Context, coll *mongo.Collection, filter any, opts ...*options.FindOptions) ([]T, error) {
	cur, err := coll.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	var out []T
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func newestFirst() *options.FindOptions {
	return options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
}

// ─── Camps ────────────────────────────────────────────────────────────────────

// CampRepository handles persistence for camps.
type CampRepository struct {
	camps         *mongo.Collection
	registrations *mongo.Collection
}

// NewCampRepository constructs a CampRepository.
func NewCampRepository(db *mongo.Database) *CampRepository {
	return &CampRepository{camps: db.Collection(campsColl), registrations: db.Collection(registrationsColl)}
}

func (r *CampRepository) Create(ctx context.Context, c *model.Camp) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	c.CreatedAt, c.UpdatedAt = now, now
	if _, err := r.camps.InsertOne(ctx, c); err != nil {
		return fmt.Errorf("insert camp: %w", err)
	}
	return nil
}

func (r *CampRepository) GetByID(ctx context.Context, id string) (*model.Camp, error) {
	var c model.Camp
	if err := r.camps.FindOne(ctx, bson.M{"_id": id}).Decode(&c); err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

func (r *CampRepository) List(ctx context.Context) ([]model.Camp, error) {
	return findAll[model.Camp](ctx, r.camps, bson.M{},
		options.Find().SetSort(bson.D{{Key: "participantCount", Value: -1}, {Key: "createdAt", Value: -1}}))
}

func (r *CampRepository) ListTop(ctx context.Context, n int) ([]model.Camp, error) {
	return findAll[model.Camp](ctx, r.camps, bson.M{},
		options.Find().SetSort(bson.D{{Key: "participantCount", Value: -1}}).SetLimit(int64(n)))
}

func (r *CampRepository) ListByOrganizer(ctx context.Context, email string) ([]model.Camp, error) {
	return findAll[model.Camp](ctx, r.camps, bson.M{"organizerEmail": email}, newestFirst())
}

func (r *CampRepository) Update(ctx context.Context, c *model.Camp) error {
	c.UpdatedAt = time.Now().UTC()
	res, err := r.camps.UpdateOne(ctx, bson.M{"_id": c.ID}, bson.M{"$set": bson.M{
		"campName":               c.Name,
		"image":                  c.Image,
		"campFees":               c.Fee,
		"dateTime":               c.ScheduledAt,
		"location":               c.Location,
		"healthcareProfessional": c.HealthcareProfessional,
		"description":            c.Description,
		"updatedAt":              c.UpdatedAt,
	}})
	if err != nil {
		return fmt.Errorf("update camp: %w", err)
	}
	if res.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// Delete removes a camp with no registrations. MongoDB has no foreign keys,
// so a registration racing this delete can still be orphaned; the service
// rejects new registrations for camps it cannot load.
func (r *CampRepository) Delete(ctx context.Context, id string) error {
	n, err := r.registrations.CountDocuments(ctx, bson.M{"campId": id})
	if err != nil {
		return fmt.Errorf("count registrations: %w", err)
	}
	if n > 0 {
		return repository.ErrInUse
	}
	res, err := r.camps.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete camp: %w", err)
	}
	if res.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// AdjustParticipantCount runs max(0, participantCount + delta) as a single
// pipeline update on the camp document.
func (r *CampRepository) AdjustParticipantCount(ctx context.Context, id string, delta int) error {
	update := mongo.Pipeline{
		{{Key: "$set", Value: bson.D{{Key: "participantCount", Value: bson.D{{Key: "$max", Value: bson.A{
			0,
			bson.D{{Key: "$add", Value: bson.A{bson.D{{Key: "$ifNull", Value: bson.A{"$participantCount", 0}}}, delta}}},
		}}}}}}},
	}
	res, err := r.camps.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return fmt.Errorf("adjust participantCount: %w", err)
	}
	if res.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *CampRepository) RecountParticipants(ctx context.Context) (int64, error) {
	camps, err := findAll[model.Camp](ctx, r.camps, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("list camps: %w", err)
	}
	var fixed int64
	for _, c := range camps {
		n, err := r.registrations.CountDocuments(ctx, bson.M{"campId": c.ID})
		if err != nil {
			return fixed, fmt.Errorf("count registrations: %w", err)
		}
		res, err := r.camps.UpdateOne(ctx,
			bson.M{"_id": c.ID, "participantCount": bson.M{"$ne": n}},
			bson.M{"$set": bson.M{"participantCount": n}})
		if err != nil {
			return fixed, fmt.Errorf("recount camp %s: %w", c.ID, err)
		}
		fixed += res.ModifiedCount
	}
	return fixed, nil
}

// ─── Registrations ────────────────────────────────────────────────────────────

// RegistrationRepository handles persistence for registrations.
type RegistrationRepository struct {
	coll *mongo.Collection
}

// NewRegistrationRepository constructs a RegistrationRepository.
func NewRegistrationRepository(db *mongo.Database) *RegistrationRepository {
	return &RegistrationRepository{coll: db.Collection(registrationsColl)}
}

func (r *RegistrationRepository) Create(ctx context.Context, reg *model.Registration) error {
	if reg.ID == "" {
		reg.ID = uuid.New().String()
	}
	reg.CreatedAt = time.Now().UTC()
	if _, err := r.coll.InsertOne(ctx, reg); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return repository.ErrAlreadyRegistered
		}
		return fmt.Errorf("insert registration: %w", err)
	}
	return nil
}

func (r *RegistrationRepository) findOne(ctx context.Context, filter bson.M) (*model.Registration, error) {
	var reg model.Registration
	if err := r.coll.FindOne(ctx, filter).Decode(&reg); err != nil {
		return nil, notFound(err)
	}
	return &reg, nil
}

func (r *RegistrationRepository) GetByID(ctx context.Context, id string) (*model.Registration, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *RegistrationRepository) FindByCampAndParticipant(ctx context.Context, campID, email string) (*model.Registration, error) {
	return r.findOne(ctx, bson.M{"campId": campID, "participantEmail": email})
}

func (r *RegistrationRepository) ListByParticipant(ctx context.Context, email string) ([]model.Registration, error) {
	return findAll[model.Registration](ctx, r.coll, bson.M{"participantEmail": email}, newestFirst())
}

func (r *RegistrationRepository) ListByOrganizer(ctx context.Context, email string) ([]model.Registration, error) {
	return findAll[model.Registration](ctx, r.coll, bson.M{"organizerEmail": email}, newestFirst())
}

func (r *RegistrationRepository) CountByCamp(ctx context.Context, campID string) (int64, error) {
	return r.coll.CountDocuments(ctx, bson.M{"campId": campID})
}

func (r *RegistrationRepository) MarkPaid(ctx context.Context, id, transactionID string, confirm bool) (bool, error) {
	confirmation := model.ConfirmationPending
	if confirm {
		confirmation = model.ConfirmationConfirmed
	}
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": id, "paymentStatus": model.PaymentPending},
		bson.M{"$set": bson.M{
			"paymentStatus":      model.PaymentPaid,
			"confirmationStatus": confirmation,
			"transactionId":      transactionID,
		}})
	if err != nil {
		return false, fmt.Errorf("mark registration paid: %w", err)
	}
	return res.MatchedCount == 1, nil
}

func (r *RegistrationRepository) ReleasePaid(ctx context.Context, id, transactionID string) (bool, error) {
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": id, "paymentStatus": model.PaymentPaid, "transactionId": transactionID},
		bson.M{
			"$set": bson.M{
				"paymentStatus":      model.PaymentPending,
				"confirmationStatus": model.ConfirmationPending,
			},
			"$unset": bson.M{"transactionId": ""},
		})
	if err != nil {
		return false, fmt.Errorf("release paid registration: %w", err)
	}
	return res.MatchedCount == 1, nil
}

func (r *RegistrationRepository) MarkConfirmed(ctx context.Context, id string) (bool, error) {
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": id, "paymentStatus": model.PaymentPaid, "confirmationStatus": model.ConfirmationPending},
		bson.M{"$set": bson.M{"confirmationStatus": model.ConfirmationConfirmed}})
	if err != nil {
		return false, fmt.Errorf("confirm registration: %w", err)
	}
	return res.MatchedCount == 1, nil
}

func (r *RegistrationRepository) MarkFeedbackGiven(ctx context.Context, campID, email string) error {
	_, err := r.coll.UpdateOne(ctx,
		bson.M{"campId": campID, "participantEmail": email},
		bson.M{"$set": bson.M{"feedbackGiven": true}})
	return err
}

func (r *RegistrationRepository) DeleteUnpaid(ctx context.Context, id string) (bool, error) {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id, "paymentStatus": model.PaymentPending})
	if err != nil {
		return false, fmt.Errorf("delete unpaid registration: %w", err)
	}
	return res.DeletedCount == 1, nil
}

func (r *RegistrationRepository) DeleteUnlessSettled(ctx context.Context, id string) (bool, error) {
	res, err := r.coll.DeleteOne(ctx, bson.M{
		"_id": id,
		"$nor": bson.A{bson.M{
			"paymentStatus":      model.PaymentPaid,
			"confirmationStatus": model.ConfirmationConfirmed,
		}},
	})
	if err != nil {
		return false, fmt.Errorf("delete registration: %w", err)
	}
	return res.DeletedCount == 1, nil
}

// ─── Settlements ──────────────────────────────────────────────────────────────

// SettlementRepository is the append-only settlement log.
type SettlementRepository struct {
	coll *mongo.Collection
}

// NewSettlementRepository constructs a SettlementRepository.
func NewSettlementRepository(db *mongo.Database) *SettlementRepository {
	return &SettlementRepository{coll: db.Collection(settlementsColl)}
}

func (r *SettlementRepository) Append(ctx context.Context, s *model.Settlement) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
	if _, err := r.coll.InsertOne(ctx, s); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return repository.ErrDuplicate
		}
		return fmt.Errorf("insert settlement: %w", err)
	}
	return nil
}

func (r *SettlementRepository) FindPaidByRegistration(ctx context.Context, registrationID string) (*model.Settlement, error) {
	var s model.Settlement
	err := r.coll.FindOne(ctx, bson.M{"registrationId": registrationID, "status": model.SettlementPaid}).Decode(&s)
	if err != nil {
		return nil, notFound(err)
	}
	return &s, nil
}

func (r *SettlementRepository) ListByParticipant(ctx context.Context, email string, limit, offset int) ([]model.Settlement, int64, error) {
	filter := bson.M{"participantEmail": email}
	total, err := r.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("count settlements: %w", err)
	}
	out, err := findAll[model.Settlement](ctx, r.coll, filter,
		newestFirst().SetSkip(int64(offset)).SetLimit(int64(limit)))
	return out, total, err
}

// ─── Feedback ─────────────────────────────────────────────────────────────────

// FeedbackRepository handles persistence for camp feedback.
type FeedbackRepository struct {
	coll *mongo.Collection
}

// NewFeedbackRepository constructs a FeedbackRepository.
func NewFeedbackRepository(db *mongo.Database) *FeedbackRepository {
	return &FeedbackRepository{coll: db.Collection(feedbackColl)}
}

func (r *FeedbackRepository) Create(ctx context.Context, f *model.Feedback) error {
	if f.ID == "" {
		f.ID = uuid.New().String()
	}
	f.CreatedAt = time.Now().UTC()
	if _, err := r.coll.InsertOne(ctx, f); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return repository.ErrDuplicate
		}
		return fmt.Errorf("insert feedback: %w", err)
	}
	return nil
}

func (r *FeedbackRepository) GetByID(ctx context.Context, id string) (*model.Feedback, error) {
	var f model.Feedback
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&f); err != nil {
		return nil, notFound(err)
	}
	return &f, nil
}

func (r *FeedbackRepository) ListByParticipant(ctx context.Context, email string) ([]model.Feedback, error) {
	return findAll[model.Feedback](ctx, r.coll, bson.M{"participantEmail": email}, newestFirst())
}

func (r *FeedbackRepository) ListByOrganizer(ctx context.Context, email string, pendingOnly bool) ([]model.Feedback, error) {
	filter := bson.M{"organizerEmail": email}
	if pendingOnly {
		filter["approved"] = false
	}
	return findAll[model.Feedback](ctx, r.coll, filter, newestFirst())
}

func (r *FeedbackRepository) ListApproved(ctx context.Context) ([]model.Feedback, error) {
	return findAll[model.Feedback](ctx, r.coll, bson.M{"approved": true}, newestFirst())
}

func (r *FeedbackRepository) Approve(ctx context.Context, id string) error {
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"approved": true}})
	if err != nil {
		return fmt.Errorf("approve feedback: %w", err)
	}
	if res.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *FeedbackRepository) Delete(ctx context.Context, id string) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete feedback: %w", err)
	}
	if res.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// ─── Organizers ───────────────────────────────────────────────────────────────

// OrganizerRepository is the organizer directory.
type OrganizerRepository struct {
	coll *mongo.Collection
}

// NewOrganizerRepository constructs an OrganizerRepository.
func NewOrganizerRepository(db *mongo.Database) *OrganizerRepository {
	return &OrganizerRepository{coll: db.Collection(organizersColl)}
}

func (r *OrganizerRepository) GetByEmail(ctx context.Context, email string) (*model.Organizer, error) {
	var o model.Organizer
	if err := r.coll.FindOne(ctx, bson.M{"email": email}).Decode(&o); err != nil {
		return nil, notFound(err)
	}
	return &o, nil
}

func (r *OrganizerRepository) Upsert(ctx context.Context, o *model.Organizer) error {
	o.UpdatedAt = time.Now().UTC()
	var stored model.Organizer
	err := r.coll.FindOneAndUpdate(ctx,
		bson.M{"email": o.Email},
		bson.M{
			"$set": bson.M{
				"name":           o.Name,
				"image":          o.Image,
				"telegramChatId": o.TelegramChatID,
				"updatedAt":      o.UpdatedAt,
			},
			"$setOnInsert": bson.M{"_id": uuid.New().String()},
		},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&stored)
	if err != nil {
		return fmt.Errorf("upsert organizer: %w", err)
	}
	o.ID = stored.ID
	return nil
}

// ─── Users ────────────────────────────────────────────────────────────────────

// UserRepository is the participant directory.
type UserRepository struct {
	coll *mongo.Collection
}

// NewUserRepository constructs a UserRepository.
func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{coll: db.Collection(usersColl)}
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	var u model.User
	if err := r.coll.FindOne(ctx, bson.M{"email": email}).Decode(&u); err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

func (r *UserRepository) Upsert(ctx context.Context, u *model.User) error {
	u.UpdatedAt = time.Now().UTC()
	var stored model.User
	err := r.coll.FindOneAndUpdate(ctx,
		bson.M{"email": u.Email},
		bson.M{
			"$set": bson.M{
				"name":      u.Name,
				"image":     u.Image,
				"phone":     u.Phone,
				"updatedAt": u.UpdatedAt,
			},
			"$setOnInsert": bson.M{"_id": uuid.New().String()},
		},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&stored)
	if err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	u.ID = stored.ID
	return nil
}
