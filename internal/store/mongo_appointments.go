package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"telehealth-server/internal/models"
)

const appointmentsCollection = "appointments"

// MongoAppointments stores appointments as documents in MongoDB.
type MongoAppointments struct {
	coll *mongo.Collection
}

// NewMongoAppointments binds to the appointments collection of db.
func NewMongoAppointments(db *mongo.Database) *MongoAppointments {
	return &MongoAppointments{coll: db.Collection(appointmentsCollection)}
}

// ConnectMongo opens a client and verifies the server answers.
func ConnectMongo(ctx context.Context, uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	return client, nil
}

// EnsureIndexes creates the uniqueness and lookup indexes. The partial
// filters keep the unique indexes scoped to documents that carry a key,
// i.e. scheduled or confirmed appointments.
func (s *MongoAppointments) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateMany(ctx, appointmentIndexes())
	if err != nil {
		return fmt.Errorf("create appointment indexes: %w", err)
	}
	return nil
}

func appointmentIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "activeSlotKey", Value: 1}},
			Options: options.Index().
				SetName("uniq_active_doctor_slot").
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"activeSlotKey": bson.M{"$type": "string"}}),
		},
		{
			Keys: bson.D{{Key: "activePatientKey", Value: 1}},
			Options: options.Index().
				SetName("uniq_active_patient_slot").
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"activePatientKey": bson.M{"$type": "string"}}),
		},
		{Keys: bson.D{{Key: "patientId", Value: 1}, {Key: "date", Value: 1}}},
		{Keys: bson.D{{Key: "doctorId", Value: 1}, {Key: "date", Value: 1}}},
		{Keys: bson.D{{Key: "date", Value: 1}, {Key: "timeSlot", Value: 1}}},
		{Keys: bson.D{{Key: "status", Value: 1}}},
	}
}

// Create inserts a new appointment. A unique-index rejection is reported as ErrDuplicate.
func (s *MongoAppointments) Create(ctx context.Context, a *models.Appointment) error {
	a.EnsureID()
	now := time.Now().UTC()
	a.CreatedAt, a.UpdatedAt = now, now
	a.RefreshActiveKeys()

	if _, err := s.coll.InsertOne(ctx, a); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: %v", ErrDuplicate, err)
		}
		return fmt.Errorf("insert appointment: %w", err)
	}
	return nil
}

// FindByID loads an appointment by id.
func (s *MongoAppointments) FindByID(ctx context.Context, id string) (*models.Appointment, error) {
	var a models.Appointment
	if err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&a); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find appointment: %w", err)
	}
	return &a, nil
}

// ActiveSlots returns the slot label of every active appointment a doctor has on a day.
func (s *MongoAppointments) ActiveSlots(ctx context.Context, doctorID string, day time.Time) ([]string, error) {
	cursor, err := s.coll.Find(ctx,
		activeFilter(bson.M{"doctorId": doctorID, "date": day}),
		options.Find().SetProjection(bson.M{"timeSlot": 1}),
	)
	if err != nil {
		return nil, fmt.Errorf("list active slots: %w", err)
	}
	var docs []struct {
		TimeSlot string `bson:"timeSlot"`
	}
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode active slots: %w", err)
	}
	slots := make([]string, len(docs))
	for i, d := range docs {
		slots[i] = d.TimeSlot
	}
	return slots, nil
}

// CountActiveInSlot counts active appointments for a doctor/day/slot.
func (s *MongoAppointments) CountActiveInSlot(ctx context.Context, doctorID string, day time.Time, slot string) (int64, error) {
	n, err := s.coll.CountDocuments(ctx, activeFilter(bson.M{"doctorId": doctorID, "date": day, "timeSlot": slot}))
	if err != nil {
		return 0, fmt.Errorf("count active appointments: %w", err)
	}
	return n, nil
}

// FindActiveForPatient returns the patient's active appointment in a slot, or ErrNotFound.
func (s *MongoAppointments) FindActiveForPatient(ctx context.Context, patientID string, day time.Time, slot string) (*models.Appointment, error) {
	var a models.Appointment
	err := s.coll.FindOne(ctx, activeFilter(bson.M{"patientId": patientID, "date": day, "timeSlot": slot})).Decode(&a)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find patient appointment: %w", err)
	}
	return &a, nil
}

// UpdateIfStatus writes the mutable fields of a only if the stored status still equals expected.
func (s *MongoAppointments) UpdateIfStatus(ctx context.Context, a *models.Appointment, expected models.AppointmentStatus) error {
	a.RefreshActiveKeys()
	a.UpdatedAt = time.Now().UTC()

	res, err := s.coll.UpdateOne(ctx, bson.M{"_id": a.ID, "status": expected}, updateDocument(a))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: %v", ErrDuplicate, err)
		}
		return fmt.Errorf("update appointment: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrStaleWrite
	}
	return nil
}

// MarkEmailSent records that the confirmation email went out.
func (s *MongoAppointments) MarkEmailSent(ctx context.Context, id string) error {
	res, err := s.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"emailSent": true}})
	if err != nil {
		return fmt.Errorf("mark email sent: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// List returns one page of appointments ordered by day and slot, plus the total match count.
func (s *MongoAppointments) List(ctx context.Context, f ListFilter) ([]models.Appointment, int64, error) {
	f.Normalize()
	filter := listFilter(f)

	total, err := s.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("count appointments: %w", err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "date", Value: 1}, {Key: "timeSlot", Value: 1}}).
		SetSkip(int64(f.Offset())).
		SetLimit(int64(f.Limit))
	cursor, err := s.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("list appointments: %w", err)
	}
	appointments := []models.Appointment{}
	if err := cursor.All(ctx, &appointments); err != nil {
		return nil, 0, fmt.Errorf("decode appointments: %w", err)
	}
	return appointments, total, nil
}

func activeFilter(filter bson.M) bson.M {
	filter["status"] = bson.M{"$in": activeStatusStrings()}
	return filter
}

func listFilter(f ListFilter) bson.M {
	filter := bson.M{}
	if f.PatientID != "" {
		filter["patientId"] = f.PatientID
	}
	if f.DoctorID != "" {
		filter["doctorId"] = f.DoctorID
	}
	if f.Status != "" {
		filter["status"] = string(f.Status)
	}
	switch {
	case f.Day != nil:
		filter["date"] = *f.Day
	case f.From != nil:
		filter["date"] = bson.M{"$gte": *f.From}
	}
	return filter
}

func updateDocument(a *models.Appointment) bson.M {
	set := bson.M{
		"status":           string(a.Status),
		"notes":            a.Notes,
		"diagnosis":        a.Diagnosis,
		"prescription":     a.Prescription,
		"followUpRequired": a.FollowUpRequired,
		"updatedAt":        a.UpdatedAt,
	}
	unset := bson.M{}
	if a.FollowUpDate != nil {
		set["followUpDate"] = *a.FollowUpDate
	} else {
		unset["followUpDate"] = ""
	}
	if a.ActiveSlotKey != nil {
		set["activeSlotKey"] = *a.ActiveSlotKey
		set["activePatientKey"] = *a.ActivePatientKey
	} else {
		unset["activeSlotKey"] = ""
		unset["activePatientKey"] = ""
	}

	update := bson.M{"$set": set}
	if len(unset) > 0 {
		update["$unset"] = unset
	}
	return update
}
