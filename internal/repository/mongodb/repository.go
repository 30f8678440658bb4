package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/mamadbah2/milktracker/internal/domain/calendar"
	"github.com/mamadbah2/milktracker/internal/domain/models"
	"github.com/mamadbah2/milktracker/internal/domain/vacation"
	"github.com/mamadbah2/milktracker/internal/repository"
)

const (
	entriesCollection  = "milk_entries"
	defaultsCollection = "milk_defaults"
	paymentsCollection = "payments"

	defaultsDocumentID = 1
)

// MongoDBRepository implements repository.Store for MongoDB.
type MongoDBRepository struct {
	client   *mongo.Client
	entries  *mongo.Collection
	defaults *mongo.Collection
	payments *mongo.Collection
	logger   *zap.Logger
}

var _ repository.Store = (*MongoDBRepository)(nil)

// NewMongoDBRepository connects to MongoDB and makes sure the unique indexes exist.
func NewMongoDBRepository(ctx context.Context, uri string, dbName string, logger *zap.Logger) (*MongoDBRepository, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	clientOptions := options.Client().ApplyURI(uri)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	// Ping the database to verify connection
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	db := client.Database(dbName)
	r := &MongoDBRepository{
		client:   client,
		entries:  db.Collection(entriesCollection),
		defaults: db.Collection(defaultsCollection),
		payments: db.Collection(paymentsCollection),
		logger:   logger,
	}

	if err := r.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}

	return r, nil
}

func (r *MongoDBRepository) ensureIndexes(ctx context.Context) error {
	if _, err := r.entries.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "date", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("uniq_entry_date"),
	}); err != nil {
		return fmt.Errorf("failed to create entry date index: %w", err)
	}

	if _, err := r.payments.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "month_key", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("uniq_payment_month"),
	}); err != nil {
		return fmt.Errorf("failed to create payment month index: %w", err)
	}

	return nil
}

// GetDefaults loads the singleton configuration document.
func (r *MongoDBRepository) GetDefaults(ctx context.Context) (models.Defaults, error) {
	var doc defaultsDocument
	err := r.defaults.FindOne(ctx, bson.M{"_id": defaultsDocumentID}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Defaults{}, fmt.Errorf("milk defaults: %w", repository.ErrNotFound)
		}
		return models.Defaults{}, storageErr("get milk defaults", err)
	}
	return decodedDefaults("get milk defaults", doc)
}

// EnsureDefaults seeds the configuration document when it does not exist yet.
func (r *MongoDBRepository) EnsureDefaults(ctx context.Context, d models.Defaults) error {
	from, to := windowFields(d.Window())
	// _id comes from the filter on upsert.
	fields := bson.M{
		"auto_entry_enabled": d.AutoEntryEnabled,
		"quantity":           d.DefaultQuantity.String(),
		"rate":               d.DefaultRate.String(),
		"vacation_from":      from,
		"vacation_to":        to,
		"updated_at":         time.Now().UTC(),
	}

	res, err := r.defaults.UpdateOne(ctx,
		bson.M{"_id": defaultsDocumentID},
		bson.M{"$setOnInsert": fields},
		options.Update().SetUpsert(true))
	if err != nil {
		return storageErr("seed milk defaults", err)
	}
	if res.UpsertedCount > 0 {
		r.logger.Info("milk defaults seeded",
			zap.Bool("auto_entry_enabled", d.AutoEntryEnabled),
			zap.String("quantity", d.DefaultQuantity.String()),
			zap.String("rate", d.DefaultRate.String()))
	}
	return nil
}

// UpdateDefaults writes the auto-entry flag, quantity and rate.
func (r *MongoDBRepository) UpdateDefaults(ctx context.Context, d models.Defaults) (models.Defaults, error) {
	return r.updateDefaults(ctx, "update milk defaults", bson.M{
		"auto_entry_enabled": d.AutoEntryEnabled,
		"quantity":           d.DefaultQuantity.String(),
		"rate":               d.DefaultRate.String(),
		"updated_at":         time.Now().UTC(),
	})
}

// UpdateVacationWindow replaces both bounds with a single $set.
func (r *MongoDBRepository) UpdateVacationWindow(ctx context.Context, w vacation.Window) (models.Defaults, error) {
	from, to := windowFields(w)
	return r.updateDefaults(ctx, "update vacation window", bson.M{
		"vacation_from": from,
		"vacation_to":   to,
		"updated_at":    time.Now().UTC(),
	})
}

func (r *MongoDBRepository) updateDefaults(ctx context.Context, op string, set bson.M) (models.Defaults, error) {
	var doc defaultsDocument
	err := r.defaults.FindOneAndUpdate(ctx,
		bson.M{"_id": defaultsDocumentID},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Defaults{}, fmt.Errorf("%s: %w", op, repository.ErrNotFound)
		}
		return models.Defaults{}, storageErr(op, err)
	}
	return decodedDefaults(op, doc)
}

// FindEntryByDate returns the entry for date or nil.
func (r *MongoDBRepository) FindEntryByDate(ctx context.Context, date calendar.Date) (*models.MilkEntry, error) {
	var doc entryDocument
	err := r.entries.FindOne(ctx, bson.M{"date": string(date)}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, storageErr("find entry by date", err)
	}
	entry, err := decodedEntry("find entry by date", doc)
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// InsertEntry saves an entry; the unique date index turns a second insert into repository.ErrConflict.
func (r *MongoDBRepository) InsertEntry(ctx context.Context, entry models.MilkEntry) (models.MilkEntry, error) {
	doc := entryDocumentFromModel(entry, time.Now().UTC())
	res, err := r.entries.InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return models.MilkEntry{}, fmt.Errorf("entry for %s: %w", entry.Date, repository.ErrConflict)
		}
		return models.MilkEntry{}, storageErr("insert entry", err)
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		doc.ID = oid
	}
	return decodedEntry("insert entry", doc)
}

// GetEntry loads an entry by its hex ObjectID.
func (r *MongoDBRepository) GetEntry(ctx context.Context, id string) (models.MilkEntry, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return models.MilkEntry{}, fmt.Errorf("entry %q: %w", id, repository.ErrNotFound)
	}
	var doc entryDocument
	if err := r.entries.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.MilkEntry{}, fmt.Errorf("entry %q: %w", id, repository.ErrNotFound)
		}
		return models.MilkEntry{}, storageErr("get entry", err)
	}
	return decodedEntry("get entry", doc)
}

// ListEntries returns every entry, newest first.
func (r *MongoDBRepository) ListEntries(ctx context.Context) ([]models.MilkEntry, error) {
	return r.findEntries(ctx, "list entries", bson.M{}, -1)
}

// ListEntriesInRange returns entries with start <= date < end, oldest first.
func (r *MongoDBRepository) ListEntriesInRange(ctx context.Context, start, end calendar.Date) ([]models.MilkEntry, error) {
	filter := bson.M{"date": bson.M{"$gte": string(start), "$lt": string(end)}}
	return r.findEntries(ctx, "list entries in range", filter, 1)
}

func (r *MongoDBRepository) findEntries(ctx context.Context, op string, filter bson.M, order int) ([]models.MilkEntry, error) {
	cursor, err := r.entries.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "date", Value: order}}))
	if err != nil {
		return nil, storageErr(op, err)
	}
	defer cursor.Close(ctx)

	var docs []entryDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, storageErr(op, err)
	}

	entries := make([]models.MilkEntry, 0, len(docs))
	for _, doc := range docs {
		entry, err := decodedEntry(op, doc)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// UpdateEntry rewrites date, quantity, rate, total and notes of an existing entry.
func (r *MongoDBRepository) UpdateEntry(ctx context.Context, entry models.MilkEntry) (models.MilkEntry, error) {
	oid, err := primitive.ObjectIDFromHex(entry.ID)
	if err != nil {
		return models.MilkEntry{}, fmt.Errorf("entry %q: %w", entry.ID, repository.ErrNotFound)
	}

	set := bson.M{
		"date":       string(entry.Date),
		"quantity":   entry.Quantity.String(),
		"rate":       entry.Rate.String(),
		"notes":      entry.Notes,
		"updated_at": time.Now().UTC(),
	}
	update := bson.M{"$set": set}
	if entry.Total.Valid {
		set["total"] = entry.Total.Decimal.String()
	} else {
		update["$unset"] = bson.M{"total": ""}
	}

	var doc entryDocument
	err = r.entries.FindOneAndUpdate(ctx, bson.M{"_id": oid}, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&doc)
	if err != nil {
		switch {
		case errors.Is(err, mongo.ErrNoDocuments):
			return models.MilkEntry{}, fmt.Errorf("entry %q: %w", entry.ID, repository.ErrNotFound)
		case mongo.IsDuplicateKeyError(err):
			return models.MilkEntry{}, fmt.Errorf("entry for %s: %w", entry.Date, repository.ErrConflict)
		}
		return models.MilkEntry{}, storageErr("update entry", err)
	}
	return decodedEntry("update entry", doc)
}

// DeleteEntry removes an entry by id.
func (r *MongoDBRepository) DeleteEntry(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("entry %q: %w", id, repository.ErrNotFound)
	}
	res, err := r.entries.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return storageErr("delete entry", err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("entry %q: %w", id, repository.ErrNotFound)
	}
	return nil
}

// FindPaymentByMonthKey returns the payment of the month or nil.
func (r *MongoDBRepository) FindPaymentByMonthKey(ctx context.Context, month calendar.MonthKey) (*models.Payment, error) {
	var doc paymentDocument
	err := r.payments.FindOne(ctx, bson.M{"month_key": string(month)}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, storageErr("find payment by month", err)
	}
	payment, err := decodedPayment("find payment by month", doc)
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

// InsertPayment records a payment; the unique month index turns a duplicate into repository.ErrConflict.
func (r *MongoDBRepository) InsertPayment(ctx context.Context, payment models.Payment) (models.Payment, error) {
	doc := paymentDocument{
		MonthKey:   string(payment.MonthKey),
		AmountPaid: payment.AmountPaid.String(),
		PaidOn:     string(payment.PaidOn),
		Notes:      payment.Notes,
		CreatedAt:  time.Now().UTC(),
	}
	res, err := r.payments.InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return models.Payment{}, fmt.Errorf("payment for %s: %w", payment.MonthKey, repository.ErrConflict)
		}
		return models.Payment{}, storageErr("insert payment", err)
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		doc.ID = oid
	}
	return decodedPayment("insert payment", doc)
}

// ListPayments returns all payments, latest month first.
func (r *MongoDBRepository) ListPayments(ctx context.Context) ([]models.Payment, error) {
	cursor, err := r.payments.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "month_key", Value: -1}}))
	if err != nil {
		return nil, storageErr("list payments", err)
	}
	defer cursor.Close(ctx)

	var docs []paymentDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, storageErr("list payments", err)
	}

	payments := make([]models.Payment, 0, len(docs))
	for _, doc := range docs {
		payment, err := decodedPayment("list payments", doc)
		if err != nil {
			return nil, err
		}
		payments = append(payments, payment)
	}
	return payments, nil
}

// Close closes the MongoDB connection.
func (r *MongoDBRepository) Close(ctx context.Context) error {
	return r.client.Disconnect(ctx)
}

func storageErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, repository.ErrStorage, err)
}

func decodedEntry(op string, doc entryDocument) (models.MilkEntry, error) {
	entry, err := doc.toModel()
	if err != nil {
		return models.MilkEntry{}, storageErr(op, err)
	}
	return entry, nil
}

func decodedDefaults(op string, doc defaultsDocument) (models.Defaults, error) {
	d, err := doc.toModel()
	if err != nil {
		return models.Defaults{}, storageErr(op, err)
	}
	return d, nil
}

func decodedPayment(op string, doc paymentDocument) (models.Payment, error) {
	payment, err := doc.toModel()
	if err != nil {
		return models.Payment{}, storageErr(op, err)
	}
	return payment, nil
}
