package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoCollection is the subset of *mongo.Collection used by the Mongo repository.
type MongoCollection interface {
	FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) *mongo.SingleResult
	UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error)
}

// MongoCollectionName is the collection holding durable keys.
const MongoCollectionName = "storage_entries"

type storageDocument struct {
	Key       string    `bson:"_id"`
	Value     string    `bson:"value"`
	UpdatedAt time.Time `bson:"updatedAt"`
}

type mongoSnapshotRepository struct {
	coll MongoCollection
	key  string
	now  func() time.Time
}

// NewMongoSnapshotRepository keeps the snapshot in one document keyed by _id.
func NewMongoSnapshotRepository(coll MongoCollection, key string) SnapshotRepository {
	return &mongoSnapshotRepository{coll: coll, key: key, now: time.Now}
}

func (r *mongoSnapshotRepository) Load(ctx context.Context) ([]byte, error) {
	var doc storageDocument
	if err := r.coll.FindOne(ctx, bson.M{"_id": r.key}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrSnapshotNotFound
		}
		return nil, fmt.Errorf("find snapshot: %w", err)
	}
	return []byte(doc.Value), nil
}

func (r *mongoSnapshotRepository) Save(ctx context.Context, data []byte) error {
	update := bson.M{"$set": bson.M{
		"value":     string(data),
		"updatedAt": r.now().UTC(),
	}}
	if _, err := r.coll.UpdateOne(ctx, bson.M{"_id": r.key}, update, options.Update().SetUpsert(true)); err != nil {
		return fmt.Errorf("upsert snapshot: %w", err)
	}
	return nil
}
