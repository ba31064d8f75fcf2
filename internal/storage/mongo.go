package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// DefaultMongoCollection is used when no collection name is configured.
const DefaultMongoCollection = "blobs"

// MongoStore keeps one document per key, with the key as _id.
type MongoStore struct {
	blobs  *mongo.Collection
	client *mongo.Client // set when the store owns the connection
}

type blobDocument struct {
	Key       string    `bson:"_id"`
	Data      []byte    `bson:"data"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// NewMongoStore creates a store on an existing collection.
func NewMongoStore(coll *mongo.Collection) *MongoStore {
	return &MongoStore{blobs: coll}
}

// NewMongoStoreFromURI connects to uri and uses database.collection.
func NewMongoStoreFromURI(ctx context.Context, uri, database, collection string) (*MongoStore, error) {
	if uri == "" || database == "" {
		return nil, fmt.Errorf("%w: mongo uri and database are required", ErrInvalidInput)
	}
	if collection == "" {
		collection = DefaultMongoCollection
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	return &MongoStore{
		blobs:  client.Database(database).Collection(collection),
		client: client,
	}, nil
}

// Get returns the document data stored under key.
func (s *MongoStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}

	var doc blobDocument
	err := s.blobs.FindOne(ctx, bson.M{"_id": key}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return nil, fmt.Errorf("failed to find %s: %w", key, err)
	}
	return doc.Data, nil
}

// Put upserts the document for key.
func (s *MongoStore) Put(ctx context.Context, key string, data []byte) error {
	if err := validateKey(key); err != nil {
		return err
	}

	filter := bson.M{"_id": key}
	update := bson.M{"$set": bson.M{
		"data":       data,
		"updated_at": time.Now().UTC(),
	}}
	if _, err := s.blobs.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true)); err != nil {
		return fmt.Errorf("failed to upsert %s: %w", key, err)
	}
	return nil
}

// Close disconnects the client if the store created it.
func (s *MongoStore) Close() error {
	if s.client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}
