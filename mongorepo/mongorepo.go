// Package mongorepo is the reference repository.Repository adapter
// backed by go.mongodb.org/mongo-driver, grounded on the teacher's own
// use of the driver for tx-delivery logging
// (core/tx_pool_bot_customizations.go's checkForArbBotAndLogIfSeen):
// one collection, one document per key, every call bounded by a
// context timeout instead of inheriting the caller's deadline
// unconditionally. It is not part of the Portfolio's public contract —
// any other repository.Repository implementation is a drop-in swap.
package mongorepo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// requestTimeout bounds every Mongo round trip independently of
// whatever deadline (if any) the caller's context already carries.
const requestTimeout = 5 * time.Second

// document is the on-disk shape: _id is the Repository key, value is
// the opaque JSON payload the Portfolio asked to store.
type document struct {
	Key   string `bson:"_id"`
	Value []byte `bson:"value"`
}

// Repository is a Mongo-backed repository.Repository.
type Repository struct {
	collection *mongo.Collection
}

// New wraps the named database/collection on client.
func New(client *mongo.Client, database, collection string) *Repository {
	return &Repository{collection: client.Database(database).Collection(collection)}
}

// Get returns the stored value for key, or (nil, false, nil) if absent.
func (r *Repository) Get(ctx context.Context, key string) ([]byte, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	var doc document
	err := r.collection.FindOne(ctx, bson.M{"_id": key}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return doc.Value, true, nil
}

// Set upserts value under key.
func (r *Repository) Set(ctx context.Context, key string, value []byte) error {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	_, err := r.collection.UpdateOne(
		ctx,
		bson.M{"_id": key},
		bson.M{"$set": bson.M{"value": value}},
		options.Update().SetUpsert(true),
	)
	return err
}

// Delete removes key. It is not an error for key to already be absent,
// matching the Rust original's idempotent remove_position.
func (r *Repository) Delete(ctx context.Context, key string) error {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	_, err := r.collection.DeleteOne(ctx, bson.M{"_id": key})
	return err
}
