package storage

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type mongoBlobStore struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// ---------- BLOB STORE (ciphertext artifacts) ----------

func NewMongoBlobStore(ctx context.Context, uri, dbName, collName string) (BlobStore, error) {
	if uri == "" {
		return nil, errors.New("mongo uri is empty")
	}
	cli, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	// Verify connection quickly
	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := cli.Ping(pctx, nil); err != nil {
		_ = cli.Disconnect(ctx)
		return nil, err
	}

	coll := cli.Database(dbName).Collection(collName)

	_, _ = coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})

	return &mongoBlobStore{client: cli, coll: coll}, nil
}

func (m *mongoBlobStore) Put(ctx context.Context, name string, data []byte) error {
	if name == "" {
		return errors.New("empty name")
	}
	_, err := m.coll.UpdateByID(
		ctx,
		name,
		bson.M{
			"$set": bson.M{
				"data":      data,
				"updatedAt": time.Now(),
			},
			"$setOnInsert": bson.M{
				"createdAt": time.Now(),
			},
		},
		options.Update().SetUpsert(true),
	)
	return err
}

func (m *mongoBlobStore) Get(ctx context.Context, name string) ([]byte, error) {
	if name == "" {
		return nil, errors.New("empty name")
	}
	var doc struct {
		Data []byte `bson:"data"`
	}
	err := m.coll.FindOne(ctx, bson.M{"_id": name}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	return doc.Data, err
}

func (m *mongoBlobStore) Delete(ctx context.Context, name string) error {
	if name == "" {
		return errors.New("empty name")
	}
	_, err := m.coll.DeleteOne(ctx, bson.M{"_id": name})
	return err
}

func (m *mongoBlobStore) List(ctx context.Context) ([]string, error) {
	cur, err := m.coll.Find(ctx, bson.M{},
		options.Find().SetProjection(bson.M{"_id": 1}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var names []string
	for cur.Next(ctx) {
		var doc struct {
			ID string `bson:"_id"`
		}
		if err := cur.Decode(&doc); err == nil {
			names = append(names, doc.ID)
		}
	}
	return names, cur.Err()
}

func (m *mongoBlobStore) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}

// ---------- META STORE (ArtifactMeta index) ----------

// ArtifactMeta describes one synced ciphertext artifact. Only already-public
// facts go here; nothing about the plaintext leaks into the index.
type ArtifactMeta struct {
	Name       string `bson:"name" json:"name"`
	MediaType  string `bson:"mediaType" json:"mediaType"`
	SizeBytes  int64  `bson:"sizeBytes" json:"sizeBytes"`
	UploadedAt int64  `bson:"uploadedAt" json:"uploadedAt"`
}

type MetaStore interface {
	PutMeta(ctx context.Context, meta ArtifactMeta) error
	ListMeta(ctx context.Context, filter map[string]interface{}) ([]ArtifactMeta, error)
	DeleteMeta(ctx context.Context, name string) error
}

type MongoMetaStore struct {
	client *mongo.Client
	coll   *mongo.Collection
}

func NewMongoMetaStore(ctx context.Context, uri, dbName, collName string) (*MongoMetaStore, error) {
	if uri == "" {
		return nil, errors.New("mongo uri is empty")
	}
	cli, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	// Verify connection quickly
	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := cli.Ping(pctx, nil); err != nil {
		_ = cli.Disconnect(ctx)
		return nil, err
	}

	coll := cli.Database(dbName).Collection(collName)

	// Index on name (not _id) so re-uploads update metadata in place.
	_, _ = coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "name", Value: 1}},
		Options: options.Index().SetUnique(true),
	})

	return &MongoMetaStore{client: cli, coll: coll}, nil
}

func (m *MongoMetaStore) PutMeta(ctx context.Context, meta ArtifactMeta) error {
	if meta.Name == "" {
		return errors.New("empty meta.name")
	}
	_, err := m.coll.UpdateOne(
		ctx,
		bson.M{"name": meta.Name},
		bson.M{
			"$set": bson.M{
				"mediaType":  meta.MediaType,
				"sizeBytes":  meta.SizeBytes,
				"uploadedAt": meta.UploadedAt,
			},
			"$setOnInsert": bson.M{
				"createdAt": time.Now(),
			},
		},
		options.Update().SetUpsert(true),
	)
	return err
}

func (m *MongoMetaStore) ListMeta(ctx context.Context, filter map[string]interface{}) ([]ArtifactMeta, error) {
	cur, err := m.coll.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var results []ArtifactMeta
	for cur.Next(ctx) {
		var am ArtifactMeta
		if err := cur.Decode(&am); err == nil {
			results = append(results, am)
		}
	}
	return results, cur.Err()
}

func (m *MongoMetaStore) DeleteMeta(ctx context.Context, name string) error {
	_, err := m.coll.DeleteOne(ctx, bson.M{"name": name})
	return err
}
