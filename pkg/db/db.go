package db

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Client wraps the MongoDB client and database connection and implements
// docstore.Store.
type Client struct {
	mongoClient *mongo.Client
	database    *mongo.Database
}

// NewClient creates a new database client
func NewClient(connectionString, databaseName string) *Client {
	clientOptions := options.Client().ApplyURI(connectionString)
	mongoClient, err := mongo.Connect(context.Background(), clientOptions)
	if err != nil {
		// Return client with nil - error will be caught during Connect()
		return &Client{}
	}

	return &Client{
		mongoClient: mongoClient,
		database:    mongoClient.Database(databaseName),
	}
}

// Connect establishes connection to MongoDB
func (c *Client) Connect(ctx context.Context) error {
	if c.mongoClient == nil {
		return fmt.Errorf("mongo client not initialized")
	}
	return c.mongoClient.Ping(ctx, nil)
}

// Close closes the MongoDB connection
func (c *Client) Close(ctx context.Context) error {
	if c.mongoClient == nil {
		return nil
	}
	return c.mongoClient.Disconnect(ctx)
}

func (c *Client) collection(name string) (*mongo.Collection, error) {
	if c.database == nil {
		return nil, fmt.Errorf("database not initialized")
	}
	return c.database.Collection(name), nil
}

// Get decodes the document with the given id into out.
func (c *Client) Get(ctx context.Context, collection, id string, out any) (bool, error) {
	coll, err := c.collection(collection)
	if err != nil {
		return false, err
	}

	err = coll.FindOne(ctx, bson.M{"_id": id}).Decode(out)
	if err == mongo.ErrNoDocuments {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("find %s/%s: %w", collection, id, err)
	}
	return true, nil
}

// Upsert replaces the document with the given id, creating it if absent.
func (c *Client) Upsert(ctx context.Context, collection, id string, doc any) error {
	coll, err := c.collection(collection)
	if err != nil {
		return err
	}

	opts := options.Replace().SetUpsert(true)
	if _, err := coll.ReplaceOne(ctx, bson.M{"_id": id}, doc, opts); err != nil {
		return fmt.Errorf("upsert %s/%s: %w", collection, id, err)
	}
	return nil
}

// Delete removes the document with the given id.
func (c *Client) Delete(ctx context.Context, collection, id string) error {
	coll, err := c.collection(collection)
	if err != nil {
		return err
	}

	if _, err := coll.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return fmt.Errorf("delete %s/%s: %w", collection, id, err)
	}
	return nil
}

// FindByField decodes all documents where field == value into out (a pointer to a slice).
func (c *Client) FindByField(ctx context.Context, collection, field string, value any, out any) error {
	coll, err := c.collection(collection)
	if err != nil {
		return err
	}

	cursor, err := coll.Find(ctx, bson.M{field: value}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return fmt.Errorf("query %s by %s: %w", collection, field, err)
	}
	defer cursor.Close(ctx)

	if err := cursor.All(ctx, out); err != nil {
		return fmt.Errorf("cursor error: %w", err)
	}
	return nil
}
