// Package mongodb backs the message log with MongoDB for deployments that
// want the chat history to survive restarts. Only the message collection
// lives here; the rest of the record store stays in memory.
package mongodb

import (
	"context"
	"strconv"
	"time"

	"github.com/chimshield/backend/internal/store"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

type message struct {
	ID        int64     `bson:"_id"`
	UserID    int64     `bson:"userId"`
	Content   string    `bson:"content"`
	To        string    `bson:"to"`
	Sender    string    `bson:"sender"`
	Timestamp time.Time `bson:"timestamp"`
	Status    string    `bson:"status"`
}

type counter struct {
	ID    string `bson:"_id"`
	Value int64  `bson:"value"`
}

type Engine struct {
	messages *mongo.Collection
	counters *mongo.Collection
}

func NewEngine(client *mongo.Client, database string) *Engine {
	db := client.Database(database)

	return &Engine{
		messages: db.Collection("messages"),
		counters: db.Collection("counters"),
	}
}

func (e *Engine) Setup(ctx context.Context) error {
	userIndexModel := mongo.IndexModel{
		Keys: bson.D{
			{Key: "userId", Value: 1},
			{Key: "_id", Value: 1},
		},
	}

	toIndexModel := mongo.IndexModel{
		Keys: bson.D{
			{Key: "to", Value: 1},
			{Key: "_id", Value: 1},
		},
	}

	_, err := e.messages.Indexes().CreateMany(ctx, []mongo.IndexModel{userIndexModel, toIndexModel})

	return err
}

// nextID increments the message counter document atomically so identifiers
// stay strictly increasing across restarts.
func (e *Engine) nextID(ctx context.Context) (int64, error) {
	filter := bson.M{"_id": "messages"}
	update := bson.M{"$inc": bson.M{"value": 1}}
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var c counter
	err := e.counters.FindOneAndUpdate(ctx, filter, update, opts).Decode(&c)
	if err != nil {
		return 0, err
	}

	return c.Value, nil
}

func (e *Engine) AppendMessage(ctx context.Context, m store.Message) (store.Message, error) {
	id, err := e.nextID(ctx)
	if err != nil {
		return store.Message{}, err
	}

	m.ID = id

	_, err = e.messages.InsertOne(ctx, message{
		ID:        m.ID,
		UserID:    m.UserID,
		Content:   m.Content,
		To:        m.To,
		Sender:    m.Sender,
		Timestamp: m.Timestamp,
		Status:    m.Status,
	})
	if err != nil {
		return store.Message{}, err
	}

	return m, nil
}

func (e *Engine) MessagesForUser(ctx context.Context, userID int64) ([]store.Message, error) {
	filter := bson.M{
		"$or": bson.A{
			bson.M{"userId": userID},
			bson.M{"to": strconv.FormatInt(userID, 10)},
		},
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "_id", Value: 1}})

	result, err := e.messages.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}

	var mongoMessages []message
	err = result.All(ctx, &mongoMessages)
	if err != nil {
		return nil, err
	}

	messages := make([]store.Message, len(mongoMessages))
	for i, m := range mongoMessages {
		messages[i] = store.Message{
			ID:        m.ID,
			UserID:    m.UserID,
			Content:   m.Content,
			To:        m.To,
			Sender:    m.Sender,
			Timestamp: m.Timestamp,
			Status:    m.Status,
		}
	}

	return messages, nil
}
