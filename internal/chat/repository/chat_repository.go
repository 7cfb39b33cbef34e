package repository

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"gochats/internal/common"
	"gochats/internal/dbmongo"
)

//go:generate mockgen -destination=mocks/mock_chat_repository.go -package=mocks gochats/internal/chat/repository ChatRepository

type ChatRepository interface {
	Save(ctx context.Context, msg *dbmongo.Message) error
	FetchChat(ctx context.Context, userA, userB string) ([]*dbmongo.Message, error)
	FindByID(ctx context.Context, id string) (*dbmongo.Message, error)
	UpdateStatus(ctx context.Context, id string, status dbmongo.MessageStatus) (*dbmongo.Message, error)
	Delete(ctx context.Context, id string) (*dbmongo.Message, error)
}

type chatRepo struct {
	coll *mongo.Collection
}

func NewChatRepository(coll *mongo.Collection) ChatRepository {
	return &chatRepo{coll: coll}
}

// EnsureIndexes creates the index serving the chat history query.
func EnsureIndexes(ctx context.Context, coll *mongo.Collection) error {
	_, err := coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "writerUserId", Value: 1},
			{Key: "receiverUserId", Value: 1},
			{Key: "shippingDate", Value: 1},
		},
		Options: options.Index().SetName("chat_pair_shipping_date"),
	})
	if err != nil {
		return fmt.Errorf("failed to create chat index: %w", err)
	}
	return nil
}

// Save inserts msg and assigns its id.
func (r *chatRepo) Save(ctx context.Context, msg *dbmongo.Message) error {
	if msg.ID.IsZero() {
		msg.ID = primitive.NewObjectID()
	}
	if _, err := r.coll.InsertOne(ctx, msg); err != nil {
		msg.ID = primitive.NilObjectID
		return fmt.Errorf("failed to insert message: %w", err)
	}
	return nil
}

// FetchChat returns both directions of the conversation, oldest first; _id breaks ties.
func (r *chatRepo) FetchChat(ctx context.Context, userA, userB string) ([]*dbmongo.Message, error) {
	filter := bson.M{
		"$or": bson.A{
			bson.M{"writerUserId": userA, "receiverUserId": userB},
			bson.M{"writerUserId": userB, "receiverUserId": userA},
		},
	}
	opts := options.Find().SetSort(bson.D{{Key: "shippingDate", Value: 1}, {Key: "_id", Value: 1}})

	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query chat: %w", err)
	}

	messages := make([]*dbmongo.Message, 0)
	if err := cursor.All(ctx, &messages); err != nil {
		return nil, fmt.Errorf("failed to decode chat: %w", err)
	}
	return messages, nil
}

func (r *chatRepo) FindByID(ctx context.Context, id string) (*dbmongo.Message, error) {
	oid, err := parseID(id)
	if err != nil {
		return nil, err
	}

	var msg dbmongo.Message
	if err := r.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&msg); err != nil {
		return nil, mapSingleResultErr(id, err)
	}
	return &msg, nil
}

func (r *chatRepo) UpdateStatus(ctx context.Context, id string, status dbmongo.MessageStatus) (*dbmongo.Message, error) {
	oid, err := parseID(id)
	if err != nil {
		return nil, err
	}

	update := bson.M{"$set": bson.M{"messageStatus": status}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var msg dbmongo.Message
	if err := r.coll.FindOneAndUpdate(ctx, bson.M{"_id": oid}, update, opts).Decode(&msg); err != nil {
		return nil, mapSingleResultErr(id, err)
	}
	return &msg, nil
}

// Delete removes the message and returns what was stored.
func (r *chatRepo) Delete(ctx context.Context, id string) (*dbmongo.Message, error) {
	oid, err := parseID(id)
	if err != nil {
		return nil, err
	}

	var msg dbmongo.Message
	if err := r.coll.FindOneAndDelete(ctx, bson.M{"_id": oid}).Decode(&msg); err != nil {
		return nil, mapSingleResultErr(id, err)
	}
	return &msg, nil
}

// parseID treats a malformed id like a missing one.
func parseID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, common.NotFoundError(fmt.Sprintf("Message with id: %s not found", id), err)
	}
	return oid, nil
}

func mapSingleResultErr(id string, err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return common.NotFoundError(fmt.Sprintf("Message with id: %s not found", id), err)
	}
	return fmt.Errorf("message %s: %w", id, err)
}
