package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/mrinalgaur2005/taskbot/model"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// userDocument is one document per Telegram user.
type userDocument struct {
	ID        int64         `bson:"_id"`
	Username  string        `bson:"username,omitempty"`
	UsernameL string        `bson:"username_lower,omitempty"`
	FirstName string        `bson:"first_name,omitempty"`
	LastName  string        `bson:"last_name,omitempty"`
	Tasks     []string      `bson:"tasks"`
	Session   model.Session `bson:"session"`
}

type MongoStore struct {
	client     *mongo.Client
	collection *mongo.Collection
}

func NewMongoStore(ctx context.Context, uri, database, collection string) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	coll := client.Database(database).Collection(collection)
	_, err = coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "username_lower", Value: 1}},
		Options: options.Index().SetSparse(true),
	})
	if err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("create username index: %w", err)
	}
	return &MongoStore{client: client, collection: coll}, nil
}

func (s *MongoStore) AddTask(ctx context.Context, userID int64, task string) ([]string, error) {
	var doc userDocument
	err := s.collection.FindOneAndUpdate(ctx,
		bson.M{"_id": userID},
		bson.M{"$push": bson.M{"tasks": task}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		return nil, fmt.Errorf("add task for %d: %w", userID, err)
	}
	return doc.Tasks, nil
}

func (s *MongoStore) Tasks(ctx context.Context, userID int64) ([]string, error) {
	doc, err := s.find(ctx, userID)
	if err != nil {
		return nil, err
	}
	if doc.Tasks == nil {
		return []string{}, nil
	}
	return doc.Tasks, nil
}

// removeAttempts bounds how often RemoveTask re-reads a list that changed under it.
const removeAttempts = 5

func (s *MongoStore) RemoveTask(ctx context.Context, userID int64, task string) (bool, error) {
	for attempt := 0; attempt < removeAttempts; attempt++ {
		doc, err := s.find(ctx, userID)
		if err != nil {
			return false, err
		}
		tasks, ok := removeFirst(doc.Tasks, task)
		if !ok {
			return false, nil
		}
		swapped, err := s.replaceTasks(ctx, userID, doc.Tasks, tasks)
		if err != nil {
			return false, err
		}
		if swapped {
			return true, nil
		}
	}
	return false, fmt.Errorf("remove task for %d: list changed %d times while removing", userID, removeAttempts)
}

// replaceTasks sets the list to next only if it still equals seen.
func (s *MongoStore) replaceTasks(ctx context.Context, userID int64, seen, next []string) (bool, error) {
	res, err := s.collection.UpdateOne(ctx,
		bson.M{"_id": userID, "tasks": seen},
		bson.M{"$set": bson.M{"tasks": next}},
	)
	if err != nil {
		return false, fmt.Errorf("remove task for %d: %w", userID, err)
	}
	return res.MatchedCount == 1, nil
}

func (s *MongoStore) Session(ctx context.Context, userID int64) (model.Session, error) {
	doc, err := s.find(ctx, userID)
	if err != nil {
		return model.Session{}, err
	}
	return doc.Session, nil
}

func (s *MongoStore) SaveSession(ctx context.Context, userID int64, sess model.Session) error {
	_, err := s.collection.UpdateOne(ctx,
		bson.M{"_id": userID},
		bson.M{"$set": bson.M{"session": sess}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("save session for %d: %w", userID, err)
	}
	return nil
}

func (s *MongoStore) ClearSession(ctx context.Context, userID int64) error {
	return s.SaveSession(ctx, userID, model.Session{})
}

func (s *MongoStore) RememberUser(ctx context.Context, u model.User) error {
	set := bson.M{
		"username":       u.Username,
		"username_lower": NormalizeUsername(u.Username),
		"first_name":     u.FirstName,
		"last_name":      u.LastName,
	}
	_, err := s.collection.UpdateOne(ctx,
		bson.M{"_id": u.ID},
		bson.M{"$set": set},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("remember user %d: %w", u.ID, err)
	}
	return nil
}

func (s *MongoStore) LookupUsername(ctx context.Context, username string) (model.User, error) {
	key := NormalizeUsername(username)
	if key == "" {
		return model.User{}, ErrNotFound
	}
	var doc userDocument
	err := s.collection.FindOne(ctx, bson.M{"username_lower": key}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return model.User{}, ErrNotFound
	}
	if err != nil {
		return model.User{}, fmt.Errorf("lookup username: %w", err)
	}
	return model.User{ID: doc.ID, Username: doc.Username, FirstName: doc.FirstName, LastName: doc.LastName}, nil
}

func (s *MongoStore) Stats(ctx context.Context) (model.Stats, error) {
	cursor, err := s.collection.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"tasks.0": bson.M{"$exists": true}}}},
		{{Key: "$group", Value: bson.M{
			"_id":   nil,
			"users": bson.M{"$sum": 1},
			"tasks": bson.M{"$sum": bson.M{"$size": "$tasks"}},
		}}},
	})
	if err != nil {
		return model.Stats{}, fmt.Errorf("aggregate stats: %w", err)
	}
	defer cursor.Close(ctx)

	var rows []struct {
		Users int `bson:"users"`
		Tasks int `bson:"tasks"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return model.Stats{}, fmt.Errorf("decode stats: %w", err)
	}
	if len(rows) == 0 {
		return model.Stats{}, nil
	}
	return model.Stats{UsersWithTasks: rows[0].Users, OpenTasks: rows[0].Tasks}, nil
}

func (s *MongoStore) Close() error {
	return s.client.Disconnect(context.Background())
}

func (s *MongoStore) find(ctx context.Context, userID int64) (userDocument, error) {
	var doc userDocument
	err := s.collection.FindOne(ctx, bson.M{"_id": userID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return userDocument{}, nil
	}
	if err != nil {
		return userDocument{}, fmt.Errorf("load user %d: %w", userID, err)
	}
	return doc, nil
}
