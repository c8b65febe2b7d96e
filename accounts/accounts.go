// Package accounts persists the users behind bearer tokens.
package accounts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"herbtrace/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	ErrEmailTaken = errors.New("email already registered")
	ErrNotFound   = errors.New("user not found")
)

// Store persists registered users.
type Store interface {
	Create(ctx context.Context, u *models.User) error
	ByEmail(ctx context.Context, email string) (*models.User, error)
	ByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
}

// Mongo keeps users in the "users" collection.
type Mongo struct {
	users *mongo.Collection
}

func NewMongo(db *mongo.Database) *Mongo {
	return &Mongo{users: db.Collection("users")}
}

// EnsureIndexes makes email unique.
func (m *Mongo) EnsureIndexes(ctx context.Context) error {
	_, err := m.users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}

func (m *Mongo) Create(ctx context.Context, u *models.User) error {
	u.Email = strings.ToLower(u.Email)
	res, err := m.users.InsertOne(ctx, u)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrEmailTaken
		}
		return fmt.Errorf("insert user: %w", err)
	}
	u.ID = res.InsertedID.(primitive.ObjectID)
	return nil
}

func (m *Mongo) ByEmail(ctx context.Context, email string) (*models.User, error) {
	return m.findOne(ctx, bson.M{"email": strings.ToLower(email)})
}

func (m *Mongo) ByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	return m.findOne(ctx, bson.M{"_id": id})
}

func (m *Mongo) findOne(ctx context.Context, filter bson.M) (*models.User, error) {
	var u models.User
	if err := m.users.FindOne(ctx, filter).Decode(&u); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &u, nil
}

// Memory keeps users in process.
type Memory struct {
	mu    sync.RWMutex
	users map[primitive.ObjectID]models.User
}

func NewMemory() *Memory {
	return &Memory{users: make(map[primitive.ObjectID]models.User)}
}

func (m *Memory) Create(ctx context.Context, u *models.User) error {
	u.Email = strings.ToLower(u.Email)

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Email == u.Email {
			return ErrEmailTaken
		}
	}
	u.ID = primitive.NewObjectID()
	m.users[u.ID] = *u
	return nil
}

func (m *Memory) ByEmail(ctx context.Context, email string) (*models.User, error) {
	email = strings.ToLower(email)
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) ByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}
