package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"vidtube/internal/domain/models"
	"vidtube/internal/storage"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

type Storage struct {
	client   *mongo.Client
	database *mongo.Database
	users    *mongo.Collection
}

type userDoc struct {
	ID           string    `bson:"_id"`
	Username     string    `bson:"username"`
	Email        string    `bson:"email"`
	FullName     string    `bson:"full_name"`
	Avatar       string    `bson:"avatar"`
	CoverImage   string    `bson:"cover_image"`
	PassHash     []byte    `bson:"pass_hash"`
	RefreshToken *string   `bson:"refresh_token"`
	CreatedAt    time.Time `bson:"created_at"`
	UpdatedAt    time.Time `bson:"updated_at"`
}

// New creates a new MongoDB storage instance and sets up indexes.
func New(ctx context.Context, uri, database string) (*Storage, error) {
	const op = "storage.mongodb.New"

	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("%s: connect: %w", op, err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("%s: ping: %w", op, err)
	}

	db := client.Database(database)
	s := &Storage{
		client:   client,
		database: db,
		users:    db.Collection("users"),
	}

	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("%s: indexes: %w", op, err)
	}

	return s, nil
}

func (s *Storage) ensureIndexes(ctx context.Context) error {
	_, err := s.users.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "username", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "full_name", Value: 1}},
		},
	})
	if err != nil {
		return fmt.Errorf("users indexes: %w", err)
	}

	return nil
}

// Close disconnects from MongoDB.
func (s *Storage) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// SaveUser inserts a new user. Username and email must already be normalized.
func (s *Storage) SaveUser(ctx context.Context, user models.User) error {
	const op = "storage.mongodb.SaveUser"

	_, err := s.users.InsertOne(ctx, toDoc(user))
	if err != nil {
		if isDuplicateKeyError(err) {
			return fmt.Errorf("%s: %w", op, storage.ErrUserAlreadyExists)
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// UserByID retrieves a user by ID.
func (s *Storage) UserByID(ctx context.Context, id string) (models.User, error) {
	const op = "storage.mongodb.UserByID"

	return s.findOne(ctx, op, bson.D{{Key: "_id", Value: id}})
}

// UserByUsernameOrEmail retrieves the user whose username or email matches.
func (s *Storage) UserByUsernameOrEmail(ctx context.Context, username, email string) (models.User, error) {
	const op = "storage.mongodb.UserByUsernameOrEmail"

	filter := bson.D{{Key: "$or", Value: bson.A{
		bson.D{{Key: "username", Value: username}},
		bson.D{{Key: "email", Value: email}},
	}}}

	return s.findOne(ctx, op, filter)
}

// SetRefreshToken overwrites the stored refresh token; nil clears it.
func (s *Storage) SetRefreshToken(ctx context.Context, id string, token *string) error {
	const op = "storage.mongodb.SetRefreshToken"

	res, err := s.users.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: id}},
		sessionUpdate(token),
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrUserNotFound)
	}

	return nil
}

// RotateRefreshToken replaces expected with next in a single conditional
// update, so only one of several concurrent rotations can win.
func (s *Storage) RotateRefreshToken(ctx context.Context, id, expected, next string) error {
	const op = "storage.mongodb.RotateRefreshToken"

	res, err := s.users.UpdateOne(ctx,
		bson.D{
			{Key: "_id", Value: id},
			{Key: "refresh_token", Value: expected},
		},
		sessionUpdate(&next),
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrTokenMismatch)
	}

	return nil
}

// UpdatePassword stores a new hash and ends the current session.
func (s *Storage) UpdatePassword(ctx context.Context, id string, passHash []byte) error {
	const op = "storage.mongodb.UpdatePassword"

	res, err := s.users.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: id}},
		sessionUpdate(nil, bson.E{Key: "pass_hash", Value: passHash}),
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrUserNotFound)
	}

	return nil
}

func (s *Storage) findOne(ctx context.Context, op string, filter bson.D) (models.User, error) {
	var doc userDoc
	err := s.users.FindOne(ctx, filter).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.User{}, fmt.Errorf("%s: %w", op, storage.ErrUserNotFound)
		}
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	return fromDoc(doc), nil
}

func sessionUpdate(token *string, extra ...bson.E) bson.D {
	set := bson.D{
		{Key: "refresh_token", Value: token},
		{Key: "updated_at", Value: time.Now().UTC()},
	}
	set = append(set, extra...)

	return bson.D{{Key: "$set", Value: set}}
}

func toDoc(u models.User) userDoc {
	return userDoc{
		ID:           u.ID,
		Username:     u.Username,
		Email:        u.Email,
		FullName:     u.FullName,
		Avatar:       u.Avatar,
		CoverImage:   u.CoverImage,
		PassHash:     u.PassHash,
		RefreshToken: u.RefreshToken,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

func fromDoc(doc userDoc) models.User {
	return models.User{
		ID:           doc.ID,
		Username:     doc.Username,
		Email:        doc.Email,
		FullName:     doc.FullName,
		Avatar:       doc.Avatar,
		CoverImage:   doc.CoverImage,
		PassHash:     doc.PassHash,
		RefreshToken: doc.RefreshToken,
		CreatedAt:    doc.CreatedAt,
		UpdatedAt:    doc.UpdatedAt,
	}
}

// isDuplicateKeyError checks if the error is a MongoDB duplicate key error (code 11000).
func isDuplicateKeyError(err error) bool {
	var we mongo.WriteException
	if errors.As(err, &we) {
		for _, e := range we.WriteErrors {
			if e.Code == 11000 {
				return true
			}
		}
	}
	return false
}
