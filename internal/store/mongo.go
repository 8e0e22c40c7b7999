package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/AnshRaj112/civicquest-backend/internal/models"
)

const profilesCollection = "profiles"

// MongoRepository stores one document per user in the profiles collection.
type MongoRepository struct {
	col     *mongo.Collection
	timeout time.Duration
}

func NewMongoRepository(db *mongo.Database) *MongoRepository {
	return &MongoRepository{col: db.Collection(profilesCollection), timeout: 5 * time.Second}
}

// EnsureIndexes configures indexes for the profiles collection.
// Called on startup from main after Mongo has connected.
func (r *MongoRepository) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "username", Value: 1}},
			Options: options.Index().SetName("idx_username"),
		},
		{
			Keys:    bson.D{{Key: "avatar.experience", Value: -1}},
			Options: options.Index().SetName("idx_experience"),
		},
	}
	if _, err := r.col.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("create profile indexes: %w", err)
	}
	return nil
}

func (r *MongoRepository) Get(ctx context.Context, userID string) (*models.UserProfile, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var p models.UserProfile
	err := r.col.FindOne(ctx, bson.M{"_id": userID}).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load profile %s: %w", userID, err)
	}
	return &p, nil
}

func (r *MongoRepository) Save(ctx context.Context, p *models.UserProfile) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	_, err := r.col.ReplaceOne(ctx, bson.M{"_id": p.ID}, p, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("save profile %s: %w", p.ID, err)
	}
	return nil
}

func (r *MongoRepository) Delete(ctx context.Context, userID string) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if _, err := r.col.DeleteOne(ctx, bson.M{"_id": userID}); err != nil {
		return fmt.Errorf("delete profile %s: %w", userID, err)
	}
	return nil
}

// TopByExperience returns the highest-experience profiles for the leaderboard.
func (r *MongoRepository) TopByExperience(ctx context.Context, limit int64) ([]models.UserProfile, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "avatar.experience", Value: -1}}).
		SetLimit(limit).
		SetProjection(bson.M{"_id": 1, "username": 1, "avatar": 1})
	cur, err := r.col.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("leaderboard query: %w", err)
	}
	defer cur.Close(ctx)

	var out []models.UserProfile
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("leaderboard decode: %w", err)
	}
	return out, nil
}
