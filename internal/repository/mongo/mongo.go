// Package mongo implements repository.Store on MongoDB.
//
// Collections:
//   - users: {_id, username, password, createdAt}
//   - posts: {_id, image, caption, user, createdAt}
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sakif/captionly/internal/apperror"
	"github.com/sakif/captionly/internal/model"
	"github.com/sakif/captionly/internal/repository"
)

var _ repository.Store = (*DB)(nil)

type userDoc struct {
	ID        string    `bson:"_id"`
	Username  string    `bson:"username"`
	Password  string    `bson:"password"`
	CreatedAt time.Time `bson:"createdAt"`
}

func (d userDoc) toModel() *model.User {
	return &model.User{ID: d.ID, Username: d.Username, PasswordHash: d.Password, CreatedAt: d.CreatedAt}
}

type postDoc struct {
	ID        string    `bson:"_id"`
	Image     string    `bson:"image"`
	Caption   string    `bson:"caption"`
	User      string    `bson:"user"`
	CreatedAt time.Time `bson:"createdAt"`
}

func (d postDoc) toModel() model.Post {
	return model.Post{ID: d.ID, Caption: d.Caption, ImageURL: d.Image, UserID: d.User, CreatedAt: d.CreatedAt}
}

// DB holds the client and the two collections.
type DB struct {
	client *mongo.Client
	users  *mongo.Collection
	posts  *mongo.Collection
}

// New connects to uri, selects database and ensures indexes exist.
func New(ctx context.Context, uri, database string) (*DB, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo: connecting: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo: pinging server: %w", err)
	}

	dbh := client.Database(database)
	db := &DB{
		client: client,
		users:  dbh.Collection("users"),
		posts:  dbh.Collection("posts"),
	}

	if err := db.ensureIndexes(ctx); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo: creating indexes: %w", err)
	}

	return db, nil
}

func (db *DB) ensureIndexes(ctx context.Context) error {
	_, err := db.users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "username", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("users.username: %w", err)
	}

	_, err = db.posts.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "user", Value: 1}, {Key: "createdAt", Value: -1}},
	})
	if err != nil {
		return fmt.Errorf("posts.user: %w", err)
	}
	return nil
}

// Close disconnects the client.
func (db *DB) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return db.client.Disconnect(ctx)
}

func (db *DB) CreateUser(ctx context.Context, user *model.User) error {
	user.ID = xid.New().String()
	user.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)

	_, err := db.users.InsertOne(ctx, userDoc{
		ID:        user.ID,
		Username:  user.Username,
		Password:  user.PasswordHash,
		CreatedAt: user.CreatedAt,
	})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return apperror.Conflict("username already in use")
		}
		return fmt.Errorf("mongo: creating user %q: %w", user.Username, err)
	}
	return nil
}

func (db *DB) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	return db.findUser(ctx, bson.M{"_id": id}, id)
}

func (db *DB) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	return db.findUser(ctx, bson.M{"username": username}, username)
}

func (db *DB) findUser(ctx context.Context, filter bson.M, key string) (*model.User, error) {
	var doc userDoc
	if err := db.users.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperror.NotFound("user", key)
		}
		return nil, fmt.Errorf("mongo: getting user %q: %w", key, err)
	}
	return doc.toModel(), nil
}

func (db *DB) CreatePost(ctx context.Context, post *model.Post) error {
	post.ID = xid.New().String()
	post.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)

	_, err := db.posts.InsertOne(ctx, postDoc{
		ID:        post.ID,
		Image:     post.ImageURL,
		Caption:   post.Caption,
		User:      post.UserID,
		CreatedAt: post.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("mongo: creating post for user %s: %w", post.UserID, err)
	}
	return nil
}

func (db *DB) ListPostsByUser(ctx context.Context, userID string, opts repository.ListOptions) ([]model.Post, error) {
	opts = opts.Normalize()

	findOpts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(int64(opts.Limit)).
		SetSkip(int64(opts.Offset))

	cur, err := db.posts.Find(ctx, bson.M{"user": userID}, findOpts)
	if err != nil {
		return nil, fmt.Errorf("mongo: listing posts for user %s: %w", userID, err)
	}

	var docs []postDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("mongo: decoding posts: %w", err)
	}

	posts := make([]model.Post, 0, len(docs))
	for _, d := range docs {
		posts = append(posts, d.toModel())
	}
	return posts, nil
}
