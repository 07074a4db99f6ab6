package store

import (
	"context"
	"time"

	"HelpLink/tools/errs"
	"HelpLink/tools/ids"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoConfig holds the MongoDB connection settings.
type MongoConfig struct {
	URI         string
	Database    string
	Username    string
	Password    string
	AuthSource  string
	MaxPoolSize int
	MaxRetry    int
}

func (c *MongoConfig) norm() {
	if c.MaxPoolSize <= 0 {
		c.MaxPoolSize = 20
	}
	if c.MaxRetry <= 0 {
		c.MaxRetry = 3
	}
	if c.Database == "" {
		c.Database = "helplink"
	}
}

// MongoStore implements MessageStore and UserStore on MongoDB.
type MongoStore struct {
	msgColl  *mongo.Collection
	userColl *mongo.Collection

	Clock func() time.Time
}

// NewMongoStore connects, pings, and prepares the collections.
func NewMongoStore(ctx context.Context, cfg *MongoConfig) (*MongoStore, error) {
	cfg.norm()
	if cfg.URI == "" {
		return nil, errs.New("mongo uri is required")
	}
	opts := options.Client().ApplyURI(cfg.URI)
	opts.SetMaxPoolSize(uint64(cfg.MaxPoolSize))
	if cfg.Username != "" {
		opts.SetAuth(options.Credential{
			Username:   cfg.Username,
			Password:   cfg.Password,
			AuthSource: cfg.AuthSource,
		})
	}

	var (
		cli *mongo.Client
		err error
	)
	for i := 0; i < cfg.MaxRetry; i++ {
		cli, err = connectMongo(ctx, opts)
		if err == nil {
			break
		}
		time.Sleep(time.Second / 2)
	}
	if err != nil {
		return nil, errs.WrapMsg(err, "connect mongodb", "uri", cfg.URI)
	}

	db := cli.Database(cfg.Database)
	return &MongoStore{
		msgColl:  db.Collection("message"),
		userColl: db.Collection("user"),
		Clock:    time.Now,
	}, nil
}

func connectMongo(ctx context.Context, opts *options.ClientOptions) (*mongo.Client, error) {
	cli, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, err
	}
	if err := cli.Ping(ctx, nil); err != nil {
		return nil, err
	}
	return cli, nil
}

func (s *MongoStore) Insert(ctx context.Context, senderID, helpRequestID, body string) (*Message, error) {
	m := Message{
		ID:            ids.GenerateString(),
		HelpRequestID: helpRequestID,
		SenderID:      senderID,
		Body:          body,
		CreatedAt:     s.Clock(),
	}
	if _, err := s.msgColl.InsertOne(ctx, m); err != nil {
		return nil, errs.WrapMsg(err, "insert message", "helpRequestId", helpRequestID)
	}
	return &m, nil
}

func (s *MongoStore) History(ctx context.Context, helpRequestID string, limit int64) ([]Message, error) {
	if limit <= 0 {
		limit = 50
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(limit)
	cur, err := s.msgColl.Find(ctx, bson.M{"help_request_id": helpRequestID}, opts)
	if err != nil {
		return nil, errs.WrapMsg(err, "find messages", "helpRequestId", helpRequestID)
	}
	defer cur.Close(ctx)

	var out []Message
	if err := cur.All(ctx, &out); err != nil {
		return nil, errs.Wrap(err)
	}
	// Query is newest-first for the limit; callers expect oldest-first.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

func (s *MongoStore) GetProfile(ctx context.Context, userID string) (*UserProfile, error) {
	var p UserProfile
	err := s.userColl.FindOne(ctx, bson.M{"_id": userID}).Decode(&p)
	if err == mongo.ErrNoDocuments {
		return nil, errs.ErrNotFound.WithDetail("user " + userID).Wrap()
	}
	if err != nil {
		return nil, errs.WrapMsg(err, "find user", "userId", userID)
	}
	return &p, nil
}
