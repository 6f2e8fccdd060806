package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/beanscene/api/internal/public/application"
)

const (
	changeFeedMinBackoff = time.Second
	changeFeedMaxBackoff = 30 * time.Second
)

// ChangeFeed turns change-stream events on the watched collections into
// invalidations. Change streams need a replica set; on a standalone server
// Run keeps retrying with backoff and the service works without live refresh.
type ChangeFeed struct {
	db          *mongo.Database
	collections []string
	logger      *zap.Logger
}

// NewChangeFeed watches collections of db.
func NewChangeFeed(db *mongo.Database, logger *zap.Logger, collections ...string) *ChangeFeed {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChangeFeed{db: db, collections: collections, logger: logger}
}

type changeEvent struct {
	OperationType string `bson:"operationType"`
	Namespace     struct {
		Collection string `bson:"coll"`
	} `bson:"ns"`
	DocumentKey struct {
		ID interface{} `bson:"_id"`
	} `bson:"documentKey"`
}

// Run blocks until ctx is done.
func (f *ChangeFeed) Run(ctx context.Context, bus *application.InvalidationBus) {
	backoff := changeFeedMinBackoff
	var resumeToken bson.Raw
	for {
		token, err := f.watch(ctx, bus, resumeToken)
		if token != nil {
			resumeToken = token
			backoff = changeFeedMinBackoff
		}
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			f.logger.Warn("change stream interrupted", zap.Duration("retryIn", backoff), zap.Error(err))
			var cmdErr mongo.CommandError
			if errors.As(err, &cmdErr) && cmdErr.HasErrorLabel("NonResumableChangeStreamError") {
				resumeToken = nil
			}
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > changeFeedMaxBackoff {
			backoff = changeFeedMaxBackoff
		}
	}
}

func (f *ChangeFeed) watch(ctx context.Context, bus *application.InvalidationBus, resumeAfter bson.Raw) (bson.Raw, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"ns.coll":       bson.M{"$in": f.collections},
			"operationType": bson.M{"$in": bson.A{"insert", "update", "replace"}},
		}}},
	}
	opts := options.ChangeStream()
	if resumeAfter != nil {
		opts.SetResumeAfter(resumeAfter)
	}
	stream, err := f.db.Watch(ctx, pipeline, opts)
	if err != nil {
		return nil, err
	}
	defer stream.Close(context.Background())
	f.logger.Info("change stream opened", zap.Strings("collections", f.collections))

	var last bson.Raw
	for stream.Next(ctx) {
		var event changeEvent
		if err := stream.Decode(&event); err != nil {
			f.logger.Warn("undecodable change event", zap.Error(err))
			continue
		}
		last = stream.ResumeToken()
		bus.Publish(application.Invalidation{
			Collection: event.Namespace.Collection,
			DocumentID: documentIDString(event.DocumentKey.ID),
			At:         time.Now().UTC(),
		})
	}
	return last, stream.Err()
}

func documentIDString(id interface{}) string {
	switch v := id.(type) {
	case primitive.ObjectID:
		return v.Hex()
	case string:
		return v
	default:
		return ""
	}
}
