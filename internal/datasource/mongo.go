package datasource

import (
	"context"
	"fmt"
	"log/slog"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoConfig is the configuration of a MongoDB data source.
type MongoConfig struct {
	Common `yaml:",inline"`

	// Database is the database name.
	Database string `json:"database" yaml:"database"`

	// Collection is the collection name.
	Collection string `json:"collection" yaml:"collection"`

	// Query is the filter document. Empty matches all documents.
	Query map[string]any `json:"query,omitempty" yaml:"query,omitempty"`
}

// MongoDataSource fetches documents from a MongoDB collection.
type MongoDataSource struct {
	base
	cfg MongoConfig
	fp  string
}

var _ DataSource = (*MongoDataSource)(nil)

// NewMongo validates the configuration and returns a MongoDB data source.
func NewMongo(cfg MongoConfig) (*MongoDataSource, error) {
	b, err := newBase(&cfg.Common, SourceTypeMongo)
	if err != nil {
		return nil, err
	}

	if cfg.Database == "" {
		return nil, newValidationError("database", "cannot be empty")
	}
	if cfg.Collection == "" {
		return nil, newValidationError("collection", "cannot be empty")
	}
	if cfg.Query == nil {
		cfg.Query = map[string]any{}
	}

	fpCfg := cfg
	fpCfg.ID = nil

	return &MongoDataSource{
		base: b,
		cfg:  cfg,
		fp:   fingerprint(fpCfg),
	}, nil
}

// Type returns the variant tag.
func (*MongoDataSource) Type() string {
	return SourceTypeMongo
}

// Fingerprint returns the cache key digest of this configuration.
func (s *MongoDataSource) Fingerprint() string {
	return s.fp
}

// Fetch queries the configured collection, materializes the full result set
// with the identity field excluded, and returns the projected result. The
// timeout covers connection establishment, the query and materialization.
func (s *MongoDataSource) Fetch(ctx context.Context) (any, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(s.cfg.URL))
	if err != nil {
		return nil, s.classify(ctx, fmt.Errorf("connecting to %s: %w", s.cfg.Database, err))
	}
	defer func() {
		// Release the connection even when the fetch was cancelled.
		if err := client.Disconnect(context.WithoutCancel(ctx)); err != nil {
			slog.Debug("Failed to disconnect mongo client", "source", s.Name(), "error", err)
		}
	}()

	collection := client.Database(s.cfg.Database).Collection(s.cfg.Collection)

	filter := bson.M(s.cfg.Query)
	opts := options.Find().SetProjection(bson.M{"_id": 0})

	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, s.classify(ctx, fmt.Errorf("querying %s.%s: %w", s.cfg.Database, s.cfg.Collection, err))
	}
	defer func() {
		// Cursors are always closed, on success and on failure.
		if err := cursor.Close(context.WithoutCancel(ctx)); err != nil {
			slog.Debug("Failed to close mongo cursor", "source", s.Name(), "error", err)
		}
	}()

	var docs []bson.M
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, s.classify(ctx, fmt.Errorf("reading documents from %s.%s: %w", s.cfg.Database, s.cfg.Collection, err))
	}

	return s.project(docs)
}
