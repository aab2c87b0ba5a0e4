package controller

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Prober opens read-only diagnostic sessions against endpoints. All probe
// queries are non-mutating; the pipeline never writes through the driver.
type Prober interface {
	Connect(ctx context.Context, uri string) (Endpoint, error)
}

type Endpoint interface {
	DatabaseExists(ctx context.Context, database string) (bool, error)
	DataSizeMB(ctx context.Context, database string) (float64, error)
	CollectionCount(ctx context.Context, database string) (int, error)
	Close(ctx context.Context) error
}

type MongoProber struct {
	connectTimeout time.Duration
}

func NewMongoProber(connectTimeout time.Duration) Prober {
	return &MongoProber{
		connectTimeout: connectTimeout,
	}
}

// Connect establishes a client and pings the endpoint, so an unreachable
// server fails here rather than on the first probe.
func (p *MongoProber) Connect(ctx context.Context, uri string) (Endpoint, error) {
	clientOptions := options.Client().ApplyURI(uri)
	clientOptions.SetConnectTimeout(p.connectTimeout)
	clientOptions.SetServerSelectionTimeout(p.connectTimeout)

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", uri, err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, p.connectTimeout)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping %s: %w", uri, err)
	}

	return &mongoEndpoint{client: client}, nil
}

type mongoEndpoint struct {
	client *mongo.Client
}

func (m *mongoEndpoint) DatabaseExists(ctx context.Context, database string) (bool, error) {
	names, err := m.client.ListDatabaseNames(ctx, bson.M{"name": database})
	if err != nil {
		return false, fmt.Errorf("failed to list databases: %w", err)
	}
	return len(names) > 0, nil
}

func (m *mongoEndpoint) DataSizeMB(ctx context.Context, database string) (float64, error) {
	var stats struct {
		DataSize float64 `bson:"dataSize"`
	}
	err := m.client.Database(database).RunCommand(ctx, bson.D{{Key: "dbStats", Value: 1}}).Decode(&stats)
	if err != nil {
		return 0, fmt.Errorf("failed to read db stats: %w", err)
	}
	return stats.DataSize / (1024 * 1024), nil
}

func (m *mongoEndpoint) CollectionCount(ctx context.Context, database string) (int, error) {
	collections, err := m.client.Database(database).ListCollectionNames(ctx, bson.D{})
	if err != nil {
		return 0, fmt.Errorf("failed to list collections: %w", err)
	}
	return len(collections), nil
}

func (m *mongoEndpoint) Close(ctx context.Context) error {
	if err := m.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("failed to disconnect: %w", err)
	}
	return nil
}
