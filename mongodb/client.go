package mongodb

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
	"go.opentelemetry.io/contrib/instrumentation/go.mongodb.org/mongo-driver/v2/mongo/otelmongo"
)

var (
	mu             sync.Mutex
	clientInstance *mongo.Client
	dbInstance     *mongo.Database
)

var errNotInitialized = errors.New("mongodb client is not initialized, call InitMongoDB first")

// InitMongoDB connects the process-wide client and selects dbName. It should
// be called once at application startup; later calls are no-ops.
func InitMongoDB(ctx context.Context, uri, dbName string) (*mongo.Database, error) {
	mu.Lock()
	defer mu.Unlock()

	if dbInstance != nil {
		return dbInstance, nil
	}

	log.Info().Str("database", dbName).Msg("Initializing MongoDB client")
	clientOptions := options.Client().
		ApplyURI(uri).
		SetConnectTimeout(10 * time.Second).
		SetMonitor(otelmongo.NewMonitor())

	client, err := mongo.Connect(clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB primary: %w", err)
	}

	clientInstance = client
	dbInstance = client.Database(dbName)
	log.Info().Msg("MongoDB client initialized successfully.")
	return dbInstance, nil
}

// GetDB returns the database selected by InitMongoDB, or nil.
func GetDB() *mongo.Database {
	mu.Lock()
	defer mu.Unlock()
	return dbInstance
}

// Ping sends a ping to the MongoDB server using the global client.
// This is useful for health checks.
func Ping(ctx context.Context) error {
	mu.Lock()
	client := clientInstance
	mu.Unlock()
	if client == nil {
		return errNotInitialized
	}
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return client.Ping(pingCtx, readpref.Primary())
}

// CloseMongoDB disconnects the MongoDB client.
// It should be called on application shutdown.
func CloseMongoDB(ctx context.Context) {
	mu.Lock()
	defer mu.Unlock()
	if clientInstance == nil {
		return
	}
	log.Info().Msg("Closing MongoDB connection.")
	if err := clientInstance.Disconnect(ctx); err != nil {
		log.Error().Err(err).Msg("Error closing MongoDB connection")
	}
	clientInstance = nil
	dbInstance = nil
}
