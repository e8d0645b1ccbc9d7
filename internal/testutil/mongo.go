package testutil

import (
	"context"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// SetupTestDB connects to the test MongoDB instance and returns a database
// unique to the calling test. The database is dropped and the client
// disconnected when the test finishes. Tests are skipped when no MongoDB
// is reachable, so the suite still passes on machines without one.
//
// Set HACKHUB_TEST_MONGO_URI to point at a non-default instance.
func SetupTestDB(t *testing.T) *mongo.Database {
	t.Helper()

	uri := os.Getenv("HACKHUB_TEST_MONGO_URI")
	if uri == "" {
		uri = "mongodb://localhost:27017"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		t.Skipf("skipping: cannot connect to test mongodb at %s: %v", uri, err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		t.Skipf("skipping: test mongodb at %s not reachable: %v", uri, err)
	}

	name := testDBName(t)
	db := client.Database(name)

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = db.Drop(ctx)
		_ = client.Disconnect(ctx)
	})

	return db
}

// TestContext returns a context suitable for a single test operation.
func TestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 10*time.Second)
}

// testDBName builds a database name unique to this test run. Mongo caps
// database names at 63 bytes and forbids several characters, so the test
// name is sanitized and truncated before a random suffix is appended.
func testDBName(t *testing.T) string {
	name := strings.ToLower(t.Name())
	replacer := strings.NewReplacer("/", "_", " ", "_", ".", "_", "$", "_", "\\", "_", "\"", "_")
	name = replacer.Replace(name)
	if len(name) > 24 {
		name = name[:24]
	}
	return fmt.Sprintf("hackhub_test_%s_%s", name, primitive.NewObjectID().Hex())
}
