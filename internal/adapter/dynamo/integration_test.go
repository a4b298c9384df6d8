package dynamo

import (
	"context"
	"flag"
	"fmt"
	"os"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/pscheid92/voteban/internal/adapter/metrics"
)

var (
	testEndpoint    string
	dynamoContainer testcontainers.Container
)

func TestMain(m *testing.M) {
	flag.Parse()

	if testing.Short() {
		os.Exit(m.Run())
	}

	ctx := context.Background()
	var err error
	dynamoContainer, err = testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "amazon/dynamodb-local:2.5.2",
			ExposedPorts: []string{"8000/tcp"},
			Cmd:          []string{"-jar", "DynamoDBLocal.jar", "-inMemory", "-sharedDb"},
			WaitingFor:   wait.ForListeningPort("8000/tcp"),
		},
		Started: true,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start dynamodb container: %v\n", err)
		os.Exit(1)
	}

	testEndpoint, err = dynamoContainer.PortEndpoint(ctx, "8000/tcp", "http")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to get dynamodb endpoint: %v\n", err)
		os.Exit(1)
	}

	client, err := NewClient(ctx, testOptions())
	if err == nil {
		err = EnsureTables(ctx, client)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to prepare dynamodb tables: %v\n", err)
		os.Exit(1)
	}

	code := m.Run()
	if err := dynamoContainer.Terminate(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "failed to terminate dynamodb container: %v\n", err)
	}
	os.Exit(code)
}

func testOptions() Options {
	return Options{
		Endpoint:    testEndpoint,
		Region:      "ru-central1",
		AccessKeyID: "local",
		SecretKey:   "local",
	}
}

func setupTestClient(t *testing.T) (*dynamodb.Client, *metrics.StoreMetrics) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	client, err := NewClient(context.Background(), testOptions())
	if err != nil {
		t.Fatalf("failed to create dynamodb client: %v", err)
	}
	return client, metrics.NewStoreMetrics(prometheus.NewRegistry())
}
