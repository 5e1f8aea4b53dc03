// Package common holds test infrastructure shared by store tests.
package common

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// SurrealDB root credentials of the test container.
const (
	SurrealUser = "root"
	SurrealPass = "root"
)

// surrealImage can be overridden with NAVWATCH_TEST_SURREAL_IMAGE.
const surrealImage = "surrealdb/surrealdb:v3.0.0"

var (
	surrealOnce sync.Once
	surrealInst *SurrealDB
	surrealErr  error
)

// SurrealDB is a running SurrealDB container shared by every test in the process.
type SurrealDB struct {
	container testcontainers.Container
	address   string
}

// StartSurrealDB returns the shared container, starting it on first use.
// Tests are skipped under -short or when NAVWATCH_SKIP_CONTAINERS is set.
func StartSurrealDB(t *testing.T) *SurrealDB {
	t.Helper()

	if testing.Short() || os.Getenv("NAVWATCH_SKIP_CONTAINERS") != "" {
		t.Skip("SurrealDB container tests disabled")
	}

	surrealOnce.Do(func() {
		surrealInst, surrealErr = startSurrealDB(context.Background())
	})
	if surrealErr != nil {
		t.Fatalf("SurrealDB container failed: %v", surrealErr)
	}
	return surrealInst
}

func startSurrealDB(ctx context.Context) (*SurrealDB, error) {
	image := os.Getenv("NAVWATCH_TEST_SURREAL_IMAGE")
	if image == "" {
		image = surrealImage
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        image,
			ExposedPorts: []string{"8000/tcp"},
			Cmd:          []string{"start", "--user", SurrealUser, "--pass", SurrealPass, "memory"},
			WaitingFor: wait.ForAll(
				wait.ForListeningPort("8000/tcp"),
				wait.ForLog("Started web server"),
			).WithDeadline(90 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		return nil, fmt.Errorf("start %s: %w", image, err)
	}

	endpoint, err := container.PortEndpoint(ctx, "8000/tcp", "ws")
	if err != nil {
		container.Terminate(ctx)
		return nil, fmt.Errorf("resolve SurrealDB endpoint: %w", err)
	}

	return &SurrealDB{container: container, address: endpoint + "/rpc"}, nil
}

// Address returns the WebSocket RPC address, e.g. ws://localhost:32768/rpc.
func (s *SurrealDB) Address() string {
	return s.address
}

// Terminate stops the container. Intended for TestMain.
func (s *SurrealDB) Terminate() {
	if s != nil && s.container != nil {
		s.container.Terminate(context.Background())
	}
}
