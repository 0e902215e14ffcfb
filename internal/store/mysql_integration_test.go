package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	_ "github.com/go-sql-driver/mysql"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/localnerve/tabledit/internal/config"
	"github.com/localnerve/tabledit/internal/database"
	"github.com/localnerve/tabledit/internal/testutil"
	"github.com/localnerve/tabledit/internal/types"
)

// TestWithMySQL runs the store against a real MySQL container. Opt-in: needs
// a Docker daemon, so it only runs when TABLEDIT_INTEGRATION is set.
func TestWithMySQL(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	if os.Getenv("TABLEDIT_INTEGRATION") == "" {
		t.Skip("Set TABLEDIT_INTEGRATION=1 to run the MySQL container test")
	}

	ctx := context.Background()

	image := os.Getenv("DB_IMAGE")
	if image == "" {
		image = "mysql:8.4"
	}

	mysqlContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        image,
			ExposedPorts: []string{"3306/tcp"},
			Env: map[string]string{
				"MYSQL_ROOT_PASSWORD": "rootpass",
				"MYSQL_DATABASE":      "testdb",
				"MYSQL_USER":          "testuser",
				"MYSQL_PASSWORD":      "testpass",
			},
			WaitingFor: wait.ForLog("ready for connections").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("Failed to start MySQL container: %v", err)
	}
	defer func() {
		if err := mysqlContainer.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate MySQL container: %v", err)
		}
	}()

	host, err := mysqlContainer.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}
	port, err := mysqlContainer.MappedPort(ctx, nat.Port("3306/tcp"))
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	waitForMySQL(t, host, port)

	cfg := &config.Config{
		DBType:            "mysql",
		DBHost:            host,
		DBPort:            port.Port(),
		DBDatabase:        "testdb",
		DBUser:            "testuser",
		DBPassword:        "testpass",
		DBConnectionLimit: 5,
	}

	db, err := database.Connect(cfg)
	if err != nil {
		t.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close(db)

	if err := database.AutoMigrate(db); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	s := New(db, testutil.FixedClock(), Config{})

	t.Run("CreateAndReadFile", func(t *testing.T) {
		testCreateAndReadFile(t, s)
	})

	t.Run("VersionControl", func(t *testing.T) {
		testVersionControl(t, s)
	})

	t.Run("DeleteLifecycle", func(t *testing.T) {
		testDeleteLifecycle(t, s)
	})
}

// waitForMySQL pings until the server accepts real connections, not just
// the log line
func waitForMySQL(t *testing.T, host string, port nat.Port) {
	dsn := fmt.Sprintf("testuser:testpass@tcp(%s:%s)/testdb", host, port.Port())
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		t.Fatalf("Failed to open MySQL for readiness check: %v", err)
	}
	defer db.Close()

	for i := 0; i < 30; i++ {
		if err = db.Ping(); err == nil {
			return
		}
		time.Sleep(1 * time.Second)
	}
	t.Fatalf("MySQL not ready after 30 seconds: %v", err)
}

func testCreateAndReadFile(t *testing.T, s *Store) {
	ctx := context.Background()

	id, err := s.Create(ctx, alice, "Integration", sampleDoc())
	if err != nil {
		t.Fatalf("Failed to create file: %v", err)
	}

	rec, err := s.Read(ctx, alice, id)
	if err != nil {
		t.Fatalf("Failed to read file: %v", err)
	}
	if rec.Version != 1 {
		t.Errorf("Expected version 1, got %d", rec.Version)
	}

	doc, err := rec.Document()
	if err != nil {
		t.Fatalf("Failed to decode content: %v", err)
	}
	if doc.Rows[0].Cells[1].Value != "Ada" {
		t.Errorf("Content round trip lost data: %+v", doc)
	}
}

func testVersionControl(t *testing.T, s *Store) {
	ctx := context.Background()

	id, err := s.Create(ctx, alice, "Versioning", sampleDoc())
	if err != nil {
		t.Fatalf("Failed to create file: %v", err)
	}

	v, err := s.Update(ctx, alice, id, "Versioning", sampleDoc(), 1)
	if err != nil {
		t.Fatalf("Failed to update with correct version: %v", err)
	}
	if v != 2 {
		t.Errorf("Expected version 2, got %d", v)
	}

	// Stale writer must get a conflict
	if _, err := s.Update(ctx, alice, id, "Versioning", sampleDoc(), 1); !types.IsKind(err, types.KindConflict) {
		t.Errorf("Expected conflict error, got: %v", err)
	}
}

func testDeleteLifecycle(t *testing.T, s *Store) {
	ctx := context.Background()

	id, err := s.Create(ctx, alice, "Disposable", sampleDoc())
	if err != nil {
		t.Fatalf("Failed to create file: %v", err)
	}

	if err := s.SoftDelete(ctx, alice, id); err != nil {
		t.Fatalf("Failed to soft delete: %v", err)
	}
	if _, err := s.Read(ctx, alice, id); !types.IsKind(err, types.KindNotFound) {
		t.Errorf("Expected not_found after soft delete, got: %v", err)
	}
	if err := s.Purge(ctx, alice, id); err != nil {
		t.Fatalf("Failed to purge soft-deleted file: %v", err)
	}
}
