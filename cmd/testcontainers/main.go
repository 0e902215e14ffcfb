package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/docker/go-connections/nat"
	_ "github.com/go-sql-driver/mysql"
	"github.com/joho/godotenv"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/network"
	"github.com/testcontainers/testcontainers-go/wait"
)

// devContainers holds the local development dependencies: the database and
// the Authorizer identity service, joined on one network.
type devContainers struct {
	network       *testcontainers.DockerNetwork
	dbContainer   testcontainers.Container
	authContainer testcontainers.Container
}

func (dc *devContainers) terminate() {
	ctx := context.Background()
	if dc.authContainer != nil {
		if err := dc.authContainer.Terminate(ctx); err != nil {
			log.Printf("Failed to terminate Authorizer: %v", err)
		}
	}
	if dc.dbContainer != nil {
		if err := dc.dbContainer.Terminate(ctx); err != nil {
			log.Printf("Failed to terminate database: %v", err)
		}
	}
	if dc.network != nil {
		if err := dc.network.Remove(ctx); err != nil {
			log.Printf("Failed to remove network: %v", err)
		}
	}
}

func main() {
	var showHelp bool
	flag.BoolVar(&showHelp, "h", false, "show help")
	var envFilename string
	flag.StringVar(&envFilename, "f", "", "path to the .env file")
	flag.Parse()

	usage := `
Run the tabledit development containers (database and Authorizer) with the
environment variables from the .env file.

Usage:

testcontainers [-h] [-f ENV_FILE_PATH]

ENV_FILE_PATH: path to the .env file

example
  testcontainers -f /path/to/something/.env
`
	// if -h flag print usage and return
	if showHelp {
		fmt.Println(usage)
		return
	}

	if envFilename != "" {
		log.Printf("Loading environment variables from %s\n", envFilename)
		if err := godotenv.Load(envFilename); err != nil {
			log.Fatalf("Failed to load environment variables: %v\n", err)
		}
	} else {
		log.Printf("No environment file specified, using current environment variables\n")
	}

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGTSTP, syscall.SIGQUIT)

	var containers *devContainers
	go func() {
		var err error
		containers, err = createDevContainers()
		if err != nil {
			log.Fatalf("Failed to create dev containers: %v\n", err)
		}
	}()

	sig := <-sigs
	log.Printf("\nReceived signal: %v, terminating dev containers...\n", sig)
	if containers != nil {
		containers.terminate()
	}
}

func createDevContainers() (*devContainers, error) {
	ctx := context.Background()
	containers := &devContainers{}

	// Create a network
	nw, err := network.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create network: %w", err)
	}
	containers.network = nw
	networkName := nw.Name

	// Create and start the database container
	dbNetworkName := getEnv("DB_HOST", "tabledit-db")
	tcpDbPort, err := nat.NewPort("tcp", getEnv("DB_PORT", "3306"))
	if err != nil {
		containers.terminate()
		return nil, fmt.Errorf("failed to create DB port: %w", err)
	}
	dbContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        getEnv("DB_IMAGE", "mariadb:11"),
			ExposedPorts: []string{string(tcpDbPort)},
			Env: map[string]string{
				"MYSQL_ROOT_PASSWORD": getEnv("DB_ROOT_PASSWORD", "rootpass"),
				"MYSQL_DATABASE":      getEnv("DB_DATABASE", "tabledit"),
				"MYSQL_USER":          getEnv("DB_USER", "tabledit"),
				"MYSQL_PASSWORD":      getEnv("DB_PASSWORD", "tabledit"),
			},
			WaitingFor: wait.ForListeningPort(tcpDbPort).WithStartupTimeout(60 * time.Second),
			Networks:   []string{networkName},
			NetworkAliases: map[string][]string{
				networkName: {dbNetworkName},
			},
		},
		Started: true,
	})
	if err != nil {
		containers.terminate()
		return nil, fmt.Errorf("failed to start database: %w", err)
	}
	containers.dbContainer = dbContainer

	// Initialize the Authorizer database
	dbHost, _ := dbContainer.Host(ctx)
	dbPort, _ := dbContainer.MappedPort(ctx, tcpDbPort)
	if err := initAuthorizerDatabase(dbHost, dbPort); err != nil {
		containers.terminate()
		return nil, fmt.Errorf("failed to initialize databases: %w", err)
	}

	// Create and start the Authorizer container
	authNetworkName := "authorizer"
	tcpAuthPort, err := nat.NewPort("tcp", getEnv("AUTHZ_PORT", "8080"))
	if err != nil {
		containers.terminate()
		return nil, fmt.Errorf("failed to create Authorizer port: %w", err)
	}
	authDbConnection := fmt.Sprintf("root:%s@tcp(%s:%s)/%s",
		getEnv("DB_ROOT_PASSWORD", "rootpass"), dbNetworkName, getEnv("DB_PORT", "3306"),
		getEnv("AUTHZ_DATABASE", "authorizer"))
	authContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        getEnv("AUTHZ_IMAGE", "lakhansamani/authorizer:1.4.4"),
			ExposedPorts: []string{string(tcpAuthPort)},
			Env: map[string]string{
				"ENV":           "production",
				"CLIENT_ID":     getEnv("AUTHZ_CLIENT_ID", ""),
				"PORT":          getEnv("AUTHZ_PORT", "8080"),
				"DATABASE_TYPE": "mysql",
				"DATABASE_NAME": getEnv("AUTHZ_DATABASE", "authorizer"),
				"DATABASE_URL":  authDbConnection,
				"ADMIN_SECRET":  getEnv("AUTHZ_ADMIN_SECRET", "admin"),
				"ROLES":         "admin,user",
				"DEFAULT_ROLES": "user",
				"LOG_LEVEL":     "info",
			},
			WaitingFor: wait.ForLog("Authorizer running at PORT:").WithStartupTimeout(10 * time.Second),
			Networks:   []string{networkName},
			NetworkAliases: map[string][]string{
				networkName: {authNetworkName},
			},
		},
		Started: true,
	})
	if err != nil {
		containers.terminate()
		return nil, fmt.Errorf("failed to start Authorizer: %w", err)
	}
	containers.authContainer = authContainer

	// Log the localhost and mapped ports for local processes
	authHost, _ := authContainer.Host(ctx)
	authPort, _ := authContainer.MappedPort(ctx, tcpAuthPort)
	log.Printf("DB_URL=%s:%s", dbHost, dbPort.Port())
	log.Printf("AUTHZ_URL=http://%s:%s", authHost, authPort.Port())
	log.Printf("Tabledit dev containers started successfully")

	return containers, nil
}

// initAuthorizerDatabase creates the identity service's database next to the
// application one.
func initAuthorizerDatabase(dbHost string, dbPort nat.Port) error {
	dsn := fmt.Sprintf("root:%s@tcp(%s:%s)/", getEnv("DB_ROOT_PASSWORD", "rootpass"), dbHost, dbPort.Port())
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return fmt.Errorf("failed to connect for setup: %w", err)
	}
	defer db.Close()

	// Wait for connection to be really ready
	for i := 0; i < 30; i++ {
		err = db.Ping()
		if err == nil {
			break
		}
		time.Sleep(1 * time.Second)
	}
	if err != nil {
		return fmt.Errorf("database not ready after 30 seconds: %w", err)
	}

	authDatabase := getEnv("AUTHZ_DATABASE", "authorizer")
	if _, err = db.Exec(fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", authDatabase)); err != nil {
		return fmt.Errorf("failed to create %s: %w", authDatabase, err)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
