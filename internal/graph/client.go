package graph

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/huwany1/KeShang/internal/logger"
	"github.com/huwany1/KeShang/internal/utils"
)

type Client struct {
	Driver   neo4j.DriverWithContext
	Database string
	log      *logger.Logger
}

func NewFromEnv(log *logger.Logger) (*Client, error) {
	if log == nil {
		return nil, fmt.Errorf("graph: logger required")
	}

	uri := strings.TrimSpace(utils.GetEnv("NEO4J_URI", "", log))
	if uri == "" {
		return nil, fmt.Errorf("graph: missing env var NEO4J_URI")
	}

	user := strings.TrimSpace(utils.GetEnv("NEO4J_USER", "neo4j", log))
	password := strings.TrimSpace(utils.GetEnv("NEO4J_PASSWORD", "", log))
	database := strings.TrimSpace(utils.GetEnv("NEO4J_DATABASE", "", log))

	timeoutSec := utils.GetEnvAsInt("NEO4J_TIMEOUT_SECONDS", 10, log)
	if timeoutSec <= 0 {
		timeoutSec = 10
	}
	maxPool := utils.GetEnvAsInt("NEO4J_MAX_POOL_SIZE", 50, log)
	if maxPool <= 0 {
		maxPool = 50
	}

	auth := neo4j.BasicAuth(user, password, "")
	driver, err := neo4j.NewDriverWithContext(uri, auth, func(cfg *neo4j.Config) {
		cfg.MaxConnectionPoolSize = maxPool
		cfg.SocketConnectTimeout = time.Duration(timeoutSec) * time.Second
	})
	if err != nil {
		return nil, fmt.Errorf("graph: init driver: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(timeoutSec)*time.Second)
	defer cancel()
	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("graph: verify connectivity: %w", err)
	}

	return &Client{
		Driver:   driver,
		Database: database,
		log:      log.With("client", "Neo4j"),
	}, nil
}

func (c *Client) Close(ctx context.Context) error {
	if c == nil || c.Driver == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	err := c.Driver.Close(ctx)
	c.Driver = nil
	return err
}
