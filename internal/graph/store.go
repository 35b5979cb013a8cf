package graph

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/sirupsen/logrus"

	"coldcall-insights-go/internal/logger"
)

// Store wraps the Neo4j driver for the calls knowledge graph. All queries use
// bound parameters; the only query text built from data is the turn-type node
// label, which comes from the closed map in the types package.
type Store struct {
	driver   neo4j.DriverWithContext
	database string
	log      *logrus.Entry

	// serializes in-process session-id allocation
	allocMu sync.Mutex

	// test seam; nil outside tests
	newRunner func(mode neo4j.AccessMode) queryRunner
}

// Config holds the graph connection settings, normally read from env in
// cmd/api.
type Config struct {
	URI      string
	Username string
	Password string
	Database string
}

// Connect builds a driver and verifies connectivity with exponential backoff
// so the service survives a graph that is still starting up. Pipeline-level
// queries are never retried; only this boot check is.
func Connect(ctx context.Context, cfg Config) (*Store, error) {
	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.Username, cfg.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("create neo4j driver: %w", err)
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 30 * time.Second
	verify := func() error {
		return driver.VerifyConnectivity(ctx)
	}
	if err := backoff.Retry(verify, backoff.WithContext(bo, ctx)); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("verify neo4j connectivity: %w", err)
	}

	return &Store{
		driver:   driver,
		database: cfg.Database,
		log:      logger.Component("graph"),
	}, nil
}

// Close releases the underlying driver.
func (s *Store) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}

func (s *Store) session(ctx context.Context, mode neo4j.AccessMode) neo4j.SessionWithContext {
	return s.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   mode,
		DatabaseName: s.database,
	})
}

// queryRunner executes one Cypher statement and materializes its rows as
// key-value maps. Store methods go through it so their query sequences can be
// asserted in tests without a live database.
type queryRunner interface {
	run(ctx context.Context, query string, params map[string]any) ([]map[string]any, error)
	close(ctx context.Context)
}

func (s *Store) runner(ctx context.Context, mode neo4j.AccessMode) queryRunner {
	if s.newRunner != nil {
		return s.newRunner(mode)
	}
	return &sessionRunner{session: s.session(ctx, mode)}
}

type sessionRunner struct {
	session neo4j.SessionWithContext
}

func (r *sessionRunner) run(ctx context.Context, query string, params map[string]any) ([]map[string]any, error) {
	result, err := r.session.Run(ctx, query, params)
	if err != nil {
		return nil, err
	}
	var rows []map[string]any
	for result.Next(ctx) {
		rec := result.Record()
		row := make(map[string]any, len(rec.Keys))
		for i, key := range rec.Keys {
			row[key] = rec.Values[i]
		}
		rows = append(rows, row)
	}
	if err := result.Err(); err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *sessionRunner) close(ctx context.Context) {
	_ = r.session.Close(ctx)
}

func rowString(row map[string]any, key string) string {
	if str, ok := row[key].(string); ok {
		return str
	}
	return ""
}

func rowInt(row map[string]any, key string) int {
	switch v := row[key].(type) {
	case int64:
		return int(v)
	case int:
		return v
	case float64:
		return int(v)
	}
	return 0
}

func rowStringSlice(row map[string]any, key string) []string {
	items, ok := row[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if str, ok := item.(string); ok {
			out = append(out, str)
		}
	}
	return out
}
