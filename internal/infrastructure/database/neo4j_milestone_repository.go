package database

import (
	"context"
	"fmt"
	"time"

	"crypto-donation-tracker/internal/domain/repository"
	"crypto-donation-tracker/internal/infrastructure/logger"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"
)

const (
	hasSeenCypher = `
		MATCH (f:MilestoneFlag {key: $key})
		RETURN count(f) > 0 AS seen
	`

	// the first write wins the timestamp
	markSeenCypher = `
		MERGE (f:MilestoneFlag {key: $key})
		ON CREATE SET f.seen_at = datetime($seen_at)
	`

	resetCypher = `
		MATCH (f:MilestoneFlag)
		DETACH DELETE f
		RETURN count(f) AS deleted
	`
)

// Neo4JMilestoneRepository stores milestone flags as MilestoneFlag nodes
type Neo4JMilestoneRepository struct {
	client *Neo4JClient
	now    func() time.Time
	logger *logger.Logger
}

// NewNeo4JMilestoneRepository creates a new Neo4J milestone repository
func NewNeo4JMilestoneRepository(client *Neo4JClient, logger *logger.Logger) repository.MilestoneRepository {
	return &Neo4JMilestoneRepository{
		client: client,
		now:    time.Now,
		logger: logger.WithComponent("neo4j-milestone-repo"),
	}
}

// HasSeen reports whether a MilestoneFlag node exists for key
func (r *Neo4JMilestoneRepository) HasSeen(ctx context.Context, key string) (bool, error) {
	session := r.client.newSession(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, hasSeenCypher, keyParams(key))
		if err != nil {
			return false, err
		}
		record, err := res.Single(ctx)
		if err != nil {
			return false, err
		}
		seen, _ := record.Get("seen")
		return seen, nil
	})
	if err != nil {
		return false, fmt.Errorf("failed to read milestone flag: %w", err)
	}

	seen, _ := result.(bool)
	return seen, nil
}

// MarkSeen merges the flag node for key
func (r *Neo4JMilestoneRepository) MarkSeen(ctx context.Context, key string) error {
	session := r.client.newSession(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, markSeenCypher, markSeenParams(key, r.now()))
		if err != nil {
			return nil, err
		}
		return res.Consume(ctx)
	})
	if err != nil {
		r.logger.Error("Failed to persist milestone flag", zap.String("key", key), zap.Error(err))
		return fmt.Errorf("failed to persist milestone flag: %w", err)
	}
	return nil
}

// Reset detaches and deletes every MilestoneFlag node
func (r *Neo4JMilestoneRepository) Reset(ctx context.Context) (int64, error) {
	session := r.client.newSession(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	result, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, resetCypher, map[string]interface{}{})
		if err != nil {
			return int64(0), err
		}
		record, err := res.Single(ctx)
		if err != nil {
			return int64(0), err
		}
		deleted, _ := record.Get("deleted")
		return deleted, nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to delete milestone flags: %w", err)
	}

	deleted, _ := result.(int64)
	r.logger.Info("Milestone flags deleted", zap.Int64("count", deleted))
	return deleted, nil
}

func keyParams(key string) map[string]interface{} {
	return map[string]interface{}{"key": key}
}

func markSeenParams(key string, at time.Time) map[string]interface{} {
	params := keyParams(key)
	params["seen_at"] = at.UTC().Format("2006-01-02T15:04:05.000Z")
	return params
}
