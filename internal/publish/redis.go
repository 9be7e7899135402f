// Package publish announces finished compliance runs on Redis so dashboards
// and other runners can follow results as they land.
package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mcp-compliance-runner/internal/domain"
	"github.com/mcp-compliance-runner/internal/report"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Message is the payload published for each run
type Message struct {
	RunID       string         `json:"run_id"`
	Timestamp   time.Time      `json:"timestamp"`
	SpecVersion string         `json:"spec_version"`
	ServerURL   string         `json:"server_url"`
	Status      string         `json:"status"`
	Summary     report.Summary `json:"summary"`
}

// NewMessage summarises a report
func NewMessage(r *report.ComplianceReport) Message {
	return Message{
		RunID:       r.RunID,
		Timestamp:   r.Timestamp,
		SpecVersion: r.SpecVersion,
		ServerURL:   r.ServerURL,
		Status:      r.OverallStatus(),
		Summary:     r.Summary,
	}
}

// RedisPublisher publishes run summaries to a channel and keeps the most
// recent ones in a capped list
type RedisPublisher struct {
	client        *redis.Client
	channel       string
	historyKey    string
	historyLength int64
	logger        *logrus.Logger
}

// NewRedisPublisher connects to cfg.RedisURL
func NewRedisPublisher(ctx context.Context, cfg domain.PublishConfig, logger *logrus.Logger) (*RedisPublisher, error) {
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	length := cfg.HistoryLength
	if length < 1 {
		length = 100
	}
	return &RedisPublisher{
		client:        client,
		channel:       cfg.Channel,
		historyKey:    cfg.HistoryKey,
		historyLength: length,
		logger:        logger,
	}, nil
}

// Publish announces r on the channel and prepends it to the history list
func (p *RedisPublisher) Publish(ctx context.Context, r *report.ComplianceReport) error {
	msg := NewMessage(r)
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}

	pipe := p.client.TxPipeline()
	receivers := pipe.Publish(ctx, p.channel, payload)
	pipe.LPush(ctx, p.historyKey, payload)
	pipe.LTrim(ctx, p.historyKey, 0, p.historyLength-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to publish run %s: %w", r.RunID, err)
	}

	p.logger.WithFields(logrus.Fields{
		"run_id":    msg.RunID,
		"channel":   p.channel,
		"receivers": receivers.Val(),
		"status":    msg.Status,
	}).Info("Published compliance run")
	return nil
}

// Recent returns up to n of the latest published runs, newest first
func (p *RedisPublisher) Recent(ctx context.Context, n int64) ([]Message, error) {
	if n < 1 {
		return nil, nil
	}
	raw, err := p.client.LRange(ctx, p.historyKey, 0, n-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read published runs: %w", err)
	}

	out := make([]Message, 0, len(raw))
	for _, item := range raw {
		var msg Message
		if err := json.Unmarshal([]byte(item), &msg); err != nil {
			p.logger.WithError(err).Warn("Skipping undecodable published run")
			continue
		}
		out = append(out, msg)
	}
	return out, nil
}

// Subscribe returns a subscription to the run channel
func (p *RedisPublisher) Subscribe(ctx context.Context) *redis.PubSub {
	return p.client.Subscribe(ctx, p.channel)
}

// Close closes the Redis client
func (p *RedisPublisher) Close() error {
	return p.client.Close()
}
