package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
	"github.com/trogers1052/stock-analysis-service/internal/models"
)

// Analyzer runs on-demand analysis passes
type Analyzer interface {
	TriggerReanalysis(ctx context.Context) (*models.BatchResult, error)
	AnalyzeStock(ctx context.Context, symbol string) (*models.StockRecord, error)
}

type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Config() kafka.ReaderConfig
	Close() error
}

// RequestConsumer handles ANALYSIS_REQUESTED events. A request without a
// symbol runs a batch over the whole portfolio. Requests are handled one at
// a time on the consumer goroutine.
type RequestConsumer struct {
	reader   messageReader
	analyzer Analyzer
	log      zerolog.Logger
}

// NewRequestConsumer creates a new Kafka consumer for analysis requests
func NewRequestConsumer(brokers []string, topic, groupID string, analyzer Analyzer, log zerolog.Logger) *RequestConsumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        groupID,
		MinBytes:       1,
		MaxBytes:       10e6, // 10MB
		MaxWait:        1 * time.Second,
		StartOffset:    kafka.LastOffset,
		CommitInterval: time.Second,
	})

	return newRequestConsumer(reader, analyzer, log)
}

func newRequestConsumer(r messageReader, analyzer Analyzer, log zerolog.Logger) *RequestConsumer {
	return &RequestConsumer{
		reader:   r,
		analyzer: analyzer,
		log:      log,
	}
}

// Start consumes messages until ctx is cancelled
func (c *RequestConsumer) Start(ctx context.Context) error {
	c.log.Info().Str("topic", c.reader.Config().Topic).Msg("Starting analysis request consumer")

	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.log.Info().Msg("Analysis request consumer shutting down")
				return nil
			}
			c.log.Error().Err(err).Msg("Error reading message")
			continue
		}

		if err := c.processMessage(ctx, msg); err != nil {
			c.log.Warn().Err(err).
				Int("partition", msg.Partition).
				Int64("offset", msg.Offset).
				Msg("Error processing analysis request")
		}
	}
}

// processMessage handles a single Kafka message
func (c *RequestConsumer) processMessage(ctx context.Context, msg kafka.Message) error {
	var req models.AnalysisRequest
	if err := json.Unmarshal(msg.Value, &req); err != nil {
		return fmt.Errorf("failed to unmarshal analysis request: %w", err)
	}

	if req.EventType != models.EventAnalysisRequested {
		c.log.Debug().Str("event_type", req.EventType).Msg("Ignoring event type")
		return nil
	}

	if req.Symbol == "" {
		result, err := c.analyzer.TriggerReanalysis(ctx)
		if errors.Is(err, models.ErrBatchInProgress) {
			c.log.Info().Str("source", req.Source).Msg("Batch already running, request coalesced")
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to run requested reanalysis: %w", err)
		}
		c.log.Info().
			Str("source", req.Source).
			Int("succeeded", result.Succeeded).
			Int("failed", result.Failed).
			Msg("Requested reanalysis finished")
		return nil
	}

	rec, err := c.analyzer.AnalyzeStock(ctx, req.Symbol)
	if err != nil {
		return fmt.Errorf("failed to analyze %s: %w", req.Symbol, err)
	}
	c.log.Info().Str("symbol", rec.Symbol).Str("source", req.Source).Msg("Requested analysis finished")
	return nil
}

// Close closes the Kafka consumer
func (c *RequestConsumer) Close() error {
	return c.reader.Close()
}
