package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/trogers1052/stock-analysis-service/internal/models"
)

// batchKey keys BATCH_COMPLETED events, which carry no single symbol
const batchKey = "batch"

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer handles publishing stock events to Kafka
type Producer struct {
	writer messageWriter
	topic  string
	now    func() time.Time
}

// NewProducer creates a new Kafka producer
func NewProducer(brokers []string, topic string) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
	}

	return newProducer(writer, topic)
}

func newProducer(w messageWriter, topic string) *Producer {
	return &Producer{
		writer: w,
		topic:  topic,
		now:    time.Now,
	}
}

// PublishStockAdded publishes a stock added event
func (p *Producer) PublishStockAdded(ctx context.Context, stock *models.StockRecord) error {
	return p.publish(ctx, stock.Symbol, models.StockEvent{
		EventType: models.EventStockAdded,
		Stock:     stock,
		Symbol:    stock.Symbol,
	})
}

// PublishStockRemoved publishes a stock removed event
func (p *Producer) PublishStockRemoved(ctx context.Context, symbol string) error {
	return p.publish(ctx, symbol, models.StockEvent{
		EventType: models.EventStockRemoved,
		Symbol:    symbol,
	})
}

// PublishStockAnalyzed publishes the record produced by a successful pass
func (p *Producer) PublishStockAnalyzed(ctx context.Context, stock *models.StockRecord) error {
	return p.publish(ctx, stock.Symbol, models.StockEvent{
		EventType: models.EventStockAnalyzed,
		Stock:     stock,
		Symbol:    stock.Symbol,
	})
}

// PublishBatchCompleted publishes the outcome summary of a batch
func (p *Producer) PublishBatchCompleted(ctx context.Context, batch *models.BatchResult) error {
	return p.publish(ctx, batchKey, models.StockEvent{
		EventType: models.EventBatchCompleted,
		Batch:     batch,
	})
}

func (p *Producer) publish(ctx context.Context, key string, event models.StockEvent) error {
	event.Timestamp = p.now().UTC()

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: data,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write %s message to kafka topic %s: %w", event.EventType, p.topic, err)
	}

	return nil
}

// Close closes the Kafka producer
func (p *Producer) Close() error {
	return p.writer.Close()
}
