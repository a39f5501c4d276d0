// Package kafka fans audit records out to a Kafka topic for downstream
// compliance consumers. The Postgres trail stays authoritative; this sink is
// best-effort and shares the recorder's swallow-on-failure semantics.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"

	"laudo/internal/audit"
)

const defaultTopic = "laudo.audit.submissions"

type Publisher struct {
	client *kgo.Client
	topic  string
	logger *slog.Logger
}

type Option func(*Publisher)

func WithTopic(topic string) Option {
	return func(p *Publisher) { p.topic = topic }
}

func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) { p.logger = logger }
}

// New connects a producer-only client to the given brokers.
func New(brokers []string, opts ...Option) (*Publisher, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
		kgo.ProduceRequestTimeout(5*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}

	p := &Publisher{
		client: client,
		topic:  defaultTopic,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// payload is the wire shape published to Kafka. Keyed by protocol when
// present so retries of one logical document land in one partition.
type payload struct {
	ID           string            `json:"id"`
	Origin       string            `json:"origin"`
	SenderCNPJ   string            `json:"senderCnpj,omitempty"`
	RecipientCPF string            `json:"recipientCpf"`
	Protocol     string            `json:"protocol,omitempty"`
	FileName     string            `json:"fileName"`
	FileHash     string            `json:"fileHash"`
	DocumentType string            `json:"documentType"`
	Status       string            `json:"status"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	CreatedAt    string            `json:"createdAt"`
}

// Publish produces one record asynchronously. Delivery failures are logged
// by the produce callback; callers never block on broker availability.
func (p *Publisher) Publish(ctx context.Context, rec audit.Record) error {
	value, err := json.Marshal(payload{
		ID:           rec.ID.String(),
		Origin:       string(rec.Origin),
		SenderCNPJ:   rec.SenderCNPJ,
		RecipientCPF: rec.RecipientCPF,
		Protocol:     rec.Protocol,
		FileName:     rec.FileName,
		FileHash:     rec.FileHash,
		DocumentType: string(rec.DocumentType),
		Status:       string(rec.Status),
		Metadata:     rec.Metadata,
		CreatedAt:    rec.CreatedAt.Format(time.RFC3339Nano),
	})
	if err != nil {
		return fmt.Errorf("marshal audit payload: %w", err)
	}

	key := rec.Protocol
	if key == "" {
		key = rec.ID.String()
	}

	p.client.Produce(context.WithoutCancel(ctx), &kgo.Record{
		Topic: p.topic,
		Key:   []byte(key),
		Value: value,
	}, func(r *kgo.Record, err error) {
		if err != nil {
			p.logger.Warn("audit record not delivered to kafka",
				"error", err,
				"record_id", rec.ID,
			)
		}
	})
	return nil
}

// Close flushes pending records and releases the client.
func (p *Publisher) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = p.client.Flush(ctx)
	p.client.Close()
}
