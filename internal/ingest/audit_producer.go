package ingest

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/codewithtanvir/find-your-ride-partner/internal/models"
	"github.com/codewithtanvir/find-your-ride-partner/internal/observability"
)

// AuditProducer publishes moderation events so downstream consumers (see
// cmd/auditsink) can mirror the trail into long-term storage.
type AuditProducer struct {
	writer *kafka.Writer
}

func NewAuditProducer(brokers []string, topic string) *AuditProducer {
	w := kafka.NewWriter(kafka.WriterConfig{Brokers: brokers, Topic: topic, Balancer: &kafka.LeastBytes{}})
	return &AuditProducer{writer: w}
}

func (p *AuditProducer) Publish(ctx context.Context, e models.AuditEntry) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	b, err := json.Marshal(e)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, kafka.Message{Key: []byte(e.TargetID), Value: b}); err != nil {
		return err
	}
	observability.AuditPublished.Inc()
	return nil
}

func (p *AuditProducer) Close() error {
	if p.writer == nil {
		return nil
	}
	return p.writer.Close()
}
