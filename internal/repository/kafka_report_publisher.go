package repository

import (
	"context"

	"ShapeFinder/internal/domain/models"
	"ShapeFinder/internal/domain/repository"
	pkgkafka "ShapeFinder/pkg/kafka"
)

// KafkaReportPublisher writes match reports as JSON keyed by query name.
type KafkaReportPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

var _ repository.ReportPublisher = (*KafkaReportPublisher)(nil)

// NewKafkaReportPublisher creates Kafka publisher.
func NewKafkaReportPublisher(producer *pkgkafka.Producer, topic string) *KafkaReportPublisher {
	return &KafkaReportPublisher{producer: producer, topic: topic}
}

func (p *KafkaReportPublisher) Publish(ctx context.Context, r *models.MatchReport) error {
	return p.producer.Publish(ctx, p.topic, []byte(r.Query), r)
}

func (p *KafkaReportPublisher) Close() error {
	return p.producer.Close()
}
