package repository

import (
	"context"

	"SignalDesk/internal/domain/models"
	domrepo "SignalDesk/internal/domain/repository"
	pkgkafka "SignalDesk/pkg/kafka"
)

type messageProducer interface {
	Publish(ctx context.Context, msg pkgkafka.Message) error
	Close() error
}

// KafkaSnapshotPublisher streams every snapshot to Kafka keyed by pair, so consumers see
// one ordered partition per instrument.
type KafkaSnapshotPublisher struct {
	producer messageProducer
}

var _ domrepo.SnapshotSink = (*KafkaSnapshotPublisher)(nil)

// NewKafkaSnapshotPublisher creates Kafka publisher.
func NewKafkaSnapshotPublisher(producer *pkgkafka.Producer) *KafkaSnapshotPublisher {
	return &KafkaSnapshotPublisher{producer: producer}
}

func (p *KafkaSnapshotPublisher) Name() string { return "kafka" }

func (p *KafkaSnapshotPublisher) Write(ctx context.Context, snap *models.Snapshot) error {
	return p.producer.Publish(ctx, pkgkafka.Message{
		Key:   []byte(snap.Pair),
		Value: snap,
		Headers: map[string]string{
			"event_id": snap.EventID,
			"cycle_id": snap.CycleID,
			"scope":    snap.Scope,
		},
	})
}

func (p *KafkaSnapshotPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}
