package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/wardscope/flood-vulnerability-etl/internal/config"
	"github.com/wardscope/flood-vulnerability-etl/internal/domain"
)

// Writer produces per-ward vulnerability scores to a Kafka topic.
// It implements pipeline.Publisher.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured scores topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// scoreMessage is the wire form of one ward's scores.
type scoreMessage struct {
	RunID                   string    `json:"run_id"`
	ComputedAt              time.Time `json:"computed_at"`
	ZoneID                  string    `json:"zone_id"`
	ZoneName                string    `json:"zone_name,omitempty"`
	Physical                float64   `json:"physical_index"`
	Socioeconomic           float64   `json:"socioeconomic_index"`
	Overall                 float64   `json:"overall_index"`
	PhysicalWeightUsed      float64   `json:"physical_weight_used"`
	SocioeconomicWeightUsed float64   `json:"socioeconomic_weight_used"`
	Flags                   []string  `json:"flags,omitempty"`
}

// Publish serializes one run's rows and writes them to the scores topic in a
// single WriteMessages call for efficiency. Messages are keyed by zone id so
// consumers see each ward's scores in run order.
func (w *Writer) Publish(ctx context.Context, runID string, computedAt time.Time, rows []domain.OverallIndex) error {
	if len(rows) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(rows))
	for i := range rows {
		msg, err := serializeScore(runID, computedAt, rows[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	return w.writer.WriteMessages(ctx, msgs...)
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeScore marshals one ward's scores into a Kafka message.
func serializeScore(runID string, computedAt time.Time, row domain.OverallIndex) (kafkago.Message, error) {
	data, err := json.Marshal(scoreMessage{
		RunID:                   runID,
		ComputedAt:              computedAt,
		ZoneID:                  row.ZoneID,
		ZoneName:                row.ZoneName,
		Physical:                row.Physical,
		Socioeconomic:           row.Socioeconomic,
		Overall:                 row.Overall,
		PhysicalWeightUsed:      row.PhysicalWeightUsed,
		SocioeconomicWeightUsed: row.SocioeconomicWeightUsed,
		Flags:                   row.Flags,
	})
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize score for zone %s: %w", row.ZoneID, err)
	}
	return kafkago.Message{
		Key:   []byte(row.ZoneID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "run_id", Value: []byte(runID)},
			{Key: "computed_at", Value: []byte(computedAt.Format(time.RFC3339))},
		},
	}, nil
}
