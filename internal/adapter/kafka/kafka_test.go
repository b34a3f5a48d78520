package kafka

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wardscope/flood-vulnerability-etl/internal/domain"
)

func TestSerializeScore(t *testing.T) {
	at := time.Date(2025, 6, 1, 6, 0, 42, 0, time.UTC)
	row := domain.OverallIndex{
		ZoneID:                  "W01",
		ZoneName:                "Colaba",
		Physical:                90.5,
		Socioeconomic:           70,
		Overall:                 82.3,
		PhysicalWeightUsed:      1,
		SocioeconomicWeightUsed: 0.7,
		Flags:                   []string{"degraded_extraction"},
	}

	msg, err := serializeScore("run-1234", at, row)
	require.NoError(t, err)

	assert.Equal(t, []byte("W01"), msg.Key)
	assert.Contains(t, string(msg.Value), `"run_id":"run-1234"`)
	assert.Contains(t, string(msg.Value), `"zone_id":"W01"`)
	assert.Contains(t, string(msg.Value), `"overall_index":82.3`)
	assert.Contains(t, string(msg.Value), `"socioeconomic_weight_used":0.7`)
	assert.Contains(t, string(msg.Value), `"flags":["degraded_extraction"]`)
	require.Len(t, msg.Headers, 2)
	assert.Equal(t, "run_id", msg.Headers[0].Key)
	assert.Equal(t, []byte("run-1234"), msg.Headers[0].Value)
	assert.Equal(t, "computed_at", msg.Headers[1].Key)
	assert.Equal(t, []byte(at.Format(time.RFC3339)), msg.Headers[1].Value)
}

func TestSerializeScoreOmitsEmptyOptionals(t *testing.T) {
	msg, err := serializeScore("run-1", time.Now(), domain.OverallIndex{ZoneID: "W02"})
	require.NoError(t, err)

	assert.NotContains(t, string(msg.Value), "zone_name")
	assert.NotContains(t, string(msg.Value), "flags")
}

func TestPublishNothingIsANoop(t *testing.T) {
	w := &Writer{}

	err := w.Publish(context.Background(), "run-1", time.Now(), nil)

	assert.NoError(t, err)
}
