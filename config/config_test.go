package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("BUSINESS_VIP_THRESHOLD", "")
	t.Setenv("BUSINESS_DEMOTE_VIP_ON_CANCEL", "")

	cfg := Load()

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.True(t, cfg.Business.VIPThreshold.Equal(DefaultVIPThreshold))
	assert.False(t, cfg.Business.DemoteVIPOnCancel)
	assert.False(t, cfg.Business.ReverseSupplierOnDelete)
	assert.Equal(t, 30*time.Second, cfg.Business.StatsCacheTTL)
}

func TestLoadBusinessOverrides(t *testing.T) {
	t.Setenv("BUSINESS_VIP_THRESHOLD", "1000000")
	t.Setenv("BUSINESS_DEMOTE_VIP_ON_CANCEL", "true")
	t.Setenv("BUSINESS_REVERSE_SUPPLIER_ON_DELETE", "1")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")

	cfg := Load()

	assert.Equal(t, "1000000", cfg.Business.VIPThreshold.String())
	assert.True(t, cfg.Business.DemoteVIPOnCancel)
	assert.True(t, cfg.Business.ReverseSupplierOnDelete)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
}

func TestLoadInvalidThresholdFallsBack(t *testing.T) {
	t.Setenv("BUSINESS_VIP_THRESHOLD", "lots")

	cfg := Load()

	assert.True(t, cfg.Business.VIPThreshold.Equal(DefaultVIPThreshold))
}

func TestLoadTraceSampleRatio(t *testing.T) {
	cases := map[string]float64{
		"0.25": 0.25,
		"0":    0,
		"1.5":  1,
		"half": 1,
	}
	for raw, want := range cases {
		t.Run(raw, func(t *testing.T) {
			t.Setenv("TRACE_SAMPLE_RATIO", raw)
			assert.Equal(t, want, Load().Observ.TraceSampleRatio)
		})
	}
}
