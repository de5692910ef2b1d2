package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "development", cfg.Server.Env)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "purchase-events", cfg.Kafka.TopicPurchase)
	assert.Equal(t, "payment-events", cfg.Kafka.TopicPayment)
	assert.True(t, cfg.Payment.SimulateProvider)
	assert.InDelta(t, 0.9, cfg.Payment.SuccessRate, 1e-9)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092,kafka-2:9092")
	t.Setenv("PAYMENT_SIMULATE", "false")
	t.Setenv("PAYMENT_SUCCESS_RATE", "0.5")

	cfg := Load()

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Kafka.Brokers)
	assert.False(t, cfg.Payment.SimulateProvider)
	assert.InDelta(t, 0.5, cfg.Payment.SuccessRate, 1e-9)
}

func TestLoadBadSuccessRateFallsBack(t *testing.T) {
	t.Setenv("PAYMENT_SUCCESS_RATE", "not-a-number")

	cfg := Load()
	assert.InDelta(t, 0.9, cfg.Payment.SuccessRate, 1e-9)
}
