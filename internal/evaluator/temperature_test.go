package evaluator

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"sentinel-pipeline/internal/models"
)

func testDevice() *models.Device {
	return &models.Device{
		DeviceID:   uuid.New().String(),
		TenantID:   uuid.New().String(),
		ExternalID: "sensor-001",
		Name:       "Lobby Sensor",
		Status:     models.DeviceStatusActive,
	}
}

func TestEvaluate_BelowThreshold(t *testing.T) {
	e := NewRuleEvaluator(zap.NewNop())

	for _, temperature := range []float64{-10, 0, 72.5, 80} {
		candidate := e.Evaluate(testDevice(), map[string]interface{}{"temperature": temperature})
		assert.Nil(t, candidate, "temperature %.1f should not produce an alert", temperature)
	}
}

func TestEvaluate_HighSeverity(t *testing.T) {
	e := NewRuleEvaluator(zap.NewNop())

	candidate := e.Evaluate(testDevice(), map[string]interface{}{"temperature": 85.0})

	require.NotNil(t, candidate)
	assert.Equal(t, models.AlertTypeTemperatureThreshold, candidate.Type)
	assert.Equal(t, models.SeverityHigh, candidate.Severity)
	assert.True(t, candidate.IsPublic)
	assert.Equal(t, "Temperature 85°F exceeds threshold on Lobby Sensor", candidate.Message)
}

func TestEvaluate_CriticalSeverity(t *testing.T) {
	e := NewRuleEvaluator(zap.NewNop())

	candidate := e.Evaluate(testDevice(), map[string]interface{}{"temperature": 95.0})

	require.NotNil(t, candidate)
	assert.Equal(t, models.SeverityCritical, candidate.Severity)

	// metadata 记录测量值与阈值
	var metadata map[string]float64
	require.NoError(t, json.Unmarshal([]byte(candidate.Metadata), &metadata))
	assert.Equal(t, 95.0, metadata["temperature"])
	assert.Equal(t, 80.0, metadata["threshold"])
}

func TestEvaluate_BoundaryAt90(t *testing.T) {
	e := NewRuleEvaluator(zap.NewNop())

	// 90 整属于 High，90 以上才是 Critical
	candidate := e.Evaluate(testDevice(), map[string]interface{}{"temperature": 90.0})
	require.NotNil(t, candidate)
	assert.Equal(t, models.SeverityHigh, candidate.Severity)

	candidate = e.Evaluate(testDevice(), map[string]interface{}{"temperature": 90.1})
	require.NotNil(t, candidate)
	assert.Equal(t, models.SeverityCritical, candidate.Severity)
}

func TestEvaluate_StringEncodedTemperature(t *testing.T) {
	e := NewRuleEvaluator(zap.NewNop())

	candidate := e.Evaluate(testDevice(), map[string]interface{}{"temperature": "95"})

	require.NotNil(t, candidate)
	assert.Equal(t, models.SeverityCritical, candidate.Severity)
}

func TestEvaluate_JSONNumberTemperature(t *testing.T) {
	e := NewRuleEvaluator(zap.NewNop())

	candidate := e.Evaluate(testDevice(), map[string]interface{}{"temperature": json.Number("85.5")})

	require.NotNil(t, candidate)
	assert.Equal(t, models.SeverityHigh, candidate.Severity)
}

func TestEvaluate_MissingTemperature(t *testing.T) {
	e := NewRuleEvaluator(zap.NewNop())

	assert.Nil(t, e.Evaluate(testDevice(), map[string]interface{}{"humidity": 40.0}))
	assert.Nil(t, e.Evaluate(testDevice(), map[string]interface{}{}))
	assert.Nil(t, e.Evaluate(testDevice(), nil))
}

func TestEvaluate_UnparseableTemperature(t *testing.T) {
	e := NewRuleEvaluator(zap.NewNop())

	assert.Nil(t, e.Evaluate(testDevice(), map[string]interface{}{"temperature": "hot"}))
	assert.Nil(t, e.Evaluate(testDevice(), map[string]interface{}{"temperature": true}))
	assert.Nil(t, e.Evaluate(testDevice(), map[string]interface{}{"temperature": []interface{}{95.0}}))
}
