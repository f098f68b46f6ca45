package consumer

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeTopic_Valid(t *testing.T) {
	tenantID := uuid.New().String()

	gotTenant, gotDevice, err := DecodeTopic("sentinel/" + tenantID + "/device/sensor-001/telemetry")

	require.NoError(t, err)
	assert.Equal(t, tenantID, gotTenant)
	assert.Equal(t, "sensor-001", gotDevice)
}

func TestDecodeTopic_Malformed(t *testing.T) {
	tenantID := uuid.New().String()

	cases := []string{
		"sentinel/bad",
		"",
		"sentinel/" + tenantID + "/device/sensor-001",
		"sentinel/" + tenantID + "/device/sensor-001/telemetry/extra",
		"other/" + tenantID + "/device/sensor-001/telemetry",
		"sentinel/" + tenantID + "/gateway/sensor-001/telemetry",
		"sentinel/" + tenantID + "/device/sensor-001/data",
		"sentinel/" + tenantID + "/device//telemetry",
	}

	for _, topic := range cases {
		_, _, err := DecodeTopic(topic)
		assert.ErrorIs(t, err, ErrMalformedTopic, "topic %q", topic)
	}
}

func TestDecodeTopic_UnresolvableTenant(t *testing.T) {
	_, _, err := DecodeTopic("sentinel/not-a-tenant/device/sensor-001/telemetry")

	assert.ErrorIs(t, err, ErrUnresolvableTenant)
}

func TestDecodePayload_Valid(t *testing.T) {
	payload := []byte(`{"type":"reading","data":{"temperature":95},"timestamp":"2024-01-01T00:00:00Z"}`)

	message, err := DecodePayload(payload)

	require.NoError(t, err)
	assert.Equal(t, "reading", message.Type)
	assert.Equal(t, float64(95), message.Data["temperature"])
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), message.Timestamp.UTC())
}

func TestDecodePayload_OptionalFields(t *testing.T) {
	message, err := DecodePayload([]byte(`{"timestamp":"2024-01-01T00:00:00Z"}`))

	require.NoError(t, err)
	assert.Empty(t, message.Type)
	assert.Nil(t, message.Data)
}

func TestDecodePayload_Malformed(t *testing.T) {
	cases := [][]byte{
		[]byte(`{not json`),
		[]byte(``),
		[]byte(`[]`),
		[]byte(`{"data":"not-an-object"}`),
	}

	for _, payload := range cases {
		_, err := DecodePayload(payload)
		assert.ErrorIs(t, err, ErrMalformedPayload, "payload %q", payload)
	}
}
