package consumer

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"sentinel-pipeline/internal/models"
)

// 解码失败分类。发布端不可信，畸形消息属于预期流量：
// 全部丢弃、不重试、不生成告警。
var (
	ErrMalformedTopic     = errors.New("malformed topic")
	ErrMalformedPayload   = errors.New("malformed payload")
	ErrUnresolvableTenant = errors.New("unresolvable tenant")
)

// DecodeTopic 解析遥测主题。
// 主题格式: sentinel/{tenantId}/device/{deviceId}/telemetry（固定5段）
func DecodeTopic(topic string) (tenantID string, externalID string, err error) {
	parts := strings.Split(topic, "/")
	if len(parts) != 5 || parts[0] != "sentinel" || parts[2] != "device" || parts[4] != "telemetry" {
		return "", "", fmt.Errorf("%w: %s", ErrMalformedTopic, topic)
	}

	if parts[3] == "" {
		return "", "", fmt.Errorf("%w: empty device segment in %s", ErrMalformedTopic, topic)
	}

	// 租户段必须是合法的租户标识
	if _, parseErr := uuid.Parse(parts[1]); parseErr != nil {
		return "", "", fmt.Errorf("%w: %s", ErrUnresolvableTenant, parts[1])
	}

	return parts[1], parts[3], nil
}

// DecodePayload 解析遥测消息载荷
func DecodePayload(payload []byte) (*models.TelemetryMessage, error) {
	var message models.TelemetryMessage
	if err := json.Unmarshal(payload, &message); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	return &message, nil
}
