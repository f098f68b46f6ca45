package evaluator

import (
	"encoding/json"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"sentinel-pipeline/internal/models"
)

// 温度规则阈值（华氏度）
const (
	temperatureThreshold = 80.0
	temperatureCritical  = 90.0
)

// 去重窗口（分钟），按告警来源区分策略
const (
	TelemetryDedupWindowMinutes = 5
	OfflineDedupWindowMinutes   = 15
)

// RuleEvaluator 告警规则评估器。
// 纯函数式约定：输入一条读数，输出零或一个候选告警。
// 后续新增字段/阈值规则时保持同一调用契约。
type RuleEvaluator struct {
	logger *zap.Logger
}

// NewRuleEvaluator 创建规则评估器
func NewRuleEvaluator(logger *zap.Logger) *RuleEvaluator {
	return &RuleEvaluator{
		logger: logger,
	}
}

// Evaluate 评估一条遥测读数，返回候选告警（无告警条件时返回 nil）
func (e *RuleEvaluator) Evaluate(device *models.Device, data map[string]interface{}) *models.AlertCandidate {
	if data == nil {
		return nil
	}

	temperature, ok := extractTemperature(data)
	if !ok {
		// 没有温度字段不是错误，只是无候选告警
		return nil
	}

	e.logger.Debug("Temperature reading",
		zap.Float64("temperature", temperature),
		zap.String("device_id", device.DeviceID),
	)

	if temperature <= temperatureThreshold {
		return nil
	}

	severity := models.SeverityHigh
	if temperature > temperatureCritical {
		severity = models.SeverityCritical
	}

	metadata, _ := json.Marshal(map[string]interface{}{
		"temperature": temperature,
		"threshold":   temperatureThreshold,
	})

	return &models.AlertCandidate{
		Type:     models.AlertTypeTemperatureThreshold,
		Severity: severity,
		Message: fmt.Sprintf("Temperature %s°F exceeds threshold on %s",
			strconv.FormatFloat(temperature, 'f', -1, 64), device.Name),
		IsPublic: true,
		Metadata: string(metadata),
	}
}

// extractTemperature 提取温度值，兼容多种线上表示：
// 原生数值、json.Number、字符串编码的数值。
func extractTemperature(data map[string]interface{}) (float64, bool) {
	value, ok := data["temperature"]
	if !ok {
		return 0, false
	}

	switch v := value.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case json.Number:
		parsed, err := v.Float64()
		if err != nil {
			return 0, false
		}
		return parsed, true
	case string:
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, false
		}
		return parsed, true
	default:
		return 0, false
	}
}
