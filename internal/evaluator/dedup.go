package evaluator

import (
	"context"

	"go.uber.org/zap"

	"sentinel-pipeline/internal/models"
)

// AlertChecker 告警存在性查询（由告警仓库实现）
type AlertChecker interface {
	HasRecentAlert(ctx context.Context, deviceID string, alertType models.AlertType, windowMinutes int) (bool, error)
}

// DedupGuard 告警去重守卫。
// 先查后写：同一设备在同一窗口内的并发评估可能都通过检查后各自落库，
// 重复告警以轮询/接入节奏为界，策略上接受该竞态（见 HasRecentAlert 的窗口语义）。
type DedupGuard struct {
	logger *zap.Logger
}

// NewDedupGuard 创建去重守卫
func NewDedupGuard(logger *zap.Logger) *DedupGuard {
	return &DedupGuard{
		logger: logger,
	}
}

// Allow 判断是否允许为 (device, alertType) 创建新告警。
// 窗口内已有同类告警时抑制创建。
func (g *DedupGuard) Allow(ctx context.Context, alerts AlertChecker, device *models.Device, alertType models.AlertType, windowMinutes int) (bool, error) {
	exists, err := alerts.HasRecentAlert(ctx, device.DeviceID, alertType, windowMinutes)
	if err != nil {
		return false, err
	}

	if exists {
		g.logger.Info("Skipped duplicate alert",
			zap.String("device_id", device.DeviceID),
			zap.String("tenant_id", device.TenantID),
			zap.String("alert_type", string(alertType)),
			zap.Int("window_minutes", windowMinutes),
		)
		return false, nil
	}

	return true, nil
}
