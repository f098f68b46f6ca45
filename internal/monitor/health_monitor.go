package monitor

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"sentinel-pipeline/internal/config"
	"sentinel-pipeline/internal/evaluator"
	"sentinel-pipeline/internal/models"
	"sentinel-pipeline/internal/repository"
)

// HealthMonitor 设备健康巡检工作者。
// 按固定间隔扫描超过离线阈值未上报的 Active 设备（跨租户），
// 生成去重后的离线告警并把设备状态置为 Offline。
// 每轮巡检一个事务，所有写入在轮末一次性提交。
type HealthMonitor struct {
	config  *config.Config
	db      *sql.DB
	devices *repository.DeviceRepository
	alerts  *repository.AlertRepository
	guard   *evaluator.DedupGuard
	logger  *zap.Logger
}

// NewHealthMonitor 创建健康巡检工作者
func NewHealthMonitor(
	cfg *config.Config,
	db *sql.DB,
	devices *repository.DeviceRepository,
	alerts *repository.AlertRepository,
	guard *evaluator.DedupGuard,
	logger *zap.Logger,
) *HealthMonitor {
	return &HealthMonitor{
		config:  cfg,
		db:      db,
		devices: devices,
		alerts:  alerts,
		guard:   guard,
		logger:  logger,
	}
}

// Run 启动巡检循环，阻塞直至上下文取消。
// 单轮失败记录日志后下一轮照常执行。
func (m *HealthMonitor) Run(ctx context.Context) {
	m.logger.Info("Device health monitor started",
		zap.Duration("interval", m.config.Pipeline.HealthSweepInterval),
		zap.Int("offline_threshold_minutes", m.config.Pipeline.OfflineThresholdMinutes),
	)

	if err := m.sweep(ctx); err != nil {
		m.logger.Error("Health sweep failed", zap.Error(err))
	}

	ticker := time.NewTicker(m.config.Pipeline.HealthSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("Device health monitor stopped")
			return
		case <-ticker.C:
			if err := m.sweep(ctx); err != nil {
				m.logger.Error("Health sweep failed", zap.Error(err))
			}
		}
	}
}

// sweep 执行一轮巡检
func (m *HealthMonitor) sweep(ctx context.Context) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	devices := m.devices.WithTx(tx)
	alerts := m.alerts.WithTx(tx)

	thresholdMinutes := m.config.Pipeline.OfflineThresholdMinutes
	stale, err := devices.ListStale(ctx, thresholdMinutes)
	if err != nil {
		return err
	}

	now := time.Now().UTC()

	for _, device := range stale {
		allowed, err := m.guard.Allow(ctx, alerts, &device, models.AlertTypeDeviceOffline, evaluator.OfflineDedupWindowMinutes)
		if err != nil {
			return err
		}

		if allowed {
			alert := &models.Alert{
				AlertID:  uuid.New().String(),
				TenantID: device.TenantID,
				DeviceID: device.DeviceID,
				Type:     models.AlertTypeDeviceOffline,
				Severity: models.SeverityMedium,
				Message: fmt.Sprintf("Device %s has been offline for over %d minutes",
					device.Name, thresholdMinutes),
				IsPublic:  false,
				CreatedAt: now,
			}
			if err := alerts.Create(ctx, alert); err != nil {
				return err
			}

			m.logger.Warn("Device marked as offline",
				zap.String("device_id", device.DeviceID),
				zap.String("external_id", device.ExternalID),
				zap.String("tenant_id", device.TenantID),
			)
		}

		// 状态转换不受去重影响
		if err := devices.UpdateStatus(ctx, device.DeviceID, models.DeviceStatusOffline); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	m.logger.Info("Health sweep completed",
		zap.Int("offline_devices", len(stale)),
	)

	return nil
}
