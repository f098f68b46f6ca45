package simulator

import (
	"context"
	"database/sql"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"sentinel-pipeline/internal/config"
	"sentinel-pipeline/internal/evaluator"
	"sentinel-pipeline/internal/models"
	"sentinel-pipeline/internal/repository"
)

// Simulator 模拟模式工作者。
// 初次连接 MQTT broker 失败时替代接入工作者运行，
// 周期性更新少量设备心跳并随机生成合成告警，
// 让持久化、去重、告警链路在无真实传输的环境中保持可观测。
type Simulator struct {
	config  *config.Config
	db      *sql.DB
	devices *repository.DeviceRepository
	alerts  *repository.AlertRepository
	guard   *evaluator.DedupGuard
	logger  *zap.Logger

	// 约 10% 概率生成合成告警
	shouldAlert func() bool
}

// NewSimulator 创建模拟工作者
func NewSimulator(
	cfg *config.Config,
	db *sql.DB,
	devices *repository.DeviceRepository,
	alerts *repository.AlertRepository,
	guard *evaluator.DedupGuard,
	logger *zap.Logger,
) *Simulator {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	return &Simulator{
		config:  cfg,
		db:      db,
		devices: devices,
		alerts:  alerts,
		guard:   guard,
		logger:  logger,
		shouldAlert: func() bool {
			return rng.Intn(10) > 8
		},
	}
}

// Run 启动模拟循环，阻塞直至上下文取消
func (s *Simulator) Run(ctx context.Context) {
	s.logger.Info("Running in simulation mode - generating synthetic telemetry",
		zap.Duration("interval", s.config.Pipeline.SimulationInterval),
		zap.Int("device_limit", s.config.Pipeline.SimulationDeviceLimit),
	)

	ticker := time.NewTicker(s.config.Pipeline.SimulationInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Simulation mode stopped")
			return
		case <-ticker.C:
			if err := s.tick(ctx); err != nil {
				s.logger.Error("Simulation tick failed", zap.Error(err))
			}
		}
	}
}

// tick 执行一轮模拟：更新心跳，随机生成合成告警，轮末一次性提交
func (s *Simulator) tick(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	devices := s.devices.WithTx(tx)
	alerts := s.alerts.WithTx(tx)

	selected, err := devices.ListFirst(ctx, s.config.Pipeline.SimulationDeviceLimit)
	if err != nil {
		return err
	}

	now := time.Now().UTC()

	for _, device := range selected {
		if err := devices.UpdateHeartbeat(ctx, device.DeviceID, now); err != nil {
			return err
		}

		if !s.shouldAlert() {
			continue
		}

		allowed, err := s.guard.Allow(ctx, alerts, &device, models.AlertTypeTemperatureThreshold, evaluator.TelemetryDedupWindowMinutes)
		if err != nil {
			return err
		}
		if !allowed {
			continue
		}

		// 合成告警不经过规则评估，级别固定为 High
		alert := &models.Alert{
			AlertID:   uuid.New().String(),
			TenantID:  device.TenantID,
			DeviceID:  device.DeviceID,
			Type:      models.AlertTypeTemperatureThreshold,
			Severity:  models.SeverityHigh,
			Message:   fmt.Sprintf("Simulated alert for %s", device.Name),
			IsPublic:  true,
			CreatedAt: now,
		}
		if err := alerts.Create(ctx, alert); err != nil {
			return err
		}

		s.logger.Warn("Generated simulated alert",
			zap.String("device_id", device.DeviceID),
			zap.String("external_id", device.ExternalID),
		)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.logger.Info("Processed simulation batch",
		zap.Int("devices", len(selected)),
	)

	return nil
}
