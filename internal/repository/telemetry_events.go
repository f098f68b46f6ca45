package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"sentinel-pipeline/internal/models"
)

// TelemetryEventRepository 遥测事件仓库（只追加）
type TelemetryEventRepository struct {
	q      Querier
	logger *zap.Logger
}

// NewTelemetryEventRepository 创建遥测事件仓库
func NewTelemetryEventRepository(db *sql.DB, logger *zap.Logger) *TelemetryEventRepository {
	return &TelemetryEventRepository{
		q:      db,
		logger: logger,
	}
}

// WithTx 返回在指定事务上执行的仓库副本
func (r *TelemetryEventRepository) WithTx(tx *sql.Tx) *TelemetryEventRepository {
	return &TelemetryEventRepository{
		q:      tx,
		logger: r.logger,
	}
}

// Create 写入遥测事件
func (r *TelemetryEventRepository) Create(ctx context.Context, event *models.TelemetryEvent) error {
	if event.TenantID == "" {
		return fmt.Errorf("tenant_id is required")
	}

	query := `
		INSERT INTO telemetry_events (
			event_id, tenant_id, device_id, event_type, payload, received_at, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.q.ExecContext(ctx, query,
		event.EventID,
		event.TenantID,
		event.DeviceID,
		event.EventType,
		event.Payload,
		event.ReceivedAt,
		event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create telemetry event: %w", err)
	}

	return nil
}
