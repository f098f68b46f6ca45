package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"sentinel-pipeline/internal/models"
)

// AlertRepository 告警仓库
type AlertRepository struct {
	q      Querier
	logger *zap.Logger
}

// NewAlertRepository 创建告警仓库
func NewAlertRepository(db *sql.DB, logger *zap.Logger) *AlertRepository {
	return &AlertRepository{
		q:      db,
		logger: logger,
	}
}

// WithTx 返回在指定事务上执行的仓库副本
func (r *AlertRepository) WithTx(tx *sql.Tx) *AlertRepository {
	return &AlertRepository{
		q:      tx,
		logger: r.logger,
	}
}

// HasRecentAlert 查询 (device_id, alert_type) 在去重窗口内是否已有告警
func (r *AlertRepository) HasRecentAlert(ctx context.Context, deviceID string, alertType models.AlertType, windowMinutes int) (bool, error) {
	threshold := time.Now().UTC().Add(-time.Duration(windowMinutes) * time.Minute)

	query := `
		SELECT EXISTS(
			SELECT 1 FROM alerts
			WHERE device_id = $1 AND alert_type = $2 AND created_at > $3
		)
	`

	var exists bool
	err := r.q.QueryRowContext(ctx, query, deviceID, alertType, threshold).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to query recent alerts: %w", err)
	}

	return exists, nil
}

// Create 创建告警记录
func (r *AlertRepository) Create(ctx context.Context, alert *models.Alert) error {
	if alert.TenantID == "" {
		return fmt.Errorf("tenant_id is required")
	}

	query := `
		INSERT INTO alerts (
			alert_id, tenant_id, device_id, alert_type, severity,
			message, is_public, is_acknowledged, acknowledged_at, metadata, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	var metadata interface{}
	if alert.Metadata != "" {
		metadata = alert.Metadata
	}

	_, err := r.q.ExecContext(ctx, query,
		alert.AlertID,
		alert.TenantID,
		alert.DeviceID,
		alert.Type,
		alert.Severity,
		alert.Message,
		alert.IsPublic,
		alert.IsAcknowledged,
		alert.AcknowledgedAt,
		metadata,
		alert.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create alert: %w", err)
	}

	return nil
}
