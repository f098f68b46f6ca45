package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"sentinel-pipeline/internal/models"
)

// DeviceRepository 设备仓库
type DeviceRepository struct {
	q      Querier
	logger *zap.Logger
}

// NewDeviceRepository 创建设备仓库
func NewDeviceRepository(db *sql.DB, logger *zap.Logger) *DeviceRepository {
	return &DeviceRepository{
		q:      db,
		logger: logger,
	}
}

// WithTx 返回在指定事务上执行的仓库副本
func (r *DeviceRepository) WithTx(tx *sql.Tx) *DeviceRepository {
	return &DeviceRepository{
		q:      tx,
		logger: r.logger,
	}
}

const deviceColumns = `
	device_id, tenant_id, external_id, name, status,
	last_seen_at, metadata, created_at, updated_at
`

// GetByExternalID 按 (tenant_id, external_id) 查询设备
func (r *DeviceRepository) GetByExternalID(ctx context.Context, tenantID, externalID string) (*models.Device, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("tenant_id is required")
	}

	query := `
		SELECT ` + deviceColumns + `
		FROM devices
		WHERE tenant_id = $1 AND external_id = $2
	`

	device, err := scanDevice(r.q.QueryRowContext(ctx, query, tenantID, externalID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("device %s: %w", externalID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to query device: %w", err)
	}

	return device, nil
}

// ListStale 查询超过阈值未上报且状态为 Active 的设备。
// 健康巡检跨租户运行，此处不做租户过滤。
func (r *DeviceRepository) ListStale(ctx context.Context, thresholdMinutes int) ([]models.Device, error) {
	threshold := time.Now().UTC().Add(-time.Duration(thresholdMinutes) * time.Minute)

	query := `
		SELECT ` + deviceColumns + `
		FROM devices
		WHERE status = $1 AND last_seen_at < $2
	`

	rows, err := r.q.QueryContext(ctx, query, models.DeviceStatusActive, threshold)
	if err != nil {
		return nil, fmt.Errorf("failed to query stale devices: %w", err)
	}
	defer rows.Close()

	return collectDevices(rows)
}

// ListFirst 按创建时间返回前 limit 台设备（模拟模式使用，选择稳定）
func (r *DeviceRepository) ListFirst(ctx context.Context, limit int) ([]models.Device, error) {
	query := `
		SELECT ` + deviceColumns + `
		FROM devices
		ORDER BY created_at
		LIMIT $1
	`

	rows, err := r.q.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query devices: %w", err)
	}
	defer rows.Close()

	return collectDevices(rows)
}

// UpdateHeartbeat 更新设备心跳时间
func (r *DeviceRepository) UpdateHeartbeat(ctx context.Context, deviceID string, seenAt time.Time) error {
	query := `
		UPDATE devices
		SET last_seen_at = $2, updated_at = $2
		WHERE device_id = $1
	`

	if _, err := r.q.ExecContext(ctx, query, deviceID, seenAt); err != nil {
		return fmt.Errorf("failed to update device heartbeat: %w", err)
	}

	return nil
}

// UpdateStatus 更新设备状态
func (r *DeviceRepository) UpdateStatus(ctx context.Context, deviceID string, status models.DeviceStatus) error {
	query := `
		UPDATE devices
		SET status = $2, updated_at = $3
		WHERE device_id = $1
	`

	if _, err := r.q.ExecContext(ctx, query, deviceID, status, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to update device status: %w", err)
	}

	return nil
}

func scanDevice(row *sql.Row) (*models.Device, error) {
	var device models.Device
	var metadata sql.NullString

	err := row.Scan(
		&device.DeviceID,
		&device.TenantID,
		&device.ExternalID,
		&device.Name,
		&device.Status,
		&device.LastSeenAt,
		&metadata,
		&device.CreatedAt,
		&device.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if metadata.Valid {
		device.Metadata = metadata.String
	}

	return &device, nil
}

func collectDevices(rows *sql.Rows) ([]models.Device, error) {
	var devices []models.Device

	for rows.Next() {
		var device models.Device
		var metadata sql.NullString

		err := rows.Scan(
			&device.DeviceID,
			&device.TenantID,
			&device.ExternalID,
			&device.Name,
			&device.Status,
			&device.LastSeenAt,
			&metadata,
			&device.CreatedAt,
			&device.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan device: %w", err)
		}

		if metadata.Valid {
			device.Metadata = metadata.String
		}

		devices = append(devices, device)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate devices: %w", err)
	}

	return devices, nil
}
