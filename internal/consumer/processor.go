package consumer

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"sentinel-pipeline/internal/evaluator"
	"sentinel-pipeline/internal/models"
	"sentinel-pipeline/internal/redisx"
	"sentinel-pipeline/internal/repository"
)

// 未携带 type 字段的消息按通用遥测入库
const defaultEventType = "telemetry"

// Processor 单条遥测消息的处理管道：
// 解码 → 设备解析 → 心跳更新 → 遥测落库 → 规则评估 → 去重 → 告警落库。
// 每条消息一个事务，所有写入一次性提交。
type Processor struct {
	db            *sql.DB
	devices       *repository.DeviceRepository
	telemetry     *repository.TelemetryEventRepository
	alerts        *repository.AlertRepository
	ruleEvaluator *evaluator.RuleEvaluator
	guard         *evaluator.DedupGuard
	redisClient   *redis.Client // 可为 nil：无 Redis 时跳过流发布
	stream        string
	logger        *zap.Logger
}

// NewProcessor 创建消息处理器
func NewProcessor(
	db *sql.DB,
	devices *repository.DeviceRepository,
	telemetry *repository.TelemetryEventRepository,
	alerts *repository.AlertRepository,
	ruleEvaluator *evaluator.RuleEvaluator,
	guard *evaluator.DedupGuard,
	redisClient *redis.Client,
	stream string,
	logger *zap.Logger,
) *Processor {
	return &Processor{
		db:            db,
		devices:       devices,
		telemetry:     telemetry,
		alerts:        alerts,
		ruleEvaluator: ruleEvaluator,
		guard:         guard,
		redisClient:   redisClient,
		stream:        stream,
		logger:        logger,
	}
}

// ProcessMessage 处理一条入站消息。
// 畸形输入与未知设备直接丢弃（记录日志，不返回错误）；
// 基础设施失败返回错误，由调用方记录，等待下一条消息自然重试。
func (p *Processor) ProcessMessage(ctx context.Context, topic string, payload []byte) error {
	tenantID, externalID, err := DecodeTopic(topic)
	if err != nil {
		p.logger.Warn("Dropped message with invalid topic",
			zap.String("topic", topic),
			zap.Error(err),
		)
		return nil
	}

	message, err := DecodePayload(payload)
	if err != nil {
		p.logger.Warn("Dropped message with invalid payload",
			zap.String("topic", topic),
			zap.String("tenant_id", tenantID),
			zap.Error(err),
		)
		return nil
	}

	device, candidate, err := p.processDecoded(ctx, tenantID, externalID, message)
	if err != nil || device == nil {
		return err
	}

	// 提交后尽力发布标准化数据到 Redis Streams，失败不影响消息处理结果
	p.publishToStream(ctx, device, message)

	p.logger.Info("Processed telemetry",
		zap.String("device_id", device.DeviceID),
		zap.String("external_id", device.ExternalID),
		zap.String("tenant_id", device.TenantID),
		zap.Bool("alert_created", candidate != nil),
	)

	return nil
}

// processDecoded 在单个事务内完成本条消息的全部写入
func (p *Processor) processDecoded(ctx context.Context, tenantID, externalID string, message *models.TelemetryMessage) (*models.Device, *models.AlertCandidate, error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	devices := p.devices.WithTx(tx)
	telemetry := p.telemetry.WithTx(tx)
	alerts := p.alerts.WithTx(tx)

	device, err := devices.GetByExternalID(ctx, tenantID, externalID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			p.logger.Warn("Device not found, message dropped",
				zap.String("tenant_id", tenantID),
				zap.String("external_id", externalID),
			)
			return nil, nil, nil
		}
		return nil, nil, err
	}

	now := time.Now().UTC()

	if err := devices.UpdateHeartbeat(ctx, device.DeviceID, now); err != nil {
		return nil, nil, err
	}

	eventType := message.Type
	if eventType == "" {
		eventType = defaultEventType
	}

	dataJSON, err := json.Marshal(message.Data)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal telemetry data: %w", err)
	}

	event := &models.TelemetryEvent{
		EventID:    uuid.New().String(),
		TenantID:   tenantID,
		DeviceID:   device.DeviceID,
		EventType:  eventType,
		Payload:    string(dataJSON),
		ReceivedAt: now,
		CreatedAt:  now,
	}
	if err := telemetry.Create(ctx, event); err != nil {
		return nil, nil, err
	}

	candidate := p.ruleEvaluator.Evaluate(device, message.Data)
	if candidate != nil {
		allowed, err := p.guard.Allow(ctx, alerts, device, candidate.Type, evaluator.TelemetryDedupWindowMinutes)
		if err != nil {
			return nil, nil, err
		}

		if !allowed {
			candidate = nil
		} else {
			alert := &models.Alert{
				AlertID:   uuid.New().String(),
				TenantID:  device.TenantID,
				DeviceID:  device.DeviceID,
				Type:      candidate.Type,
				Severity:  candidate.Severity,
				Message:   candidate.Message,
				IsPublic:  candidate.IsPublic,
				Metadata:  candidate.Metadata,
				CreatedAt: now,
			}
			if err := alerts.Create(ctx, alert); err != nil {
				return nil, nil, err
			}

			p.logger.Warn("Generated alert",
				zap.String("device_id", device.DeviceID),
				zap.String("alert_type", string(candidate.Type)),
				zap.String("severity", string(candidate.Severity)),
			)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return device, candidate, nil
}

// publishToStream 发布标准化遥测数据到 Redis Streams（尽力而为）
func (p *Processor) publishToStream(ctx context.Context, device *models.Device, message *models.TelemetryMessage) {
	if p.redisClient == nil {
		return
	}

	standardized := map[string]interface{}{
		"device_id":   device.DeviceID,
		"tenant_id":   device.TenantID,
		"external_id": device.ExternalID,
		"event_type":  message.Type,
		"data":        message.Data,
		"timestamp":   message.Timestamp,
	}

	if _, err := redisx.PublishJSONToStream(ctx, p.redisClient, p.stream, standardized); err != nil {
		p.logger.Error("Failed to publish telemetry to Redis Streams",
			zap.String("stream", p.stream),
			zap.String("device_id", device.DeviceID),
			zap.Error(err),
		)
	}
}
