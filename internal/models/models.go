package models

import "time"

// DeviceStatus 设备状态
type DeviceStatus string

const (
	DeviceStatusActive         DeviceStatus = "Active"
	DeviceStatusInactive       DeviceStatus = "Inactive"
	DeviceStatusOffline        DeviceStatus = "Offline"
	DeviceStatusMaintenance    DeviceStatus = "Maintenance"
	DeviceStatusDecommissioned DeviceStatus = "Decommissioned"
)

// AlertType 告警类型
type AlertType string

const (
	AlertTypeDeviceOffline        AlertType = "DeviceOffline"
	AlertTypeTemperatureThreshold AlertType = "TemperatureThreshold"
	AlertTypeMotionDetected       AlertType = "MotionDetected"
	AlertTypeLowBattery           AlertType = "LowBattery"
	AlertTypeAnomalyDetected      AlertType = "AnomalyDetected"
	AlertTypeFireAlarm            AlertType = "FireAlarm"
	AlertTypeSecurityBreach       AlertType = "SecurityBreach"
)

// AlertSeverity 告警级别（从低到高：Low < Medium < High < Critical）
type AlertSeverity string

const (
	SeverityLow      AlertSeverity = "Low"
	SeverityMedium   AlertSeverity = "Medium"
	SeverityHigh     AlertSeverity = "High"
	SeverityCritical AlertSeverity = "Critical"
)

// Device 设备实体，按 (tenant_id, external_id) 在租户内唯一
type Device struct {
	DeviceID   string
	TenantID   string
	ExternalID string
	Name       string
	Status     DeviceStatus
	LastSeenAt time.Time
	Metadata   string // 自由格式 JSON
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// TelemetryEvent 遥测事件（不可变，只追加）
type TelemetryEvent struct {
	EventID    string
	TenantID   string
	DeviceID   string
	EventType  string
	Payload    string // 原始 data 的 JSON 序列化
	ReceivedAt time.Time
	CreatedAt  time.Time
}

// Alert 告警记录
type Alert struct {
	AlertID        string
	TenantID       string
	DeviceID       string
	Type           AlertType
	Severity       AlertSeverity
	Message        string
	IsPublic       bool
	IsAcknowledged bool
	AcknowledgedAt *time.Time
	Metadata       string // 自由格式 JSON
	CreatedAt      time.Time
}

// AlertCandidate 规则评估产生的候选告警（尚未去重、尚未落库）
type AlertCandidate struct {
	Type     AlertType
	Severity AlertSeverity
	Message  string
	IsPublic bool
	Metadata string
}

// TelemetryMessage MQTT 遥测消息载荷
// 格式: {"type": string?, "data": {...}?, "timestamp": ISO-8601}
type TelemetryMessage struct {
	Type      string                 `json:"type"`
	Data      map[string]interface{} `json:"data"`
	Timestamp time.Time              `json:"timestamp"`
}
