package service

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"sentinel-pipeline/internal/config"
	"sentinel-pipeline/internal/consumer"
	"sentinel-pipeline/internal/database"
	"sentinel-pipeline/internal/evaluator"
	"sentinel-pipeline/internal/monitor"
	mqttclient "sentinel-pipeline/internal/mqtt"
	"sentinel-pipeline/internal/redisx"
	"sentinel-pipeline/internal/repository"
	"sentinel-pipeline/internal/simulator"
)

// PipelineService 遥测接入与告警服务（整合各层）
type PipelineService struct {
	config      *config.Config
	logger      *zap.Logger
	db          *sql.DB
	redisClient *redis.Client
	mqttClient  *mqttclient.Client

	consumer  *consumer.MQTTConsumer
	monitor   *monitor.HealthMonitor
	simulator *simulator.Simulator

	// 初次连接失败后整个进程生命周期都运行模拟模式，
	// 恢复真实传输需要运维重启服务
	simulationMode bool
}

// NewPipelineService 创建服务
func NewPipelineService(cfg *config.Config, logger *zap.Logger) (*PipelineService, error) {
	// 1. 连接数据库
	db, err := database.NewPostgresDB(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// 2. 连接 Redis（失败时降级：管道照常运行，只是不做流发布）
	redisClient := redisx.NewClient(&cfg.Redis)
	if err := redisx.Ping(context.Background(), redisClient); err != nil {
		logger.Warn("Redis unavailable, telemetry stream fan-out disabled",
			zap.String("addr", cfg.Redis.Addr),
			zap.Error(err),
		)
		redisx.Close(redisClient)
		redisClient = nil
	}

	// 3. 创建 Repository 层
	deviceRepo := repository.NewDeviceRepository(db, logger)
	alertRepo := repository.NewAlertRepository(db, logger)
	telemetryRepo := repository.NewTelemetryEventRepository(db, logger)

	// 4. 创建评估与去重
	ruleEvaluator := evaluator.NewRuleEvaluator(logger)
	guard := evaluator.NewDedupGuard(logger)

	// 5. 创建 MQTT 客户端与消息处理器
	mqttClient := mqttclient.NewClient(&cfg.MQTT, logger)
	processor := consumer.NewProcessor(
		db,
		deviceRepo,
		telemetryRepo,
		alertRepo,
		ruleEvaluator,
		guard,
		redisClient,
		cfg.Pipeline.TelemetryStream,
		logger,
	)
	mqttConsumer := consumer.NewMQTTConsumer(cfg, mqttClient, processor, logger)

	// 6. 创建后台工作者
	healthMonitor := monitor.NewHealthMonitor(cfg, db, deviceRepo, alertRepo, guard, logger)
	sim := simulator.NewSimulator(cfg, db, deviceRepo, alertRepo, guard, logger)

	return &PipelineService{
		config:      cfg,
		logger:      logger,
		db:          db,
		redisClient: redisClient,
		mqttClient:  mqttClient,
		consumer:    mqttConsumer,
		monitor:     healthMonitor,
		simulator:   sim,
	}, nil
}

// Start 启动服务：接入工作者（或模拟模式）+ 健康巡检
func (s *PipelineService) Start(ctx context.Context) error {
	if err := s.consumer.Start(ctx); err != nil {
		s.logger.Error("Failed to connect to MQTT broker, running in simulation mode",
			zap.String("broker", s.config.MQTT.Broker),
			zap.Error(err),
		)
		s.simulationMode = true
		go s.simulator.Run(ctx)
	} else {
		go func() {
			if err := s.consumer.Run(ctx); err != nil {
				s.logger.Error("MQTT consumer loop exited", zap.Error(err))
			}
		}()
	}

	// 健康巡检独立于接入链路运行
	go s.monitor.Run(ctx)

	s.logger.Info("Pipeline service started",
		zap.Bool("simulation_mode", s.simulationMode),
	)

	return nil
}

// Stop 停止服务
func (s *PipelineService) Stop(ctx context.Context) error {
	s.logger.Info("Stopping pipeline service")

	if !s.simulationMode {
		if err := s.consumer.Stop(ctx); err != nil {
			s.logger.Error("Error stopping MQTT consumer", zap.Error(err))
		}
	}

	if s.redisClient != nil {
		if err := redisx.Close(s.redisClient); err != nil {
			s.logger.Error("Failed to close redis", zap.Error(err))
		}
	}

	if err := database.Close(s.db); err != nil {
		s.logger.Error("Failed to close database", zap.Error(err))
	}

	s.logger.Info("Pipeline service stopped")
	return nil
}
