package service

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"eldercare-survey/internal/alert"
	"eldercare-survey/internal/careburden"
	"eldercare-survey/internal/common/database"
	mqttclient "eldercare-survey/internal/common/mqtt"
	rediscommon "eldercare-survey/internal/common/redis"
	"eldercare-survey/internal/config"
	"eldercare-survey/internal/events"
	"eldercare-survey/internal/metrics"
	"eldercare-survey/internal/repository"
)

// Runtime the service together with the connections it owns.
type Runtime struct {
	Service *SurveyService
	Redis   *redis.Client // nil when Redis is optional and unreachable

	db     *sql.DB
	mqtt   *mqttclient.Client
	logger *zap.Logger
}

// NewRuntime connects every configured backend and builds the service.
// With requireRedis false an unreachable Redis only disables events.
func NewRuntime(ctx context.Context, cfg *config.Config, m *metrics.Metrics, logger *zap.Logger, requireRedis bool) (*Runtime, error) {
	rt := &Runtime{logger: logger}
	deps := Deps{Metrics: m, Logger: logger}

	if cfg.DBEnabled {
		db, err := database.NewPostgresDB(&cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		rt.db = db
		if err := repository.EnsureSchema(ctx, db); err != nil {
			rt.Close()
			return nil, err
		}
		deps.Submissions = repository.NewPostgresSubmissionsRepository(db)
		deps.Institutions = repository.NewPostgresInstitutionsRepository(db)
	} else {
		logger.Warn("Database disabled, using in-memory repositories")
		deps.Submissions = repository.NewMemorySubmissionsRepo()
		deps.Institutions = repository.NewMemoryInstitutionsRepo()
	}

	client := rediscommon.NewRedisClient(&cfg.Redis)
	if err := rediscommon.Ping(ctx, client); err != nil {
		_ = rediscommon.Close(client)
		if requireRedis {
			rt.Close()
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		logger.Warn("Redis unavailable, survey events disabled", zap.Error(err))
	} else {
		rt.Redis = client
		deps.Events = events.NewStreamPublisher(client, cfg.Survey.EventStream)
	}

	switch {
	case cfg.Population.APIURL != "":
		deps.Population = careburden.NewHTTPSource(cfg.Population.APIURL, cfg.Population.APIKey, logger)
	case cfg.Population.File != "":
		deps.Population = careburden.NewFileSource(cfg.Population.File)
	}

	if cfg.MQTT.Enabled {
		c, err := mqttclient.NewClient(&cfg.MQTT.MQTTConfig)
		if err != nil {
			rt.Close()
			return nil, fmt.Errorf("failed to connect to mqtt: %w", err)
		}
		rt.mqtt = c
		deps.Alerts = alert.NewMQTTPublisher(c, cfg.MQTT.AlertTopic, logger)
	}

	rt.Service = NewSurveyService(deps)
	return rt, nil
}

// Close releases every connection; safe to call more than once.
func (rt *Runtime) Close() {
	if rt.mqtt != nil {
		rt.mqtt.Disconnect()
		rt.mqtt = nil
	}
	if rt.Redis != nil {
		if err := rediscommon.Close(rt.Redis); err != nil {
			rt.logger.Error("Error closing redis connection", zap.Error(err))
		}
		rt.Redis = nil
	}
	if rt.db != nil {
		if err := database.Close(rt.db); err != nil {
			rt.logger.Error("Error closing database connection", zap.Error(err))
		}
		rt.db = nil
	}
}
