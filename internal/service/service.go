package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/arlebowski/Tiny-Time-sub002/common/database"
	mqttcommon "github.com/arlebowski/Tiny-Time-sub002/common/mqtt"
	rediscommon "github.com/arlebowski/Tiny-Time-sub002/common/redis"
	"github.com/arlebowski/Tiny-Time-sub002/internal/api"
	"github.com/arlebowski/Tiny-Time-sub002/internal/config"
	"github.com/arlebowski/Tiny-Time-sub002/internal/controller"
	"github.com/arlebowski/Tiny-Time-sub002/internal/notify"
	"github.com/arlebowski/Tiny-Time-sub002/internal/proposer"
	"github.com/arlebowski/Tiny-Time-sub002/internal/repository"
	"github.com/arlebowski/Tiny-Time-sub002/internal/schedule"
	"github.com/arlebowski/Tiny-Time-sub002/internal/store"
	"github.com/arlebowski/Tiny-Time-sub002/internal/trigger"
)

const shutdownTimeout = 10 * time.Second

// ScheduleService owns every long-lived component of the schedule daemon.
type ScheduleService struct {
	config      *config.Config
	logger      *zap.Logger
	db          *sql.DB
	redisClient *redis.Client
	mqttClient  *mqttcommon.Client

	storage     *repository.PostgresStorage
	store       *store.ScheduleStore
	broadcaster *notify.Broadcaster
	engine      *schedule.Engine
	manual      *trigger.Manual
	stream      *trigger.StreamSource
	mqttSource  *trigger.MQTTSource
	controller  *controller.Controller
	router      *gin.Engine
	server      *http.Server

	stopOnce sync.Once
}

// NewScheduleService connects to PostgreSQL, Redis and (optionally) MQTT
// and assembles the service.
func NewScheduleService(cfg *config.Config, logger *zap.Logger) (*ScheduleService, error) {
	db, err := database.NewPostgresDB(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	redisClient := rediscommon.NewRedisClient(&cfg.Redis)
	if err := rediscommon.Ping(context.Background(), redisClient); err != nil {
		database.Close(db)
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	var mqttClient *mqttcommon.Client
	if cfg.Triggers.MQTT.Enabled {
		mqttClient, err = mqttcommon.NewClient(&cfg.MQTT, logger)
		if err != nil {
			database.Close(db)
			rediscommon.Close(redisClient)
			return nil, err
		}
	}

	return assemble(cfg, logger, db, redisClient, mqttClient)
}

// assemble wires the components on top of already connected clients.
// mqttClient may be nil.
func assemble(cfg *config.Config, logger *zap.Logger, db *sql.DB, redisClient *redis.Client, mqttClient *mqttcommon.Client) (*ScheduleService, error) {
	s := &ScheduleService{
		config:      cfg,
		logger:      logger,
		db:          db,
		redisClient: redisClient,
		mqttClient:  mqttClient,
	}

	s.storage = repository.NewPostgresStorage(db, cfg.ProfileID, logger)
	s.store = store.NewScheduleStore(store.NewRedisKVStore(redisClient), store.Options{
		Prefix:         cfg.Schedule.KeyPrefix,
		InstallationID: cfg.Schedule.InstallationID,
		TTL:            cfg.Schedule.TTL,
	}, logger)

	s.broadcaster = notify.NewBroadcaster()
	targets := []notify.Notifier{s.broadcaster}
	if cfg.Notify.Channel != "" {
		targets = append(targets, notify.NewRedisPublisher(redisClient, cfg.Notify.Channel))
	}
	if mqttClient != nil && cfg.Notify.MQTTTopic != "" {
		targets = append(targets, notify.NewMQTTPublisher(mqttClient, cfg.Notify.MQTTTopic, cfg.MQTT.QoS))
	}
	if cfg.Notify.WebhookURL != "" {
		targets = append(targets, notify.NewWebhookNotifier(cfg.Notify.WebhookURL, cfg.Notify.WebhookTimeout, logger))
	}

	var prop schedule.Proposer
	if cfg.AI.Enabled {
		gen, err := proposer.NewLLMGenerator(proposer.LLMConfig{
			Provider:   cfg.AI.Provider,
			Model:      cfg.AI.Model,
			APIKey:     cfg.AI.APIKey,
			OllamaHost: cfg.AI.OllamaHost,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create LLM generator: %w", err)
		}
		prop = proposer.New(gen, proposer.Options{
			Enabled:       true,
			Cooldown:      cfg.AI.Cooldown,
			QuotaCooldown: cfg.AI.QuotaCooldown,
		}, logger)
	}
	s.engine = schedule.NewEngine(cfg.Schedule.Engine, prop)

	s.manual = trigger.NewManual()
	sources := []trigger.Source{s.manual}
	if cfg.Triggers.Stream.Enabled {
		s.stream = trigger.NewStreamSource(redisClient, trigger.StreamOptions{
			Stream:    cfg.Triggers.Stream.Name,
			Group:     cfg.Triggers.Stream.Group,
			Consumer:  cfg.Triggers.Stream.Consumer,
			BatchSize: cfg.Triggers.Stream.Batch,
		}, logger)
		sources = append(sources, s.stream)
	}
	if mqttClient != nil {
		s.mqttSource = trigger.NewMQTTSource(mqttClient, map[trigger.Kind]string{
			trigger.KindInputLogged: cfg.Triggers.MQTT.InputTopic,
			trigger.KindFocus:       cfg.Triggers.MQTT.FocusTopic,
			trigger.KindVisible:     cfg.Triggers.MQTT.VisibleTopic,
		}, cfg.MQTT.QoS, logger)
		sources = append(sources, s.mqttSource)
	}

	now := clockIn(cfg.Location)
	s.controller = controller.New(controller.Deps{
		Storage:  s.storage,
		Planner:  s.engine,
		Store:    s.store,
		Notifier: notify.NewMulti(logger, targets...),
		Sources:  sources,
		Now:      now,
	}, cfg.Controller, logger)

	checks := map[string]api.HealthCheck{
		"postgres": db.PingContext,
		"redis": func(ctx context.Context) error {
			return rediscommon.Ping(ctx, redisClient)
		},
	}
	if mqttClient != nil {
		checks["mqtt"] = func(context.Context) error {
			if !mqttClient.IsConnected() {
				return errors.New("mqtt client disconnected")
			}
			return nil
		}
	}
	s.router = api.NewRouter(&api.Handler{
		Schedules: s.store,
		Rebuilder: s.controller,
		Triggers:  s.manual,
		Checks:    checks,
		Logger:    logger,
		Now:       now,
	}, logger)
	s.server = &http.Server{Addr: cfg.HTTP.Addr, Handler: s.router}

	return s, nil
}

// clockIn reads the wall clock in loc so that days and midnight follow the
// family's zone rather than the host's.
func clockIn(loc *time.Location) func() time.Time {
	if loc == nil {
		loc = time.Local
	}
	return func() time.Time { return time.Now().In(loc) }
}

// Broadcaster lets in-process listeners observe every persisted schedule.
func (s *ScheduleService) Broadcaster() *notify.Broadcaster {
	return s.broadcaster
}

// Handler returns the HTTP handler.
func (s *ScheduleService) Handler() http.Handler {
	return s.router
}

// Start runs the service until ctx is cancelled or the HTTP server fails.
func (s *ScheduleService) Start(ctx context.Context) error {
	s.logger.Info("Starting schedule service",
		zap.String("installation_id", s.config.Schedule.InstallationID),
		zap.Bool("ai_enabled", s.config.AI.Enabled),
		zap.Bool("stream_triggers", s.stream != nil),
		zap.Bool("mqtt_triggers", s.mqttSource != nil),
		zap.String("http_addr", s.config.HTTP.Addr),
	)

	if s.config.Migrate {
		if err := s.storage.Migrate(ctx); err != nil {
			return fmt.Errorf("failed to migrate schema: %w", err)
		}
	}

	if s.mqttSource != nil {
		if err := s.mqttSource.Start(); err != nil {
			return err
		}
	}
	if s.stream != nil {
		go func() {
			if err := s.stream.Run(ctx); err != nil {
				s.logger.Error("Trigger stream stopped", zap.Error(err))
			}
		}()
	}

	if err := s.controller.Start(ctx); err != nil {
		return err
	}

	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Stop shuts the service down. It is safe to call more than once.
func (s *ScheduleService) Stop(ctx context.Context) error {
	var err error
	s.stopOnce.Do(func() {
		s.logger.Info("Stopping schedule service")

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if e := s.server.Shutdown(shutdownCtx); e != nil {
			err = errors.Join(err, fmt.Errorf("http shutdown: %w", e))
		}

		s.controller.Stop()

		if s.mqttSource != nil {
			if e := s.mqttSource.Stop(); e != nil {
				s.logger.Warn("Failed to unsubscribe trigger topics", zap.Error(e))
			}
		}
		if s.mqttClient != nil {
			s.mqttClient.Disconnect()
		}
		if e := rediscommon.Close(s.redisClient); e != nil {
			err = errors.Join(err, fmt.Errorf("close redis: %w", e))
		}
		if e := database.Close(s.db); e != nil {
			err = errors.Join(err, fmt.Errorf("close database: %w", e))
		}
	})
	return err
}
