package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/WailSalutem-Health-Care/lab-portal/internal/auth"
	"github.com/WailSalutem-Health-Care/lab-portal/internal/config"
	"github.com/WailSalutem-Health-Care/lab-portal/internal/logger"
	"github.com/WailSalutem-Health-Care/lab-portal/internal/messaging"
	"github.com/WailSalutem-Health-Care/lab-portal/internal/portal"
	"github.com/WailSalutem-Health-Care/lab-portal/internal/results"
	"github.com/WailSalutem-Health-Care/lab-portal/internal/telemetry"
)

// Channels tag session events with the surface that produced them.
const (
	channelCLI = "cli"
	channelAPI = "api"
)

var errNotLoggedIn = errors.New("no hay una sesión activa, ejecute 'labportal login'")

// app is the wiring shared by every command. setup fills it before a
// command runs and main calls teardown once Execute returns.
type app struct {
	envFile string
	jsonOut bool

	cfg      *config.Config
	log      *zap.Logger
	provider *telemetry.Provider
	metrics  *telemetry.Metrics
	events   messaging.PublisherInterface
	redis    *redis.Client
	session  *auth.Session
	service  *portal.Service
}

func (a *app) setup(ctx context.Context, channel string) error {
	cfg, err := config.LoadFrom(a.envFile)
	if err != nil {
		return err
	}
	a.cfg = cfg

	// CLI logs go to stderr so command output stays parseable.
	output := "stdout"
	if channel == channelCLI {
		output = "stderr"
	}
	log, err := logger.New(cfg.LogLevel, cfg.LogFormat, cfg.OTelServiceName, output)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	a.log = log

	provider, err := telemetry.InitProvider(ctx, cfg.Telemetry(), log)
	if err != nil {
		return fmt.Errorf("failed to init telemetry: %w", err)
	}
	a.provider = provider

	metrics, err := telemetry.InitMetrics()
	if err != nil {
		return fmt.Errorf("failed to init metrics: %w", err)
	}
	a.metrics = metrics

	events, err := messaging.Connect(cfg.RabbitMQURL, log)
	if err != nil {
		log.Warn("event publishing disabled", zap.Error(err))
		events = messaging.NoopPublisher{}
	}
	a.events = events

	if channel == channelCLI {
		store, err := a.openStore(ctx)
		if err != nil {
			return err
		}
		a.session = auth.NewSession(store)
		if err := a.session.Init(ctx); err != nil {
			return fmt.Errorf("failed to load session: %w", err)
		}
	}

	client := portal.NewClient(portal.ClientConfig{BaseURL: cfg.APIURL, Timeout: cfg.APITimeout}, log, metrics)
	a.service = portal.NewService(client, results.NewGrouper(), events, log, cfg.PageSize,
		portal.WithMetrics(metrics),
		portal.WithLocation(cfg.Location()),
		portal.WithChannel(channel),
	)
	return nil
}

func (a *app) openStore(ctx context.Context) (auth.Storage, error) {
	switch a.cfg.SessionStore {
	case config.StoreRedis:
		a.redis = redis.NewClient(&redis.Options{
			Addr:     a.cfg.RedisAddr,
			Password: a.cfg.RedisPassword,
			DB:       a.cfg.RedisDB,
		})
		if err := a.redis.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("failed to connect to redis at %s: %w", a.cfg.RedisAddr, err)
		}
		return auth.NewRedisStorage(a.redis, auth.Namespace, a.cfg.SessionTTL), nil
	case config.StoreMemory:
		return auth.NewMemoryStorage(), nil
	default:
		a.log.Debug("using file session store", zap.String("path", a.cfg.SessionFile))
		return auth.NewFileStorage(a.cfg.SessionFile, auth.Namespace), nil
	}
}

func (a *app) teardown(ctx context.Context) {
	if a.events != nil {
		if err := a.events.Close(); err != nil {
			a.log.Warn("failed to close event publisher", zap.Error(err))
		}
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.provider != nil {
		if err := a.provider.Shutdown(ctx); err != nil {
			a.log.Warn("failed to shut down telemetry", zap.Error(err))
		}
	}
	if a.log != nil {
		_ = a.log.Sync()
	}
}

// requireSession fails fast when nobody is logged in.
func (a *app) requireSession() error {
	if !a.session.IsAuthenticated() {
		return errNotLoggedIn
	}
	return nil
}

// userError turns a service error into the message shown to the patient.
func userError(err error, fallback string) error {
	if err == nil {
		return nil
	}
	return errors.New(portal.UserMessage(err, fallback))
}
