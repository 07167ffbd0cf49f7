// Package app wires the offline layer, the reminder scheduler and their
// collaborators from configuration.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/felixgeelhaar/logmyjob/internal/auth"
	"github.com/felixgeelhaar/logmyjob/internal/offline/cache"
	"github.com/felixgeelhaar/logmyjob/internal/offline/connectivity"
	"github.com/felixgeelhaar/logmyjob/internal/offline/interceptor"
	"github.com/felixgeelhaar/logmyjob/internal/offline/messages"
	"github.com/felixgeelhaar/logmyjob/internal/offline/queue"
	"github.com/felixgeelhaar/logmyjob/internal/offline/replay"
	"github.com/felixgeelhaar/logmyjob/internal/offline/state"
	"github.com/felixgeelhaar/logmyjob/internal/offline/storage"
	"github.com/felixgeelhaar/logmyjob/internal/reminder"
	"github.com/felixgeelhaar/logmyjob/internal/remote"
	"github.com/felixgeelhaar/logmyjob/internal/shared/infrastructure/crypto"
	"github.com/felixgeelhaar/logmyjob/internal/shared/infrastructure/database"
	"github.com/felixgeelhaar/logmyjob/internal/shared/infrastructure/database/redisclient"
	"github.com/felixgeelhaar/logmyjob/internal/shared/infrastructure/eventbus"
	"github.com/felixgeelhaar/logmyjob/internal/vacation"
	"github.com/felixgeelhaar/logmyjob/internal/vacation/caldav"
	"github.com/felixgeelhaar/logmyjob/pkg/config"
	"github.com/felixgeelhaar/logmyjob/pkg/observability"
)

// Queue modes select where the interceptor puts captured mutations.
const (
	QueueModeAuto   = "auto"
	QueueModeNative = "native"
	QueueModeRelay  = "relay"
)

// Container holds every long-lived component.
type Container struct {
	Config  *config.Config
	Logger  *slog.Logger
	Metrics observability.Metrics
	Health  *observability.HealthRegistry

	// Storage
	Backend *storage.Backend
	Queue   queue.Store
	State   state.Store
	Caches  cache.Storage

	// Messaging
	Bus       *eventbus.InProcessBus
	Publisher eventbus.Publisher
	Broker    *eventbus.RabbitMQPublisher
	Consumer  *eventbus.RabbitMQConsumer
	Emitter   *messages.Emitter
	Commands  *CommandHandler

	// Remote data store
	Auth        auth.Provider
	Interceptor *interceptor.Interceptor
	HTTPClient  *http.Client
	Remote      *remote.Client
	Queuer      *remote.Queuer

	// Replay
	Held    *replay.HeldSet
	Engine  *replay.Engine
	Runner  *replay.Runner
	Monitor *connectivity.Monitor

	// Reminders and vacations
	Scheduler *reminder.Scheduler
	Reminders *reminder.SettingsService
	Vacations *vacation.Service
	Importer  *caldav.Importer

	cacheRedis interface{ Close() error }
}

// NewContainer opens storage and builds every component. Optional brokers
// (RabbitMQ, Redis cache) degrade to local fallbacks in development.
func NewContainer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Container, error) {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Container{
		Config:  cfg,
		Logger:  logger,
		Metrics: observability.NewInMemoryMetrics(),
		Health:  observability.NewHealthRegistry(),
	}

	backend, err := storage.Open(ctx, cfg.QueueDSN(), logger)
	if err != nil {
		return nil, err
	}
	c.Backend = backend
	c.Health.Register("queue", observability.PingChecker("queue storage", observability.HealthStatusUnhealthy, backend.Ping))

	if err := c.initStores(ctx); err != nil {
		c.Close()
		return nil, err
	}
	if err := c.initMessaging(); err != nil {
		c.Close()
		return nil, err
	}
	if err := c.initRemote(ctx); err != nil {
		c.Close()
		return nil, err
	}
	if err := c.initReplay(); err != nil {
		c.Close()
		return nil, err
	}
	c.initReminders()

	c.Commands = NewCommandHandler(CommandDeps{
		Interceptor: c.Interceptor,
		Engine:      c.Engine,
		Scheduler:   c.Scheduler,
		Reminders:   c.Reminders,
		Vacations:   c.Vacations,
		Emitter:     c.Emitter,
	}, logger)
	c.Bus.RegisterHandler(c.Commands)
	c.Bus.RegisterHandler(messages.NewSyncToaster(c.Emitter))
	relays := queue.NewRelayConsumer(c.Queue, c.Emitter, logger)
	if c.Consumer != nil {
		c.Consumer.RegisterHandler(c.Commands)
		c.Consumer.RegisterHandler(relays)
	} else if !c.Interceptor.Native() {
		// Without a broker the relay lands on the in-process bus.
		c.Bus.RegisterHandler(relays)
	}

	logger.Info("container ready", "queue_driver", backend.Driver.String(), "native_queue", c.Interceptor.Native())
	return c, nil
}

func (c *Container) initStores(ctx context.Context) error {
	var opts []queue.Option
	if c.Config.EncryptionKey != "" {
		sealer, err := crypto.NewAESGCMFromBase64Key(c.Config.EncryptionKey)
		if err != nil {
			return fmt.Errorf("invalid encryption key: %w", err)
		}
		opts = append(opts, queue.WithHeaderSealer(sealer))
	}

	q, err := queue.New(c.Backend, opts...)
	if err != nil {
		return err
	}
	c.Queue = q

	st, err := state.New(c.Backend)
	if err != nil {
		return err
	}
	c.State = st

	c.Caches = cache.NewMemoryStorage()
	switch {
	case c.Backend.Driver == database.DriverRedis:
		c.Caches = cache.NewRedisStorage(c.Backend.Redis, "")
	case c.Config.RedisURL != "":
		client, err := redisclient.Open(ctx, c.Config.RedisURL)
		if err != nil {
			if !c.Config.IsDevelopment() {
				return fmt.Errorf("connect to redis cache: %w", err)
			}
			c.Logger.Warn("Redis not available, response caches stay in memory", "error", err)
			break
		}
		c.Caches = cache.NewRedisStorage(client, "")
		c.cacheRedis = client
		c.Health.Register("cache", observability.PingChecker("redis cache", observability.HealthStatusDegraded, func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		}))
	}
	return nil
}

func (c *Container) initMessaging() error {
	c.Bus = eventbus.NewInProcessBus(c.Logger)
	c.Publisher = c.Bus

	if c.Config.RabbitMQURL != "" {
		broker, err := eventbus.NewRabbitMQPublisher(c.Config.RabbitMQURL, c.Logger)
		if err != nil {
			if !c.Config.IsDevelopment() {
				return fmt.Errorf("connect to RabbitMQ: %w", err)
			}
			c.Logger.Warn("RabbitMQ not available, messages stay in process", "error", err)
		} else {
			c.Broker = broker
			c.Publisher = eventbus.NewTeePublisher(c.Bus, broker)
			c.Health.Register("rabbitmq", observability.PingChecker("rabbitmq", observability.HealthStatusDegraded, broker.Ping))

			consumer, err := eventbus.NewRabbitMQConsumer(eventbus.RabbitMQConsumerConfig{
				URL:    c.Config.RabbitMQURL,
				Logger: c.Logger,
			})
			if err != nil {
				c.Logger.Warn("RabbitMQ consumer not available, inbound commands stay in process", "error", err)
			} else {
				c.Consumer = consumer
			}
		}
	}

	c.Emitter = messages.NewEmitter(c.Publisher, c.Logger)
	return nil
}

func (c *Container) initRemote(ctx context.Context) error {
	provider, err := c.authProvider(ctx)
	if err != nil {
		return err
	}
	c.Auth = provider

	appOrigin, err := url.Parse(c.Config.AppOrigin)
	if err != nil {
		return fmt.Errorf("invalid APP_ORIGIN: %w", err)
	}
	apiBase, err := url.Parse(c.Config.APIBaseURL)
	if err != nil {
		return fmt.Errorf("invalid API_BASE_URL: %w", err)
	}

	capture, err := c.captureOption(ctx)
	if err != nil {
		return err
	}

	c.Interceptor = interceptor.New(interceptor.Config{
		AppOrigin:         appOrigin,
		APIBase:           apiBase,
		CrossOriginHosts:  c.Config.CrossOriginHosts,
		PrecacheVersion:   c.Config.PrecacheVersion,
		NavigationTimeout: c.Config.NavigationTimeout,
		APITimeout:        c.Config.APITimeout,
	}, http.DefaultTransport, c.Caches,
		capture,
		interceptor.WithEmitter(c.Emitter),
		interceptor.WithMetrics(c.Metrics),
		interceptor.WithLogger(c.Logger),
	)
	c.HTTPClient = &http.Client{Transport: c.Interceptor}
	c.Remote = remote.NewClient(c.Config.APIBaseURL, c.Config.APIKey, provider, c.HTTPClient)
	c.Queuer = remote.NewQueuer(c.Remote, c.Queue, c.Emitter)
	return nil
}

// captureOption picks the interceptor's queue. Native mode writes to the
// local store and relay mode publishes QUEUE_TO_INDEXEDDB for the process
// that owns a store. Auto stays native while the local store answers and
// relays through the broker otherwise.
func (c *Container) captureOption(ctx context.Context) (interceptor.Option, error) {
	native := interceptor.WithStore(c.Queue)
	relay := interceptor.WithRelay(queue.NewRelay(c.Emitter))

	switch strings.ToLower(c.Config.QueueMode) {
	case "", QueueModeAuto:
		if _, err := c.Queue.Count(ctx); err != nil {
			if c.Broker == nil {
				c.Logger.Warn("local queue unavailable and no broker to relay to", "error", err)
				return native, nil
			}
			c.Logger.Warn("local queue unavailable, relaying captured mutations", "error", err)
			return relay, nil
		}
		return native, nil
	case QueueModeNative:
		return native, nil
	case QueueModeRelay:
		return relay, nil
	default:
		return nil, fmt.Errorf("invalid QUEUE_MODE %q: want auto, native or relay", c.Config.QueueMode)
	}
}

// authProvider prefers a refresh-token config over a static access token.
func (c *Container) authProvider(ctx context.Context) (auth.Provider, error) {
	cfg := c.Config
	if cfg.OAuthRefreshToken != "" && cfg.OAuthTokenURL != "" {
		scopes := strings.Fields(strings.ReplaceAll(cfg.OAuthScopes, ",", " "))
		return auth.NewRefreshProvider(ctx, cfg.UserID, auth.OAuthConfig{
			ClientID:     cfg.OAuthClientID,
			ClientSecret: cfg.OAuthClientSecret,
			AuthURL:      cfg.OAuthAuthURL,
			TokenURL:     cfg.OAuthTokenURL,
			Scopes:       scopes,
			RefreshToken: cfg.OAuthRefreshToken,
		})
	}
	return auth.NewStaticProvider(cfg.UserID, cfg.AccessToken), nil
}

func (c *Container) initReplay() error {
	policy, err := replay.ParseRejectionPolicy(c.Config.RejectionPolicy)
	if err != nil {
		return err
	}

	c.Held = replay.NewHeldSet(c.State)
	c.Engine = replay.New(c.Queue, replay.Config{
		ReplayTimeout:      c.Config.ReplayTimeout,
		RejectionPolicy:    policy,
		RefreshCredentials: c.Config.RefreshCredentials,
	},
		// Replay bypasses the interceptor so a failed record is never queued twice.
		replay.WithHTTPClient(&http.Client{Transport: http.DefaultTransport}),
		replay.WithHeldSet(c.Held),
		replay.WithAuth(c.Auth),
		replay.WithEmitter(c.Emitter),
		replay.WithMetrics(c.Metrics),
		replay.WithLogger(c.Logger),
	)

	probeURL := c.Config.ConnectivityProbeURL
	if probeURL == "" {
		probeURL = c.Config.APIBaseURL
	}
	c.Monitor = connectivity.NewMonitor(connectivity.HTTPProber{URL: probeURL}, c.Config.ConnectivityInterval, c.Logger)

	c.Runner = replay.NewRunner(c.Engine, c.Queue, c.Monitor.Online, replay.RunnerConfig{
		SyncInterval:  c.Config.SyncInterval,
		StatsInterval: c.Config.SyncStatsInterval,
	}, c.Metrics, c.Logger)
	c.Monitor.OnOnline(func(ctx context.Context) {
		c.Runner.Wake(ctx, replay.TriggerConnectivity)
	})

	c.Health.Register("replay", func(context.Context) observability.HealthCheckResult {
		stats := c.Engine.GetStats()
		// Degraded only while the most recent pass ended in an error.
		if stats.LastErrorAt != nil && (stats.LastDrainAt == nil || !stats.LastErrorAt.Before(*stats.LastDrainAt)) {
			return observability.HealthCheckResult{Status: observability.HealthStatusDegraded, Message: "last drain failed: " + stats.LastError}
		}
		return observability.HealthCheckResult{Status: observability.HealthStatusHealthy, Message: "replay idle"}
	})
	return nil
}

func (c *Container) initReminders() {
	c.Vacations = vacation.NewService(c.State)
	c.Scheduler = reminder.NewScheduler(c.State, reminder.NewEmitterNotifier(c.Emitter), c.Config.Location(), c.Metrics, c.Logger)
	c.Reminders = reminder.NewSettingsService(c.State, c.Scheduler)

	if c.Config.CalDAVURL != "" {
		c.Importer = caldav.NewImporter(c.Config.CalDAVURL, c.Config.CalDAVUsername, c.Config.CalDAVPassword, c.Logger).
			WithCalendarPath(c.Config.CalDAVCalendar)
	}
}

// StartConsumer runs the RabbitMQ consumer when one is configured.
func (c *Container) StartConsumer(ctx context.Context) error {
	if c.Consumer == nil {
		return nil
	}
	return c.Consumer.Start(ctx)
}

// Close stops background work and releases connections.
func (c *Container) Close() {
	if c.Runner != nil && c.Runner.IsRunning() {
		c.Runner.Stop()
	}
	if c.Interceptor != nil {
		c.Interceptor.Wait()
	}

	if c.Consumer != nil {
		if err := c.Consumer.Close(); err != nil {
			c.Logger.Warn("error closing RabbitMQ consumer", "error", err)
		}
	}
	if c.Publisher != nil {
		if err := c.Publisher.Close(); err != nil {
			c.Logger.Warn("error closing event publisher", "error", err)
		}
	}

	if c.cacheRedis != nil {
		if err := c.cacheRedis.Close(); err != nil {
			c.Logger.Warn("error closing Redis cache connection", "error", err)
		}
	}

	if c.Backend != nil {
		if err := c.Backend.Close(); err != nil {
			c.Logger.Warn("error closing queue storage", "error", err)
		} else {
			c.Logger.Info("queue storage closed", "driver", c.Backend.Driver.String())
		}
	}
}
