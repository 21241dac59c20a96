package factory

import (
	"context"
	"fmt"
	"sync"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"akshaya-auth/internal/bucketing"
	"akshaya-auth/internal/client"
	"akshaya-auth/internal/config"
	"akshaya-auth/internal/events"
	"akshaya-auth/internal/handler"
	"akshaya-auth/internal/hashing"
	"akshaya-auth/internal/notify"
	"akshaya-auth/internal/otp"
	"akshaya-auth/internal/ratelimit"
	"akshaya-auth/internal/repository/scylla"
	"akshaya-auth/internal/service"
	"akshaya-auth/internal/token"
	"akshaya-auth/internal/util"
)

// Factory owns the lifecycle of every application dependency: it builds
// them in dependency order, hands out the composed router, and tears
// everything down on Close.
type Factory struct {
	config *config.Config

	scyllaClient  *scylla.ScyllaClient
	kafkaProducer *client.KafkaProducer

	buckets   *bucketing.Manager
	hasher    *hashing.Hasher
	limiter   *ratelimit.Limiter
	otpStore  *otp.Store
	notifier  notify.Notifier
	issuer    token.Issuer
	publisher *events.Publisher
	directory scylla.Directory

	authService *service.AuthService
	router      chi.Router

	stop      chan struct{}
	closeOnce sync.Once
}

func NewFactory() (*Factory, error) {
	cfg := config.LoadConfig()
	util.Init(cfg.Environment, cfg.Logging.Level, cfg.Logging.Format)

	f := &Factory{
		config: cfg,
		stop:   make(chan struct{}),
	}

	// Scylla is required; the directory is the system of record
	scyllaClient, err := scylla.NewScyllaClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("scylla: %w", err)
	}
	f.scyllaClient = scyllaClient

	// Kafka is best-effort; the gate runs without the audit stream
	if cfg.Kafka.Enabled {
		if producer, err := client.NewKafkaProducer(cfg); err != nil {
			util.Warn("Kafka producer initialization failed - proceeding without Kafka", util.ErrorField(err))
		} else {
			f.kafkaProducer = producer
		}
	}

	f.buckets = bucketing.NewManager(cfg.Bucketing.UserBuckets, cfg.Bucketing.EventBuckets)
	f.hasher = hashing.NewHasher(cfg.Hashing)

	f.limiter = ratelimit.NewLimiter(cfg.RateLimit.Window, cfg.RateLimit.MaxRequests, f.buckets)
	f.limiter.StartSweeper(cfg.RateLimit.SweepInterval)

	f.otpStore = otp.NewStore(cfg.OTP.TTL, cfg.OTP.MaxAttempts, cfg.OTP.CodeLength, f.hasher, f.buckets)
	f.otpStore.StartSweeper(cfg.OTP.SweepInterval)

	if cfg.IsProduction() {
		f.hasher.StartPepperRotation(cfg.Hashing.PepperRotationInterval, f.stop)
	}

	f.notifier = notify.NewNotifier(cfg.SMS)

	issuer, err := token.NewIssuer(cfg.Token)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("token issuer: %w", err)
	}
	f.issuer = issuer

	var producer events.Producer
	if f.kafkaProducer != nil {
		producer = f.kafkaProducer
	}
	f.publisher = events.NewPublisher(producer, cfg.Kafka.Topic, f.buckets)

	f.directory = scylla.NewUserRepository(f.scyllaClient, f.buckets)

	f.authService = service.NewAuthService(f.otpStore, f.directory, f.issuer, f.notifier, f.publisher)
	f.router = handler.NewRouter(handler.NewAuthHandler(f.authService), f.limiter, f.issuer, cfg.CORS)

	util.Info("Factory initialized",
		util.String("environment", cfg.Environment),
		util.String("token_mode", cfg.Token.Mode),
		util.Bool("kafka_enabled", f.kafkaProducer != nil),
	)

	return f, nil
}

func (f *Factory) Config() *config.Config {
	return f.config
}

func (f *Factory) Router() chi.Router {
	return f.router
}

// HealthCheck fans out over the external collaborators.
func (f *Factory) HealthCheck(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := f.directory.HealthCheck(); err != nil {
			return fmt.Errorf("scylla: %w", err)
		}
		return nil
	})

	if f.kafkaProducer != nil {
		g.Go(func() error {
			if err := f.kafkaProducer.HealthCheck(gctx); err != nil {
				return fmt.Errorf("kafka: %w", err)
			}
			return nil
		})
	}

	return g.Wait()
}

func (f *Factory) Close() error {
	f.closeOnce.Do(func() {
		close(f.stop)
		util.Info("Shutting down factory...")

		if f.limiter != nil {
			f.limiter.Close()
		}
		if f.otpStore != nil {
			f.otpStore.Close()
		}

		if f.kafkaProducer != nil {
			if err := f.kafkaProducer.Close(); err != nil {
				util.Error("Failed to close Kafka producer", util.ErrorField(err))
			}
		}

		if f.scyllaClient != nil {
			f.scyllaClient.Close()
		}

		util.Sync()
		util.Info("Factory shutdown completed")
	})

	return nil
}
