package server

import (
	"log"

	"backend-roadtrip/internal/auth"
	"backend-roadtrip/internal/change"
	"backend-roadtrip/internal/config"
	"backend-roadtrip/internal/events"
	"backend-roadtrip/internal/leg"
	"backend-roadtrip/internal/location"
	"backend-roadtrip/internal/metrics"
	"backend-roadtrip/internal/sequence"
	"backend-roadtrip/internal/store"
	"backend-roadtrip/internal/stream"
	"backend-roadtrip/internal/timeline"
	"backend-roadtrip/internal/trip"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

type Server struct {
	App     *fiber.App
	Cfg     config.Config
	DB      *pgxpool.Pool
	Redis   *redis.Client
	Store   store.Store
	Stream  *stream.Hub
	Metrics *metrics.Collector
	Events  *events.NATSPublisher
}

var newNATSPublisherFn = events.NewNATSPublisher

func NewServer(cfg config.Config, db *pgxpool.Pool, redisClient *redis.Client) *Server {
	app := fiber.New()
	app.Use(recover.New())
	app.Use(logger.New())

	s := &Server{
		App:     app,
		Cfg:     cfg,
		DB:      db,
		Redis:   redisClient,
		Store:   selectStore(cfg, db),
		Stream:  stream.NewHub(redisClient),
		Metrics: metrics.NewCollector(),
	}

	if cfg.NATSURL != "" {
		pub, err := newNATSPublisherFn(cfg.NATSURL, false, s.Metrics)
		if err != nil {
			log.Printf("nats connection failed, change events disabled: %v", err)
		} else {
			s.Events = pub
		}
	}

	registerRoutes(s)
	return s
}

// selectStore falls back to the in-memory store when postgres is not
// available so the service still starts.
func selectStore(cfg config.Config, db *pgxpool.Pool) store.Store {
	if cfg.StoreDriver == config.StoreDriverMemory {
		return store.NewMemory()
	}
	if db == nil {
		log.Printf("postgres unavailable, using in-memory store")
		return store.NewMemory()
	}
	return store.NewPostgres(db)
}

// Close releases background resources. The caller owns DB and Redis.
func (s *Server) Close() {
	s.Stream.Close()
	if s.Events != nil {
		s.Events.Close()
	}
}

func registerRoutes(s *Server) {
	s.App.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "store": storeName(s.Store)})
	})
	s.App.Get("/metrics", adaptor.HTTPHandler(s.Metrics.Handler()))

	jwtMiddleware := auth.JWTMiddleware(s.Cfg.JWTSecret)

	// Trips, membership and locations live in postgres only.
	var (
		tripReader timeline.TripReader
		authorizer sequence.Authorizer
	)
	if s.DB != nil {
		tripReader = trip.NewService(s.DB, nil)
		authorizer = auth.NewPolicy(s.DB)
	}

	timelineSvc := timeline.NewService(s.Store, tripReader,
		timeline.WithCache(timeline.NewCache(s.Redis, s.Cfg.TimelineCacheTTL)),
		timeline.WithObserver(s.Metrics),
		timeline.WithTolerance(s.Cfg.ContinuityTolerance),
	)

	// Cache invalidation runs first so pushed clients re-read fresh data.
	notifiers := change.Fanout{timelineSvc, s.Metrics, s.Stream}
	if s.Events != nil {
		notifiers = append(notifiers, s.Events)
	}

	if s.DB != nil {
		auth.RegisterRoutes(s.App.Group("/auth"), auth.NewTokens(s.Cfg.JWTSecret, s.DB))
		trip.RegisterRoutes(s.App.Group("/trips"), trip.NewService(s.DB, notifiers), jwtMiddleware)
		location.RegisterRoutes(s.App.Group("/locations"), location.NewService(s.DB, notifiers), jwtMiddleware)
	}

	manager := sequence.NewManager(s.Store, authorizer, notifiers, sequence.WithObserver(s.Metrics))
	sequence.RegisterRoutes(s.App, manager, jwtMiddleware)
	leg.RegisterRoutes(s.App.Group("/legs"), leg.NewIndex(s.Store, notifiers), jwtMiddleware)
	timeline.RegisterRoutes(s.App, timelineSvc)
	stream.RegisterRoutes(s.App.Group("/stream"), s.Stream)
}

func storeName(s store.Store) string {
	if _, ok := s.(*store.Memory); ok {
		return config.StoreDriverMemory
	}
	return config.StoreDriverPostgres
}
