package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/shopfront/apiserver/config"
	"github.com/shopfront/apiserver/internal/auth"
	"github.com/shopfront/apiserver/internal/cache"
	"github.com/shopfront/apiserver/internal/db"
	"github.com/shopfront/apiserver/internal/handlers"
	"github.com/shopfront/apiserver/internal/mq"
	"github.com/shopfront/apiserver/internal/services"
	"github.com/shopfront/apiserver/internal/storage"
	"github.com/shopfront/apiserver/internal/store"
	"github.com/shopfront/apiserver/internal/store/memstore"
	"gorm.io/gorm"
)

const (
	apiPrefix      = "/api"
	imageRoutePath = apiPrefix + "/products/images"
)

// Options tune how New assembles the server.
type Options struct {
	// InMemory keeps all records in process memory instead of the database.
	InMemory bool
}

// Server wraps the HTTP server, router and the connections it owns.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	db         *gorm.DB
	cache      *cache.ProductCache
	mq         *mq.MQ
}

type repositories struct {
	categories services.CategoryRepository
	products   services.ProductRepository
	users      services.UserRepository
	orders     services.OrderRepository
}

// New connects the configured backends and builds the router.
func New(ctx context.Context, cfg config.Config, opts Options) (*Server, error) {
	if cfg.Auth.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}

	s := &Server{}
	var repos repositories
	if opts.InMemory {
		st := memstore.New()
		repos = repositories{st.Categories(), st.Products(), st.Users(), st.Orders()}
		log.Printf("using in-memory store")
	} else {
		gdb, err := db.Open(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		s.db = gdb
		repos = repositories{
			categories: store.NewCategoryRepository(gdb),
			products:   store.NewProductRepository(gdb),
			users:      store.NewUserRepository(gdb),
			orders:     store.NewOrderRepository(gdb),
		}
	}

	tokens := auth.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	categoryService := services.NewCategoryService(repos.categories)
	productService := services.NewProductService(repos.products, repos.categories)
	userService := services.NewUserService(repos.users, tokens)
	orderService := services.NewOrderService(repos.orders, repos.products, repos.users)

	if cfg.Redis.Addr != "" {
		productCache, err := cache.NewProductCache(ctx, cfg.Redis)
		if err != nil {
			_ = s.Shutdown()
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		s.cache = productCache
		productService.WithCache(productCache)
		categoryService.WithProductCache(productCache)
	}

	var images *storage.ImageStore
	if cfg.StorageBackend != "" {
		var err error
		images, err = storage.Open(ctx, cfg, imageRoutePath)
		if err != nil {
			_ = s.Shutdown()
			return nil, fmt.Errorf("open storage: %w", err)
		}
	}

	if cfg.MQBackend != "" {
		broker, err := mq.Open(ctx, cfg)
		if err != nil {
			_ = s.Shutdown()
			return nil, fmt.Errorf("connect %s: %w", cfg.MQBackend, err)
		}
		s.mq = broker
		orderService.WithEvents(mq.NewOrderEventPublisher(broker))
	}

	gate := handlers.NewGate(tokens)

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		middleware.Logger,
		middleware.Timeout(60*time.Second),
		cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
			MaxAge:         300,
		}),
	)
	router.Get("/healthz", handlers.Healthz)
	router.Route(apiPrefix, func(r chi.Router) {
		r.Route("/categories", func(r chi.Router) {
			handlers.CategoryRouter(r, categoryService, gate)
		})
		r.Route("/products", func(r chi.Router) {
			handlers.ProductRouter(r, productService, images, gate)
		})
		r.Route("/order", func(r chi.Router) {
			handlers.OrderRouter(r, orderService, gate)
		})
		handlers.UserRouter(r, userService, gate)
	})

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}

	s.router = router
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s, nil
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the HTTP server. It returns nil after Shutdown.
func (s *Server) Start() error {
	log.Printf("listening addr=%s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop drains in-flight requests until ctx is done, then releases the
// backends.
func (s *Server) Stop(ctx context.Context) error {
	var err error
	if s.httpServer != nil {
		err = s.httpServer.Shutdown(ctx)
	}
	return errors.Join(err, s.closeBackends())
}

// Shutdown closes the server immediately.
func (s *Server) Shutdown() error {
	var err error
	if s.httpServer != nil {
		err = s.httpServer.Close()
	}
	return errors.Join(err, s.closeBackends())
}

func (s *Server) closeBackends() error {
	var errs []error
	if s.mq != nil {
		errs = append(errs, s.mq.Close())
		s.mq = nil
	}
	if s.cache != nil {
		errs = append(errs, s.cache.Close())
		s.cache = nil
	}
	if s.db != nil {
		errs = append(errs, db.Close(s.db))
		s.db = nil
	}
	return errors.Join(errs...)
}
