package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/jbaylocal/marketplace-api/internal/business/catalog"
	"github.com/jbaylocal/marketplace-api/internal/business/session"
	"github.com/jbaylocal/marketplace-api/internal/platform/cache"
	"github.com/jbaylocal/marketplace-api/internal/platform/config"
	firestoreclient "github.com/jbaylocal/marketplace-api/internal/platform/firestore"
	"github.com/jbaylocal/marketplace-api/internal/platform/geoip"
	apirouter "github.com/jbaylocal/marketplace-api/internal/platform/http"
	"github.com/jbaylocal/marketplace-api/internal/repository"
)

const sessionIdleTimeout = 2 * time.Hour

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	_ = godotenv.Load(".env.local", ".env")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load: %v", err)
	}

	gin.SetMode(cfg.GinMode)

	firestoreClient, credsSource, err := firestoreclient.New(ctx, cfg)
	if err != nil {
		log.Fatalf("firestore init: %v", err)
	}
	defer firestoreClient.Close()

	if err := firestoreclient.Ping(ctx, firestoreClient); err != nil {
		log.Fatalf("firestore ping: %v", err)
	}
	log.Printf("connected to Firestore project %s using %s credentials", cfg.FirebaseProjectID, credsSource)

	listingRepo := repository.NewListingRepository(firestoreClient)
	statsRepo := repository.NewStatsRepository(firestoreClient)

	var source catalog.Source = listingRepo
	var stateStore session.StateStore = repository.NewSessionRepository(firestoreClient)

	if cfg.RedisURL != "" {
		redisClient, err := cache.NewRedisClient(ctx, cfg.RedisURL, cfg.RedisDB)
		if err != nil {
			if cfg.SessionStore == config.SessionStoreRedis {
				log.Fatalf("redis init: %v", err)
			}
			log.Printf("redis unavailable, serving listings without cache: %v", err)
		} else {
			defer redisClient.Close()
			source = cache.NewListingCache(listingRepo, redisClient, cfg.CacheTTL, logLine)
			if cfg.SessionStore == config.SessionStoreRedis {
				stateStore = cache.NewSessionStore(redisClient, 0)
			}
		}
	}
	if cfg.SessionStore == config.SessionStoreMemory {
		stateStore = session.NewMemoryStore()
	}
	log.Printf("session store: %s", cfg.SessionStore)

	catalogService := catalog.NewService(source, listingRepo, statsRepo, logLine)

	locator := geoip.New(nil, geoip.Config{
		BaseURL: cfg.GeoIPBaseURL,
		Mock:    cfg.GeoIPMock,
	})
	sessions := session.NewRegistry(stateStore, locator, session.ProviderOptions{
		Timeout: cfg.LocationTimeout,
		MaxAge:  cfg.LocationMaxAge,
		Area:    cfg.ServiceArea,
	}, logLine)

	go pruneSessions(ctx, sessions)

	router := apirouter.NewRouter(catalogService, sessions, apirouter.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		PublicBaseURL:  cfg.PublicBaseURL,
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
	})

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()
	log.Printf("server listening on :%s", cfg.Port)

	<-ctx.Done()
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("server shutdown error: %v", err)
	}
	log.Println("server exited")
}

func logLine(msg string) {
	log.Print(msg)
}

func pruneSessions(ctx context.Context, sessions *session.Registry) {
	ticker := time.NewTicker(15 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := sessions.Prune(sessionIdleTimeout); n > 0 {
				log.Printf("pruned %d idle sessions, %d open", n, sessions.Len())
			}
		}
	}
}
