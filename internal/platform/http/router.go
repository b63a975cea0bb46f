package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jbaylocal/marketplace-api/internal/business/catalog"
	"github.com/jbaylocal/marketplace-api/internal/business/session"
)

// Options configures cross-cutting router behaviour.
type Options struct {
	AllowedOrigins string
	PublicBaseURL  string
	RateLimitRPS   float64
	RateLimitBurst int
}

// Router wires HTTP handlers.
type Router struct {
	listings *catalog.Service
	sessions *session.Registry
	origins  string
	baseURL  string
	limiter  *ipLimiter
}

func NewRouter(listings *catalog.Service, sessions *session.Registry, opts Options) *gin.Engine {
	r := &Router{
		listings: listings,
		sessions: sessions,
		origins:  opts.AllowedOrigins,
		baseURL:  opts.PublicBaseURL,
		limiter:  newIPLimiter(opts.RateLimitRPS, opts.RateLimitBurst),
	}

	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery(), r.corsMiddleware())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api", r.rateLimitMiddleware(), r.sessionMiddleware())
	{
		api.GET("/listings", r.listListings)
		api.GET("/listings/featured", r.featuredListings)
		api.GET("/listings/:id", r.getListing)
		api.POST("/listings/:id/share", r.shareListing)
		api.GET("/authors/:id/listings", r.authorListings)
		api.GET("/map", r.mapListings)

		api.GET("/session/location", r.getLocation)
		api.PUT("/session/location", r.setLocation)
		api.DELETE("/session/location", r.clearLocation)
		api.POST("/session/location/device", r.acquireDeviceLocation)

		api.GET("/session/saved", r.listSaved)
		api.GET("/session/saved/listings", r.listSavedListings)
		api.PUT("/session/saved/:id", r.saveListing)
		api.DELETE("/session/saved/:id", r.unsaveListing)

		api.GET("/stats", r.getStats)
		api.POST("/stats/refresh", r.refreshStats)
	}

	return router
}

// writeError maps domain errors onto HTTP responses.
func writeError(c *gin.Context, err error) {
	var vErr *session.ValidationError
	var locErr *session.LocationError
	switch {
	case errors.As(err, &vErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": vErr.Error(), "field": vErr.Field})
	case errors.As(err, &locErr):
		c.JSON(locationStatus(locErr.Kind), gin.H{"error": string(locErr.Kind), "kind": locErr.Kind, "message": locErr.Message()})
	case errors.Is(err, catalog.ErrNotFound), errors.Is(err, catalog.ErrNoStats):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, catalog.ErrDataFetch):
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func locationStatus(kind session.LocationErrorKind) int {
	switch kind {
	case session.PermissionDenied:
		return http.StatusForbidden
	case session.Timeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusServiceUnavailable
	}
}

// persistenceWarning splits a state-store failure from other errors. The
// mutation it belongs to was already applied in memory.
func persistenceWarning(err error) (string, error) {
	if err == nil {
		return "", nil
	}
	if errors.Is(err, session.ErrPersistence) {
		return "Your change was applied but could not be saved for your next visit.", nil
	}
	return "", err
}
