package router

import (
	"time"

	"cierrez/internal/config"
	"cierrez/internal/handler"
	"cierrez/internal/infra"
	"cierrez/internal/middleware"
	"cierrez/internal/repository"
	"cierrez/internal/service"
	"cierrez/internal/worker"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// New wires all dependencies and returns a configured Gin engine.
// Dependency graph: Handler ← Service ← BackendClient/Repository ← DB/Redis
func New(
	cfg *config.Config,
	db *gorm.DB,
	rdb *redis.Client,
	backend *infra.BackendClient,
	cb *infra.CircuitBreaker,
	dispatcher *worker.Dispatcher,
	tz *time.Location,
) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS())
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.RateLimiter(1000, time.Minute)) // 1000 req/min per IP

	// ── Repositories ─────────────────────────────────────────────────────────
	cierreRepo := repository.NewCierreRepository(db)

	// ── Services ─────────────────────────────────────────────────────────────
	catalogoSvc := service.NewCatalogoService(backend, rdb, time.Duration(cfg.CatalogTTLSec)*time.Second)
	cierreSvc := service.NewCierreService(backend, catalogoSvc, cierreRepo, dispatcher, cb, tz, cfg.Recipients())

	// ── Handlers ─────────────────────────────────────────────────────────────
	cierreH := handler.NewCierreHandler(cierreSvc)
	metodosH := handler.NewMetodosPagoHandler(catalogoSvc)

	// ── Routes ───────────────────────────────────────────────────────────────

	// Public
	r.GET("/health", handler.Health(db, rdb, cb))

	// Protected routes
	jwtMW := middleware.JWTAuth(cfg.JWTSecret)
	v1 := r.Group("/v1", jwtMW)
	{
		// Any POS role can preview and close its own drawer
		rolesCaja := middleware.RequireRole("cajero", "supervisor", "administrador")

		v1.GET("/cierres/preview", rolesCaja, cierreH.Preview)
		v1.POST("/cierres", rolesCaja, middleware.CierreRateLimiter(), cierreH.Cerrar)
		v1.GET("/cierres/historial", middleware.RequireRole("supervisor", "administrador"), cierreH.Historial)

		v1.GET("/metodos-pago", rolesCaja, metodosH.Listar)
	}

	// Swagger UI — only enabled outside production
	if cfg.Env != "production" {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	return r
}
