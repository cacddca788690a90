package health

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("health",
	fx.Provide(NewHealthService),
	fx.Invoke(func(engine *gin.Engine, svc *HealthService) {
		engine.GET("/healthz", svc.Liveness)
		engine.GET("/readyz", svc.Readiness)
	}),
)

type HealthService struct {
	db    *gorm.DB
	redis *redis.Client
}

func NewHealthService(db *gorm.DB, rdb *redis.Client) *HealthService {
	return &HealthService{db: db, redis: rdb}
}

func (s *HealthService) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *HealthService) Readiness(c *gin.Context) {
	checks := gin.H{}
	healthy := true

	sqlDB, err := s.db.DB()
	if err == nil {
		err = sqlDB.PingContext(c.Request.Context())
	}
	if err != nil {
		checks["database"] = err.Error()
		healthy = false
	} else {
		checks["database"] = "ok"
	}

	if err := s.redis.Ping(c.Request.Context()).Err(); err != nil {
		checks["redis"] = err.Error()
		healthy = false
	} else {
		checks["redis"] = "ok"
	}

	status := http.StatusOK
	if !healthy {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, checks)
}
