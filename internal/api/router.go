package api

import (
	"net/http"
	"time"

	"CricketSync/internal/interfaces"
	"CricketSync/internal/metrics"
	"CricketSync/internal/notifier"
	"CricketSync/internal/service"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// RouterDeps 路由依赖；Hub / MetricsHandler 为 nil 时不注册对应路由
type RouterDeps struct {
	Reader         interfaces.MatchReader
	Scheduler      *service.SyncScheduler
	Hub            *notifier.Hub
	MetricsHandler http.Handler
	Logger         *logrus.Logger
	Recorder       *metrics.Recorder
	EnablePprof    bool
}

// NewRouter 注册全部路由
func NewRouter(deps RouterDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLogger(deps.Logger, deps.Recorder))
	r.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:    []string{"Origin", "Content-Type", "Accept", HeaderRequestID},
		ExposeHeaders:   []string{HeaderRequestID},
		MaxAge:          12 * time.Hour,
	}))

	// 注册ppof 方便调试和监测性能问题
	if deps.EnablePprof {
		pprof.Register(r)
	}

	r.GET("/healthz", func(c *gin.Context) {
		resp := gin.H{"status": "ok"}
		if deps.Hub != nil {
			resp["subscribers"] = deps.Hub.Count()
		}
		c.JSON(http.StatusOK, resp)
	})

	matchHandler := NewMatchHandler(deps.Reader, deps.Logger)
	r.GET("/matches", matchHandler.ListMatches)
	r.GET("/matches/:id", matchHandler.GetMatch)
	r.GET("/current-matches", matchHandler.ListCurrentMatches)

	if deps.Scheduler != nil {
		syncHandler := NewSyncHandler(deps.Scheduler, deps.Logger)
		r.GET("/sync/status", syncHandler.Status)
		r.POST("/sync/:cycle", syncHandler.Trigger)
	}

	if deps.MetricsHandler != nil {
		r.GET("/metrics", gin.WrapH(deps.MetricsHandler))
	}
	if deps.Hub != nil {
		r.GET("/ws", gin.WrapF(deps.Hub.ServeWS))
	}
	return r
}
