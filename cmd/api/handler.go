package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	activityDelivery "cyra-kanban/internal/activity/delivery"
	activityUsecase "cyra-kanban/internal/activity/usecase"
	authDelivery "cyra-kanban/internal/auth/delivery"
	authUsecase "cyra-kanban/internal/auth/usecase"
	automationDelivery "cyra-kanban/internal/automation/delivery"
	automationUsecase "cyra-kanban/internal/automation/usecase"
	calendarDelivery "cyra-kanban/internal/calendar/delivery"
	calendarUsecase "cyra-kanban/internal/calendar/usecase"
	clientDelivery "cyra-kanban/internal/client/delivery"
	clientUsecase "cyra-kanban/internal/client/usecase"
	taskDelivery "cyra-kanban/internal/task/delivery"
	taskUsecase "cyra-kanban/internal/task/usecase"
	"cyra-kanban/pkg/config"
	"cyra-kanban/pkg/sse"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

// Deps are the usecases the HTTP surface is built from.
type Deps struct {
	AuthUsecase       authUsecase.AuthUsecase
	TaskUsecase       taskUsecase.TaskUsecase
	CalendarUsecase   calendarUsecase.CalendarUsecase
	ActivityUsecase   activityUsecase.ActivityUsecase
	ClientUsecase     clientUsecase.ClientUsecase
	AutomationUsecase automationUsecase.AutomationUsecase
	Owners            automationUsecase.OwnerResolver
	SSEManager        *sse.Manager
	Config            *config.Config
}

type Handler struct {
	deps Deps

	authHandler       *authDelivery.AuthHandler
	taskHandler       *taskDelivery.TaskHandler
	calendarHandler   *calendarDelivery.CalendarHandler
	settingsHandler   *SettingsHandler
	activityHandler   *activityDelivery.ActivityHandler
	clientHandler     *clientDelivery.ClientHandler
	automationHandler *automationDelivery.AutomationHandler
}

func NewHandler(deps Deps) *Handler {
	return &Handler{
		deps:              deps,
		authHandler:       authDelivery.NewAuthHandler(deps.AuthUsecase),
		taskHandler:       taskDelivery.NewTaskHandler(deps.TaskUsecase),
		calendarHandler:   calendarDelivery.NewCalendarHandler(deps.CalendarUsecase, deps.Config.AppURL),
		settingsHandler:   NewSettingsHandler(deps.CalendarUsecase),
		activityHandler:   activityDelivery.NewActivityHandler(deps.ActivityUsecase),
		clientHandler:     clientDelivery.NewClientHandler(deps.ClientUsecase),
		automationHandler: automationDelivery.NewAutomationHandler(deps.AutomationUsecase, deps.TaskUsecase),
	}
}

// Router builds the gin engine with CORS and every route mounted.
func (h *Handler) Router() *gin.Engine {
	if h.deps.Config.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.Default()
	r.Use(corsMiddleware())

	SetupRoutes(r, h)
	return r
}

// Start serves on addr until ctx is cancelled, then drains in-flight requests.
func (h *Handler) Start(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		zap.L().Info("[Server] Listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	zap.L().Info("[Server] Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin != "" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		} else {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		}

		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
