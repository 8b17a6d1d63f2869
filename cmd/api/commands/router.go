package commands

import (
	"github.com/TimUdinusYes/backend/internal/handler"
	"github.com/TimUdinusYes/backend/internal/middleware"
	"github.com/TimUdinusYes/backend/internal/websocket"
	"github.com/gin-gonic/gin"
)

// newRouter registers every route. Everything under /api except the OAuth
// callback requires a session token.
func newRouter(app *application) *gin.Engine {
	var calendarAuth handler.CalendarAuth
	if app.calendarAuth != nil {
		calendarAuth = app.calendarAuth
	}

	healthHandler := handler.NewHealthHandler(app.db, app.hub, Version)
	sessionHandler := handler.NewSessionHandler()
	topicHandler := handler.NewTopicHandler(app.topics)
	workflowHandler := handler.NewWorkflowHandler(app.workflows)
	scheduleHandler := handler.NewScheduleHandler(app.workflows)
	validationHandler := handler.NewValidationHandler(app.validation)
	calendarHandler := handler.NewCalendarHandler(calendarAuth, app.cfg.FrontendURL)
	quizHandler := handler.NewQuizHandler(app.quiz)
	wsHandler := handler.NewWebSocketHandler(app.hub)

	r := gin.New()
	r.Use(middleware.RequestID()) // Request ID + logging estruturado
	r.Use(gin.Recovery())
	r.Use(middleware.CORS(app.cfg.FrontendURL))
	r.Use(middleware.MetricsMiddleware())
	r.Use(middleware.AuditMiddleware())

	// Health check (público)
	r.GET("/health", healthHandler.DetailedHealthCheck)
	r.GET("/health/live", healthHandler.LivenessCheck)
	r.GET("/health/ready", healthHandler.ReadinessCheck)

	// Retorno do consentimento do Google (público, identificado pelo state)
	r.GET("/api/calendar/callback", calendarHandler.Callback)

	// WebSocket: o token vem em ?token=
	r.GET("/ws", websocket.AuthMiddleware(app.resolver, app.sessions), wsHandler.HandleConnection)

	// Grupo de rotas protegidas
	api := r.Group("/api")
	api.Use(middleware.SessionAuth(middleware.AuthConfig{
		Resolver: app.resolver,
		Sessions: app.sessions,
	}))
	{
		api.GET("/me", sessionHandler.GetCurrentUser)

		api.POST("/topics", topicHandler.CreateTopic)
		api.GET("/topics", topicHandler.ListTopics)
		api.GET("/topics/:id", topicHandler.GetTopic)
		api.GET("/topics/:id/nodes", topicHandler.ListNodes)
		api.POST("/topics/:id/nodes", topicHandler.CreateNode)
		api.DELETE("/nodes/:id", topicHandler.DeleteNode)

		api.POST("/workflows", workflowHandler.Create)
		api.GET("/workflows", workflowHandler.List)
		api.GET("/workflows/:id", workflowHandler.Get)
		api.PUT("/workflows/:id/graph", workflowHandler.UpdateGraph)
		api.DELETE("/workflows/:id", workflowHandler.Delete)

		api.POST("/validate-path", validationHandler.ValidatePath)

		api.POST("/estimate", scheduleHandler.Estimate)
		api.GET("/workflows/:id/estimate", scheduleHandler.EstimateWorkflow)
		api.POST("/workflows/:id/implement", scheduleHandler.Implement)
		api.GET("/workflows/:id/schedule.xlsx", scheduleHandler.DownloadSchedule)

		api.GET("/calendar/auth-url", calendarHandler.AuthURL)

		api.GET("/materials/:id/pages/:page/quiz", quizHandler.GetQuestion)
		api.POST("/quiz/submit", quizHandler.Submit)

		api.GET("/ws/stats", wsHandler.GetConnectionStats)
		api.GET("/ws/me", wsHandler.GetUserConnections)

		api.GET("/metrics", healthHandler.GetMetricsSummary)
		api.GET("/metrics/full", healthHandler.GetMetrics)
		api.GET("/metrics/endpoints", healthHandler.GetEndpointMetrics)
	}

	return r
}
