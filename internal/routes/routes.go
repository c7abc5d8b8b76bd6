package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"telehealth-server/internal/config"
	"telehealth-server/internal/handlers"
	"telehealth-server/internal/middleware"
	"telehealth-server/internal/models"
	"telehealth-server/internal/notify"
	"telehealth-server/internal/scheduling"
)

// Dependencies are the services the routes are built on.
type Dependencies struct {
	DB        *gorm.DB
	Config    *config.Config
	Scheduler *scheduling.Service
	Doctors   handlers.DoctorLister
	Hub       *notify.Hub
	Gatherer  prometheus.Gatherer
	Logger    *zap.Logger
}

// SetupRoutes configures the application routes.
func SetupRoutes(router *gin.Engine, deps Dependencies) {
	cfg := deps.Config
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	authHandler := handlers.NewAuthHandler(deps.DB, cfg)
	userHandler := handlers.NewUserHandler(deps.Doctors)
	appointmentHandler := handlers.NewAppointmentHandler(deps.Scheduler)
	realtimeHandler := handlers.NewRealtimeHandler(deps.Hub, cfg.Origin, deps.Logger)

	public := router.Group("/api/v1")
	{
		authRoutes := public.Group("/auth")
		{
			authRoutes.POST("/register", authHandler.Register)
			authRoutes.POST("/login", authHandler.Login)
			authRoutes.POST("/refresh-token", authHandler.RefreshToken)
		}
		public.GET("/ws", middleware.SocketAuthMiddleware(cfg), realtimeHandler.Connect)
	}

	private := router.Group("/api/v1")
	private.Use(middleware.AuthMiddleware(cfg))
	{
		authRoutesPrivate := private.Group("/auth")
		{
			authRoutesPrivate.POST("/logout", authHandler.Logout)
			authRoutesPrivate.GET("/profile", authHandler.GetProfile)
			authRoutesPrivate.PUT("/profile", authHandler.UpdateProfile)
		}

		appointmentRoutes := private.Group("/appointments")
		{
			appointmentRoutes.GET("/doctors", userHandler.GetDoctors)
			appointmentRoutes.GET("/doctors/:doctorId/availability", appointmentHandler.GetAvailability)

			appointmentRoutes.POST("/book", middleware.RoleAuthMiddleware(models.RolePatient), appointmentHandler.BookAppointment)
			appointmentRoutes.GET("/patient/my-appointments", middleware.RoleAuthMiddleware(models.RolePatient), appointmentHandler.GetPatientAppointments)
			appointmentRoutes.GET("/doctor/my-appointments", middleware.RoleAuthMiddleware(models.RoleDoctor), appointmentHandler.GetDoctorAppointments)

			// Authorization against the appointment's parties happens in the service
			appointmentRoutes.GET("/:id", appointmentHandler.GetAppointmentByID)
			appointmentRoutes.PATCH("/:id/cancel", appointmentHandler.CancelAppointment)
			appointmentRoutes.PATCH("/:id", middleware.RoleAuthMiddleware(models.RoleDoctor), appointmentHandler.UpdateAppointment)
		}
	}

	if deps.Gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "UP"})
	})
}
