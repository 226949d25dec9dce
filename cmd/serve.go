package cmd

import (
	"context"
	"database/sql"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	authclient "github.com/vibast-solutions/lib-go-auth/client"
	authmiddleware "github.com/vibast-solutions/lib-go-auth/middleware"
	authlibservice "github.com/vibast-solutions/lib-go-auth/service"
	"github.com/vibast-solutions/ms-go-clover-pos/app/clover"
	"github.com/vibast-solutions/ms-go-clover-pos/app/controller"
	clovergrpc "github.com/vibast-solutions/ms-go-clover-pos/app/grpc"
	"github.com/vibast-solutions/ms-go-clover-pos/app/notifier"
	"github.com/vibast-solutions/ms-go-clover-pos/app/repository"
	"github.com/vibast-solutions/ms-go-clover-pos/app/service"
	"github.com/vibast-solutions/ms-go-clover-pos/app/types"
	"github.com/vibast-solutions/ms-go-clover-pos/config"

	_ "github.com/go-sql-driver/mysql"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP and gRPC servers",
	Long:  "Start both HTTP (Echo) and gRPC servers for the Clover POS connector.",
	Run:   runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

type services struct {
	methodService   *service.PaymentMethodService
	oauthService    *service.OAuthService
	terminalService *service.TerminalService
}

type httpControllers struct {
	oauth        *controller.OAuthController
	notification *controller.NotificationController
	terminal     *controller.TerminalController
	admin        *controller.AdminController
}

func runServe(_ *cobra.Command, _ []string) {
	cfg, svcs, cleanup := mustCreateServices()
	defer cleanup()

	controllers := httpControllers{
		oauth:        controller.NewOAuthController(svcs.oauthService),
		notification: controller.NewNotificationController(svcs.terminalService),
		terminal:     controller.NewTerminalController(svcs.terminalService),
		admin:        controller.NewAdminController(svcs.methodService, svcs.terminalService),
	}
	grpcTerminalServer := clovergrpc.NewServer(svcs.terminalService)

	authGRPCClient, err := authclient.NewGRPCClientFromAddr(context.Background(), cfg.InternalEndpoints.AuthGRPCAddr)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to initialize auth gRPC client")
	}
	defer authGRPCClient.Close()

	internalAuthService := authlibservice.NewInternalAuthService(authGRPCClient)
	echoInternalAuthMiddleware := authmiddleware.NewEchoInternalAuthMiddleware(internalAuthService)
	grpcInternalAuthMiddleware := authmiddleware.NewGRPCInternalAuthMiddleware(internalAuthService)

	e := setupHTTPServer(controllers, echoInternalAuthMiddleware, cfg.App.ServiceName)
	grpcSrv, lis := setupGRPCServer(cfg, grpcTerminalServer, grpcInternalAuthMiddleware, cfg.App.ServiceName)

	go func() {
		httpAddr := net.JoinHostPort(cfg.HTTP.Host, cfg.HTTP.Port)
		logrus.WithField("addr", httpAddr).Info("Starting HTTP server")
		if err := e.Start(httpAddr); err != nil && err != http.ErrServerClosed {
			logrus.WithError(err).Fatal("HTTP server error")
		}
	}()

	go func() {
		logrus.WithField("addr", lis.Addr().String()).Info("Starting gRPC server")
		if err := grpcSrv.Serve(lis); err != nil {
			logrus.WithError(err).Fatal("gRPC server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logrus.Info("Shutting down...")

	// Proxied payment calls can run for the full payment timeout.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Clover.PaymentTimeout+10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Warn("HTTP shutdown error")
	}
	grpcSrv.GracefulStop()

	logrus.Info("Server stopped")
}

func setupHTTPServer(
	controllers httpControllers,
	internalAuthMiddleware *authmiddleware.EchoInternalAuthMiddleware,
	appServiceName string,
) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	e.Use(echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogMethod:    true,
		LogRemoteIP:  true,
		LogLatency:   true,
		LogUserAgent: true,
		LogError:     true,
		HandleError:  true,
		LogRequestID: true,
		LogValuesFunc: func(_ echo.Context, v echomiddleware.RequestLoggerValues) error {
			fields := logrus.Fields{
				"remote_ip":  v.RemoteIP,
				"host":       v.Host,
				"method":     v.Method,
				"uri":        v.URI,
				"status":     v.Status,
				"latency":    v.Latency.String(),
				"latency_ns": v.Latency.Nanoseconds(),
				"user_agent": v.UserAgent,
				"request_id": v.RequestID,
			}
			entry := logrus.WithFields(fields)
			if v.Error != nil {
				entry = entry.WithError(v.Error)
			}
			entry.Info("http_request")
			return nil
		},
	}))
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())

	// Clover calls these directly, so they carry neither a request id nor an API key.
	e.GET("/health", controllers.notification.Health)
	e.GET("/payment/pos_clover/authorize", controllers.oauth.Authorize)
	e.POST("/pos_clover/notification", controllers.notification.Notification)
	e.GET("/pos_clover/test", controllers.notification.Test)

	internal := []echo.MiddlewareFunc{requireRequestID(), internalAuthMiddleware.RequireInternalAccess(appServiceName)}

	pos := e.Group("/pos", internal...)
	pos.POST("/payment-methods/:id/proxy", controllers.terminal.Proxy)
	pos.GET("/payment-methods/:id/latest-response", controllers.terminal.LatestResponse)
	pos.GET("/payment-methods/:id/operations/:reference", controllers.terminal.Operation)
	pos.GET("/payment-methods/:id/operations/:reference/await", controllers.terminal.AwaitOperation)
	pos.POST("/payment-methods/:id/payments", controllers.terminal.RecordPayment)
	pos.GET("/payments/:pos_payment_id", controllers.terminal.GetCloverPayment)

	admin := e.Group("/admin", internal...)
	admin.POST("/payment-methods", controllers.admin.CreatePaymentMethod)
	admin.GET("/payment-methods", controllers.admin.ListPaymentMethods)
	admin.GET("/payment-methods/:id", controllers.admin.GetPaymentMethod)
	admin.PUT("/payment-methods/:id", controllers.admin.UpdatePaymentMethod)
	admin.DELETE("/payment-methods/:id", controllers.admin.DeletePaymentMethod)
	admin.GET("/payment-methods/:id/authorization-url", controllers.admin.AuthorizationURL)
	admin.POST("/payment-methods/:id/generate-token", controllers.admin.GenerateAccessToken)
	admin.POST("/payment-methods/:id/fetch-device", controllers.admin.FetchDevice)
	admin.POST("/payment-methods/:id/revoke-token", controllers.admin.RevokeToken)
	admin.POST("/payment-methods/:id/test-connection", controllers.admin.TestConnection)
	admin.GET("/payment-methods/:id/pos-configs", controllers.admin.ListPosConfigs)
	admin.POST("/payment-methods/:id/pos-configs/:config_id", controllers.admin.LinkPosConfig)
	admin.DELETE("/payment-methods/:id/pos-configs/:config_id", controllers.admin.UnlinkPosConfig)
	admin.GET("/transaction-logs", controllers.admin.ListTransactionLogs)

	return e
}

func requireRequestID() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			requestID := strings.TrimSpace(ctx.Request().Header.Get(echo.HeaderXRequestID))
			if requestID == "" {
				return ctx.JSON(http.StatusBadRequest, &types.ErrorResponse{Error: "x-request-id header is required"})
			}
			ctx.Response().Header().Set(echo.HeaderXRequestID, requestID)
			return next(ctx)
		}
	}
}

func setupGRPCServer(
	cfg *config.Config,
	terminalServer *clovergrpc.Server,
	internalAuthMiddleware *authmiddleware.GRPCInternalAuthMiddleware,
	appServiceName string,
) (*grpc.Server, net.Listener) {
	grpcAddr := net.JoinHostPort(cfg.GRPC.Host, cfg.GRPC.Port)
	lis, err := net.Listen("tcp", grpcAddr)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to listen on gRPC port")
	}

	grpcSrv := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			clovergrpc.RecoveryInterceptor(),
			clovergrpc.RequestIDInterceptor(),
			clovergrpc.LoggingInterceptor(),
			internalAuthMiddleware.UnaryRequireInternalAccess(appServiceName),
		),
	)
	clovergrpc.RegisterTerminalServer(grpcSrv, terminalServer)

	return grpcSrv, lis
}

func mustLoadConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}
	if err := configureLogging(cfg); err != nil {
		logrus.WithError(err).Fatal("Failed to configure logging")
	}
	return cfg
}

func mustOpenDB(cfg *config.Config) *sql.DB {
	db, err := sql.Open("mysql", cfg.MySQL.DSN)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to connect to database")
	}

	db.SetMaxOpenConns(cfg.MySQL.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MySQL.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.MySQL.ConnMaxLifetime)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		logrus.WithError(err).Fatal("Failed to ping database")
	}
	return db
}

func mustCreateServices() (*config.Config, *services, func()) {
	cfg := mustLoadConfig()
	db := mustOpenDB(cfg)

	redisClient, err := notifier.NewRedisClient(context.Background(), cfg.Redis.URL)
	if err != nil {
		_ = db.Close()
		logrus.WithError(err).Fatal("Failed to connect to redis")
	}

	methodRepo := repository.NewPaymentMethodRepository(db)
	posConfigRepo := repository.NewPosConfigRepository(db)
	logRepo := repository.NewTransactionLogRepository(db)
	paymentRepo := repository.NewCloverPaymentRepository(db)
	eventRepo := repository.NewTerminalEventRepository(db)

	cloverClient := clover.NewClient(clover.Config{
		SandboxAPIURL:     cfg.Clover.SandboxAPIURL,
		ProductionAPIURL:  cfg.Clover.ProductionAPIURL,
		SandboxAuthURL:    cfg.Clover.SandboxAuthURL,
		ProductionAuthURL: cfg.Clover.ProductionAuthURL,
		DefaultTimeout:    cfg.Clover.DefaultTimeout,
		PaymentTimeout:    cfg.Clover.PaymentTimeout,
	})

	svcs := &services{
		methodService: service.NewPaymentMethodService(methodRepo, posConfigRepo, cloverClient, cfg.Clover, cfg.App.PublicBaseURL),
		oauthService:  service.NewOAuthService(methodRepo),
		terminalService: service.NewTerminalService(
			methodRepo,
			posConfigRepo,
			logRepo,
			paymentRepo,
			eventRepo,
			cloverClient,
			notifier.NewPublisher(redisClient),
			notifier.NewDeviceLock(redisClient),
			cfg.Clover,
			cfg.Jobs,
		),
	}

	cleanup := func() {
		if err := redisClient.Close(); err != nil {
			logrus.WithError(err).Warn("Failed to close redis")
		}
		if err := db.Close(); err != nil {
			logrus.WithError(err).Warn("Failed to close database")
		}
	}

	return cfg, svcs, cleanup
}
