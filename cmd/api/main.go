package main

import (
	"context"
	"fmt"
	"log"

	common_api "crm-core/internal/common/api"
	"crm-core/internal/config"
	"crm-core/internal/database"
	"crm-core/internal/features/audit"
	"crm-core/internal/features/authz"
	"crm-core/internal/features/role"
	"crm-core/internal/features/team"
	"crm-core/internal/features/user"
	"crm-core/internal/logger"
	"crm-core/internal/middleware"
	"crm-core/pkg/utils"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

// NewFiberServer creates a new Fiber app instance
func NewFiberServer() *fiber.App {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	app.Use(middleware.CORSMiddleware())

	return app
}

// AsRoute is a helper function to reduce boilerplate.
// It tags the constructor so Fx knows to add it to the "routes" group.
func AsRoute(f any) any {
	return fx.Annotate(
		f,
		fx.As(new(common_api.Route)),    // Cast to Interface
		fx.ResultTags(`group:"routes"`), // Add to Group
	)
}

// RegisterAllRoutes takes the group "routes" (slice of interfaces)
// and calls Setup() on each one.
func RegisterAllRoutes(app *fiber.App, routes []common_api.Route) {
	for _, route := range routes {
		route.Setup(app)
	}
}

// RegisterAllRoutesWithAnnotation wraps RegisterAllRoutes with fx annotations
var RegisterAllRoutesWithAnnotation = fx.Annotate(
	RegisterAllRoutes,
	fx.ParamTags(``, `group:"routes"`),
)

// StartServer creates a lifecycle hook to start Fiber in a goroutine
// and shut it down when the app exits.
func StartServer(lc fx.Lifecycle, app *fiber.App, cfg *config.Config) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			utils.SetSecret(cfg.JWTSecret)
			go func() {
				port := fmt.Sprintf(":%s", cfg.Port)
				if err := app.Listen(port); err != nil {
					log.Fatalf("Server failed to start: %v", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return app.Shutdown()
		},
	})
}

// NewPermissionCache sizes the per-user permission cache from config.
func NewPermissionCache(cfg *config.Config) (*authz.Cache, error) {
	return authz.NewCache(cfg.PermissionCacheSize)
}

// @title           CRM Core API
// @version         1.0
// @description     Role-based, scope-filtered authorization for a multi-tenant CRM.

// @host            localhost:8080
// @BasePath        /
func main() {
	app := fx.New(
		fx.Provide(
			// Load Config
			config.LoadConfig,

			// Initialize Logger
			logger.NewLogger,

			// Initialize Fiber Server
			NewFiberServer,

			// Initialize Database
			database.NewDatabase,

			// Initialize Repository
			audit.NewAuditRepository,
			role.NewRoleRepository,
			team.NewTeamRepository,
			user.NewUserRepository,

			// Permission engine
			authz.DefaultRegistry,
			NewPermissionCache,
			authz.NewResolver,

			audit.NewAuditService,
			role.NewRoleService,
			team.NewTeamService,
			user.NewUserService,

			// Interface Adapters to break circular dependencies and satisfy Fx
			func(r user.UserRepository) audit.UserFinder { return r },
			func(r user.UserRepository) authz.UserDirectory { return r },
			func(r team.TeamRepository) authz.TeamDirectory { return r },
			func(r role.RoleRepository) authz.RoleDirectory { return r },
			func(r *authz.Resolver) authz.Invalidator { return r },
			func(r user.UserRepository) role.AssigneeSource { return r },
			func(r team.TeamRepository) role.TeamSource { return r },
			func(r role.RoleRepository) team.RoleRef { return r },
			func(r role.RoleRepository) user.RoleRef { return r },

			// Initialize Controller
			audit.NewAuditController,
			authz.NewAuthzController,
			role.NewRoleController,
			team.NewTeamController,
			user.NewUserController,

			// Initialize API Routes
			AsRoute(audit.NewAuditApi),
			AsRoute(authz.NewAuthzApi),
			AsRoute(role.NewRoleApi),
			AsRoute(team.NewTeamApi),
			AsRoute(user.NewUserApi),
		),
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log}
		}),
		fx.Invoke(
			// Register Routes & Start
			RegisterAllRoutesWithAnnotation,
			StartServer,
		),
	)

	app.Run()
}
