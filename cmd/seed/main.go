package main

import (
	"context"
	"errors"
	"os"
	"time"

	"crm-core/internal/common/models"
	"crm-core/internal/config"
	"crm-core/internal/database"
	"crm-core/internal/features/authz"
	"crm-core/internal/features/role"
	"crm-core/internal/logger"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

// systemRoles builds the roles provisioned for every new tenant. The
// admin role grants everything, the rep role works own-scoped, the lead
// role team-scoped, and the auditor can only look.
func systemRoles(registry *authz.Registry) []role.Role {
	grid := func(scope authz.Scope, ops ...authz.Operation) []authz.PermissionEntry {
		if len(ops) == 0 {
			ops = authz.Operations()
		}
		var entries []authz.PermissionEntry
		for _, entityType := range registry.EntityTypes() {
			for _, op := range ops {
				entries = append(entries, authz.PermissionEntry{
					EntityType: entityType,
					Operation:  op,
					Scope:      scope,
				})
			}
		}
		return entries
	}

	return []role.Role{
		{
			Name:        "Administrator",
			Description: "Full access to every record of every entity type",
			IsSystem:    true,
			Permissions: grid(authz.ScopeAll),
		},
		{
			Name:        "Sales Representative",
			Description: "Works own records only",
			IsSystem:    true,
			Permissions: grid(authz.ScopeOwn),
		},
		{
			Name:        "Team Lead",
			Description: "Sees and edits records across the team",
			IsSystem:    true,
			Permissions: grid(authz.ScopeTeam),
		},
		{
			Name:        "Auditor",
			Description: "Read-only visibility over all records",
			IsSystem:    true,
			Permissions: grid(authz.ScopeAll, authz.OperationView),
		},
	}
}

// Seed provisions the system roles for one tenant and exits. Existing
// roles are left untouched, so re-running is safe.
func Seed(
	lc fx.Lifecycle,
	roleRepo role.RoleRepository,
	registry *authz.Registry,
	log *zap.Logger,
	shutdowner fx.Shutdowner,
) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				defer func() {
					if err := shutdowner.Shutdown(); err != nil {
						log.Error("Failed to shutdown", zap.Error(err))
					}
				}()

				tenantID := os.Getenv("SEED_TENANT_ID")
				if tenantID == "" {
					log.Error("SEED_TENANT_ID is required")
					return
				}

				ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				defer cancel()
				ctx = context.WithValue(ctx, models.TenantIDKey, tenantID)

				log.Info("Seeding system roles", zap.String("tenant_id", tenantID))

				for _, r := range systemRoles(registry) {
					if _, err := roleRepo.FindByName(ctx, r.Name); err == nil {
						log.Info("Role already present", zap.String("name", r.Name))
						continue
					} else if !errors.Is(err, role.ErrNotFound) {
						log.Error("Failed to check role", zap.String("name", r.Name), zap.Error(err))
						return
					}

					r.CreatedAt = time.Now()
					r.UpdatedAt = time.Now()
					if err := roleRepo.Create(ctx, &r); err != nil {
						log.Error("Failed to create role", zap.String("name", r.Name), zap.Error(err))
						return
					}
					log.Info("Created role", zap.String("name", r.Name))
				}

				log.Info("Seeding complete")
			}()
			return nil
		},
	})
}

func main() {
	app := fx.New(
		fx.Provide(
			config.LoadConfig,
			logger.NewLogger,
			database.NewDatabase,
			authz.DefaultRegistry,
			role.NewRoleRepository,
		),
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log}
		}),
		fx.Invoke(Seed),
	)

	app.Run()
}
