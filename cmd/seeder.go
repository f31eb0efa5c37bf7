package cmd

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	assessmentDatamodel "github.com/frahmantamala/compliance-management/internal/core/datamodel/assessment"
	userDatamodel "github.com/frahmantamala/compliance-management/internal/core/datamodel/user"
	"github.com/frahmantamala/compliance-management/internal/rbac"
	"github.com/frahmantamala/compliance-management/internal/tenant"
	tenantPostgres "github.com/frahmantamala/compliance-management/internal/tenant/postgres"
	"github.com/frahmantamala/compliance-management/pkg/logger"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with sample data",
	Long:  `Seed a demo tenant with a full approval role chain for development and testing.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		cfg, err := loadConfig(".")
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}

		logger.Init("development")
		lg := logger.LoggerWrapper()

		gormDB, err := initGorm(cfg.Database)
		if err != nil {
			log.Fatalf("failed to init db: %v", err)
		}

		store := tenant.NewStore(tenantPostgres.NewTenantRepository(gormDB), lg)

		const adminEmail = "admin@acme.example"
		if _, _, err := store.FindUserByEmail(ctx, adminEmail); err == nil {
			fmt.Println("demo tenant already seeded")
			return
		}

		hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
		if err != nil {
			log.Fatalf("failed to hash password: %v", err)
		}

		b, err := store.SetupTenant(ctx, tenant.SetupTenantParams{
			CompanyName:   "Acme Corp",
			Sector:        "Financial Services",
			ContactEmail:  "security@acme.example",
			LicenseKey:    "DEMO-LICENSE-KEY",
			LicenseTier:   "enterprise",
			LicenseExpiry: time.Now().AddDate(1, 0, 0),
			AdminName:     "Ada Admin",

			AdminEmail:        adminEmail,
			AdminPasswordHash: string(hash),
		})
		if err != nil {
			log.Fatalf("failed to create demo tenant: %v", err)
		}
		tenantID := b.Company.ID

		approvers := []struct {
			name  string
			email string
			role  rbac.Role
		}{
			{"Carol Chen", "ciso@acme.example", rbac.RoleCISO},
			{"Tom Torres", "cto@acme.example", rbac.RoleCTO},
			{"Ivy Ito", "cio@acme.example", rbac.RoleCIO},
			{"Eve Everett", "ceo@acme.example", rbac.RoleCEO},
			{"Sam Singh", "analyst@acme.example", rbac.RoleSecurityAnalyst},
		}

		controls := []assessmentDatamodel.Item{
			{ControlID: "AC-1", Domain: "Access Control", Subdomain: "Policy", Description: "access control policy and procedures", Status: assessmentDatamodel.StatusNotImplemented},
			{ControlID: "AC-2", Domain: "Access Control", Subdomain: "Accounts", Description: "account management", Status: assessmentDatamodel.StatusPartial},
			{ControlID: "IR-4", Domain: "Incident Response", Subdomain: "Handling", Description: "incident handling", Status: assessmentDatamodel.StatusNotImplemented},
			{ControlID: "CM-2", Domain: "Configuration Management", Subdomain: "Baseline", Description: "baseline configurations", Status: assessmentDatamodel.StatusImplemented},
		}

		err = store.Update(ctx, tenantID, func(b *tenant.Bundle) error {
			now := time.Now()
			for _, a := range approvers {
				b.Users = append(b.Users, userDatamodel.User{
					ID:           uuid.NewString(),
					Name:         a.name,
					Email:        a.email,
					Role:         string(a.role),
					PasswordHash: string(hash),
					Verified:     true,
					CreatedAt:    now,
					UpdatedAt:    now,
				})
			}
			for _, c := range controls {
				c.UpdatedAt = now
				b.Assessments = append(b.Assessments, c)
			}
			return nil
		})
		if err != nil {
			log.Fatalf("failed to seed demo data: %v", err)
		}

		fmt.Println("Seeded demo tenant:", tenantID)
		fmt.Println("Login with", adminEmail, "/ password123")
	},
}
