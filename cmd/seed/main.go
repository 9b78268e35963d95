// Command seed creates a production with its departments and one user per
// role, then prints a bearer token for each user.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/garyjia/cineexpense/internal/config"
	"github.com/garyjia/cineexpense/internal/container"
	"github.com/garyjia/cineexpense/internal/domain/entity"
	"github.com/garyjia/cineexpense/internal/domain/workflow"
	"github.com/garyjia/cineexpense/pkg/utils"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to the YAML config file")
	name := flag.String("name", "Untitled Production", "production name")
	currency := flag.String("currency", "USD", "base currency")
	threshold := flag.String("threshold", "0.80", "budget alert threshold ratio")
	departments := flag.String("departments", "Camera:50000,Art:30000,Catering:15000", "comma separated name:budget pairs")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := utils.NewLogger(utils.LoggerConfig{Level: "warn", OutputPath: "stderr", Format: "console"})
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	depts, err := parseDepartments(*departments)
	if err != nil {
		log.Fatalf("Invalid -departments: %v", err)
	}
	ratio, err := decimal.NewFromString(*threshold)
	if err != nil {
		log.Fatalf("Invalid -threshold: %v", err)
	}

	ctx := context.Background()
	c, err := container.NewContainer(cfg, logger)
	if err != nil {
		log.Fatalf("Failed to create container: %v", err)
	}
	if err := c.Start(ctx); err != nil {
		log.Fatalf("Failed to start container: %v", err)
	}
	defer c.Close()

	now := utils.NewSystemClock(cfg.Workflow.Timezone).Now().UTC()
	production := &entity.Production{
		ID:                   uuid.NewString(),
		Name:                 *name,
		Status:               workflow.ProductionActive,
		BaseCurrency:         strings.ToUpper(*currency),
		BudgetAlertThreshold: ratio,
		CreatedAt:            now,
	}
	users := make([]*entity.User, 0, len(entity.Roles))
	for _, role := range entity.Roles {
		lower := strings.ToLower(string(role))
		users = append(users, &entity.User{
			ID:           uuid.NewString(),
			ProductionID: production.ID,
			Name:         strings.ToUpper(lower[:1]) + lower[1:],
			Email:        lower + "@crew.local",
			Role:         role,
			CreatedAt:    now,
		})
	}

	repos := c.Repositories()
	err = c.DB().WithTransaction(ctx, func(txCtx context.Context) error {
		if err := repos.Workflow.Productions.Create(txCtx, production); err != nil {
			return err
		}
		for _, d := range depts {
			d.ID = uuid.NewString()
			d.ProductionID = production.ID
			d.CreatedAt = now
			if err := repos.Workflow.Departments.Create(txCtx, d); err != nil {
				return err
			}
		}
		for _, u := range users {
			if err := repos.Users.Create(txCtx, u); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		logger.Fatal("Seeding failed", zap.Error(err))
	}

	fmt.Printf("production %s (%s)\n", production.ID, production.Name)
	for _, d := range depts {
		fmt.Printf("department %s %-12s %s\n", d.ID, d.Name, d.AllocatedBudget.StringFixed(2))
	}
	for _, u := range users {
		token, err := c.Identity().Issue(u)
		if err != nil {
			logger.Fatal("Failed to issue token", zap.Error(err))
		}
		fmt.Printf("%-10s %s\n%s\n", u.Role, u.ID, token)
	}
}

func parseDepartments(s string) ([]*entity.Department, error) {
	var out []*entity.Department
	for _, pair := range strings.Split(s, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		name, amount, ok := strings.Cut(pair, ":")
		if !ok || strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("expected name:budget, got %q", pair)
		}
		budget, err := decimal.NewFromString(strings.TrimSpace(amount))
		if err != nil {
			return nil, fmt.Errorf("budget for %s: %w", name, err)
		}
		if err := utils.ValidateBudget(budget); err != nil {
			return nil, err
		}
		out = append(out, &entity.Department{Name: strings.TrimSpace(name), AllocatedBudget: budget})
	}
	return out, nil
}
