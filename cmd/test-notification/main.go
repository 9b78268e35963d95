// Command test-notification sends one sample notification through Lark IM so
// credentials and recipient ids can be checked without running the service.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/garyjia/cineexpense/internal/config"
	"github.com/garyjia/cineexpense/internal/domain/entity"
	"github.com/garyjia/cineexpense/internal/domain/event"
	infraLark "github.com/garyjia/cineexpense/internal/infrastructure/external/lark"
	"github.com/garyjia/cineexpense/pkg/utils"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to the YAML config file")
	flag.Parse()

	if flag.NArg() != 1 {
		log.Fatal("Usage: test-notification [-config path] <open_id or email>")
	}
	target := flag.Arg(0)

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	larkCfg := infraLark.Config{AppID: cfg.Lark.AppID, AppSecret: cfg.Lark.AppSecret}
	if !larkCfg.Enabled() {
		log.Fatal("lark.app_id and lark.app_secret must be set")
	}

	logger, err := utils.NewLogger(utils.LoggerConfig{Level: "debug", OutputPath: "stdout", Format: "console"})
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	recipient := &entity.User{ID: "test-recipient", Name: "Test Recipient"}
	if strings.Contains(target, "@") {
		recipient.Email = target
	} else {
		recipient.LarkOpenID = target
	}

	notification := &entity.Notification{
		ID:   uuid.NewString(),
		Type: entity.NotificationStatusChanged,
		Payload: map[string]interface{}{
			event.KeyExpenseID: uuid.NewString(),
			event.KeyFrom:      "Submitted",
			event.KeyTo:        "ManagerApproved",
			event.KeyAmount:    "120.00",
		},
		CreatedAt: time.Now().UTC(),
	}

	fmt.Println("Sending:")
	fmt.Println(infraLark.FormatNotification(notification))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client := infraLark.NewSDKClient(larkCfg, logger)
	notifier := infraLark.NewNotifier(infraLark.NewMessenger(client, logger), logger)
	if err := notifier.Push(ctx, recipient, notification); err != nil {
		log.Fatalf("Push failed: %v", err)
	}
	fmt.Println("Notification sent")
}
