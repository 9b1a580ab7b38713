// Package main mints editor tokens signed with JWT_SECRET, for local use and service accounts.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aura-survey/backend/config"
	"github.com/aura-survey/backend/internal/auth"
)

func main() {
	email := flag.String("email", "", "editor email")
	role := flag.String("role", "admin", "role claim")
	userID := flag.String("user", "", "user id (random when empty)")
	flag.Parse()

	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	id := uuid.New()
	if *userID != "" {
		if id, err = uuid.Parse(*userID); err != nil {
			logger.Fatal("invalid user id", zap.Error(err))
		}
	}

	token, err := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours).Generate(id, *email, *role)
	if err != nil {
		logger.Fatal("sign token", zap.Error(err))
	}
	fmt.Fprintln(os.Stdout, token)
}
