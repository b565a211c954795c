// Command token issues a bearer token for an agent, for local testing and scripts.
package main

import (
	"flag"
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/girrex/suivi/internal/adapter/auth"
	"github.com/girrex/suivi/internal/config"
	"github.com/girrex/suivi/internal/domain"
)

func main() {
	agentID := flag.String("agent", "", "agent ID (required)")
	roles := flag.String("roles", "", "comma-separated roles, e.g. QSE_NATIONAL")
	flag.Parse()

	_ = godotenv.Load()
	logger := logrus.New()

	if *agentID == "" {
		logger.Fatal("-agent is required")
	}

	cfg, err := config.Load()
	if err != nil {
		logger.WithError(err).Fatal("failed to load configuration")
	}

	tokens, err := auth.NewTokenService(cfg.Security.JWTSecret, cfg.Security.JWTIssuer, cfg.Security.JWTExpiration)
	if err != nil {
		logger.WithError(err).Fatal("failed to initialize token service")
	}

	actor := domain.Actor{AgentID: *agentID}
	for _, r := range strings.Split(*roles, ",") {
		if r = strings.TrimSpace(r); r != "" {
			actor.Roles = append(actor.Roles, r)
		}
	}

	token, err := tokens.Issue(actor)
	if err != nil {
		logger.WithError(err).Fatal("failed to issue token")
	}
	fmt.Println(token)
}
