package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/onewhat/server/internal/auth"
	"github.com/onewhat/server/internal/config"
)

func main() {
	envLoader := config.AddEnvFlag(flag.CommandLine, ".env")
	clientID := flag.String("client", "", "Client ID to embed in the token")
	ttl := flag.Duration("ttl", 0, "Token lifetime (defaults to TOKEN_TTL)")
	flag.Parse()

	if *clientID == "" {
		fmt.Fprintln(os.Stderr, "--client is required")
		os.Exit(2)
	}

	if _, err := envLoader.Load(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if cfg.JWTSecret == "" {
		fmt.Fprintln(os.Stderr, "JWT_SECRET is not set; the server accepts unauthenticated clients")
		os.Exit(1)
	}

	lifetime := cfg.TokenTTL
	if *ttl > 0 {
		lifetime = *ttl
	}

	issuer, err := auth.NewIssuer(cfg.JWTSecret, lifetime)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	token, expiresAt, err := issuer.Issue(*clientID)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	fmt.Println(token)
	fmt.Fprintf(os.Stderr, "client %s, expires %s\n", *clientID, expiresAt.Format(time.RFC3339))
}
