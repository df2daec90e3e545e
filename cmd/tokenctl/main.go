// tokenctl mints device-bound bearer tokens for provisioning and testing.
// Issuance in production happens out of band; this command exists so a
// device on the bench can be given credentials against a local server.
package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"example.com/telemetry/internal/auth"
	"example.com/telemetry/internal/config"
)

func main() {
	deviceID := flag.String("device-id", "", "Device identifier to embed in the token")
	ttl := flag.Duration("ttl", time.Hour, "Token lifetime")
	flag.Parse()

	if *deviceID == "" {
		log.Fatal("device-id is required")
	}

	cfg := config.Load()
	token, err := auth.Issue(*deviceID, auth.Config{
		Secret: cfg.JWTSecret,
		Issuer: cfg.JWTIssuer,
		TTL:    *ttl,
	})
	if err != nil {
		log.Fatalf("failed to issue token: %v", err)
	}

	fmt.Println(token)
}
