// Command token mints a bearer token for calling the API.
//
//	go run ./cmd/token -user u-1 -name "Awa Diop" -role manager
package main

import (
	"flag"
	"fmt"
	"log"

	"gestistock/config"
	"gestistock/internal/auth"
	"gestistock/internal/models"
)

func main() {
	userID := flag.String("user", "", "user id")
	name := flag.String("name", "", "display name recorded on sales and movements")
	role := flag.String("role", models.RoleSeller, "admin, manager or seller")
	flag.Parse()

	if *userID == "" || *name == "" {
		log.Fatal("-user and -name are required")
	}

	cfg := config.Load()
	token, exp, err := auth.NewManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL).Generate(*userID, *name, *role)
	if err != nil {
		log.Fatalf("Failed to generate token: %v", err)
	}

	fmt.Println(token)
	log.Printf("Token expires at %s", exp.Format("2006-01-02 15:04:05"))
}
