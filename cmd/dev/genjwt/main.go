package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	sub := flag.String("sub", uuid.New().String(), "subject claim")
	username := flag.String("username", "dashboard.admin", "username claim")
	role := flag.String("role", "admin", "role claim")
	ttl := flag.Duration("ttl", time.Hour, "token lifetime")
	flag.Parse()

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		secret = "dev-secret-123"
	}

	claims := jwt.MapClaims{
		"sub":      *sub,
		"username": *username,
		"role":     *role,
		"exp":      time.Now().Add(*ttl).Unix(),
		"iat":      time.Now().Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Println(signed)
}
