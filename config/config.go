package config

import (
	"fmt"
	"os"
	"strings"
)

// Config is everything the process reads from the environment. The store
// address is the single configuration string the store layer recognizes.
type Config struct {
	StoreAddress string
	ListenAddr   string
}

// Load reads the environment. Values are trimmed because .env files
// pasted from dashboards tend to carry stray whitespace.
func Load() Config {
	dbUser := strings.TrimSpace(os.Getenv("user"))
	dbPass := strings.TrimSpace(os.Getenv("password"))
	dbHost := strings.TrimSpace(os.Getenv("host"))
	dbPort := strings.TrimSpace(os.Getenv("port"))
	dbName := strings.TrimSpace(os.Getenv("dbname"))

	listen := strings.TrimSpace(os.Getenv("LISTEN_ADDR"))
	if listen == "" {
		listen = ":8080"
	}

	return Config{
		StoreAddress: fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=require",
			dbUser, dbPass, dbHost, dbPort, dbName),
		ListenAddr: listen,
	}
}
