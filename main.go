package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"notedesk/config"
	"notedesk/internal/store"
	"notedesk/pkg/logger"
	"notedesk/router"
	"notedesk/socket"

	"github.com/joho/godotenv"
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables from OS")
	}

	logger.Init()
	defer logger.Log.Sync()

	cfg := config.Load()

	// Connect to the document store. Initialize pings the store, so retry
	// a few times in case of temporary DNS/network blips.
	st := store.New()
	var err error
	for i := 0; i < 5; i++ {
		if err = st.Initialize(context.Background(), cfg.StoreAddress); err == nil {
			break
		}
		logger.Sugar.Infof("Store connection failed, retrying in 2s... (%v)", err)
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		logger.Sugar.Fatalf("Could not connect to the document store after retries: %v", err)
	}
	defer st.Close()

	// The hub fans document change events out to websocket subscribers.
	hub := socket.NewHub()
	go hub.Run()

	logger.Sugar.Infof("notedesk listening on %s", cfg.ListenAddr)
	if err := http.ListenAndServe(cfg.ListenAddr, router.Setup(st, hub)); err != nil {
		logger.Sugar.Fatalf("Server stopped: %v", err)
	}
}
