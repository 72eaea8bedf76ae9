package main

import (
	"log"

	"github.com/Kayler1303/ACS-sub001/internal/bootstrap"
	"github.com/Kayler1303/ACS-sub001/internal/server"
	"github.com/Kayler1303/ACS-sub001/internal/shared/config"
)

func main() {
	cfg := config.Load()

	app, err := bootstrap.Build(cfg)
	if err != nil {
		log.Fatalf("bootstrap build: %v", err)
	}

	addr := server.Addr(cfg.Port)
	log.Printf("starting API server on %s", addr)

	if err := app.Router.Run(addr); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
