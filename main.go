package main

import (
	"embed"
	"log"

	"github.com/joho/godotenv"

	"github.com/MKPie/Fatality/internal/bootstrap"
)

//go:embed frontend/index.html frontend/wailsjs
var appAssets embed.FS

func main() {
	// Load .env if present so a dev backend can be targeted without
	// editing saved settings.
	_ = godotenv.Load()

	app, err := bootstrap.NewWithAssets(appAssets)
	if err != nil {
		log.Fatalf("bootstrap app: %v", err)
	}

	if err := app.Run(); err != nil {
		log.Fatalf("run app: %v", err)
	}
}
