package main

import (
	"context"
	"net/http"
	"os"

	webAdapter "payables-engine/internal/adapters/web"
	"payables-engine/internal/app"
	"payables-engine/internal/db"
	"payables-engine/internal/logger"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

func main() {
	_ = godotenv.Load()

	if err := logger.Setup(logger.FromEnv()); err != nil {
		log.Fatal().Err(err).Msg("logger setup")
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("database")
	}
	defer pool.Close()

	svc := app.NewAppService(pool)

	port := os.Getenv("SERVER_PORT")
	if port == "" {
		port = "8080"
	}

	allowedOrigins := os.Getenv("ALLOWED_ORIGINS")
	handler := webAdapter.NewHandler(svc, allowedOrigins)

	log.Info().Str("port", port).Msg("server starting")
	if err := http.ListenAndServe(":"+port, handler); err != nil {
		log.Fatal().Err(err).Msg("server")
	}
}
