package main

import (
	"context"
	"log"

	"github.com/spatial-studio/spatial-backend/config"
	"github.com/spatial-studio/spatial-backend/internal/analysis"
	"github.com/spatial-studio/spatial-backend/internal/auth"
	authrepo "github.com/spatial-studio/spatial-backend/internal/auth/repository"
	"github.com/spatial-studio/spatial-backend/internal/auth/rolecache"
	"github.com/spatial-studio/spatial-backend/internal/bootstrap"
	"github.com/spatial-studio/spatial-backend/internal/projects/repository"
	"github.com/spatial-studio/spatial-backend/internal/projects/service"
	"github.com/spatial-studio/spatial-backend/internal/storage"
	s3store "github.com/spatial-studio/spatial-backend/internal/storage/s3"
	"github.com/spatial-studio/spatial-backend/internal/vision/claude"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	bootstrap.SetGinMode(cfg.App.Environment)

	ctx := context.Background()
	dsn := bootstrap.DSN(cfg.Database)

	pool, err := bootstrap.OpenDB(ctx, bootstrap.DBOptions{DSN: dsn})
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()

	sqlDB, err := bootstrap.OpenSQL(ctx, dsn)
	if err != nil {
		log.Fatalf("postgres (roles): %v", err)
	}
	defer sqlDB.Close()

	redisClient, err := bootstrap.OpenRedis(ctx, cfg.Redis)
	if err != nil {
		log.Fatalf("redis: %v", err)
	}
	defer redisClient.Close()

	blobs, err := s3store.New(ctx, cfg.Storage)
	if err != nil {
		log.Fatalf("storage: %v", err)
	}

	var verifier auth.SessionVerifier = auth.DenyAllVerifier{}
	if cfg.Auth.CredentialsPath != "" {
		fb, err := auth.NewFirebaseVerifier(ctx, cfg.Auth.CredentialsPath)
		if err != nil {
			log.Fatalf("firebase: %v", err)
		}
		verifier = fb
	} else {
		log.Println("FIREBASE_CREDENTIALS_PATH not set, only service-key requests will pass the gate")
	}

	projectRepo := repository.NewProjectRepository(pool)
	roles := rolecache.New(redisClient, authrepo.NewRoleRepository(sqlDB))

	visionClient := claude.NewAnalyzer(cfg.Vision.AnthropicAPIKey, "")
	worker := analysis.NewWorker(projectRepo, blobs, visionClient)
	dispatcher := analysis.NewDispatcher(worker)

	ingestor := storage.NewIngestor(blobs)
	uploads := service.NewUploadService(ingestor, projectRepo, dispatcher)

	sweeper := analysis.NewSweeper(projectRepo, dispatcher, cfg.App.SweepSchedule)
	if err := sweeper.Start(); err != nil {
		log.Fatalf("sweeper: %v", err)
	}
	defer sweeper.Stop()

	r := bootstrap.BuildRouter(bootstrap.RouterDeps{
		ServiceName: "spatial-studio-backend",
		Version:     cfg.App.Version,
		Config:      cfg,
		DB:          pool,
		Uploads:     uploads,
		Dispatcher:  dispatcher,
		Verifier:    verifier,
		Roles:       roles,
	})

	log.Printf("listening on :%s", cfg.Server.Port)
	if err := r.Run(":" + cfg.Server.Port); err != nil {
		log.Fatalf("server: %v", err)
	}
}
