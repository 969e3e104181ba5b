// Command worker runs one project's floor-plan analysis synchronously from
// the command line. Operators use it to re-process a project without going
// through the HTTP diagnostic endpoint.
package main

import (
	"context"
	"flag"
	"log"

	"github.com/spatial-studio/spatial-backend/config"
	"github.com/spatial-studio/spatial-backend/internal/analysis"
	"github.com/spatial-studio/spatial-backend/internal/bootstrap"
	"github.com/spatial-studio/spatial-backend/internal/projects/repository"
	s3store "github.com/spatial-studio/spatial-backend/internal/storage/s3"
	"github.com/spatial-studio/spatial-backend/internal/vision/claude"
)

func main() {
	projectID := flag.String("project", "", "project id to analyze")
	flag.Parse()

	if *projectID == "" {
		log.Fatal("usage: worker -project <project-id>")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx := context.Background()

	pool, err := bootstrap.OpenDB(ctx, bootstrap.DBOptions{DSN: bootstrap.DSN(cfg.Database)})
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()

	blobs, err := s3store.New(ctx, cfg.Storage)
	if err != nil {
		log.Fatalf("storage: %v", err)
	}

	worker := analysis.NewWorker(
		repository.NewProjectRepository(pool),
		blobs,
		claude.NewAnalyzer(cfg.Vision.AnthropicAPIKey, ""),
	)
	dispatcher := analysis.NewDispatcher(worker)

	elapsed, err := dispatcher.ProcessSync(ctx, *projectID)
	if err != nil {
		log.Fatalf("analysis failed after %s: %v", elapsed, err)
	}
	log.Printf("analysis completed in %s", elapsed)
}
