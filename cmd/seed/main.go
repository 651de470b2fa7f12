// Command seed loads the assessment catalog into PostgreSQL and can dump the
// candidate overview as an XLSX report.
//
//	seed [-file assessments.yaml] [-export report.xlsx]
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/fairyhunter13/softrate-ats/internal/adapter/export"
	"github.com/fairyhunter13/softrate-ats/internal/adapter/repo/postgres"
	"github.com/fairyhunter13/softrate-ats/internal/config"
	"github.com/fairyhunter13/softrate-ats/internal/seed"
	"github.com/fairyhunter13/softrate-ats/internal/usecase"
)

func main() {
	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	file := flag.String("file", cfg.SeedFile, "assessment YAML file; embedded catalog when empty")
	out := flag.String("export", "", "write the candidate overview to this XLSX path")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	pool, err := postgres.NewPool(ctx, cfg.DBURL)
	if err != nil {
		log.Fatal(err)
	}
	defer pool.Close()
	if err := postgres.EnsureSchema(ctx, pool); err != nil {
		log.Fatal(err)
	}
	store := postgres.NewStore(pool)

	n, err := seed.Run(ctx, usecase.NewAssessmentService(store, nil), *file)
	if err != nil {
		log.Fatal(err)
	}
	log.Printf("assessments created: %d", n)

	if *out == "" {
		return
	}
	rows, err := usecase.NewAdminService(store).CandidateRows(ctx)
	if err != nil {
		log.Fatal(err)
	}
	f, err := os.Create(*out)
	if err != nil {
		log.Fatal(err)
	}
	if err := export.WriteXLSX(f, rows, time.Now().UTC()); err != nil {
		_ = f.Close()
		log.Fatal(err)
	}
	if err := f.Close(); err != nil {
		log.Fatal(err)
	}
	log.Printf("candidate report written to %s (%d rows)", *out, len(rows))
}
