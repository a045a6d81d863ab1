package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/sudo-init-do/servicehub/internal/audit"
	"github.com/sudo-init-do/servicehub/internal/booking"
	"github.com/sudo-init-do/servicehub/internal/config"
	"github.com/sudo-init-do/servicehub/internal/db"
	"github.com/sudo-init-do/servicehub/internal/review"
)

// audit_stats runs the provider stats audit once and prints the report.
// Rating drift is repaired; job and earnings drift is only reported.
// Usage:
//
//	go run ./cmd/adminutil/audit_stats [-json]
func main() {
	asJSON := flag.Bool("json", false, "Print the report as JSON")
	flag.Parse()

	ctx := context.Background()
	pool, err := db.Open(ctx, config.Load().PostgresURL())
	if err != nil {
		log.Fatal(err)
	}
	defer pool.Close()

	aggregator := review.New(review.NewStore(pool), booking.NewStore(pool))
	report, err := audit.New(audit.NewStore(pool), aggregator, nil).Run(ctx)
	if err != nil {
		log.Fatalf("audit failed: %v", err)
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(report)
		return
	}
	fmt.Println(report)
}
