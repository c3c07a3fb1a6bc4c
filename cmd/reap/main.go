// Command reap runs one trash reap against the configured backend and
// prints the result as JSON. Meant for diagnostics and cron-less setups.
package main

import (
	"context"
	"encoding/json"
	"log"
	"os"

	"github.com/lingodocs/docstore/internal/app"
	"github.com/lingodocs/docstore/internal/config"
)

func main() {
	ctx := context.Background()
	cfg := config.LoadConfig()

	a, err := app.NewApp(ctx, cfg)
	if err != nil {
		log.Fatalf("%v", err)
	}

	res, err := a.Reaper.Run(ctx)
	if err != nil {
		log.Fatalf("reap failed: %v", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		log.Fatalf("%v", err)
	}
}
