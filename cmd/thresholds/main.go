// Command thresholds shows or changes the occupancy thresholds saved in the server database.
// The server picks up a change on its next start.
package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"crowdwatch/internal/repository"
	"crowdwatch/internal/repository/sqlite"
)

func main() {
	dbPath := flag.String("db", "crowdwatch.db", "Database path")
	low := flag.Float64("low", -1, "New low threshold in percent")
	high := flag.Float64("high", -1, "New high threshold in percent")
	flag.Parse()

	if err := os.MkdirAll(filepath.Dir(*dbPath), 0755); err != nil {
		log.Fatalf("Failed to create database directory: %v", err)
	}

	db, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	repo := sqlite.NewSettingsRepository(db)

	current, updatedAt, err := repo.LoadThresholds()
	saved := err == nil
	switch {
	case errors.Is(err, repository.ErrNotFound):
		fmt.Println("No saved thresholds, the server uses its configured values")
	case err != nil:
		log.Fatalf("Failed to read thresholds: %v", err)
	default:
		fmt.Printf("📊 Saved thresholds: low=%.1f high=%.1f (updated %s)\n",
			current.Low, current.High, updatedAt.Format("2006-01-02 15:04:05"))
	}

	if *low < 0 && *high < 0 {
		return
	}

	if !saved && (*low < 0 || *high < 0) {
		log.Fatalf("Both -low and -high are required when nothing is saved yet")
	}

	next := current
	if *low >= 0 {
		next.Low = *low
	}
	if *high >= 0 {
		next.High = *high
	}
	if err := next.Validate(); err != nil {
		log.Fatalf("Refusing to save: %v", err)
	}
	if err := repo.SaveThresholds(next); err != nil {
		log.Fatalf("Failed to save thresholds: %v", err)
	}
	fmt.Printf("✅ Saved thresholds: low=%.1f high=%.1f\n", next.Low, next.High)
}
