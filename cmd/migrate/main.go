package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"wingwatch/internal/recorder"
	"wingwatch/internal/repository/sqlite"
)

func main() {
	csvPath := flag.String("log", "data/detections.csv", "Detections log to import")
	dbPath := flag.String("db", "data/events.db", "Event index path")
	runID := flag.String("run", "imported", "Run ID to stamp on imported events")
	flag.Parse()

	fmt.Printf("Importing %s into index %s\n", *csvPath, *dbPath)

	// Ensure database directory exists
	if err := os.MkdirAll(filepath.Dir(*dbPath), 0755); err != nil {
		log.Fatalf("Failed to create database directory: %v", err)
	}

	events, err := recorder.ReadEvents(*csvPath)
	if err != nil {
		log.Fatalf("Failed to read detections log: %v", err)
	}
	if len(events) == 0 {
		fmt.Println("No events found to import")
		return
	}
	for i := range events {
		events[i].RunID = *runID
	}

	db, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	repo := sqlite.NewEventRepository(db)

	fmt.Printf("Inserting %d events into the index...\n", len(events))
	inserted, err := repo.InsertBatch(events)
	if err != nil {
		log.Fatalf("Failed to insert events: %v", err)
	}

	fmt.Printf("✅ Successfully imported %d events\n", inserted)
	if skipped := len(events) - inserted; skipped > 0 {
		fmt.Printf("⚠️  Skipped %d rows\n", skipped)
	}

	// Show stats
	stats, err := repo.GetStats()
	if err == nil {
		fmt.Printf("\n📊 Index Statistics:\n")
		fmt.Printf("   Total events: %d\n", stats.TotalEvents)
		fmt.Printf("   Per label:\n")
		for label, count := range stats.PerLabel {
			fmt.Printf("      - %s: %d events\n", label, count)
		}
	}
}
