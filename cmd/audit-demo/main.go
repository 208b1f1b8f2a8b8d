// Command audit-demo performs a single audit pass over the configured inputs
// and prints the ranked district table as CSV, without touching the database
// or report directory layout of the long-running service.
package main

import (
	"context"
	"flag"
	"log"
	"os"

	"incident_audit/audit"
	"incident_audit/config"
	"incident_audit/geo"
	"incident_audit/incident"
	"incident_audit/pipeline"
	"incident_audit/report"
)

func main() {
	outPath := flag.String("out", "", "write CSV to this file instead of stdout")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.PolygonsPath == "" {
		log.Fatal("POLYGONS_PATH is required")
	}

	weights, err := pipeline.LoadWeights(cfg.WeightsPath)
	if err != nil {
		log.Printf("weights: %v (using defaults)", err)
	}
	workDir, err := os.MkdirTemp("", "audit-demo-")
	if err != nil {
		log.Fatalf("temp dir: %v", err)
	}
	defer os.RemoveAll(workDir)

	summary, err := pipeline.Run(cfg.InputsDir, workDir, weights)
	if err != nil {
		log.Fatalf("pipeline: %v", err)
	}
	augmented, err := incident.LoadJSONL(summary.AugmentedPath)
	if err != nil {
		log.Fatalf("load augmented: %v", err)
	}
	analysis, err := incident.LoadJSONL(summary.AnalysisPath)
	if err != nil {
		log.Fatalf("load analysis: %v", err)
	}
	records := incident.Merge(analysis, augmented)

	polygons, err := geo.LoadFeatures(cfg.PolygonsPath)
	if err != nil {
		log.Fatalf("load polygons: %v", err)
	}
	var stations []incident.StationPoint
	if cfg.StationsPath != "" {
		feats, err := geo.LoadFeatures(cfg.StationsPath)
		if err != nil {
			log.Fatalf("load stations: %v", err)
		}
		stations = incident.StationsFromFeatures(feats)
	} else {
		stations = incident.StationsFromIncidents(augmented)
	}

	rows, err := audit.Evaluate(context.Background(), polygons, stations, records)
	if err != nil {
		log.Fatalf("evaluate: %v", err)
	}

	csvData, err := report.CSVBytes(audit.Rank(rows))
	if err != nil {
		log.Fatalf("render csv: %v", err)
	}
	if *outPath == "" {
		os.Stdout.Write(csvData)
		return
	}
	if err := os.WriteFile(*outPath, csvData, 0o644); err != nil {
		log.Fatalf("write %s: %v", *outPath, err)
	}
	log.Printf("wrote %d regions to %s (incidents=%d)", len(rows), *outPath, len(records))
}
