// Command synthgen writes synthetic incident payloads as JSONL, with a
// controllable rate of narrative/record inconsistencies and optional scatter
// points for spatial runs.
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"path/filepath"
)

func main() {
	count := flag.Int("count", 1000, "number of incidents to generate")
	out := flag.String("out", "synthetic_incidents.jsonl", "output path")
	inconsistencyRate := flag.Float64("inconsistency-rate", 0.3,
		"fraction of incidents where the narrative mentions exposures but the exposures list is empty")
	withPoints := flag.Bool("with-points", true, "attach a random point within the bounding box")
	seed := flag.Int64("seed", 0, "random seed (0 uses a random one)")
	flag.Parse()

	rng := rand.New(rand.NewSource(*seed))
	if *seed == 0 {
		rng = rand.New(rand.NewSource(rand.Int63()))
	}

	if dir := filepath.Dir(*out); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			log.Fatalf("create output dir: %v", err)
		}
	}
	file, err := os.Create(*out)
	if err != nil {
		log.Fatalf("create %s: %v", *out, err)
	}
	defer file.Close()

	w := bufio.NewWriter(file)
	enc := json.NewEncoder(w)
	for i := 0; i < *count; i++ {
		if err := enc.Encode(makeIncident(rng, i, *inconsistencyRate, *withPoints)); err != nil {
			log.Fatalf("write incident %d: %v", i, err)
		}
	}
	if err := w.Flush(); err != nil {
		log.Fatalf("flush: %v", err)
	}
	log.Printf("wrote %d synthetic incidents to %s", *count, *out)
}

func makeIncident(rng *rand.Rand, i int, inconsistencyRate float64, withPoint bool) map[string]interface{} {
	exposures := rng.Intn(6)
	rescues := rng.Intn(4)
	narrative := fmt.Sprintf("Witnesses reported %d exposures and %d rescues at the scene.", exposures, rescues)

	payload := map[string]interface{}{
		"incident_id": fmt.Sprintf("synthetic-%d", i),
		"title":       fmt.Sprintf("Synthetic Incident %d", i),
		"details": map[string]interface{}{
			"summary":   fmt.Sprintf("Auto-generated incident %d", i),
			"narrative": narrative,
		},
		"dispatch":         map[string]interface{}{"disposition": []interface{}{}},
		"casualty_rescues": []interface{}{},
		"exposures":        []interface{}{},
	}

	rescueList := make([]interface{}, 0, rescues)
	for r := 0; r < rescues; r++ {
		rescueList = append(rescueList, map[string]interface{}{
			"id":      fmt.Sprintf("cr-%d-%d", i, r),
			"outcome": "rescued",
			"person":  map[string]interface{}{"age_range": "adult", "sex": "unknown"},
		})
	}
	payload["casualty_rescues"] = rescueList

	// The inconsistency: the narrative claims exposures but the structured
	// exposures list stays empty.
	if !(exposures > 0 && rng.Float64() < inconsistencyRate) {
		levels := []string{"low", "medium", "high"}
		expList := make([]interface{}, 0, exposures)
		for e := 0; e < exposures; e++ {
			expList = append(expList, map[string]interface{}{
				"id":     fmt.Sprintf("exp-%d-%d", i, e),
				"hazard": "chemical",
				"level":  levels[rng.Intn(len(levels))],
			})
		}
		payload["exposures"] = expList
	}

	// Occasionally drop fields to simulate missing data.
	if rng.Float64() < 0.05 {
		delete(payload, "title")
	}
	if rng.Float64() < 0.03 {
		payload["details"].(map[string]interface{})["narrative"] = ""
	}

	if withPoint {
		lon := -77.1 + rng.Float64()*0.4
		lat := 38.8 + rng.Float64()*0.5
		payload["point"] = map[string]interface{}{
			"geometry": map[string]interface{}{
				"type":        "Point",
				"coordinates": []interface{}{lon, lat},
			},
		}
	}
	return payload
}
