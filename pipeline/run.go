package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Summary reports what a pipeline run produced.
type Summary struct {
	NumInputDocs  int    `json:"num_input_docs"`
	AugmentedPath string `json:"augmented_path"`
	AnalysisPath  string `json:"analysis_path"`
}

// Run loads input documents, analyzes each, and writes augmented.jsonl and
// analysis.jsonl into outDir. The analysis stream carries the positional
// source_index that later merges the two streams.
func Run(inputPath, outDir string, w Weights) (Summary, error) {
	docs, err := LoadInputs(inputPath)
	if err != nil {
		return Summary{}, err
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return Summary{}, err
	}

	augmented := make([]interface{}, 0, len(docs))
	analyses := make([]interface{}, 0, len(docs))
	for i, doc := range docs {
		aug, analysis := Analyze(doc, w)
		analysis.SourceIndex = i
		augmented = append(augmented, aug)
		analyses = append(analyses, analysis)
	}

	summary := Summary{
		NumInputDocs:  len(docs),
		AugmentedPath: filepath.Join(outDir, "augmented.jsonl"),
		AnalysisPath:  filepath.Join(outDir, "analysis.jsonl"),
	}
	if err := writeJSONL(summary.AugmentedPath, augmented); err != nil {
		return summary, err
	}
	if err := writeJSONL(summary.AnalysisPath, analyses); err != nil {
		return summary, err
	}
	return summary, nil
}

// LoadInputs accepts a .json file (object or array root), a .jsonl file, or
// a directory of either, walked in name order.
func LoadInputs(path string) ([]map[string]interface{}, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		entries, err := os.ReadDir(path)
		if err != nil {
			return nil, err
		}
		names := make([]string, 0, len(entries))
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			ext := strings.ToLower(filepath.Ext(entry.Name()))
			if ext == ".json" || ext == ".jsonl" {
				names = append(names, entry.Name())
			}
		}
		sort.Strings(names)
		var docs []map[string]interface{}
		for _, name := range names {
			child, err := LoadInputs(filepath.Join(path, name))
			if err != nil {
				return nil, err
			}
			docs = append(docs, child...)
		}
		return docs, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if strings.ToLower(filepath.Ext(path)) == ".jsonl" {
		return parseJSONLines(path, data)
	}

	var root interface{}
	if err := json.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	switch v := root.(type) {
	case map[string]interface{}:
		return []map[string]interface{}{v}, nil
	case []interface{}:
		docs := make([]map[string]interface{}, 0, len(v))
		for i, item := range v {
			doc, ok := item.(map[string]interface{})
			if !ok {
				return nil, fmt.Errorf("%s: element %d is not an object", path, i)
			}
			docs = append(docs, doc)
		}
		return docs, nil
	default:
		return nil, fmt.Errorf("%s: unsupported JSON root type, must be object or array", path)
	}
}

func parseJSONLines(path string, data []byte) ([]map[string]interface{}, error) {
	var docs []map[string]interface{}
	for i, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		var doc map[string]interface{}
		if err := json.Unmarshal([]byte(line), &doc); err != nil {
			return nil, fmt.Errorf("%s line %d: %w", path, i+1, err)
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func writeJSONL(path string, objects []interface{}) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	enc := json.NewEncoder(file)
	for _, obj := range objects {
		if err := enc.Encode(obj); err != nil {
			return err
		}
	}
	return nil
}
