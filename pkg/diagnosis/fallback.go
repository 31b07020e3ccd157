package diagnosis

import (
	"encoding/csv"
	"fmt"
	"log"
	"os"
	"regexp"
	"strings"

	"ai-diagnosis-be/pkg/textnorm"
)

var symptomColumnPattern = regexp.MustCompile(`^symptom \d+$`)

type fallbackRecord struct {
	disease  string
	symptoms []string
}

// FallbackDataset is the dataset-overlap evidence source: historical
// disease/symptom associations loaded from a wide CSV, one row per record
// with an arbitrary number of symptom columns.
type FallbackDataset struct {
	records []fallbackRecord
}

// EmptyFallbackDataset returns a dataset with no records; overlap scoring
// is effectively disabled.
func EmptyFallbackDataset() *FallbackDataset {
	return &FallbackDataset{}
}

// LoadFallbackDataset reads the wide CSV. The header must contain a
// "disease" column; symptom columns are those named symptom_N. Rows without
// a disease or without any symptom are skipped.
func LoadFallbackDataset(path string, logger *log.Logger) (*FallbackDataset, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open fallback dataset %s: %w", path, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read fallback dataset header: %w", err)
	}

	diseaseCol := -1
	var symptomCols []int
	for i, name := range header {
		cleaned := textnorm.Term(strings.TrimRight(strings.TrimSpace(name), "_"))
		if cleaned == "disease" {
			diseaseCol = i
		} else if symptomColumnPattern.MatchString(cleaned) {
			symptomCols = append(symptomCols, i)
		}
	}
	if diseaseCol < 0 {
		return nil, fmt.Errorf("fallback dataset %s is missing a disease column", path)
	}
	if len(symptomCols) == 0 {
		return nil, fmt.Errorf("fallback dataset %s has no symptom columns", path)
	}

	ds := &FallbackDataset{}
	skipped := 0
	for {
		row, err := reader.Read()
		if err != nil {
			break
		}
		if diseaseCol >= len(row) {
			skipped++
			continue
		}
		disease := textnorm.Term(row[diseaseCol])
		if disease == "" {
			skipped++
			continue
		}

		var symptoms []string
		seen := make(map[string]struct{})
		for _, col := range symptomCols {
			if col >= len(row) {
				continue
			}
			symptom := textnorm.Term(row[col])
			if symptom == "" {
				continue
			}
			if _, dup := seen[symptom]; dup {
				continue
			}
			seen[symptom] = struct{}{}
			symptoms = append(symptoms, symptom)
		}
		if len(symptoms) == 0 {
			skipped++
			continue
		}

		ds.records = append(ds.records, fallbackRecord{disease: disease, symptoms: symptoms})
	}

	if logger != nil {
		logger.Printf("[INFO] Fallback dataset loaded: %d records (%d skipped)", len(ds.records), skipped)
	}
	return ds, nil
}

// Len returns the number of loaded records.
func (d *FallbackDataset) Len() int {
	return len(d.records)
}

// OverlapScores scores each disease by the best symptom overlap across its
// records: matched symptoms divided by the record's total symptoms. Only
// symptoms that appear as whole tokens in the query count as matched.
func (d *FallbackDataset) OverlapScores(normalizedText string) map[string]float64 {
	results := make(map[string]float64)
	if len(d.records) == 0 || normalizedText == "" {
		return results
	}

	tokens := tokenSet(normalizedText)
	for _, rec := range d.records {
		overlap := 0
		for _, symptom := range rec.symptoms {
			if _, ok := tokens[symptom]; ok {
				overlap++
			}
		}
		if overlap == 0 {
			continue
		}
		score := float64(overlap) / float64(len(rec.symptoms))
		if score > results[rec.disease] {
			results[rec.disease] = score
		}
	}
	return results
}
