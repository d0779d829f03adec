package stats

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"symreg/internal/evo"
)

const runIndexFile = "run_index.json"

type RunConfig struct {
	RunID          string  `json:"run_id"`
	Seed           int64   `json:"seed"`
	PopulationSize int     `json:"population_size"`
	MaxGenerations int     `json:"max_generations"`
	MutationRate   float64 `json:"mutation_rate"`
	BreedingRate   float64 `json:"breeding_rate"`
	PExp           float64 `json:"pexp"`
	PNew           float64 `json:"pnew"`
	EliteCount     int     `json:"elite_count"`
	Selection      string  `json:"selection"`
	Workers        int     `json:"workers"`
	Metric         string  `json:"metric"`
	Parsimony      float64 `json:"parsimony,omitempty"`
	Samples        int     `json:"samples,omitempty"`
	DataPath       string  `json:"data_path,omitempty"`
}

type WinnerArtifact struct {
	Score     float64           `json:"score"`
	Text      string            `json:"text"`
	Tree      json.RawMessage   `json:"tree"`
	Signature evo.ExprSignature `json:"signature"`
}

type RunArtifacts struct {
	Config                RunConfig                   `json:"config"`
	BestByGeneration      []float64                   `json:"best_by_generation"`
	GenerationDiagnostics []evo.GenerationDiagnostics `json:"generation_diagnostics,omitempty"`
	Converged             bool                        `json:"converged"`
	Winner                WinnerArtifact              `json:"winner"`
}

type RunIndexEntry struct {
	RunID          string  `json:"run_id"`
	PopulationSize int     `json:"population_size"`
	Generations    int     `json:"generations"`
	Seed           int64   `json:"seed"`
	Workers        int     `json:"workers"`
	Converged      bool    `json:"converged"`
	FinalBestScore float64 `json:"final_best_score"`
	CreatedAtUTC   string  `json:"created_at_utc"`
}

// WriteRunArtifacts lays out one directory per run under baseDir and returns it.
func WriteRunArtifacts(baseDir string, artifacts RunArtifacts) (string, error) {
	if artifacts.Config.RunID == "" {
		return "", fmt.Errorf("run id is required")
	}

	runDir := filepath.Join(baseDir, artifacts.Config.RunID)
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return "", err
	}

	history := finiteSeries(artifacts.BestByGeneration)
	summary := Summarize(artifacts.BestByGeneration)

	if err := writeJSON(filepath.Join(runDir, "config.json"), artifacts.Config); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(runDir, "fitness_history.json"), map[string]any{
		"best_by_generation": history,
		"final_best_score":   finite(summary.FinalBest),
		"converged":          artifacts.Converged,
	}); err != nil {
		return "", err
	}
	if err := WriteFitnessSeries(runDir, artifacts.BestByGeneration); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(runDir, "summary.json"), summary.Finite()); err != nil {
		return "", err
	}
	winner := artifacts.Winner
	winner.Score = finite(winner.Score)
	if err := writeJSON(filepath.Join(runDir, "winner.json"), winner); err != nil {
		return "", err
	}
	diagnostics := make([]evo.GenerationDiagnostics, len(artifacts.GenerationDiagnostics))
	for i, d := range artifacts.GenerationDiagnostics {
		d.BestScore = finite(d.BestScore)
		d.MeanScore = finite(d.MeanScore)
		d.WorstScore = finite(d.WorstScore)
		diagnostics[i] = d
	}
	if err := writeJSON(filepath.Join(runDir, "generation_diagnostics.json"), diagnostics); err != nil {
		return "", err
	}

	return runDir, nil
}

func AppendRunIndex(baseDir string, entry RunIndexEntry) error {
	if entry.RunID == "" {
		return fmt.Errorf("run id is required")
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return err
	}

	index, err := ListRunIndex(baseDir)
	if err != nil {
		return err
	}
	entry.FinalBestScore = finite(entry.FinalBestScore)

	for i := range index {
		if index[i].RunID == entry.RunID {
			index[i] = entry
			return writeJSON(filepath.Join(baseDir, runIndexFile), index)
		}
	}

	index = append(index, entry)
	return writeJSON(filepath.Join(baseDir, runIndexFile), index)
}

// ListRunIndex returns index entries newest first.
func ListRunIndex(baseDir string) ([]RunIndexEntry, error) {
	path := filepath.Join(baseDir, runIndexFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunIndexEntry{}, nil
		}
		return nil, err
	}

	var entries []RunIndexEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, err
	}

	type indexedEntry struct {
		entry RunIndexEntry
		idx   int
	}
	indexed := make([]indexedEntry, len(entries))
	for i := range entries {
		indexed[i] = indexedEntry{entry: entries[i], idx: i}
	}
	sort.Slice(indexed, func(i, j int) bool {
		if indexed[i].entry.CreatedAtUTC == indexed[j].entry.CreatedAtUTC {
			// Prefer later appended entries for equal timestamps.
			return indexed[i].idx > indexed[j].idx
		}
		return indexed[i].entry.CreatedAtUTC > indexed[j].entry.CreatedAtUTC
	})

	sorted := make([]RunIndexEntry, 0, len(indexed))
	for _, item := range indexed {
		sorted = append(sorted, item.entry)
	}
	return sorted, nil
}

func ReadRunConfig(baseDir, runID string) (RunConfig, bool, error) {
	path := filepath.Join(baseDir, runID, "config.json")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return RunConfig{}, false, nil
		}
		return RunConfig{}, false, err
	}

	var cfg RunConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return RunConfig{}, false, err
	}
	return cfg, true, nil
}

func ReadWinner(baseDir, runID string) (WinnerArtifact, bool, error) {
	path := filepath.Join(baseDir, runID, "winner.json")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return WinnerArtifact{}, false, nil
		}
		return WinnerArtifact{}, false, err
	}

	var winner WinnerArtifact
	if err := json.Unmarshal(data, &winner); err != nil {
		return WinnerArtifact{}, false, err
	}
	return winner, true, nil
}

// WriteFitnessSeries writes one row per generation, numbered from 0.
func WriteFitnessSeries(runDir string, bestByGeneration []float64) error {
	path := filepath.Join(runDir, "fitness_history.csv")
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write([]string{"generation", "best_score"}); err != nil {
		return err
	}
	for i, best := range bestByGeneration {
		if err := writer.Write([]string{
			strconv.Itoa(i),
			strconv.FormatFloat(best, 'g', -1, 64),
		}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func ReadFitnessSeries(baseDir, runID string) ([]float64, bool, error) {
	path := filepath.Join(baseDir, runID, "fitness_history.csv")
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	header, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return []float64{}, true, nil
		}
		return nil, false, err
	}
	if len(header) < 2 {
		return nil, false, fmt.Errorf("fitness series header must have at least 2 columns")
	}

	series := make([]float64, 0, 128)
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, false, err
		}
		if len(record) < 2 {
			return nil, false, fmt.Errorf("fitness series row must have at least 2 columns")
		}
		value, err := strconv.ParseFloat(record[1], 64)
		if err != nil {
			return nil, false, err
		}
		series = append(series, value)
	}
	return series, true, nil
}

func writeJSON(path string, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o644)
}

// finite maps NaN and infinities to the largest float so JSON can encode them.
func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return math.MaxFloat64
	}
	return v
}

func finiteSeries(values []float64) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = finite(v)
	}
	return out
}
