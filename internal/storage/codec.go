package storage

import (
	"encoding/json"
	"errors"
	"math"

	"symreg/internal/evo"
)

const (
	CurrentSchemaVersion = 1
	CurrentCodecVersion  = 1
)

var ErrVersionMismatch = errors.New("record version mismatch")

// JSON has no encoding for infinities or NaN; non-finite scores are stored
// as the largest finite float so they still sort last.
func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return math.MaxFloat64
	}
	return v
}

func EncodeRun(r RunRecord) ([]byte, error) {
	r.WinnerScore = finite(r.WinnerScore)
	return json.Marshal(r)
}

func DecodeRun(data []byte) (RunRecord, error) {
	var run RunRecord
	if err := json.Unmarshal(data, &run); err != nil {
		return RunRecord{}, err
	}
	if err := checkVersion(run.VersionedRecord); err != nil {
		return RunRecord{}, err
	}
	return run, nil
}

func EncodeFitnessHistory(history []float64) ([]byte, error) {
	out := make([]float64, len(history))
	for i, v := range history {
		out[i] = finite(v)
	}
	return json.Marshal(out)
}

func DecodeFitnessHistory(data []byte) ([]float64, error) {
	var history []float64
	if err := json.Unmarshal(data, &history); err != nil {
		return nil, err
	}
	return history, nil
}

func EncodeGenerationDiagnostics(diagnostics []evo.GenerationDiagnostics) ([]byte, error) {
	out := make([]evo.GenerationDiagnostics, len(diagnostics))
	for i, d := range diagnostics {
		d.BestScore = finite(d.BestScore)
		d.MeanScore = finite(d.MeanScore)
		d.WorstScore = finite(d.WorstScore)
		out[i] = d
	}
	return json.Marshal(out)
}

func DecodeGenerationDiagnostics(data []byte) ([]evo.GenerationDiagnostics, error) {
	var diagnostics []evo.GenerationDiagnostics
	if err := json.Unmarshal(data, &diagnostics); err != nil {
		return nil, err
	}
	return diagnostics, nil
}

func checkVersion(v VersionedRecord) error {
	if v.SchemaVersion != CurrentSchemaVersion || v.CodecVersion != CurrentCodecVersion {
		return ErrVersionMismatch
	}
	return nil
}
