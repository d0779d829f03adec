package storage

import (
	"encoding/json"
	"fmt"
	"time"

	"symreg/internal/expr"
)

type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

// RunRecord is the persisted summary of one evolve call.
type RunRecord struct {
	VersionedRecord
	ID             string          `json:"id"`
	StartedAt      time.Time       `json:"started_at"`
	Seed           int64           `json:"seed"`
	PopulationSize int             `json:"population_size"`
	MaxGenerations int             `json:"max_generations"`
	MutationRate   float64         `json:"mutation_rate"`
	BreedingRate   float64         `json:"breeding_rate"`
	PExp           float64         `json:"pexp"`
	PNew           float64         `json:"pnew"`
	Metric         string          `json:"metric"`
	Generations    int             `json:"generations"`
	Converged      bool            `json:"converged"`
	WinnerScore    float64         `json:"winner_score"`
	Winner         json.RawMessage `json:"winner"`
	WinnerText     string          `json:"winner_text"`
}

// NewRunRecord stamps the current versions and encodes the winner tree.
func NewRunRecord(id string, winner expr.Expr) (RunRecord, error) {
	payload, err := expr.Marshal(winner)
	if err != nil {
		return RunRecord{}, fmt.Errorf("encode winner: %w", err)
	}
	return RunRecord{
		VersionedRecord: VersionedRecord{SchemaVersion: CurrentSchemaVersion, CodecVersion: CurrentCodecVersion},
		ID:              id,
		Winner:          payload,
		WinnerText:      expr.Render(winner),
	}, nil
}

func (r RunRecord) WinnerExpr() (expr.Expr, error) {
	if len(r.Winner) == 0 {
		return nil, fmt.Errorf("run %s has no winner", r.ID)
	}
	e, err := expr.Unmarshal(r.Winner)
	if err != nil {
		return nil, fmt.Errorf("decode winner of run %s: %w", r.ID, err)
	}
	return e, nil
}

func cloneRun(r RunRecord) RunRecord {
	r.Winner = append(json.RawMessage(nil), r.Winner...)
	return r
}
