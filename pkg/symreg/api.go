// Package symreg is the public entry point for running symbolic regression
// searches and inspecting the runs they record.
package symreg

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"symreg/internal/evo"
	"symreg/internal/expr"
	"symreg/internal/fitness"
	"symreg/internal/stats"
	"symreg/internal/storage"
	"symreg/internal/target"
	"symreg/internal/telemetry"
)

const (
	defaultDBPath = "symreg.db"
	// sampleSeedOffset keeps the probe sample independent of the evolution stream.
	sampleSeedOffset = 1000
)

type Options struct {
	StoreKind string
	DBPath    string
	// ArtifactsDir receives one directory per run and answers lookups for runs
	// the store does not hold. Empty disables artifacts.
	ArtifactsDir string
	Logger       *slog.Logger
	// Registerer, when set, receives the evolution metrics.
	Registerer prometheus.Registerer
}

type Client struct {
	store        storage.Store
	artifactsDir string
	logger       *slog.Logger
	metrics      *telemetry.Metrics

	initMu      sync.Mutex
	initialized bool
}

type RunRequest struct {
	// RunID defaults to a random UUID.
	RunID          string
	Seed           int64
	Population     int
	Generations    int
	MutationRate   float64
	BreedingRate   float64
	PExp           float64
	PNew           float64
	EliteCount     int
	Selection      string
	TournamentSize int
	MaxDepth       int
	Workers        int
	Metric         string
	Parsimony      float64

	// Dataset takes precedence over DataPath, which takes precedence over
	// sampling the built-in quadratic target.
	Dataset      fitness.Dataset
	DataPath     string
	TargetColumn string
	Samples      int

	Observers []evo.Observer
}

// DefaultRunRequest mirrors the reference learning run.
func DefaultRunRequest() RunRequest {
	return RunRequest{
		Population:   500,
		Generations:  500,
		MutationRate: 0.2,
		BreedingRate: 0.1,
		PExp:         0.7,
		PNew:         0.1,
		EliteCount:   2,
		Selection:    "rank_biased",
		MaxDepth:     evo.DefaultGenerateOptions().MaxDepth,
		Metric:       string(fitness.AbsoluteError),
		Samples:      target.DefaultSamples,
	}
}

type RunSummary struct {
	RunID            string
	ArtifactsDir     string
	Winner           expr.Expr
	WinnerText       string
	WinnerScore      float64
	Converged        bool
	Generations      int
	BestByGeneration []float64
	Summary          stats.FitnessSummary
}

type RunsRequest struct {
	Limit int
}

type RunItem struct {
	RunID        string
	StartedAtUTC string
	Seed         int64
	Population   int
	Generations  int
	Converged    bool
	WinnerScore  float64
	WinnerText   string
}

type FitnessHistoryRequest struct {
	RunID  string
	Latest bool
	Limit  int
}

type DiagnosticsRequest struct {
	RunID  string
	Latest bool
	Limit  int
}

// CompareRequest selects the expression to tabulate against the quadratic
// target: a stored run, the latest run, or the built-in champion when
// neither is given. A zero Step means unit step; zero bounds mean 0..10.
type CompareRequest struct {
	RunID  string
	Latest bool
	Low    float64
	High   float64
	Step   float64
}

type DescribeRequest struct {
	RunID  string
	Latest bool
}

// RunDescription is a run as recorded in the artifacts directory.
type RunDescription struct {
	RunID   string
	Config  stats.RunConfig
	Winner  stats.WinnerArtifact
	Summary stats.FitnessSummary
}

type AverageFitnessRequest struct {
	// Runs is how many of the most recent runs are averaged.
	Runs  int
	Limit int
}

type CompareRow struct {
	X         float64
	Y         float64
	Expected  float64
	Predicted float64
}

type CompareReport struct {
	Source     string
	Expression string
	Rows       []CompareRow
	TotalError float64
}

func New(opts Options) (*Client, error) {
	storeKind := opts.StoreKind
	if storeKind == "" {
		storeKind = storage.DefaultStoreKind()
	}
	dbPath := opts.DBPath
	if dbPath == "" {
		dbPath = defaultDBPath
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	store, err := storage.NewStore(storeKind, dbPath)
	if err != nil {
		return nil, err
	}

	c := &Client{
		store:        store,
		artifactsDir: opts.ArtifactsDir,
		logger:       logger,
	}
	if opts.Registerer != nil {
		metrics, err := telemetry.NewMetrics(opts.Registerer)
		if err != nil {
			_ = storage.CloseIfSupported(store)
			return nil, err
		}
		c.metrics = metrics
	}
	return c, nil
}

func (c *Client) Close() error {
	return storage.CloseIfSupported(c.store)
}

func (c *Client) Init(ctx context.Context) error {
	c.initMu.Lock()
	defer c.initMu.Unlock()

	if c.initialized {
		return nil
	}
	if err := c.store.Init(ctx); err != nil {
		return fmt.Errorf("init store: %w", err)
	}
	c.initialized = true
	return nil
}

func (c *Client) Run(ctx context.Context, req RunRequest) (RunSummary, error) {
	if err := c.Init(ctx); err != nil {
		return RunSummary{}, err
	}
	if req.RunID == "" {
		req.RunID = uuid.New().String()
	}
	metric, err := fitness.ParseMetric(req.Metric)
	if err != nil {
		return RunSummary{}, err
	}
	selector, err := evo.SelectorByName(req.Selection, req.PExp, req.TournamentSize)
	if err != nil {
		return RunSummary{}, err
	}
	dataset, err := c.resolveDataset(req)
	if err != nil {
		return RunSummary{}, err
	}

	ranker := fitness.Ranker{Dataset: dataset, Metric: metric, Workers: req.Workers, Parsimony: req.Parsimony}
	if err := ranker.Validate(); err != nil {
		return RunSummary{}, err
	}

	generate := evo.DefaultGenerateOptions()
	generate.MaxDepth = req.MaxDepth
	observers := append([]evo.Observer(nil), req.Observers...)
	if c.metrics != nil {
		observers = append(observers, c.metrics)
	}

	startedAt := time.Now().UTC()
	logger := c.logger.With("run_id", req.RunID)
	logger.Info("run started",
		"seed", req.Seed,
		"population", req.Population,
		"generations", req.Generations,
		"probes", len(dataset),
	)

	result, err := evo.Evolve(ctx, evo.MonitorConfig{
		VariableNames:  dataset.Variables(),
		PopulationSize: req.Population,
		Ranker:         ranker,
		MaxGenerations: req.Generations,
		MutationRate:   req.MutationRate,
		BreedingRate:   req.BreedingRate,
		PExp:           req.PExp,
		PNew:           req.PNew,
		EliteCount:     req.EliteCount,
		Selector:       selector,
		Generate:       generate,
		Seed:           req.Seed,
		Observers:      observers,
		Logger:         logger,
	})
	if err != nil {
		return RunSummary{}, fmt.Errorf("run %s: %w", req.RunID, err)
	}

	if err := c.persist(ctx, req, metric, startedAt, result); err != nil {
		return RunSummary{}, err
	}

	summary := RunSummary{
		RunID:            req.RunID,
		Winner:           result.Winner,
		WinnerText:       expr.Render(result.Winner),
		WinnerScore:      result.WinnerScore,
		Converged:        result.Converged,
		Generations:      result.Generations,
		BestByGeneration: append([]float64(nil), result.BestByGeneration...),
		Summary:          stats.Summarize(result.BestByGeneration),
	}
	if c.artifactsDir != "" {
		runDir, err := c.writeArtifacts(req, metric, startedAt, result)
		if err != nil {
			return RunSummary{}, err
		}
		summary.ArtifactsDir = filepath.Clean(runDir)
	}
	logger.Info("run finished",
		"winner", summary.WinnerText,
		"score", summary.WinnerScore,
		"converged", summary.Converged,
	)
	return summary, nil
}

func (c *Client) Runs(ctx context.Context, req RunsRequest) ([]RunItem, error) {
	if err := c.Init(ctx); err != nil {
		return nil, err
	}
	if req.Limit <= 0 {
		req.Limit = 20
	}
	runs, err := c.store.ListRuns(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]RunItem, 0, min(len(runs), req.Limit))
	for i := len(runs) - 1; i >= 0 && len(out) < req.Limit; i-- {
		r := runs[i]
		out = append(out, RunItem{
			RunID:        r.ID,
			StartedAtUTC: r.StartedAt.UTC().Format(time.RFC3339),
			Seed:         r.Seed,
			Population:   r.PopulationSize,
			Generations:  r.Generations,
			Converged:    r.Converged,
			WinnerScore:  r.WinnerScore,
			WinnerText:   r.WinnerText,
		})
	}
	return out, nil
}

func (c *Client) FitnessHistory(ctx context.Context, req FitnessHistoryRequest) ([]float64, error) {
	if req.Limit < 0 {
		return nil, errors.New("limit must be >= 0")
	}
	runID, err := c.resolveRunID(ctx, req.RunID, req.Latest)
	if err != nil {
		return nil, err
	}
	history, ok, err := c.store.GetFitnessHistory(ctx, runID)
	if err != nil {
		return nil, err
	}
	if !ok && c.artifactsDir != "" {
		history, ok, err = stats.ReadFitnessSeries(c.artifactsDir, runID)
		if err != nil {
			return nil, fmt.Errorf("read fitness series %s: %w", runID, err)
		}
	}
	if !ok {
		return nil, fmt.Errorf("fitness history for %s: %w", runID, storage.ErrRunNotFound)
	}
	if req.Limit > 0 && len(history) > req.Limit {
		history = history[:req.Limit]
	}
	return append([]float64(nil), history...), nil
}

// AverageFitnessHistory averages the best-score histories of the most recent
// stored runs generation by generation.
func (c *Client) AverageFitnessHistory(ctx context.Context, req AverageFitnessRequest) ([]float64, error) {
	if req.Limit < 0 {
		return nil, errors.New("limit must be >= 0")
	}
	if err := c.Init(ctx); err != nil {
		return nil, err
	}
	if req.Runs <= 0 {
		req.Runs = 20
	}
	runs, err := c.store.ListRuns(ctx)
	if err != nil {
		return nil, err
	}

	histories := make([][]float64, 0, min(len(runs), req.Runs))
	for i := len(runs) - 1; i >= 0 && len(histories) < req.Runs; i-- {
		history, ok, err := c.store.GetFitnessHistory(ctx, runs[i].ID)
		if err != nil {
			return nil, err
		}
		if ok {
			histories = append(histories, history)
		}
	}
	if len(histories) == 0 {
		return nil, fmt.Errorf("no fitness histories available: %w", storage.ErrRunNotFound)
	}

	curve := stats.AverageCurve(histories)
	if req.Limit > 0 && len(curve) > req.Limit {
		curve = curve[:req.Limit]
	}
	return curve, nil
}

func (c *Client) Diagnostics(ctx context.Context, req DiagnosticsRequest) ([]evo.GenerationDiagnostics, error) {
	if req.Limit < 0 {
		return nil, errors.New("limit must be >= 0")
	}
	runID, err := c.resolveRunID(ctx, req.RunID, req.Latest)
	if err != nil {
		return nil, err
	}
	diagnostics, ok, err := c.store.GetGenerationDiagnostics(ctx, runID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("diagnostics for %s: %w", runID, storage.ErrRunNotFound)
	}
	if req.Limit > 0 && len(diagnostics) > req.Limit {
		diagnostics = diagnostics[:req.Limit]
	}
	out := make([]evo.GenerationDiagnostics, len(diagnostics))
	copy(out, diagnostics)
	return out, nil
}

// Compare tabulates an expression against the quadratic target over a grid.
func (c *Client) Compare(ctx context.Context, req CompareRequest) (CompareReport, error) {
	if req.Step == 0 {
		req.Step = 1
	}
	if req.Low == 0 && req.High == 0 {
		req.High = 10
	}
	points, err := target.Grid(req.Low, req.High, req.Step)
	if err != nil {
		return CompareReport{}, err
	}

	report := CompareReport{Source: "champion"}
	candidate := target.Champion()
	if req.RunID != "" || req.Latest {
		runID, err := c.resolveRunID(ctx, req.RunID, req.Latest)
		if err != nil {
			return CompareReport{}, err
		}
		candidate, err = c.storedWinner(ctx, runID)
		if err != nil {
			return CompareReport{}, err
		}
		report.Source = runID
	}
	report.Expression = expr.Render(candidate)

	report.Rows = make([]CompareRow, 0, len(points))
	for _, pt := range points {
		predicted, err := candidate.Evaluate(expr.Context{"x": pt.X, "y": pt.Y})
		if err != nil {
			return CompareReport{}, fmt.Errorf("evaluate %s: %w", report.Source, err)
		}
		expected := target.Quadratic(pt.X, pt.Y)
		report.Rows = append(report.Rows, CompareRow{X: pt.X, Y: pt.Y, Expected: expected, Predicted: predicted})
		report.TotalError += math.Abs(predicted - expected)
	}
	return report, nil
}

// Describe reads back the config, winner and best-score summary that Run
// wrote for a run. It needs an artifacts directory.
func (c *Client) Describe(ctx context.Context, req DescribeRequest) (RunDescription, error) {
	if c.artifactsDir == "" {
		return RunDescription{}, errors.New("describe requires an artifacts directory")
	}
	runID, err := c.resolveRunID(ctx, req.RunID, req.Latest)
	if err != nil {
		return RunDescription{}, err
	}

	cfg, ok, err := stats.ReadRunConfig(c.artifactsDir, runID)
	if err != nil {
		return RunDescription{}, fmt.Errorf("read config %s: %w", runID, err)
	}
	if !ok {
		return RunDescription{}, fmt.Errorf("artifacts for %s: %w", runID, storage.ErrRunNotFound)
	}
	winner, ok, err := stats.ReadWinner(c.artifactsDir, runID)
	if err != nil {
		return RunDescription{}, fmt.Errorf("read winner %s: %w", runID, err)
	}
	if !ok {
		return RunDescription{}, fmt.Errorf("winner for %s: %w", runID, storage.ErrRunNotFound)
	}
	series, _, err := stats.ReadFitnessSeries(c.artifactsDir, runID)
	if err != nil {
		return RunDescription{}, fmt.Errorf("read fitness series %s: %w", runID, err)
	}
	return RunDescription{
		RunID:   runID,
		Config:  cfg,
		Winner:  winner,
		Summary: stats.Summarize(series),
	}, nil
}

// storedWinner decodes a run's winner from the store, falling back to the
// winner.json artifact when the store has no record of the run.
func (c *Client) storedWinner(ctx context.Context, runID string) (expr.Expr, error) {
	run, ok, err := c.store.GetRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	if ok {
		return run.WinnerExpr()
	}
	if c.artifactsDir != "" {
		artifact, ok, err := stats.ReadWinner(c.artifactsDir, runID)
		if err != nil {
			return nil, fmt.Errorf("read winner %s: %w", runID, err)
		}
		if ok {
			winner, err := expr.Unmarshal(artifact.Tree)
			if err != nil {
				return nil, fmt.Errorf("decode winner artifact %s: %w", runID, err)
			}
			return winner, nil
		}
	}
	return nil, fmt.Errorf("run %s: %w", runID, storage.ErrRunNotFound)
}

func (c *Client) resolveDataset(req RunRequest) (fitness.Dataset, error) {
	switch {
	case len(req.Dataset) > 0:
		return req.Dataset, nil
	case req.DataPath != "":
		return fitness.LoadCSV(req.DataPath, req.TargetColumn)
	default:
		samples := req.Samples
		if samples <= 0 {
			samples = target.DefaultSamples
		}
		rng := rand.New(rand.NewSource(req.Seed + sampleSeedOffset))
		return target.Sample(rng, samples, target.DefaultLow, target.DefaultHigh)
	}
}

func (c *Client) resolveRunID(ctx context.Context, runID string, latest bool) (string, error) {
	if runID != "" && latest {
		return "", errors.New("use either run id or latest")
	}
	if err := c.Init(ctx); err != nil {
		return "", err
	}
	if runID != "" {
		return runID, nil
	}
	if !latest {
		return "", errors.New("run id or latest is required")
	}
	runs, err := c.store.ListRuns(ctx)
	if err != nil {
		return "", err
	}
	if len(runs) > 0 {
		return runs[len(runs)-1].ID, nil
	}
	if c.artifactsDir != "" {
		index, err := stats.ListRunIndex(c.artifactsDir)
		if err != nil {
			return "", fmt.Errorf("read run index: %w", err)
		}
		if len(index) > 0 {
			return index[0].RunID, nil
		}
	}
	return "", fmt.Errorf("no runs available: %w", storage.ErrRunNotFound)
}

func (c *Client) persist(ctx context.Context, req RunRequest, metric fitness.Metric, startedAt time.Time, result evo.RunResult) error {
	record, err := storage.NewRunRecord(req.RunID, result.Winner)
	if err != nil {
		return err
	}
	record.StartedAt = startedAt
	record.Seed = req.Seed
	record.PopulationSize = req.Population
	record.MaxGenerations = req.Generations
	record.MutationRate = req.MutationRate
	record.BreedingRate = req.BreedingRate
	record.PExp = req.PExp
	record.PNew = req.PNew
	record.Metric = string(metric)
	record.Generations = result.Generations
	record.Converged = result.Converged
	record.WinnerScore = result.WinnerScore

	if err := c.store.SaveRun(ctx, record); err != nil {
		return fmt.Errorf("save run %s: %w", req.RunID, err)
	}
	if err := c.store.SaveFitnessHistory(ctx, req.RunID, result.BestByGeneration); err != nil {
		return fmt.Errorf("save fitness history %s: %w", req.RunID, err)
	}
	if err := c.store.SaveGenerationDiagnostics(ctx, req.RunID, result.Diagnostics); err != nil {
		return fmt.Errorf("save diagnostics %s: %w", req.RunID, err)
	}
	return nil
}

func (c *Client) writeArtifacts(req RunRequest, metric fitness.Metric, startedAt time.Time, result evo.RunResult) (string, error) {
	tree, err := expr.Marshal(result.Winner)
	if err != nil {
		return "", err
	}
	runDir, err := stats.WriteRunArtifacts(c.artifactsDir, stats.RunArtifacts{
		Config: stats.RunConfig{
			RunID:          req.RunID,
			Seed:           req.Seed,
			PopulationSize: req.Population,
			MaxGenerations: req.Generations,
			MutationRate:   req.MutationRate,
			BreedingRate:   req.BreedingRate,
			PExp:           req.PExp,
			PNew:           req.PNew,
			EliteCount:     req.EliteCount,
			Selection:      req.Selection,
			Workers:        req.Workers,
			Metric:         string(metric),
			Parsimony:      req.Parsimony,
			Samples:        req.Samples,
			DataPath:       req.DataPath,
		},
		BestByGeneration:      result.BestByGeneration,
		GenerationDiagnostics: result.Diagnostics,
		Converged:             result.Converged,
		Winner: stats.WinnerArtifact{
			Score:     result.WinnerScore,
			Text:      expr.Render(result.Winner),
			Tree:      tree,
			Signature: evo.ComputeExprSignature(result.Winner),
		},
	})
	if err != nil {
		return "", err
	}

	if err := stats.AppendRunIndex(c.artifactsDir, stats.RunIndexEntry{
		RunID:          req.RunID,
		PopulationSize: req.Population,
		Generations:    result.Generations,
		Seed:           req.Seed,
		Workers:        req.Workers,
		Converged:      result.Converged,
		FinalBestScore: result.WinnerScore,
		CreatedAtUTC:   startedAt.Format(time.RFC3339Nano),
	}); err != nil {
		return "", err
	}
	return runDir, nil
}
