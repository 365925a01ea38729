package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math/rand"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"

	"github.com/born-ml/rmsprop/internal/backend/cpu"
	"github.com/born-ml/rmsprop/internal/checkpoint"
	"github.com/born-ml/rmsprop/internal/graph"
	"github.com/born-ml/rmsprop/internal/nn"
	"github.com/born-ml/rmsprop/internal/optim"
	"github.com/born-ml/rmsprop/internal/tensor"
)

const (
	modeEager = "eager"
	modeGraph = "graph"

	paramName     = "w"
	paramStateKey = "param." + paramName
)

type trainConfig struct {
	LR      float64
	Decay   float64
	Steps   int
	Dim     int
	Batch   int
	Mode    string
	Seed    int64
	DBPath  string
	RunID   string
	Resume  bool
	Verbose bool
}

func parseTrainFlags(args []string) (trainConfig, error) {
	var cfg trainConfig
	fs := flag.NewFlagSet("train", flag.ContinueOnError)
	fs.Float64Var(&cfg.LR, "lr", 0.01, "learning rate")
	fs.Float64Var(&cfg.Decay, "decay", 0.9, "decay factor in (0, 1)")
	fs.IntVar(&cfg.Steps, "steps", 200, "eager updates or graph batches")
	fs.IntVar(&cfg.Dim, "dim", 8, "number of weights")
	fs.IntVar(&cfg.Batch, "batch", 4, "examples per batch in graph mode")
	fs.StringVar(&cfg.Mode, "mode", modeEager, "update path: eager|graph")
	fs.Int64Var(&cfg.Seed, "seed", 1, "seed for the initial weights")
	fs.StringVar(&cfg.DBPath, "db", "", "sqlite checkpoint database (eager mode)")
	fs.StringVar(&cfg.RunID, "run", "", "run id for checkpoints (default: random)")
	fs.BoolVar(&cfg.Resume, "resume", false, "resume the run from its checkpoint")
	fs.BoolVar(&cfg.Verbose, "v", false, "debug logging")
	if err := fs.Parse(args); err != nil {
		return trainConfig{}, err
	}

	switch {
	case cfg.Mode != modeEager && cfg.Mode != modeGraph:
		return trainConfig{}, errors.Errorf("unknown mode %q", cfg.Mode)
	case cfg.Steps < 0:
		return trainConfig{}, errors.Errorf("steps must be >= 0, got %d", cfg.Steps)
	case cfg.Dim <= 0:
		return trainConfig{}, errors.Errorf("dim must be > 0, got %d", cfg.Dim)
	case cfg.Batch <= 0:
		return trainConfig{}, errors.Errorf("batch must be > 0, got %d", cfg.Batch)
	case cfg.DBPath != "" && cfg.Mode != modeEager:
		return trainConfig{}, errors.New("checkpoints require -mode eager")
	case cfg.Resume && (cfg.DBPath == "" || cfg.RunID == ""):
		return trainConfig{}, errors.New("-resume requires -db and -run")
	}
	if cfg.RunID == "" {
		cfg.RunID = uuid.NewString()
	}
	return cfg, nil
}

// problem is a quadratic bowl: loss(w) = ½‖w - target‖².
type problem struct {
	target  *tensor.RawTensor
	initial []float32
}

func newProblem(alloc tensor.Allocator, dim int, seed int64) *problem {
	rng := rand.New(rand.NewSource(seed))
	target := make([]float32, dim)
	initial := make([]float32, dim)
	for i := range target {
		target[i] = float32(i%5) - 2
		initial[i] = rng.Float32()*2 - 1
	}
	return &problem{
		target:  tensor.MustFromSlice(alloc, target, tensor.Shape{dim}),
		initial: initial,
	}
}

// gradient returns w - target, owned by the caller.
func (p *problem) gradient(backend tensor.Backend, w *tensor.RawTensor) *tensor.RawTensor {
	return backend.Sub(w, p.target)
}

func (p *problem) loss(w *tensor.RawTensor) float64 {
	d := floats.Distance(w.ToFloat64(), p.target.ToFloat64(), 2)
	return 0.5 * d * d
}

func runTrain(ctx context.Context, args []string, out io.Writer) error {
	cfg, err := parseTrainFlags(args)
	if err != nil {
		return err
	}
	logger := newLogger(out, cfg.Verbose)

	tracker := tensor.NewTracker()
	backend := cpu.New(cpu.WithAllocator(tracker))
	prob := newProblem(tracker, cfg.Dim, cfg.Seed)

	optCfg := optim.RMSPropConfig{LR: float32(cfg.LR), Decay: float32(cfg.Decay)}

	var before, after float64
	switch cfg.Mode {
	case modeEager:
		before, after, err = trainEager(ctx, cfg, optCfg, backend, tracker, prob, logger)
	case modeGraph:
		before, after, err = trainGraph(ctx, cfg, optCfg, backend, tracker, prob, logger)
	}
	prob.target.Release()
	if err != nil {
		return err
	}

	stats := tracker.Stats()
	fmt.Fprintf(out, "run=%s mode=%s steps=%d loss_before=%.6f loss_after=%.6f\n",
		cfg.RunID, cfg.Mode, cfg.Steps, before, after)
	fmt.Fprintf(out, "buffers: %s\n", stats)
	if stats.Live() != 0 {
		return errors.Errorf("leaked %d buffers", stats.Live())
	}
	return nil
}

func trainEager(
	ctx context.Context,
	cfg trainConfig,
	optCfg optim.RMSPropConfig,
	backend *cpu.CPUBackend,
	tracker *tensor.Tracker,
	prob *problem,
	logger *slog.Logger,
) (before, after float64, err error) {
	var store *checkpoint.SQLiteStore
	if cfg.DBPath != "" {
		store = checkpoint.NewSQLiteStore(cfg.DBPath)
		if err := store.Init(ctx); err != nil {
			return 0, 0, err
		}
		defer func() { _ = store.Close() }()
	}

	startStep := 0
	var restored map[string]*tensor.RawTensor
	if cfg.Resume {
		startStep, restored, err = store.Load(ctx, cfg.RunID, tracker)
		switch {
		case errors.Is(err, checkpoint.ErrNotFound):
			logger.Info("no checkpoint, starting fresh", "run", cfg.RunID)
		case err != nil:
			return 0, 0, err
		default:
			logger.Info("resumed", "run", cfg.RunID, "step", startStep)
		}
	}
	defer func() {
		for _, t := range restored {
			t.Release()
		}
	}()

	reg := nn.NewRegistry()
	defer reg.Dispose()
	if w, ok := restored[paramStateKey]; ok {
		delete(restored, paramStateKey)
		if !w.Shape().Equal(tensor.Shape{cfg.Dim}) {
			w.Release()
			return 0, 0, errors.Errorf("checkpoint has %v weights, -dim is %d", w.Shape(), cfg.Dim)
		}
		reg.MustRegister(paramName, w)
	} else {
		reg.MustRegister(paramName, tensor.MustFromSlice(tracker, prob.initial, tensor.Shape{cfg.Dim}))
	}

	opt, err := optim.NewRMSProp(reg, optCfg, backend, optim.WithLogger(logger))
	if err != nil {
		return 0, 0, err
	}
	defer opt.Dispose()
	if len(restored) > 0 {
		if err := opt.LoadStateDict(restored); err != nil {
			return 0, 0, err
		}
	}

	param, _ := reg.Get(paramName)
	before = prob.loss(param.Value())

	for step := 0; step < cfg.Steps; step++ {
		if err := ctx.Err(); err != nil {
			return 0, 0, err
		}
		grad := prob.gradient(backend, param.Value())
		err := opt.ApplyGradients(map[string]*tensor.RawTensor{paramName: grad})
		grad.Release()
		if err != nil {
			return 0, 0, errors.Wrapf(err, "step %d", startStep+step)
		}
		logger.Debug("step", "step", startStep+step, "loss", prob.loss(param.Value()))
	}
	after = prob.loss(param.Value())

	if store != nil {
		state := opt.StateDict()
		state[paramStateKey] = param.Value().Clone()
		err := store.Save(ctx, cfg.RunID, startStep+cfg.Steps, state)
		for _, t := range state {
			t.Release()
		}
		if err != nil {
			return 0, 0, err
		}
		logger.Info("checkpoint saved", "run", cfg.RunID, "step", startStep+cfg.Steps)
	}
	return before, after, nil
}

func trainGraph(
	ctx context.Context,
	cfg trainConfig,
	optCfg optim.RMSPropConfig,
	backend *cpu.CPUBackend,
	tracker *tensor.Tracker,
	prob *problem,
	logger *slog.Logger,
) (before, after float64, err error) {
	node := graph.NewVariable(paramName, tensor.MustFromSlice(tracker, prob.initial, tensor.Shape{cfg.Dim}))
	bc := graph.NewBatchContext(backend, cfg.Batch, &graph.Runtime{Nodes: []*graph.Node{node}})
	defer bc.Activations.Dispose()

	opt, err := optim.NewRMSProp(nil, optCfg, backend, optim.WithLogger(logger))
	if err != nil {
		return 0, 0, err
	}
	defer opt.Dispose()

	before = prob.loss(node.Data)
	step := func(_, _ int, bc *graph.BatchContext) error {
		bc.Gradients.Add(bc.Math, node.Output, prob.gradient(bc.Math, node.Data))
		return nil
	}
	if err := graph.NewSession(logger).Train(ctx, bc, opt, cfg.Steps, step); err != nil {
		return 0, 0, err
	}
	return before, prob.loss(node.Data), nil
}

func runCheckpoints(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("checkpoints", flag.ContinueOnError)
	dbPath := fs.String("db", "rmsprop.db", "sqlite checkpoint database")
	if err := fs.Parse(args); err != nil {
		return err
	}

	store := checkpoint.NewSQLiteStore(*dbPath)
	if err := store.Init(ctx); err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	runs, err := store.Runs(ctx)
	if err != nil {
		return err
	}
	for _, id := range runs {
		fmt.Fprintln(out, id)
	}
	return nil
}
