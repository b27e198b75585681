package algorithms

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"golang.org/x/sync/errgroup"
	utilerrors "k8s.io/apimachinery/pkg/util/errors"
	"k8s.io/klog/v2"
	"k8s.io/utils/clock"

	"github.com/marimba-lab/bartuner/pkg/tuning/fitness"
	"github.com/marimba-lab/bartuner/pkg/tuning/framework"
)

const (
	Name = "EA"

	// generationStride separates the random streams of two generations.
	generationStride = 0x9e3779b97f4a7c15
)

// ErrInvalidConfig is returned for configurations rejected before any
// evaluation takes place.
var ErrInvalidConfig = errors.New("invalid optimizer configuration")

var _ framework.Algorithm = &EA{}

// Config holds the generational parameters of the optimizer.
type Config struct {
	PopulationSize   int
	ElitismPercent   float64
	CrossoverPercent float64
	MutationPercent  float64
	MaxGenerations   int
	// TargetError stops the run once the best fitness falls to it.
	TargetError float64
	// Workers bounds concurrent evaluations. Zero means GOMAXPROCS.
	Workers int
	// Seed derives every random stream of the run.
	Seed uint64
	// SeedGenes optionally warm-starts the initial population.
	SeedGenes []float64

	Selection Selection
	Crossover Crossover
	Mutation  Mutation
}

// DefaultConfig returns the defaults for a problem with numCuts cuts.
func DefaultConfig(numCuts int) Config {
	return Config{
		PopulationSize:   max(30, 10*numCuts),
		ElitismPercent:   10,
		CrossoverPercent: 30,
		MutationPercent:  60,
		MaxGenerations:   100,
		TargetError:      0.01,
		Selection:        Roulette{},
		Crossover:        Heuristic{},
		Mutation:         AdaptiveLengthMutation{Strength: 0.1, Bias: DefaultLengthBias},
	}
}

// Validate reports every inconsistency at once.
func (c Config) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalidConfig}, args...)...))
	}
	if c.PopulationSize < 1 {
		add("population size must be > 0, got %d", c.PopulationSize)
	}
	for name, p := range map[string]float64{
		"elitism":   c.ElitismPercent,
		"crossover": c.CrossoverPercent,
		"mutation":  c.MutationPercent,
	} {
		if p < 0 || p > 100 {
			add("%s percentage must be in [0, 100], got %g", name, p)
		}
	}
	if c.ElitismPercent+c.CrossoverPercent > 100 {
		add("elitism and crossover percentages exceed 100")
	}
	if c.MaxGenerations < 0 {
		add("max generations must be >= 0, got %d", c.MaxGenerations)
	}
	if c.TargetError < 0 {
		add("target error must be >= 0, got %g", c.TargetError)
	}
	if c.Workers < 0 {
		add("workers must be >= 0, got %d", c.Workers)
	}
	if c.Selection == nil || c.Crossover == nil || c.Mutation == nil {
		add("selection, crossover and mutation strategies are required")
	}
	return utilerrors.NewAggregate(errs)
}

// ProgressUpdate is emitted after every generation.
type ProgressUpdate struct {
	Generation       int
	Best             framework.Individual
	BestFitness      float64
	AverageFitness   float64
	Stats            framework.Stats
	Diversity        float64
	Frequencies      []float64
	CentsErrors      []float64
	LengthAdjustment float64
	Elapsed          time.Duration
}

// StopReason tells why a run ended.
type StopReason string

const (
	StopMaxGenerations StopReason = "max-generations"
	StopTargetReached  StopReason = "target-reached"
	StopCancelled      StopReason = "cancelled"
)

// Result is the raw outcome of a run, expressed against the search targets.
type Result struct {
	Best        framework.Individual
	Generations int
	Population  []framework.Individual
	History     []framework.Stats
	Reason      StopReason
}

// EA is a generational evolutionary algorithm with elitism.
type EA struct {
	Config

	problem framework.Problem
	bounds  framework.VariableBounds
	clock   clock.PassiveClock

	// OnProgress receives generation 0 (the uncut bar) and every
	// subsequent generation.
	OnProgress func(ProgressUpdate)
	// ShouldStop is polled once per generation.
	ShouldStop func() bool
	// H0 is the nominal thickness used for the uncut baseline.
	H0 float64
}

// NewEA validates cfg against problem.
func NewEA(problem framework.Problem, cfg Config) (*EA, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	vb := problem.Bounds()
	if n := problem.NumCuts(); n < 0 {
		return nil, fmt.Errorf("%w: number of cuts must be >= 0, got %d", ErrInvalidConfig, n)
	}
	if len(problem.Targets()) == 0 {
		return nil, fmt.Errorf("%w: no target frequencies", ErrInvalidConfig)
	}
	if want := vb.NumGenes(problem.NumCuts()); len(cfg.SeedGenes) > 0 && len(cfg.SeedGenes) != want {
		return nil, fmt.Errorf("%w: seed has %d genes, want %d", ErrInvalidConfig, len(cfg.SeedGenes), want)
	}
	return &EA{
		Config:  cfg,
		problem: problem,
		bounds:  vb,
		clock:   clock.RealClock{},
		H0:      vb.HMax,
	}, nil
}

func (e *EA) Name() string { return Name }

// WithClock replaces the clock used for elapsed time.
func (e *EA) WithClock(c clock.PassiveClock) *EA {
	e.clock = c
	return e
}

// stream returns the random stream of slot idx in generation gen.
func (e *EA) stream(gen, idx int) *rand.Rand {
	return rand.New(rand.NewPCG(e.Seed+uint64(gen)*generationStride, uint64(idx)))
}

// counts returns the number of elites, crossover children and crossover
// pairs per generation.
func (e *EA) counts() (elite, crossover, pairs int) {
	pop := float64(e.PopulationSize)
	elite = max(1, int(math.Floor(pop*e.ElitismPercent/100)))
	elite = min(elite, e.PopulationSize)
	crossover = int(math.Floor(pop * e.CrossoverPercent / 100))
	return elite, crossover, (crossover + 1) / 2
}

// Initialize creates and evaluates the initial population.
func (e *EA) Initialize(ctx context.Context) []framework.Individual {
	pop := InitialPopulation(e.stream(0, 0), e.PopulationSize, e.problem.NumCuts(), e.bounds, e.SeedGenes)
	if _, ok := e.Mutation.(GaussianMutation); ok {
		for i := range pop {
			pop[i].Sigmas = InitialSigmas(len(pop[i].Genes))
		}
	}
	evaluate(ctx, e.problem.ObjectiveFunc(), pop, e.Workers)
	return pop
}

// Run executes the algorithm until a termination condition holds.
func (e *EA) Run(ctx context.Context) (*Result, error) {
	logger := klog.FromContext(ctx).WithValues("problem", e.problem.Name())
	start := e.clock.Now()
	logger.V(2).Info("Starting optimization", "populationSize", e.PopulationSize, "maxGenerations", e.MaxGenerations)

	if e.OnProgress != nil {
		uncut := framework.NewIndividual(UncutGenes(e.problem.NumCuts(), e.bounds, e.H0))
		uncut.Fitness = e.problem.ObjectiveFunc()(ctx, uncut.Genes)
		e.report(ctx, 0, uncut, []framework.Individual{uncut}, start)
	}

	population := e.Initialize(ctx)
	framework.SortByFitness(population)
	best := population[0].Clone()
	history := []framework.Stats{framework.PopulationStats(population)}

	reason := StopMaxGenerations
	generation := 0
	for generation < e.MaxGenerations {
		if ctx.Err() != nil || (e.ShouldStop != nil && e.ShouldStop()) {
			reason = StopCancelled
			break
		}
		if best.Fitness <= e.TargetError {
			reason = StopTargetReached
			break
		}
		generation++

		population = e.nextGeneration(ctx, generation, population)
		framework.SortByFitness(population)
		if population[0].Fitness < best.Fitness {
			best = population[0].Clone()
		}

		stats := framework.PopulationStats(population)
		history = append(history, stats)
		logger.V(4).Info("Generation complete", "generation", generation, "bestFitness", best.Fitness, "meanFitness", stats.Mean)
		if e.OnProgress != nil {
			e.report(ctx, generation, best, population, start)
		}
	}
	if reason == StopMaxGenerations && best.Fitness <= e.TargetError {
		reason = StopTargetReached
	}

	logger.V(2).Info("Optimization finished", "generations", generation, "bestFitness", best.Fitness,
		"reason", reason, "elapsed", e.clock.Since(start))
	return &Result{
		Best:        best,
		Generations: generation,
		Population:  population,
		History:     history,
		Reason:      reason,
	}, nil
}

// nextGeneration breeds the successor of sorted, which is ordered best
// first and never modified.
func (e *EA) nextGeneration(ctx context.Context, gen int, sorted []framework.Individual) []framework.Individual {
	numElite, numCrossover, numPairs := e.counts()
	size := e.PopulationSize

	next := make([]framework.Individual, 0, size)
	for i := 0; i < numElite && i < len(sorted); i++ {
		next = append(next, sorted[i].Clone())
	}

	slot := 0
	if numCrossover > 0 {
		for p := 0; p < numPairs && len(next) < size; p++ {
			r := e.stream(gen, slot)
			slot++
			a, b := selectPair(r, e.Selection, sorted)
			c1, c2 := e.Crossover.Cross(r, sorted[a], sorted[b], e.bounds)
			next = append(next, c1)
			if len(next) < size {
				next = append(next, c2)
			}
		}
	}

	type mutationSlot struct {
		r   *rand.Rand
		idx int
	}
	var slots []mutationSlot
	limit := e.mutationLimit(len(sorted))
	for len(next)+len(slots) < size {
		r := e.stream(gen, slot)
		slot++
		// Rank-biased: squaring a uniform favours the front.
		u := r.Float64()
		slots = append(slots, mutationSlot{r: r, idx: min(int(float64(limit+1)*u*u), len(sorted)-1)})
	}
	parents := make([]int, len(slots))
	for i, s := range slots {
		parents[i] = s.idx
	}
	hints := e.hints(ctx, sorted, parents)
	for _, s := range slots {
		next = append(next, e.Mutation.Mutate(s.r, sorted[s.idx], e.bounds, hints[s.idx]))
	}

	evaluate(ctx, e.problem.ObjectiveFunc(), next[numElite:], e.Workers)
	return next
}

// mutationLimit is the worst rank a mutation parent may have.
func (e *EA) mutationLimit(n int) int {
	numElite, numCrossover, _ := e.counts()
	pop := float64(e.PopulationSize)
	share := math.Min(0.5, float64(numElite+numCrossover)/pop)
	filled := float64(numElite) / pop
	limit := int(math.Floor(float64(n) * share * (1 + 0.5*(1-filled))))
	return min(limit, n-1)
}

// hints computes the fundamental error of every distinct mutation parent
// on the worker pool, only for mutations that use it.
func (e *EA) hints(ctx context.Context, sorted []framework.Individual, parents []int) map[int]Hint {
	fa, ok := e.Mutation.(frequencyAware)
	if !ok || !fa.needsHint(e.bounds) {
		return nil
	}
	var distinct []int
	seen := map[int]bool{}
	for _, idx := range parents {
		if !seen[idx] {
			seen[idx] = true
			distinct = append(distinct, idx)
		}
	}

	target := e.problem.Targets()[0]
	out := make([]Hint, len(distinct))
	var g errgroup.Group
	g.SetLimit(workerCount(e.Workers, len(distinct)))
	for i, idx := range distinct {
		g.Go(func() error {
			if f1, err := e.problem.Fundamental(ctx, sorted[idx].Genes); err == nil {
				out[i] = Hint{F1Error: f1 - target, Known: true}
			}
			return nil
		})
	}
	_ = g.Wait()

	hints := make(map[int]Hint, len(distinct))
	for i, idx := range distinct {
		hints[idx] = out[i]
	}
	return hints
}

func (e *EA) report(ctx context.Context, gen int, best framework.Individual, population []framework.Individual, start time.Time) {
	stats := framework.PopulationStats(population)
	u := ProgressUpdate{
		Generation:       gen,
		Best:             best.Clone(),
		BestFitness:      best.Fitness,
		AverageFitness:   stats.Mean,
		Stats:            stats,
		Diversity:        framework.Diversity(population),
		LengthAdjustment: e.bounds.LengthAdjustment(best.Genes),
		Elapsed:          e.clock.Since(start),
	}
	if freqs, err := e.problem.Frequencies(ctx, best.Genes); err == nil {
		targets := e.problem.Targets()
		u.Frequencies = freqs
		u.CentsErrors = make([]float64, len(freqs))
		for i, f := range freqs {
			if i < len(targets) {
				u.CentsErrors[i] = fitness.Cents(f, targets[i])
			}
		}
	}
	e.OnProgress(u)
}
