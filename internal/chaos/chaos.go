// internal/chaos/chaos.go
package chaos

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ErrSteadyStateInvalid aborts an experiment whose system is unhealthy before injection.
var ErrSteadyStateInvalid = errors.New("steady state invalid - aborting experiment")

// Experiment defines a chaos engineering test
type Experiment struct {
	Name        string
	Hypothesis  string
	SteadyState []Metric
	Method      []Action
	Validation  []Assertion
	// Duration bounds the observation phase; actions that finish early end it sooner.
	Duration time.Duration
}

// Metric defines a measurable library property
type Metric struct {
	Name      string
	Query     func(context.Context) (float64, error)
	Threshold Threshold
}

type Threshold struct {
	Operator string // >, <, >=, <=, ==
	Value    float64
}

// Action is one fault injection; all actions of an experiment run concurrently.
type Action struct {
	Type    string // contention, churn, flood
	Target  string
	Execute func(context.Context) error
}

// Assertion validates the final observation of a metric
type Assertion struct {
	Metric    string
	Condition func(float64) bool
	Message   string
}

// Result captures experiment execution data
type Result struct {
	ExperimentName   string                 `json:"experiment_name"`
	StartTime        time.Time              `json:"start_time"`
	EndTime          time.Time              `json:"end_time"`
	Duration         time.Duration          `json:"duration"`
	HypothesisHeld   bool                   `json:"hypothesis_held"`
	SteadyStateValid bool                   `json:"steady_state_valid"`
	Violations       []MetricViolation      `json:"violations"`
	Observations     map[string][]DataPoint `json:"observations"`
	ErrorEvents      []ErrorEvent           `json:"error_events"`
	FailedAssertions []string               `json:"failed_assertions,omitempty"`
}

type MetricViolation struct {
	MetricName string    `json:"metric_name"`
	Expected   float64   `json:"expected"`
	Actual     float64   `json:"actual"`
	Timestamp  time.Time `json:"timestamp"`
}

type DataPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
}

type ErrorEvent struct {
	Timestamp time.Time `json:"timestamp"`
	Error     string    `json:"error"`
	Component string    `json:"component"`
}

// Engine orchestrates chaos experiments
type Engine struct {
	tracer      trace.Tracer
	logger      *slog.Logger
	interval    time.Duration
	mu          sync.Mutex
	experiments []Experiment
	results     []Result
}

// Option configures an Engine.
type Option func(*Engine)

func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(e *Engine) { e.tracer = tp.Tracer("librarium/chaos") }
}

func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithSampleInterval sets how often metrics are sampled while actions run.
func WithSampleInterval(d time.Duration) Option {
	return func(e *Engine) { e.interval = d }
}

func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		tracer:   otel.Tracer("librarium/chaos"),
		logger:   slog.Default(),
		interval: 10 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// RegisterExperiment adds an experiment to the suite
func (e *Engine) RegisterExperiment(exp Experiment) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.experiments = append(e.experiments, exp)
}

// Experiments returns the registered experiments.
func (e *Engine) Experiments() []Experiment {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]Experiment(nil), e.experiments...)
}

// Results returns the results of every completed experiment.
func (e *Engine) Results() []Result {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]Result(nil), e.results...)
}

// RunExperiment validates the steady state, runs the actions while sampling
// the metrics, then checks the assertions against the last sample.
func (e *Engine) RunExperiment(ctx context.Context, exp Experiment) (*Result, error) {
	ctx, span := e.tracer.Start(ctx, "chaos.run_experiment",
		trace.WithAttributes(attribute.String("experiment.name", exp.Name)),
	)
	defer span.End()

	result := &Result{
		ExperimentName: exp.Name,
		StartTime:      time.Now(),
		Observations:   make(map[string][]DataPoint),
		ErrorEvents:    make([]ErrorEvent, 0),
	}

	span.AddEvent("validating_steady_state")
	if valid, violations := e.validateSteadyState(ctx, exp.SteadyState); !valid {
		result.Violations = violations
		span.SetStatus(codes.Error, ErrSteadyStateInvalid.Error())
		return result, ErrSteadyStateInvalid
	}
	result.SteadyStateValid = true

	span.AddEvent("injecting_chaos")
	runCtx, cancel := context.WithTimeout(ctx, exp.Duration)
	defer cancel()

	var (
		wg         sync.WaitGroup
		errMu      sync.Mutex
		actionErrs []ErrorEvent
	)
	for _, action := range exp.Method {
		wg.Add(1)
		go func(a Action) {
			defer wg.Done()
			if err := a.Execute(runCtx); err != nil {
				errMu.Lock()
				actionErrs = append(actionErrs, ErrorEvent{
					Timestamp: time.Now(),
					Error:     err.Error(),
					Component: a.Target,
				})
				errMu.Unlock()
				span.RecordError(err)
			}
		}(action)
	}
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	span.AddEvent("observing_system")
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

observe:
	for {
		select {
		case <-done:
			break observe
		case <-runCtx.Done():
			<-done
			break observe
		case <-ticker.C:
			e.sample(ctx, exp.SteadyState, result)
		}
	}
	e.sample(ctx, exp.SteadyState, result)
	result.ErrorEvents = append(result.ErrorEvents, actionErrs...)

	span.AddEvent("validating_assertions")
	result.FailedAssertions = e.validateAssertions(exp.Validation, result)
	result.HypothesisHeld = len(result.FailedAssertions) == 0 && len(result.Violations) == 0
	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(result.StartTime)

	e.mu.Lock()
	e.results = append(e.results, *result)
	e.mu.Unlock()

	span.SetAttributes(
		attribute.Bool("hypothesis_held", result.HypothesisHeld),
		attribute.Int("violations", len(result.Violations)),
	)
	e.logger.InfoContext(ctx, "experiment finished",
		slog.String("experiment", exp.Name),
		slog.Bool("hypothesis_held", result.HypothesisHeld),
		slog.Int("violations", len(result.Violations)),
		slog.Int("errors", len(result.ErrorEvents)),
	)

	return result, nil
}

func (e *Engine) sample(ctx context.Context, metrics []Metric, result *Result) {
	for _, metric := range metrics {
		value, err := metric.Query(ctx)
		now := time.Now()
		if err != nil {
			result.ErrorEvents = append(result.ErrorEvents, ErrorEvent{
				Timestamp: now,
				Error:     err.Error(),
				Component: metric.Name,
			})
			continue
		}

		result.Observations[metric.Name] = append(result.Observations[metric.Name], DataPoint{Timestamp: now, Value: value})
		if !evaluateThreshold(value, metric.Threshold) {
			result.Violations = append(result.Violations, MetricViolation{
				MetricName: metric.Name,
				Expected:   metric.Threshold.Value,
				Actual:     value,
				Timestamp:  now,
			})
		}
	}
}

func (e *Engine) validateSteadyState(ctx context.Context, metrics []Metric) (bool, []MetricViolation) {
	violations := make([]MetricViolation, 0)

	for _, metric := range metrics {
		value, err := metric.Query(ctx)
		if err != nil {
			violations = append(violations, MetricViolation{
				MetricName: metric.Name,
				Expected:   metric.Threshold.Value,
				Actual:     -1,
				Timestamp:  time.Now(),
			})
			continue
		}

		if !evaluateThreshold(value, metric.Threshold) {
			violations = append(violations, MetricViolation{
				MetricName: metric.Name,
				Expected:   metric.Threshold.Value,
				Actual:     value,
				Timestamp:  time.Now(),
			})
		}
	}

	return len(violations) == 0, violations
}

func evaluateThreshold(value float64, threshold Threshold) bool {
	switch threshold.Operator {
	case ">":
		return value > threshold.Value
	case "<":
		return value < threshold.Value
	case ">=":
		return value >= threshold.Value
	case "<=":
		return value <= threshold.Value
	case "==":
		return value == threshold.Value
	default:
		return false
	}
}

func (e *Engine) validateAssertions(assertions []Assertion, result *Result) []string {
	var failed []string
	for _, assertion := range assertions {
		observations := result.Observations[assertion.Metric]
		if len(observations) == 0 {
			failed = append(failed, fmt.Sprintf("%s: no observations", assertion.Metric))
			continue
		}

		finalValue := observations[len(observations)-1].Value
		if !assertion.Condition(finalValue) {
			failed = append(failed, assertion.Message)
		}
	}
	return failed
}

// GameDay is a named series of experiments.
type GameDay struct {
	Name      string
	Date      time.Time
	Scenarios []Experiment
}

// ExecuteGameDay runs every scenario in order and writes a report to w.
// It returns an error if any hypothesis was violated.
func (e *Engine) ExecuteGameDay(ctx context.Context, w io.Writer, gameDay GameDay) error {
	ctx, span := e.tracer.Start(ctx, "chaos.game_day",
		trace.WithAttributes(attribute.String("gameday.name", gameDay.Name)),
	)
	defer span.End()

	fmt.Fprintf(w, "Game Day: %s\n", gameDay.Name)
	fmt.Fprintf(w, "Date: %s\n", gameDay.Date.Format(time.DateOnly))

	violated := 0
	for i, scenario := range gameDay.Scenarios {
		if err := ctx.Err(); err != nil {
			return err
		}
		fmt.Fprintf(w, "\nExperiment %d/%d: %s\n", i+1, len(gameDay.Scenarios), scenario.Name)
		fmt.Fprintf(w, "Hypothesis: %s\n", scenario.Hypothesis)

		result, err := e.RunExperiment(ctx, scenario)
		if err != nil {
			fmt.Fprintf(w, "Experiment failed: %v\n", err)
			violated++
			continue
		}
		if !result.HypothesisHeld {
			violated++
		}
		printResult(w, result)
	}

	if violated > 0 {
		span.SetStatus(codes.Error, "hypothesis violated")
		return fmt.Errorf("%d of %d experiments violated their hypothesis", violated, len(gameDay.Scenarios))
	}
	return nil
}

func printResult(w io.Writer, result *Result) {
	if result.HypothesisHeld {
		fmt.Fprintln(w, "Hypothesis held")
	} else {
		fmt.Fprintln(w, "Hypothesis violated")
	}

	if len(result.Violations) > 0 {
		fmt.Fprintf(w, "Violations detected: %d\n", len(result.Violations))
		for _, v := range result.Violations {
			fmt.Fprintf(w, "  - %s: expected %.2f, got %.2f\n", v.MetricName, v.Expected, v.Actual)
		}
	}
	for _, msg := range result.FailedAssertions {
		fmt.Fprintf(w, "  - %s\n", msg)
	}
	fmt.Fprintf(w, "Errors: %d\n", len(result.ErrorEvents))
}
