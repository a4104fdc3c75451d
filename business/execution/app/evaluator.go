package app

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/flashcycle/flashcycle/business/execution/domain"
	quoting "github.com/flashcycle/flashcycle/business/quoting/domain"
	"github.com/flashcycle/flashcycle/internal/logger"
)

const (
	tracerName = "github.com/flashcycle/flashcycle/business/execution/app"
	meterName  = "github.com/flashcycle/flashcycle/business/execution/app"
)

// EvaluatorConfig holds the decision thresholds.
type EvaluatorConfig struct {
	BorrowCostBps int64
	MinMarginBps  int64
	DryRun        bool // log would-be executions without submitting
}

type evaluatorMetrics struct {
	decisions      metric.Int64Counter
	executions     metric.Int64Counter
	executionFails metric.Int64Counter
	predictions    metric.Int64Counter
}

// Evaluator turns quoted routes into decisions and acts on them.
// A failed execution or record write never escapes: the loop re-quotes
// on the next trigger regardless.
type Evaluator struct {
	config   EvaluatorConfig
	executor Executor
	recorder TradeRecorder
	logger   logger.LoggerInterface

	tracer  trace.Tracer
	metrics *evaluatorMetrics
}

// NewEvaluator creates a new Evaluator.
func NewEvaluator(cfg EvaluatorConfig, executor Executor, recorder TradeRecorder, log logger.LoggerInterface) (*Evaluator, error) {
	e := &Evaluator{
		config:   cfg,
		executor: executor,
		recorder: recorder,
		logger:   log,
		tracer:   otel.Tracer(tracerName),
	}
	if err := e.initMetrics(); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}
	return e, nil
}

func (e *Evaluator) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	e.metrics = &evaluatorMetrics{}

	e.metrics.decisions, err = meter.Int64Counter(
		"decisions_total",
		metric.WithDescription("Profitability decisions computed"),
		metric.WithUnit("{decision}"),
	)
	if err != nil {
		return err
	}

	e.metrics.executions, err = meter.Int64Counter(
		"executions_total",
		metric.WithDescription("Flash-loan executions submitted"),
		metric.WithUnit("{tx}"),
	)
	if err != nil {
		return err
	}

	e.metrics.executionFails, err = meter.Int64Counter(
		"execution_failures_total",
		metric.WithDescription("Flash-loan executions that reverted or timed out"),
		metric.WithUnit("{tx}"),
	)
	if err != nil {
		return err
	}

	e.metrics.predictions, err = meter.Int64Counter(
		"predictions_total",
		metric.WithDescription("Profitable-below-margin predictions recorded"),
		metric.WithUnit("{prediction}"),
	)
	if err != nil {
		return err
	}

	return nil
}

// Evaluate decides every successfully quoted route and executes or
// records as the decision dictates. Individual failures are logged and
// swallowed; the cycle always completes.
func (e *Evaluator) Evaluate(ctx context.Context, quotes []quoting.RouteQuote, blockNumber uint64) {
	ctx, span := e.tracer.Start(ctx, "execution.evaluate",
		trace.WithAttributes(
			attribute.Int("quotes", len(quotes)),
			attribute.Int64("block", int64(blockNumber)),
		),
	)
	defer span.End()

	executed := 0
	predicted := 0

	for _, quote := range quotes {
		if quote.Failed() {
			continue
		}

		decision := domain.Decide(quote.AmountIn(), quote.FinalAmount(),
			e.config.BorrowCostBps, e.config.MinMarginBps)
		e.metrics.decisions.Add(ctx, 1)

		switch {
		case decision.CoversCosts:
			e.execute(ctx, quote, decision, blockNumber)
			executed++
		case decision.Profitable:
			e.recordPrediction(ctx, quote, decision, blockNumber)
			predicted++
		default:
			// Not profitable: discard silently.
		}
	}

	if executed > 0 || predicted > 0 {
		e.logger.Info(ctx, "cycle evaluated",
			"block", blockNumber, "quotes", len(quotes),
			"executed", executed, "predicted", predicted)
	}

	span.SetAttributes(
		attribute.Int("executed", executed),
		attribute.Int("predicted", predicted),
	)
	span.SetStatus(codes.Ok, "evaluated")
}

func (e *Evaluator) execute(ctx context.Context, quote quoting.RouteQuote, decision domain.Decision, blockNumber uint64) {
	route := quote.Route

	e.logger.Info(ctx, "profitable route above margin",
		"route", route.Symbol,
		"block", blockNumber,
		"net_profit", decision.NetProfit.String(),
		"rate_bps", decision.ProfitRateBps,
		"repay", domain.RepayAmount(route.InitialAmount, e.config.BorrowCostBps).String())

	if e.config.DryRun {
		e.logger.Info(ctx, "dry run, skipping submission", "route", route.Symbol)
		return
	}

	e.metrics.executions.Add(ctx, 1)

	result, err := e.executor.Execute(ctx, ExecutionRequest{
		BorrowToken:  route.StartToken(),
		BorrowAmount: route.InitialAmount,
		Route:        route,
		Hops:         quote.Hops,
	})
	if err != nil {
		e.metrics.executionFails.Add(ctx, 1)
		e.logger.Error(ctx, "execution failed",
			"route", route.Symbol, "block", blockNumber,
			"amount_in", route.InitialAmount.String(), "error", err)
		return
	}

	if !result.Success {
		e.metrics.executionFails.Add(ctx, 1)
	}
	e.logger.Info(ctx, "execution mined",
		"route", route.Symbol, "tx", result.TxHash,
		"success", result.Success, "gas_used", result.GasUsed)

	e.writeRecord(ctx, domain.TradeRecord{
		Kind:          domain.RecordExecution,
		RouteSymbol:   route.Symbol,
		BlockNumber:   blockNumber,
		AmountIn:      quote.AmountIn(),
		FinalAmount:   quote.FinalAmount(),
		NetProfit:     decision.NetProfit,
		ProfitRateBps: decision.ProfitRateBps,
		TxHash:        result.TxHash,
		Success:       result.Success,
		GasUsed:       result.GasUsed,
		CreatedAt:     time.Now().UTC(),
	})
}

func (e *Evaluator) recordPrediction(ctx context.Context, quote quoting.RouteQuote, decision domain.Decision, blockNumber uint64) {
	e.metrics.predictions.Add(ctx, 1)

	e.logger.Debug(ctx, "profitable below margin, recording prediction",
		"route", quote.Route.Symbol, "rate_bps", decision.ProfitRateBps)

	e.writeRecord(ctx, domain.TradeRecord{
		Kind:          domain.RecordPrediction,
		RouteSymbol:   quote.Route.Symbol,
		BlockNumber:   blockNumber,
		AmountIn:      quote.AmountIn(),
		FinalAmount:   quote.FinalAmount(),
		NetProfit:     decision.NetProfit,
		ProfitRateBps: decision.ProfitRateBps,
		Success:       true,
		CreatedAt:     time.Now().UTC(),
	})
}

func (e *Evaluator) writeRecord(ctx context.Context, record domain.TradeRecord) {
	if e.recorder == nil {
		return
	}
	if err := e.recorder.CreateTradeRecord(ctx, record); err != nil {
		e.logger.Warn(ctx, "trade record write failed",
			"route", record.RouteSymbol, "kind", string(record.Kind), "error", err)
	}
}
