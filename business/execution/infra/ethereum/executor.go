// Package ethereum submits flash-loan execution transactions to the
// deployed executor contract.
package ethereum

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	chainapp "github.com/flashcycle/flashcycle/business/chain/app"
	chaineth "github.com/flashcycle/flashcycle/business/chain/infra/ethereum"
	"github.com/flashcycle/flashcycle/business/execution/app"
	"github.com/flashcycle/flashcycle/internal/apperror"
	"github.com/flashcycle/flashcycle/internal/circuitbreaker"
	"github.com/flashcycle/flashcycle/internal/logger"
)

const (
	tracerName = "github.com/flashcycle/flashcycle/business/execution/infra/ethereum"
	meterName  = "github.com/flashcycle/flashcycle/business/execution/infra/ethereum"
)

type executorMetrics struct {
	submissions metric.Int64Counter
	reverts     metric.Int64Counter
	waitLatency metric.Int64Histogram
}

// ExecutorConfig holds the submission parameters.
type ExecutorConfig struct {
	ContractAddress common.Address
	GasPriceCeiling *big.Int      // wei; skip submission above this
	WaitTimeout     time.Duration // receipt wait before giving up
}

// DefaultExecutorConfig returns config with sane wait defaults.
func DefaultExecutorConfig(contract common.Address, ceiling *big.Int) ExecutorConfig {
	return ExecutorConfig{
		ContractAddress: contract,
		GasPriceCeiling: ceiling,
		WaitTimeout:     2 * time.Minute,
	}
}

// Executor signs and submits executeFlashLoan transactions and waits
// for them to mine. The contract itself enforces profitability: if the
// cycle no longer repays the loan, the whole transaction reverts and
// only gas is lost.
type Executor struct {
	config ExecutorConfig
	pool   chainapp.ClientPool
	wallet *chaineth.Wallet
	gas    *chaineth.GasOracle
	logger logger.LoggerInterface

	contractABI abi.ABI
	cb          *circuitbreaker.CircuitBreaker[*types.Transaction]

	tracer  trace.Tracer
	metrics *executorMetrics
}

// NewExecutor creates an Executor bound to the deployed contract.
func NewExecutor(cfg ExecutorConfig, pool chainapp.ClientPool, wallet *chaineth.Wallet, gas *chaineth.GasOracle, log logger.LoggerInterface) (*Executor, error) {
	contractABI, err := abi.JSON(strings.NewReader(FlashCycleExecutorABI))
	if err != nil {
		return nil, fmt.Errorf("parse executor abi: %w", err)
	}
	if cfg.WaitTimeout <= 0 {
		cfg.WaitTimeout = 2 * time.Minute
	}

	e := &Executor{
		config:      cfg,
		pool:        pool,
		wallet:      wallet,
		gas:         gas,
		logger:      log,
		contractABI: contractABI,
		cb:          circuitbreaker.New[*types.Transaction](circuitbreaker.DefaultConfig("flashcycle-executor")),
		tracer:      otel.Tracer(tracerName),
	}
	if err := e.initMetrics(); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}
	return e, nil
}

func (e *Executor) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	e.metrics = &executorMetrics{}

	e.metrics.submissions, err = meter.Int64Counter(
		"executor_submissions_total",
		metric.WithDescription("Flash-loan transactions submitted"),
		metric.WithUnit("{tx}"),
	)
	if err != nil {
		return err
	}

	e.metrics.reverts, err = meter.Int64Counter(
		"executor_reverts_total",
		metric.WithDescription("Submitted transactions that mined with a failed status"),
		metric.WithUnit("{tx}"),
	)
	if err != nil {
		return err
	}

	e.metrics.waitLatency, err = meter.Int64Histogram(
		"executor_wait_latency_ms",
		metric.WithDescription("Wall time from submission to mined receipt"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return err
	}

	return nil
}

// Execute submits the flash loan and blocks until it mines or the wait
// timeout elapses.
func (e *Executor) Execute(ctx context.Context, req app.ExecutionRequest) (*app.ExecutionResult, error) {
	ctx, span := e.tracer.Start(ctx, "execution.submit",
		trace.WithAttributes(
			attribute.String("route", req.Route.Symbol),
			attribute.String("borrow_amount", req.BorrowAmount.String()),
		),
	)
	defer span.End()

	gasPrice, err := e.gas.GasPrice(ctx)
	if err != nil {
		span.SetStatus(codes.Error, "gas price unavailable")
		return nil, err
	}
	if e.config.GasPriceCeiling != nil && gasPrice.Exceeds(e.config.GasPriceCeiling) {
		span.SetStatus(codes.Error, "gas price above ceiling")
		return nil, apperror.New(apperror.CodeGasPriceTooHigh,
			apperror.WithContext(fmt.Sprintf("gas price %s wei exceeds ceiling %s wei",
				gasPrice.Wei, e.config.GasPriceCeiling)))
	}

	calldata, err := e.encodeCall(req)
	if err != nil {
		span.SetStatus(codes.Error, "encode failed")
		return nil, err
	}

	opts, err := e.wallet.Transactor()
	if err != nil {
		span.SetStatus(codes.Error, "transactor failed")
		return nil, err
	}
	opts.Context = ctx
	opts.GasPrice = gasPrice.Wei

	gasLimit, err := e.gas.EstimateGas(ctx, calldata, e.config.ContractAddress.Hex())
	if err != nil {
		// Estimation failing usually means the call would revert now.
		e.logger.Warn(ctx, "gas estimation failed, using default limit",
			"route", req.Route.Symbol, "error", err)
		gasLimit = e.gas.DefaultGasLimit()
	}
	opts.GasLimit = gasLimit

	client := e.pool.Next()
	contract := bind.NewBoundContract(e.config.ContractAddress, e.contractABI, client, client, client)

	tx, err := e.cb.Execute(func() (*types.Transaction, error) {
		return contract.RawTransact(opts, calldata)
	})
	if err != nil {
		span.SetStatus(codes.Error, "submission failed")
		return nil, apperror.New(apperror.CodeExecutionReverted,
			apperror.WithCause(err),
			apperror.WithContext(fmt.Sprintf("route %s", req.Route.Symbol)))
	}

	e.metrics.submissions.Add(ctx, 1)
	e.logger.Info(ctx, "flash loan submitted",
		"route", req.Route.Symbol, "tx", tx.Hash().Hex(),
		"gas_price_wei", gasPrice.Wei.String(), "gas_limit", gasLimit)

	return e.waitMined(ctx, span, req, tx, client)
}

func (e *Executor) waitMined(ctx context.Context, span trace.Span, req app.ExecutionRequest, tx *types.Transaction, client bind.DeployBackend) (*app.ExecutionResult, error) {
	waitCtx, cancel := context.WithTimeout(ctx, e.config.WaitTimeout)
	defer cancel()

	start := time.Now()
	receipt, err := bind.WaitMined(waitCtx, client, tx)
	e.metrics.waitLatency.Record(ctx, time.Since(start).Milliseconds())
	if err != nil {
		span.SetStatus(codes.Error, "wait failed")
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, apperror.New(apperror.CodeExecutionTimeout,
				apperror.WithCause(err),
				apperror.WithContext(fmt.Sprintf("tx %s not mined within %s", tx.Hash().Hex(), e.config.WaitTimeout)))
		}
		return nil, apperror.New(apperror.CodeExecutionReverted,
			apperror.WithCause(err),
			apperror.WithContext(fmt.Sprintf("waiting for tx %s", tx.Hash().Hex())))
	}

	success := receipt.Status == types.ReceiptStatusSuccessful
	if !success {
		e.metrics.reverts.Add(ctx, 1)
		e.logger.Warn(ctx, "flash loan reverted on chain",
			"route", req.Route.Symbol, "tx", tx.Hash().Hex(),
			"block", receipt.BlockNumber.Uint64(), "gas_used", receipt.GasUsed)
	}

	span.SetAttributes(attribute.Bool("success", success))
	span.SetStatus(codes.Ok, "mined")

	return &app.ExecutionResult{
		TxHash:      tx.Hash().Hex(),
		BlockNumber: receipt.BlockNumber.Uint64(),
		GasUsed:     receipt.GasUsed,
		Success:     success,
	}, nil
}

// encodeCall packs executeFlashLoan calldata, resolving each quoted
// hop back to the candidate that won it.
func (e *Executor) encodeCall(req app.ExecutionRequest) ([]byte, error) {
	if len(req.Hops) != len(req.Route.Path.Hops) {
		return nil, apperror.New(apperror.CodeInvalidQuote,
			apperror.WithContext(fmt.Sprintf("route %s has %d hops but quote carries %d",
				req.Route.Symbol, len(req.Route.Path.Hops), len(req.Hops))))
	}

	hops := make([]ExecHop, 0, len(req.Hops))
	for i, quoted := range req.Hops {
		routeHop := req.Route.Path.Hops[i]

		var found bool
		for _, cand := range routeHop.Candidates {
			if cand.Venue != quoted.Venue || cand.FeeTier != quoted.FeeTier {
				continue
			}
			hops = append(hops, ExecHop{
				TokenIn:  routeHop.TokenIn.Address,
				TokenOut: routeHop.TokenOut.Address,
				Factory:  cand.Factory,
				Router:   cand.Router,
				Permit:   cand.Permit,
				Fee:      big.NewInt(cand.FeeTier),
			})
			found = true
			break
		}
		if !found {
			return nil, apperror.New(apperror.CodeInvalidQuote,
				apperror.WithContext(fmt.Sprintf("hop %d of %s quoted venue %s fee %d with no matching candidate",
					i, req.Route.Symbol, quoted.Venue, quoted.FeeTier)))
		}
	}

	ceiling := e.config.GasPriceCeiling
	if ceiling == nil {
		ceiling = new(big.Int)
	}
	calldata, err := e.contractABI.Pack("executeFlashLoan",
		req.BorrowToken.Address, req.BorrowAmount, hops, ceiling)
	if err != nil {
		return nil, apperror.New(apperror.CodeContractCallFailed,
			apperror.WithCause(err),
			apperror.WithContext("failed to pack executeFlashLoan"))
	}
	return calldata, nil
}
