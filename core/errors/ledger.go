package errors

import stderrors "errors"

// Validation errors surfaced by the silo ledger.
var (
	ErrNotWhitelisted           = stderrors.New("silo: token not whitelisted")
	ErrAlreadyWhitelisted       = stderrors.New("silo: token already whitelisted")
	ErrDepositsFrozen           = stderrors.New("silo: token dewhitelisted, deposits frozen")
	ErrZeroAmount               = stderrors.New("silo: amount in array is 0")
	ErrEmptyAmounts             = stderrors.New("silo: amounts array is empty")
	ErrZeroBdv                  = stderrors.New("silo: no beans under token")
	ErrInsufficientCrateBalance = stderrors.New("silo: crate balance too low")
	ErrLengthMismatch           = stderrors.New("silo: crates, amounts are diff lengths")
	ErrInsufficientAllowance    = stderrors.New("silo: insufficient allowance")
	ErrAllowanceUnderflow       = stderrors.New("silo: decreased allowance below zero")
	ErrSelfTransfer             = stderrors.New("silo: sender and recipient are equal")
	ErrZeroAddress              = stderrors.New("silo: zero address")
	ErrNoRoots                  = stderrors.New("silo: no roots outstanding")
	ErrNothingToClaim           = stderrors.New("silo: nothing to claim")
)

// Season state machine errors.
var (
	ErrSeasonNotElapsed = stderrors.New("season: still current season")
	ErrSeasonPaused     = stderrors.New("season: sunrise paused")
)

// Oracle and conversion errors.
var (
	ErrStaleOracle           = stderrors.New("oracle: price feed stale")
	ErrNoPrice               = stderrors.New("oracle: no price for asset")
	ErrSlippageExceeded      = stderrors.New("convert: slippage exceeded")
	ErrUnsupportedConvert    = stderrors.New("convert: unsupported conversion")
	ErrConvertGerminating    = stderrors.New("convert: germinating deposits cannot be converted")
	ErrEmptyPipeline         = stderrors.New("convert: pipeline has no legs")
	ErrLambdaDoesNotIncrease = stderrors.New("convert: lambda convert must increase bdv")
)

// Token, pool and field errors.
var (
	ErrInsufficientBalance   = stderrors.New("bank: insufficient balance")
	ErrInvalidAmount         = stderrors.New("amount must be positive")
	ErrUnknownPool           = stderrors.New("well: unknown pool")
	ErrInsufficientLiquidity = stderrors.New("well: insufficient liquidity")
	ErrWellSlippage          = stderrors.New("well: output below minimum")
	ErrInsufficientSoil      = stderrors.New("field: not enough soil")
	ErrTemperatureTooLow     = stderrors.New("field: temperature below minimum")
	ErrPlotNotHarvestable    = stderrors.New("field: plot not harvestable")
	ErrUnknownPlot           = stderrors.New("field: unknown plot")
)
