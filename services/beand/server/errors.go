package server

import (
	"errors"
	"net/http"

	coreerrors "beanchain/core/errors"
	"beanchain/history"
	nativecommon "beanchain/native/common"
)

// errBadRequest marks request decoding failures.
var errBadRequest = errors.New("bad request")

var (
	invalidInput = []error{
		errBadRequest,
		coreerrors.ErrInvalidAmount,
		coreerrors.ErrZeroAmount,
		coreerrors.ErrEmptyAmounts,
		coreerrors.ErrLengthMismatch,
		coreerrors.ErrZeroAddress,
		coreerrors.ErrSelfTransfer,
		coreerrors.ErrNotWhitelisted,
		coreerrors.ErrUnsupportedConvert,
		coreerrors.ErrEmptyPipeline,
		coreerrors.ErrLambdaDoesNotIncrease,
		coreerrors.ErrUnknownPool,
		coreerrors.ErrUnknownPlot,
	}
	stateConflicts = []error{
		coreerrors.ErrSeasonNotElapsed,
		coreerrors.ErrSeasonPaused,
		nativecommon.ErrModulePaused,
		nativecommon.ErrCapacityExhausted,
		coreerrors.ErrAlreadyWhitelisted,
		coreerrors.ErrDepositsFrozen,
		coreerrors.ErrZeroBdv,
		coreerrors.ErrInsufficientCrateBalance,
		coreerrors.ErrInsufficientAllowance,
		coreerrors.ErrAllowanceUnderflow,
		coreerrors.ErrNoRoots,
		coreerrors.ErrNothingToClaim,
		coreerrors.ErrSlippageExceeded,
		coreerrors.ErrConvertGerminating,
		coreerrors.ErrInsufficientBalance,
		coreerrors.ErrInsufficientLiquidity,
		coreerrors.ErrWellSlippage,
		coreerrors.ErrInsufficientSoil,
		coreerrors.ErrTemperatureTooLow,
		coreerrors.ErrPlotNotHarvestable,
	}
)

// statusFor maps ledger errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, coreerrors.ErrStaleOracle), errors.Is(err, coreerrors.ErrNoPrice):
		return http.StatusServiceUnavailable
	case errors.Is(err, history.ErrNotFound):
		return http.StatusNotFound
	}
	for _, target := range invalidInput {
		if errors.Is(err, target) {
			return http.StatusBadRequest
		}
	}
	for _, target := range stateConflicts {
		if errors.Is(err, target) {
			return http.StatusConflict
		}
	}
	return http.StatusInternalServerError
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "path", r.URL.Path, "error", err)
	}
	writeError(w, status, err)
}
