package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"beanchain/core"
	"beanchain/crypto"
	"beanchain/native/silo"
	"beanchain/services/beand/middleware"
)

func decodeBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}

func parseAddress(raw string) (crypto.Address, error) {
	addr, err := crypto.DecodeAddress(strings.TrimSpace(raw))
	if err != nil {
		return crypto.Address{}, fmt.Errorf("%w: address %q: %v", errBadRequest, raw, err)
	}
	return addr, nil
}

func parseAmount(raw string) (*big.Int, error) {
	value, ok := new(big.Int).SetString(strings.TrimSpace(raw), 10)
	if !ok || value.Sign() < 0 {
		return nil, fmt.Errorf("%w: amount %q", errBadRequest, raw)
	}
	return value, nil
}

func parseAmounts(raw []string) ([]*big.Int, error) {
	out := make([]*big.Int, 0, len(raw))
	for _, entry := range raw {
		value, err := parseAmount(entry)
		if err != nil {
			return nil, err
		}
		out = append(out, value)
	}
	return out, nil
}

func toStems(raw []int64) []silo.Stem {
	out := make([]silo.Stem, len(raw))
	for i, stem := range raw {
		out[i] = silo.Stem(stem)
	}
	return out
}

// account resolves the acting account of a write request. Tokens issued for
// an address may only act for it unless they also carry season:admin.
func account(r *http.Request, raw string) (crypto.Address, error) {
	addr, err := parseAddress(raw)
	if err != nil {
		return crypto.Address{}, err
	}
	if subject, ok := middleware.SubjectFromContext(r.Context()); ok && subject != addr && !middleware.HasScope(r.Context(), middleware.ScopeSeasonAdmin) {
		return crypto.Address{}, errForbidden
	}
	return addr, nil
}

var errForbidden = errors.New("token not issued for this account")

func (s *Server) writeFailure(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, errForbidden) {
		writeError(w, http.StatusForbidden, err)
		return
	}
	s.fail(w, r, err)
}

// Reads

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	res, err := s.node.QueryState(chi.URLParam(r, "namespace"), chi.URLParam(r, "*"))
	if errors.Is(err, core.ErrQueryNotSupported) {
		writeError(w, http.StatusNotFound, err)
		return
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(res.Value)
}

func (s *Server) handleAccount(w http.ResponseWriter, r *http.Request) {
	addr, err := parseAddress(chi.URLParam(r, "address"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	view, err := s.node.Account(addr)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleDeposits(w http.ResponseWriter, r *http.Request) {
	addr, err := parseAddress(chi.URLParam(r, "address"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	deposits, err := s.node.GetDeposits(addr, chi.URLParam(r, "token"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, deposits)
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	addr, err := parseAddress(chi.URLParam(r, "address"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	token := chi.URLParam(r, "token")
	balance, err := s.node.Balance(token, addr)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token, "balance": balance.String()})
}

func (s *Server) handlePlots(w http.ResponseWriter, r *http.Request) {
	addr, err := parseAddress(chi.URLParam(r, "address"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	plots, err := s.node.Plots(addr)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, plots)
}

func (s *Server) handleAssets(w http.ResponseWriter, r *http.Request) {
	assets, err := s.node.Assets()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, assets)
}

func (s *Server) handleTotals(w http.ResponseWriter, r *http.Request) {
	totals, err := s.node.SiloTotals()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, totals)
}

func (s *Server) handleSeasonStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.node.SeasonStatus()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleWeather(w http.ResponseWriter, r *http.Request) {
	weather, err := s.node.Weather()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, weather)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, http.StatusNotFound, fmt.Errorf("history not configured"))
		return
	}
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			s.fail(w, r, fmt.Errorf("%w: limit %q", errBadRequest, raw))
			return
		}
		limit = parsed
	}
	records, err := s.history.Latest(r.Context(), limit)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleHistoryEntry(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, http.StatusNotFound, fmt.Errorf("history not configured"))
		return
	}
	number, err := strconv.ParseUint(chi.URLParam(r, "season"), 10, 64)
	if err != nil {
		s.fail(w, r, fmt.Errorf("%w: season", errBadRequest))
		return
	}
	record, err := s.history.Get(r.Context(), number)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (s *Server) handleFieldStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.node.FieldStatus()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	temperature, err := s.node.Temperature()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": status, "current_temperature": temperature.String()})
}

func (s *Server) handlePools(w http.ResponseWriter, r *http.Request) {
	pools, err := s.node.Pools()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pools)
}

func (s *Server) handlePrices(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.node.Feed().Snapshot())
}

// Silo writes

type depositRequest struct {
	Account string `json:"account"`
	Token   string `json:"token"`
	Amount  string `json:"amount"`
}

func (s *Server) handleDeposit(w http.ResponseWriter, r *http.Request) {
	var req depositRequest
	if err := decodeBody(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	addr, err := account(r, req.Account)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	stem, err := s.node.Deposit(addr, req.Token, amount)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"stem": int64(stem)})
}

type withdrawRequest struct {
	Account string   `json:"account"`
	Token   string   `json:"token"`
	Stems   []int64  `json:"stems"`
	Amounts []string `json:"amounts"`
}

func (s *Server) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	var req withdrawRequest
	if err := decodeBody(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	addr, err := account(r, req.Account)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	amounts, err := parseAmounts(req.Amounts)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	total, err := s.node.WithdrawBatch(addr, req.Token, toStems(req.Stems), amounts)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"withdrawn": total.String()})
}

type transferDepositRequest struct {
	Account string   `json:"account"`
	From    string   `json:"from"`
	To      string   `json:"to"`
	Token   string   `json:"token"`
	Stems   []int64  `json:"stems"`
	Amounts []string `json:"amounts"`
}

func (s *Server) handleTransferDeposit(w http.ResponseWriter, r *http.Request) {
	var req transferDepositRequest
	if err := decodeBody(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	caller, err := account(r, req.Account)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	from := caller
	if req.From != "" {
		if from, err = parseAddress(req.From); err != nil {
			s.fail(w, r, err)
			return
		}
	}
	to, err := parseAddress(req.To)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	amounts, err := parseAmounts(req.Amounts)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	bdvs, err := s.node.TransferDeposits(caller, from, to, req.Token, toStems(req.Stems), amounts)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	out := make([]string, len(bdvs))
	for i, bdv := range bdvs {
		out[i] = bdv.String()
	}
	writeJSON(w, http.StatusOK, map[string]any{"bdvs": out})
}

// approveRequest.Mode is "set" (default), "increase" or "decrease".
type approveRequest struct {
	Account string `json:"account"`
	Spender string `json:"spender"`
	Token   string `json:"token"`
	Amount  string `json:"amount"`
	Mode    string `json:"mode"`
}

func (s *Server) handleApprove(w http.ResponseWriter, r *http.Request) {
	var req approveRequest
	if err := decodeBody(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	owner, err := account(r, req.Account)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	spender, err := parseAddress(req.Spender)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	switch strings.ToLower(strings.TrimSpace(req.Mode)) {
	case "", "set":
		err = s.node.Approve(owner, spender, req.Token, amount)
	case "increase":
		err = s.node.IncreaseAllowance(owner, spender, req.Token, amount)
	case "decrease":
		err = s.node.DecreaseAllowance(owner, spender, req.Token, amount)
	default:
		err = fmt.Errorf("%w: mode %q", errBadRequest, req.Mode)
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}
	allowance, err := s.node.Allowance(owner, spender, req.Token)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"allowance": allowance.String()})
}

type accountRequest struct {
	Account string   `json:"account"`
	Tokens  []string `json:"tokens,omitempty"`
}

func (s *Server) handleMow(w http.ResponseWriter, r *http.Request) {
	var req accountRequest
	if err := decodeBody(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	addr, err := account(r, req.Account)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	if err := s.node.Mow(addr, req.Tokens...); err != nil {
		s.fail(w, r, err)
		return
	}
	view, err := s.node.Account(addr)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handlePlant(w http.ResponseWriter, r *http.Request) {
	var req accountRequest
	if err := decodeBody(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	addr, err := account(r, req.Account)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	beans, stem, err := s.node.Plant(addr)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"beans": beans.String(), "stem": int64(stem)})
}

func (s *Server) handleClaimPlenty(w http.ResponseWriter, r *http.Request) {
	var req accountRequest
	if err := decodeBody(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	addr, err := account(r, req.Account)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	claimed, err := s.node.ClaimPlenty(addr)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"claimed": claimed.String()})
}

type convertRequest struct {
	Account string   `json:"account"`
	Token   string   `json:"token"`
	Stem    int64    `json:"stem"`
	Amount  string   `json:"amount"`
	Path    []string `json:"path"`
	MinOut  string   `json:"min_out"`
}

func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	var req convertRequest
	if err := decodeBody(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	addr, err := account(r, req.Account)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	minOut := new(big.Int)
	if req.MinOut != "" {
		if minOut, err = parseAmount(req.MinOut); err != nil {
			s.fail(w, r, err)
			return
		}
	}
	result, err := s.node.Convert(r.Context(), addr, req.Token, silo.Stem(req.Stem), amount, req.Path, minOut)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// Field and well writes

type sowRequest struct {
	Account        string `json:"account"`
	Beans          string `json:"beans"`
	MinTemperature string `json:"min_temperature"`
}

func (s *Server) handleSow(w http.ResponseWriter, r *http.Request) {
	var req sowRequest
	if err := decodeBody(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	addr, err := account(r, req.Account)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	beans, err := parseAmount(req.Beans)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	minTemperature := new(big.Int)
	if req.MinTemperature != "" {
		if minTemperature, err = parseAmount(req.MinTemperature); err != nil {
			s.fail(w, r, err)
			return
		}
	}
	pods, err := s.node.Sow(addr, beans, minTemperature)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"pods": pods.String()})
}

type harvestRequest struct {
	Account string   `json:"account"`
	Plots   []string `json:"plots"`
}

func (s *Server) handleHarvest(w http.ResponseWriter, r *http.Request) {
	var req harvestRequest
	if err := decodeBody(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	addr, err := account(r, req.Account)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	indexes, err := parseAmounts(req.Plots)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	beans, err := s.node.Harvest(addr, indexes)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"beans": beans.String()})
}

type swapRequest struct {
	Account  string `json:"account"`
	Well     string `json:"well"`
	TokenIn  string `json:"token_in"`
	AmountIn string `json:"amount_in"`
	MinOut   string `json:"min_out"`
}

func (s *Server) handleSwap(w http.ResponseWriter, r *http.Request) {
	var req swapRequest
	if err := decodeBody(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	addr, err := account(r, req.Account)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	amountIn, err := parseAmount(req.AmountIn)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	minOut := new(big.Int)
	if req.MinOut != "" {
		if minOut, err = parseAmount(req.MinOut); err != nil {
			s.fail(w, r, err)
			return
		}
	}
	out, err := s.node.Swap(addr, req.Well, req.TokenIn, amountIn, minOut)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"amount_out": out.String()})
}

type transferRequest struct {
	Account string `json:"account"`
	To      string `json:"to"`
	Token   string `json:"token"`
	Amount  string `json:"amount"`
}

func (s *Server) handleTransfer(w http.ResponseWriter, r *http.Request) {
	var req transferRequest
	if err := decodeBody(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	from, err := account(r, req.Account)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	to, err := parseAddress(req.To)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.node.Transfer(req.Token, from, to, amount); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Admin

func (s *Server) handleSunrise(w http.ResponseWriter, r *http.Request) {
	var req accountRequest
	if err := decodeBody(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	caller, err := parseAddress(req.Account)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	report, err := s.node.Sunrise(r.Context(), caller)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newReportView(report))
}

type pauseRequest struct {
	Module string `json:"module"`
	Paused bool   `json:"paused"`
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	var req pauseRequest
	if err := decodeBody(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.node.SetPaused(req.Module, req.Paused); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	s.logger.Warn("module pause toggled", "module", req.Module, "paused", req.Paused)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleOracleOverride(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Enabled bool `json:"enabled"`
	}
	if err := decodeBody(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	s.node.SetOracleOverride(req.Enabled)
	s.logger.Warn("oracle timeout override toggled", "enabled", req.Enabled)
	w.WriteHeader(http.StatusNoContent)
}

type faucetRequest struct {
	To     string `json:"to"`
	Token  string `json:"token"`
	Amount string `json:"amount"`
}

func (s *Server) handleFaucet(w http.ResponseWriter, r *http.Request) {
	var req faucetRequest
	if err := decodeBody(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	to, err := parseAddress(req.To)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.node.Faucet(req.Token, to, amount); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
