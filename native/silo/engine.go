package silo

import (
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"sort"

	"beanchain/core/events"
	coreerrors "beanchain/core/errors"
	"beanchain/core/types"
	"beanchain/crypto"
	nativecommon "beanchain/native/common"
)

var (
	errNilState         = errors.New("silo engine: state not configured")
	errNilBank          = errors.New("silo engine: bank not configured")
	errUnknownBdvMethod = errors.New("silo engine: unknown bdv method")
	errStalkUnderflow   = errors.New("silo engine: stalk balance underflow")
	errNoBeanAsset      = errors.New("silo engine: bean asset not whitelisted")
)

const moduleName = nativecommon.ModuleSilo

type engineState interface {
	SeasonCurrent() (uint64, error)
	SiloGetAsset(token string) (*Asset, bool, error)
	SiloPutAsset(asset *Asset) error
	SiloAssets() ([]string, error)
	SiloGetAccount(addr crypto.Address) (*Account, error)
	SiloPutAccount(addr crypto.Address, account *Account) error
	SiloGetCrate(addr crypto.Address, token string, stem Stem) (*Crate, bool, error)
	SiloPutCrate(addr crypto.Address, token string, stem Stem, crate *Crate) error
	SiloDeleteCrate(addr crypto.Address, token string, stem Stem) error
	SiloCrateStems(addr crypto.Address, token string) ([]Stem, error)
	SiloGetMowStatus(addr crypto.Address, token string) (*MowStatus, error)
	SiloPutMowStatus(addr crypto.Address, token string, status *MowStatus) error
	SiloGetTotals() (*Totals, error)
	SiloPutTotals(totals *Totals) error
	SiloGetAllowance(owner, spender crypto.Address, token string) (*big.Int, error)
	SiloPutAllowance(owner, spender crypto.Address, token string, amount *big.Int) error
	SiloGerminatingAccounts(bucket int) ([]crypto.Address, error)
	SiloAddGerminatingAccount(bucket int, addr crypto.Address) error
	SiloClearGerminatingAccounts(bucket int) error
}

// Bank moves tokens in and out of silo custody.
type Bank interface {
	Transfer(token string, from, to crypto.Address, amount *big.Int) error
	Mint(token string, to crypto.Address, amount *big.Int) error
}

// Engine implements the deposit ledger, the stalk/roots accountant and the
// germination tracker.
type Engine struct {
	state       engineState
	bank        Bank
	emitter     events.Emitter
	pauses      nativecommon.PauseView
	logger      *slog.Logger
	address     crypto.Address
	plentyToken string
	bdv         map[string]BdvFunc
}

// NewEngine constructs a silo engine holding custody under the silo module
// address. The bean BDV method is always registered.
func NewEngine() *Engine {
	e := &Engine{
		emitter: events.NoopEmitter{},
		logger:  slog.Default(),
		address: crypto.ModuleAddress(moduleName),
		bdv:     make(map[string]BdvFunc),
	}
	e.bdv[BdvMethodBean] = beanBdv
	return e
}

// SetState wires the engine to the external persistence layer.
func (e *Engine) SetState(state engineState) { e.state = state }

func (e *Engine) SetBank(bank Bank) { e.bank = bank }

func (e *Engine) SetPauses(p nativecommon.PauseView) { e.pauses = p }

func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		emitter = events.NoopEmitter{}
	}
	e.emitter = emitter
}

func (e *Engine) SetLogger(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	e.logger = logger
}

// SetPlentyToken selects the token flood proceeds are paid in.
func (e *Engine) SetPlentyToken(token string) {
	e.plentyToken = types.NormalizeToken(token)
}

// PlentyToken returns the configured flood token.
func (e *Engine) PlentyToken() string { return e.plentyToken }

// Address is the custody account of the silo.
func (e *Engine) Address() crypto.Address { return e.address }

func (e *Engine) ready() error {
	if e == nil || e.state == nil {
		return errNilState
	}
	return nil
}

func (e *Engine) readyForTransfers() error {
	if err := e.ready(); err != nil {
		return err
	}
	if e.bank == nil {
		return errNilBank
	}
	return nil
}

func (e *Engine) season() (uint64, error) {
	return e.state.SeasonCurrent()
}

func (e *Engine) asset(token string) (*Asset, error) {
	asset, ok, err := e.state.SiloGetAsset(types.NormalizeToken(token))
	if err != nil {
		return nil, err
	}
	if !ok || asset == nil {
		return nil, coreerrors.ErrNotWhitelisted
	}
	asset.ensure()
	return asset, nil
}

func (e *Engine) account(addr crypto.Address) (*Account, error) {
	account, err := e.state.SiloGetAccount(addr)
	if err != nil {
		return nil, err
	}
	if account == nil {
		account = &Account{}
	}
	account.ensure()
	return account, nil
}

func (e *Engine) totals() (*Totals, error) {
	totals, err := e.state.SiloGetTotals()
	if err != nil {
		return nil, err
	}
	if totals == nil {
		totals = &Totals{}
	}
	totals.ensure()
	return totals, nil
}

func (e *Engine) mowStatus(addr crypto.Address, token string) (*MowStatus, error) {
	status, err := e.state.SiloGetMowStatus(addr, token)
	if err != nil {
		return nil, err
	}
	if status == nil {
		status = &MowStatus{}
	}
	if status.Bdv == nil {
		status.Bdv = big.NewInt(0)
	}
	return status, nil
}

// Whitelist registers a new depositable asset at the current season. A
// dewhitelisted asset may be whitelisted again; its accrual history is kept.
func (e *Engine) Whitelist(params WhitelistParams) (*Asset, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	token := types.NormalizeToken(params.Token)
	if token == "" {
		return nil, fmt.Errorf("silo: whitelist: empty token")
	}
	if _, ok := e.bdv[params.BdvMethod]; !ok {
		return nil, fmt.Errorf("%w: %q", errUnknownBdvMethod, params.BdvMethod)
	}
	if params.StalkIssuedPerBdv == nil || params.StalkIssuedPerBdv.Sign() <= 0 {
		return nil, fmt.Errorf("silo: whitelist %s: stalk issued per bdv must be positive", token)
	}
	season, err := e.season()
	if err != nil {
		return nil, err
	}
	existing, ok, err := e.state.SiloGetAsset(token)
	if err != nil {
		return nil, err
	}
	var asset *Asset
	if ok && existing != nil {
		if !existing.Dewhitelisted {
			return nil, coreerrors.ErrAlreadyWhitelisted
		}
		asset = existing
		asset.ensure()
		asset.Dewhitelisted = false
		asset.UpdateSeedRate(params.StalkEarnedPerSeason, season)
	} else {
		rate := params.StalkEarnedPerSeason
		if rate == 0 {
			rate = 1
		}
		asset = &Asset{
			Token:                token,
			StalkEarnedPerSeason: rate,
			MilestoneSeason:      season,
		}
		asset.ensure()
	}
	asset.Decimals = params.Decimals
	asset.BdvMethod = params.BdvMethod
	asset.IsLP = params.IsLP
	asset.StalkIssuedPerBdv = cloneInt(params.StalkIssuedPerBdv)
	asset.GaugePoints = cloneInt(params.GaugePoints)
	asset.OptimalPercentDepositedBdv = cloneInt(params.OptimalPercentDepositedBdv)
	asset.GerminatingStem = asset.StemTipAt(season)
	if err := e.state.SiloPutAsset(asset); err != nil {
		return nil, err
	}
	e.emitter.Emit(events.Whitelist{
		Token:                token,
		BdvMethod:            asset.BdvMethod,
		StalkIssuedPerBdv:    asset.StalkIssuedPerBdv,
		StalkEarnedPerSeason: int64(asset.StalkEarnedPerSeason),
		Stem:                 int64(asset.StemTipAt(season)),
	})
	return asset.Clone(), nil
}

// Dewhitelist freezes new deposits of token. Existing crates keep accruing
// at the minimum seed rate.
func (e *Engine) Dewhitelist(token string) error {
	if err := e.ready(); err != nil {
		return err
	}
	asset, err := e.asset(token)
	if err != nil {
		return err
	}
	if asset.Dewhitelisted {
		return nil
	}
	season, err := e.season()
	if err != nil {
		return err
	}
	asset.Dewhitelisted = true
	asset.UpdateSeedRate(1, season)
	if err := e.state.SiloPutAsset(asset); err != nil {
		return err
	}
	e.emitter.Emit(events.Dewhitelist{Token: asset.Token})
	return nil
}

// UpdateOptimalPercent changes the target share of LP BDV for an asset.
func (e *Engine) UpdateOptimalPercent(token string, percent *big.Int) error {
	if err := e.ready(); err != nil {
		return err
	}
	if percent == nil || percent.Sign() < 0 {
		return coreerrors.ErrInvalidAmount
	}
	asset, err := e.asset(token)
	if err != nil {
		return err
	}
	asset.OptimalPercentDepositedBdv = new(big.Int).Set(percent)
	return e.state.SiloPutAsset(asset)
}

// UpdateGaugePoints overrides the gauge points of an asset.
func (e *Engine) UpdateGaugePoints(token string, points *big.Int) error {
	if err := e.ready(); err != nil {
		return err
	}
	if points == nil || points.Sign() < 0 {
		return coreerrors.ErrInvalidAmount
	}
	asset, err := e.asset(token)
	if err != nil {
		return err
	}
	asset.GaugePoints = new(big.Int).Set(points)
	return e.state.SiloPutAsset(asset)
}

// ApplySeedRate records a gauge driven seed rate for token starting at the
// current season.
func (e *Engine) ApplySeedRate(token string, rate uint64, gaugePoints *big.Int) error {
	if err := e.ready(); err != nil {
		return err
	}
	asset, err := e.asset(token)
	if err != nil {
		return err
	}
	season, err := e.season()
	if err != nil {
		return err
	}
	if gaugePoints != nil {
		asset.GaugePoints = new(big.Int).Set(gaugePoints)
	}
	if rate != asset.StalkEarnedPerSeason {
		asset.UpdateSeedRate(rate, season)
		e.emitter.Emit(events.SeedsUpdated{
			Token:     asset.Token,
			Season:    season,
			Rate:      int64(asset.StalkEarnedPerSeason),
			Delta:     int64(asset.DeltaStalkEarnedPerSeason),
			Milestone: int64(asset.MilestoneStem),
		})
	}
	return e.state.SiloPutAsset(asset)
}

// Sunrise rolls the silo into season: every asset records the previous
// season's tip as its germinating stem and the bucket created two seasons
// ago is promoted.
func (e *Engine) Sunrise(season uint64) error {
	if err := e.ready(); err != nil {
		return err
	}
	tokens, err := e.state.SiloAssets()
	if err != nil {
		return err
	}
	for _, token := range tokens {
		asset, err := e.asset(token)
		if err != nil {
			return err
		}
		if season > 0 {
			asset.GerminatingStem = asset.StemTipAt(season - 1)
		}
		if err := e.state.SiloPutAsset(asset); err != nil {
			return err
		}
	}
	return e.endGermination(season)
}

func sortAddresses(addrs []crypto.Address) {
	sort.Slice(addrs, func(i, j int) bool { return addrs[i].Less(addrs[j]) })
}
