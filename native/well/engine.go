package well

import (
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"sort"

	"github.com/holiman/uint256"

	"beanchain/core/events"
	coreerrors "beanchain/core/errors"
	"beanchain/core/types"
	"beanchain/crypto"
)

var (
	errNilState    = errors.New("well engine: state not configured")
	errNilBank     = errors.New("well engine: bank not configured")
	errPoolExists  = errors.New("well engine: pool already exists")
	errInvalidPool = errors.New("well engine: invalid pool parameters")
	errWrongToken  = errors.New("well engine: token not in pool")
	errFeeTooHigh  = errors.New("well engine: fee above 100%")
	errEmptySeed   = errors.New("well engine: first deposit must seed both reserves")
)

const moduleName = "well"

type engineState interface {
	WellGetPool(token string) (*Pool, bool, error)
	WellPutPool(pool *Pool) error
	WellPools() ([]string, error)
}

// Bank moves reserves and LP shares.
type Bank interface {
	Transfer(token string, from, to crypto.Address, amount *big.Int) error
	Mint(token string, to crypto.Address, amount *big.Int) error
	Burn(token string, from crypto.Address, amount *big.Int) error
}

// Engine runs the Bean:pair constant product pools.
type Engine struct {
	state   engineState
	bank    Bank
	emitter events.Emitter
	logger  *slog.Logger
	address crypto.Address
}

func NewEngine() *Engine {
	return &Engine{
		emitter: events.NoopEmitter{},
		logger:  slog.Default(),
		address: crypto.ModuleAddress(moduleName),
	}
}

func (e *Engine) SetState(state engineState) { e.state = state }

func (e *Engine) SetBank(bank Bank) { e.bank = bank }

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

// Address holds every pool's reserves.
func (e *Engine) Address() crypto.Address { return e.address }

func (e *Engine) ready() error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if e.bank == nil {
		return errNilBank
	}
	return nil
}

// CreatePool registers an empty pool. Reserves arrive through AddLiquidity.
func (e *Engine) CreatePool(params PoolParams) (*Pool, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	token := types.NormalizeToken(params.Token)
	pair := types.NormalizeToken(params.PairToken)
	if token == "" || pair == "" || pair == types.BeanToken || token == pair || token == types.BeanToken {
		return nil, errInvalidPool
	}
	if params.FeeBps >= 10_000 {
		return nil, errFeeTooHigh
	}
	if _, ok, err := e.state.WellGetPool(token); err != nil {
		return nil, err
	} else if ok {
		return nil, fmt.Errorf("%w: %s", errPoolExists, token)
	}
	pool := &Pool{
		Token:        token,
		PairToken:    pair,
		PairDecimals: params.PairDecimals,
		FeeBps:       params.FeeBps,
	}
	pool.ensure()
	if err := e.state.WellPutPool(pool); err != nil {
		return nil, err
	}
	return pool.Clone(), nil
}

// Pool returns a copy of the pool behind the LP token.
func (e *Engine) Pool(token string) (*Pool, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	pool, ok, err := e.state.WellGetPool(types.NormalizeToken(token))
	if err != nil {
		return nil, err
	}
	if !ok || pool == nil {
		return nil, fmt.Errorf("%w: %s", coreerrors.ErrUnknownPool, token)
	}
	pool.ensure()
	return pool, nil
}

// Pools lists every pool ordered by LP token.
func (e *Engine) Pools() ([]*Pool, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	tokens, err := e.state.WellPools()
	if err != nil {
		return nil, err
	}
	sort.Strings(tokens)
	out := make([]*Pool, 0, len(tokens))
	for _, token := range tokens {
		pool, err := e.Pool(token)
		if err != nil {
			return nil, err
		}
		out = append(out, pool)
	}
	return out, nil
}

// reserves returns (in, out) for a swap of tokenIn.
func reserves(pool *Pool, tokenIn string) (in, out *big.Int, tokenOut string, err error) {
	switch types.NormalizeToken(tokenIn) {
	case types.BeanToken:
		return pool.BeanReserve, pool.PairReserve, pool.PairToken, nil
	case pool.PairToken:
		return pool.PairReserve, pool.BeanReserve, types.BeanToken, nil
	default:
		return nil, nil, "", fmt.Errorf("%w: %s", errWrongToken, tokenIn)
	}
}

func quote(pool *Pool, tokenIn string, amountIn *big.Int) (*big.Int, string, error) {
	if amountIn == nil || amountIn.Sign() <= 0 {
		return nil, "", coreerrors.ErrInvalidAmount
	}
	reserveIn, reserveOut, tokenOut, err := reserves(pool, tokenIn)
	if err != nil {
		return nil, "", err
	}
	if reserveIn.Sign() == 0 || reserveOut.Sign() == 0 {
		return nil, "", coreerrors.ErrInsufficientLiquidity
	}
	in, err := toU256(reserveIn)
	if err != nil {
		return nil, "", err
	}
	out, err := toU256(reserveOut)
	if err != nil {
		return nil, "", err
	}
	amt, err := toU256(amountIn)
	if err != nil {
		return nil, "", err
	}
	result, err := amountOut(in, out, amt, pool.FeeBps)
	if err != nil {
		return nil, "", err
	}
	return result.ToBig(), tokenOut, nil
}

// QuoteSwap prices a trade without executing it.
func (e *Engine) QuoteSwap(lpToken, tokenIn string, amountIn *big.Int) (*big.Int, error) {
	pool, err := e.Pool(lpToken)
	if err != nil {
		return nil, err
	}
	out, _, err := quote(pool, tokenIn, amountIn)
	return out, err
}

// Swap trades amountIn of tokenIn for the other side of the pool.
func (e *Engine) Swap(trader crypto.Address, lpToken, tokenIn string, amountIn, minOut *big.Int) (*big.Int, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	pool, err := e.Pool(lpToken)
	if err != nil {
		return nil, err
	}
	out, tokenOut, err := quote(pool, tokenIn, amountIn)
	if err != nil {
		return nil, err
	}
	if out.Sign() == 0 {
		return nil, coreerrors.ErrInsufficientLiquidity
	}
	if minOut != nil && out.Cmp(minOut) < 0 {
		return nil, fmt.Errorf("%w: got %s want %s", coreerrors.ErrWellSlippage, out, minOut)
	}
	tokenIn = types.NormalizeToken(tokenIn)
	if err := e.bank.Transfer(tokenIn, trader, e.address, amountIn); err != nil {
		return nil, err
	}
	if err := e.bank.Transfer(tokenOut, e.address, trader, out); err != nil {
		return nil, err
	}
	if tokenIn == types.BeanToken {
		pool.BeanReserve = new(big.Int).Add(pool.BeanReserve, amountIn)
		pool.PairReserve = new(big.Int).Sub(pool.PairReserve, out)
	} else {
		pool.PairReserve = new(big.Int).Add(pool.PairReserve, amountIn)
		pool.BeanReserve = new(big.Int).Sub(pool.BeanReserve, out)
	}
	if err := e.state.WellPutPool(pool); err != nil {
		return nil, err
	}
	e.emitter.Emit(events.WellSwap{
		Well:      pool.Token,
		Trader:    trader,
		TokenIn:   tokenIn,
		AmountIn:  new(big.Int).Set(amountIn),
		TokenOut:  tokenOut,
		AmountOut: new(big.Int).Set(out),
	})
	return out, nil
}

// mintAmount prices new LP shares for the deposit. The first deposit mints
// sqrt(bean*pair); later ones mint supply*(sqrt(k')-sqrt(k))/sqrt(k), so a
// one-sided deposit is charged the implied swap.
func mintAmount(pool *Pool, beanIn, pairIn *big.Int) (*big.Int, error) {
	bean, err := toU256(pool.BeanReserve)
	if err != nil {
		return nil, err
	}
	pair, err := toU256(pool.PairReserve)
	if err != nil {
		return nil, err
	}
	addBean, err := toU256(beanIn)
	if err != nil {
		return nil, err
	}
	addPair, err := toU256(pairIn)
	if err != nil {
		return nil, err
	}
	nextBean := new(uint256.Int).Add(bean, addBean)
	nextPair := new(uint256.Int).Add(pair, addPair)
	nextK, err := mul(nextBean, nextPair)
	if err != nil {
		return nil, err
	}
	if pool.LPSupply.Sign() == 0 {
		if addBean.IsZero() || addPair.IsZero() {
			return nil, errEmptySeed
		}
		return sqrt(nextK).ToBig(), nil
	}
	k, err := mul(bean, pair)
	if err != nil {
		return nil, err
	}
	rootK := sqrtUp(k)
	if rootK.IsZero() {
		return nil, coreerrors.ErrInsufficientLiquidity
	}
	supply, err := toU256(pool.LPSupply)
	if err != nil {
		return nil, err
	}
	nextRoot := sqrt(nextK)
	if nextRoot.Cmp(rootK) <= 0 {
		return big.NewInt(0), nil
	}
	growth := new(uint256.Int).Sub(nextRoot, rootK)
	minted, err := mulDiv(supply, growth, rootK)
	if err != nil {
		return nil, err
	}
	return minted.ToBig(), nil
}

// QuoteAddLiquidity returns the LP shares AddLiquidity would mint.
func (e *Engine) QuoteAddLiquidity(lpToken string, beanIn, pairIn *big.Int) (*big.Int, error) {
	pool, err := e.Pool(lpToken)
	if err != nil {
		return nil, err
	}
	return mintAmount(pool, orZero(beanIn), orZero(pairIn))
}

// AddLiquidity deposits either or both reserves and mints LP shares.
func (e *Engine) AddLiquidity(provider crypto.Address, lpToken string, beanIn, pairIn, minLP *big.Int) (*big.Int, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	beanIn, pairIn = orZero(beanIn), orZero(pairIn)
	if beanIn.Sign() < 0 || pairIn.Sign() < 0 || (beanIn.Sign() == 0 && pairIn.Sign() == 0) {
		return nil, coreerrors.ErrInvalidAmount
	}
	pool, err := e.Pool(lpToken)
	if err != nil {
		return nil, err
	}
	minted, err := mintAmount(pool, beanIn, pairIn)
	if err != nil {
		return nil, err
	}
	if minted.Sign() == 0 {
		return nil, coreerrors.ErrInsufficientLiquidity
	}
	if minLP != nil && minted.Cmp(minLP) < 0 {
		return nil, fmt.Errorf("%w: got %s want %s", coreerrors.ErrWellSlippage, minted, minLP)
	}
	if err := e.bank.Transfer(types.BeanToken, provider, e.address, beanIn); err != nil {
		return nil, err
	}
	if err := e.bank.Transfer(pool.PairToken, provider, e.address, pairIn); err != nil {
		return nil, err
	}
	if err := e.bank.Mint(pool.Token, provider, minted); err != nil {
		return nil, err
	}
	pool.BeanReserve = new(big.Int).Add(pool.BeanReserve, beanIn)
	pool.PairReserve = new(big.Int).Add(pool.PairReserve, pairIn)
	pool.LPSupply = new(big.Int).Add(pool.LPSupply, minted)
	if err := e.state.WellPutPool(pool); err != nil {
		return nil, err
	}
	e.emitter.Emit(events.WellLiquidity{
		Well:     pool.Token,
		Provider: provider,
		Action:   "add",
		Bean:     new(big.Int).Set(beanIn),
		Pair:     new(big.Int).Set(pairIn),
		LP:       new(big.Int).Set(minted),
	})
	return minted, nil
}

func proportional(pool *Pool, lp *big.Int) (bean, pair *big.Int, err error) {
	if lp == nil || lp.Sign() <= 0 {
		return nil, nil, coreerrors.ErrInvalidAmount
	}
	if lp.Cmp(pool.LPSupply) > 0 {
		return nil, nil, coreerrors.ErrInsufficientLiquidity
	}
	bean = new(big.Int).Mul(pool.BeanReserve, lp)
	bean.Quo(bean, pool.LPSupply)
	pair = new(big.Int).Mul(pool.PairReserve, lp)
	pair.Quo(pair, pool.LPSupply)
	return bean, pair, nil
}

// RemoveLiquidity burns lp shares for both reserves pro rata.
func (e *Engine) RemoveLiquidity(provider crypto.Address, lpToken string, lp, minBean, minPair *big.Int) (*big.Int, *big.Int, error) {
	if err := e.ready(); err != nil {
		return nil, nil, err
	}
	pool, err := e.Pool(lpToken)
	if err != nil {
		return nil, nil, err
	}
	bean, pair, err := proportional(pool, lp)
	if err != nil {
		return nil, nil, err
	}
	if (minBean != nil && bean.Cmp(minBean) < 0) || (minPair != nil && pair.Cmp(minPair) < 0) {
		return nil, nil, coreerrors.ErrWellSlippage
	}
	if err := e.withdraw(provider, pool, lp, bean, pair); err != nil {
		return nil, nil, err
	}
	return bean, pair, nil
}

// removeOneOut is the reserve of tokenOut released when lp shares leave and
// the other reserve stays put: out = r - ceil(r*(S-lp)^2/S^2).
func removeOneOut(pool *Pool, lp *big.Int, tokenOut string) (*big.Int, error) {
	if lp == nil || lp.Sign() <= 0 {
		return nil, coreerrors.ErrInvalidAmount
	}
	if pool.LPSupply.Sign() == 0 || lp.Cmp(pool.LPSupply) > 0 {
		return nil, coreerrors.ErrInsufficientLiquidity
	}
	var reserve *big.Int
	switch types.NormalizeToken(tokenOut) {
	case types.BeanToken:
		reserve = pool.BeanReserve
	case pool.PairToken:
		reserve = pool.PairReserve
	default:
		return nil, fmt.Errorf("%w: %s", errWrongToken, tokenOut)
	}
	left := new(big.Int).Sub(pool.LPSupply, lp)
	kept := new(big.Int).Mul(reserve, left)
	kept.Mul(kept, left)
	supplySq := new(big.Int).Mul(pool.LPSupply, pool.LPSupply)
	kept.Add(kept, new(big.Int).Sub(supplySq, big.NewInt(1)))
	kept.Quo(kept, supplySq)
	return new(big.Int).Sub(reserve, kept), nil
}

// QuoteRemoveLiquidityOneToken returns the single-sided withdrawal amount.
func (e *Engine) QuoteRemoveLiquidityOneToken(lpToken string, lp *big.Int, tokenOut string) (*big.Int, error) {
	pool, err := e.Pool(lpToken)
	if err != nil {
		return nil, err
	}
	return removeOneOut(pool, lp, tokenOut)
}

// RemoveLiquidityOneToken burns lp shares for a single reserve.
func (e *Engine) RemoveLiquidityOneToken(provider crypto.Address, lpToken string, lp *big.Int, tokenOut string, minOut *big.Int) (*big.Int, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	pool, err := e.Pool(lpToken)
	if err != nil {
		return nil, err
	}
	out, err := removeOneOut(pool, lp, tokenOut)
	if err != nil {
		return nil, err
	}
	if minOut != nil && out.Cmp(minOut) < 0 {
		return nil, fmt.Errorf("%w: got %s want %s", coreerrors.ErrWellSlippage, out, minOut)
	}
	bean, pair := big.NewInt(0), big.NewInt(0)
	if types.NormalizeToken(tokenOut) == types.BeanToken {
		bean = out
	} else {
		pair = out
	}
	if err := e.withdraw(provider, pool, lp, bean, pair); err != nil {
		return nil, err
	}
	return out, nil
}

func (e *Engine) withdraw(provider crypto.Address, pool *Pool, lp, bean, pair *big.Int) error {
	if err := e.bank.Burn(pool.Token, provider, lp); err != nil {
		return err
	}
	if err := e.bank.Transfer(types.BeanToken, e.address, provider, bean); err != nil {
		return err
	}
	if err := e.bank.Transfer(pool.PairToken, e.address, provider, pair); err != nil {
		return err
	}
	pool.BeanReserve = new(big.Int).Sub(pool.BeanReserve, bean)
	pool.PairReserve = new(big.Int).Sub(pool.PairReserve, pair)
	pool.LPSupply = new(big.Int).Sub(pool.LPSupply, lp)
	if err := e.state.WellPutPool(pool); err != nil {
		return err
	}
	e.emitter.Emit(events.WellLiquidity{
		Well:     pool.Token,
		Provider: provider,
		Action:   "remove",
		Bean:     new(big.Int).Set(bean),
		Pair:     new(big.Int).Set(pair),
		LP:       new(big.Int).Set(lp),
	})
	return nil
}
