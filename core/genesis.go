package core

import (
	"fmt"
	"math/big"
	"strings"

	"beanchain/config"
	"beanchain/core/types"
	"beanchain/crypto"
	nativecommon "beanchain/native/common"
	"beanchain/native/convert"
	"beanchain/native/gauge"
	"beanchain/native/season"
	"beanchain/native/silo"
	"beanchain/native/well"
)

// genesisProvider seeds well reserves when a well names no provider.
var genesisProvider = crypto.ModuleAddress("genesis")

// Configure installs the in-memory parameters described by g and publishes
// its seed prices. It runs on every start; stored state is not touched.
func (n *Node) Configure(g *config.Genesis) error {
	if err := g.Validate(); err != nil {
		return err
	}
	n.mu.Lock()
	defer n.mu.Unlock()

	seasonParams, err := seasonParams(g)
	if err != nil {
		return err
	}
	if err := n.season.SetParams(seasonParams); err != nil {
		return fmt.Errorf("season params: %w", err)
	}

	capacity, _ := config.ParseAmount(g.Convert.CapacityPerSeason)
	if capacity.Sign() == 0 {
		capacity = nil
	}
	if err := n.convert.SetParams(convert.Params{
		PenaltyBps: g.Convert.PenaltyBps,
		BonusBps:   g.Convert.BonusBps,
		Capacity:   nativecommon.Capacity{MaxPerSeason: capacity},
	}); err != nil {
		return fmt.Errorf("convert params: %w", err)
	}

	maxTemp, _ := config.ParseAmount(g.Field.MaxTemperature)
	if maxTemp.Sign() == 0 {
		maxTemp = nil
	}
	n.field.SetMaxTemperature(maxTemp)
	peak := g.Field.MorningPeakBps
	if peak == 0 {
		peak = 10_000
	}
	n.field.SetMorning(n.season.Elapsed, peak)
	n.silo.SetPlentyToken(g.PlentyToken)

	for _, entry := range g.Prices {
		price, err := config.ParseUSD(entry.USD)
		if err != nil {
			return err
		}
		if _, err := n.feed.Price(entry.Token); err == nil {
			continue
		}
		if err := n.feed.Publish(types.NormalizeToken(entry.Token), price, n.now()); err != nil {
			return err
		}
	}
	return nil
}

func seasonParams(g *config.Genesis) (*season.Params, error) {
	params := season.DefaultParams()
	if g.Season.PeriodSeconds > 0 {
		params.Period = g.Season.PeriodSeconds
	}
	maxMint, err := config.ParseAmount(g.Season.MaxMint)
	if err != nil {
		return nil, err
	}
	if maxMint.Sign() > 0 {
		params.MaxMint = maxMint
	}
	base, err := config.ParseAmount(g.Season.BaseIncentive)
	if err != nil {
		return nil, err
	}
	if base.Sign() > 0 {
		params.BaseIncentive = base
	}
	if g.Season.MaxIncentiveLate > 0 {
		params.MaxIncentiveLate = g.Season.MaxIncentiveLate
	}
	if g.Season.RainDuration > 0 {
		params.RainDuration = g.Season.RainDuration
	}
	params.FloodWell = types.NormalizeToken(g.Season.FloodWell)
	if len(g.Season.Routes) > 0 {
		params.Routes = make([]season.Route, 0, len(g.Season.Routes))
		for _, route := range g.Season.Routes {
			next := season.Route{Name: strings.ToLower(strings.TrimSpace(route.Name)), Bps: route.Bps}
			if strings.TrimSpace(route.Recipient) != "" {
				addr, err := crypto.DecodeAddress(route.Recipient)
				if err != nil {
					return nil, err
				}
				next.Recipient = addr
			}
			params.Routes = append(params.Routes, next)
		}
	}
	return params, nil
}

// InitGenesis writes the genesis ledger: season clock, gauge parameters,
// balances, wells and the whitelist. It is a no-op on an initialised
// database.
func (n *Node) InitGenesis(g *config.Genesis) error {
	if err := g.Validate(); err != nil {
		return err
	}
	initialised := false
	if err := n.view(func() error {
		status, err := n.state.SeasonGetStatus()
		initialised = status != nil
		return err
	}); err != nil {
		return err
	}
	if initialised {
		n.logger.Info("ledger already initialised, genesis skipped")
		return nil
	}
	genesisTime, err := g.Time()
	if err != nil {
		return err
	}
	return n.apply("genesis", func() error {
		if err := n.season.Init(genesisTime); err != nil {
			return err
		}
		if err := n.applyGauge(g.Gauge); err != nil {
			return err
		}
		if raw := strings.TrimSpace(g.Field.Temperature); raw != "" {
			temperature, err := config.ParseAmount(raw)
			if err != nil {
				return err
			}
			if _, err := n.field.SetTemperature(temperature); err != nil {
				return err
			}
		}
		for _, entry := range g.Balances {
			addr, err := crypto.DecodeAddress(entry.Account)
			if err != nil {
				return err
			}
			amount, err := config.ParseAmount(entry.Amount)
			if err != nil {
				return err
			}
			if err := n.bank.Mint(entry.Token, addr, amount); err != nil {
				return fmt.Errorf("genesis balance %s: %w", entry.Account, err)
			}
		}
		for _, cfg := range g.Wells {
			if err := n.seedWell(cfg); err != nil {
				return fmt.Errorf("genesis well %s: %w", cfg.Token, err)
			}
		}
		for _, cfg := range g.Assets {
			params, err := whitelistParams(cfg)
			if err != nil {
				return err
			}
			if _, err := n.silo.Whitelist(params); err != nil {
				return fmt.Errorf("genesis whitelist %s: %w", cfg.Token, err)
			}
		}
		n.logger.Info("genesis applied", "assets", len(g.Assets), "wells", len(g.Wells), "time", genesisTime)
		return nil
	})
}

func (n *Node) applyGauge(cfg config.GaugeConfig) error {
	params, err := n.gauge.Params()
	if err != nil {
		return err
	}
	if raw := strings.TrimSpace(cfg.BeanToMaxLpRatio); raw != "" {
		pct, err := config.ParseAmount(raw)
		if err != nil {
			return err
		}
		params.BeanToMaxLpGpPerBdvRatio = new(big.Int).Mul(pct, gauge.RatioPrecision)
	}
	params.MaxRateChangeBps = cfg.MaxRateChangeBps
	return n.gauge.SetParams(params)
}

func (n *Node) seedWell(cfg config.WellConfig) error {
	if _, err := n.well.CreatePool(well.PoolParams{
		Token:        cfg.Token,
		PairToken:    cfg.PairToken,
		PairDecimals: cfg.PairDecimals,
		FeeBps:       cfg.FeeBps,
	}); err != nil {
		return err
	}
	beans, err := config.ParseAmount(cfg.BeanReserve)
	if err != nil {
		return err
	}
	pair, err := config.ParseAmount(cfg.PairReserve)
	if err != nil {
		return err
	}
	if beans.Sign() == 0 || pair.Sign() == 0 {
		return nil
	}
	provider := genesisProvider
	if strings.TrimSpace(cfg.Provider) != "" {
		if provider, err = crypto.DecodeAddress(cfg.Provider); err != nil {
			return err
		}
	}
	if err := n.bank.Mint(types.BeanToken, provider, beans); err != nil {
		return err
	}
	if err := n.bank.Mint(cfg.PairToken, provider, pair); err != nil {
		return err
	}
	_, err = n.well.AddLiquidity(provider, cfg.Token, beans, pair, nil)
	return err
}

func whitelistParams(cfg config.AssetConfig) (silo.WhitelistParams, error) {
	stalk, err := config.ParseAmount(cfg.StalkIssuedPerBdv)
	if err != nil {
		return silo.WhitelistParams{}, err
	}
	points, err := config.ParseAmount(cfg.GaugePoints)
	if err != nil {
		return silo.WhitelistParams{}, err
	}
	optimal, err := config.ParseAmount(cfg.OptimalPercent)
	if err != nil {
		return silo.WhitelistParams{}, err
	}
	return silo.WhitelistParams{
		Token:                      cfg.Token,
		Decimals:                   cfg.Decimals,
		BdvMethod:                  cfg.BdvMethod,
		IsLP:                       cfg.IsLP,
		StalkIssuedPerBdv:          stalk,
		StalkEarnedPerSeason:       cfg.StalkEarnedPerSeason,
		GaugePoints:                points,
		OptimalPercentDepositedBdv: optimal,
	}, nil
}
