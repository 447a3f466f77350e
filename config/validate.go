package config

import (
	"fmt"
	"strings"

	"beanchain/core/types"
	"beanchain/crypto"
)

// Validate checks that the genesis is internally consistent. Engine level
// bounds (route sums, thresholds) are enforced again when parameters are
// installed.
func (g *Genesis) Validate() error {
	if g == nil {
		return fmt.Errorf("genesis must not be nil")
	}
	if _, err := g.Time(); err != nil {
		return err
	}
	for _, raw := range []string{g.Season.MaxMint, g.Season.BaseIncentive, g.Field.Temperature, g.Field.MaxTemperature, g.Convert.CapacityPerSeason} {
		if _, err := ParseAmount(raw); err != nil {
			return err
		}
	}
	if g.Convert.PenaltyBps > 10_000 {
		return fmt.Errorf("convert: penalty above 100%%")
	}
	var bps uint64
	for _, route := range g.Season.Routes {
		bps += route.Bps
		if strings.TrimSpace(route.Recipient) == "" {
			continue
		}
		if _, err := crypto.DecodeAddress(route.Recipient); err != nil {
			return fmt.Errorf("season: route %s recipient: %w", route.Name, err)
		}
	}
	if len(g.Season.Routes) > 0 && bps != 10_000 {
		return fmt.Errorf("season: route bps sum to %d, want 10000", bps)
	}
	assets := make(map[string]AssetConfig, len(g.Assets))
	for _, asset := range g.Assets {
		token := types.NormalizeToken(asset.Token)
		if token == "" {
			return fmt.Errorf("asset: empty token")
		}
		if _, dup := assets[token]; dup {
			return fmt.Errorf("asset %s: duplicate", token)
		}
		for _, raw := range []string{asset.StalkIssuedPerBdv, asset.GaugePoints, asset.OptimalPercent} {
			if _, err := ParseAmount(raw); err != nil {
				return fmt.Errorf("asset %s: %w", token, err)
			}
		}
		assets[token] = asset
	}
	if _, ok := assets[types.BeanToken]; !ok && len(assets) > 0 {
		return fmt.Errorf("asset: %s must be whitelisted", types.BeanToken)
	}
	for _, well := range g.Wells {
		token := types.NormalizeToken(well.Token)
		if asset, ok := assets[token]; ok && !asset.IsLP {
			return fmt.Errorf("well %s: whitelisted asset is not marked lp", token)
		}
		for _, raw := range []string{well.BeanReserve, well.PairReserve} {
			if _, err := ParseAmount(raw); err != nil {
				return fmt.Errorf("well %s: %w", token, err)
			}
		}
		if strings.TrimSpace(well.Provider) != "" {
			if _, err := crypto.DecodeAddress(well.Provider); err != nil {
				return fmt.Errorf("well %s provider: %w", token, err)
			}
		}
	}
	for _, price := range g.Prices {
		if _, err := ParseUSD(price.USD); err != nil {
			return fmt.Errorf("price %s: %w", price.Token, err)
		}
	}
	for _, entry := range g.Balances {
		if _, err := crypto.DecodeAddress(entry.Account); err != nil {
			return fmt.Errorf("balance: %w", err)
		}
		if _, err := ParseAmount(entry.Amount); err != nil {
			return fmt.Errorf("balance %s: %w", entry.Account, err)
		}
	}
	return nil
}
