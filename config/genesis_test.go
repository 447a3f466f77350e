package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadGenesisCreatesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "genesis.toml")
	g, err := LoadGenesis(path)
	require.NoError(t, err)
	require.Equal(t, DefaultGenesis(), g)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(raw), `PlentyToken = "WETH"`)

	again, err := LoadGenesis(path)
	require.NoError(t, err)
	require.Equal(t, g.Assets, again.Assets)
	require.Equal(t, g.Season.Routes, again.Season.Routes)
}

func TestLoadGenesisParsesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "genesis.toml")
	contents := `GenesisTime = "2024-06-01T12:00:00Z"
PlentyToken = "usdc"

[season]
PeriodSeconds = 1800
MaxMint = "1_000_000_000"

[[season.routes]]
Name = "silo"
Bps = 10000

[[assets]]
Token = "BEAN"
Decimals = 6
BdvMethod = "bean"
StalkIssuedPerBdv = "10000000000"

[[prices]]
Token = "USDC"
USD = "0.9995"
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	g, err := LoadGenesis(path)
	require.NoError(t, err)
	require.Equal(t, uint64(1800), g.Season.PeriodSeconds)
	ts, err := g.Time()
	require.NoError(t, err)
	require.Equal(t, int64(1717243200), ts.Unix())
	maxMint, err := ParseAmount(g.Season.MaxMint)
	require.NoError(t, err)
	require.Equal(t, "1000000000", maxMint.String())
	price, err := ParseUSD(g.Prices[0].USD)
	require.NoError(t, err)
	require.Equal(t, "999500", price.String())
}

func TestValidateRejectsBadGenesis(t *testing.T) {
	cases := map[string]func(g *Genesis){
		"routes":       func(g *Genesis) { g.Season.Routes[0].Bps = 1 },
		"time":         func(g *Genesis) { g.GenesisTime = "yesterday" },
		"no bean":      func(g *Genesis) { g.Assets = g.Assets[1:] },
		"duplicate":    func(g *Genesis) { g.Assets = append(g.Assets, g.Assets[0]) },
		"well not lp":  func(g *Genesis) { g.Assets[1].IsLP = false },
		"price":        func(g *Genesis) { g.Prices[0].USD = "-1" },
		"penalty":      func(g *Genesis) { g.Convert.PenaltyBps = 10_001 },
		"bad balance":  func(g *Genesis) { g.Balances = []BalanceEntry{{Account: "nope", Token: "BEAN", Amount: "1"}} },
		"neg amount":   func(g *Genesis) { g.Season.MaxMint = "-5" },
		"bad receiver": func(g *Genesis) { g.Season.Routes[0].Recipient = "0x12" },
	}
	for name, mutate := range cases {
		t.Run(strings.ReplaceAll(name, " ", "_"), func(t *testing.T) {
			g := DefaultGenesis()
			mutate(g)
			if err := g.Validate(); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
	if err := DefaultGenesis().Validate(); err != nil {
		t.Fatalf("default genesis invalid: %v", err)
	}
}
