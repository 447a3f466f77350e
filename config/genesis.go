package config

import (
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Genesis describes the initial ledger: whitelisted assets, wells, seeded
// balances and the economic parameters of every engine. Amounts are decimal
// strings in base units so they survive TOML's int64 limit.
type Genesis struct {
	GenesisTime string         `toml:"GenesisTime"`
	PlentyToken string         `toml:"PlentyToken"`
	Season      SeasonConfig   `toml:"season"`
	Field       FieldConfig    `toml:"field"`
	Convert     ConvertConfig  `toml:"convert"`
	Gauge       GaugeConfig    `toml:"gauge"`
	Assets      []AssetConfig  `toml:"assets"`
	Wells       []WellConfig   `toml:"wells"`
	Prices      []PriceConfig  `toml:"prices"`
	Balances    []BalanceEntry `toml:"balances"`
}

type SeasonConfig struct {
	PeriodSeconds    uint64        `toml:"PeriodSeconds"`
	MaxMint          string        `toml:"MaxMint"`
	BaseIncentive    string        `toml:"BaseIncentive"`
	MaxIncentiveLate uint64        `toml:"MaxIncentiveLate"`
	RainDuration     uint64        `toml:"RainDuration"`
	FloodWell        string        `toml:"FloodWell"`
	Routes           []RouteConfig `toml:"routes"`
}

type RouteConfig struct {
	Name      string `toml:"Name"`
	Bps       uint64 `toml:"Bps"`
	Recipient string `toml:"Recipient"`
}

type FieldConfig struct {
	// Temperature is the opening steady temperature, 1e6 = 1%.
	Temperature    string `toml:"Temperature"`
	MaxTemperature string `toml:"MaxTemperature"`
	MorningPeakBps uint64 `toml:"MorningPeakBps"`
}

type ConvertConfig struct {
	PenaltyBps        uint64 `toml:"PenaltyBps"`
	BonusBps          uint64 `toml:"BonusBps"`
	CapacityPerSeason string `toml:"CapacityPerSeason"`
}

type GaugeConfig struct {
	// BeanToMaxLpRatio is a percentage, e.g. "50".
	BeanToMaxLpRatio string `toml:"BeanToMaxLpRatio"`
	MaxRateChangeBps uint64 `toml:"MaxRateChangeBps"`
}

type AssetConfig struct {
	Token                string `toml:"Token"`
	Decimals             uint8  `toml:"Decimals"`
	BdvMethod            string `toml:"BdvMethod"`
	IsLP                 bool   `toml:"IsLP"`
	StalkIssuedPerBdv    string `toml:"StalkIssuedPerBdv"`
	StalkEarnedPerSeason uint64 `toml:"StalkEarnedPerSeason"`
	GaugePoints          string `toml:"GaugePoints"`
	OptimalPercent       string `toml:"OptimalPercent"`
}

type WellConfig struct {
	Token        string `toml:"Token"`
	PairToken    string `toml:"PairToken"`
	PairDecimals uint8  `toml:"PairDecimals"`
	FeeBps       uint64 `toml:"FeeBps"`
	BeanReserve  string `toml:"BeanReserve"`
	PairReserve  string `toml:"PairReserve"`
	Provider     string `toml:"Provider"`
}

// PriceConfig seeds the oracle feed with a USD price such as "2500.25".
type PriceConfig struct {
	Token string `toml:"Token"`
	USD   string `toml:"USD"`
}

type BalanceEntry struct {
	Account string `toml:"Account"`
	Token   string `toml:"Token"`
	Amount  string `toml:"Amount"`
}

// LoadGenesis reads the genesis file, writing the default one first when it
// does not exist.
func LoadGenesis(path string) (*Genesis, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefaultGenesis(path)
	}
	g := &Genesis{}
	if _, err := toml.DecodeFile(path, g); err != nil {
		return nil, fmt.Errorf("decode genesis %s: %w", path, err)
	}
	if err := g.Validate(); err != nil {
		return nil, fmt.Errorf("genesis %s: %w", path, err)
	}
	return g, nil
}

// DefaultGenesis is a single BEAN:WETH well deployment suitable for local
// development.
func DefaultGenesis() *Genesis {
	return &Genesis{
		GenesisTime: "2024-01-01T00:00:00Z",
		PlentyToken: "WETH",
		Season: SeasonConfig{
			PeriodSeconds:    3600,
			MaxMint:          "0",
			BaseIncentive:    "5000000",
			MaxIncentiveLate: 300,
			RainDuration:     1,
			FloodWell:        "BEAN:WETH",
			Routes: []RouteConfig{
				{Name: "silo", Bps: 5000},
				{Name: "field", Bps: 5000},
			},
		},
		Field: FieldConfig{
			Temperature:    "1000000",
			MorningPeakBps: 20_000,
		},
		Convert: ConvertConfig{
			PenaltyBps:        1000,
			BonusBps:          500,
			CapacityPerSeason: "0",
		},
		Gauge: GaugeConfig{BeanToMaxLpRatio: "50"},
		Assets: []AssetConfig{
			{
				Token:                "BEAN",
				Decimals:             6,
				BdvMethod:            "bean",
				StalkIssuedPerBdv:    "10000000000",
				StalkEarnedPerSeason: 2_000_000,
				GaugePoints:          "0",
				OptimalPercent:       "0",
			},
			{
				Token:                "BEAN:WETH",
				Decimals:             18,
				BdvMethod:            "well",
				IsLP:                 true,
				StalkIssuedPerBdv:    "10000000000",
				StalkEarnedPerSeason: 4_000_000,
				GaugePoints:          "1000000000000000000000",
				OptimalPercent:       "100000000",
			},
		},
		Wells: []WellConfig{
			{
				Token:        "BEAN:WETH",
				PairToken:    "WETH",
				PairDecimals: 18,
				FeeBps:       30,
				BeanReserve:  "1000000000000",
				PairReserve:  "1000000000000000000000",
			},
		},
		Prices: []PriceConfig{{Token: "WETH", USD: "1000"}},
	}
}

func createDefaultGenesis(path string) (*Genesis, error) {
	g := DefaultGenesis()
	if err := persistGenesis(path, g); err != nil {
		return nil, err
	}
	return g, nil
}

func persistGenesis(path string, g *Genesis) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(g)
}

// Time parses GenesisTime as RFC3339.
func (g *Genesis) Time() (time.Time, error) {
	trimmed := strings.TrimSpace(g.GenesisTime)
	if trimmed == "" {
		return time.Time{}, fmt.Errorf("genesis time required")
	}
	ts, err := time.Parse(time.RFC3339, trimmed)
	if err != nil {
		return time.Time{}, fmt.Errorf("genesis time: %w", err)
	}
	return ts.UTC(), nil
}

// ParseAmount parses a non-negative base unit integer. Empty means zero.
func ParseAmount(raw string) (*big.Int, error) {
	trimmed := strings.ReplaceAll(strings.TrimSpace(raw), "_", "")
	if trimmed == "" {
		return big.NewInt(0), nil
	}
	value, ok := new(big.Int).SetString(trimmed, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", raw)
	}
	if value.Sign() < 0 {
		return nil, fmt.Errorf("negative amount %q", raw)
	}
	return value, nil
}

// ParseUSD converts a decimal dollar string into a 1e6 fixed point price.
func ParseUSD(raw string) (*big.Int, error) {
	rat, ok := new(big.Rat).SetString(strings.TrimSpace(raw))
	if !ok || rat.Sign() <= 0 {
		return nil, fmt.Errorf("invalid usd price %q", raw)
	}
	scaled := new(big.Rat).Mul(rat, new(big.Rat).SetInt64(1_000_000))
	return new(big.Int).Quo(scaled.Num(), scaled.Denom()), nil
}
