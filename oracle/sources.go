package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"beanchain/core/types"
)

const defaultCoinGeckoEndpoint = "https://api.coingecko.com/api/v3/simple/price"

// SourceConfig describes one configured price source.
type SourceConfig struct {
	Name     string
	Type     string
	Endpoint string
	// Assets maps token symbols to upstream ids (coingecko) or fixed decimal
	// prices (static).
	Assets map[string]string
}

// BuildSource constructs a source from configuration.
func BuildSource(client *http.Client, cfg SourceConfig) (Source, error) {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Type)) {
	case "coingecko":
		return NewCoinGeckoSource(client, label(cfg.Name, "coingecko"), cfg.Endpoint, cfg.Assets), nil
	case "static":
		return NewStaticSource(label(cfg.Name, "static"), cfg.Assets)
	default:
		return nil, fmt.Errorf("unknown oracle type %q", cfg.Type)
	}
}

func label(name, fallback string) string {
	if trimmed := strings.TrimSpace(name); trimmed != "" {
		return trimmed
	}
	return fallback
}

// CoinGeckoSource reads the simple price API.
type CoinGeckoSource struct {
	name     string
	client   *http.Client
	endpoint string
	ids      map[string]string
}

func NewCoinGeckoSource(client *http.Client, name, endpoint string, ids map[string]string) *CoinGeckoSource {
	ep := strings.TrimSpace(endpoint)
	if ep == "" {
		ep = defaultCoinGeckoEndpoint
	}
	mapped := make(map[string]string, len(ids))
	for k, v := range ids {
		mapped[types.NormalizeToken(k)] = strings.TrimSpace(v)
	}
	return &CoinGeckoSource{name: name, client: client, endpoint: ep, ids: mapped}
}

func (s *CoinGeckoSource) Name() string { return s.name }

func (s *CoinGeckoSource) assetID(token string) string {
	if id, ok := s.ids[types.NormalizeToken(token)]; ok && id != "" {
		return id
	}
	return strings.ToLower(strings.TrimSpace(token))
}

func (s *CoinGeckoSource) Fetch(ctx context.Context, token string) (Quote, error) {
	id := s.assetID(token)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.endpoint, nil)
	if err != nil {
		return Quote{}, err
	}
	values := url.Values{}
	values.Set("ids", id)
	values.Set("vs_currencies", "usd")
	values.Set("include_last_updated_at", "true")
	req.URL.RawQuery = values.Encode()
	resp, err := s.client.Do(req)
	if err != nil {
		return Quote{}, err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Quote{}, fmt.Errorf("coingecko: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	decoder := json.NewDecoder(resp.Body)
	decoder.UseNumber()
	var payload map[string]map[string]json.Number
	if err := decoder.Decode(&payload); err != nil {
		return Quote{}, fmt.Errorf("coingecko: decode: %w", err)
	}
	entry, ok := payload[id]
	if !ok {
		return Quote{}, fmt.Errorf("coingecko: quote missing for %s", token)
	}
	raw := strings.TrimSpace(entry["usd"].String())
	if raw == "" {
		return Quote{}, fmt.Errorf("coingecko: empty price for %s", token)
	}
	price, ok := new(big.Rat).SetString(raw)
	if !ok {
		return Quote{}, fmt.Errorf("coingecko: invalid price %q", raw)
	}
	ts := time.Now()
	if updated := entry["last_updated_at"].String(); updated != "" {
		if unix, err := strconv.ParseInt(updated, 10, 64); err == nil && unix > 0 {
			ts = time.Unix(unix, 0)
		}
	}
	return Quote{Price: price, Timestamp: ts}, nil
}

// StaticSource serves fixed prices, for development networks.
type StaticSource struct {
	name   string
	prices map[string]*big.Rat
	now    func() time.Time
}

func NewStaticSource(name string, prices map[string]string) (*StaticSource, error) {
	parsed := make(map[string]*big.Rat, len(prices))
	for token, raw := range prices {
		price, ok := new(big.Rat).SetString(strings.TrimSpace(raw))
		if !ok || price.Sign() <= 0 {
			return nil, fmt.Errorf("static source: invalid price %q for %s", raw, token)
		}
		parsed[types.NormalizeToken(token)] = price
	}
	return &StaticSource{name: name, prices: parsed, now: time.Now}, nil
}

func (s *StaticSource) Name() string { return s.name }

func (s *StaticSource) Fetch(_ context.Context, token string) (Quote, error) {
	price, ok := s.prices[types.NormalizeToken(token)]
	if !ok {
		return Quote{}, fmt.Errorf("static source: no price for %s", token)
	}
	return Quote{Price: new(big.Rat).Set(price), Timestamp: s.now()}, nil
}
