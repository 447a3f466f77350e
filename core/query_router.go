package core

import (
	"encoding/json"
	"fmt"
	"strings"

	"beanchain/crypto"
)

// QueryState resolves a read-only namespace/path pair against the ledger and
// returns the JSON encoded result. It backs the generic query endpoint.
func (n *Node) QueryState(namespace, key string) (*QueryResult, error) {
	if n == nil {
		return nil, fmt.Errorf("node unavailable")
	}
	ns := strings.TrimSpace(strings.ToLower(namespace))
	path := strings.Trim(strings.TrimSpace(key), "/")
	var (
		value any
		err   error
	)
	switch ns {
	case "silo":
		value, err = n.querySilo(path)
	case "season":
		value, err = n.querySeason(path)
	case "field":
		value, err = n.queryField(path)
	case "well":
		value, err = n.queryWell(path)
	default:
		return nil, ErrQueryNotSupported
	}
	if err != nil {
		return nil, err
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	return &QueryResult{Value: payload}, nil
}

func (n *Node) querySilo(path string) (any, error) {
	parts := strings.Split(path, "/")
	switch {
	case path == "assets":
		return n.Assets()
	case path == "totals":
		return n.SiloTotals()
	case parts[0] == "assets" && len(parts) == 2:
		return n.Asset(parts[1])
	case parts[0] == "tip" && len(parts) == 2:
		return n.StemTip(parts[1])
	case parts[0] == "accounts" && len(parts) == 2:
		addr, err := decodeQueryAddress(parts[1])
		if err != nil {
			return nil, err
		}
		return n.Account(addr)
	case parts[0] == "deposits" && len(parts) == 3:
		addr, err := decodeQueryAddress(parts[1])
		if err != nil {
			return nil, err
		}
		return n.GetDeposits(addr, parts[2])
	default:
		return nil, ErrQueryNotSupported
	}
}

func (n *Node) querySeason(path string) (any, error) {
	switch path {
	case "status":
		return n.SeasonStatus()
	case "weather":
		return n.Weather()
	case "params":
		return n.SeasonParams(), nil
	default:
		return nil, ErrQueryNotSupported
	}
}

func (n *Node) queryField(path string) (any, error) {
	parts := strings.Split(path, "/")
	switch {
	case path == "status":
		return n.FieldStatus()
	case path == "temperature":
		return n.Temperature()
	case parts[0] == "plots" && len(parts) == 2:
		addr, err := decodeQueryAddress(parts[1])
		if err != nil {
			return nil, err
		}
		return n.Plots(addr)
	default:
		return nil, ErrQueryNotSupported
	}
}

func (n *Node) queryWell(path string) (any, error) {
	parts := strings.Split(path, "/")
	switch {
	case path == "pools":
		return n.Pools()
	case parts[0] == "pools" && len(parts) == 2:
		return n.Pool(parts[1])
	default:
		return nil, ErrQueryNotSupported
	}
}

func decodeQueryAddress(input string) (crypto.Address, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return crypto.Address{}, fmt.Errorf("address required")
	}
	addr, err := crypto.DecodeAddress(trimmed)
	if err != nil {
		return crypto.Address{}, fmt.Errorf("invalid address %q: %w", trimmed, err)
	}
	return addr, nil
}
