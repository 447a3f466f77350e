package season

import (
	"math/big"

	"beanchain/core/types"
	"beanchain/crypto"
)

// PaybackReceiver mints its whole shipment to a fixed address.
type PaybackReceiver struct {
	bank      Bank
	recipient crypto.Address
}

func NewPaybackReceiver(bank Bank, recipient crypto.Address) *PaybackReceiver {
	return &PaybackReceiver{bank: bank, recipient: recipient}
}

func (p *PaybackReceiver) ReceiveShipment(_ string, amount *big.Int) (*big.Int, error) {
	if amount == nil || amount.Sign() <= 0 {
		return big.NewInt(0), nil
	}
	if err := p.bank.Mint(types.BeanToken, p.recipient, amount); err != nil {
		return nil, err
	}
	return new(big.Int).Set(amount), nil
}

func (e *Engine) receiver(route Route) ShipmentReceiver {
	if r, ok := e.receivers[route.Name]; ok {
		return r
	}
	switch route.Name {
	case RouteSilo:
		return e.silo
	case RouteField:
		return e.field
	case RoutePayback:
		return NewPaybackReceiver(e.bank, route.Recipient)
	}
	return nil
}

// ship splits minted across the routes. The Field goes first and whatever it
// cannot take, along with rounding dust, lands in the Silo.
func (e *Engine) ship(season uint64, minted *big.Int) ([]ShipmentResult, *big.Int, error) {
	fieldAccepted := big.NewInt(0)
	if minted.Sign() == 0 {
		return nil, fieldAccepted, nil
	}
	shares := make(map[string]*big.Int, len(e.params.Routes))
	routes := make(map[string]Route, len(e.params.Routes))
	allocated := new(big.Int)
	for _, route := range e.params.Routes {
		share := new(big.Int).Mul(minted, new(big.Int).SetUint64(route.Bps))
		share.Quo(share, big.NewInt(10_000))
		shares[route.Name] = share
		routes[route.Name] = route
		allocated.Add(allocated, share)
	}
	leftover := new(big.Int).Sub(minted, allocated)

	var results []ShipmentResult
	deliver := func(route Route, offered *big.Int) (*big.Int, error) {
		if offered.Sign() == 0 {
			return big.NewInt(0), nil
		}
		accepted, err := e.receiver(route).ReceiveShipment(route.Name, offered)
		if err != nil {
			return nil, err
		}
		if accepted.Cmp(offered) > 0 {
			accepted = new(big.Int).Set(offered)
		}
		results = append(results, ShipmentResult{Route: route.Name, Offered: new(big.Int).Set(offered), Accepted: new(big.Int).Set(accepted)})
		return accepted, nil
	}

	if share, ok := shares[RouteField]; ok {
		accepted, err := deliver(routes[RouteField], share)
		if err != nil {
			return nil, nil, err
		}
		fieldAccepted = accepted
		leftover.Add(leftover, new(big.Int).Sub(share, accepted))
	}
	if share, ok := shares[RoutePayback]; ok {
		if _, err := deliver(routes[RoutePayback], share); err != nil {
			return nil, nil, err
		}
	}
	siloRoute, ok := routes[RouteSilo]
	if !ok {
		siloRoute = Route{Name: RouteSilo}
	}
	siloOffer := new(big.Int).Set(leftover)
	if share, ok := shares[RouteSilo]; ok {
		siloOffer.Add(siloOffer, share)
	}
	accepted, err := deliver(siloRoute, siloOffer)
	if err != nil {
		return nil, nil, err
	}
	if dropped := new(big.Int).Sub(siloOffer, accepted); dropped.Sign() > 0 {
		e.logger.Warn("silo declined shipment", "season", season, "amount", dropped.String())
	}
	return results, fieldAccepted, nil
}
