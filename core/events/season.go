package events

import (
	"math/big"

	"beanchain/core/types"
	"beanchain/crypto"
)

const (
	TypeSunrise        = "season.sunrise"
	TypeIncentive      = "season.incentive"
	TypeWeather        = "season.weather"
	TypeShipment       = "season.shipment"
	TypeSoil           = "season.soil"
	TypeTemperature    = "season.temperature"
	TypeRain           = "season.rain"
	TypeSeasonOfPlenty = "season.plenty"
	TypeGaugePoints    = "season.gauge"
)

// Sunrise marks the start of a new season.
type Sunrise struct {
	Season    uint64
	Timestamp int64
}

func (Sunrise) EventType() string { return TypeSunrise }

func (e Sunrise) Event() *types.Event {
	return &types.Event{Type: TypeSunrise, Season: e.Season, Attributes: map[string]string{
		"timestamp": formatInt(e.Timestamp),
	}}
}

// Incentive records the beans paid to the sunrise caller.
type Incentive struct {
	Season      uint64
	Account     crypto.Address
	Beans       *big.Int
	SecondsLate uint64
}

func (Incentive) EventType() string { return TypeIncentive }

func (e Incentive) Event() *types.Event {
	return &types.Event{Type: TypeIncentive, Season: e.Season, Attributes: map[string]string{
		"account":     e.Account.String(),
		"beans":       formatAmount(e.Beans),
		"secondsLate": formatUint(e.SecondsLate),
	}}
}

// Weather captures the evaluated case for the season.
type Weather struct {
	Season           uint64
	CaseID           int
	DeltaB           *big.Int
	Price            *big.Int
	TemperatureDelta int64
	RatioDelta       *big.Int
}

func (Weather) EventType() string { return TypeWeather }

func (e Weather) Event() *types.Event {
	return &types.Event{Type: TypeWeather, Season: e.Season, Attributes: map[string]string{
		"caseId":           formatInt(int64(e.CaseID)),
		"deltaB":           formatAmount(e.DeltaB),
		"price":            formatAmount(e.Price),
		"temperatureDelta": formatInt(e.TemperatureDelta),
		"ratioDelta":       formatAmount(e.RatioDelta),
	}}
}

// Shipment records beans delivered to one route.
type Shipment struct {
	Season uint64
	Route  string
	Amount *big.Int
}

func (Shipment) EventType() string { return TypeShipment }

func (e Shipment) Event() *types.Event {
	return &types.Event{Type: TypeShipment, Season: e.Season, Attributes: map[string]string{
		"route":  e.Route,
		"amount": formatAmount(e.Amount),
	}}
}

type Soil struct {
	Season uint64
	Soil   *big.Int
}

func (Soil) EventType() string { return TypeSoil }

func (e Soil) Event() *types.Event {
	return &types.Event{Type: TypeSoil, Season: e.Season, Attributes: map[string]string{
		"soil": formatAmount(e.Soil),
	}}
}

type Temperature struct {
	Season      uint64
	Temperature *big.Int
}

func (Temperature) EventType() string { return TypeTemperature }

func (e Temperature) Event() *types.Event {
	return &types.Event{Type: TypeTemperature, Season: e.Season, Attributes: map[string]string{
		"temperature": formatAmount(e.Temperature),
	}}
}

type Rain struct {
	Season  uint64
	Raining bool
}

func (Rain) EventType() string { return TypeRain }

func (e Rain) Event() *types.Event {
	raining := "false"
	if e.Raining {
		raining = "true"
	}
	return &types.Event{Type: TypeRain, Season: e.Season, Attributes: map[string]string{
		"raining": raining,
	}}
}

// SeasonOfPlenty records a flood distribution.
type SeasonOfPlenty struct {
	Season uint64
	Well   string
	Token  string
	Beans  *big.Int
	Amount *big.Int
}

func (SeasonOfPlenty) EventType() string { return TypeSeasonOfPlenty }

func (e SeasonOfPlenty) Event() *types.Event {
	return &types.Event{Type: TypeSeasonOfPlenty, Season: e.Season, Attributes: map[string]string{
		"well":   normalizeAsset(e.Well),
		"token":  normalizeAsset(e.Token),
		"beans":  formatAmount(e.Beans),
		"amount": formatAmount(e.Amount),
	}}
}

// GaugePoints records a per-asset gauge point update.
type GaugePoints struct {
	Season uint64
	Token  string
	Points *big.Int
}

func (GaugePoints) EventType() string { return TypeGaugePoints }

func (e GaugePoints) Event() *types.Event {
	return &types.Event{Type: TypeGaugePoints, Season: e.Season, Attributes: map[string]string{
		"token":  normalizeAsset(e.Token),
		"points": formatAmount(e.Points),
	}}
}
