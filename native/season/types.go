package season

import (
	"math/big"
	"time"

	"beanchain/crypto"
)

// Phase is the step a sunrise is currently executing.
type Phase int32

const (
	PhaseIdle Phase = iota
	PhaseEvaluating
	PhaseMinting
	PhaseDistributing
)

func (p Phase) String() string {
	switch p {
	case PhaseEvaluating:
		return "evaluating"
	case PhaseMinting:
		return "minting"
	case PhaseDistributing:
		return "distributing"
	default:
		return "idle"
	}
}

// DefaultPeriod is the season length in seconds.
const DefaultPeriod uint64 = 3600

// Status is the persisted season clock and rain state.
type Status struct {
	Current       uint64
	GenesisTime   uint64
	Period        uint64
	SunriseTime   uint64
	Raining       bool
	RainStart     uint64
	LastSopSeason uint64
	AbovePeg      bool
}

func (s *Status) ensure() {
	if s.Current == 0 {
		s.Current = 1
	}
	if s.Period == 0 {
		s.Period = DefaultPeriod
	}
}

// Clone returns a copy of the status.
func (s *Status) Clone() *Status {
	if s == nil {
		return nil
	}
	clone := *s
	return &clone
}

// Start returns the unix time season n begins.
func (s *Status) Start(n uint64) uint64 {
	if n == 0 {
		return s.GenesisTime
	}
	return s.GenesisTime + (n-1)*s.Period
}

// NextSunrise is the earliest time the next season may begin.
func (s *Status) NextSunrise() uint64 {
	return s.Start(s.Current + 1)
}

// Weather is the persisted result of the last evaluation.
type Weather struct {
	Season      uint64
	CaseID      uint64
	DeltaB      *big.Int
	BelowPeg    bool
	Price       *big.Int
	PodRate     *big.Int
	L2SR        *big.Int
	Temperature *big.Int
}

// Signed returns deltaB with its sign restored.
func (w *Weather) Signed() *big.Int {
	if w == nil || w.DeltaB == nil {
		return big.NewInt(0)
	}
	out := new(big.Int).Set(w.DeltaB)
	if w.BelowPeg {
		out.Neg(out)
	}
	return out
}

// Route names understood by the shipment planner.
const (
	RouteSilo    = "silo"
	RouteField   = "field"
	RoutePayback = "payback"
)

// Route sends Bps of every mint to a receiver. Payback routes carry the
// recipient address.
type Route struct {
	Name      string
	Bps       uint64
	Recipient crypto.Address
}

// ShipmentResult is what one route was offered and what it kept.
type ShipmentResult struct {
	Route    string
	Offered  *big.Int
	Accepted *big.Int
}

// Evaluation summarises the observed economy for one sunrise.
type Evaluation struct {
	DeltaB     *big.Int
	Price      *big.Int
	MaxPrice   *big.Int
	Liquidity  *big.Int
	BeanSupply *big.Int
	PodRate    *big.Int
	L2SR       *big.Int
	Excluded   []string
	PriceLevel int
	DebtLevel  int
	L2SRLevel  int
	Demand     int
	CaseID     int
}

// Report is the record of one completed sunrise.
type Report struct {
	Season      uint64
	Timestamp   time.Time
	Caller      crypto.Address
	Evaluation  Evaluation
	Case        Case
	Minted      *big.Int
	Shipments   []ShipmentResult
	Soil        *big.Int
	Temperature *big.Int
	Raining     bool
	Flood       *Flood
	Incentive   *big.Int
	SecondsLate uint64
	StalkTotal  *big.Int
	RootsTotal  *big.Int
	EarnedBeans *big.Int
	Digest      string
}

// Flood records a season of plenty.
type Flood struct {
	Well   string
	Token  string
	Beans  *big.Int
	Amount *big.Int
}
