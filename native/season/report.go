package season

import (
	"encoding/binary"
	"encoding/hex"
	"math/big"

	"lukechampine.com/blake3"
)

// seal attaches silo totals and the report digest.
func (e *Engine) seal(report *Report) error {
	totals, err := e.silo.Totals()
	if err != nil {
		return err
	}
	report.StalkTotal = new(big.Int).Set(totals.Stalk)
	report.RootsTotal = new(big.Int).Set(totals.Roots)
	report.EarnedBeans = new(big.Int).Set(totals.EarnedBeans)
	report.Digest = Digest(report)
	return nil
}

// Digest hashes the fields of a report that define the resulting state.
// Two nodes replaying the same sunrise produce the same digest.
func Digest(r *Report) string {
	h := blake3.New(32, nil)
	var buf [8]byte
	writeUint := func(v uint64) {
		binary.BigEndian.PutUint64(buf[:], v)
		h.Write(buf[:])
	}
	writeInt := func(v *big.Int) {
		if v == nil {
			v = new(big.Int)
		}
		sign := byte(0)
		if v.Sign() < 0 {
			sign = 1
		}
		b := v.Bytes()
		h.Write([]byte{sign})
		writeUint(uint64(len(b)))
		h.Write(b)
	}
	writeUint(r.Season)
	writeUint(uint64(r.Evaluation.CaseID))
	writeInt(r.Evaluation.DeltaB)
	writeInt(r.Minted)
	for _, s := range r.Shipments {
		writeUint(uint64(len(s.Route)))
		h.Write([]byte(s.Route))
		writeInt(s.Accepted)
	}
	writeInt(r.Soil)
	writeInt(r.Temperature)
	if r.Raining {
		writeUint(1)
	} else {
		writeUint(0)
	}
	if r.Flood != nil {
		writeInt(r.Flood.Amount)
	}
	writeInt(r.Incentive)
	writeInt(r.StalkTotal)
	writeInt(r.RootsTotal)
	writeInt(r.EarnedBeans)
	return hex.EncodeToString(h.Sum(nil))
}
