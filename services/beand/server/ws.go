package server

import (
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"strings"
	"time"

	"nhooyr.io/websocket"

	"beanchain/core/types"
	"beanchain/native/season"
)

const (
	wsWriteTimeout = 10 * time.Second
	wsBuffer       = 64
)

// handleEvents streams committed event batches. ?types=silo,season keeps only
// events whose type starts with one of the listed prefixes.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	filter := parseTypeFilter(r.URL.Query().Get("types"))
	// Subscribe before the upgrade so nothing committed after the handshake
	// is missed.
	batches, cancel := s.node.Subscribe(wsBuffer)
	defer cancel()
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: []string{"*"}})
	if err != nil {
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "stream closed")
	ctx := conn.CloseRead(r.Context())
	if err := streamEvents(ctx, conn, batches, filter); err != nil {
		if status := websocket.CloseStatus(err); status == -1 {
			_ = conn.Close(websocket.StatusInternalError, "stream error")
		}
	}
}

func streamEvents(ctx context.Context, conn *websocket.Conn, batches <-chan []*types.Event, filter []string) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case batch, ok := <-batches:
			if !ok {
				return nil
			}
			selected := filterEvents(batch, filter)
			if len(selected) == 0 {
				continue
			}
			if err := writeBatch(ctx, conn, selected); err != nil {
				return err
			}
		}
	}
}

func writeBatch(ctx context.Context, conn *websocket.Conn, batch []*types.Event) error {
	data, err := json.Marshal(batch)
	if err != nil {
		return err
	}
	writeCtx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
	defer cancel()
	return conn.Write(writeCtx, websocket.MessageText, data)
}

func parseTypeFilter(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func filterEvents(batch []*types.Event, prefixes []string) []*types.Event {
	if len(prefixes) == 0 {
		return batch
	}
	out := make([]*types.Event, 0, len(batch))
	for _, evt := range batch {
		for _, prefix := range prefixes {
			if strings.HasPrefix(evt.Type, prefix) {
				out = append(out, evt)
				break
			}
		}
	}
	return out
}

type shipmentView struct {
	Route    string `json:"route"`
	Offered  string `json:"offered"`
	Accepted string `json:"accepted"`
}

type reportView struct {
	Season      uint64         `json:"season"`
	Timestamp   time.Time      `json:"timestamp"`
	Caller      string         `json:"caller"`
	CaseID      int            `json:"case_id"`
	DeltaB      string         `json:"delta_b"`
	Price       string         `json:"price"`
	Excluded    []string       `json:"excluded,omitempty"`
	Minted      string         `json:"minted"`
	Shipments   []shipmentView `json:"shipments"`
	Soil        string         `json:"soil"`
	Temperature string         `json:"temperature"`
	Raining     bool           `json:"raining"`
	Flooded     string         `json:"flooded,omitempty"`
	Incentive   string         `json:"incentive"`
	SecondsLate uint64         `json:"seconds_late"`
	Digest      string         `json:"digest"`
}

func newReportView(r *season.Report) reportView {
	view := reportView{
		Season:      r.Season,
		Timestamp:   r.Timestamp.UTC(),
		Caller:      r.Caller.String(),
		CaseID:      r.Evaluation.CaseID,
		DeltaB:      text(r.Evaluation.DeltaB),
		Price:       text(r.Evaluation.Price),
		Excluded:    r.Evaluation.Excluded,
		Minted:      text(r.Minted),
		Soil:        text(r.Soil),
		Temperature: text(r.Temperature),
		Raining:     r.Raining,
		Incentive:   text(r.Incentive),
		SecondsLate: r.SecondsLate,
		Digest:      r.Digest,
	}
	for _, shipment := range r.Shipments {
		view.Shipments = append(view.Shipments, shipmentView{Route: shipment.Route, Offered: text(shipment.Offered), Accepted: text(shipment.Accepted)})
	}
	if r.Flood != nil {
		view.Flooded = text(r.Flood.Amount)
	}
	return view
}

func text(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}
