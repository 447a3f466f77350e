package events

import (
	"math/big"
	"testing"

	"beanchain/crypto"
)

func TestBankEvents(t *testing.T) {
	silo := crypto.ModuleAddress("silo")
	mint := Mint{Token: "bean", To: silo, Amount: big.NewInt(250), Supply: big.NewInt(5000)}.Event()
	if mint.Type != TypeMint {
		t.Fatalf("unexpected type: %s", mint.Type)
	}
	if mint.Attributes["token"] != "BEAN" || mint.Attributes["amount"] != "250" || mint.Attributes["supply"] != "5000" {
		t.Fatalf("unexpected mint attrs: %+v", mint.Attributes)
	}
	if mint.Attributes["account"] != silo.String() {
		t.Fatalf("unexpected account: %s", mint.Attributes["account"])
	}

	burn := Burn{Token: "BEAN", Amount: big.NewInt(1)}.Event()
	if _, ok := burn.Attributes["account"]; ok {
		t.Fatalf("zero account should be omitted: %+v", burn.Attributes)
	}
	if burn.Attributes["supply"] != "0" {
		t.Fatalf("nil supply should render as 0: %+v", burn.Attributes)
	}

	transfer := Transfer{Token: "bean:weth", From: silo, To: crypto.ModuleAddress("field"), Amount: big.NewInt(9)}.Event()
	if transfer.Type != TypeTransfer || transfer.Attributes["token"] != "BEAN:WETH" || transfer.Attributes["amount"] != "9" {
		t.Fatalf("unexpected transfer %+v", transfer)
	}
}

func TestBufferDrainAndRender(t *testing.T) {
	var buf Buffer
	buf.Emit(Mint{Token: "BEAN", Amount: big.NewInt(1), Supply: big.NewInt(1)})
	buf.Emit(nil)
	buf.Emit(Sunrise{Season: 7, Timestamp: 3600})
	drained := buf.Drain()
	if len(drained) != 2 {
		t.Fatalf("expected 2 events, got %d", len(drained))
	}
	if len(buf.Drain()) != 0 {
		t.Fatalf("expected buffer to be empty after drain")
	}
	rendered := Render(7, drained)
	if len(rendered) != 2 {
		t.Fatalf("expected 2 rendered events, got %d", len(rendered))
	}
	for _, evt := range rendered {
		if evt.Season != 7 {
			t.Fatalf("expected season stamped on %s", evt.Type)
		}
	}
}
