package crypto

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestAddressBech32RoundTrip(t *testing.T) {
	addr := BytesToAddress([]byte{0xde, 0xad, 0xbe, 0xef})
	encoded := addr.String()
	if !strings.HasPrefix(encoded, AddressPrefix+"1") {
		t.Fatalf("unexpected encoding %s", encoded)
	}
	decoded, err := DecodeAddress(encoded)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded != addr {
		t.Fatalf("round trip mismatch: %x != %x", decoded, addr)
	}

	hexForm, err := DecodeAddress("0x00000000000000000000000000000000deadbeef")
	if err != nil || hexForm != addr {
		t.Fatalf("hex decode = %x (%v)", hexForm, err)
	}
}

func TestDecodeAddressRejectsMalformed(t *testing.T) {
	for _, in := range []string{"", "0x1234", "cosmos1qqqqqq", "bean1notvalid"} {
		if _, err := DecodeAddress(in); err == nil {
			t.Fatalf("expected error for %q", in)
		}
	}
}

func TestModuleAddressIsStable(t *testing.T) {
	if ModuleAddress("silo") != ModuleAddress(" SILO ") {
		t.Fatalf("module address must ignore case and padding")
	}
	if ModuleAddress("silo") == ModuleAddress("field") {
		t.Fatalf("distinct modules must not collide")
	}
	if ModuleAddress("silo").IsZero() {
		t.Fatalf("module address must not be zero")
	}
}

func TestKeystoreRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("scrypt keystore")
	}
	key, err := GeneratePrivateKey()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	path := filepath.Join(t.TempDir(), "keys", "farmer.json")
	if err := SaveKeyFile(path, key, "pass"); err != nil {
		t.Fatalf("save: %v", err)
	}
	loaded, err := LoadKeyFile(path, "pass")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.PubKey().Address() != key.PubKey().Address() {
		t.Fatalf("address mismatch after reload")
	}
	if _, err := LoadKeyFile(path, "wrong"); err == nil {
		t.Fatalf("expected wrong passphrase to fail")
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("key file mode = %v", info.Mode().Perm())
	}

	other, err := GeneratePrivateKey()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if err := SaveKeyFile(path, other, "pass"); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	loaded, err = LoadKeyFile(path, "pass")
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if loaded.PubKey().Address() != other.PubKey().Address() {
		t.Fatalf("overwrite kept the old key")
	}
	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Fatalf("staging files left behind: %d entries", len(entries))
	}
}
