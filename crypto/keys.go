package crypto

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/btcsuite/btcutil/bech32"
	"github.com/ethereum/go-ethereum/crypto"
)

// AddressPrefix is the human-readable part of every bech32 encoded account.
const AddressPrefix = "bean"

// AddressLength is the number of raw bytes backing an Address.
const AddressLength = 20

// Address identifies a ledger account or module. The zero value is the burn
// address and never owns deposits.
type Address [AddressLength]byte

// BytesToAddress copies the trailing 20 bytes of b into an Address.
func BytesToAddress(b []byte) Address {
	var a Address
	if len(b) > AddressLength {
		b = b[len(b)-AddressLength:]
	}
	copy(a[AddressLength-len(b):], b)
	return a
}

// ModuleAddress derives the deterministic custody address of a protocol
// module such as the silo or the field.
func ModuleAddress(name string) Address {
	digest := crypto.Keccak256([]byte("module:" + strings.ToLower(strings.TrimSpace(name))))
	return BytesToAddress(digest[12:])
}

func (a Address) String() string {
	conv, err := bech32.ConvertBits(a[:], 8, 5, true)
	if err != nil {
		panic(err)
	}
	encoded, err := bech32.Encode(AddressPrefix, conv)
	if err != nil {
		panic(err)
	}
	return encoded
}

// Bytes returns a copy of the raw address bytes.
func (a Address) Bytes() []byte {
	out := make([]byte, AddressLength)
	copy(out, a[:])
	return out
}

// IsZero reports whether the address is unset.
func (a Address) IsZero() bool {
	return a == Address{}
}

// Less orders addresses bytewise so indexes iterate deterministically.
func (a Address) Less(other Address) bool {
	return bytes.Compare(a[:], other[:]) < 0
}

// MarshalText renders the bech32 form for JSON payloads.
func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText parses bech32 or 0x-prefixed hex addresses.
func (a *Address) UnmarshalText(text []byte) error {
	parsed, err := DecodeAddress(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// DecodeAddress accepts either the bech32 `bean1...` form or a 0x hex string.
func DecodeAddress(addrStr string) (Address, error) {
	trimmed := strings.TrimSpace(addrStr)
	if strings.HasPrefix(trimmed, "0x") || strings.HasPrefix(trimmed, "0X") {
		raw, err := decodeHex(trimmed[2:])
		if err != nil {
			return Address{}, err
		}
		return BytesToAddress(raw), nil
	}
	prefix, decoded, err := bech32.Decode(trimmed)
	if err != nil {
		return Address{}, fmt.Errorf("invalid bech32 string: %w", err)
	}
	if prefix != AddressPrefix {
		return Address{}, fmt.Errorf("unexpected address prefix %q", prefix)
	}
	conv, err := bech32.ConvertBits(decoded, 5, 8, false)
	if err != nil {
		return Address{}, fmt.Errorf("error converting bits: %w", err)
	}
	if len(conv) != AddressLength {
		return Address{}, fmt.Errorf("address must be %d bytes long", AddressLength)
	}
	return BytesToAddress(conv), nil
}

// MustDecodeAddress is DecodeAddress for constants and tests.
func MustDecodeAddress(addrStr string) Address {
	addr, err := DecodeAddress(addrStr)
	if err != nil {
		panic(err)
	}
	return addr
}

func decodeHex(s string) ([]byte, error) {
	if len(s) != AddressLength*2 {
		return nil, fmt.Errorf("hex address must be %d characters", AddressLength*2)
	}
	return hex.DecodeString(s)
}

// --- Key Management ---

type PrivateKey struct {
	*ecdsa.PrivateKey
}

type PublicKey struct {
	*ecdsa.PublicKey
}

func GeneratePrivateKey() (*PrivateKey, error) {
	key, err := ecdsa.GenerateKey(crypto.S256(), rand.Reader)
	if err != nil {
		return nil, err
	}
	return &PrivateKey{key}, nil
}

// Bytes returns the byte representation of the private key.
func (k *PrivateKey) Bytes() []byte {
	return crypto.FromECDSA(k.PrivateKey)
}

func (k *PrivateKey) PubKey() *PublicKey {
	return &PublicKey{&k.PrivateKey.PublicKey}
}

// Address derives the ledger account controlled by the key.
func (k *PublicKey) Address() Address {
	return Address(crypto.PubkeyToAddress(*k.PublicKey))
}

func PrivateKeyFromBytes(b []byte) (*PrivateKey, error) {
	key, err := crypto.ToECDSA(b)
	if err != nil {
		return nil, err
	}
	return &PrivateKey{key}, nil
}
