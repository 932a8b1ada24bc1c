package ledger

import (
	"crypto/ed25519"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/btcsuite/btcd/btcutil/bech32"
	"golang.org/x/crypto/blake2b"

	"freeswap/pkg/errors"
)

// ed25519AddressType is the version byte prefixed to the pubkey hash before
// bech32 encoding.
const ed25519AddressType = 0x00

var (
	addressPatternsMu sync.Mutex
	addressPatterns   = map[string]*regexp.Regexp{}
)

// addressPattern returns the quick-reject regex for addresses under the given
// human-readable prefix: hrp + "1" + 59 bech32 data characters. Safe for
// concurrent callers.
func addressPattern(hrp string) *regexp.Regexp {
	addressPatternsMu.Lock()
	defer addressPatternsMu.Unlock()

	if re, ok := addressPatterns[hrp]; ok {
		return re
	}
	re := regexp.MustCompile("^" + regexp.QuoteMeta(hrp) + "1[qpzry9x8gf2tvdw0s3jn54khce6mua7l]{59}$")
	addressPatterns[hrp] = re
	return re
}

// ValidateAddress checks the bech32 shape and checksum of addr for the given
// network prefix.
func ValidateAddress(hrp, addr string) error {
	if !addressPattern(hrp).MatchString(addr) {
		return errors.ErrInvalidAddress
	}
	decoded, _, err := bech32.Decode(addr)
	if err != nil {
		return errors.Wrap(errors.ErrInvalidAddress, err.Error())
	}
	if decoded != hrp {
		return errors.ErrInvalidAddress
	}
	return nil
}

// AddressToHex converts a bech32 address to the hex pubkey hash without the
// leading address-type byte.
func AddressToHex(hrp, addr string) (string, error) {
	decodedHRP, data, err := bech32.Decode(addr)
	if err != nil {
		return "", errors.Wrap(errors.ErrInvalidAddress, err.Error())
	}
	if decodedHRP != hrp {
		return "", fmt.Errorf("%w: prefix %q, want %q", errors.ErrInvalidAddress, decodedHRP, hrp)
	}
	raw, err := bech32.ConvertBits(data, 5, 8, false)
	if err != nil {
		return "", errors.Wrap(errors.ErrInvalidAddress, err.Error())
	}
	if len(raw) < 2 {
		return "", errors.ErrInvalidAddress
	}
	return hex.EncodeToString(raw[1:]), nil
}

// EncodeAddress builds the bech32 address for an ed25519 public key: the
// blake2b-256 pubkey hash behind an address-type byte.
func EncodeAddress(hrp string, pub ed25519.PublicKey) (string, error) {
	hash := blake2b.Sum256(pub)
	data := append([]byte{ed25519AddressType}, hash[:]...)
	converted, err := bech32.ConvertBits(data, 8, 5, true)
	if err != nil {
		return "", err
	}
	addr, err := bech32.Encode(hrp, converted)
	if err != nil {
		return "", err
	}
	return strings.ToLower(addr), nil
}

// KeyFromSeed derives the account signing key from the wallet seed.
func KeyFromSeed(seed []byte) (ed25519.PrivateKey, error) {
	if len(seed) < ed25519.SeedSize {
		return nil, fmt.Errorf("seed too short: %d bytes", len(seed))
	}
	return ed25519.NewKeyFromSeed(seed[:ed25519.SeedSize]), nil
}
