// identity.go - Normalized bidder/owner identities and the privilege policy.

package auction

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/adrianvrj/zk-sealed-cattle/internal/commitment"
)

// Identity is a fixed-width account identity on the authoritative ledger.
// Two textual addresses differing only by case, 0x prefix or leading-zero
// padding normalize to the same Identity.
type Identity struct {
	v *big.Int
}

// ParseIdentity parses a hex ("0x...") or decimal identity string.
// The value must be representable in the commitment hash field.
func ParseIdentity(s string) (Identity, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Identity{}, fmt.Errorf("empty identity")
	}
	v := new(big.Int)
	var ok bool
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		_, ok = v.SetString(s[2:], 16)
	} else {
		_, ok = v.SetString(s, 10)
	}
	if !ok || v.Sign() < 0 {
		return Identity{}, fmt.Errorf("invalid identity %q", s)
	}
	if v.Cmp(commitment.Modulus()) >= 0 {
		return Identity{}, fmt.Errorf("identity %q exceeds the field", s)
	}
	return Identity{v: v}, nil
}

// MustIdentity parses an identity and panics on failure. For tests and
// static configuration only.
func MustIdentity(s string) Identity {
	id, err := ParseIdentity(s)
	if err != nil {
		panic(err)
	}
	return id
}

// BigInt returns a copy of the identity's field value.
func (id Identity) BigInt() *big.Int {
	if id.v == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(id.v)
}

// Key returns the canonical storage key for this identity: lowercase hex
// with a 0x prefix and no leading zeros.
func (id Identity) Key() string {
	if id.v == nil || id.v.Sign() == 0 {
		return "0x0"
	}
	return "0x" + id.v.Text(16)
}

func (id Identity) String() string { return id.Key() }

// Equal reports whether two identities denote the same account.
func (id Identity) Equal(other Identity) bool {
	return id.Key() == other.Key()
}

// IsZero reports whether the identity is unset (or the zero address).
func (id Identity) IsZero() bool {
	return id.v == nil || id.v.Sign() == 0
}

// Privileged is the configured set of identities allowed to create and
// finalize lots.
type Privileged struct {
	keys map[string]struct{}
}

// NewPrivileged builds the policy from the given identities.
func NewPrivileged(ids ...Identity) *Privileged {
	p := &Privileged{keys: make(map[string]struct{}, len(ids))}
	for _, id := range ids {
		p.keys[id.Key()] = struct{}{}
	}
	return p
}

// Allows reports whether the identity may perform privileged operations.
func (p *Privileged) Allows(id Identity) bool {
	if p == nil {
		return false
	}
	_, ok := p.keys[id.Key()]
	return ok
}
