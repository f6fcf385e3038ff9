package cacheme

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"strings"
)

// Tier selects the cache category a key belongs to. Table tiers hold
// whole-table scans and carry no fingerprint segment; queryset tiers hold
// filtered queries keyed by statement fingerprint. Permanent variants are
// exempt from automatic invalidation on mutation.
type Tier string

const (
	TierTable             Tier = "table"
	TierQueryset          Tier = "queryset"
	TierPermanentTable    Tier = "permanent_table"
	TierPermanentQueryset Tier = "permanent_queryset"
)

// Permanent reports whether the tier survives mutation-driven invalidation.
func (t Tier) Permanent() bool {
	return t == TierPermanentTable || t == TierPermanentQueryset
}

// fingerprinted reports whether keys in this tier carry a query fingerprint.
func (t Tier) fingerprinted() bool {
	return t == TierQueryset || t == TierPermanentQueryset
}

// tierFor maps query shape and the caller's permanent request to a tier.
func tierFor(filtered, permanent bool) Tier {
	switch {
	case filtered && permanent:
		return TierPermanentQueryset
	case filtered:
		return TierQueryset
	case permanent:
		return TierPermanentTable
	default:
		return TierTable
	}
}

// fingerprintLen is the number of hex characters kept from the digest.
const fingerprintLen = 32

// KeyBuilder derives deterministic cache keys with the grammar
// <namespace>:<tier>:<entity>[:<fingerprint>]. Entity identifiers are
// lowercase "app.model"-style strings. External tooling may parse or
// pattern-match the produced keys.
type KeyBuilder struct {
	ns string
}

func NewKeyBuilder(namespace string) *KeyBuilder {
	return &KeyBuilder{ns: namespace}
}

// Build derives the key for one entity/tier pair. Queryset tiers require the
// normalized query representation; table tiers ignore it.
func (b *KeyBuilder) Build(entity string, tier Tier, q *QueryRepr) (string, error) {
	entity = normalizeEntity(entity)
	if entity == "" {
		return "", &ConfigError{Field: "entity", Reason: "empty identifier"}
	}
	if !tier.fingerprinted() {
		return b.ns + ":" + string(tier) + ":" + entity, nil
	}
	if q == nil {
		return "", &ConfigError{Field: "query", Reason: fmt.Sprintf("tier %q requires a query representation", tier)}
	}
	return b.ns + ":" + string(tier) + ":" + entity + ":" + Fingerprint(*q), nil
}

// Pattern returns the glob usable for bulk deletion of an entity's keys in
// the given tier. Table tiers match a single exact key; queryset tiers match
// every fingerprint.
func (b *KeyBuilder) Pattern(entity string, tier Tier) string {
	entity = normalizeEntity(entity)
	p := b.ns + ":" + string(tier) + ":" + entity
	if tier.fingerprinted() {
		p += ":*"
	}
	return p
}

// Fingerprint hashes a normalized query representation into a stable
// 32-hex-char digest. Two calls agree iff statement and bound parameter
// values match in positional order - the guarantee that makes cache hits and
// invalidation-by-recompute line up. Each value is rendered with its dynamic
// type so equal renderings of different types (int 1, string "1") stay
// distinct bindings.
func Fingerprint(q QueryRepr) string {
	h := sha256.New()
	io.WriteString(h, q.Statement)
	for _, a := range q.Args {
		h.Write([]byte{0x1f}) // unit separator between bound values
		fmt.Fprintf(h, "%T\x1f%v", a, a)
	}
	return hex.EncodeToString(h.Sum(nil))[:fingerprintLen]
}

func normalizeEntity(entity string) string {
	return strings.ToLower(strings.TrimSpace(entity))
}
