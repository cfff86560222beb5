// Package txid generates and verifies wallet transaction identifiers of
// the form PREFIX-TIMESTAMP-RANDOM-CHECKSUM, e.g.
// BUY-20260825143015-3FA9C21B4D-7. The checksum makes accidental
// truncation or edits detectable without any server-side lookup.
package txid

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"strings"
	"time"

	"github.com/pkg/errors"
)

const (
	timestampLayout = "20060102150405"
	randomBytes     = 5
	hexUpper        = "0123456789ABCDEF"
)

// Known operation kinds.
const (
	KindBuy      = "buy"
	KindSell     = "sell"
	KindAddFunds = "add_funds"
)

var prefixes = map[string]string{
	KindBuy:      "BUY",
	KindSell:     "SEL",
	KindAddFunds: "ADD",
}

var knownPrefixes = map[string]struct{}{
	"BUY": {},
	"SEL": {},
	"ADD": {},
	"TXN": {},
}

// Generator produces transaction IDs. The zero value is not usable; use New.
type Generator struct {
	now  func() time.Time
	rand io.Reader
}

// Option configures a Generator.
type Option func(*Generator)

// WithClock fixes the timestamp source, for deterministic tests.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) {
		g.now = now
	}
}

// WithRand fixes the randomness source, for deterministic tests.
func WithRand(r io.Reader) Option {
	return func(g *Generator) {
		g.rand = r
	}
}

// New creates a Generator backed by the system clock and crypto/rand.
func New(opts ...Option) *Generator {
	g := &Generator{
		now:  time.Now,
		rand: rand.Reader,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate returns a new transaction ID for the given operation kind.
// Unrecognized kinds fall back to the generic TXN prefix.
func (g *Generator) Generate(kind string) (string, error) {
	prefix, ok := prefixes[kind]
	if !ok {
		prefix = "TXN"
	}

	buf := make([]byte, randomBytes)
	if _, err := io.ReadFull(g.rand, buf); err != nil {
		return "", errors.Wrap(err, "read random bytes")
	}

	base := prefix + "-" + g.now().UTC().Format(timestampLayout) + "-" + strings.ToUpper(hex.EncodeToString(buf))

	return base + "-" + checksum(base), nil
}

// Valid reports whether id is structurally well-formed and its checksum
// matches. Any deviation from the expected shape makes it invalid.
func Valid(id string) bool {
	parts := strings.Split(id, "-")
	if len(parts) != 4 {
		return false
	}

	if _, ok := knownPrefixes[parts[0]]; !ok {
		return false
	}
	if !isDigits(parts[1]) || len(parts[1]) != timestampDigits {
		return false
	}
	if !isUpperHex(parts[2]) || len(parts[2]) != randomBytes*2 {
		return false
	}

	return checksum(parts[0]+"-"+parts[1]+"-"+parts[2]) == parts[3]
}

const timestampDigits = 14

// checksum is the first hex digit of the SHA-256 of the joined prefix,
// timestamp and random components.
func checksum(base string) string {
	sum := sha256.Sum256([]byte(base))
	return string(hexUpper[sum[0]>>4])
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func isUpperHex(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if (r < '0' || r > '9') && (r < 'A' || r > 'F') {
			return false
		}
	}
	return true
}
