package txid

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestGenerateRoundTrip(t *testing.T) {
	gen := New()
	for _, kind := range []string{KindBuy, KindSell, KindAddFunds, "mystery"} {
		id, err := gen.Generate(kind)
		require.NoError(t, err)
		require.True(t, Valid(id), "generated id should verify: %s", id)
	}
}

func TestGenerateFormat(t *testing.T) {
	fixed := time.Date(2026, 8, 25, 14, 30, 15, 0, time.UTC)
	gen := New(
		WithClock(func() time.Time { return fixed }),
		WithRand(bytes.NewReader([]byte{0x3f, 0xa9, 0xc2, 0x1b, 0x4d})),
	)

	id, err := gen.Generate(KindBuy)
	require.NoError(t, err)

	parts := strings.Split(id, "-")
	require.Len(t, parts, 4)
	require.Equal(t, "BUY", parts[0])
	require.Equal(t, "20260825143015", parts[1])
	require.Equal(t, "3FA9C21B4D", parts[2])
	require.Len(t, parts[3], 1)
	require.True(t, Valid(id))
}

func TestGeneratePrefixes(t *testing.T) {
	gen := New()

	cases := map[string]string{
		KindBuy:      "BUY",
		KindSell:     "SEL",
		KindAddFunds: "ADD",
		"other":      "TXN",
		"":           "TXN",
	}
	for kind, prefix := range cases {
		id, err := gen.Generate(kind)
		require.NoError(t, err)
		require.True(t, strings.HasPrefix(id, prefix+"-"), "kind %q: %s", kind, id)
	}
}

func TestValidRejectsTampering(t *testing.T) {
	gen := New()
	id, err := gen.Generate(KindSell)
	require.NoError(t, err)
	require.True(t, Valid(id))

	// flipping the checksum character always invalidates
	tampered := id[:len(id)-1] + flipHex(id[len(id)-1])
	require.False(t, Valid(tampered))

	// exactly one of the 16 possible checksum characters validates
	base := id[:len(id)-2]
	validCount := 0
	for _, c := range "0123456789ABCDEF" {
		if Valid(base + "-" + string(c)) {
			validCount++
		}
	}
	require.Equal(t, 1, validCount)

	// a flipped random character invalidates unless the single-digit
	// checksum happens to collide, in which case the old checksum no
	// longer matches the original components
	parts := strings.Split(id, "-")
	mutated := []byte(parts[2])
	mutated[0] = flipHex(mutated[0])[0]
	mutatedBase := parts[0] + "-" + parts[1] + "-" + string(mutated)
	if checksum(mutatedBase) != parts[3] {
		require.False(t, Valid(mutatedBase+"-"+parts[3]))
	}
}

func TestValidRejectsStructuralDeviations(t *testing.T) {
	gen := New()
	id, err := gen.Generate(KindAddFunds)
	require.NoError(t, err)

	require.False(t, Valid(""))
	require.False(t, Valid("ADD"))
	require.False(t, Valid(strings.Replace(id, "-", "_", 1)))
	require.False(t, Valid(id+"-EXTRA"))
	require.False(t, Valid(strings.Replace(id, "ADD", "XYZ", 1)))

	// timestamp with a letter in it
	parts := strings.Split(id, "-")
	parts[1] = parts[1][:13] + "A"
	require.False(t, Valid(strings.Join(parts, "-")))

	// short timestamp
	parts = strings.Split(id, "-")
	parts[1] = parts[1][:13]
	require.False(t, Valid(strings.Join(parts, "-")))

	// lowercase random component
	parts = strings.Split(id, "-")
	parts[2] = strings.ToLower(parts[2])
	if parts[2] != strings.ToUpper(parts[2]) {
		require.False(t, Valid(strings.Join(parts, "-")))
	}
}

func flipHex(c byte) string {
	if c == 'A' {
		return "B"
	}
	return "A"
}
