package sample

import (
	"crypto/rand"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// NegativePrefix marks keys of decoy samples.
const NegativePrefix = "negative"

const fragmentAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// Key assembles the storage key: the non-empty parts of
// [negative, wake word, language_accent, age, gender, identifier] joined by
// "-", then "." and ext.
func Key(l *Labels, identifier, ext string) string {
	var marker string
	if l.Negative {
		marker = NegativePrefix
	}
	candidates := []string{marker, l.WakeWord, l.LanguageAccent(), l.Age, l.Gender, identifier}

	parts := candidates[:0]
	for _, p := range candidates {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, "-") + "." + ext
}

// Extension returns the subtype of a media type: "audio/webm" gives "webm".
func Extension(mediaType string) string {
	if i := strings.IndexByte(mediaType, '/'); i >= 0 {
		return mediaType[i+1:]
	}
	return mediaType
}

// IdentifierFunc produces the per-upload token used when no trace id is sent.
type IdentifierFunc func() string

// TimestampIdentifier returns millisecond timestamps followed by an eight
// character random fragment. Not collision-proof.
func TimestampIdentifier(now func() time.Time) IdentifierFunc {
	return func() string {
		return strconv.FormatInt(now().UnixMilli(), 10) + randomFragment(8)
	}
}

// UUIDIdentifier returns random UUIDs.
func UUIDIdentifier() string {
	return uuid.NewString()
}

func randomFragment(n int) string {
	s, err := fragment(rand.Reader, n)
	if err != nil {
		// crypto/rand does not fail on supported platforms.
		return strings.Repeat("0", n)
	}
	return s
}

// fragmentCeiling is the largest multiple of the alphabet size that fits in a
// byte. Bytes at or above it are discarded so every character is equally likely.
const fragmentCeiling = 256 - 256%len(fragmentAlphabet)

// fragment draws n alphabet characters from r.
func fragment(r io.Reader, n int) (string, error) {
	out := make([]byte, 0, n)
	buf := make([]byte, n)
	for len(out) < n {
		if _, err := io.ReadFull(r, buf); err != nil {
			return "", err
		}
		for _, b := range buf {
			if int(b) >= fragmentCeiling {
				continue
			}
			out = append(out, fragmentAlphabet[int(b)%len(fragmentAlphabet)])
			if len(out) == n {
				break
			}
		}
	}
	return string(out), nil
}
