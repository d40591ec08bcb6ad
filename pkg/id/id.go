package id

import (
	cryptoRand "crypto/rand"
	"encoding/binary"
	"io"
	"math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	mu   sync.Mutex
	mono io.Reader
)

func init() {
	// ulid.Monotonic keeps ids minted within the same millisecond strictly
	// increasing, so event order and id order agree.
	var seed int64
	_ = binary.Read(cryptoRand.Reader, binary.LittleEndian, &seed)
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	mono = ulid.Monotonic(rand.New(rand.NewSource(seed)), 0)
}

// New returns a ULID string (time-sortable identifier).
func New() string {
	mu.Lock()
	defer mu.Unlock()

	id, err := ulid.New(ulid.Timestamp(time.Now().UTC()), mono)
	if err != nil {
		// Only possible if the clock goes backwards past the monotonic window.
		panic(err)
	}
	return id.String()
}

// WithPrefix returns a ULID prefixed for readability, e.g. "pt_01J...".
func WithPrefix(prefix string) string {
	if prefix == "" {
		return New()
	}
	return prefix + "_" + New()
}

// Time extracts the mint time from an id produced by New or WithPrefix.
func Time(s string) (time.Time, bool) {
	if n := len(s); n > ulid.EncodedSize {
		s = s[n-ulid.EncodedSize:]
	}
	u, err := ulid.ParseStrict(s)
	if err != nil {
		return time.Time{}, false
	}
	return ulid.Time(u.Time()), true
}
