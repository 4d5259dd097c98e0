package id

import (
	cryptoRand "crypto/rand"
	"encoding/binary"
	"io"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

var (
	mu   sync.Mutex
	mono io.Reader
)

func init() {
	// ulid.Monotonic keeps ids minted in the same millisecond increasing,
	// so TWAP slices sort in submission order.
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
		// Only possible if entropy fails or the clock runs backwards.
		panic(err)
	}
	return id.String()
}

// ClientOrderID returns the idempotency key sent with every submitted order.
// Brokers cap the field at 48 characters; "lt-" plus a ULID is 29.
func ClientOrderID() string {
	return "lt-" + New()
}

// RunID identifies one trading session in the journal and in alerts.
func RunID() string {
	return uuid.NewString()
}
