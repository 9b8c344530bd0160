package upload

import (
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	IDFormatUUID      = "uuid"
	IDFormatTimestamp = "timestamp"
)

// IDGenerator returns a new opaque session id.
type IDGenerator func() string

// UUIDGenerator returns random v4 UUIDs.
func UUIDGenerator() IDGenerator {
	return uuid.NewString
}

// TimestampGenerator returns millisecond Unix timestamps that never repeat within the
// process: when the clock has not advanced past the previous id, the previous value plus
// one is issued instead.
func TimestampGenerator(now func() time.Time) IDGenerator {
	if now == nil {
		now = time.Now
	}
	var (
		mu   sync.Mutex
		last int64
	)
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		next := now().UnixMilli()
		if next <= last {
			next = last + 1
		}
		last = next
		return strconv.FormatInt(next, 10)
	}
}

// NewIDGenerator returns the generator for a configured id format.
func NewIDGenerator(format string) (IDGenerator, error) {
	switch format {
	case "", IDFormatUUID:
		return UUIDGenerator(), nil
	case IDFormatTimestamp:
		return TimestampGenerator(time.Now), nil
	default:
		return nil, fmt.Errorf("unknown id format: %s", format)
	}
}
