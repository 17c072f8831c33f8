package id

import (
	"crypto/rand"

	"github.com/oklog/ulid/v2"
)

// New returns a ULID string. Used for device binding ids, realtime session ids
// and STOMP message ids; ULIDs sort by creation time.
func New() string {
	return ulid.MustNew(ulid.Now(), rand.Reader).String()
}
