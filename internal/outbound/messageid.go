package outbound

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strconv"
	"time"
)

// BuildMessageID constructs a globally unique RFC 5322 Message-ID of the
// form <time-token>.<random-token>@domain, both tokens base36.
func BuildMessageID(domain string) string {
	if domain == "" {
		domain = "localhost"
	}
	timeToken := strconv.FormatInt(time.Now().UnixMilli(), 36)
	return fmt.Sprintf("<%s.%s@%s>", timeToken, randomToken(), domain)
}

func randomToken() string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand failing is unrecoverable for unique id generation;
		// fall back to a nanosecond token rather than corrupt threading.
		return strconv.FormatInt(time.Now().UnixNano(), 36)
	}
	return new(big.Int).SetBytes(buf).Text(36)
}
