package api

import (
	"crypto/rand"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/oklog/ulid/v2"
)

const (
	requestIDHeader = "X-Request-ID"
	requestIDKey    = "request_id"
	maxRequestIDLen = 64
)

// requestIDs hands out monotonic ULIDs. MonotonicEntropy is not safe for
// concurrent use, hence the lock.
type requestIDs struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

func newRequestIDs() *requestIDs {
	return &requestIDs{entropy: ulid.Monotonic(rand.Reader, 0)}
}

func (r *requestIDs) next() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return ulid.MustNew(ulid.Now(), r.entropy).String()
}

// requestID tags every request with an ID, reusing a caller-supplied one.
func (r *requestIDs) middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(requestIDHeader))
		if id == "" || len(id) > maxRequestIDLen {
			id = r.next()
		}
		c.Set(requestIDKey, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

func requestIDFrom(c *gin.Context) string {
	return c.GetString(requestIDKey)
}
