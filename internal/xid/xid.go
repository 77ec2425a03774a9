package xid

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync/atomic"
	"time"
)

func New(prefix string) string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
	}
	return fmt.Sprintf("%s-%d-%s", prefix, time.Now().UnixNano(), hex.EncodeToString(buf))
}

// Sequence issues monotonically increasing tokens under a random run prefix.
// Used for commit idempotency tokens: each attempt gets a distinct token, and
// tokens sort in issue order within one process run.
type Sequence struct {
	prefix string
	n      atomic.Uint64
}

func NewSequence(prefix string) *Sequence {
	buf := make([]byte, 6)
	if _, err := rand.Read(buf); err == nil {
		prefix = fmt.Sprintf("%s-%s", prefix, hex.EncodeToString(buf))
	} else {
		prefix = fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
	}
	return &Sequence{prefix: prefix}
}

func (s *Sequence) Next() string {
	return fmt.Sprintf("%s-%08d", s.prefix, s.n.Add(1))
}
