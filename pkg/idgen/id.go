package idgen

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Generator produces client order ids unique across restarts: a caller
// prefix, a per-process uuid fragment, and a millisecond timestamp with a
// same-millisecond sequence.
type Generator struct {
	mu     sync.Mutex
	prefix string
	node   string
	lastTs int64
	seq    int64
}

func New(prefix string) *Generator {
	return &Generator{
		prefix: prefix,
		node:   strings.SplitN(uuid.NewString(), "-", 2)[0],
	}
}

func (g *Generator) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	ts := time.Now().UnixMilli()
	if ts == g.lastTs {
		g.seq++
	} else {
		g.seq = 0
		g.lastTs = ts
	}
	return fmt.Sprintf("%s-%s-%d-%d", g.prefix, g.node, ts, g.seq)
}
