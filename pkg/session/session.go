package session

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	prefix       = "session_"
	suffixLength = 9
)

// Generator produces session identifiers of the form
// session_<unix millis>_<random>.
type Generator struct {
	now    func() time.Time
	random func() string
}

// NewGenerator returns a generator backed by the wall clock and random UUIDs.
func NewGenerator() *Generator {
	return &Generator{now: time.Now, random: randomSuffix}
}

// NewID generates a session identifier with the default generator.
func NewID() string {
	return NewGenerator().NewID()
}

// NewID generates a fresh session identifier.
func (g *Generator) NewID() string {
	return fmt.Sprintf("%s%d_%s", prefix, g.now().UnixMilli(), g.random())
}

// Valid reports whether id looks like an identifier produced by a Generator.
func Valid(id string) bool {
	rest, ok := strings.CutPrefix(id, prefix)
	if !ok {
		return false
	}
	ts, suffix, ok := strings.Cut(rest, "_")
	if !ok || suffix == "" {
		return false
	}
	if _, err := strconv.ParseInt(ts, 10, 64); err != nil {
		return false
	}
	for _, r := range suffix {
		if !(r >= 'a' && r <= 'z') && !(r >= '0' && r <= '9') {
			return false
		}
	}
	return true
}

func randomSuffix() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:suffixLength]
}
