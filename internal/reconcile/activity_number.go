package reconcile

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const maxDailySequence = 999

// ActivityNumbers hands out HA-YYYYMMDD-NNN numbers for one day, skipping any already
// known to the backend and any handed out earlier in the same run.
type ActivityNumbers struct {
	prefix string
	next   int
	taken  map[string]struct{}
}

func NewActivityNumbers(day time.Time, known []string) *ActivityNumbers {
	g := &ActivityNumbers{
		prefix: "HA-" + day.Format("20060102") + "-",
		next:   1,
		taken:  make(map[string]struct{}, len(known)),
	}
	for _, number := range known {
		g.taken[number] = struct{}{}
		if !strings.HasPrefix(number, g.prefix) {
			continue
		}
		seq, err := strconv.Atoi(strings.TrimPrefix(number, g.prefix))
		if err == nil && seq >= g.next {
			g.next = seq + 1
		}
	}
	return g
}

func (g *ActivityNumbers) Prefix() string {
	return g.prefix
}

func (g *ActivityNumbers) Next() (string, error) {
	for g.next <= maxDailySequence {
		candidate := fmt.Sprintf("%s%03d", g.prefix, g.next)
		g.next++
		if _, exists := g.taken[candidate]; exists {
			continue
		}
		g.taken[candidate] = struct{}{}
		return candidate, nil
	}
	return "", ErrSequenceExhausted
}
