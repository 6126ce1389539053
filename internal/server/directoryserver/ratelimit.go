package directoryserver

import (
	"golang.org/x/time/rate"

	"github.com/yndnr/micropay-go/pkg/cmap"
)

// ipLimiters hands out one token bucket per remote IP.
type ipLimiters struct {
	limiters *cmap.Map[string, *rate.Limiter]
	perSec   int
}

func newIPLimiters(perSec int) *ipLimiters {
	return &ipLimiters{
		limiters: cmap.New[string, *rate.Limiter](),
		perSec:   perSec,
	}
}

func (l *ipLimiters) get(ip string) *rate.Limiter {
	return l.limiters.GetOrCreate(ip, func() *rate.Limiter {
		// perSec lines per second, burst = perSec
		return rate.NewLimiter(rate.Limit(l.perSec), l.perSec)
	})
}

// allow reports whether one more line from ip is within budget.
func (l *ipLimiters) allow(ip string) bool {
	if l == nil || l.perSec <= 0 {
		return true
	}
	return l.get(ip).Allow()
}

// forget drops the bucket for ip.
func (l *ipLimiters) forget(ip string) {
	if l == nil {
		return
	}
	l.limiters.Delete(ip)
}

func (l *ipLimiters) len() int {
	return l.limiters.Count()
}
