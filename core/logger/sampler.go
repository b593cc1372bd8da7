package logger

import (
	"strconv"
	"strings"
	"sync/atomic"
)

// sampler lets keep out of every `of` events through. A zero ratio lets
// everything through.
type sampler struct {
	keep atomic.Int64
	of   atomic.Int64
	seq  atomic.Uint64
}

func newSampler(keep, of int) *sampler {
	s := &sampler{}
	s.Set(keep, of)
	return s
}

func (s *sampler) Set(keep, of int) {
	if keep <= 0 || of <= 0 {
		keep, of = 0, 0
	}
	if keep > of {
		keep = of
	}
	s.keep.Store(int64(keep))
	s.of.Store(int64(of))
	s.seq.Store(0)
}

func (s *sampler) Allow() bool {
	of := s.of.Load()
	if of <= 0 {
		return true
	}
	n := (s.seq.Add(1) - 1) % uint64(of)
	return int64(n) < s.keep.Load()
}

// parseRatio accepts "k/n", "n" (one in n) and "0" or "off" (no sampling).
func parseRatio(spec string) (keep, of int, ok bool) {
	spec = strings.ToLower(strings.TrimSpace(spec))
	if spec == "0" || spec == "off" {
		return 0, 0, true
	}
	if k, n, found := strings.Cut(spec, "/"); found {
		kv, err1 := strconv.Atoi(strings.TrimSpace(k))
		nv, err2 := strconv.Atoi(strings.TrimSpace(n))
		if err1 != nil || err2 != nil || kv < 0 || nv <= 0 {
			return 0, 0, false
		}
		return kv, nv, true
	}
	n, err := strconv.Atoi(spec)
	if err != nil || n <= 0 {
		return 0, 0, false
	}
	return 1, n, true
}
