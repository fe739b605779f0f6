// Package rng 随机源。战斗、招募、剧情都通过注入的 Source 取随机数，测试时可固定种子。
package rng

import (
	cryptoRand "crypto/rand"
	"encoding/binary"
	"math/rand/v2"
	"sync"
)

// Source 随机源，实现需并发安全
type Source interface {
	Float64() float64 // [0, 1)
	IntN(n int) int   // [0, n)
}

type cryptoSource struct{}

func (cryptoSource) Float64() float64 {
	var buf [8]byte
	if _, err := cryptoRand.Read(buf[:]); err != nil {
		return rand.Float64()
	}
	u := binary.BigEndian.Uint64(buf[:]) >> 11 // 53 bits
	return float64(u) / (1 << 53)
}

func (s cryptoSource) IntN(n int) int {
	if n <= 0 {
		return 0
	}
	i := int(s.Float64() * float64(n))
	if i >= n {
		i = n - 1
	}
	return i
}

// Default 默认随机源（crypto/rand）
func Default() Source { return cryptoSource{} }

type seededSource struct {
	mu sync.Mutex
	r  *rand.Rand
}

// NewSeeded 可复现的随机源
func NewSeeded(seed uint64) Source {
	return &seededSource{r: rand.New(rand.NewPCG(seed, 0))}
}

func (s *seededSource) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.r.Float64()
}

func (s *seededSource) IntN(n int) int {
	if n <= 0 {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.r.IntN(n)
}

// Uniform 返回 [min, max] 区间内的浮点数
func Uniform(src Source, min, max float64) float64 {
	if max <= min {
		return min
	}
	return min + src.Float64()*(max-min)
}

// Between 返回 [min, max] 区间内的整数
func Between(src Source, min, max int) int {
	if max <= min {
		return min
	}
	return min + src.IntN(max-min+1)
}

// Pick 等概率选取一个元素
func Pick[T any](src Source, items []T) (T, bool) {
	var zero T
	if len(items) == 0 {
		return zero, false
	}
	return items[src.IntN(len(items))], true
}
