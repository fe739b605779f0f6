// Package rngtest 测试用的可控随机源。
package rngtest

import "sync"

// Scripted 按顺序返回预设值，用完后循环。用于测试中精确控制结果。
type Scripted struct {
	mu     sync.Mutex
	Floats []float64
	Ints   []int
	fi, ii int
	// Calls 记录被调用的总次数
	Calls int
}

func (s *Scripted) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Calls++
	if len(s.Floats) == 0 {
		return 0
	}
	v := s.Floats[s.fi%len(s.Floats)]
	s.fi++
	return v
}

func (s *Scripted) IntN(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Calls++
	if n <= 0 || len(s.Ints) == 0 {
		return 0
	}
	v := s.Ints[s.ii%len(s.Ints)]
	s.ii++
	if v >= n {
		v = n - 1
	}
	if v < 0 {
		v = 0
	}
	return v
}
