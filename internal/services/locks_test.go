package services

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLocksSerializeSameKey(t *testing.T) {
	l := NewLocks()
	counter := 0

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := l.Lock("liubei")
			defer unlock()
			v := counter
			counter = v + 1
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, counter)
	assert.Equal(t, 0, l.size())
}

func TestLocksMultipleKeysNoDeadlock(t *testing.T) {
	l := NewLocks()
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			l.Lock("a", "b")()
		}()
		go func() {
			defer wg.Done()
			l.Lock("b", "a", "b")()
		}()
	}
	wg.Wait()
	assert.Equal(t, 0, l.size())
}
