package search_test

import (
	"sync"
	"testing"

	"github.com/hearth-chat/hearth/internal/search"
	"github.com/m-mizutani/gt"
)

func TestSequencer(t *testing.T) {
	var s search.Sequencer
	gt.False(t, s.IsLatest(0))

	first := s.Next()
	gt.True(t, s.IsLatest(first))

	second := s.Next()
	gt.N(t, second).Greater(first)
	gt.False(t, s.IsLatest(first))
	gt.True(t, s.IsLatest(second))
}

func TestSequencer_Concurrent(t *testing.T) {
	var s search.Sequencer
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Next()
		}()
	}
	wg.Wait()
	gt.True(t, s.IsLatest(50))
}
