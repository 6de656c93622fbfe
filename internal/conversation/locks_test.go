package conversation

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChatLocksSerializeSameChat(t *testing.T) {
	locks := newChatLocks()
	counter := 0

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := locks.lock(7)
			defer unlock()
			counter++
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, counter)
	assert.Zero(t, locks.size())
}

func TestChatLocksIndependentChats(t *testing.T) {
	locks := newChatLocks()

	unlockA := locks.lock(1)
	// A different chat must not block behind chat 1.
	unlockB := locks.lock(2)
	assert.Equal(t, 2, locks.size())

	unlockB()
	unlockA()
	assert.Zero(t, locks.size())
}
