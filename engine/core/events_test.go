package core

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventQueueDrainKeepsOrder(t *testing.T) {
	q := NewEventQueue()
	q.Push(EventContext{Type: EVENT_CODE_RESIZED, Width: 800, Height: 600})
	q.Push(EventContext{Type: EVENT_CODE_KEY_PRESSED, KeyCode: KEY_ESCAPE})
	q.Push(EventContext{Type: EVENT_CODE_APPLICATION_QUIT})

	events := q.Drain()
	require.Len(t, events, 3)
	assert.Equal(t, EVENT_CODE_RESIZED, events[0].Type)
	assert.Equal(t, uint32(800), events[0].Width)
	assert.Equal(t, KEY_ESCAPE, events[1].KeyCode)
	assert.Equal(t, EVENT_CODE_APPLICATION_QUIT, events[2].Type)

	assert.Nil(t, q.Drain())
	assert.Equal(t, 0, q.Len())
}

func TestEventQueueConcurrentPush(t *testing.T) {
	q := NewEventQueue()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				q.Push(EventContext{Type: EVENT_CODE_ASSET_CHANGED})
			}
		}()
	}
	wg.Wait()
	assert.Len(t, q.Drain(), 800)
}
