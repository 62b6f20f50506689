package dummy

import (
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/veedubyou/vocal-separator/src/server/internal/progress/registry"
	separationentity "github.com/veedubyou/vocal-separator/src/server/internal/separation/entity"
)

var _ registry.Channel = &Channel{}

// Channel records what it is sent, and can be told to start failing
type Channel struct {
	lock   sync.Mutex
	events []separationentity.ProgressEvent
	closed bool
	Fail   bool
}

func (c *Channel) Send(event separationentity.ProgressEvent) error {
	c.lock.Lock()
	defer c.lock.Unlock()

	if c.Fail || c.closed {
		return errors.New("dummy channel refused the event")
	}

	c.events = append(c.events, event)
	return nil
}

func (c *Channel) Close() error {
	c.lock.Lock()
	defer c.lock.Unlock()

	c.closed = true
	return nil
}

func (c *Channel) Events() []separationentity.ProgressEvent {
	c.lock.Lock()
	defer c.lock.Unlock()

	return append([]separationentity.ProgressEvent{}, c.events...)
}

func (c *Channel) Progress() []int {
	progress := []int{}
	for _, event := range c.Events() {
		progress = append(progress, event.Progress)
	}

	return progress
}

func (c *Channel) Closed() bool {
	c.lock.Lock()
	defer c.lock.Unlock()

	return c.closed
}

// ProgressRecorder collects events passed straight to a progress function
type ProgressRecorder struct {
	Channel
}

func (p *ProgressRecorder) Func() separationentity.ProgressFunc {
	return func(event separationentity.ProgressEvent) {
		_ = p.Send(event)
	}
}
