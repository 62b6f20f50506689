package registry

import (
	"sync"

	"github.com/apex/log"
	"github.com/veedubyou/vocal-separator/src/server/internal/lib/metrics"
	separationentity "github.com/veedubyou/vocal-separator/src/server/internal/separation/entity"
	separationerrors "github.com/veedubyou/vocal-separator/src/server/internal/separation/errors"
	"github.com/veedubyou/vocal-separator/src/shared/lib/errors/mark"
)

//go:generate go run github.com/maxbrunsfeld/counterfeiter/v6 -generate

// Channel delivers progress events to one subscribed client
//
//counterfeiter:generate . Channel
type Channel interface {
	Send(event separationentity.ProgressEvent) error
	Close() error
}

// Registry maps client ids to their live channel. Progress is advisory,
// so delivery problems are logged and the channel dropped, never returned.
type Registry struct {
	mu       sync.RWMutex
	channels map[string]Channel
}

func NewRegistry() *Registry {
	return &Registry{
		channels: map[string]Channel{},
	}
}

// Register replaces any channel already held for clientID, closing the old one
func (r *Registry) Register(clientID string, channel Channel) {
	r.mu.Lock()
	previous, replaced := r.channels[clientID]
	r.channels[clientID] = channel
	count := len(r.channels)
	r.mu.Unlock()

	metrics.SetProgressSubscribers(count)

	if replaced && previous != channel {
		closeChannel(clientID, previous)
	}
}

func (r *Registry) Unregister(clientID string) {
	r.mu.Lock()
	_, existed := r.channels[clientID]
	delete(r.channels, clientID)
	count := len(r.channels)
	r.mu.Unlock()

	if existed {
		metrics.SetProgressSubscribers(count)
	}
}

// UnregisterChannel removes clientID only while it still maps to channel,
// a newer registration for the same id is left alone
func (r *Registry) UnregisterChannel(clientID string, channel Channel) bool {
	r.mu.Lock()
	current, ok := r.channels[clientID]
	removed := ok && current == channel
	if removed {
		delete(r.channels, clientID)
	}
	count := len(r.channels)
	r.mu.Unlock()

	if removed {
		metrics.SetProgressSubscribers(count)
	}

	return removed
}

func (r *Registry) Registered(clientID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.channels[clientID]
	return ok
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.channels)
}

func (r *Registry) Push(clientID string, event separationentity.ProgressEvent) {
	r.mu.RLock()
	channel, ok := r.channels[clientID]
	r.mu.RUnlock()

	if !ok {
		return
	}

	err := channel.Send(event)
	if err == nil {
		return
	}

	err = mark.Wrap(err, separationerrors.DeliveryMark, "Failed to push progress")
	log.WithFields(log.Fields{
		"client_id": clientID,
		"progress":  event.Progress,
	}).WithError(err).Warn("Dropping progress subscriber")
	metrics.ProgressPushFailed()

	if r.UnregisterChannel(clientID, channel) {
		closeChannel(clientID, channel)
	}
}

// ProgressFunc binds the registry to one client, the result is nil when there is no client
func (r *Registry) ProgressFunc(clientID string) separationentity.ProgressFunc {
	if clientID == "" {
		return nil
	}

	return func(event separationentity.ProgressEvent) {
		r.Push(clientID, event)
	}
}

func closeChannel(clientID string, channel Channel) {
	if err := channel.Close(); err != nil {
		log.WithField("client_id", clientID).WithError(err).Debug("Failed to close progress channel")
	}
}
