// Package registry tracks the endpoints discovered during a run. Entries
// expire after a TTL and are archived to disk on eviction, leaving a record
// of every endpoint the harness ever saw even when a run aborts early.
package registry

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
	"github.com/jellydator/ttlcache/v3"

	"github.com/betocq/betocq/internal/persistence"
	"github.com/betocq/betocq/pkg/nc/model"
)

// EndpointSession is the record of one discovered endpoint.
type EndpointSession struct {
	EndpointID string
	RunID      string

	DiscoveredAt time.Time
	LastSeen     time.Time

	// Medium is the advertising/discovery medium the endpoint was found on.
	Medium string

	// Iterations counts how many times the endpoint was rediscovered.
	Iterations int
}

// Registry is a TTL cache of endpoint sessions.
type Registry struct {
	dataDir  string
	sessions *ttlcache.Cache[string, *EndpointSession]
}

// New returns a Registry archiving expired sessions under dataDir.
func New(dataDir string, ttl time.Duration) *Registry {
	cache := ttlcache.New(
		ttlcache.WithTTL[string, *EndpointSession](ttl),
	)
	cache.OnEviction(func(ctx context.Context,
		er ttlcache.EvictionReason,
		i *ttlcache.Item[string, *EndpointSession]) {
		session := i.Value()
		log.Debug("endpoint session expired", "endpoint", session.EndpointID, "reason", er)

		_, err := persistence.WriteDataFile(dataDir, "endpoint", "", session.EndpointID, session)
		if err != nil {
			log.Error("failed to archive endpoint session",
				"endpoint", session.EndpointID, "error", err)
		}
	})

	go cache.Start()
	return &Registry{
		dataDir:  dataDir,
		sessions: cache,
	}
}

// Observe records a discovery of endpointID, creating the session on first
// sight and refreshing its TTL afterwards.
func (r *Registry) Observe(endpointID, runID string, medium model.Medium) {
	now := time.Now()
	item := r.sessions.Get(endpointID)
	if item == nil {
		r.sessions.Set(endpointID, &EndpointSession{
			EndpointID:   endpointID,
			RunID:        runID,
			DiscoveredAt: now,
			LastSeen:     now,
			Medium:       medium.String(),
			Iterations:   1,
		}, ttlcache.DefaultTTL)
		return
	}
	session := item.Value()
	session.LastSeen = now
	session.Iterations++
	r.sessions.Set(endpointID, session, ttlcache.DefaultTTL)
}

// Get returns the session for endpointID, or nil when unknown.
func (r *Registry) Get(endpointID string) *EndpointSession {
	item := r.sessions.Get(endpointID)
	if item == nil {
		return nil
	}
	return item.Value()
}

// Stop evicts all sessions, archiving them, and stops the cache's cleanup
// goroutine.
func (r *Registry) Stop() {
	r.sessions.DeleteAll()
	r.sessions.Stop()
}
