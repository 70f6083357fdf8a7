package cluster

import (
	"context"
	"time"

	"github.com/inmemosd/osd/nlog"
)

// MonitorClient is the capability Watch uses to learn about cluster
// map epoch changes (spec §3/§5). A production implementation
// long-polls a monitor quorum the way the retrieved source's client
// long-polls Primary for a newer Smap; this package also ships a
// static implementation for tests and single-node deployments.
type MonitorClient interface {
	// FetchMap blocks until a map newer than afterEpoch is available,
	// ctx is cancelled, or an error occurs.
	FetchMap(ctx context.Context, afterEpoch uint32) (*ClusterMap, error)
}

// StaticMonitorClient always answers with the same map it was built
// with, once, and then blocks on ctx until cancellation — a fixture
// for single-node deployments and for tests that don't exercise map
// churn.
type StaticMonitorClient struct {
	m *ClusterMap
}

func NewStaticMonitorClient(m *ClusterMap) *StaticMonitorClient {
	return &StaticMonitorClient{m: m}
}

func (c *StaticMonitorClient) FetchMap(ctx context.Context, afterEpoch uint32) (*ClusterMap, error) {
	if c.m.Epoch > afterEpoch {
		return c.m, nil
	}
	<-ctx.Done()
	return nil, ctx.Err()
}

// Watch runs FetchMap in a loop, installing every newer epoch it sees
// into reg until ctx is cancelled. It is the long-lived goroutine a
// daemon's main wires up around ServerSession (grounded on the
// retrieved source's own map-sync watcher goroutine pattern).
func Watch(ctx context.Context, mc MonitorClient, reg *Registry) {
	for {
		cur := reg.Current()
		epoch := uint32(0)
		if cur != nil {
			epoch = cur.Epoch
		}
		next, err := mc.FetchMap(ctx, epoch)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			nlog.Warningf("cluster map fetch failed: %v", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}
		if reg.Update(next) {
			nlog.Infof("installed cluster map epoch %d", next.Epoch)
		}
	}
}
