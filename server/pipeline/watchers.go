package pipeline

import (
	"github.com/driftguard/driftguard/pkg/fatigue"
	"github.com/driftguard/driftguard/pkg/gen"
)

// SYNC-WATCHER-CHANNEL-SIZE
const WatcherChannelSize = 100

// Register to receive a copy of every fatigue result, in addition to
// the host event channel. Used by the www layer.
func (p *Pipeline) AddWatcher() chan *fatigue.Result {
	p.watchersLock.Lock()
	defer p.watchersLock.Unlock()
	ch := make(chan *fatigue.Result, WatcherChannelSize)
	p.watchers = append(p.watchers, ch)
	return ch
}

func (p *Pipeline) RemoveWatcher(ch chan *fatigue.Result) {
	p.watchersLock.Lock()
	defer p.watchersLock.Unlock()
	for i, w := range p.watchers {
		if w == ch {
			p.watchers = gen.DeleteFromSliceUnordered(p.watchers, i)
			return
		}
	}
	p.Log.Warnf("Pipeline.RemoveWatcher failed to find channel")
}

func (p *Pipeline) sendToWatchers(result *fatigue.Result) {
	p.watchersLock.RLock()
	// If one watcher stalls, the others must keep running, so we drop
	// rather than block.
	for _, ch := range p.watchers {
		// SYNC-WATCHER-CHANNEL-SIZE
		if len(ch) >= cap(ch)*9/10 {
			p.Log.Warnf("Pipeline watcher is falling behind. I am going to drop results.")
		} else {
			ch <- result
		}
	}
	p.watchersLock.RUnlock()
}
