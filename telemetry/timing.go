package telemetry

import (
	"io"
	"sync"
	"time"

	"github.com/robinvdvleuten/taxlots/output"
)

// TimingCollector records timers as a tree. It is safe for concurrent use;
// the web server shares one across reloads.
type TimingCollector struct {
	mu    sync.Mutex
	roots []*timerNode
	now   func() time.Time
}

type timerNode struct {
	name     string
	start    time.Time
	end      time.Time
	children []*timerNode
}

func (n *timerNode) duration() time.Duration {
	if n.end.IsZero() {
		return 0
	}
	return n.end.Sub(n.start)
}

// NewTimingCollector creates an empty collector.
func NewTimingCollector() *TimingCollector {
	return &TimingCollector{now: time.Now}
}

// Start begins a top-level timer.
func (c *TimingCollector) Start(name string) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()

	node := &timerNode{name: name, start: c.now()}
	c.roots = append(c.roots, node)
	return &timingTimer{collector: c, node: node}
}

// Report writes every top-level timer with its children.
func (c *TimingCollector) Report(w io.Writer, styles *output.Styles) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, root := range c.roots {
		formatTimingTree(w, root, styles)
	}
}

type timingTimer struct {
	collector *TimingCollector
	node      *timerNode
}

func (t *timingTimer) End() {
	t.collector.mu.Lock()
	defer t.collector.mu.Unlock()

	if t.node.end.IsZero() {
		t.node.end = t.collector.now()
	}
}

func (t *timingTimer) Child(name string) Timer {
	t.collector.mu.Lock()
	defer t.collector.mu.Unlock()

	node := &timerNode{name: name, start: t.collector.now()}
	t.node.children = append(t.node.children, node)
	return &timingTimer{collector: t.collector, node: node}
}
