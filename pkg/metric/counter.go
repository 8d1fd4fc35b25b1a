package metric

import "sync"

// Counter is a monotonically increasing count.  The zero value is ready to use and safe for concurrent use.
type Counter struct {
	mu    sync.RWMutex
	value int
}

// Value returns the current count
func (c *Counter) Value() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.value
}

// Add increases the count by i
func (c *Counter) Add(i uint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.value += int(i)
}

// Reset sets the count back to zero
func (c *Counter) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.value = 0
}

// Counters is a set of counters keyed by series name.  Counters are created on first use.
type Counters struct {
	mu    sync.Mutex
	c     map[string]*Counter
	names map[string]Name
}

// NewCounters returns an empty counter set
func NewCounters() *Counters {
	return &Counters{c: make(map[string]*Counter), names: make(map[string]Name)}
}

// Get returns the counter for name, creating it when needed
func (cs *Counters) Get(name Name) *Counter {
	key := name.String()
	cs.mu.Lock()
	defer cs.mu.Unlock()
	c, ok := cs.c[key]
	if !ok {
		c = &Counter{}
		cs.c[key] = c
		cs.names[key] = name
	}
	return c
}

// Add increments the counter for name by i
func (cs *Counters) Add(name Name, i uint) {
	cs.Get(name).Add(i)
}

// Snapshot returns the current value of every counter keyed by its marshalled name
func (cs *Counters) Snapshot() map[string]int {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	out := make(map[string]int, len(cs.c))
	for k, c := range cs.c {
		out[k] = c.Value()
	}
	return out
}

// Reset zeroes every counter whose name carries the label key=value
func (cs *Counters) Reset(key, value string) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	for k, c := range cs.c {
		if v, ok := cs.names[k].Label(key); ok && v == value {
			c.Reset()
		}
	}
}
