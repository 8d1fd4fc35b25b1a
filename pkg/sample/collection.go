package sample

// Collection is an append-only sequence of samples for one measurement kind.  Collection is not safe for concurrent
// use; callers serialize the find-or-create-append sequence per collection (see package store).
type Collection struct {
	size    int
	samples []*Sample
}

// Position reports where an ingested reading landed
type Position struct {
	// Index of the sample that received the reading (1-based)
	Index int
	// Position of the reading within the sample (1-based)
	Position int
	// Complete is true when the reading filled the sample
	Complete bool
}

// Summary holds the charted statistics of one sample
type Summary struct {
	Index int
	Mean  float64
	Range float64
}

// NewCollection returns an empty collection whose samples close after size readings.  A size < 1 uses DefaultSize.
func NewCollection(size int) *Collection {
	if size < 1 {
		size = DefaultSize
	}
	return &Collection{size: size}
}

// Size returns the number of readings that closes a sample
func (c *Collection) Size() int {
	return c.size
}

// Len returns the number of samples, including the open one
func (c *Collection) Len() int {
	return len(c.samples)
}

// Samples returns a copy of the samples in index order
func (c *Collection) Samples() []*Sample {
	out := make([]*Sample, len(c.samples))
	for i, s := range c.samples {
		out[i] = s.clone()
	}
	return out
}

// Current returns the open sample, or nil when the last sample is closed, malformed or absent
func (c *Collection) Current() *Sample {
	if len(c.samples) == 0 {
		return nil
	}
	last := c.samples[len(c.samples)-1]
	if !last.acceptsReadings(c.size) {
		return nil
	}
	return last
}

// Ingest appends the reading to the open sample, opening a new one when there is none.  Any reading is accepted.
func (c *Collection) Ingest(r Reading) Position {
	current := c.Current()
	if current == nil {
		current = &Sample{Index: len(c.samples) + 1, Readings: make([]Reading, 0, c.size)}
		c.samples = append(c.samples, current)
	}
	current.Readings = append(current.Readings, r)

	return Position{
		Index:    current.Index,
		Position: len(current.Readings),
		Complete: len(current.Readings) >= c.size,
	}
}

// Summaries returns the mean and range of every sample in increasing index order.  Samples without readings are
// skipped and the open sample is skipped when onlyComplete is set.
func (c *Collection) Summaries(onlyComplete bool) []Summary {
	out := make([]Summary, 0, len(c.samples))
	for _, s := range c.samples {
		if s == nil || len(s.Readings) == 0 {
			continue
		}
		if onlyComplete && len(s.Readings) < c.size {
			continue
		}
		out = append(out, Summary{Index: s.Index, Mean: s.Mean(), Range: s.Range()})
	}
	return out
}

// Complete returns the number of closed samples holding a full set of readings
func (c *Collection) Complete() int {
	n := 0
	for _, s := range c.samples {
		if s != nil && len(s.Readings) >= c.size {
			n++
		}
	}
	return n
}

// TotalReadings returns the number of readings across all samples
func (c *Collection) TotalReadings() int {
	n := 0
	for _, s := range c.samples {
		if s != nil {
			n += len(s.Readings)
		}
	}
	return n
}

// Latest returns the most recent reading and the sample holding it
func (c *Collection) Latest() (Reading, *Sample, bool) {
	if len(c.samples) == 0 {
		return Reading{}, nil, false
	}
	last := c.samples[len(c.samples)-1]
	if last == nil || len(last.Readings) == 0 {
		return Reading{}, nil, false
	}
	return last.Readings[len(last.Readings)-1], last.clone(), true
}

// Tail returns copies of the last n samples, or every sample when n < 1
func (c *Collection) Tail(n int) []*Sample {
	all := c.Samples()
	if n < 1 || n >= len(all) {
		return all
	}
	return all[len(all)-n:]
}

// Means projects summaries onto the sample means charted by an X-bar chart
func Means(s []Summary) []float64 {
	out := make([]float64, len(s))
	for i, v := range s {
		out[i] = v.Mean
	}
	return out
}

// Ranges projects summaries onto the sample ranges charted by an R chart
func Ranges(s []Summary) []float64 {
	out := make([]float64, len(s))
	for i, v := range s {
		out[i] = v.Range
	}
	return out
}
