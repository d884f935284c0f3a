package reporting

import "sort"

// Count is a labelled tally.
type Count struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}

// Counter tallies keys and remembers first-seen order for ties.
type Counter struct {
	order  []string
	counts map[string]int
}

// NewCounter returns an empty Counter.
func NewCounter() *Counter {
	return &Counter{counts: map[string]int{}}
}

// Add increments key.
func (c *Counter) Add(key string) {
	if _, ok := c.counts[key]; !ok {
		c.order = append(c.order, key)
	}
	c.counts[key]++
}

// Get returns the tally for key.
func (c *Counter) Get(key string) int { return c.counts[key] }

// Len is the number of distinct keys.
func (c *Counter) Len() int { return len(c.order) }

// Top returns up to n entries by descending count; n <= 0 returns all.
func (c *Counter) Top(n int) []Count {
	out := make([]Count, 0, len(c.order))
	for _, key := range c.order {
		out = append(out, Count{Key: key, Count: c.counts[key]})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}
