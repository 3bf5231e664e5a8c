// Package cctx carries the compilation-wide counters (next temporary
// id, next block id, next function id). nanoc threads an
// explicit *Context through every pass instead of reintroducing
// globals.
package cctx

// Context is created once per compilation unit and passed by pointer
// to every component from the CFG builder down to the allocator.
type Context struct {
	nextTempID     uint64
	nextBlockID    uint64
	nextFunctionID uint64
	nextLiveRangeID uint64
	nextRegionID   uint64

	// Debug is printed to in -d mode; Intermediate in -i mode. Both are
	// nil (no-op) unless the CLI driver wires them up.
	Debug       func(format string, args ...any)
	Intermediate func(title string, body string)
}

// New returns a fresh compilation context with all counters at zero.
func New() *Context {
	return &Context{}
}

// NextTempID returns the next monotonic SSA temporary id.
func (c *Context) NextTempID() uint64 {
	id := c.nextTempID
	c.nextTempID++
	return id
}

// NextBlockID returns the next monotonic basic-block id.
func (c *Context) NextBlockID() uint64 {
	id := c.nextBlockID
	c.nextBlockID++
	return id
}

// NextFunctionID returns the next monotonic function id.
func (c *Context) NextFunctionID() uint64 {
	id := c.nextFunctionID
	c.nextFunctionID++
	return id
}

// NextLiveRangeID returns the next monotonic live-range id.
func (c *Context) NextLiveRangeID() uint64 {
	id := c.nextLiveRangeID
	c.nextLiveRangeID++
	return id
}

// NextRegionID returns the next monotonic stack-region id.
func (c *Context) NextRegionID() uint64 {
	id := c.nextRegionID
	c.nextRegionID++
	return id
}

// Logf forwards to Debug if the caller installed one, otherwise it is
// a silent no-op — component code should never special-case "was -d
// passed" itself.
func (c *Context) Logf(format string, args ...any) {
	if c.Debug != nil {
		c.Debug(format, args...)
	}
}

// Emit forwards an intermediate-representation dump to Intermediate if
// the caller installed one (the -i flag).
func (c *Context) Emit(title, body string) {
	if c.Intermediate != nil {
		c.Intermediate(title, body)
	}
}
