package ntp

import (
	"log/slog"
	"sync"
	"time"

	bntp "github.com/beevik/ntp"
)

// Clock is a wall clock corrected with the offset measured against a NTP server.
// Until Sync succeeds, it returns the local time.
type Clock struct {
	// NTP server.
	// It defaults to "pool.ntp.org".
	Server string
	// timeout of queries.
	// It defaults to 5 seconds.
	Timeout time.Duration
	// function used to read the local time.
	// It defaults to time.Now.
	TimeNow func() time.Time
	// function used to query the server.
	// It defaults to ntp.QueryWithOptions.
	Query func(host string, opts bntp.QueryOptions) (*bntp.Response, error)
	// logger.
	// It defaults to slog.Default().
	Logger *slog.Logger

	mutex  sync.Mutex
	offset time.Duration
}

func (c *Clock) initialize() {
	if c.Server == "" {
		c.Server = "pool.ntp.org"
	}
	if c.Timeout == 0 {
		c.Timeout = 5 * time.Second
	}
	if c.TimeNow == nil {
		c.TimeNow = time.Now
	}
	if c.Query == nil {
		c.Query = bntp.QueryWithOptions
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Sync queries the server and updates the clock offset.
func (c *Clock) Sync() error {
	c.mutex.Lock()
	c.initialize()
	c.mutex.Unlock()

	res, err := c.Query(c.Server, bntp.QueryOptions{Timeout: c.Timeout})
	if err != nil {
		return err
	}

	err = res.Validate()
	if err != nil {
		return err
	}

	c.mutex.Lock()
	c.offset = res.ClockOffset
	c.mutex.Unlock()

	c.Logger.Debug("clock synchronized", "server", c.Server, "offset", res.ClockOffset)
	return nil
}

// Offset returns the measured offset.
func (c *Clock) Offset() time.Duration {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.offset
}

// Now returns the corrected time.
func (c *Clock) Now() time.Time {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.initialize()
	return c.TimeNow().Add(c.offset)
}
