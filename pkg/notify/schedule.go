package notify

import (
	"fmt"
	"strings"

	"github.com/robfig/cron/v3"
)

// Schedule runs job on a standard cron spec (five fields or a descriptor
// such as "@daily") until stop is called. stop waits for a running job.
func Schedule(spec string, job func()) (stop func(), err error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return nil, fmt.Errorf("notify: empty schedule")
	}
	c := cron.New()
	if _, err := c.AddFunc(spec, job); err != nil {
		return nil, fmt.Errorf("notify: schedule %q: %w", spec, err)
	}
	c.Start()
	return func() { <-c.Stop().Done() }, nil
}
