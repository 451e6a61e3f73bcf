package stats

// NoopStats satisfies StatsProvider for tests that do not assert on metrics.
type NoopStats struct{}

func (NoopStats) Incr(name string)           {}
func (NoopStats) Add(name string, value int) {}
func (NoopStats) RegisterMetric(name string) {}
func (NoopStats) Run()                       {}
