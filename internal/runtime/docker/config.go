package docker

import "time"

// Config describes how sandboxes are created.
type Config struct {
	// Instance scopes the containers owned by this process so Reap never
	// touches another judge sharing the daemon.
	Instance string
	// User runs every process inside the sandbox.
	User string
	// Workdir is the only writable directory besides /tmp.
	Workdir string
	// CPUFraction is the share of one core granted to a sandbox.
	CPUFraction float64
	PidsLimit   int64
	// WorkspaceSizeMB sizes the tmpfs mounted at Workdir and /tmp.
	WorkspaceSizeMB int
	// OutputLimitBytes caps each captured stream of a single process.
	OutputLimitBytes int

	ProvisionTimeout time.Duration
	PullTimeout      time.Duration
	CompileTimeout   time.Duration
	TeardownTimeout  time.Duration
	// SettleTimeout bounds how long an exited exec may take to report its exit code.
	SettleTimeout time.Duration
}

const (
	defaultInstance         = "codejudge"
	defaultUser             = "65534:65534"
	defaultWorkdir          = "/workspace"
	defaultCPUFraction      = 0.5
	defaultPidsLimit        = 64
	defaultWorkspaceSizeMB  = 64
	defaultOutputLimitBytes = 1 << 20
	defaultProvisionTimeout = 30 * time.Second
	defaultPullTimeout      = 5 * time.Minute
	defaultCompileTimeout   = 30 * time.Second
	defaultTeardownTimeout  = 15 * time.Second
	defaultSettleTimeout    = 2 * time.Second

	cpuPeriod = 100_000
)

func (c Config) withDefaults() Config {
	if c.Instance == "" {
		c.Instance = defaultInstance
	}
	if c.User == "" {
		c.User = defaultUser
	}
	if c.Workdir == "" {
		c.Workdir = defaultWorkdir
	}
	if c.CPUFraction <= 0 {
		c.CPUFraction = defaultCPUFraction
	}
	if c.PidsLimit <= 0 {
		c.PidsLimit = defaultPidsLimit
	}
	if c.WorkspaceSizeMB <= 0 {
		c.WorkspaceSizeMB = defaultWorkspaceSizeMB
	}
	if c.OutputLimitBytes <= 0 {
		c.OutputLimitBytes = defaultOutputLimitBytes
	}
	if c.ProvisionTimeout <= 0 {
		c.ProvisionTimeout = defaultProvisionTimeout
	}
	if c.PullTimeout <= 0 {
		c.PullTimeout = defaultPullTimeout
	}
	if c.CompileTimeout <= 0 {
		c.CompileTimeout = defaultCompileTimeout
	}
	if c.TeardownTimeout <= 0 {
		c.TeardownTimeout = defaultTeardownTimeout
	}
	if c.SettleTimeout <= 0 {
		c.SettleTimeout = defaultSettleTimeout
	}
	return c
}

func (c Config) cpuQuota() int64 {
	return int64(c.CPUFraction * cpuPeriod)
}
