package docker

import (
	"bufio"
	"context"
	"fmt"
	"strconv"
	"strings"
)

// Both cgroup v2 and v1 layouts are tried; the first readable file wins.
var (
	memoryEventsCommand = []string{"sh", "-c", "cat /sys/fs/cgroup/memory.events 2>/dev/null || cat /sys/fs/cgroup/memory/memory.oom_control"}
	memoryPeakCommand   = []string{"sh", "-c", "cat /sys/fs/cgroup/memory.peak 2>/dev/null || cat /sys/fs/cgroup/memory/memory.max_usage_in_bytes"}
)

// oomKills returns how many processes the kernel OOM killer has terminated in
// the sandbox cgroup so far.
func (s *sandbox) oomKills(ctx context.Context) (int64, error) {
	out, err := s.readCgroup(ctx, memoryEventsCommand)
	if err != nil {
		return 0, err
	}
	return parseOOMKills(out)
}

func (s *sandbox) readCgroup(ctx context.Context, cmd []string) (string, error) {
	outcome, err := s.runExec(ctx, execRequest{cmd: cmd, timeout: s.cfg.SettleTimeout})
	if err != nil {
		return "", err
	}
	if outcome.timedOut {
		return "", fmt.Errorf("read cgroup: timed out")
	}
	if outcome.exitCode != 0 {
		return "", fmt.Errorf("read cgroup: exit code %d: %s", outcome.exitCode, strings.TrimSpace(outcome.stderr))
	}
	return outcome.stdout, nil
}

func parseOOMKills(raw string) (int64, error) {
	scanner := bufio.NewScanner(strings.NewReader(raw))
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) != 2 || fields[0] != "oom_kill" {
			continue
		}
		value, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			return 0, fmt.Errorf("parse oom_kill counter: %w", err)
		}
		return value, nil
	}
	return 0, fmt.Errorf("oom_kill counter not reported")
}

func parseMemoryPeak(raw string) (int64, error) {
	value, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse memory peak: %w", err)
	}
	return value, nil
}
