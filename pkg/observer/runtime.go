// Copyright 2024 The Kernel Gossip Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package observer

import (
	"bufio"
	"context"
	"io"
	"os/exec"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"
)

// shutdownGrace is how long TracingRuntime.Stop waits for the bpftrace
// child to exit after SIGTERM before killing it outright.
const shutdownGrace = 5 * time.Second

// TracingRuntime supervises the bpftrace child process that emits the
// kernel-event trace lines this package parses. It owns the child's
// lifecycle: start, line-by-line stdout delivery, and graceful shutdown.
type TracingRuntime struct {
	scriptPath string
	logger     log.Logger

	cmd   *exec.Cmd
	lines chan string
	done  chan struct{}
}

// NewTracingRuntime returns a TracingRuntime that runs scriptDir/scriptName
// under bpftrace.
func NewTracingRuntime(scriptDir, scriptName string, logger log.Logger) *TracingRuntime {
	return &TracingRuntime{
		scriptPath: filepath.Join(scriptDir, scriptName),
		logger:     logger,
		lines:      make(chan string, 256),
		done:       make(chan struct{}),
	}
}

// Lines returns the channel of trace lines read from the child's stdout. It
// is closed once the child's stdout reaches EOF.
func (r *TracingRuntime) Lines() <-chan string { return r.lines }

// Start launches bpftrace against the configured script and begins
// streaming its stdout onto Lines(). It returns once the process has
// started; Start does not block for the process's lifetime.
func (r *TracingRuntime) Start(ctx context.Context) error {
	r.cmd = exec.CommandContext(ctx, "bpftrace", r.scriptPath)

	stdout, err := r.cmd.StdoutPipe()
	if err != nil {
		return errors.Wrap(err, "attaching stdout pipe")
	}
	stderr, err := r.cmd.StderrPipe()
	if err != nil {
		return errors.Wrap(err, "attaching stderr pipe")
	}

	if err := r.cmd.Start(); err != nil {
		return errors.Wrapf(err, "starting bpftrace on %s", r.scriptPath)
	}

	go r.drainStdout(stdout)
	go r.drainStderr(stderr)

	return nil
}

func (r *TracingRuntime) drainStdout(stdout io.Reader) {
	defer close(r.lines)
	defer close(r.done)

	scanner := bufio.NewScanner(stdout)
	for scanner.Scan() {
		r.lines <- scanner.Text()
	}
	if err := scanner.Err(); err != nil {
		level.Warn(r.logger).Log("msg", "tracing runtime stdout scanner stopped", "err", err)
	}
}

func (r *TracingRuntime) drainStderr(stderr io.Reader) {
	scanner := bufio.NewScanner(stderr)
	for scanner.Scan() {
		level.Debug(r.logger).Log("msg", "bpftrace stderr", "line", scanner.Text())
	}
}

// Stop sends SIGTERM to the child and waits up to shutdownGrace for it to
// exit, force-killing it if it doesn't.
func (r *TracingRuntime) Stop() error {
	if r.cmd == nil || r.cmd.Process == nil {
		return nil
	}

	level.Info(r.logger).Log("msg", "stopping tracing runtime")
	if err := r.cmd.Process.Signal(syscall.SIGTERM); err != nil {
		level.Warn(r.logger).Log("msg", "failed to signal tracing runtime", "err", err)
	}

	waitErr := make(chan error, 1)
	go func() { waitErr <- r.cmd.Wait() }()

	select {
	case <-time.After(shutdownGrace):
		level.Warn(r.logger).Log("msg", "tracing runtime did not exit in time, killing")
		if err := r.cmd.Process.Kill(); err != nil {
			return errors.Wrap(err, "killing tracing runtime")
		}
		<-waitErr
		return nil
	case err := <-waitErr:
		if err != nil {
			level.Debug(r.logger).Log("msg", "tracing runtime exited", "err", err)
		}
		return nil
	}
}
