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
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Parser turns lines from the tracing runtime's stdout into typed Events. It
// holds no state and has no side effects: the same line always parses to the
// same result.
type Parser struct{}

// NewParser returns a ready-to-use Parser.
func NewParser() *Parser {
	return &Parser{}
}

// ParseLine parses a single line of tracing-runtime output.
//
// An unrecognized tag is not an error: it returns (nil, nil), since the
// parser must be total over unknown input. A recognized tag with a
// malformed field returns a non-nil error; the caller is expected to log it
// and keep reading rather than treat it as fatal.
func (p *Parser) ParseLine(line string) (Event, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil, nil
	}
	fields := strings.Fields(line)
	tag := fields[0]

	switch tag {
	case tagCPUThrottle, tagProcessStart, tagNamespaceOp, tagMountOp,
		tagSyscalls, tagContainerMain, tagBirthComplete, tagProcessExit:
	default:
		return nil, nil
	}

	kv, err := parseKeyValues(fields[1:])
	if err != nil {
		return nil, errors.Wrapf(err, "parsing %s record", tag)
	}

	switch tag {
	case tagCPUThrottle:
		return parseThrottleEvent(kv)
	case tagProcessStart:
		return parseProcessStartEvent(kv)
	case tagNamespaceOp:
		return parseNamespaceOpEvent(kv)
	case tagMountOp:
		return parseMountOpEvent(kv)
	case tagSyscalls:
		return parseSyscallProgressEvent(kv)
	case tagContainerMain:
		return parseContainerMainEvent(kv)
	case tagBirthComplete:
		return parseBirthCompleteEvent(kv)
	case tagProcessExit:
		return parseProcessExitEvent(kv)
	}
	// Unreachable: the switch above enumerates exactly the tags admitted by
	// the tag switch earlier in this function.
	return nil, nil
}

func parseKeyValues(fields []string) (map[string]string, error) {
	kv := make(map[string]string, len(fields))
	for _, f := range fields {
		key, val, ok := strings.Cut(f, "=")
		if !ok {
			return nil, errors.Errorf("field %q is not in key=value form", f)
		}
		kv[key] = val
	}
	return kv, nil
}

func requireUint32(kv map[string]string, key string) (uint32, error) {
	v, ok := kv[key]
	if !ok {
		return 0, errors.Errorf("missing required field %q", key)
	}
	n, err := strconv.ParseUint(v, 10, 32)
	if err != nil {
		return 0, errors.Wrapf(err, "field %q value %q is not a valid uint32", key, v)
	}
	return uint32(n), nil
}

func requireUint64(kv map[string]string, key string) (uint64, error) {
	v, ok := kv[key]
	if !ok {
		return 0, errors.Errorf("missing required field %q", key)
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "field %q value %q is not a valid uint64", key, v)
	}
	return n, nil
}

func requireString(kv map[string]string, key string) (string, error) {
	v, ok := kv[key]
	if !ok {
		return "", errors.Errorf("missing required field %q", key)
	}
	return v, nil
}

func parseThrottleEvent(kv map[string]string) (Event, error) {
	pid, err := requireUint32(kv, "pid")
	if err != nil {
		return nil, err
	}
	comm, err := requireString(kv, "comm")
	if err != nil {
		return nil, err
	}
	throttleNs, err := requireUint64(kv, "throttle_ns")
	if err != nil {
		return nil, err
	}
	ts, err := requireUint64(kv, "timestamp")
	if err != nil {
		return nil, err
	}
	return ThrottleEvent{PID: pid, Comm: comm, ThrottleNs: throttleNs, Timestamp: ts}, nil
}

func parseProcessStartEvent(kv map[string]string) (Event, error) {
	pid, err := requireUint32(kv, "pid")
	if err != nil {
		return nil, err
	}
	ppid, err := requireUint32(kv, "ppid")
	if err != nil {
		return nil, err
	}
	comm, err := requireString(kv, "comm")
	if err != nil {
		return nil, err
	}
	ts, err := requireUint64(kv, "timestamp_ms")
	if err != nil {
		return nil, err
	}
	return ProcessStartEvent{PID: pid, PPID: ppid, Comm: comm, TimestampMs: ts}, nil
}

func parseNamespaceOpEvent(kv map[string]string) (Event, error) {
	pid, err := requireUint32(kv, "pid")
	if err != nil {
		return nil, err
	}
	typ, err := requireString(kv, "type")
	if err != nil {
		return nil, err
	}
	ts, err := requireUint64(kv, "timestamp_ms")
	if err != nil {
		return nil, err
	}
	return NamespaceOpEvent{PID: pid, Type: typ, TimestampMs: ts}, nil
}

func parseMountOpEvent(kv map[string]string) (Event, error) {
	pid, err := requireUint32(kv, "pid")
	if err != nil {
		return nil, err
	}
	typ, err := requireString(kv, "type")
	if err != nil {
		return nil, err
	}
	ts, err := requireUint64(kv, "timestamp_ms")
	if err != nil {
		return nil, err
	}
	return MountOpEvent{PID: pid, Type: typ, TimestampMs: ts}, nil
}

func parseSyscallProgressEvent(kv map[string]string) (Event, error) {
	pid, err := requireUint32(kv, "pid")
	if err != nil {
		return nil, err
	}
	total, err := requireUint64(kv, "total")
	if err != nil {
		return nil, err
	}
	ts, err := requireUint64(kv, "timestamp_ms")
	if err != nil {
		return nil, err
	}
	return SyscallProgressEvent{PID: pid, Total: total, TimestampMs: ts}, nil
}

func parseContainerMainEvent(kv map[string]string) (Event, error) {
	pid, err := requireUint32(kv, "pid")
	if err != nil {
		return nil, err
	}
	ppid, err := requireUint32(kv, "ppid")
	if err != nil {
		return nil, err
	}
	comm, err := requireString(kv, "comm")
	if err != nil {
		return nil, err
	}
	ts, err := requireUint64(kv, "timestamp_ms")
	if err != nil {
		return nil, err
	}
	return ContainerMainEvent{PID: pid, PPID: ppid, Comm: comm, TimestampMs: ts}, nil
}

func parseBirthCompleteEvent(kv map[string]string) (Event, error) {
	pid, err := requireUint32(kv, "pid")
	if err != nil {
		return nil, err
	}
	ppid, err := requireUint32(kv, "ppid")
	if err != nil {
		return nil, err
	}
	comm, err := requireString(kv, "comm")
	if err != nil {
		return nil, err
	}
	totalSyscalls, err := requireUint64(kv, "total_syscalls")
	if err != nil {
		return nil, err
	}
	namespaceOps, err := requireUint64(kv, "namespace_ops")
	if err != nil {
		return nil, err
	}
	mountOps, err := requireUint64(kv, "mount_ops")
	if err != nil {
		return nil, err
	}
	durationNs, err := requireUint64(kv, "duration_ns")
	if err != nil {
		return nil, err
	}
	ts, err := requireUint64(kv, "timestamp_ms")
	if err != nil {
		return nil, err
	}
	return BirthCompleteEvent{
		PID: pid, PPID: ppid, Comm: comm,
		TotalSyscalls: totalSyscalls, NamespaceOps: namespaceOps, MountOps: mountOps,
		DurationNs: durationNs, TimestampMs: ts,
	}, nil
}

func parseProcessExitEvent(kv map[string]string) (Event, error) {
	pid, err := requireUint32(kv, "pid")
	if err != nil {
		return nil, err
	}
	ts, err := requireUint64(kv, "timestamp_ms")
	if err != nil {
		return nil, err
	}
	return ProcessExitEvent{PID: pid, TimestampMs: ts}, nil
}
