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

// Package logging provides the go-kit logfmt logger shared by all three
// kernel-gossip binaries.
package logging

import (
	"os"
	"strings"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"
)

// Valid values for the LOG_LEVEL setting.
const (
	LevelDebug = "debug"
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"
)

// ValidLevels lists the accepted log levels, in help-text order.
var ValidLevels = []string{LevelDebug, LevelInfo, LevelWarn, LevelError}

// New builds a logfmt logger writing to stderr, filtered at lvl, with
// timestamp and caller fields attached to every line.
func New(lvl string) (log.Logger, error) {
	logger := log.NewLogfmtLogger(log.NewSyncWriter(os.Stderr))

	switch lvl {
	case LevelDebug:
		logger = level.NewFilter(logger, level.AllowDebug())
	case LevelInfo:
		logger = level.NewFilter(logger, level.AllowInfo())
	case LevelWarn:
		logger = level.NewFilter(logger, level.AllowWarn())
	case LevelError:
		logger = level.NewFilter(logger, level.AllowError())
	default:
		return nil, errors.Errorf("log level %q unknown, must be one of (%s)", lvl, strings.Join(ValidLevels, ", "))
	}

	logger = log.With(logger, "ts", log.DefaultTimestampUTC)
	logger = log.With(logger, "caller", log.DefaultCaller)
	return logger, nil
}
