// Bio-D-Scan - Pollinator Monitoring Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/biodscan

package logging

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

// PrintLogger exposes Println/Printf over a fixed zerolog level. It satisfies
// the logger interface paho.mqtt.golang assigns to mqtt.ERROR, mqtt.WARN and
// friends.
type PrintLogger struct {
	logger zerolog.Logger
	level  zerolog.Level
}

// NewPrintLogger returns a PrintLogger for component at level.
func NewPrintLogger(component string, level zerolog.Level) *PrintLogger {
	return &PrintLogger{logger: WithComponent(component), level: level}
}

// Println logs v joined by spaces.
func (p *PrintLogger) Println(v ...interface{}) {
	p.logger.WithLevel(p.level).Msg(strings.TrimSpace(fmt.Sprintln(v...)))
}

// Printf logs a formatted message.
func (p *PrintLogger) Printf(format string, v ...interface{}) {
	p.logger.WithLevel(p.level).Msg(strings.TrimSpace(fmt.Sprintf(format, v...)))
}
