// Bio-D-Scan - Pollinator Monitoring Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/biodscan

package mqtt

import (
	"sync"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"

	"github.com/tomtom215/biodscan/internal/logging"
)

var installOnce sync.Once

// InstallLoggers routes paho's package-level loggers through zerolog.
// DEBUG output is only installed when the global level is debug or lower.
func InstallLoggers() {
	installOnce.Do(func() {
		paho.CRITICAL = logging.NewPrintLogger("paho", zerolog.ErrorLevel)
		paho.ERROR = logging.NewPrintLogger("paho", zerolog.ErrorLevel)
		paho.WARN = logging.NewPrintLogger("paho", zerolog.WarnLevel)
		if zerolog.GlobalLevel() <= zerolog.DebugLevel {
			paho.DEBUG = logging.NewPrintLogger("paho", zerolog.DebugLevel)
		}
	})
}
