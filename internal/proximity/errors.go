// Sentinel - Family Safety Monitoring and Real-Time Location Alerts
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

package proximity

import "errors"

// ErrInvalidCoordinate is returned when an origin is outside WGS84 bounds.
var ErrInvalidCoordinate = errors.New("coordinate out of range")
