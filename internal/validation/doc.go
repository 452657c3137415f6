// Sentinel - Family Safety Monitoring and Real-Time Location Alerts
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

// Package validation provides struct validation using go-playground/validator v10.
//
// This package wraps the go-playground/validator library to provide a thread-safe
// singleton validator instance with user-friendly error messages. It integrates
// with the application's API error format for consistent error responses.
//
// # Overview
//
// The package provides:
//   - Thread-safe singleton validator (initialized once, cached struct info)
//   - Error translation to human-readable messages
//   - APIError conversion matching the application's error format
//   - Built-in validator support (latitude, longitude, uuid, oneof, etc.)
//
// # Quick Start
//
//	type LocationUpdateRequest struct {
//	    Latitude  float64 `json:"latitude" validate:"latitude"`
//	    Longitude float64 `json:"longitude" validate:"longitude"`
//	    Address   string  `json:"address" validate:"omitempty,max=500"`
//	}
//
//	func handler(w http.ResponseWriter, r *http.Request) {
//	    var req LocationUpdateRequest
//	    if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
//	        // handle decode error
//	    }
//
//	    if verr := validation.ValidateStruct(&req); verr != nil {
//	        apiErr := verr.ToAPIError()
//	        respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
//	        return
//	    }
//
//	    // proceed with valid request
//	}
//
// # Common Validation Tags
//
// Coordinate validations (WGS84 bounds):
//   - latitude: Valid latitude (-90 to 90)
//   - longitude: Valid longitude (-180 to 180)
//
// String validations:
//   - required: Field must not be empty
//   - min=n / max=n: Length bounds in characters
//   - oneof=a b c: Must be one of the specified values
//
// Numeric validations:
//   - gte=n / lte=n / gt=n / lt=n: Range bounds
//
// Nested validations:
//   - dive: Apply the following tags to each slice element (used for
//     route path vertices)
//
// # API Error Integration
//
// The ToAPIError method produces errors matching the application format:
//
//	// Single field error
//	{
//	    "code": "VALIDATION_ERROR",
//	    "message": "Latitude must be a valid latitude (-90 to 90)",
//	    "details": {"field": "Latitude", "tag": "latitude", "value": 91}
//	}
//
//	// Multiple field errors
//	{
//	    "code": "VALIDATION_ERROR",
//	    "message": "Latitude: must be a valid latitude (-90 to 90); State: required",
//	    "details": {
//	        "fields": [
//	            {"field": "Latitude", "tag": "latitude", "message": "..."},
//	            {"field": "State", "tag": "required", "message": "..."}
//	        ]
//	    }
//	}
//
// # Thread Safety
//
// The singleton validator is initialized once and safe for concurrent use:
//
//	validate := validation.GetValidator()  // Thread-safe
//	err := validation.ValidateStruct(&req) // Thread-safe
//
// # See Also
//
//   - internal/api: Request handlers using validation
//   - github.com/go-playground/validator/v10: Underlying library
package validation
