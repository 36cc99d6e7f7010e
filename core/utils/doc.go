// Package utils provides value coercion helpers shared by the store adapters
// and the attribute converters. Values coming out of SQL drivers and JSON
// payloads arrive with loose types ([]byte, float64, "1"); these helpers
// normalize them before they are compared or written back.
package utils
