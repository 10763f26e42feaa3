// Package api serves the read-only status and metrics HTTP endpoints that
// run alongside a recording session (/status, /metrics).
package api
