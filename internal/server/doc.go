// Package server provides the HTTP API for controlling recordings and
// inspecting service state, plus the Prometheus metrics endpoint.
package server
