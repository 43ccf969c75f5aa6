// Package discovery centralizes the port conventions of the two processes.
package discovery

import (
	"strconv"
	"strings"
)

const (
	// ServiceWeb is the HTTP web responder.
	ServiceWeb = "web"
	// ServiceWorker is the background worker, reachable only over gRPC health.
	ServiceWorker = "worker"
)

const (
	// DefaultWebPort is used when PORT is not provided by the platform.
	DefaultWebPort = 3000
	// DefaultWorkerPort is the worker gRPC health port.
	DefaultWorkerPort = 8089
)

var grpcPorts = map[string]int{
	ServiceWorker: DefaultWorkerPort,
}

var httpPorts = map[string]int{
	ServiceWeb: DefaultWebPort,
}

// DefaultGRPCAddr returns the loopback gRPC address for a service.
func DefaultGRPCAddr(service string) string {
	return defaultAddr(strings.TrimSpace(service), grpcPorts)
}

// DefaultHTTPAddr returns the loopback HTTP address for a service.
func DefaultHTTPAddr(service string) string {
	return defaultAddr(strings.TrimSpace(service), httpPorts)
}

// OrDefaultGRPCAddr returns value when set, otherwise the service convention.
func OrDefaultGRPCAddr(value, service string) string {
	value = strings.TrimSpace(value)
	if value != "" {
		return value
	}
	return DefaultGRPCAddr(service)
}

// OrDefaultHTTPBaseURL returns value when set, otherwise http://<host:port>.
// A bare host:port value gets the http scheme prepended.
func OrDefaultHTTPBaseURL(value, service string) string {
	value = strings.TrimRight(strings.TrimSpace(value), "/")
	if value == "" {
		value = DefaultHTTPAddr(service)
		if value == "" {
			return ""
		}
	}
	if !strings.Contains(value, "://") {
		value = "http://" + value
	}
	return value
}

// ListenAddr turns a port into a listen address on all interfaces.
func ListenAddr(port int) string {
	return ":" + strconv.Itoa(port)
}

func defaultAddr(service string, ports map[string]int) string {
	port, ok := ports[service]
	if !ok {
		return ""
	}
	return "127.0.0.1:" + strconv.Itoa(port)
}
