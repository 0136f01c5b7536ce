package pool

import (
	"net"
	"strconv"
	"strings"
)

const (
	// DefaultLocatorPort is the port assumed for a locator endpoint written without one.
	DefaultLocatorPort = 10334
	// DefaultServerPort is the port assumed for a server endpoint written without one.
	DefaultServerPort = 40404

	defaultHost = "localhost"
)

// Endpoint is a host:port pair for a locator or a server.
type Endpoint struct {
	Host string `json:"host" yaml:"host"`
	Port int    `json:"port" yaml:"port"`
}

// String returns the endpoint in host:port form.
func (e Endpoint) String() string {
	return net.JoinHostPort(e.Host, strconv.Itoa(e.Port))
}

// ParseEndpoint parses "host", "host:port" or ":port". A missing host becomes
// localhost and a missing port becomes defaultPort.
func ParseEndpoint(s string, defaultPort int) (Endpoint, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Endpoint{}, newEndpointError(s, "endpoint is empty")
	}

	host, portStr, err := net.SplitHostPort(s)
	if err != nil {
		// no port component
		host, portStr = strings.Trim(s, "[]"), ""
	}

	if host == "" {
		host = defaultHost
	}

	port := defaultPort
	if portStr != "" {
		port, err = strconv.Atoi(portStr)
		if err != nil {
			return Endpoint{}, newEndpointError(s, "port is not a number")
		}
	}

	if port <= 0 || port > 65535 {
		return Endpoint{}, newEndpointError(s, "port must be between 1 and 65535")
	}

	return Endpoint{Host: host, Port: port}, nil
}

// ParseEndpoints parses a list of endpoints, keeping the given order.
func ParseEndpoints(values []string, defaultPort int) ([]Endpoint, error) {
	endpoints := make([]Endpoint, 0, len(values))
	for _, v := range values {
		ep, err := ParseEndpoint(v, defaultPort)
		if err != nil {
			return nil, err
		}
		endpoints = append(endpoints, ep)
	}
	return endpoints, nil
}

// EndpointStrings formats endpoints as host:port strings.
func EndpointStrings(endpoints []Endpoint) []string {
	out := make([]string, len(endpoints))
	for i, ep := range endpoints {
		out[i] = ep.String()
	}
	return out
}
