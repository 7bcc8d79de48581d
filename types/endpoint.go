package types

import (
	"fmt"
	"net"
	"strings"
)

// HealthCheck selects how an endpoint's status response is judged.
type HealthCheck string

const (
	// CheckStatusOK accepts any HTTP 200 response.
	CheckStatusOK HealthCheck = "status_ok"
	// CheckSeleniumReady requires HTTP 200 and {"value": {"ready": true}}.
	CheckSeleniumReady HealthCheck = "selenium_ready"
)

// Endpoint describes one automation backend the harness waits for.
type Endpoint struct {
	Name     string
	Host     string
	Port     string
	Path     string
	Required bool
	Check    HealthCheck
}

// URL returns the status URL polled by the readiness prober.
func (e Endpoint) URL() string {
	path := e.Path
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return fmt.Sprintf("http://%s%s", net.JoinHostPort(e.Host, e.Port), path)
}

// ServiceStatus is the resolved readiness of one endpoint.
type ServiceStatus struct {
	Name     string `json:"name"`
	URL      string `json:"url"`
	Required bool   `json:"required"`
	Ready    bool   `json:"ready"`
	Attempts int    `json:"attempts"`
}
