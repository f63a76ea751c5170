package httputil

import (
	"net/http"
	"time"
)

// DefaultTimeout bounds a single upstream request, including reading the body.
const DefaultTimeout = 12 * time.Second

// NewClient returns an HTTP client with standard timeout configuration.
func NewClient() *http.Client {
	return &http.Client{
		Timeout: DefaultTimeout,
	}
}
