package ports

import "net/http"

// HTTPClient is what the SOAP and reporting adapters need from an HTTP client.
// *http.Client satisfies it; tests substitute a stub.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}
