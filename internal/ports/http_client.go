package ports

import "net/http"

// HTTPClient is what the ledger adapter needs from an HTTP client.
// *http.Client satisfies it; tests inject fakes or httptest-backed clients.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}
