// Package http provides an HTTP client for the export backend.
//
// The Client in this package handles:
//   - User-Agent and bearer token headers
//   - JSON request and response bodies
//   - Timeout handling
//   - Typed errors for non-2xx responses
//
// # Basic Usage
//
//	client := http.NewClient(http.WithToken(token))
//
//	var records []model.ExportRecord
//	err := client.PostJSON(ctx, baseURL+"/exports", req, &records)
//
//	var status *http.StatusError
//	if errors.As(err, &status) && status.Code == 409 {
//	    // backend rejected the job
//	}
package http
