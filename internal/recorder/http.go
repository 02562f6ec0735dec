package recorder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/handiism/post-exporter/internal/http"
	"github.com/handiism/post-exporter/internal/model"
)

// HTTPRecorder registers exports with the remote backend.
//
// The request is POSTed to {BaseURL}/exports. The backend may answer with
// either {"records": [...]} or a bare JSON array of records.
type HTTPRecorder struct {
	baseURL string
	client  *http.Client
}

// NewHTTPRecorder creates a recorder for baseURL.
func NewHTTPRecorder(baseURL string, client *http.Client) *HTTPRecorder {
	if client == nil {
		client = http.NewClient()
	}
	return &HTTPRecorder{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
	}
}

// Record implements Recorder.
func (r *HTTPRecorder) Record(ctx context.Context, req Request) ([]model.ExportRecord, error) {
	var raw json.RawMessage
	if err := r.client.PostJSON(ctx, r.baseURL+"/exports", req, &raw); err != nil {
		return nil, err
	}
	records, err := decodeRecords(raw)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 && len(req.Formats) > 0 {
		return nil, fmt.Errorf("backend returned no records for %d formats", len(req.Formats))
	}
	return records, nil
}

func decodeRecords(raw json.RawMessage) ([]model.ExportRecord, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, nil
	}

	if trimmed[0] == '[' {
		var records []model.ExportRecord
		if err := json.Unmarshal(trimmed, &records); err != nil {
			return nil, fmt.Errorf("decode records: %w", err)
		}
		return records, nil
	}

	var envelope struct {
		Records []model.ExportRecord `json:"records"`
	}
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		return nil, fmt.Errorf("decode records: %w", err)
	}
	return envelope.Records, nil
}
