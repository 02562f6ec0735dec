package recorder

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/handiism/post-exporter/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testJob(mode model.Mode) *model.ExportJob {
	return &model.ExportJob{
		ID:   "job-1",
		Post: &model.Post{ID: "post_42"},
		Formats: []model.FormatDescriptor{
			{Key: "instagram_feed", Label: "Instagram Feed", Aspect: "1:1", Width: 1080, Height: 1080},
			{Key: "tiktok", Label: "TikTok", Aspect: "9:16", Width: 1080, Height: 1920},
		},
		Mode: mode,
	}
}

func TestNewRequest(t *testing.T) {
	req := NewRequest(testJob(model.ModeArchive), false)
	assert.Equal(t, "post_42", req.PostID)
	assert.False(t, req.Schedule)
	require.Len(t, req.Formats, 2)
	assert.Equal(t, FormatRequest{Platform: "tiktok", Width: 1080, Height: 1920, Label: "TikTok"}, req.Formats[1])

	assert.True(t, NewRequest(testJob(model.ModeSchedule), false).Schedule)
	assert.True(t, NewRequest(testJob(model.ModeArchive), true).Schedule)

	data, err := json.Marshal(req)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"post_id": "post_42",
		"schedule": false,
		"formats": [
			{"platform": "instagram_feed", "width": 1080, "height": 1080, "label": "Instagram Feed"},
			{"platform": "tiktok", "width": 1080, "height": 1920, "label": "TikTok"}
		]
	}`, string(data))
}

func TestStaticRecorder(t *testing.T) {
	records, err := StaticRecorder{}.Record(context.Background(), NewRequest(testJob(model.ModeArchive), false))
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.NotEmpty(t, records[0].ID)
	assert.NotEqual(t, records[0].ID, records[1].ID)
	assert.Equal(t, "instagram_feed", records[0].Platform)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = StaticRecorder{}.Record(ctx, Request{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestHTTPRecorder(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"envelope", `{"records":[{"id":"r1","platform":"instagram_feed","width":1080,"height":1080,"label":"IG Feed"},{"id":"r2","platform":"tiktok","width":720,"height":1280,"label":"TikTok"}]}`},
		{"bare array", `[{"id":"r1","platform":"instagram_feed","width":1080,"height":1080,"label":"IG Feed"},{"id":"r2","platform":"tiktok","width":720,"height":1280,"label":"TikTok"}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got Request
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/exports", r.URL.Path)
				assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			rec := NewHTTPRecorder(srv.URL+"/", nil)
			records, err := rec.Record(context.Background(), NewRequest(testJob(model.ModeArchive), false))
			require.NoError(t, err)

			assert.Equal(t, "post_42", got.PostID)
			require.Len(t, records, 2)
			assert.Equal(t, "r2", records[1].ID)
			assert.Equal(t, 720, records[1].Width)
			assert.Equal(t, "IG Feed", records[0].Label)
		})
	}
}

func TestHTTPRecorder_Failures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"server error", http.StatusInternalServerError, "boom"},
		{"empty records", http.StatusOK, `{"records":[]}`},
		{"garbage", http.StatusOK, `<html>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewHTTPRecorder(srv.URL, nil).Record(context.Background(), NewRequest(testJob(model.ModeArchive), false))
			assert.Error(t, err)
		})
	}
}

func TestSQLiteRecorder(t *testing.T) {
	rec, err := OpenSQLite(filepath.Join(t.TempDir(), "db", "exports.db"))
	require.NoError(t, err)
	defer rec.Close()
	rec.now = func() time.Time { return time.Date(2026, 10, 17, 0, 0, 0, 0, time.UTC) }

	ctx := context.Background()
	records, err := rec.Record(ctx, NewRequest(testJob(model.ModeSchedule), false))
	require.NoError(t, err)
	require.Len(t, records, 2)

	got, err := rec.Lookup(ctx, records[1].ID)
	require.NoError(t, err)
	assert.Equal(t, records[1], got)

	_, err = rec.Lookup(ctx, "missing")
	assert.True(t, errors.Is(err, sql.ErrNoRows))

	_, err = rec.Record(ctx, NewRequest(testJob(model.ModeArchive), false))
	require.NoError(t, err)

	n, err := rec.ScheduledCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestSQLiteRecorder_InMemory(t *testing.T) {
	rec, err := OpenSQLite(":memory:")
	require.NoError(t, err)
	defer rec.Close()

	records, err := rec.Record(context.Background(), NewRequest(testJob(model.ModeArchive), false))
	require.NoError(t, err)
	assert.Len(t, records, 2)
}
