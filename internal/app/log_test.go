package app

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"
)

func TestPvHandler_Handle(t *testing.T) {
	ts := time.Date(2024, 6, 15, 14, 30, 45, 0, time.UTC)

	tests := []struct {
		name    string
		opID    string
		level   slog.Level
		message string
		attrs   []slog.Attr
		want    string
	}{
		{
			name:    "basic info message",
			opID:    "20240615T143045Z-Sync",
			level:   slog.LevelInfo,
			message: "database uploaded",
			want:    "2024-06-15T14:30:45Z\tINFO\t20240615T143045Z-Sync\tdatabase uploaded\n",
		},
		{
			name:    "warn level",
			opID:    "20240615T143045Z-Check",
			level:   slog.LevelWarn,
			message: "collision check degraded to cache-only results",
			want:    "2024-06-15T14:30:45Z\tWARN\t20240615T143045Z-Check\tcollision check degraded to cache-only results\n",
		},
		{
			name:    "with record attrs",
			opID:    "20240615T143045Z-Check",
			level:   slog.LevelInfo,
			message: "photo overwritten",
			attrs:   []slog.Attr{slog.String("user", "alice"), slog.String("filename", "beach.jpg")},
			want:    "2024-06-15T14:30:45Z\tINFO\t20240615T143045Z-Check\tphoto overwritten\tuser=alice\tfilename=beach.jpg\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			h := &pvHandler{w: &buf, opID: tt.opID}

			r := slog.NewRecord(ts, tt.level, tt.message, 0)
			for _, a := range tt.attrs {
				r.AddAttrs(a)
			}

			if err := h.Handle(context.Background(), r); err != nil {
				t.Fatalf("Handle() error = %v", err)
			}

			if got := buf.String(); got != tt.want {
				t.Errorf("Handle() output =\n%q\nwant:\n%q", got, tt.want)
			}
		})
	}
}

func TestPvHandler_WithAttrs(t *testing.T) {
	var buf bytes.Buffer
	h := &pvHandler{w: &buf, opID: "op-1"}

	h2 := h.WithAttrs([]slog.Attr{slog.String("component", "syncer")}).(*pvHandler)

	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	r := slog.NewRecord(ts, slog.LevelInfo, "upload", 0)
	r.AddAttrs(slog.String("user", "alice"))

	if err := h2.Handle(context.Background(), r); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}

	want := "2024-01-01T00:00:00Z\tINFO\top-1\tupload\tcomponent=syncer\tuser=alice\n"
	if got := buf.String(); got != want {
		t.Errorf("Handle() output =\n%q\nwant:\n%q", got, want)
	}

	// The original handler is unchanged.
	buf.Reset()
	if err := h.Handle(context.Background(), slog.NewRecord(ts, slog.LevelInfo, "upload", 0)); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if got := buf.String(); got != "2024-01-01T00:00:00Z\tINFO\top-1\tupload\n" {
		t.Errorf("original handler output = %q", got)
	}
}
