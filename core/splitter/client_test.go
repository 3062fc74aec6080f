package splitter

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"WaveSplit/model"
)

func TestSplitDecodesResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/audio/split" {
			t.Errorf("path = %s, want /audio/split", r.URL.Path)
		}
		var req map[string]string
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req["filePath"] != "/music/song.mp3" {
			t.Errorf("filePath = %s", req["filePath"])
		}
		json.NewEncoder(w).Encode(SplitResult{
			Segments: []SegmentCandidate{
				{Offset: 0, Duration: 180, MetadataOptions: []model.Metadata{{Title: "A"}}},
			},
			MismatchOffsets: []float64{42},
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, time.Second)
	result, err := client.Split(context.Background(), "/music/song.mp3")
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if len(result.Segments) != 1 || result.Segments[0].Duration != 180 {
		t.Errorf("segments = %+v", result.Segments)
	}
	if len(result.MismatchOffsets) != 1 || result.MismatchOffsets[0] != 42 {
		t.Errorf("mismatchOffsets = %v, want [42]", result.MismatchOffsets)
	}
}

func TestSplitBackendErrorIsTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "File does not exist!", http.StatusBadRequest)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, time.Second)
	_, err := client.Split(context.Background(), "/missing.mp3")

	var transportErr *model.TransportError
	if !errors.As(err, &transportErr) {
		t.Fatalf("error = %v, want TransportError", err)
	}
	if transportErr.Op != "split" {
		t.Errorf("Op = %s, want split", transportErr.Op)
	}
}

func TestSplitNetworkErrorIsTransportError(t *testing.T) {
	// Nothing listens here.
	client := NewClient("http://127.0.0.1:1", 100*time.Millisecond)
	_, err := client.Split(context.Background(), "/music/song.mp3")

	var transportErr *model.TransportError
	if !errors.As(err, &transportErr) {
		t.Errorf("error = %v, want TransportError", err)
	}
}

func TestGetSegmentReturnsRawBytes(t *testing.T) {
	payload := []byte("RIFF....WAVE")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/audio/get-segment" {
			t.Errorf("path = %s, want /audio/get-segment", r.URL.Path)
		}
		w.Write(payload)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, time.Second)
	data, err := client.GetSegment(context.Background(), "/music/song.mp3", 10, 120)
	if err != nil {
		t.Fatalf("GetSegment: %v", err)
	}
	if string(data) != string(payload) {
		t.Errorf("data = %q, want %q", data, payload)
	}
}

func TestStoreReportedFailureIsTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]bool{"success": false})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, time.Second)
	err := client.Store(context.Background(), StoreRequest{FilePath: "/music/song.mp3"})

	var transportErr *model.TransportError
	if !errors.As(err, &transportErr) {
		t.Fatalf("error = %v, want TransportError", err)
	}
	if transportErr.Op != "store" {
		t.Errorf("Op = %s, want store", transportErr.Op)
	}
}

func TestStoreSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req StoreRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.TargetDirectory != "/out" || req.Metadata.Title != "Song" {
			t.Errorf("request = %+v", req)
		}
		json.NewEncoder(w).Encode(map[string]bool{"success": true})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, time.Second)
	err := client.Store(context.Background(), StoreRequest{
		FilePath:        "/music/song.mp3",
		TargetDirectory: "/out",
		Offset:          10,
		Duration:        120,
		Metadata:        model.Metadata{Title: "Song"},
	})
	if err != nil {
		t.Fatalf("Store: %v", err)
	}
}
