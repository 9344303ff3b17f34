package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func sseServer(t *testing.T, events []string, record *[]byte) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if record != nil {
			var body bytes.Buffer
			body.ReadFrom(r.Body)
			*record = body.Bytes()
		}
		w.Header().Set("Content-Type", "text/event-stream")
		for _, ev := range events {
			fmt.Fprintf(w, "data: %s\n\n", ev)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestAskOnce_StreamsReply(t *testing.T) {
	var recorded []byte
	srv := sseServer(t, []string{
		`{"type":"content","data":"Nadia "}`,
		`{"type":"content","data":"writes Go."}`,
		`{"type":"done"}`,
	}, &recorded)

	err := askOnce(context.Background(), srv.URL, "What does she do?", "en", "Sam")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var req struct {
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
		Language string `json:"language"`
		UserName string `json:"userName"`
	}
	if err := json.Unmarshal(recorded, &req); err != nil {
		t.Fatalf("unmarshal recorded request: %v", err)
	}
	if len(req.Messages) != 1 || req.Messages[0].Role != "user" {
		t.Errorf("messages = %+v", req.Messages)
	}
	if req.Messages[0].Content != "What does she do?" {
		t.Errorf("content = %q", req.Messages[0].Content)
	}
	if req.Language != "en" || req.UserName != "Sam" {
		t.Errorf("language = %q, userName = %q", req.Language, req.UserName)
	}
}

func TestAskOnce_StreamError(t *testing.T) {
	srv := sseServer(t, []string{
		`{"type":"content","data":"partial"}`,
		`{"type":"error","error":"request timed out","code":"TIMEOUT"}`,
	}, nil)

	err := askOnce(context.Background(), srv.URL, "hello", "", "")
	if err == nil {
		t.Fatal("expected error from error event, got nil")
	}
	if !strings.Contains(err.Error(), "TIMEOUT") {
		t.Errorf("error = %v, want TIMEOUT code", err)
	}
}

func TestAskOnce_PreStreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":"too many requests, slow down","code":"RATE_LIMIT_EXCEEDED"}`))
	}))
	t.Cleanup(srv.Close)

	err := askOnce(context.Background(), srv.URL, "hello", "", "")
	if err == nil {
		t.Fatal("expected error for 429 response, got nil")
	}
	if !strings.Contains(err.Error(), "RATE_LIMIT_EXCEEDED") {
		t.Errorf("error = %v, want RATE_LIMIT_EXCEEDED", err)
	}
}
