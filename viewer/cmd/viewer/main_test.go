package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/chirpwall/chirpwall/pkg/wire"
)

func board(t *testing.T, status int, body string) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(status)
		w.Write([]byte(body)) //nolint:errcheck
	}))
	t.Cleanup(srv.Close)
	return srv.URL
}

func TestRunPost_ExitCodes(t *testing.T) {
	ok := board(t, http.StatusOK,
		`{"data":{"createMessage":{"id":"1","content":"hi","author":"bob","createdAt":"2024-01-01T00:00:00Z"}}}`)
	if code := runPost(context.Background(), ok, "hi", "bob"); code != 0 {
		t.Errorf("accepted post: got exit %d, want 0", code)
	}

	rejected := board(t, http.StatusOK, `{"errors":[{"message":"Content and author are required"}]}`)
	if code := runPost(context.Background(), rejected, "hi", ""); code != 1 {
		t.Errorf("rejected post: got exit %d, want 1", code)
	}
}

func TestRunList_ExitCodes(t *testing.T) {
	ok := board(t, http.StatusOK, `{"data":{"messages":[]}}`)
	if code := runList(context.Background(), ok); code != 0 {
		t.Errorf("list: got exit %d, want 0", code)
	}

	broken := board(t, http.StatusBadRequest, `{"errors":[{"message":"bad"}]}`)
	if code := runList(context.Background(), broken); code != 1 {
		t.Errorf("failed list: got exit %d, want 1", code)
	}
}

func TestPrintView(t *testing.T) {
	at := time.Date(2024, 1, 1, 12, 0, 0, 0, time.Local)
	var buf bytes.Buffer
	printView(&buf, []wire.Message{
		{ID: "2", Content: "second", Author: "bob", CreatedAt: at},
		{ID: "1", Content: "first", Author: "alice", CreatedAt: at},
	})

	out := buf.String()
	if !strings.Contains(out, "chirpwall (2 messages)") {
		t.Errorf("header missing: %q", out)
	}
	second := strings.Index(out, "[12:00:00] bob: second")
	first := strings.Index(out, "[12:00:00] alice: first")
	if second < 0 || first < 0 || second > first {
		t.Errorf("lines missing or out of order: %q", out)
	}
}
