package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestTelegramSend(t *testing.T) {
	var gotPath string
	var gotBody map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	tg := NewTelegramAt(srv.URL, "123:abc", "42")
	if err := tg.Send(context.Background(), "update done"); err != nil {
		t.Fatalf("send: %v", err)
	}
	if gotPath != "/bot123:abc/sendMessage" {
		t.Fatalf("path = %q", gotPath)
	}
	if gotBody["chat_id"] != "42" || gotBody["text"] != "update done" {
		t.Fatalf("body = %v", gotBody)
	}
}

func TestTelegramSendAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"ok":false,"description":"chat not found"}`))
	}))
	defer srv.Close()

	err := NewTelegramAt(srv.URL, "123:abc", "42").Send(context.Background(), "x")
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "chat not found") {
		t.Fatalf("error = %v", err)
	}
}

func TestTelegramSendConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close()
	if err := NewTelegramAt(srv.URL, "t", "c").Send(context.Background(), "x"); err == nil {
		t.Fatal("expected error for closed server")
	}
}

func TestWebhookSend(t *testing.T) {
	var gotBody map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content type = %q", ct)
		}
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
	}))
	defer srv.Close()

	if err := NewWebhook(srv.URL).Send(context.Background(), "hello"); err != nil {
		t.Fatalf("send: %v", err)
	}
	if gotBody["text"] != "hello" {
		t.Fatalf("body = %v", gotBody)
	}
}

func TestWebhookSendRejectedStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()
	if err := NewWebhook(srv.URL).Send(context.Background(), "x"); err == nil {
		t.Fatal("expected error for 403")
	}
}

func TestConsoleSend(t *testing.T) {
	var buf bytes.Buffer
	c := &Console{Out: &buf}
	if err := c.Send(context.Background(), "all good"); err != nil {
		t.Fatalf("send: %v", err)
	}
	if !strings.Contains(buf.String(), "all good") {
		t.Fatalf("output = %q", buf.String())
	}
}

type failing struct{ err error }

func (f failing) Send(context.Context, string) error { return f.err }
func (f failing) Name() string                       { return "failing" }

type counting struct{ n int }

func (c *counting) Send(context.Context, string) error { c.n++; return nil }
func (c *counting) Name() string                       { return "counting" }

func TestMultiCollectsFailures(t *testing.T) {
	ok := &counting{}
	bad := failing{err: errors.New("transport down")}
	m := Multi{ok, bad}
	err := m.Send(context.Background(), "x")
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "transport down") {
		t.Fatalf("error = %v", err)
	}
	if ok.n != 1 {
		t.Fatalf("healthy transport called %d times", ok.n)
	}
}

func TestMultiAllHealthy(t *testing.T) {
	a, b := &counting{}, &counting{}
	if err := (Multi{a, b}).Send(context.Background(), "x"); err != nil {
		t.Fatalf("send: %v", err)
	}
	if a.n != 1 || b.n != 1 {
		t.Fatalf("calls = %d, %d", a.n, b.n)
	}
}

func TestNop(t *testing.T) {
	if err := (Nop{}).Send(context.Background(), "x"); err != nil {
		t.Fatalf("nop: %v", err)
	}
}
