package httpclient_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/nerrad567/gray-logic-reactor/internal/clients/httpclient"
	"github.com/nerrad567/gray-logic-reactor/internal/infrastructure/config"
)

func testClient(maxBody int64) *httpclient.Client {
	return httpclient.New(config.HTTPConfig{
		Timeout:     5,
		MaxBodySize: maxBody,
		UserAgent:   "grayreactor-test",
	})
}

func TestGet(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ua := r.Header.Get("User-Agent"); ua != "grayreactor-test" {
			t.Errorf("User-Agent = %q, want %q", ua, "grayreactor-test")
		}
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("hello reactor")) //nolint:errcheck // Test server
	}))
	defer server.Close()

	client := testClient(0)
	resp, err := client.Get(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}

	if resp.StatusCode != http.StatusOK {
		t.Errorf("StatusCode = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	if string(resp.Body) != "hello reactor" {
		t.Errorf("Body = %q, want %q", resp.Body, "hello reactor")
	}
}

func TestGet_BodyTooLarge(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(strings.Repeat("x", 2048))) //nolint:errcheck // Test server
	}))
	defer server.Close()

	client := testClient(1024)
	_, err := client.Get(context.Background(), server.URL)
	if !errors.Is(err, httpclient.ErrBodyTooLarge) {
		t.Errorf("Get() error = %v, want ErrBodyTooLarge", err)
	}
}

func TestGet_InvalidURL(t *testing.T) {
	client := testClient(0)

	tests := []struct {
		name string
		url  string
	}{
		{name: "empty", url: ""},
		{name: "relative", url: "/just/a/path"},
		{name: "bad scheme", url: "ftp://example.com/file"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := client.Get(context.Background(), tt.url)
			if !errors.Is(err, httpclient.ErrInvalidURL) {
				t.Errorf("Get(%q) error = %v, want ErrInvalidURL", tt.url, err)
			}
		})
	}
}

func TestGet_ContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := testClient(0)
	_, err := client.Get(ctx, server.URL)
	if err == nil {
		t.Error("Get() with cancelled context should fail")
	}
}

func TestDo_BuilderRequest(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("Method = %q, want POST", r.Method)
		}
		if got := r.URL.Query().Get("kind"); got != "probe" {
			t.Errorf("query kind = %q, want %q", got, "probe")
		}
		if got := r.Header.Get("X-Request-Source"); got != "monitor" {
			t.Errorf("X-Request-Source = %q, want %q", got, "monitor")
		}
		body, _ := io.ReadAll(r.Body) //nolint:errcheck // Test server
		if string(body) != `{"ping":true}` {
			t.Errorf("body = %q", body)
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	client := testClient(0)
	req := httpclient.NewRequest(http.MethodPost, server.URL).
		WithQuery("kind", "probe").
		WithHeader("X-Request-Source", "monitor").
		WithBody([]byte(`{"ping":true}`))

	resp, err := client.Do(context.Background(), req)
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if resp.StatusCode != http.StatusAccepted {
		t.Errorf("StatusCode = %d, want %d", resp.StatusCode, http.StatusAccepted)
	}
}
