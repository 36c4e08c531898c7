package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hazyhaar/domconsole/inspect"
	"github.com/hazyhaar/domconsole/record"
)

func sample() record.Record {
	return record.Record{
		ID:     "rec_1",
		Seq:    1,
		Method: record.MethodLog,
		Values: []inspect.Node{inspect.Introspect(42)},
		Text:   "42",
	}
}

func TestStdout_JSONLines(t *testing.T) {
	var buf bytes.Buffer
	s := NewStdout(&buf)
	if err := s.Send(context.Background(), sample()); err != nil {
		t.Fatal(err)
	}
	if err := s.Send(context.Background(), sample()); err != nil {
		t.Fatal(err)
	}
	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	if len(lines) != 2 {
		t.Fatalf("lines %d, want 2", len(lines))
	}
	var env struct {
		Type string        `json:"type"`
		Data record.Record `json:"data"`
	}
	if err := json.Unmarshal(lines[0], &env); err != nil {
		t.Fatal(err)
	}
	if env.Type != "record" || env.Data.Text != "42" {
		t.Errorf("envelope %+v", env)
	}
}

func TestCallback(t *testing.T) {
	var got record.Record
	c := NewCallback(func(_ context.Context, r record.Record) error {
		got = r
		return nil
	})
	if err := c.Send(context.Background(), sample()); err != nil {
		t.Fatal(err)
	}
	if got.ID != "rec_1" {
		t.Errorf("got %+v", got)
	}
	if err := NewCallback(nil).Send(context.Background(), sample()); err != nil {
		t.Errorf("nil callback err = %v", err)
	}
}

func TestRouter_FanOutContinuesPastErrors(t *testing.T) {
	boom := errors.New("boom")
	var calls int
	count := NewCallback(func(context.Context, record.Record) error { calls++; return nil })
	fail := NewCallback(func(context.Context, record.Record) error { return boom })

	r := NewRouter(nil, fail, count, count)
	if r.Len() != 3 {
		t.Fatalf("len %d", r.Len())
	}
	if err := r.Send(context.Background(), sample()); !errors.Is(err, boom) {
		t.Errorf("err = %v, want boom", err)
	}
	if calls != 2 {
		t.Errorf("calls %d, want 2", calls)
	}
}

func TestWebhook_Delivers(t *testing.T) {
	var got record.Record
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("content-type %q", r.Header.Get("Content-Type"))
		}
		var env struct {
			Data record.Record `json:"data"`
		}
		if err := json.NewDecoder(r.Body).Decode(&env); err != nil {
			t.Error(err)
		}
		got = env.Data
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	if err := NewWebhook(srv.URL).Send(context.Background(), sample()); err != nil {
		t.Fatal(err)
	}
	if got.ID != "rec_1" || len(got.Values) != 1 {
		t.Errorf("got %+v", got)
	}
}

func TestWebhook_RetriesThenSucceeds(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	wh := NewWebhook(srv.URL, WithWebhookBackoff(time.Millisecond))
	if err := wh.Send(context.Background(), sample()); err != nil {
		t.Fatal(err)
	}
	if hits.Load() != 3 {
		t.Errorf("hits %d, want 3", hits.Load())
	}
}

func TestWebhook_Exhausted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	wh := NewWebhook(srv.URL, WithWebhookRetries(1), WithWebhookBackoff(time.Millisecond))
	if err := wh.Send(context.Background(), sample()); err == nil {
		t.Fatal("expected error")
	}
}

func TestWebhook_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	wh := NewWebhook(srv.URL, WithWebhookBackoff(time.Hour))
	if err := wh.Send(ctx, sample()); err == nil {
		t.Fatal("expected error")
	}
}
