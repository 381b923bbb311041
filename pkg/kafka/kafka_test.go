package kafka

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
)

type pageEvent struct {
	URL   string   `json:"url"`
	Words []string `json:"words"`
}

func TestDecodeJSON(t *testing.T) {
	got, err := DecodeJSON[pageEvent]([]byte(`{"url":"file:///a.html","words":["x","y"]}`))
	if err != nil {
		t.Fatal(err)
	}
	if got.URL != "file:///a.html" || len(got.Words) != 2 {
		t.Errorf("DecodeJSON = %+v", got)
	}
	if _, err := DecodeJSON[pageEvent]([]byte(`{not json`)); err == nil {
		t.Error("expected error for invalid JSON")
	}
}

func TestJSONHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	var seen []string
	boom := errors.New("boom")
	h := JSONHandler(logger, func(_ context.Context, key string, ev pageEvent) error {
		seen = append(seen, key+"="+ev.URL)
		if ev.URL == "fail" {
			return boom
		}
		return nil
	})
	ctx := context.Background()

	if err := h(ctx, []byte("k1"), []byte(`{"url":"file:///a.html"}`)); err != nil {
		t.Errorf("valid message: %v", err)
	}
	if err := h(ctx, []byte("k2"), []byte(`garbage`)); err != nil {
		t.Errorf("undecodable message should be skipped, got %v", err)
	}
	if err := h(ctx, []byte("k3"), []byte(`{"url":"fail"}`)); !errors.Is(err, boom) {
		t.Errorf("handler error = %v, want boom", err)
	}
	if len(seen) != 2 || seen[0] != "k1=file:///a.html" {
		t.Errorf("seen = %v", seen)
	}
}

func TestEncodeRejectsUnmarshalable(t *testing.T) {
	_, err := encode([]Event{{Key: "ok", Value: 1}, {Key: "bad", Value: make(chan int)}})
	if err == nil {
		t.Fatal("expected marshal error")
	}
	msgs, err := encode([]Event{{Key: "a", Value: map[string]int{"n": 1}}})
	if err != nil || string(msgs[0].Value) != `{"n":1}` || string(msgs[0].Key) != "a" {
		t.Errorf("encode = %+v, %v", msgs, err)
	}
}
