package telegram

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestSendMessage(t *testing.T) {
	var got sendMessageReq
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/botTOKEN/sendMessage" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&got)
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	c := NewClient("TOKEN")
	c.BaseURL = srv.URL
	if err := c.SendMessage(context.Background(), 42, "Nueva cita"); err != nil {
		t.Fatalf("send message: %v", err)
	}
	if got.ChatID != 42 || got.Text != "Nueva cita" {
		t.Errorf("unexpected payload %+v", got)
	}
}

func TestSendDocument(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/botTOKEN/sendDocument" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse form: %v", err)
			return
		}
		if r.FormValue("chat_id") != "7" || r.FormValue("caption") != "Cita C-1" {
			t.Errorf("unexpected fields %v", r.MultipartForm.Value)
		}
		f, h, err := r.FormFile("document")
		if err != nil {
			t.Errorf("form file: %v", err)
			return
		}
		defer f.Close()
		data, _ := io.ReadAll(f)
		if h.Filename != "cita.pdf" || string(data) != "%PDF" {
			t.Errorf("unexpected document %s %q", h.Filename, data)
		}
	}))
	defer srv.Close()

	c := NewClient("TOKEN")
	c.BaseURL = srv.URL
	if err := c.SendDocument(context.Background(), 7, []byte("%PDF"), "cita.pdf", "Cita C-1"); err != nil {
		t.Fatalf("send document: %v", err)
	}
}

func TestAPIErrorIncludesBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"ok":false,"description":"chat not found"}`))
	}))
	defer srv.Close()

	c := NewClient("TOKEN")
	c.BaseURL = srv.URL
	err := c.SendMessage(context.Background(), 1, "hola")
	if err == nil || !strings.Contains(err.Error(), "chat not found") {
		t.Fatalf("expected telegram error body, got %v", err)
	}
}
