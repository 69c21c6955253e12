package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestClient_SendsBearerToken(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	}))
	defer srv.Close()

	var out map[string]string
	client := NewClient(srv.URL).WithToken("tok-123")
	if err := client.Get(context.Background(), "/health", &out); err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if gotAuth != "Bearer tok-123" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if out["status"] != "ok" {
		t.Errorf("status = %q", out["status"])
	}
}

func TestClient_NoTokenNoHeader(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := r.Header["Authorization"]; ok {
			t.Error("unexpected Authorization header")
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	if err := NewClient(srv.URL).WithToken("").Delete(context.Background(), "/api/books/x"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
}

func TestClient_PostJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q", ct)
		}
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(body)
	}))
	defer srv.Close()

	var out map[string]any
	err := NewClient(srv.URL).Post(context.Background(), "/echo", map[string]any{"voice": "Kore"}, &out)
	if err != nil {
		t.Fatal(err)
	}
	if out["voice"] != "Kore" {
		t.Errorf("echo = %v", out)
	}
}

func TestClient_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"validation failed","fields":{"seconds":"is required"}}`))
	}))
	defer srv.Close()

	err := NewClient(srv.URL).Put(context.Background(), "/x", map[string]any{}, nil)
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if se.Code != http.StatusBadRequest || se.Fields["seconds"] != "is required" {
		t.Errorf("unexpected error: %+v", se)
	}
}

func TestClient_Upload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("ParseMultipartForm: %v", err)
			return
		}
		f, fh, err := r.FormFile("file")
		if err != nil {
			t.Errorf("FormFile: %v", err)
			return
		}
		defer f.Close()
		data, _ := io.ReadAll(f)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{
			"filename":     fh.Filename,
			"content_type": fh.Header.Get("Content-Type"),
			"title":        r.FormValue("title"),
			"body":         string(data),
		})
	}))
	defer srv.Close()

	var out map[string]string
	err := NewClient(srv.URL).Upload(context.Background(), "/api/books", "file", "novel.pdf", "application/pdf",
		strings.NewReader("%PDF-1.4"), map[string]string{"title": "Novel"}, &out)
	if err != nil {
		t.Fatal(err)
	}
	if out["filename"] != "novel.pdf" || out["content_type"] != "application/pdf" || out["title"] != "Novel" || out["body"] != "%PDF-1.4" {
		t.Errorf("unexpected upload: %v", out)
	}
}

func TestClient_Download(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"error":"part not found"}`))
			return
		}
		w.Header().Set("Content-Type", "audio/wav")
		w.Write([]byte("RIFFdata"))
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	var buf bytes.Buffer
	n, err := client.Download(context.Background(), "/audio", &buf)
	if err != nil {
		t.Fatal(err)
	}
	if n != 8 || buf.String() != "RIFFdata" {
		t.Errorf("downloaded %d bytes: %q", n, buf.String())
	}

	_, err = client.Download(context.Background(), "/missing", &bytes.Buffer{})
	var se *StatusError
	if !errors.As(err, &se) || se.Code != http.StatusNotFound {
		t.Errorf("expected 404 StatusError, got %v", err)
	}
}

func TestOutputTo(t *testing.T) {
	data := map[string]any{"title": "Novel", "chapters": 3}

	var js bytes.Buffer
	if err := OutputTo(&js, OutputFormatJSON, data); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(js.String(), `"title": "Novel"`) {
		t.Errorf("json output = %s", js.String())
	}

	var ym bytes.Buffer
	if err := OutputTo(&ym, OutputFormatYAML, data); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(ym.String(), "title: Novel") {
		t.Errorf("yaml output = %s", ym.String())
	}

	if err := OutputTo(&ym, OutputFormat("xml"), data); err == nil {
		t.Error("expected error for unknown format")
	}
}

type bookRows []string

func (b bookRows) Table() ([]string, [][]string) {
	rows := make([][]string, len(b))
	for i, title := range b {
		rows[i] = []string{fmt.Sprint(i + 1), title}
	}
	return []string{"N", "TITLE"}, rows
}

func TestOutputTo_Table(t *testing.T) {
	var buf bytes.Buffer
	if err := OutputTo(&buf, OutputFormatTable, bookRows{"Dune", "Emma"}); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("table lines = %d, want 3:\n%s", len(lines), buf.String())
	}
	if !strings.HasPrefix(lines[0], "N  TITLE") || !strings.HasPrefix(lines[2], "2  Emma") {
		t.Errorf("table output:\n%s", buf.String())
	}

	// Values without a table form print as YAML
	buf.Reset()
	if err := OutputTo(&buf, OutputFormatTable, map[string]string{"title": "Dune"}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "title: Dune") {
		t.Errorf("fallback output = %s", buf.String())
	}
}

func TestSetOutputFormat(t *testing.T) {
	defer SetOutputFormat("yaml")
	for in, want := range map[string]OutputFormat{
		"json":  OutputFormatJSON,
		"TABLE": OutputFormatTable,
		"yaml":  OutputFormatYAML,
		"xml":   OutputFormatYAML,
	} {
		SetOutputFormat(in)
		if globalOutputFormat != want {
			t.Errorf("SetOutputFormat(%q) = %s, want %s", in, globalOutputFormat, want)
		}
	}
}
