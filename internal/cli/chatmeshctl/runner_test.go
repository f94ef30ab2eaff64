package chatmeshctl

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestRunHealthCommand(t *testing.T) {
	var gotMethod, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}))
	defer srv.Close()

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	code := Run(context.Background(), []string{"-base-url", srv.URL, "health"}, Options{
		Stdout:  &stdout,
		Stderr:  &stderr,
		Timeout: 2 * time.Second,
	})
	if code != 0 {
		t.Fatalf("exit code = %d, stderr=%s", code, stderr.String())
	}
	if gotMethod != http.MethodGet || gotPath != "/v1/health" {
		t.Fatalf("request = %s %s", gotMethod, gotPath)
	}
	if stdout.Len() == 0 {
		t.Fatal("expected command output")
	}
}

func TestRunAskCommandWithAttachment(t *testing.T) {
	var gotPath, gotQuery, gotSession, gotFilename string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
		}
		gotQuery = r.FormValue("query")
		gotSession = r.FormValue("session_id")
		if _, header, err := r.FormFile("attachment"); err == nil {
			gotFilename = header.Filename
		}
		_, _ = w.Write([]byte(`{"response":"3"}`))
	}))
	defer srv.Close()

	csvPath := filepath.Join(t.TempDir(), "sales.csv")
	if err := os.WriteFile(csvPath, []byte("a\n1\n2\n"), 0o600); err != nil {
		t.Fatalf("write csv: %v", err)
	}

	code := Run(context.Background(), []string{
		"-base-url", srv.URL,
		"-session", "conv-1",
		"-attach", csvPath,
		"ask", "what is the total?",
	}, Options{})
	if code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	if gotPath != "/v1/conversation" {
		t.Fatalf("path = %q", gotPath)
	}
	if gotQuery != "what is the total?" || gotSession != "conv-1" || gotFilename != "sales.csv" {
		t.Fatalf("query=%q session=%q filename=%q", gotQuery, gotSession, gotFilename)
	}
}

func TestRunUploadDocCommand(t *testing.T) {
	var gotPath, gotFilename string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
		}
		if _, header, err := r.FormFile("document"); err == nil {
			gotFilename = header.Filename
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"document":"report.pdf","chunks":2}`))
	}))
	defer srv.Close()

	pdfPath := filepath.Join(t.TempDir(), "report.pdf")
	if err := os.WriteFile(pdfPath, []byte("%PDF-1.4"), 0o600); err != nil {
		t.Fatalf("write pdf: %v", err)
	}

	code := Run(context.Background(), []string{"-base-url", srv.URL, "upload-doc", pdfPath}, Options{})
	if code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	if gotPath != "/v1/documents" || gotFilename != "report.pdf" {
		t.Fatalf("path=%q filename=%q", gotPath, gotFilename)
	}
}

func TestRunDeleteDocCommand(t *testing.T) {
	var gotMethod, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		_, _ = w.Write([]byte(`{"deleted":true}`))
	}))
	defer srv.Close()

	code := Run(context.Background(), []string{"-base-url", srv.URL, "delete-doc", "report.pdf"}, Options{})
	if code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	if gotMethod != http.MethodDelete || gotPath != "/v1/documents/report.pdf" {
		t.Fatalf("request = %s %s", gotMethod, gotPath)
	}
}

func TestRunUnknownCommand(t *testing.T) {
	var stderr bytes.Buffer
	code := Run(context.Background(), []string{"frobnicate"}, Options{Stderr: &stderr})
	if code != 2 {
		t.Fatalf("exit code = %d", code)
	}
	if !strings.Contains(stderr.String(), "unknown command") {
		t.Fatalf("stderr = %s", stderr.String())
	}
}

func TestRunAskRequiresQuestion(t *testing.T) {
	var stderr bytes.Buffer
	code := Run(context.Background(), []string{"ask"}, Options{Stderr: &stderr})
	if code != 2 {
		t.Fatalf("exit code = %d", code)
	}
}

func TestRunHTTPErrorExitsNonZero(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error_code":"NOT_READY"}`, http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	var stderr bytes.Buffer
	code := Run(context.Background(), []string{"-base-url", srv.URL, "ready"}, Options{Stderr: &stderr})
	if code != 1 {
		t.Fatalf("exit code = %d", code)
	}
	if !strings.Contains(stderr.String(), "http 503") {
		t.Fatalf("stderr = %s", stderr.String())
	}
}

func TestRunNoArgsPrintsUsage(t *testing.T) {
	var stderr bytes.Buffer
	code := Run(context.Background(), nil, Options{Stderr: &stderr})
	if code != 2 {
		t.Fatalf("exit code = %d", code)
	}
	if !strings.Contains(stderr.String(), "usage: chatmeshctl") {
		t.Fatalf("stderr = %s", stderr.String())
	}
}
