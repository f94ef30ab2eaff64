package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/chatmesh/chatmesh/internal/agent"
	"github.com/chatmesh/chatmesh/internal/attachment"
)

func multipartRequest(t *testing.T, target string, fields map[string]string, fileField, filename string, fileBody []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			t.Fatalf("write field %s: %v", key, err)
		}
	}
	if fileField != "" {
		part, err := writer.CreateFormFile(fileField, filename)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		if _, err := part.Write(fileBody); err != nil {
			t.Fatalf("write form file: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, target, &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func TestConversationPlainText(t *testing.T) {
	responder := &fakeResponder{out: agent.Output{Answer: "hello there", Tool: "general_reasoning"}}
	handler := NewHandler(testConfig(t), Dependencies{Agent: responder})

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, multipartRequest(t, "/v1/conversation", map[string]string{"query": "say hi"}, "", "", nil))

	if recorder.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", recorder.Code, recorder.Body.String())
	}
	var resp conversationResponse
	if err := json.Unmarshal(recorder.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Response != "hello there" || resp.Tool != "general_reasoning" {
		t.Fatalf("resp = %+v", resp)
	}
	if resp.SessionID == "" {
		t.Fatal("session_id should be generated")
	}
	if resp.Attachment != nil {
		t.Fatalf("attachment = %+v", resp.Attachment)
	}
	if responder.in.Query != "say hi" || responder.in.Spooled != nil {
		t.Fatalf("agent input = %+v", responder.in)
	}
}

func TestConversationKeepsSessionID(t *testing.T) {
	responder := &fakeResponder{out: agent.Output{Answer: "x", Tool: "general_reasoning"}}
	handler := NewHandler(testConfig(t), Dependencies{Agent: responder})

	fields := map[string]string{"query": "q", "session_id": "conv-42"}
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, multipartRequest(t, "/v1/conversation", fields, "", "", nil))

	var resp conversationResponse
	_ = json.Unmarshal(recorder.Body.Bytes(), &resp)
	if resp.SessionID != "conv-42" || responder.in.ConversationID != "conv-42" {
		t.Fatalf("session = %q, agent = %q", resp.SessionID, responder.in.ConversationID)
	}
}

func TestConversationMissingQuery(t *testing.T) {
	handler := NewHandler(testConfig(t), Dependencies{Agent: &fakeResponder{}})

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, multipartRequest(t, "/v1/conversation", nil, "", "", nil))
	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", recorder.Code)
	}
	var payload map[string]any
	_ = json.Unmarshal(recorder.Body.Bytes(), &payload)
	if payload["error_code"] != "MISSING_QUERY" {
		t.Fatalf("payload = %#v", payload)
	}
}

type spoolCapturingResponder struct {
	fakeResponder
	spoolPath string
	content   string
}

func (c *spoolCapturingResponder) Respond(ctx context.Context, in agent.Input) (agent.Output, error) {
	if in.Spooled != nil {
		c.spoolPath = in.Spooled.Path
		data, _ := os.ReadFile(in.Spooled.Path)
		c.content = string(data)
	}
	return c.fakeResponder.Respond(ctx, in)
}

func TestConversationSpoolsAndCleansAttachment(t *testing.T) {
	responder := &spoolCapturingResponder{
		fakeResponder: fakeResponder{out: agent.Output{Answer: "sum is 3", Tool: "query_from_table"}},
	}
	handler := NewHandler(testConfig(t), Dependencies{Agent: responder})

	req := multipartRequest(t, "/v1/conversation", map[string]string{"query": "total?"}, "attachment", "sales.csv", []byte("a\n1\n2\n"))
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, req)

	if recorder.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", recorder.Code, recorder.Body.String())
	}
	if responder.in.Spooled == nil || responder.in.Spooled.Kind != attachment.KindCSV {
		t.Fatalf("agent input = %+v", responder.in)
	}
	if responder.content != "a\n1\n2\n" {
		t.Fatalf("spooled content = %q", responder.content)
	}
	if _, err := os.Stat(responder.spoolPath); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("spool file %q not cleaned up: %v", responder.spoolPath, err)
	}

	var resp conversationResponse
	_ = json.Unmarshal(recorder.Body.Bytes(), &resp)
	if resp.Attachment == nil || resp.Attachment.Filename != "sales.csv" || resp.Attachment.Kind != "tabular-csv" {
		t.Fatalf("attachment = %+v", resp.Attachment)
	}
}

func TestConversationRejectsUnknownAttachmentKind(t *testing.T) {
	responder := &fakeResponder{}
	handler := NewHandler(testConfig(t), Dependencies{Agent: responder})

	req := multipartRequest(t, "/v1/conversation", map[string]string{"query": "q"}, "attachment", "archive.zip", []byte("zip"))
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, req)

	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", recorder.Code)
	}
	var payload map[string]any
	_ = json.Unmarshal(recorder.Body.Bytes(), &payload)
	if payload["error_code"] != "UNSUPPORTED_ATTACHMENT" {
		t.Fatalf("payload = %#v", payload)
	}
	if responder.in.Query != "" {
		t.Fatal("agent should not be invoked for rejected attachments")
	}
}

func TestConversationAgentFailure(t *testing.T) {
	responder := &fakeResponder{err: errors.New("backend down")}
	handler := NewHandler(testConfig(t), Dependencies{Agent: responder})

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, multipartRequest(t, "/v1/conversation", map[string]string{"query": "q"}, "", "", nil))
	if recorder.Code != http.StatusBadGateway {
		t.Fatalf("status = %d", recorder.Code)
	}
}

func TestConversationRejectsOversizedAttachment(t *testing.T) {
	responder := &fakeResponder{out: agent.Output{Answer: "x"}}
	handler := NewHandler(testConfig(t), Dependencies{Agent: responder, MaxUploadBytes: 8})

	body := bytes.Repeat([]byte("a"), 64)
	req := multipartRequest(t, "/v1/conversation", map[string]string{"query": "q"}, "attachment", "big.csv", body)
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, req)
	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("status = %d body = %s", recorder.Code, recorder.Body.String())
	}
}

func TestConversationRejectsNonMultipart(t *testing.T) {
	handler := NewHandler(testConfig(t), Dependencies{Agent: &fakeResponder{}})

	req := httptest.NewRequest(http.MethodPost, "/v1/conversation", io.NopCloser(bytes.NewReader([]byte(`{"query":"q"}`))))
	req.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, req)
	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", recorder.Code)
	}
}
