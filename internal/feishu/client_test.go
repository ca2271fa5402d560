package feishu

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func tokenResponse(token string) string {
	return `{"code": 0, "msg": "ok", "tenant_access_token": "` + token + `", "expire": 7200}`
}

func TestClient_TokenCached(t *testing.T) {
	var tokenCalls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == tokenEndpoint {
			atomic.AddInt32(&tokenCalls, 1)
			w.Write([]byte(tokenResponse("t-1")))
			return
		}
		w.Write([]byte(`{"code": 0, "msg": "ok", "data": {}}`))
	}))
	defer srv.Close()

	c := NewClient("app", "secret", srv.URL)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := c.SendText(ctx, "oc_chat", "hi"); err != nil {
			t.Fatalf("SendText() error: %v", err)
		}
	}

	if got := atomic.LoadInt32(&tokenCalls); got != 1 {
		t.Errorf("token endpoint called %d times, want 1 (cached)", got)
	}
}

func TestClient_RetriesOnceOnExpiredToken(t *testing.T) {
	var tokenCalls, sendCalls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case tokenEndpoint:
			n := atomic.AddInt32(&tokenCalls, 1)
			w.Write([]byte(tokenResponse("t-" + string(rune('0'+n)))))
		default:
			// First send fails with a token-expired code; the retry succeeds.
			if atomic.AddInt32(&sendCalls, 1) == 1 {
				w.Write([]byte(`{"code": 99991663, "msg": "token expired"}`))
				return
			}
			w.Write([]byte(`{"code": 0, "msg": "ok", "data": {"message_id": "om_1"}}`))
		}
	}))
	defer srv.Close()

	c := NewClient("app", "secret", srv.URL)
	if err := c.SendText(context.Background(), "oc_chat", "hi"); err != nil {
		t.Fatalf("SendText() error: %v", err)
	}

	if got := atomic.LoadInt32(&sendCalls); got != 2 {
		t.Errorf("send called %d times, want 2 (retry once)", got)
	}
	if got := atomic.LoadInt32(&tokenCalls); got != 2 {
		t.Errorf("token endpoint called %d times, want 2 (refresh after expiry)", got)
	}
}

func TestClient_SendTextBody(t *testing.T) {
	var gotPath, gotQuery string
	var gotBody map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == tokenEndpoint {
			w.Write([]byte(tokenResponse("t")))
			return
		}
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.Write([]byte(`{"code": 0, "msg": "ok", "data": {"message_id": "om_1"}}`))
	}))
	defer srv.Close()

	c := NewClient("app", "secret", srv.URL)
	if err := c.SendText(context.Background(), "oc_chat", "hello world"); err != nil {
		t.Fatalf("SendText() error: %v", err)
	}

	if gotPath != "/open-apis/im/v1/messages" {
		t.Errorf("path = %q", gotPath)
	}
	if gotQuery != "receive_id_type=chat_id" {
		t.Errorf("query = %q", gotQuery)
	}
	if gotBody["receive_id"] != "oc_chat" || gotBody["msg_type"] != "text" {
		t.Errorf("body = %v", gotBody)
	}

	var content map[string]string
	if err := json.Unmarshal([]byte(gotBody["content"]), &content); err != nil {
		t.Fatalf("content is not a serialized JSON document: %v", err)
	}
	if content["text"] != "hello world" {
		t.Errorf("content.text = %q", content["text"])
	}
}

func TestClient_SendErrorPropagates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == tokenEndpoint {
			w.Write([]byte(tokenResponse("t")))
			return
		}
		w.Write([]byte(`{"code": 230002, "msg": "bot not in chat"}`))
	}))
	defer srv.Close()

	c := NewClient("app", "secret", srv.URL)
	if err := c.SendText(context.Background(), "oc_chat", "hi"); err == nil {
		t.Errorf("SendText() succeeded, want error for non-zero code")
	}
}

func TestClient_GetBotInfo(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == tokenEndpoint {
			w.Write([]byte(tokenResponse("t")))
			return
		}
		if r.URL.Path != "/open-apis/bot/v3/info" {
			t.Errorf("path = %q", r.URL.Path)
		}
		w.Write([]byte(`{"code": 0, "msg": "ok", "bot": {"open_id": "ou_bot"}}`))
	}))
	defer srv.Close()

	c := NewClient("app", "secret", srv.URL)
	got, err := c.GetBotInfo(context.Background())
	if err != nil {
		t.Fatalf("GetBotInfo() error: %v", err)
	}
	if got != "ou_bot" {
		t.Errorf("GetBotInfo() = %q, want ou_bot", got)
	}
}
