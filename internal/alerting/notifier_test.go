package alerting

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestTelegramNotifierSuccess(t *testing.T) {
	received := make(map[string]string)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, "sendMessage") {
			t.Fatalf("路径应包含 sendMessage, 实际 %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Fatalf("解析请求体失败: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true})
	}))
	defer srv.Close()

	notifier := NewTelegramNotifier("token", "chat", srv.URL, time.Second, testLogger())
	note := Notification{
		When:    time.Now(),
		Subject: "Rate Monitor Alert",
		Lines:   []string{"fred: 4 consecutive failures", "sofr: stale for 5 days"},
	}

	if err := notifier.Notify(context.Background(), note); err != nil {
		t.Fatalf("Telegram Notify 应成功: %v", err)
	}

	if received["chat_id"] != "chat" {
		t.Fatalf("chat_id 不正确: %#v", received)
	}
	if !strings.Contains(received["text"], "consecutive failures") {
		t.Fatalf("text 应包含告警行: %q", received["text"])
	}
}

func TestTelegramNotifierError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": false})
	}))
	defer srv.Close()

	notifier := NewTelegramNotifier("token", "chat", srv.URL, time.Second, testLogger())
	note := Notification{When: time.Now(), Subject: "Rate Monitor Alert"}

	if err := notifier.Notify(context.Background(), note); err == nil {
		t.Fatal("ok=false 应报错")
	}
}

func TestTelegramNotifierSendDocument(t *testing.T) {
	var (
		gotFilename string
		gotCaption  string
		gotContent  []byte
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, "sendDocument") {
			t.Fatalf("路径应包含 sendDocument, 实际 %s", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("解析 multipart 失败: %v", err)
		}
		gotCaption = r.FormValue("caption")
		file, header, err := r.FormFile("document")
		if err != nil {
			t.Fatalf("缺少 document 字段: %v", err)
		}
		defer file.Close()
		gotFilename = header.Filename
		buf := make([]byte, header.Size)
		if _, err := file.Read(buf); err != nil && err.Error() != "EOF" {
			t.Fatalf("读取 document 失败: %v", err)
		}
		gotContent = buf
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true})
	}))
	defer srv.Close()

	notifier := NewTelegramNotifier("token", "chat", srv.URL, time.Second, testLogger())
	content := []byte("<html>report</html>")

	if err := notifier.SendDocument(context.Background(), "report.html", content, "Weekly report"); err != nil {
		t.Fatalf("SendDocument 应成功: %v", err)
	}

	if gotFilename != "report.html" {
		t.Fatalf("文件名不正确: %s", gotFilename)
	}
	if gotCaption != "Weekly report" {
		t.Fatalf("caption 不正确: %s", gotCaption)
	}
	if string(gotContent) != string(content) {
		t.Fatalf("文件内容不一致: %q", gotContent)
	}
}

func TestTelegramNotifierHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	notifier := NewTelegramNotifier("token", "chat", srv.URL, time.Second, testLogger())

	if err := notifier.SendDocument(context.Background(), "report.html", []byte("x"), ""); err == nil {
		t.Fatal("HTTP 502 应报错")
	}
}

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}
