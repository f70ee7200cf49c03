package mail

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

type mockSender struct {
	sendFn func(ctx context.Context, msg Message) error
}

func (m *mockSender) Send(ctx context.Context, msg Message) error {
	if m.sendFn != nil {
		return m.sendFn(ctx, msg)
	}
	return nil
}

func TestMessage_Validate(t *testing.T) {
	valid := Message{To: "a@example.com", Subject: "s", TextBody: "b"}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid message: %v", err)
	}

	tests := []struct {
		name string
		msg  Message
	}{
		{"bad recipient", Message{To: "nope", Subject: "s", TextBody: "b"}},
		{"missing subject", Message{To: "a@example.com", TextBody: "b"}},
		{"missing body", Message{To: "a@example.com", Subject: "s"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.msg.Validate(); !errors.Is(err, ErrInvalidMessage) {
				t.Errorf("got %v, want ErrInvalidMessage", err)
			}
		})
	}
}

func TestNewPostmarkSender_InvalidConfig(t *testing.T) {
	base := PostmarkConfig{ServerToken: "s", AccountToken: "a", SenderEmail: "no-reply@example.com"}

	cases := map[string]func(c *PostmarkConfig){
		"no server token":  func(c *PostmarkConfig) { c.ServerToken = "" },
		"no account token": func(c *PostmarkConfig) { c.AccountToken = "" },
		"bad sender":       func(c *PostmarkConfig) { c.SenderEmail = "invalid" },
		"bad support":      func(c *PostmarkConfig) { c.SupportEmail = "invalid" },
	}
	for name, mutate := range cases {
		cfg := base
		mutate(&cfg)
		if _, err := NewPostmarkSender(cfg); !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("%s: got %v, want ErrInvalidConfig", name, err)
		}
	}

	if _, err := NewPostmarkSender(base); err != nil {
		t.Errorf("valid config: %v", err)
	}
}

func TestPostmarkSender_Send(t *testing.T) {
	var got map[string]any
	var token string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token = r.Header.Get("X-Postmark-Server-Token")
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"To":"rin@example.com","MessageID":"m-1","ErrorCode":0,"Message":"OK"}`))
	}))
	defer srv.Close()

	s, err := NewPostmarkSender(PostmarkConfig{
		ServerToken:  "server-token",
		AccountToken: "account-token",
		SenderEmail:  "no-reply@example.com",
		SupportEmail: "support@example.com",
		BaseURL:      srv.URL,
	})
	if err != nil {
		t.Fatalf("NewPostmarkSender: %v", err)
	}

	err = s.Send(context.Background(), Message{To: "rin@example.com", Subject: "Hi", HTMLBody: "<p>hi</p>", Tag: "t"})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if token != "server-token" {
		t.Errorf("server token header = %q", token)
	}
	if got["To"] != "rin@example.com" || got["From"] != "no-reply@example.com" || got["ReplyTo"] != "support@example.com" {
		t.Errorf("unexpected payload %v", got)
	}
}

func TestPostmarkSender_APIError_ReturnsSendFailed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ErrorCode":406,"Message":"Inactive recipient"}`))
	}))
	defer srv.Close()

	s, err := NewPostmarkSender(PostmarkConfig{
		ServerToken: "s", AccountToken: "a", SenderEmail: "no-reply@example.com", BaseURL: srv.URL,
	})
	if err != nil {
		t.Fatalf("NewPostmarkSender: %v", err)
	}

	err = s.Send(context.Background(), Message{To: "rin@example.com", Subject: "Hi", TextBody: "hi"})
	if !errors.Is(err, ErrSendFailed) {
		t.Fatalf("expected ErrSendFailed, got %v", err)
	}
}

func TestLogSender_LogsMessage(t *testing.T) {
	var buf bytes.Buffer
	s := NewLogSender(slog.New(slog.NewJSONHandler(&buf, nil)))

	if err := s.Send(context.Background(), Message{To: "a@example.com", Subject: "Hello", TextBody: "body"}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if !strings.Contains(buf.String(), "a@example.com") || !strings.Contains(buf.String(), "Hello") {
		t.Errorf("log output = %s", buf.String())
	}
}

func TestVerificationMailer_RendersLink(t *testing.T) {
	var sent Message
	m := NewVerificationMailer(&mockSender{sendFn: func(_ context.Context, msg Message) error {
		sent = msg
		return nil
	}})

	link := "http://localhost:8080/api/auth/verify-email?token=abc.def"
	if err := m.SendVerification(context.Background(), "sam@example.com", "sam", link); err != nil {
		t.Fatalf("SendVerification: %v", err)
	}
	if sent.To != "sam@example.com" || sent.Tag != verificationTag {
		t.Errorf("unexpected message %+v", sent)
	}
	if !strings.Contains(sent.TextBody, link) {
		t.Errorf("text body missing link: %s", sent.TextBody)
	}
	if !strings.Contains(sent.HTMLBody, `href="`+link+`"`) {
		t.Errorf("html body missing link: %s", sent.HTMLBody)
	}
	if !strings.Contains(sent.HTMLBody, "sam") {
		t.Error("html body should greet the user")
	}
}

func TestVerificationMailer_EscapesUsername(t *testing.T) {
	var sent Message
	m := NewVerificationMailer(&mockSender{sendFn: func(_ context.Context, msg Message) error {
		sent = msg
		return nil
	}})

	if err := m.SendVerification(context.Background(), "x@example.com", "<script>", "http://localhost/v?token=t"); err != nil {
		t.Fatalf("SendVerification: %v", err)
	}
	if strings.Contains(sent.HTMLBody, "<script>") {
		t.Error("username should be escaped in html body")
	}
}
