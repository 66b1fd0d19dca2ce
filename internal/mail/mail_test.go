package mail

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/textproto"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderer_ResetPassword(t *testing.T) {
	r, err := NewRenderer()
	require.NoError(t, err)

	msg, err := r.ResetPassword("ada@x.com", ResetPasswordData{
		AppName:   "VidShare",
		Name:      "Ada <script>",
		Email:     "ada@x.com",
		Link:      "http://localhost:3000/reset-password?email=ada%40x.com&token=abc",
		ExpiresIn: "1 hour",
	})
	require.NoError(t, err)

	assert.Equal(t, "ada@x.com", msg.To)
	assert.Equal(t, "VidShare password reset", msg.Subject)
	assert.Contains(t, msg.HTML, "reset-password?email=ada%40x.com&amp;token=abc")
	assert.Contains(t, msg.HTML, "Ada &lt;script&gt;")
	assert.Contains(t, msg.HTML, "1 hour")
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name         string
		err          error
		wantRejected bool
	}{
		{
			name:         "mailbox unavailable",
			err:          &textproto.Error{Code: 550, Msg: "mailbox unavailable"},
			wantRejected: true,
		},
		{
			name:         "wrapped bad address",
			err:          fmt.Errorf("rcpt: %w", &textproto.Error{Code: 553, Msg: "bad address"}),
			wantRejected: true,
		},
		{
			name: "temporary failure",
			err:  &textproto.Error{Code: 451, Msg: "try later"},
		},
		{
			name: "transaction failed",
			err:  &textproto.Error{Code: 554, Msg: "transaction failed"},
		},
		{
			name: "auth failure",
			err:  &textproto.Error{Code: 535, Msg: "authentication failed"},
		},
		{
			name: "network failure",
			err:  errors.New("write tcp: broken pipe"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classify(tt.err)
			assert.Equal(t, tt.wantRejected, errors.Is(got, ErrRecipientRejected))
		})
	}
}

// smtpServer accepts one session at a time and answers RCPT for addresses
// starting with "rejected" with 550 and "later" with 451.
type smtpServer struct {
	ln   net.Listener
	mu   sync.Mutex
	data []string
}

func newSMTPServer(t *testing.T) *smtpServer {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	s := &smtpServer{ln: ln}
	t.Cleanup(func() { _ = ln.Close() })
	go s.serve()
	return s
}

func (s *smtpServer) port() int {
	return s.ln.Addr().(*net.TCPAddr).Port
}

func (s *smtpServer) messages() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.data...)
}

func (s *smtpServer) serve() {
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			return
		}
		s.session(textproto.NewConn(conn))
	}
}

func (s *smtpServer) session(c *textproto.Conn) {
	defer c.Close()
	_ = c.PrintfLine("220 localhost ESMTP")
	for {
		line, err := c.ReadLine()
		if err != nil {
			return
		}
		cmd := strings.ToUpper(line)
		switch {
		case strings.HasPrefix(cmd, "EHLO"), strings.HasPrefix(cmd, "HELO"):
			_ = c.PrintfLine("250 localhost")
		case strings.HasPrefix(cmd, "MAIL FROM:"):
			_ = c.PrintfLine("250 OK")
		case strings.HasPrefix(cmd, "RCPT TO:<REJECTED"):
			_ = c.PrintfLine("550 5.1.1 no such user")
		case strings.HasPrefix(cmd, "RCPT TO:<LATER"):
			_ = c.PrintfLine("451 4.3.0 try again later")
		case strings.HasPrefix(cmd, "RCPT TO:"):
			_ = c.PrintfLine("250 OK")
		case cmd == "DATA":
			_ = c.PrintfLine("354 go ahead")
			lines, err := c.ReadDotLines()
			if err != nil {
				return
			}
			s.mu.Lock()
			s.data = append(s.data, strings.Join(lines, "\n"))
			s.mu.Unlock()
			_ = c.PrintfLine("250 queued")
		case cmd == "QUIT":
			_ = c.PrintfLine("221 bye")
			return
		default:
			_ = c.PrintfLine("250 OK")
		}
	}
}

func TestSMTPMailer_Send(t *testing.T) {
	srv := newSMTPServer(t)
	m := NewSMTPMailer(SMTPConfig{
		Host: "127.0.0.1",
		Port: srv.port(),
		From: "VidShare <no-reply@vidshare.test>",
	})

	tests := []struct {
		name         string
		to           string
		wantErr      bool
		wantRejected bool
	}{
		{name: "delivered", to: "ada@x.com"},
		{name: "recipient rejected", to: "rejected@x.com", wantErr: true, wantRejected: true},
		{name: "temporary failure", to: "later@x.com", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := m.Send(context.Background(), Message{To: tt.to, Subject: "Hello", HTML: "<p>hi</p>"})
			if !tt.wantErr {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.wantRejected, errors.Is(err, ErrRecipientRejected))
		})
	}

	msgs := srv.messages()
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0], "Subject: Hello")
	assert.Contains(t, msgs[0], "To: ada@x.com")
}

func TestSMTPMailer_DialFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())

	m := NewSMTPMailer(SMTPConfig{Host: "127.0.0.1", Port: port, From: "no-reply@vidshare.test"})
	err = m.Send(context.Background(), Message{To: "ada@x.com", Subject: "Hello", HTML: "hi"})
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrRecipientRejected))
}
