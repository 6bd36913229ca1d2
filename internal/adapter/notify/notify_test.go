package notify

import (
	"context"
	"errors"
	"net"
	"net/textproto"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// mailbox is a minimal SMTP server accepting one message per connection.
type mailbox struct {
	ln net.Listener

	mu   sync.Mutex
	from string
	to   []string
	data string
}

func newMailbox(t *testing.T) *mailbox {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	m := &mailbox{ln: ln}
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go m.serve(conn)
		}
	}()
	return m
}

func (m *mailbox) serve(conn net.Conn) {
	defer conn.Close()
	tp := textproto.NewConn(conn)
	_ = tp.PrintfLine("220 mailbox ready")
	for {
		line, err := tp.ReadLine()
		if err != nil {
			return
		}
		verb := strings.ToUpper(strings.SplitN(line, " ", 2)[0])
		switch verb {
		case "EHLO", "HELO":
			_ = tp.PrintfLine("250 mailbox")
		case "MAIL":
			m.mu.Lock()
			m.from = line
			m.mu.Unlock()
			_ = tp.PrintfLine("250 ok")
		case "RCPT":
			m.mu.Lock()
			m.to = append(m.to, line)
			m.mu.Unlock()
			_ = tp.PrintfLine("250 ok")
		case "DATA":
			_ = tp.PrintfLine("354 go ahead")
			body, err := tp.ReadDotBytes()
			if err != nil {
				return
			}
			m.mu.Lock()
			m.data = string(body)
			m.mu.Unlock()
			_ = tp.PrintfLine("250 queued")
		case "QUIT":
			_ = tp.PrintfLine("221 bye")
			return
		default:
			_ = tp.PrintfLine("502 not implemented")
		}
	}
}

func (m *mailbox) port() int {
	return m.ln.Addr().(*net.TCPAddr).Port
}

func TestSMTPNotifier_Notify(t *testing.T) {
	t.Parallel()

	box := newMailbox(t)
	n := NewSMTPNotifier(SMTPConfig{
		Host: "127.0.0.1",
		Port: box.port(),
		From: "crawler@example.com",
		To:   []string{"ops@example.com", "data@example.com"},
	})
	n.now = func() time.Time { return time.Date(2025, 3, 4, 18, 0, 0, 0, time.UTC) }

	require.NoError(t, n.Notify(context.Background(), 42))

	box.mu.Lock()
	defer box.mu.Unlock()
	assert.Equal(t, "MAIL FROM:<crawler@example.com>", box.from)
	assert.Equal(t, []string{"RCPT TO:<ops@example.com>", "RCPT TO:<data@example.com>"}, box.to)
	assert.Contains(t, box.data, "Subject: Coleta de Dados - 04/03/2025\n")
	assert.Contains(t, box.data, "Coleta finalizada. Total de 42 registros coletados.")
}

func TestSMTPNotifier_NotifyError(t *testing.T) {
	t.Parallel()

	n := NewSMTPNotifier(SMTPConfig{Host: "smtp.example.com", Port: 25, To: []string{"ops@example.com"}})
	n.dial = func(context.Context, string, string) (net.Conn, error) { return nil, errors.New("connection refused") }

	err := n.Notify(context.Background(), 1)
	assert.ErrorContains(t, err, "connection refused")
}

func TestSMTPNotifier_RequiresAuthSupport(t *testing.T) {
	t.Parallel()

	box := newMailbox(t)
	n := NewSMTPNotifier(SMTPConfig{
		Host:     "127.0.0.1",
		Port:     box.port(),
		Username: "crawler@example.com",
		Password: "secret",
		To:       []string{"ops@example.com"},
	})

	err := n.Notify(context.Background(), 1)
	assert.ErrorContains(t, err, "AUTH")
}

func TestSMTPNotifier_StalledServer(t *testing.T) {
	t.Parallel()

	// Accepts connections and never sends a greeting.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	var (
		mu    sync.Mutex
		conns []net.Conn
	)
	t.Cleanup(func() {
		ln.Close()
		mu.Lock()
		defer mu.Unlock()
		for _, c := range conns {
			c.Close()
		}
	})
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			mu.Lock()
			conns = append(conns, conn)
			mu.Unlock()
		}
	}()
	port := ln.Addr().(*net.TCPAddr).Port

	t.Run("stops at the context deadline", func(t *testing.T) {
		n := NewSMTPNotifier(SMTPConfig{Host: "127.0.0.1", Port: port, To: []string{"ops@example.com"}})
		ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
		defer cancel()

		start := time.Now()
		err := n.Notify(ctx, 1)

		require.Error(t, err)
		assert.Less(t, time.Since(start), 2*time.Second)
	})

	t.Run("stops when the context is cancelled", func(t *testing.T) {
		n := NewSMTPNotifier(SMTPConfig{Host: "127.0.0.1", Port: port, To: []string{"ops@example.com"}})
		ctx, cancel := context.WithCancel(context.Background())
		time.AfterFunc(150*time.Millisecond, cancel)

		start := time.Now()
		err := n.Notify(ctx, 1)

		require.Error(t, err)
		assert.Less(t, time.Since(start), 2*time.Second)
	})

	t.Run("applies its own ceiling without a deadline", func(t *testing.T) {
		n := NewSMTPNotifier(SMTPConfig{Host: "127.0.0.1", Port: port, To: []string{"ops@example.com"}})
		n.timeout = 200 * time.Millisecond

		start := time.Now()
		err := n.Notify(context.Background(), 1)

		require.Error(t, err)
		assert.Less(t, time.Since(start), 2*time.Second)
	})
}

func TestLogNotifier_Notify(t *testing.T) {
	t.Parallel()

	assert.NoError(t, NewLogNotifier(zap.NewNop()).Notify(context.Background(), 3))
}
