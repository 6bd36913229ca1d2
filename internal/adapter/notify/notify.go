// Package notify announces finished crawl runs.
package notify

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Body returns the message announcing recordCount stored records.
func Body(recordCount int) string {
	return fmt.Sprintf("Coleta finalizada. Total de %d registros coletados.", recordCount)
}

// Subject returns the message subject for a run finished at t.
func Subject(t time.Time) string {
	return "Coleta de Dados - " + t.Format("02/01/2006")
}

// LogNotifier writes the notification to the log. Used when SMTP is not configured.
type LogNotifier struct {
	logger *zap.Logger
	now    func() time.Time
}

func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger, now: time.Now}
}

func (n *LogNotifier) Notify(_ context.Context, recordCount int) error {
	n.logger.Info(Body(recordCount), zap.String("subject", Subject(n.now())), zap.Int("records", recordCount))
	return nil
}

// SMTPConfig holds the mail server settings.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	To       []string
}

// SMTPNotifier e-mails the notification.
type SMTPNotifier struct {
	cfg     SMTPConfig
	now     func() time.Time
	dial    func(ctx context.Context, network, addr string) (net.Conn, error)
	timeout time.Duration
}

func NewSMTPNotifier(cfg SMTPConfig) *SMTPNotifier {
	if cfg.From == "" {
		cfg.From = cfg.Username
	}
	return &SMTPNotifier{
		cfg:     cfg,
		now:     time.Now,
		dial:    (&net.Dialer{}).DialContext,
		timeout: 30 * time.Second,
	}
}

func (n *SMTPNotifier) Notify(ctx context.Context, recordCount int) error {
	if err := n.deliver(ctx, n.message(recordCount)); err != nil {
		return fmt.Errorf("sending notification to %s: %w", strings.Join(n.cfg.To, ","), err)
	}
	return nil
}

// deliver runs the SMTP exchange on a connection whose deadline follows ctx,
// capped at n.timeout, so a stalled server cannot hold the caller.
func (n *SMTPNotifier) deliver(ctx context.Context, msg []byte) error {
	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	addr := net.JoinHostPort(n.cfg.Host, strconv.Itoa(n.cfg.Port))
	conn, err := n.dial(ctx, "tcp", addr)
	if err != nil {
		return err
	}
	deadline, _ := ctx.Deadline()
	if err := conn.SetDeadline(deadline); err != nil {
		conn.Close()
		return err
	}
	stop := context.AfterFunc(ctx, func() { _ = conn.SetDeadline(time.Now()) })
	defer stop()

	c, err := smtp.NewClient(conn, n.cfg.Host)
	if err != nil {
		conn.Close()
		return err
	}
	defer c.Close()

	if ok, _ := c.Extension("STARTTLS"); ok {
		if err := c.StartTLS(&tls.Config{ServerName: n.cfg.Host}); err != nil {
			return err
		}
	}
	if n.cfg.Username != "" {
		if ok, _ := c.Extension("AUTH"); !ok {
			return errors.New("smtp: server doesn't support AUTH")
		}
		if err := c.Auth(smtp.PlainAuth("", n.cfg.Username, n.cfg.Password, n.cfg.Host)); err != nil {
			return err
		}
	}
	if err := c.Mail(n.cfg.From); err != nil {
		return err
	}
	for _, to := range n.cfg.To {
		if err := c.Rcpt(to); err != nil {
			return err
		}
	}
	w, err := c.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(msg); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return c.Quit()
}

func (n *SMTPNotifier) message(recordCount int) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", n.cfg.From)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(n.cfg.To, ", "))
	fmt.Fprintf(&b, "Subject: %s\r\n", Subject(n.now()))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(Body(recordCount))
	b.WriteString("\r\n")
	return []byte(b.String())
}
