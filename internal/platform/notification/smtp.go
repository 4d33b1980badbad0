package notification

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"
)

// Security selects how the SMTP connection is protected.
type Security string

const (
	SecurityNone     Security = "none"
	SecuritySSL      Security = "ssl"
	SecurityStartTLS Security = "starttls"
)

// ParseSecurity accepts none, ssl or starttls, case-insensitively.
func ParseSecurity(s string) (Security, error) {
	switch sec := Security(strings.ToLower(strings.TrimSpace(s))); sec {
	case SecurityNone, SecuritySSL, SecurityStartTLS:
		return sec, nil
	case "":
		return SecurityNone, nil
	}
	return "", fmt.Errorf("unknown smtp security mode %q", s)
}

// SMTPConfig configures an SMTP relay.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	Security Security
	Timeout  time.Duration
	From     Sender
	// TLSConfig overrides the client TLS settings; nil verifies against Host.
	TLSConfig *tls.Config
}

// SMTPDispatcher opens one connection per message and closes it on every path.
type SMTPDispatcher struct {
	cfg SMTPConfig
}

func NewSMTPDispatcher(cfg SMTPConfig) *SMTPDispatcher {
	if cfg.Security == "" {
		cfg.Security = SecurityNone
	}
	return &SMTPDispatcher{cfg: cfg}
}

func (d *SMTPDispatcher) tlsConfig() *tls.Config {
	if d.cfg.TLSConfig != nil {
		return d.cfg.TLSConfig
	}
	return &tls.Config{ServerName: d.cfg.Host, MinVersion: tls.VersionTLS12}
}

func (d *SMTPDispatcher) Send(ctx context.Context, msg Message) error {
	raw, err := compose(d.cfg.From, msg)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRejected, err)
	}

	if d.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.cfg.Timeout)
		defer cancel()
	}

	conn, err := d.dial(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrConnect, err)
	}
	// Closing the connection unblocks any pending read when ctx ends.
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	c, err := smtp.NewClient(conn, d.cfg.Host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("%w: %w", ErrConnect, err)
	}
	defer c.Close()

	if d.cfg.Security == SecurityStartTLS {
		if ok, _ := c.Extension("STARTTLS"); ok {
			if err := c.StartTLS(d.tlsConfig()); err != nil {
				return fmt.Errorf("%w: starttls: %w", ErrConnect, err)
			}
		}
	}

	if d.cfg.Username != "" && d.cfg.Password != "" {
		if ok, _ := c.Extension("AUTH"); !ok {
			return fmt.Errorf("%w: server does not offer AUTH", ErrAuth)
		}
		if err := c.Auth(smtp.PlainAuth("", d.cfg.Username, d.cfg.Password, d.cfg.Host)); err != nil {
			return fmt.Errorf("%w: %w", ErrAuth, err)
		}
	}

	if err := c.Mail(d.cfg.From.Address); err != nil {
		return fmt.Errorf("%w: MAIL FROM: %w", ErrRejected, err)
	}
	if err := c.Rcpt(msg.To); err != nil {
		return fmt.Errorf("%w: RCPT TO: %w", ErrRejected, err)
	}
	w, err := c.Data()
	if err != nil {
		return fmt.Errorf("%w: DATA: %w", ErrRejected, err)
	}
	if _, err := w.Write(raw); err != nil {
		return fmt.Errorf("%w: write body: %w", ErrRejected, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("%w: end of data: %w", ErrRejected, err)
	}

	// The relay has accepted the message; a failed QUIT does not undo that.
	_ = c.Quit()
	return nil
}

func (d *SMTPDispatcher) dial(ctx context.Context) (net.Conn, error) {
	addr := net.JoinHostPort(d.cfg.Host, strconv.Itoa(d.cfg.Port))
	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}
	if d.cfg.Security != SecuritySSL {
		return conn, nil
	}

	tlsConn := tls.Client(conn, d.tlsConfig())
	if err := tlsConn.HandshakeContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("tls handshake: %w", err)
	}
	return tlsConn, nil
}
