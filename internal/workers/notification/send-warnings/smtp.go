package sendwarnings

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"time"

	"phishbot/internal/common/config"
	"phishbot/internal/common/logger"
)

// SMTPMailer delivers through an SMTP relay.
type SMTPMailer struct {
	host      string
	port      int
	username  string
	password  string
	tlsMode   string
	timeout   time.Duration
	tlsConfig *tls.Config
	logger    logger.Logger
}

func NewSMTPMailer(cfg *Config, log logger.Logger) *SMTPMailer {
	return &SMTPMailer{
		host:     cfg.SMTPHost,
		port:     cfg.SMTPPort,
		username: cfg.SMTPUsername,
		password: cfg.SMTPPassword,
		tlsMode:  cfg.TLSMode,
		timeout:  cfg.Timeout,
		tlsConfig: &tls.Config{
			ServerName: cfg.SMTPHost,
			MinVersion: tls.VersionTLS12,
		},
		logger: log,
	}
}

func (m *SMTPMailer) Name() string {
	return config.TransportSMTP
}

func (m *SMTPMailer) Address() string {
	return net.JoinHostPort(m.host, strconv.Itoa(m.port))
}

// Open dials the relay, negotiates TLS and authenticates.
func (m *SMTPMailer) Open(ctx context.Context) (Session, error) {
	conn, client, err := m.dial(ctx)
	if err != nil {
		return nil, err
	}
	m.logger.Info("SMTP session opened", map[string]interface{}{
		"relay":   m.Address(),
		"tlsMode": m.tlsMode,
	})
	return &smtpSession{mailer: m, conn: conn, client: client}, nil
}

func (m *SMTPMailer) dial(ctx context.Context) (net.Conn, *smtp.Client, error) {
	dialer := &net.Dialer{Timeout: m.timeout}

	var conn net.Conn
	var err error
	if m.tlsMode == config.TLSModeImplicit {
		tlsDialer := &tls.Dialer{NetDialer: dialer, Config: m.tlsConfig}
		conn, err = tlsDialer.DialContext(ctx, "tcp", m.Address())
	} else {
		conn, err = dialer.DialContext(ctx, "tcp", m.Address())
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to SMTP server: %w", err)
	}
	_ = conn.SetDeadline(time.Now().Add(m.timeout))

	client, err := smtp.NewClient(conn, m.host)
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("failed to start SMTP session: %w", err)
	}

	if m.tlsMode == config.TLSModeStartTLS {
		if ok, _ := client.Extension("STARTTLS"); !ok {
			client.Close()
			return nil, nil, fmt.Errorf("server does not offer STARTTLS")
		}
		if err := client.StartTLS(m.tlsConfig); err != nil {
			client.Close()
			return nil, nil, fmt.Errorf("failed to start TLS: %w", err)
		}
	}

	if m.username != "" {
		auth := smtp.PlainAuth("", m.username, m.password, m.host)
		if err := client.Auth(auth); err != nil {
			client.Close()
			return nil, nil, fmt.Errorf("SMTP authentication failed: %w", err)
		}
	}
	return conn, client, nil
}

type smtpSession struct {
	mailer *SMTPMailer
	conn   net.Conn
	client *smtp.Client
}

// Send transmits one message. After a failure the transaction is reset so the
// next message can reuse the connection; if the reset fails the connection is
// dropped and the next Send redials.
func (s *smtpSession) Send(ctx context.Context, from string, to []string, raw []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if s.client == nil {
		conn, client, err := s.mailer.dial(ctx)
		if err != nil {
			return "", err
		}
		s.conn, s.client = conn, client
		s.mailer.logger.Info("SMTP session re-established", map[string]interface{}{"relay": s.mailer.Address()})
	}
	_ = s.conn.SetDeadline(time.Now().Add(s.mailer.timeout))

	if err := s.transmit(from, to, raw); err != nil {
		if rerr := s.client.Reset(); rerr != nil {
			s.client.Close()
			s.client, s.conn = nil, nil
		}
		return "", err
	}
	return "", nil
}

func (s *smtpSession) transmit(from string, to []string, raw []byte) error {
	if err := s.client.Mail(from); err != nil {
		return fmt.Errorf("failed to set sender: %w", err)
	}
	for _, addr := range to {
		if err := s.client.Rcpt(addr); err != nil {
			return fmt.Errorf("failed to set recipient %s: %w", addr, err)
		}
	}
	w, err := s.client.Data()
	if err != nil {
		return fmt.Errorf("failed to open data writer: %w", err)
	}
	if _, err := w.Write(raw); err != nil {
		w.Close()
		return fmt.Errorf("failed to write message: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to close data writer: %w", err)
	}
	return nil
}

// Close ends the session with QUIT, falling back to dropping the connection.
func (s *smtpSession) Close() error {
	if s.client == nil {
		return nil
	}
	client := s.client
	s.client, s.conn = nil, nil
	if err := client.Quit(); err != nil {
		client.Close()
		return err
	}
	return nil
}
