package mailer

import (
	"fmt"
	"log"

	"controltower/internal/config"

	"gopkg.in/gomail.v2"
)

// Message 一封待发送的邮件
type Message struct {
	To      string
	Subject string
	Body    string // HTML 正文
}

// Mailer 邮件发送抽象
// 业务侧只关心"发出去"，SMTP 细节收在实现里
type Mailer interface {
	Send(msg Message) error
}

// SMTPMailer 基于 SMTP 的实现
type SMTPMailer struct {
	dialer *gomail.Dialer
	from   string
}

func NewSMTPMailer(cfg config.SMTPConfig) *SMTPMailer {
	return &SMTPMailer{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
	}
}

func (m *SMTPMailer) Send(msg Message) error {
	mail := gomail.NewMessage()
	mail.SetHeader("From", m.from)
	mail.SetHeader("To", msg.To)
	mail.SetHeader("Subject", msg.Subject)
	mail.SetBody("text/html", msg.Body)

	if err := m.dialer.DialAndSend(mail); err != nil {
		return fmt.Errorf("发送邮件失败: %w", err)
	}
	return nil
}

// NoopMailer 未配置 SMTP 时的空实现，只打日志
type NoopMailer struct{}

func (NoopMailer) Send(msg Message) error {
	log.Printf("[Mailer] SMTP 未配置，丢弃邮件: to=%s subject=%s", msg.To, msg.Subject)
	return nil
}

// NewMailer 根据配置选择实现：没配 Host 就退化成 Noop
func NewMailer(cfg config.SMTPConfig) Mailer {
	if cfg.Host == "" {
		return NoopMailer{}
	}
	return NewSMTPMailer(cfg)
}

// ============================================================================
// 业务邮件模板（简单字符串拼接，不上模板引擎）
// ============================================================================

// InviteEmail 团队邀请邮件
func InviteEmail(to, teamName, inviterEmail, acceptURL string) Message {
	return Message{
		To:      to,
		Subject: fmt.Sprintf("You've been invited to join %s", teamName),
		Body: fmt.Sprintf(
			`<p>%s has invited you to join the team <b>%s</b>.</p>`+
				`<p><a href="%s">Accept invitation</a></p>`+
				`<p>This invitation will expire in 7 days.</p>`,
			inviterEmail, teamName, acceptURL),
	}
}

// PaymentSucceededEmail 扣款成功通知
func PaymentSucceededEmail(to string, amountDesc string) Message {
	return Message{
		To:      to,
		Subject: "Payment received",
		Body: fmt.Sprintf(
			`<p>We have received your payment of <b>%s</b>. Thank you!</p>`,
			amountDesc),
	}
}

// PaymentFailedEmail 扣款失败通知
func PaymentFailedEmail(to string, amountDesc string) Message {
	return Message{
		To:      to,
		Subject: "Payment failed",
		Body: fmt.Sprintf(
			`<p>Your payment of <b>%s</b> could not be processed. `+
				`Please update your payment method to avoid service interruption.</p>`,
			amountDesc),
	}
}

// LowBalanceEmail 余额低于阈值提醒
func LowBalanceEmail(to string, balance int64) Message {
	return Message{
		To:      to,
		Subject: "Your credit balance is running low",
		Body: fmt.Sprintf(
			`<p>Your team's credit balance has dropped to <b>%d credits</b>. `+
				`Consider purchasing a credit pack or enabling auto refill.</p>`,
			balance),
	}
}
