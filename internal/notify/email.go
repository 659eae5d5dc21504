package notify

import (
	"fmt"
	"net/smtp"
	"strings"

	"github.com/dushixiang/arbiter/internal/config"
)

// EmailChannel 通过 SMTP 推送通知
type EmailChannel struct {
	conf config.EmailConf
}

// NewEmailChannel 创建邮件通知渠道
func NewEmailChannel(conf config.EmailConf) *EmailChannel {
	return &EmailChannel{conf: conf}
}

func (e *EmailChannel) Name() string {
	return "email"
}

func (e *EmailChannel) Send(title, message string, level Level) error {
	if e.conf.SMTPServer == "" || e.conf.Username == "" || e.conf.ToEmail == "" {
		return fmt.Errorf("email channel not fully configured")
	}

	addr := fmt.Sprintf("%s:%d", e.conf.SMTPServer, e.conf.SMTPPort)
	auth := smtp.PlainAuth("", e.conf.Username, e.conf.Password, e.conf.SMTPServer)

	var body strings.Builder
	body.WriteString(fmt.Sprintf("From: %s\r\n", e.conf.Username))
	body.WriteString(fmt.Sprintf("To: %s\r\n", e.conf.ToEmail))
	body.WriteString(fmt.Sprintf("Subject: Arbiter: %s\r\n", title))
	body.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n")
	body.WriteString(message)

	return smtp.SendMail(addr, auth, e.conf.Username, []string{e.conf.ToEmail}, []byte(body.String()))
}
