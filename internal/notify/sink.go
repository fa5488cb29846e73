package notify

import (
	"context"
	"fmt"
	"net/http"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"

	"github.com/purelyricky/avashift-com-sub000/config"
)

// Sink 通知投递通道
type Sink interface {
	Send(ctx context.Context, msg Message) error
}

// NewSink 按配置选择投递通道
func NewSink(cfg *config.MailConfig, logger *zap.Logger) Sink {
	if cfg.Provider == "sendgrid" {
		return NewSendGridSink(cfg.SendGridAPIKey, cfg.FromName, cfg.FromAddress)
	}
	return NewLogSink(logger)
}

// ── SendGrid ──

var (
	sendgridHost     = "https://api.sendgrid.com"
	sendgridEndpoint = "/v3/mail/send"
)

// SendGridSink 通过 SendGrid v3 API 发送邮件
type SendGridSink struct {
	key        string
	from       *sgmail.Email
	subjPrefix string
}

var _ Sink = (*SendGridSink)(nil)

// NewSendGridSink 创建 SendGrid 投递通道
func NewSendGridSink(key, fromName, fromAddress string) *SendGridSink {
	return &SendGridSink{
		key:        key,
		from:       sgmail.NewEmail(fromName, fromAddress),
		subjPrefix: "[" + fromName + "] ",
	}
}

func (s *SendGridSink) prepare(msg Message, r *Rendered) *sgmail.SGMailV3 {
	p := sgmail.NewPersonalization()
	p.Subject = s.subjPrefix + r.Subject
	p.AddTos(sgmail.NewEmail(msg.RecipientName, msg.RecipientEmail))

	m := sgmail.NewV3Mail()
	m.SetFrom(s.from)
	m.AddPersonalizations(p)
	m.AddContent(
		sgmail.NewContent("text/plain", r.Text),
		sgmail.NewContent("text/html", r.HTML),
	)
	return m
}

// Send 渲染并同步发送一封邮件
func (s *SendGridSink) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r, err := Render(msg)
	if err != nil {
		return err
	}

	req := sendgrid.GetRequest(s.key, sendgridEndpoint, sendgridHost)
	req.Method = http.MethodPost
	req.Body = sgmail.GetRequestBody(s.prepare(msg, r))

	res, err := sendgrid.API(req)
	if err != nil {
		return fmt.Errorf("sendgrid 请求失败: %w", err)
	}
	if res.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("sendgrid 返回 %d: %s", res.StatusCode, res.Body)
	}
	return nil
}

// ── 日志通道（开发环境） ──

// LogSink 只把渲染结果写入日志
type LogSink struct {
	logger *zap.Logger
}

var _ Sink = (*LogSink)(nil)

// NewLogSink 创建日志投递通道
func NewLogSink(logger *zap.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Send(_ context.Context, msg Message) error {
	r, err := Render(msg)
	if err != nil {
		return err
	}
	s.logger.Info("邮件通知（未实际发送）",
		zap.String("to", msg.RecipientEmail),
		zap.String("template", msg.Template),
		zap.String("subject", r.Subject),
		zap.String("body", r.Text),
	)
	return nil
}
