package notify

import (
	"bytes"
	"fmt"
	htmltmpl "html/template"
	texttmpl "text/template"
)

// 邮件模板名
const (
	TemplateShiftAssignment = "shift_assignment" // 替班人收到新的班次分配
	TemplateRequestStatus   = "request_status"   // 申请人收到审批结果
	TemplateRequestCreated  = "request_created"  // 项目管理员收到新申请
)

// Message 投递给通知通道的一条消息
// Fields 为模板变量，约定的键见各模板
type Message struct {
	RecipientName  string
	RecipientEmail string
	Template       string
	Fields         map[string]string
}

// Rendered 渲染后的邮件内容
type Rendered struct {
	Subject string
	Text    string
	HTML    string
}

type tmplEntry struct {
	subject *texttmpl.Template
	text    *texttmpl.Template
	html    *htmltmpl.Template
}

var templates = map[string]tmplEntry{
	TemplateShiftAssignment: mustTemplate(TemplateShiftAssignment,
		`新的班次分配：{{.ProjectName}} {{.ShiftDate}}`,
		`{{.RecipientName}}，您好：

您已被分配到项目「{{.ProjectName}}」的班次。
时间：{{.ShiftDate}} {{.StartTime}} - {{.StopTime}}
{{if .Reason}}说明：{{.Reason}}
{{end}}
查看详情：{{.Link}}
`,
		`<p>{{.RecipientName}}，您好：</p>
<p>您已被分配到项目「{{.ProjectName}}」的班次。</p>
<p>时间：{{.ShiftDate}} {{.StartTime}} - {{.StopTime}}</p>
{{if .Reason}}<p>说明：{{.Reason}}</p>{{end}}
<p><a href="{{.Link}}">查看详情</a></p>
`),
	TemplateRequestStatus: mustTemplate(TemplateRequestStatus,
		`申请状态更新：{{.RequestType}} 已{{.Status}}`,
		`{{.RecipientName}}，您好：

您提交的{{.RequestType}}申请已{{.Status}}。
{{if .ShiftDate}}班次：{{.ProjectName}} {{.ShiftDate}} {{.StartTime}} - {{.StopTime}}
{{end}}{{if .Note}}审批意见：{{.Note}}
{{end}}{{if .Penalty}}评分调整：{{.Penalty}}
{{end}}
查看详情：{{.Link}}
`,
		`<p>{{.RecipientName}}，您好：</p>
<p>您提交的{{.RequestType}}申请已<strong>{{.Status}}</strong>。</p>
{{if .ShiftDate}}<p>班次：{{.ProjectName}} {{.ShiftDate}} {{.StartTime}} - {{.StopTime}}</p>{{end}}
{{if .Note}}<p>审批意见：{{.Note}}</p>{{end}}
{{if .Penalty}}<p>评分调整：{{.Penalty}}</p>{{end}}
<p><a href="{{.Link}}">查看详情</a></p>
`),
	TemplateRequestCreated: mustTemplate(TemplateRequestCreated,
		`待审批：{{.RequesterName}} 提交了{{.RequestType}}申请`,
		`{{.RecipientName}}，您好：

{{.RequesterName}} 提交了{{.RequestType}}申请，等待您审批。
{{if .Reason}}原因：{{.Reason}}
{{end}}
前往审批：{{.Link}}
`,
		`<p>{{.RecipientName}}，您好：</p>
<p>{{.RequesterName}} 提交了{{.RequestType}}申请，等待您审批。</p>
{{if .Reason}}<p>原因：{{.Reason}}</p>{{end}}
<p><a href="{{.Link}}">前往审批</a></p>
`),
}

func mustTemplate(name, subject, text, html string) tmplEntry {
	return tmplEntry{
		subject: texttmpl.Must(texttmpl.New(name + ".subject").Option("missingkey=zero").Parse(subject)),
		text:    texttmpl.Must(texttmpl.New(name + ".txt").Option("missingkey=zero").Parse(text)),
		html:    htmltmpl.Must(htmltmpl.New(name + ".gohtml").Option("missingkey=zero").Parse(html)),
	}
}

// Render 按模板渲染消息，未知模板返回错误
func Render(msg Message) (*Rendered, error) {
	entry, ok := templates[msg.Template]
	if !ok {
		return nil, fmt.Errorf("未知的通知模板: %s", msg.Template)
	}

	data := make(map[string]string, len(msg.Fields)+1)
	for k, v := range msg.Fields {
		data[k] = v
	}
	data["RecipientName"] = msg.RecipientName

	var subject, text, html bytes.Buffer
	if err := entry.subject.Execute(&subject, data); err != nil {
		return nil, fmt.Errorf("渲染邮件标题失败: %w", err)
	}
	if err := entry.text.Execute(&text, data); err != nil {
		return nil, fmt.Errorf("渲染纯文本正文失败: %w", err)
	}
	if err := entry.html.Execute(&html, data); err != nil {
		return nil, fmt.Errorf("渲染 HTML 正文失败: %w", err)
	}

	return &Rendered{
		Subject: subject.String(),
		Text:    text.String(),
		HTML:    html.String(),
	}, nil
}
