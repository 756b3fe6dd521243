package emailsvc

import (
	"fmt"
	"net/http"
	"net/mail"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/trezcool/shule/core"
)

const (
	sendgridHost     = "https://api.sendgrid.com"
	sendgridEndpoint = "/v3/mail/send"

	// SendGrid accepts at most 1000 recipients per personalization.
	maxRecipients = 1000
)

var sendgridAPI = sendgrid.API // mockable

type sendgridService struct {
	key        string
	from       mail.Address
	subjPrefix string
	logger     core.Logger
}

var _ core.EmailService = (*sendgridService)(nil)

// NewSendgridService sends the messages through the SendGrid v3 API.
func NewSendgridService(conf *core.Config, logger core.Logger) core.EmailService {
	return &sendgridService{
		key:        conf.SendgridAPIKey,
		from:       conf.DefaultFromEmail(),
		subjPrefix: "[" + conf.AppName + "] ",
		logger:     logger,
	}
}

func (svc *sendgridService) SendMessages(messages ...*core.EmailMessage) {
	for _, msg := range messages {
		go svc.sendMessage(msg)
	}
}

func (svc *sendgridService) sendMessage(msg *core.EmailMessage) bool {
	if err := msg.Render(); err != nil {
		svc.logger.Error(fmt.Sprintf("rendering email %q: %v", msg.TemplateName, err), err)
		return false
	}
	if !msg.HasRecipients() || !(msg.HasContent() || msg.HasAttachments()) {
		return false
	}
	return svc.send(*msg)
}

// prepare builds the v3 payload. Bcc-only messages (notices to an audience) are addressed to the
// sender, and their Bcc list is split into as many personalizations as SendGrid needs.
func (svc *sendgridService) prepare(msg core.EmailMessage) *sgmail.SGMailV3 {
	m := sgmail.NewV3Mail()
	m.SetFrom(sgEmail(svc.from))
	m.Subject = svc.subjPrefix + msg.Subject
	if msg.TemplateName != "" {
		m.AddCategories(msg.TemplateName)
	}

	to := msg.To
	if len(to) == 0 {
		to = []mail.Address{svc.from}
	}
	first := sgmail.NewPersonalization()
	addAll(first.AddTos, to)
	addAll(first.AddCCs, msg.Cc)
	personalizations := []*sgmail.Personalization{first}

	free := maxRecipients - len(to) - len(msg.Cc)
	for bcc := msg.Bcc; len(bcc) > 0; {
		if free <= 0 {
			p := sgmail.NewPersonalization()
			p.AddTos(sgEmail(svc.from))
			personalizations = append(personalizations, p)
			free = maxRecipients - 1
		}
		n := min(free, len(bcc))
		addAll(personalizations[len(personalizations)-1].AddBCCs, bcc[:n])
		bcc, free = bcc[n:], free-n
	}
	m.AddPersonalizations(personalizations...)

	m.AddContent(sgmail.NewContent("text/plain", msg.TextContent))
	if msg.HTMLContent != "" {
		m.AddContent(sgmail.NewContent("text/html", msg.HTMLContent))
	}
	for _, at := range msg.Attachments {
		m.AddAttachment(&sgmail.Attachment{
			Content:     at.Content.String(),
			Type:        at.ContentType,
			Filename:    at.Filename,
			Disposition: "attachment",
		})
	}
	return m
}

func (svc *sendgridService) send(msg core.EmailMessage) bool {
	req := sendgrid.GetRequest(svc.key, sendgridEndpoint, sendgridHost)
	req.Method = rest.Post
	req.Body = sgmail.GetRequestBody(svc.prepare(msg))

	res, err := sendgridAPI(req)
	if err != nil {
		svc.logger.Error(fmt.Sprintf("sending email %q: %v", msg.TemplateName, err), err)
		return false
	}
	if res.StatusCode >= http.StatusBadRequest {
		svc.logger.Error(fmt.Sprintf("sending email - status: %d - body: %s", res.StatusCode, res.Body), map[string]interface{}{
			"subject":    msg.Subject,
			"template":   msg.TemplateName,
			"recipients": len(msg.To) + len(msg.Cc) + len(msg.Bcc),
		})
		return false
	}
	return true
}

func sgEmail(addr mail.Address) *sgmail.Email {
	return sgmail.NewEmail(addr.Name, addr.Address)
}

func addAll(add func(...*sgmail.Email), addrs []mail.Address) {
	for _, addr := range addrs {
		add(sgEmail(addr))
	}
}
