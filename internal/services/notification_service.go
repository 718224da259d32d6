// internal/services/notification_service.go
package services

import (
	"bytes"
	"fmt"
	"html/template"
	"net/smtp"

	"github.com/jordan-wright/email"

	"github.com/PabloB07/mcshop/internal/config"
	"github.com/PabloB07/mcshop/internal/models"
)

// NotificationService sends transactional email. Delivery is always treated
// as best-effort by callers; a mail outage must never fail an order.
type NotificationService struct {
	config *config.Config
}

func NewNotificationService(cfg *config.Config) *NotificationService {
	return &NotificationService{config: cfg}
}

var downloadLinksTemplate = template.Must(template.New("download_links").Parse(`
<h2>¡Gracias por tu compra, {{.Username}}!</h2>
<p>Tu orden <strong>{{.CommerceOrder}}</strong> fue pagada correctamente.</p>
{{if .Links}}
<p>Tus enlaces de descarga (válidos por 24 horas, un solo uso):</p>
<ul>
{{range .Links}}
	<li><a href="{{.URL}}">{{.ProductName}}</a></li>
{{end}}
</ul>
{{end}}
<p>Si un enlace expira puedes generar uno nuevo desde tu cuenta.</p>
`))

type downloadLink struct {
	ProductName string
	URL         string
}

// SendDownloadLinks emails the buyer their single-use download links after a
// paid order is materialized.
func (s *NotificationService) SendDownloadLinks(user *models.User, order *models.Order, grants []*models.ProductDownload) error {
	links := make([]downloadLink, 0, len(grants))
	for _, grant := range grants {
		name := grant.Product.Name
		if name == "" {
			name = "Descarga"
		}
		links = append(links, downloadLink{
			ProductName: name,
			URL:         fmt.Sprintf("%s/downloads/%s", s.config.Frontend.BaseURL, grant.DownloadToken),
		})
	}

	var body bytes.Buffer
	err := downloadLinksTemplate.Execute(&body, map[string]interface{}{
		"Username":      user.Username,
		"CommerceOrder": order.CommerceOrder,
		"Links":         links,
	})
	if err != nil {
		return fmt.Errorf("failed to render download email: %w", err)
	}

	return s.send(user.Email, fmt.Sprintf("Tu compra %s está lista", order.CommerceOrder), body.Bytes())
}

// SendOrderReceipt is a plain confirmation without download links, used for
// rank/item/money purchases that are fulfilled in-game.
func (s *NotificationService) SendOrderReceipt(user *models.User, order *models.Order) error {
	body := fmt.Sprintf(
		"<h2>¡Gracias por tu compra, %s!</h2><p>Tu orden <strong>%s</strong> por $%d CLP fue pagada correctamente y será aplicada en el servidor en unos minutos.</p>",
		template.HTMLEscapeString(user.Username), template.HTMLEscapeString(order.CommerceOrder), order.Total)

	return s.send(user.Email, fmt.Sprintf("Compra confirmada %s", order.CommerceOrder), []byte(body))
}

func (s *NotificationService) send(to, subject string, htmlBody []byte) error {
	if s.config.Email.SMTPHost == "" {
		return fmt.Errorf("email is not configured")
	}

	e := email.NewEmail()
	e.From = fmt.Sprintf("%s <%s>", s.config.Email.FromName, s.config.Email.FromEmail)
	e.To = []string{to}
	e.Subject = subject
	e.HTML = htmlBody

	addr := fmt.Sprintf("%s:%s", s.config.Email.SMTPHost, s.config.Email.SMTPPort)
	auth := smtp.PlainAuth("", s.config.Email.SMTPUsername, s.config.Email.SMTPPassword, s.config.Email.SMTPHost)
	return e.Send(addr, auth)
}
