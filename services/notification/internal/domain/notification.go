package domain

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	generalDomain "github.com/chezmonami/platform/pkg/domain"
)

// Message is one rendered email.
type Message struct {
	To      string
	Subject string
	HTML    string
}

var statusHeadlines = map[string]string{
	"new":       "Nous avons bien reçu votre commande",
	"confirmed": "Votre commande est confirmée",
	"preparing": "Votre commande est en préparation",
	"shipped":   "Votre commande est en route",
	"delivered": "Votre commande a été livrée",
	"cancelled": "Votre commande a été annulée",
}

var statusTemplate = template.Must(template.New("status").Parse(`<!DOCTYPE html>
<html>
<body>
<p>Bonjour {{.Name}},</p>
<h2>{{.Headline}}</h2>
<p>Commande <strong>{{.Number}}</strong></p>
{{- if .Tracking}}
<p>Numéro de suivi : <strong>{{.Tracking}}</strong></p>
{{- end}}
{{- if .Comment}}
<p>{{.Comment}}</p>
{{- end}}
<p>Merci de votre confiance,<br>Chez Mon Ami</p>
</body>
</html>`))

// BuildStatusMessage renders the customer email for a status change. ok is
// false when the order has no email on file or the status is unknown.
func BuildStatusMessage(event generalDomain.OrderStatusChangedEvent) (msg *Message, ok bool, err error) {
	to := strings.TrimSpace(event.CustomerEmail)
	headline, known := statusHeadlines[event.NewStatus]
	if to == "" || !known {
		return nil, false, nil
	}

	name := strings.TrimSpace(event.CustomerName)
	if name == "" {
		name = "cher client"
	}

	var body bytes.Buffer
	err = statusTemplate.Execute(&body, struct {
		Name, Headline, Number, Tracking, Comment string
	}{
		Name:     name,
		Headline: headline,
		Number:   event.OrderNumber,
		Tracking: event.TrackingNumber,
		Comment:  event.Comment,
	})
	if err != nil {
		return nil, false, fmt.Errorf("render status email: %w", err)
	}

	return &Message{
		To:      to,
		Subject: fmt.Sprintf("%s (%s)", headline, event.OrderNumber),
		HTML:    body.String(),
	}, true, nil
}
