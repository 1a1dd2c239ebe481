package utils

import (
	"fmt"
	"log"
	"net/smtp"
	"os"
	"strings"

	"github.com/shopspring/decimal"
)

type EmailConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
}

func GetEmailConfig() *EmailConfig {
	return &EmailConfig{
		Host:     os.Getenv("SMTP_HOST"),
		Port:     os.Getenv("SMTP_PORT"),
		Username: os.Getenv("SMTP_USERNAME"),
		Password: os.Getenv("SMTP_PASSWORD"),
		From:     os.Getenv("SMTP_FROM"),
	}
}

// OrderStatusLabels are the customer-facing Spanish names of order statuses.
var OrderStatusLabels = map[string]string{
	"PENDING":   "Pendiente de pago",
	"PAID":      "Pagado",
	"SHIPPED":   "Enviado",
	"CANCELLED": "Cancelado",
}

func StatusLabel(status string) string {
	if label, ok := OrderStatusLabels[status]; ok {
		return label
	}
	return status
}

// FormatPrice renders an amount the way the storefront does, e.g. "1.234,50 €".
func FormatPrice(amount decimal.Decimal) string {
	fixed := amount.StringFixed(2)
	sign := ""
	if strings.HasPrefix(fixed, "-") {
		sign, fixed = "-", fixed[1:]
	}
	intPart, fracPart, _ := strings.Cut(fixed, ".")

	var grouped strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			grouped.WriteByte('.')
		}
		grouped.WriteRune(r)
	}
	return sign + grouped.String() + "," + fracPart + " €"
}

func firstName(name string) string {
	fields := strings.Fields(name)
	if len(fields) == 0 {
		return "cliente"
	}
	return fields[0]
}

func SendEmail(to, subject, htmlBody string) error {
	config := GetEmailConfig()
	if config.Host == "" || config.Port == "" || config.From == "" {
		return fmt.Errorf("SMTP not configured")
	}

	headers := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/html; charset=UTF-8\r\n\r\n",
		config.From, to, subject)
	msg := []byte(headers + htmlBody)

	var auth smtp.Auth
	if config.Username != "" && config.Password != "" {
		auth = smtp.PlainAuth("", config.Username, config.Password, config.Host)
	}

	addr := config.Host + ":" + config.Port
	return smtp.SendMail(addr, auth, config.From, []string{to}, msg)
}

func SendWelcomeEmail(email, name string) {
	go func() {
		subject := "¡Bienvenido a Refripartes!"
		body := fmt.Sprintf(`<h2>¡Hola, %s!</h2>
<p>Gracias por crear tu cuenta. Desde ahora puedes:</p>
<ul>
<li>Guardar tu carrito entre dispositivos</li>
<li>Seguir el estado de tus pedidos</li>
<li>Valorar los productos que compras</li>
</ul>
<p>El equipo de Refripartes</p>`, firstName(name))
		if err := SendEmail(email, subject, body); err != nil {
			log.Printf("Failed to send welcome email to %s: %v", email, err)
		}
	}()
}

func SendOrderConfirmation(email, name, orderNumber string, total decimal.Decimal) {
	go func() {
		subject := fmt.Sprintf("Pedido confirmado - %s", orderNumber)
		body := fmt.Sprintf(`<h2>¡Pedido recibido!</h2>
<p>Hola %s,</p>
<p>Hemos registrado tu pedido <strong>%s</strong>.</p>
<p>Total: <strong>%s</strong></p>
<p>Te avisaremos cada vez que cambie su estado.</p>
<p>El equipo de Refripartes</p>`, firstName(name), orderNumber, FormatPrice(total))
		if err := SendEmail(email, subject, body); err != nil {
			log.Printf("Failed to send order confirmation to %s: %v", email, err)
		}
	}()
}

func SendOrderStatusUpdate(email, name, orderNumber, status string) {
	go func() {
		subject := fmt.Sprintf("Pedido %s - %s", orderNumber, StatusLabel(status))
		body := fmt.Sprintf(`<h2>Actualización de tu pedido</h2>
<p>Hola %s,</p>
<p>El estado de tu pedido <strong>%s</strong> ha cambiado a: <strong>%s</strong></p>
<p>El equipo de Refripartes</p>`, firstName(name), orderNumber, StatusLabel(status))
		if err := SendEmail(email, subject, body); err != nil {
			log.Printf("Failed to send status update email to %s: %v", email, err)
		}
	}()
}
