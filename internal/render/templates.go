package render

import "fmt"

// layout wraps a body fragment in the shared email chrome. Kept minimal on
// purpose; the visual identity lives with the foundations, not here.
func layout(title, inner string) string {
	return fmt.Sprintf(`<div style="font-family:sans-serif;max-width:600px;margin:0 auto">
<h2>%s</h2>
%s
<p style="color:#888;font-size:12px">Este es un mensaje automático, por favor no respondas a este correo.</p>
</div>`, title, inner)
}

func renderAdoptionRequestCreated(p Payload) (string, string) {
	animal := p.Str("animal_name", "un animal")
	adopter := p.Str("adopter_name", "")
	foundation := p.Str("foundation_name", "la fundación")

	subject := fmt.Sprintf("Hemos recibido tu solicitud de adopción de %s", animal)
	body := fmt.Sprintf(`<p>Hola %s,</p>
<p>Tu solicitud de adopción de <strong>%s</strong> fue registrada correctamente.</p>
<p>%s revisará tu solicitud y te contactará pronto con los siguientes pasos.</p>`,
		adopter, animal, foundation)
	return subject, layout("Solicitud de adopción recibida", body)
}

func renderAdoptionStatusChanged(p Payload) (string, string) {
	animal := p.Str("animal_name", "tu solicitud")
	status := p.Str("status", "actualizada")

	subject := fmt.Sprintf("Tu solicitud de adopción de %s cambió de estado", animal)
	body := fmt.Sprintf(`<p>Hola %s,</p>
<p>El estado de tu solicitud de adopción de <strong>%s</strong> ahora es: <strong>%s</strong>.</p>
<p>Puedes revisar los detalles desde tu cuenta.</p>`,
		p.Str("adopter_name", ""), animal, status)
	return subject, layout("Actualización de tu solicitud", body)
}

func renderInfoRequested(p Payload) (string, string) {
	animal := p.Str("animal_name", "tu solicitud de adopción")

	subject := "Necesitamos más información sobre tu solicitud"
	body := fmt.Sprintf(`<p>Hola %s,</p>
<p>La fundación necesita información adicional para continuar con tu solicitud de adopción de <strong>%s</strong>:</p>
<blockquote>%s</blockquote>
<p>Responde desde tu cuenta para no retrasar el proceso.</p>`,
		p.Str("adopter_name", ""), animal, p.Str("message", ""))
	return subject, layout("Información adicional requerida", body)
}

func renderPurchaseVoucher(p Payload) (string, string) {
	code := p.Str("voucher_code", "")

	subject := "Tu comprobante de compra solidaria"
	body := fmt.Sprintf(`<p>Hola %s,</p>
<p>¡Gracias por tu compra! Con ella apoyas directamente a <strong>%s</strong>.</p>
<p>Tu código de comprobante es: <strong>%s</strong></p>
<p>Monto: %s</p>`,
		p.Str("buyer_name", ""), p.Str("foundation_name", "la fundación"), code, p.Str("amount", ""))
	return subject, layout("Comprobante de compra", body)
}

func renderPurchaseInvoice(p Payload) (string, string) {
	order := p.Str("order_id", "")

	subject := fmt.Sprintf("Factura de tu pedido %s", order)
	body := fmt.Sprintf(`<p>Hola %s,</p>
<p>Adjuntamos el detalle de tu pedido <strong>%s</strong>.</p>
<p>Total: <strong>%s</strong></p>
<p>Si algo no cuadra, escríbenos respondiendo desde tu cuenta.</p>`,
		p.Str("buyer_name", ""), order, p.Str("total", ""))
	return subject, layout("Factura de tu pedido", body)
}

// renderDefault handles unknown template keys so a bad enqueue never wedges
// the batch.
func renderDefault(p Payload) (string, string) {
	subject := "Tienes una notificación"
	body := `<p>Hola,</p>
<p>Tienes una nueva notificación. Ingresa a tu cuenta para ver los detalles.</p>`
	return subject, layout("Notificación", body)
}
