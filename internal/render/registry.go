package render

import (
	"errors"
	"fmt"
)

// Template keys understood by the registry. Producers may enqueue any key;
// unknown keys fall back to a generic notification instead of failing the
// message, so a malformed enqueue degrades to a bland email, not a stuck row.
const (
	KeyAdoptionRequestCreated = "adoption_request_created"
	KeyAdoptionStatusChanged  = "adoption_status_changed"
	KeyInfoRequested          = "info_requested"
	KeyPurchaseVoucher        = "purchase_voucher"
	KeyPurchaseInvoice        = "purchase_invoice"
)

// minBodyLength rejects renderers that produced effectively empty output.
const minBodyLength = 20

var ErrEmptyBody = errors.New("rendered body below minimum length")

// Payload is the template-specific data attached to an outbox message.
// Schemas are owned by the producers; renderers tolerate missing fields.
type Payload map[string]any

// Str returns the payload value under key formatted as a string, or fallback
// when absent.
func (p Payload) Str(key, fallback string) string {
	v, ok := p[key]
	if !ok || v == nil {
		return fallback
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

// RenderFunc produces a subject and an HTML body from a payload. Renderers
// must be pure: no I/O, no shared state.
type RenderFunc func(p Payload) (subject, html string)

type Registry struct {
	renderers map[string]RenderFunc
	fallback  RenderFunc
}

// NewRegistry returns a registry with all built-in notification templates
// registered.
func NewRegistry() *Registry {
	r := &Registry{
		renderers: make(map[string]RenderFunc),
		fallback:  renderDefault,
	}
	r.Register(KeyAdoptionRequestCreated, renderAdoptionRequestCreated)
	r.Register(KeyAdoptionStatusChanged, renderAdoptionStatusChanged)
	r.Register(KeyInfoRequested, renderInfoRequested)
	r.Register(KeyPurchaseVoucher, renderPurchaseVoucher)
	r.Register(KeyPurchaseInvoice, renderPurchaseInvoice)
	return r
}

func (r *Registry) Register(key string, fn RenderFunc) {
	r.renderers[key] = fn
}

// Render resolves the renderer for key and applies it. Unknown keys use the
// fallback renderer. A body shorter than minBodyLength is a render error.
func (r *Registry) Render(key string, p Payload) (subject, html string, err error) {
	fn, ok := r.renderers[key]
	if !ok {
		fn = r.fallback
	}

	subject, html = fn(p)
	if len(html) < minBodyLength {
		return "", "", fmt.Errorf("template %q: %w", key, ErrEmptyBody)
	}
	if subject == "" {
		return "", "", fmt.Errorf("template %q: empty subject", key)
	}
	return subject, html, nil
}
