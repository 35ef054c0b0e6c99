package render

import (
	"errors"
	"strings"
	"testing"
)

func TestRender_AllBuiltinTemplates(t *testing.T) {
	reg := NewRegistry()

	payload := Payload{
		"adopter_name":    "Ana",
		"animal_name":     "Luna",
		"foundation_name": "Fundación Patitas",
		"status":          "approved",
		"message":         "¿Tienes otras mascotas en casa?",
		"buyer_name":      "Carlos",
		"voucher_code":    "VOU-9912",
		"amount":          "$25.000",
		"order_id":        "ORD-4417",
		"total":           "$40.000",
	}

	tests := []struct {
		key      string
		wantBody string
	}{
		{KeyAdoptionRequestCreated, "Luna"},
		{KeyAdoptionStatusChanged, "approved"},
		{KeyInfoRequested, "¿Tienes otras mascotas en casa?"},
		{KeyPurchaseVoucher, "VOU-9912"},
		{KeyPurchaseInvoice, "ORD-4417"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			subject, html, err := reg.Render(tt.key, payload)
			if err != nil {
				t.Fatalf("Render: %v", err)
			}
			if subject == "" {
				t.Error("empty subject")
			}
			if !strings.Contains(html, tt.wantBody) {
				t.Errorf("body missing %q:\n%s", tt.wantBody, html)
			}
		})
	}
}

func TestRender_UnknownKeyFallsBack(t *testing.T) {
	reg := NewRegistry()

	subject, html, err := reg.Render("no_such_template", Payload{})
	if err != nil {
		t.Fatalf("unknown key should not error, got %v", err)
	}
	if subject == "" || len(html) < minBodyLength {
		t.Errorf("fallback produced subject=%q body=%d chars, want non-empty", subject, len(html))
	}
}

func TestRender_ShortBodyIsRenderError(t *testing.T) {
	reg := NewRegistry()
	reg.Register("broken", func(p Payload) (string, string) {
		return "subject", "x"
	})

	_, _, err := reg.Render("broken", Payload{})
	if !errors.Is(err, ErrEmptyBody) {
		t.Errorf("err = %v, want ErrEmptyBody", err)
	}
}

func TestRender_DeterministicOutput(t *testing.T) {
	reg := NewRegistry()
	p := Payload{"animal_name": "Rocky", "adopter_name": "Sofía"}

	s1, h1, _ := reg.Render(KeyAdoptionRequestCreated, p)
	s2, h2, _ := reg.Render(KeyAdoptionRequestCreated, p)
	if s1 != s2 || h1 != h2 {
		t.Error("renderer output is not deterministic")
	}
}

func TestPayloadStr(t *testing.T) {
	p := Payload{"name": "Ana", "count": float64(3), "nil": nil}

	if got := p.Str("name", "x"); got != "Ana" {
		t.Errorf("Str(name) = %q", got)
	}
	if got := p.Str("count", "x"); got != "3" {
		t.Errorf("Str(count) = %q, want formatted number", got)
	}
	if got := p.Str("missing", "fallback"); got != "fallback" {
		t.Errorf("Str(missing) = %q", got)
	}
	if got := p.Str("nil", "fallback"); got != "fallback" {
		t.Errorf("Str(nil) = %q", got)
	}
}
