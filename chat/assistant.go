// Package chat implements Masibot, the storefront assistant. Replies come
// from a hosted model when one is configured and answering, and from a
// keyword table otherwise.
package chat

import (
	"context"
	"math/rand"
	"strings"
	"time"

	"masivo-tech/logger"

	"go.uber.org/zap"
)

// Reply sources
const (
	SourceModel      = "gemini_2.0_flash"
	SourceFallback   = "fallback"
	SourceContextual = "fallback_contextual"
)

// Canned replies
const (
	Greeting      = "¡Hola! ¿En qué puedo ayudarte? 😊"
	ErrorGreeting = "¡Hola! 😊 Soy Masibot. ¿En qué puedo ayudarte? 🎮"
)

const personaPrompt = `Eres Masibot, el asistente virtual oficial de Masivo Tech.

INFORMACIÓN REAL:
- Tienda: Masivo Tech - Periféricos gaming
- Productos: teclados mecánicos, mouses gaming, auriculares, monitores, sillas gamer
- Marcas: Logitech, Razer, Redragon, HyperX, SteelSeries
- Envíos: CABA 24-48hs, Interior 3-5 días hábiles
- Pagos: tarjetas (hasta 12 cuotas), transferencia (10% descuento), efectivo
- Garantía: 6-12 meses oficial
- Contacto: WhatsApp +54 11 1234-5678, info@masivotech.com
- Horario: Lunes a Viernes 9-18hs

RESPONDE:
- En español argentino coloquial y amigable
- Usa emojis relevantes 🎮🖱️⌨️🎧🚚💳
- Sé entusiasta sobre gaming
- Responde específicamente a la consulta
- NO inventes precios exactos
- NO inventes stocks exactos
- Mantén respuestas breves (máximo 2 párrafos)

Consulta: `

// Prompt wraps a user message in the persona instructions
func Prompt(message string) string {
	return personaPrompt + message + "\n\nRespuesta:"
}

// Reply is the chat API response
type Reply struct {
	Response  string `json:"response"`
	SessionID string `json:"session_id,omitempty"`
	Source    string `json:"source,omitempty"`
}

// Assistant answers chat messages. The model is fixed at construction; a
// failing call falls back to the keyword table for that message only.
type Assistant struct {
	model   Model
	timeout time.Duration
	rules   []Rule
	intn    func(n int) int
}

// Option customizes an Assistant
type Option func(*Assistant)

// WithRules replaces the fallback table
func WithRules(rules []Rule) Option {
	return func(a *Assistant) { a.rules = rules }
}

// WithRandom sets the source used to pick contextual replies
func WithRandom(intn func(n int) int) Option {
	return func(a *Assistant) { a.intn = intn }
}

// NewAssistant returns an assistant backed by model, which may be nil.
// A positive timeout bounds each model call.
func NewAssistant(model Model, timeout time.Duration, opts ...Option) *Assistant {
	a := &Assistant{
		model:   model,
		timeout: timeout,
		rules:   Rules,
		intn:    rand.Intn,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// ModelAvailable reports whether replies may come from the model
func (a *Assistant) ModelAvailable() bool {
	return a.model != nil
}

// Reply answers message
func (a *Assistant) Reply(ctx context.Context, message, sessionID string) Reply {
	message = strings.TrimSpace(message)
	if message == "" {
		return Reply{Response: Greeting}
	}

	if a.model != nil {
		text, err := a.generate(ctx, message)
		if err == nil {
			return Reply{Response: text, SessionID: sessionID, Source: SourceModel}
		}
		logger.FromContext(ctx).Error("chat model failed, using fallback", zap.Error(err))
	}
	return a.Fallback(message)
}

// Fallback answers from the keyword table, or with a contextual reply
// echoing message
func (a *Assistant) Fallback(message string) Reply {
	if answer, ok := Match(a.rules, message); ok {
		return Reply{Response: answer, Source: SourceFallback}
	}
	return Reply{
		Response: Contextual(a.intn(len(contextualTemplates)), message),
		Source:   SourceContextual,
	}
}

func (a *Assistant) generate(ctx context.Context, message string) (string, error) {
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}
	text, err := a.model.Generate(ctx, Prompt(message))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}
