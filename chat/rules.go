package chat

import (
	"fmt"
	"strings"
)

// Rule answers any message containing Keyword
type Rule struct {
	Keyword string
	Answer  string
}

// Rules is the fallback table. The first rule whose keyword occurs in the
// lowercased message wins, so more specific keywords must come first.
var Rules = []Rule{
	{"hola", "¡Hola! 😊 Soy Masibot de Masivo Tech. ¿Buscás algún periférico gaming? 🎮"},
	{"mouse", "🖱️ Tenemos mouses gaming Logitech, Razer, Redragon. ¿Inalámbricos o con cable?"},
	{"teclado", "🎹 Teclados mecánicos con switches azul, rojo o marrón. Marcas: Redragon, Logitech, Razer"},
	{"auricular", "🎧 Auriculares gaming con sonido surround 7.1. HyperX, Logitech, Razer"},
	{"monitor", "🖥️ Monitores gaming 144Hz, 240Hz. Samsung, LG, ASUS. ¿Qué tamaño?"},
	{"silla", "💺 Sillas gamer ergonómicas con soporte lumbar ajustable"},
	{"logitech", "🎮 Logitech G! Pro X Superlight, G502 Hero, G203 Lightsync. ¿Cuál modelo?"},
	{"razer", "🐍 Razer! DeathAdder, Viper, BlackWidow. Calidad premium"},
	{"redragon", "🐲 Redragon! Kumara, Griffin, Lamia. Excelente calidad-precio"},
	{"envío", "🚚 ¡Envíos a todo el país! CABA: 24-48hs | Interior: 3-5 días | Gratis +$50.000"},
	{"envios", "🚚 ¡Envíos a todo el país! CABA: 24-48hs | Interior: 3-5 días | Gratis +$50.000"},
	{"pago", "💳 Tarjetas (12 cuotas SIN interés), transferencia (10% OFF), efectivo"},
	{"cuota", "💰 ¡12 cuotas SIN interés! Transferencia con 10% de descuento"},
	{"garantía", "✅ Garantía oficial 6-12 meses. Distribuidores autorizados"},
	{"garantia", "✅ Garantía oficial 6-12 meses. Distribuidores autorizados"},
	{"stock", "📦 Todos los productos publicados están disponibles. Stock en tiempo real!"},
	{"contacto", "📞 WhatsApp: +54 11 1234-5678 | Email: info@masivotech.com | Lun-Vie 9-18hs"},
	{"whatsapp", "💬 WhatsApp: +54 11 1234-5678 - Respondemos al instante!"},
	{"gracias", "¡De nada! 😊 ¿Necesitás algo más?"},
}

// Match returns the answer of the first rule matching message
func Match(rules []Rule, message string) (string, bool) {
	lower := strings.ToLower(message)
	for _, r := range rules {
		if strings.Contains(lower, r.Keyword) {
			return r.Answer, true
		}
	}
	return "", false
}

var contextualTemplates = []string{
	"😊 ¿Sobre '%s'? ¡Contame más! ¿Qué te interesa? 🎮",
	"🎯 ¿'%s'? Preguntame sobre productos gaming, envíos o garantías!",
	"🖥️ ¿Necesitás info sobre '%s'? Soy experto en periféricos!",
}

// Contextual renders the i-th contextual reply for message
func Contextual(i int, message string) string {
	return fmt.Sprintf(contextualTemplates[i%len(contextualTemplates)], message)
}
