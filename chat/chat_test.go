package chat

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubModel struct {
	text    string
	err     error
	prompts []string
}

func (m *stubModel) Generate(ctx context.Context, prompt string) (string, error) {
	m.prompts = append(m.prompts, prompt)
	return m.text, m.err
}

type blockingModel struct{}

func (blockingModel) Generate(ctx context.Context, _ string) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func TestEmptyMessageGreets(t *testing.T) {
	model := &stubModel{text: "hola"}
	for _, a := range []*Assistant{NewAssistant(nil, 0), NewAssistant(model, 0)} {
		assert.Equal(t, Reply{Response: Greeting}, a.Reply(context.Background(), "   ", "s1"))
	}
	assert.Empty(t, model.prompts)
}

func TestModelReply(t *testing.T) {
	model := &stubModel{text: "  ¡Tenemos la G502! 🖱️ \n"}
	a := NewAssistant(model, time.Second)

	reply := a.Reply(context.Background(), "¿Tienen mouse?", "s1")
	assert.Equal(t, Reply{Response: "¡Tenemos la G502! 🖱️", SessionID: "s1", Source: SourceModel}, reply)

	require.Len(t, model.prompts, 1)
	assert.True(t, strings.HasPrefix(model.prompts[0], "Eres Masibot"))
	assert.Contains(t, model.prompts[0], "Consulta: ¿Tienen mouse?")
	assert.True(t, a.ModelAvailable())
}

func TestModelFailureFallsBackPerMessage(t *testing.T) {
	model := &stubModel{err: errors.New("quota exceeded")}
	a := NewAssistant(model, time.Second)

	reply := a.Reply(context.Background(), "Quiero un MOUSE inalámbrico", "s1")
	assert.Equal(t, SourceFallback, reply.Source)
	assert.Equal(t, Rules[1].Answer, reply.Response)

	model.err, model.text = nil, "ok"
	assert.Equal(t, SourceModel, a.Reply(context.Background(), "mouse", "s1").Source)
}

func TestModelTimeout(t *testing.T) {
	a := NewAssistant(blockingModel{}, 10*time.Millisecond)
	reply := a.Reply(context.Background(), "gracias", "")
	assert.Equal(t, "¡De nada! 😊 ¿Necesitás algo más?", reply.Response)
}

func TestFallbackRuleOrder(t *testing.T) {
	a := NewAssistant(nil, 0)

	// "hola" precedes "mouse" in the table
	assert.Equal(t, Rules[0].Answer, a.Reply(context.Background(), "Hola, busco mouse", "").Response)
	assert.Equal(t, Rules[6].Answer, a.Reply(context.Background(), "algo de Logitech", "").Response)
	assert.Equal(t, "✅ Garantía oficial 6-12 meses. Distribuidores autorizados",
		a.Reply(context.Background(), "¿Qué GARANTÍA tienen?", "").Response)
}

func TestFallbackContextual(t *testing.T) {
	for i := 0; i < 3; i++ {
		a := NewAssistant(nil, 0, WithRandom(func(int) int { return i }))
		reply := a.Reply(context.Background(), "xyz123", "s1")
		assert.Equal(t, SourceContextual, reply.Source)
		assert.Contains(t, reply.Response, "xyz123")
		assert.Equal(t, Contextual(i, "xyz123"), reply.Response)
		assert.Empty(t, reply.SessionID)
	}
}

func TestWithRules(t *testing.T) {
	a := NewAssistant(nil, 0, WithRules([]Rule{{Keyword: "rgb", Answer: "¡Todo con RGB!"}}))
	assert.Equal(t, Reply{Response: "¡Todo con RGB!", Source: SourceFallback}, a.Fallback("teclado RGB"))
}

func TestProbe(t *testing.T) {
	models := map[string]Model{
		"a": &stubModel{err: errors.New("not found")},
		"b": &stubModel{text: "   "},
		"c": &stubModel{text: "¡Hola!"},
	}
	factory := func(name string) Model { return models[name] }

	m, name, err := Probe(context.Background(), factory, []string{"a", "b", "c"})
	require.NoError(t, err)
	assert.Equal(t, "c", name)
	assert.Same(t, models["c"], m)
	assert.Equal(t, []string{"Hola"}, models["c"].(*stubModel).prompts)
}

func TestProbeAllFail(t *testing.T) {
	factory := func(name string) Model { return &stubModel{err: errors.New(name + " down")} }

	m, _, err := Probe(context.Background(), factory, ModelNames)
	assert.Nil(t, m)
	require.Error(t, err)
	for _, name := range ModelNames {
		assert.Contains(t, err.Error(), name)
	}

	_, _, err = Probe(context.Background(), factory, nil)
	assert.Error(t, err)
}
