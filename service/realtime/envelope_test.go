package realtime

import (
	"testing"

	"HelpLink/tools/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEnvelope(t *testing.T) {
	env, err := ParseEnvelope([]byte(`{"type":"ping","messageId":"m1"}`))
	require.NoError(t, err)
	assert.Equal(t, EventPing, env.Type)
	assert.Equal(t, "m1", env.MessageID)
}

func TestParseEnvelopeRejectsBadJSON(t *testing.T) {
	_, err := ParseEnvelope([]byte(`{not json`))
	require.Error(t, err)
	assert.Equal(t, errs.CodeMalformed, errs.CodeOf(err))
}

func TestParseEnvelopeRequiresType(t *testing.T) {
	_, err := ParseEnvelope([]byte(`{"data":{"x":1}}`))
	require.Error(t, err)
	assert.Equal(t, errs.CodeMalformed, errs.CodeOf(err))
}

func TestNewAssignsCorrelationIDAndTimestamp(t *testing.T) {
	env := New(EventPong, nil)
	assert.NotEmpty(t, env.MessageID)
	assert.NotZero(t, env.Timestamp)
}

func TestErrorEnvelopeKeepsCode(t *testing.T) {
	env := ErrorEnvelope(errs.ErrValidation.WithDetail("too long").Wrap())
	require.Equal(t, EventError, env.Type)
	data := env.Data.(map[string]any)
	assert.Equal(t, errs.CodeValidation, data["code"])
	assert.Equal(t, errs.ErrValidation.Msg, data["message"])
}

func TestErrorEnvelopeDegradesUnknownErrors(t *testing.T) {
	env := ErrorEnvelope(errs.New("plain"))
	data := env.Data.(map[string]any)
	assert.Equal(t, errs.CodeMalformed, data["code"])
}
