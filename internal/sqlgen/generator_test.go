package sqlgen

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ancillary-hub/ancillary/internal/llm"
)

type scriptedModel struct {
	reply string
	err   error
	calls []llm.Request
}

func (m *scriptedModel) Generate(_ context.Context, req llm.Request) (string, error) {
	m.calls = append(m.calls, req)
	return m.reply, m.err
}

func (m *scriptedModel) GenerateStream(context.Context, llm.Request, func(string)) (string, error) {
	return "", errors.New("not used")
}

func (m *scriptedModel) Provider() string { return "scripted" }

func TestGenerateCallsModelOnceWithJSONMode(t *testing.T) {
	model := &scriptedModel{reply: `{"sql":"SELECT 1","uses_market_data":true,"uses_ml_prediction":false}`}

	got, err := NewGenerator(model).Generate(context.Background(), "prompt text")
	require.NoError(t, err)

	assert.Equal(t, Generation{SQL: "SELECT 1", UsesMarketData: true}, got)
	require.Len(t, model.calls, 1)
	assert.Equal(t, llm.Request{Prompt: "prompt text", Temperature: 0, MaxOutputTokens: 512, JSON: true}, model.calls[0])
}

func TestGeneratePropagatesTransportErrors(t *testing.T) {
	boom := errors.New("deadline exceeded")
	_, err := NewGenerator(&scriptedModel{err: boom}).Generate(context.Background(), "p")
	require.ErrorIs(t, err, boom)
}

func TestGenerateRequiresModel(t *testing.T) {
	_, err := NewGenerator(nil).Generate(context.Background(), "p")
	require.Error(t, err)
}

func TestParseReply(t *testing.T) {
	cases := []struct {
		name  string
		reply string
		want  Generation
	}{
		{"plain", `{"sql":"SELECT 1","uses_market_data":false,"uses_ml_prediction":true}`, Generation{SQL: "SELECT 1", UsesMLPrediction: true}},
		{"json fence", "```json\n{\"sql\":\"SELECT 2\"}\n```", Generation{SQL: "SELECT 2"}},
		{"bare fence", "```\n{\"sql\":\"SELECT 3\"}\n```", Generation{SQL: "SELECT 3"}},
		{"inline fence", "```{\"sql\":\"SELECT 4\"}```", Generation{SQL: "SELECT 4"}},
		{"missing flags", `{"sql":"SELECT 5"}`, Generation{SQL: "SELECT 5"}},
		{"null sql", `{"sql":null,"uses_market_data":true}`, Generation{UsesMarketData: true}},
		{"numeric sql", `{"sql":42}`, Generation{}},
		{"missing sql", `{"uses_ml_prediction":true}`, Generation{UsesMLPrediction: true}},
		{"string flags", `{"sql":"SELECT 6","uses_market_data":"true"}`, Generation{SQL: "SELECT 6", UsesMarketData: true}},
		{"whitespace sql", `{"sql":"   "}`, Generation{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseReply(tc.reply)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestParseReplyRejectsNonObjects(t *testing.T) {
	for _, reply := range []string{"", "SELECT 1", "[1,2]", "null", "```\n```"} {
		_, err := ParseReply(reply)
		assert.Error(t, err, reply)
	}
}
