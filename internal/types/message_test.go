package types

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatMessage_UnmarshalStringContent(t *testing.T) {
	var msg ChatMessage
	err := json.Unmarshal([]byte(`{"role":"user","content":"hello"}`), &msg)
	require.NoError(t, err)

	assert.Equal(t, RoleUser, msg.Role)
	assert.Equal(t, "hello", msg.Text)
	assert.False(t, msg.HasParts())
}

func TestChatMessage_UnmarshalParts(t *testing.T) {
	data := `{"role":"user","content":[
		{"type":"text","text":"look at this"},
		{"type":"inline_data","mime_type":"image/png","data":"AQID"},
		{"type":"file_ref","mime_type":"application/pdf","uri":"s3://bucket/doc.pdf"}
	]}`

	var msg ChatMessage
	require.NoError(t, json.Unmarshal([]byte(data), &msg))
	require.Len(t, msg.Parts, 3)

	assert.Equal(t, TextPart{Text: "look at this"}, msg.Parts[0])
	assert.Equal(t, InlineDataPart{MIMEType: "image/png", Data: []byte{1, 2, 3}}, msg.Parts[1])
	assert.Equal(t, FileRefPart{MIMEType: "application/pdf", URI: "s3://bucket/doc.pdf"}, msg.Parts[2])
	assert.Equal(t, "look at this", msg.PlainText())
}

func TestChatMessage_UnmarshalUnknownPart(t *testing.T) {
	var msg ChatMessage
	err := json.Unmarshal([]byte(`{"role":"user","content":[{"type":"audio"}]}`), &msg)
	assert.Error(t, err)
}

func TestChatMessage_UnmarshalNullContentWithToolCalls(t *testing.T) {
	data := `{"role":"assistant","content":null,"tool_calls":[{"id":"call_1","name":"search","arguments":{"q":"go"}}]}`

	var msg ChatMessage
	require.NoError(t, json.Unmarshal([]byte(data), &msg))
	assert.Equal(t, "", msg.Text)
	require.Len(t, msg.ToolCalls, 1)
	assert.Equal(t, "search", msg.ToolCalls[0].Name)
	assert.Equal(t, "go", msg.ToolCalls[0].Arguments["q"])
}

func TestChatMessage_MarshalParts(t *testing.T) {
	msg := ChatMessage{
		Role:  RoleUser,
		Parts: []ContentPart{TextPart{Text: "<b>hi</b>"}, InlineDataPart{MIMEType: "image/jpeg", Data: []byte{1, 2, 3}}},
	}

	data, err := json.Marshal(msg)
	require.NoError(t, err)
	assert.JSONEq(t, `{"role":"user","content":[
		{"type":"text","text":"<b>hi</b>"},
		{"type":"inline_data","mime_type":"image/jpeg","data":"AQID"}
	]}`, string(data))

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	require.NoError(t, enc.Encode(msg))
	assert.Contains(t, buf.String(), `"text":"<b>hi</b>"`)
}

func TestChatMessage_Validate(t *testing.T) {
	tests := []struct {
		name    string
		msg     ChatMessage
		wantErr bool
	}{
		{"user text", NewTextMessage(RoleUser, "hi"), false},
		{"tool with id", ChatMessage{Role: RoleTool, Text: "42", ToolCallID: "call_1"}, false},
		{"tool without id", ChatMessage{Role: RoleTool, Text: "42"}, true},
		{"assistant nameless tool call", ChatMessage{Role: RoleAssistant, ToolCalls: []ToolCall{{ID: "1"}}}, true},
		{"assistant named tool call", ChatMessage{Role: RoleAssistant, ToolCalls: []ToolCall{{ID: "1", Name: "f"}}}, false},
		{"unknown role", ChatMessage{Role: "robot"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.msg.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidRequest)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestChatRequest_Validate(t *testing.T) {
	var nilReq *ChatRequest
	assert.ErrorIs(t, nilReq.Validate(), ErrInvalidRequest)
	assert.ErrorIs(t, (&ChatRequest{}).Validate(), ErrInvalidRequest)

	req := &ChatRequest{
		Messages: []ChatMessage{NewTextMessage(RoleUser, "hi")},
		Tools:    []ToolDefinition{{Description: "nameless"}},
	}
	assert.ErrorIs(t, req.Validate(), ErrInvalidRequest)

	req.Tools[0].Name = "search"
	assert.NoError(t, req.Validate())
	assert.Equal(t, "default-model", req.ModelOrDefault("default-model"))
}

func TestStreamDelta_Terminal(t *testing.T) {
	stop := FinishReasonStop
	assert.False(t, StreamDelta{Text: "x"}.Terminal())
	assert.True(t, StreamDelta{Done: true}.Terminal())
	assert.True(t, StreamDelta{FinishReason: &stop}.Terminal())
}
