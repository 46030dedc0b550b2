package nats

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/capitalize-ai/event-concierge/internal/model"
)

func TestSubjects(t *testing.T) {
	assert.Equal(t, "concierge.user-1.conv-1.msg.user", MessageSubject("user-1", "conv-1", model.SenderUser))
	assert.Equal(t, "concierge.user-1.conv-1.event.fallback", EventSubject("user-1", "conv-1", model.PipelineEventFallback))
	assert.Equal(t, "concierge.user-1.conv-1.event.>", EventFilter("user-1", "conv-1"))
}

func TestSubjectTokensAreSanitized(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"alice@example.com", "alice@example_com"},
		{"a.b*c>d", "a_b_c_d"},
		{"two words", "two_words"},
		{"", "_"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, token(tt.in))
		})
	}

	assert.Equal(t, "concierge.alice@example_com.c_1.msg.system", MessageSubject("alice@example.com", "c.1", model.SenderSystem))
}
