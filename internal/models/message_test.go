package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMessageTypeValid(t *testing.T) {
	for _, mt := range []MessageType{MessageText, MessageReply, MessageDoc, MessageLink, MessageMedia} {
		assert.True(t, mt.Valid(), string(mt))
	}
	assert.False(t, MessageType("sticker").Valid())
	assert.False(t, MessageType("").Valid())
}
