package signal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoomHash(t *testing.T) {
	cases := []struct {
		room, password, server string
		want                   string
	}{
		{"myroom", "someEncryptionKey123", "wss://wss.vdo.ninja:443", "2f1a0139acdd5bdc"},
		{"myroom", "someEncryptionKey123", "wss://vdo.ninja", "2f1a0139acdd5bdc"},
		{"room", "pw", "ws://localhost:8080/ws", "e41fa14eaba90be3"},
	}
	for _, tc := range cases {
		t.Run(tc.server, func(t *testing.T) {
			got, err := RoomHash(tc.room, tc.password, tc.server)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}

	_, err := RoomHash("r", "p", "not a url")
	assert.Error(t, err)
}
