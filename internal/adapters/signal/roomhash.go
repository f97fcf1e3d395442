package signal

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"strings"
)

// RoomHash is the room id the server knows a password-protected room by:
// the first 16 hex chars of sha256(room + password + salt), where the salt is
// the last two labels of the server host.
func RoomHash(room, password, server string) (string, error) {
	u, err := url.Parse(server)
	if err != nil {
		return "", fmt.Errorf("parse server url: %w", err)
	}
	host := u.Hostname()
	if host == "" {
		return "", fmt.Errorf("server url %q has no host", server)
	}
	labels := strings.Split(host, ".")
	if len(labels) > 2 {
		labels = labels[len(labels)-2:]
	}
	sum := sha256.Sum256([]byte(room + password + strings.Join(labels, ".")))
	return hex.EncodeToString(sum[:])[:16], nil
}
