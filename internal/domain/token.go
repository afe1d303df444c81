package domain

import (
	"encoding/hex"
	"strconv"

	"golang.org/x/crypto/blake2b"
)

// PlaceholderToken выдает детерминированный токен для деградированного режима,
// когда медиа-провайдер недоступен
func PlaceholderToken(channelID string, uid uint32) string {
	h, _ := blake2b.New(16, nil)
	h.Write([]byte(channelID))
	h.Write([]byte{':'})
	h.Write([]byte(strconv.FormatUint(uint64(uid), 10)))

	return "placeholder_" + hex.EncodeToString(h.Sum(nil))
}
