package hello

import (
	"encoding/base64"
	"encoding/hex"
	"strings"
)

func hexOf(b []byte) string {
	return hex.EncodeToString(b)
}

func decodeDataLine(line string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(strings.TrimPrefix(line, "Program data: "))
}
