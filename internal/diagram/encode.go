package diagram

import (
	"bytes"
	"strings"

	"github.com/klauspost/compress/flate"
)

const plantumlAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz-_"

// Encode produces the text form PlantUML servers accept in URLs: raw
// deflate followed by PlantUML's own base64 variant.
func Encode(source string) (string, error) {
	var buf bytes.Buffer
	w, err := flate.NewWriter(&buf, flate.BestCompression)
	if err != nil {
		return "", err
	}
	if _, err := w.Write([]byte(source)); err != nil {
		return "", err
	}
	if err := w.Close(); err != nil {
		return "", err
	}
	return encode64(buf.Bytes()), nil
}

// encode64 packs every 3 bytes into 4 characters; a short final group is
// padded with zero bytes rather than '=' characters.
func encode64(data []byte) string {
	var b strings.Builder
	b.Grow((len(data) + 2) / 3 * 4)
	for i := 0; i < len(data); i += 3 {
		var b1, b2, b3 byte
		b1 = data[i]
		if i+1 < len(data) {
			b2 = data[i+1]
		}
		if i+2 < len(data) {
			b3 = data[i+2]
		}
		b.WriteByte(plantumlAlphabet[b1>>2])
		b.WriteByte(plantumlAlphabet[((b1&0x3)<<4)|(b2>>4)])
		b.WriteByte(plantumlAlphabet[((b2&0xF)<<2)|(b3>>6)])
		b.WriteByte(plantumlAlphabet[b3&0x3F])
	}
	return b.String()
}
