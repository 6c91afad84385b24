package qr

import (
	"bytes"
	"encoding/base64"
	"io"

	"github.com/yeqown/go-qrcode/v2"
	"github.com/yeqown/go-qrcode/writer/standard"
)

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

// EncodePNG рендерит текст конфига в PNG-QR и отдаёт его base64-строкой
// (фронт вставляет её в data-URI).
func EncodePNG(text string) (string, error) {
	code, err := qrcode.New(text)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	w := standard.NewWithWriter(nopCloser{&buf}, standard.WithQRWidth(10))
	if err := code.Save(w); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
