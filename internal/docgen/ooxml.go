package docgen

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
)

const xmlHeader = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n"

// packageWriter builds an Open Packaging Conventions zip in memory.
type packageWriter struct {
	buf bytes.Buffer
	zw  *zip.Writer
	err error
}

func newPackageWriter() *packageWriter {
	w := &packageWriter{}
	w.zw = zip.NewWriter(&w.buf)
	return w
}

func (w *packageWriter) add(name, body string) {
	if w.err != nil {
		return
	}
	f, err := w.zw.Create(name)
	if err != nil {
		w.err = fmt.Errorf("failed to create %s: %w", name, err)
		return
	}
	if _, err := f.Write([]byte(xmlHeader + body)); err != nil {
		w.err = fmt.Errorf("failed to write %s: %w", name, err)
	}
}

func (w *packageWriter) bytes() ([]byte, error) {
	if w.err != nil {
		return nil, w.err
	}
	if err := w.zw.Close(); err != nil {
		return nil, fmt.Errorf("failed to close package: %w", err)
	}
	return w.buf.Bytes(), nil
}

func esc(s string) string {
	var b bytes.Buffer
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}
