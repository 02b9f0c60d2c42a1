// Package attachments handles files users attach to a generation request.
// Files are stored as-is; textual content is extracted where possible so
// the client can forward it to the workflow engine as an input.
package attachments

import (
	"bytes"
	"io"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
)

const mimePDF = "application/pdf"

// Text extracts plain text from an uploaded attachment. PDFs are parsed
// with github.com/ledongthuc/pdf; plain-text flavors pass through. Other
// types yield an empty string without error, since the upload itself is
// still useful as forwarded metadata.
func Text(data []byte, mimeType, fileName string) (string, error) {
	switch normalizeMimeType(mimeType, fileName) {
	case mimePDF:
		return pdfText(data)
	case "text/plain", "text/markdown":
		return string(data), nil
	default:
		return "", nil
	}
}

func pdfText(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}
	plain, err := reader.GetPlainText()
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func normalizeMimeType(mimeType, fileName string) string {
	clean := strings.ToLower(strings.TrimSpace(strings.Split(mimeType, ";")[0]))
	if clean != "" && clean != "application/octet-stream" {
		return clean
	}
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".pdf":
		return mimePDF
	case ".txt":
		return "text/plain"
	case ".md":
		return "text/markdown"
	default:
		return clean
	}
}
