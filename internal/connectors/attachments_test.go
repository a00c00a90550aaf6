package connectors

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func mimeMessage(t *testing.T, subject string, files map[string]string) []byte {
	t.Helper()
	var b strings.Builder
	b.WriteString("From: gateway@example.com\r\n")
	b.WriteString("To: orders@example.com\r\n")
	b.WriteString("Subject: " + subject + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: multipart/mixed; boundary=\"BOUNDARY\"\r\n\r\n")

	b.WriteString("--BOUNDARY\r\n")
	b.WriteString("Content-Type: text/plain\r\n\r\n")
	b.WriteString("attached\r\n")

	for name, content := range files {
		b.WriteString("--BOUNDARY\r\n")
		b.WriteString("Content-Type: application/octet-stream\r\n")
		b.WriteString("Content-Transfer-Encoding: base64\r\n")
		b.WriteString("Content-Disposition: attachment; filename=\"" + name + "\"\r\n\r\n")
		b.WriteString(base64.StdEncoding.EncodeToString([]byte(content)) + "\r\n")
	}
	b.WriteString("--BOUNDARY--\r\n")
	return []byte(b.String())
}

func TestJSONAttachments(t *testing.T) {
	raw := mimeMessage(t, "PO transmission 044", map[string]string{
		"po-1001.json": `{"Header":{"PurchaseOrderNumber":"PO-1001"}}`,
	})

	subject, attachments, err := JSONAttachments(raw)
	require.NoError(t, err)
	require.Equal(t, "PO transmission 044", subject)
	require.Len(t, attachments, 1)
	require.Equal(t, "po-1001.json", attachments[0].FileName)
	require.JSONEq(t, `{"Header":{"PurchaseOrderNumber":"PO-1001"}}`, string(attachments[0].Content))
}

func TestJSONAttachmentsFiltersOtherFiles(t *testing.T) {
	raw := mimeMessage(t, "mixed", map[string]string{
		"invoice.pdf": "%PDF-1.4",
	})

	_, attachments, err := JSONAttachments(raw)
	require.NoError(t, err)
	require.Empty(t, attachments)
}

func TestJSONAttachmentsNoAttachments(t *testing.T) {
	raw := []byte("From: a@example.com\r\nSubject: plain\r\n\r\nno attachments here\r\n")
	subject, attachments, err := JSONAttachments(raw)
	require.NoError(t, err)
	require.Equal(t, "plain", subject)
	require.Empty(t, attachments)
}
