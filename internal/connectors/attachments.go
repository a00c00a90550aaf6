package connectors

import (
	"bytes"
	"strings"

	"github.com/jhillyerd/enmime"
)

type MailAttachment struct {
	FileName string
	Content  []byte
}

// JSONAttachments parses a raw MIME message and returns its .json
// attachments. Some gateways forward each transmission as an email with the
// document attached; everything else in the message is ignored.
func JSONAttachments(raw []byte) (subject string, attachments []MailAttachment, err error) {
	env, err := enmime.ReadEnvelope(bytes.NewReader(raw))
	if err != nil {
		return "", nil, err
	}

	for _, att := range env.Attachments {
		name := strings.TrimSpace(att.FileName)
		if !strings.HasSuffix(strings.ToLower(name), ".json") {
			continue
		}
		attachments = append(attachments, MailAttachment{FileName: name, Content: att.Content})
	}

	return env.GetHeader("Subject"), attachments, nil
}
