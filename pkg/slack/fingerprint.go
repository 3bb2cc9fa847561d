package slack

import (
	"strings"

	goslack "github.com/slack-go/slack"
)

// normalizeText lowercases and collapses whitespace so fingerprint
// matching is resilient to Slack's own text reformatting (link
// unfurls, mrkdwn escaping).
func normalizeText(s string) string {
	fields := strings.Fields(strings.ToLower(s))
	return strings.Join(fields, " ")
}

// collectMessageText concatenates a message's top-level text with any
// text found in its block-kit blocks, since Block Kit messages carry
// their content in Blocks rather than Text.
func collectMessageText(msg goslack.Message) string {
	var b strings.Builder
	b.WriteString(msg.Text)

	for _, block := range msg.Blocks.BlockSet {
		switch bl := block.(type) {
		case *goslack.SectionBlock:
			if bl.Text != nil {
				b.WriteString(" ")
				b.WriteString(bl.Text.Text)
			}
			for _, f := range bl.Fields {
				b.WriteString(" ")
				b.WriteString(f.Text)
			}
		case *goslack.HeaderBlock:
			if bl.Text != nil {
				b.WriteString(" ")
				b.WriteString(bl.Text.Text)
			}
		case *goslack.ContextBlock:
			for _, el := range bl.ContextElements.Elements {
				if txt, ok := el.(*goslack.TextBlockObject); ok {
					b.WriteString(" ")
					b.WriteString(txt.Text)
				}
			}
		}
	}

	return b.String()
}

// incidentFingerprint is the stable text embedded in every message for
// an incident so FindMessageByFingerprint can locate its thread root
// across process restarts (no in-memory thread-ts cache is kept).
func incidentFingerprint(sourceType, sourceAlertID string) string {
	return "aurora-incident:" + sourceType + ":" + sourceAlertID
}
