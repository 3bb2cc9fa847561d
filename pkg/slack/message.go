package slack

import (
	"fmt"
	"strings"

	goslack "github.com/slack-go/slack"

	"github.com/codeready-toolchain/tarsy-aurora/pkg/models"
)

// maxBlockTextLen is Slack's effective limit for comfortable rendering
// inside a single section block; longer text is truncated rather than
// rejected by the API.
const maxBlockTextLen = 2900

var severityEmoji = map[string]string{
	"critical": "🔴",
	"high":     "🟠",
	"warning":  "🟡",
	"low":      "🔵",
	"info":     "⚪",
}

var statusLabel = map[models.IncidentStatus]string{
	models.IncidentStatusInvestigating: "Investigating",
	models.IncidentStatusAnalyzed:      "Analyzed",
	models.IncidentStatusResolved:      "Resolved",
	models.IncidentStatusMerged:        "Merged",
}

func emojiFor(severity string) string {
	if e, ok := severityEmoji[strings.ToLower(severity)]; ok {
		return e
	}
	return "⚪"
}

func truncateForSlack(s string) string {
	if len(s) <= maxBlockTextLen {
		return s
	}
	return s[:maxBlockTextLen] + "…"
}

// BuildIncidentCreatedMessage renders the initial Block Kit message
// posted when a new incident is opened.
func BuildIncidentCreatedMessage(inc *models.Incident, dashboardURL string) []goslack.Block {
	header := goslack.NewHeaderBlock(goslack.NewTextBlockObject(goslack.PlainTextType,
		fmt.Sprintf("%s New Incident: %s", emojiFor(inc.Severity), inc.AlertTitle), false, false))

	fields := []*goslack.TextBlockObject{
		goslack.NewTextBlockObject(goslack.MarkdownType, fmt.Sprintf("*Source:*\n%s", inc.SourceType), false, false),
		goslack.NewTextBlockObject(goslack.MarkdownType, fmt.Sprintf("*Service:*\n%s", inc.AlertService), false, false),
		goslack.NewTextBlockObject(goslack.MarkdownType, fmt.Sprintf("*Severity:*\n%s", inc.Severity), false, false),
		goslack.NewTextBlockObject(goslack.MarkdownType, fmt.Sprintf("*Status:*\n%s", statusLabel[inc.Status]), false, false),
	}
	section := goslack.NewSectionBlock(nil, fields, nil)

	blocks := []goslack.Block{header, section}

	if dashboardURL != "" {
		link := fmt.Sprintf("<%s/incidents/%s|View in Aurora>", strings.TrimRight(dashboardURL, "/"), inc.ID)
		blocks = append(blocks, goslack.NewContextBlock("",
			goslack.NewTextBlockObject(goslack.MarkdownType, link, false, false)))
	}

	blocks = append(blocks, goslack.NewContextBlock("",
		goslack.NewTextBlockObject(goslack.MarkdownType, incidentFingerprint(inc.SourceType, inc.SourceAlertID), false, false)))

	return blocks
}

// BuildIncidentUpdateMessage renders a threaded reply reporting a
// status or correlation change on an existing incident.
func BuildIncidentUpdateMessage(inc *models.Incident, note string) []goslack.Block {
	text := fmt.Sprintf("%s *%s* — %s\n%d alert(s) correlated",
		emojiFor(inc.Severity), statusLabel[inc.Status], truncateForSlack(note), inc.CorrelatedAlertCount)
	section := goslack.NewSectionBlock(goslack.NewTextBlockObject(goslack.MarkdownType, text, false, false), nil, nil)
	return []goslack.Block{section}
}

// BuildRCACompletedMessage renders a threaded reply reporting that an
// automated root-cause analysis has finished, with its summary and
// suggested fixes.
func BuildRCACompletedMessage(inc *models.Incident, summary string, suggestionCount int) []goslack.Block {
	header := goslack.NewSectionBlock(
		goslack.NewTextBlockObject(goslack.MarkdownType, "*🤖 Root cause analysis complete*", false, false), nil, nil)
	body := goslack.NewSectionBlock(
		goslack.NewTextBlockObject(goslack.MarkdownType, truncateForSlack(summary), false, false), nil, nil)

	blocks := []goslack.Block{header, body}
	if suggestionCount > 0 {
		blocks = append(blocks, goslack.NewContextBlock("",
			goslack.NewTextBlockObject(goslack.MarkdownType,
				fmt.Sprintf("%d fix suggestion(s) available", suggestionCount), false, false)))
	}
	return blocks
}

// BuildIncidentMergedMessage renders a threaded reply announcing that
// this incident was merged into another.
func BuildIncidentMergedMessage(targetID string) []goslack.Block {
	text := fmt.Sprintf("🔀 Merged into incident `%s`", targetID)
	section := goslack.NewSectionBlock(goslack.NewTextBlockObject(goslack.MarkdownType, text, false, false), nil, nil)
	return []goslack.Block{section}
}
