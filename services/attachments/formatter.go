// Package attachments inlines processed file records into a conversation.
package attachments

import (
	"fmt"
	"strings"

	"github.com/upb/multichat/services/providers"
)

// Separator is placed between the first user turn and the file blocks
const Separator = "\n\nAttached files:\n"

// FormatBlocks renders one fenced block per inlinable attachment.
// Error, warning, binary and empty attachments are skipped.
func FormatBlocks(atts []providers.Attachment) string {
	var b strings.Builder
	for _, att := range atts {
		if !att.Inlinable() {
			continue
		}
		b.WriteString("\nFile: ")
		b.WriteString(att.Filename)
		b.WriteString("\n```")
		b.WriteString(strings.TrimPrefix(att.Extension, "."))
		b.WriteString("\n")
		b.WriteString(att.Content)
		b.WriteString("\n```\n\n")
	}
	return b.String()
}

// Merge appends the attachment blocks to the first turn when that turn is
// a user turn. The input slice is never modified; when nothing qualifies
// it is returned as is.
func Merge(msgs []providers.Message, atts []providers.Attachment) []providers.Message {
	if len(msgs) == 0 || msgs[0].Role != providers.RoleUser {
		return msgs
	}

	blocks := FormatBlocks(atts)
	if blocks == "" {
		return msgs
	}

	merged := make([]providers.Message, len(msgs))
	copy(merged, msgs)
	merged[0].Content = merged[0].Content + Separator + blocks
	return merged
}

// ForRequest returns the turns an adapter should send, merging the
// request attachments only if the caller has not already done so
func ForRequest(req *providers.ChatRequest) []providers.Message {
	if req.AttachmentsMerged {
		return req.Messages
	}
	return Merge(req.Messages, req.Attachments)
}

// Summary renders the caller-facing overview of a batch of attachments,
// including the ones that could not be inlined
func Summary(atts []providers.Attachment) string {
	var b strings.Builder
	b.WriteString("FILES PROVIDED:\n\n")

	for i, att := range atts {
		n := i + 1
		switch att.Status {
		case providers.AttachmentError:
			fmt.Fprintf(&b, "File %d: ERROR - %s\n\n", n, att.Message)
			continue
		case providers.AttachmentWarning:
			fmt.Fprintf(&b, "File %d: WARNING - %s\n\n", n, att.Message)
			continue
		}

		fmt.Fprintf(&b, "File %d: %s\n", n, att.Filename)
		fmt.Fprintf(&b, "Type: %s\n", att.MimeType)
		fmt.Fprintf(&b, "Size: %.1f KB\n", float64(att.SizeBytes)/1024)

		if att.IsText && att.Content != "" {
			b.WriteString("Content:\n```")
			b.WriteString(strings.TrimPrefix(att.Extension, "."))
			b.WriteString("\n")
			b.WriteString(att.Content)
			b.WriteString("\n```\n\n")
		} else {
			b.WriteString("[Binary file - content not shown]\n\n")
		}
	}

	return b.String()
}
