package generate

import (
	"fmt"
	"strings"

	"jobcaster/internal/webhook"
)

// fallback composes a deterministic announcement from the posting fields.
// It is used whenever the backend is absent, slow, or returns nothing, so
// it must produce non-empty text for any job that has a title or an id.
func fallback(style Style, job webhook.Job) string {
	title := job.Title
	if title == "" {
		title = "a new position"
	}

	var b strings.Builder
	switch style.Platform {
	case "linkedin":
		if job.CompanyName != "" {
			fmt.Fprintf(&b, "%s is hiring: %s.", job.CompanyName, title)
		} else {
			fmt.Fprintf(&b, "We are hiring: %s.", title)
		}
		if loc := jobLocationLine(job); loc != "" {
			b.WriteString(" " + loc + ".")
		}
		if job.Excerpt != "" {
			b.WriteString("\n\n" + job.Excerpt)
		}
		b.WriteString("\n\nInterested? The full posting and application form are linked below.")
	case "facebook":
		fmt.Fprintf(&b, "We're looking for a %s!", title)
		if loc := jobLocationLine(job); loc != "" {
			b.WriteString(" " + loc + ".")
		}
		if job.Excerpt != "" {
			b.WriteString("\n\n" + job.Excerpt)
		}
		b.WriteString("\n\nKnow someone who'd be a great fit? Tag them or apply via the link.")
	default:
		fmt.Fprintf(&b, "New opening: %s", title)
		if job.CompanyName != "" {
			fmt.Fprintf(&b, " at %s", job.CompanyName)
		}
		if loc := jobLocationLine(job); loc != "" {
			b.WriteString(" (" + loc + ")")
		}
		if job.Excerpt != "" {
			b.WriteString("\n" + job.Excerpt)
		}
	}
	return clip(b.String(), style.MaxChars)
}

func jobLocationLine(job webhook.Job) string {
	loc := job.Location()
	switch {
	case loc != "" && job.RemoteStatus != "":
		return loc + ", " + job.RemoteStatus
	case loc != "":
		return loc
	case job.RemoteStatus != "":
		return job.RemoteStatus
	default:
		return ""
	}
}
