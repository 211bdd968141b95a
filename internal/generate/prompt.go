package generate

import (
	"fmt"
	"strings"

	"jobcaster/internal/webhook"
)

// Style tunes the copy for one destination platform.
type Style struct {
	Platform string
	// Tone is injected into the system prompt.
	Tone string
	// MaxChars bounds the finished post. Generated text over the limit is
	// clipped at a word boundary rather than rejected.
	MaxChars int
	// IncludeLink tells the renderer to append the job URL to the body.
	// Platforms that carry the link out of band (share attachments, cards)
	// leave it off.
	IncludeLink bool
}

var (
	StyleLinkedIn = Style{
		Platform: "linkedin",
		Tone:     "professional and polished, suited to a corporate feed; no emoji",
		MaxChars: 1300,
	}
	StyleFacebook = Style{
		Platform: "facebook",
		Tone:     "warm and conversational, like a recruiter talking to friends; one or two emoji are fine",
		MaxChars: 500,
	}
	StyleChat = Style{
		Platform:    "googlechat",
		Tone:        "compact and factual, a short internal announcement",
		MaxChars:    400,
		IncludeLink: true,
	}
	StyleTelegram = Style{
		Platform:    "telegram",
		Tone:        "compact and upbeat, a short channel announcement",
		MaxChars:    400,
		IncludeLink: true,
	}
)

// StyleFor maps a platform name to its copy style. Unknown platforms get
// the chat style, which is the most conservative.
func StyleFor(platform string) Style {
	switch platform {
	case "linkedin":
		return StyleLinkedIn
	case "facebook":
		return StyleFacebook
	case "telegram":
		return StyleTelegram
	default:
		return StyleChat
	}
}

func systemPrompt(style Style) string {
	return fmt.Sprintf(`You write job posting announcements for %s.
Tone: %s.
Hard limit: %d characters. Do not exceed it.
Write only the announcement text. No preamble, no quotes around the output, no hashtag spam (two hashtags at most).
Never invent details that are not in the posting.`, style.Platform, style.Tone, style.MaxChars)
}

func userPrompt(job webhook.Job) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Job title: %s\n", job.Title)
	if job.CompanyName != "" {
		fmt.Fprintf(&b, "Company: %s\n", job.CompanyName)
	}
	if job.Department != "" {
		fmt.Fprintf(&b, "Department: %s\n", job.Department)
	}
	if loc := job.Location(); loc != "" {
		fmt.Fprintf(&b, "Location: %s\n", loc)
	}
	if job.EmploymentType != "" {
		fmt.Fprintf(&b, "Employment type: %s\n", job.EmploymentType)
	}
	if job.RemoteStatus != "" {
		fmt.Fprintf(&b, "Remote: %s\n", job.RemoteStatus)
	}
	if job.MinSalary > 0 && job.MaxSalary > 0 {
		fmt.Fprintf(&b, "Salary: %d-%d %s\n", job.MinSalary, job.MaxSalary, job.Currency)
	}
	if job.Excerpt != "" {
		fmt.Fprintf(&b, "Pitch: %s\n", job.Excerpt)
	}
	return b.String()
}

// clip trims text to max characters, backing up to the previous word
// boundary so a sentence never ends mid-word.
func clip(text string, max int) string {
	if max <= 0 || len(text) <= max {
		return text
	}
	cut := text[:max]
	if i := strings.LastIndexByte(cut, ' '); i > max/2 {
		cut = cut[:i]
	}
	return strings.TrimRight(cut, " \n") + "…"
}
