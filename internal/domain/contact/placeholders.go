package contact

import "strings"

// Profile placeholders, resolved from static configuration.
const (
	TokenName     = "#NAME#"
	TokenEmail    = "#EMAIL#"
	TokenContact  = "#CONTACT#"
	TokenWebsite  = "#WEBSITE#"
	TokenGithub   = "#GITHUB#"
	TokenLinkedIn = "#LINKEDIN#"
	TokenWhatsapp = "#WHATSAPP#"
	TokenAddress  = "#ADDRESS#"
)

// Submitter placeholders, resolved per request.
const (
	TokenSubmitterName    = "#SUBMITTER_NAME#"
	TokenSubmitterEmail   = "#SUBMITTER_EMAIL#"
	TokenSubmitterMessage = "#SUBMITTER_MESSAGE#"
)

// ProfileTokens lists every profile placeholder.
var ProfileTokens = []string{
	TokenName, TokenEmail, TokenContact, TokenWebsite,
	TokenGithub, TokenLinkedIn, TokenWhatsapp, TokenAddress,
}

// SubmitterTokens lists every submitter placeholder.
var SubmitterTokens = []string{TokenSubmitterName, TokenSubmitterEmail, TokenSubmitterMessage}

// RenderProfile replaces the profile placeholders in tmpl with p's fields.
// Replacement is literal and single-pass: substituted values are never
// rescanned for tokens. When keepUnset is true, tokens whose field is empty
// are left in place instead of being replaced by "".
func RenderProfile(tmpl string, p Profile, keepUnset bool) string {
	values := []string{
		TokenName, p.Name,
		TokenEmail, p.Email,
		TokenContact, p.Contact,
		TokenWebsite, p.Website,
		TokenGithub, p.Github,
		TokenLinkedIn, p.LinkedIn,
		TokenWhatsapp, p.Whatsapp,
		TokenAddress, p.Address,
	}
	return replace(tmpl, values, keepUnset)
}

// RenderSubmission replaces the submitter placeholders in tmpl with s's fields.
// Values are inserted verbatim (no HTML escaping), the same as the profile pass.
func RenderSubmission(tmpl string, s Submission) string {
	return replace(tmpl, []string{
		TokenSubmitterName, s.Name,
		TokenSubmitterEmail, s.Email,
		TokenSubmitterMessage, s.Message,
	}, false)
}

func replace(tmpl string, pairs []string, keepUnset bool) string {
	if keepUnset {
		kept := pairs[:0:0]
		for i := 0; i < len(pairs); i += 2 {
			if pairs[i+1] != "" {
				kept = append(kept, pairs[i], pairs[i+1])
			}
		}
		pairs = kept
	}
	if len(pairs) == 0 {
		return tmpl
	}
	return strings.NewReplacer(pairs...).Replace(tmpl)
}
