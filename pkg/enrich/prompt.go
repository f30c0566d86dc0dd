package enrich

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/tagus/contactgraph/pkg/interfaces"
)

const extractionSystemMessage = "You are a contact-profile extraction service. " +
	"You edit an existing structured contact profile using the evidence provided. " +
	"Only change fields the evidence supports; never invent information."

var urlPattern = regexp.MustCompile(`(?i)\bhttps?://\S+`)

// containsURL reports whether the text embeds an http(s) URL.
func containsURL(text string) bool {
	return urlPattern.MatchString(text)
}

// buildEvidencePrompt assembles the evidence description for the oracle. The
// target's current state is included so the oracle edits rather than invents
// from scratch; web evidence is restricted to the trusted sources, which have
// been filtered before this point.
func buildEvidencePrompt(target interfaces.ContactEntity, bundle interfaces.EvidenceBundle) (string, error) {
	current, err := json.MarshalIndent(target, "", "  ")
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	sb.WriteString("Update the following contact profile using the evidence below.\n")
	sb.WriteString("Return a JSON object with only the fields that should change; omit\n")
	sb.WriteString("every field the evidence says nothing about. relatedPeople entries are\n")
	sb.WriteString("{\"name\", \"relationship\"} objects.\n\n")

	sb.WriteString("Current profile:\n")
	sb.Write(current)
	sb.WriteString("\n")

	if bundle.WebSummary != "" {
		sb.WriteString("\nWeb research summary:\n")
		sb.WriteString(bundle.WebSummary)
		sb.WriteString("\n")
		if len(bundle.TrustedSources) > 0 {
			sb.WriteString("\nOnly the following sources may be considered; disregard any other source mentioned in the summary:\n")
			for i, source := range bundle.TrustedSources {
				sb.WriteString(fmt.Sprintf("%d. %s (%s)\n", i+1, source.Title, source.URL))
			}
		}
	}

	if bundle.ManualText != "" {
		sb.WriteString("\nNotes supplied by the user:\n")
		sb.WriteString(bundle.ManualText)
		sb.WriteString("\n")
		if containsURL(bundle.ManualText) {
			sb.WriteString("\nThe notes contain a URL. Resolve it and use the page content as additional evidence.\n")
		}
	}

	if len(bundle.ManualImages) > 0 {
		sb.WriteString(fmt.Sprintf("\n%d image(s) are attached as additional evidence.\n", len(bundle.ManualImages)))
	}

	return sb.String(), nil
}

// isOrganizationLabel reports whether a relationship label indicates the
// related entity is an organization rather than a person.
func isOrganizationLabel(label string) bool {
	lowered := strings.ToLower(label)
	for _, keyword := range orgKeywords {
		if strings.Contains(lowered, keyword) {
			return true
		}
	}
	return false
}
