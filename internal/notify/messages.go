package notify

import (
	"fmt"
	"strings"

	"bureau-engine/internal/domain"
)

const brand = "Bureau Engine"

// ContactNotification tells the agency mailbox about a new inquiry.
func ContactNotification(c domain.Contact, adminAddr string) Message {
	var b strings.Builder
	b.WriteString("New project inquiry from the contact form.\n\n")
	fmt.Fprintf(&b, "Name: %s\n", c.Name)
	fmt.Fprintf(&b, "Email: %s\n", c.Email)
	writeOptional(&b, "Company", c.Company)
	writeOptional(&b, "Project Type", c.ProjectType)
	writeOptional(&b, "Budget Range", c.Budget)
	writeOptional(&b, "Timeline", c.Timeline)
	b.WriteString("\nMessage:\n")
	b.WriteString(c.Message)
	fmt.Fprintf(&b, "\n\nReply directly to this email to respond to %s.\n", c.Name)

	return Message{
		To:      adminAddr,
		ReplyTo: c.Email,
		Subject: fmt.Sprintf("New Project Inquiry from %s", c.Name),
		Body:    b.String(),
	}
}

// ContactConfirmation acknowledges an inquiry to the person who sent it.
func ContactConfirmation(c domain.Contact) Message {
	var b strings.Builder
	fmt.Fprintf(&b, "Thank you, %s!\n\n", c.Name)
	b.WriteString("We've received your message. What happens next:\n\n")
	b.WriteString("  * We'll review your project details.\n")
	b.WriteString("  * We'll respond within 24 hours.\n")
	b.WriteString("  * We'll arrange a discovery call to dive deeper into your needs.\n\n")
	fmt.Fprintf(&b, "Best regards,\nThe %s Team\n", brand)

	return Message{
		To:      c.Email,
		Subject: fmt.Sprintf("Thank you for contacting %s", brand),
		Body:    b.String(),
	}
}

// ProjectNotification tells the agency mailbox that a portfolio project was added.
func ProjectNotification(p domain.Project, adminAddr string) Message {
	var b strings.Builder
	b.WriteString("A new project was added from the admin panel.\n\n")
	fmt.Fprintf(&b, "Title: %s\n", p.Title)
	writeOptional(&b, "Client", p.Client.Name)
	fmt.Fprintf(&b, "Category: %s\n", p.Category)
	fmt.Fprintf(&b, "Status: %s\n", p.Status)

	return Message{
		To:      adminAddr,
		Subject: fmt.Sprintf("New Project Added: %s", p.Title),
		Body:    b.String(),
	}
}

func writeOptional(b *strings.Builder, label, value string) {
	if value == "" {
		return
	}
	fmt.Fprintf(b, "%s: %s\n", label, value)
}
