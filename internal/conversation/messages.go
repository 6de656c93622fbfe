package conversation

import (
	"fmt"
	"strings"

	"github.com/xaenox/jobpost-bot/internal/models"
)

// Button action ids offered with a generated job description.
const (
	ActionPost   = "jd_post_yes"
	ActionDraft  = "jd_draft"
	ActionEdit   = "jd_edit"
	ActionCancel = "jd_no"
)

// actionLabel maps callback data to a bounded metrics label.
func actionLabel(id string) string {
	switch id {
	case ActionPost, ActionDraft, ActionEdit, ActionCancel:
		return id
	default:
		return "unknown"
	}
}

var questions = map[models.Attribute]string{
	models.AttrJobTitle:   "What is the job title/role you're hiring for?",
	models.AttrExperience: "What is the required level of experience (e.g., 2 years, Senior)?",
	models.AttrSkills:     "What specific skills are required for this role?",
	models.AttrJobType:    "Is this a full-time, part-time, or contract position?",
	models.AttrLocation:   "What is the location for this role (e.g., Remote, specific city)?",
}

// Question returns the follow-up asked when attr is the first missing attribute.
func Question(attr models.Attribute) string {
	return questions[attr]
}

const (
	msgQuotaExceeded   = "⚠️ I've reached my daily API limit. Please try again tomorrow or contact support to upgrade the plan."
	msgNotHiring       = "I didn't detect a hiring request. If you're looking to hire someone, please let me know the job details!"
	msgUnclear         = "I'm having trouble understanding your request. Could you please clarify if you're looking to hire someone?"
	msgNeedTitle       = "I couldn't determine the job title. Could you please specify what role you're hiring for?"
	msgGenerating      = "Now, I will generate a job description..."
	msgLostContext     = "Sorry, I seem to have lost the context. Please start over."
	msgStaleOptions    = "Those options are no longer active. Please finish updating the job details first."
	msgPosted          = "🎉 Job posted! Conversation ended."
	msgDraftFailed     = "❌ An error occurred while saving the draft. Please try again."
	msgDraftSaved      = "💾 Draft saved! Conversation ended."
	msgEditPrompt      = "✏️ Let's edit the job details. Please provide the updated information:"
	msgCancelled       = "❌ Job posting cancelled."
	msgStartFresh      = "🔄 Starting fresh. Please provide new job details:"
	msgFallbackWarning = "⚠️ I couldn't reach the writing assistant, so here is a standard template instead."
)

func postedMessage(ref string) string {
	return fmt.Sprintf("✅ Job posted successfully! Link: %s", ref)
}

func postFailedMessage(reason string) string {
	return fmt.Sprintf("❌ Error posting to LinkedIn: %s", reason)
}

func draftSavedMessage(id string) string {
	return fmt.Sprintf("✅ Job saved as draft. Job ID: %s", id)
}

func display(e *models.Entities, a models.Attribute) string {
	if e == nil {
		return "N/A"
	}
	if v, ok := e.Get(a); ok {
		return v
	}
	return "N/A"
}

// Summary renders the collected attributes. When original is non-nil each
// line also shows the value before the edit.
func Summary(current models.Entities, original *models.Entities) string {
	var b strings.Builder
	if original != nil {
		b.WriteString("✏️ Here are the updated job details:")
	} else {
		b.WriteString("Great! I have all the details. Here's the complete hiring request:")
	}
	for _, a := range models.AttributeOrder {
		fmt.Fprintf(&b, "\n  • %s: %s", a.Label(), display(&current, a))
		if original != nil {
			fmt.Fprintf(&b, " (was: %s)", display(original, a))
		}
	}
	return b.String()
}

func confirmationButtons() []models.Button {
	return []models.Button{
		{Label: "Post Job", ActionID: ActionPost, Style: "primary"},
		{Label: "Draft", ActionID: ActionDraft},
		{Label: "Edit", ActionID: ActionEdit},
		{Label: "No", ActionID: ActionCancel, Style: "danger"},
	}
}
