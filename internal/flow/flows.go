package flow

import (
	"strconv"
	"time"
)

type TranscriptInput struct {
	Transcript string `json:"transcript" validate:"required,min=20,max=100000"`
}

type TranscriptSummary struct {
	Summary   string   `json:"summary" validate:"required"`
	KeyPoints []string `json:"key_points"`
	Decisions []string `json:"decisions"`
}

var SummarizeTranscript = &Flow[TranscriptInput, TranscriptSummary]{
	Name:        "summarize-transcript",
	Description: "Summarize a meeting transcript into a short summary, key points and decisions.",
	Template: `You are an assistant that summarizes meeting transcripts.
Read the transcript and answer with a JSON object of the form
{"summary": string, "key_points": [string], "decisions": [string]}.
Keep the summary under 120 words. Use empty arrays when there is nothing to list.

TRANSCRIPT:
{{transcript}}`,
	Vars: func(in TranscriptInput) map[string]interface{} {
		return map[string]interface{}{"transcript": in.Transcript}
	},
}

type ActionItemsInput struct {
	Transcript string `json:"transcript" validate:"required,min=20,max=100000"`
	// Today anchors relative dates such as "next Friday". Defaults to the current date.
	Today string `json:"today,omitempty" validate:"omitempty,datetime=2006-01-02"`
}

type ActionItem struct {
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description"`
	Assignee    string `json:"assignee"`
	DueDate     string `json:"due_date" validate:"omitempty,datetime=2006-01-02"`
	Priority    int    `json:"priority" validate:"omitempty,min=1,max=10"`
}

type ActionItems struct {
	ActionItems []ActionItem `json:"action_items" validate:"dive"`
}

var ExtractActionItems = &Flow[ActionItemsInput, ActionItems]{
	Name:        "extract-action-items",
	Description: "Extract action items with optional assignee, due date and priority from a meeting transcript.",
	Template: `You extract action items from meeting transcripts.
Today is {{today}}. Answer with a JSON object of the form
{"action_items": [{"title": string, "description": string, "assignee": string, "due_date": "YYYY-MM-DD" or "", "priority": 1-10}]}.
Priority 1-3 is urgent, 4-7 normal, 8-10 whenever. Resolve relative dates against today.
Return {"action_items": []} when there are none.

TRANSCRIPT:
{{transcript}}`,
	Vars: func(in ActionItemsInput) map[string]interface{} {
		today := in.Today
		if today == "" {
			today = time.Now().Format("2006-01-02")
		}
		return map[string]interface{}{"transcript": in.Transcript, "today": today}
	},
}

type CodeRequest struct {
	Description string `json:"description" validate:"required,max=4000"`
	Language    string `json:"language" validate:"required,max=40"`
}

type GeneratedCode struct {
	Code        string `json:"code" validate:"required"`
	Explanation string `json:"explanation"`
}

var GenerateCode = &Flow[CodeRequest, GeneratedCode]{
	Name:        "generate-code",
	Description: "Write code in the requested language from a plain description.",
	Template: `You are a senior {{language}} engineer.
Write {{language}} code for the following request. Answer with a JSON object
{"code": string, "explanation": string}; the explanation is at most three sentences.

REQUEST:
{{description}}`,
	Vars: func(in CodeRequest) map[string]interface{} {
		return map[string]interface{}{"description": in.Description, "language": in.Language}
	},
}

type TestsRequest struct {
	Code      string `json:"code" validate:"required,max=50000"`
	Language  string `json:"language" validate:"required,max=40"`
	Framework string `json:"framework,omitempty" validate:"max=40"`
}

type GeneratedTests struct {
	Tests string `json:"tests" validate:"required"`
	Notes string `json:"notes"`
}

var GenerateTests = &Flow[TestsRequest, GeneratedTests]{
	Name:        "generate-tests",
	Description: "Write unit tests for a piece of code.",
	Template: `You write thorough unit tests in {{language}} using {{framework}}.
Cover normal cases, edge cases and error paths of the code below. Answer with a
JSON object {"tests": string, "notes": string}.

CODE:
{{code}}`,
	Vars: func(in TestsRequest) map[string]interface{} {
		framework := in.Framework
		if framework == "" {
			framework = "the standard test framework of the language"
		}
		return map[string]interface{}{"code": in.Code, "language": in.Language, "framework": framework}
	},
}

type DocsRequest struct {
	Code     string `json:"code" validate:"required,max=50000"`
	Language string `json:"language,omitempty" validate:"max=40"`
	Format   string `json:"format,omitempty" validate:"omitempty,oneof=markdown comments"`
}

type GeneratedDocs struct {
	Documentation string `json:"documentation" validate:"required"`
}

var GenerateDocs = &Flow[DocsRequest, GeneratedDocs]{
	Name:        "generate-docs",
	Description: "Document a piece of code as markdown or as inline comments.",
	Template: `You are a technical writer. Document the {{language}} code below as {{format}}.
Explain purpose, inputs, outputs and notable behavior. Answer with a JSON object
{"documentation": string}.

CODE:
{{code}}`,
	Vars: func(in DocsRequest) map[string]interface{} {
		format := in.Format
		if format == "" {
			format = "markdown"
		}
		language := in.Language
		if language == "" {
			language = "source"
		}
		return map[string]interface{}{"code": in.Code, "language": language, "format": format}
	},
}

type ThemeRequest struct {
	Description string `json:"description" validate:"required,max=500"`
	Dark        bool   `json:"dark"`
}

type Theme struct {
	Name       string `json:"name" validate:"required,max=60"`
	Primary    string `json:"primary" validate:"required,hexcolor"`
	Secondary  string `json:"secondary" validate:"required,hexcolor"`
	Accent     string `json:"accent" validate:"required,hexcolor"`
	Background string `json:"background" validate:"required,hexcolor"`
	Foreground string `json:"foreground" validate:"required,hexcolor"`
}

var GenerateTheme = &Flow[ThemeRequest, Theme]{
	Name:        "generate-theme",
	Description: "Generate a color theme from a mood or description.",
	Template: `You design UI color themes. Create a theme for: {{description}}.
Dark mode: {{dark}}. Answer with a JSON object
{"name": string, "primary": "#RRGGBB", "secondary": "#RRGGBB", "accent": "#RRGGBB",
"background": "#RRGGBB", "foreground": "#RRGGBB"} with readable contrast between
background and foreground.`,
	Vars: func(in ThemeRequest) map[string]interface{} {
		return map[string]interface{}{"description": in.Description, "dark": strconv.FormatBool(in.Dark)}
	},
}
