// Package prompts renders the model prompts used by the research pipeline.
// Tag names and template variables are load-bearing; the prose is not.
package prompts

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/ai-asa/chat-websearch/internal/models"
)

var funcs = template.FuncMap{
	"yesno": func(b bool) string {
		if b {
			return "yes"
		}
		return "no"
	},
	"trim": strings.TrimSpace,
}

const judgeText = `You decide whether answering the user requires fresh information from the web.
Answer "1" when the question depends on current events, prices, releases, schedules or facts you
may not know reliably. Answer "0" for chit-chat, opinions, or anything the conversation already covers.

Reply in exactly this form:
<reasoning>one or two sentences</reasoning>
<decision>1 or 0</decision>

User input: {{.Utterance}}

Conversation history:
{{- range .History}}
User: {{.User}}
Assistant: {{.Assistant}}
Web research used: {{yesno .UsedResearch}}
{{- end}}
`

const keywordsText = `Write the web search queries needed to answer the user's question.
Use as few queries as possible; write each one the way a person would type it into a search engine.
Return only a JSON array of strings, for example ["query one", "query two"].

User question: {{.Utterance}}

Conversation history:
{{- range .History}}
User: {{.User}}
Assistant: {{.Assistant}}
{{- end}}
`

const summarizeText = `Summarize the web pages below for someone researching the search query at the top.
Keep concrete facts, figures, dates and names. Drop navigation text, advertising and duplicated content.
Note the source URL next to each fact you keep.

{{.Text}}`

const systemText = `You are a helpful assistant having a conversation with the user.
Answer in the user's language. Be concise and accurate.

Conversation so far:
{{- range .History}}
User: {{.User}}
Assistant: {{.Assistant}}
{{- end}}

User: {{.Utterance}}`

const researchSystemText = `You are a helpful assistant having a conversation with the user.
Web research was done for this turn; base your answer on it and cite URLs where useful.
If the research says "{{.Failure}}" for a query, say that the information could not be retrieved
rather than guessing.

Web research results:
{{- range .Results}}

### {{.Query}}
{{trim .Summary}}
{{- end}}

Conversation so far:
{{- range .History}}
User: {{.User}}
Assistant: {{.Assistant}}
{{- end}}

User: {{.Utterance}}`

const customerInfoText = `Organize the customer details below into JSON. Use null for anything not given.

Reply in exactly this form:
<customer_info>
{"age": ..., "gender": "...", "family_status": "...", "occupation": {"type": "...", "industry": "..."}, "location": "..."}
</customer_info>

Input: {{.Input}}`

const icebreakKeywordsText = `Given the customer profile, write one web search query per category to find
small-talk material for a first meeting: current weather, local news and events, general news, and
seasonal topics for where the customer lives.

Reply in exactly this form:
<search_keywords>
{"weather": "...", "local": "...", "news": "...", "seasonal": "..."}
</search_keywords>

Customer profile: {{.CustomerInfo}}`

const icebreakSuggestionsText = `Using the customer profile and the research below, suggest conversation openers.
For each topic give the opening line, the source it is based on, and how it can lead into the
customer's needs.

Reply in exactly this form:
<icebreak_suggestions>
{"topics": {"<topic>": {"starter": "...", "source": "...", "bridge": "..."}}, "best_approach": "..."}
</icebreak_suggestions>

Context: {{.Context}}`

var (
	judgeTmpl              = template.Must(template.New("judge").Funcs(funcs).Parse(judgeText))
	keywordsTmpl           = template.Must(template.New("keywords").Funcs(funcs).Parse(keywordsText))
	summarizeTmpl          = template.Must(template.New("summarize").Funcs(funcs).Parse(summarizeText))
	systemTmpl             = template.Must(template.New("system").Funcs(funcs).Parse(systemText))
	researchSystemTmpl     = template.Must(template.New("research_system").Funcs(funcs).Parse(researchSystemText))
	customerInfoTmpl       = template.Must(template.New("customer_info").Funcs(funcs).Parse(customerInfoText))
	icebreakKeywordsTmpl   = template.Must(template.New("icebreak_keywords").Funcs(funcs).Parse(icebreakKeywordsText))
	icebreakSuggestionTmpl = template.Must(template.New("icebreak_suggestions").Funcs(funcs).Parse(icebreakSuggestionsText))
)

func render(t *template.Template, data interface{}) (string, error) {
	var sb strings.Builder
	if err := t.Execute(&sb, data); err != nil {
		return "", fmt.Errorf("render %s prompt: %w", t.Name(), err)
	}
	return sb.String(), nil
}

func Judge(utterance string, history []models.ConversationTurn) (string, error) {
	return render(judgeTmpl, map[string]interface{}{"Utterance": utterance, "History": history})
}

func Keywords(utterance string, history []models.ConversationTurn) (string, error) {
	return render(keywordsTmpl, map[string]interface{}{"Utterance": utterance, "History": history})
}

func Summarize(text string) (string, error) {
	return render(summarizeTmpl, map[string]interface{}{"Text": text})
}

// System is the answer prompt for turns without research.
func System(utterance string, history []models.ConversationTurn) (string, error) {
	return render(systemTmpl, map[string]interface{}{"Utterance": utterance, "History": history})
}

// ResearchSystem is the answer prompt when at least one research result exists.
func ResearchSystem(utterance string, history []models.ConversationTurn, results []models.ResearchResult) (string, error) {
	return render(researchSystemTmpl, map[string]interface{}{
		"Utterance": utterance,
		"History":   history,
		"Results":   results,
		"Failure":   models.FailureSummary,
	})
}

func CustomerInfo(input string) (string, error) {
	return render(customerInfoTmpl, map[string]interface{}{"Input": input})
}

func IcebreakKeywords(customerInfoJSON string) (string, error) {
	return render(icebreakKeywordsTmpl, map[string]interface{}{"CustomerInfo": customerInfoJSON})
}

func IcebreakSuggestions(contextJSON string) (string, error) {
	return render(icebreakSuggestionTmpl, map[string]interface{}{"Context": contextJSON})
}
