package seekly

import (
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"
	"github.com/seekly/seekly-go/errors"
)

// GenerateKind discriminates the generation directive shapes
type GenerateKind string

const (
	// KindFromOne generates one result per payload record
	KindFromOne GenerateKind = "from_one"
	// KindFromMany synthesizes one result from the full candidate set
	KindFromMany GenerateKind = "from_many"
	// KindAsk answers a question from the candidate set, citing sources
	KindAsk GenerateKind = "ask"
)

// Substitution marks where prompt placeholders are resolved
type Substitution string

const (
	// SubstitutionServer resolves placeholders backend-side against each record
	SubstitutionServer Substitution = "server"
	// SubstitutionClient passes messages through verbatim for client-side handling
	SubstitutionClient Substitution = "client"
)

// Message is a single chat message fed to the generative model
type Message struct {
	// Role is the message role (system/user/assistant)
	Role string `json:"role"`
	// Content is the message content
	Content string `json:"content"`
}

// ModelOptions tune the generative model
type ModelOptions struct {
	// Model optionally selects a specific model
	Model string `json:"model,omitempty"`
	// Temperature optionally sets the sampling temperature
	Temperature *float64 `json:"temperature,omitempty"`
	// MaxTokens optionally caps the output length
	MaxTokens *int `json:"maxTokens,omitempty"`
}

// FromOne is a per-record generation directive: either a prompt template whose
// placeholders are resolved against each records selected fields, or a message
// list passed through verbatim.
type FromOne struct {
	// Prompt is a template rendered against each record (template shape)
	Prompt string `json:"prompt,omitempty"`
	// Messages is a verbatim message list (messages shape)
	Messages []Message `json:"messages,omitempty"`
	// Options tune the model
	Options ModelOptions `json:"options,omitempty"`
}

// FromMany is a single-synthesis directive over the full candidate set
type FromMany struct {
	// Task describes the synthesis to perform (task shape)
	Task string `json:"task,omitempty"`
	// Properties restricts which selected fields feed the synthesis
	Properties []string `json:"properties,omitempty"`
	// Messages is a verbatim message list (messages shape)
	Messages []Message `json:"messages,omitempty"`
	// Options tune the model
	Options ModelOptions `json:"options,omitempty"`
}

// Ask is a question-answering directive producing an answer with cited sources
type Ask struct {
	// Question is the question to answer from the candidate set
	Question string `json:"question"`
	// Options tune the model
	Options ModelOptions `json:"options,omitempty"`
}

// Generate is a tagged union over the generation directive shapes
type Generate struct {
	Kind     GenerateKind `json:"kind"`
	FromOne  *FromOne     `json:"fromOne,omitempty"`
	FromMany *FromMany    `json:"fromMany,omitempty"`
	Ask      *Ask         `json:"ask,omitempty"`
}

// Validate validates the generation directive and returns a validation error if one exists
func (g Generate) Validate() error {
	count := 0
	if g.FromOne != nil {
		count++
	}
	if g.FromMany != nil {
		count++
	}
	if g.Ask != nil {
		count++
	}
	if count != 1 {
		return errors.New(errors.Config, "generate must carry exactly one shape, got %d", count)
	}
	switch g.Kind {
	case KindFromOne:
		if g.FromOne == nil {
			return errors.New(errors.Config, "generate kind '%s' missing its shape", g.Kind)
		}
		if g.FromOne.Prompt == "" && len(g.FromOne.Messages) == 0 {
			return errors.New(errors.Config, "fromOne requires a prompt template or a message list")
		}
		if g.FromOne.Prompt != "" && len(g.FromOne.Messages) > 0 {
			return errors.New(errors.Config, "fromOne accepts a prompt template or a message list, not both")
		}
	case KindFromMany:
		if g.FromMany == nil {
			return errors.New(errors.Config, "generate kind '%s' missing its shape", g.Kind)
		}
		if g.FromMany.Task == "" && len(g.FromMany.Messages) == 0 {
			return errors.New(errors.Config, "fromMany requires a task or a message list")
		}
		if g.FromMany.Task != "" && len(g.FromMany.Messages) > 0 {
			return errors.New(errors.Config, "fromMany accepts a task or a message list, not both")
		}
	case KindAsk:
		if g.Ask == nil {
			return errors.New(errors.Config, "generate kind '%s' missing its shape", g.Kind)
		}
		if g.Ask.Question == "" {
			return errors.New(errors.Config, "empty required field: 'generate.ask.question'")
		}
	default:
		return errors.New(errors.Config, "unknown generate kind: '%s'", g.Kind)
	}
	return nil
}

// substitution returns where placeholder resolution happens for the directive:
// the prompt-template shape is resolved server-side against each record, the
// messages shape is passed through verbatim for the client to interpret.
func (g Generate) substitution() Substitution {
	if g.FromOne != nil && g.FromOne.Prompt != "" {
		return SubstitutionServer
	}
	return SubstitutionClient
}

// RenderPrompt renders a prompt template against a records fields using
// template syntax with the sprig function set, e.g.
//
//	RenderPrompt("Summarize {{ .title }} in the style of {{ .author | upper }}", record)
func RenderPrompt(prompt string, record *Record) (string, error) {
	tmpl, err := template.New("prompt").Funcs(sprig.TxtFuncMap()).Option("missingkey=zero").Parse(prompt)
	if err != nil {
		return "", errors.Wrap(err, errors.Config, "invalid prompt template")
	}
	w := &strings.Builder{}
	if err := tmpl.Execute(w, record.Value()); err != nil {
		return "", errors.Wrap(err, errors.Config, "failed to render prompt template")
	}
	return w.String(), nil
}
