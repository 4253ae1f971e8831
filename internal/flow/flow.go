// Package flow runs schema checked prompts against a text-completion model.
// Each flow pairs a typed input, a typed output and a prompt template; the
// registry exposes them behind one name-based entry point.
package flow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"worksync-backend/pkg/ai"
	"worksync-backend/pkg/apperror"

	"github.com/go-playground/validator/v10"
	"github.com/valyala/fasttemplate"
)

var validate = validator.New()

// ErrMalformedOutput is returned when the model answer cannot be decoded or
// does not satisfy the output schema.
var ErrMalformedOutput = errors.New("malformed model output")

// Info describes a flow to clients.
type Info struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Variant is a flow with its input and output types erased.
type Variant interface {
	Info() Info
	Invoke(ctx context.Context, completer ai.Completer, input json.RawMessage) (any, error)
}

// Flow is one prompt with a typed input and output. Template placeholders
// are written {{name}} and filled from Vars.
type Flow[In, Out any] struct {
	Name        string
	Description string
	Template    string
	Vars        func(in In) map[string]interface{}
}

func (f *Flow[In, Out]) Info() Info {
	return Info{Name: f.Name, Description: f.Description}
}

// Render fills the template for in.
func (f *Flow[In, Out]) Render(in In) string {
	return fasttemplate.ExecuteString(f.Template, "{{", "}}", f.Vars(in))
}

// Run validates in, sends the prompt and decodes and validates the answer.
func (f *Flow[In, Out]) Run(ctx context.Context, completer ai.Completer, in In) (Out, error) {
	var out Out
	op := "flow." + f.Name

	if err := validate.Struct(in); err != nil {
		return out, apperror.New(apperror.KindInvalid, op, err)
	}

	raw, err := completer.Complete(ctx, f.Render(in), true)
	if err != nil {
		return out, apperror.Classify(op, err)
	}

	if err := decodeJSON(raw, &out); err != nil {
		return out, apperror.New(apperror.KindUnknown, op, fmt.Errorf("%w: %v", ErrMalformedOutput, err))
	}
	if err := validate.Struct(out); err != nil {
		return out, apperror.New(apperror.KindUnknown, op, fmt.Errorf("%w: %v", ErrMalformedOutput, err))
	}
	return out, nil
}

func (f *Flow[In, Out]) Invoke(ctx context.Context, completer ai.Completer, input json.RawMessage) (any, error) {
	var in In
	if len(input) == 0 {
		return nil, apperror.Invalid("flow."+f.Name, "input is required")
	}
	if err := json.Unmarshal(input, &in); err != nil {
		return nil, apperror.Invalid("flow."+f.Name, "input is not valid JSON: "+err.Error())
	}
	out, err := f.Run(ctx, completer, in)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// decodeJSON pulls the JSON object out of a model answer, tolerating code
// fences and chatter around it.
func decodeJSON(raw string, dst any) error {
	text := strings.TrimSpace(raw)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		text = strings.TrimSuffix(text, "```")
		text = strings.TrimSpace(text)
	}
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end < start {
		return errors.New("no JSON object in answer")
	}
	return json.Unmarshal([]byte(text[start:end+1]), dst)
}
