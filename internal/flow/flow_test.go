package flow

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"worksync-backend/pkg/apperror"
)

type fakeCompleter struct {
	answer string
	err    error
	prompt string
	json   bool
}

func (f *fakeCompleter) Name() string { return "fake" }

func (f *fakeCompleter) Complete(ctx context.Context, prompt string, jsonOutput bool) (string, error) {
	f.prompt, f.json = prompt, jsonOutput
	return f.answer, f.err
}

const transcript = "Alice: we need the Q3 report by Friday. Bob: I will draft it."

func TestRenderFillsTemplate(t *testing.T) {
	prompt := ExtractActionItems.Render(ActionItemsInput{Transcript: transcript, Today: "2026-03-02"})
	if !strings.Contains(prompt, "Today is 2026-03-02") || !strings.Contains(prompt, transcript) {
		t.Fatalf("unexpected prompt %q", prompt)
	}
	if strings.Contains(prompt, "{{") {
		t.Fatalf("unfilled placeholder in %q", prompt)
	}
}

func TestRegistryInvoke(t *testing.T) {
	fc := &fakeCompleter{answer: "```json\n{\"action_items\":[{\"title\":\"Draft Q3 report\",\"assignee\":\"Bob\",\"due_date\":\"2026-03-06\",\"priority\":2}]}\n```"}
	r := NewRegistry(fc)

	input, _ := json.Marshal(ActionItemsInput{Transcript: transcript})
	out, err := r.Invoke(context.Background(), "extract-action-items", input)
	if err != nil {
		t.Fatalf("invoke: %v", err)
	}
	items, ok := out.(ActionItems)
	if !ok || len(items.ActionItems) != 1 || items.ActionItems[0].Title != "Draft Q3 report" {
		t.Fatalf("unexpected output %#v", out)
	}
	if !fc.json {
		t.Fatal("flows must request JSON output")
	}
}

func TestRegistryErrors(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry(&fakeCompleter{answer: `{"summary":"ok"}`})

	tests := []struct {
		name  string
		flow  string
		input string
		kind  apperror.Kind
	}{
		{"unknown flow", "write-poem", `{}`, apperror.KindNotFound},
		{"empty input", "summarize-transcript", ``, apperror.KindInvalid},
		{"bad json", "summarize-transcript", `{`, apperror.KindInvalid},
		{"schema violation", "summarize-transcript", `{"transcript":"too short"}`, apperror.KindInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.Invoke(ctx, tt.flow, json.RawMessage(tt.input))
			if apperror.KindOf(err) != tt.kind {
				t.Fatalf("expected %s, got %v", tt.kind, err)
			}
		})
	}
}

func TestOutputValidation(t *testing.T) {
	ctx := context.Background()
	cases := map[string]string{
		"not json":      "Sure! Here is your theme.",
		"bad hex color": `{"name":"Dusk","primary":"purple","secondary":"#111111","accent":"#222222","background":"#000000","foreground":"#ffffff"}`,
	}
	for name, answer := range cases {
		t.Run(name, func(t *testing.T) {
			r := NewRegistry(&fakeCompleter{answer: answer})
			_, err := r.Invoke(ctx, "generate-theme", json.RawMessage(`{"description":"calm evening"}`))
			if !errors.Is(err, ErrMalformedOutput) {
				t.Fatalf("expected malformed output, got %v", err)
			}
		})
	}
}

func TestCompleterFailureSurfaces(t *testing.T) {
	r := NewRegistry(&fakeCompleter{err: errors.New("dial tcp: connection refused")})
	_, err := Call(context.Background(), r, GenerateCode, CodeRequest{Description: "fizzbuzz", Language: "Go"})
	if apperror.KindOf(err) != apperror.KindNetwork {
		t.Fatalf("expected network error, got %v", err)
	}
}

func TestCallTyped(t *testing.T) {
	r := NewRegistry(&fakeCompleter{answer: `Here you go: {"name":"Dusk","primary":"#6B4E9B","secondary":"#2E2A47","accent":"#F2A65A","background":"#14121F","foreground":"#F5F3FF"}`})
	theme, err := Call(context.Background(), r, GenerateTheme, ThemeRequest{Description: "calm evening", Dark: true})
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	if theme.Accent != "#F2A65A" {
		t.Fatalf("unexpected theme %+v", theme)
	}
}

func TestList(t *testing.T) {
	infos := NewRegistry(&fakeCompleter{}).List()
	if len(infos) != 6 || infos[0].Name != "extract-action-items" {
		t.Fatalf("unexpected flows %+v", infos)
	}
}
