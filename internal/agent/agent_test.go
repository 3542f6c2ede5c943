package agent

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"google.golang.org/genai"

	"github.com/tbourn/go-court-backend/internal/tools"
)

func TestNewReply_DropsUnknownAndTrims(t *testing.T) {
	r, err := NewReply("  Order!  ", []tools.Call{
		{Name: "close_case", Args: map[string]string{"case_id": "1", "reason": "r"}},
		{Name: "banish_user", Args: map[string]string{"case_id": "1"}},
		{Name: "reopen_case"},
	})
	if err != nil {
		t.Fatalf("NewReply: %v", err)
	}
	want := Reply{
		Text: "Order!",
		ToolCalls: []tools.Call{
			{Name: tools.NameCloseCase, Args: map[string]string{"case_id": "1", "reason": "r"}},
			{Name: tools.NameReopenCase, Args: map[string]string{}},
		},
	}
	if diff := cmp.Diff(want, r); diff != "" {
		t.Fatalf("reply mismatch (-want +got):\n%s", diff)
	}
}

func TestNewReply_Empty(t *testing.T) {
	if _, err := NewReply("   ", nil); !errors.Is(err, ErrEmptyReply) {
		t.Fatalf("expected ErrEmptyReply, got %v", err)
	}
	if _, err := NewReply("", []tools.Call{{Name: "nope"}}); !errors.Is(err, ErrEmptyReply) {
		t.Fatalf("only-unknown calls should be empty, got %v", err)
	}
	r, err := NewReply("", []tools.Call{{Name: "update_verdict"}})
	if err != nil || r.Empty() {
		t.Fatalf("call-only reply should be valid: %+v %v", r, err)
	}
}

func TestStringArgs(t *testing.T) {
	got := stringArgs(map[string]any{
		"case_id": float64(1447672099358511104),
		"reason":  "contempt",
		"flag":    true,
		"none":    nil,
	})
	want := map[string]string{
		"case_id": "1447672099358511104",
		"reason":  "contempt",
		"flag":    "true",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("args mismatch (-want +got):\n%s", diff)
	}
}

func TestDeclarations(t *testing.T) {
	decl := declarations(tools.Schemas())
	if len(decl) != 1 {
		t.Fatalf("expected one tool bundle, got %d", len(decl))
	}
	fns := decl[0].FunctionDeclarations
	if len(fns) != len(tools.Names) {
		t.Fatalf("expected %d declarations, got %d", len(tools.Names), len(fns))
	}
	cc := fns[2]
	if cc.Name != "close_case" || cc.Parameters.Type != genai.TypeObject {
		t.Fatalf("unexpected declaration: %+v", cc)
	}
	if diff := cmp.Diff([]string{"case_id", "reason"}, cc.Parameters.Required); diff != "" {
		t.Fatalf("required mismatch (-want +got):\n%s", diff)
	}
	if cc.Parameters.Properties["reason"].Type != genai.TypeString {
		t.Fatalf("reason should be declared as string")
	}
	if declarations(nil) != nil {
		t.Fatalf("no schemas should yield no tools")
	}
}

func TestContents_SecondRoundReplaysCallsAndResults(t *testing.T) {
	first := contents(Request{Context: "ctx"})
	if len(first) != 1 || first[0].Role != string(genai.RoleUser) {
		t.Fatalf("first round contents = %+v", first)
	}

	prev := &Reply{ToolCalls: []tools.Call{
		{Name: tools.NameCloseCase, Args: map[string]string{"case_id": "1", "reason": "r"}},
		{Name: tools.NameUpdateVerdict, Args: map[string]string{"case_id": "404", "verdict": "v"}},
	}}
	second := contents(Request{
		Context:  "ctx",
		Previous: prev,
		Outcomes: []Outcome{
			{Call: prev.ToolCalls[0], Result: tools.Success("closed")},
			{Call: prev.ToolCalls[1], Result: nil},
		},
	})
	if len(second) != 3 {
		t.Fatalf("expected user, model, user contents; got %d", len(second))
	}
	if second[1].Role != string(genai.RoleModel) || len(second[1].Parts) != 2 {
		t.Fatalf("model turn malformed: %+v", second[1])
	}
	if second[1].Parts[0].FunctionCall == nil || second[1].Parts[0].FunctionCall.Name != "close_case" {
		t.Fatalf("expected replayed close_case call, got %+v", second[1].Parts[0])
	}
	resp := second[2].Parts[1].FunctionResponse
	if resp == nil || resp.Name != "update_verdict" || resp.Response["result"] != nil {
		t.Fatalf("dropped action should report a null result, got %+v", resp)
	}
}

func TestUnavailable(t *testing.T) {
	var a Agent = Unavailable{}
	if _, err := a.Generate(context.Background(), Request{}); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("Generate: %v", err)
	}
	var s Summarizer = Unavailable{}
	if _, err := s.Summarize(context.Background(), nil, ""); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("Summarize: %v", err)
	}
}

func TestNewGemini_RequiresKey(t *testing.T) {
	if _, err := NewGemini(context.Background(), GeminiConfig{}); err == nil {
		t.Fatalf("expected error without API key")
	}
}
