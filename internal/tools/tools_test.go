package tools

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParse_AllActions(t *testing.T) {
	tests := []struct {
		name string
		call Call
		want Action
	}{
		{"verdict", Call{Name: NameUpdateVerdict, Args: map[string]string{"case_id": "11", "verdict": "Guilty"}}, UpdateVerdict{CaseID: 11, Verdict: "Guilty"}},
		{"witness mention", Call{Name: NameAddWitness, Args: map[string]string{"case_id": "11", "witness_id": "<@!300>"}}, AddWitness{CaseID: 11, WitnessID: 300}},
		{"witness bare", Call{Name: NameAddWitness, Args: map[string]string{"case_id": " 11 ", "witness_id": "300"}}, AddWitness{CaseID: 11, WitnessID: 300}},
		{"close", Call{Name: NameCloseCase, Args: map[string]string{"case_id": "11", "reason": "done"}}, CloseCase{CaseID: 11, Reason: "done"}},
		{"evidence", Call{Name: NameRequestEvidence, Args: map[string]string{"case_id": "11", "content": "Show the logs", "extra": "ignored"}}, RequestEvidence{CaseID: 11, Content: "Show the logs"}},
		{"reopen", Call{Name: NameReopenCase, Args: map[string]string{"case_id": "11"}}, ReopenCase{CaseID: 11}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.call)
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Fatalf("action mismatch (-want +got):\n%s", diff)
			}
			if got.Name() != tt.call.Name || got.Case() != 11 {
				t.Fatalf("Name/Case = %s/%d", got.Name(), got.Case())
			}
		})
	}
}

func TestParse_Rejects(t *testing.T) {
	tests := []struct {
		name string
		call Call
		want error
	}{
		{"unknown", Call{Name: "summon_bailiff", Args: map[string]string{"case_id": "1"}}, ErrUnknownAction},
		{"missing case", Call{Name: NameReopenCase, Args: map[string]string{}}, ErrInvalidArgs},
		{"nil args", Call{Name: NameCloseCase}, ErrInvalidArgs},
		{"non numeric", Call{Name: NameCloseCase, Args: map[string]string{"case_id": "abc", "reason": "x"}}, ErrInvalidArgs},
		{"negative", Call{Name: NameReopenCase, Args: map[string]string{"case_id": "-4"}}, ErrInvalidArgs},
		{"blank text", Call{Name: NameUpdateVerdict, Args: map[string]string{"case_id": "1", "verdict": "  "}}, ErrInvalidArgs},
		{"bad witness", Call{Name: NameAddWitness, Args: map[string]string{"case_id": "1", "witness_id": "@someone"}}, ErrInvalidArgs},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := Parse(tt.call)
			if !errors.Is(err, tt.want) || a != nil {
				t.Fatalf("Parse = %v, %v; want nil, %v", a, err, tt.want)
			}
		})
	}
}

type recordingExecutor struct {
	seen []Name
}

func (r *recordingExecutor) UpdateVerdict(_ context.Context, a UpdateVerdict) (*Result, error) {
	r.seen = append(r.seen, a.Name())
	return Success("verdict"), nil
}
func (r *recordingExecutor) AddWitness(_ context.Context, a AddWitness) (*Result, error) {
	r.seen = append(r.seen, a.Name())
	return nil, nil
}
func (r *recordingExecutor) CloseCase(_ context.Context, a CloseCase) (*Result, error) {
	r.seen = append(r.seen, a.Name())
	return Success("closed"), nil
}
func (r *recordingExecutor) RequestEvidence(_ context.Context, a RequestEvidence) (*Result, error) {
	r.seen = append(r.seen, a.Name())
	return Success(""), nil
}
func (r *recordingExecutor) ReopenCase(_ context.Context, a ReopenCase) (*Result, error) {
	r.seen = append(r.seen, a.Name())
	return Success("reopened"), nil
}

func TestApply_DispatchesToMatchingMethod(t *testing.T) {
	ex := &recordingExecutor{}
	actions := []Action{
		CloseCase{CaseID: 1, Reason: "r"},
		AddWitness{CaseID: 1, WitnessID: 2},
		ReopenCase{CaseID: 1},
		UpdateVerdict{CaseID: 1, Verdict: "v"},
		RequestEvidence{CaseID: 1, Content: "c"},
	}
	for _, a := range actions {
		if _, err := Apply(context.Background(), ex, a); err != nil {
			t.Fatalf("Apply(%s): %v", a.Name(), err)
		}
	}
	want := []Name{NameCloseCase, NameAddWitness, NameReopenCase, NameUpdateVerdict, NameRequestEvidence}
	if diff := cmp.Diff(want, ex.seen); diff != "" {
		t.Fatalf("dispatch order mismatch (-want +got):\n%s", diff)
	}
}

func TestSchemas_ShapeMatchesParse(t *testing.T) {
	got := Schemas()
	if len(got) != len(Names) {
		t.Fatalf("expected %d schemas, got %d", len(Names), len(got))
	}
	for i, s := range got {
		if s.Name != Names[i] {
			t.Fatalf("schema %d is %s; want %s", i, s.Name, Names[i])
		}
		if s.Parameters.Type != "object" || s.Description == "" {
			t.Fatalf("schema %s malformed: %+v", s.Name, s)
		}
		args := map[string]string{}
		for _, req := range s.Parameters.Required {
			p, ok := s.Parameters.Properties[req]
			if !ok || p.Type != "string" {
				t.Fatalf("schema %s: required %q not declared as string", s.Name, req)
			}
			args[req] = "7"
		}
		// Filling exactly the required set must satisfy Parse.
		if _, err := Parse(Call{Name: s.Name, Args: args}); err != nil {
			t.Fatalf("schema %s required set rejected by Parse: %v", s.Name, err)
		}
	}

	raw, err := json.Marshal(got[0])
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var generic map[string]any
	_ = json.Unmarshal(raw, &generic)
	params, _ := generic["parameters"].(map[string]any)
	if params["type"] != "object" {
		t.Fatalf("wire form lost parameters.type: %s", raw)
	}
}

func TestParseName(t *testing.T) {
	if n, ok := ParseName("close_case"); !ok || n != NameCloseCase {
		t.Fatalf("ParseName(close_case) = %q, %v", n, ok)
	}
	if _, ok := ParseName("delete_case"); ok {
		t.Fatalf("ParseName accepted an unknown action")
	}
}
