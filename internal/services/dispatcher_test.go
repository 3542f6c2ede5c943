package services

import (
	"context"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/tbourn/go-court-backend/internal/domain"
	"github.com/tbourn/go-court-backend/internal/repo"
	"github.com/tbourn/go-court-backend/internal/tools"
)

func call(name tools.Name, args map[string]string) tools.Call {
	return tools.Call{Name: name, Args: args}
}

func TestDispatcher_IsolatesBadActions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.fileCase(t, testCase)

	calls := []tools.Call{
		call(tools.NameUpdateVerdict, map[string]string{"case_id": "999999", "verdict": "guilty"}),
		call(tools.NameCloseCase, map[string]string{"case_id": "1000", "reason": "guilty of excessive enthusiasm"}),
		call(tools.NameAddWitness, map[string]string{"case_id": "1000"}),
	}
	out, err := f.disp.Dispatch(ctx, 0, calls)
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if len(out) != 3 {
		t.Fatalf("outcomes=%d want 3", len(out))
	}
	if out[0].Result != nil || out[2].Result != nil {
		t.Fatalf("bad actions not dropped: %+v %+v", out[0].Result, out[2].Result)
	}
	if out[1].Result == nil || out[1].Result.Status != "success" {
		t.Fatalf("close result=%+v", out[1].Result)
	}

	c := f.mustCase(t, testCase)
	if c.Status != domain.StatusClosed || c.Verdict != "guilty of excessive enthusiasm" {
		t.Fatalf("case after close: status=%q verdict=%q", c.Status, c.Verdict)
	}
	if !f.rec.Locked(testCase) {
		t.Fatalf("thread not locked")
	}
	msgs := f.rec.Thread(testCase)
	last := msgs[len(msgs)-1]
	if !strings.HasPrefix(last.Text, "The case has been closed due to the following reason: ") ||
		!strings.HasSuffix(last.Text, "\nCourt is adjourned!") {
		t.Fatalf("close notice=%q", last.Text)
	}
	header, _ := f.rec.Get(c.HeaderMessageID)
	if !strings.Contains(header.Text, "## Verdict: guilty of excessive enthusiasm") {
		t.Fatalf("header not reconciled:\n%s", header.Text)
	}
}

func TestDispatcher_ScopeDropsOtherCases(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.fileCase(t, testCase)
	f.fileCase(t, testCase+1)

	out, err := f.disp.Dispatch(ctx, testCase, []tools.Call{
		call(tools.NameUpdateVerdict, map[string]string{"case_id": "1001", "verdict": "guilty"}),
	})
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if out[0].Result != nil {
		t.Fatalf("cross-case action applied")
	}
	if v := f.mustCase(t, testCase+1).Verdict; v != "" {
		t.Fatalf("other case verdict=%q", v)
	}
}

func TestDispatcher_WitnessReopenEvidence(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.fileCase(t, testCase)

	out, err := f.disp.Dispatch(ctx, testCase, []tools.Call{
		call(tools.NameAddWitness, map[string]string{"case_id": "1000", "witness_id": "<@!300>"}),
		call(tools.NameAddWitness, map[string]string{"case_id": "1000", "witness_id": "300"}),
		call(tools.NameRequestEvidence, map[string]string{"case_id": "1000", "content": "Produce the keyboard."}),
		call(tools.NameReopenCase, map[string]string{"case_id": "1000"}),
		call(tools.NameCloseCase, map[string]string{"case_id": "1000", "reason": "settled"}),
		call(tools.NameReopenCase, map[string]string{"case_id": "1000"}),
	})
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	var statuses []string
	for _, o := range out {
		if o.Result == nil {
			statuses = append(statuses, "dropped")
		} else {
			statuses = append(statuses, o.Result.Status)
		}
	}
	want := []string{"success", "success", "success", "dropped", "success", "success"}
	if diff := cmp.Diff(want, statuses); diff != "" {
		t.Fatalf("statuses (-want +got):\n%s", diff)
	}

	witnesses, _ := repo.ParticipantIDs(ctx, f.db, testCase, domain.RoleWitness)
	if diff := cmp.Diff([]int64{300}, witnesses); diff != "" {
		t.Fatalf("witnesses (-want +got):\n%s", diff)
	}
	if f.rec.Locked(testCase) {
		t.Fatalf("thread still locked after reopen")
	}
	found := false
	for _, m := range f.rec.Thread(testCase) {
		if m.Text == "Produce the keyboard." {
			found = true
		}
	}
	if !found {
		t.Fatalf("evidence request not posted")
	}
}
