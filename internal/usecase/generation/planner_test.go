package generation

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

func TestStaticPlanner(t *testing.T) {
	ctx := context.Background()

	got, _ := StaticPlanner{}.Plan(ctx, Request{}, Analyses{})
	if !reflect.DeepEqual(got, DefaultSections) {
		t.Errorf("expected default outline, got %v", got)
	}

	got, _ = StaticPlanner{Sections: []string{"One", "Two"}}.Plan(ctx, Request{}, Analyses{})
	if !reflect.DeepEqual(got, []string{"One", "Two"}) {
		t.Errorf("expected configured outline, got %v", got)
	}

	got, _ = StaticPlanner{Sections: []string{"One"}}.Plan(ctx, Request{Sections: []string{" Mine ", "", "mine"}}, Analyses{})
	if !reflect.DeepEqual(got, []string{"Mine"}) {
		t.Errorf("expected caller outline, got %v", got)
	}

	got[0] = "mutated"
	if DefaultSections[0] == "mutated" {
		t.Error("default outline must not be shared")
	}
}

func TestModelPlanner_CallerSectionsSkipModel(t *testing.T) {
	c := &scriptedCompleter{}
	p := NewModelPlanner(c, StaticPlanner{})
	req := Request{Sections: []string{"A"}}

	if p.UsesModel(req) {
		t.Error("caller sections must not use the model")
	}
	got, err := p.Plan(context.Background(), req, Analyses{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(got, []string{"A"}) || c.calls.Load() != 0 {
		t.Errorf("got %v with %d calls", got, c.calls.Load())
	}
}

func TestModelPlanner_EmptyAnswerFallsBack(t *testing.T) {
	c := &scriptedCompleter{planner: func(context.Context, string) (string, error) { return "\n\n", nil }}
	got, err := NewModelPlanner(c, StaticPlanner{Sections: []string{"X"}}).Plan(context.Background(), Request{}, Analyses{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(got, []string{"X"}) {
		t.Errorf("expected fallback outline, got %v", got)
	}
}

func TestModelPlanner_CapsLongOutlines(t *testing.T) {
	var answer string
	for i := 0; i < 20; i++ {
		answer += "Section " + string(rune('A'+i)) + "\n"
	}
	c := &scriptedCompleter{planner: func(context.Context, string) (string, error) { return answer, nil }}
	got, err := NewModelPlanner(c, StaticPlanner{}).Plan(context.Background(), Request{}, Analyses{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != maxPlannedSections {
		t.Errorf("expected %d sections, got %d", maxPlannedSections, len(got))
	}
}

func TestModelPlanner_Error(t *testing.T) {
	boom := errors.New("boom")
	c := &scriptedCompleter{planner: func(context.Context, string) (string, error) { return "", boom }}
	if _, err := NewModelPlanner(c, StaticPlanner{}).Plan(context.Background(), Request{}, Analyses{}); !errors.Is(err, boom) {
		t.Errorf("expected wrapped error, got %v", err)
	}
}
