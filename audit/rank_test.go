package audit

import "testing"

func strptr(s string) *string { return &s }

func TestRankOrdersByMessinessThenVolume(t *testing.T) {
	rows := []RegionMetrics{
		{District: strptr("a"), Messiness: 0.1, NIncidents: 5},
		{District: strptr("b"), Messiness: 0.9, NIncidents: 1},
		{District: strptr("c"), Messiness: 0.9, NIncidents: 7},
		{District: strptr("d"), Messiness: 0.5, NIncidents: 2},
	}

	ranked := Rank(rows)
	want := []string{"c", "b", "d", "a"}
	for i, name := range want {
		if *ranked[i].District != name {
			t.Fatalf("position %d: got %s, want %s", i, *ranked[i].District, name)
		}
	}
	// Input must be untouched.
	if *rows[0].District != "a" {
		t.Fatal("Rank mutated its input")
	}
}

func TestGroupByStateExcludesNullStates(t *testing.T) {
	rows := []RegionMetrics{
		{State: strptr("DC"), District: strptr("d1")},
		{State: nil, District: strptr("orphan")},
		{State: strptr("MD"), District: strptr("d2")},
		{State: strptr("DC"), District: strptr("d3")},
	}

	grouped := GroupByState(rows)
	if len(grouped) != 2 {
		t.Fatalf("expected 2 states, got %d", len(grouped))
	}
	if len(grouped["DC"]) != 2 {
		t.Fatalf("DC should hold 2 rows, got %d", len(grouped["DC"]))
	}
	if *grouped["DC"][0].District != "d1" {
		t.Fatal("grouping must preserve row order")
	}

	states := States(rows)
	if len(states) != 2 || states[0] != "DC" || states[1] != "MD" {
		t.Fatalf("unexpected state list: %v", states)
	}
}
