// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package instructions

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/danielhkuo/prepsense/models"
)

func TestSplitSteps(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "line breaks",
			text: "Chop the onion.\n\nFry it.\r\nServe.",
			want: []string{"Chop the onion.", "Fry it.", "Serve."},
		},
		{
			name: "numbered lines",
			text: "1. Boil water\n2) Add pasta\nStep 3: Drain",
			want: []string{"Boil water", "Add pasta", "Drain"},
		},
		{
			name: "inline numbering",
			text: "1. Dice the carrots. 2. Simmer for 10 minutes. 3. Serve hot.",
			want: []string{"Dice the carrots.", "Simmer for 10 minutes.", "Serve hot."},
		},
		{
			name: "bullets",
			text: "- Whisk eggs\n* Cook in a pan",
			want: []string{"Whisk eggs", "Cook in a pan"},
		},
		{
			name: "empty",
			text: "  \n\n ",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SplitSteps(tt.text)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("SplitSteps() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		step string
		want string
	}{
		{"Chop the onions finely", models.PhasePrep},
		{"Preheat the oven to 200C", models.PhasePrep},
		{"Bake for 25 minutes", models.PhaseCook},
		{"Garnish with parsley and serve", models.PhaseFinish},
		{"Heat oil, then dice the garlic", models.PhaseCook},
		{"Dice the garlic, then heat oil", models.PhasePrep},
		{"Enjoy!", models.PhaseFinish},
		{"Wait patiently", ""},
	}

	for _, tt := range tests {
		t.Run(tt.step, func(t *testing.T) {
			if got := Classify(tt.step); got != tt.want {
				t.Errorf("Classify(%q) = %q, want %q", tt.step, got, tt.want)
			}
		})
	}
}

func phasesOf(groups []models.InstructionGroup) []string {
	var out []string
	for _, g := range groups {
		out = append(out, g.Phase)
	}
	return out
}

func flatten(groups []models.InstructionGroup) []models.InstructionStep {
	var out []models.InstructionStep
	for _, g := range groups {
		out = append(out, g.Steps...)
	}
	return out
}

func TestParseToGroups(t *testing.T) {
	steps := []string{
		"Preheat the oven to 180C.",
		"Chop the vegetables.",
		"Roast for 30 minutes.",
		"Meanwhile, prepare the sauce.",
		"Garnish with herbs.",
		"Serve warm.",
	}

	tests := []struct {
		name       string
		maxGroups  int
		wantPhases []string
		wantSizes  []int
	}{
		{"three groups", 3, []string{"prep", "cook", "finish"}, []int{2, 2, 2}},
		{"default when zero", 0, []string{"prep", "cook", "finish"}, []int{2, 2, 2}},
		{"clamped above three", 7, []string{"prep", "cook", "finish"}, []int{2, 2, 2}},
		{"finish folds into cook", 2, []string{"prep", "cook"}, []int{2, 4}},
		{"single group", 1, []string{"prep"}, []int{6}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			groups := ParseToGroups(steps, tt.maxGroups)

			if diff := cmp.Diff(tt.wantPhases, phasesOf(groups)); diff != "" {
				t.Errorf("phases mismatch (-want +got):\n%s", diff)
			}
			var sizes []int
			for _, g := range groups {
				sizes = append(sizes, len(g.Steps))
			}
			if diff := cmp.Diff(tt.wantSizes, sizes); diff != "" {
				t.Errorf("group sizes mismatch (-want +got):\n%s", diff)
			}

			flat := flatten(groups)
			for i, s := range flat {
				if s.Number != i+1 {
					t.Errorf("step %d numbered %d", i, s.Number)
				}
				if s.Text != steps[i] {
					t.Errorf("step %d = %q, want %q", i, s.Text, steps[i])
				}
			}
		})
	}
}

func TestParseToGroups_Monotonic(t *testing.T) {
	// The chop step after cooking starts stays in the cook phase.
	steps := []string{
		"Boil the potatoes.",
		"Chop the chives.",
		"Mash everything together.",
		"Serve.",
	}

	groups := ParseToGroups(steps, 3)

	want := []models.InstructionGroup{
		{Phase: "cook", Title: "Cook", Steps: []models.InstructionStep{
			{Number: 1, Text: "Boil the potatoes."},
			{Number: 2, Text: "Chop the chives."},
			{Number: 3, Text: "Mash everything together."},
		}},
		{Phase: "finish", Title: "Finish & Serve", Steps: []models.InstructionStep{
			{Number: 4, Text: "Serve."},
		}},
	}
	if diff := cmp.Diff(want, groups); diff != "" {
		t.Errorf("ParseToGroups() mismatch (-want +got):\n%s", diff)
	}
}

func TestParseToGroups_SplitsSinglePhase(t *testing.T) {
	steps := []string{
		"Wash the lettuce.",
		"Slice the cucumber.",
		"Mince the shallot.",
		"Whisk the dressing.",
		"Combine everything.",
	}

	groups := ParseToGroups(steps, 3)
	if len(groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(groups))
	}
	if len(groups[0].Steps) != 3 || len(groups[1].Steps) != 2 {
		t.Errorf("expected 3+2 split, got %d+%d", len(groups[0].Steps), len(groups[1].Steps))
	}
	if groups[0].Title != "Steps 1-3" || groups[1].Title != "Steps 4-5" {
		t.Errorf("unexpected titles %q, %q", groups[0].Title, groups[1].Title)
	}

	// Too short to split.
	if got := ParseToGroups(steps[:3], 3); len(got) != 1 {
		t.Errorf("expected 1 group for 3 steps, got %d", len(got))
	}
	// No split when only one group is allowed.
	if got := ParseToGroups(steps, 1); len(got) != 1 {
		t.Errorf("expected 1 group with maxGroups=1, got %d", len(got))
	}
}

func TestParseToGroups_Empty(t *testing.T) {
	groups := ParseToGroups([]string{"", "   "}, 3)
	if groups == nil || len(groups) != 0 {
		t.Errorf("expected empty non-nil slice, got %#v", groups)
	}
}

func TestParseText(t *testing.T) {
	groups := ParseText("1. Dice the onion. 2. Saute until golden. 3. Serve.", 3)
	if diff := cmp.Diff([]string{"prep", "cook", "finish"}, phasesOf(groups)); diff != "" {
		t.Errorf("phases mismatch (-want +got):\n%s", diff)
	}
}
