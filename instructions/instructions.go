// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package instructions

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/danielhkuo/prepsense/models"
)

// MaxGroups is the largest number of groups ParseToGroups returns
const MaxGroups = 3

var phaseOrder = []string{models.PhasePrep, models.PhaseCook, models.PhaseFinish}

var phaseTitles = map[string]string{
	models.PhasePrep:   "Prep",
	models.PhaseCook:   "Cook",
	models.PhaseFinish: "Finish & Serve",
}

var phaseKeywords = map[string][]string{
	models.PhasePrep: {
		"chop", "dice", "slice", "mince", "peel", "wash", "rinse", "measure",
		"preheat", "marinate", "combine", "mix", "whisk", "grate", "trim",
		"soak", "cut", "pat dry", "season", "line a", "grease", "beat",
		"knead", "thaw", "zest", "crush", "set aside",
	},
	models.PhaseCook: {
		"bake", "boil", "simmer", "fry", "saute", "sauté", "roast", "grill",
		"cook", "heat", "sear", "steam", "broil", "toast", "brown", "reduce",
		"bring to", "poach", "stir", "melt", "caramelize", "microwave",
	},
	models.PhaseFinish: {
		"serve", "garnish", "plate", "let rest", "rest for", "cool", "top with",
		"sprinkle", "drizzle", "enjoy", "transfer to a serving", "slice and serve",
		"season to taste", "adjust seasoning",
	},
}

var (
	stepMarker = regexp.MustCompile(`(?i)^\s*(?:step\s*\d+\s*[:.)-]?|\d+\s*[.)]|[-*•])\s*`)
	inlineStep = regexp.MustCompile(`(?i)(?:^|\s)(?:step\s*\d+\s*[:.)-]|\d+[.)])\s+`)
)

// SplitSteps splits free-text instructions into individual steps. Steps are
// separated by line breaks or by inline markers such as "1." or "Step 2:".
func SplitSteps(text string) []string {
	var steps []string
	for _, line := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		for _, part := range splitInline(line) {
			part = strings.TrimSpace(stepMarker.ReplaceAllString(part, ""))
			if part != "" {
				steps = append(steps, part)
			}
		}
	}
	return steps
}

func splitInline(line string) []string {
	locs := inlineStep.FindAllStringIndex(line, -1)
	if len(locs) < 2 {
		return []string{line}
	}
	var parts []string
	if locs[0][0] > 0 {
		parts = append(parts, line[:locs[0][0]])
	}
	for i, loc := range locs {
		end := len(line)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		parts = append(parts, line[loc[0]:end])
	}
	return parts
}

// Classify returns the phase of a single step, or "" when no keyword matches.
// The keyword that appears earliest in the text wins.
func Classify(step string) string {
	lower := strings.ToLower(step)
	best, bestPos, bestLen := "", -1, 0
	for _, phase := range phaseOrder {
		for _, kw := range phaseKeywords[phase] {
			pos := indexWord(lower, kw)
			if pos < 0 {
				continue
			}
			if bestPos < 0 || pos < bestPos || (pos == bestPos && len(kw) > bestLen) {
				best, bestPos, bestLen = phase, pos, len(kw)
			}
		}
	}
	return best
}

// indexWord finds kw at the start of a word in s
func indexWord(s, kw string) int {
	from := 0
	for {
		i := strings.Index(s[from:], kw)
		if i < 0 {
			return -1
		}
		i += from
		if i == 0 || !isLetter(s[i-1]) {
			return i
		}
		from = i + 1
	}
}

func isLetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

// ParseToGroups buckets ordered steps into at most maxGroups phases.
//
// Phases never move backwards: a step is assigned the later of its own
// phase and the previous step's, so every group is a contiguous run of the
// input. Empty phases are dropped. maxGroups above 3 is clamped to 3 and
// anything below 1 means the default of 3.
func ParseToGroups(steps []string, maxGroups int) []models.InstructionGroup {
	if maxGroups < 1 || maxGroups > MaxGroups {
		maxGroups = MaxGroups
	}

	var clean []string
	for _, s := range steps {
		if s = strings.TrimSpace(s); s != "" {
			clean = append(clean, s)
		}
	}
	if len(clean) == 0 {
		return []models.InstructionGroup{}
	}

	phases := make([]int, len(clean))
	current := 0
	for i, s := range clean {
		if p := phaseIndex(Classify(s)); p > current {
			current = p
		}
		phases[i] = current
	}

	// Fold phases that exceed the group budget into the last allowed one
	for i := range phases {
		if phases[i] > maxGroups-1 {
			phases[i] = maxGroups - 1
		}
	}

	var groups []models.InstructionGroup
	for i, s := range clean {
		phase := phaseOrder[phases[i]]
		if len(groups) == 0 || groups[len(groups)-1].Phase != phase {
			groups = append(groups, models.InstructionGroup{
				Phase: phase,
				Title: phaseTitles[phase],
			})
		}
		g := &groups[len(groups)-1]
		g.Steps = append(g.Steps, models.InstructionStep{Number: i + 1, Text: s})
	}

	if len(groups) == 1 && maxGroups >= 2 && len(clean) >= 4 {
		groups = splitEvenly(groups[0])
	}
	if maxGroups == 1 && len(groups) == 1 {
		groups[0].Title = "Instructions"
	}
	return groups
}

// splitEvenly divides a single long group at its midpoint
func splitEvenly(g models.InstructionGroup) []models.InstructionGroup {
	mid := (len(g.Steps) + 1) / 2
	first, second := g.Steps[:mid], g.Steps[mid:]
	return []models.InstructionGroup{
		{Phase: g.Phase, Title: stepRangeTitle(first), Steps: first},
		{Phase: g.Phase, Title: stepRangeTitle(second), Steps: second},
	}
}

func stepRangeTitle(steps []models.InstructionStep) string {
	return fmt.Sprintf("Steps %d-%d", steps[0].Number, steps[len(steps)-1].Number)
}

func phaseIndex(phase string) int {
	for i, p := range phaseOrder {
		if p == phase {
			return i
		}
	}
	return 0
}

// ParseText is SplitSteps followed by ParseToGroups
func ParseText(text string, maxGroups int) []models.InstructionGroup {
	return ParseToGroups(SplitSteps(text), maxGroups)
}
