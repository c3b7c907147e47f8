package alpha

import (
	"strings"
	"testing"
	"time"
)

const sampleCSV = `
"Legs · Day 2 · Week 4 · Push-Pull-Legs";"2026-02-19 4:54 h";"1:02 hr"
"1. Hack Squats · Machine · 8 reps";"WU1 · 37,5 kg · 9 reps<br>WU2 · 72,5 kg · 7 reps"
#;KG;REPS;RIR
1;115;8;1
2;115;10;1
3;115;10;1
"2. Sumo Squats · Smith machine · 10 reps";"WU1 · 35 kg · 8 reps"
#;KG;REPS;RIR
1;70;8;1
2;70;12;1
"3. Hyperextensions on Roman Chair · Bodyweight · 10 reps";"WU1 · +0 kg · 8 reps"
#;KG;REPS;RIR
1;+35;10;0
2;+35;9;1
3;+35;10;0
"4. Reverse Lunges · Dumbbells · 10 reps"
#;KG;REPS;RIR
1;10;10;1
2;10;10;1
3;10;10;0
"5. Standing Calf Raises · Machine · 12 reps";"WU1 · 47,5 kg · 8 reps"
#;KG;REPS;RIR
1;157,5;11;1
2;157,5;11;0
3;157,5;10;0
"6. Hanging Leg Raises · Bodyweight · 12 reps · 2 dropsets"
#;KG;REPS;RIR
1;+0;12;1
2;+0;12;1
3;+0;12;0

"Push · Day 1 · Week 4 · Push-Pull-Legs";"2026-02-17 5:04 h";"1:12 hr"
"1. Bench Press · Barbell · 6 reps";"WU1 · 22,5 kg · 10 reps<br>WU2 · 47,5 kg · 8 reps<br>WU3 · 77,5 kg · 6 reps"
#;KG;REPS;RIR
1;102,5;6;0
2;102,5;6;0
3;100;6;0
`

// TestParseCompleteSessions verifies parsing a multi-session CSV with exercises and sets.
func TestParseCompleteSessions(t *testing.T) {
	sessions, err := Parse(strings.NewReader(sampleCSV), time.UTC)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("sessions = %d, want 2", len(sessions))
	}

	s1 := sessions[0]
	if s1.Name != "Legs · Day 2 · Week 4 · Push-Pull-Legs" {
		t.Errorf("s1.Name = %q", s1.Name)
	}
	if s1.Duration != "1:02 hr" {
		t.Errorf("s1.Duration = %q", s1.Duration)
	}
	if want := time.Date(2026, 2, 19, 4, 54, 0, 0, time.UTC); !s1.Date.Equal(want) {
		t.Errorf("s1.Date = %v, want %v", s1.Date, want)
	}
	if len(s1.Exercises) != 6 {
		t.Fatalf("s1 exercises = %d, want 6", len(s1.Exercises))
	}

	tests := []struct {
		name       string
		equipment  string
		targetReps string
		sets       int
	}{
		{"Hack Squats", "Machine", "8", 5},
		{"Sumo Squats", "Smith machine", "10", 3},
		{"Hyperextensions on Roman Chair", "Bodyweight", "10", 4},
		{"Reverse Lunges", "Dumbbells", "10", 3},
		{"Standing Calf Raises", "Machine", "12", 4},
		{"Hanging Leg Raises", "Bodyweight", "12", 3},
	}
	for i, tt := range tests {
		ex := s1.Exercises[i]
		if ex.Number != i+1 {
			t.Errorf("exercise %d: number = %d", i, ex.Number)
		}
		if ex.Name != tt.name {
			t.Errorf("exercise %d: name = %q, want %q", i, ex.Name, tt.name)
		}
		if ex.Equipment != tt.equipment {
			t.Errorf("%s: equipment = %q, want %q", tt.name, ex.Equipment, tt.equipment)
		}
		if ex.TargetReps != tt.targetReps {
			t.Errorf("%s: target reps = %q, want %q", tt.name, ex.TargetReps, tt.targetReps)
		}
		if len(ex.Sets) != tt.sets {
			t.Errorf("%s: sets = %d, want %d", tt.name, len(ex.Sets), tt.sets)
		}
	}

	s2 := sessions[1]
	if s2.Name != "Push · Day 1 · Week 4 · Push-Pull-Legs" {
		t.Errorf("s2.Name = %q", s2.Name)
	}
	bench := s2.Exercises[0]
	if len(bench.Sets) != 6 {
		t.Fatalf("bench sets = %d, want 6", len(bench.Sets))
	}
	// Warmups come first, working sets keep the exported text.
	if last := bench.Sets[5]; last.IsWarmup || last.Weight != "100" || last.Reps != "6" || last.RIR != "0" {
		t.Errorf("last bench set = %+v", last)
	}
	if first := bench.Sets[3]; first.Weight != "102,5" {
		t.Errorf("first working weight = %q, want 102,5", first.Weight)
	}
}

// TestBodyweightPlus verifies the +N notation for weighted bodyweight sets.
func TestBodyweightPlus(t *testing.T) {
	tests := []struct {
		in       string
		want     string
		wantPlus bool
	}{
		{"+35", "35", true},
		{"+0", "0", true},
		{"102,5", "102,5", false},
		{" 70 ", "70", false},
	}
	for _, tt := range tests {
		got, plus := splitBodyweight(tt.in)
		if got != tt.want || plus != tt.wantPlus {
			t.Errorf("splitBodyweight(%q) = (%q, %v), want (%q, %v)", tt.in, got, plus, tt.want, tt.wantPlus)
		}
	}
}

// TestWarmupParsing verifies warmup set extraction from the exercise header's second field.
func TestWarmupParsing(t *testing.T) {
	sets := parseWarmups("WU1 · 37,5 kg · 9 reps<br>WU2 · 72,5 kg · 7 reps")
	if len(sets) != 2 {
		t.Fatalf("warmup sets = %d, want 2", len(sets))
	}
	if sets[0].Weight != "37,5" || sets[0].Reps != "9" || !sets[0].IsWarmup {
		t.Errorf("wu1 = %+v", sets[0])
	}
	if sets[1].Number != 2 || sets[1].Weight != "72,5" {
		t.Errorf("wu2 = %+v", sets[1])
	}

	sets = parseWarmups("WU1 · +0 kg · 8 reps")
	if len(sets) != 1 || !sets[0].IsBodyweightPlus || sets[0].Weight != "0" {
		t.Errorf("bodyweight warmup = %+v", sets)
	}
}

// TestParseTwelveHourDate verifies both hour layouts of the session header.
func TestParseTwelveHourDate(t *testing.T) {
	loc := time.FixedZone("CET", 3600)
	got, err := parseSessionDate("2026-02-17 16:04", loc)
	if err != nil {
		t.Fatal(err)
	}
	if want := time.Date(2026, 2, 17, 16, 4, 0, 0, loc); !got.Equal(want) {
		t.Errorf("date = %v, want %v", got, want)
	}
	if _, err := parseSessionDate("yesterday", loc); err == nil {
		t.Error("expected error for unparsable date")
	}
}

// TestEmptyInput verifies that empty input returns no sessions without error.
func TestEmptyInput(t *testing.T) {
	sessions, err := Parse(strings.NewReader(""), time.UTC)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sessions) != 0 {
		t.Errorf("sessions = %d, want 0", len(sessions))
	}
}

// TestParseErrors verifies that orphaned rows report their line number.
func TestParseErrors(t *testing.T) {
	_, err := Parse(strings.NewReader("#;KG;REPS;RIR\n1;100;5;1\n"), time.UTC)
	if err == nil || !strings.Contains(err.Error(), "line 2") {
		t.Errorf("err = %v, want line 2 error", err)
	}
}
