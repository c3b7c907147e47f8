package alpha

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	// "Session Name";"2026-02-19 4:54 h";"1:02 hr"
	sessionHeaderRe = regexp.MustCompile(`^"(.+)";"(\d{4}-\d{2}-\d{2}\s+\d+:\d+)\s+h";"(.+)"$`)

	// "1. Exercise Name · Equipment · 8 reps[· modifiers]"[;"warmup info"]
	exerciseHeaderRe = regexp.MustCompile(`^"(\d+)\.\s+(.+?)(?:\s+·\s+(\S.*?))?\s+·\s+(\d+)\s+reps(.*?)"(?:;"(.+)")?$`)

	// 1;115;8;1
	setRowRe = regexp.MustCompile(`^(\d+);(.+);(\d+);(.+)$`)

	// WU1 · 37,5 kg · 9 reps
	warmupRe = regexp.MustCompile(`WU(\d+)\s+·\s+(.+?)\s+kg\s+·\s+(\d+)\s+reps`)

	columnHeaderRe = regexp.MustCompile(`^#;KG;REPS;RIR$`)
)

// Session is one workout of an Alpha Progression export.
type Session struct {
	Name      string
	Date      time.Time
	Duration  string
	Exercises []Exercise
}

// Exercise is one exercise block of a session.
type Exercise struct {
	Number     int
	Name       string
	Equipment  string
	TargetReps string
	Sets       []Set
}

// Set keeps weight, reps and RIR as exported text ("102,5"). The "+" of
// added-weight notation is split off into IsBodyweightPlus.
type Set struct {
	Number           int
	Weight           string
	IsBodyweightPlus bool
	Reps             string
	RIR              string
	IsWarmup         bool
}

// parser accumulates sessions line by line.
type parser struct {
	loc      *time.Location
	sessions []Session
	session  *Session
	exercise *Exercise
}

// Parse reads an Alpha Progression CSV export. Session times carry no zone
// and are read in loc.
func Parse(r io.Reader, loc *time.Location) ([]Session, error) {
	if loc == nil {
		loc = time.Local
	}
	p := &parser{loc: loc}

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		if err := p.line(strings.TrimSpace(scanner.Text())); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading export: %w", err)
	}
	p.closeSession()
	return p.sessions, nil
}

func (p *parser) line(line string) error {
	switch {
	case line == "":
		p.closeSession()
	case columnHeaderRe.MatchString(line):
	case sessionHeaderRe.MatchString(line):
		m := sessionHeaderRe.FindStringSubmatch(line)
		p.closeSession()
		date, err := parseSessionDate(m[2], p.loc)
		if err != nil {
			return err
		}
		p.session = &Session{Name: m[1], Date: date, Duration: m[3]}
	case exerciseHeaderRe.MatchString(line):
		m := exerciseHeaderRe.FindStringSubmatch(line)
		if p.session == nil {
			return fmt.Errorf("exercise without session: %q", line)
		}
		p.closeExercise()
		num, _ := strconv.Atoi(m[1])
		p.exercise = &Exercise{
			Number:     num,
			Name:       strings.TrimSpace(m[2]),
			Equipment:  strings.TrimSpace(m[3]),
			TargetReps: m[4],
			Sets:       parseWarmups(m[6]),
		}
	case setRowRe.MatchString(line):
		m := setRowRe.FindStringSubmatch(line)
		if p.exercise == nil {
			return fmt.Errorf("set without exercise: %q", line)
		}
		num, _ := strconv.Atoi(m[1])
		weight, plus := splitBodyweight(m[2])
		p.exercise.Sets = append(p.exercise.Sets, Set{
			Number:           num,
			Weight:           weight,
			IsBodyweightPlus: plus,
			Reps:             m[3],
			RIR:              strings.TrimSpace(m[4]),
		})
	}
	// Anything else is notes or metadata.
	return nil
}

func (p *parser) closeExercise() {
	if p.session != nil && p.exercise != nil {
		p.session.Exercises = append(p.session.Exercises, *p.exercise)
	}
	p.exercise = nil
}

func (p *parser) closeSession() {
	p.closeExercise()
	if p.session != nil {
		p.sessions = append(p.sessions, *p.session)
	}
	p.session = nil
}

// parseSessionDate reads "2026-02-19 4:54" or "2026-02-19 16:54".
func parseSessionDate(s string, loc *time.Location) (time.Time, error) {
	for _, layout := range []string{"2006-01-02 15:04", "2006-01-02 3:04"} {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse session date %q", s)
}

// parseWarmups reads "WU1 · 37,5 kg · 9 reps<br>WU2 · 72,5 kg · 7 reps".
func parseWarmups(s string) []Set {
	if s == "" {
		return nil
	}
	var sets []Set
	for _, part := range strings.Split(s, "<br>") {
		m := warmupRe.FindStringSubmatch(part)
		if m == nil {
			continue
		}
		num, _ := strconv.Atoi(m[1])
		weight, plus := splitBodyweight(m[2])
		sets = append(sets, Set{
			Number:           num,
			Weight:           weight,
			IsBodyweightPlus: plus,
			Reps:             m[3],
			IsWarmup:         true,
		})
	}
	return sets
}

// splitBodyweight strips the "+" of added-weight notation: "+35" -> ("35", true).
func splitBodyweight(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if rest, ok := strings.CutPrefix(s, "+"); ok {
		return strings.TrimSpace(rest), true
	}
	return s, false
}
