package runner

import (
	"strings"

	"github.com/neicnordic/bpmn-validator/model"
)

// isFindingLine matches the linter's reporting convention: every finding line
// carries its type. The match is a plain substring match, so any other line
// containing these words is reported as a finding too.
func isFindingLine(line string) bool {
	return strings.Contains(line, model.FindingTypeError) || strings.Contains(line, model.FindingTypeWarning)
}

// containsFindings reports whether output holds at least one finding line
func containsFindings(output string) bool {
	for _, line := range outputLines(output) {
		if isFindingLine(line) {
			return true
		}
	}

	return false
}

func outputLines(output string) []string {
	var lines []string
	for _, line := range strings.Split(output, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
	}

	return lines
}

// ParseOutput turns linter stdout into findings, in the order they were
// printed, and the first summary line if there is one
func ParseOutput(output string) ([]*model.ValidationFinding, *string) {
	findings := make([]*model.ValidationFinding, 0)
	var summary *string

	for _, line := range outputLines(output) {
		if isFindingLine(line) {
			findings = append(findings, parseFinding(line))
		}
		if summary == nil && strings.Contains(line, "problems") {
			s := line
			summary = &s
		}
	}

	return findings, summary
}

// parseFinding reads "<element> <type> <message...> <rule>". The last token is
// always the rule, so short lines give a partial finding rather than an error.
func parseFinding(line string) *model.ValidationFinding {
	tokens := strings.Fields(line)
	if len(tokens) == 0 {
		return &model.ValidationFinding{}
	}

	finding := &model.ValidationFinding{
		Element: tokens[0],
		Rule:    tokens[len(tokens)-1],
	}
	if len(tokens) >= 2 {
		finding.Type = tokens[1]
	}
	if len(tokens) >= 3 {
		finding.Message = strings.Join(tokens[2:len(tokens)-1], " ")
	}

	return finding
}
