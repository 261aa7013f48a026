// Package parser extracts question/answer cards from markdown files. Cards
// are written as Q:/A:/C: blocks separated by "---" lines; each prefix may
// be followed by further plain lines that belong to the same block.
package parser

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/mnemohq/mnemo/internal/domain"
)

const (
	questionPrefix = "Q:"
	answerPrefix   = "A:"
	contextPrefix  = "C:"
	separator      = "---"
)

type section int

const (
	none section = iota
	question
	answer
	context
)

// ParseFile reads the file at path and extracts all cards in it.
func ParseFile(path string) ([]domain.Card, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(f)
}

// Parse reads markdown from r and extracts all cards. Cards without a
// question are dropped; a new Q: block always starts a new card.
func Parse(r io.Reader) ([]domain.Card, error) {
	var (
		cards   []domain.Card
		current domain.Card
		block   []string
		active  section
	)

	flushBlock := func() {
		if len(block) == 0 {
			return
		}
		content := strings.Join(block, "\n")
		switch active {
		case question:
			current.Question = content
		case answer:
			current.Answer = content
		case context:
			current.Context = content
		}
		block = nil
	}

	flushCard := func() {
		flushBlock()
		if current.Question != "" {
			cards = append(cards, current)
		}
		current = domain.Card{}
		active = none
	}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == separator:
			flushCard()
		case strings.HasPrefix(line, questionPrefix):
			flushBlock()
			if active != none {
				flushCard()
			}
			active = question
			block = append(block, trimPrefix(line, questionPrefix))
		case strings.HasPrefix(line, answerPrefix):
			flushBlock()
			active = answer
			block = append(block, trimPrefix(line, answerPrefix))
		case strings.HasPrefix(line, contextPrefix):
			flushBlock()
			active = context
			block = append(block, trimPrefix(line, contextPrefix))
		case active != none:
			block = append(block, line)
		}
	}
	flushCard()

	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return cards, nil
}

// trimPrefix strips the field marker and at most one following space, so
// deliberate leading indentation in the content survives.
func trimPrefix(line, prefix string) string {
	rest := line[len(prefix):]
	return strings.TrimPrefix(rest, " ")
}
