package evals

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	cerrors "github.com/aic-holdings/bot-slack-core/pkg/errors"
)

// caseSchema validates one JSONL line before decoding. Catching shape
// problems here gives a line-numbered error instead of a zero-valued case.
const caseSchema = `{
	"type": "object",
	"required": ["id", "input", "assertions"],
	"properties": {
		"id": {"type": "string", "minLength": 1},
		"input": {"type": "string"},
		"assertions": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["type"],
				"properties": {
					"type": {"type": "string", "minLength": 1}
				}
			}
		},
		"tags": {"type": "array", "items": {"type": "string"}},
		"context": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["role", "content"]
			}
		}
	}
}`

var caseSchemaLoader = gojsonschema.NewStringLoader(caseSchema)

// LoadCases reads golden cases from a JSONL file, one case per line. Blank
// lines are skipped. When tags is non-empty, only cases sharing at least one
// tag are returned.
func LoadCases(path string, tags []string) ([]EvalCase, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, cerrors.New("evals", "LoadCases", err)
	}
	defer f.Close()

	var cases []EvalCase
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if err := validateCaseLine(line); err != nil {
			return nil, cerrors.New("evals", "LoadCases",
				fmt.Errorf("%s line %d: %w", path, lineNo, err))
		}

		var c EvalCase
		if err := json.Unmarshal([]byte(line), &c); err != nil {
			return nil, cerrors.New("evals", "LoadCases",
				fmt.Errorf("%s line %d: %w", path, lineNo, err))
		}

		if len(tags) > 0 && !hasAnyTag(c.Tags, tags) {
			continue
		}
		cases = append(cases, c)
	}
	if err := scanner.Err(); err != nil {
		return nil, cerrors.New("evals", "LoadCases", err)
	}
	return cases, nil
}

func validateCaseLine(line string) error {
	result, err := gojsonschema.Validate(caseSchemaLoader, gojsonschema.NewStringLoader(line))
	if err != nil {
		return err
	}
	if !result.Valid() {
		var details []string
		for _, desc := range result.Errors() {
			details = append(details, desc.String())
		}
		return fmt.Errorf("invalid case: %s", strings.Join(details, "; "))
	}
	return nil
}

func hasAnyTag(caseTags, wanted []string) bool {
	for _, w := range wanted {
		for _, t := range caseTags {
			if t == w {
				return true
			}
		}
	}
	return false
}
