// Package intake admits candidates from Markdown profiles dropped into a
// directory of the document store.
//
// A profile is YAML frontmatter followed by free-form notes:
//
//	---
//	first_name: Ada
//	last_name: Lovelace
//	email: ada@example.com
//	position: Engineer
//	skills: [go, sql]
//	cv: ada.pdf
//	---
//	Met at the meetup, strong systems background.
package intake

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/starford/recruitflow/internal/workflow"
)

// ErrNoFrontmatter is returned for files without a leading YAML block.
var ErrNoFrontmatter = errors.New("intake: profile has no frontmatter")

// Profile is the frontmatter of a candidate profile plus its body.
type Profile struct {
	FirstName string   `yaml:"first_name"`
	LastName  string   `yaml:"last_name"`
	Email     string   `yaml:"email"`
	Phone     string   `yaml:"phone"`
	Position  string   `yaml:"position"`
	Source    string   `yaml:"source"`
	Skills    []string `yaml:"skills"`
	// CV names a file next to the profile to attach after admission.
	CV    string `yaml:"cv"`
	Notes string `yaml:"-"`
}

// ParseProfile splits frontmatter from body and decodes the frontmatter.
func ParseProfile(data []byte) (*Profile, error) {
	fm, body, ok := splitFrontmatter(data)
	if !ok {
		return nil, ErrNoFrontmatter
	}
	var p Profile
	if err := yaml.Unmarshal(fm, &p); err != nil {
		return nil, fmt.Errorf("intake: decode frontmatter: %w", err)
	}
	p.Notes = strings.TrimSpace(body)
	return &p, nil
}

// splitFrontmatter separates the YAML block between leading --- delimiters
// from the body.
func splitFrontmatter(data []byte) ([]byte, string, bool) {
	const delim = "---"
	trimmed := bytes.TrimLeft(data, "\n\r\ufeff")
	if !bytes.HasPrefix(trimmed, []byte(delim)) {
		return nil, "", false
	}
	rest := trimmed[len(delim):]
	idx := bytes.Index(rest, []byte("\n"+delim))
	if idx < 0 {
		return nil, "", false
	}
	block := rest[:idx]
	body := strings.TrimLeft(string(rest[idx+1+len(delim):]), "\n\r")
	return block, body, true
}

// Input converts the profile into an admission request.
func (p *Profile) Input(source string) workflow.CandidateInput {
	src := p.Source
	if src == "" {
		src = source
	}
	return workflow.CandidateInput{
		FirstName: p.FirstName,
		LastName:  p.LastName,
		Email:     p.Email,
		Phone:     p.Phone,
		Position:  p.Position,
		Source:    src,
		Notes:     p.Notes,
		Skills:    p.Skills,
	}
}
