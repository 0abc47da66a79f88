// Package archive renders sessions as human-readable Markdown documents
// with YAML front-matter, for export and review outside the JSONL store.
package archive

import (
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/entrhq/ember/pkg/agent/memory"
)

const frontMatterDelimiter = "---"

// Meta is the YAML front-matter of an archived session.
type Meta struct {
	Name      string    `yaml:"name"`
	CreatedAt time.Time `yaml:"created_at"`
	Model     string    `yaml:"model,omitempty"`
	Messages  int       `yaml:"messages"`
	Summaries int       `yaml:"summaries"`
}

// Archive is a parsed archive document.
type Archive struct {
	Meta Meta
	Body string
}

// Export renders the session's active sequence as a Markdown transcript
// with front-matter metadata. Summaries appear as quoted blocks at the
// position they hold in the conversation.
func Export(s *memory.Session) ([]byte, error) {
	stats := s.Stats()
	meta := Meta{
		Name:      s.Name,
		CreatedAt: s.CreatedAt,
		Model:     s.Model,
		Messages:  stats.TotalMessages,
		Summaries: stats.Summaries,
	}

	yamlBytes, err := yaml.Marshal(&meta)
	if err != nil {
		return nil, fmt.Errorf("archive: marshal front-matter: %w", err)
	}

	var sb strings.Builder
	sb.WriteString(frontMatterDelimiter + "\n")
	sb.Write(yamlBytes)
	sb.WriteString(frontMatterDelimiter + "\n\n")

	for _, e := range s.ActiveEntities() {
		switch v := e.(type) {
		case *memory.Summary:
			sb.WriteString(fmt.Sprintf("## summary (messages %d-%d)\n\n", v.FromID, v.ToID))
			for _, line := range strings.Split(v.Content, "\n") {
				sb.WriteString("> " + line + "\n")
			}
			sb.WriteString("\n")
		case *memory.Message:
			sb.WriteString(fmt.Sprintf("## %s\n\n%s\n\n", v.Role, v.Content))
		}
	}

	return []byte(sb.String()), nil
}

// Parse deserializes an archive document produced by Export.
func Parse(raw []byte) (*Archive, error) {
	s := string(raw)
	if !strings.HasPrefix(s, frontMatterDelimiter) {
		return nil, fmt.Errorf("archive: missing front-matter delimiter")
	}
	rest := s[len(frontMatterDelimiter):]
	idx := strings.Index(rest, "\n"+frontMatterDelimiter)
	if idx == -1 {
		return nil, fmt.Errorf("archive: unclosed front-matter block")
	}

	yamlBlock := rest[:idx]
	body := rest[idx+len("\n"+frontMatterDelimiter):]
	body = strings.TrimPrefix(body, "\n")
	body = strings.TrimPrefix(body, "\n")

	var meta Meta
	if err := yaml.Unmarshal([]byte(yamlBlock), &meta); err != nil {
		return nil, fmt.Errorf("archive: front-matter parse error: %w", err)
	}
	return &Archive{Meta: meta, Body: body}, nil
}
