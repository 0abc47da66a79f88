package memory

import (
	"bufio"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gobwas/glob"

	"github.com/entrhq/ember/pkg/types"
)

// sessionExt is the on-disk extension for persisted sessions.
const sessionExt = ".jsonl"

// BackupExt is appended to the prior file when a session is saved over an
// existing path. A crash mid-write leaves the backup as the last good
// state.
const BackupExt = ".bak"

// record is the self-describing line format. Kind discriminates the
// variant; unused fields are omitted.
type record struct {
	Kind string `json:"kind"`

	// session metadata
	Name    string     `json:"name,omitempty"`
	Created *time.Time `json:"created,omitempty"`
	Model   string     `json:"model,omitempty"`

	// message fields
	ID         uint64     `json:"id,omitempty"`
	Role       string     `json:"role,omitempty"`
	Content    string     `json:"content,omitempty"`
	Timestamp  *time.Time `json:"ts,omitempty"`
	Importance float64    `json:"importance,omitempty"`
	Compressed bool       `json:"compressed,omitempty"`

	// summary fields
	FromID uint64 `json:"from,omitempty"`
	ToID   uint64 `json:"to,omitempty"`
}

const (
	recordKindSession = "session"
	recordKindMessage = "message"
	recordKindSummary = "summary"
)

// Save persists the session to path: one metadata record, every message
// of the full log in id order (compressed ones included), then every
// active summary. If path already exists it is renamed to a .bak sibling
// first, so the previous state survives a failure during the write.
func (s *Session) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("memory: create session directory: %w", err)
	}

	if _, err := os.Stat(path); err == nil {
		if err := os.Rename(path, path+BackupExt); err != nil {
			return fmt.Errorf("memory: back up previous session: %w", err)
		}
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("memory: create session file: %w", err)
	}
	defer file.Close()

	w := bufio.NewWriter(file)
	enc := json.NewEncoder(w)

	created := s.CreatedAt
	if err := enc.Encode(record{
		Kind:    recordKindSession,
		Name:    s.Name,
		Created: &created,
		Model:   s.Model,
	}); err != nil {
		return fmt.Errorf("memory: write session metadata: %w", err)
	}

	for _, m := range s.all {
		ts := m.Timestamp
		rec := record{
			Kind:       recordKindMessage,
			ID:         m.ID,
			Role:       string(m.Role),
			Content:    m.Content,
			Timestamp:  &ts,
			Importance: m.Importance,
			Compressed: m.Compressed,
		}
		if err := enc.Encode(rec); err != nil {
			return fmt.Errorf("memory: write message %d: %w", m.ID, err)
		}
	}

	for _, e := range s.active {
		sum, ok := e.(*Summary)
		if !ok {
			continue
		}
		rec := record{
			Kind:    recordKindSummary,
			Content: sum.Content,
			FromID:  sum.FromID,
			ToID:    sum.ToID,
		}
		if err := enc.Encode(rec); err != nil {
			return fmt.Errorf("memory: write summary %d-%d: %w", sum.FromID, sum.ToID, err)
		}
	}

	if err := w.Flush(); err != nil {
		return fmt.Errorf("memory: flush session file: %w", err)
	}

	debugLog.Infof("session saved: %s (%d messages, %d active entities)",
		path, len(s.all), len(s.active))
	return nil
}

// Load reads a persisted session. Malformed lines are skipped with a
// warning rather than aborting: a partially damaged file still yields a
// usable session. The active sequence is re-derived from the compressed
// flags and summary spans, and the term index is rebuilt by replaying
// every loaded message through Add.
func Load(path string, opts ...Option) (*Session, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("memory: open session file: %w", err)
	}
	defer file.Close()

	sess := NewSession(strings.TrimSuffix(filepath.Base(path), sessionExt), "", opts...)

	var messages []*Message
	var summaries []*Summary
	skipped := 0

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var rec record
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			skipped++
			debugLog.Warnf("skipping malformed record at %s:%d: %v", path, lineNum, err)
			continue
		}

		switch rec.Kind {
		case recordKindSession:
			if rec.Name != "" {
				sess.Name = rec.Name
			}
			if rec.Created != nil {
				sess.CreatedAt = *rec.Created
			}
			sess.Model = rec.Model
		case recordKindMessage:
			if rec.ID == 0 {
				skipped++
				debugLog.Warnf("skipping message without id at %s:%d", path, lineNum)
				continue
			}
			m := &Message{
				ID:         rec.ID,
				Role:       types.MessageRole(rec.Role),
				Content:    rec.Content,
				Importance: rec.Importance,
				Compressed: rec.Compressed,
				Tokens:     sess.estimator.Estimate(rec.Content),
			}
			if rec.Timestamp != nil {
				m.Timestamp = *rec.Timestamp
			}
			messages = append(messages, m)
		case recordKindSummary:
			summaries = append(summaries, &Summary{
				Content: rec.Content,
				FromID:  rec.FromID,
				ToID:    rec.ToID,
				Tokens:  sess.estimator.Estimate(rec.Content),
			})
		default:
			skipped++
			debugLog.Warnf("skipping record of unknown kind %q at %s:%d", rec.Kind, path, lineNum)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("memory: read session file: %w", err)
	}

	sort.Slice(messages, func(i, j int) bool { return messages[i].ID < messages[j].ID })

	sess.all = messages
	sess.nextID = 1
	if n := len(messages); n > 0 {
		sess.nextID = messages[n-1].ID + 1
	}

	// Replay every message, compressed or not: index coverage is over the
	// full corpus, never over summaries.
	for _, m := range messages {
		sess.idx.Add(m.ID, m.Content)
	}

	sess.active = rebuildActive(messages, summaries)

	debugLog.Infof("session loaded: %s (%d messages, %d summaries, %d skipped)",
		path, len(messages), len(summaries), skipped)
	return sess, nil
}

// rebuildActive reconstructs the active sequence: each summary is placed
// at the position of its span's first message, compressed messages are
// dropped. Summaries whose span start was lost to a malformed line are
// prepended in span order so their content is not silently discarded.
func rebuildActive(messages []*Message, summaries []*Summary) []Entity {
	byFrom := make(map[uint64]*Summary, len(summaries))
	for _, sum := range summaries {
		byFrom[sum.FromID] = sum
	}

	var active []Entity
	placed := make(map[*Summary]bool, len(summaries))
	for _, m := range messages {
		if sum, ok := byFrom[m.ID]; ok && !placed[sum] {
			active = append(active, sum)
			placed[sum] = true
		}
		if !m.Compressed {
			active = append(active, m)
		}
	}

	var orphaned []Entity
	for _, sum := range summaries {
		if !placed[sum] {
			orphaned = append(orphaned, sum)
		}
	}
	if len(orphaned) > 0 {
		active = append(orphaned, active...)
	}
	return active
}

// SessionPath returns the on-disk path for a session name inside dir,
// with the name sanitized for the filesystem.
func SessionPath(dir, name string) string {
	return filepath.Join(dir, SanitizeName(name)+sessionExt)
}

// SanitizeName strips characters unsafe for filenames and collapses
// whitespace. A name that sanitizes to nothing falls back to a short hash
// of the original so distinct bad inputs cannot collide.
func SanitizeName(name string) string {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r < 0x20, strings.ContainsRune(`<>:"/\|?*`, r):
			return -1
		default:
			return r
		}
	}, name)
	cleaned = strings.Join(strings.Fields(cleaned), "_")
	if cleaned == "" {
		sum := sha256.Sum256([]byte(name))
		return fmt.Sprintf("session_%x", sum[:4])
	}
	return cleaned
}

// ListSessions returns the sorted names of saved sessions in dir whose
// names match the glob pattern. An empty pattern matches everything. A
// missing directory is an empty list, not an error.
func ListSessions(dir, pattern string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("memory: list sessions: %w", err)
	}

	var matcher glob.Glob
	if pattern != "" {
		matcher, err = glob.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("memory: bad session pattern %q: %w", pattern, err)
		}
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), sessionExt) {
			continue
		}
		name := strings.TrimSuffix(e.Name(), sessionExt)
		if matcher != nil && !matcher.Match(name) {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}
