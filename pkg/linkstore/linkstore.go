// Package linkstore persists named links to remote nodes and registries.
//
// The store is a flat file of JSON lines, one link per line, kept sorted by
// name.  Mutations happen in memory; Commit rewrites the whole file.  The
// format is append-friendly for hand edits and diffs well.
package linkstore

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/serum-errors/go-serum"

	"github.com/borderless-technologies/borderless-cli/bpapi"
)

// LinkKind says what sort of remote a link points at.
type LinkKind string

const (
	LinkKind_Node     LinkKind = "node"
	LinkKind_Registry LinkKind = "registry"
)

// Link is a named remote destination.
type Link struct {
	Name   string   `json:"name"`
	Addr   string   `json:"addr"`
	Kind   LinkKind `json:"kind"`
	APIKey string   `json:"apiKey,omitempty"`
}

// Validate checks a link for structural problems before it is stored.
//
// Errors:
//
//    - borderless-error-invalid-argument -- when the name, kind, or address is malformed
func (l Link) Validate() error {
	if l.Name == "" || strings.ContainsAny(l.Name, " \t\n") {
		return serum.Error(bpapi.ECodeArgument,
			serum.WithMessageTemplate("link name {{name|q}} must be non-empty and contain no whitespace"),
			serum.WithDetail("name", l.Name),
		)
	}
	switch l.Kind {
	case LinkKind_Node, LinkKind_Registry:
	default:
		return serum.Error(bpapi.ECodeArgument,
			serum.WithMessageTemplate("link kind {{kind|q}} must be \"node\" or \"registry\""),
			serum.WithDetail("kind", string(l.Kind)),
		)
	}
	u, err := url.Parse(l.Addr)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return serum.Error(bpapi.ECodeArgument,
			serum.WithMessageTemplate("link address {{addr|q}} is not a valid URL"),
			serum.WithDetail("addr", l.Addr),
		)
	}
	return nil
}

// Store holds the links from one store file.
// A zero Store is empty and not associated with any file; use Open to bind
// one to disk.
type Store struct {
	path  string
	links map[string]Link
}

// Open reads the link store at path.
// A missing file yields an empty store; Commit will create it.
//
// Errors:
//
//    - borderless-error-linkstore -- when the file cannot be read or parsed
func Open(path string) (*Store, error) {
	s := &Store{
		path:  path,
		links: map[string]Link{},
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, bpapi.ErrorLinkStore(path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	lineno := 0
	for scanner.Scan() {
		lineno++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var l Link
		if err := json.Unmarshal(line, &l); err != nil {
			return nil, bpapi.ErrorLinkStore(path, fmt.Errorf("line %d: %w", lineno, err))
		}
		if err := l.Validate(); err != nil {
			return nil, bpapi.ErrorLinkStore(path, fmt.Errorf("line %d: %w", lineno, err))
		}
		if _, exists := s.links[l.Name]; exists {
			return nil, bpapi.ErrorLinkStore(path, fmt.Errorf("line %d: duplicate link name %q", lineno, l.Name))
		}
		s.links[l.Name] = l
	}
	if err := scanner.Err(); err != nil {
		return nil, bpapi.ErrorLinkStore(path, err)
	}
	return s, nil
}

// Links returns all links, sorted by name.
func (s *Store) Links() []Link {
	out := make([]Link, 0, len(s.links))
	for _, l := range s.links {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Get returns the named link.
//
// Errors:
//
//    - borderless-error-missing -- when no link of that name exists
func (s *Store) Get(name string) (Link, error) {
	l, ok := s.links[name]
	if !ok {
		return Link{}, serum.Error(bpapi.ECodeMissing,
			serum.WithMessageTemplate("no link named {{name|q}}"),
			serum.WithDetail("name", name),
		)
	}
	return l, nil
}

// Contains reports whether a link of that name exists.
func (s *Store) Contains(name string) bool {
	_, ok := s.links[name]
	return ok
}

// Add stores a new link.
//
// Errors:
//
//    - borderless-error-invalid-argument -- when the link is malformed
//    - borderless-error-already-exists -- when a link of that name already exists
func (s *Store) Add(l Link) error {
	if err := l.Validate(); err != nil {
		return err
	}
	if _, exists := s.links[l.Name]; exists {
		return serum.Error(bpapi.ECodeAlreadyExists,
			serum.WithMessageTemplate("a link named {{name|q}} already exists"),
			serum.WithDetail("name", l.Name),
		)
	}
	s.links[l.Name] = l
	return nil
}

// Remove deletes the named link.
//
// Errors:
//
//    - borderless-error-missing -- when no link of that name exists
func (s *Store) Remove(name string) error {
	if _, ok := s.links[name]; !ok {
		return serum.Error(bpapi.ECodeMissing,
			serum.WithMessageTemplate("no link named {{name|q}}"),
			serum.WithDetail("name", name),
		)
	}
	delete(s.links, name)
	return nil
}

// Modify replaces an existing link of the same name.
//
// Errors:
//
//    - borderless-error-invalid-argument -- when the link is malformed
//    - borderless-error-missing -- when no link of that name exists
func (s *Store) Modify(l Link) error {
	if err := l.Validate(); err != nil {
		return err
	}
	if _, ok := s.links[l.Name]; !ok {
		return serum.Error(bpapi.ECodeMissing,
			serum.WithMessageTemplate("no link named {{name|q}}"),
			serum.WithDetail("name", l.Name),
		)
	}
	s.links[l.Name] = l
	return nil
}

// Commit writes the store back to its file.
// The write goes through a temp file and a rename, so a crash never leaves
// a half-written store.
//
// Errors:
//
//    - borderless-error-linkstore -- when the file cannot be written
func (s *Store) Commit() error {
	if s.path == "" {
		return bpapi.ErrorLinkStore("", fmt.Errorf("store is not associated with a file"))
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return bpapi.ErrorLinkStore(s.path, err)
	}
	var buf bytes.Buffer
	for _, l := range s.Links() {
		line, err := json.Marshal(l)
		if err != nil {
			return bpapi.ErrorLinkStore(s.path, err)
		}
		buf.Write(line)
		buf.WriteByte('\n')
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".links-*")
	if err != nil {
		return bpapi.ErrorLinkStore(s.path, err)
	}
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return bpapi.ErrorLinkStore(s.path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return bpapi.ErrorLinkStore(s.path, err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return bpapi.ErrorLinkStore(s.path, err)
	}
	return nil
}
