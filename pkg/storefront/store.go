package storefront

import (
	"encoding/json"
	"log"
	"os"
	"path/filepath"
)

const (
	sessionNamespace = "auth-storage"
	cartNamespace    = "cart-storage"
)

// Store persists one JSON document per namespace under a directory. It is
// deliberately forgiving: a missing or corrupt file reads back as empty
// state, and write failures are logged and swallowed so persistence problems
// never break an in-memory operation that already succeeded.
type Store struct {
	dir string
}

func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Load decodes the namespace document into v and reports whether a valid
// document was found. Callers pass a fresh value; v may be partially written
// after a failed decode.
func (s *Store) Load(namespace string, v interface{}) bool {
	raw, err := os.ReadFile(s.path(namespace))
	if err != nil {
		return false
	}
	if err := json.Unmarshal(raw, v); err != nil {
		log.Printf("[Store] discarding corrupt state for %q: %v", namespace, err)
		return false
	}
	return true
}

// Save writes v as the namespace document, best-effort.
func (s *Store) Save(namespace string, v interface{}) {
	raw, err := json.Marshal(v)
	if err != nil {
		log.Printf("[Store] cannot encode state for %q: %v", namespace, err)
		return
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		log.Printf("[Store] cannot create state dir: %v", err)
		return
	}
	if err := os.WriteFile(s.path(namespace), raw, 0o600); err != nil {
		log.Printf("[Store] cannot persist state for %q: %v", namespace, err)
	}
}

// Clear removes the namespace document. A missing file is not an error.
func (s *Store) Clear(namespace string) {
	if err := os.Remove(s.path(namespace)); err != nil && !os.IsNotExist(err) {
		log.Printf("[Store] cannot clear state for %q: %v", namespace, err)
	}
}

func (s *Store) path(namespace string) string {
	return filepath.Join(s.dir, namespace+".json")
}
