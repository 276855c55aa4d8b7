package service

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jask/clienthealth/internal/client"
	"github.com/jask/clienthealth/internal/database"
	"github.com/jask/clienthealth/internal/database/repository"
)

var ErrClientNameRequired = errors.New("client name is required")

// DirectoryService manages the client directory.
type DirectoryService struct {
	DB  *sql.DB
	Log zerolog.Logger
}

type directoryFile struct {
	Clients []directoryEntry `toml:"clients"`
}

type directoryEntry struct {
	Name    string   `toml:"name"`
	Aliases []string `toml:"aliases,omitempty"`
}

// ClientID derives a stable id from the client name.
func ClientID(name string) string {
	key := client.Fold(name)
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte("client:"+key)).String()
}

func newClient(name string, aliases []string) (client.Client, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return client.Client{}, ErrClientNameRequired
	}
	c := client.Client{ID: ClientID(name), Name: name}
	seen := map[string]struct{}{client.Fold(name): {}}
	for _, a := range aliases {
		a = strings.TrimSpace(a)
		key := client.Fold(a)
		if key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		c.Aliases = append(c.Aliases, a)
	}
	return c, nil
}

// Add creates or updates a client. Aliases replace the stored ones.
func (s *DirectoryService) Add(ctx context.Context, name string, aliases []string) (client.Client, error) {
	c, err := newClient(name, aliases)
	if err != nil {
		return client.Client{}, err
	}
	if err := repository.NewClientRepo(s.DB).Upsert(ctx, c); err != nil {
		return client.Client{}, err
	}
	return c, nil
}

// LoadFile upserts every [[clients]] entry of a TOML directory file.
func (s *DirectoryService) LoadFile(ctx context.Context, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read directory: %w", err)
	}
	return s.Load(ctx, bytes.NewReader(data))
}

// Load is LoadFile over a reader. The file is validated before anything
// is written.
func (s *DirectoryService) Load(ctx context.Context, r io.Reader) (int, error) {
	var f directoryFile
	if _, err := toml.NewDecoder(r).Decode(&f); err != nil {
		return 0, fmt.Errorf("parse directory: %w", err)
	}
	clients := make([]client.Client, 0, len(f.Clients))
	for i, e := range f.Clients {
		c, err := newClient(e.Name, e.Aliases)
		if err != nil {
			return 0, fmt.Errorf("clients[%d]: %w", i, err)
		}
		clients = append(clients, c)
	}
	err := database.WithTx(ctx, s.DB, func(tx *sql.Tx) error {
		repo := repository.NewClientRepo(tx)
		for _, c := range clients {
			if err := repo.Upsert(ctx, c); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	s.Log.Info().Int("clients", len(clients)).Msg("directory loaded")
	return len(clients), nil
}

// Export writes the directory in the format Load reads.
func (s *DirectoryService) Export(ctx context.Context, w io.Writer) error {
	clients, err := s.List(ctx)
	if err != nil {
		return err
	}
	f := directoryFile{Clients: make([]directoryEntry, 0, len(clients))}
	for _, c := range clients {
		f.Clients = append(f.Clients, directoryEntry{Name: c.Name, Aliases: c.Aliases})
	}
	if err := toml.NewEncoder(w).Encode(f); err != nil {
		return fmt.Errorf("encode directory: %w", err)
	}
	return nil
}

func (s *DirectoryService) List(ctx context.Context) ([]client.Client, error) {
	return repository.NewClientRepo(s.DB).List(ctx)
}

// Get returns the client with id, or nil.
func (s *DirectoryService) Get(ctx context.Context, id string) (*client.Client, error) {
	return repository.NewClientRepo(s.DB).Get(ctx, id)
}

// Remove deletes a client by id or name.
func (s *DirectoryService) Remove(ctx context.Context, idOrName string) error {
	repo := repository.NewClientRepo(s.DB)
	c, err := repo.Get(ctx, idOrName)
	if err != nil {
		return err
	}
	id := idOrName
	if c == nil {
		id = ClientID(idOrName)
	}
	return repo.Delete(ctx, id)
}
