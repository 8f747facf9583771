package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/valkey-io/valkey-go"
	"golang.org/x/oauth2"
)

// ErrNoCredentials is returned by a CredentialStore that holds no token yet.
var ErrNoCredentials = errors.New("no stored credentials")

// CredentialStore persists the OAuth token between runs.
type CredentialStore interface {
	// Load returns the stored token, or ErrNoCredentials if there is none.
	Load(ctx context.Context) (*oauth2.Token, error)

	// Save overwrites the stored token.
	Save(ctx context.Context, token *oauth2.Token) error
}

// FileCredentialStore keeps the token as JSON in a single file.
type FileCredentialStore struct {
	path string
}

// NewFileCredentialStore creates a store backed by the file at path.
func NewFileCredentialStore(path string) *FileCredentialStore {
	return &FileCredentialStore{path: path}
}

// Path returns the token file location.
func (s *FileCredentialStore) Path() string {
	return s.path
}

// Load reads the token file.
func (s *FileCredentialStore) Load(_ context.Context) (*oauth2.Token, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNoCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read token file: %w", err)
	}
	return decodeToken(data, s.path)
}

// Save writes the token through a temporary file so a crash never leaves a
// truncated token behind.
func (s *FileCredentialStore) Save(_ context.Context, token *oauth2.Token) error {
	data, err := encodeToken(token)
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create token directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".token-*")
	if err != nil {
		return fmt.Errorf("failed to create temporary token file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write token file: %w", err)
	}
	if err := tmp.Chmod(0600); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to set token file permissions: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write token file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("failed to replace token file: %w", err)
	}
	return nil
}

// ValkeyOptions configures a ValkeyCredentialStore.
type ValkeyOptions struct {
	// Addr is the Valkey server address (host:port)
	Addr string

	// Password is the optional password for Valkey authentication
	Password string

	// KeyPrefix is prepended to the token key
	KeyPrefix string

	// DB is the Valkey database number
	DB int
}

// ValkeyCredentialStore keeps the token as JSON under "<prefix>token".
type ValkeyCredentialStore struct {
	client valkey.Client
	key    string
}

// NewValkeyCredentialStore connects to Valkey. Call Close when done.
func NewValkeyCredentialStore(opts ValkeyOptions) (*ValkeyCredentialStore, error) {
	if opts.Addr == "" {
		return nil, fmt.Errorf("valkey address is required")
	}

	client, err := valkey.NewClient(valkey.ClientOption{
		InitAddress: []string{opts.Addr},
		Password:    opts.Password,
		SelectDB:    opts.DB,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to valkey at %s: %w", opts.Addr, err)
	}

	return NewValkeyCredentialStoreWithClient(client, opts.KeyPrefix), nil
}

// NewValkeyCredentialStoreWithClient wraps an existing client.
func NewValkeyCredentialStoreWithClient(client valkey.Client, keyPrefix string) *ValkeyCredentialStore {
	return &ValkeyCredentialStore{client: client, key: keyPrefix + "token"}
}

// Key returns the Valkey key holding the token.
func (s *ValkeyCredentialStore) Key() string {
	return s.key
}

// Load fetches the token.
func (s *ValkeyCredentialStore) Load(ctx context.Context) (*oauth2.Token, error) {
	data, err := s.client.Do(ctx, s.client.B().Get().Key(s.key).Build()).AsBytes()
	if valkey.IsValkeyNil(err) {
		return nil, ErrNoCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read token from valkey: %w", err)
	}
	return decodeToken(data, s.key)
}

// Save overwrites the token.
func (s *ValkeyCredentialStore) Save(ctx context.Context, token *oauth2.Token) error {
	data, err := encodeToken(token)
	if err != nil {
		return err
	}
	if err := s.client.Do(ctx, s.client.B().Set().Key(s.key).Value(string(data)).Build()).Error(); err != nil {
		return fmt.Errorf("failed to write token to valkey: %w", err)
	}
	return nil
}

// Close releases the Valkey connection.
func (s *ValkeyCredentialStore) Close() {
	s.client.Close()
}

func encodeToken(token *oauth2.Token) ([]byte, error) {
	if token == nil {
		return nil, fmt.Errorf("cannot save a nil token")
	}
	data, err := json.MarshalIndent(token, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode token: %w", err)
	}
	return data, nil
}

func decodeToken(data []byte, source string) (*oauth2.Token, error) {
	var token oauth2.Token
	if err := json.Unmarshal(data, &token); err != nil {
		return nil, fmt.Errorf("malformed token in %s: %w", source, err)
	}
	if token.AccessToken == "" && token.RefreshToken == "" {
		return nil, fmt.Errorf("malformed token in %s: no access or refresh token", source)
	}
	return &token, nil
}
