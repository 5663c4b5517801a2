package purge

import (
	"context"
	"errors"
	"fmt"
	"strings"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/db"
	"google.golang.org/api/option"
)

// ErrInvalidPath is returned for keys that are not a single top-level node.
var ErrInvalidPath = errors.New("key must be a single top-level node")

type realtimeDB interface {
	getShallow(ctx context.Context, path string, v any) error
	remove(ctx context.Context, path string) error
}

type firebaseDB struct {
	client *db.Client
}

func (f firebaseDB) getShallow(ctx context.Context, path string, v any) error {
	return f.client.NewRef(path).GetShallow(ctx, v)
}

func (f firebaseDB) remove(ctx context.Context, path string) error {
	return f.client.NewRef(path).Delete(ctx)
}

// FirebaseStore purges top-level nodes of a Realtime Database.
type FirebaseStore struct {
	db realtimeDB
}

// NewFirebaseStore connects to the database at databaseURL. An empty credentialsFile
// uses application default credentials.
func NewFirebaseStore(ctx context.Context, databaseURL, credentialsFile string) (*FirebaseStore, error) {
	if databaseURL == "" {
		return nil, errors.New("firebase database url is required")
	}

	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{DatabaseURL: databaseURL}, opts...)
	if err != nil {
		return nil, fmt.Errorf("init firebase app: %w", err)
	}
	client, err := app.Database(ctx)
	if err != nil {
		return nil, fmt.Errorf("init realtime database: %w", err)
	}

	return &FirebaseStore{db: firebaseDB{client: client}}, nil
}

// Name implements Store.
func (s *FirebaseStore) Name() string { return "firebase" }

// Count returns the number of direct children of the node.
func (s *FirebaseStore) Count(ctx context.Context, key string) (int, error) {
	path, err := nodePath(key)
	if err != nil {
		return 0, err
	}

	var v any
	if err := s.db.getShallow(ctx, path, &v); err != nil {
		return 0, err
	}
	return countValue(v), nil
}

// Remove deletes the node.
func (s *FirebaseStore) Remove(ctx context.Context, key string) error {
	path, err := nodePath(key)
	if err != nil {
		return err
	}
	return s.db.remove(ctx, path)
}

func nodePath(key string) (string, error) {
	k := strings.Trim(key, "/")
	if k == "" || strings.ContainsAny(k, "/.#$[]") {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, key)
	}
	return "/" + k, nil
}

func countValue(v any) int {
	switch t := v.(type) {
	case nil:
		return 0
	case map[string]any:
		return len(t)
	case []any:
		return len(t)
	default:
		return 1
	}
}
