// Package secrets resolves configuration values stored in AWS Secrets Manager.
//
// A value of the form awssm://<secret-id> is replaced by the secret string.
// awssm://<secret-id>#<key> treats the secret as a JSON object and selects one key.
// Any other value is returned unchanged.
package secrets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/smithy-go"
)

// Scheme prefixes values that reference a secret.
const Scheme = "awssm://"

// ErrNotFound is returned when the secret or the selected key does not exist.
var ErrNotFound = errors.New("secret not found")

// ManagerAPI is the subset of the Secrets Manager client used here.
type ManagerAPI interface {
	GetSecretValue(
		ctx context.Context,
		params *secretsmanager.GetSecretValueInput,
		optFns ...func(*secretsmanager.Options),
	) (*secretsmanager.GetSecretValueOutput, error)
}

// Resolver resolves secret references, caching each secret for its lifetime.
// Safe for concurrent use.
type Resolver struct {
	api ManagerAPI

	mu    sync.Mutex
	cache map[string]string
}

// NewResolver creates a Resolver over api.
func NewResolver(api ManagerAPI) *Resolver {
	return &Resolver{api: api, cache: make(map[string]string)}
}

// NewFromEnv creates a Resolver using the default AWS credential chain.
func NewFromEnv(ctx context.Context) (*Resolver, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return NewResolver(secretsmanager.NewFromConfig(cfg)), nil
}

// IsReference reports whether v names a secret.
func IsReference(v string) bool { return strings.HasPrefix(v, Scheme) }

// Resolve returns v, or the secret it references.
func (r *Resolver) Resolve(ctx context.Context, v string) (string, error) {
	if !IsReference(v) {
		return v, nil
	}
	id, key, _ := strings.Cut(strings.TrimPrefix(v, Scheme), "#")
	if id == "" {
		return "", fmt.Errorf("empty secret id in %q", v)
	}

	raw, err := r.fetch(ctx, id)
	if err != nil {
		return "", err
	}
	if key == "" {
		return raw, nil
	}

	var obj map[string]any
	if err := json.Unmarshal([]byte(raw), &obj); err != nil {
		return "", fmt.Errorf("secret %s is not a JSON object: %w", id, err)
	}
	val, ok := obj[key]
	if !ok {
		return "", fmt.Errorf("secret %s key %q: %w", id, key, ErrNotFound)
	}
	if s, ok := val.(string); ok {
		return s, nil
	}
	return fmt.Sprint(val), nil
}

func (r *Resolver) fetch(ctx context.Context, id string) (string, error) {
	r.mu.Lock()
	if s, ok := r.cache[id]; ok {
		r.mu.Unlock()
		return s, nil
	}
	r.mu.Unlock()

	out, err := r.api.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{SecretId: aws.String(id)})
	if err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) && apiErr.ErrorCode() == "ResourceNotFoundException" {
			return "", fmt.Errorf("secret %s: %w", id, ErrNotFound)
		}
		return "", fmt.Errorf("get secret %s: %w", id, err)
	}
	if out.SecretString == nil {
		return "", fmt.Errorf("secret %s has no string value", id)
	}

	s := aws.ToString(out.SecretString)
	r.mu.Lock()
	r.cache[id] = s
	r.mu.Unlock()
	return s, nil
}
