package bapp

import (
	"context"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-secretsmanager-caching-go/v2/secretcache"
	"github.com/cockroachdb/errors"
	"github.com/tidwall/gjson"
)

// SecretReader reads the string value of a secret.
type SecretReader interface {
	GetSecretString(ctx context.Context, secretID string) (string, error)
}

// AWSSecretReader reads secrets from AWS Secrets Manager through a cache, so that resolving a
// [SecretRef] on every sample or request stays cheap while rotated values are still picked up.
type AWSSecretReader struct {
	cache *secretcache.Cache
}

// NewAWSSecretReader creates a reader whose cached values expire after ttl. A ttl of zero keeps the
// cache's default of one hour.
func NewAWSSecretReader(cfg aws.Config, ttl time.Duration) (*AWSSecretReader, error) {
	client := secretsmanager.NewFromConfig(cfg)

	cache, err := secretcache.New(func(c *secretcache.Cache) {
		c.Client = client
		if ttl > 0 {
			c.CacheConfig.CacheItemTTL = ttl.Nanoseconds()
		}
	})
	if err != nil {
		return nil, errors.Wrap(err, "create secret cache")
	}

	return &AWSSecretReader{cache: cache}, nil
}

// GetSecretString implements SecretReader.
func (r *AWSSecretReader) GetSecretString(ctx context.Context, secretID string) (string, error) {
	secret, err := r.cache.GetSecretStringWithContext(ctx, secretID)
	if err != nil {
		return "", errors.Wrapf(err, "get secret %q", secretID)
	}

	return secret, nil
}

// SecretRef points at a secret, or at a single value inside a JSON secret. Its text form is the
// secret id optionally followed by "#" and a gjson path:
//
//	sample-source-token
//	sidecar-creds#auth.token
type SecretRef struct {
	ID   string
	Path string
}

// ParseSecretRef parses the text form of a SecretRef. An empty string is the zero reference.
func ParseSecretRef(s string) (SecretRef, error) {
	id, path, hasPath := strings.Cut(strings.TrimSpace(s), "#")
	if id == "" && hasPath {
		return SecretRef{}, errors.Newf("secret reference %q has no secret id", s)
	}

	if hasPath && path == "" {
		return SecretRef{}, errors.Newf("secret reference %q has an empty path", s)
	}

	return SecretRef{ID: id, Path: path}, nil
}

// UnmarshalText lets env parse a SecretRef from a variable.
func (r *SecretRef) UnmarshalText(text []byte) error {
	ref, err := ParseSecretRef(string(text))
	if err != nil {
		return err
	}

	*r = ref

	return nil
}

// IsZero reports whether the reference points nowhere.
func (r SecretRef) IsZero() bool { return r.ID == "" }

func (r SecretRef) String() string {
	if r.Path == "" {
		return r.ID
	}

	return r.ID + "#" + r.Path
}

// Resolve reads the referenced value. Values inside a JSON secret are returned as their string
// form; objects and arrays as raw JSON.
func (r SecretRef) Resolve(ctx context.Context, reader SecretReader) (string, error) {
	if r.IsZero() {
		return "", errors.New("bapp: empty secret reference")
	}

	secret, err := reader.GetSecretString(ctx, r.ID)
	if err != nil {
		return "", err
	}

	if r.Path == "" {
		return secret, nil
	}

	if !gjson.Valid(secret) {
		return "", errors.Newf("secret %q is not valid JSON", r.ID)
	}

	res := gjson.Get(secret, r.Path)
	if !res.Exists() {
		return "", errors.Newf("secret path %q not found in secret %q", r.Path, r.ID)
	}

	return res.String(), nil
}
