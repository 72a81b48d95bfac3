// Package secrets resolves credentials from AWS Secrets Manager with a plain
// value fallback for local runs.
package secrets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

// ErrSecretNotFound is returned when neither the secret nor its fallback is set.
var ErrSecretNotFound = errors.New("secret not found")

// SecretsAPI is the subset of the Secrets Manager client used here.
type SecretsAPI interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

type Resolver struct {
	api    SecretsAPI
	logger *slog.Logger
}

// NewResolver loads the default AWS configuration chain.
func NewResolver(ctx context.Context, logger *slog.Logger) (*Resolver, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return NewResolverWithAPI(secretsmanager.NewFromConfig(cfg), logger), nil
}

func NewResolverWithAPI(api SecretsAPI, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{api: api, logger: logger}
}

// Resolve fetches the secret named by arn. A secret stored as a JSON object with a
// single key yields that key's value. When arn is empty or the fetch fails the
// fallback value is used.
func (r *Resolver) Resolve(ctx context.Context, arn, fallback string) (string, error) {
	if arn != "" && r.api != nil {
		value, err := r.fetch(ctx, arn)
		if err == nil {
			return value, nil
		}
		r.logger.WarnContext(ctx, "failed to fetch secret, using fallback",
			"secret_arn", arn,
			"error", err,
		)
	}

	if fallback != "" {
		return fallback, nil
	}

	if arn == "" {
		return "", fmt.Errorf("%w: no secret arn or fallback configured", ErrSecretNotFound)
	}
	return "", fmt.Errorf("%w: %s", ErrSecretNotFound, arn)
}

func (r *Resolver) fetch(ctx context.Context, arn string) (string, error) {
	out, err := r.api.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(arn),
	})
	if err != nil {
		return "", fmt.Errorf("get secret value: %w", err)
	}

	raw := aws.ToString(out.SecretString)
	if raw == "" {
		return "", errors.New("secret has no string value")
	}

	var fields map[string]string
	if err := json.Unmarshal([]byte(raw), &fields); err == nil && len(fields) == 1 {
		for _, value := range fields {
			return value, nil
		}
	}

	return raw, nil
}
