package secrets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"
)

// SecretsManagerAPI is the subset of the Secrets Manager client AWSStore uses.
type SecretsManagerAPI interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// AWSStore reads secrets from AWS Secrets Manager. The secret must be a JSON
// object stored in SecretString.
type AWSStore struct {
	client SecretsManagerAPI
}

// NewAWSStore wraps an existing Secrets Manager client.
func NewAWSStore(client SecretsManagerAPI) *AWSStore {
	return &AWSStore{client: client}
}

// NewAWSStoreFromRegion builds a client from the default credential chain.
func NewAWSStoreFromRegion(ctx context.Context, region string) (*AWSStore, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return NewAWSStore(secretsmanager.NewFromConfig(cfg)), nil
}

// FetchSecret implements Store.
func (s *AWSStore) FetchSecret(ctx context.Context, name string) (map[string]string, error) {
	out, err := s.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(name),
	})
	if err != nil {
		return nil, &Error{Category: categorize(err), Name: name, Err: err}
	}
	if out.SecretString == nil {
		return nil, &Error{Category: CategoryOther, Name: name, Err: errors.New("secret has no SecretString")}
	}

	values, err := decodeSecretString(*out.SecretString)
	if err != nil {
		return nil, &Error{Category: CategoryOther, Name: name, Err: err}
	}
	return values, nil
}

func categorize(err error) Category {
	var (
		notFound   *types.ResourceNotFoundException
		decryption *types.DecryptionFailure
		internal   *types.InternalServiceError
		badParam   *types.InvalidParameterException
		badRequest *types.InvalidRequestException
	)
	switch {
	case errors.As(err, &notFound):
		return CategoryNotFound
	case errors.As(err, &decryption):
		return CategoryDecryptionFailure
	case errors.As(err, &internal):
		return CategoryInternalError
	case errors.As(err, &badParam):
		return CategoryInvalidParameter
	case errors.As(err, &badRequest):
		return CategoryInvalidRequest
	default:
		return CategoryOther
	}
}

// decodeSecretString parses a JSON object. Non-string values keep their JSON
// text so numeric ports and booleans survive.
func decodeSecretString(s string) (map[string]string, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal([]byte(s), &raw); err != nil {
		return nil, fmt.Errorf("decode secret string: %w", err)
	}

	values := make(map[string]string, len(raw))
	for k, v := range raw {
		var str string
		if err := json.Unmarshal(v, &str); err == nil {
			values[k] = str
			continue
		}
		values[k] = string(v)
	}
	return values, nil
}
