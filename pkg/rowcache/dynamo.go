package rowcache

import (
	"context"
	"encoding/base64"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	customerrors "github.com/theory-cloud/cachetheory/pkg/errors"
)

// DynamoAPI is the minimal DynamoDB surface the record provider needs.
// Providing this enables deterministic tests without real AWS calls.
type DynamoAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
}

// DynamoProvider reads authoritative rows from a DynamoDB table.
type DynamoProvider struct {
	client  DynamoAPI
	table   string
	keyAttr string
}

// DynamoOption customizes a DynamoProvider.
type DynamoOption func(*DynamoProvider)

// DefaultKeyAttribute is the partition key attribute used unless overridden.
const DefaultKeyAttribute = "id"

// WithKeyAttribute overrides the partition key attribute name.
func WithKeyAttribute(attr string) DynamoOption {
	return func(p *DynamoProvider) {
		if attr != "" {
			p.keyAttr = attr
		}
	}
}

// NewDynamoProvider creates a provider over an existing client.
func NewDynamoProvider(client DynamoAPI, table string, opts ...DynamoOption) (*DynamoProvider, error) {
	if client == nil {
		return nil, fmt.Errorf("dynamo provider: client is required")
	}
	if table == "" {
		return nil, fmt.Errorf("dynamo provider: table is required")
	}
	p := &DynamoProvider{
		client:  client,
		table:   table,
		keyAttr: DefaultKeyAttribute,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// DynamoConfig configures a real DynamoDB client for DialDynamoProvider.
type DynamoConfig struct {
	Region   string
	Endpoint string
	// Static credentials, for local stacks; leave empty to use the default
	// credential chain.
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
}

// DialDynamoProvider builds a provider with a real DynamoDB client.
func DialDynamoProvider(ctx context.Context, table string, cfg DynamoConfig, opts ...DynamoOption) (*DynamoProvider, error) {
	options := make([]func(*awsconfig.LoadOptions) error, 0, 2)
	if cfg.Region != "" {
		options = append(options, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.AccessKeyID != "" {
		options = append(options, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, cfg.SessionToken)))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, options...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	client := dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return NewDynamoProvider(client, table, opts...)
}

// Fetch implements Provider. Absent rows surface as errors.ErrNotFound.
func (p *DynamoProvider) Fetch(ctx context.Context, rowID string) (any, error) {
	out, err := p.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(p.table),
		Key: map[string]types.AttributeValue{
			p.keyAttr: &types.AttributeValueMemberS{Value: rowID},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("fetch row %q: %w", rowID, err)
	}
	if len(out.Item) == 0 {
		return nil, customerrors.ErrNotFound
	}
	return itemToMap(out.Item)
}

func itemToMap(item map[string]types.AttributeValue) (map[string]any, error) {
	m := make(map[string]any, len(item))
	for name, av := range item {
		v, err := attributeToValue(av)
		if err != nil {
			return nil, fmt.Errorf("attribute %q: %w", name, err)
		}
		m[name] = v
	}
	return m, nil
}

func attributeToValue(av types.AttributeValue) (any, error) {
	switch v := av.(type) {
	case *types.AttributeValueMemberS:
		return v.Value, nil
	case *types.AttributeValueMemberN:
		n, err := strconv.ParseFloat(v.Value, 64)
		if err != nil {
			return nil, err
		}
		return n, nil
	case *types.AttributeValueMemberBOOL:
		return v.Value, nil
	case *types.AttributeValueMemberNULL:
		return nil, nil
	case *types.AttributeValueMemberB:
		return base64.StdEncoding.EncodeToString(v.Value), nil
	case *types.AttributeValueMemberSS:
		out := make([]any, len(v.Value))
		for i, s := range v.Value {
			out[i] = s
		}
		return out, nil
	case *types.AttributeValueMemberNS:
		out := make([]any, len(v.Value))
		for i, s := range v.Value {
			n, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return nil, err
			}
			out[i] = n
		}
		return out, nil
	case *types.AttributeValueMemberL:
		out := make([]any, len(v.Value))
		for i, elem := range v.Value {
			val, err := attributeToValue(elem)
			if err != nil {
				return nil, err
			}
			out[i] = val
		}
		return out, nil
	case *types.AttributeValueMemberM:
		return itemToMap(v.Value)
	default:
		return nil, fmt.Errorf("unsupported attribute value type: %T", av)
	}
}
