// Package dynamo implements the repository interfaces on Amazon DynamoDB.
//
// Items are (un)marshalled with the dynamodbav tags on the model types, so
// the attribute names match tables created by earlier deployments.
package dynamo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/sakif/connection-points/internal/repository"
)

var _ repository.Store = (*DB)(nil)

// API is the subset of *dynamodb.Client used by DB. Tests substitute a fake.
type API interface {
	DescribeTable(ctx context.Context, in *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
	CreateTable(ctx context.Context, in *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	Query(ctx context.Context, in *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	Scan(ctx context.Context, in *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
}

// Options configures the AWS client. Empty credentials fall back to the
// default chain (env, shared config, instance role).
type Options struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	// Endpoint overrides the service URL, e.g. http://localhost:8000 for
	// DynamoDB Local.
	Endpoint string
	// TableWait bounds how long CreateTable waits for a table to go ACTIVE.
	TableWait time.Duration
}

// DB implements repository.Store on top of a DynamoDB client.
type DB struct {
	client    API
	tableWait time.Duration
}

// New builds a DynamoDB client from opts.
func New(ctx context.Context, opts Options) (*DB, error) {
	loaders := []func(*config.LoadOptions) error{
		config.WithRegion(opts.Region),
	}
	if opts.AccessKeyID != "" {
		loaders = append(loaders, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, ""),
		))
	}

	cfg, err := config.LoadDefaultConfig(ctx, loaders...)
	if err != nil {
		return nil, fmt.Errorf("dynamo: loading aws config: %w", err)
	}

	client := dynamodb.NewFromConfig(cfg, func(o *dynamodb.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		}
	})
	return NewWithClient(client, opts.TableWait), nil
}

// NewWithClient wraps an existing client. A zero wait uses two minutes.
func NewWithClient(client API, tableWait time.Duration) *DB {
	if tableWait <= 0 {
		tableWait = 2 * time.Minute
	}
	return &DB{client: client, tableWait: tableWait}
}

// Close is a no-op; the SDK client holds no resources that need releasing.
func (db *DB) Close() error { return nil }

// TableExists reports whether table has been created. A table that is
// still CREATING counts as existing.
func (db *DB) TableExists(ctx context.Context, table string) (bool, error) {
	if _, ok := schemas[table]; !ok {
		return false, fmt.Errorf("dynamo: unknown table %q", table)
	}

	_, err := db.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(table)})
	if err != nil {
		var nf *types.ResourceNotFoundException
		if errors.As(err, &nf) {
			return false, nil
		}
		return false, fmt.Errorf("dynamo: describing table %s: %w", table, err)
	}
	return true, nil
}

// CreateTable creates table with its secondary indexes and waits until it
// is ACTIVE. A table created concurrently by another instance is accepted.
func (db *DB) CreateTable(ctx context.Context, table string) error {
	schema, ok := schemas[table]
	if !ok {
		return fmt.Errorf("dynamo: unknown table %q", table)
	}

	_, err := db.client.CreateTable(ctx, schema.createInput(table))
	if err != nil {
		var inUse *types.ResourceInUseException
		if !errors.As(err, &inUse) {
			return fmt.Errorf("dynamo: creating table %s: %w", table, err)
		}
	}

	waiter := dynamodb.NewTableExistsWaiter(db.client, func(o *dynamodb.TableExistsWaiterOptions) {
		o.MinDelay = 2 * time.Second
		o.MaxDelay = 20 * time.Second
	})
	if err := waiter.Wait(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(table)}, db.tableWait); err != nil {
		return fmt.Errorf("dynamo: waiting for table %s: %w", table, err)
	}
	return nil
}

func isConditionFailed(err error) bool {
	var ccf *types.ConditionalCheckFailedException
	return errors.As(err, &ccf)
}

func str(v string) types.AttributeValue {
	return &types.AttributeValueMemberS{Value: v}
}

// cursorOf extracts the string key attribute used as a page cursor.
func cursorOf(key map[string]types.AttributeValue, attr string) string {
	if s, ok := key[attr].(*types.AttributeValueMemberS); ok {
		return s.Value
	}
	return ""
}
