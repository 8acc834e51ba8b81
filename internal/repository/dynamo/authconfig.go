package dynamo

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/sakif/connection-points/internal/apperror"
	"github.com/sakif/connection-points/internal/model"
	"github.com/sakif/connection-points/internal/repository"
)

// "name" is a DynamoDB reserved word and always goes through #n.
var nameAttr = map[string]string{"#n": "name"}

func (db *DB) GetAuthConfig(ctx context.Context, name string) (*model.AuthConfig, error) {
	out, err := db.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(repository.TableAuthConfig),
		Key:            map[string]types.AttributeValue{"name": str(name)},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("dynamo: getting auth config %s: %w", name, err)
	}
	if len(out.Item) == 0 {
		return nil, apperror.NotFound("auth config", name)
	}

	var cfg model.AuthConfig
	if err := attributevalue.UnmarshalMap(out.Item, &cfg); err != nil {
		return nil, fmt.Errorf("dynamo: decoding auth config %s: %w", name, err)
	}
	return &cfg, nil
}

// CreateAuthConfig writes the singleton only if it is absent.
func (db *DB) CreateAuthConfig(ctx context.Context, cfg *model.AuthConfig) error {
	item, err := attributevalue.MarshalMap(cfg)
	if err != nil {
		return fmt.Errorf("dynamo: encoding auth config: %w", err)
	}

	_, err = db.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                aws.String(repository.TableAuthConfig),
		Item:                     item,
		ConditionExpression:      aws.String("attribute_not_exists(#n)"),
		ExpressionAttributeNames: nameAttr,
	})
	if err != nil {
		if isConditionFailed(err) {
			return apperror.Conflict("auth config", cfg.Name)
		}
		return fmt.Errorf("dynamo: creating auth config %s: %w", cfg.Name, err)
	}
	return nil
}
