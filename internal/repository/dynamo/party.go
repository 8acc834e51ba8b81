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

func (db *DB) CreateParty(ctx context.Context, party *model.Party) error {
	return db.putParty(ctx, party, "attribute_not_exists(#n)", func() error {
		return apperror.Conflict("party", party.Name)
	})
}

// UpdateParty replaces an existing party item.
func (db *DB) UpdateParty(ctx context.Context, party *model.Party) error {
	return db.putParty(ctx, party, "attribute_exists(#n)", func() error {
		return apperror.NotFound("party", party.Name)
	})
}

func (db *DB) putParty(ctx context.Context, party *model.Party, condition string, onConditionFailed func() error) error {
	item, err := attributevalue.MarshalMap(party)
	if err != nil {
		return fmt.Errorf("dynamo: encoding party %s: %w", party.Name, err)
	}

	_, err = db.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                aws.String(repository.TableParties),
		Item:                     item,
		ConditionExpression:      aws.String(condition),
		ExpressionAttributeNames: nameAttr,
	})
	if err != nil {
		if isConditionFailed(err) {
			return onConditionFailed()
		}
		return fmt.Errorf("dynamo: writing party %s: %w", party.Name, err)
	}
	return nil
}

func (db *DB) GetParty(ctx context.Context, name string) (*model.Party, error) {
	out, err := db.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(repository.TableParties),
		Key:       map[string]types.AttributeValue{"name": str(name)},
	})
	if err != nil {
		return nil, fmt.Errorf("dynamo: getting party %s: %w", name, err)
	}
	if len(out.Item) == 0 {
		return nil, apperror.NotFound("party", name)
	}

	var p model.Party
	if err := attributevalue.UnmarshalMap(out.Item, &p); err != nil {
		return nil, fmt.Errorf("dynamo: decoding party %s: %w", name, err)
	}
	return &p, nil
}

// GetPartyByID resolves a party through id-index.
func (db *DB) GetPartyByID(ctx context.Context, id string) (*model.Party, error) {
	out, err := db.client.Query(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(repository.TableParties),
		IndexName:                 aws.String(IndexID),
		KeyConditionExpression:    aws.String("id = :id"),
		ExpressionAttributeValues: map[string]types.AttributeValue{":id": str(id)},
		Limit:                     aws.Int32(1),
	})
	if err != nil {
		return nil, fmt.Errorf("dynamo: querying party %s: %w", id, err)
	}
	if len(out.Items) == 0 {
		return nil, apperror.NotFound("party", id)
	}

	var p model.Party
	if err := attributevalue.UnmarshalMap(out.Items[0], &p); err != nil {
		return nil, fmt.Errorf("dynamo: decoding party %s: %w", id, err)
	}
	return &p, nil
}
