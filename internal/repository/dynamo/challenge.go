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

func idKey(id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{"id": str(id)}
}

// putItem writes v unconditionally.
func (db *DB) putItem(ctx context.Context, table, id string, v any) error {
	item, err := attributevalue.MarshalMap(v)
	if err != nil {
		return fmt.Errorf("dynamo: encoding %s %s: %w", table, id, err)
	}
	if _, err := db.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(table),
		Item:      item,
	}); err != nil {
		return fmt.Errorf("dynamo: putting %s %s: %w", table, id, err)
	}
	return nil
}

// getItem loads the item keyed by id into out.
func (db *DB) getItem(ctx context.Context, table, resource, id string, out any) error {
	res, err := db.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(table),
		Key:       idKey(id),
	})
	if err != nil {
		return fmt.Errorf("dynamo: getting %s %s: %w", resource, id, err)
	}
	if len(res.Item) == 0 {
		return apperror.NotFound(resource, id)
	}
	if err := attributevalue.UnmarshalMap(res.Item, out); err != nil {
		return fmt.Errorf("dynamo: decoding %s %s: %w", resource, id, err)
	}
	return nil
}

// queryByParty reads one page of table through partyId-index, ordered by id.
func queryByParty[T any](ctx context.Context, db *DB, table, partyID string, opts repository.ListOptions) (*repository.Page[T], error) {
	opts = opts.Normalize()
	in := &dynamodb.QueryInput{
		TableName:                 aws.String(table),
		IndexName:                 aws.String(IndexPartyID),
		KeyConditionExpression:    aws.String("partyId = :p"),
		ExpressionAttributeValues: map[string]types.AttributeValue{":p": str(partyID)},
		Limit:                     aws.Int32(int32(opts.Limit)),
	}
	if opts.After != "" {
		in.ExclusiveStartKey = map[string]types.AttributeValue{
			"id":      str(opts.After),
			"partyId": str(partyID),
		}
	}

	out, err := db.client.Query(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("dynamo: querying %s of party %s: %w", table, partyID, err)
	}

	page := &repository.Page[T]{Items: []T{}}
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &page.Items); err != nil {
		return nil, fmt.Errorf("dynamo: decoding %s: %w", table, err)
	}
	page.Next = cursorOf(out.LastEvaluatedKey, "id")
	return page, nil
}

func (db *DB) PutChallenge(ctx context.Context, c *model.Challenge) error {
	return db.putItem(ctx, repository.TableChallenges, c.ID, c)
}

func (db *DB) GetChallenge(ctx context.Context, id string) (*model.Challenge, error) {
	var c model.Challenge
	if err := db.getItem(ctx, repository.TableChallenges, "challenge", id, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

func (db *DB) ListChallengesByParty(ctx context.Context, partyID string, opts repository.ListOptions) (*repository.Page[model.Challenge], error) {
	return queryByParty[model.Challenge](ctx, db, repository.TableChallenges, partyID, opts)
}

func (db *DB) PutReward(ctx context.Context, r *model.Reward) error {
	return db.putItem(ctx, repository.TableRewards, r.ID, r)
}

func (db *DB) GetReward(ctx context.Context, id string) (*model.Reward, error) {
	var r model.Reward
	if err := db.getItem(ctx, repository.TableRewards, "reward", id, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

func (db *DB) ListRewardsByParty(ctx context.Context, partyID string, opts repository.ListOptions) (*repository.Page[model.Reward], error) {
	return queryByParty[model.Reward](ctx, db, repository.TableRewards, partyID, opts)
}
