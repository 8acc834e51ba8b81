package dynamo

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/sakif/connection-points/internal/apperror"
	"github.com/sakif/connection-points/internal/model"
	"github.com/sakif/connection-points/internal/repository"
)

func emailKey(email string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{"email": str(email)}
}

func (db *DB) CreateUser(ctx context.Context, user *model.User) error {
	if user.CreateDate.IsZero() {
		user.CreateDate = time.Now().UTC()
	}
	if user.Parties == nil {
		user.Parties = []string{}
	}

	item, err := attributevalue.MarshalMap(user)
	if err != nil {
		return fmt.Errorf("dynamo: encoding user %s: %w", user.Email, err)
	}

	_, err = db.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(repository.TableUsers),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(email)"),
	})
	if err != nil {
		if isConditionFailed(err) {
			return apperror.Conflict("user", user.Email)
		}
		return fmt.Errorf("dynamo: creating user %s: %w", user.Email, err)
	}
	return nil
}

func (db *DB) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	out, err := db.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(repository.TableUsers),
		Key:       emailKey(email),
	})
	if err != nil {
		return nil, fmt.Errorf("dynamo: getting user %s: %w", email, err)
	}
	if len(out.Item) == 0 {
		return nil, apperror.NotFound("user", email)
	}
	return decodeUser(out.Item)
}

// GetUserByName queries name-index. Index reads are eventually consistent,
// so a user registered a moment ago may not be visible yet.
func (db *DB) GetUserByName(ctx context.Context, name string) (*model.User, error) {
	out, err := db.client.Query(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(repository.TableUsers),
		IndexName:                 aws.String(IndexName),
		KeyConditionExpression:    aws.String("#n = :name"),
		ExpressionAttributeNames:  nameAttr,
		ExpressionAttributeValues: map[string]types.AttributeValue{":name": str(name)},
	})
	if err != nil {
		return nil, fmt.Errorf("dynamo: querying user by name %s: %w", name, err)
	}
	if len(out.Items) == 0 {
		return nil, apperror.NotFound("user", name)
	}

	var users []model.User
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &users); err != nil {
		return nil, fmt.Errorf("dynamo: decoding users named %s: %w", name, err)
	}
	oldest := slices.MinFunc(users, func(a, b model.User) int {
		return a.CreateDate.Compare(b.CreateDate)
	})
	if oldest.Parties == nil {
		oldest.Parties = []string{}
	}
	return &oldest, nil
}

// ListUsers scans one page of the users table. Scan order is unspecified;
// the cursor is the last email returned.
func (db *DB) ListUsers(ctx context.Context, opts repository.ListOptions) (*repository.Page[model.User], error) {
	opts = opts.Normalize()
	in := &dynamodb.ScanInput{
		TableName: aws.String(repository.TableUsers),
		Limit:     aws.Int32(int32(opts.Limit)),
	}
	if opts.After != "" {
		in.ExclusiveStartKey = emailKey(opts.After)
	}

	out, err := db.client.Scan(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("dynamo: scanning users: %w", err)
	}

	page := &repository.Page[model.User]{Items: []model.User{}}
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &page.Items); err != nil {
		return nil, fmt.Errorf("dynamo: decoding users: %w", err)
	}
	for i := range page.Items {
		if page.Items[i].Parties == nil {
			page.Items[i].Parties = []string{}
		}
	}
	page.Next = cursorOf(out.LastEvaluatedKey, "email")
	return page, nil
}

func (db *DB) UpdatePassword(ctx context.Context, email, passwordHash string) error {
	_, err := db.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(repository.TableUsers),
		Key:                       emailKey(email),
		UpdateExpression:          aws.String("SET #pw = :p"),
		ConditionExpression:       aws.String("attribute_exists(email)"),
		ExpressionAttributeNames:  map[string]string{"#pw": "password"},
		ExpressionAttributeValues: map[string]types.AttributeValue{":p": str(passwordHash)},
	})
	if err != nil {
		if isConditionFailed(err) {
			return apperror.NotFound("user", email)
		}
		return fmt.Errorf("dynamo: updating password of %s: %w", email, err)
	}
	return nil
}

// AddParty appends partyID unless the user already lists it.
func (db *DB) AddParty(ctx context.Context, email, partyID string) error {
	_, err := db.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(repository.TableUsers),
		Key:                 emailKey(email),
		UpdateExpression:    aws.String("SET parties = list_append(if_not_exists(parties, :empty), :add)"),
		ConditionExpression: aws.String("attribute_exists(email) AND NOT contains(parties, :pid)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":empty": &types.AttributeValueMemberL{Value: []types.AttributeValue{}},
			":add":   &types.AttributeValueMemberL{Value: []types.AttributeValue{str(partyID)}},
			":pid":   str(partyID),
		},
	})
	if err == nil {
		return nil
	}
	if !isConditionFailed(err) {
		return fmt.Errorf("dynamo: adding party to %s: %w", email, err)
	}

	// Either the user is missing or already a member.
	if _, err := db.GetUserByEmail(ctx, email); err != nil {
		return err
	}
	return nil
}

func decodeUser(item map[string]types.AttributeValue) (*model.User, error) {
	var u model.User
	if err := attributevalue.UnmarshalMap(item, &u); err != nil {
		return nil, fmt.Errorf("dynamo: decoding user: %w", err)
	}
	if u.Parties == nil {
		u.Parties = []string{}
	}
	return &u, nil
}
