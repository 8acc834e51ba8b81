package dynamo

import (
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/sakif/connection-points/internal/repository"
)

// Secondary index names.
const (
	IndexPartyID = "partyId-index"
	IndexID      = "id-index"
	IndexName    = "name-index"
)

// Every table and index is provisioned at one read and one write unit.
const capacityUnits = 1

type index struct {
	name     string
	hashKey  string
	rangeKey string
}

type tableSchema struct {
	hashKey string
	indexes []index
}

var schemas = map[string]tableSchema{
	repository.TableChallenges: {hashKey: "id", indexes: []index{{name: IndexPartyID, hashKey: "partyId", rangeKey: "id"}}},
	repository.TableParties:    {hashKey: "name", indexes: []index{{name: IndexID, hashKey: "id"}}},
	repository.TableRewards:    {hashKey: "id", indexes: []index{{name: IndexPartyID, hashKey: "partyId", rangeKey: "id"}}},
	repository.TableUsers:      {hashKey: "email", indexes: []index{{name: IndexName, hashKey: "name"}}},
	repository.TableAuthConfig: {hashKey: "name"},
}

func throughput() *types.ProvisionedThroughput {
	return &types.ProvisionedThroughput{
		ReadCapacityUnits:  aws.Int64(capacityUnits),
		WriteCapacityUnits: aws.Int64(capacityUnits),
	}
}

func keySchema(hash, rng string) []types.KeySchemaElement {
	ks := []types.KeySchemaElement{{AttributeName: aws.String(hash), KeyType: types.KeyTypeHash}}
	if rng != "" {
		ks = append(ks, types.KeySchemaElement{AttributeName: aws.String(rng), KeyType: types.KeyTypeRange})
	}
	return ks
}

func (s tableSchema) createInput(table string) *dynamodb.CreateTableInput {
	seen := map[string]bool{}
	var attrs []types.AttributeDefinition
	define := func(name string) {
		if name == "" || seen[name] {
			return
		}
		seen[name] = true
		attrs = append(attrs, types.AttributeDefinition{
			AttributeName: aws.String(name),
			AttributeType: types.ScalarAttributeTypeS,
		})
	}

	define(s.hashKey)
	var gsis []types.GlobalSecondaryIndex
	for _, idx := range s.indexes {
		define(idx.hashKey)
		define(idx.rangeKey)
		gsis = append(gsis, types.GlobalSecondaryIndex{
			IndexName:             aws.String(idx.name),
			KeySchema:             keySchema(idx.hashKey, idx.rangeKey),
			Projection:            &types.Projection{ProjectionType: types.ProjectionTypeAll},
			ProvisionedThroughput: throughput(),
		})
	}

	return &dynamodb.CreateTableInput{
		TableName:              aws.String(table),
		KeySchema:              keySchema(s.hashKey, ""),
		AttributeDefinitions:   attrs,
		GlobalSecondaryIndexes: gsis,
		BillingMode:            types.BillingModeProvisioned,
		ProvisionedThroughput:  throughput(),
	}
}
