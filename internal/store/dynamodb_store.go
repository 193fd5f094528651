package store

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/dynamodb"

	"github.com/zupervisor-project/zupervisor-go/pkg/logger"
)

// DynamoDBProvider backs stores with a single DynamoDB table keyed by
// (StoreName, Key).
type DynamoDBProvider struct {
	ddb       *dynamodb.DynamoDB
	tableName string
}

func (p *DynamoDBProvider) InitStores() {
	sess := session.Must(session.NewSession(&aws.Config{
		Region: aws.String(os.Getenv("AWS_REGION")),
	}))
	p.ddb = dynamodb.New(sess)
	p.tableName = os.Getenv("ZUPERVISOR_DYNAMODB_TABLE")
}

func (p *DynamoDBProvider) GetValue(storeName, key string) (interface{}, bool) {
	key = applyKeyPrefix(key)
	result, err := p.ddb.GetItem(&dynamodb.GetItemInput{
		TableName: aws.String(p.tableName),
		Key: map[string]*dynamodb.AttributeValue{
			"StoreName": {S: aws.String(storeName)},
			"Key":       {S: aws.String(key)},
		},
	})
	if err != nil {
		logger.Errorf("failed to get item: %v", err)
		return nil, false
	}
	if result.Item == nil || result.Item["Value"] == nil || result.Item["Value"].S == nil {
		return nil, false
	}
	var value interface{}
	if err := json.Unmarshal([]byte(*result.Item["Value"].S), &value); err != nil {
		logger.Errorf("failed to unmarshal value: %v", err)
		return nil, false
	}
	return value, true
}

func (p *DynamoDBProvider) StoreValue(storeName, key string, value interface{}) {
	key = applyKeyPrefix(key)
	valueBytes, err := json.Marshal(value)
	if err != nil {
		logger.Errorf("failed to marshal value: %v", err)
		return
	}
	_, err = p.ddb.PutItem(&dynamodb.PutItemInput{
		TableName: aws.String(p.tableName),
		Item: map[string]*dynamodb.AttributeValue{
			"StoreName": {S: aws.String(storeName)},
			"Key":       {S: aws.String(key)},
			"Value":     {S: aws.String(string(valueBytes))},
		},
	})
	if err != nil {
		logger.Errorf("failed to put item: %v", err)
	}
}

func (p *DynamoDBProvider) GetAllValues(storeName, keyPrefix string) map[string]interface{} {
	keyPrefix = applyKeyPrefix(keyPrefix)
	result, err := p.ddb.Query(&dynamodb.QueryInput{
		TableName:              aws.String(p.tableName),
		KeyConditionExpression: aws.String("StoreName = :store"),
		ExpressionAttributeValues: map[string]*dynamodb.AttributeValue{
			":store": {S: aws.String(storeName)},
		},
	})
	if err != nil {
		logger.Errorf("failed to query items: %v", err)
		return nil
	}
	items := make(map[string]interface{})
	for _, item := range result.Items {
		if item["Key"] == nil || item["Key"].S == nil || item["Value"] == nil || item["Value"].S == nil {
			continue
		}
		key := *item["Key"].S
		if !strings.HasPrefix(key, keyPrefix) {
			continue
		}
		var value interface{}
		if err := json.Unmarshal([]byte(*item["Value"].S), &value); err != nil {
			logger.Errorf("failed to unmarshal value: %v", err)
			continue
		}
		items[removeKeyPrefix(key)] = value
	}
	return items
}

func (p *DynamoDBProvider) DeleteValue(storeName, key string) {
	key = applyKeyPrefix(key)
	_, err := p.ddb.DeleteItem(&dynamodb.DeleteItemInput{
		TableName: aws.String(p.tableName),
		Key: map[string]*dynamodb.AttributeValue{
			"StoreName": {S: aws.String(storeName)},
			"Key":       {S: aws.String(key)},
		},
	})
	if err != nil {
		logger.Errorf("failed to delete item: %v", err)
	}
}

func (p *DynamoDBProvider) DeleteStore(storeName string) {
	items := p.GetAllValues(storeName, "")
	for key := range items {
		p.DeleteValue(storeName, key)
	}
}
