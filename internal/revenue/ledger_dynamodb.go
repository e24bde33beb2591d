package revenue

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// DynamoAPI is the slice of *dynamodb.Client the ledger uses.
type DynamoAPI interface {
	UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	Query(ctx context.Context, in *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// DynamoLedger stores totals in a table keyed by account_id (hash) and day (range).
type DynamoLedger struct {
	ddb   DynamoAPI
	table string
}

const DefaultLedgerTable = "revenue_ledger"

func NewDynamoLedger(ddb DynamoAPI, table string) *DynamoLedger {
	if table == "" {
		table = DefaultLedgerTable
	}
	return &DynamoLedger{ddb: ddb, table: table}
}

func ledgerKey(accountID, day string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"account_id": &types.AttributeValueMemberS{Value: accountID},
		"day":        &types.AttributeValueMemberS{Value: day},
	}
}

// Add uses UpdateItem ADD, which creates the item on first write and is
// atomic per item; ALL_NEW returns the post-increment total.
func (l *DynamoLedger) Add(ctx context.Context, accountID, day string, delta int64) (int64, error) {
	out, err := l.ddb.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:        aws.String(l.table),
		Key:              ledgerKey(accountID, day),
		UpdateExpression: aws.String("ADD amount_minor :d SET updated_at = :u"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":d": &types.AttributeValueMemberN{Value: strconv.FormatInt(delta, 10)},
			":u": &types.AttributeValueMemberS{Value: time.Now().UTC().Format(time.RFC3339Nano)},
		},
		ReturnValues: types.ReturnValueAllNew,
	})
	if err != nil {
		return 0, err
	}
	var e LedgerEntry
	if err := attributevalue.UnmarshalMap(out.Attributes, &e); err != nil {
		return 0, fmt.Errorf("decode ledger entry: %w", err)
	}
	return e.AmountMinor, nil
}

func (l *DynamoLedger) Get(ctx context.Context, accountID, day string) (int64, error) {
	out, err := l.ddb.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(l.table),
		Key:            ledgerKey(accountID, day),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return 0, err
	}
	if len(out.Item) == 0 {
		return 0, nil
	}
	var e LedgerEntry
	if err := attributevalue.UnmarshalMap(out.Item, &e); err != nil {
		return 0, err
	}
	return e.AmountMinor, nil
}

func (l *DynamoLedger) Range(ctx context.Context, accountID, from, to string) ([]LedgerEntry, error) {
	in := &dynamodb.QueryInput{
		TableName:              aws.String(l.table),
		KeyConditionExpression: aws.String("account_id = :a AND #d BETWEEN :f AND :t"),
		ExpressionAttributeNames: map[string]string{
			"#d": "day",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":a": &types.AttributeValueMemberS{Value: accountID},
			":f": &types.AttributeValueMemberS{Value: from},
			":t": &types.AttributeValueMemberS{Value: to},
		},
		ConsistentRead: aws.Bool(true),
	}
	var out []LedgerEntry
	for {
		page, err := l.ddb.Query(ctx, in)
		if err != nil {
			return nil, err
		}
		for _, raw := range page.Items {
			var e LedgerEntry
			if err := attributevalue.UnmarshalMap(raw, &e); err != nil {
				return nil, err
			}
			out = append(out, e)
		}
		if len(page.LastEvaluatedKey) == 0 {
			return out, nil
		}
		in.ExclusiveStartKey = page.LastEvaluatedKey
	}
}

type DynamoConfig struct {
	Region string
	// Endpoint targets DynamoDB Local; empty uses the AWS endpoint.
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
}

// NewDynamoClient builds a client. Static credentials are used when given,
// which DynamoDB Local requires even though it ignores them.
func NewDynamoClient(ctx context.Context, c DynamoConfig) (*dynamodb.Client, error) {
	if c.Region == "" {
		c.Region = "us-east-1"
	}
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(c.Region)}
	if c.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(c.AccessKeyID, c.SecretAccessKey, "")))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return dynamodb.NewFromConfig(cfg, func(o *dynamodb.Options) {
		if c.Endpoint != "" {
			o.BaseEndpoint = aws.String(c.Endpoint)
		}
	}), nil
}
