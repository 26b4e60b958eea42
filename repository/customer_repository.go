package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/yashrajoria/storefront-api/models"
)

// CustomerRepository maintains denormalized purchase aggregates.
type CustomerRepository interface {
	Get(ctx context.Context, email string) (*models.Customer, error)
	RecordOrder(ctx context.Context, email string, amount float64) error
}

// DynamoCustomerRepository implements CustomerRepository using DynamoDB,
// keyed by email.
type DynamoCustomerRepository struct {
	client *dynamodb.Client
	table  string
}

func NewDynamoCustomerRepository(client *dynamodb.Client, table string) *DynamoCustomerRepository {
	return &DynamoCustomerRepository{client: client, table: table}
}

type ddbCustomer struct {
	Email       string  `dynamodbav:"email"`
	TotalOrders int     `dynamodbav:"total_orders"`
	TotalSpent  float64 `dynamodbav:"total_spent"`
	LastOrderAt string  `dynamodbav:"last_order_at"`
}

func (r *DynamoCustomerRepository) Get(ctx context.Context, email string) (*models.Customer, error) {
	key, err := attributevalue.MarshalMap(map[string]string{"email": email})
	if err != nil {
		return nil, fmt.Errorf("marshal key: %w", err)
	}
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{TableName: &r.table, Key: key})
	if err != nil {
		return nil, fmt.Errorf("dynamodb GetItem failed: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, ErrNotFound
	}
	var dc ddbCustomer
	if err := attributevalue.UnmarshalMap(out.Item, &dc); err != nil {
		return nil, fmt.Errorf("unmarshal item: %w", err)
	}
	c := &models.Customer{
		Email:       dc.Email,
		TotalOrders: dc.TotalOrders,
		TotalSpent:  dc.TotalSpent,
	}
	if t, err := time.Parse(time.RFC3339, dc.LastOrderAt); err == nil {
		c.LastOrderAt = t
	}
	return c, nil
}

// RecordOrder bumps the aggregates for a paid order. ADD creates the
// row on first use, so this is a single upsert with no read.
func (r *DynamoCustomerRepository) RecordOrder(ctx context.Context, email string, amount float64) error {
	key, err := attributevalue.MarshalMap(map[string]string{"email": email})
	if err != nil {
		return fmt.Errorf("marshal key: %w", err)
	}

	expr := "ADD total_orders :one, total_spent :amt SET last_order_at = :now"
	oneAV, _ := attributevalue.Marshal(1)
	amtAV, _ := attributevalue.Marshal(amount)
	nowAV, _ := attributevalue.Marshal(time.Now().UTC().Format(time.RFC3339))

	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:        &r.table,
		Key:              key,
		UpdateExpression: &expr,
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":one": oneAV,
			":amt": amtAV,
			":now": nowAV,
		},
	})
	if err != nil {
		return fmt.Errorf("record order failed: %w", err)
	}
	return nil
}
