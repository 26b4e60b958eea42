package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/yashrajoria/storefront-api/models"
)

// InventoryRepository defines data access for the stock ledger.
// All mutations are single-record conditional updates; callers never
// read-then-write ledger counters.
type InventoryRepository interface {
	Get(ctx context.Context, productID string) (*models.Inventory, error)
	Create(ctx context.Context, inv *models.Inventory) error
	Reserve(ctx context.Context, productID string, quantity int) error
	Release(ctx context.Context, productID string, quantity int) error
	Commit(ctx context.Context, productID string, quantity int) error
	Adjust(ctx context.Context, productID string, delta int) error
	SetStatus(ctx context.Context, productID, status string) error
}

// DynamoInventoryRepository implements InventoryRepository using DynamoDB.
type DynamoInventoryRepository struct {
	client *dynamodb.Client
	table  string
}

func NewDynamoInventoryRepository(client *dynamodb.Client, table string) *DynamoInventoryRepository {
	return &DynamoInventoryRepository{client: client, table: table}
}

type ddbInventory struct {
	ProductID    string `dynamodbav:"product_id"`
	Stock        int    `dynamodbav:"stock"`
	Reserved     int    `dynamodbav:"reserved"`
	Available    int    `dynamodbav:"available"`
	LowStock     int    `dynamodbav:"low_stock_threshold"`
	ReorderPoint int    `dynamodbav:"reorder_point"`
	Status       string `dynamodbav:"status"`
	UpdatedAt    string `dynamodbav:"updated_at"`
}

func (r *DynamoInventoryRepository) Get(ctx context.Context, productID string) (*models.Inventory, error) {
	key, err := attributevalue.MarshalMap(map[string]string{"product_id": productID})
	if err != nil {
		return nil, fmt.Errorf("marshal key: %w", err)
	}

	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: &r.table,
		Key:       key,
	})
	if err != nil {
		return nil, fmt.Errorf("dynamodb GetItem failed: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, ErrNotFound
	}

	var di ddbInventory
	if err := attributevalue.UnmarshalMap(out.Item, &di); err != nil {
		return nil, fmt.Errorf("unmarshal item: %w", err)
	}

	inv := &models.Inventory{
		ProductID:    di.ProductID,
		Stock:        di.Stock,
		Reserved:     di.Reserved,
		Available:    di.Available,
		LowStock:     di.LowStock,
		ReorderPoint: di.ReorderPoint,
		Status:       di.Status,
	}
	if t, err := time.Parse(time.RFC3339, di.UpdatedAt); err == nil {
		inv.UpdatedAt = t
	}
	return inv, nil
}

// Create writes a fresh ledger record, refusing to overwrite one that
// already exists for the product.
func (r *DynamoInventoryRepository) Create(ctx context.Context, inv *models.Inventory) error {
	di := ddbInventory{
		ProductID:    inv.ProductID,
		Stock:        inv.Stock,
		Reserved:     inv.Reserved,
		Available:    inv.Stock - inv.Reserved,
		LowStock:     inv.LowStock,
		ReorderPoint: inv.ReorderPoint,
		Status:       inv.Status,
		UpdatedAt:    inv.UpdatedAt.Format(time.RFC3339),
	}

	item, err := attributevalue.MarshalMap(di)
	if err != nil {
		return fmt.Errorf("marshal inventory: %w", err)
	}

	condExpr := "attribute_not_exists(product_id)"
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           &r.table,
		Item:                item,
		ConditionExpression: &condExpr,
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return ErrAlreadyExists
		}
		return fmt.Errorf("dynamodb PutItem failed: %w", err)
	}
	return nil
}

// Reserve atomically holds quantity units: available -= qty,
// reserved += qty, stock untouched. The condition guards against
// overselling under concurrent callers and refuses deleted products.
func (r *DynamoInventoryRepository) Reserve(ctx context.Context, productID string, quantity int) error {
	key, err := attributevalue.MarshalMap(map[string]string{"product_id": productID})
	if err != nil {
		return fmt.Errorf("marshal key: %w", err)
	}

	expr := "SET #avail = #avail - :qty, #resv = #resv + :qty, updated_at = :now"
	condExpr := "#avail >= :qty AND #st = :active"

	qtyAV, _ := attributevalue.Marshal(quantity)
	nowAV, _ := attributevalue.Marshal(time.Now().UTC().Format(time.RFC3339))
	activeAV, _ := attributevalue.Marshal(models.ProductStatusActive)

	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           &r.table,
		Key:                 key,
		UpdateExpression:    &expr,
		ConditionExpression: &condExpr,
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":qty":    qtyAV,
			":now":    nowAV,
			":active": activeAV,
		},
		ExpressionAttributeNames: map[string]string{
			"#avail": "available",
			"#resv":  "reserved",
			"#st":    "status",
		},
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return ErrInsufficientStock
		}
		return fmt.Errorf("reserve failed: %w", err)
	}
	return nil
}

// Release returns quantity units from reserved back to available.
func (r *DynamoInventoryRepository) Release(ctx context.Context, productID string, quantity int) error {
	key, err := attributevalue.MarshalMap(map[string]string{"product_id": productID})
	if err != nil {
		return fmt.Errorf("marshal key: %w", err)
	}

	expr := "SET #avail = #avail + :qty, #resv = #resv - :qty, updated_at = :now"
	condExpr := "#resv >= :qty"

	qtyAV, _ := attributevalue.Marshal(quantity)
	nowAV, _ := attributevalue.Marshal(time.Now().UTC().Format(time.RFC3339))

	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           &r.table,
		Key:                 key,
		UpdateExpression:    &expr,
		ConditionExpression: &condExpr,
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":qty": qtyAV,
			":now": nowAV,
		},
		ExpressionAttributeNames: map[string]string{
			"#avail": "available",
			"#resv":  "reserved",
		},
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return ErrInvariantViolation
		}
		return fmt.Errorf("release failed: %w", err)
	}
	return nil
}

// Commit converts a reservation into a permanent deduction:
// stock -= qty, reserved -= qty, available unchanged.
func (r *DynamoInventoryRepository) Commit(ctx context.Context, productID string, quantity int) error {
	key, err := attributevalue.MarshalMap(map[string]string{"product_id": productID})
	if err != nil {
		return fmt.Errorf("marshal key: %w", err)
	}

	expr := "SET #stock = #stock - :qty, #resv = #resv - :qty, updated_at = :now"
	condExpr := "#resv >= :qty"

	qtyAV, _ := attributevalue.Marshal(quantity)
	nowAV, _ := attributevalue.Marshal(time.Now().UTC().Format(time.RFC3339))

	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           &r.table,
		Key:                 key,
		UpdateExpression:    &expr,
		ConditionExpression: &condExpr,
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":qty": qtyAV,
			":now": nowAV,
		},
		ExpressionAttributeNames: map[string]string{
			"#stock": "stock",
			"#resv":  "reserved",
		},
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return ErrInvariantViolation
		}
		return fmt.Errorf("commit failed: %w", err)
	}
	return nil
}

// Adjust applies an admin restock or correction. Negative deltas are
// conditioned on available so reserved units are never clawed back.
func (r *DynamoInventoryRepository) Adjust(ctx context.Context, productID string, delta int) error {
	key, err := attributevalue.MarshalMap(map[string]string{"product_id": productID})
	if err != nil {
		return fmt.Errorf("marshal key: %w", err)
	}

	qty := delta
	expr := "SET #stock = #stock + :qty, #avail = #avail + :qty, updated_at = :now"
	var condExpr *string
	if delta < 0 {
		qty = -delta
		expr = "SET #stock = #stock - :qty, #avail = #avail - :qty, updated_at = :now"
		cond := "#avail >= :qty"
		condExpr = &cond
	}

	qtyAV, _ := attributevalue.Marshal(qty)
	nowAV, _ := attributevalue.Marshal(time.Now().UTC().Format(time.RFC3339))

	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           &r.table,
		Key:                 key,
		UpdateExpression:    &expr,
		ConditionExpression: condExpr,
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":qty": qtyAV,
			":now": nowAV,
		},
		ExpressionAttributeNames: map[string]string{
			"#stock": "stock",
			"#avail": "available",
		},
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return ErrInsufficientStock
		}
		return fmt.Errorf("adjust failed: %w", err)
	}
	return nil
}

// SetStatus marks the ledger record active or deleted.
func (r *DynamoInventoryRepository) SetStatus(ctx context.Context, productID, status string) error {
	key, err := attributevalue.MarshalMap(map[string]string{"product_id": productID})
	if err != nil {
		return fmt.Errorf("marshal key: %w", err)
	}

	expr := "SET #st = :status, updated_at = :now"
	statusAV, _ := attributevalue.Marshal(status)
	nowAV, _ := attributevalue.Marshal(time.Now().UTC().Format(time.RFC3339))

	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:        &r.table,
		Key:              key,
		UpdateExpression: &expr,
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":status": statusAV,
			":now":    nowAV,
		},
		ExpressionAttributeNames: map[string]string{
			"#st": "status",
		},
	})
	if err != nil {
		return fmt.Errorf("set status failed: %w", err)
	}
	return nil
}
