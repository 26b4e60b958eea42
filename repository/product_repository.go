package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
	"github.com/yashrajoria/storefront-api/models"
)

// ProductRepository defines data access for catalog products.
type ProductRepository interface {
	Create(ctx context.Context, product *models.Product) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	Find(ctx context.Context, filters models.ProductFilters, limit, skip int) ([]*models.Product, error)
	Count(ctx context.Context, filters models.ProductFilters) (int64, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]interface{}) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// DynamoProductRepository stores products in a table with primary key
// `product_id` (string).
type DynamoProductRepository struct {
	client *dynamodb.Client
	table  string
}

func NewDynamoProductRepository(client *dynamodb.Client, table string) *DynamoProductRepository {
	return &DynamoProductRepository{client: client, table: table}
}

type ddbProduct struct {
	ProductID      string            `dynamodbav:"product_id"`
	Name           string            `dynamodbav:"name"`
	Description    *string           `dynamodbav:"description,omitempty"`
	Price          float64           `dynamodbav:"price"`
	Category       string            `dynamodbav:"category"`
	Brand          string            `dynamodbav:"brand"`
	Specifications map[string]string `dynamodbav:"specifications,omitempty"`
	Images         []string          `dynamodbav:"images,omitempty"`
	Status         string            `dynamodbav:"status"`
	CreatedAt      string            `dynamodbav:"created_at"`
	UpdatedAt      string            `dynamodbav:"updated_at"`
}

func (d *DynamoProductRepository) toModel(dp *ddbProduct) *models.Product {
	p := &models.Product{}
	p.ID, _ = uuid.Parse(dp.ProductID)
	p.Name = dp.Name
	if dp.Description != nil {
		p.Description = *dp.Description
	}
	p.Price = dp.Price
	p.Category = dp.Category
	p.Brand = dp.Brand
	p.Specifications = dp.Specifications
	p.Images = dp.Images
	p.Status = dp.Status
	if t, err := time.Parse(time.RFC3339, dp.CreatedAt); err == nil {
		p.CreatedAt = t
	}
	if t, err := time.Parse(time.RFC3339, dp.UpdatedAt); err == nil {
		p.UpdatedAt = t
	}
	return p
}

func (d *DynamoProductRepository) Create(ctx context.Context, product *models.Product) error {
	dp := ddbProduct{
		ProductID:      product.ID.String(),
		Name:           product.Name,
		Price:          product.Price,
		Category:       product.Category,
		Brand:          product.Brand,
		Specifications: product.Specifications,
		Images:         product.Images,
		Status:         product.Status,
		CreatedAt:      product.CreatedAt.Format(time.RFC3339),
		UpdatedAt:      product.UpdatedAt.Format(time.RFC3339),
	}
	if product.Description != "" {
		dp.Description = &product.Description
	}

	item, err := attributevalue.MarshalMap(dp)
	if err != nil {
		return fmt.Errorf("marshal product: %w", err)
	}

	condExpr := "attribute_not_exists(product_id)"
	_, err = d.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           &d.table,
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

func (d *DynamoProductRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	key, err := attributevalue.MarshalMap(map[string]string{"product_id": id.String()})
	if err != nil {
		return nil, fmt.Errorf("marshal key: %w", err)
	}
	out, err := d.client.GetItem(ctx, &dynamodb.GetItemInput{TableName: &d.table, Key: key})
	if err != nil {
		return nil, fmt.Errorf("dynamodb GetItem failed: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, ErrNotFound
	}
	var dp ddbProduct
	if err := attributevalue.UnmarshalMap(out.Item, &dp); err != nil {
		return nil, fmt.Errorf("unmarshal item: %w", err)
	}
	return d.toModel(&dp), nil
}

func (d *DynamoProductRepository) scanInput(filters models.ProductFilters) *dynamodb.ScanInput {
	expr := "#st = :active"
	names := map[string]string{"#st": "status"}
	values := map[string]types.AttributeValue{}
	activeAV, _ := attributevalue.Marshal(models.ProductStatusActive)
	values[":active"] = activeAV

	if filters.Category != "" {
		expr += " AND category = :category"
		av, _ := attributevalue.Marshal(filters.Category)
		values[":category"] = av
	}
	if filters.Brand != "" {
		expr += " AND brand = :brand"
		av, _ := attributevalue.Marshal(filters.Brand)
		values[":brand"] = av
	}

	return &dynamodb.ScanInput{
		TableName:                 &d.table,
		FilterExpression:          &expr,
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: values,
	}
}

// Find performs a filtered Scan with basic skip/limit pagination.
func (d *DynamoProductRepository) Find(ctx context.Context, filters models.ProductFilters, limit, skip int) ([]*models.Product, error) {
	var results []*models.Product
	paginator := dynamodb.NewScanPaginator(d.client, d.scanInput(filters))
	seen := 0
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("scan page failed: %w", err)
		}
		for _, it := range page.Items {
			if skip > 0 && seen < skip {
				seen++
				continue
			}
			var dp ddbProduct
			if err := attributevalue.UnmarshalMap(it, &dp); err != nil {
				return nil, fmt.Errorf("unmarshal item: %w", err)
			}
			results = append(results, d.toModel(&dp))
			if limit > 0 && len(results) >= limit {
				return results, nil
			}
		}
	}
	return results, nil
}

// Count returns the number of items matching the filters.
func (d *DynamoProductRepository) Count(ctx context.Context, filters models.ProductFilters) (int64, error) {
	input := d.scanInput(filters)
	input.Select = types.SelectCount
	paginator := dynamodb.NewScanPaginator(d.client, input)
	var total int64
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return 0, fmt.Errorf("scan count failed: %w", err)
		}
		total += int64(page.Count)
	}
	return total, nil
}

// Update performs UpdateItem by setting the provided attributes.
func (d *DynamoProductRepository) Update(ctx context.Context, id uuid.UUID, updates map[string]interface{}) error {
	if len(updates) == 0 {
		return nil
	}
	expr := "SET "
	exprVals := make(map[string]types.AttributeValue)
	exprNames := make(map[string]string)
	i := 0
	for k, v := range updates {
		ph := fmt.Sprintf(":v%d", i)
		namePh := fmt.Sprintf("#f%d", i)
		if i > 0 {
			expr += ", "
		}
		expr += fmt.Sprintf("%s = %s", namePh, ph)
		exprNames[namePh] = k
		av, err := attributevalue.Marshal(v)
		if err != nil {
			return fmt.Errorf("marshal update value: %w", err)
		}
		exprVals[ph] = av
		i++
	}

	key, err := attributevalue.MarshalMap(map[string]string{"product_id": id.String()})
	if err != nil {
		return fmt.Errorf("marshal key: %w", err)
	}

	condExpr := "attribute_exists(product_id)"
	_, err = d.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 &d.table,
		Key:                       key,
		UpdateExpression:          &expr,
		ConditionExpression:       &condExpr,
		ExpressionAttributeValues: exprVals,
		ExpressionAttributeNames:  exprNames,
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return ErrNotFound
		}
		return fmt.Errorf("update item failed: %w", err)
	}
	return nil
}

// Delete removes the row. Only used to compensate a failed create;
// catalog removal goes through soft delete.
func (d *DynamoProductRepository) Delete(ctx context.Context, id uuid.UUID) error {
	key, err := attributevalue.MarshalMap(map[string]string{"product_id": id.String()})
	if err != nil {
		return fmt.Errorf("marshal key: %w", err)
	}
	_, err = d.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{TableName: &d.table, Key: key})
	if err != nil {
		return fmt.Errorf("delete item failed: %w", err)
	}
	return nil
}
