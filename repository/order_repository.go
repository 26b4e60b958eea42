package repository

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/yashrajoria/storefront-api/models"
)

// CustomerEmailIndex is the GSI used for order lookup by customer.
// Hash key customer_email, range key created_at.
const CustomerEmailIndex = "customer_email-index"

// OrderRepository defines data access for orders.
type OrderRepository interface {
	Create(ctx context.Context, order *models.Order) error
	FindByID(ctx context.Context, orderID string) (*models.Order, error)
	FindByEmail(ctx context.Context, email string, limit int, cursor string) ([]models.Order, string, error)
	FindByStatus(ctx context.Context, status string, limit int) ([]models.Order, error)
	FindExpiredReservations(ctx context.Context, now time.Time, limit int) ([]models.Order, error)
	TransitionStatus(ctx context.Context, orderID string, from []string, to string) error
	SetStripeSession(ctx context.Context, orderID, sessionID string) error
}

// DynamoOrderRepository implements OrderRepository using DynamoDB.
type DynamoOrderRepository struct {
	client *dynamodb.Client
	table  string
}

func NewDynamoOrderRepository(client *dynamodb.Client, table string) *DynamoOrderRepository {
	return &DynamoOrderRepository{client: client, table: table}
}

type ddbOrderItem struct {
	ProductID string  `dynamodbav:"product_id"`
	Name      string  `dynamodbav:"name"`
	Quantity  int     `dynamodbav:"quantity"`
	UnitPrice float64 `dynamodbav:"unit_price"`
}

type ddbAddress struct {
	Line1      string `dynamodbav:"line1"`
	Line2      string `dynamodbav:"line2,omitempty"`
	City       string `dynamodbav:"city"`
	State      string `dynamodbav:"state,omitempty"`
	PostalCode string `dynamodbav:"postal_code"`
	Country    string `dynamodbav:"country"`
}

type ddbOrder struct {
	OrderID              string         `dynamodbav:"order_id"`
	CustomerEmail        string         `dynamodbav:"customer_email"`
	Items                []ddbOrderItem `dynamodbav:"items"`
	Subtotal             float64        `dynamodbav:"subtotal"`
	Total                float64        `dynamodbav:"total"`
	Status               string         `dynamodbav:"status"`
	ShippingAddress      ddbAddress     `dynamodbav:"shipping_address"`
	BillingAddress       ddbAddress     `dynamodbav:"billing_address"`
	StripeSessionID      *string        `dynamodbav:"stripe_session_id,omitempty"`
	ReservationExpiresAt string         `dynamodbav:"reservation_expires_at"`
	CreatedAt            string         `dynamodbav:"created_at"`
	UpdatedAt            string         `dynamodbav:"updated_at"`
	PaidAt               *string        `dynamodbav:"paid_at,omitempty"`
	CancelledAt          *string        `dynamodbav:"cancelled_at,omitempty"`
}

func toDDBAddress(a models.Address) ddbAddress {
	return ddbAddress{
		Line1:      a.Line1,
		Line2:      a.Line2,
		City:       a.City,
		State:      a.State,
		PostalCode: a.PostalCode,
		Country:    a.Country,
	}
}

func fromDDBAddress(a ddbAddress) models.Address {
	return models.Address{
		Line1:      a.Line1,
		Line2:      a.Line2,
		City:       a.City,
		State:      a.State,
		PostalCode: a.PostalCode,
		Country:    a.Country,
	}
}

func toDDBOrder(o *models.Order) ddbOrder {
	do := ddbOrder{
		OrderID:              o.ID,
		CustomerEmail:        o.CustomerEmail,
		Subtotal:             o.Subtotal,
		Total:                o.Total,
		Status:               o.Status,
		ShippingAddress:      toDDBAddress(o.ShippingAddress),
		BillingAddress:       toDDBAddress(o.BillingAddress),
		ReservationExpiresAt: o.ReservationExpiresAt.UTC().Format(time.RFC3339),
		CreatedAt:            o.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:            o.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if o.StripeSessionID != "" {
		do.StripeSessionID = &o.StripeSessionID
	}
	if o.PaidAt != nil {
		s := o.PaidAt.UTC().Format(time.RFC3339)
		do.PaidAt = &s
	}
	if o.CancelledAt != nil {
		s := o.CancelledAt.UTC().Format(time.RFC3339)
		do.CancelledAt = &s
	}
	for _, it := range o.Items {
		do.Items = append(do.Items, ddbOrderItem{
			ProductID: it.ProductID,
			Name:      it.Name,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
		})
	}
	return do
}

func fromDDBOrder(do *ddbOrder) models.Order {
	o := models.Order{
		ID:              do.OrderID,
		CustomerEmail:   do.CustomerEmail,
		Subtotal:        do.Subtotal,
		Total:           do.Total,
		Status:          do.Status,
		ShippingAddress: fromDDBAddress(do.ShippingAddress),
		BillingAddress:  fromDDBAddress(do.BillingAddress),
	}
	if do.StripeSessionID != nil {
		o.StripeSessionID = *do.StripeSessionID
	}
	if t, err := time.Parse(time.RFC3339, do.ReservationExpiresAt); err == nil {
		o.ReservationExpiresAt = t
	}
	if t, err := time.Parse(time.RFC3339, do.CreatedAt); err == nil {
		o.CreatedAt = t
	}
	if t, err := time.Parse(time.RFC3339, do.UpdatedAt); err == nil {
		o.UpdatedAt = t
	}
	if do.PaidAt != nil {
		if t, err := time.Parse(time.RFC3339, *do.PaidAt); err == nil {
			o.PaidAt = &t
		}
	}
	if do.CancelledAt != nil {
		if t, err := time.Parse(time.RFC3339, *do.CancelledAt); err == nil {
			o.CancelledAt = &t
		}
	}
	for _, it := range do.Items {
		o.Items = append(o.Items, models.OrderItem{
			ProductID: it.ProductID,
			Name:      it.Name,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
		})
	}
	return o
}

// Create writes the order, refusing to overwrite an existing id.
func (r *DynamoOrderRepository) Create(ctx context.Context, order *models.Order) error {
	item, err := attributevalue.MarshalMap(toDDBOrder(order))
	if err != nil {
		return fmt.Errorf("marshal order: %w", err)
	}

	condExpr := "attribute_not_exists(order_id)"
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

func (r *DynamoOrderRepository) FindByID(ctx context.Context, orderID string) (*models.Order, error) {
	key, err := attributevalue.MarshalMap(map[string]string{"order_id": orderID})
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
	var do ddbOrder
	if err := attributevalue.UnmarshalMap(out.Item, &do); err != nil {
		return nil, fmt.Errorf("unmarshal item: %w", err)
	}
	o := fromDDBOrder(&do)
	return &o, nil
}

// orderCursor is the opaque pagination token for FindByEmail.
type orderCursor struct {
	OrderID       string `json:"order_id"`
	CustomerEmail string `json:"customer_email"`
	CreatedAt     string `json:"created_at"`
}

func encodeCursor(lastKey map[string]types.AttributeValue) (string, error) {
	if len(lastKey) == 0 {
		return "", nil
	}
	get := func(name string) string {
		if v, ok := lastKey[name].(*types.AttributeValueMemberS); ok {
			return v.Value
		}
		return ""
	}
	c := orderCursor{
		OrderID:       get("order_id"),
		CustomerEmail: get("customer_email"),
		CreatedAt:     get("created_at"),
	}
	b, err := json.Marshal(c)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func decodeCursor(cursor string) (map[string]types.AttributeValue, error) {
	if cursor == "" {
		return nil, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return nil, ErrInvalidCursor
	}
	var c orderCursor
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, ErrInvalidCursor
	}
	return map[string]types.AttributeValue{
		"order_id":       &types.AttributeValueMemberS{Value: c.OrderID},
		"customer_email": &types.AttributeValueMemberS{Value: c.CustomerEmail},
		"created_at":     &types.AttributeValueMemberS{Value: c.CreatedAt},
	}, nil
}

// FindByEmail queries the customer email GSI, newest first, with an
// opaque cursor for pagination.
func (r *DynamoOrderRepository) FindByEmail(ctx context.Context, email string, limit int, cursor string) ([]models.Order, string, error) {
	keyCond := "customer_email = :email"
	emailAV, _ := attributevalue.Marshal(email)

	startKey, err := decodeCursor(cursor)
	if err != nil {
		return nil, "", err
	}

	index := CustomerEmailIndex
	limit32 := int32(limit)
	scanForward := false
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              &r.table,
		IndexName:              &index,
		KeyConditionExpression: &keyCond,
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":email": emailAV,
		},
		Limit:             &limit32,
		ExclusiveStartKey: startKey,
		ScanIndexForward:  &scanForward,
	})
	if err != nil {
		return nil, "", fmt.Errorf("query by email failed: %w", err)
	}

	orders := make([]models.Order, 0, len(out.Items))
	for _, it := range out.Items {
		var do ddbOrder
		if err := attributevalue.UnmarshalMap(it, &do); err != nil {
			return nil, "", fmt.Errorf("unmarshal item: %w", err)
		}
		orders = append(orders, fromDDBOrder(&do))
	}

	next, err := encodeCursor(out.LastEvaluatedKey)
	if err != nil {
		return nil, "", fmt.Errorf("encode cursor: %w", err)
	}
	return orders, next, nil
}

// FindByStatus scans for orders in the given status (admin listing).
func (r *DynamoOrderRepository) FindByStatus(ctx context.Context, status string, limit int) ([]models.Order, error) {
	expr := "#st = :status"
	statusAV, _ := attributevalue.Marshal(status)

	input := &dynamodb.ScanInput{
		TableName:        &r.table,
		FilterExpression: &expr,
		ExpressionAttributeNames: map[string]string{
			"#st": "status",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":status": statusAV,
		},
	}
	return r.scanOrders(ctx, input, limit)
}

// FindExpiredReservations scans for orders still reserved past their
// expiry deadline. Used by the reservation expiry sweep.
func (r *DynamoOrderRepository) FindExpiredReservations(ctx context.Context, now time.Time, limit int) ([]models.Order, error) {
	expr := "#st = :status AND reservation_expires_at < :now"
	statusAV, _ := attributevalue.Marshal(models.OrderStatusReserved)
	nowAV, _ := attributevalue.Marshal(now.UTC().Format(time.RFC3339))

	input := &dynamodb.ScanInput{
		TableName:        &r.table,
		FilterExpression: &expr,
		ExpressionAttributeNames: map[string]string{
			"#st": "status",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":status": statusAV,
			":now":    nowAV,
		},
	}
	return r.scanOrders(ctx, input, limit)
}

func (r *DynamoOrderRepository) scanOrders(ctx context.Context, input *dynamodb.ScanInput, limit int) ([]models.Order, error) {
	var orders []models.Order
	paginator := dynamodb.NewScanPaginator(r.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("scan page failed: %w", err)
		}
		for _, it := range page.Items {
			var do ddbOrder
			if err := attributevalue.UnmarshalMap(it, &do); err != nil {
				return nil, fmt.Errorf("unmarshal item: %w", err)
			}
			orders = append(orders, fromDDBOrder(&do))
			if limit > 0 && len(orders) >= limit {
				return orders, nil
			}
		}
	}
	return orders, nil
}

// TransitionStatus moves the order to a new status only if its current
// status is one of from. Losing the condition returns ErrStatusConflict
// so callers can distinguish a concurrent transition from a failure.
func (r *DynamoOrderRepository) TransitionStatus(ctx context.Context, orderID string, from []string, to string) error {
	key, err := attributevalue.MarshalMap(map[string]string{"order_id": orderID})
	if err != nil {
		return fmt.Errorf("marshal key: %w", err)
	}

	expr := "SET #st = :to, updated_at = :now"
	values := map[string]types.AttributeValue{}

	toAV, _ := attributevalue.Marshal(to)
	values[":to"] = toAV
	nowStr := time.Now().UTC().Format(time.RFC3339)
	nowAV, _ := attributevalue.Marshal(nowStr)
	values[":now"] = nowAV

	switch to {
	case models.OrderStatusPaid:
		expr += ", paid_at = :now"
	case models.OrderStatusCancelled:
		expr += ", cancelled_at = :now"
	}

	placeholders := make([]string, 0, len(from))
	for i, st := range from {
		ph := fmt.Sprintf(":f%d", i)
		av, _ := attributevalue.Marshal(st)
		values[ph] = av
		placeholders = append(placeholders, ph)
	}
	condExpr := fmt.Sprintf("attribute_exists(order_id) AND #st IN (%s)", strings.Join(placeholders, ", "))

	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 &r.table,
		Key:                       key,
		UpdateExpression:          &expr,
		ConditionExpression:       &condExpr,
		ExpressionAttributeNames:  map[string]string{"#st": "status"},
		ExpressionAttributeValues: values,
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return ErrStatusConflict
		}
		return fmt.Errorf("transition status failed: %w", err)
	}
	return nil
}

// SetStripeSession records the checkout session id on the order.
func (r *DynamoOrderRepository) SetStripeSession(ctx context.Context, orderID, sessionID string) error {
	key, err := attributevalue.MarshalMap(map[string]string{"order_id": orderID})
	if err != nil {
		return fmt.Errorf("marshal key: %w", err)
	}

	expr := "SET stripe_session_id = :sid, updated_at = :now"
	sidAV, _ := attributevalue.Marshal(sessionID)
	nowAV, _ := attributevalue.Marshal(time.Now().UTC().Format(time.RFC3339))

	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:        &r.table,
		Key:              key,
		UpdateExpression: &expr,
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":sid": sidAV,
			":now": nowAV,
		},
	})
	if err != nil {
		return fmt.Errorf("set stripe session failed: %w", err)
	}
	return nil
}
