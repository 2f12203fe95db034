package dynamo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/lostfound-api/internal/domain"
)

// ItemRepo provides typed DynamoDB operations for the items table. All
// resolve/append writes are conditional on the item not already being
// resolved, so two concurrent transitions cannot both succeed.
type ItemRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewItemRepo(client *dynamodb.Client, tableName string) *ItemRepo {
	return &ItemRepo{client: client, tableName: tableName}
}

func (r *ItemRepo) Put(ctx context.Context, it *domain.Item) error {
	item, err := attributevalue.MarshalMap(it)
	if err != nil {
		return fmt.Errorf("marshal item: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

func (r *ItemRepo) Get(ctx context.Context, itemID string) (*domain.Item, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("item_id", itemID),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("item not found: %w", domain.ErrNotFound)
	}
	var it domain.Item
	if err := attributevalue.UnmarshalMap(out.Item, &it); err != nil {
		return nil, err
	}
	return &it, nil
}

// Scan returns every item in the table. Callers sort; the table is small and
// has no index suited to a recency ordering.
func (r *ItemRepo) Scan(ctx context.Context) ([]domain.Item, error) {
	out, err := r.client.Scan(ctx, &dynamodb.ScanInput{
		TableName: aws.String(r.tableName),
	})
	if err != nil {
		return nil, err
	}
	var items []domain.Item
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// AppendSighting appends a sighting report, rejecting the write when the item
// has been resolved in the meantime.
func (r *ItemRepo) AppendSighting(ctx context.Context, itemID string, s domain.Sighting) error {
	return r.appendEntry(ctx, itemID, "sightings", s)
}

// AppendClaim appends an ownership claim, rejecting the write when the item
// has been resolved in the meantime.
func (r *ItemRepo) AppendClaim(ctx context.Context, itemID string, c domain.Claim) error {
	return r.appendEntry(ctx, itemID, "claims", c)
}

func (r *ItemRepo) appendEntry(ctx context.Context, itemID, attr string, entry interface{}) error {
	av, err := attributevalue.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal %s entry: %w", attr, err)
	}
	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(r.tableName),
		Key:                 strKey("item_id", itemID),
		UpdateExpression:    aws.String("SET #a = list_append(if_not_exists(#a, :empty), :new), #u = :now"),
		ConditionExpression: aws.String("attribute_exists(item_id) AND #st <> :resolved"),
		ExpressionAttributeNames: map[string]string{
			"#a":  attr,
			"#u":  "updated_at",
			"#st": "status",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":empty":    &types.AttributeValueMemberL{Value: []types.AttributeValue{}},
			":new":      &types.AttributeValueMemberL{Value: []types.AttributeValue{av}},
			":now":      &types.AttributeValueMemberS{Value: time.Now().UTC().Format(time.RFC3339)},
			":resolved": &types.AttributeValueMemberS{Value: domain.StatusResolved},
		},
	})
	return mapConditionalErr(err, attr+" rejected: item already resolved")
}

// MarkResolved flips the item to resolved as a single conditional update.
// A second resolve, or a resolve racing another one, fails Conflict.
func (r *ItemRepo) MarkResolved(ctx context.Context, itemID string) error {
	ue, err := buildUpdateExpr(map[string]interface{}{
		"status":     domain.StatusResolved,
		"updated_at": time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return err
	}
	ue.Names["#st"] = "status"
	ue.Values[":resolved"] = &types.AttributeValueMemberS{Value: domain.StatusResolved}

	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey("item_id", itemID),
		UpdateExpression:          aws.String(ue.Expr),
		ConditionExpression:       aws.String("attribute_exists(item_id) AND #st <> :resolved"),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
	})
	return mapConditionalErr(err, "item already resolved")
}

func mapConditionalErr(err error, msg string) error {
	if err == nil {
		return nil
	}
	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		return fmt.Errorf("%s: %w", msg, domain.ErrConflict)
	}
	return err
}
