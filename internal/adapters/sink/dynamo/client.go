// Package dynamo is a sink that stores batches in a DynamoDB table.
package dynamo

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/retry"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/lithammer/shortuuid/v3"
	"github.com/okian/wastesync/internal/adapters/sink"
	"github.com/okian/wastesync/internal/domain/model"
	"go.opentelemetry.io/contrib/instrumentation/github.com/aws/aws-sdk-go-v2/otelaws"
)

// maxBatchWrite is the BatchWriteItem request limit.
const maxBatchWrite = 25

// createdAtLayout is fixed width so created_at compares correctly as a string.
const createdAtLayout = "2006-01-02T15:04:05.000000000Z07:00"

// API is the part of the DynamoDB client the sink calls.
type API interface {
	BatchWriteItem(ctx context.Context, in *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error)
	Scan(ctx context.Context, in *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	DescribeTable(ctx context.Context, in *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
}

type item struct {
	ID           string  `dynamodbav:"id"`
	FoodName     string  `dynamodbav:"food_name"`
	DisposalMass float64 `dynamodbav:"disposal_mass"`
	Location     string  `dynamodbav:"location,omitempty"`
	SessionID    string  `dynamodbav:"session_id"`
	CreatedAt    string  `dynamodbav:"created_at"`
}

// Client writes records as DynamoDB items keyed by a generated id.
type Client struct {
	api    API
	now    func() time.Time
	newID  func() string
	lookup func(string) (string, bool)
}

// New wraps api.
func New(api API, opts ...Option) *Client {
	c := &Client{
		api:    api,
		now:    time.Now,
		newID:  shortuuid.New,
		lookup: os.LookupEnv,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewFromEnv builds a DynamoDB client from the default AWS configuration.
// A non-empty endpoint points the client at a local DynamoDB.
// The SDK retryer is limited to a single attempt.
func NewFromEnv(ctx context.Context, region, endpoint string) (*dynamodb.Client, error) {
	loadOpts := []func(*config.LoadOptions) error{
		config.WithRetryer(func() aws.Retryer {
			return retry.AddWithMaxAttempts(retry.NewStandard(), 1)
		}),
	}
	if region != "" {
		loadOpts = append(loadOpts, config.WithRegion(region))
	}
	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("dynamodb: load aws config: %w", err)
	}
	otelaws.AppendMiddlewares(&cfg.APIOptions)

	return dynamodb.NewFromConfig(cfg, func(o *dynamodb.Options) {
		if endpoint != "" {
			o.EndpointResolver = dynamodb.EndpointResolverFromURL(endpoint)
		}
	}), nil
}

// TableName applies the TABLE_SUFFIX_<PREFIX> environment override, where
// PREFIX is the part of the name before the first dash. "food_waste" with
// TABLE_SUFFIX_FOOD_WASTE=dev becomes "food_waste-dev".
func (c *Client) TableName(table string) string {
	prefix, rest, hasDash := strings.Cut(table, "-")
	suffix, ok := c.lookup("TABLE_SUFFIX_" + strings.ToUpper(prefix))
	if !ok || suffix == "" {
		return table
	}
	if !hasDash {
		return prefix + "-" + suffix
	}
	return prefix + "-" + suffix + "-" + rest
}

// Insert writes the batch with BatchWriteItem in chunks of 25 items.
// Items the service leaves unprocessed fail the batch; nothing is resent.
func (c *Client) Insert(ctx context.Context, table string, records []model.Record) ([]model.StoredRecord, error) {
	name := c.TableName(table)
	now := c.now().UTC()
	createdAt := now.Format(createdAtLayout)

	stored := make([]model.StoredRecord, 0, len(records))
	requests := make([]types.WriteRequest, 0, len(records))
	for _, r := range records {
		it := item{
			ID:           c.newID(),
			FoodName:     r.FoodName,
			DisposalMass: r.DisposalMass,
			Location:     r.Location,
			SessionID:    r.SessionID,
			CreatedAt:    createdAt,
		}
		av, err := attributevalue.MarshalMap(it)
		if err != nil {
			return nil, fmt.Errorf("%w: marshal %q: %w", sink.ErrInsert, r.FoodName, err)
		}
		requests = append(requests, types.WriteRequest{PutRequest: &types.PutRequest{Item: av}})
		stored = append(stored, model.StoredRecord{Record: r, ID: it.ID, CreatedAt: now})
	}

	for start := 0; start < len(requests); start += maxBatchWrite {
		end := start + maxBatchWrite
		if end > len(requests) {
			end = len(requests)
		}
		out, err := c.api.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
			RequestItems: map[string][]types.WriteRequest{name: requests[start:end]},
		})
		if err != nil {
			return nil, fmt.Errorf("%w: %w", sink.ErrInsert, err)
		}
		if n := len(out.UnprocessedItems[name]); n > 0 {
			return nil, fmt.Errorf("%w: %d of %d items unprocessed", sink.ErrInsert, n, end-start)
		}
	}
	return stored, nil
}

// Ping describes table.
func (c *Client) Ping(ctx context.Context, table string) error {
	_, err := c.api.DescribeTable(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(c.TableName(table)),
	})
	if err != nil {
		return fmt.Errorf("%w: %w", sink.ErrPing, err)
	}
	return nil
}

// Recent scans for items created at or after since and returns them newest first.
func (c *Client) Recent(ctx context.Context, table string, since time.Time, limit int) ([]model.StoredRecord, error) {
	in := &dynamodb.ScanInput{
		TableName:        aws.String(c.TableName(table)),
		FilterExpression: aws.String("created_at >= :since"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":since": &types.AttributeValueMemberS{Value: since.UTC().Format(createdAtLayout)},
		},
	}
	var items []item
	for {
		out, err := c.api.Scan(ctx, in)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", sink.ErrRead, err)
		}
		var page []item
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &page); err != nil {
			return nil, fmt.Errorf("%w: unmarshal: %w", sink.ErrRead, err)
		}
		items = append(items, page...)
		if len(out.LastEvaluatedKey) == 0 {
			break
		}
		in.ExclusiveStartKey = out.LastEvaluatedKey
	}

	stored := make([]model.StoredRecord, 0, len(items))
	for _, it := range items {
		created, err := time.Parse(time.RFC3339Nano, it.CreatedAt)
		if err != nil {
			continue
		}
		stored = append(stored, model.StoredRecord{
			Record: model.Record{
				FoodName:     it.FoodName,
				DisposalMass: it.DisposalMass,
				Location:     it.Location,
				SessionID:    it.SessionID,
			},
			ID:        it.ID,
			CreatedAt: created,
		})
	}
	sort.SliceStable(stored, func(i, j int) bool { return stored[i].CreatedAt.After(stored[j].CreatedAt) })
	if limit > 0 && len(stored) > limit {
		stored = stored[:limit]
	}
	return stored, nil
}
