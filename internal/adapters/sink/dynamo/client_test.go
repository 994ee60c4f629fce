package dynamo_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/okian/wastesync/internal/adapters/sink"
	"github.com/okian/wastesync/internal/adapters/sink/dynamo"
	"github.com/okian/wastesync/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

type fakeAPI struct {
	writes      []*dynamodb.BatchWriteItemInput
	unprocessed int
	writeErr    error
	scanPages   []*dynamodb.ScanOutput
	scans       int
	scanInputs  []*dynamodb.ScanInput
	described   []string
	describeErr error
}

func (f *fakeAPI) BatchWriteItem(_ context.Context, in *dynamodb.BatchWriteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error) {
	f.writes = append(f.writes, in)
	if f.writeErr != nil {
		return nil, f.writeErr
	}
	out := &dynamodb.BatchWriteItemOutput{}
	if f.unprocessed > 0 {
		for table, reqs := range in.RequestItems {
			out.UnprocessedItems = map[string][]types.WriteRequest{table: reqs[:f.unprocessed]}
		}
	}
	return out, nil
}

func (f *fakeAPI) Scan(_ context.Context, in *dynamodb.ScanInput, _ ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	f.scanInputs = append(f.scanInputs, in)
	page := f.scanPages[f.scans]
	f.scans++
	return page, nil
}

func (f *fakeAPI) DescribeTable(_ context.Context, in *dynamodb.DescribeTableInput, _ ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error) {
	f.described = append(f.described, *in.TableName)
	return &dynamodb.DescribeTableOutput{}, f.describeErr
}

func noEnv(string) (string, bool) { return "", false }

func batch(n int) []model.Record {
	out := make([]model.Record, n)
	for i := range out {
		out[i] = model.Record{FoodName: fmt.Sprintf("item-%d", i), DisposalMass: float64(i + 1), SessionID: "s1"}
	}
	return out
}

func TestInsert(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC)

	Convey("Given a DynamoDB sink", t, func() {
		api := &fakeAPI{}
		seq := 0
		c := dynamo.New(api,
			dynamo.WithClock(func() time.Time { return now }),
			dynamo.WithIDGenerator(func() string { seq++; return fmt.Sprintf("id-%d", seq) }),
			dynamo.WithEnvLookup(noEnv),
		)

		Convey("When inserting more than one request's worth of items", func() {
			stored, err := c.Insert(ctx, model.TableName, batch(60))

			Convey("Then writes are chunked by 25", func() {
				So(err, ShouldBeNil)
				So(api.writes, ShouldHaveLength, 3)
				So(api.writes[0].RequestItems[model.TableName], ShouldHaveLength, 25)
				So(api.writes[2].RequestItems[model.TableName], ShouldHaveLength, 10)
			})

			Convey("Then stored records carry generated ids and the write time", func() {
				So(stored, ShouldHaveLength, 60)
				So(stored[0].ID, ShouldEqual, "id-1")
				So(stored[59].CreatedAt.Equal(now), ShouldBeTrue)
			})

			Convey("Then items use the record field names", func() {
				var it map[string]any
				So(attributevalue.UnmarshalMap(api.writes[0].RequestItems[model.TableName][0].PutRequest.Item, &it), ShouldBeNil)
				So(it["food_name"], ShouldEqual, "item-0")
				So(it["session_id"], ShouldEqual, "s1")
				So(it["created_at"], ShouldEqual, "2025-03-04T05:06:07.000000000Z")
				_, hasLocation := it["location"]
				So(hasLocation, ShouldBeFalse)
			})
		})

		Convey("When the service leaves items unprocessed", func() {
			api.unprocessed = 2
			_, err := c.Insert(ctx, model.TableName, batch(3))

			Convey("Then the batch fails without resending", func() {
				So(errors.Is(err, sink.ErrInsert), ShouldBeTrue)
				So(err.Error(), ShouldContainSubstring, "2 of 3")
				So(api.writes, ShouldHaveLength, 1)
			})
		})

		Convey("When the call fails", func() {
			api.writeErr = errors.New("throttled")
			_, err := c.Insert(ctx, model.TableName, batch(1))
			So(errors.Is(err, sink.ErrInsert), ShouldBeTrue)
		})
	})
}

func TestTableName(t *testing.T) {
	Convey("Given a table suffix in the environment", t, func() {
		env := map[string]string{"TABLE_SUFFIX_FOOD_WASTE": "dev", "TABLE_SUFFIX_APPLICATION": "qa"}
		c := dynamo.New(&fakeAPI{}, dynamo.WithEnvLookup(func(k string) (string, bool) {
			v, ok := env[k]
			return v, ok
		}))

		So(c.TableName("food_waste"), ShouldEqual, "food_waste-dev")
		So(c.TableName("application-user"), ShouldEqual, "application-qa-user")
		So(c.TableName("other"), ShouldEqual, "other")
	})
}

func TestRecentAndPing(t *testing.T) {
	ctx := context.Background()

	Convey("Given a table with two pages of items", t, func() {
		page := func(id, created string) *dynamodb.ScanOutput {
			return &dynamodb.ScanOutput{Items: []map[string]types.AttributeValue{{
				"id":            &types.AttributeValueMemberS{Value: id},
				"food_name":     &types.AttributeValueMemberS{Value: "Soup"},
				"disposal_mass": &types.AttributeValueMemberN{Value: "2.5"},
				"session_id":    &types.AttributeValueMemberS{Value: "s"},
				"created_at":    &types.AttributeValueMemberS{Value: created},
			}}}
		}
		first := page("old", "2025-01-01T00:00:00Z")
		first.LastEvaluatedKey = map[string]types.AttributeValue{"id": &types.AttributeValueMemberS{Value: "old"}}
		api := &fakeAPI{scanPages: []*dynamodb.ScanOutput{first, page("new", "2025-01-02T00:00:00Z")}}
		c := dynamo.New(api, dynamo.WithEnvLookup(noEnv))

		rows, err := c.Recent(ctx, model.TableName, time.Time{}, 10)

		Convey("Then all pages are read and sorted newest first", func() {
			So(err, ShouldBeNil)
			So(api.scans, ShouldEqual, 2)
			So(rows, ShouldHaveLength, 2)
			So(rows[0].ID, ShouldEqual, "new")
			So(rows[1].DisposalMass, ShouldEqual, 2.5)
		})
	})

	Convey("Given a window starting on a whole second", t, func() {
		api := &fakeAPI{scanPages: []*dynamodb.ScanOutput{{}}}
		c := dynamo.New(api, dynamo.WithEnvLookup(noEnv))
		since := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

		_, err := c.Recent(ctx, model.TableName, since, 0)

		Convey("Then the bound sorts before later fractional timestamps", func() {
			So(err, ShouldBeNil)
			bound := api.scanInputs[0].ExpressionAttributeValues[":since"].(*types.AttributeValueMemberS).Value
			So(bound, ShouldEqual, "2025-01-01T00:00:00.000000000Z")
			So(bound < "2025-01-01T00:00:00.100000000Z", ShouldBeTrue)
			So(bound > "2024-12-31T23:59:59.900000000Z", ShouldBeTrue)
		})
	})

	Convey("Given a configured table", t, func() {
		api := &fakeAPI{}
		err := dynamo.New(api, dynamo.WithEnvLookup(noEnv)).Ping(ctx, "waste_audit")
		So(err, ShouldBeNil)
		So(api.described, ShouldResemble, []string{"waste_audit"})
	})

	Convey("Given a missing table", t, func() {
		api := &fakeAPI{describeErr: errors.New("ResourceNotFoundException")}
		err := dynamo.New(api, dynamo.WithEnvLookup(noEnv)).Ping(ctx, model.TableName)
		So(errors.Is(err, sink.ErrPing), ShouldBeTrue)
	})
}
