package client_test

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/halvard/ddbexpr/client"
	"github.com/halvard/ddbexpr/compiler"
	"github.com/halvard/ddbexpr/entity"
	"github.com/halvard/ddbexpr/predicate"
)

// fakeDDB captures wire inputs and replays scripted outputs.
type fakeDDB struct {
	queryInputs  []*dynamodb.QueryInput
	queryOutputs []*dynamodb.QueryOutput
	putInputs    []*dynamodb.PutItemInput
	updateInputs []*dynamodb.UpdateItemInput
	deleteInputs []*dynamodb.DeleteItemInput
	getInputs    []*dynamodb.GetItemInput
	getOutput    *dynamodb.GetItemOutput
	scanInputs   []*dynamodb.ScanInput
	batchInputs  []*dynamodb.BatchWriteItemInput
	// scripted UnprocessedItems per BatchWriteItem call
	batchUnprocessed []map[string][]types.WriteRequest
}

func (f *fakeDDB) Query(_ context.Context, params *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	f.queryInputs = append(f.queryInputs, params)
	if len(f.queryOutputs) == 0 {
		return &dynamodb.QueryOutput{}, nil
	}
	out := f.queryOutputs[0]
	f.queryOutputs = f.queryOutputs[1:]
	return out, nil
}

func (f *fakeDDB) PutItem(_ context.Context, params *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.putInputs = append(f.putInputs, params)
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeDDB) UpdateItem(_ context.Context, params *dynamodb.UpdateItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	f.updateInputs = append(f.updateInputs, params)
	return &dynamodb.UpdateItemOutput{}, nil
}

func (f *fakeDDB) DeleteItem(_ context.Context, params *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	f.deleteInputs = append(f.deleteInputs, params)
	return &dynamodb.DeleteItemOutput{}, nil
}

func (f *fakeDDB) GetItem(_ context.Context, params *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	f.getInputs = append(f.getInputs, params)
	if f.getOutput != nil {
		return f.getOutput, nil
	}
	return &dynamodb.GetItemOutput{}, nil
}

func (f *fakeDDB) Scan(_ context.Context, params *dynamodb.ScanInput, _ ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	f.scanInputs = append(f.scanInputs, params)
	return &dynamodb.ScanOutput{}, nil
}

func (f *fakeDDB) BatchWriteItem(_ context.Context, params *dynamodb.BatchWriteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error) {
	f.batchInputs = append(f.batchInputs, params)
	out := &dynamodb.BatchWriteItemOutput{}
	if len(f.batchUnprocessed) > 0 {
		out.UnprocessedItems = f.batchUnprocessed[0]
		f.batchUnprocessed = f.batchUnprocessed[1:]
	}
	return out, nil
}

type testEncryptor struct {
	fail error
}

func (e *testEncryptor) Encrypt(_ context.Context, plaintext []byte, _ string, _ map[string]string) ([]byte, error) {
	if e.fail != nil {
		return nil, e.fail
	}
	return append([]byte("enc:"), plaintext...), nil
}

func orderEntity(t *testing.T) *entity.Metadata {
	t.Helper()
	m, err := entity.New("orders").
		Property(entity.Property{Name: "OrderID", Attribute: "pk", Type: entity.TypeString, PartitionKey: true}).
		Property(entity.Property{Name: "Kind", Attribute: "sk", Type: entity.TypeString, SortKey: true}).
		Property(entity.Property{Name: "Amount", Attribute: "amount", Type: entity.TypeNumber, Format: "F2"}).
		Property(entity.Property{Name: "Status", Attribute: "status", Type: entity.TypeString}).
		Property(entity.Property{Name: "CardNumber", Attribute: "card_number", Type: entity.TypeString, Sensitive: true, Encrypted: true}).
		Discriminator(entity.MustDiscriminator("entity_type", "ORDER", "")).
		GSI(entity.GSI{Name: "by-status", PartitionKey: "status", SortKey: "amount"}).
		Build()
	require.NoError(t, err)
	return m
}

func TestQuery_WiresExpression(t *testing.T) {
	fake := &fakeDDB{}
	c := client.New(fake)
	m := orderEntity(t)

	_, err := c.NewQuery(m, "o-1", client.BeginsWith("2024")).Next(context.Background())
	require.NoError(t, err)

	require.Len(t, fake.queryInputs, 1)
	in := fake.queryInputs[0]
	assert.Equal(t, "orders", aws.ToString(in.TableName))
	assert.Equal(t, "#n0 = :p0 AND begins_with(#n1, :p1)", aws.ToString(in.KeyConditionExpression))
	// the discriminator clause lands in the filter, never the key condition
	assert.Equal(t, "#n2 = :p2", aws.ToString(in.FilterExpression))
	assert.Equal(t, map[string]string{"#n0": "pk", "#n1": "sk", "#n2": "entity_type"}, in.ExpressionAttributeNames)
	assert.Equal(t, &types.AttributeValueMemberS{Value: "ORDER"}, in.ExpressionAttributeValues[":p2"])
	assert.True(t, *in.ConsistentRead)
	assert.Equal(t, int32(10), *in.Limit)
	assert.True(t, *in.ScanIndexForward)
	assert.Nil(t, in.IndexName)
}

func TestQuery_Paging(t *testing.T) {
	cursor := map[string]types.AttributeValue{"pk": &types.AttributeValueMemberS{Value: "o-1"}}
	fake := &fakeDDB{queryOutputs: []*dynamodb.QueryOutput{
		{
			Items:            []client.Item{{"pk": &types.AttributeValueMemberS{Value: "o-1"}}},
			LastEvaluatedKey: cursor,
		},
		{
			Items: []client.Item{{"pk": &types.AttributeValueMemberS{Value: "o-2"}}},
		},
	}}
	c := client.New(fake)
	m := orderEntity(t)

	res, err := c.NewQuery(m, "o-1", nil).All(context.Background())
	require.NoError(t, err)
	assert.Len(t, res.Items, 2)
	assert.True(t, res.IsDone)

	require.Len(t, fake.queryInputs, 2)
	assert.Nil(t, fake.queryInputs[0].ExclusiveStartKey)
	assert.Equal(t, cursor, fake.queryInputs[1].ExclusiveStartKey)
}

func TestQuery_GSI(t *testing.T) {
	fake := &fakeDDB{}
	c := client.New(fake)
	m := orderEntity(t)

	_, err := c.NewQuery(m, "OPEN", client.GreaterThan(10.0)).
		WithGSI("by-status").
		WithDescending().
		WithEventuallyConsistentReads().
		Next(context.Background())
	require.NoError(t, err)

	in := fake.queryInputs[0]
	assert.Equal(t, "by-status", *in.IndexName)
	assert.Equal(t, "#n0 = :p0 AND #n1 > :p1", *in.KeyConditionExpression)
	assert.Equal(t, "status", in.ExpressionAttributeNames["#n0"])
	// GSI sort key is formatted, so the literal renders as its string form
	assert.Equal(t, &types.AttributeValueMemberS{Value: "10.00"}, in.ExpressionAttributeValues[":p1"])
	assert.False(t, *in.ConsistentRead)
	assert.False(t, *in.ScanIndexForward)
}

func TestQuery_UnknownIndex(t *testing.T) {
	c := client.New(&fakeDDB{})
	m := orderEntity(t)

	_, err := c.NewQuery(m, "x", nil).WithGSI("nope").Next(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown index")
}

func TestPutItem_StampsDiscriminator(t *testing.T) {
	fake := &fakeDDB{}
	c := client.New(fake, client.WithEncryptor(&testEncryptor{}))
	m := orderEntity(t)

	put := client.NewPut(m).
		Value("OrderID", "o-1").
		Value("Kind", "2024#001").
		Value("Amount", 10.5).
		Value("CardNumber", "4111-1111")
	require.NoError(t, c.PutItem(context.Background(), put))

	require.Len(t, fake.putInputs, 1)
	item := fake.putInputs[0].Item
	assert.Equal(t, &types.AttributeValueMemberS{Value: "ORDER"}, item["entity_type"])
	assert.Equal(t, &types.AttributeValueMemberS{Value: "10.50"}, item["amount"])
	assert.Equal(t, &types.AttributeValueMemberB{Value: []byte("enc:4111-1111")}, item["card_number"])
}

func TestPutItem_ValidatesPatternDiscriminator(t *testing.T) {
	m, err := entity.New("orders").
		Property(entity.Property{Name: "OrderID", Attribute: "pk", Type: entity.TypeString, PartitionKey: true}).
		Property(entity.Property{Name: "Kind", Attribute: "sk", Type: entity.TypeString, SortKey: true}).
		Discriminator(entity.MustDiscriminator("sk", "", "ORDER#*")).
		Build()
	require.NoError(t, err)

	fake := &fakeDDB{}
	c := client.New(fake)

	good := client.NewPut(m).Value("OrderID", "o-1").Value("Kind", "ORDER#1")
	require.NoError(t, c.PutItem(context.Background(), good))

	bad := client.NewPut(m).Value("OrderID", "o-1").Value("Kind", "USER#1")
	err = c.PutItem(context.Background(), bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not match discriminator")
	assert.Len(t, fake.putInputs, 1, "rejected put must not reach the wire")
}

func TestPutItem_ConditionalWrite(t *testing.T) {
	fake := &fakeDDB{}
	c := client.New(fake)
	m := orderEntity(t)

	put := client.NewPut(m).
		Value("OrderID", "o-1").
		Value("Kind", "2024#001").
		Where(predicate.NotExists("OrderID"))
	require.NoError(t, c.PutItem(context.Background(), put))

	in := fake.putInputs[0]
	assert.Equal(t, "attribute_not_exists(#n0)", *in.ConditionExpression)
	assert.Equal(t, "pk", in.ExpressionAttributeNames["#n0"])
}

func TestPutItem_MissingEncryptor(t *testing.T) {
	fake := &fakeDDB{}
	c := client.New(fake)
	m := orderEntity(t)

	put := client.NewPut(m).Value("OrderID", "o-1").Value("CardNumber", "4111-1111")
	err := c.PutItem(context.Background(), put)
	require.ErrorIs(t, err, compiler.ErrMissingEncryptionProvider)
	assert.Empty(t, fake.putInputs)
}

func TestUpdateItem_ResolvesEncryption(t *testing.T) {
	fake := &fakeDDB{}
	c := client.New(fake, client.WithEncryptor(&testEncryptor{}))
	m := orderEntity(t)

	key := client.NewKey(m, "o-1", "2024#001")
	u := compiler.NewUpdate(m).Set("CardNumber", "4111-1111")
	require.NoError(t, c.UpdateItem(context.Background(), key, u))

	require.Len(t, fake.updateInputs, 1)
	in := fake.updateInputs[0]
	assert.Equal(t, "SET #n0 = :p0", *in.UpdateExpression)
	assert.Equal(t, &types.AttributeValueMemberB{Value: []byte("enc:4111-1111")}, in.ExpressionAttributeValues[":p0"])
	assert.Equal(t, map[string]types.AttributeValue{
		"pk": &types.AttributeValueMemberS{Value: "o-1"},
		"sk": &types.AttributeValueMemberS{Value: "2024#001"},
	}, in.Key)
}

func TestUpdateItem_MissingEncryptorFailsBeforeWire(t *testing.T) {
	fake := &fakeDDB{}
	c := client.New(fake)
	m := orderEntity(t)

	key := client.NewKey(m, "o-1", "2024#001")
	u := compiler.NewUpdate(m).Set("CardNumber", "4111-1111")
	err := c.UpdateItem(context.Background(), key, u)
	require.ErrorIs(t, err, compiler.ErrMissingEncryptionProvider)
	assert.Empty(t, fake.updateInputs)
}

func TestDeleteItem_Conditional(t *testing.T) {
	fake := &fakeDDB{}
	c := client.New(fake)
	m := orderEntity(t)

	key := client.NewKey(m, "o-1", "2024#001")
	require.NoError(t, c.DeleteItem(context.Background(), key, predicate.Eq("Status", "CANCELLED")))

	in := fake.deleteInputs[0]
	assert.Equal(t, "#n0 = :p0", *in.ConditionExpression)
	assert.Equal(t, "status", in.ExpressionAttributeNames["#n0"])
}

func TestGetItem_Projection(t *testing.T) {
	fake := &fakeDDB{getOutput: &dynamodb.GetItemOutput{
		Item: client.Item{"status": &types.AttributeValueMemberS{Value: "OPEN"}},
	}}
	c := client.New(fake)
	m := orderEntity(t)

	key := client.NewKey(m, "o-1", "2024#001")
	item, err := c.GetItem(context.Background(), key, "Status", "Amount")
	require.NoError(t, err)
	assert.Equal(t, &types.AttributeValueMemberS{Value: "OPEN"}, item["status"])

	in := fake.getInputs[0]
	assert.Equal(t, "#n0, #n1", *in.ProjectionExpression)
	assert.Equal(t, map[string]string{"#n0": "status", "#n1": "amount"}, in.ExpressionAttributeNames)
	assert.True(t, *in.ConsistentRead)
}

func TestKey_DDB(t *testing.T) {
	m := orderEntity(t)

	key := client.NewKey(m, "o-1", nil)
	_, err := key.DDB()
	require.Error(t, err, "sort key value is required when the entity declares one")

	pkOnly, err := entity.New("t").
		Property(entity.Property{Name: "ID", Attribute: "pk", Type: entity.TypeString, PartitionKey: true}).
		Build()
	require.NoError(t, err)
	_, err = client.NewKey(pkOnly, "a", "b").DDB()
	require.Error(t, err, "sort value on a table without a sort key")

	attrs, err := client.NewKey(pkOnly, "a", nil).DDB()
	require.NoError(t, err)
	assert.Equal(t, map[string]types.AttributeValue{"pk": &types.AttributeValueMemberS{Value: "a"}}, attrs)
}

func TestScan_IncludesDiscriminator(t *testing.T) {
	fake := &fakeDDB{}
	c := client.New(fake)
	m := orderEntity(t)

	_, err := c.NewScan(m).WithFilter(predicate.Eq("Status", "OPEN")).Next(context.Background())
	require.NoError(t, err)

	require.Len(t, fake.scanInputs, 1)
	in := fake.scanInputs[0]
	assert.Equal(t, "#n0 = :p0 AND #n1 = :p1", *in.FilterExpression)
	assert.Equal(t, map[string]string{"#n0": "status", "#n1": "entity_type"}, in.ExpressionAttributeNames)
	assert.Equal(t, &types.AttributeValueMemberS{Value: "ORDER"}, in.ExpressionAttributeValues[":p1"])
}

func TestBatch_PutAndDelete(t *testing.T) {
	fake := &fakeDDB{}
	c := client.New(fake)
	m := orderEntity(t)

	b := c.NewBatch()
	put := client.NewPut(m).Value("OrderID", "o-1").Value("Kind", "2024#001")
	require.NoError(t, b.Put(context.Background(), put))
	require.NoError(t, b.Delete(client.NewKey(m, "o-2", "2024#002")))

	res, err := b.Exec(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Done())
	require.NoError(t, res.Err())

	require.Len(t, fake.batchInputs, 1)
	reqs := fake.batchInputs[0].RequestItems["orders"]
	require.Len(t, reqs, 2)
	assert.NotNil(t, reqs[0].PutRequest)
	// discriminator stamping applies to batched puts too
	assert.Equal(t, &types.AttributeValueMemberS{Value: "ORDER"}, reqs[0].PutRequest.Item["entity_type"])
	assert.NotNil(t, reqs[1].DeleteRequest)
}

func TestBatch_UnprocessedStayPending(t *testing.T) {
	leftover := map[string][]types.WriteRequest{
		"orders": {{DeleteRequest: &types.DeleteRequest{Key: map[string]types.AttributeValue{
			"pk": &types.AttributeValueMemberS{Value: "o-1"},
			"sk": &types.AttributeValueMemberS{Value: "2024#001"},
		}}}},
	}
	fake := &fakeDDB{batchUnprocessed: []map[string][]types.WriteRequest{leftover}}
	c := client.New(fake)
	m := orderEntity(t)

	b := c.NewBatch()
	require.NoError(t, b.Delete(client.NewKey(m, "o-1", "2024#001")))

	res, err := b.Exec(context.Background())
	require.NoError(t, err)
	assert.False(t, res.Done())
	require.Error(t, res.Err())

	// leftovers are resent on the next caller-driven attempt
	res, err = b.Exec(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Done())
	require.Len(t, fake.batchInputs, 2)
	assert.Equal(t, leftover, fake.batchInputs[1].RequestItems)
}

func TestBatch_Rejects(t *testing.T) {
	fake := &fakeDDB{}
	c := client.New(fake)
	m := orderEntity(t)

	b := c.NewBatch()
	require.NoError(t, b.Delete(client.NewKey(m, "o-1", "2024#001")))

	err := b.Delete(client.NewKey(m, "o-1", "2024#001"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate key")

	conditional := client.NewPut(m).
		Value("OrderID", "o-3").
		Value("Kind", "2024#003").
		Where(predicate.NotExists("OrderID"))
	err = b.Put(context.Background(), conditional)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "conditions")
}
