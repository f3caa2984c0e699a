package client

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// maxBatchItems is the BatchWriteItem request cap imposed by DynamoDB.
const maxBatchItems = 25

// Batch accumulates puts and deletes across tables and writes them with
// one BatchWriteItem call. Put values run the full item pipeline:
// coercion, discriminator stamping, and encryption all apply exactly as
// in PutItem. Conditions are not supported on batch writes, and retrying
// unprocessed items is the caller's concern.
type Batch struct {
	c *Client

	pending map[string][]types.WriteRequest
	// primary keys per table, parallel to pending, for dedupe
	keys  map[string][]map[string]types.AttributeValue
	count int
}

// NewBatch starts an empty batch.
func (c *Client) NewBatch() *Batch {
	return &Batch{
		c:       c,
		pending: make(map[string][]types.WriteRequest),
		keys:    make(map[string][]map[string]types.AttributeValue),
	}
}

// Put adds an item write to the batch. Fails on conditional puts, on a
// duplicate primary key within the batch, and when the batch is full.
func (b *Batch) Put(ctx context.Context, p *Put) error {
	if len(p.conds) > 0 {
		return fmt.Errorf("batch writes cannot carry conditions")
	}
	item, err := b.c.buildItem(ctx, p.meta, p.values)
	if err != nil {
		return err
	}
	key, err := itemKey(p, item)
	if err != nil {
		return err
	}
	return b.add(p.meta.TableName(), key, types.WriteRequest{
		PutRequest: &types.PutRequest{Item: item},
	})
}

// Delete adds an item removal to the batch.
func (b *Batch) Delete(key Key) error {
	attrs, err := key.DDB()
	if err != nil {
		return err
	}
	return b.add(key.meta.TableName(), attrs, types.WriteRequest{
		DeleteRequest: &types.DeleteRequest{Key: attrs},
	})
}

func (b *Batch) add(table string, key map[string]types.AttributeValue, req types.WriteRequest) error {
	if b.count >= maxBatchItems {
		return fmt.Errorf("batch is full (%d items)", maxBatchItems)
	}
	for _, existing := range b.keys[table] {
		if keysEqual(key, existing) {
			return fmt.Errorf("duplicate key in batch for table %q", table)
		}
	}
	b.pending[table] = append(b.pending[table], req)
	b.keys[table] = append(b.keys[table], key)
	b.count++
	return nil
}

// BatchResult reports the outcome of one Exec call.
type BatchResult struct {
	Unprocessed map[string][]types.WriteRequest
}

// Done reports whether every request was accepted.
func (r BatchResult) Done() bool { return len(r.Unprocessed) == 0 }

// Err returns nil when Done, an error describing the leftovers otherwise.
func (r BatchResult) Err() error {
	if r.Done() {
		return nil
	}
	return fmt.Errorf("batch incomplete: %d items unprocessed", countRequests(r.Unprocessed))
}

// Exec writes the pending requests once. Requests the service did not
// accept stay pending, so a caller-driven retry can call Exec again.
func (b *Batch) Exec(ctx context.Context) (BatchResult, error) {
	if len(b.pending) == 0 {
		return BatchResult{}, nil
	}
	res, err := b.c.awsddb.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
		RequestItems: b.pending,
	})
	if err != nil {
		return BatchResult{Unprocessed: b.pending}, fmt.Errorf("batch write: %w", err)
	}
	b.pending = res.UnprocessedItems
	if b.pending == nil {
		b.pending = make(map[string][]types.WriteRequest)
	}
	return BatchResult{Unprocessed: b.pending}, nil
}

// itemKey extracts the primary key attributes from a built item.
func itemKey(p *Put, item Item) (map[string]types.AttributeValue, error) {
	pk := p.meta.PartitionKey()
	if pk == nil {
		return nil, fmt.Errorf("entity %q has no partition key", p.meta.TableName())
	}
	pav, ok := item[pk.Attribute]
	if !ok {
		return nil, fmt.Errorf("partition key %q is not set on the item", pk.Name)
	}
	key := map[string]types.AttributeValue{pk.Attribute: pav}
	if sk := p.meta.SortKey(); sk != nil {
		sav, ok := item[sk.Attribute]
		if !ok {
			return nil, fmt.Errorf("sort key %q is not set on the item", sk.Name)
		}
		key[sk.Attribute] = sav
	}
	return key, nil
}

func keysEqual(a, b map[string]types.AttributeValue) bool {
	if len(a) != len(b) {
		return false
	}
	for k, av := range a {
		bv, ok := b[k]
		if !ok || !scalarEqual(av, bv) {
			return false
		}
	}
	return true
}

// scalarEqual compares the attribute types legal in primary keys.
func scalarEqual(a, b types.AttributeValue) bool {
	switch av := a.(type) {
	case *types.AttributeValueMemberS:
		if bv, ok := b.(*types.AttributeValueMemberS); ok {
			return av.Value == bv.Value
		}
	case *types.AttributeValueMemberN:
		if bv, ok := b.(*types.AttributeValueMemberN); ok {
			return av.Value == bv.Value
		}
	case *types.AttributeValueMemberB:
		if bv, ok := b.(*types.AttributeValueMemberB); ok {
			return string(av.Value) == string(bv.Value)
		}
	}
	return false
}

func countRequests(m map[string][]types.WriteRequest) int {
	var n int
	for _, reqs := range m {
		n += len(reqs)
	}
	return n
}
