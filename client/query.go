package client

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"

	"github.com/halvard/ddbexpr/compiler"
	"github.com/halvard/ddbexpr/entity"
	"github.com/halvard/ddbexpr/predicate"
)

// Querier pages through the items matching a key condition. The
// entity's discriminator for the active scope is injected into the
// filter automatically, so multi-entity tables never leak foreign
// items into results.
type Querier struct {
	c    *Client
	meta *entity.Metadata

	partition any
	strategy  SortKeyStrategy

	// internal, not exposed to user
	lastCursor map[string]types.AttributeValue

	opts queryOptions
}

type queryOptions struct {
	// consistent reads by default; opting out is explicit
	eventuallyConsistent bool
	pageSize             int32
	descending           bool
	indexName            string
	filters              []predicate.Node
	projection           []string
}

const defaultPageSize = 10

// NewQuery starts a query for items whose partition key equals
// partition; strategy narrows the sort key and may be nil.
func (c *Client) NewQuery(meta *entity.Metadata, partition any, strategy SortKeyStrategy) *Querier {
	return &Querier{
		c:         c,
		meta:      meta,
		partition: partition,
		strategy:  strategy,
		opts:      queryOptions{pageSize: defaultPageSize},
	}
}

// QueryResult is one page of items.
type QueryResult struct {
	Items  []Item
	IsDone bool
}

// Next fetches the next page.
func (q *Querier) Next(ctx context.Context) (*QueryResult, error) {
	compiled, err := q.compile()
	if err != nil {
		return nil, err
	}

	q.c.log.Debug().
		Str("request_id", uuid.NewString()).
		Str("table", q.meta.TableName()).
		Object("expression", compiled.LogView()).
		Msg("query")

	res, err := q.c.awsddb.Query(ctx, &dynamodb.QueryInput{
		TableName:                 ptr(q.meta.TableName()),
		IndexName:                 optional(q.opts.indexName),
		KeyConditionExpression:    optional(compiled.KeyCondition),
		FilterExpression:          optional(compiled.Filter),
		ProjectionExpression:      optional(compiled.Projection),
		ExpressionAttributeNames:  compiled.Names,
		ExpressionAttributeValues: compiled.Values,
		ConsistentRead:            ptr(!q.opts.eventuallyConsistent && q.opts.indexName == ""),
		Limit:                     ptr(q.opts.pageSize),
		ScanIndexForward:          ptr(!q.opts.descending),
		ExclusiveStartKey:         q.lastCursor,
	})
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}

	q.lastCursor = res.LastEvaluatedKey
	return &QueryResult{
		Items:  res.Items,
		IsDone: res.LastEvaluatedKey == nil,
	}, nil
}

// All drains the cursor and returns every matching item.
func (q *Querier) All(ctx context.Context) (*QueryResult, error) {
	var items []Item
	for {
		res, err := q.Next(ctx)
		if err != nil {
			return nil, err
		}
		items = append(items, res.Items...)
		if res.IsDone {
			return &QueryResult{Items: items, IsDone: true}, nil
		}
	}
}

func (q *Querier) compile() (*compiler.Compiled, error) {
	pkProp, skProp, err := q.keyProperties()
	if err != nil {
		return nil, err
	}
	keyCond := predicate.Eq(pkProp, q.partition)
	if q.strategy != nil {
		if skProp == "" {
			return nil, fmt.Errorf("no sort key to apply strategy to on table %q", q.meta.TableName())
		}
		keyCond = predicate.And(keyCond, q.strategy(skProp))
	}

	c := compiler.New(q.meta).KeyCondition(keyCond)
	if q.opts.indexName != "" {
		c = c.WithIndex(q.opts.indexName)
	}
	for _, f := range q.opts.filters {
		c = c.Where(f)
	}
	if len(q.opts.projection) > 0 {
		c = c.Projection(q.opts.projection...)
	}
	return c.Build()
}

// keyProperties resolves the logical property names of the active key
// pair: the table's, or the GSI's when one is selected.
func (q *Querier) keyProperties() (string, string, error) {
	if q.opts.indexName == "" {
		pk := q.meta.PartitionKey()
		if pk == nil {
			return "", "", fmt.Errorf("entity %q has no partition key", q.meta.TableName())
		}
		var sk string
		if s := q.meta.SortKey(); s != nil {
			sk = s.Name
		}
		return pk.Name, sk, nil
	}
	g, ok := q.meta.GSI(q.opts.indexName)
	if !ok {
		return "", "", fmt.Errorf("unknown index %q on table %q", q.opts.indexName, q.meta.TableName())
	}
	pk, ok := q.meta.ByAttribute(g.PartitionKey)
	if !ok {
		return "", "", fmt.Errorf("index %q partition key %q is not a mapped property", g.Name, g.PartitionKey)
	}
	var sk string
	if g.SortKey != "" {
		s, ok := q.meta.ByAttribute(g.SortKey)
		if !ok {
			return "", "", fmt.Errorf("index %q sort key %q is not a mapped property", g.Name, g.SortKey)
		}
		sk = s.Name
	}
	return pk.Name, sk, nil
}

// WithFilter adds a filter predicate. Chained calls merge with AND.
func (q *Querier) WithFilter(n predicate.Node) *Querier {
	q.opts.filters = append(q.opts.filters, n)
	return q
}

// WithGSI targets a Global Secondary Index.
func (q *Querier) WithGSI(name string) *Querier {
	q.opts.indexName = name
	return q
}

// WithPageSize overrides the page size.
func (q *Querier) WithPageSize(limit int) *Querier {
	q.opts.pageSize = int32(limit)
	return q
}

// WithDescending reverses the sort order.
func (q *Querier) WithDescending() *Querier {
	q.opts.descending = true
	return q
}

// WithEventuallyConsistentReads opts out of consistent reads.
func (q *Querier) WithEventuallyConsistentReads() *Querier {
	q.opts.eventuallyConsistent = true
	return q
}

// WithProjection limits the attributes returned in the response.
func (q *Querier) WithProjection(properties ...string) *Querier {
	q.opts.projection = properties
	return q
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
