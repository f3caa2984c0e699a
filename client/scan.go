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

// Scanner pages through every item of an entity. The scope's
// discriminator is compiled into the filter, so scanning a shared table
// only yields items of this entity type.
type Scanner struct {
	c    *Client
	meta *entity.Metadata

	lastCursor map[string]types.AttributeValue

	pageSize   int32
	indexName  string
	filters    []predicate.Node
	projection []string
}

// NewScan starts a full scan for the entity's items.
func (c *Client) NewScan(meta *entity.Metadata) *Scanner {
	return &Scanner{c: c, meta: meta, pageSize: defaultPageSize}
}

// WithFilter adds a filter predicate. Chained calls merge with AND.
func (s *Scanner) WithFilter(n predicate.Node) *Scanner {
	s.filters = append(s.filters, n)
	return s
}

// WithGSI scans a Global Secondary Index.
func (s *Scanner) WithGSI(name string) *Scanner {
	s.indexName = name
	return s
}

// WithPageSize overrides the page size.
func (s *Scanner) WithPageSize(limit int) *Scanner {
	s.pageSize = int32(limit)
	return s
}

// WithProjection limits the attributes returned in the response.
func (s *Scanner) WithProjection(properties ...string) *Scanner {
	s.projection = properties
	return s
}

// Next fetches the next page.
func (s *Scanner) Next(ctx context.Context) (*QueryResult, error) {
	compiled, err := s.compile()
	if err != nil {
		return nil, err
	}

	s.c.log.Debug().
		Str("request_id", uuid.NewString()).
		Str("table", s.meta.TableName()).
		Object("expression", compiled.LogView()).
		Msg("scan")

	res, err := s.c.awsddb.Scan(ctx, &dynamodb.ScanInput{
		TableName:                 ptr(s.meta.TableName()),
		IndexName:                 optional(s.indexName),
		FilterExpression:          optional(compiled.Condition),
		ProjectionExpression:      optional(compiled.Projection),
		ExpressionAttributeNames:  emptyToNil(compiled.Names),
		ExpressionAttributeValues: emptyToNil(compiled.Values),
		Limit:                     ptr(s.pageSize),
		ExclusiveStartKey:         s.lastCursor,
	})
	if err != nil {
		return nil, fmt.Errorf("scan failed: %w", err)
	}

	s.lastCursor = res.LastEvaluatedKey
	return &QueryResult{
		Items:  res.Items,
		IsDone: res.LastEvaluatedKey == nil,
	}, nil
}

// All drains the cursor and returns every matching item.
func (s *Scanner) All(ctx context.Context) (*QueryResult, error) {
	var items []Item
	for {
		res, err := s.Next(ctx)
		if err != nil {
			return nil, err
		}
		items = append(items, res.Items...)
		if res.IsDone {
			return &QueryResult{Items: items, IsDone: true}, nil
		}
	}
}

func (s *Scanner) compile() (*compiler.Compiled, error) {
	c := compiler.New(s.meta).IncludeDiscriminator()
	if s.indexName != "" {
		c = c.WithIndex(s.indexName)
	}
	for _, f := range s.filters {
		c = c.Where(f)
	}
	if len(s.projection) > 0 {
		c = c.Projection(s.projection...)
	}
	return c.Build()
}

// the SDK rejects empty expression maps, nil means absent
func emptyToNil[K comparable, V any](m map[K]V) map[K]V {
	if len(m) == 0 {
		return nil
	}
	return m
}
