package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"palm-reader/internal/domain"
)

const (
	archivePK     = "ARCHIVE"
	skPrefixEntry = "READING#"
)

// dynamodbAPI is the subset of *dynamodb.Client used by Client.
type dynamodbAPI interface {
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, in *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// Client stores reading history in a single DynamoDB partition. Sort keys
// start with the entry timestamp, so a descending query returns newest first.
type Client struct {
	api       dynamodbAPI
	tableName string
}

func New(api dynamodbAPI, tableName string) (*Client, error) {
	if api == nil {
		return nil, errors.New("repository: api must not be nil")
	}
	if strings.TrimSpace(tableName) == "" {
		return nil, errors.New("repository: table name must not be empty")
	}
	return &Client{api: api, tableName: tableName}, nil
}

// skTimeLayout keeps every fraction digit so sort keys order like timestamps.
const skTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// entrySK returns the sort key for an entry recorded at ts.
func entrySK(ts time.Time, id string) string {
	return skPrefixEntry + ts.UTC().Format(skTimeLayout) + "#" + id
}

// Append writes a new entry. Existing keys are never overwritten.
func (c *Client) Append(ctx context.Context, entry domain.HistoryEntry) error {
	if entry.ID == "" {
		return errors.New("repository: Append: entry id is required")
	}
	item, err := entryItem(entry)
	if err != nil {
		return fmt.Errorf("repository: Append: %w", err)
	}
	_, err = c.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(c.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(PK) AND attribute_not_exists(SK)"),
	})
	if err != nil {
		return fmt.Errorf("repository: Append: %w", err)
	}
	return nil
}

// Load returns up to limit entries, newest first.
func (c *Client) Load(ctx context.Context, limit int) ([]domain.HistoryEntry, error) {
	if limit <= 0 {
		return nil, errors.New("repository: Load: limit must be positive")
	}

	entries := make([]domain.HistoryEntry, 0, limit)
	var startKey map[string]types.AttributeValue
	for {
		out, err := c.api.Query(ctx, &dynamodb.QueryInput{
			TableName:              aws.String(c.tableName),
			KeyConditionExpression: aws.String("PK = :pk AND begins_with(SK, :prefix)"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":pk":     &types.AttributeValueMemberS{Value: archivePK},
				":prefix": &types.AttributeValueMemberS{Value: skPrefixEntry},
			},
			ScanIndexForward:  aws.Bool(false),
			Limit:             aws.Int32(int32(limit - len(entries))),
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return nil, fmt.Errorf("repository: Load query: %w", err)
		}
		for _, item := range out.Items {
			entry, err := itemToEntry(item)
			if err != nil {
				return nil, fmt.Errorf("repository: Load unmarshal: %w", err)
			}
			entries = append(entries, entry)
		}
		if len(entries) >= limit || len(out.LastEvaluatedKey) == 0 {
			return entries, nil
		}
		startKey = out.LastEvaluatedKey
	}
}

func entryItem(entry domain.HistoryEntry) (map[string]types.AttributeValue, error) {
	reading, err := json.Marshal(entry.Reading)
	if err != nil {
		return nil, fmt.Errorf("marshal reading: %w", err)
	}
	return map[string]types.AttributeValue{
		"PK":           &types.AttributeValueMemberS{Value: archivePK},
		"SK":           &types.AttributeValueMemberS{Value: entrySK(entry.Date, entry.ID)},
		"id":           &types.AttributeValueMemberS{Value: entry.ID},
		"date":         &types.AttributeValueMemberS{Value: entry.Date.UTC().Format(time.RFC3339Nano)},
		"reading":      &types.AttributeValueMemberS{Value: string(reading)},
		"image":        &types.AttributeValueMemberS{Value: entry.Image},
		"dominantHand": &types.AttributeValueMemberS{Value: string(entry.DominantHand)},
	}, nil
}

// itemToEntry converts a DynamoDB attribute map to a HistoryEntry.
func itemToEntry(item map[string]types.AttributeValue) (domain.HistoryEntry, error) {
	id, err := strAttr(item, "id")
	if err != nil {
		return domain.HistoryEntry{}, err
	}
	rawDate, err := strAttr(item, "date")
	if err != nil {
		return domain.HistoryEntry{}, err
	}
	date, err := time.Parse(time.RFC3339Nano, rawDate)
	if err != nil {
		return domain.HistoryEntry{}, fmt.Errorf("repository: parse attribute %q: %w", "date", err)
	}
	rawReading, err := strAttr(item, "reading")
	if err != nil {
		return domain.HistoryEntry{}, err
	}
	var reading domain.Reading
	if err := json.Unmarshal([]byte(rawReading), &reading); err != nil {
		return domain.HistoryEntry{}, fmt.Errorf("repository: decode attribute %q: %w", "reading", err)
	}
	image, _ := strAttr(item, "image")       // allow empty
	hand, _ := strAttr(item, "dominantHand") // allow empty

	return domain.HistoryEntry{
		ID:           id,
		Date:         date,
		Reading:      reading,
		Image:        image,
		DominantHand: domain.Hand(hand),
	}, nil
}

func strAttr(item map[string]types.AttributeValue, key string) (string, error) {
	v, ok := item[key]
	if !ok {
		return "", fmt.Errorf("repository: missing attribute %q", key)
	}
	s, ok := v.(*types.AttributeValueMemberS)
	if !ok {
		return "", fmt.Errorf("repository: attribute %q is not a string", key)
	}
	return s.Value, nil
}
