package kvstore

import (
	"encoding/json"
	"fmt"

	"github.com/supabase-community/supabase-go"
)

// DefaultTable is the key-value table behind the bot: one row per key,
// value stored as jsonb.
const DefaultTable = "bot_kv"

type row struct {
	Key   string          `json:"key"`
	Value json.RawMessage `json:"value"`
}

// Client is a thin key-value view over a Supabase table reached through its
// authenticated HTTP API. Missing credentials are handled by the callers
// (repositories treat a nil client as a permanently unreachable store).
type Client struct {
	client *supabase.Client
	table  string
}

func NewClient(url, apiKey, table string) (*Client, error) {
	if url == "" || apiKey == "" {
		return nil, fmt.Errorf("supabase URL and API key are required")
	}
	if table == "" {
		table = DefaultTable
	}

	client, err := supabase.NewClient(url, apiKey, nil)
	if err != nil {
		return nil, fmt.Errorf("creating supabase client: %w", err)
	}

	return &Client{client: client, table: table}, nil
}

// GetItem returns the raw value stored under key. The second result is
// false when the key is absent.
func (c *Client) GetItem(key string) (json.RawMessage, bool, error) {
	var rows []row
	_, err := c.client.From(c.table).
		Select("key,value", "", false).
		Eq("key", key).
		ExecuteTo(&rows)
	if err != nil {
		return nil, false, fmt.Errorf("fetching item %q: %w", key, err)
	}

	if len(rows) == 0 {
		return nil, false, nil
	}
	return rows[0].Value, true, nil
}

// GetItems returns the values for the given keys; absent keys are simply
// missing from the result map.
func (c *Client) GetItems(keys []string) (map[string]json.RawMessage, error) {
	if len(keys) == 0 {
		return map[string]json.RawMessage{}, nil
	}

	var rows []row
	_, err := c.client.From(c.table).
		Select("key,value", "", false).
		In("key", keys).
		ExecuteTo(&rows)
	if err != nil {
		return nil, fmt.Errorf("fetching items: %w", err)
	}

	items := make(map[string]json.RawMessage, len(rows))
	for _, r := range rows {
		items[r.Key] = r.Value
	}
	return items, nil
}

// SetItem upserts value under key. value is marshaled to JSON.
func (c *Client) SetItem(key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshaling value for %q: %w", key, err)
	}

	_, _, err = c.client.From(c.table).
		Insert(row{Key: key, Value: data}, true, "key", "minimal", "").
		Execute()
	if err != nil {
		return fmt.Errorf("upserting item %q: %w", key, err)
	}
	return nil
}

// DeleteItem removes key. Deleting an absent key is not an error.
func (c *Client) DeleteItem(key string) error {
	_, _, err := c.client.From(c.table).
		Delete("minimal", "").
		Eq("key", key).
		Execute()
	if err != nil {
		return fmt.Errorf("deleting item %q: %w", key, err)
	}
	return nil
}
