package clients

import "context"

type Repo interface {
	Create(ctx context.Context, client *Client) error
	Update(ctx context.Context, client *Client) error
	Get(ctx context.Context, clientID string) (*Client, error)
	List(ctx context.Context, offset, limit int) ([]*Client, error)
}
