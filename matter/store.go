package matter

import (
	"context"

	"github.com/xraph/docket/id"
)

// Store is the client/matter collaborator. The engine only calls the Get
// methods; the rest let the bundled stores stand in for it.
type Store interface {
	CreateClient(ctx context.Context, c *Client) error
	GetClient(ctx context.Context, clientID id.ClientID) (*Client, error)
	CreateMatter(ctx context.Context, m *Matter) error
	GetMatter(ctx context.Context, matterID id.MatterID) (*Matter, error)
	UpdateMatter(ctx context.Context, m *Matter) error
}
