package directory

import (
	"context"
	"fmt"

	admin "google.golang.org/api/admin/directory/v1"
)

func (c *Client) CreateAlias(ctx context.Context, owner, alias string) error {
	a := &admin.Alias{Alias: c.userKey(alias)}
	if _, err := c.Directory.Users.Aliases.Insert(c.userKey(owner), a).Context(ctx).Do(); err != nil {
		return fmt.Errorf("directory: create alias %s for %s: %w", alias, owner, err)
	}
	return nil
}

// DeleteAlias removes alias. Per the resolved "alias-deletion remote-lookup
// key defect" open question, the owner username is only the user key the
// Directory API's alias-delete call is addressed to; the alias is always
// the delete target, never the owner. owner is sent as given: no
// ListAliases lookup of the alias's current owner is made.
func (c *Client) DeleteAlias(ctx context.Context, owner, alias string) error {
	if err := c.Directory.Users.Aliases.Delete(c.userKey(owner), c.userKey(alias)).Context(ctx).Do(); err != nil {
		return fmt.Errorf("directory: delete alias %s: %w", alias, err)
	}
	return nil
}

// RemoteAlias pairs an alias with the account that currently owns it.
type RemoteAlias struct {
	Alias string
	Owner string
}

// ListAliases pages through every alias in the domain, used by
// alias-resync to compute the authoritative remote alias set.
func (c *Client) ListAliases(ctx context.Context) ([]RemoteAlias, error) {
	var out []RemoteAlias
	call := c.Directory.Users.List().Customer(c.Customer).MaxResults(500)
	err := call.Pages(ctx, func(page *admin.Users) error {
		for _, u := range page.Users {
			for _, a := range u.Aliases {
				out = append(out, RemoteAlias{Alias: a, Owner: u.PrimaryEmail})
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("directory: list aliases: %w", err)
	}
	return out, nil
}
