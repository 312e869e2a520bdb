package directory

import (
	"context"
	"fmt"
	"strings"

	admin "google.golang.org/api/admin/directory/v1"
)

// RemoteUser is the subset of admin.User the daemon cares about.
type RemoteUser struct {
	Username    string
	FirstName   string
	LastName    string
	IsAdmin     bool
	IsSuspended bool
	DiskUsage   int64
	Creation    string
	LastLogin   string
}

func (c *Client) GetUser(ctx context.Context, username string) (*RemoteUser, error) {
	u, err := c.Directory.Users.Get(c.userKey(username)).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("directory: get user %s: %w", username, err)
	}
	return fromAdminUser(u), nil
}

func (c *Client) CreateUser(ctx context.Context, username, firstName, lastName, passwordSHA1 string) error {
	u := &admin.User{
		PrimaryEmail: c.userKey(username),
		Name:         &admin.UserName{GivenName: firstName, FamilyName: lastName},
		Password:     passwordSHA1,
		HashFunction: "SHA-1",
	}
	if _, err := c.Directory.Users.Insert(u).Context(ctx).Do(); err != nil {
		return fmt.Errorf("directory: create user %s: %w", username, err)
	}
	return nil
}

func (c *Client) DeleteUser(ctx context.Context, username string) error {
	if err := c.Directory.Users.Delete(c.userKey(username)).Context(ctx).Do(); err != nil {
		return fmt.Errorf("directory: delete user %s: %w", username, err)
	}
	return nil
}

// UpdateUser applies a sparse patch: only non-nil fields are sent, per
// the Directory API's update semantics.
type UserPatch struct {
	FirstName    *string
	LastName     *string
	Suspended    *bool
	PasswordSHA1 *string
}

func (c *Client) UpdateUser(ctx context.Context, username string, patch UserPatch) error {
	u := &admin.User{}
	if patch.FirstName != nil || patch.LastName != nil {
		u.Name = &admin.UserName{}
		if patch.FirstName != nil {
			u.Name.GivenName = *patch.FirstName
		}
		if patch.LastName != nil {
			u.Name.FamilyName = *patch.LastName
		}
	}
	if patch.Suspended != nil {
		u.Suspended = *patch.Suspended
		u.ForceSendFields = append(u.ForceSendFields, "Suspended")
	}
	if patch.PasswordSHA1 != nil {
		u.Password = *patch.PasswordSHA1
		u.HashFunction = "SHA-1"
	}
	if _, err := c.Directory.Users.Update(c.userKey(username), u).Context(ctx).Do(); err != nil {
		return fmt.Errorf("directory: update user %s: %w", username, err)
	}
	return nil
}

// ListUsers pages through every user in the configured domain, used by
// user-sync's remote-snapshot pass.
func (c *Client) ListUsers(ctx context.Context) ([]RemoteUser, error) {
	var out []RemoteUser
	call := c.Directory.Users.List().Customer(c.Customer).MaxResults(500)
	err := call.Pages(ctx, func(page *admin.Users) error {
		for _, u := range page.Users {
			out = append(out, *fromAdminUser(u))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("directory: list users: %w", err)
	}
	return out, nil
}

func (c *Client) userKey(username string) string {
	if strings.Contains(username, "@") {
		return username
	}
	return username + "@" + c.Domain
}

func fromAdminUser(u *admin.User) *RemoteUser {
	r := &RemoteUser{
		Username:    u.PrimaryEmail,
		IsAdmin:     u.IsAdmin,
		IsSuspended: u.Suspended,
	}
	if u.Name != nil {
		r.FirstName = u.Name.GivenName
		r.LastName = u.Name.FamilyName
	}
	return r
}
