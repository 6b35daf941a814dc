package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// Entity is a space entity referencing an uploaded resource.
type Entity struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Key  string `json:"key"`
	URL  string `json:"url"`
}

// Space is one space the authenticated user can deploy into.
type Space struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// UpsertEntity creates or updates a space entity bound to an uploaded
// resource key. Create and update go through the same endpoint: passing an
// existing entityID puts the call in its update role, which keeps URL
// derivation from the resource key in one place.
func (c *Client) UpsertEntity(ctx context.Context, spaceID, entityID, key, name string) (*Entity, error) {
	body := map[string]interface{}{
		"name": name,
		"key":  key,
		"url":  c.DisplayURL(key),
	}
	if entityID != "" {
		body["id"] = entityID
	}

	var out struct {
		Entity Entity `json:"entity"`
	}
	path := fmt.Sprintf("/spaces/%s/entities", url.PathEscape(spaceID))
	if err := c.do(ctx, http.MethodPost, path, body, &out); err != nil {
		return nil, err
	}
	return &out.Entity, nil
}

// ListEntities returns the entities of a space.
func (c *Client) ListEntities(ctx context.Context, spaceID string) ([]Entity, error) {
	var out struct {
		Entities []Entity `json:"entities"`
	}
	path := fmt.Sprintf("/spaces/%s/entities", url.PathEscape(spaceID))
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Entities, nil
}

// ListSpaces returns the spaces visible to the API key. Also used as the
// harmless authenticated GET that verifies a manually supplied key.
func (c *Client) ListSpaces(ctx context.Context) ([]Space, error) {
	var out struct {
		Spaces []Space `json:"spaces"`
	}
	if err := c.do(ctx, http.MethodGet, "/spaces", nil, &out); err != nil {
		return nil, err
	}
	return out.Spaces, nil
}

// DisplayURL derives the public content URL for a stored resource key.
func (c *Client) DisplayURL(key string) string {
	return c.BaseURL + "/content/" + key
}
