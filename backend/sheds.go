package backend

import (
	"context"
	"net/http"
)

// ListSheds returns the caller's sheds (GET /sheds).
func (c *Client) ListSheds(ctx context.Context, accessToken string) ([]Shed, error) {
	var sheds []Shed
	err := c.do(ctx, request{method: http.MethodGet, path: "/sheds", accessToken: accessToken}, &sheds)
	if err != nil {
		return nil, err
	}
	return sheds, nil
}

// GetShed returns one shed (GET /sheds/{id}).
func (c *Client) GetShed(ctx context.Context, accessToken, shedID string) (Shed, error) {
	var shed Shed
	err := c.do(ctx, request{method: http.MethodGet, path: "/sheds/" + escape(shedID), accessToken: accessToken}, &shed)
	return shed, err
}

// CreateShed creates a shed (POST /sheds).
func (c *Client) CreateShed(ctx context.Context, accessToken string, in ShedInput) (Shed, error) {
	var shed Shed
	err := c.do(ctx, request{method: http.MethodPost, path: "/sheds", accessToken: accessToken, jsonBody: in}, &shed)
	return shed, err
}

// DeleteShed removes a shed (DELETE /sheds/{id}).
func (c *Client) DeleteShed(ctx context.Context, accessToken, shedID string) error {
	return c.do(ctx, request{method: http.MethodDelete, path: "/sheds/" + escape(shedID), accessToken: accessToken}, nil)
}

// ListShedBikes returns the bikes in a shed (GET /sheds/{id}/bikes).
func (c *Client) ListShedBikes(ctx context.Context, accessToken, shedID string) ([]Bike, error) {
	var bikes []Bike
	err := c.do(ctx, request{method: http.MethodGet, path: "/sheds/" + escape(shedID) + "/bikes", accessToken: accessToken}, &bikes)
	if err != nil {
		return nil, err
	}
	return bikes, nil
}

// AddBikeToShed puts a bike in a shed (POST /sheds/{id}/bikes/{bike_id}).
func (c *Client) AddBikeToShed(ctx context.Context, accessToken, shedID, bikeID string) error {
	return c.do(ctx, request{method: http.MethodPost, path: membershipPath(shedID, bikeID), accessToken: accessToken}, nil)
}

// RemoveBikeFromShed takes a bike out of a shed (DELETE /sheds/{id}/bikes/{bike_id}).
func (c *Client) RemoveBikeFromShed(ctx context.Context, accessToken, shedID, bikeID string) error {
	return c.do(ctx, request{method: http.MethodDelete, path: membershipPath(shedID, bikeID), accessToken: accessToken}, nil)
}

func membershipPath(shedID, bikeID string) string {
	return "/sheds/" + escape(shedID) + "/bikes/" + escape(bikeID)
}
