package backend

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
)

// ListBikes returns the caller's bikes in server order (GET /bikes).
func (c *Client) ListBikes(ctx context.Context, accessToken string) ([]Bike, error) {
	var bikes []Bike
	err := c.do(ctx, request{method: http.MethodGet, path: "/bikes", accessToken: accessToken}, &bikes)
	if err != nil {
		return nil, err
	}
	return bikes, nil
}

// GetBike returns one bike (GET /bikes/{id}).
func (c *Client) GetBike(ctx context.Context, accessToken, bikeID string) (Bike, error) {
	var bike Bike
	err := c.do(ctx, request{method: http.MethodGet, path: "/bikes/" + escape(bikeID), accessToken: accessToken}, &bike)
	return bike, err
}

// CreateBike creates a bike and returns it with its server-issued id (POST /bikes).
func (c *Client) CreateBike(ctx context.Context, accessToken string, in BikeInput) (Bike, error) {
	var bike Bike
	err := c.do(ctx, request{method: http.MethodPost, path: "/bikes", accessToken: accessToken, jsonBody: in}, &bike)
	return bike, err
}

// DeleteBike removes a bike (DELETE /bikes/{id}).
func (c *Client) DeleteBike(ctx context.Context, accessToken, bikeID string) error {
	return c.do(ctx, request{method: http.MethodDelete, path: "/bikes/" + escape(bikeID), accessToken: accessToken}, nil)
}

// UploadHero uploads the bike's primary photo (POST /bikes/{id}/media/hero).
func (c *Client) UploadHero(ctx context.Context, accessToken, bikeID string, media Media) (*UploadResult, error) {
	body, contentType, err := multipartFile("file", media)
	if err != nil {
		return nil, err
	}

	var result UploadResult
	err = c.do(ctx, request{
		method:      http.MethodPost,
		path:        "/bikes/" + escape(bikeID) + "/media/hero",
		accessToken: accessToken,
		body:        body,
		contentType: contentType,
		timeout:     c.uploadTimeout,
	}, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// Kinematics runs the suspension solver for a bike (GET /bikes/{id}/kinematics).
func (c *Client) Kinematics(ctx context.Context, accessToken, bikeID string) (*Kinematics, error) {
	var result Kinematics
	err := c.do(ctx, request{method: http.MethodGet, path: "/bikes/" + escape(bikeID) + "/kinematics", accessToken: accessToken}, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func multipartFile(field string, media Media) (*bytes.Buffer, string, error) {
	filename := media.Filename
	if filename == "" {
		filename = "image"
	}
	contentType := media.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		quoteEscaper.Replace(field), quoteEscaper.Replace(filename)))
	header.Set("Content-Type", contentType)

	part, err := mw.CreatePart(header)
	if err != nil {
		return nil, "", fmt.Errorf("[backend] create multipart part: %w", err)
	}
	if _, err := part.Write(media.Data); err != nil {
		return nil, "", fmt.Errorf("[backend] write multipart part: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, "", fmt.Errorf("[backend] close multipart writer: %w", err)
	}
	return &buf, mw.FormDataContentType(), nil
}
