package store

import (
	"context"
	"strings"

	"github.com/jrsteele09/trigpoint-web/backend"
	apperrors "github.com/jrsteele09/trigpoint-web/internal/errors"
	"github.com/jrsteele09/trigpoint-web/internal/routes"
	"github.com/jrsteele09/trigpoint-web/internal/utils"
	"github.com/jrsteele09/trigpoint-web/pageload"
)

// DefaultShedName is used when the create form leaves the name blank.
const DefaultShedName = "NEW SHED"

// ShedsAPI is the shed part of the backend.
type ShedsAPI interface {
	ListSheds(ctx context.Context, accessToken string) ([]backend.Shed, error)
	GetShed(ctx context.Context, accessToken, shedID string) (backend.Shed, error)
	CreateShed(ctx context.Context, accessToken string, in backend.ShedInput) (backend.Shed, error)
	DeleteShed(ctx context.Context, accessToken, shedID string) error
	ListShedBikes(ctx context.Context, accessToken, shedID string) ([]backend.Bike, error)
	AddBikeToShed(ctx context.Context, accessToken, shedID, bikeID string) error
	RemoveBikeFromShed(ctx context.Context, accessToken, shedID, bikeID string) error
}

// ShedStore caches the user's sheds.
type ShedStore = Store[backend.Shed, backend.ShedInput]

type shedResource struct {
	api ShedsAPI
}

func (r shedResource) List(ctx context.Context, tok string) ([]backend.Shed, error) {
	return r.api.ListSheds(ctx, tok)
}

func (r shedResource) Get(ctx context.Context, tok, id string) (backend.Shed, error) {
	return r.api.GetShed(ctx, tok, id)
}

func (r shedResource) Create(ctx context.Context, tok string, in backend.ShedInput) (backend.Shed, error) {
	return r.api.CreateShed(ctx, tok, in)
}

func (r shedResource) Delete(ctx context.Context, tok, id string) error {
	return r.api.DeleteShed(ctx, tok, id)
}

var shedLabels = Labels{
	Singular:      "shed",
	Plural:        "sheds",
	Created:       "Shed created.",
	Deleted:       "Shed deleted.",
	LoadingDetail: "Loading shed...",
}

func NewShedStore(api ShedsAPI, creds Credentials, nav pageload.Navigator) *ShedStore {
	return New(Config[backend.Shed, backend.ShedInput]{
		Resource:    shedResource{api: api},
		Credentials: creds,
		Navigator:   nav,
		Labels:      shedLabels,
		DetailRoute: routes.Shed,
	})
}

// NormalizeShedInput applies the create form defaults: a blank name becomes
// DefaultShedName, a blank description is sent as null and a blank
// visibility is private.
func NormalizeShedInput(name, description, visibility string) (backend.ShedInput, error) {
	in := backend.ShedInput{
		Name:        strings.TrimSpace(name),
		Description: utils.NonZero(strings.TrimSpace(description)),
		Visibility:  backend.Visibility(strings.ToLower(strings.TrimSpace(visibility))),
	}
	if in.Name == "" {
		in.Name = DefaultShedName
	}
	if in.Visibility == "" {
		in.Visibility = backend.VisibilityPrivate
	}
	if !in.Visibility.Valid() {
		return backend.ShedInput{}, apperrors.Validation("Visibility must be private, unlisted or public.")
	}
	return in, nil
}
