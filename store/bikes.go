package store

import (
	"context"
	"strconv"
	"strings"

	"github.com/jrsteele09/trigpoint-web/backend"
	apperrors "github.com/jrsteele09/trigpoint-web/internal/errors"
	"github.com/jrsteele09/trigpoint-web/internal/routes"
	"github.com/jrsteele09/trigpoint-web/pageload"
)

// BikesAPI is the bike part of the backend.
type BikesAPI interface {
	ListBikes(ctx context.Context, accessToken string) ([]backend.Bike, error)
	GetBike(ctx context.Context, accessToken, bikeID string) (backend.Bike, error)
	CreateBike(ctx context.Context, accessToken string, in backend.BikeInput) (backend.Bike, error)
	DeleteBike(ctx context.Context, accessToken, bikeID string) error
	UploadHero(ctx context.Context, accessToken, bikeID string, media backend.Media) (*backend.UploadResult, error)
}

// MaxHeroBytes is the largest hero image accepted for upload.
const MaxHeroBytes = 5 << 20

// BikeStore caches the user's bikes.
type BikeStore = Store[backend.Bike, backend.BikeInput]

type bikeResource struct {
	api BikesAPI
}

func (r bikeResource) List(ctx context.Context, tok string) ([]backend.Bike, error) {
	return r.api.ListBikes(ctx, tok)
}

func (r bikeResource) Get(ctx context.Context, tok, id string) (backend.Bike, error) {
	return r.api.GetBike(ctx, tok, id)
}

func (r bikeResource) Create(ctx context.Context, tok string, in backend.BikeInput) (backend.Bike, error) {
	return r.api.CreateBike(ctx, tok, in)
}

func (r bikeResource) Delete(ctx context.Context, tok, id string) error {
	return r.api.DeleteBike(ctx, tok, id)
}

func (r bikeResource) UploadMedia(ctx context.Context, tok, id string, media backend.Media) (string, error) {
	res, err := r.api.UploadHero(ctx, tok, id, media)
	if err != nil {
		return "", err
	}
	if res == nil {
		return "", nil
	}
	return res.Warning, nil
}

var bikeLabels = Labels{
	Singular:           "bike",
	Plural:             "bikes",
	Created:            "Bike added.",
	CreatedWithMedia:   "Bike and hero image added.",
	CreatedWithWarning: "Bike added. %s",
	MediaFailed:        "Bike added, but hero image upload failed",
	Deleted:            "Bike deleted.",
	LoadingDetail:      "Loading bike...",
}

func NewBikeStore(api BikesAPI, creds Credentials, nav pageload.Navigator, mediaBaseURL string) *BikeStore {
	res := bikeResource{api: api}
	return New(Config[backend.Bike, backend.BikeInput]{
		Resource:    res,
		Media:       res,
		Credentials: creds,
		Navigator:   nav,
		Labels:      bikeLabels,
		DetailRoute: routes.BikeAnalyser,
		Enrich:      EnrichBike(mediaBaseURL),
	})
}

// EnrichBike derives hero_url from hero_media_id when the backend only sent
// the id, and falls the thumbnail back to the hero image.
func EnrichBike(mediaBaseURL string) func(backend.Bike) backend.Bike {
	base := strings.TrimRight(mediaBaseURL, "/")
	return func(b backend.Bike) backend.Bike {
		if b.HeroMediaID != "" && b.HeroURL == "" {
			b.HeroURL = base + "/media/" + b.HeroMediaID
		}
		if b.HeroURL != "" && b.HeroThumbURL == "" {
			b.HeroThumbURL = b.HeroURL
		}
		return b
	}
}

// ParseBikeForm validates the new-bike form. An empty year is allowed.
func ParseBikeForm(name, brand, modelYear string) (backend.BikeInput, error) {
	in := backend.BikeInput{
		Name:  strings.TrimSpace(name),
		Brand: strings.TrimSpace(brand),
	}
	if y := strings.TrimSpace(modelYear); y != "" {
		year, err := strconv.Atoi(y)
		if err != nil {
			return backend.BikeInput{}, apperrors.Validation("Model year must be a number.")
		}
		in.ModelYear = &year
	}
	return in, nil
}
