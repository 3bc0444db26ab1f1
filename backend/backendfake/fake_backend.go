// Package backendfake is an in-memory stand-in for the backend API.
package backendfake

import (
	"context"
	"fmt"
	"net/http"
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/jrsteele09/trigpoint-web/backend"
	apperrors "github.com/jrsteele09/trigpoint-web/internal/errors"
	"golang.org/x/oauth2"
)

// Op names a backend call. Used to inject failures and count calls.
type Op string

const (
	OpLogin              Op = "login"
	OpRegister           Op = "register"
	OpVerifyEmail        Op = "verify-email"
	OpCurrentUser        Op = "current-user"
	OpForgotPassword     Op = "forgot-password"
	OpResetPassword      Op = "reset-password"
	OpListBikes          Op = "list-bikes"
	OpGetBike            Op = "get-bike"
	OpCreateBike         Op = "create-bike"
	OpDeleteBike         Op = "delete-bike"
	OpUploadHero         Op = "upload-hero"
	OpKinematics         Op = "kinematics"
	OpListSheds          Op = "list-sheds"
	OpGetShed            Op = "get-shed"
	OpCreateShed         Op = "create-shed"
	OpDeleteShed         Op = "delete-shed"
	OpListShedBikes      Op = "list-shed-bikes"
	OpAddBikeToShed      Op = "add-bike-to-shed"
	OpRemoveBikeFromShed Op = "remove-bike-from-shed"
)

type account struct {
	password string
	verified bool
}

// Backend is safe for concurrent use. Seed it with the Add* helpers.
type Backend struct {
	lock sync.Mutex

	accounts     map[string]*account
	tokens       map[string]string // access token to email
	verifyTokens map[string]string
	resetTokens  map[string]string

	bikes      []backend.Bike
	sheds      []backend.Shed
	shedBikes  map[string][]string
	kinematics map[string]*backend.Kinematics
	uploads    map[string]backend.Media

	failures map[Op]error
	before   map[Op]func(ctx context.Context)
	calls    map[Op]int

	// DevTokens makes Register return verify_token_dev_only.
	DevTokens bool
	// UploadWarning is returned by UploadHero when set.
	UploadWarning string
}

func New() *Backend {
	return &Backend{
		accounts:     make(map[string]*account),
		tokens:       make(map[string]string),
		verifyTokens: make(map[string]string),
		resetTokens:  make(map[string]string),
		shedBikes:    make(map[string][]string),
		kinematics:   make(map[string]*backend.Kinematics),
		uploads:      make(map[string]backend.Media),
		failures:     make(map[Op]error),
		before:       make(map[Op]func(ctx context.Context)),
		calls:        make(map[Op]int),
	}
}

// AddUser registers a verified account.
func (b *Backend) AddUser(email, password string) {
	b.lock.Lock()
	defer b.lock.Unlock()
	b.accounts[email] = &account{password: password, verified: true}
}

// IssueToken returns a valid access token for email without a login call.
func (b *Backend) IssueToken(email string) string {
	b.lock.Lock()
	defer b.lock.Unlock()
	tok := uuid.NewString()
	b.tokens[tok] = email
	return tok
}

// RevokeToken makes tok answer 401 from now on.
func (b *Backend) RevokeToken(tok string) {
	b.lock.Lock()
	defer b.lock.Unlock()
	delete(b.tokens, tok)
}

func (b *Backend) AddBike(bike backend.Bike) {
	b.lock.Lock()
	defer b.lock.Unlock()
	b.bikes = append(b.bikes, bike)
}

func (b *Backend) AddShed(shed backend.Shed, bikeIDs ...string) {
	b.lock.Lock()
	defer b.lock.Unlock()
	b.sheds = append(b.sheds, shed)
	b.shedBikes[shed.ID] = append([]string(nil), bikeIDs...)
}

func (b *Backend) SetKinematics(bikeID string, k *backend.Kinematics) {
	b.lock.Lock()
	defer b.lock.Unlock()
	b.kinematics[bikeID] = k
}

// ResetToken issues a password reset token for email.
func (b *Backend) ResetToken(email string) string {
	b.lock.Lock()
	defer b.lock.Unlock()
	tok := uuid.NewString()
	b.resetTokens[tok] = email
	return tok
}

// PendingVerification returns the verification token Register issued to email.
func (b *Backend) PendingVerification(email string) string {
	b.lock.Lock()
	defer b.lock.Unlock()
	for tok, e := range b.verifyTokens {
		if e == email {
			return tok
		}
	}
	return ""
}

// Fail makes every subsequent call to op return err. A nil err clears it.
func (b *Backend) Fail(op Op, err error) {
	b.lock.Lock()
	defer b.lock.Unlock()
	if err == nil {
		delete(b.failures, op)
		return
	}
	b.failures[op] = err
}

// FailStatus is Fail with a backend rejection.
func (b *Backend) FailStatus(op Op, status int, detail string) {
	b.Fail(op, &apperrors.RejectedError{Status: status, Detail: detail})
}

// Before runs fn at the start of every call to op, outside the fake's lock.
// Tests use it to hold a call in flight.
func (b *Backend) Before(op Op, fn func(ctx context.Context)) {
	b.lock.Lock()
	defer b.lock.Unlock()
	b.before[op] = fn
}

// Calls returns how many times op was invoked.
func (b *Backend) Calls(op Op) int {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.calls[op]
}

// TotalCalls returns the number of calls across all ops.
func (b *Backend) TotalCalls() int {
	b.lock.Lock()
	defer b.lock.Unlock()
	total := 0
	for _, n := range b.calls {
		total += n
	}
	return total
}

func (b *Backend) Bikes() []backend.Bike {
	b.lock.Lock()
	defer b.lock.Unlock()
	return slices.Clone(b.bikes)
}

func (b *Backend) ShedBikeIDs(shedID string) []string {
	b.lock.Lock()
	defer b.lock.Unlock()
	return slices.Clone(b.shedBikes[shedID])
}

func (b *Backend) Upload(bikeID string) (backend.Media, bool) {
	b.lock.Lock()
	defer b.lock.Unlock()
	m, ok := b.uploads[bikeID]
	return m, ok
}

// enter records the call and returns the injected failure, if any. The
// caller holds no lock; on a nil return the fake's lock is held and must be
// released by the caller.
func (b *Backend) enter(ctx context.Context, op Op) error {
	b.lock.Lock()
	b.calls[op]++
	fn := b.before[op]
	b.lock.Unlock()

	if fn != nil {
		fn(ctx)
	}
	if err := ctx.Err(); err != nil {
		return &apperrors.TransportError{Kind: apperrors.ErrTimeout, Cause: err}
	}

	b.lock.Lock()
	if err := b.failures[op]; err != nil {
		b.lock.Unlock()
		return err
	}
	return nil
}

func unauthorized() error {
	return &apperrors.RejectedError{Status: http.StatusUnauthorized, Detail: "Not authenticated"}
}

func notFound(what string) error {
	return &apperrors.RejectedError{Status: http.StatusNotFound, Detail: what + " not found"}
}

// authorised must be called with the lock held.
func (b *Backend) authorised(accessToken string) bool {
	_, ok := b.tokens[accessToken]
	return ok
}

func (b *Backend) nextID(prefix string, taken func(string) bool) string {
	for i := 1; ; i++ {
		id := fmt.Sprintf("%s%d", prefix, i)
		if !taken(id) {
			return id
		}
	}
}

func (b *Backend) Login(ctx context.Context, email, password string) (*oauth2.Token, error) {
	if err := b.enter(ctx, OpLogin); err != nil {
		return nil, err
	}
	defer b.lock.Unlock()

	acct, ok := b.accounts[email]
	if !ok || acct.password != password {
		return nil, &apperrors.RejectedError{Status: http.StatusUnauthorized, Detail: "Invalid credentials"}
	}
	tok := uuid.NewString()
	b.tokens[tok] = email
	return backend.NewToken(tok, uuid.NewString()), nil
}

func (b *Backend) Register(ctx context.Context, email, password string) (*backend.RegisterResult, error) {
	if err := b.enter(ctx, OpRegister); err != nil {
		return nil, err
	}
	defer b.lock.Unlock()

	if _, ok := b.accounts[email]; ok {
		return nil, &apperrors.RejectedError{Status: http.StatusBadRequest, Detail: "Email already registered"}
	}
	b.accounts[email] = &account{password: password}
	tok := uuid.NewString()
	b.verifyTokens[tok] = email

	result := &backend.RegisterResult{}
	if b.DevTokens {
		result.VerifyTokenDevOnly = tok
	}
	return result, nil
}

func (b *Backend) VerifyEmail(ctx context.Context, token string) (*backend.VerifyResult, error) {
	if err := b.enter(ctx, OpVerifyEmail); err != nil {
		return nil, err
	}
	defer b.lock.Unlock()

	email, ok := b.verifyTokens[token]
	if !ok {
		return nil, &apperrors.RejectedError{Status: http.StatusBadRequest, Detail: "Invalid or expired token"}
	}
	delete(b.verifyTokens, token)
	if acct, ok := b.accounts[email]; ok {
		acct.verified = true
	}
	return &backend.VerifyResult{Email: email}, nil
}

func (b *Backend) CurrentUser(ctx context.Context, accessToken string) (*backend.User, error) {
	if err := b.enter(ctx, OpCurrentUser); err != nil {
		return nil, err
	}
	defer b.lock.Unlock()

	email, ok := b.tokens[accessToken]
	if !ok {
		return nil, unauthorized()
	}
	verified := true
	if acct, ok := b.accounts[email]; ok {
		verified = acct.verified
	}
	return &backend.User{Email: email, Role: "user", IsActive: &verified}, nil
}

func (b *Backend) ForgotPassword(ctx context.Context, email string) error {
	if err := b.enter(ctx, OpForgotPassword); err != nil {
		return err
	}
	defer b.lock.Unlock()

	if _, ok := b.accounts[email]; ok {
		b.resetTokens[uuid.NewString()] = email
	}
	return nil
}

func (b *Backend) ResetPassword(ctx context.Context, token, newPassword string) error {
	if err := b.enter(ctx, OpResetPassword); err != nil {
		return err
	}
	defer b.lock.Unlock()

	email, ok := b.resetTokens[token]
	if !ok {
		return &apperrors.RejectedError{Status: http.StatusBadRequest, Detail: "Invalid or expired token"}
	}
	delete(b.resetTokens, token)
	if acct, ok := b.accounts[email]; ok {
		acct.password = newPassword
	}
	return nil
}

func (b *Backend) ListBikes(ctx context.Context, accessToken string) ([]backend.Bike, error) {
	if err := b.enter(ctx, OpListBikes); err != nil {
		return nil, err
	}
	defer b.lock.Unlock()

	if !b.authorised(accessToken) {
		return nil, unauthorized()
	}
	return slices.Clone(b.bikes), nil
}

func (b *Backend) bikeIndex(id string) int {
	return slices.IndexFunc(b.bikes, func(bike backend.Bike) bool { return bike.ID == id })
}

func (b *Backend) GetBike(ctx context.Context, accessToken, bikeID string) (backend.Bike, error) {
	if err := b.enter(ctx, OpGetBike); err != nil {
		return backend.Bike{}, err
	}
	defer b.lock.Unlock()

	if !b.authorised(accessToken) {
		return backend.Bike{}, unauthorized()
	}
	i := b.bikeIndex(bikeID)
	if i < 0 {
		return backend.Bike{}, notFound("Bike")
	}
	return b.bikes[i], nil
}

func (b *Backend) CreateBike(ctx context.Context, accessToken string, in backend.BikeInput) (backend.Bike, error) {
	if err := b.enter(ctx, OpCreateBike); err != nil {
		return backend.Bike{}, err
	}
	defer b.lock.Unlock()

	if !b.authorised(accessToken) {
		return backend.Bike{}, unauthorized()
	}
	bike := backend.Bike{
		ID:        b.nextID("b", func(id string) bool { return b.bikeIndex(id) >= 0 }),
		Name:      in.Name,
		Brand:     in.Brand,
		ModelYear: in.ModelYear,
	}
	b.bikes = append(b.bikes, bike)
	return bike, nil
}

func (b *Backend) DeleteBike(ctx context.Context, accessToken, bikeID string) error {
	if err := b.enter(ctx, OpDeleteBike); err != nil {
		return err
	}
	defer b.lock.Unlock()

	if !b.authorised(accessToken) {
		return unauthorized()
	}
	i := b.bikeIndex(bikeID)
	if i < 0 {
		return notFound("Bike")
	}
	b.bikes = slices.Delete(b.bikes, i, i+1)
	for shedID, ids := range b.shedBikes {
		b.shedBikes[shedID] = slices.DeleteFunc(ids, func(id string) bool { return id == bikeID })
	}
	return nil
}

func (b *Backend) UploadHero(ctx context.Context, accessToken, bikeID string, media backend.Media) (*backend.UploadResult, error) {
	if err := b.enter(ctx, OpUploadHero); err != nil {
		return nil, err
	}
	defer b.lock.Unlock()

	if !b.authorised(accessToken) {
		return nil, unauthorized()
	}
	i := b.bikeIndex(bikeID)
	if i < 0 {
		return nil, notFound("Bike")
	}
	b.uploads[bikeID] = media
	b.bikes[i].HeroMediaID = "m-" + bikeID
	return &backend.UploadResult{Warning: b.UploadWarning}, nil
}

func (b *Backend) Kinematics(ctx context.Context, accessToken, bikeID string) (*backend.Kinematics, error) {
	if err := b.enter(ctx, OpKinematics); err != nil {
		return nil, err
	}
	defer b.lock.Unlock()

	if !b.authorised(accessToken) {
		return nil, unauthorized()
	}
	k, ok := b.kinematics[bikeID]
	if !ok {
		return &backend.Kinematics{}, nil
	}
	out := *k
	out.Steps = slices.Clone(k.Steps)
	return &out, nil
}

func (b *Backend) ListSheds(ctx context.Context, accessToken string) ([]backend.Shed, error) {
	if err := b.enter(ctx, OpListSheds); err != nil {
		return nil, err
	}
	defer b.lock.Unlock()

	if !b.authorised(accessToken) {
		return nil, unauthorized()
	}
	return slices.Clone(b.sheds), nil
}

func (b *Backend) shedIndex(id string) int {
	return slices.IndexFunc(b.sheds, func(s backend.Shed) bool { return s.ID == id })
}

func (b *Backend) GetShed(ctx context.Context, accessToken, shedID string) (backend.Shed, error) {
	if err := b.enter(ctx, OpGetShed); err != nil {
		return backend.Shed{}, err
	}
	defer b.lock.Unlock()

	if !b.authorised(accessToken) {
		return backend.Shed{}, unauthorized()
	}
	i := b.shedIndex(shedID)
	if i < 0 {
		return backend.Shed{}, notFound("Shed")
	}
	return b.sheds[i], nil
}

func (b *Backend) CreateShed(ctx context.Context, accessToken string, in backend.ShedInput) (backend.Shed, error) {
	if err := b.enter(ctx, OpCreateShed); err != nil {
		return backend.Shed{}, err
	}
	defer b.lock.Unlock()

	if !b.authorised(accessToken) {
		return backend.Shed{}, unauthorized()
	}
	shed := backend.Shed{
		ID:          b.nextID("s", func(id string) bool { return b.shedIndex(id) >= 0 }),
		Name:        in.Name,
		Description: in.Description,
		Visibility:  in.Visibility,
	}
	b.sheds = append(b.sheds, shed)
	return shed, nil
}

func (b *Backend) DeleteShed(ctx context.Context, accessToken, shedID string) error {
	if err := b.enter(ctx, OpDeleteShed); err != nil {
		return err
	}
	defer b.lock.Unlock()

	if !b.authorised(accessToken) {
		return unauthorized()
	}
	i := b.shedIndex(shedID)
	if i < 0 {
		return notFound("Shed")
	}
	b.sheds = slices.Delete(b.sheds, i, i+1)
	delete(b.shedBikes, shedID)
	return nil
}

func (b *Backend) ListShedBikes(ctx context.Context, accessToken, shedID string) ([]backend.Bike, error) {
	if err := b.enter(ctx, OpListShedBikes); err != nil {
		return nil, err
	}
	defer b.lock.Unlock()

	if !b.authorised(accessToken) {
		return nil, unauthorized()
	}
	if b.shedIndex(shedID) < 0 {
		return nil, notFound("Shed")
	}
	var out []backend.Bike
	for _, id := range b.shedBikes[shedID] {
		if i := b.bikeIndex(id); i >= 0 {
			out = append(out, b.bikes[i])
		}
	}
	return out, nil
}

func (b *Backend) AddBikeToShed(ctx context.Context, accessToken, shedID, bikeID string) error {
	if err := b.enter(ctx, OpAddBikeToShed); err != nil {
		return err
	}
	defer b.lock.Unlock()

	if !b.authorised(accessToken) {
		return unauthorized()
	}
	if b.shedIndex(shedID) < 0 {
		return notFound("Shed")
	}
	if b.bikeIndex(bikeID) < 0 {
		return notFound("Bike")
	}
	if !slices.Contains(b.shedBikes[shedID], bikeID) {
		b.shedBikes[shedID] = append(b.shedBikes[shedID], bikeID)
	}
	return nil
}

func (b *Backend) RemoveBikeFromShed(ctx context.Context, accessToken, shedID, bikeID string) error {
	if err := b.enter(ctx, OpRemoveBikeFromShed); err != nil {
		return err
	}
	defer b.lock.Unlock()

	if !b.authorised(accessToken) {
		return unauthorized()
	}
	if b.shedIndex(shedID) < 0 {
		return notFound("Shed")
	}
	b.shedBikes[shedID] = slices.DeleteFunc(b.shedBikes[shedID], func(id string) bool { return id == bikeID })
	return nil
}
