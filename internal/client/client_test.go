package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"dog-catalog/internal/app"
	"dog-catalog/internal/core/config"
	"dog-catalog/internal/domain"
	"dog-catalog/internal/repo"
	"dog-catalog/internal/testutil"
	"dog-catalog/pkg/utils"
)

const (
	adminEmail = "owner@kennel.test"
	adminPass  = "correct horse"
)

type server struct {
	*httptest.Server
	listHits atomic.Int32
	down     atomic.Bool
}

func newServer(t *testing.T) *server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	m := testutil.NewManager(t)

	ctx := context.Background()
	h, err := utils.HashPasswordCost(adminPass, bcrypt.MinCost)
	require.NoError(t, err)
	a := &domain.Account{Email: adminEmail, PasswordHash: h}
	require.NoError(t, repo.NewAccountRepo(m).Create(ctx, a))
	require.NoError(t, repo.NewRoleRepo(m).Grant(ctx, a.ID, domain.RoleAdmin))

	var cfg config.Config
	cfg.JWT = config.JWT{Secret: "client-test-secret-client-test", Issuer: "test", AccessTokenTTLMin: 60, CookieName: "session"}
	engine := app.NewEngine(&cfg, m, app.JWT(cfg.JWT), zap.NewNop())

	s := &server{}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.down.Load() {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"message":"service unavailable"}`))
			return
		}
		if r.Method == http.MethodGet && r.URL.Path == "/listings" {
			s.listHits.Add(1)
		}
		engine.ServeHTTP(w, r)
	}))
	t.Cleanup(s.Close)
	return s
}

func newClient(t *testing.T, s *server) *Client {
	t.Helper()
	c, err := New(s.URL)
	require.NoError(t, err)
	return c
}

func ptr[T any](v T) *T { return &v }

func dog(name, breed string, featured bool) domain.CreateListing {
	return domain.CreateListing{
		Name: name, Breed: breed, AgeMonths: ptr(6), Price: ptr(1500.0),
		Gender: domain.GenderMale, Size: domain.SizeSmall, IsFeatured: ptr(featured),
	}
}

func TestClient_ReadsAreCachedUntilMutation(t *testing.T) {
	s := newServer(t)
	c := newClient(t, s)
	ctx := context.Background()

	got, err := c.Listings(ctx, "all")
	require.NoError(t, err)
	assert.Empty(t, got)
	_, err = c.Listings(ctx, "")
	require.NoError(t, err)
	assert.EqualValues(t, 1, s.listHits.Load())

	_, err = c.Login(ctx, adminEmail, adminPass)
	require.NoError(t, err)
	created, err := c.Create(ctx, dog("Max", "Teckel", false))
	require.NoError(t, err)

	got, err = c.Listings(ctx, "all")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, created.ID, got[0].ID)
	assert.EqualValues(t, 2, s.listHits.Load())

	one, err := c.Listing(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusAvailable, one.Status)

	_, err = c.Update(ctx, created.ID, domain.UpdateListing{Status: ptr(domain.StatusReserved)})
	require.NoError(t, err)
	one, err = c.Listing(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusReserved, one.Status)

	require.NoError(t, c.Delete(ctx, created.ID))
	gone, err := c.Listing(ctx, created.ID)
	assert.Nil(t, gone)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.False(t, IsStale(err))
}

func TestClient_FailedMutationLeavesCache(t *testing.T) {
	s := newServer(t)
	admin := newClient(t, s)
	ctx := context.Background()
	_, err := admin.Login(ctx, adminEmail, adminPass)
	require.NoError(t, err)
	created, err := admin.Create(ctx, dog("Max", "Teckel", false))
	require.NoError(t, err)

	anon := newClient(t, s)
	_, err = anon.Listings(ctx, "Teckel")
	require.NoError(t, err)
	hits := s.listHits.Load()

	err = anon.Delete(ctx, created.ID)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	var ae *APIError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, http.StatusUnauthorized, ae.Status)

	got, err := anon.Listings(ctx, "Teckel")
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Equal(t, hits, s.listHits.Load())
}

func TestClient_ValidationErrorCarriesFields(t *testing.T) {
	s := newServer(t)
	c := newClient(t, s)
	ctx := context.Background()
	_, err := c.Login(ctx, adminEmail, adminPass)
	require.NoError(t, err)

	bad := dog("", "Teckel", false)
	_, err = c.Create(ctx, bad)
	assert.ErrorIs(t, err, domain.ErrValidation)
	var ae *APIError
	require.ErrorAs(t, err, &ae)
	assert.Contains(t, ae.Fields, "name")
}

func TestClient_StaleButAvailable(t *testing.T) {
	s := newServer(t)
	c := newClient(t, s)
	ctx := context.Background()
	_, err := c.Login(ctx, adminEmail, adminPass)
	require.NoError(t, err)
	_, err = c.Create(ctx, dog("Max", "Teckel", false))
	require.NoError(t, err)

	before, err := c.Listings(ctx, "")
	require.NoError(t, err)
	require.Len(t, before, 1)

	_, err = c.Create(ctx, dog("Luna", "Beagle", false))
	require.NoError(t, err)

	s.down.Store(true)
	got, err := c.Listings(ctx, "")
	assert.True(t, IsStale(err))
	assert.ErrorIs(t, err, domain.ErrUnavailable)
	assert.Equal(t, before, got)

	s.down.Store(false)
	got, err = c.Listings(ctx, "")
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestClient_FeaturedAndBreeds(t *testing.T) {
	s := newServer(t)
	c := newClient(t, s)
	ctx := context.Background()
	_, err := c.Login(ctx, adminEmail, adminPass)
	require.NoError(t, err)

	for _, in := range []domain.CreateListing{
		dog("A", "Teckel", true),
		dog("B", "Beagle", true),
		dog("C", "Teckel", false),
		dog("D", "Corgi", true),
		dog("E", "Beagle", true),
	} {
		_, err := c.Create(ctx, in)
		require.NoError(t, err)
	}
	sold := dog("F", "Akita", true)
	sold.Status = ptr(domain.StatusSold)
	_, err = c.Create(ctx, sold)
	require.NoError(t, err)

	featured, err := c.Featured(ctx)
	require.NoError(t, err)
	require.Len(t, featured, 3)
	for _, l := range featured {
		assert.True(t, l.IsFeatured)
		assert.Equal(t, domain.StatusAvailable, l.Status)
	}
	assert.Equal(t, "E", featured[0].Name)

	breeds, err := c.Breeds(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Akita", "Beagle", "Corgi", "Teckel"}, breeds)
}

func TestClient_ConcurrentReadsShareFetch(t *testing.T) {
	s := newServer(t)
	c := newClient(t, s)

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.Listings(context.Background(), "Teckel")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.EqualValues(t, 1, s.listHits.Load())
}

func TestClient_SessionLifecycle(t *testing.T) {
	s := newServer(t)
	c := newClient(t, s)
	ctx := context.Background()

	_, err := c.Session(ctx)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	_, err = c.Login(ctx, adminEmail, "nope")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

	sess, err := c.Login(ctx, adminEmail, adminPass)
	require.NoError(t, err)
	assert.Equal(t, "admin", sess.User.Role)

	cur, err := c.Session(ctx)
	require.NoError(t, err)
	assert.Equal(t, adminEmail, cur.User.Email)

	require.NoError(t, c.Logout(ctx))
	_, err = c.Session(ctx)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}
